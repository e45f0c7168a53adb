// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/google/uuid"
)

// DeviceNameMaxChars bounds the device name shown in the snapshot and
// published as the meter identity.
const DeviceNameMaxChars = 32

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Bridge

	// device_name: ASCII already validated, truncate
	if len(b.DeviceName) > DeviceNameMaxChars {
		b.DeviceName = b.DeviceName[:DeviceNameMaxChars]
	}

	b.Source.Mode = strings.ToLower(b.Source.Mode)
	b.Source.WordOrder = strings.ToLower(b.Source.WordOrder)

	b.Broker.Kind = strings.ToLower(b.Broker.Kind)
	b.Broker.RootTopic = strings.TrimRight(b.Broker.RootTopic, "/")
	if b.Broker.ClientID == "" {
		b.Broker.ClientID = "bridge-" + uuid.NewString()
	}

	if b.Web.QueueDepth == 0 {
		b.Web.QueueDepth = b.Web.Workers
	}

	b.Log.Level = strings.ToLower(b.Log.Level)
	b.Log.Format = strings.ToLower(b.Log.Format)
}
