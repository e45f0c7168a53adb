// internal/web/builder.go
package web

import (
	"time"

	cfg "github.com/tamzrod/modbus-mqtt-bridge/internal/config"
)

// Build wires the presentation server from config.
func Build(b cfg.BridgeConfig, deps Deps, opts ...Option) (*Server, error) {
	return New(
		Config{
			Listen:       b.Web.Listen,
			AssetsDir:    b.Web.AssetsDir,
			Workers:      b.Web.Workers,
			QueueDepth:   b.Web.QueueDepth,
			EnqueueWait:  time.Duration(b.Web.EnqueueWaitMs) * time.Millisecond,
			ReadTimeout:  time.Duration(b.Web.ReadTimeoutS) * time.Second,
			WriteTimeout: time.Duration(b.Web.WriteTimeoutS) * time.Second,
		},
		deps,
		opts...,
	)
}
