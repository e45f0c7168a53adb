// internal/config/load.go
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Default returns a configuration with every optional field filled in.
func Default() Config {
	return Config{
		Bridge: BridgeConfig{
			DeviceName: "Eastron SDM630-V2-MODBUS",
			Source: SourceConfig{
				Mode:      "rtu",
				UnitID:    1,
				TimeoutMs: 500,
				BaudRate:  9600,
				DataBits:  8,
				Parity:    "N",
				StopBits:  1,
				WordOrder: "abcd",
			},
			Poll: PollConfig{IntervalMs: 2000},
			Broker: BrokerConfig{
				Kind:             "mqtt",
				RootTopic:        "Power-Meter",
				KeepAliveS:       60,
				ConnectTimeoutMs: 4000,
				PublishTimeoutMs: 2000,
				ConnectAttempts:  3,
			},
			Publish: PublishConfig{
				IntervalMs:       2000,
				FullCycleEvery:   15,
				HealthIntervalMs: 130000,
			},
			Web: WebConfig{
				Listen:        ":8080",
				AssetsDir:     "./www",
				Workers:       2,
				EnqueueWaitMs: 100,
				ReadTimeoutS:  2,
			},
			Watchdog: WatchdogConfig{
				LinkIntervalS:     60,
				WebIntervalS:      60,
				RestartCountdownS: 3,
			},
			Store: StoreConfig{Path: "./bridge-state.toml"},
			Log: LogConfig{
				Level:       "info",
				Format:      "text",
				StreamQueue: 20,
			},
		},
	}
}

// Load reads a YAML file on top of Default.
// It does not validate.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}

// Decode parses YAML from r on top of Default. Unknown keys are rejected.
func Decode(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
