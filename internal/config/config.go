// internal/config/config.go
package config

type Config struct {
	Bridge BridgeConfig `yaml:"bridge"`
}

type BridgeConfig struct {
	DeviceName string           `yaml:"device_name"`
	Source     SourceConfig     `yaml:"source"`
	Poll       PollConfig       `yaml:"poll"`
	Registers  []RegisterConfig `yaml:"registers"` // empty => built-in SDM630 table
	Broker     BrokerConfig     `yaml:"broker"`
	Publish    PublishConfig    `yaml:"publish"`
	Web        WebConfig        `yaml:"web"`
	Watchdog   WatchdogConfig   `yaml:"watchdog"`
	Store      StoreConfig      `yaml:"store"`
	Log        LogConfig        `yaml:"log"`
}

// ---- SOURCE ----

type SourceConfig struct {
	Mode      string `yaml:"mode"`     // rtu | tcp
	Endpoint  string `yaml:"endpoint"` // /dev/ttyUSB0 or host:502
	UnitID    uint8  `yaml:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms"`

	// Serial line (rtu only)
	BaudRate int    `yaml:"baud_rate"`
	DataBits int    `yaml:"data_bits"`
	Parity   string `yaml:"parity"`
	StopBits int    `yaml:"stop_bits"`

	WordOrder string `yaml:"word_order"` // abcd | cdab
}

// ---- POLL ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms"`
}

// ---- REGISTERS ----

type RegisterConfig struct {
	Name    string  `yaml:"name"`
	Unit    string  `yaml:"unit"`
	Address uint16  `yaml:"address"`
	Digits  int     `yaml:"digits"`
	Prio    bool    `yaml:"prio"`
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Initial float64 `yaml:"initial"`
}

// ---- BROKER ----

type BrokerConfig struct {
	Kind      string `yaml:"kind"` // mqtt | nats
	URL       string `yaml:"url"`
	ClientID  string `yaml:"client_id"`
	RootTopic string `yaml:"root_topic"`
	QoS       uint8  `yaml:"qos"`
	Retain    bool   `yaml:"retain"`

	KeepAliveS       int `yaml:"keepalive_s"`
	ConnectTimeoutMs int `yaml:"connect_timeout_ms"`
	PublishTimeoutMs int `yaml:"publish_timeout_ms"`
	ConnectAttempts  int `yaml:"connect_attempts"`
}

// ---- PUBLISH ----

type PublishConfig struct {
	IntervalMs       int `yaml:"interval_ms"`
	FullCycleEvery   int `yaml:"full_cycle_every"`
	HealthIntervalMs int `yaml:"health_interval_ms"`
}

// ---- WEB ----

type WebConfig struct {
	Listen        string `yaml:"listen"`
	AssetsDir     string `yaml:"assets_dir"`
	Workers       int    `yaml:"workers"`
	QueueDepth    int    `yaml:"queue_depth"` // 0 => workers
	EnqueueWaitMs int    `yaml:"enqueue_wait_ms"`
	ReadTimeoutS  int    `yaml:"read_timeout_s"`
	WriteTimeoutS int    `yaml:"write_timeout_s"` // 0 => none (event stream)
}

// ---- WATCHDOG ----

type WatchdogConfig struct {
	LinkIntervalS     int    `yaml:"link_interval_s"`
	LinkProbe         string `yaml:"link_probe"` // host:port; empty disables the link check
	WebIntervalS      int    `yaml:"web_interval_s"`
	RestartCountdownS int    `yaml:"restart_countdown_s"`
}

// ---- STORE ----

type StoreConfig struct {
	Path string `yaml:"path"`
}

// ---- LOG ----

type LogConfig struct {
	Level       string `yaml:"level"`  // debug | info | warn | error
	Format      string `yaml:"format"` // text | json
	StreamQueue int    `yaml:"stream_queue"`
}
