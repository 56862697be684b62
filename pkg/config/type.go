package config

// Config is the daemon configuration file.
type Config struct {
	BrokerHost        string `toml:"broker_host"`
	ClientID          string `toml:"client_id,omitempty"`
	Username          string `toml:"username,omitempty"`
	Password          string `toml:"password,omitempty"`
	KeepAliveSec      int    `toml:"keepalive_sec"`
	DisconnectGraceMs int    `toml:"disconnect_grace_ms"`
	// Seconds between two samples; 0 reads frames continuously.
	SampleDelay int `toml:"sample_delay"`
	// Seconds between two summaries; 0 publishes a summary after every frame.
	MonitoringPeriod int `toml:"monitoring_period"`

	LiveAPI  LiveAPIConfig   `toml:"live_api"`
	Sections []SectionConfig `toml:"section"`
}

type LiveAPIConfig struct {
	Enabled       bool   `toml:"enabled"`
	ListenAddress string `toml:"listen_address"`
	ListenPort    int    `toml:"listen_port"`
}

type SectionConfig struct {
	Name    string `toml:"name"`
	Variant string `toml:"variant"`
	Port    string `toml:"port"`
	// 0 opens the port as a plain file (FIFO, capture, tty set up by stty).
	Baudrate uint `toml:"baudrate,omitempty"`

	Topic    string `toml:"topic,omitempty"`
	ConvCons string `toml:"conv_cons,omitempty"`
	ConvProd string `toml:"conv_prod,omitempty"`

	// Labels allowed to be published. Empty publishes every label.
	Labels []string `toml:"labels,omitempty"`

	// Standard label -> historic name on the converted topics.
	// Absent tables fall back to the built-in ones.
	RemapProducer map[string]string `toml:"remap_producer,omitempty"`
	RemapConsumer map[string]string `toml:"remap_consumer,omitempty"`
}
