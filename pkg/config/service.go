package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/interpreter"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/pathing"
	"github.com/NotCoffee418/teleinfo_bridge/pkg/types"
)

var (
	ErrNoSection        = errors.New("no section defined")
	ErrUnknownDirective = errors.New("unknown directive")
)

var Active *Config

// Defaults applied before the file is decoded.
func defaults() *Config {
	return &Config{
		BrokerHost:        "tcp://localhost:1883",
		KeepAliveSec:      60,
		DisconnectGraceMs: 10000,
		LiveAPI: LiveAPIConfig{
			ListenAddress: "0.0.0.0",
			ListenPort:    9039,
		},
	}
}

// Default is the configuration written when the default file is missing.
func Default() *Config {
	cfg := defaults()
	cfg.Sections = []SectionConfig{{
		Name:    "Consommation",
		Variant: types.Historic.String(),
		Port:    "/dev/ttyS0",
		Topic:   "TeleInfo/Consommation",
	}}
	return cfg
}

// LoadConfig loads path into Active. An empty path selects the default file,
// which is created with Default when missing.
func LoadConfig(path string) error {
	if path == "" {
		path = pathing.GetConfigPath()
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := WriteDefault(path); err != nil {
				return fmt.Errorf("failed to write default config: %w", err)
			}
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return err
	}
	Active = cfg
	return nil
}

func WriteDefault(path string) error {
	if err := pathing.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	cfgFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer cfgFile.Close()
	return toml.NewEncoder(cfgFile).Encode(Default())
}

// Load decodes and validates a configuration file.
func Load(path string) (*Config, error) {
	cfg := defaults()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("%s: %w: %s", path, ErrUnknownDirective, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error
	if c.BrokerHost == "" {
		errs = append(errs, errors.New("broker_host is empty"))
	}
	if c.SampleDelay < 0 {
		errs = append(errs, fmt.Errorf("sample_delay must not be negative, got %d", c.SampleDelay))
	}
	if c.MonitoringPeriod < 0 {
		errs = append(errs, fmt.Errorf("monitoring_period must not be negative, got %d", c.MonitoringPeriod))
	}
	if c.KeepAliveSec < 0 || c.DisconnectGraceMs < 0 {
		errs = append(errs, errors.New("keepalive_sec and disconnect_grace_ms must not be negative"))
	}
	if c.LiveAPI.Enabled && (c.LiveAPI.ListenPort <= 0 || c.LiveAPI.ListenPort > 65535) {
		errs = append(errs, fmt.Errorf("live_api listen_port %d is out of range", c.LiveAPI.ListenPort))
	}

	if len(c.Sections) == 0 {
		errs = append(errs, ErrNoSection)
	}
	names := make(map[string]bool)
	ports := make(map[string]bool)
	for i, s := range c.Sections {
		if err := s.validate(); err != nil {
			errs = append(errs, fmt.Errorf("section %d (%s): %w", i+1, s.Name, err))
		}
		if s.Name != "" && names[s.Name] {
			errs = append(errs, fmt.Errorf("section name %q is used twice", s.Name))
		}
		if s.Port != "" && ports[s.Port] {
			errs = append(errs, fmt.Errorf("port %s is used by two sections", s.Port))
		}
		names[s.Name] = true
		ports[s.Port] = true
	}
	return errors.Join(errs...)
}

func (s *SectionConfig) validate() error {
	var errs []error
	if s.Name == "" {
		errs = append(errs, errors.New("name is missing"))
	}
	if s.Port == "" {
		errs = append(errs, errors.New("port is missing"))
	}
	variant, err := types.ParseVariant(s.Variant)
	if err != nil {
		errs = append(errs, err)
		return errors.Join(errs...)
	}
	switch variant {
	case types.Historic:
		if s.Topic == "" {
			errs = append(errs, errors.New("historic sections need a topic"))
		}
		if s.ConvCons != "" || s.ConvProd != "" {
			errs = append(errs, errors.New("conv_cons and conv_prod only apply to standard sections"))
		}
	case types.Standard:
		if s.Topic == "" && s.ConvCons == "" && s.ConvProd == "" {
			errs = append(errs, errors.New("standard sections need one of topic, conv_cons or conv_prod"))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) SampleDelayDuration() time.Duration {
	return time.Duration(c.SampleDelay) * time.Second
}

func (c *Config) MonitoringPeriodDuration() time.Duration {
	return time.Duration(c.MonitoringPeriod) * time.Second
}

func (c *Config) KeepAlive() time.Duration {
	return time.Duration(c.KeepAliveSec) * time.Second
}

func (c *Config) DisconnectGrace() time.Duration {
	return time.Duration(c.DisconnectGraceMs) * time.Millisecond
}

// BuildSections turns a validated configuration into section descriptors.
func (c *Config) BuildSections() ([]*types.Section, error) {
	sections := make([]*types.Section, 0, len(c.Sections))
	for _, sc := range c.Sections {
		variant, err := types.ParseVariant(sc.Variant)
		if err != nil {
			return nil, fmt.Errorf("section %s: %w", sc.Name, err)
		}
		s := &types.Section{
			Name:          sc.Name,
			Variant:       variant,
			Port:          sc.Port,
			Baudrate:      sc.Baudrate,
			Topic:         sc.Topic,
			ConsumerTopic: sc.ConvCons,
			ProducerTopic: sc.ConvProd,
			ProducerRemap: sc.RemapProducer,
			ConsumerRemap: sc.RemapConsumer,
		}
		if len(sc.Labels) > 0 {
			s.Labels = make(map[string]struct{}, len(sc.Labels))
			for _, l := range sc.Labels {
				s.Labels[strings.TrimSpace(l)] = struct{}{}
			}
		}
		if s.ProducerRemap == nil {
			s.ProducerRemap = interpreter.DefaultProducerRemap()
		}
		if s.ConsumerRemap == nil {
			s.ConsumerRemap = interpreter.DefaultConsumerRemap()
		}
		sections = append(sections, s)
	}
	return sections, nil
}
