package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Sink kinds.
const (
	KindSPI   = "spi"
	KindOPC   = "opc"
	KindRelay = "relay"
	KindHue   = "hue"
	KindDebug = "debug"
)

type Sample struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
	Count int `yaml:"count"`
}

type Sink struct {
	Kind    string  `yaml:"kind"`               // spi | opc | relay | hue | debug
	Device  string  `yaml:"device,omitempty"`   // spi port name, "" for the first one
	SpeedHz int     `yaml:"speed_hz,omitempty"` // spi clock, e.g. 2500000
	Addr    string  `yaml:"addr,omitempty"`     // relay peer or opc server
	Channel int     `yaml:"channel,omitempty"`  // opc channel
	Group   int     `yaml:"group,omitempty"`    // hue entertainment group
	Columns int     `yaml:"columns,omitempty"`  // debug image width
	Dir     string  `yaml:"dir,omitempty"`      // debug image directory
	Sample  *Sample `yaml:"sample,omitempty"`
}

type Hue struct {
	Hub       string `yaml:"hub"`
	Username  string `yaml:"username"`
	ClientKey string `yaml:"client_key"`
}

type Config struct {
	Pixels  int    `yaml:"pixels"`
	Listen  string `yaml:"listen"`
	Monitor string `yaml:"monitor,omitempty"` // "" disables the monitor

	FlushHz      float64 `yaml:"flush_hz"`
	EffectHz     float64 `yaml:"effect_hz"`
	RefreshS     float64 `yaml:"refresh_s"`
	IdleTimeoutS int     `yaml:"idle_timeout_s"` // 0 = disabled until the first frame
	RainbowSpeed float64 `yaml:"rainbow_speed"`

	Sinks        []Sink `yaml:"sinks"`
	SecureToggle *Sink  `yaml:"secure_toggle,omitempty"`
	Hue          Hue    `yaml:"hue"`
}

// Default is the living room strip: 105 LEDs on SPI plus a relay to the
// desk strip, with the study lamp as the secure stream toggle target.
func Default() *Config {
	return &Config{
		Pixels:       105,
		Listen:       ":21324",
		Monitor:      ":8080",
		FlushHz:      60,
		EffectHz:     60,
		RefreshS:     1,
		RainbowSpeed: 270,
		Sinks: []Sink{
			{Kind: KindSPI, SpeedHz: 2500000},
			{Kind: KindRelay, Addr: "192.168.12.76:21324", Sample: &Sample{Start: 30, End: 75, Count: 15}},
		},
		SecureToggle: &Sink{Kind: KindHue, Group: 7, Sample: &Sample{Start: 40, End: 65, Count: 1}},
		Hue:          Hue{Hub: "192.168.12.49"},
	}
}

// Load reads path over the defaults; keys missing from the file keep their
// default value.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

func (c *Config) Validate() error {
	var errs []error
	if c.Pixels <= 0 {
		errs = append(errs, fmt.Errorf("pixels must be positive, got %d", c.Pixels))
	}
	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is empty"))
	}
	if c.FlushHz <= 0 || c.EffectHz <= 0 {
		errs = append(errs, fmt.Errorf("rates must be positive: flush_hz=%v effect_hz=%v", c.FlushHz, c.EffectHz))
	}
	if c.RefreshS <= 0 {
		errs = append(errs, fmt.Errorf("refresh_s must be positive, got %v", c.RefreshS))
	}
	if c.IdleTimeoutS < 0 {
		errs = append(errs, fmt.Errorf("idle_timeout_s must not be negative, got %d", c.IdleTimeoutS))
	}
	if len(c.Sinks) == 0 {
		errs = append(errs, errors.New("no sinks configured"))
	}
	for i, s := range c.Sinks {
		if err := c.validateSink(s); err != nil {
			errs = append(errs, fmt.Errorf("sinks[%d]: %w", i, err))
		}
	}
	if c.SecureToggle != nil {
		if c.SecureToggle.Kind != KindHue {
			errs = append(errs, fmt.Errorf("secure_toggle: kind must be %q, got %q", KindHue, c.SecureToggle.Kind))
		} else if err := c.validateSink(*c.SecureToggle); err != nil {
			errs = append(errs, fmt.Errorf("secure_toggle: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) validateSink(s Sink) error {
	switch s.Kind {
	case KindSPI:
	case KindOPC, KindRelay:
		if s.Addr == "" {
			return fmt.Errorf("%s: addr is required", s.Kind)
		}
		if s.Channel < 0 || s.Channel > 255 {
			return fmt.Errorf("%s: channel %d out of range", s.Kind, s.Channel)
		}
	case KindHue:
		if c.Hue.Hub == "" {
			return errors.New("hue: hub is required")
		}
	case KindDebug:
		if s.Columns <= 0 || s.Dir == "" {
			return errors.New("debug: columns and dir are required")
		}
	default:
		return fmt.Errorf("unknown sink kind %q", s.Kind)
	}
	if p := s.Sample; p != nil {
		if p.Start < 0 || p.End > c.Pixels || p.End <= p.Start {
			return fmt.Errorf("sample range [%d, %d) outside [0, %d)", p.Start, p.End, c.Pixels)
		}
		if p.Count <= 0 || p.End-p.Start < p.Count {
			return fmt.Errorf("sample count %d invalid for range [%d, %d)", p.Count, p.Start, p.End)
		}
	}
	return nil
}
