package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/co2sensors/scd4x"
)

// Supported bus adapters.
const (
	AdapterMCP2221 = "mcp2221"
	AdapterGeneric = "generic"
	AdapterNanoPi  = "nanopi"
	AdapterSim     = "sim"
)

const (
	DefaultAddress byte = 0x62
	DefaultSpeedHz      = 100_000
)

var ErrInvalidConfig = errors.New("invalid config")

// Bus selects the transport the sensor is reached through. Device is the periph.io bus name
// for the generic adapter; Number is the i2c bus number for nanopi.
type Bus struct {
	Adapter string `yaml:"adapter"`
	Device  string `yaml:"device,omitempty"`
	Number  int    `yaml:"number,omitempty"`
	Address byte   `yaml:"address"`
	SpeedHz int64  `yaml:"speed_hz,omitempty"`
}

type Sensor struct {
	Variant string `yaml:"variant"`
}

type Config struct {
	Bus      Bus             `yaml:"bus"`
	Sensor   Sensor          `yaml:"sensor"`
	Settings *scd4x.Settings `yaml:"settings,omitempty"`
}

func Default() *Config {
	return &Config{
		Bus: Bus{
			Adapter: AdapterMCP2221,
			Address: DefaultAddress,
			SpeedHz: DefaultSpeedHz,
		},
		Sensor: Sensor{
			Variant: "scd41",
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Bus.Adapter {
	case AdapterMCP2221, AdapterGeneric, AdapterNanoPi, AdapterSim:
	default:
		errs = append(errs, fmt.Errorf("%w: unknown adapter %q", ErrInvalidConfig, c.Bus.Adapter))
	}
	if c.Bus.Address == 0 || c.Bus.Address > 0x7F {
		errs = append(errs, fmt.Errorf("%w: i2c address %#02x is not a 7-bit address", ErrInvalidConfig, c.Bus.Address))
	}
	if c.Bus.SpeedHz < 0 {
		errs = append(errs, fmt.Errorf("%w: negative bus speed", ErrInvalidConfig))
	}
	if _, err := scd4x.ParseVariant(c.Sensor.Variant); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

func (c *Config) Variant() (scd4x.Variant, error) {
	return scd4x.ParseVariant(c.Sensor.Variant)
}

// Save writes the config as YAML, replacing the file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
