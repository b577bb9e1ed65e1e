/*
Package config loads the settings used by the bmpstream command from a YAML
file.
*/
package config

import (
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Filename is the default name of the configuration file
const Filename = "bmpstream.yaml"

// Config holds the tunable settings. Durations are written as strings such
// as "5s" or "250ms".
type Config struct {
	// DB is the path to the image database
	DB string `yaml:"db"`
	// Timeout bounds a streaming fetch from start to finish
	Timeout time.Duration `yaml:"timeout"`
	// PollInterval is the pause between polls when no bytes are ready
	PollInterval time.Duration `yaml:"poll_interval"`
	// MemoryLimit caps the palette and pixel data of a single image in
	// bytes, zero is unlimited
	MemoryLimit int `yaml:"memory_limit"`
	// PumpSize is the read-ahead buffer used for network streams
	PumpSize int `yaml:"pump_size"`
	// Workers is the number of concurrent decoders used when importing
	Workers int `yaml:"workers"`
}

// Default returns the configuration used when no file is present
func Default() Config {
	return Config{
		DB:           "bmpstream.db",
		Timeout:      5 * time.Second,
		PollInterval: time.Millisecond,
		PumpSize:     1460,
		Workers:      10,
	}
}

// Validate checks the settings are usable
func (c Config) Validate() error {
	switch {
	case c.Timeout < 0:
		return errors.New("timeout must not be negative")
	case c.PollInterval <= 0:
		return errors.New("poll interval must be positive")
	case c.MemoryLimit < 0:
		return errors.New("memory limit must not be negative")
	case c.PumpSize <= 0:
		return errors.New("pump size must be positive")
	case c.Workers <= 0:
		return errors.New("workers must be positive")
	}
	return nil
}

// Load reads the configuration at path. Any setting not present in the file
// keeps its default value, and a missing file yields the defaults.
func Load(path string) (Config, error) {
	c := Default()

	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return c, fmt.Errorf("failed to read configuration file '%s': %w", path, err)
	}

	if err := yaml.UnmarshalStrict(b, &c); err != nil {
		return c, fmt.Errorf("failed to parse configuration file '%s': %w", path, err)
	}

	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("invalid configuration file '%s': %w", path, err)
	}

	return c, nil
}
