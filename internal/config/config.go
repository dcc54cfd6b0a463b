package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the runtime settings shared by every command.
type Config struct {
	ServiceURL         string        `yaml:"service_url"`
	Device             string        `yaml:"device"`
	ClientName         string        `yaml:"client_name"`
	Timeout            time.Duration `yaml:"timeout"`
	SoftPayloadLimitMB int           `yaml:"soft_payload_limit_mb"`
	ValidatePDF        bool          `yaml:"validate_pdf"`
	JournalPath        string        `yaml:"journal_path"`
	Listen             string        `yaml:"listen"`
	Throttle           time.Duration `yaml:"throttle"`
}

func Default() Config {
	return Config{
		ServiceURL:         "http://localhost:8000",
		Device:             "auto",
		ClientName:         "vistoria-go",
		Timeout:            30 * time.Second,
		SoftPayloadLimitMB: 50,
		ValidatePDF:        true,
		JournalPath:        "vistoria.db",
		Listen:             ":8888",
		Throttle:           300 * time.Millisecond,
	}
}

// Load starts from Default, merges the YAML file at path when it exists,
// then applies environment overrides. An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("VISTORIA_SERVICE_URL"); v != "" {
		c.ServiceURL = v
	}
	if v := os.Getenv("VISTORIA_DEVICE"); v != "" {
		c.Device = v
	}
	if v := os.Getenv("VISTORIA_JOURNAL"); v != "" {
		c.JournalPath = v
	}
	if v := os.Getenv("VISTORIA_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("VISTORIA_VALIDATE_PDF"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("failed to parse VISTORIA_VALIDATE_PDF: %w", err)
		}
		c.ValidatePDF = b
	}
	return nil
}

func (c Config) Validate() error {
	if c.ServiceURL == "" {
		return errors.New("service_url is required")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.SoftPayloadLimitMB < 0 {
		return fmt.Errorf("soft_payload_limit_mb must not be negative, got %d", c.SoftPayloadLimitMB)
	}
	if c.Throttle < 0 {
		return fmt.Errorf("throttle must not be negative, got %s", c.Throttle)
	}
	return nil
}

// SoftPayloadLimit returns the soft payload limit in bytes.
func (c Config) SoftPayloadLimit() int64 {
	return int64(c.SoftPayloadLimitMB) << 20
}

// Save writes the config as YAML, used by `vistoria config init`.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
