// Package config loads and saves the dicomtable configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mrsinham/dicomtable/internal/dicom"
	"github.com/mrsinham/dicomtable/internal/scrape"
	"github.com/mrsinham/dicomtable/internal/viewer"
)

// Config represents the complete configuration file.
type Config struct {
	Scrape ScrapeConfig `yaml:"scrape"`
	Viewer ViewerConfig `yaml:"viewer"`
	Log    LogConfig    `yaml:"log"`
}

// ScrapeConfig holds the defaults of the scrape command.
type ScrapeConfig struct {
	Root              string `yaml:"root"`
	Output            string `yaml:"output"`
	Pattern           string `yaml:"pattern"`
	Recursive         bool   `yaml:"recursive"`
	SortSliceLocation bool   `yaml:"sort_slice_location"`
	Coerce            bool   `yaml:"coerce"`
	Workers           int    `yaml:"workers"` // <0 uses every CPU core
	MetricsFile       string `yaml:"metrics_file,omitempty"`
}

// ViewerConfig holds the external viewer command.
type ViewerConfig struct {
	Command string `yaml:"command"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Verbose bool `yaml:"verbose"`
	JSON    bool `yaml:"json"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	opts := scrape.DefaultOptions()
	return Config{
		Scrape: ScrapeConfig{
			Root:              opts.Root,
			Output:            opts.Output,
			Pattern:           opts.Pattern,
			Recursive:         opts.Recursive,
			SortSliceLocation: opts.SortSliceLocation,
			Coerce:            opts.Coerce,
			Workers:           opts.Workers,
		},
		Viewer: ViewerConfig{Command: viewer.DefaultCommand},
	}
}

// LoadFromYAML reads a configuration file. Keys missing from the file keep
// their default value.
func LoadFromYAML(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToYAML writes cfg to path.
func SaveToYAML(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate checks the configuration values.
func (c Config) Validate() error {
	var errs []error
	if err := dicom.ValidatePattern(c.Scrape.Pattern); err != nil {
		errs = append(errs, err)
	}
	if c.Scrape.Workers > 256 {
		errs = append(errs, fmt.Errorf("workers must be <= 256, got %d", c.Scrape.Workers))
	}
	if c.Viewer.Command != "" {
		if _, err := viewer.Split(c.Viewer.Command); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ScrapeOptions converts the scrape section into engine options.
func (c Config) ScrapeOptions() scrape.Options {
	return scrape.Options{
		Root:              c.Scrape.Root,
		Output:            c.Scrape.Output,
		Pattern:           c.Scrape.Pattern,
		Recursive:         c.Scrape.Recursive,
		SortSliceLocation: c.Scrape.SortSliceLocation,
		Coerce:            c.Scrape.Coerce,
		Workers:           c.Scrape.Workers,
	}
}

// Launcher converts the viewer section into a launcher configuration.
func (c Config) Launcher() viewer.Config {
	return viewer.Config{Command: c.Viewer.Command}
}
