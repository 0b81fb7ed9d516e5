package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Allowed values for the enum-like options.
var (
	validOverwrite = map[string]bool{"skip": true, "force": true, "prompt": true}
	validQuality   = map[string]bool{"best": true, "worst": true}
	validFormat    = map[string]bool{"urls": true, "json": true, "csv": true}
)

type Config struct {
	LogLevel int `yaml:"log_level"`

	// EnvFile is the credential file checked before the process environment.
	EnvFile string `yaml:"env_file"`

	Output   OutputConfig   `yaml:"output"`
	Download DownloadConfig `yaml:"download"`
}

type OutputConfig struct {
	// Format of the track listing written to stdout: "urls", "json" or "csv".
	Format string `yaml:"format"`
}

type DownloadConfig struct {
	OutputDir string `yaml:"output_dir"`

	// Overwrite policy is passed through to spotDL, never enforced here.
	Overwrite string `yaml:"overwrite"`

	Quality string `yaml:"quality"`

	// TimeoutSeconds bounds each individual track download.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads a YAML configuration file and applies defaults for any
// fields left unset.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config *Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	if config == nil {
		config = &Config{}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.EnvFile == "" {
		c.EnvFile = ".env"
	}

	if c.Output.Format == "" {
		c.Output.Format = "urls"
	}

	if c.Download.OutputDir == "" {
		c.Download.OutputDir = "downloads"
	}

	if c.Download.Overwrite == "" {
		c.Download.Overwrite = "skip"
	}

	if c.Download.Quality == "" {
		c.Download.Quality = "best"
	}

	if c.Download.TimeoutSeconds == 0 {
		c.Download.TimeoutSeconds = 20
	}
}

// Validate checks the enum-like options against their allowed values.
func (c *Config) Validate() error {
	if !validFormat[c.Output.Format] {
		return fmt.Errorf("invalid output format: %s", c.Output.Format)
	}

	if !validOverwrite[c.Download.Overwrite] {
		return fmt.Errorf("invalid overwrite policy: %s", c.Download.Overwrite)
	}

	if !validQuality[c.Download.Quality] {
		return fmt.Errorf("invalid quality: %s", c.Download.Quality)
	}

	if c.Download.TimeoutSeconds < 0 {
		return fmt.Errorf("invalid timeout: %d", c.Download.TimeoutSeconds)
	}

	return nil
}
