// Package config holds the settings of one diskio run and loads them from
// YAML.
package config

import (
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/runningwild/diskio/pkg/engine"
	"github.com/runningwild/diskio/pkg/sizespec"
)

// Config represents the top-level configuration for a sweep.
type Config struct {
	Target    string `yaml:"target"`     // Directory that receives data files and plots
	BlockSize string `yaml:"block_size"` // SizeSpec text, e.g. "4k" or "1k..1m"
	DataSize  string `yaml:"data_size"`  // SizeSpec text
	Threads   int    `yaml:"threads"`
	Shards    int    `yaml:"shards"` // Files per thread
	Engine    string `yaml:"engine"` // "sync" or "uring"
	Plots     *bool  `yaml:"plots,omitempty"`
	Report    string `yaml:"report,omitempty"` // JSON summary destination
	LogLevel  string `yaml:"log_level"`
}

const (
	DefaultBlockSize = "1024"
	DefaultDataSize  = "1073741824"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	cfg.SetDefaults()
	return &cfg, nil
}

// SetDefaults fills in every unset field.
func (c *Config) SetDefaults() {
	if c.BlockSize == "" {
		c.BlockSize = DefaultBlockSize
	}
	if c.DataSize == "" {
		c.DataSize = DefaultDataSize
	}
	if c.Threads == 0 {
		c.Threads = 1
	}
	if c.Shards == 0 {
		c.Shards = 1
	}
	if c.Engine == "" {
		c.Engine = "sync"
	}
	if c.Plots == nil {
		on := true
		c.Plots = &on
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// PlotsEnabled reports whether images should be rendered.
func (c *Config) PlotsEnabled() bool {
	return c.Plots == nil || *c.Plots
}

// Validate checks everything that can be checked before touching the disk.
func (c *Config) Validate() error {
	if c.Target == "" {
		return errors.New("target path is required")
	}
	if c.Threads < 1 {
		return errors.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.Shards < 1 {
		return errors.Errorf("shards must be positive, got %d", c.Shards)
	}
	if _, err := engine.New(c.Engine); err != nil {
		return err
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "log_level")
	}
	if _, _, err := c.Sizes(); err != nil {
		return err
	}
	return nil
}

// Sizes parses the block and data size specs.
func (c *Config) Sizes() (blocks, datas sizespec.Spec, err error) {
	if blocks, err = sizespec.Parse(c.BlockSize); err != nil {
		return blocks, datas, errors.Wrap(err, "block_size")
	}
	if datas, err = sizespec.Parse(c.DataSize); err != nil {
		return blocks, datas, errors.Wrap(err, "data_size")
	}
	return blocks, datas, nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}
