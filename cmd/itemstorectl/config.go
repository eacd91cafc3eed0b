package main

import (
	"fmt"
	"os"

	"github.com/kjk/itemstore/codec"
	"github.com/kjk/itemstore/itemstore"
	"github.com/kjk/itemstore/u"
	"gopkg.in/yaml.v3"
)

// Config is read from a YAML file given with -config.
// Command line flags override it.
type Config struct {
	Dir     string `yaml:"dir"`
	Codec   string `yaml:"codec"`
	Workers int    `yaml:"workers"`
	LogDir  string `yaml:"log_dir"`
}

func loadConfig(path string) (*Config, error) {
	d, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err = yaml.Unmarshal(d, &c); err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", path, err)
	}
	return &c, nil
}

func (c *Config) validate() error {
	if c.Dir == "" {
		return fmt.Errorf("store directory not set, use -dir or 'dir' in config file")
	}
	dir, err := u.ExpandTildeInPath(c.Dir)
	if err != nil {
		return err
	}
	c.Dir = dir
	if c.Codec == "" {
		c.Codec = "raw"
	}
	if c.Workers < 0 {
		return fmt.Errorf("invalid number of workers: %d", c.Workers)
	}
	return nil
}

// newCodec returns a codec that reads record files as raw bytes,
// decompressing them first if the store was written compressed
func newCodec(name string) (codec.Codec[*itemstore.Raw], error) {
	switch name {
	case "raw":
		return itemstore.RawCodec{}, nil
	case "zstd":
		return codec.NewZstd[*itemstore.Raw](itemstore.RawCodec{})
	case "brotli":
		return codec.NewBrotli[*itemstore.Raw](itemstore.RawCodec{}), nil
	}
	return nil, fmt.Errorf("unknown codec '%s', must be raw, zstd or brotli", name)
}
