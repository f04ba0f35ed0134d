package main

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config file. Flags given on the command
// line win over its values.
type fileConfig struct {
	LogLevel string `yaml:"log_level"`
	LogJSON  bool   `yaml:"log_json"`
	JSON     bool   `yaml:"json"`
	Workers  int    `yaml:"workers"`
}

func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	if cfg.Workers < 0 {
		return nil, errors.Errorf("config %s: workers must not be negative", path)
	}
	return cfg, nil
}

// options holds the effective global settings.
type options struct {
	configPath string
	verbose    bool
	logJSON    bool
	json       bool
	workers    int
	logLevel   string
}

// merge fills every option not set on the command line from cfg.
func (o *options) merge(cfg *fileConfig, flags *pflag.FlagSet) {
	if !flags.Changed("log-json") {
		o.logJSON = cfg.LogJSON
	}
	if !flags.Changed("json") {
		o.json = cfg.JSON
	}
	if !flags.Changed("workers") && cfg.Workers > 0 {
		o.workers = cfg.Workers
	}
	o.logLevel = cfg.LogLevel
}
