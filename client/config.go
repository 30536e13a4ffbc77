package main

import (
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/xerrors"
)

// Config holds the raffle parameters read from the setup file.
type Config struct {
	MinEntry    uint64
	IntervalSec int
	Width       int
	ArchivePath string
}

func readConfig(path string) (*Config, error) {
	cfg := &Config{}
	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, xerrors.Errorf("decoding config file: %v", err)
	}
	if cfg.MinEntry == 0 || cfg.IntervalSec <= 0 || cfg.Width <= 0 {
		return nil, xerrors.New("config needs MinEntry, IntervalSec and Width")
	}
	return cfg, nil
}

func (c *Config) interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}
