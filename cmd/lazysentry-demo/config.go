package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joeycumines/go-lazysentry"
	"github.com/joeycumines/logiface"
	"gopkg.in/yaml.v3"
)

// Config is the demo's configuration file format.
type Config struct {
	Sentry    lazysentry.Options `yaml:"sentry"`
	LogLevel  string             `yaml:"log_level"`
	LoadDelay time.Duration      `yaml:"load_delay"`
}

var logLevels = map[string]logiface.Level{
	`trace`:   logiface.LevelTrace,
	`debug`:   logiface.LevelDebug,
	`info`:    logiface.LevelInformational,
	`notice`:  logiface.LevelNotice,
	`warning`: logiface.LevelWarning,
	`err`:     logiface.LevelError,
	`error`:   logiface.LevelError,
}

func defaultConfig() Config {
	return Config{
		LogLevel:  `info`,
		LoadDelay: 250 * time.Millisecond,
	}
}

// loadConfig reads path, if non-empty, over the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == `` {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf(`parse %s: %w`, path, err)
	}
	return cfg, nil
}

func (x Config) level() (logiface.Level, error) {
	if level, ok := logLevels[x.LogLevel]; ok {
		return level, nil
	}
	return logiface.LevelDisabled, fmt.Errorf(`unknown log level %q`, x.LogLevel)
}
