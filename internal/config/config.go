package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the relay server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Paths  PathsConfig  `yaml:"paths"`
	Chat   ChatConfig   `yaml:"chat"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig holds network listener settings.
type ServerConfig struct {
	Port        int `yaml:"port"`
	MaxSessions int `yaml:"max_sessions"`
}

// PathsConfig holds filesystem paths for runtime data.
type PathsConfig struct {
	Data     string `yaml:"data"`
	Database string `yaml:"database"`
}

// ChatConfig holds protocol-level settings.
type ChatConfig struct {
	EasterKey string `yaml:"easter_key"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Default returns the configuration used when a field is absent from the
// config file. Port 61514 is the protocol's well-known port.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        61514,
			MaxSessions: 256,
		},
		Paths: PathsConfig{
			Data:     "./data",
			Database: "./data/gruechat.db",
		},
		Chat: ChatConfig{
			EasterKey: "xyzzy",
		},
	}
}

// Load reads and parses a YAML config file, filling defaults first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return cfg, nil
}
