// Package config loads server configuration from a YAML file with defaults.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	Board  BoardConfig  `yaml:"board"`
	WS     WSConfig     `yaml:"ws"`
}

type ServerConfig struct {
	Port   int    `yaml:"port"`
	Host   string `yaml:"host"`
	DBPath string `yaml:"db_path"`
}

type BoardConfig struct {
	// DrainGrace is how long an empty board survives before reclamation.
	DrainGrace      time.Duration `yaml:"drain_grace"`
	MaxParticipants int           `yaml:"max_participants"`
}

type WSConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	MissedHeartbeats  int           `yaml:"missed_heartbeats"`
	SendBuffer        int           `yaml:"send_buffer"`
	MaxMessageSize    int64         `yaml:"max_message_size"`
	// CursorRate caps inbound cursor updates per second per connection.
	CursorRate  float64 `yaml:"cursor_rate"`
	CursorBurst int     `yaml:"cursor_burst"`
	// AllowedOrigins restricts websocket dials to the listed origins.
	// Empty means any origin is accepted.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   8080,
			Host:   "0.0.0.0",
			DBPath: "data/boards.db",
		},
		Board: BoardConfig{
			DrainGrace:      60 * time.Second,
			MaxParticipants: 32,
		},
		WS: WSConfig{
			HeartbeatInterval: 20 * time.Second,
			MissedHeartbeats:  3,
			SendBuffer:        256,
			MaxMessageSize:    64 * 1024,
			CursorRate:        60,
			CursorBurst:       120,
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// PongWait is the read deadline implied by the heartbeat settings: a
// connection missing this many consecutive heartbeats is treated as gone.
func (c *WSConfig) PongWait() time.Duration {
	misses := c.MissedHeartbeats
	if misses < 1 {
		misses = 1
	}
	return time.Duration(misses) * c.HeartbeatInterval
}
