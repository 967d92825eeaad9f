// Package config loads the roomboard configuration from an optional YAML
// file with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/roomboard/internal/temporal"
)

// RoomEntry declares one known room. Declaration order matters: it is the
// final tie-break of fuzzy room matching.
type RoomEntry struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
}

// WorkingHours bounds bookable times when enforcement is on.
type WorkingHours struct {
	Enforce bool   `yaml:"enforce"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
}

// Persistence selects and parameterises the record-store adapter.
type Persistence struct {
	// Mode is "http" for the remote meetings API or "sqlite" for the local
	// standalone store.
	Mode           string `yaml:"mode"`
	BaseURL        string `yaml:"base_url"`
	SQLiteDSN      string `yaml:"sqlite_dsn"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Bridge parameterises the sensor-bridge connection. An empty URL disables
// the bridge.
type Bridge struct {
	URL string `yaml:"url"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen        string       `yaml:"listen"`
	LogLevel      string       `yaml:"log_level"`
	TZOffsetHours int          `yaml:"tz_offset_hours"`
	TickSeconds   int          `yaml:"tick_seconds"`
	Rooms         []RoomEntry  `yaml:"rooms"`
	WorkingHours  WorkingHours `yaml:"working_hours"`
	Persistence   Persistence  `yaml:"persistence"`
	Bridge        Bridge       `yaml:"bridge"`
	// GatePassword is the argon2id hash (or, for development, the plain text)
	// checked by the settings password gate.
	GatePassword string `yaml:"gate_password"`
	// SessionTTL bounds gate sessions, e.g. "12h".
	SessionTTL string `yaml:"session_ttl"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Listen:        ":8080",
		LogLevel:      "info",
		TZOffsetHours: temporal.DefaultOffsetHours,
		TickSeconds:   15,
		Rooms: []RoomEntry{
			{Key: "Phòng họp lầu 3", Name: "Phòng họp lầu 3"},
			{Key: "Phòng họp lầu 4", Name: "Phòng họp lầu 4"},
		},
		WorkingHours: WorkingHours{Enforce: false, Start: "07:00", End: "19:00"},
		Persistence: Persistence{
			Mode:           "sqlite",
			SQLiteDSN:      "file:roomboard.db?_pragma=busy_timeout(5000)",
			TimeoutSeconds: 10,
		},
		SessionTTL: "12h",
	}
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides and validates the result. A missing file is not an error: the
// defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// defaults stand
		case err != nil:
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}

	applyEnv(&cfg)

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_LISTEN")); v != "" {
		cfg.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_TZ_OFFSET_HOURS")); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			cfg.TZOffsetHours = offset
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_TICK_SECONDS")); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.TickSeconds = seconds
		}
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_PERSISTENCE_MODE")); v != "" {
		cfg.Persistence.Mode = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_API_BASE_URL")); v != "" {
		cfg.Persistence.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_SQLITE_DSN")); v != "" {
		cfg.Persistence.SQLiteDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_BRIDGE_URL")); v != "" {
		cfg.Bridge.URL = v
	}
	if v := os.Getenv("ROOMBOARD_GATE_PASSWORD"); v != "" {
		cfg.GatePassword = v
	}
	if v := strings.TrimSpace(os.Getenv("ROOMBOARD_SESSION_TTL")); v != "" {
		cfg.SessionTTL = v
	}
}

func validate(cfg Config) error {
	invalid := make([]string, 0, 2)

	switch cfg.Persistence.Mode {
	case "http":
		if strings.TrimSpace(cfg.Persistence.BaseURL) == "" {
			invalid = append(invalid, "persistence.base_url")
		}
	case "sqlite":
		if strings.TrimSpace(cfg.Persistence.SQLiteDSN) == "" {
			invalid = append(invalid, "persistence.sqlite_dsn")
		}
	default:
		invalid = append(invalid, "persistence.mode")
	}

	if len(cfg.Rooms) == 0 {
		invalid = append(invalid, "rooms")
	}

	start, startErr := temporal.ParseTime(cfg.WorkingHours.Start)
	end, endErr := temporal.ParseTime(cfg.WorkingHours.End)
	if startErr != nil || endErr != nil || start >= end {
		invalid = append(invalid, "working_hours")
	}

	if _, err := cfg.ParsedSessionTTL(); err != nil {
		invalid = append(invalid, "session_ttl")
	}

	if len(invalid) > 0 {
		return fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// TickPeriod returns the scheduler cadence as a duration.
func (c Config) TickPeriod() time.Duration {
	return time.Duration(c.TickSeconds) * time.Second
}

// PersistenceTimeout returns the record-store deadline as a duration.
func (c Config) PersistenceTimeout() time.Duration {
	if c.Persistence.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Persistence.TimeoutSeconds) * time.Second
}

// ParsedSessionTTL returns the gate session lifetime.
func (c Config) ParsedSessionTTL() (time.Duration, error) {
	if strings.TrimSpace(c.SessionTTL) == "" {
		return 12 * time.Hour, nil
	}
	ttl, err := time.ParseDuration(c.SessionTTL)
	if err != nil || ttl <= 0 {
		return 0, fmt.Errorf("config: invalid session_ttl %q", c.SessionTTL)
	}
	return ttl, nil
}
