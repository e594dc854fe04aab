// Package config loads the client configuration: defaults, an optional YAML
// file, then TILEWALK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/telemetry"
)

// ErrInvalidMode is returned when the default movement mode is not walk or run.
var ErrInvalidMode = errors.New("config: default mode must be walk or run")

// Config is the full client configuration.
type Config struct {
	ServerURL string `yaml:"server_url"`
	PlayerID  string `yaml:"player_id"`

	Movement MovementConfig `yaml:"movement"`
	Network  NetworkConfig  `yaml:"network"`
	Logging  LoggingConfig  `yaml:"logging"`

	SentryDSN     string `yaml:"sentry_dsn"`
	StatsView     bool   `yaml:"statsview"`
	StatsViewAddr string `yaml:"statsview_addr"`
	// DiagnosticsAddr serves /health and /diagnostics when set.
	DiagnosticsAddr string `yaml:"diagnostics_addr"`

	// Map is the static walkable area used by the demo client.
	Map MapConfig `yaml:"map"`
}

type MovementConfig struct {
	DefaultMode      string        `yaml:"default_mode"`
	KeyDebounce      time.Duration `yaml:"key_debounce"`
	RunDistance      int           `yaml:"run_distance"`
	TurnWhenAdjacent bool          `yaml:"turn_when_adjacent"`
	MaxPathNodes     int           `yaml:"max_path_nodes"`
	FrameRate        int           `yaml:"frame_rate"`
}

type NetworkConfig struct {
	SendRate     float64       `yaml:"send_rate"`
	SendBurst    int           `yaml:"send_burst"`
	PingInterval time.Duration `yaml:"ping_interval"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
}

type LoggingConfig struct {
	Sinks    []string `yaml:"sinks"`
	Severity string   `yaml:"severity"`
	JSONPath string   `yaml:"json_path"`
	File     string   `yaml:"file"`
	Compact  bool     `yaml:"compact"`
}

type MapConfig struct {
	Width     int      `yaml:"width"`
	Height    int      `yaml:"height"`
	BaseCost  int      `yaml:"base_cost"`
	Obstacles [][2]int `yaml:"obstacles"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ServerURL: "ws://localhost:8080/ws",
		Movement: MovementConfig{
			DefaultMode:      motion.ModeWalk.String(),
			KeyDebounce:      100 * time.Millisecond,
			RunDistance:      3,
			TurnWhenAdjacent: true,
			MaxPathNodes:     4096,
			FrameRate:        60,
		},
		Network: NetworkConfig{
			SendRate:     30,
			SendBurst:    4,
			PingInterval: 2 * time.Second,
			DialTimeout:  5 * time.Second,
		},
		Logging: LoggingConfig{
			Sinks:    []string{"console"},
			Severity: "info",
		},
		StatsViewAddr: "localhost:18066",
		Map: MapConfig{
			Width:    64,
			Height:   64,
			BaseCost: 4,
		},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if _, err := cfg.Mode(); err != nil {
		return cfg, err
	}
	return cfg.normalized(), nil
}

// ApplyEnv overrides fields from TILEWALK_* variables. Invalid values are
// logged and ignored.
func (c Config) ApplyEnv(lookup func(string) (string, bool), logger telemetry.Logger) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	if raw, ok := lookup("TILEWALK_SERVER_URL"); ok && raw != "" {
		c.ServerURL = raw
	}
	if raw, ok := lookup("TILEWALK_PLAYER_ID"); ok && raw != "" {
		c.PlayerID = raw
	}
	if raw, ok := lookup("TILEWALK_DEFAULT_MODE"); ok && raw != "" {
		if _, err := parseDefaultMode(raw); err == nil {
			c.Movement.DefaultMode = raw
		} else {
			logger.Printf("invalid TILEWALK_DEFAULT_MODE=%q: %v", raw, err)
		}
	}
	if raw, ok := lookup("TILEWALK_DEBOUNCE_MS"); ok && raw != "" {
		value, err := strconv.Atoi(raw)
		if err == nil && value < 0 {
			err = errors.New("must not be negative")
		}
		if err == nil {
			c.Movement.KeyDebounce = time.Duration(value) * time.Millisecond
		} else {
			logger.Printf("invalid TILEWALK_DEBOUNCE_MS=%q: %v", raw, err)
		}
	}
	if raw, ok := lookup("TILEWALK_LOG_FILE"); ok && raw != "" {
		c.Logging.File = raw
	}
	if raw, ok := lookup("TILEWALK_SENTRY_DSN"); ok {
		c.SentryDSN = raw
	}
	if raw, ok := lookup("TILEWALK_STATSVIEW"); ok && raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.StatsView = value
		} else {
			logger.Printf("invalid TILEWALK_STATSVIEW=%q: %v", raw, err)
		}
	}
	return c.normalized()
}

// Mode parses the default movement mode.
func (c Config) Mode() (motion.Mode, error) {
	return parseDefaultMode(c.Movement.DefaultMode)
}

func parseDefaultMode(raw string) (motion.Mode, error) {
	mode, err := motion.ParseMode(raw)
	if err != nil {
		return motion.ModeNone, fmt.Errorf("%w: %v", ErrInvalidMode, err)
	}
	if mode != motion.ModeWalk && mode != motion.ModeRun {
		return motion.ModeNone, fmt.Errorf("%w: got %s", ErrInvalidMode, mode)
	}
	return mode, nil
}

func (c Config) normalized() Config {
	if c.Movement.KeyDebounce < 0 {
		c.Movement.KeyDebounce = 0
	}
	if c.Movement.RunDistance < 2 {
		c.Movement.RunDistance = 2
	}
	if c.Movement.MaxPathNodes <= 0 {
		c.Movement.MaxPathNodes = 4096
	}
	if c.Movement.FrameRate <= 0 || c.Movement.FrameRate > 240 {
		c.Movement.FrameRate = 60
	}
	if c.Network.SendBurst < 1 {
		c.Network.SendBurst = 1
	}
	if c.Network.DialTimeout <= 0 {
		c.Network.DialTimeout = 5 * time.Second
	}
	if c.Map.Width < 1 {
		c.Map.Width = 1
	}
	if c.Map.Height < 1 {
		c.Map.Height = 1
	}
	if c.Map.BaseCost < 0 {
		c.Map.BaseCost = 0
	}
	if len(c.Logging.Sinks) == 0 {
		c.Logging.Sinks = []string{"console"}
	}
	return c
}
