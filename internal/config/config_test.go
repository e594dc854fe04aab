package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tilewalk/client/internal/motion"
)

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

type capturedLogs struct{ lines []string }

func (c *capturedLogs) Printf(format string, args ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, args...))
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.Movement.KeyDebounce != 100*time.Millisecond {
		t.Fatalf("expected 100ms debounce, got %s", cfg.Movement.KeyDebounce)
	}
	if mode, _ := cfg.Mode(); mode != motion.ModeWalk {
		t.Fatalf("expected walk default, got %s", mode)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	content := []byte(`
server_url: ws://example.test/ws
player_id: alice
movement:
  default_mode: run
  key_debounce: 50ms
  run_distance: 5
map:
  width: 10
  height: 8
  obstacles:
    - [2, 3]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected config to load, got %v", err)
	}
	if cfg.ServerURL != "ws://example.test/ws" || cfg.PlayerID != "alice" {
		t.Fatalf("unexpected identity fields %+v", cfg)
	}
	if mode, _ := cfg.Mode(); mode != motion.ModeRun {
		t.Fatalf("expected run mode, got %s", mode)
	}
	if cfg.Movement.KeyDebounce != 50*time.Millisecond || cfg.Movement.RunDistance != 5 {
		t.Fatalf("unexpected movement config %+v", cfg.Movement)
	}
	if cfg.Movement.FrameRate != 60 {
		t.Fatalf("expected untouched frame rate default, got %d", cfg.Movement.FrameRate)
	}
	if len(cfg.Map.Obstacles) != 1 || cfg.Map.Obstacles[0] != [2]int{2, 3} {
		t.Fatalf("unexpected obstacles %v", cfg.Map.Obstacles)
	}
}

func TestLoadRejectsInvalidMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("movement:\n  default_mode: push\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	if err := os.WriteFile(path, []byte("movement: [unterminated"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	logs := &capturedLogs{}
	cfg := Default().ApplyEnv(envMap(map[string]string{
		"TILEWALK_SERVER_URL":   "ws://override/ws",
		"TILEWALK_PLAYER_ID":    "bob",
		"TILEWALK_DEFAULT_MODE": "run",
		"TILEWALK_DEBOUNCE_MS":  "0",
		"TILEWALK_LOG_FILE":     "/tmp/tilewalk.log",
		"TILEWALK_SENTRY_DSN":   "https://key@sentry.example/1",
		"TILEWALK_STATSVIEW":    "true",
	}), logs)

	if cfg.ServerURL != "ws://override/ws" || cfg.PlayerID != "bob" {
		t.Fatalf("unexpected identity fields %+v", cfg)
	}
	if cfg.Movement.DefaultMode != "run" || cfg.Movement.KeyDebounce != 0 {
		t.Fatalf("unexpected movement overrides %+v", cfg.Movement)
	}
	if cfg.Logging.File != "/tmp/tilewalk.log" || cfg.SentryDSN == "" || !cfg.StatsView {
		t.Fatalf("unexpected ambient overrides %+v", cfg)
	}
	if len(logs.lines) != 0 {
		t.Fatalf("expected no warnings, got %v", logs.lines)
	}
}

func TestApplyEnvIgnoresInvalidValues(t *testing.T) {
	logs := &capturedLogs{}
	cfg := Default().ApplyEnv(envMap(map[string]string{
		"TILEWALK_DEFAULT_MODE": "fly",
		"TILEWALK_DEBOUNCE_MS":  "-5",
		"TILEWALK_STATSVIEW":    "maybe",
	}), logs)

	if cfg.Movement.DefaultMode != "walk" {
		t.Fatalf("expected walk to survive an invalid override, got %s", cfg.Movement.DefaultMode)
	}
	if cfg.Movement.KeyDebounce != 100*time.Millisecond {
		t.Fatalf("expected default debounce to survive, got %s", cfg.Movement.KeyDebounce)
	}
	if cfg.StatsView {
		t.Fatalf("expected statsview to stay disabled")
	}
	if len(logs.lines) != 3 {
		t.Fatalf("expected 3 warnings, got %d: %v", len(logs.lines), logs.lines)
	}
}

func TestNormalizedClampsValues(t *testing.T) {
	cfg := Config{}
	cfg.Movement.KeyDebounce = -time.Second
	cfg = cfg.normalized()
	if cfg.Movement.KeyDebounce != 0 || cfg.Movement.RunDistance != 2 || cfg.Movement.FrameRate != 60 {
		t.Fatalf("unexpected clamped movement config %+v", cfg.Movement)
	}
	if len(cfg.Logging.Sinks) != 1 || cfg.Logging.Sinks[0] != "console" {
		t.Fatalf("expected console sink fallback, got %v", cfg.Logging.Sinks)
	}
}
