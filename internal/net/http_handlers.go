package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"
)

// DiagnosticsConfig wires the data sources served by the diagnostics handler.
type DiagnosticsConfig struct {
	Logger    *log.Logger
	Movement  func() any
	Telemetry func() map[string]uint64
	Ping      func() time.Duration
	Now       func() time.Time
}

// NewDiagnosticsHandler serves /health and /diagnostics for a running client.
func NewDiagnosticsHandler(cfg DiagnosticsConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/health", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/diagnostics", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		payload := struct {
			Status     string            `json:"status"`
			ClientTime int64             `json:"clientTime"`
			PingMillis int64             `json:"pingMillis"`
			Movement   any               `json:"movement,omitempty"`
			Telemetry  map[string]uint64 `json:"telemetry,omitempty"`
		}{
			Status:     "ok",
			ClientTime: now().UnixMilli(),
		}
		if cfg.Ping != nil {
			payload.PingMillis = cfg.Ping().Milliseconds()
		}
		if cfg.Movement != nil {
			payload.Movement = cfg.Movement()
		}
		if cfg.Telemetry != nil {
			payload.Telemetry = cfg.Telemetry()
		}

		data, err := json.Marshal(payload)
		if err != nil {
			logger.Printf("failed to encode diagnostics: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	return mux
}

func httpError(w nethttp.ResponseWriter, message string, status int) {
	nethttp.Error(w, message, status)
}
