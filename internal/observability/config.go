package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
)

// Config captures opt-in observability toggles for the client.
type Config struct {
	SentryDSN     string
	Release       string
	StatsView     bool
	StatsViewAddr string
}

// Start initialises error reporting and the runtime dashboard. The returned
// function flushes pending reports and stops the dashboard.
func Start(cfg Config) (func(), error) {
	var stops []func()
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Release: cfg.Release}); err != nil {
			return func() {}, fmt.Errorf("failed to initialise sentry: %w", err)
		}
		stops = append(stops, func() { sentry.Flush(2 * time.Second) })
	}
	if cfg.StatsView {
		// statsview reads its configuration when the manager is constructed.
		viewer.SetConfiguration(viewer.WithAddr(cfg.StatsViewAddr))
		mgr := statsview.New()
		go mgr.Start()
		stops = append(stops, mgr.Stop)
	}
	return func() {
		for i := len(stops) - 1; i >= 0; i-- {
			stops[i]()
		}
	}, nil
}
