package app

import (
	"fmt"
	"io"
	"os"

	"tilewalk/client/internal/config"
	"tilewalk/client/internal/telemetry"
	"tilewalk/client/logging"
	loggingSinks "tilewalk/client/logging/sinks"
)

func loggingConfig(cfg config.LoggingConfig, playerID string, logger telemetry.Logger) logging.Config {
	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = append([]string(nil), cfg.Sinks...)
	if cfg.File != "" && !logConfig.HasSink("file") {
		logConfig.EnabledSinks = append(logConfig.EnabledSinks, "file")
	}
	if cfg.Severity != "" {
		if severity, ok := logging.ParseSeverity(cfg.Severity); ok {
			logConfig.MinimumSeverity = severity
		} else {
			logger.Printf("invalid logging severity %q; using %s", cfg.Severity, logConfig.MinimumSeverity)
		}
	}
	logConfig.JSON.FilePath = cfg.JSONPath
	logConfig.Console.Compact = cfg.Compact
	logConfig.File.Path = cfg.File
	if playerID != "" {
		logConfig.Fields = map[string]any{"player": playerID}
	}
	return logConfig
}

// buildSinks constructs the enabled sinks. The returned closer releases files
// opened for them and must run after the router has closed.
func buildSinks(cfg logging.Config, out io.Writer) (map[string]logging.Sink, func(), error) {
	sinks := make(map[string]logging.Sink)
	var files []io.Closer
	closeFiles := func() {
		for _, f := range files {
			f.Close()
		}
	}

	for _, name := range cfg.EnabledSinks {
		switch name {
		case "console":
			sinks[name] = loggingSinks.NewConsole(out, cfg.Console)
		case "json":
			writer := out
			if cfg.JSON.FilePath != "" {
				f, err := os.OpenFile(cfg.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
				if err != nil {
					closeFiles()
					return nil, func() {}, fmt.Errorf("failed to open json log %s: %w", cfg.JSON.FilePath, err)
				}
				files = append(files, f)
				writer = f
			}
			sinks[name] = loggingSinks.NewJSON(writer, cfg.JSON.FlushInterval)
		case "file":
			sink, err := loggingSinks.NewFile(cfg.File)
			if err != nil {
				closeFiles()
				return nil, func() {}, fmt.Errorf("failed to construct file sink: %w", err)
			}
			sinks[name] = sink
		default:
			closeFiles()
			return nil, func() {}, fmt.Errorf("unknown logging sink %q", name)
		}
	}
	return sinks, closeFiles, nil
}
