package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tilewalk/client/internal/app"
	"tilewalk/client/internal/config"
	"tilewalk/client/internal/telemetry"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to a YAML client configuration")
	flag.Parse()

	logger := telemetry.WrapLogger(log.Default())
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	cfg = cfg.ApplyEnv(os.LookupEnv, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx, app.Config{Client: cfg, Logger: logger}); err != nil {
		log.Fatalf("%v", err)
	}
}
