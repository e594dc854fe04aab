package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"tilewalk/client/internal/character"
	"tilewalk/client/internal/config"
	"tilewalk/client/internal/intake"
	"tilewalk/client/internal/motion"
	"tilewalk/client/internal/movement"
	clientnet "tilewalk/client/internal/net"
	"tilewalk/client/internal/net/ws"
	"tilewalk/client/internal/observability"
	"tilewalk/client/internal/telemetry"
	"tilewalk/client/internal/worker"
	"tilewalk/client/logging"
)

const release = "tilewalk-client"

type Config struct {
	Client config.Config
	Logger telemetry.Logger
	Input  io.Reader
	Output io.Writer
}

// Run connects to the server and drives the local player from console input
// until ctx is cancelled, the connection drops or the quit command is read.
func Run(ctx context.Context, cfg Config) error {
	telemetryLogger := cfg.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := telemetryLogger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	input := cfg.Input
	if input == nil {
		input = os.Stdin
	}
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	clientCfg := cfg.Client

	mode, err := clientCfg.Mode()
	if err != nil {
		return err
	}

	stopObservability, err := observability.Start(observability.Config{
		SentryDSN:     clientCfg.SentryDSN,
		Release:       release,
		StatsView:     clientCfg.StatsView,
		StatsViewAddr: clientCfg.StatsViewAddr,
	})
	if err != nil {
		return err
	}
	defer stopObservability()

	logConfig := loggingConfig(clientCfg.Logging, clientCfg.PlayerID, telemetryLogger)
	sinks, closeSinkFiles, err := buildSinks(logConfig, output)
	if err != nil {
		return err
	}
	defer closeSinkFiles()

	router, err := logging.NewRouter(logConfig, logging.SystemClock{}, fallbackLogger, sinks)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	counters := telemetry.NewCounters()
	queue := worker.New(worker.Config{}, telemetryLogger, counters)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := queue.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			telemetryLogger.Printf("worker stopped: %v", err)
		}
	}()
	defer func() {
		queue.Close()
		cancel()
		wg.Wait()
	}()

	sheet := character.DefaultSheet()
	render := &renderState{}
	network := &transport{}
	coordinator, err := movement.New(movement.Config{
		DefaultMode:      mode,
		KeyDebounce:      clientCfg.Movement.KeyDebounce,
		RunDistance:      clientCfg.Movement.RunDistance,
		TurnWhenAdjacent: clientCfg.Movement.TurnWhenAdjacent,
		MaxPathNodes:     clientCfg.Movement.MaxPathNodes,
	}, movement.Dependencies{
		Network:   network,
		Identity:  movement.StaticIdentity(clientCfg.PlayerID),
		Model:     motion.Model{Tiles: newStaticTiles(clientCfg.Map), Load: sheet, Agility: sheet},
		Render:    render,
		Clock:     network,
		Queue:     queue,
		Publisher: router,
		Logger:    telemetryLogger,
		Metrics:   counters,
	})
	if err != nil {
		return fmt.Errorf("failed to construct movement coordinator: %w", err)
	}

	dialCtx, cancelDial := context.WithTimeout(runCtx, clientCfg.Network.DialTimeout)
	client, err := ws.Dial(dialCtx, ws.Config{
		URL:          clientCfg.ServerURL,
		PlayerID:     clientCfg.PlayerID,
		SendRate:     clientCfg.Network.SendRate,
		SendBurst:    clientCfg.Network.SendBurst,
		PingInterval: clientCfg.Network.PingInterval,
		Logger:       telemetryLogger,
		Metrics:      counters,
	}, coordinator)
	cancelDial()
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	network.attach(client)
	defer client.Close()
	telemetryLogger.Printf("connected to %s as %q", clientCfg.ServerURL, clientCfg.PlayerID)

	if clientCfg.DiagnosticsAddr != "" {
		srv := &http.Server{
			Addr: clientCfg.DiagnosticsAddr,
			Handler: clientnet.NewDiagnosticsHandler(clientnet.DiagnosticsConfig{
				Logger:    fallbackLogger,
				Movement:  func() any { return coordinator.Snapshot() },
				Telemetry: counters.Snapshot,
				Ping:      client.Ping,
			}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				telemetryLogger.Printf("diagnostics server failed: %v", err)
			}
		}()
		defer srv.Close()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		runFrames(runCtx, coordinator, clientCfg.Movement.FrameRate)
	}()

	started := time.Now()
	status := func() string {
		return formatStatus(statusInput{
			snapshot: coordinator.Snapshot(),
			render:   render.view(),
			ping:     client.Ping(),
			uptime:   time.Since(started),
			counters: counters.Snapshot(),
		})
	}
	quit := make(chan struct{})
	go func() {
		readCommands(input, output, coordinatorControls{coordinator: coordinator, sheet: sheet}, status)
		close(quit)
	}()

	select {
	case <-runCtx.Done():
		return nil
	case <-quit:
		return nil
	case <-client.Done():
		if err := client.Err(); err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}
		return nil
	}
}

// runFrames advances the coordinator's animation at rate frames per second.
func runFrames(ctx context.Context, coordinator *movement.Coordinator, rate int) {
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			coordinator.Frame(now.Sub(last))
			last = now
		}
	}
}

// readCommands executes console lines until quit or end of input.
func readCommands(in io.Reader, out io.Writer, controls intake.Controls, status func() string) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := intake.Parse(line)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		switch cmd.Kind {
		case intake.KindQuit:
			return
		case intake.KindStatus:
			fmt.Fprintln(out, status())
			continue
		}
		if ok, reason := intake.Stage(controls, cmd); !ok {
			fmt.Fprintf(out, "rejected %s: %s\n", cmd.Kind, reason)
		}
	}
}
