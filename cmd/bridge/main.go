// cmd/bridge/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tamzrod/modbus-mqtt-bridge/internal/config"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/link"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/logstream"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/metrics"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/poller"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/publisher"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/status"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/store"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/upgrade"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/watchdog"
	"github.com/tamzrod/modbus-mqtt-bridge/internal/web"
)

const projectName = "modbus-mqtt-bridge"

// Set with -ldflags "-X main.version=... -X main.buildTime=...".
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: bridge <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	b := cfg.Bridge

	logs := logstream.NewQueue(b.Log.StreamQueue)
	logger := setupLogger(b.Log.Level, b.Log.Format, logs)
	slog.SetDefault(logger)

	if err := run(b, logs, logger); err != nil {
		logger.Error("bridge stopped", "err", err)
		os.Exit(1)
	}
}

func run(b config.BridgeConfig, logs *logstream.Queue, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootTime := time.Now()

	// ---- restart reason ----
	st, err := store.Open(b.Store.Path)
	if err != nil {
		return err
	}
	bootReason := st.Load(store.KeyLastBootReason)
	logger.Info("starting", "device", b.DeviceName, "last_boot_reason", bootReason)

	// ---- shared state ----
	table, err := poller.BuildTable(b.Registers)
	if err != nil {
		return fmt.Errorf("register table: %w", err)
	}
	stats := status.NewStats()
	m := metrics.New()
	flag := &upgrade.Flag{}

	// ---- bus (fail fast) ----
	p, closeBus, err := poller.Build(b, table, stats,
		poller.WithLogger(logger),
		poller.WithObserver(m),
		poller.WithUpgradeFlag(flag),
	)
	if err != nil {
		return fmt.Errorf("poller build failed: %w", err)
	}
	closeBus = once(closeBus)
	defer closeBus()

	// ---- broker (fail fast after retries) ----
	broker, closeBroker, err := publisher.BuildBroker(ctx, b.Broker, status.ShortTS(bootTime, status.NoRead), logger)
	if err != nil {
		return fmt.Errorf("broker connect failed: %w", err)
	}
	closeBroker = once(closeBroker)
	defer closeBroker()

	sched, err := publisher.BuildScheduler(b, broker, publisher.Deps{Table: table, Stats: stats},
		publisher.WithLogger(logger),
		publisher.WithObserver(m),
		publisher.WithUpgradeFlag(flag),
	)
	if err != nil {
		return fmt.Errorf("publisher build failed: %w", err)
	}

	health, err := publisher.BuildHealth(b, broker,
		publisher.WithMemoryGauge(m.SetFreeMemory),
		publisher.WithStartTime(bootTime),
		publisher.WithHealthLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("health build failed: %w", err)
	}

	// ---- restart path ----
	restarter := watchdog.NewExecRestarter(time.Duration(b.Watchdog.RestartCountdownS)*time.Second, logger)
	restarter.Before = func() {
		_ = closeBroker()
		_ = closeBus()
	}

	// ---- presentation ----
	identity := status.Identity{
		DeviceName: b.DeviceName,
		Project:    projectName,
		Version:    version,
		BuildTime:  buildTime,
		Chip:       chipName(),
	}

	srv, err := web.Build(b, web.Deps{
		Table:       table,
		Stats:       stats,
		Identity:    identity,
		Started:     bootTime,
		Logs:        logs,
		Maintenance: flag,
		Store:       st,
		Restarter:   restarter,
		Metrics:     m.Handler(),
	}, web.WithLogger(logger), web.WithPoolObserver(m))
	if err != nil {
		return fmt.Errorf("web build failed: %w", err)
	}
	if err := srv.Listen(); err != nil {
		return err
	}

	// ---- watchdogs ----
	lm := link.New(b.Watchdog.LinkProbe, 2*time.Second)
	wd, err := watchdog.New(st, restarter, watchdog.WithLogger(logger))
	if err != nil {
		return err
	}

	linkTask := watchdog.Task{
		Name:     "link",
		Interval: time.Duration(b.Watchdog.LinkIntervalS) * time.Second,
		Reason:   store.ReasonGatewayUnreachable,
	}
	if b.Watchdog.LinkProbe != "" {
		linkTask.Check = lm.Reachable
	}
	webTask := watchdog.Task{
		Name:     "web",
		Interval: time.Duration(b.Watchdog.WebIntervalS) * time.Second,
		Check:    srv.Alive,
		Reason:   store.ReasonWebServerLost,
	}

	// ---- one-shot infos ----
	hostname, _ := os.Hostname()
	if err := publisher.PublishStartup(ctx, broker, publisher.Topics{Root: b.Broker.RootTopic}, b.Broker.QoS, b.Broker.Retain, publisher.Startup{
		BootTime:   bootTime,
		Project:    projectName,
		Version:    version,
		BuildTime:  buildTime,
		Chip:       identity.Chip,
		Hostname:   hostname,
		Address:    lm.CurrentAddress(),
		BootReason: bootReason,
		DeviceName: b.DeviceName,
	}); err != nil {
		logger.Warn("startup infos incomplete", "err", err)
	}

	// --------------------
	// Run until signalled
	// --------------------

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { p.Run(gctx); return nil })
	g.Go(func() error { sched.Run(gctx); return nil })
	g.Go(func() error { health.Run(gctx); return nil })
	g.Go(func() error { return srv.Serve(gctx) })
	g.Go(func() error { return wd.Watch(gctx, linkTask) })
	g.Go(func() error { return wd.Watch(gctx, webTask) })

	err = g.Wait()
	logger.Info("shutdown complete")
	return err
}

func chipName() string { return runtime.GOOS + "/" + runtime.GOARCH }

// once makes a closer safe to call from both the restart path and defer.
func once(f func() error) func() error {
	var (
		o   sync.Once
		err error
	)
	return func() error {
		o.Do(func() { err = f() })
		return err
	}
}
