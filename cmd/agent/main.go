package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aidenzou-az/polymarket-mm/config"
	"github.com/aidenzou-az/polymarket-mm/internal/adapters/exchange"
	"github.com/aidenzou-az/polymarket-mm/internal/adapters/notify"
	"github.com/aidenzou-az/polymarket-mm/internal/adapters/registry"
	"github.com/aidenzou-az/polymarket-mm/internal/adapters/riskoff"
	"github.com/aidenzou-az/polymarket-mm/internal/adapters/stream"
	"github.com/aidenzou-az/polymarket-mm/internal/adapters/volatility"
	"github.com/aidenzou-az/polymarket-mm/internal/application/control"
	"github.com/aidenzou-az/polymarket-mm/internal/application/reconcile"
	"github.com/aidenzou-az/polymarket-mm/internal/application/streamhandler"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	log := setupLogger(cfg.Log)

	log.Info("polymarket-mm starting",
		"config", *configPath,
		"registry", cfg.Registry.Path,
		"riskoff_dsn", cfg.RiskOff.DSN,
	)

	riskoffStore, err := riskoff.Open(cfg.RiskOff.DSN)
	if err != nil {
		log.Error("failed to open risk-off store", "err", err, "dsn", cfg.RiskOff.DSN)
		os.Exit(1)
	}
	defer riskoffStore.Close()

	reg := registry.New(cfg.Registry.Path)

	exchangeClient := exchange.New(log, cfg.Endpoints.CLOBRestBase, nil)

	sink := notify.NewMultiSink(notify.NewConsole(), notify.NewLogSink(log))

	vol := volatility.NewTracker()

	st := state.New()
	universe := reconcile.NewUniverse()
	reconciler := reconcile.New(log, universe, st, riskoffStore, vol, exchangeClient, sink)

	bookStream := stream.NewBookStream(log, cfg.Endpoints.BookStreamWS)
	userStream := stream.NewUserStream(log, cfg.Endpoints.UserStreamWS, stream.Credentials{
		APIKey:     cfg.Credentials.APIKey,
		Secret:     cfg.Credentials.Secret,
		Passphrase: cfg.Credentials.Passphrase,
		Address:    cfg.Credentials.Address,
	})

	loop := control.New(log, st, universe, reconciler, exchangeClient, reg, sink, bookStream, cfg.Strategy.DefaultProfile)
	handler := streamhandler.New(log, st, universe, reconciler, sink, vol, func() {
		loop.PullNow(context.Background())
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go bookStream.Run(ctx)
	go userStream.Run(ctx)
	go handler.RunBook(ctx, bookStream.Events(ctx))
	go handler.RunUser(ctx, userStream.Events(ctx), userStream.Reconnected())

	log.Info("polymarket-mm running, entering control loop")
	loop.Run(ctx)

	log.Info("shutting down, waiting for in-flight reconcile cycles")
	reconciler.Run(ctx)

	log.Info("polymarket-mm stopped cleanly")
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
