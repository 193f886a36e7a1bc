package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/snoozeweb/snooze-syslog/internal/config"
	"github.com/snoozeweb/snooze-syslog/internal/daemon"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (default $"+config.EnvPath+" or "+config.DefaultPath+")")
	flag.Parse()

	var level slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &level}))
	slog.SetDefault(logger)

	// ── Load config ──────────────────────────────────────────────────────────
	loader := config.NewLoader(config.ResolvePath(*cfgPath), logger)
	cfg := loader.Config()
	if cfg.Debug {
		level.Set(slog.LevelDebug)
	}

	// ── Daemon ───────────────────────────────────────────────────────────────
	d := daemon.New(cfg,
		daemon.WithLogger(logger),
		daemon.WithLevel(&level),
		daemon.WithReloader(loader),
	)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Start(ctx); err != nil {
		slog.Error("failed to start", "err", err)
		os.Exit(1)
	}

	// ── Hot-reload watcher ───────────────────────────────────────────────────
	loader.OnChange(d.Apply)
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "path", loader.Path(), "err", err)
	} else {
		defer stopWatch()
	}

	// ── Graceful shutdown ────────────────────────────────────────────────────
	<-ctx.Done()
	stop()

	shutCtx, shutCancel := context.WithTimeout(context.Background(), cfg.ShutdownGrace())
	defer shutCancel()
	if err := d.Stop(shutCtx); err != nil {
		slog.Error("unclean shutdown", "err", err)
		os.Exit(1)
	}
}
