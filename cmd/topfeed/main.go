package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"

	"topfeed/internal/application/usecase/monitor"
	"topfeed/internal/infrastructure/config"
	"topfeed/internal/infrastructure/logger"
	"topfeed/internal/infrastructure/svc"
	"topfeed/internal/interfaces/console"
)

func main() {
	logger.Setup()

	configPath := flag.String("config", "configs/config.toml", "path to config.toml (empty: built-in defaults)")
	mint := flag.String("mint", "", "mint to subscribe on start, overrides [app].mint")
	noStdin := flag.Bool("no-stdin", false, "do not read commands from stdin")
	flag.Parse()

	cfg := config.Default()
	if p := strings.TrimSpace(*configPath); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			log.Fatal().Err(err).Str("config", p).Msg("load config failed")
		}
		cfg = loaded
	}
	if m := strings.TrimSpace(*mint); m != "" {
		cfg.App.Mint = m
	}

	closer := logger.Configure(logger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
	})
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sc, err := svc.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("service context init failed")
		return
	}
	defer sc.Close()

	var cmds <-chan monitor.Command
	if !*noStdin {
		cmds = console.ReadCommands(ctx, os.Stdin)
	}

	service := monitor.NewService(sc.BuildMonitorServiceDeps(cmds))

	log.Info().
		Str("config", *configPath).
		Str("base_url", cfg.Feed.BaseURL).
		Strs("kinds", cfg.Feed.Kinds).
		Str("mint", cfg.App.Mint).
		Int("print_every_min", cfg.App.PrintEveryMin).
		Bool("auto_reconnect", cfg.Feed.Reconnect.Enabled).
		Msg("topfeed started")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("monitor service exited")
	}
}
