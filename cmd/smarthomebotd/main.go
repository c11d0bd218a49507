// SPDX-License-Identifier: MIT

// Command smarthomebotd is the home-monitoring notification relay daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/ersatzworld/smarthomebot/internal/alert"
	"github.com/ersatzworld/smarthomebot/internal/api"
	"github.com/ersatzworld/smarthomebot/internal/bot"
	"github.com/ersatzworld/smarthomebot/internal/camera"
	"github.com/ersatzworld/smarthomebot/internal/config"
	"github.com/ersatzworld/smarthomebot/internal/gateway/telegram"
	xlog "github.com/ersatzworld/smarthomebot/internal/log"
	"github.com/ersatzworld/smarthomebot/internal/media"
	"github.com/ersatzworld/smarthomebot/internal/scheduler"
	"github.com/ersatzworld/smarthomebot/internal/settings"
	"github.com/ersatzworld/smarthomebot/internal/snapshot"
	"github.com/ersatzworld/smarthomebot/internal/watcher"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "smarthomebot-config.json", "path to config file (JSON)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("smarthomebotd %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	// Optional .env next to the binary, for deployments that keep the bot
	// token out of the config file.
	_ = godotenv.Load()

	xlog.Configure(xlog.Config{Level: "info", Service: "smarthomebot"})
	logger := xlog.WithComponent("daemon")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().
			Err(err).
			Str("event", "config.load_failed").
			Str("config_path", *configPath).
			Msg("failed to load configuration")
	}
	xlog.Configure(xlog.Config{Level: cfg.LogLevel, Service: "smarthomebot"})

	registry, err := camera.NewRegistry(cfg.CameraList())
	if err != nil {
		logger.Fatal().Err(err).Str("event", "config.cameras_invalid").Msg("invalid camera configuration")
	}

	store, err := settings.Open(filepath.Join(cfg.DataDir, "settings"))
	if err != nil {
		logger.Fatal().Err(err).Str("event", "settings.open_failed").Msg("could not open settings store")
	}

	tg, err := telegram.New(cfg.BotToken, cfg.AuthorizedUsers)
	if err != nil {
		logger.Fatal().Err(err).Str("event", "telegram.connect_failed").Msg("could not connect to the bot API")
	}
	logger.Info().
		Str("bot", tg.Username()).
		Int("cameras", registry.Len()).
		Int("authorized_users", len(cfg.AuthorizedUsers)).
		Str("event", "daemon.start").
		Msg("smarthomebot starting")

	alerts := alert.NewState()
	transcoder := &media.Transcoder{BinPath: cfg.PathToFFmpeg, AudioPlayer: cfg.AudioPlayer}

	sched := scheduler.New(ctx, registry, snapshot.New(), tg)
	sched.Start()

	manager := bot.NewManager(
		ctx, tg, alerts, registry, store, sched, transcoder,
		cfg.CommandMatching, time.Duration(cfg.TimeoutSecs)*time.Second,
	)

	disp := watcher.New(watcher.Config{
		Root:         cfg.ImageFolder,
		Recipients:   cfg.AuthorizedUsers,
		SendPhotos:   cfg.SendPhotos,
		SendVideos:   cfg.SendVideos,
		MaxPhotoSize: cfg.MaxPhotoSize,
		VideoWidth:   cfg.VideoWidth,
	}, alerts, transcoder, tg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return disp.Run(gctx) })
	g.Go(func() error { return tg.Run(gctx, manager.Dispatch) })
	if cfg.MetricsListen != "" {
		g.Go(func() error { return api.Serve(gctx, cfg.MetricsListen) })
	}

	err = g.Wait()

	// Orderly shutdown: sessions join their workers, the scheduler drains
	// in-flight ticks, then settings are flushed to disk.
	manager.Close()
	sched.Stop()
	if cerr := store.Close(); cerr != nil {
		logger.Error().Err(cerr).Str("event", "settings.close_failed").Msg("settings store close failed")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Str("event", "daemon.stopped").Msg("daemon stopped with error")
		os.Exit(1)
	}
	logger.Info().Str("event", "daemon.stopped").Msg("exiting")
}
