package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"tg_title_bot/internal/config"
	"tg_title_bot/internal/feature/reconcile"
	"tg_title_bot/internal/feature/title"
	"tg_title_bot/internal/health"
	"tg_title_bot/internal/logging"
	"tg_title_bot/internal/store"
	"tg_title_bot/internal/telegram"
)

const (
	storeConnectTimeout     = 10 * time.Second
	storeCloseTimeout       = 5 * time.Second
	telegramShutdownTimeout = 10 * time.Second
	healthShutdownTimeout   = 5 * time.Second
)

func main() {
	configOnly := flag.Bool("config-only", false, "load and print configuration then exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("configuration error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		logging.Error("logger setup error", logging.Fields{"error": err})
		fmt.Fprintf(os.Stderr, "logger setup error: %v\n", err)
		os.Exit(1)
	}

	if *configOnly {
		logging.Info("configuration check", logging.Fields{"event": "config_only"})
		fmt.Println("configuration check: ok")
		fmt.Println(cfg.FormatRedacted())
		return
	}

	logger.WithFields(logging.Fields{
		"event":   "startup",
		"backend": cfg.StoreBackend,
	}).Info("configuration loaded")

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), storeConnectTimeout)
	kv, err := store.Open(connectCtx, cfg)
	cancelConnect()
	if err != nil {
		logger.WithError(err).Error("store connection error")
		fmt.Fprintf(os.Stderr, "store connection error: %v\n", err)
		os.Exit(1)
	}

	logger.WithFields(logging.Fields{
		"event":   "store_connect",
		"backend": cfg.StoreBackend,
	}).Info("connected to store")

	groups := store.NewGroupStore(kv, logger)

	tgClient, err := telegram.NewClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Error("telegram client setup error")
		fmt.Fprintf(os.Stderr, "telegram client setup error: %v\n", err)
		os.Exit(1)
	}

	handlers := title.NewHandlers(groups, tgClient, logger)
	if err := tgClient.RegisterCommands(handlers); err != nil {
		logger.WithError(err).Error("command registration error")
		fmt.Fprintf(os.Stderr, "command registration error: %v\n", err)
		os.Exit(1)
	}

	logger.WithField("event", "telegram_ready").Info("telegram client initialized")

	signalCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	healthServer := health.NewServer(cfg.HTTPPort, kv, groups, logger)
	go func() {
		if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("health server error")
		}
	}()

	workCtx, cancelWork := context.WithCancel(context.Background())

	reconciler := reconcile.NewReconciler(groups, tgClient, logger)
	go reconciler.Start(workCtx, cfg.ReconcileInterval)

	tgDone := make(chan struct{})
	go func() {
		tgClient.Start(workCtx)
		close(tgDone)
	}()

	select {
	case <-signalCtx.Done():
		logger.WithField("event", "shutdown_signal").Info("received termination signal, stopping")
	case <-tgDone:
		logger.WithField("event", "telegram_stopped_early").Warn("telegram client stopped before shutdown signal")
	}

	cancelWork()

	waitCtx, cancelWait := context.WithTimeout(context.Background(), telegramShutdownTimeout)
	select {
	case <-tgDone:
	case <-waitCtx.Done():
		logger.WithField("event", "telegram_shutdown_timeout").Warn("timed out waiting for telegram client to stop")
	}
	cancelWait()

	healthCtx, cancelHealth := context.WithTimeout(context.Background(), healthShutdownTimeout)
	if err := healthServer.Shutdown(healthCtx); err != nil {
		logger.WithError(err).Error("health server shutdown error")
	}
	cancelHealth()

	closeCtx, cancelClose := context.WithTimeout(context.Background(), storeCloseTimeout)
	if err := kv.Close(closeCtx); err != nil {
		logger.WithError(err).Error("store close error")
	} else {
		logger.WithField("event", "store_close").Info("store connection closed")
	}
	cancelClose()

	logger.WithField("event", "shutdown_complete").Info("shutdown complete")
}
