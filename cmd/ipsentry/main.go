package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ipsentry/internal/config"
	"ipsentry/internal/logger"
	"ipsentry/internal/monitor"
	"ipsentry/internal/notify"
	"ipsentry/internal/resolver"
	"ipsentry/internal/store"
	"ipsentry/internal/types"
	"ipsentry/internal/version"

	"go.uber.org/zap"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	// Show version if requested
	if *showVersion {
		info := version.GetInfo()
		fmt.Println(info.String())
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// Initialize logger
	log, err := logger.New(config.AppName, &cfg.Log)
	if err != nil {
		return fmt.Errorf("%w: %w", types.ErrStartupConfig, err)
	}
	defer func() {
		_ = log.Sync()
	}()

	// Stop on SIGINT/SIGTERM; the monitor finishes its current save first
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, &cfg.Store, log.Named("store"))
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn("Failed to close state store", zap.Error(err))
		}
	}()

	res, err := resolver.New(&cfg.Resolver, log.Named("resolver"))
	if err != nil {
		return err
	}

	nm, err := notify.NewManager(&cfg.Notify, cfg.Monitor.Label, log.Named("notify"))
	if err != nil {
		return err
	}
	defer func() {
		if err := nm.Close(); err != nil {
			log.Warn("Failed to close notification channels", zap.Error(err))
		}
	}()

	mon, err := monitor.New(&cfg.Monitor, res, nm, st, log.Named("monitor"))
	if err != nil {
		return err
	}

	log.Info("Starting ipsentry",
		zap.Object("build", version.GetInfo()),
		zap.String("store", cfg.Store.Driver),
		zap.Strings("providers", cfg.Resolver.Providers),
		zap.Any("channels", nm.Channels()))

	if err := mon.Run(ctx); err != nil {
		return err
	}

	log.Info("Shutdown complete")
	return nil
}
