package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fasttq/fasttq/pkg/api"
	"github.com/fasttq/fasttq/pkg/broker"
	"github.com/fasttq/fasttq/pkg/config"
	"github.com/fasttq/fasttq/pkg/events"
	"github.com/fasttq/fasttq/pkg/log"
	"github.com/fasttq/fasttq/pkg/manager"
	"github.com/fasttq/fasttq/pkg/metrics"
	"github.com/fasttq/fasttq/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dispatch service",
	Long: `Start the FastTQ manager: connect to Postgres and the message broker,
restore the worker registry, and serve the HTTP API until interrupted.

Configuration comes from FASTTQ_* environment variables; see the config
package for the full list.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log.Init(log.Config{
		Level:      log.Level(cfg.LogLevel),
		JSONOutput: cfg.LogFormat == "json",
	})
	logger := log.WithComponent("serve")
	metrics.SetVersion(Version)

	ctx := context.Background()

	pools, err := storage.NewPools(ctx, cfg.DatabaseReaderURL, cfg.DatabaseWriterURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer pools.Close()
	metrics.RegisterComponent("database", true, "connected")
	logger.Info().Msg("Connected to database")

	core, err := broker.Dial(cfg.BrokerAddr)
	if err != nil {
		return fmt.Errorf("failed to connect to broker: %v", err)
	}
	defer core.Close()
	metrics.RegisterComponent("broker", true, "connected")
	logger.Info().Str("addr", cfg.BrokerAddr).Msg("Connected to broker")

	coordinator, err := broker.NewCoordinator(ctx, core)
	if err != nil {
		return fmt.Errorf("failed to initialize coordinator: %v", err)
	}

	store := storage.NewPostgres(pools)

	bus := events.NewBus()
	bus.Start()
	defer bus.Stop()

	mgr, err := manager.NewManager(&manager.Config{
		Store:       store,
		Coordinator: coordinator,
		Events:      bus,
	})
	if err != nil {
		return fmt.Errorf("failed to create manager: %v", err)
	}

	restored, err := mgr.RestoreWorkers(ctx)
	if err != nil {
		return fmt.Errorf("failed to restore worker registry: %v", err)
	}
	logger.Info().Int("workers", restored).Msg("Worker registry restored")

	collector := metrics.NewCollector(store, coordinator)
	collector.Start()
	defer collector.Stop()

	apiServer := api.NewServer(mgr)
	metrics.RegisterComponent("api", true, "listening")

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		metrics.UpdateComponent("api", false, err.Error())
		logger.Error().Err(err).Msg("API server failed")
		return fmt.Errorf("api server error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("API server shutdown was not clean")
	}

	logger.Info().Msg("Shutdown complete")
	return nil
}
