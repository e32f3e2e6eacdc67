package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/vsinha/procurement/pkg/application/services/orchestration"
	"github.com/vsinha/procurement/pkg/infrastructure/config"
	"github.com/vsinha/procurement/pkg/infrastructure/events"
	"github.com/vsinha/procurement/pkg/infrastructure/logging"
	"github.com/vsinha/procurement/pkg/infrastructure/metrics"
	"github.com/vsinha/procurement/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/procurement/pkg/interfaces/api"
)

func main() {
	configFile := flag.String("config", "", "Planner configuration file")
	addr := flag.String("addr", "", "HTTP listen address (overrides http.addr)")
	flag.Parse()

	_ = godotenv.Load()

	settings, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}
	if *addr != "" {
		settings.HTTP.Addr = *addr
	}

	logger, err := logging.New(settings.Log.Level, settings.Log.Format)
	if err != nil {
		logrus.Fatalf("Failed to initialize logger: %v", err)
	}

	// Wire run observers
	store := events.NewMemoryStore(1000, logger)
	runLog := events.NewRunLog(store, logger)
	if err := store.Subscribe([]string{events.PlanFailedEvent}, events.NewFailureLogger(logger)); err != nil {
		logger.WithError(err).Fatal("Failed to subscribe to plan events")
	}
	var recorder *metrics.Recorder
	var metricsHandler http.Handler
	if settings.Metrics.Enabled {
		recorder = metrics.NewRecorder()
		metricsHandler = recorder.Handler()
	}
	var observer orchestration.RunObserver = runLog
	if recorder != nil {
		observer = orchestration.Observers(runLog, recorder)
	}

	planner := orchestration.NewPlanner(settings.ToPlannerConfig(), logger).WithObserver(observer)
	handler := api.NewHandler(planner, memory.NewDatasetRepository(), memory.NewPlanRepository(0), runLog, logger)

	server := &http.Server{
		Addr:         settings.HTTP.Addr,
		Handler:      api.NewRouter(handler, metricsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: settings.Planner.TimeLimit*3 + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.WithField("addr", settings.HTTP.Addr).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}
	logger.Info("Server stopped")
}
