package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aleister1102/filesentry/internal/api"
	"github.com/aleister1102/filesentry/internal/config"
	"github.com/aleister1102/filesentry/internal/datastore"
	"github.com/aleister1102/filesentry/internal/hasher"
	"github.com/aleister1102/filesentry/internal/logger"
	"github.com/aleister1102/filesentry/internal/monitor"
	"github.com/aleister1102/filesentry/internal/notifier"
	"github.com/aleister1102/filesentry/internal/pathfilter"
	"github.com/aleister1102/filesentry/internal/reconciler"
	"github.com/aleister1102/filesentry/internal/rslimiter"

	"github.com/rs/zerolog"
)

func main() {
	flags := ParseFlags()

	gCfg, err := config.LoadGlobalConfig(flags.GlobalConfigFile)
	if err != nil {
		log.Fatalf("[FATAL] Could not load global config using path '%s': %v", flags.GlobalConfigFile, err)
	}

	zLogger, err := logger.New(gCfg.LogConfig)
	if err != nil {
		log.Fatalf("[FATAL] Could not initialize logger: %v", err)
	}

	if err := config.ValidateConfig(gCfg); err != nil {
		zLogger.Fatal().Err(err).Msg("Configuration validation failed")
	}
	zLogger.Info().
		Str("mode", flags.Mode).
		Strs("monitored_roots", gCfg.MonitorConfig.Roots()).
		Msg("Configuration loaded and validated")

	store, err := datastore.NewDB(gCfg.StorageConfig.DatabasePath, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to open baseline database")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			zLogger.Error().Err(cerr).Msg("Failed to close database")
		}
	}()

	prober := hasher.NewProber(gCfg.MonitorConfig.HashAlgorithm)
	filter := pathfilter.NewFilter(gCfg.MonitorConfig.ExcludedPatterns)
	rec := reconciler.NewReconciler(store, prober, filter, zLogger)

	webhookNotifier, err := notifier.NewWebhookNotifier(gCfg.NotificationConfig, zLogger)
	if err != nil {
		zLogger.Fatal().Err(err).Msg("Failed to initialize webhook notifier")
	}
	rec.AddSink(webhookNotifier)

	limiter := rslimiter.NewResourceLimiter(gCfg.ResourceLimiterConfig, zLogger)
	limiter.Start()
	defer limiter.Stop()

	scanner := monitor.NewScanner(&gCfg.MonitorConfig, store, prober, rec, filter, zLogger)

	if flags.Mode == "onetime" {
		runOnetime(scanner, flags.ForceRescan, zLogger)
		return
	}

	retention := datastore.NewRetentionJob(store, &gCfg.StorageConfig)
	scheduler := monitor.NewScheduler(&gCfg.MonitorConfig, scanner, retention, limiter, zLogger)
	monitoringService := monitor.NewMonitoringService(&gCfg.MonitorConfig, rec, filter, zLogger)
	apiServer := api.NewServer(gCfg.APIConfig, store, scheduler, monitoringService, zLogger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	scheduler.Start()
	defer scheduler.Stop()

	if gCfg.MonitorConfig.LiveMonitoring {
		if err := monitoringService.Start(); err != nil {
			zLogger.Fatal().Err(err).Msg("Failed to start live monitoring")
		}
		defer monitoringService.Stop()
	} else {
		zLogger.Info().Msg("Live monitoring disabled by configuration")
	}

	var apiWg sync.WaitGroup
	apiWg.Add(1)
	go func() {
		defer apiWg.Done()
		if err := apiServer.Start(rootCtx); err != nil {
			zLogger.Error().Err(err).Msg("API server terminated")
			rootCancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		zLogger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case <-rootCtx.Done():
	}

	rootCancel()
	apiWg.Wait()
	zLogger.Info().Msg("Shutting down")
}

// runOnetime performs a single full scan and exits.
func runOnetime(scanner *monitor.Scanner, force bool, zLogger zerolog.Logger) {
	signalCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := scanner.RunFullScan(signalCtx, force)
	if err != nil {
		zLogger.Error().Err(err).Msg("Scan completed with errors")
	}
	zLogger.Info().
		Str("scan_id", summary.ScanID).
		Int64("files_scanned", summary.FilesScanned).
		Int64("events_recorded", summary.EventsRecorded).
		Msg("Onetime scan finished")
	if err != nil {
		os.Exit(1)
	}
}
