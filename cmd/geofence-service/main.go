package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"geofence-service/internal/admin"
	"geofence-service/internal/audit"
	"geofence-service/internal/config"
	"geofence-service/internal/coordinator"
	"geofence-service/internal/db"
	"geofence-service/internal/engine"
	"geofence-service/internal/eventbus"
	"geofence-service/internal/httpapi"
	"geofence-service/internal/ingress"
	"geofence-service/internal/logger"
	"geofence-service/internal/notifier"
	"geofence-service/internal/staticdata"
	"geofence-service/internal/store"

	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger := logger.New(cfg.Environment)

	database, err := db.New(&cfg.DB, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect database")
	}

	geofenceStore := store.New(database)
	staticData := staticdata.New(geofenceStore)

	geofenceNotifier := buildNotifier(cfg, appLogger)

	bus := eventbus.New(appLogger)
	if cfg.Redis.Enabled {
		bridge := eventbus.NewRedisBridge(cfg.Redis.Addr, appLogger)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		bridge.Attach(ctx, bus)
	}

	engineConfig := engine.Config{
		DwellTimeSeconds:  cfg.Geofence.OfficeDwellTimeSeconds,
		SpeedThresholdKmh: cfg.Geofence.OfficeSpeedThresholdKmh,
	}
	tripCoordinator := coordinator.New(geofenceStore, staticData, geofenceNotifier, bus, engineConfig, appLogger)

	dispatcher := ingress.New(
		tripCoordinator,
		appLogger,
		cfg.WorkerPool.CoreSize,
		cfg.WorkerPool.MaxSize,
		cfg.WorkerPool.QueueSize,
		cfg.Location.BatchMaxSize,
	)
	defer dispatcher.Shutdown()

	if cfg.MQTT.Enabled {
		mqttIngress, err := ingress.NewMQTTIngress(cfg.MQTT.BrokerURL, cfg.MQTT.ClientID, cfg.MQTT.Topic, dispatcher, appLogger)
		if err != nil {
			appLogger.Error().Err(err).Msg("mqtt ingress connect failed, continuing without it")
		} else if err := mqttIngress.Start(); err != nil {
			appLogger.Error().Err(err).Msg("mqtt ingress subscribe failed")
		} else {
			defer mqttIngress.Stop(250)
		}
	}

	adminAPI := admin.New(geofenceStore, staticData, tripCoordinator, bus, appLogger)
	auditQuery := audit.New(geofenceStore)

	handler := httpapi.NewHandler(dispatcher, adminAPI, auditQuery, geofenceStore, staticData, bus, appLogger)
	router := httpapi.NewRouter(handler, cfg.Environment)

	addr := fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		appLogger.Info().Str("addr", addr).Msg("starting geofence service")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// buildNotifier selects the push+SMS notifier when the notifier driver is
// "push", falling back to the logging notifier for any other driver value
// or when the push notifier fails to initialise. Twilio credentials are
// not checked here.
func buildNotifier(cfg *config.Config, log zerolog.Logger) notifier.Notifier {
	if cfg.Notifier.Driver != "push" {
		return notifier.NewLoggingNotifier(log)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	push, err := notifier.NewPushNotifier(
		ctx,
		cfg.Notifier.FirebaseCredentials,
		cfg.Notifier.TwilioAccountSID,
		cfg.Notifier.TwilioAuthToken,
		cfg.Notifier.TwilioFromNumber,
		cfg.Notifier.AdminPhone,
		log,
	)
	if err != nil {
		log.Error().Err(err).Msg("push notifier init failed, falling back to logging notifier")
		return notifier.NewLoggingNotifier(log)
	}
	return push
}
