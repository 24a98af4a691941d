package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/micro-ha/reolink-nvr/addon/internal/config"
	"github.com/micro-ha/reolink-nvr/addon/internal/configsync"
	"github.com/micro-ha/reolink-nvr/addon/internal/coordinator"
	"github.com/micro-ha/reolink-nvr/addon/internal/httpapi"
	"github.com/micro-ha/reolink-nvr/addon/internal/logging"
	"github.com/micro-ha/reolink-nvr/addon/internal/manager"
	"github.com/micro-ha/reolink-nvr/addon/internal/mqttbridge"
	"github.com/micro-ha/reolink-nvr/addon/internal/service"
	"github.com/micro-ha/reolink-nvr/addon/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel)

	if err := os.MkdirAll(cfg.DBDir(), 0o755); err != nil {
		logger.Error("failed to create db directory", "err", err)
		os.Exit(1)
	}

	repo, err := storage.New(ctx, cfg.DBPath, logger)
	if err != nil {
		logger.Error("failed to initialize storage", "err", err)
		os.Exit(1)
	}
	defer repo.Close()

	cfgClient := configsync.NewClient(cfg.SupervisorBaseURL, cfg.SupervisorToken)
	cfgManager := configsync.NewManager(cfgClient, logger)
	if _, err := cfgManager.Refresh(ctx); err != nil {
		logger.Warn("initial config refresh failed", "err", err)
	}

	var bridge *mqttbridge.Bridge
	var publisher service.Publisher
	if cfg.MQTTBrokerURL != "" {
		bridge, err = mqttbridge.Connect(mqttbridge.Options{
			BrokerURL:       cfg.MQTTBrokerURL,
			Username:        cfg.MQTTUsername,
			Password:        cfg.MQTTPassword,
			TopicPrefix:     cfg.MQTTTopicPrefix,
			DiscoveryPrefix: cfg.DiscoveryPrefix,
		}, logger)
		if err != nil {
			logger.Error("mqtt bridge connect failed", "err", err)
			os.Exit(1)
		}
		defer bridge.Close()
		publisher = bridge
	} else {
		logger.Warn("MQTT_BROKER_URL is empty; discovery publishing disabled")
	}

	entityManager := manager.New(logger)
	svc := service.New(repo, cfgManager, entityManager, publisher, logger)
	svc.SetEventRetention(cfg.EventRetention)

	coord := coordinator.New(svc, cfgManager, logger)
	svc.SetUpdateSource(coord)
	if bridge != nil {
		coord.Subscribe(func() {
			if err := bridge.PublishAvailability(ctx, svc.Available()); err != nil {
				logger.Warn("availability publish failed", "err", err)
			}
		})
	}

	go runConfigFallbackRefresh(ctx, cfg.ConfigRefreshInterval, cfgManager, coord, logger)

	if cfg.SupervisorToken != "" {
		watcher := configsync.NewWatcher(cfg.SupervisorBaseURL, cfg.SupervisorToken, logger)
		go watcher.Run(ctx, func() {
			refreshCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			changed, err := cfgManager.Refresh(refreshCtx)
			if err != nil {
				logger.Warn("config refresh from event failed", "err", err)
				return
			}
			if changed {
				coord.TriggerRefresh()
			}
		})
	} else {
		logger.Warn("SUPERVISOR_TOKEN is empty; config sync watcher disabled")
	}

	go coord.Run(ctx)
	coord.TriggerRefresh()

	api := httpapi.New(svc, coord, cfgManager, logger, cfg.FrontendDist)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("server starting", "addr", httpServer.Addr)
	err = httpapi.RunServer(ctx, httpServer, logger)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	svc.Shutdown(shutdownCtx)
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server terminated with error", "err", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func runConfigFallbackRefresh(ctx context.Context, interval time.Duration, cfg *configsync.Manager, coord *coordinator.Coordinator, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refreshCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			changed, err := cfg.Refresh(refreshCtx)
			cancel()
			if err != nil {
				logger.Warn("config fallback refresh failed", "err", err)
				continue
			}
			if changed {
				coord.TriggerRefresh()
			}
		}
	}
}
