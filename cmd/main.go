package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"callwatch/internal/app"
	"callwatch/internal/config"
	"callwatch/internal/events"
	"callwatch/internal/media"
	"callwatch/internal/media/bridge"
	"callwatch/internal/media/mock"
	"callwatch/internal/models"
	"callwatch/internal/observability"
	"callwatch/internal/orchestrator"
	"callwatch/internal/service/session"

	consolehttp "callwatch/internal/http"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	if err := application.Start(); err != nil {
		log.Fatal().Err(err).Msg("startup failed")
	}

	// Transcript fan-out; log-only when Kafka is disabled.
	publisher := events.New(&events.Config{
		Enabled:      cfg.Kafka.Enabled,
		Brokers:      cfg.Kafka.Brokers,
		TopicPartial: cfg.Kafka.TopicPartial,
		TopicFinal:   cfg.Kafka.TopicFinal,
		Principal:    cfg.Kafka.Principal,
	})
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orchClient := orchestrator.NewClient(cfg.Orchestrator.BaseURL)
	poller := orchestrator.NewPoller(orchClient, cfg.Orchestrator.PollInterval)
	poller.Start(ctx)
	defer poller.Stop()

	monitor := session.NewMonitor(orchClient, mediaFactory(cfg), publisher)

	hub := consolehttp.NewHub()
	go hub.Run()
	defer hub.Stop()

	obsServer := observability.NewServer(":"+cfg.Service.MetricsPort, nil)
	obsServer.Start()

	router := consolehttp.NewRouter(application, monitor, poller, hub)
	httpServer := &http.Server{
		Addr:         ":" + cfg.Service.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket feed connections stay open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("console HTTP server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("console HTTP server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("shutting down")
	monitor.Leave()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("console HTTP shutdown failed")
	}
	if err := obsServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("observability shutdown failed")
	}

	application.Shutdown()
}

// mediaFactory selects the media session source: the platform's websocket
// event bridge in production, the scripted call for demos.
func mediaFactory(cfg *config.Config) media.Factory {
	if cfg.Media.Source == "mock" {
		return func(grant models.JoinGrant, roomName, participantName string) media.Session {
			return mock.NewSession()
		}
	}
	return bridge.New
}
