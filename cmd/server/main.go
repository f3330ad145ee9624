package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/leadengine/backend/internal/automation"
	"github.com/leadengine/backend/internal/config"
	"github.com/leadengine/backend/internal/db"
	"github.com/leadengine/backend/internal/delivery"
	httpapi "github.com/leadengine/backend/internal/http"
	"github.com/leadengine/backend/internal/scoring"
	"github.com/leadengine/backend/internal/sla"
	"github.com/leadengine/backend/internal/sweep"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, _ := zerolog.ParseLevel(cfg.LogLevel)
	logger := log.Level(level).With().Str("service", "lead-engine").Logger()

	ctx := context.Background()
	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect db")
	}
	defer store.Close()

	var limiter *automation.RateLimiter
	if cfg.RedisURL != "" {
		limiter, err = automation.NewRateLimiterFromURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	} else {
		logger.Warn().Msg("REDIS_URL not set; jobs on rate-limited channels will fail until a limiter is configured")
	}

	var sender delivery.Sender
	if cfg.DeliveryURL == "" {
		sender = delivery.MockSender{Logger: logger}
		logger.Info().Msg("using mock delivery sender")
	} else {
		sender = delivery.NewHTTPSender(cfg.DeliveryURL, cfg.DeliveryTimeout)
	}

	scorer := &scoring.Service{
		Store:       store,
		Keywords:    cfg.IntentKeywordList(),
		Concurrency: cfg.BackfillConcurrency,
		Logger:      logger,
	}
	tracker := &sla.Tracker{
		Store:              store,
		RiskThreshold:      cfg.RiskThreshold,
		SnoozeDefaultHours: cfg.SnoozeDefaultHours,
		Logger:             logger,
	}
	engine := &automation.Engine{
		Store:   store,
		Limiter: limiter,
		Sender:  sender,
		Logger:  logger,
	}
	sweepSvc := &sweep.Service{
		Store:       store,
		Concurrency: cfg.SweepConcurrency,
		Logger:      logger,
	}

	sweeper := &sweep.Sweeper{Service: sweepSvc, Interval: cfg.SweepInterval}
	sweeper.Start()
	defer sweeper.Stop()

	router := httpapi.Router(cfg, store, scorer, tracker, engine, sweepSvc, logger)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}
