package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-wizard/internal/cache"
	"github.com/stemsi/exstem-wizard/internal/config"
	"github.com/stemsi/exstem-wizard/internal/database"
	"github.com/stemsi/exstem-wizard/internal/handler"
	"github.com/stemsi/exstem-wizard/internal/logger"
	"github.com/stemsi/exstem-wizard/internal/middleware"
	"github.com/stemsi/exstem-wizard/internal/repository"
	"github.com/stemsi/exstem-wizard/internal/router"
	"github.com/stemsi/exstem-wizard/internal/service"
	"github.com/stemsi/exstem-wizard/internal/validator"
	ws "github.com/stemsi/exstem-wizard/internal/websocket"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Wizard")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Services ──────────────────────────────────────────
	store := repository.NewStore(pool)
	examCache := cache.NewExamCache(rdb, cfg.CacheTTL, log)
	eventFeed := ws.NewFeed(ws.DefaultBuffer, log)
	mutations := service.NewMutations(store, service.Listeners{examCache, eventFeed}, log)

	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.JWTExpiry)
	examService := service.NewExamService(mutations, examCache)
	subTestService := service.NewSubTestService(mutations)
	trackService := service.NewTrackService(mutations)
	ruleService := service.NewScoringRuleService(mutations)
	questionService := service.NewQuestionService(mutations)

	// Drop listings cached by a previous process; the schema may have moved.
	if n, err := examCache.Invalidate(ctx); err != nil {
		log.Warn().Err(err).Msg("Exam list cache reset failed")
	} else {
		log.Info().Int("keys", n).Msg("Exam list cache reset")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	errs := handler.NewErrorResponder(log, !cfg.IsProduction())
	handlers := &router.Handlers{
		Exam:        handler.NewExamHandler(examService, errs),
		SubTest:     handler.NewSubTestHandler(subTestService, errs),
		Track:       handler.NewTrackHandler(trackService, errs),
		Rule:        handler.NewRuleHandler(ruleService, errs),
		Question:    handler.NewQuestionHandler(questionService, errs),
		Maintenance: handler.NewMaintenanceHandler(mutations.Finalizer, errs),
		Events:      handler.NewEventsHandler(eventFeed, log, cfg.AllowedOrigins),
	}

	randomLimiter := middleware.NewRateLimiter(cfg.RandomRateLimit, time.Minute)
	randomLimiter.StartCleanup(ctx.Done())

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(tokenService, randomLimiter, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Hijacked WebSocket connections are not closed by Shutdown.
	srv.RegisterOnShutdown(eventFeed.Close)

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
