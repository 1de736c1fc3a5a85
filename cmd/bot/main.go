package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"dreambot/internal/adapter/repo"
	"dreambot/internal/auth"
	"dreambot/internal/entitlement"
	"dreambot/internal/flow"
	"dreambot/internal/http/handlers"
	"dreambot/internal/http/httpapi"
	"dreambot/internal/infra"
	"dreambot/internal/llm"
	"dreambot/internal/metrics"
	"dreambot/internal/providers/chat"
	"dreambot/internal/ratelimit"
	"dreambot/internal/usage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	users := repo.NewUserRepository(dbpool)
	dreams := repo.NewDreamRepository(dbpool)
	admins := auth.NewAdmins(cfg.AdminIDs)
	m := metrics.New()

	tracker := usage.NewTracker(cfg.DailyBudgetUSD, cfg.BudgetWarningPct, cfg.UsageRetentionDays, logger)
	tracker.OnTracked = func(rec usage.Record) {
		m.TrackLLMCost(rec.Operation, rec.Model, rec.CostUSD)
	}

	var store ratelimit.Store
	switch cfg.RateLimitBackend {
	case "redis":
		store = ratelimit.NewRedisStore(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}))
		logger.Info().Str("addr", cfg.RedisAddr).Msg("rate limiting over redis")
	default:
		store = ratelimit.NewMemoryStore()
	}
	limiter := ratelimit.New(store, admins, logger)
	limiter.OnLimited = func(feature ratelimit.Feature, plan string) {
		m.TrackRateLimit(string(feature), plan)
	}

	client, err := chat.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build LLM client")
	}
	registry := llm.NewPromptRegistry(logger)
	service := llm.NewService(client, tracker, registry, logger)

	engine := entitlement.NewEngine(users, dreams, admins, logger)
	estimator := usage.CostEstimator{
		USDPerInput1K:  cfg.USDPerInput1K,
		USDPerOutput1K: cfg.USDPerOutput1K,
		RubPerUSD:      cfg.RubPerUSD,
	}
	flows := flow.New(users, dreams, engine, limiter, service, estimator, admins, m, logger)

	app := handlers.NewApp(users, flows, tracker, limiter, registry, m, logger)
	router := httpapi.NewRouter(app, cfg.OpsToken, logger)
	server := infra.NewHTTPServer(cfg, router)

	// Background sweeps.
	go limiter.RunCleanup(ctx, 10*time.Minute)
	go tracker.RunCleanup(ctx, 24*time.Hour)

	go func() {
		logger.Info().Msgf("webhook/ops server listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
