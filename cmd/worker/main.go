package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pricing/internal/bundle"
	"github.com/noah-isme/backend-pricing/internal/cache"
	"github.com/noah-isme/backend-pricing/internal/carrier"
	"github.com/noah-isme/backend-pricing/internal/charge"
	"github.com/noah-isme/backend-pricing/internal/config"
	"github.com/noah-isme/backend-pricing/internal/delivery"
	"github.com/noah-isme/backend-pricing/internal/events"
	"github.com/noah-isme/backend-pricing/internal/insurance"
	"github.com/noah-isme/backend-pricing/internal/lock"
	"github.com/noah-isme/backend-pricing/internal/obs"
	"github.com/noah-isme/backend-pricing/internal/store"
	"github.com/noah-isme/backend-pricing/internal/tax"
)

const (
	taskSweepExpiredCoupons = "coupons:sweep-expired"
	taskWarmRulesCache      = "rules:warm-cache"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, queries := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisClient := mustInitRedis(ctx, cfg, logger)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()

	rulesCache := cache.New(redisClient, cfg.RulesCacheTTL)
	bus := &events.Bus{
		Store: queries,
		Notifiers: []events.Notifier{
			events.CacheInvalidator{Cache: rulesCache},
		},
	}

	w := worker{
		Queries: queries,
		Cache:   rulesCache,
		Events:  bus,
		Locker:  lock.Locker{R: redisClient},
		Log:     logger,
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	asynqOpt := asynq.RedisClientOpt{
		Network:  redisOpts.Network,
		Addr:     redisOpts.Addr,
		Username: redisOpts.Username,
		Password: redisOpts.Password,
		DB:       redisOpts.DB,
	}

	scheduler := asynq.NewScheduler(asynqOpt, &asynq.SchedulerOpts{Location: time.UTC})
	sweepSpec := envOrDefault("WORKER_COUPON_SWEEP_SPEC", "@every 10m")
	warmSpec := envOrDefault("WORKER_CACHE_WARM_SPEC", "@every 5m")
	if _, err := scheduler.Register(sweepSpec, asynq.NewTask(taskSweepExpiredCoupons, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register coupon sweep")
	}
	if _, err := scheduler.Register(warmSpec, asynq.NewTask(taskWarmRulesCache, nil)); err != nil {
		logger.Fatal().Err(err).Msg("register cache warm")
	}

	srv := asynq.NewServer(asynqOpt, asynq.Config{Concurrency: 2})
	mux := asynq.NewServeMux()
	mux.HandleFunc(taskSweepExpiredCoupons, w.sweepExpiredCoupons)
	mux.HandleFunc(taskWarmRulesCache, w.warmRulesCache)

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}

	logger.Info().Str("sweep", sweepSpec).Str("warm", warmSpec).Msg("worker started")
	<-ctx.Done()

	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

type worker struct {
	Queries *store.Queries
	Cache   *cache.Cache
	Events  *events.Bus
	Locker  lock.Locker
	Log     zerolog.Logger
}

// sweepExpiredCoupons deactivates coupons past their expiry so eligibility
// checks and cached listings stop seeing them. Guarded by a lock so only one
// worker instance sweeps at a time.
func (w worker) sweepExpiredCoupons(ctx context.Context, _ *asynq.Task) error {
	return w.Locker.WithLock(ctx, "locks:coupon-sweep", 30*time.Second, func(ctx context.Context) error {
		n, err := w.Queries.DeactivateExpiredCoupons(ctx, time.Now().UTC())
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		w.Log.Info().Int64("deactivated", n).Msg("expired coupons swept")
		_, err = w.Events.Emit(ctx, events.TopicRulesUpdated, events.RulesUpdatedPayload{
			Families: []string{"coupons"},
		})
		return err
	})
}

// warmRulesCache primes the per-family rule caches so the first quote after a
// deploy or an invalidation does not pay the load latency.
func (w worker) warmRulesCache(ctx context.Context, _ *asynq.Task) error {
	var firstErr error
	record := func(family string, err error) {
		if err != nil {
			w.Log.Error().Err(err).Str("family", family).Msg("warm rules cache")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	_, err := cache.Remember(ctx, w.Cache, "tax", func(ctx context.Context) ([]tax.Rule, error) {
		return w.Queries.ListTaxRules(ctx)
	})
	record("tax", err)
	_, err = cache.Remember(ctx, w.Cache, "charges", func(ctx context.Context) ([]charge.Charge, error) {
		return w.Queries.ListOrderCharges(ctx)
	})
	record("charges", err)
	_, err = cache.Remember(ctx, w.Cache, "ratecards", func(ctx context.Context) ([]carrier.RateCard, error) {
		return w.Queries.ListRateCards(ctx)
	})
	record("ratecards", err)
	_, err = cache.Remember(ctx, w.Cache, "delivery", func(ctx context.Context) ([]delivery.Option, error) {
		return w.Queries.ListDeliveryOptions(ctx)
	})
	record("delivery", err)
	_, err = cache.Remember(ctx, w.Cache, "insurance", func(ctx context.Context) ([]insurance.Plan, error) {
		return w.Queries.ListInsurancePlans(ctx)
	})
	record("insurance", err)
	_, err = cache.Remember(ctx, w.Cache, "bundles", func(ctx context.Context) ([]bundle.Rule, error) {
		return w.Queries.ListBundleRules(ctx)
	})
	record("bundles", err)

	return firstErr
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, *store.Queries) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool, store.New(pool)
}

func mustInitRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) *redis.Client {
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}
	return redisClient
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
