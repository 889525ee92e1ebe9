package main

import (
	"context"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/melinotify/internal/consumer"
	"github.com/md-rashed-zaman/melinotify/internal/dedup"
	"github.com/md-rashed-zaman/melinotify/internal/meli"
	"github.com/md-rashed-zaman/melinotify/internal/metrics"
	"github.com/md-rashed-zaman/melinotify/internal/pipeline"
	"github.com/md-rashed-zaman/melinotify/internal/secrets"
	"github.com/md-rashed-zaman/melinotify/internal/telegram"
	"github.com/md-rashed-zaman/melinotify/internal/token"
	"github.com/md-rashed-zaman/melinotify/libs/config"
	"github.com/md-rashed-zaman/melinotify/libs/db"
	"github.com/md-rashed-zaman/melinotify/libs/httpx"
	"github.com/md-rashed-zaman/melinotify/libs/kafkax"
	otelx "github.com/md-rashed-zaman/melinotify/libs/otel"
	"github.com/md-rashed-zaman/melinotify/libs/ratelimit"
	"github.com/md-rashed-zaman/melinotify/libs/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const tokenID = "mercadolibre"

func main() {
	service := config.String("SERVICE_NAME", "melinotify-worker")
	port, err := config.Port("OPS_PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	metrics.Register()

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	var rdb *redis.Client
	var limiter telegram.Limiter
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
		limiter = ratelimit.NewRedisLimiter(rdb,
			config.Int("TELEGRAM_SEND_LIMIT", 20),
			config.Duration("TELEGRAM_SEND_WINDOW", time.Minute),
			"rl:telegram",
		)
	}

	resolver := secrets.NewResolver()

	meliSecretRef := config.String("MELI_AUTH_SECRET_REF", "env://MELI_AUTH_CREDENTIALS")
	rawCreds, err := resolver.Resolve(ctx, meliSecretRef)
	if err != nil {
		logger.Error("resolving marketplace credentials failed", "err", err)
		panic(err)
	}
	appCreds, err := meli.ParseAppCredentials(rawCreds)
	if err != nil {
		logger.Error("invalid marketplace credentials", "err", err)
		panic(err)
	}

	meliBaseURL := config.String("MELI_API_BASE_URL", meli.DefaultBaseURL)
	authClient := meli.NewAuthClient(meliBaseURL+"/oauth/token", appCreds)
	tokenStore := token.NewPGStore(pool, tokenID)
	tokenManager := token.NewManager(tokenStore, authClient)
	apiClient := meli.NewClient(meliBaseURL, tokenManager)

	telegramRef := config.String("TELEGRAM_SECRET_REF", "env://TELEGRAM_CREDENTIALS")
	notifier := telegram.NewClient(
		config.String("TELEGRAM_API_BASE_URL", telegram.DefaultBaseURL),
		resolver, telegramRef, limiter,
	)

	dedupRepo := dedup.NewRepository(pool)
	pipe := pipeline.New(dedupRepo, apiClient, notifier, logger)

	brokers := config.String("KAFKA_BROKERS", "")
	eventConsumer := consumer.New(logger, consumer.Config{
		Brokers:      brokers,
		GroupID:      config.String("KAFKA_GROUP_ID", "melinotify-worker"),
		Topic:        config.String("KAFKA_CONSUME_TOPIC", "marketplace.order.webhook.v1"),
		BatchSize:    config.Int("CONSUMER_BATCH_SIZE", 10),
		BatchWait:    config.Duration("CONSUMER_BATCH_WAIT", time.Second),
		RetryBackoff: config.Duration("CONSUMER_RETRY_BACKOFF", 5*time.Second),
	}, pipe)
	go eventConsumer.Run(ctx)

	checks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/metrics", promhttp.Handler())

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithTimeout(10*time.Second),
	)
	handler = otelhttp.NewHandler(handler, "ops")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("ops server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("ops server shutdown error", "err", err)
	}
	logger.Info("worker stopped")
}
