package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fitstart-app/backend/libs/auth"
	"github.com/fitstart-app/backend/libs/config"
	"github.com/fitstart-app/backend/libs/db"
	"github.com/fitstart-app/backend/libs/httpx"
	"github.com/fitstart-app/backend/libs/inbox"
	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/fitstart-app/backend/libs/outbox"
	otelx "github.com/fitstart-app/backend/libs/otel"
	"github.com/fitstart-app/backend/libs/runtime"
	"github.com/fitstart-app/backend/services/message-service/internal/consumers"
	"github.com/fitstart-app/backend/services/message-service/internal/handlers"
	"github.com/fitstart-app/backend/services/message-service/internal/storage"
	"github.com/fitstart-app/backend/services/message-service/migrations"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "message-service"

func main() {
	config.LoadDotenv()
	logger := runtime.NewLogger(serviceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	shutdownTracing, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		os.Exit(1)
	}

	port, err := config.Port("PORT", "8085")
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}
	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		logger.Error("invalid config", "err", err)
		os.Exit(1)
	}

	pool, err := db.Open(ctx, databaseURL)
	if err != nil {
		logger.Error("database connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}

	chatRepo := storage.NewChatRepository(pool)
	venueModel := storage.NewVenueReadModel(pool)
	outboxRepo := outbox.NewRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)

		venueConsumer := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", serviceName),
			Topic:   "venue.updated.v1",
		}, consumers.VenueUpdated(logger, venueModel))
		go venueConsumer.Run(ctx)
	} else {
		logger.Warn("kafka brokers not configured, events disabled")
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "postgres", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	ch := handlers.NewChatHandler(logger, venueModel, chatRepo, outboxRepo)
	protected := auth.RequireBearer(jwtSecret)

	mux.Handle("POST /api/v1/chat/conversations", protected(http.HandlerFunc(ch.Start)))
	mux.Handle("GET /api/v1/chat/conversations", protected(http.HandlerFunc(ch.List)))
	mux.Handle("GET /api/v1/chat/conversations/{id}", protected(http.HandlerFunc(ch.Get)))
	mux.Handle("GET /api/v1/chat/conversations/{id}/messages", protected(http.HandlerFunc(ch.Messages)))
	mux.Handle("POST /api/v1/chat/conversations/{id}/messages", protected(http.HandlerFunc(ch.Send)))
	mux.Handle("PUT /api/v1/chat/conversations/{id}/read", protected(http.HandlerFunc(ch.MarkRead)))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(corsPolicy()),
		buildRateLimiter(logger),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(15*time.Second),
	)
	handler = otelhttp.NewHandler(handler, serviceName)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "err", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", "err", err)
	}
}

func corsPolicy() httpx.CORSPolicy {
	return httpx.CORSPolicy{
		AllowedOrigins: config.Strings("CORS_ALLOWED_ORIGINS"),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		MaxAge:         10 * time.Minute,
	}
}

func buildRateLimiter(logger *slog.Logger) httpx.Middleware {
	limit := config.Int("RATE_LIMIT", 100)
	window := config.Duration("RATE_LIMIT_WINDOW", time.Minute)

	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid REDIS_URL, falling back to in-process rate limiter", "err", err)
		} else {
			rdb := redis.NewClient(opts)
			return httpx.NewRedisRateLimiter(rdb, limit, window, serviceName).
				Middleware(logger, true)
		}
	}
	return httpx.NewRateLimiter(limit, window).Middleware()
}
