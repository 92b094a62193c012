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
	otelx "github.com/fitstart-app/backend/libs/otel"
	"github.com/fitstart-app/backend/libs/runtime"
	"github.com/fitstart-app/backend/services/notification-service/internal/consumers"
	"github.com/fitstart-app/backend/services/notification-service/internal/handlers"
	"github.com/fitstart-app/backend/services/notification-service/internal/push"
	"github.com/fitstart-app/backend/services/notification-service/internal/storage"
	"github.com/fitstart-app/backend/services/notification-service/migrations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "notification-service"

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

	port, err := config.Port("PORT", "8083")
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

	repo := storage.NewNotificationRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	sender := buildSender(logger)
	notifier := consumers.NewNotifier(logger, repo, sender)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		groupID := config.String("KAFKA_GROUP_ID", serviceName)
		topics := []struct {
			topic   string
			handler kafkax.Handler
		}{
			{"booking.confirmed.v1", notifier.BookingConfirmed()},
			{"booking.cancelled.v1", notifier.BookingCancelled()},
			{"message.sent.v1", notifier.MessageSent()},
			{"user.device.registered.v1", consumers.DeviceRegistered(logger, repo)},
		}
		for _, t := range topics {
			c := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
				Brokers: brokers,
				GroupID: groupID,
				Topic:   t.topic,
			}, t.handler)
			go c.Run(ctx)
		}
	} else {
		logger.Warn("kafka brokers not configured, consumers disabled")
	}

	readyChecks := []runtime.ReadyCheck{
		{Name: "postgres", Check: db.ReadyCheck(pool)},
	}
	if brokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	nh := handlers.NewNotificationHandler(logger, repo)
	protected := auth.RequireBearer(jwtSecret)

	mux.Handle("GET /api/v1/notifications", protected(http.HandlerFunc(nh.List)))
	mux.Handle("PUT /api/v1/notifications/read-all", protected(http.HandlerFunc(nh.MarkAllRead)))
	mux.Handle("PUT /api/v1/notifications/{id}/read", protected(http.HandlerFunc(nh.MarkRead)))

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(corsPolicy()),
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

// buildSender wires the configured push provider, webhook or noop.
func buildSender(logger *slog.Logger) push.Sender {
	provider := config.String("PUSH_PROVIDER", "noop")
	switch provider {
	case "webhook":
		url := config.String("PUSH_WEBHOOK_URL", "")
		key := config.String("PUSH_SERVER_KEY", "")
		if url == "" {
			logger.Warn("PUSH_PROVIDER=webhook but PUSH_WEBHOOK_URL unset, using noop sender")
			return push.NewNoopSender(logger)
		}
		return push.NewWebhookSender(url, key, config.Duration("PUSH_TIMEOUT", 5*time.Second))
	default:
		return push.NewNoopSender(logger)
	}
}
