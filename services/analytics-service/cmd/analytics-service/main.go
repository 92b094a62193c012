package main

import (
	"context"
	"errors"
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
	"github.com/fitstart-app/backend/services/analytics-service/internal/consumers"
	"github.com/fitstart-app/backend/services/analytics-service/internal/handlers"
	"github.com/fitstart-app/backend/services/analytics-service/internal/storage"
	"github.com/fitstart-app/backend/services/analytics-service/migrations"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "analytics-service"

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

	port, err := config.Port("PORT", "8084")
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

	repo := storage.NewInteractionRepository(pool)
	inboxRepo := inbox.NewRepository(pool)

	brokers := config.String("KAFKA_BROKERS", "")
	if brokers != "" {
		c := kafkax.NewConsumer(logger, inboxRepo, kafkax.ConsumerConfig{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", serviceName),
			Topic:   "interaction.recorded.v1",
		}, consumers.InteractionRecorded(logger, repo))
		go c.Run(ctx)
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

	ah := handlers.NewAnalyticsHandler(logger, repo)
	protected := auth.RequireBearer(jwtSecret)

	mux.Handle("GET /api/v1/analytics/venues/{venueId}/summary", protected(http.HandlerFunc(ah.VenueSummary)))
	mux.Handle("GET /api/v1/analytics/venues/top", protected(http.HandlerFunc(ah.TopVenues)))

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
