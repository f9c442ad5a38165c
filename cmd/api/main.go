package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/campverse/api/internal/di"
	"github.com/campverse/api/internal/handlers"
	"github.com/campverse/api/internal/payments"
	"github.com/campverse/api/internal/platform/auth"
	"github.com/campverse/api/internal/platform/config"
	"github.com/campverse/api/internal/platform/events"
	pfirestore "github.com/campverse/api/internal/platform/firestore"
	"github.com/campverse/api/internal/platform/idempotency"
	"github.com/campverse/api/internal/platform/observability"
	"github.com/campverse/api/internal/platform/realtime"
	"github.com/campverse/api/internal/platform/secrets"
	"github.com/campverse/api/internal/repositories"
	firestoreRepo "github.com/campverse/api/internal/repositories/firestore"
	"github.com/campverse/api/internal/repositories/memory"
	"github.com/campverse/api/internal/services"
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	envValues, err := config.EnvironmentValues()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read environment values: %v\n", err)
		os.Exit(1)
	}

	baseLogger, err := observability.NewLogger(envValues["API_LOG_LEVEL"])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("api")

	fetcher, err := newSecretFetcher(ctx, logger, envValues)
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretNames(envValues)...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	buildInfo := buildInfoFromEnv(envValues, cfg, startedAt)

	telemetry, err := observability.InitTelemetry(cfg.Observability.ServiceName, buildInfo.Version, cfg.Observability.MetricsEnabled)
	if err != nil {
		logger.Fatal("failed to initialise telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}()

	var redisClient *redis.Client
	if strings.TrimSpace(cfg.Realtime.RedisAddr) != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Realtime.RedisAddr,
			Password: cfg.Realtime.RedisPassword,
			DB:       cfg.Realtime.RedisDB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close error", zap.Error(err))
			}
		}()
	}

	checks := dependencyChecks(fetcher, redisClient)
	registry, err := newRegistry(cfg, checks)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	publisher, closePubSub, err := newPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to initialise event publisher", zap.Error(err))
	}
	defer closePubSub()

	var broker realtime.Broker
	var idemStore idempotency.Store
	if cfg.Realtime.Driver == "redis" && redisClient != nil {
		broker = realtime.NewRedisBroker(redisClient, "campverse:rt:")
		idemStore = idempotency.NewRedisStore(redisClient, "")
	} else {
		broker = realtime.NewMemoryBroker()
		idemStore = idempotency.NewMemoryStore()
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.Warn("realtime broker close error", zap.Error(err))
		}
	}()

	var gateway payments.Gateway
	var webhookParser payments.WebhookParser
	if strings.TrimSpace(cfg.PSP.StripeAPIKey) != "" {
		stripeGateway, err := payments.NewStripeGateway(payments.StripeConfig{
			APIKey:        cfg.PSP.StripeAPIKey,
			WebhookSecret: cfg.PSP.StripeWebhookSecret,
			Logger:        observability.EventLogger(logger.Named("payments")),
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe gateway", zap.Error(err))
		}
		gateway = stripeGateway
		webhookParser = stripeGateway
	} else {
		logger.Warn("stripe api key not configured; card refunds and payment webhooks are disabled")
	}

	container, err := di.NewContainer(ctx, cfg, registry, di.Infrastructure{
		Publisher: publisher,
		Pusher:    realtime.NewPusher(broker),
		Payments:  gateway,
		Logger:    logger.Named("services"),
		Build:     buildInfo,
	})
	if err != nil {
		logger.Fatal("failed to initialise services", zap.Error(err))
	}
	svc := container.Services

	firebaseVerifier, err := auth.NewFirebaseVerifier(ctx, cfg.Firebase)
	if err != nil {
		logger.Fatal("failed to initialise firebase verifier", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(firebaseVerifier)

	rtGateway, err := realtime.NewGateway(realtime.GatewayOptions{
		Broker:         broker,
		Logger:         logger.Named("realtime"),
		AllowedOrigins: cfg.Realtime.AllowedOrigins,
		WriteTimeout:   cfg.Realtime.WriteTimeout,
		PingInterval:   cfg.Realtime.PingInterval,
		OnClientEvent: func(ctx context.Context, userID string, frame realtime.ClientFrame) error {
			if frame.Event != realtime.EventUserTyping {
				return nil
			}
			return svc.Messages.Typing(ctx, userID, frame.To)
		},
	})
	if err != nil {
		logger.Fatal("failed to initialise realtime gateway", zap.Error(err))
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	svc.Sweeper.Start(sweepCtx)

	createMW := handlers.WithCreateMiddleware(idempotency.Middleware(idemStore))

	projectID := traceProjectID(cfg)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
		observability.LocaleMiddleware(),
	}

	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(buildInfo),
		handlers.WithHealthSystemService(svc.System),
	)

	opts := []handlers.Option{
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithRealtimeHandler(authenticator.RequireFirebaseAuth()(rtGateway)),
		handlers.WithProductRoutes(handlers.NewProductHandlers(svc.Catalog).Routes),
		handlers.WithCartRoutes(handlers.NewCartHandlers(authenticator, svc.Cart).Routes),
		handlers.WithOrderRoutes(handlers.NewOrderHandlers(authenticator, svc.Orders, createMW).Routes),
		handlers.WithBookingRoutes(handlers.NewBookingHandlers(authenticator, svc.Bookings, createMW).Routes),
		handlers.WithNotificationRoutes(handlers.NewNotificationHandlers(authenticator, svc.Notifications).Routes),
		handlers.WithMessageRoutes(handlers.NewMessageHandlers(authenticator, svc.Messages).Routes),
		handlers.WithAdminRoutes(handlers.NewAdminHandlers(authenticator, svc.Orders, svc.Bookings).Routes),
		handlers.WithWebhookRoutes(handlers.NewPaymentWebhookHandlers(webhookParser, svc.Orders).Routes),
		handlers.WithInternalRoutes(handlers.NewInternalHandlers(svc.Sweeper).Routes),
	}
	if telemetry.MetricsHandler != nil {
		opts = append(opts, handlers.WithMetricsHandler(telemetry.MetricsHandler))
	}
	if oidcMiddleware := buildOIDCMiddleware(logger.Named("auth"), cfg); oidcMiddleware != nil {
		opts = append(opts, handlers.WithInternalMiddlewares(oidcMiddleware))
	} else {
		logger.Warn("oidc audience not configured; internal routes are unauthenticated")
	}

	router := handlers.NewRouter(opts...)
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      observability.CloudTraceMiddleware()(otelhttp.NewHandler(router, "http.server")),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("campverse api listening",
			zap.String("persistence", cfg.Persistence.Driver),
			zap.String("events", cfg.Events.Driver),
			zap.String("realtime", cfg.Realtime.Driver),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	stopSweep()
	if err := container.Close(shutdownCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func buildInfoFromEnv(env map[string]string, cfg config.Config, started time.Time) services.BuildInfo {
	version := strings.TrimSpace(env["API_BUILD_VERSION"])
	if version == "" {
		version = "dev"
	}
	commit := strings.TrimSpace(env["API_BUILD_COMMIT_SHA"])
	if commit == "" {
		commit = "unknown"
	}
	environment := strings.TrimSpace(cfg.Security.Environment)
	if environment == "" {
		environment = "local"
	}
	return services.BuildInfo{
		Version:     version,
		CommitSHA:   commit,
		Environment: environment,
		StartedAt:   started,
	}
}

func newRegistry(cfg config.Config, checks []repositories.DependencyCheck) (repositories.Registry, error) {
	switch cfg.Persistence.Driver {
	case "memory":
		store := memory.NewStore()
		if len(checks) > 0 {
			health, err := repositories.NewDependencyHealthRepository(checks)
			if err != nil {
				return nil, err
			}
			store.SetHealth(health)
		}
		return store, nil
	default:
		return firestoreRepo.NewRegistry(pfirestore.NewProvider(cfg.Firestore), checks...)
	}
}

func newPublisher(ctx context.Context, cfg config.Config) (events.Publisher, func(), error) {
	noop := func() {}
	switch cfg.Events.Driver {
	case "pubsub":
		client, err := pubsub.NewClient(ctx, cfg.Firestore.ProjectID)
		if err != nil {
			return nil, noop, fmt.Errorf("pubsub client: %w", err)
		}
		publisher, err := events.NewPubSubPublisher(client.Topic(cfg.Events.Topic))
		if err != nil {
			_ = client.Close()
			return nil, noop, err
		}
		return publisher, func() { _ = client.Close() }, nil
	case "kafka":
		publisher, err := events.NewKafkaPublisher(cfg.Events.KafkaBrokers, cfg.Events.Topic)
		if err != nil {
			return nil, noop, err
		}
		return publisher, noop, nil
	default:
		return events.NopPublisher{}, noop, nil
	}
}

func dependencyChecks(fetcher *secrets.Fetcher, redisClient *redis.Client) []repositories.DependencyCheck {
	var checks []repositories.DependencyCheck
	if fetcher != nil {
		const secretHealthReference = "secret://system-healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil || errors.Is(err, secrets.ErrSecretNotFound) {
					return nil
				}
				return err
			},
		})
	}
	if redisClient != nil {
		checks = append(checks, repositories.DependencyCheck{
			Name:    "redis",
			Timeout: 500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				return redisClient.Ping(ctx).Err()
			},
		})
	}
	return checks
}

func buildOIDCMiddleware(logger *zap.Logger, cfg config.Config) func(http.Handler) http.Handler {
	oidc := cfg.Security.OIDC
	if strings.TrimSpace(oidc.JWKSURL) == "" || strings.TrimSpace(oidc.Audience) == "" {
		return nil
	}
	validator := auth.NewOIDCValidator(auth.NewJWKSCache(oidc.JWKSURL), logger)
	return validator.RequireOIDC(oidc.Audience, oidc.Issuers)
}

func traceProjectID(cfg config.Config) string {
	if id := strings.TrimSpace(cfg.Firebase.ProjectID); id != "" {
		return id
	}
	return strings.TrimSpace(cfg.Firestore.ProjectID)
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger, env map[string]string) (*secrets.Fetcher, error) {
	lookup := func(key string) string {
		return strings.TrimSpace(env[key])
	}

	defaultProject := lookup("API_SECRET_DEFAULT_PROJECT_ID")
	if defaultProject == "" {
		defaultProject = lookup("API_FIREBASE_PROJECT_ID")
	}
	fallbackPath := lookup("API_SECRET_FALLBACK_FILE")
	if fallbackPath == "" {
		fallbackPath = ".secrets.local"
	}

	opts := []secrets.Option{
		secrets.WithLogger(logger.Named("secrets")),
		secrets.WithFallbackFile(fallbackPath),
	}
	if defaultProject != "" {
		opts = append(opts, secrets.WithDefaultProject(defaultProject))
	}
	if ttl, err := time.ParseDuration(lookup("API_SECRET_CACHE_TTL")); err == nil && ttl > 0 {
		opts = append(opts, secrets.WithCacheTTL(ttl))
	}
	if credentialsFile := lookup("API_FIREBASE_CREDENTIALS_FILE"); credentialsFile != "" {
		opts = append(opts, secrets.WithClientOptions(option.WithCredentialsFile(credentialsFile)))
	}

	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretNames only demands the webhook secret once Stripe is enabled.
func requiredSecretNames(env map[string]string) []string {
	if strings.TrimSpace(env["API_PSP_STRIPE_API_KEY"]) == "" {
		return nil
	}
	return []string{"PSP.StripeAPIKey", "PSP.StripeWebhookSecret"}
}
