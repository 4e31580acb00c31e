// Package main is the entry point for the bite index API.
//
// It loads configuration, opens the database pool, wires the domain services
// into the core chassis and serves requests.
//
// Locally (no Lambda runtime variables) it runs a plain HTTP server on the
// configured port. Inside AWS Lambda it bridges API Gateway proxy events to
// the chi router through chiadapter.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM).
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"

	"biteindex/internal/api/handlers"
	"biteindex/internal/auth"
	"biteindex/internal/bite"
	"biteindex/internal/config"
	"biteindex/internal/core"
	"biteindex/internal/db"
	"biteindex/internal/external"
	"biteindex/internal/geo"
	"biteindex/internal/index"
	"biteindex/internal/metrics"
	"biteindex/internal/queue"
	"biteindex/internal/ratings"
	"biteindex/internal/types"
	"biteindex/internal/weather"
)

// rateLimitIdleTTL is how long an idle client's bucket is kept in memory.
const rateLimitIdleTTL = 10 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ratingStore is the persistence the API needs. *db.RatingRepository
// implements it.
type ratingStore interface {
	ratings.Store
	index.RatingLister
}

// categoryStore lists the fish catalogue. *db.CategoryRepository implements it.
type categoryStore interface {
	List(ctx context.Context) ([]types.Category, error)
}

// metricsSink is satisfied by *metrics.Collector and metrics.Noop.
type metricsSink interface {
	core.MetricsCollector
	ratings.SubmissionMetrics
	Flush(ctx context.Context) error
}

// dependencies holds the backends buildServer wires together. run fills it
// with live clients; tests substitute fakes.
type dependencies struct {
	Categories categoryStore
	Ratings    ratingStore
	Weather    external.WeatherProvider
	Events     ratings.EventPublisher
	Metrics    metricsSink
	Probes     []core.HealthProbe
	Clock      types.Clock

	// Close runs after in-flight requests finish.
	Close []func(ctx context.Context) error
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(config.NewSecretProvider(os.Getenv("AWS_REGION"), os.Getenv("AWS_ENDPOINT_URL")))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("bite index API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
	)

	ctx := context.Background()
	deps, err := liveDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv, err := buildServer(cfg, logger, deps)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if isLambdaEnvironment() {
		return runLambda(srv, logger)
	}
	return runHTTPServer(srv, cfg, logger)
}

// liveDependencies connects to PostgreSQL and, when configured, to SQS,
// CloudWatch and OpenWeather.
func liveDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (dependencies, error) {
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		return dependencies{}, fmt.Errorf("connecting to database: %w", err)
	}
	if cfg.Environment == "local" {
		if err := db.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return dependencies{}, err
		}
	}

	deps := dependencies{
		Categories: db.NewCategoryRepository(pool),
		Ratings:    db.NewRatingRepository(pool),
		Events:     queue.NoopPublisher{},
		Metrics:    metrics.Noop{},
		Probes:     []core.HealthProbe{db.Probe{DB: pool}},
		Clock:      types.RealClock{},
		Close: []func(context.Context) error{
			func(context.Context) error { pool.Close(); return nil },
		},
	}

	if cfg.Weather.APIKey.IsSet() {
		deps.Weather = external.NewOpenWeatherClient(
			&http.Client{Timeout: cfg.Weather.Timeout},
			external.OpenWeatherConfig{APIKey: cfg.Weather.APIKey, BaseURL: cfg.Weather.BaseURL, Logger: logger},
		)
	} else {
		logger.Warn("OPENWEATHER_API_KEY not set, using stub weather provider")
		deps.Weather = external.NewStubWeatherProvider(logger)
	}

	if cfg.AWS.RatingsQueueURL == "" && !cfg.Observability.EnableMetrics {
		return deps, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWS.Region))
	if err != nil {
		pool.Close()
		return dependencies{}, fmt.Errorf("loading AWS SDK config: %w", err)
	}

	if cfg.AWS.RatingsQueueURL != "" {
		sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		deps.Events = queue.NewRatingPublisher(sqsClient, cfg.AWS.RatingsQueueURL, logger)
	}

	if cfg.Observability.EnableMetrics {
		cwClient := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
			if cfg.AWS.EndpointURL != "" {
				o.BaseEndpoint = aws.String(cfg.AWS.EndpointURL)
			}
		})
		deps.Metrics = metrics.NewCollector(cwClient, cfg.Observability.MetricNamespace, logger)
	}

	return deps, nil
}

// buildServer wires the domain services and mounts every route.
func buildServer(cfg *config.Config, logger *slog.Logger, deps dependencies) (*core.Server, error) {
	loc, err := cfg.Reservoir.Location()
	if err != nil {
		return nil, err
	}
	boundary, err := cfg.Reservoir.Boundary()
	if err != nil {
		return nil, fmt.Errorf("loading reservoir boundary: %w", err)
	}
	if deps.Clock == nil {
		deps.Clock = types.RealClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}

	authenticator, err := auth.NewTelegramAuthenticator(auth.TelegramConfig{
		BotToken:        cfg.Telegram.BotToken,
		MaxAge:          cfg.Telegram.InitDataMaxAge,
		AllowUnverified: cfg.Telegram.AllowUnverified,
		DemoUserID:      cfg.Telegram.DemoUserID,
		Clock:           deps.Clock,
	})
	if err != nil {
		return nil, fmt.Errorf("creating authenticator: %w", err)
	}
	if cfg.Telegram.AllowUnverified {
		logger.Warn("unverified Telegram access is enabled", "demo_user_id", cfg.Telegram.DemoUserID)
	}

	locale := bite.ParseLocale(cfg.Display.Locale)
	aggregator := bite.NewAggregator(loc, locale)
	weatherSvc := weather.NewService(deps.Weather, cfg.Reservoir.Center(), cfg.Weather.CacheTTL, deps.Clock, logger)
	indexSvc := index.NewService(deps.Ratings, deps.Categories, aggregator, deps.Clock, logger)
	ratingSvc := ratings.NewService(ratings.Config{
		Store:      deps.Ratings,
		Categories: deps.Categories,
		Geofence:   geo.NewValidator(boundary),
		Weather:    weatherSvc,
		Events:     deps.Events,
		Metrics:    deps.Metrics,
		Cooldown:   cfg.Ratings.Cooldown,
		Locale:     locale,
		Clock:      deps.Clock,
		Logger:     logger,
	})

	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.Authenticator = authenticator
	srv.Metrics = deps.Metrics
	srv.HealthProbes = deps.Probes
	srv.RateLimitStore = core.NewMemoryRateLimitStore(rateLimitIdleTTL)

	fishTypes := handlers.NewFishTypesHandler(deps.Categories, logger)
	biteIndex := handlers.NewBiteIndexHandler(indexSvc, logger)
	ratingsHandler := handlers.NewRatingsHandler(ratingSvc, srv.Validator, logger)
	weatherHandler := handlers.NewWeatherHandler(weatherSvc, logger)
	reservoir := handlers.NewReservoirHandler(cfg.Reservoir.Name, cfg.Reservoir.Center(), boundary)

	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars, func(r chi.Router) {
		r.Route("/fish-types", fishTypes.RegisterRoutes)
		r.Route("/bite-index", biteIndex.RegisterRoutes)
		r.With(srv.RequireActor).Route("/ratings", ratingsHandler.RegisterRoutes)
		r.Route("/weather", weatherHandler.RegisterRoutes)
		r.Route("/reservoir", reservoir.RegisterRoutes)
	})

	// Metrics are flushed before the pool closes so the last batch is not
	// lost when a closing hook fails.
	srv.ShutdownHooks = append(srv.ShutdownHooks, deps.Metrics.Flush)
	srv.ShutdownHooks = append(srv.ShutdownHooks, deps.Close...)

	srv.MountRoutes()
	return srv, nil
}

// isLambdaEnvironment returns true if the process is running inside AWS Lambda.
func isLambdaEnvironment() bool {
	_, hasRuntimeAPI := os.LookupEnv("AWS_LAMBDA_RUNTIME_API")
	_, hasServerPort := os.LookupEnv("_LAMBDA_SERVER_PORT")
	return hasRuntimeAPI || hasServerPort
}

// runLambda serves API Gateway proxy events. Buffered metrics are flushed
// after every invocation because the execution environment may be frozen.
func runLambda(srv *core.Server, logger *slog.Logger) error {
	adapter := chiadapter.New(srv.Router())
	logger.Info("starting Lambda handler")

	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		resp, err := adapter.ProxyWithContext(ctx, req)
		if flusher, ok := srv.Metrics.(interface{ Flush(context.Context) error }); ok {
			if ferr := flusher.Flush(ctx); ferr != nil {
				logger.Warn("metrics flush failed", "error", ferr)
			}
		}
		return resp, err
	})
	return nil
}

// runHTTPServer starts the server in standard HTTP mode with graceful shutdown.
func runHTTPServer(srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)

	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server resource shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger configured for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
