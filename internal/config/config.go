// Package config defines the configuration of the bite index service.
// Configuration is loaded once at process start (or Lambda cold start) and is
// immutable afterwards.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format aborts startup.
package config

import (
	"fmt"
	"time"
	_ "time/tzdata" // Lambda images ship without zoneinfo.

	"biteindex/internal/geo"
	"biteindex/internal/types"
)

// SecretString is an alias for types.SecretString so config consumers do not
// need to import types for it.
type SecretString = types.SecretString

// Config is the top-level configuration struct.
// Components receive only the sub-struct they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"OTEL_SERVICE_NAME" default:"biteindex"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Server        ServerConfig
	Database      DatabaseConfig
	Reservoir     ReservoirConfig
	Weather       WeatherConfig
	Telegram      TelegramConfig
	Ratings       RatingsConfig
	Display       DisplayConfig
	AWS           AWSConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	// Resolved from SSM or Env
	URL SecretString `envconfig:"DATABASE_URL" validate:"required,url"`

	// Tuning Parameters
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"gte=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"gte=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout    time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`
}

// ReservoirConfig describes the water body the service is deployed for.
type ReservoirConfig struct {
	Name        string  `envconfig:"RESERVOIR_NAME" default:"Аргази"`
	Timezone    string  `envconfig:"RESERVOIR_TIMEZONE" default:"Asia/Yekaterinburg" validate:"required,timezone"`
	ToleranceKm float64 `envconfig:"GEOFENCE_TOLERANCE_KM" default:"1" validate:"gte=0"`
	// PolygonJSON overrides the built-in outline: [[lat, lon], ...].
	PolygonJSON string  `envconfig:"GEOFENCE_POLYGON_JSON" validate:"omitempty,json"`
	CenterLat   float64 `envconfig:"RESERVOIR_CENTER_LAT" default:"55.38" validate:"latitude"`
	CenterLon   float64 `envconfig:"RESERVOIR_CENTER_LON" default:"60.40" validate:"longitude"`
}

// Location loads the reservoir time zone.
func (r ReservoirConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading reservoir timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Boundary returns the configured geofence, falling back to the built-in
// Argazi outline when no override is set.
func (r ReservoirConfig) Boundary() (geo.Boundary, error) {
	if r.PolygonJSON == "" {
		b := geo.DefaultArgaziBoundary()
		b.ToleranceKm = r.ToleranceKm
		return b, nil
	}
	return geo.ParseBoundaryJSON(r.PolygonJSON, r.ToleranceKm)
}

// Center is the point weather is reported for.
func (r ReservoirConfig) Center() types.Coordinate {
	return types.Coordinate{Latitude: r.CenterLat, Longitude: r.CenterLon}
}

// WeatherConfig holds the OpenWeather integration settings. An empty API key
// disables weather lookups.
type WeatherConfig struct {
	APIKey   SecretString  `envconfig:"OPENWEATHER_API_KEY"`
	BaseURL  string        `envconfig:"OPENWEATHER_BASE_URL" default:"https://api.openweathermap.org" validate:"required,url"`
	Timeout  time.Duration `envconfig:"OPENWEATHER_TIMEOUT" default:"5s"`
	CacheTTL time.Duration `envconfig:"WEATHER_CACHE_TTL" default:"10m"`
}

// TelegramConfig controls how WebApp users are identified.
type TelegramConfig struct {
	BotToken       SecretString  `envconfig:"TELEGRAM_BOT_TOKEN"`
	InitDataMaxAge time.Duration `envconfig:"TELEGRAM_INIT_DATA_MAX_AGE" default:"24h"`
	// AllowUnverified accepts requests without signed initData and
	// attributes them to DemoUserID. Local development only.
	AllowUnverified bool   `envconfig:"TELEGRAM_ALLOW_UNVERIFIED" default:"false"`
	DemoUserID      string `envconfig:"TELEGRAM_DEMO_USER_ID" default:"demo_user"`
}

// RatingsConfig holds submission rules.
type RatingsConfig struct {
	Cooldown time.Duration `envconfig:"RATING_COOLDOWN" default:"6h" validate:"gte=0"`
}

// DisplayConfig holds presentation settings.
type DisplayConfig struct {
	Locale string `envconfig:"BITE_LOCALE" default:"ru" validate:"oneof=ru en"`
}

// AWSConfig holds AWS resource identifiers and regional configuration.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"eu-central-1"`

	// Resource Identifiers
	RatingsQueueURL string `envconfig:"RATINGS_QUEUE_URL" validate:"omitempty,url"`
	SnapshotBucket  string `envconfig:"SNAPSHOT_BUCKET"`
	SnapshotPrefix  string `envconfig:"SNAPSHOT_PREFIX" default:"bite-index/"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"BiteIndex"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"false"`
}

// RateLimitConfig bounds per-client request rates on the API.
type RateLimitConfig struct {
	Enabled           bool    `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond float64 `envconfig:"RATE_LIMIT_RPS" default:"5" validate:"gt=0"`
	Burst             int     `envconfig:"RATE_LIMIT_BURST" default:"20" validate:"gte=1"`
}

// Window is the period in which Burst requests refill at RequestsPerSecond.
func (c RateLimitConfig) Window() time.Duration {
	if c.RequestsPerSecond <= 0 {
		return time.Second
	}
	return time.Duration(float64(c.Burst) / c.RequestsPerSecond * float64(time.Second))
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into its
	// target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
