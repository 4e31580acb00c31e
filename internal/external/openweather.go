package external

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"biteindex/internal/types"
)

const openWeatherAPIBase = "https://api.openweathermap.org"

// OpenWeatherConfig configures OpenWeatherClient.
type OpenWeatherConfig struct {
	APIKey  types.SecretString
	BaseURL string
	Logger  *slog.Logger
}

// OpenWeatherClient implements WeatherProvider with the OpenWeather current
// weather endpoint in metric units.
type OpenWeatherClient struct {
	base    *BaseClient
	apiKey  types.SecretString
	baseURL string
	logger  *slog.Logger
}

// NewOpenWeatherClient wraps httpClient in a BaseClient with the default
// retry policy.
func NewOpenWeatherClient(httpClient *http.Client, cfg OpenWeatherConfig) *OpenWeatherClient {
	return NewOpenWeatherClientWithBase(
		NewBaseClient(httpClient, DefaultBreakerSettings("openweather"), DefaultRetryPolicy(), "BiteIndex/1.0"),
		cfg,
	)
}

// NewOpenWeatherClientWithBase uses a preconfigured BaseClient.
func NewOpenWeatherClientWithBase(base *BaseClient, cfg OpenWeatherConfig) *OpenWeatherClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = openWeatherAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenWeatherClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

// owmCurrent is the subset of the /data/2.5/weather response we read.
type owmCurrent struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// CurrentWeather fetches conditions at the given point.
func (c *OpenWeatherClient) CurrentWeather(ctx context.Context, at types.Coordinate) (*types.WeatherSnapshot, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("appid", c.apiKey.Unmask())
	q.Set("units", "metric")
	q.Set("lang", "ru")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build weather request", err)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, weatherError("weather provider unavailable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.WarnContext(ctx, "openweather returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return nil, weatherError(fmt.Sprintf("weather provider returned %d", resp.StatusCode), nil)
	}

	var payload owmCurrent
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, weatherError("weather response is malformed", err)
	}

	return payload.toSnapshot(), nil
}

func (p owmCurrent) toSnapshot() *types.WeatherSnapshot {
	s := &types.WeatherSnapshot{
		TemperatureC:  roundTenth(p.Main.Temp),
		PressureMMHg:  hPaToMMHg(p.Main.Pressure),
		WindSpeedMS:   roundTenth(p.Wind.Speed),
		WindDirection: CompassPoint(p.Wind.Deg),
		WindDegrees:   int(roundHalfUp(p.Wind.Deg)),
		ObservedAt:    time.Unix(p.Dt, 0).UTC(),
	}
	if len(p.Weather) > 0 {
		s.Description = p.Weather[0].Description
	}
	return s
}

func weatherError(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeUpstreamWeather, msg, err)
}

func roundHalfUp(v float64) float64 {
	return math.Floor(v + 0.5)
}

var _ WeatherProvider = (*OpenWeatherClient)(nil)
