package external

import (
	"context"
	"log/slog"
	"time"

	"biteindex/internal/types"
)

// StubWeatherProvider returns fixed mild autumn weather. Local runs without
// an OpenWeather key use it.
type StubWeatherProvider struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewStubWeatherProvider(logger *slog.Logger) *StubWeatherProvider {
	return &StubWeatherProvider{logger: logger, now: time.Now}
}

func (s *StubWeatherProvider) CurrentWeather(ctx context.Context, at types.Coordinate) (*types.WeatherSnapshot, error) {
	s.logger.DebugContext(ctx, "stub: CurrentWeather called",
		"lat", at.Latitude,
		"lon", at.Longitude,
	)
	return &types.WeatherSnapshot{
		TemperatureC:  8.5,
		PressureMMHg:  745,
		WindSpeedMS:   3.0,
		WindDirection: "СЗ",
		WindDegrees:   315,
		Description:   "облачно с прояснениями",
		ObservedAt:    s.now().UTC().Truncate(time.Minute),
	}, nil
}

var _ WeatherProvider = (*StubWeatherProvider)(nil)
