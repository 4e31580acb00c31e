package external

import (
	"context"

	"biteindex/internal/types"
)

// WeatherProvider returns current conditions at a point, already converted
// to display units.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, at types.Coordinate) (*types.WeatherSnapshot, error)
}

// windDirections is the 8-point compass in Russian, starting at north and
// going clockwise.
var windDirections = [8]string{"С", "СВ", "В", "ЮВ", "Ю", "ЮЗ", "З", "СЗ"}

// CompassPoint maps a bearing in degrees to one of eight compass points.
func CompassPoint(degrees float64) string {
	idx := int(roundHalfUp(degrees/45)) % 8
	if idx < 0 {
		idx += 8
	}
	return windDirections[idx]
}

// hPaToMMHg converts hectopascals to whole millimetres of mercury.
func hPaToMMHg(hpa float64) int {
	return int(roundHalfUp(hpa * 0.750062))
}

// roundTenth rounds to one decimal place, halves towards +Inf.
func roundTenth(v float64) float64 {
	return roundHalfUp(v*10) / 10
}
