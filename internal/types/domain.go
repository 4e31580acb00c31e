package types

import "time"

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" validate:"longitude"`
}

// Category is a fish species users can rate.
type Category struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	NameEN      string `json:"name_en,omitempty"`
	IconName    string `json:"icon_name,omitempty"`
	SortOrder   int    `json:"display_order"`
}

// WeatherSnapshot is the current weather at the reservoir, already converted
// to display units: Celsius, mmHg and m/s.
type WeatherSnapshot struct {
	TemperatureC  float64   `json:"temperature"`
	PressureMMHg  int       `json:"pressure"`
	WindSpeedMS   float64   `json:"wind_speed"`
	WindDirection string    `json:"wind_direction"`
	WindDegrees   int       `json:"wind_degrees"`
	Description   string    `json:"description,omitempty"`
	ObservedAt    time.Time `json:"observed_at"`
}

// RatingRecord is a single submitted rating. Records are immutable once stored.
type RatingRecord struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	CategoryID  string           `json:"fish_type_id"`
	Value       int              `json:"rating"`
	SubmittedAt time.Time        `json:"created_at"`
	Location    Coordinate       `json:"location"`
	Weather     *WeatherSnapshot `json:"weather,omitempty"`
}

// CategoryLimit reports whether a user may rate a category right now.
type CategoryLimit struct {
	CategoryID  string     `json:"fish_type_id"`
	CanRate     bool       `json:"can_rate"`
	LastRatedAt *time.Time `json:"last_rated_at,omitempty"`
	NextRateAt  *time.Time `json:"next_rate_at,omitempty"`
}
