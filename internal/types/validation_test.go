package types

import (
	"errors"
	"math"
	"testing"
)

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name     string
		coord    Coordinate
		wantCode ErrorCode
	}{
		{"reservoir centre", Coordinate{Latitude: 55.38, Longitude: 60.40}, ""},
		{"north pole", Coordinate{Latitude: 90, Longitude: 0}, ""},
		{"antimeridian", Coordinate{Latitude: 0, Longitude: -180}, ""},
		{"latitude too high", Coordinate{Latitude: 90.0001, Longitude: 0}, ErrCodeValidationInvalidLat},
		{"latitude too low", Coordinate{Latitude: -91, Longitude: 0}, ErrCodeValidationInvalidLat},
		{"latitude NaN", Coordinate{Latitude: math.NaN(), Longitude: 0}, ErrCodeValidationInvalidLat},
		{"longitude too high", Coordinate{Latitude: 0, Longitude: 180.5}, ErrCodeValidationInvalidLon},
		{"longitude NaN", Coordinate{Latitude: 0, Longitude: math.NaN()}, ErrCodeValidationInvalidLon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinate(tt.coord)
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("expected nil error, got %v", err)
				}
				return
			}
			var appErr *AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *AppError, got %T: %v", err, err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", appErr.Code, tt.wantCode)
			}
		})
	}
}

func TestValidateRating(t *testing.T) {
	for v := MinRating; v <= MaxRating; v++ {
		if err := ValidateRating(v); err != nil {
			t.Errorf("ValidateRating(%d) = %v, want nil", v, err)
		}
	}

	for _, v := range []int{-1, 0, 6, 10} {
		err := ValidateRating(v)
		var appErr *AppError
		if !errors.As(err, &appErr) || appErr.Code != ErrCodeValidationInvalidRating {
			t.Errorf("ValidateRating(%d) = %v, want %s", v, err, ErrCodeValidationInvalidRating)
		}
	}
}
