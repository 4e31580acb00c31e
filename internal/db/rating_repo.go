package db

import (
	"context"
	"time"

	"biteindex/internal/types"
)

// RatingRepository stores and reads the ratings table.
type RatingRepository struct {
	db DBTX
}

func NewRatingRepository(db DBTX) *RatingRepository {
	return &RatingRepository{db: db}
}

// InsertBatch writes records in a single statement. Weather columns are NULL
// for records without a snapshot.
func (r *RatingRepository) InsertBatch(ctx context.Context, records []types.RatingRecord) error {
	if len(records) == 0 {
		return nil
	}

	n := len(records)
	var (
		ids       = make([]string, n)
		users     = make([]string, n)
		fishTypes = make([]string, n)
		values    = make([]int16, n)
		lats      = make([]float64, n)
		lons      = make([]float64, n)
		temps     = make([]*float64, n)
		pressures = make([]*int32, n)
		winds     = make([]*float64, n)
		dirs      = make([]*string, n)
		degrees   = make([]*int32, n)
		descs     = make([]*string, n)
		observed  = make([]*time.Time, n)
		created   = make([]time.Time, n)
	)

	for i, rec := range records {
		ids[i] = rec.ID
		users[i] = rec.UserID
		fishTypes[i] = rec.CategoryID
		values[i] = int16(rec.Value)
		lats[i] = rec.Location.Latitude
		lons[i] = rec.Location.Longitude
		created[i] = rec.SubmittedAt

		if w := rec.Weather; w != nil {
			temp, wind := w.TemperatureC, w.WindSpeedMS
			pressure, deg := int32(w.PressureMMHg), int32(w.WindDegrees)
			dir, desc, obs := w.WindDirection, w.Description, w.ObservedAt
			temps[i], winds[i] = &temp, &wind
			pressures[i], degrees[i] = &pressure, &deg
			dirs[i], descs[i], observed[i] = &dir, &desc, &obs
		}
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO ratings (
			id, telegram_user_id, fish_type_id, rating, latitude, longitude,
			air_temp, pressure, wind_speed, wind_direction, wind_degrees,
			weather_description, observed_at, created_at
		)
		SELECT * FROM unnest(
			$1::uuid[], $2::text[], $3::text[], $4::smallint[], $5::float8[], $6::float8[],
			$7::float8[], $8::int4[], $9::float8[], $10::text[], $11::int4[],
			$12::text[], $13::timestamptz[], $14::timestamptz[]
		)`,
		ids, users, fishTypes, values, lats, lons,
		temps, pressures, winds, dirs, degrees,
		descs, observed, created,
	)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalDB, "failed to insert ratings", err)
	}
	return nil
}

// ListSince returns every rating submitted at or after since. Only the
// fields the aggregator reads are loaded.
func (r *RatingRepository) ListSince(ctx context.Context, since time.Time) ([]types.RatingRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, fish_type_id, rating, created_at
		 FROM ratings
		 WHERE created_at >= $1`,
		since,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list ratings", err)
	}
	defer rows.Close()

	var out []types.RatingRecord
	for rows.Next() {
		var (
			rec   types.RatingRecord
			value int16
		)
		if err := rows.Scan(&rec.ID, &rec.CategoryID, &value, &rec.SubmittedAt); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan rating", err)
		}
		rec.Value = int(value)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate ratings", err)
	}
	return out, nil
}

// LastRatedByUser returns, per fish type, the latest time userID rated it at
// or after since.
func (r *RatingRepository) LastRatedByUser(ctx context.Context, userID string, since time.Time) (map[string]time.Time, error) {
	rows, err := r.db.Query(ctx,
		`SELECT fish_type_id, max(created_at)
		 FROM ratings
		 WHERE telegram_user_id = $1 AND created_at >= $2
		 GROUP BY fish_type_id`,
		userID, since,
	)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to query rating history", err)
	}
	defer rows.Close()

	out := make(map[string]time.Time)
	for rows.Next() {
		var (
			fishType string
			last     time.Time
		)
		if err := rows.Scan(&fishType, &last); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan rating history", err)
		}
		out[fishType] = last
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to iterate rating history", err)
	}
	return out, nil
}
