package storage

import (
	"context"
	"time"

	"github.com/fitstart-app/backend/libs/db"
)

// Venue is the booking service's local read model of the venue catalog,
// kept current by consuming venue.updated.v1 events. Only the fields the
// booking engine needs are cached; the catalog itself lives in venue-service.
type Venue struct {
	ID         string
	Name       string
	HourlyRate int64
	Currency   string
	OpenTime   string
	CloseTime  string
	IsActive   bool
	UpdatedAt  time.Time
}

type VenueReadModel struct {
	pool *db.Pool
}

func NewVenueReadModel(pool *db.Pool) *VenueReadModel {
	return &VenueReadModel{pool: pool}
}

// Get returns only active venues; a deactivated venue is indistinguishable
// from a missing one for booking purposes.
func (r *VenueReadModel) Get(ctx context.Context, id string) (Venue, error) {
	var v Venue
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, hourly_rate, currency, open_time, close_time, is_active, updated_at
		FROM venues
		WHERE id = $1 AND is_active
	`, id).Scan(&v.ID, &v.Name, &v.HourlyRate, &v.Currency, &v.OpenTime, &v.CloseTime, &v.IsActive, &v.UpdatedAt)
	if err != nil {
		return Venue{}, err
	}
	return v, nil
}

func (r *VenueReadModel) Upsert(ctx context.Context, v Venue) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO venues (id, name, hourly_rate, currency, open_time, close_time, is_active, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name,
			hourly_rate = EXCLUDED.hourly_rate,
			currency = EXCLUDED.currency,
			open_time = EXCLUDED.open_time,
			close_time = EXCLUDED.close_time,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, v.ID, v.Name, v.HourlyRate, v.Currency, v.OpenTime, v.CloseTime, v.IsActive)
	return err
}
