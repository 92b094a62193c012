package storage

import (
	"context"
	"time"

	"github.com/fitstart-app/backend/libs/db"
)

// Venue is the chat service's local read model of the venue catalog, kept
// current by consuming venue.updated.v1 events. Chat only needs to resolve
// a venue to its owner and display name.
type Venue struct {
	ID        string
	OwnerID   string
	Name      string
	IsActive  bool
	UpdatedAt time.Time
}

type VenueReadModel struct {
	pool *db.Pool
}

func NewVenueReadModel(pool *db.Pool) *VenueReadModel {
	return &VenueReadModel{pool: pool}
}

// Get returns only active venues; conversations cannot be started against a
// deactivated listing.
func (r *VenueReadModel) Get(ctx context.Context, id string) (Venue, error) {
	var v Venue
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name, is_active, updated_at
		FROM venues
		WHERE id = $1 AND is_active
	`, id).Scan(&v.ID, &v.OwnerID, &v.Name, &v.IsActive, &v.UpdatedAt)
	if err != nil {
		return Venue{}, err
	}
	return v, nil
}

func (r *VenueReadModel) Upsert(ctx context.Context, v Venue) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO venues (id, owner_id, name, is_active, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			is_active = EXCLUDED.is_active,
			updated_at = now()
	`, v.ID, v.OwnerID, v.Name, v.IsActive)
	return err
}
