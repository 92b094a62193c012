package storage

import (
	"context"
	"time"

	"github.com/fitstart-app/backend/libs/db"
)

// Interaction is one user-venue touch point (view, favorite, booking).
// The raw rows feed future recommendation work; the daily rollup serves the
// summary endpoint without scanning them.
type Interaction struct {
	ID         string
	UserID     string
	VenueID    string
	Kind       string
	OccurredAt time.Time
}

type DailyCount struct {
	Day   time.Time
	Kind  string
	Count int64
}

type InteractionRepository struct {
	pool *db.Pool
}

func NewInteractionRepository(pool *db.Pool) *InteractionRepository {
	return &InteractionRepository{pool: pool}
}

// Record stores the raw interaction and bumps the daily rollup in one
// transaction.
func (r *InteractionRepository) Record(ctx context.Context, in Interaction) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO interactions (user_id, venue_id, kind, occurred_at)
		VALUES ($1, $2, $3, $4)
	`, in.UserID, in.VenueID, in.Kind, in.OccurredAt); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO interaction_daily (venue_id, day, kind, count)
		VALUES ($1, $2::date, $3, 1)
		ON CONFLICT (venue_id, day, kind) DO UPDATE
		SET count = interaction_daily.count + 1
	`, in.VenueID, in.OccurredAt, in.Kind); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// VenueSummary returns per-kind daily counts for the venue over the last
// `days` days, newest first.
func (r *InteractionRepository) VenueSummary(ctx context.Context, venueID string, days int) ([]DailyCount, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	rows, err := r.pool.Query(ctx, `
		SELECT day, kind, count
		FROM interaction_daily
		WHERE venue_id = $1 AND day >= current_date - $2::int
		ORDER BY day DESC, kind
	`, venueID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		if err := rows.Scan(&dc.Day, &dc.Kind, &dc.Count); err != nil {
			return nil, err
		}
		out = append(out, dc)
	}
	return out, rows.Err()
}

type TopVenue struct {
	VenueID string
	Total   int64
}

// TopVenues ranks venues by total interactions over the last `days` days.
func (r *InteractionRepository) TopVenues(ctx context.Context, days, limit int) ([]TopVenue, error) {
	if days <= 0 || days > 365 {
		days = 30
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT venue_id, sum(count) AS total
		FROM interaction_daily
		WHERE day >= current_date - $1::int
		GROUP BY venue_id
		ORDER BY total DESC
		LIMIT $2
	`, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopVenue
	for rows.Next() {
		var row TopVenue
		if err := rows.Scan(&row.VenueID, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
