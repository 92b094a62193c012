package inbox

import (
	"context"

	"github.com/fitstart-app/backend/libs/db"
	"github.com/jackc/pgx/v5/pgconn"
)

// Repository records processed event ids so replayed Kafka messages are
// applied at most once. Every service schema carries an inbox_events table.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record returns false when the event id was already seen.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}
	return false, err
}

// Delete removes a recorded event id so the event can be applied again.
// Consumers call it when the handler fails after Record, otherwise the
// failed event would be treated as processed on redelivery.
func (r *Repository) Delete(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID)
	return err
}
