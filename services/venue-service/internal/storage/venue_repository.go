package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/fitstart-app/backend/libs/db"
	"github.com/fitstart-app/backend/services/venue-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type VenueRepository struct {
	pool *db.Pool
}

func NewVenueRepository(pool *db.Pool) *VenueRepository {
	return &VenueRepository{pool: pool}
}

func (r *VenueRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const venueColumns = `
	id, owner_id, name, COALESCE(description, ''), category,
	COALESCE(address, ''), COALESCE(city, ''),
	hourly_rate, currency, open_time, close_time,
	amenities, images, booking_count, is_active, created_at, updated_at`

func scanVenue(row pgx.Row) (model.Venue, error) {
	var v model.Venue
	err := row.Scan(
		&v.ID, &v.OwnerID, &v.Name, &v.Description, &v.Category,
		&v.Address, &v.City,
		&v.HourlyRate, &v.Currency, &v.OpenTime, &v.CloseTime,
		&v.Amenities, &v.Images, &v.BookingCount, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return model.Venue{}, err
	}
	return v, nil
}

func (r *VenueRepository) Create(ctx context.Context, tx pgx.Tx, v *model.Venue) error {
	return tx.QueryRow(ctx, `
		INSERT INTO venues
			(owner_id, name, description, category, address, city,
			 hourly_rate, currency, open_time, close_time, amenities, images)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, booking_count, is_active, created_at, updated_at
	`,
		v.OwnerID, v.Name, v.Description, v.Category, v.Address, v.City,
		v.HourlyRate, v.Currency, v.OpenTime, v.CloseTime, v.Amenities, v.Images,
	).Scan(&v.ID, &v.BookingCount, &v.IsActive, &v.CreatedAt, &v.UpdatedAt)
}

// Update rewrites the mutable fields. The owner check happens in the handler
// against the loaded row, inside the same transaction as this update.
func (r *VenueRepository) Update(ctx context.Context, tx pgx.Tx, v *model.Venue) error {
	return tx.QueryRow(ctx, `
		UPDATE venues
		SET name = $2, description = $3, category = $4, address = $5, city = $6,
			hourly_rate = $7, currency = $8, open_time = $9, close_time = $10,
			amenities = $11, images = $12, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`,
		v.ID, v.Name, v.Description, v.Category, v.Address, v.City,
		v.HourlyRate, v.Currency, v.OpenTime, v.CloseTime, v.Amenities, v.Images,
	).Scan(&v.UpdatedAt)
}

// Deactivate soft-deletes. The row stays for history and for bookings that
// still reference it.
func (r *VenueRepository) Deactivate(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE venues SET is_active = false, updated_at = now()
		WHERE id = $1 AND is_active
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *VenueRepository) Get(ctx context.Context, id string) (model.Venue, error) {
	return scanVenue(r.pool.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1`, id))
}

func (r *VenueRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Venue, error) {
	return scanVenue(tx.QueryRow(ctx,
		`SELECT `+venueColumns+` FROM venues WHERE id = $1 FOR UPDATE`, id))
}

type ListFilter struct {
	Category string
	City     string
	Search   string
	MaxRate  int64
	Page     int
	Limit    int
}

// List returns active venues, most-booked first, with optional category,
// city, free-text and price filters.
func (r *VenueRepository) List(ctx context.Context, f ListFilter) ([]model.Venue, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	where := "WHERE is_active"
	var args []any
	if f.Category != "" {
		args = append(args, f.Category)
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if f.City != "" {
		args = append(args, f.City)
		where += fmt.Sprintf(" AND city ILIKE $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(" AND (name ILIKE $%d OR description ILIKE $%d)", len(args), len(args))
	}
	if f.MaxRate > 0 {
		args = append(args, f.MaxRate)
		where += fmt.Sprintf(" AND hourly_rate <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM venues "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx,
		"SELECT "+venueColumns+" FROM venues "+where+
			fmt.Sprintf(" ORDER BY booking_count DESC, created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, 0, err
		}
		venues = append(venues, v)
	}
	return venues, total, rows.Err()
}

func (r *VenueRepository) IncrementBookingCount(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE venues SET booking_count = booking_count + 1, updated_at = now()
		WHERE id = $1
	`, id)
	return err
}

// AddFavorite is idempotent: favoriting twice is not an error.
func (r *VenueRepository) AddFavorite(ctx context.Context, userID, venueID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO favorites (user_id, venue_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, venue_id) DO NOTHING
	`, userID, venueID)
	return err
}

func (r *VenueRepository) RemoveFavorite(ctx context.Context, userID, venueID string) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM favorites WHERE user_id = $1 AND venue_id = $2
	`, userID, venueID)
	return err
}

func (r *VenueRepository) ListFavorites(ctx context.Context, userID string) ([]model.Venue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+venueColumns+`
		FROM venues
		WHERE is_active AND id IN (SELECT venue_id FROM favorites WHERE user_id = $1)
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var venues []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		venues = append(venues, v)
	}
	return venues, rows.Err()
}

// IsNotFound also treats malformed uuid input as not-found so handlers can
// 404 on garbage path ids instead of 500ing.
func IsNotFound(err error) bool {
	if errors.Is(err, pgx.ErrNoRows) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}
