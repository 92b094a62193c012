package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fitstart-app/backend/libs/db"
	"github.com/fitstart-app/backend/services/booking-service/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type BookingRepository struct {
	pool *db.Pool
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockVenueDate serializes create requests per venue+date for the duration of
// the transaction. The conflict re-check and the insert must both happen
// after this lock is held; a conflict check done outside the transaction is
// advisory only.
func (r *BookingRepository) LockVenueDate(ctx context.Context, tx pgx.Tx, venueID string, date time.Time) error {
	key := venueID + ":" + date.Format("2006-01-02")
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}

type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ListActiveSlots returns the time slots of every pending or confirmed
// booking for the venue on the given date. Cancelled, completed and no_show
// bookings do not block new reservations.
func (r *BookingRepository) ListActiveSlots(ctx context.Context, venueID string, date time.Time) ([]model.TimeSlot, error) {
	return listActiveSlots(ctx, r.pool, venueID, date)
}

// ListActiveSlotsTx is the same query run inside the caller's transaction,
// i.e. under the venue+date advisory lock.
func (r *BookingRepository) ListActiveSlotsTx(ctx context.Context, tx pgx.Tx, venueID string, date time.Time) ([]model.TimeSlot, error) {
	return listActiveSlots(ctx, tx, venueID, date)
}

func listActiveSlots(ctx context.Context, q rowQuerier, venueID string, date time.Time) ([]model.TimeSlot, error) {
	rows, err := q.Query(ctx, `
		SELECT time_slots
		FROM bookings
		WHERE venue_id = $1
			AND booking_date = $2
			AND booking_status IN ('pending', 'confirmed')
	`, venueID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var booked []model.TimeSlot
	for rows.Next() {
		var ts []model.TimeSlot
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		booked = append(booked, ts...)
	}
	return booked, rows.Err()
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) error {
	return tx.QueryRow(ctx, `
		INSERT INTO bookings
			(user_id, venue_id, booking_date, time_slots, total_hours,
			 hourly_rate, total_amount, currency,
			 payment_status, payment_method, payment_order_id,
			 booking_status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`,
		b.UserID, b.VenueID, b.BookingDate, b.TimeSlots, b.TotalHours,
		b.Pricing.HourlyRate, b.Pricing.TotalAmount, b.Pricing.Currency,
		b.Payment.Status, b.Payment.Method, b.Payment.OrderID,
		b.Status, b.Notes,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

const bookingColumns = `
	id, user_id, venue_id, booking_date, time_slots, total_hours,
	hourly_rate, total_amount, currency,
	payment_status, payment_method, COALESCE(payment_order_id, ''),
	COALESCE(payment_id, ''), COALESCE(payment_signature, ''), paid_at,
	booking_status, COALESCE(cancellation_reason, ''), cancelled_at,
	COALESCE(notes, ''), created_at, updated_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	err := row.Scan(
		&b.ID, &b.UserID, &b.VenueID, &b.BookingDate, &b.TimeSlots, &b.TotalHours,
		&b.Pricing.HourlyRate, &b.Pricing.TotalAmount, &b.Pricing.Currency,
		&b.Payment.Status, &b.Payment.Method, &b.Payment.OrderID,
		&b.Payment.PaymentID, &b.Payment.Signature, &b.Payment.PaidAt,
		&b.Status, &b.CancellationReason, &b.CancelledAt,
		&b.Notes, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Booking, error) {
	return scanBooking(r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Booking, error) {
	return scanBooking(tx.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id))
}

// ConfirmPayment moves a booking from pending to confirmed in a single
// conditional update. Zero rows affected means the booking was not awaiting
// payment (already confirmed, cancelled or terminal) and nothing is mutated.
func (r *BookingRepository) ConfirmPayment(ctx context.Context, tx pgx.Tx, id, paymentID, signature string) (time.Time, error) {
	var paidAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET payment_status = 'completed',
			payment_id = $2,
			payment_signature = $3,
			paid_at = now(),
			booking_status = 'confirmed',
			updated_at = now()
		WHERE id = $1
			AND booking_status = 'pending'
			AND payment_status = 'pending'
		RETURNING paid_at
	`, id, paymentID, signature).Scan(&paidAt)
	return paidAt, err
}

// Cancel is the conditional counterpart for pending|confirmed -> cancelled.
func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, id, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET booking_status = 'cancelled',
			cancellation_reason = $2,
			cancelled_at = now(),
			updated_at = now()
		WHERE id = $1
			AND booking_status IN ('pending', 'confirmed')
		RETURNING cancelled_at
	`, id, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

type ListFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
	Page   int
	Limit  int
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string, f ListFilter) ([]model.Booking, int, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}

	where := "WHERE user_id = $1"
	args := []any{userID}
	if f.Status != "" {
		args = append(args, f.Status)
		where += fmt.Sprintf(" AND booking_status = $%d", len(args))
	}
	if f.From != nil {
		args = append(args, *f.From)
		where += fmt.Sprintf(" AND booking_date >= $%d", len(args))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where += fmt.Sprintf(" AND booking_date <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT count(*) FROM bookings "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	rows, err := r.pool.Query(ctx,
		"SELECT "+bookingColumns+" FROM bookings "+where+
			fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	return bookings, total, rows.Err()
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
