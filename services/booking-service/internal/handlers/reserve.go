package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/fitstart-app/backend/services/booking-service/internal/model"
	"github.com/fitstart-app/backend/services/booking-service/internal/slots"
	"github.com/fitstart-app/backend/services/booking-service/internal/storage"
	"github.com/jackc/pgx/v5"
)

var errSlotsTaken = errors.New("time slots no longer available")

// slotReserver is the transactional surface a reservation needs: serialize
// writers on the venue+date, read the slots already held, insert the booking.
type slotReserver interface {
	Lock(ctx context.Context, venueID string, date time.Time) error
	ActiveSlots(ctx context.Context, venueID string, date time.Time) ([]model.TimeSlot, error)
	Insert(ctx context.Context, b *model.Booking) error
}

// reserveSlots re-checks for overlap under the venue+date lock before
// inserting. Two concurrent requests for overlapping slots both pass the
// cheap pre-check; the lock ensures the second one sees the first one's
// insert here and fails with errSlotsTaken.
func reserveSlots(ctx context.Context, r slotReserver, b *model.Booking, candidate []slots.Slot) error {
	if err := r.Lock(ctx, b.VenueID, b.BookingDate); err != nil {
		return err
	}
	existing, err := r.ActiveSlots(ctx, b.VenueID, b.BookingDate)
	if err != nil {
		return err
	}
	if slots.HasConflict(candidate, toSlots(existing)) {
		return errSlotsTaken
	}
	return r.Insert(ctx, b)
}

// txReserver runs a reservation inside a repository transaction. The
// advisory lock taken by Lock is released when the transaction ends.
type txReserver struct {
	repo *storage.BookingRepository
	tx   pgx.Tx
}

func (t txReserver) Lock(ctx context.Context, venueID string, date time.Time) error {
	return t.repo.LockVenueDate(ctx, t.tx, venueID, date)
}

func (t txReserver) ActiveSlots(ctx context.Context, venueID string, date time.Time) ([]model.TimeSlot, error) {
	return t.repo.ListActiveSlotsTx(ctx, t.tx, venueID, date)
}

func (t txReserver) Insert(ctx context.Context, b *model.Booking) error {
	return t.repo.Create(ctx, t.tx, b)
}
