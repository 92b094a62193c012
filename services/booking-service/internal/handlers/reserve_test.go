package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fitstart-app/backend/services/booking-service/internal/model"
)

// fakeReserver plays the role of the locked transaction: ActiveSlots sees
// every booking a previous reservation inserted.
type fakeReserver struct {
	held  []model.TimeSlot
	calls []string
}

func (f *fakeReserver) Lock(context.Context, string, time.Time) error {
	f.calls = append(f.calls, "lock")
	return nil
}

func (f *fakeReserver) ActiveSlots(context.Context, string, time.Time) ([]model.TimeSlot, error) {
	f.calls = append(f.calls, "read")
	return f.held, nil
}

func (f *fakeReserver) Insert(_ context.Context, b *model.Booking) error {
	f.calls = append(f.calls, "insert")
	f.held = append(f.held, b.TimeSlots...)
	return nil
}

func newBooking(ts ...model.TimeSlot) *model.Booking {
	return &model.Booking{
		VenueID:     "venue-1",
		BookingDate: time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
		TimeSlots:   ts,
	}
}

func TestReserveSlots_OverlapLosesRace(t *testing.T) {
	store := &fakeReserver{}
	first := newBooking(model.TimeSlot{StartTime: "10:00", EndTime: "12:00"})
	second := newBooking(model.TimeSlot{StartTime: "11:00", EndTime: "13:00"})

	// Both requests passed the pre-check against an empty calendar. Under
	// the lock, only the first insert goes through.
	if err := reserveSlots(context.Background(), store, first, toSlots(first.TimeSlots)); err != nil {
		t.Fatalf("first reservation: %v", err)
	}
	err := reserveSlots(context.Background(), store, second, toSlots(second.TimeSlots))
	if !errors.Is(err, errSlotsTaken) {
		t.Fatalf("second reservation err = %v, want errSlotsTaken", err)
	}
	if len(store.held) != 1 {
		t.Fatalf("%d slot entries held, want 1", len(store.held))
	}
}

func TestReserveSlots_DisjointSucceeds(t *testing.T) {
	store := &fakeReserver{}
	first := newBooking(model.TimeSlot{StartTime: "10:00", EndTime: "12:00"})
	second := newBooking(model.TimeSlot{StartTime: "12:00", EndTime: "14:00"})

	if err := reserveSlots(context.Background(), store, first, toSlots(first.TimeSlots)); err != nil {
		t.Fatalf("first reservation: %v", err)
	}
	if err := reserveSlots(context.Background(), store, second, toSlots(second.TimeSlots)); err != nil {
		t.Fatalf("adjacent reservation: %v", err)
	}
	if len(store.held) != 2 {
		t.Fatalf("%d slot entries held, want 2", len(store.held))
	}
}

func TestReserveSlots_LockPrecedesRead(t *testing.T) {
	store := &fakeReserver{}
	b := newBooking(model.TimeSlot{StartTime: "09:00", EndTime: "10:00"})

	if err := reserveSlots(context.Background(), store, b, toSlots(b.TimeSlots)); err != nil {
		t.Fatalf("reservation: %v", err)
	}
	want := []string{"lock", "read", "insert"}
	if len(store.calls) != len(want) {
		t.Fatalf("calls = %v, want %v", store.calls, want)
	}
	for i := range want {
		if store.calls[i] != want[i] {
			t.Fatalf("calls = %v, want %v", store.calls, want)
		}
	}
}

func TestReserveSlots_LockErrorAborts(t *testing.T) {
	b := newBooking(model.TimeSlot{StartTime: "09:00", EndTime: "10:00"})
	err := reserveSlots(context.Background(), failingLock{}, b, toSlots(b.TimeSlots))
	if err == nil {
		t.Fatal("expected lock error")
	}
}

type failingLock struct{}

func (failingLock) Lock(context.Context, string, time.Time) error {
	return errors.New("lock unavailable")
}

func (failingLock) ActiveSlots(context.Context, string, time.Time) ([]model.TimeSlot, error) {
	return nil, nil
}

func (failingLock) Insert(context.Context, *model.Booking) error {
	return nil
}
