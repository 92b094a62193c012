package model

import (
	"errors"
	"testing"
	"time"
)

func date(daysAhead int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestCanCancel_OutsideWindow(t *testing.T) {
	b := &Booking{Status: StatusConfirmed, BookingDate: date(3)}
	if err := b.CanCancel(time.Now().UTC()); err != nil {
		t.Fatalf("expected cancellable, got %v", err)
	}
}

func TestCanCancel_InsideWindow(t *testing.T) {
	now := time.Now().UTC()
	b := &Booking{Status: StatusPending, BookingDate: now.Add(10 * time.Hour)}
	if err := b.CanCancel(now); !errors.Is(err, ErrInsideCancelWindow) {
		t.Fatalf("expected ErrInsideCancelWindow, got %v", err)
	}
}

func TestCanCancel_ExactBoundaryAllowed(t *testing.T) {
	now := time.Now().UTC()
	b := &Booking{Status: StatusConfirmed, BookingDate: now.Add(CancellationWindow)}
	if err := b.CanCancel(now); err != nil {
		t.Fatalf("24h boundary should still be cancellable, got %v", err)
	}
}

func TestCanCancel_TerminalStates(t *testing.T) {
	cases := map[string]error{
		StatusCancelled: ErrAlreadyCancelled,
		StatusCompleted: ErrTerminalState,
		StatusNoShow:    ErrTerminalState,
	}
	for status, want := range cases {
		b := &Booking{Status: status, BookingDate: date(10)}
		if err := b.CanCancel(time.Now().UTC()); !errors.Is(err, want) {
			t.Fatalf("status %s: expected %v, got %v", status, want, err)
		}
	}
}

func TestCanConfirm(t *testing.T) {
	b := &Booking{Status: StatusPending, Payment: Payment{Status: PaymentPending}}
	if err := b.CanConfirm(); err != nil {
		t.Fatalf("pending booking should be confirmable: %v", err)
	}

	b.Status = StatusConfirmed
	b.Payment.Status = PaymentCompleted
	if err := b.CanConfirm(); !errors.Is(err, ErrNotAwaitingPayment) {
		t.Fatalf("second confirm should be rejected, got %v", err)
	}
}

func TestIsActive(t *testing.T) {
	active := []string{StatusPending, StatusConfirmed}
	inactive := []string{StatusCancelled, StatusCompleted, StatusNoShow}
	for _, s := range active {
		if !(&Booking{Status: s}).IsActive() {
			t.Fatalf("%s should be active", s)
		}
	}
	for _, s := range inactive {
		if (&Booking{Status: s}).IsActive() {
			t.Fatalf("%s should not be active", s)
		}
	}
}
