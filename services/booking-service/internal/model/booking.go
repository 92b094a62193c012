package model

import (
	"errors"
	"time"
)

// Booking statuses. Cancelled, completed and no_show are terminal.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// CancellationWindow is the minimum lead time before the booking date below
// which a booking can no longer be cancelled.
const CancellationWindow = 24 * time.Hour

var (
	ErrAlreadyCancelled   = errors.New("booking is already cancelled")
	ErrTerminalState      = errors.New("booking is in a terminal state")
	ErrNotAwaitingPayment = errors.New("booking is not awaiting payment")
	ErrInsideCancelWindow = errors.New("cannot cancel booking within 24 hours of scheduled time")
)

type TimeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Pricing is a snapshot of the venue rate at booking time. It is computed
// once at creation and never recomputed from live venue pricing.
type Pricing struct {
	HourlyRate  int64  `json:"hourlyRate"`
	TotalAmount int64  `json:"totalAmount"`
	Currency    string `json:"currency"`
}

type Payment struct {
	Status    string     `json:"status"`
	Method    string     `json:"method"`
	OrderID   string     `json:"orderId"`
	PaymentID string     `json:"paymentId,omitempty"`
	Signature string     `json:"-"`
	PaidAt    *time.Time `json:"paidAt,omitempty"`
}

type Booking struct {
	ID                 string
	UserID             string
	VenueID            string
	BookingDate        time.Time // date-only, midnight UTC
	TimeSlots          []TimeSlot
	TotalHours         int
	Pricing            Pricing
	Payment            Payment
	Status             string
	CancellationReason string
	CancelledAt        *time.Time
	Notes              string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsActive reports whether the booking blocks its venue's slots.
func (b *Booking) IsActive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// CanConfirm guards the pending -> confirmed transition.
func (b *Booking) CanConfirm() error {
	if b.Status != StatusPending || b.Payment.Status != PaymentPending {
		return ErrNotAwaitingPayment
	}
	return nil
}

// CanCancel guards the pending|confirmed -> cancelled transition at the given
// wall-clock moment. The cutoff is measured against the booking's calendar
// date (midnight), matching the upstream cancellation policy.
func (b *Booking) CanCancel(now time.Time) error {
	switch b.Status {
	case StatusCancelled:
		return ErrAlreadyCancelled
	case StatusCompleted, StatusNoShow:
		return ErrTerminalState
	}
	if b.BookingDate.Sub(now) < CancellationWindow {
		return ErrInsideCancelWindow
	}
	return nil
}
