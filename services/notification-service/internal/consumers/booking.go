package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/fitstart-app/backend/services/notification-service/internal/push"
	"github.com/fitstart-app/backend/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type timeSlot struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type bookingConfirmedEvent struct {
	BookingID   string     `json:"bookingId"`
	UserID      string     `json:"userId"`
	VenueID     string     `json:"venueId"`
	VenueName   string     `json:"venueName"`
	BookingDate string     `json:"bookingDate"`
	TimeSlots   []timeSlot `json:"timeSlots"`
}

type bookingCancelledEvent struct {
	BookingID   string `json:"bookingId"`
	UserID      string `json:"userId"`
	VenueID     string `json:"venueId"`
	VenueName   string `json:"venueName"`
	BookingDate string `json:"bookingDate"`
	Reason      string `json:"reason"`
}

// Notifier stores a notification per event and fans it out to every device
// token registered for the user. Push failures are logged and swallowed; the
// stored notification is the durable copy.
type Notifier struct {
	logger *slog.Logger
	repo   *storage.NotificationRepository
	sender push.Sender
}

func NewNotifier(logger *slog.Logger, repo *storage.NotificationRepository, sender push.Sender) *Notifier {
	return &Notifier{logger: logger, repo: repo, sender: sender}
}

func (n *Notifier) BookingConfirmed() kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt bookingConfirmedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode booking.confirmed.v1: %w", err)
		}
		if evt.UserID == "" {
			return fmt.Errorf("booking.confirmed.v1 missing userId")
		}

		venue := evt.VenueName
		if venue == "" {
			venue = "your venue"
		}
		body := fmt.Sprintf("Your booking at %s on %s is confirmed.", venue, evt.BookingDate)
		return n.deliver(ctx, evt.UserID, "Booking Confirmed!", body, map[string]string{
			"type":      "booking_confirmed",
			"bookingId": evt.BookingID,
			"venueId":   evt.VenueID,
		})
	}
}

func (n *Notifier) BookingCancelled() kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt bookingCancelledEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode booking.cancelled.v1: %w", err)
		}
		if evt.UserID == "" {
			return fmt.Errorf("booking.cancelled.v1 missing userId")
		}

		venue := evt.VenueName
		if venue == "" {
			venue = "your venue"
		}
		body := fmt.Sprintf("Your booking at %s on %s was cancelled.", venue, evt.BookingDate)
		return n.deliver(ctx, evt.UserID, "Booking Cancelled", body, map[string]string{
			"type":      "booking_cancelled",
			"bookingId": evt.BookingID,
			"venueId":   evt.VenueID,
		})
	}
}

func (n *Notifier) deliver(ctx context.Context, userID, title, body string, data map[string]string) error {
	notification := storage.Notification{
		UserID: userID,
		Title:  title,
		Body:   body,
		Data:   data,
	}
	if err := n.repo.Insert(ctx, &notification); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}

	tokens, err := n.repo.ListDeviceTokens(ctx, userID)
	if err != nil {
		n.logger.Error("list device tokens", "err", err, "user_id", userID)
		return nil
	}
	for _, t := range tokens {
		if err := n.sender.Send(ctx, t.Token, title, body, data); err != nil {
			n.logger.Warn("push delivery failed", "err", err, "user_id", userID, "platform", t.Platform)
		}
	}
	return nil
}

type deviceRegisteredEvent struct {
	UserID       string `json:"userId"`
	Token        string `json:"token"`
	Platform     string `json:"platform"`
	RegisteredAt string `json:"registeredAt"`
}

// DeviceRegistered keeps the local device token read model current.
func DeviceRegistered(logger *slog.Logger, repo *storage.NotificationRepository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt deviceRegisteredEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode user.device.registered.v1: %w", err)
		}
		if evt.UserID == "" || evt.Token == "" {
			return fmt.Errorf("user.device.registered.v1 missing userId or token")
		}

		registeredAt, err := parseEventTime(evt.RegisteredAt)
		if err != nil {
			return fmt.Errorf("user.device.registered.v1 bad registeredAt: %w", err)
		}
		err = repo.UpsertDeviceToken(ctx, storage.DeviceToken{
			UserID:       evt.UserID,
			Token:        evt.Token,
			Platform:     evt.Platform,
			RegisteredAt: registeredAt,
		})
		if err != nil {
			return err
		}
		logger.Debug("device token registered", "user_id", evt.UserID, "platform", evt.Platform)
		return nil
	}
}

func parseEventTime(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	return time.Parse(time.RFC3339, s)
}
