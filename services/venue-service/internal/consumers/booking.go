package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/fitstart-app/backend/services/venue-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type bookingConfirmedEvent struct {
	BookingID string `json:"bookingId"`
	VenueID   string `json:"venueId"`
}

// BookingConfirmed bumps the venue's booking counter when a booking is paid.
// The counter feeds popularity ranking; exactly-once is guaranteed by the
// inbox dedup in front of this handler, not by the update itself.
func BookingConfirmed(logger *slog.Logger, venues *storage.VenueRepository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt bookingConfirmedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode booking.confirmed.v1: %w", err)
		}
		if evt.VenueID == "" {
			return fmt.Errorf("booking.confirmed.v1 missing venueId")
		}
		if err := venues.IncrementBookingCount(ctx, evt.VenueID); err != nil {
			return err
		}
		logger.Debug("booking count incremented", "venue_id", evt.VenueID, "booking_id", evt.BookingID)
		return nil
	}
}
