package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/fitstart-app/backend/services/booking-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type venueUpdatedEvent struct {
	VenueID    string `json:"venueId"`
	Name       string `json:"name"`
	HourlyRate int64  `json:"hourlyRate"`
	Currency   string `json:"currency"`
	OpenTime   string `json:"openTime"`
	CloseTime  string `json:"closeTime"`
	IsActive   bool   `json:"isActive"`
}

// VenueUpdated applies venue.updated.v1 events to the local venue read model.
// The catalog service emits one on every create, update and deactivate, so
// the read model converges without ever querying the catalog directly.
func VenueUpdated(logger *slog.Logger, venues *storage.VenueReadModel) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt venueUpdatedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode venue.updated.v1: %w", err)
		}
		if evt.VenueID == "" {
			return fmt.Errorf("venue.updated.v1 missing venueId")
		}

		err := venues.Upsert(ctx, storage.Venue{
			ID:         evt.VenueID,
			Name:       evt.Name,
			HourlyRate: evt.HourlyRate,
			Currency:   evt.Currency,
			OpenTime:   evt.OpenTime,
			CloseTime:  evt.CloseTime,
			IsActive:   evt.IsActive,
		})
		if err != nil {
			return err
		}
		logger.Debug("venue read model updated", "venue_id", evt.VenueID, "is_active", evt.IsActive)
		return nil
	}
}
