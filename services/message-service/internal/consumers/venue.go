package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/fitstart-app/backend/services/message-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type venueUpdatedEvent struct {
	VenueID  string `json:"venueId"`
	OwnerID  string `json:"ownerId"`
	Name     string `json:"name"`
	IsActive bool   `json:"isActive"`
}

// VenueUpdated applies venue.updated.v1 events to the local venue read model
// so conversations can resolve a venue to its owner without calling the
// catalog service.
func VenueUpdated(logger *slog.Logger, venues *storage.VenueReadModel) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt venueUpdatedEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode venue.updated.v1: %w", err)
		}
		if evt.VenueID == "" || evt.OwnerID == "" {
			return fmt.Errorf("venue.updated.v1 missing venueId or ownerId")
		}

		err := venues.Upsert(ctx, storage.Venue{
			ID:       evt.VenueID,
			OwnerID:  evt.OwnerID,
			Name:     evt.Name,
			IsActive: evt.IsActive,
		})
		if err != nil {
			return err
		}
		logger.Debug("venue read model updated", "venue_id", evt.VenueID, "is_active", evt.IsActive)
		return nil
	}
}
