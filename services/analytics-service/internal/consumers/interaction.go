package consumers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/fitstart-app/backend/services/analytics-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

type interactionEvent struct {
	UserID          string    `json:"userId"`
	VenueID         string    `json:"venueId"`
	InteractionType string    `json:"interactionType"`
	OccurredAt      time.Time `json:"occurredAt"`
}

var knownKinds = map[string]bool{
	"view":       true,
	"favorite":   true,
	"unfavorite": true,
	"booking":    true,
}

// InteractionRecorded ingests interaction.recorded.v1 events into the raw
// table and the daily rollup.
func InteractionRecorded(logger *slog.Logger, repo *storage.InteractionRepository) kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt interactionEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode interaction.recorded.v1: %w", err)
		}
		if evt.UserID == "" || evt.VenueID == "" {
			return fmt.Errorf("interaction.recorded.v1 missing userId or venueId")
		}
		if !knownKinds[evt.InteractionType] {
			return fmt.Errorf("interaction.recorded.v1 unknown type %q", evt.InteractionType)
		}
		if evt.OccurredAt.IsZero() {
			evt.OccurredAt = time.Now().UTC()
		}

		err := repo.Record(ctx, storage.Interaction{
			UserID:     evt.UserID,
			VenueID:    evt.VenueID,
			Kind:       evt.InteractionType,
			OccurredAt: evt.OccurredAt,
		})
		if err != nil {
			return err
		}
		logger.Debug("interaction recorded", "venue_id", evt.VenueID, "kind", evt.InteractionType)
		return nil
	}
}
