package consumers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestVenueUpdated_BadPayloads(t *testing.T) {
	// Error paths return before the read model is touched.
	handler := VenueUpdated(slog.Default(), nil)

	cases := []struct {
		name  string
		value string
	}{
		{"not json", "not-json"},
		{"missing venueId", `{"ownerId":"o1","name":"Court A"}`},
		{"missing ownerId", `{"venueId":"v1","name":"Court A"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := kafka.Message{Topic: "venue.updated.v1", Value: []byte(tc.value)}
			if err := handler(context.Background(), msg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
