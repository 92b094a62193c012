package consumers

import (
	"context"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestInteractionRecordedRejectsBadPayloads(t *testing.T) {
	h := InteractionRecorded(slog.Default(), nil)

	cases := []struct {
		name  string
		value string
	}{
		{"not json", `{{{`},
		{"missing user", `{"venueId":"v1","interactionType":"view"}`},
		{"missing venue", `{"userId":"u1","interactionType":"view"}`},
		{"unknown kind", `{"userId":"u1","venueId":"v1","interactionType":"teleport"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := h(context.Background(), kafka.Message{Value: []byte(tc.value)})
			if err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
