package consumers

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestHandlersRejectBadPayloads(t *testing.T) {
	n := NewNotifier(slog.Default(), nil, nil)

	handlers := map[string]func() error{
		"confirmed not json": func() error {
			return n.BookingConfirmed()(context.Background(), kafka.Message{Value: []byte(`nope`)})
		},
		"confirmed missing user": func() error {
			return n.BookingConfirmed()(context.Background(), kafka.Message{Value: []byte(`{"bookingId":"b1"}`)})
		},
		"cancelled missing user": func() error {
			return n.BookingCancelled()(context.Background(), kafka.Message{Value: []byte(`{"bookingId":"b1"}`)})
		},
		"device missing token": func() error {
			h := DeviceRegistered(slog.Default(), nil)
			return h(context.Background(), kafka.Message{Value: []byte(`{"userId":"u1"}`)})
		},
		"message not json": func() error {
			return n.MessageSent()(context.Background(), kafka.Message{Value: []byte(`nope`)})
		},
		"message missing recipient": func() error {
			return n.MessageSent()(context.Background(), kafka.Message{Value: []byte(`{"conversationId":"c1","senderId":"u1"}`)})
		},
	}
	for name, fn := range handlers {
		if err := fn(); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestParseEventTime(t *testing.T) {
	got, err := parseEventTime("2026-03-01T10:30:00Z")
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("got %v, want %v", got, want)
	}

	if _, err := parseEventTime("yesterday"); err == nil {
		t.Fatal("expected error for malformed timestamp")
	}

	fallback, err := parseEventTime("")
	if err != nil {
		t.Fatal(err)
	}
	if time.Since(fallback) > time.Minute {
		t.Fatalf("empty timestamp should default to now, got %v", fallback)
	}
}
