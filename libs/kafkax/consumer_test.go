package kafkax

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
)

type fakeInbox struct {
	seen     map[string]bool
	recorded []string
	deleted  []string
}

func newFakeInbox() *fakeInbox {
	return &fakeInbox{seen: map[string]bool{}}
}

func (f *fakeInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	f.recorded = append(f.recorded, eventID)
	return true, nil
}

func (f *fakeInbox) Delete(_ context.Context, eventID string) error {
	delete(f.seen, eventID)
	f.deleted = append(f.deleted, eventID)
	return nil
}

func testMessage(eventID string) kafka.Message {
	return kafka.Message{
		Topic: "booking.confirmed.v1",
		Key:   []byte("b1"),
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(eventID)},
			{Key: "event_type", Value: []byte("booking.confirmed.v1")},
		},
	}
}

func TestProcessMessage_DuplicateSkipsHandler(t *testing.T) {
	store := newFakeInbox()
	calls := 0
	c := &Consumer{
		logger: slog.Default(),
		inbox:  store,
		handler: func(context.Context, kafka.Message) error {
			calls++
			return nil
		},
	}

	msg := testMessage("ev-1")
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestProcessMessage_HandlerErrorReleasesInbox(t *testing.T) {
	store := newFakeInbox()
	attempts := 0
	c := &Consumer{
		logger: slog.Default(),
		inbox:  store,
		handler: func(context.Context, kafka.Message) error {
			attempts++
			if attempts == 1 {
				return errors.New("downstream unavailable")
			}
			return nil
		},
	}

	msg := testMessage("ev-2")
	if err := c.processMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error from first attempt")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "ev-2" {
		t.Fatalf("inbox record not released: deleted=%v", store.deleted)
	}

	// The redelivery must be applied, not dropped as a duplicate.
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("handler ran %d times, want 2", attempts)
	}
}

func TestProcessMessage_SuccessKeepsRecord(t *testing.T) {
	store := newFakeInbox()
	c := &Consumer{
		logger:  slog.Default(),
		inbox:   store,
		handler: func(context.Context, kafka.Message) error { return nil },
	}

	if err := c.processMessage(context.Background(), testMessage("ev-3")); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.deleted) != 0 {
		t.Fatalf("record deleted on success: %v", store.deleted)
	}
	if !store.seen["ev-3"] {
		t.Fatal("event id not recorded")
	}
}
