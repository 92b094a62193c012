package consumers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fitstart-app/backend/libs/kafkax"
	"github.com/segmentio/kafka-go"
)

type messageSentEvent struct {
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
	VenueID        string `json:"venueId"`
	VenueName      string `json:"venueName"`
	SenderID       string `json:"senderId"`
	RecipientID    string `json:"recipientId"`
	Preview        string `json:"preview"`
}

// MessageSent notifies the recipient of a new chat message. The preview is
// already truncated by the sender; the full text lives in message-service.
func (n *Notifier) MessageSent() kafkax.Handler {
	return func(ctx context.Context, msg kafka.Message) error {
		var evt messageSentEvent
		if err := json.Unmarshal(msg.Value, &evt); err != nil {
			return fmt.Errorf("decode message.sent.v1: %w", err)
		}
		if evt.RecipientID == "" {
			return fmt.Errorf("message.sent.v1 missing recipientId")
		}

		body := evt.Preview
		if body == "" {
			body = "You have a new message."
		}
		title := "New Message"
		if evt.VenueName != "" {
			title = fmt.Sprintf("New message about %s", evt.VenueName)
		}
		return n.deliver(ctx, evt.RecipientID, title, body, map[string]string{
			"type":           "message_sent",
			"conversationId": evt.ConversationID,
			"messageId":      evt.MessageID,
			"venueId":        evt.VenueID,
		})
	}
}
