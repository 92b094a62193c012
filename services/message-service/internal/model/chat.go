package model

import "time"

// MaxMessageLength bounds a single chat message body.
const MaxMessageLength = 2000

// Conversation is a thread between a customer and a venue owner about one
// venue. The (venue, user) pair is unique; starting it again returns the
// existing thread.
type Conversation struct {
	ID            string
	VenueID       string
	UserID        string
	OwnerID       string
	LastMessage   string
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (c Conversation) HasParticipant(id string) bool {
	return id == c.UserID || id == c.OwnerID
}

// Recipient returns the participant on the other side from the sender.
func (c Conversation) Recipient(senderID string) string {
	if senderID == c.OwnerID {
		return c.UserID
	}
	return c.OwnerID
}

type Message struct {
	ID             string
	ConversationID string
	SenderID       string
	Body           string
	IsRead         bool
	CreatedAt      time.Time
}
