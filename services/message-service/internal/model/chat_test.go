package model

import "testing"

func TestConversationParticipants(t *testing.T) {
	c := Conversation{UserID: "u1", OwnerID: "o1"}

	if !c.HasParticipant("u1") || !c.HasParticipant("o1") {
		t.Fatal("participants not recognized")
	}
	if c.HasParticipant("stranger") {
		t.Fatal("non-participant recognized")
	}
}

func TestConversationRecipient(t *testing.T) {
	c := Conversation{UserID: "u1", OwnerID: "o1"}

	if got := c.Recipient("u1"); got != "o1" {
		t.Fatalf("recipient for customer = %q, want o1", got)
	}
	if got := c.Recipient("o1"); got != "u1" {
		t.Fatalf("recipient for owner = %q, want u1", got)
	}
}
