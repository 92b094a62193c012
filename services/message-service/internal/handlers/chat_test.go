package handlers

import (
	"strings"
	"testing"

	"github.com/fitstart-app/backend/services/message-service/internal/model"
)

func TestValidateBody(t *testing.T) {
	if _, fieldErr := validateBody(""); fieldErr == nil {
		t.Fatal("empty message accepted")
	}
	if _, fieldErr := validateBody("   \t\n"); fieldErr == nil {
		t.Fatal("whitespace-only message accepted")
	}
	if _, fieldErr := validateBody(strings.Repeat("x", model.MaxMessageLength+1)); fieldErr == nil {
		t.Fatal("over-length message accepted")
	}

	body, fieldErr := validateBody("  hello there  ")
	if fieldErr != nil {
		t.Fatalf("valid message rejected: %v", fieldErr)
	}
	if body != "hello there" {
		t.Fatalf("body = %q, want trimmed", body)
	}
}

func TestPreview(t *testing.T) {
	short := "see you at 10"
	if got := preview(short); got != short {
		t.Fatalf("preview = %q, want unchanged", got)
	}

	long := strings.Repeat("a", 500)
	got := preview(long)
	if len(got) != 120 {
		t.Fatalf("preview length = %d, want 120", len(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Fatal("preview is not a prefix of the body")
	}
}
