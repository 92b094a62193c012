package config

import (
	"testing"
)

func TestStrings(t *testing.T) {
	t.Setenv("TEST_ORIGINS", "https://a.example.com, https://b.example.com ,,")
	got := Strings("TEST_ORIGINS")
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(got) != len(want) {
		t.Fatalf("Strings = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Strings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestStrings_Unset(t *testing.T) {
	t.Setenv("TEST_ORIGINS", "")
	if got := Strings("TEST_ORIGINS"); got != nil {
		t.Fatalf("Strings = %v, want nil", got)
	}
}
