package handlers

import (
	"testing"
)

func TestVenueRequestValidate(t *testing.T) {
	valid := venueRequest{
		Name:       "Smash Arena",
		Category:   "badminton",
		HourlyRate: 500,
		OpenTime:   "06:00",
		CloseTime:  "22:00",
	}
	if errs := valid.validate(); len(errs) != 0 {
		t.Fatalf("valid request rejected: %v", errs)
	}
	if valid.Currency != "INR" {
		t.Fatalf("currency default not applied, got %q", valid.Currency)
	}

	cases := []struct {
		name  string
		mut   func(*venueRequest)
		field string
	}{
		{"missing name", func(r *venueRequest) { r.Name = "  " }, "name"},
		{"unknown category", func(r *venueRequest) { r.Category = "esports" }, "category"},
		{"zero rate", func(r *venueRequest) { r.HourlyRate = 0 }, "hourlyRate"},
		{"negative rate", func(r *venueRequest) { r.HourlyRate = -10 }, "hourlyRate"},
		{"bad clock", func(r *venueRequest) { r.OpenTime = "6:00" }, "openTime"},
		{"inverted hours", func(r *venueRequest) { r.OpenTime = "22:00"; r.CloseTime = "06:00" }, "openTime"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := valid
			tc.mut(&req)
			errs := req.validate()
			if len(errs) == 0 {
				t.Fatal("expected validation error")
			}
			found := false
			for _, e := range errs {
				if e.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected error on field %q, got %v", tc.field, errs)
			}
		})
	}
}

func TestValidClock(t *testing.T) {
	good := []string{"00:00", "06:30", "23:59"}
	for _, s := range good {
		if !validClock(s) {
			t.Errorf("validClock(%q) = false", s)
		}
	}
	bad := []string{"", "6:00", "24:00", "12:60", "12-30", "ab:cd", "12:345"}
	for _, s := range bad {
		if validClock(s) {
			t.Errorf("validClock(%q) = true", s)
		}
	}
}
