package slots

import "testing"

func TestOverlaps_Symmetry(t *testing.T) {
	pairs := []struct {
		a, b Slot
		want bool
	}{
		{Slot{"18:00", "19:00"}, Slot{"18:30", "19:30"}, true},
		{Slot{"18:00", "19:00"}, Slot{"19:00", "20:00"}, false}, // back-to-back
		{Slot{"09:00", "10:00"}, Slot{"10:00", "11:00"}, false},
		{Slot{"09:00", "12:00"}, Slot{"10:00", "11:00"}, true}, // containment
		{Slot{"09:00", "10:00"}, Slot{"09:00", "10:00"}, true}, // identical
		{Slot{"08:00", "09:00"}, Slot{"17:00", "18:00"}, false},
	}
	for _, p := range pairs {
		if got := Overlaps(p.a, p.b); got != p.want {
			t.Errorf("Overlaps(%v, %v) = %v, want %v", p.a, p.b, got, p.want)
		}
		if Overlaps(p.a, p.b) != Overlaps(p.b, p.a) {
			t.Errorf("Overlaps(%v, %v) not symmetric", p.a, p.b)
		}
	}
}

func TestHasConflict(t *testing.T) {
	existing := []Slot{{"18:00", "19:00"}}

	if !HasConflict([]Slot{{"18:30", "19:30"}}, existing) {
		t.Fatal("expected conflict for 18:30-19:30 against 18:00-19:00")
	}
	if HasConflict([]Slot{{"19:00", "20:00"}}, existing) {
		t.Fatal("back-to-back slot must not conflict")
	}
	// One bad slot rejects the whole candidate set.
	if !HasConflict([]Slot{{"07:00", "08:00"}, {"18:45", "19:15"}}, existing) {
		t.Fatal("any overlapping candidate slot must flag a conflict")
	}
	if HasConflict([]Slot{{"07:00", "08:00"}}, nil) {
		t.Fatal("no existing bookings means no conflict")
	}
}

func TestTotalHours(t *testing.T) {
	got, err := TotalHours([]Slot{{"18:00", "19:00"}, {"19:00", "20:00"}})
	if err != nil {
		t.Fatalf("TotalHours: %v", err)
	}
	if got != 2 {
		t.Fatalf("TotalHours = %d, want 2", got)
	}
}

func TestParseClock(t *testing.T) {
	valid := map[string]int{
		"00:00": 0,
		"09:30": 9*60 + 30,
		"23:59": 23*60 + 59,
	}
	for in, want := range valid {
		got, err := ParseClock(in)
		if err != nil {
			t.Errorf("ParseClock(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseClock(%q) = %d, want %d", in, got, want)
		}
	}

	for _, in := range []string{"24:00", "9:30", "09:60", "0930", "ab:cd", "", "09:3"} {
		if _, err := ParseClock(in); err == nil {
			t.Errorf("ParseClock(%q): expected error", in)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate([]Slot{{"18:00", "19:00"}, {"19:00", "20:00"}}); err != nil {
		t.Fatalf("valid set rejected: %v", err)
	}
	if err := Validate(nil); err == nil {
		t.Fatal("empty set must be rejected")
	}
	if err := Validate([]Slot{{"19:00", "18:00"}}); err == nil {
		t.Fatal("inverted slot must be rejected")
	}
	if err := Validate([]Slot{{"18:00", "19:00"}, {"18:30", "19:30"}}); err == nil {
		t.Fatal("self-overlapping set must be rejected")
	}
}

func TestWithinWindow(t *testing.T) {
	if !WithinWindow([]Slot{{"09:00", "10:00"}}, "06:00", "22:00") {
		t.Fatal("slot inside operating hours rejected")
	}
	if WithinWindow([]Slot{{"05:00", "07:00"}}, "06:00", "22:00") {
		t.Fatal("slot before opening accepted")
	}
	if WithinWindow([]Slot{{"21:00", "23:00"}}, "06:00", "22:00") {
		t.Fatal("slot past closing accepted")
	}
}
