package slots

import (
	"fmt"
	"strconv"
	"strings"
)

// Slot is a half-open [Start, End) interval within one calendar day,
// expressed as zero-padded "HH:MM" clock times on a 24h clock.
type Slot struct {
	Start string
	End   string
}

// ParseClock converts "HH:MM" into minutes since midnight. The format is
// strict: two digits, a colon, two digits.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid clock time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(s[:2])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(s[3:])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}

// Validate checks every slot for well-formed clock times, start < end, and
// pairwise non-overlap within the candidate set itself. The whole set is
// rejected on the first problem found.
func Validate(candidate []Slot) error {
	if len(candidate) == 0 {
		return fmt.Errorf("at least one time slot is required")
	}
	for i, s := range candidate {
		start, err := ParseClock(s.Start)
		if err != nil {
			return fmt.Errorf("timeSlots[%d].startTime: %w", i, err)
		}
		end, err := ParseClock(s.End)
		if err != nil {
			return fmt.Errorf("timeSlots[%d].endTime: %w", i, err)
		}
		if start >= end {
			return fmt.Errorf("timeSlots[%d]: startTime must be before endTime", i)
		}
	}
	for i := range candidate {
		for j := i + 1; j < len(candidate); j++ {
			if Overlaps(candidate[i], candidate[j]) {
				return fmt.Errorf("timeSlots[%d] overlaps timeSlots[%d]", j, i)
			}
		}
	}
	return nil
}

// Overlaps reports whether two half-open slots intersect. Back-to-back slots
// (a.End == b.Start) do not overlap. Zero-padded HH:MM strings order
// lexically, so string comparison is exact.
func Overlaps(a, b Slot) bool {
	return a.Start < b.End && a.End > b.Start
}

// HasConflict reports whether any candidate slot overlaps any existing slot.
// Callers pass the slots of every active booking for the venue and date; a
// single overlap rejects the whole candidate set.
func HasConflict(candidate, existing []Slot) bool {
	for _, c := range candidate {
		for _, e := range existing {
			if Overlaps(c, e) {
				return true
			}
		}
	}
	return false
}

// TotalHours sums whole hours across the slots. Slots are expected to be
// validated first.
func TotalHours(candidate []Slot) (int, error) {
	total := 0
	for _, s := range candidate {
		start, err := ParseClock(s.Start)
		if err != nil {
			return 0, err
		}
		end, err := ParseClock(s.End)
		if err != nil {
			return 0, err
		}
		total += (end - start) / 60
	}
	return total, nil
}

// WithinWindow reports whether every slot lies inside the venue's operating
// hours [openTime, closeTime).
func WithinWindow(candidate []Slot, openTime, closeTime string) bool {
	for _, s := range candidate {
		if s.Start < openTime || s.End > closeTime {
			return false
		}
	}
	return true
}

func (s Slot) String() string {
	var b strings.Builder
	b.WriteString(s.Start)
	b.WriteByte('-')
	b.WriteString(s.End)
	return b.String()
}
