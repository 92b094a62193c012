package model

import "time"

// Venue is a bookable sports facility listed by an owner. Pricing is per
// hour in the currency's major unit; operating hours are "HH:MM" clock
// times on a 24h clock.
type Venue struct {
	ID           string
	OwnerID      string
	Name         string
	Description  string
	Category     string
	Address      string
	City         string
	HourlyRate   int64
	Currency     string
	OpenTime     string
	CloseTime    string
	Amenities    []string
	Images       []string
	BookingCount int64
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Categories the catalog accepts. Listing filters reject anything else.
var Categories = map[string]bool{
	"gym":        true,
	"badminton":  true,
	"football":   true,
	"cricket":    true,
	"tennis":     true,
	"swimming":   true,
	"basketball": true,
	"other":      true,
}
