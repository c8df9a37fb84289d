package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// Sector is a priced zone of the garage with its own capacity and operating
// hours. Sectors are immutable after the topology import.
type Sector struct {
	ID                   int64
	Code                 string
	BasePrice            decimal.Decimal
	MaxCapacity          int
	OpenHour             TimeOfDay
	CloseHour            TimeOfDay
	DurationLimitMinutes null.Int
}

// OpenAt reports whether the sector admits entries at the given time of day.
// A window whose close precedes its open wraps past midnight.
func (s Sector) OpenAt(t TimeOfDay) bool {
	switch {
	case s.OpenHour == s.CloseHour:
		return true
	case s.OpenHour < s.CloseHour:
		return t >= s.OpenHour && t < s.CloseHour
	default:
		return t >= s.OpenHour || t <= s.CloseHour
	}
}

// TimeOfDay is a wall-clock time expressed as minutes since midnight.
type TimeOfDay int

// ParseTimeOfDay parses an "HH:MM" string as used by the garage topology feed.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// TimeOfDayFrom extracts the time of day from an instant.
func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}
