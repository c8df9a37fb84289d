package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

type SessionStatus string

const (
	SessionEntered SessionStatus = "ENTERED"
	SessionParked  SessionStatus = "PARKED"
	SessionExited  SessionStatus = "EXITED"
)

// Session is one vehicle's visit, from entry to exit. BasePrice and
// PriceFactor are locked at entry and never recomputed; occupancy changes
// after admission do not affect the session's billing.
type Session struct {
	ID              string
	VehicleID       int64
	SectorID        int64
	SpotID          null.Int
	EntryTime       time.Time
	ParkedTime      null.Time
	ExitTime        null.Time
	DurationMinutes null.Int
	BasePrice       decimal.Decimal
	PriceFactor     decimal.Decimal
	FinalPrice      decimal.NullDecimal
	Status          SessionStatus
}

// Active reports whether the session still occupies sector capacity.
func (s Session) Active() bool {
	return s.Status == SessionEntered || s.Status == SessionParked
}

// Vehicle identity is the license plate, unique and case-sensitive. Vehicles
// are created lazily on first entry and never deleted.
type Vehicle struct {
	ID    int64
	Plate string
}
