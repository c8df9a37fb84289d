package domain

import "github.com/shopspring/decimal"

type SpotStatus string

const (
	SpotAvailable SpotStatus = "AVAILABLE"
	SpotOccupied  SpotStatus = "OCCUPIED"
)

// Spot is a single physical parking location within a sector, identified by
// its coordinates. Status is a cached projection of whether a parked session
// currently references the spot.
type Spot struct {
	ID       int64
	SectorID int64
	Lat      decimal.Decimal
	Lng      decimal.Decimal
	Status   SpotStatus
}
