package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OccupancySnapshot is an append-only record of a sector's occupancy at a
// point in time. The most recent snapshot for a sector is its current
// occupancy; snapshots are produced inside the same transaction as the
// session mutation that changed the active count.
type OccupancySnapshot struct {
	ID             int64
	SectorID       int64
	RecordedAt     time.Time
	OccupiedSpots  int
	TotalSpots     int
	OccupancyRatio decimal.Decimal
	PriceFactor    decimal.Decimal
}
