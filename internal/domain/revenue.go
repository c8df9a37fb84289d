package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyRevenue accumulates completed sessions per sector and calendar date.
// One row per (sector, date), upserted exactly once per exit.
type DailyRevenue struct {
	ID                 int64
	SectorID           int64
	Date               time.Time
	Amount             decimal.Decimal
	SessionCount       int
	AvgDurationMinutes decimal.Decimal
}
