package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/IvanSaavedra7/parking/internal/clock"
	"github.com/IvanSaavedra7/parking/internal/domain"
)

// RevenueRepository is the read surface for revenue reporting.
type RevenueRepository interface {
	SectorByCode(ctx context.Context, code string) (*domain.Sector, error)
	FindDailyRevenue(ctx context.Context, sectorID int64, date time.Time) (*domain.DailyRevenue, error)
	SumCompletedSessions(ctx context.Context, sectorID int64, date time.Time) (decimal.Decimal, error)
}

// RevenueService exposes a sector's revenue for a calendar date. The
// aggregate row is authoritative; when none exists yet the amount is derived
// on demand by summing the completed sessions for that sector and date.
type RevenueService struct {
	repo  RevenueRepository
	clock clock.Clock
}

func NewRevenueService(repo RevenueRepository, clk clock.Clock) *RevenueService {
	return &RevenueService{repo: repo, clock: clk}
}

type DailyRevenueReport struct {
	Amount    decimal.Decimal
	Currency  string
	Timestamp time.Time
}

func (s *RevenueService) Daily(ctx context.Context, sectorCode string, date time.Time) (DailyRevenueReport, error) {
	sector, err := s.repo.SectorByCode(ctx, sectorCode)
	if err != nil {
		return DailyRevenueReport{}, err
	}
	if sector == nil {
		return DailyRevenueReport{}, domain.ErrSectorNotFound
	}

	day := date.UTC().Truncate(24 * time.Hour)
	report := DailyRevenueReport{Currency: "BRL", Timestamp: s.clock.Now()}

	revenue, err := s.repo.FindDailyRevenue(ctx, sector.ID, day)
	if err != nil {
		return DailyRevenueReport{}, err
	}
	if revenue != nil {
		report.Amount = revenue.Amount
		return report, nil
	}

	amount, err := s.repo.SumCompletedSessions(ctx, sector.ID, day)
	if err != nil {
		return DailyRevenueReport{}, err
	}
	report.Amount = amount
	return report, nil
}
