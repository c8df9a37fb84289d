package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/IvanSaavedra7/parking/internal/domain"
)

// RevenueRepository serves revenue reporting reads.
type RevenueRepository struct {
	querier
}

func NewRevenueRepository(pool *pgxpool.Pool) *RevenueRepository {
	return &RevenueRepository{querier{pool: pool}}
}

func (r *RevenueRepository) SectorByCode(ctx context.Context, code string) (*domain.Sector, error) {
	row := r.queryRow(ctx, `SELECT `+sectorColumns+` FROM sectors WHERE code = $1`, code)
	s, err := scanSector(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sector by code: %w", err)
	}
	return &s, nil
}

func (r *RevenueRepository) FindDailyRevenue(ctx context.Context, sectorID int64, date time.Time) (*domain.DailyRevenue, error) {
	const query = `
SELECT id, sector_id, revenue_date, amount, session_count, avg_duration_minutes
FROM daily_revenue
WHERE sector_id = $1 AND revenue_date = $2::date`

	var rev domain.DailyRevenue
	err := r.queryRow(ctx, query, sectorID, date).Scan(
		&rev.ID, &rev.SectorID, &rev.Date, &rev.Amount, &rev.SessionCount, &rev.AvgDurationMinutes,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find daily revenue: %w", err)
	}
	return &rev, nil
}

// SumCompletedSessions is the reconciliation fallback: daily revenue derived
// directly from the completed sessions of that sector and date.
func (r *RevenueRepository) SumCompletedSessions(ctx context.Context, sectorID int64, date time.Time) (decimal.Decimal, error) {
	const query = `
SELECT COALESCE(SUM(final_price), 0)
FROM sessions
WHERE sector_id = $1 AND status = 'EXITED' AND exit_time::date = $2::date`

	var total decimal.Decimal
	if err := r.queryRow(ctx, query, sectorID, date).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("sum completed sessions: %w", err)
	}
	return total, nil
}
