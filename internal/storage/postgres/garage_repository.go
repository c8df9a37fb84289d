package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IvanSaavedra7/parking/internal/domain"
)

// GarageRepository persists the imported garage topology.
type GarageRepository struct {
	querier
}

func NewGarageRepository(pool *pgxpool.Pool) *GarageRepository {
	return &GarageRepository{querier{pool: pool}}
}

func (r *GarageRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// ResetTopology wipes the current topology and everything hanging off it.
// Only used by the startup import against a garage that is being reloaded.
func (r *GarageRepository) ResetTopology(ctx context.Context) error {
	_, err := r.exec(ctx, `TRUNCATE sectors, spots, sessions, sector_occupancy, daily_revenue RESTART IDENTITY CASCADE`)
	if err != nil {
		return fmt.Errorf("reset topology: %w", err)
	}
	return nil
}

func (r *GarageRepository) InsertSector(ctx context.Context, sector domain.Sector) (int64, error) {
	const stmt = `
INSERT INTO sectors (code, base_price, max_capacity, open_hour, close_hour, duration_limit_minutes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`

	var id int64
	err := r.queryRow(ctx, stmt,
		sector.Code, sector.BasePrice, sector.MaxCapacity,
		int(sector.OpenHour), int(sector.CloseHour), sector.DurationLimitMinutes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert sector %s: %w", sector.Code, err)
	}
	return id, nil
}

func (r *GarageRepository) InsertSpot(ctx context.Context, spot domain.Spot) error {
	const stmt = `
INSERT INTO spots (id, sector_id, lat, lng, status)
VALUES ($1, $2, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, spot.ID, spot.SectorID, spot.Lat, spot.Lng, spot.Status)
	if err != nil {
		return fmt.Errorf("insert spot %d: %w", spot.ID, err)
	}
	return nil
}

func (r *GarageRepository) AppendOccupancy(ctx context.Context, snap domain.OccupancySnapshot) error {
	var sr SessionRepository
	sr.querier = r.querier
	return sr.AppendOccupancy(ctx, snap)
}
