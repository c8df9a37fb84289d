package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/IvanSaavedra7/parking/internal/domain"
)

// StatusRepository serves the read-only status queries. It shares the
// session and spot scanning with SessionRepository but never locks rows.
type StatusRepository struct {
	querier
}

func NewStatusRepository(pool *pgxpool.Pool) *StatusRepository {
	return &StatusRepository{querier{pool: pool}}
}

func (r *StatusRepository) FindActiveSessionByPlate(ctx context.Context, plate string) (*domain.Session, error) {
	return scanSession(r.queryRow(ctx, activeSessionByPlate, plate), "find active session")
}

func (r *StatusRepository) FindActiveSessionBySpotID(ctx context.Context, spotID int64) (*domain.Session, error) {
	const query = `
SELECT ` + sessionColumns + `
FROM sessions s
WHERE s.spot_id = $1 AND s.status = 'PARKED'`

	return scanSession(r.queryRow(ctx, query, spotID), "find session by spot")
}

func (r *StatusRepository) FindSpotByCoordinates(ctx context.Context, lat, lng decimal.Decimal) (*domain.Spot, error) {
	row := r.queryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE lat = $1 AND lng = $2`, lat, lng)
	return scanSpot(row, "find spot by coordinates")
}

func (r *StatusRepository) FindSpotByID(ctx context.Context, spotID int64) (*domain.Spot, error) {
	row := r.queryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = $1`, spotID)
	return scanSpot(row, "find spot")
}

func (r *StatusRepository) VehiclePlate(ctx context.Context, vehicleID int64) (string, error) {
	var plate string
	err := r.queryRow(ctx, `SELECT plate FROM vehicles WHERE id = $1`, vehicleID).Scan(&plate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("vehicle plate: %w", err)
	}
	return plate, nil
}
