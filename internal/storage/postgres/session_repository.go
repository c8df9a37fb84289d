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

// SessionRepository backs the session lifecycle service. Check-then-mutate
// sequences rely on row locks: the vehicle row for entry, the session and
// spot rows for park and exit, the sector row for occupancy snapshots.
type SessionRepository struct {
	querier
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{querier{pool: pool}}
}

func (r *SessionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *SessionRepository) UpsertVehicle(ctx context.Context, plate string) (domain.Vehicle, error) {
	// DO UPDATE instead of DO NOTHING so the statement always returns the
	// row and always takes its lock, serializing concurrent deliveries for
	// the same plate.
	const stmt = `
INSERT INTO vehicles (plate) VALUES ($1)
ON CONFLICT (plate) DO UPDATE SET plate = EXCLUDED.plate
RETURNING id`

	v := domain.Vehicle{Plate: plate}
	if err := r.queryRow(ctx, stmt, plate).Scan(&v.ID); err != nil {
		return domain.Vehicle{}, fmt.Errorf("upsert vehicle: %w", err)
	}
	return v, nil
}

const sessionColumns = `s.id, s.vehicle_id, s.sector_id, s.spot_id, s.entry_time, s.parked_time,
	s.exit_time, s.duration_minutes, s.base_price, s.price_factor, s.final_price, s.status`

const activeSessionByPlate = `
SELECT ` + sessionColumns + `
FROM sessions s
JOIN vehicles v ON v.id = s.vehicle_id
WHERE v.plate = $1 AND s.status IN ('ENTERED', 'PARKED')`

func (r *SessionRepository) FindActiveSessionByPlate(ctx context.Context, plate string) (*domain.Session, error) {
	return scanSession(r.queryRow(ctx, activeSessionByPlate, plate), "find active session")
}

func (r *SessionRepository) FindActiveSessionByPlateForUpdate(ctx context.Context, plate string) (*domain.Session, error) {
	return scanSession(r.queryRow(ctx, activeSessionByPlate+` FOR UPDATE OF s`, plate), "lock active session")
}

func scanSession(row pgx.Row, op string) (*domain.Session, error) {
	var s domain.Session
	err := row.Scan(
		&s.ID, &s.VehicleID, &s.SectorID, &s.SpotID, &s.EntryTime, &s.ParkedTime,
		&s.ExitTime, &s.DurationMinutes, &s.BasePrice, &s.PriceFactor, &s.FinalPrice, &s.Status,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.EntryTime = s.EntryTime.UTC()
	return &s, nil
}

func (r *SessionRepository) CreateSession(ctx context.Context, s domain.Session) error {
	const stmt = `
INSERT INTO sessions (id, vehicle_id, sector_id, entry_time, base_price, price_factor, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.exec(ctx, stmt, s.ID, s.VehicleID, s.SectorID, s.EntryTime, s.BasePrice, s.PriceFactor, s.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVehicleAlreadyInGarage
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) MarkSessionParked(ctx context.Context, sessionID string, spotID int64, at time.Time) error {
	const stmt = `
UPDATE sessions SET spot_id = $2, parked_time = $3, status = 'PARKED'
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, sessionID, spotID, at)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSpotOccupied
		}
		return fmt.Errorf("mark session parked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (r *SessionRepository) FinalizeSession(ctx context.Context, sessionID string, exitAt time.Time, minutes int64, finalPrice decimal.Decimal) error {
	const stmt = `
UPDATE sessions SET exit_time = $2, duration_minutes = $3, final_price = $4, status = 'EXITED'
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, sessionID, exitAt, minutes, finalPrice)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

const sectorColumns = `id, code, base_price, max_capacity, open_hour, close_hour, duration_limit_minutes`

func (r *SessionRepository) ListSectors(ctx context.Context) ([]domain.Sector, error) {
	rows, err := r.query(ctx, `SELECT `+sectorColumns+` FROM sectors ORDER BY code ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	defer rows.Close()

	var sectors []domain.Sector
	for rows.Next() {
		s, err := scanSector(rows)
		if err != nil {
			return nil, fmt.Errorf("list sectors: %w", err)
		}
		sectors = append(sectors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sectors: %w", err)
	}
	return sectors, nil
}

func (r *SessionRepository) GetSectorForUpdate(ctx context.Context, sectorID int64) (domain.Sector, error) {
	row := r.queryRow(ctx, `SELECT `+sectorColumns+` FROM sectors WHERE id = $1 FOR UPDATE`, sectorID)
	s, err := scanSector(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Sector{}, domain.ErrSectorNotFound
		}
		return domain.Sector{}, fmt.Errorf("lock sector: %w", err)
	}
	return s, nil
}

func scanSector(row pgx.Row) (domain.Sector, error) {
	var (
		s          domain.Sector
		open, clos int
	)
	err := row.Scan(&s.ID, &s.Code, &s.BasePrice, &s.MaxCapacity, &open, &clos, &s.DurationLimitMinutes)
	if err != nil {
		return domain.Sector{}, err
	}
	s.OpenHour = domain.TimeOfDay(open)
	s.CloseHour = domain.TimeOfDay(clos)
	return s, nil
}

const spotColumns = `id, sector_id, lat, lng, status`

func (r *SessionRepository) FindSpotByCoordinatesForUpdate(ctx context.Context, lat, lng decimal.Decimal) (*domain.Spot, error) {
	row := r.queryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE lat = $1 AND lng = $2 FOR UPDATE`, lat, lng)
	return scanSpot(row, "lock spot")
}

func (r *SessionRepository) FindSpotByID(ctx context.Context, spotID int64) (*domain.Spot, error) {
	row := r.queryRow(ctx, `SELECT `+spotColumns+` FROM spots WHERE id = $1`, spotID)
	return scanSpot(row, "find spot")
}

func scanSpot(row pgx.Row, op string) (*domain.Spot, error) {
	var s domain.Spot
	err := row.Scan(&s.ID, &s.SectorID, &s.Lat, &s.Lng, &s.Status)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &s, nil
}

func (r *SessionRepository) UpdateSpotStatus(ctx context.Context, spotID int64, status domain.SpotStatus) error {
	tag, err := r.exec(ctx, `UPDATE spots SET status = $2 WHERE id = $1`, spotID, status)
	if err != nil {
		return fmt.Errorf("update spot status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSpotNotFound
	}
	return nil
}

func (r *SessionRepository) CountActiveSessionsBySector(ctx context.Context, sectorID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE sector_id = $1 AND status IN ('ENTERED', 'PARKED')`

	var count int
	if err := r.queryRow(ctx, query, sectorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active sessions: %w", err)
	}
	return count, nil
}

func (r *SessionRepository) CountSpotsBySector(ctx context.Context, sectorID int64) (int, error) {
	var count int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM spots WHERE sector_id = $1`, sectorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count spots: %w", err)
	}
	return count, nil
}

func (r *SessionRepository) LatestOccupancy(ctx context.Context, sectorID int64) (*domain.OccupancySnapshot, error) {
	const query = `
SELECT id, sector_id, recorded_at, occupied_spots, total_spots, occupancy_ratio, price_factor
FROM sector_occupancy
WHERE sector_id = $1
ORDER BY id DESC
LIMIT 1`

	var snap domain.OccupancySnapshot
	err := r.queryRow(ctx, query, sectorID).Scan(
		&snap.ID, &snap.SectorID, &snap.RecordedAt, &snap.OccupiedSpots,
		&snap.TotalSpots, &snap.OccupancyRatio, &snap.PriceFactor,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest occupancy: %w", err)
	}
	return &snap, nil
}

func (r *SessionRepository) AppendOccupancy(ctx context.Context, snap domain.OccupancySnapshot) error {
	const stmt = `
INSERT INTO sector_occupancy (sector_id, recorded_at, occupied_spots, total_spots, occupancy_ratio, price_factor)
VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.exec(ctx, stmt, snap.SectorID, snap.RecordedAt, snap.OccupiedSpots, snap.TotalSpots, snap.OccupancyRatio, snap.PriceFactor)
	if err != nil {
		return fmt.Errorf("append occupancy: %w", err)
	}
	return nil
}

func (r *SessionRepository) GetDailyRevenueForUpdate(ctx context.Context, sectorID int64, date time.Time) (*domain.DailyRevenue, error) {
	const query = `
SELECT id, sector_id, revenue_date, amount, session_count, avg_duration_minutes
FROM daily_revenue
WHERE sector_id = $1 AND revenue_date = $2::date
FOR UPDATE`

	var rev domain.DailyRevenue
	err := r.queryRow(ctx, query, sectorID, date).Scan(
		&rev.ID, &rev.SectorID, &rev.Date, &rev.Amount, &rev.SessionCount, &rev.AvgDurationMinutes,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("lock daily revenue: %w", err)
	}
	return &rev, nil
}

func (r *SessionRepository) InsertDailyRevenue(ctx context.Context, rev domain.DailyRevenue) error {
	const stmt = `
INSERT INTO daily_revenue (sector_id, revenue_date, amount, session_count, avg_duration_minutes)
VALUES ($1, $2::date, $3, $4, $5)`

	_, err := r.exec(ctx, stmt, rev.SectorID, rev.Date, rev.Amount, rev.SessionCount, rev.AvgDurationMinutes)
	if err != nil {
		return fmt.Errorf("insert daily revenue: %w", err)
	}
	return nil
}

func (r *SessionRepository) UpdateDailyRevenue(ctx context.Context, rev domain.DailyRevenue) error {
	const stmt = `
UPDATE daily_revenue SET amount = $2, session_count = $3, avg_duration_minutes = $4
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, rev.ID, rev.Amount, rev.SessionCount, rev.AvgDurationMinutes)
	if err != nil {
		return fmt.Errorf("update daily revenue: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update daily revenue: row %d vanished", rev.ID)
	}
	return nil
}
