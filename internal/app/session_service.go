package app

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"github.com/IvanSaavedra7/parking/internal/clock"
	"github.com/IvanSaavedra7/parking/internal/domain"
	"github.com/IvanSaavedra7/parking/internal/pricing"
)

// SessionRepository is the storage surface the session lifecycle needs. All
// methods observe a transaction carried in the context by WithTx.
type SessionRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	// UpsertVehicle resolves or creates the vehicle for a plate and leaves
	// its row locked for the remainder of the transaction, serializing
	// concurrent deliveries for the same plate.
	UpsertVehicle(ctx context.Context, plate string) (domain.Vehicle, error)

	FindActiveSessionByPlate(ctx context.Context, plate string) (*domain.Session, error)
	FindActiveSessionByPlateForUpdate(ctx context.Context, plate string) (*domain.Session, error)
	CreateSession(ctx context.Context, s domain.Session) error
	MarkSessionParked(ctx context.Context, sessionID string, spotID int64, at time.Time) error
	FinalizeSession(ctx context.Context, sessionID string, exitAt time.Time, minutes int64, finalPrice decimal.Decimal) error

	ListSectors(ctx context.Context) ([]domain.Sector, error)
	GetSectorForUpdate(ctx context.Context, sectorID int64) (domain.Sector, error)

	FindSpotByCoordinatesForUpdate(ctx context.Context, lat, lng decimal.Decimal) (*domain.Spot, error)
	FindSpotByID(ctx context.Context, spotID int64) (*domain.Spot, error)
	UpdateSpotStatus(ctx context.Context, spotID int64, status domain.SpotStatus) error

	CountActiveSessionsBySector(ctx context.Context, sectorID int64) (int, error)
	CountSpotsBySector(ctx context.Context, sectorID int64) (int, error)
	LatestOccupancy(ctx context.Context, sectorID int64) (*domain.OccupancySnapshot, error)
	AppendOccupancy(ctx context.Context, snap domain.OccupancySnapshot) error

	GetDailyRevenueForUpdate(ctx context.Context, sectorID int64, date time.Time) (*domain.DailyRevenue, error)
	InsertDailyRevenue(ctx context.Context, rev domain.DailyRevenue) error
	UpdateDailyRevenue(ctx context.Context, rev domain.DailyRevenue) error
}

// AuditRecorder persists immutable audit-log entries. Failures are logged by
// the services, never propagated.
type AuditRecorder interface {
	Record(ctx context.Context, ev domain.SystemEvent) error
}

// SessionService owns the vehicle session lifecycle: entry admission with
// price lock-in, parking on a spot, and exit billing with revenue
// accumulation. Each operation is a single transaction.
type SessionService struct {
	repo   SessionRepository
	audit  AuditRecorder
	clock  clock.Clock
	logger *log.Logger
}

func NewSessionService(repo SessionRepository, audit AuditRecorder, clk clock.Clock, logger *log.Logger) *SessionService {
	if logger == nil {
		logger = log.Default()
	}
	return &SessionService{repo: repo, audit: audit, clock: clk, logger: logger}
}

type EntryInput struct {
	Plate     string
	EntryTime *time.Time
}

// Entry admits a vehicle into the garage. The destination sector is the
// lexicographically first one that is open and not full; its current price
// factor is locked onto the session and never recomputed.
func (s *SessionService) Entry(ctx context.Context, in EntryInput) (domain.Session, error) {
	if in.Plate == "" {
		return domain.Session{}, domain.ErrPlateRequired
	}

	entryTime := s.clock.Now()
	if in.EntryTime != nil {
		entryTime = in.EntryTime.UTC()
	}

	var (
		session domain.Session
		vehicle domain.Vehicle
		sector  domain.Sector
		ratio   decimal.Decimal
	)

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		vehicle, err = s.repo.UpsertVehicle(txCtx, in.Plate)
		if err != nil {
			return err
		}

		active, err := s.repo.FindActiveSessionByPlate(txCtx, in.Plate)
		if err != nil {
			return err
		}
		if active != nil {
			return domain.ErrVehicleAlreadyInGarage
		}

		candidate, err := s.selectSector(txCtx, entryTime)
		if err != nil {
			return err
		}

		// Re-read under lock: a concurrent entry may have filled the
		// sector between selection and locking.
		sector, err = s.repo.GetSectorForUpdate(txCtx, candidate.ID)
		if err != nil {
			return err
		}
		latest, err := s.repo.LatestOccupancy(txCtx, sector.ID)
		if err != nil {
			return err
		}

		factor := pricing.DefaultFactor()
		ratio = decimal.Zero
		if latest == nil {
			s.logger.Printf("WARN: no occupancy history for sector %s, locking default factor", sector.Code)
		} else {
			if latest.OccupancyRatio.GreaterThanOrEqual(decimal.NewFromInt(1)) {
				return domain.ErrNoSectorAvailable
			}
			ratio = latest.OccupancyRatio
			factor = pricing.Factor(latest.OccupancyRatio)
		}

		session = domain.Session{
			ID:          newSessionID(),
			VehicleID:   vehicle.ID,
			SectorID:    sector.ID,
			EntryTime:   entryTime,
			BasePrice:   sector.BasePrice,
			PriceFactor: factor,
			Status:      domain.SessionEntered,
		}
		if err := s.repo.CreateSession(txCtx, session); err != nil {
			return err
		}

		return s.refreshOccupancy(txCtx, sector.ID)
	})
	if err != nil {
		if err == domain.ErrNoSectorAvailable && vehicle.ID != 0 {
			s.recordAudit(ctx, domain.SystemEvent{
				EventType:   domain.EventEntryDenied,
				EntityType:  domain.EntityVehicle,
				EntityID:    vehicle.ID,
				Description: "entry denied: no sector open with free capacity",
				Metadata:    map[string]string{"plate": in.Plate},
			})
		}
		return domain.Session{}, err
	}

	s.recordAudit(ctx, domain.SystemEvent{
		EventType:   domain.EventEntry,
		EntityType:  domain.EntityVehicle,
		EntityID:    vehicle.ID,
		Description: "vehicle entered the garage",
		Metadata: map[string]string{
			"plate":        in.Plate,
			"sector":       sector.Code,
			"price_factor": session.PriceFactor.String(),
			"occupancy":    ratio.Shift(2).String() + "%",
		},
	})
	return session, nil
}

type ParkInput struct {
	Plate string
	Lat   *float64
	Lng   *float64
}

// Park binds the vehicle's active session to the spot at the given
// coordinates. Parking does not change the active-session count, so neither
// the occupancy snapshot nor the locked price factor is touched.
func (s *SessionService) Park(ctx context.Context, in ParkInput) (domain.Session, error) {
	if in.Plate == "" {
		return domain.Session{}, domain.ErrPlateRequired
	}
	if in.Lat == nil || in.Lng == nil {
		return domain.Session{}, domain.ErrCoordinatesRequired
	}

	lat := decimal.NewFromFloat(*in.Lat).RoundBank(8)
	lng := decimal.NewFromFloat(*in.Lng).RoundBank(8)
	parkedAt := s.clock.Now()

	var session domain.Session
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		active, err := s.repo.FindActiveSessionByPlateForUpdate(txCtx, in.Plate)
		if err != nil {
			return err
		}
		if active == nil {
			return domain.ErrNoActiveSession
		}
		if active.Status == domain.SessionParked {
			return domain.ErrAlreadyParked
		}

		spot, err := s.repo.FindSpotByCoordinatesForUpdate(txCtx, lat, lng)
		if err != nil {
			return err
		}
		if spot == nil {
			return domain.ErrSpotNotFound
		}
		if spot.Status != domain.SpotAvailable {
			return domain.ErrSpotOccupied
		}

		if err := s.repo.UpdateSpotStatus(txCtx, spot.ID, domain.SpotOccupied); err != nil {
			return err
		}
		if err := s.repo.MarkSessionParked(txCtx, active.ID, spot.ID, parkedAt); err != nil {
			return err
		}

		session = *active
		session.SpotID = null.IntFrom(spot.ID)
		session.ParkedTime = null.TimeFrom(parkedAt)
		session.Status = domain.SessionParked
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.recordAudit(ctx, domain.SystemEvent{
		EventType:   domain.EventParked,
		EntityType:  domain.EntityVehicle,
		EntityID:    session.VehicleID,
		Description: "vehicle parked on a spot",
		Metadata: map[string]string{
			"plate":   in.Plate,
			"spot_id": strconv.FormatInt(session.SpotID.Int64, 10),
			"lat":     lat.String(),
			"lng":     lng.String(),
		},
	})
	return session, nil
}

type ExitInput struct {
	Plate    string
	ExitTime *time.Time
}

// Exit finalizes the vehicle's session: bills the locked price against the
// elapsed duration, releases the spot if one is held, refreshes the sector's
// occupancy and folds the final price into the sector's daily revenue, all
// in one transaction.
func (s *SessionService) Exit(ctx context.Context, in ExitInput) (domain.Session, error) {
	if in.Plate == "" {
		return domain.Session{}, domain.ErrPlateRequired
	}

	exitTime := s.clock.Now()
	if in.ExitTime != nil {
		exitTime = in.ExitTime.UTC()
	}

	var session domain.Session
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		active, err := s.repo.FindActiveSessionByPlateForUpdate(txCtx, in.Plate)
		if err != nil {
			return err
		}
		if active == nil {
			return domain.ErrNoActiveSession
		}
		if exitTime.Before(active.EntryTime) {
			return domain.ErrInvalidExitTime
		}

		minutes := int64(exitTime.Sub(active.EntryTime).Minutes())
		finalPrice := pricing.Price(active.BasePrice, active.PriceFactor, minutes)

		if active.SpotID.Valid {
			spot, err := s.repo.FindSpotByID(txCtx, active.SpotID.Int64)
			if err != nil {
				return err
			}
			if spot == nil {
				s.logger.Printf("WARN: spot %d held by session %s no longer exists", active.SpotID.Int64, active.ID)
			} else if err := s.repo.UpdateSpotStatus(txCtx, spot.ID, domain.SpotAvailable); err != nil {
				return err
			}
		}

		if err := s.repo.FinalizeSession(txCtx, active.ID, exitTime, minutes, finalPrice); err != nil {
			return err
		}

		if err := s.refreshOccupancy(txCtx, active.SectorID); err != nil {
			return err
		}
		if err := s.accumulateRevenue(txCtx, active.SectorID, exitTime, minutes, finalPrice); err != nil {
			return err
		}

		session = *active
		session.ExitTime = null.TimeFrom(exitTime)
		session.DurationMinutes = null.IntFrom(minutes)
		session.FinalPrice = decimal.NewNullDecimal(finalPrice)
		session.Status = domain.SessionExited
		return nil
	})
	if err != nil {
		return domain.Session{}, err
	}

	s.recordAudit(ctx, domain.SystemEvent{
		EventType:   domain.EventExit,
		EntityType:  domain.EntityVehicle,
		EntityID:    session.VehicleID,
		Description: "vehicle exited the garage",
		Metadata: map[string]string{
			"plate":            in.Plate,
			"duration_minutes": strconv.FormatInt(session.DurationMinutes.Int64, 10),
			"final_price":      session.FinalPrice.Decimal.String(),
		},
	})
	return session, nil
}

// selectSector applies the admission filter: open at the current time of
// day, latest occupancy ratio strictly below 1.0, ties broken by ascending
// code. Sectors arrive from the repository already sorted by code.
func (s *SessionService) selectSector(ctx context.Context, now time.Time) (domain.Sector, error) {
	sectors, err := s.repo.ListSectors(ctx)
	if err != nil {
		return domain.Sector{}, err
	}

	tod := domain.TimeOfDayFrom(now)
	full := decimal.NewFromInt(1)
	for _, sector := range sectors {
		if !sector.OpenAt(tod) {
			continue
		}
		latest, err := s.repo.LatestOccupancy(ctx, sector.ID)
		if err != nil {
			return domain.Sector{}, err
		}
		if latest != nil && latest.OccupancyRatio.GreaterThanOrEqual(full) {
			continue
		}
		return sector, nil
	}
	return domain.Sector{}, domain.ErrNoSectorAvailable
}

// refreshOccupancy recomputes a sector's occupancy from the authoritative
// session table and appends a snapshot. Runs inside the caller's
// transaction so admission decisions never observe stale occupancy.
func (s *SessionService) refreshOccupancy(ctx context.Context, sectorID int64) error {
	occupied, err := s.repo.CountActiveSessionsBySector(ctx, sectorID)
	if err != nil {
		return err
	}
	total, err := s.repo.CountSpotsBySector(ctx, sectorID)
	if err != nil {
		return err
	}
	if total == 0 {
		return domain.ErrSectorWithoutSpots
	}

	ratio := pricing.Ratio(occupied, total)
	return s.repo.AppendOccupancy(ctx, domain.OccupancySnapshot{
		SectorID:       sectorID,
		RecordedAt:     s.clock.Now(),
		OccupiedSpots:  occupied,
		TotalSpots:     total,
		OccupancyRatio: ratio,
		PriceFactor:    pricing.Factor(ratio),
	})
}

func (s *SessionService) accumulateRevenue(ctx context.Context, sectorID int64, exitTime time.Time, minutes int64, finalPrice decimal.Decimal) error {
	date := exitTime.UTC().Truncate(24 * time.Hour)

	existing, err := s.repo.GetDailyRevenueForUpdate(ctx, sectorID, date)
	if err != nil {
		return err
	}
	if existing == nil {
		return s.repo.InsertDailyRevenue(ctx, domain.DailyRevenue{
			SectorID:           sectorID,
			Date:               date,
			Amount:             finalPrice,
			SessionCount:       1,
			AvgDurationMinutes: decimal.NewFromInt(minutes),
		})
	}

	newCount := existing.SessionCount + 1
	totalMinutes := existing.AvgDurationMinutes.
		Mul(decimal.NewFromInt(int64(existing.SessionCount))).
		Add(decimal.NewFromInt(minutes))

	updated := *existing
	updated.Amount = existing.Amount.Add(finalPrice)
	updated.SessionCount = newCount
	updated.AvgDurationMinutes = totalMinutes.Div(decimal.NewFromInt(int64(newCount))).RoundBank(2)
	return s.repo.UpdateDailyRevenue(ctx, updated)
}

func (s *SessionService) recordAudit(ctx context.Context, ev domain.SystemEvent) {
	ev.RecordedAt = s.clock.Now()
	if err := s.audit.Record(ctx, ev); err != nil {
		s.logger.Printf("WARN: audit write failed for %s: %v", ev.EventType, err)
	}
}
