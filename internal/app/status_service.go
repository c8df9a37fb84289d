package app

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"github.com/IvanSaavedra7/parking/internal/clock"
	"github.com/IvanSaavedra7/parking/internal/domain"
	"github.com/IvanSaavedra7/parking/internal/pricing"
)

// StatusRepository is the read-only storage surface for status lookups.
type StatusRepository interface {
	FindActiveSessionByPlate(ctx context.Context, plate string) (*domain.Session, error)
	FindActiveSessionBySpotID(ctx context.Context, spotID int64) (*domain.Session, error)
	FindSpotByCoordinates(ctx context.Context, lat, lng decimal.Decimal) (*domain.Spot, error)
	FindSpotByID(ctx context.Context, spotID int64) (*domain.Spot, error)
	VehiclePlate(ctx context.Context, vehicleID int64) (string, error)
}

// StatusService answers live queries about a session in progress. It never
// mutates anything: the reported price is an unlocked estimate computed
// against the clock, using the session's locked base price and factor.
type StatusService struct {
	repo   StatusRepository
	clock  clock.Clock
	logger *log.Logger
}

func NewStatusService(repo StatusRepository, clk clock.Clock, logger *log.Logger) *StatusService {
	if logger == nil {
		logger = log.Default()
	}
	return &StatusService{repo: repo, clock: clk, logger: logger}
}

type PlateStatus struct {
	Plate         string
	PriceUntilNow decimal.Decimal
	EntryTime     time.Time
	ParkedTime    null.Time
	Lat           *float64
	Lng           *float64
}

// PlateStatus reports the in-progress price and location of a vehicle.
func (s *StatusService) PlateStatus(ctx context.Context, plate string) (PlateStatus, error) {
	if plate == "" {
		return PlateStatus{}, domain.ErrPlateRequired
	}

	session, err := s.repo.FindActiveSessionByPlate(ctx, plate)
	if err != nil {
		return PlateStatus{}, err
	}
	if session == nil {
		return PlateStatus{}, domain.ErrNoActiveSession
	}

	status := PlateStatus{
		Plate:         plate,
		PriceUntilNow: s.estimate(*session),
		EntryTime:     session.EntryTime,
		ParkedTime:    session.ParkedTime,
	}

	if session.SpotID.Valid {
		spot, err := s.repo.FindSpotByID(ctx, session.SpotID.Int64)
		if err != nil {
			return PlateStatus{}, err
		}
		if spot == nil {
			s.logger.Printf("WARN: session %s references missing spot %d", session.ID, session.SpotID.Int64)
		} else {
			lat, _ := spot.Lat.Float64()
			lng, _ := spot.Lng.Float64()
			status.Lat, status.Lng = &lat, &lng
		}
	}
	return status, nil
}

type SpotStatus struct {
	Occupied      bool
	Plate         string
	PriceUntilNow decimal.Decimal
	EntryTime     null.Time
	ParkedTime    null.Time
}

// SpotStatus reports whether the spot at the given coordinates is occupied
// and, when it is, by which session. A spot marked occupied with no parked
// session behind it is an internal inconsistency: it is logged and reported
// as occupied with unknown details rather than failing the query.
func (s *StatusService) SpotStatus(ctx context.Context, lat, lng float64) (SpotStatus, error) {
	spot, err := s.repo.FindSpotByCoordinates(ctx, decimal.NewFromFloat(lat).RoundBank(8), decimal.NewFromFloat(lng).RoundBank(8))
	if err != nil {
		return SpotStatus{}, err
	}
	if spot == nil {
		return SpotStatus{}, domain.ErrSpotNotFound
	}
	if spot.Status != domain.SpotOccupied {
		return SpotStatus{PriceUntilNow: decimal.Zero}, nil
	}

	session, err := s.repo.FindActiveSessionBySpotID(ctx, spot.ID)
	if err != nil {
		return SpotStatus{}, err
	}
	if session == nil {
		s.logger.Printf("WARN: spot %d marked occupied with no parked session", spot.ID)
		return SpotStatus{Occupied: true, PriceUntilNow: decimal.Zero}, nil
	}

	plate, err := s.repo.VehiclePlate(ctx, session.VehicleID)
	if err != nil {
		return SpotStatus{}, err
	}

	return SpotStatus{
		Occupied:      true,
		Plate:         plate,
		PriceUntilNow: s.estimate(*session),
		EntryTime:     null.TimeFrom(session.EntryTime),
		ParkedTime:    session.ParkedTime,
	}, nil
}

func (s *StatusService) estimate(session domain.Session) decimal.Decimal {
	minutes := int64(s.clock.Now().Sub(session.EntryTime).Minutes())
	if minutes < 0 {
		minutes = 0
	}
	return pricing.Price(session.BasePrice, session.PriceFactor, minutes)
}
