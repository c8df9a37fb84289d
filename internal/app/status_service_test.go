package app

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"github.com/IvanSaavedra7/parking/internal/clock"
	"github.com/IvanSaavedra7/parking/internal/domain"
)

func TestStatusService_PlateStatus(t *testing.T) {
	t.Parallel()

	entryAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := entryAt.Add(90 * time.Minute)

	t.Run("reports running price for active session", func(t *testing.T) {
		repo := &fakeStatusRepo{
			session: &domain.Session{
				ID:          "s-1",
				VehicleID:   1,
				EntryTime:   entryAt,
				BasePrice:   dec("10.00"),
				PriceFactor: dec("1.00"),
				Status:      domain.SessionEntered,
			},
			plates: map[int64]string{1: "ZUL3001"},
		}
		svc := NewStatusService(repo, clock.NewFixed(now), nil)

		status, err := svc.PlateStatus(context.Background(), "ZUL3001")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !status.PriceUntilNow.Equal(dec("15.00")) {
			t.Fatalf("expected price 15.00, got %s", status.PriceUntilNow)
		}
		if !status.EntryTime.Equal(entryAt) {
			t.Fatalf("expected entry time %v, got %v", entryAt, status.EntryTime)
		}
		if status.Lat != nil || status.Lng != nil {
			t.Fatalf("expected no coordinates before parking")
		}
	})

	t.Run("includes spot coordinates when parked", func(t *testing.T) {
		parkedAt := entryAt.Add(5 * time.Minute)
		repo := &fakeStatusRepo{
			session: &domain.Session{
				ID:          "s-2",
				VehicleID:   1,
				SpotID:      null.IntFrom(42),
				EntryTime:   entryAt,
				ParkedTime:  null.TimeFrom(parkedAt),
				BasePrice:   dec("10.00"),
				PriceFactor: dec("1.00"),
				Status:      domain.SessionParked,
			},
			spot: &domain.Spot{
				ID:     42,
				Lat:    dec("-23.561684"),
				Lng:    dec("-46.655981"),
				Status: domain.SpotOccupied,
			},
			plates: map[int64]string{1: "ZUL3002"},
		}
		svc := NewStatusService(repo, clock.NewFixed(now), nil)

		status, err := svc.PlateStatus(context.Background(), "ZUL3002")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Lat == nil || *status.Lat != -23.561684 {
			t.Fatalf("expected lat -23.561684, got %v", status.Lat)
		}
		if !status.ParkedTime.Valid || !status.ParkedTime.Time.Equal(parkedAt) {
			t.Fatalf("expected parked time %v, got %v", parkedAt, status.ParkedTime)
		}
	})

	t.Run("no active session", func(t *testing.T) {
		svc := NewStatusService(&fakeStatusRepo{}, clock.NewFixed(now), nil)
		_, err := svc.PlateStatus(context.Background(), "ZUL3003")
		if err != domain.ErrNoActiveSession {
			t.Fatalf("expected ErrNoActiveSession, got %v", err)
		}
	})

	t.Run("missing plate", func(t *testing.T) {
		svc := NewStatusService(&fakeStatusRepo{}, clock.NewFixed(now), nil)
		_, err := svc.PlateStatus(context.Background(), "")
		if err != domain.ErrPlateRequired {
			t.Fatalf("expected ErrPlateRequired, got %v", err)
		}
	})
}

func TestStatusService_SpotStatus(t *testing.T) {
	t.Parallel()

	entryAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	now := entryAt.Add(60 * time.Minute)

	t.Run("free spot", func(t *testing.T) {
		repo := &fakeStatusRepo{
			spot: &domain.Spot{ID: 7, Lat: dec("-23.5"), Lng: dec("-46.6"), Status: domain.SpotAvailable},
		}
		svc := NewStatusService(repo, clock.NewFixed(now), nil)

		status, err := svc.SpotStatus(context.Background(), -23.5, -46.6)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if status.Occupied {
			t.Fatalf("expected spot to be free")
		}
		if !status.PriceUntilNow.IsZero() {
			t.Fatalf("expected zero price for free spot, got %s", status.PriceUntilNow)
		}
	})

	t.Run("occupied spot with session", func(t *testing.T) {
		repo := &fakeStatusRepo{
			spot: &domain.Spot{ID: 7, Lat: dec("-23.5"), Lng: dec("-46.6"), Status: domain.SpotOccupied},
			session: &domain.Session{
				ID:          "s-3",
				VehicleID:   9,
				SpotID:      null.IntFrom(7),
				EntryTime:   entryAt,
				ParkedTime:  null.TimeFrom(entryAt.Add(2 * time.Minute)),
				BasePrice:   dec("10.00"),
				PriceFactor: dec("1.10"),
				Status:      domain.SessionParked,
			},
			plates: map[int64]string{9: "ZUL3004"},
		}
		svc := NewStatusService(repo, clock.NewFixed(now), nil)

		status, err := svc.SpotStatus(context.Background(), -23.5, -46.6)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !status.Occupied {
			t.Fatalf("expected spot to be occupied")
		}
		if status.Plate != "ZUL3004" {
			t.Fatalf("expected plate ZUL3004, got %s", status.Plate)
		}
		if !status.PriceUntilNow.Equal(dec("11.00")) {
			t.Fatalf("expected price 11.00, got %s", status.PriceUntilNow)
		}
	})

	t.Run("occupied spot without session", func(t *testing.T) {
		repo := &fakeStatusRepo{
			spot: &domain.Spot{ID: 7, Lat: dec("-23.5"), Lng: dec("-46.6"), Status: domain.SpotOccupied},
		}
		svc := NewStatusService(repo, clock.NewFixed(now), nil)

		status, err := svc.SpotStatus(context.Background(), -23.5, -46.6)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !status.Occupied {
			t.Fatalf("expected spot reported occupied")
		}
		if status.Plate != "" {
			t.Fatalf("expected no plate, got %s", status.Plate)
		}
	})

	t.Run("unknown coordinates", func(t *testing.T) {
		svc := NewStatusService(&fakeStatusRepo{}, clock.NewFixed(now), nil)
		_, err := svc.SpotStatus(context.Background(), 0, 0)
		if err != domain.ErrSpotNotFound {
			t.Fatalf("expected ErrSpotNotFound, got %v", err)
		}
	})
}

type fakeStatusRepo struct {
	session *domain.Session
	spot    *domain.Spot
	plates  map[int64]string
}

func (f *fakeStatusRepo) FindActiveSessionByPlate(_ context.Context, plate string) (*domain.Session, error) {
	if f.session == nil {
		return nil, nil
	}
	copied := *f.session
	return &copied, nil
}

func (f *fakeStatusRepo) FindActiveSessionBySpotID(_ context.Context, spotID int64) (*domain.Session, error) {
	if f.session == nil || !f.session.SpotID.Valid || f.session.SpotID.Int64 != spotID {
		return nil, nil
	}
	copied := *f.session
	return &copied, nil
}

func (f *fakeStatusRepo) FindSpotByCoordinates(_ context.Context, lat, lng decimal.Decimal) (*domain.Spot, error) {
	if f.spot == nil || !f.spot.Lat.Equal(lat) || !f.spot.Lng.Equal(lng) {
		return nil, nil
	}
	copied := *f.spot
	return &copied, nil
}

func (f *fakeStatusRepo) FindSpotByID(_ context.Context, spotID int64) (*domain.Spot, error) {
	if f.spot == nil || f.spot.ID != spotID {
		return nil, nil
	}
	copied := *f.spot
	return &copied, nil
}

func (f *fakeStatusRepo) VehiclePlate(_ context.Context, vehicleID int64) (string, error) {
	plate, ok := f.plates[vehicleID]
	if !ok {
		return "", domain.ErrSessionNotFound
	}
	return plate, nil
}
