package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/IvanSaavedra7/parking/internal/domain"
	"github.com/IvanSaavedra7/parking/internal/testutil"
)

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parse decimal %q: %v", s, err)
	}
	return d
}

func TestSessionRepository(t *testing.T) {
	pool := testutil.NewTestPool(t)
	repo := NewSessionRepository(pool)
	testutil.ApplyMigrations(t, context.Background(), pool)

	entryAt := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	newSession := func(vehicleID, sectorID int64) domain.Session {
		return domain.Session{
			ID:          uuid.NewString(),
			VehicleID:   vehicleID,
			SectorID:    sectorID,
			EntryTime:   entryAt,
			BasePrice:   mustDecimal(t, "10.00"),
			PriceFactor: mustDecimal(t, "1.00"),
			Status:      domain.SessionEntered,
		}
	}

	t.Run("UpsertVehicle is stable per plate", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		first, err := repo.UpsertVehicle(ctx, "ZUL0001")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		second, err := repo.UpsertVehicle(ctx, "ZUL0001")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if first.ID != second.ID {
			t.Fatalf("expected same vehicle id, got %d and %d", first.ID, second.ID)
		}
	})

	t.Run("CreateSession and FindActiveSessionByPlate roundtrip", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "ZUL0002")

		created := newSession(vehicleID, sectorID)
		if err := repo.CreateSession(ctx, created); err != nil {
			t.Fatalf("create session: %v", err)
		}

		found, err := repo.FindActiveSessionByPlate(ctx, "ZUL0002")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if found == nil || found.ID != created.ID {
			t.Fatalf("unexpected session: %+v", found)
		}
		if !found.EntryTime.Equal(entryAt) {
			t.Fatalf("expected entry time %v, got %v", entryAt, found.EntryTime)
		}
		if !found.PriceFactor.Equal(mustDecimal(t, "1.00")) {
			t.Fatalf("expected factor 1.00, got %s", found.PriceFactor)
		}

		missing, err := repo.FindActiveSessionByPlate(ctx, "NOPE")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if missing != nil {
			t.Fatalf("expected nil for unknown plate, got %+v", missing)
		}
	})

	t.Run("second active session per vehicle violates unique index", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "ZUL0003")

		if err := repo.CreateSession(ctx, newSession(vehicleID, sectorID)); err != nil {
			t.Fatalf("first session: %v", err)
		}
		err := repo.CreateSession(ctx, newSession(vehicleID, sectorID))
		if err != domain.ErrVehicleAlreadyInGarage {
			t.Fatalf("expected ErrVehicleAlreadyInGarage, got %v", err)
		}
	})

	t.Run("MarkSessionParked binds spot and enforces spot exclusivity", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		testutil.InsertSpot(t, ctx, pool, 1, sectorID, "-23.561684", "-46.655981")

		v1 := testutil.InsertVehicle(t, ctx, pool, "ZUL0004")
		v2 := testutil.InsertVehicle(t, ctx, pool, "ZUL0005")
		s1 := newSession(v1, sectorID)
		s2 := newSession(v2, sectorID)
		if err := repo.CreateSession(ctx, s1); err != nil {
			t.Fatalf("session 1: %v", err)
		}
		if err := repo.CreateSession(ctx, s2); err != nil {
			t.Fatalf("session 2: %v", err)
		}

		parkedAt := entryAt.Add(2 * time.Minute)
		if err := repo.MarkSessionParked(ctx, s1.ID, 1, parkedAt); err != nil {
			t.Fatalf("park session 1: %v", err)
		}

		err := repo.MarkSessionParked(ctx, s2.ID, 1, parkedAt)
		if err != domain.ErrSpotOccupied {
			t.Fatalf("expected ErrSpotOccupied, got %v", err)
		}

		err = repo.MarkSessionParked(ctx, uuid.NewString(), 1, parkedAt)
		if err != domain.ErrSessionNotFound && err != domain.ErrSpotOccupied {
			t.Fatalf("expected not-found or occupied for unknown session, got %v", err)
		}
	})

	t.Run("FinalizeSession closes the session", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		vehicleID := testutil.InsertVehicle(t, ctx, pool, "ZUL0006")
		s := newSession(vehicleID, sectorID)
		if err := repo.CreateSession(ctx, s); err != nil {
			t.Fatalf("create session: %v", err)
		}

		exitAt := entryAt.Add(90 * time.Minute)
		if err := repo.FinalizeSession(ctx, s.ID, exitAt, 90, mustDecimal(t, "15.00")); err != nil {
			t.Fatalf("finalize: %v", err)
		}

		active, err := repo.FindActiveSessionByPlate(ctx, "ZUL0006")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if active != nil {
			t.Fatalf("expected no active session after exit, got %+v", active)
		}

		if err := repo.FinalizeSession(ctx, uuid.NewString(), exitAt, 1, decimal.Zero); err != domain.ErrSessionNotFound {
			t.Fatalf("expected ErrSessionNotFound, got %v", err)
		}
	})

	t.Run("ListSectors orders by code", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		testutil.InsertSector(t, ctx, pool, "B", "4.00", 5)
		testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)

		sectors, err := repo.ListSectors(ctx)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(sectors) != 2 || sectors[0].Code != "A" || sectors[1].Code != "B" {
			t.Fatalf("unexpected sector order: %+v", sectors)
		}
	})

	t.Run("GetSectorForUpdate missing sector", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			_, err := repo.GetSectorForUpdate(txCtx, 999)
			return err
		})
		if err != domain.ErrSectorNotFound {
			t.Fatalf("expected ErrSectorNotFound, got %v", err)
		}
	})

	t.Run("spot lookups", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		testutil.InsertSpot(t, ctx, pool, 7, sectorID, "-23.56168400", "-46.65598100")

		err := repo.WithTx(ctx, func(txCtx context.Context) error {
			spot, err := repo.FindSpotByCoordinatesForUpdate(txCtx, mustDecimal(t, "-23.56168400"), mustDecimal(t, "-46.65598100"))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if spot == nil || spot.ID != 7 {
				t.Fatalf("unexpected spot: %+v", spot)
			}
			if spot.Status != domain.SpotAvailable {
				t.Fatalf("expected AVAILABLE, got %s", spot.Status)
			}

			missing, err := repo.FindSpotByCoordinatesForUpdate(txCtx, decimal.Zero, decimal.Zero)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if missing != nil {
				t.Fatalf("expected nil for unknown coordinates, got %+v", missing)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx failed: %v", err)
		}

		if err := repo.UpdateSpotStatus(ctx, 7, domain.SpotOccupied); err != nil {
			t.Fatalf("update spot: %v", err)
		}
		spot, err := repo.FindSpotByID(ctx, 7)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if spot.Status != domain.SpotOccupied {
			t.Fatalf("expected OCCUPIED, got %s", spot.Status)
		}

		if err := repo.UpdateSpotStatus(ctx, 999, domain.SpotOccupied); err != domain.ErrSpotNotFound {
			t.Fatalf("expected ErrSpotNotFound, got %v", err)
		}
	})

	t.Run("occupancy counts and snapshots", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		testutil.InsertSpot(t, ctx, pool, 1, sectorID, "-23.1", "-46.1")
		testutil.InsertSpot(t, ctx, pool, 2, sectorID, "-23.2", "-46.2")

		vehicleID := testutil.InsertVehicle(t, ctx, pool, "ZUL0007")
		if err := repo.CreateSession(ctx, newSession(vehicleID, sectorID)); err != nil {
			t.Fatalf("create session: %v", err)
		}

		active, err := repo.CountActiveSessionsBySector(ctx, sectorID)
		if err != nil {
			t.Fatalf("count active: %v", err)
		}
		if active != 1 {
			t.Fatalf("expected 1 active session, got %d", active)
		}
		spots, err := repo.CountSpotsBySector(ctx, sectorID)
		if err != nil {
			t.Fatalf("count spots: %v", err)
		}
		if spots != 2 {
			t.Fatalf("expected 2 spots, got %d", spots)
		}

		latest, err := repo.LatestOccupancy(ctx, sectorID)
		if err != nil {
			t.Fatalf("latest occupancy: %v", err)
		}
		if latest != nil {
			t.Fatalf("expected no snapshot yet, got %+v", latest)
		}

		snap := domain.OccupancySnapshot{
			SectorID:       sectorID,
			RecordedAt:     entryAt,
			OccupiedSpots:  1,
			TotalSpots:     2,
			OccupancyRatio: mustDecimal(t, "0.5000"),
			PriceFactor:    mustDecimal(t, "1.10"),
		}
		if err := repo.AppendOccupancy(ctx, snap); err != nil {
			t.Fatalf("append occupancy: %v", err)
		}
		snap.OccupiedSpots = 2
		snap.OccupancyRatio = mustDecimal(t, "1.0000")
		snap.PriceFactor = mustDecimal(t, "1.25")
		if err := repo.AppendOccupancy(ctx, snap); err != nil {
			t.Fatalf("append occupancy: %v", err)
		}

		latest, err = repo.LatestOccupancy(ctx, sectorID)
		if err != nil {
			t.Fatalf("latest occupancy: %v", err)
		}
		if latest == nil || latest.OccupiedSpots != 2 {
			t.Fatalf("expected latest snapshot with 2 occupied, got %+v", latest)
		}
		if !latest.OccupancyRatio.Equal(mustDecimal(t, "1.0000")) {
			t.Fatalf("expected ratio 1.0000, got %s", latest.OccupancyRatio)
		}
	})

	t.Run("daily revenue insert and update", func(t *testing.T) {
		ctx := context.Background()
		testutil.TruncateAll(t, ctx, pool)

		sectorID := testutil.InsertSector(t, ctx, pool, "A", "10.00", 10)
		date := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		missing, err := repo.GetDailyRevenueForUpdate(ctx, sectorID, date)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if missing != nil {
			t.Fatalf("expected nil before first exit, got %+v", missing)
		}

		if err := repo.InsertDailyRevenue(ctx, domain.DailyRevenue{
			SectorID:           sectorID,
			Date:               date,
			Amount:             mustDecimal(t, "15.00"),
			SessionCount:       1,
			AvgDurationMinutes: mustDecimal(t, "90.00"),
		}); err != nil {
			t.Fatalf("insert revenue: %v", err)
		}

		rev, err := repo.GetDailyRevenueForUpdate(ctx, sectorID, date)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rev == nil || !rev.Amount.Equal(mustDecimal(t, "15.00")) {
			t.Fatalf("unexpected revenue: %+v", rev)
		}

		rev.Amount = mustDecimal(t, "35.00")
		rev.SessionCount = 2
		rev.AvgDurationMinutes = mustDecimal(t, "105.00")
		if err := repo.UpdateDailyRevenue(ctx, *rev); err != nil {
			t.Fatalf("update revenue: %v", err)
		}

		rev, err = repo.GetDailyRevenueForUpdate(ctx, sectorID, date)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if rev.SessionCount != 2 || !rev.Amount.Equal(mustDecimal(t, "35.00")) {
			t.Fatalf("unexpected revenue after update: %+v", rev)
		}
	})
}
