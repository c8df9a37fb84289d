package app

import (
	"context"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"github.com/IvanSaavedra7/parking/internal/clock"
	"github.com/IvanSaavedra7/parking/internal/domain"
	"github.com/IvanSaavedra7/parking/internal/pricing"
)

// GarageConfig is the topology payload served by the external garage source.
type GarageConfig struct {
	Garage []SectorConfig `json:"garage"`
	Spots  []SpotConfig   `json:"spots"`
}

type SectorConfig struct {
	Sector               string  `json:"sector"`
	BasePrice            float64 `json:"basePrice"`
	MaxCapacity          int     `json:"max_capacity"`
	OpenHour             string  `json:"open_hour"`
	CloseHour            string  `json:"close_hour"`
	DurationLimitMinutes *int64  `json:"duration_limit_minutes"`
}

type SpotConfig struct {
	ID     int64   `json:"id"`
	Sector string  `json:"sector"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
}

// GarageFetcher obtains the garage topology from its configuration source.
type GarageFetcher interface {
	FetchGarage(ctx context.Context) (GarageConfig, error)
}

// GarageRepository persists the imported topology.
type GarageRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	ResetTopology(ctx context.Context) error
	InsertSector(ctx context.Context, sector domain.Sector) (int64, error)
	InsertSpot(ctx context.Context, spot domain.Spot) error
	AppendOccupancy(ctx context.Context, snap domain.OccupancySnapshot) error
}

// GarageService performs the one-time bulk load of sectors and spots and
// seeds each sector with a zero-occupancy snapshot.
type GarageService struct {
	fetcher GarageFetcher
	repo    GarageRepository
	clock   clock.Clock
	logger  *log.Logger
}

func NewGarageService(fetcher GarageFetcher, repo GarageRepository, clk clock.Clock, logger *log.Logger) *GarageService {
	if logger == nil {
		logger = log.Default()
	}
	return &GarageService{fetcher: fetcher, repo: repo, clock: clk, logger: logger}
}

// Import wipes any previous topology and reloads it from the source.
func (s *GarageService) Import(ctx context.Context) error {
	cfg, err := s.fetcher.FetchGarage(ctx)
	if err != nil {
		return fmt.Errorf("fetch garage topology: %w", err)
	}
	s.logger.Printf("importing garage topology: %d sectors, %d spots", len(cfg.Garage), len(cfg.Spots))

	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.ResetTopology(txCtx); err != nil {
			return err
		}

		sectorIDs := make(map[string]int64, len(cfg.Garage))
		spotsPerSector := make(map[string]int, len(cfg.Garage))
		for _, sc := range cfg.Garage {
			sector, err := sectorFromConfig(sc)
			if err != nil {
				return err
			}
			id, err := s.repo.InsertSector(txCtx, sector)
			if err != nil {
				return err
			}
			sectorIDs[sc.Sector] = id
		}

		for _, sp := range cfg.Spots {
			sectorID, ok := sectorIDs[sp.Sector]
			if !ok {
				return fmt.Errorf("spot %d references unknown sector %q", sp.ID, sp.Sector)
			}
			spot := domain.Spot{
				ID:       sp.ID,
				SectorID: sectorID,
				Lat:      decimal.NewFromFloat(sp.Lat).RoundBank(8),
				Lng:      decimal.NewFromFloat(sp.Lng).RoundBank(8),
				Status:   domain.SpotAvailable,
			}
			if err := s.repo.InsertSpot(txCtx, spot); err != nil {
				return err
			}
			spotsPerSector[sp.Sector]++
		}

		now := s.clock.Now()
		for code, sectorID := range sectorIDs {
			if err := s.repo.AppendOccupancy(txCtx, domain.OccupancySnapshot{
				SectorID:       sectorID,
				RecordedAt:     now,
				OccupiedSpots:  0,
				TotalSpots:     spotsPerSector[code],
				OccupancyRatio: decimal.Zero,
				PriceFactor:    pricing.Factor(decimal.Zero),
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

func sectorFromConfig(sc SectorConfig) (domain.Sector, error) {
	open, err := domain.ParseTimeOfDay(sc.OpenHour)
	if err != nil {
		return domain.Sector{}, fmt.Errorf("sector %s: %w", sc.Sector, err)
	}
	closeAt, err := domain.ParseTimeOfDay(sc.CloseHour)
	if err != nil {
		return domain.Sector{}, fmt.Errorf("sector %s: %w", sc.Sector, err)
	}

	sector := domain.Sector{
		Code:        sc.Sector,
		BasePrice:   decimal.NewFromFloat(sc.BasePrice).RoundBank(2),
		MaxCapacity: sc.MaxCapacity,
		OpenHour:    open,
		CloseHour:   closeAt,
	}
	if sc.DurationLimitMinutes != nil {
		sector.DurationLimitMinutes = null.IntFrom(*sc.DurationLimitMinutes)
	}
	return sector, nil
}
