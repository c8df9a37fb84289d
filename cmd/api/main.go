package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanSaavedra7/parking/internal/app"
	"github.com/IvanSaavedra7/parking/internal/clock"
	"github.com/IvanSaavedra7/parking/internal/config"
	"github.com/IvanSaavedra7/parking/internal/simulator"
	"github.com/IvanSaavedra7/parking/internal/storage/postgres"
	transporthttp "github.com/IvanSaavedra7/parking/internal/transport/http"
	"github.com/IvanSaavedra7/parking/migrations"
)

func main() {
	logger := log.Default()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	clk := clock.NewSystem()
	sessionRepo := postgres.NewSessionRepository(pool)
	statusRepo := postgres.NewStatusRepository(pool)
	revenueRepo := postgres.NewRevenueRepository(pool)
	garageRepo := postgres.NewGarageRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)

	sessionSvc := app.NewSessionService(sessionRepo, auditRepo, clk, logger)
	statusSvc := app.NewStatusService(statusRepo, clk, logger)
	revenueSvc := app.NewRevenueService(revenueRepo, clk)

	if cfg.SkipGarageImport {
		logger.Printf("WARN: SKIP_GARAGE_IMPORT set, keeping existing garage topology")
	} else {
		importCtx, importCancel := context.WithTimeout(context.Background(), 30*time.Second)
		simClient := simulator.NewClient(cfg.SimulatorURL, nil)
		garageSvc := app.NewGarageService(simClient, garageRepo, clk, logger)
		if err := garageSvc.Import(importCtx); err != nil {
			importCancel()
			log.Fatalf("import garage config: %v", err)
		}
		importCancel()
		logger.Printf("garage topology imported from %s", cfg.SimulatorURL)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/ready", transporthttp.ReadinessHandler(pool))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/webhook", transporthttp.HandleWebhook(sessionSvc))
	mux.Handle("/plate-status", transporthttp.HandlePlateStatus(statusSvc))
	mux.Handle("/spot-status", transporthttp.HandleSpotStatus(statusSvc))
	mux.Handle("/revenue", transporthttp.HandleRevenue(revenueSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSAllowed, mux), logger)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
