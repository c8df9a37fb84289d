package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/IvanSaavedra7/parking/internal/app"
)

// RevenueReader is the minimal interface needed to answer revenue queries.
type RevenueReader interface {
	Daily(rctx context.Context, sectorCode string, date time.Time) (app.DailyRevenueReport, error)
}

type revenueResponse struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Timestamp time.Time `json:"timestamp"`
}

// HandleRevenue returns an HTTP handler for daily revenue per sector.
func HandleRevenue(svc RevenueReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		sector := r.URL.Query().Get("sector")
		if sector == "" {
			writeError(w, http.StatusBadRequest, codeValidationError, "sector is required")
			return
		}
		rawDate := r.URL.Query().Get("date")
		if rawDate == "" {
			writeError(w, http.StatusBadRequest, codeValidationError, "date is required")
			return
		}
		date, err := time.ParseInLocation("2006-01-02", rawDate, time.UTC)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidDate, "invalid date format, want YYYY-MM-DD")
			return
		}

		report, err := svc.Daily(r.Context(), sector, date)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := revenueResponse{
			Amount:    report.Amount.InexactFloat64(),
			Currency:  report.Currency,
			Timestamp: report.Timestamp,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
