package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/IvanSaavedra7/parking/internal/app"
	"github.com/IvanSaavedra7/parking/internal/domain"
)

// StatusReader is the minimal interface needed to answer status queries.
type StatusReader interface {
	PlateStatus(rctx context.Context, plate string) (app.PlateStatus, error)
	SpotStatus(rctx context.Context, lat, lng float64) (app.SpotStatus, error)
}

type plateStatusRequest struct {
	LicensePlate string `json:"license_plate"`
}

type plateStatusResponse struct {
	LicensePlate  string     `json:"license_plate"`
	PriceUntilNow float64    `json:"price_until_now"`
	EntryTime     time.Time  `json:"entry_time"`
	TimeParked    *time.Time `json:"time_parked,omitempty"`
	Lat           *float64   `json:"lat,omitempty"`
	Lng           *float64   `json:"lng,omitempty"`
}

// HandlePlateStatus returns an HTTP handler reporting a vehicle's current
// session and the price accrued so far.
func HandlePlateStatus(svc StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req plateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.LicensePlate == "" {
			writeError(w, http.StatusBadRequest, codeValidationError, domain.ErrPlateRequired.Error())
			return
		}

		status, err := svc.PlateStatus(r.Context(), req.LicensePlate)
		if err != nil {
			if errors.Is(err, domain.ErrNoActiveSession) {
				writeError(w, http.StatusNotFound, codeNotFound, err.Error())
				return
			}
			writeDomainError(w, err)
			return
		}

		resp := plateStatusResponse{
			LicensePlate:  status.Plate,
			PriceUntilNow: status.PriceUntilNow.InexactFloat64(),
			EntryTime:     status.EntryTime,
			Lat:           status.Lat,
			Lng:           status.Lng,
		}
		if status.ParkedTime.Valid {
			resp.TimeParked = &status.ParkedTime.Time
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type spotStatusRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

type spotStatusResponse struct {
	Occupied      bool       `json:"occupied"`
	LicensePlate  string     `json:"license_plate"`
	PriceUntilNow float64    `json:"price_until_now"`
	EntryTime     *time.Time `json:"entry_time,omitempty"`
	TimeParked    *time.Time `json:"time_parked,omitempty"`
}

// HandleSpotStatus returns an HTTP handler reporting whether a spot is
// occupied and, if so, by whom.
func HandleSpotStatus(svc StatusReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req spotStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if req.Lat == nil || req.Lng == nil {
			writeError(w, http.StatusBadRequest, codeValidationError, domain.ErrCoordinatesRequired.Error())
			return
		}

		status, err := svc.SpotStatus(r.Context(), *req.Lat, *req.Lng)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := spotStatusResponse{
			Occupied:      status.Occupied,
			LicensePlate:  status.Plate,
			PriceUntilNow: status.PriceUntilNow.InexactFloat64(),
		}
		if status.EntryTime.Valid {
			resp.EntryTime = &status.EntryTime.Time
		}
		if status.ParkedTime.Valid {
			resp.TimeParked = &status.ParkedTime.Time
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
