package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/IvanSaavedra7/parking/internal/app"
	"github.com/IvanSaavedra7/parking/internal/domain"
	"github.com/IvanSaavedra7/parking/internal/metrics"
)

// SessionProcessor is the minimal interface needed to process webhook events.
type SessionProcessor interface {
	Entry(rctx context.Context, in app.EntryInput) (domain.Session, error)
	Park(rctx context.Context, in app.ParkInput) (domain.Session, error)
	Exit(rctx context.Context, in app.ExitInput) (domain.Session, error)
}

type webhookRequest struct {
	EventType    string   `json:"event_type"`
	LicensePlate string   `json:"license_plate"`
	EntryTime    string   `json:"entry_time,omitempty"`
	ExitTime     string   `json:"exit_time,omitempty"`
	Lat          *float64 `json:"lat,omitempty"`
	Lng          *float64 `json:"lng,omitempty"`
}

type webhookResponse struct {
	Status    string   `json:"status"`
	SessionID string   `json:"session_id"`
	Price     *float64 `json:"price,omitempty"`
}

// Simulator timestamps come either with an explicit offset or as bare
// local time, which is interpreted as UTC.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05"}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// HandleWebhook returns an HTTP handler for garage simulator events.
func HandleWebhook(svc SessionProcessor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		var req webhookRequest
		dec := json.NewDecoder(r.Body)
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		start := time.Now()
		session, err := dispatchEvent(r.Context(), svc, w, req)
		if err == nil && session == nil {
			// dispatchEvent already wrote the malformed-request response.
			return
		}
		metrics.ObserveWebhook(req.EventType, err, time.Since(start))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := webhookResponse{
			Status:    "success",
			SessionID: session.ID,
		}
		if session.FinalPrice.Valid {
			price := session.FinalPrice.Decimal.InexactFloat64()
			resp.Price = &price
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// dispatchEvent routes the event to the matching service operation. A nil
// session with a nil error means the request was malformed and a response
// has already been written.
func dispatchEvent(ctx context.Context, svc SessionProcessor, w http.ResponseWriter, req webhookRequest) (*domain.Session, error) {
	switch req.EventType {
	case domain.EventEntry:
		in := app.EntryInput{Plate: req.LicensePlate}
		if req.EntryTime != "" {
			t, ok := parseTimestamp(req.EntryTime)
			if !ok {
				writeError(w, http.StatusBadRequest, codeInvalidTimestamp, "invalid entry_time format")
				return nil, nil
			}
			in.EntryTime = &t
		}
		session, err := svc.Entry(ctx, in)
		if err != nil {
			return nil, err
		}
		return &session, nil

	case domain.EventParked:
		session, err := svc.Park(ctx, app.ParkInput{
			Plate: req.LicensePlate,
			Lat:   req.Lat,
			Lng:   req.Lng,
		})
		if err != nil {
			return nil, err
		}
		return &session, nil

	case domain.EventExit:
		in := app.ExitInput{Plate: req.LicensePlate}
		if req.ExitTime != "" {
			t, ok := parseTimestamp(req.ExitTime)
			if !ok {
				writeError(w, http.StatusBadRequest, codeInvalidTimestamp, "invalid exit_time format")
				return nil, nil
			}
			in.ExitTime = &t
		}
		session, err := svc.Exit(ctx, in)
		if err != nil {
			return nil, err
		}
		return &session, nil

	default:
		writeError(w, http.StatusBadRequest, codeInvalidEventType, "unknown event_type")
		return nil, nil
	}
}
