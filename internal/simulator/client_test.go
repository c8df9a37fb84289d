package simulator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClient_FetchGarage(t *testing.T) {
	t.Parallel()

	t.Run("decodes topology payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/garage" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{
				"garage": [
					{"sector": "A", "basePrice": 10.0, "max_capacity": 100, "open_hour": "08:00", "close_hour": "22:00", "duration_limit_minutes": 240}
				],
				"spots": [
					{"id": 1, "sector": "A", "lat": -23.561684, "lng": -46.655981}
				]
			}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		cfg, err := client.FetchGarage(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(cfg.Garage) != 1 || len(cfg.Spots) != 1 {
			t.Fatalf("expected 1 sector and 1 spot, got %d/%d", len(cfg.Garage), len(cfg.Spots))
		}
		sector := cfg.Garage[0]
		if sector.Sector != "A" || sector.BasePrice != 10.0 || sector.MaxCapacity != 100 {
			t.Fatalf("unexpected sector: %+v", sector)
		}
		if sector.DurationLimitMinutes == nil || *sector.DurationLimitMinutes != 240 {
			t.Fatalf("expected duration limit 240, got %v", sector.DurationLimitMinutes)
		}
		spot := cfg.Spots[0]
		if spot.ID != 1 || spot.Sector != "A" || spot.Lat != -23.561684 {
			t.Fatalf("unexpected spot: %+v", spot)
		}
	})

	t.Run("non-200 response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		if _, err := client.FetchGarage(context.Background()); err == nil {
			t.Fatalf("expected error for 500 response")
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{nope`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		if _, err := client.FetchGarage(context.Background()); err == nil {
			t.Fatalf("expected decode error")
		}
	})

	t.Run("unreachable server", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", nil)
		if _, err := client.FetchGarage(context.Background()); err == nil {
			t.Fatalf("expected connection error")
		}
	})
}
