// Package metrics exposes the Prometheus instruments used across the service.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/IvanSaavedra7/parking/internal/domain"
)

var (
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parking_webhook_events_total",
		Help: "Total number of webhook events handled, labelled by type and outcome.",
	}, []string{"event_type", "outcome"})

	EntriesDenied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parking_entries_denied_total",
		Help: "Total number of entries denied because no sector could admit the vehicle.",
	})

	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parking_webhook_duration_ms",
		Help:    "Webhook event handling latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"event_type"})
)

// ObserveWebhook records the outcome and latency of one webhook event.
func ObserveWebhook(eventType string, err error, elapsed time.Duration) {
	outcome := "success"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNoSectorAvailable):
		outcome = "denied"
		EntriesDenied.Inc()
	case domain.Kind(err) == domain.KindConflict:
		outcome = "conflict"
	case domain.Kind(err) == domain.KindValidation, domain.Kind(err) == domain.KindNotFound:
		outcome = "rejected"
	default:
		outcome = "error"
	}
	WebhookEvents.WithLabelValues(eventType, outcome).Inc()
	WebhookDuration.WithLabelValues(eventType).Observe(float64(elapsed.Milliseconds()))
}
