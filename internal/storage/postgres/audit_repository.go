package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IvanSaavedra7/parking/internal/domain"
)

// AuditRepository appends immutable audit-log entries.
type AuditRepository struct {
	querier
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{querier{pool: pool}}
}

func (r *AuditRepository) Record(ctx context.Context, ev domain.SystemEvent) error {
	const stmt = `
INSERT INTO system_events (id, event_type, entity_type, entity_id, description, metadata, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	_, err := r.exec(ctx, stmt, id, ev.EventType, ev.EntityType, ev.EntityID, ev.Description, ev.Metadata, ev.RecordedAt)
	if err != nil {
		return fmt.Errorf("record system event: %w", err)
	}
	return nil
}
