package domain

import "time"

const (
	EventEntry       = "ENTRY"
	EventEntryDenied = "ENTRY_DENIED"
	EventParked      = "PARKED"
	EventExit        = "EXIT"

	EntityVehicle = "VEHICLE"
)

// SystemEvent is an immutable audit-log entry. The core only ever writes
// these; failures to persist one are logged and never fail the triggering
// operation.
type SystemEvent struct {
	ID          string
	EventType   string
	EntityType  string
	EntityID    int64
	Description string
	Metadata    map[string]string
	RecordedAt  time.Time
}
