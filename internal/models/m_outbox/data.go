package m_outbox

import (
	"fmt"
	"time"

	"cloud.google.com/go/spanner"
)

// Data represents the database model for the outbox_events table.
type Data struct {
	EventID      string             `spanner:"event_id"`
	EventType    string             `spanner:"event_type"`
	AggregateID  string             `spanner:"aggregate_id"`
	Payload      spanner.NullJSON   `spanner:"payload"` // JSON column
	Status       string             `spanner:"status"`
	CreatedAt    time.Time          `spanner:"created_at"`
	ProcessedAt  spanner.NullTime   `spanner:"processed_at"`
	RetryCount   int64              `spanner:"retry_count"`
	ErrorMessage spanner.NullString `spanner:"error_message"`
}

// PayloadString returns the JSON payload as text, or "" when NULL.
func (d *Data) PayloadString() string {
	if !d.Payload.Valid {
		return ""
	}
	return d.Payload.String()
}

// Key returns the key used when publishing the event downstream.
func (d *Data) Key() string {
	return fmt.Sprintf("%s/%s", d.AggregateID, d.EventType)
}
