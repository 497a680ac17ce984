package m_outbox

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the outbox_events table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting an outbox event.
// created_at is the commit timestamp, identical to the ledger write it records.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(
		TableName,
		[]string{
			EventID,
			EventType,
			AggregateID,
			Payload,
			Status,
			CreatedAt,
			ProcessedAt,
			RetryCount,
			ErrorMessage,
		},
		[]interface{}{
			data.EventID,
			data.EventType,
			data.AggregateID,
			data.Payload,
			data.Status,
			spanner.CommitTimestamp,
			data.ProcessedAt,
			data.RetryCount,
			data.ErrorMessage,
		},
	)
}

// MarkCompletedMut records a successful publish.
func (m *Model) MarkCompletedMut(eventID string) *spanner.Mutation {
	return spanner.Update(
		TableName,
		[]string{EventID, Status, ProcessedAt, ErrorMessage},
		[]interface{}{eventID, StatusCompleted, spanner.CommitTimestamp, spanner.NullString{}},
	)
}

// MarkFailedMut records a failed publish attempt. The event stays pending
// until retryCount reaches MaxRetries.
func (m *Model) MarkFailedMut(eventID string, retryCount int64, reason string) *spanner.Mutation {
	if retryCount >= MaxRetries {
		return spanner.Update(
			TableName,
			[]string{EventID, Status, ProcessedAt, RetryCount, ErrorMessage},
			[]interface{}{eventID, StatusFailed, spanner.CommitTimestamp, retryCount, reason},
		)
	}
	return spanner.Update(
		TableName,
		[]string{EventID, RetryCount, ErrorMessage},
		[]interface{}{eventID, retryCount, reason},
	)
}

// DeleteMut creates a Spanner mutation for deleting an outbox event.
func (m *Model) DeleteMut(eventID string) *spanner.Mutation {
	return spanner.Delete(TableName, spanner.Key{eventID})
}
