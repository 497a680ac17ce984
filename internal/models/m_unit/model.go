package m_unit

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the product_units table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a mutation for a unit in its initial state.
func (m *Model) InsertMut(internalPO, unitName string, position int64, status string) *spanner.Mutation {
	return spanner.Insert(
		TableName,
		[]string{InternalPO, UnitName, Position, Status},
		[]interface{}{internalPO, unitName, position, status},
	)
}

// UpdateStatusMut creates a mutation storing an accepted status.
// The status timestamp is the commit timestamp of the write.
func (m *Model) UpdateStatusMut(internalPO, unitName, status, updatedBy string) *spanner.Mutation {
	return spanner.Update(
		TableName,
		[]string{InternalPO, UnitName, Status, StatusUpdatedAt, UpdatedBy},
		[]interface{}{internalPO, unitName, status, spanner.CommitTimestamp, updatedBy},
	)
}

// Key returns the primary key of a unit row.
func Key(internalPO, unitName string) spanner.Key {
	return spanner.Key{internalPO, unitName}
}
