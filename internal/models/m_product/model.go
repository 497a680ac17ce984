package m_product

import (
	"cloud.google.com/go/spanner"
)

// Model provides a facade for type-safe operations on the products table.
type Model struct{}

// NewModel creates a new Model instance.
func NewModel() *Model {
	return &Model{}
}

// InsertMut creates a Spanner mutation for inserting a product.
// A plain insert so an existing internal PO fails with AlreadyExists.
func (m *Model) InsertMut(data *Data) *spanner.Mutation {
	return spanner.Insert(
		TableName,
		[]string{
			InternalPO,
			ExternalPO,
			Name,
			CompanyName,
			FileHash,
			CreatedBy,
			IsCompleted,
			CreatedAt,
			UpdatedAt,
		},
		[]interface{}{
			data.InternalPO,
			data.ExternalPO,
			data.Name,
			data.CompanyName,
			data.FileHash,
			data.CreatedBy,
			false,
			spanner.CommitTimestamp,
			spanner.CommitTimestamp,
		},
	)
}

// SetCompletedMut creates a mutation that stores the completion flag.
func (m *Model) SetCompletedMut(internalPO string, completed bool) *spanner.Mutation {
	return spanner.Update(
		TableName,
		[]string{InternalPO, IsCompleted, UpdatedAt},
		[]interface{}{internalPO, completed, spanner.CommitTimestamp},
	)
}
