package m_unit

import (
	"cloud.google.com/go/spanner"
)

// Data represents the database model for the product_units table.
type Data struct {
	InternalPO      string             `spanner:"internal_po"`
	UnitName        string             `spanner:"unit_name"`
	Position        int64              `spanner:"position"`
	Status          string             `spanner:"status"`
	StatusUpdatedAt spanner.NullTime   `spanner:"status_updated_at"` // NULL until the first accepted write
	UpdatedBy       spanner.NullString `spanner:"updated_by"`
}
