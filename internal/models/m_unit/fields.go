package m_unit

// Field name constants for the product_units table (interleaved in products).
const (
	TableName = "product_units"

	InternalPO      = "internal_po"
	UnitName        = "unit_name"
	Position        = "position"
	Status          = "status"
	StatusUpdatedAt = "status_updated_at"
	UpdatedBy       = "updated_by"
)

// Columns lists every column in read order.
var Columns = []string{
	InternalPO,
	UnitName,
	Position,
	Status,
	StatusUpdatedAt,
	UpdatedBy,
}
