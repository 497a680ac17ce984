package m_product

// Field name constants for the products table.
const (
	TableName = "products"

	InternalPO  = "internal_po"
	ExternalPO  = "external_po"
	Name        = "name"
	CompanyName = "company_name"
	FileHash    = "file_hash"
	CreatedBy   = "created_by"
	IsCompleted = "is_completed"
	CreatedAt   = "created_at"
	UpdatedAt   = "updated_at"
)

// Columns lists every column in read order.
var Columns = []string{
	InternalPO,
	ExternalPO,
	Name,
	CompanyName,
	FileHash,
	CreatedBy,
	IsCompleted,
	CreatedAt,
	UpdatedAt,
}
