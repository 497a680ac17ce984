package m_product

import (
	"time"
)

// Data represents the database model for the products table.
type Data struct {
	InternalPO  string    `spanner:"internal_po"`
	ExternalPO  string    `spanner:"external_po"`
	Name        string    `spanner:"name"`
	CompanyName string    `spanner:"company_name"`
	FileHash    string    `spanner:"file_hash"`
	CreatedBy   string    `spanner:"created_by"`
	IsCompleted bool      `spanner:"is_completed"`
	CreatedAt   time.Time `spanner:"created_at"`
	UpdatedAt   time.Time `spanner:"updated_at"`
}
