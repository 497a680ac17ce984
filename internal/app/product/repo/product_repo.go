package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_product"
	"github.com/light-bringer/worktrack-service/internal/pkg/query"
)

// reader is satisfied by single-use, read-only and read-write transactions.
type reader interface {
	ReadRow(ctx context.Context, table string, key spanner.Key, columns []string) (*spanner.Row, error)
	Query(ctx context.Context, statement spanner.Statement) *spanner.RowIterator
}

// ProductRepo builds mutations and reads for the products table.
type ProductRepo struct {
	model *m_product.Model
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo() *ProductRepo {
	return &ProductRepo{model: m_product.NewModel()}
}

// InsertMut creates a mutation for inserting a new product.
func (r *ProductRepo) InsertMut(rec contracts.NewProductRecord, createdBy string) *spanner.Mutation {
	return r.model.InsertMut(&m_product.Data{
		InternalPO:  rec.InternalPO,
		ExternalPO:  rec.ExternalPO,
		Name:        rec.Name,
		CompanyName: rec.CompanyName,
		FileHash:    rec.FileHash,
		CreatedBy:   createdBy,
	})
}

// SetCompletedMut creates a mutation storing the completion flag.
func (r *ProductRepo) SetCompletedMut(internalPO string, completed bool) *spanner.Mutation {
	return r.model.SetCompletedMut(internalPO, completed)
}

// GetDetails reads the product header.
func (r *ProductRepo) GetDetails(ctx context.Context, rd reader, internalPO string) (contracts.ProductDetails, error) {
	row, err := rd.ReadRow(ctx, m_product.TableName, spanner.Key{internalPO}, m_product.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return contracts.ProductDetails{}, fmt.Errorf("%w: %s", domain.ErrNotFound, internalPO)
		}
		return contracts.ProductDetails{}, fmt.Errorf("failed to read product: %w", err)
	}

	var data m_product.Data
	if err := row.ToStruct(&data); err != nil {
		return contracts.ProductDetails{}, fmt.Errorf("failed to parse product: %w", err)
	}

	return contracts.ProductDetails{
		InternalPO:  data.InternalPO,
		ExternalPO:  data.ExternalPO,
		Name:        data.Name,
		CompanyName: data.CompanyName,
		FileHash:    data.FileHash,
		CreatedBy:   data.CreatedBy,
		CreatedAt:   domain.NewStatusTime(data.CreatedAt.Unix()),
		IsCompleted: data.IsCompleted,
	}, nil
}

// Exists checks if a product exists.
func (r *ProductRepo) Exists(ctx context.Context, rd reader, internalPO string) (bool, error) {
	_, err := rd.ReadRow(ctx, m_product.TableName, spanner.Key{internalPO}, []string{m_product.InternalPO})
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check product existence: %w", err)
	}
	return true, nil
}

// ListInternalPOs returns every internal PO in creation order.
func (r *ProductRepo) ListInternalPOs(ctx context.Context, rd reader) ([]string, error) {
	stmt := query.From(m_product.TableName).
		Select(m_product.InternalPO).
		OrderBy(m_product.CreatedAt, query.Asc).
		Build()

	iter := rd.Query(ctx, stmt)
	defer iter.Stop()

	var out []string
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate products: %w", err)
		}
		var po string
		if err := row.Columns(&po); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		out = append(out, po)
	}
	return out, nil
}
