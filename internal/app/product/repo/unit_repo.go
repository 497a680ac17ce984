package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"

	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_unit"
	"github.com/light-bringer/worktrack-service/internal/pkg/query"
)

// UnitRepo builds mutations and reads for the product_units table.
type UnitRepo struct {
	model *m_unit.Model
}

// NewUnitRepo creates a new UnitRepo.
func NewUnitRepo() *UnitRepo {
	return &UnitRepo{model: m_unit.NewModel()}
}

// InsertMuts creates one mutation per unit, all in to-do, keeping form order.
func (r *UnitRepo) InsertMuts(internalPO string, units []domain.UnitName) []*spanner.Mutation {
	muts := make([]*spanner.Mutation, 0, len(units))
	for i, u := range units {
		muts = append(muts, r.model.InsertMut(internalPO, string(u), int64(i), string(domain.StatusToDo)))
	}
	return muts
}

// UpdateStatusMut creates a mutation storing an accepted status.
func (r *UnitRepo) UpdateStatusMut(internalPO string, unit domain.UnitName, status domain.Status, updatedBy string) *spanner.Mutation {
	return r.model.UpdateStatusMut(internalPO, string(unit), string(status), updatedBy)
}

// Get reads one unit row. A missing row is ErrUnitNotFound.
func (r *UnitRepo) Get(ctx context.Context, rd reader, internalPO string, unit domain.UnitName) (*m_unit.Data, error) {
	row, err := rd.ReadRow(ctx, m_unit.TableName, m_unit.Key(internalPO, string(unit)), m_unit.Columns)
	if err != nil {
		if spanner.ErrCode(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s/%s", domain.ErrUnitNotFound, internalPO, unit)
		}
		return nil, fmt.Errorf("failed to read unit: %w", err)
	}

	var data m_unit.Data
	if err := row.ToStruct(&data); err != nil {
		return nil, fmt.Errorf("failed to parse unit: %w", err)
	}
	return &data, nil
}

// List reads all units of a product in creation order.
func (r *UnitRepo) List(ctx context.Context, rd reader, internalPO string) ([]*m_unit.Data, error) {
	stmt := query.From(m_unit.TableName).
		Select(m_unit.Columns...).
		Where(query.Eq(m_unit.InternalPO, internalPO)).
		OrderBy(m_unit.Position, query.Asc).
		Build()

	iter := rd.Query(ctx, stmt)
	defer iter.Stop()

	var out []*m_unit.Data
	for {
		row, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate units: %w", err)
		}
		var data m_unit.Data
		if err := row.ToStruct(&data); err != nil {
			return nil, fmt.Errorf("failed to parse unit: %w", err)
		}
		out = append(out, &data)
	}
	return out, nil
}

// toStatusTime converts a nullable commit timestamp.
func toStatusTime(t spanner.NullTime) domain.StatusTime {
	if !t.Valid {
		return domain.AbsentStatusTime()
	}
	return domain.NewStatusTime(t.Time.Unix())
}
