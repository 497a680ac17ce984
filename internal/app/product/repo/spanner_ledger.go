package repo

import (
	"context"
	"fmt"

	"cloud.google.com/go/spanner"
	"github.com/google/uuid"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/models/m_unit"
	"github.com/light-bringer/worktrack-service/internal/pkg/committer"
)

// SpannerDialer opens ledger sessions backed by a Spanner database.
type SpannerDialer struct {
	database string
	policy   domain.RegressionPolicy
}

// NewSpannerDialer creates a dialer for database
// (projects/P/instances/I/databases/D).
func NewSpannerDialer(database string, policy domain.RegressionPolicy) *SpannerDialer {
	return &SpannerDialer{database: database, policy: policy}
}

// Dial creates a Spanner client and wraps it as a ledger session.
func (d *SpannerDialer) Dial(ctx context.Context) (contracts.LedgerSession, error) {
	client, err := spanner.NewClient(ctx, d.database)
	if err != nil {
		return nil, domain.NewLedgerError("Connect", domain.KindConnection, "", fmt.Errorf("failed to create Spanner client: %w", err))
	}
	return NewSpannerLedger(client, d.policy), nil
}

// SpannerLedger is a ledger session over Spanner. Every accepted write
// commits its rows and its outbox event in one transaction; the commit
// timestamp is the store-assigned status time.
type SpannerLedger struct {
	client    *spanner.Client
	committer *committer.Committer
	products  *ProductRepo
	units     *UnitRepo
	outbox    contracts.OutboxRepository
	rules     storeRules
}

var _ contracts.LedgerSession = (*SpannerLedger)(nil)

// NewSpannerLedger creates a session over an existing client. The session owns the client.
func NewSpannerLedger(client *spanner.Client, policy domain.RegressionPolicy) *SpannerLedger {
	return &SpannerLedger{
		client:    client,
		committer: committer.NewCommitter(client),
		products:  NewProductRepo(),
		units:     NewUnitRepo(),
		outbox:    NewOutboxRepo(client),
		rules:     newStoreRules(policy),
	}
}

// Close releases the Spanner client.
func (l *SpannerLedger) Close() error {
	l.client.Close()
	return nil
}

func (l *SpannerLedger) addEvent(plan *committer.CommitPlan, event domain.DomainEvent) error {
	outboxEvent, err := l.outbox.EnrichEvent(event)
	if err != nil {
		return err
	}
	plan.Add(l.outbox.InsertMut(outboxEvent))
	return nil
}

// readUnit distinguishes a missing product from a missing unit.
func (l *SpannerLedger) readUnit(ctx context.Context, rd reader, op, internalPO string, unit domain.UnitName) (*m_unit.Data, error) {
	data, err := l.units.Get(ctx, rd, internalPO, unit)
	if err == nil {
		return data, nil
	}
	if domain.KindOf(err) != domain.KindUnitNotFound {
		return nil, err
	}
	exists, existsErr := l.products.Exists(ctx, rd, internalPO)
	if existsErr != nil {
		return nil, existsErr
	}
	if !exists {
		return nil, domain.NewLedgerError(op, domain.KindNotFound, "", err)
	}
	return nil, domain.NewLedgerError(op, domain.KindUnitNotFound, "", err)
}

// CreateProduct inserts the product, its units and a product.created event.
func (l *SpannerLedger) CreateProduct(ctx context.Context, opts contracts.CallOptions, rec contracts.NewProductRecord) error {
	const op = "CreateProduct"
	if err := l.rules.checkWriter(op, opts); err != nil {
		return err
	}
	if len(rec.Units) == 0 {
		return domain.NewLedgerError(op, domain.KindInvalidInput, "product needs at least one unit", nil)
	}

	units := make([]string, len(rec.Units))
	for i, u := range rec.Units {
		units[i] = string(u)
	}

	_, err := l.committer.ReadWrite(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction, plan *committer.CommitPlan) error {
		exists, err := l.products.Exists(ctx, txn, rec.InternalPO)
		if err != nil {
			return err
		}
		if exists {
			return domain.NewLedgerError(op, domain.KindDuplicateProduct, "", nil)
		}

		plan.Add(l.products.InsertMut(rec, opts.ActingIdentity))
		plan.AddMultiple(l.units.InsertMuts(rec.InternalPO, rec.Units))
		if err := l.addEvent(plan, &domain.ProductCreatedEvent{
			InternalPO:  rec.InternalPO,
			ExternalPO:  rec.ExternalPO,
			Name:        rec.Name,
			CompanyName: rec.CompanyName,
			FileHash:    rec.FileHash,
			Units:       units,
			CreatedBy:   opts.ActingIdentity,
		}); err != nil {
			return err
		}
		return plan.CheckBudget(opts.BudgetOr(contracts.DefaultCreateBudget), contracts.MutationCost)
	})
	return mapError(op, err)
}

// GetProductDetails reads the product header.
func (l *SpannerLedger) GetProductDetails(ctx context.Context, internalPO string) (contracts.ProductDetails, error) {
	details, err := l.products.GetDetails(ctx, l.client.Single(), internalPO)
	if err != nil {
		return contracts.ProductDetails{}, mapError("GetProductDetails", err)
	}
	return details, nil
}

// GetProductUnits lists unit names in creation order.
func (l *SpannerLedger) GetProductUnits(ctx context.Context, internalPO string) ([]domain.UnitName, error) {
	const op = "GetProductUnits"
	rtx := l.client.ReadOnlyTransaction()
	defer rtx.Close()

	rows, err := l.units.List(ctx, rtx, internalPO)
	if err != nil {
		return nil, mapError(op, err)
	}
	if len(rows) == 0 {
		exists, err := l.products.Exists(ctx, rtx, internalPO)
		if err != nil {
			return nil, mapError(op, err)
		}
		if !exists {
			return nil, domain.NewLedgerError(op, domain.KindNotFound, "", nil)
		}
	}

	names := make([]domain.UnitName, len(rows))
	for i, row := range rows {
		names[i] = domain.UnitName(row.UnitName)
	}
	return names, nil
}

// GetUnitStatus reads one unit's status.
func (l *SpannerLedger) GetUnitStatus(ctx context.Context, internalPO string, unit domain.UnitName) (domain.Status, error) {
	const op = "GetUnitStatus"
	rtx := l.client.ReadOnlyTransaction()
	defer rtx.Close()

	data, err := l.readUnit(ctx, rtx, op, internalPO, unit)
	if err != nil {
		return "", mapError(op, err)
	}
	return domain.Status(data.Status), nil
}

// GetUnitTimestamp reads one unit's status timestamp.
func (l *SpannerLedger) GetUnitTimestamp(ctx context.Context, internalPO string, unit domain.UnitName) (domain.StatusTime, error) {
	const op = "GetUnitTimestamp"
	rtx := l.client.ReadOnlyTransaction()
	defer rtx.Close()

	data, err := l.readUnit(ctx, rtx, op, internalPO, unit)
	if err != nil {
		return domain.StatusTime{}, mapError(op, err)
	}
	return toStatusTime(data.StatusUpdatedAt), nil
}

// UpdateUnitStatus stores a unit status. A non-done status clears completion
// in the same commit.
func (l *SpannerLedger) UpdateUnitStatus(ctx context.Context, opts contracts.CallOptions, internalPO string, unit domain.UnitName, status domain.Status) (contracts.Receipt, error) {
	const op = "UpdateUnitStatus"
	if err := l.rules.checkWriter(op, opts); err != nil {
		return contracts.Receipt{}, err
	}

	commitTs, err := l.committer.ReadWrite(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction, plan *committer.CommitPlan) error {
		data, err := l.readUnit(ctx, txn, op, internalPO, unit)
		if err != nil {
			return err
		}
		if err := l.rules.checkTransition(op, domain.Status(data.Status), status); err != nil {
			return err
		}

		plan.Add(l.units.UpdateStatusMut(internalPO, unit, status, opts.ActingIdentity))
		if status != domain.StatusDone {
			plan.Add(l.products.SetCompletedMut(internalPO, false))
		}
		if err := l.addEvent(plan, &domain.UnitStatusChangedEvent{
			InternalPO: internalPO,
			Unit:       string(unit),
			From:       data.Status,
			To:         string(status),
			ChangedBy:  opts.ActingIdentity,
		}); err != nil {
			return err
		}
		return plan.CheckBudget(opts.BudgetOr(contracts.DefaultUpdateBudget), contracts.MutationCost)
	})
	if err != nil {
		return contracts.Receipt{}, mapError(op, err)
	}

	return contracts.Receipt{
		InternalPO: internalPO,
		Unit:       unit,
		Status:     status,
		Timestamp:  commitTs.Unix(),
		TxID:       uuid.NewString(),
	}, nil
}

// CheckProductCompletion recomputes completion from unit rows and persists it.
func (l *SpannerLedger) CheckProductCompletion(ctx context.Context, opts contracts.CallOptions, internalPO string) (bool, error) {
	const op = "CheckProductCompletion"
	if err := l.rules.checkWriter(op, opts); err != nil {
		return false, err
	}

	var completed bool
	_, err := l.committer.ReadWrite(ctx, func(ctx context.Context, txn *spanner.ReadWriteTransaction, plan *committer.CommitPlan) error {
		rows, err := l.units.List(ctx, txn, internalPO)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return domain.NewLedgerError(op, domain.KindNotFound, "", nil)
		}

		completed = true
		for _, row := range rows {
			if row.Status != string(domain.StatusDone) {
				completed = false
				break
			}
		}

		plan.Add(l.products.SetCompletedMut(internalPO, completed))
		if err := l.addEvent(plan, &domain.ProductCompletionCheckedEvent{
			InternalPO: internalPO,
			Completed:  completed,
			CheckedBy:  opts.ActingIdentity,
		}); err != nil {
			return err
		}
		return plan.CheckBudget(opts.BudgetOr(contracts.DefaultUpdateBudget), contracts.MutationCost)
	})
	if err != nil {
		return false, mapError(op, err)
	}
	return completed, nil
}

// ListInternalPOs lists products in creation order.
func (l *SpannerLedger) ListInternalPOs(ctx context.Context) ([]string, error) {
	pos, err := l.products.ListInternalPOs(ctx, l.client.Single())
	if err != nil {
		return nil, mapError("ListInternalPOs", err)
	}
	return pos, nil
}
