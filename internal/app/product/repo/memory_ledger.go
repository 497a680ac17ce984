package repo

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/light-bringer/worktrack-service/internal/app/product/contracts"
	"github.com/light-bringer/worktrack-service/internal/app/product/domain"
	"github.com/light-bringer/worktrack-service/internal/app/product/queries/list_events"
	"github.com/light-bringer/worktrack-service/internal/models/m_outbox"
	"github.com/light-bringer/worktrack-service/internal/pkg/clock"
)

// FaultFunc is consulted before every session operation. A non-nil error is
// returned in place of the operation's result. unit is empty for
// product-level operations.
type FaultFunc func(ctx context.Context, op, internalPO string, unit domain.UnitName) error

// BlockUntilDone is a FaultFunc body that waits for the call's deadline.
func BlockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

type memoryUnit struct {
	name       domain.UnitName
	status     domain.Status
	statusTime domain.StatusTime
	updatedBy  string
}

type memoryProduct struct {
	details contracts.ProductDetails
	units   []*memoryUnit
}

func (p *memoryProduct) unit(name domain.UnitName) *memoryUnit {
	for _, u := range p.units {
		if u.name == name {
			return u
		}
	}
	return nil
}

// MemoryLedger is an in-process ledger store. It applies the same store-side
// rules as the Spanner backend and supports fault injection and outages for
// tests and local runs.
type MemoryLedger struct {
	mu       sync.Mutex
	clock    clock.Clock
	rules    storeRules
	outbox   *OutboxRepo
	products map[string]*memoryProduct
	order    []string
	events   []*m_outbox.Data
	fault    FaultFunc
	offline  bool
	epoch    int64
	dials    int
}

// NewMemoryLedger creates an empty store. Status times come from clk.
func NewMemoryLedger(clk clock.Clock, policy domain.RegressionPolicy) *MemoryLedger {
	return &MemoryLedger{
		clock:    clk,
		rules:    newStoreRules(policy),
		outbox:   NewOutboxRepo(nil),
		products: make(map[string]*memoryProduct),
	}
}

// SetFault installs f; nil removes it.
func (m *MemoryLedger) SetFault(f FaultFunc) {
	m.mu.Lock()
	m.fault = f
	m.mu.Unlock()
}

// SetOnline toggles availability. Going offline breaks every open session.
func (m *MemoryLedger) SetOnline(online bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !online && !m.offline {
		m.epoch++
	}
	m.offline = !online
}

// Dials reports how many sessions were opened.
func (m *MemoryLedger) Dials() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dials
}

// Dial opens a session.
func (m *MemoryLedger) Dial(ctx context.Context) (contracts.LedgerSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, domain.NewLedgerError("Connect", domain.KindConnection, "ledger unreachable", nil)
	}
	m.dials++
	return &memorySession{ledger: m, epoch: m.epoch}, nil
}

// ListEvents implements list_events.EventsReadModel, newest first.
func (m *MemoryLedger) ListEvents(_ context.Context, req *list_events.Request) ([]*m_outbox.Data, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*m_outbox.Data
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if req.EventType != nil && e.EventType != *req.EventType {
			continue
		}
		if req.AggregateID != nil && e.AggregateID != *req.AggregateID {
			continue
		}
		if req.Status != nil && e.Status != *req.Status {
			continue
		}
		copied := *e
		matched = append(matched, &copied)
	}

	total := int64(len(matched))
	if req.Limit > 0 && len(matched) > req.Limit {
		matched = matched[:req.Limit]
	}
	return matched, total, nil
}

// appendEvent must be called with m.mu held.
func (m *MemoryLedger) appendEvent(event domain.DomainEvent, at int64) error {
	outboxEvent, err := m.outbox.EnrichEvent(event)
	if err != nil {
		return err
	}
	data := toOutboxData(outboxEvent)
	data.CreatedAt = unixTime(at)
	m.events = append(m.events, data)
	return nil
}

// now returns a store timestamp no earlier than floor. Must hold m.mu.
func (m *MemoryLedger) now(floor domain.StatusTime) int64 {
	ts := clock.Seconds(m.clock)
	if prev, ok := floor.Unix(); ok && prev > ts {
		return prev
	}
	return ts
}

type memorySession struct {
	ledger *MemoryLedger
	epoch  int64
	closed atomic.Bool
}

var _ contracts.LedgerSession = (*memorySession)(nil)

// begin checks the link and runs the fault hook outside the store lock.
func (s *memorySession) begin(ctx context.Context, op, internalPO string, unit domain.UnitName) error {
	m := s.ledger
	m.mu.Lock()
	broken := s.closed.Load() || m.offline || m.epoch != s.epoch
	fault := m.fault
	m.mu.Unlock()

	if broken {
		return domain.NewLedgerError(op, domain.KindConnection, "session lost", nil)
	}
	if fault != nil {
		if err := fault(ctx, op, internalPO, unit); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (s *memorySession) Close() error {
	s.closed.Store(true)
	return nil
}

func (s *memorySession) lookup(op, internalPO string) (*memoryProduct, error) {
	p, ok := s.ledger.products[internalPO]
	if !ok {
		return nil, domain.NewLedgerError(op, domain.KindNotFound, "", nil)
	}
	return p, nil
}

func (s *memorySession) lookupUnit(op, internalPO string, unit domain.UnitName) (*memoryProduct, *memoryUnit, error) {
	p, err := s.lookup(op, internalPO)
	if err != nil {
		return nil, nil, err
	}
	u := p.unit(unit)
	if u == nil {
		return nil, nil, domain.NewLedgerError(op, domain.KindUnitNotFound, "", nil)
	}
	return p, u, nil
}

func (s *memorySession) CreateProduct(ctx context.Context, opts contracts.CallOptions, rec contracts.NewProductRecord) error {
	const op = "CreateProduct"
	if err := s.begin(ctx, op, rec.InternalPO, ""); err != nil {
		return err
	}
	m := s.ledger
	if err := m.rules.checkWriter(op, opts); err != nil {
		return err
	}
	if len(rec.Units) == 0 {
		return domain.NewLedgerError(op, domain.KindInvalidInput, "product needs at least one unit", nil)
	}
	// product row, unit rows, outbox row
	if err := checkBudget(op, len(rec.Units)+2, opts.BudgetOr(contracts.DefaultCreateBudget)); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.products[rec.InternalPO]; exists {
		return domain.NewLedgerError(op, domain.KindDuplicateProduct, "", nil)
	}

	at := m.now(domain.AbsentStatusTime())
	p := &memoryProduct{
		details: contracts.ProductDetails{
			InternalPO:  rec.InternalPO,
			ExternalPO:  rec.ExternalPO,
			Name:        rec.Name,
			CompanyName: rec.CompanyName,
			FileHash:    rec.FileHash,
			CreatedBy:   opts.ActingIdentity,
			CreatedAt:   domain.NewStatusTime(at),
		},
	}
	names := make([]string, len(rec.Units))
	for i, u := range rec.Units {
		p.units = append(p.units, &memoryUnit{name: u, status: domain.StatusToDo, statusTime: domain.AbsentStatusTime()})
		names[i] = string(u)
	}

	if err := m.appendEvent(&domain.ProductCreatedEvent{
		InternalPO:  rec.InternalPO,
		ExternalPO:  rec.ExternalPO,
		Name:        rec.Name,
		CompanyName: rec.CompanyName,
		FileHash:    rec.FileHash,
		Units:       names,
		CreatedBy:   opts.ActingIdentity,
	}, at); err != nil {
		return domain.NewLedgerError(op, domain.KindInternal, "", err)
	}

	m.products[rec.InternalPO] = p
	m.order = append(m.order, rec.InternalPO)
	return nil
}

func (s *memorySession) GetProductDetails(ctx context.Context, internalPO string) (contracts.ProductDetails, error) {
	const op = "GetProductDetails"
	if err := s.begin(ctx, op, internalPO, ""); err != nil {
		return contracts.ProductDetails{}, err
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	p, err := s.lookup(op, internalPO)
	if err != nil {
		return contracts.ProductDetails{}, err
	}
	return p.details, nil
}

func (s *memorySession) GetProductUnits(ctx context.Context, internalPO string) ([]domain.UnitName, error) {
	const op = "GetProductUnits"
	if err := s.begin(ctx, op, internalPO, ""); err != nil {
		return nil, err
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	p, err := s.lookup(op, internalPO)
	if err != nil {
		return nil, err
	}
	names := make([]domain.UnitName, len(p.units))
	for i, u := range p.units {
		names[i] = u.name
	}
	return names, nil
}

func (s *memorySession) GetUnitStatus(ctx context.Context, internalPO string, unit domain.UnitName) (domain.Status, error) {
	const op = "GetUnitStatus"
	if err := s.begin(ctx, op, internalPO, unit); err != nil {
		return "", err
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	_, u, err := s.lookupUnit(op, internalPO, unit)
	if err != nil {
		return "", err
	}
	return u.status, nil
}

func (s *memorySession) GetUnitTimestamp(ctx context.Context, internalPO string, unit domain.UnitName) (domain.StatusTime, error) {
	const op = "GetUnitTimestamp"
	if err := s.begin(ctx, op, internalPO, unit); err != nil {
		return domain.StatusTime{}, err
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	_, u, err := s.lookupUnit(op, internalPO, unit)
	if err != nil {
		return domain.StatusTime{}, err
	}
	return u.statusTime, nil
}

func (s *memorySession) UpdateUnitStatus(ctx context.Context, opts contracts.CallOptions, internalPO string, unit domain.UnitName, status domain.Status) (contracts.Receipt, error) {
	const op = "UpdateUnitStatus"
	if err := s.begin(ctx, op, internalPO, unit); err != nil {
		return contracts.Receipt{}, err
	}
	m := s.ledger
	if err := m.rules.checkWriter(op, opts); err != nil {
		return contracts.Receipt{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, u, err := s.lookupUnit(op, internalPO, unit)
	if err != nil {
		return contracts.Receipt{}, err
	}
	if err := m.rules.checkTransition(op, u.status, status); err != nil {
		return contracts.Receipt{}, err
	}
	// unit row, outbox row and, for non-done, the product completion flag
	mutations := 2
	if status != domain.StatusDone {
		mutations++
	}
	if err := checkBudget(op, mutations, opts.BudgetOr(contracts.DefaultUpdateBudget)); err != nil {
		return contracts.Receipt{}, err
	}

	at := m.now(u.statusTime)
	if err := m.appendEvent(&domain.UnitStatusChangedEvent{
		InternalPO: internalPO,
		Unit:       string(unit),
		From:       string(u.status),
		To:         string(status),
		ChangedBy:  opts.ActingIdentity,
	}, at); err != nil {
		return contracts.Receipt{}, domain.NewLedgerError(op, domain.KindInternal, "", err)
	}

	u.status = status
	u.statusTime = domain.NewStatusTime(at)
	u.updatedBy = opts.ActingIdentity
	if status != domain.StatusDone {
		p.details.IsCompleted = false
	}

	return contracts.Receipt{
		InternalPO: internalPO,
		Unit:       unit,
		Status:     status,
		Timestamp:  at,
		TxID:       uuid.NewString(),
	}, nil
}

func (s *memorySession) CheckProductCompletion(ctx context.Context, opts contracts.CallOptions, internalPO string) (bool, error) {
	const op = "CheckProductCompletion"
	if err := s.begin(ctx, op, internalPO, ""); err != nil {
		return false, err
	}
	m := s.ledger
	if err := m.rules.checkWriter(op, opts); err != nil {
		return false, err
	}
	if err := checkBudget(op, 2, opts.BudgetOr(contracts.DefaultUpdateBudget)); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := s.lookup(op, internalPO)
	if err != nil {
		return false, err
	}
	completed := len(p.units) > 0
	for _, u := range p.units {
		if u.status != domain.StatusDone {
			completed = false
			break
		}
	}

	if err := m.appendEvent(&domain.ProductCompletionCheckedEvent{
		InternalPO: internalPO,
		Completed:  completed,
		CheckedBy:  opts.ActingIdentity,
	}, m.now(domain.AbsentStatusTime())); err != nil {
		return false, domain.NewLedgerError(op, domain.KindInternal, "", err)
	}
	p.details.IsCompleted = completed
	return completed, nil
}

func (s *memorySession) ListInternalPOs(ctx context.Context) ([]string, error) {
	if err := s.begin(ctx, "ListInternalPOs", "", ""); err != nil {
		return nil, err
	}
	s.ledger.mu.Lock()
	defer s.ledger.mu.Unlock()
	out := make([]string, len(s.ledger.order))
	copy(out, s.ledger.order)
	return out, nil
}

// EventTypes returns the stored events' types in commit order.
func (m *MemoryLedger) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.EventType
	}
	return out
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
