package domain

// DomainEvent is the base interface for all domain events.
type DomainEvent interface {
	EventType() string
	AggregateID() string
}

// ProductCreatedEvent is emitted when the ledger accepts a new product.
type ProductCreatedEvent struct {
	InternalPO  string
	ExternalPO  string
	Name        string
	CompanyName string
	FileHash    string
	Units       []string
	CreatedBy   string
}

func (e *ProductCreatedEvent) EventType() string {
	return "product.created"
}

func (e *ProductCreatedEvent) AggregateID() string {
	return e.InternalPO
}

// UnitStatusChangedEvent is emitted when the ledger accepts a unit status write.
// The store timestamp is the outbox row's created_at.
type UnitStatusChangedEvent struct {
	InternalPO string
	Unit       string
	From       string
	To         string
	ChangedBy  string
}

func (e *UnitStatusChangedEvent) EventType() string {
	return "unit.status_changed"
}

func (e *UnitStatusChangedEvent) AggregateID() string {
	return e.InternalPO
}

// ProductCompletionCheckedEvent is emitted when the ledger recomputes completion.
type ProductCompletionCheckedEvent struct {
	InternalPO string
	Completed  bool
	CheckedBy  string
}

func (e *ProductCompletionCheckedEvent) EventType() string {
	return "product.completion_checked"
}

func (e *ProductCompletionCheckedEvent) AggregateID() string {
	return e.InternalPO
}
