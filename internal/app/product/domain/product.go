package domain

import (
	"errors"
	"fmt"
)

// ErrStaleReceipt is returned when a receipt older than the unit's current
// timestamp is applied. The unit keeps its newer state.
var ErrStaleReceipt = errors.New("receipt older than current unit state")

// Product is the aggregate root for a tracked work order.
// Unit membership is fixed at creation; only unit status and timestamps change.
type Product struct {
	internalPO  string
	externalPO  string
	name        string
	companyName string
	fileHash    string
	createdAt   StatusTime

	units []Unit
	index map[UnitName]int

	// isCompleted holds the ledger's answer; the local all-done count is only a hint.
	isCompleted bool
}

// NewProduct creates a new Product aggregate (for creation).
// Every unit starts in StatusToDo without a timestamp.
func NewProduct(internalPO, externalPO, name, companyName, fileHash string, unitNames []UnitName) (*Product, error) {
	if err := ValidatePO(internalPO); err != nil {
		return nil, err
	}
	if externalPO == "" {
		return nil, fmt.Errorf("%w: external PO is required", ErrInvalidInput)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", ErrInvalidInput)
	}
	if companyName == "" {
		return nil, fmt.Errorf("%w: company name is required", ErrInvalidInput)
	}
	if len(unitNames) == 0 {
		return nil, fmt.Errorf("%w: product needs at least one unit", ErrInvalidInput)
	}

	units := make([]Unit, 0, len(unitNames))
	for _, n := range unitNames {
		units = append(units, NewUnit(n))
	}

	p := &Product{
		internalPO:  internalPO,
		externalPO:  externalPO,
		name:        name,
		companyName: companyName,
		fileHash:    fileHash,
		createdAt:   AbsentStatusTime(),
	}
	if err := p.setUnits(units); err != nil {
		return nil, err
	}
	return p, nil
}

// ReconstructProduct reconstitutes a Product from ledger reads.
func ReconstructProduct(
	internalPO, externalPO, name, companyName, fileHash string,
	createdAt StatusTime,
	units []Unit,
	isCompleted bool,
) (*Product, error) {
	p := &Product{
		internalPO:  internalPO,
		externalPO:  externalPO,
		name:        name,
		companyName: companyName,
		fileHash:    fileHash,
		createdAt:   createdAt,
		isCompleted: isCompleted,
	}
	if err := p.setUnits(units); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Product) setUnits(units []Unit) error {
	p.units = make([]Unit, 0, len(units))
	p.index = make(map[UnitName]int, len(units))
	for _, u := range units {
		if !u.name.IsValid() {
			return fmt.Errorf("%w: unknown unit %q", ErrInvalidInput, u.name)
		}
		if _, dup := p.index[u.name]; dup {
			return fmt.Errorf("%w: duplicate unit %q", ErrInvalidInput, u.name)
		}
		p.index[u.name] = len(p.units)
		p.units = append(p.units, u)
	}
	return nil
}

// Getters
func (p *Product) InternalPO() string    { return p.internalPO }
func (p *Product) ExternalPO() string    { return p.externalPO }
func (p *Product) Name() string          { return p.name }
func (p *Product) CompanyName() string   { return p.companyName }
func (p *Product) FileHash() string      { return p.fileHash }
func (p *Product) CreatedAt() StatusTime { return p.createdAt }
func (p *Product) IsCompleted() bool     { return p.isCompleted }

// Units returns a copy of the ordered unit sequence.
func (p *Product) Units() []Unit {
	out := make([]Unit, len(p.units))
	copy(out, p.units)
	return out
}

// UnitNames returns the ordered unit names.
func (p *Product) UnitNames() []UnitName {
	out := make([]UnitName, len(p.units))
	for i, u := range p.units {
		out[i] = u.name
	}
	return out
}

// Unit returns the named unit.
func (p *Product) Unit(name UnitName) (Unit, bool) {
	i, ok := p.index[name]
	if !ok {
		return Unit{}, false
	}
	return p.units[i], true
}

// HasUnit reports whether the product owns the named unit.
func (p *Product) HasUnit(name UnitName) bool {
	_, ok := p.index[name]
	return ok
}

// ApplyConfirmedStatus records a status accepted by the ledger.
// statusTime must come from the ledger receipt.
func (p *Product) ApplyConfirmedStatus(name UnitName, status Status, statusTime StatusTime) error {
	i, ok := p.index[name]
	if !ok {
		return fmt.Errorf("%w: %s has no unit %q", ErrUnitNotFound, p.internalPO, name)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	newTs, set := statusTime.Unix()
	if !set {
		return fmt.Errorf("%w: confirmed status requires a ledger timestamp", ErrInvalidInput)
	}
	if prevTs, prevSet := p.units[i].statusTime.Unix(); prevSet && newTs < prevTs {
		return fmt.Errorf("%w: unit %s at %d, receipt at %d", ErrStaleReceipt, name, prevTs, newTs)
	}

	p.units[i].status = status
	p.units[i].statusTime = statusTime

	if status != StatusDone {
		p.isCompleted = false
	}
	return nil
}

// AllUnitsDone is the local completion hint: every unit reads done.
func (p *Product) AllUnitsDone() bool {
	for _, u := range p.units {
		if u.status != StatusDone {
			return false
		}
	}
	return len(p.units) > 0
}

// ConfirmCompletion stores the ledger's completion answer.
// It returns true when the answer disagrees with the local hint.
func (p *Product) ConfirmCompletion(ledgerCompleted bool) (drift bool) {
	p.isCompleted = ledgerCompleted
	return ledgerCompleted != p.AllUnitsDone()
}

// HasUnknownUnits reports whether any unit failed to load.
func (p *Product) HasUnknownUnits() bool {
	for _, u := range p.units {
		if !u.IsKnown() {
			return true
		}
	}
	return false
}

// Clone returns an independent copy of the aggregate.
func (p *Product) Clone() *Product {
	c := *p
	c.units = p.Units()
	c.index = make(map[UnitName]int, len(p.index))
	for k, v := range p.index {
		c.index[k] = v
	}
	return &c
}
