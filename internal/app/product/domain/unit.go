package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// UnitName identifies a manufacturing process step.
type UnitName string

const (
	UnitLaserCutting UnitName = "laser-cutting"
	UnitMilling      UnitName = "milling"
	UnitBending      UnitName = "bending"
	UnitDrilling     UnitName = "drilling"
)

// KnownUnits lists the enumerated unit names in form order.
var KnownUnits = []UnitName{UnitLaserCutting, UnitMilling, UnitBending, UnitDrilling}

// IsValid returns true if the name is one of the enumerated units.
func (n UnitName) IsValid() bool {
	for _, u := range KnownUnits {
		if u == n {
			return true
		}
	}
	return false
}

// String returns the canonical unit name.
func (n UnitName) String() string { return string(n) }

// ParseUnitName accepts canonical names ("laser-cutting") as well as display
// names ("Laser Cutting"), case-insensitively.
func ParseUnitName(raw string) (UnitName, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.Join(strings.Fields(normalized), "-")
	n := UnitName(normalized)
	if !n.IsValid() {
		return "", fmt.Errorf("%w: unknown unit %q", ErrInvalidInput, raw)
	}
	return n, nil
}

var poPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidatePO checks a purchase-order number against the restricted character class.
func ValidatePO(po string) error {
	if !poPattern.MatchString(po) {
		return fmt.Errorf("%w: malformed PO number %q", ErrInvalidInput, po)
	}
	return nil
}

// TimestampState describes what is known about a unit's status timestamp.
type TimestampState int

const (
	// TimestampAbsent means no status write was ever accepted for the unit.
	TimestampAbsent TimestampState = iota
	// TimestampSet means the ledger assigned a timestamp.
	TimestampSet
	// TimestampUnknown means the timestamp could not be read.
	TimestampUnknown
)

// StatusTime is a ledger-assigned status timestamp in seconds since epoch.
type StatusTime struct {
	unix  int64
	state TimestampState
}

// NewStatusTime returns a set timestamp.
func NewStatusTime(unix int64) StatusTime {
	return StatusTime{unix: unix, state: TimestampSet}
}

// AbsentStatusTime returns the timestamp of a unit that was never written.
func AbsentStatusTime() StatusTime { return StatusTime{state: TimestampAbsent} }

// UnknownStatusTime returns the sentinel used after a failed read.
func UnknownStatusTime() StatusTime { return StatusTime{state: TimestampUnknown} }

// Unix returns the timestamp and whether it is set.
func (t StatusTime) Unix() (int64, bool) {
	return t.unix, t.state == TimestampSet
}

// State returns the timestamp state.
func (t StatusTime) State() TimestampState { return t.state }

// IsSet is shorthand for State() == TimestampSet.
func (t StatusTime) IsSet() bool { return t.state == TimestampSet }

func (t StatusTime) String() string {
	switch t.state {
	case TimestampSet:
		return fmt.Sprintf("%d", t.unix)
	case TimestampUnknown:
		return "unknown"
	default:
		return ""
	}
}

// Unit is one processing step owned by a Product.
type Unit struct {
	name       UnitName
	status     Status
	statusTime StatusTime
}

// NewUnit creates a unit in its initial state.
func NewUnit(name UnitName) Unit {
	return Unit{name: name, status: StatusToDo, statusTime: AbsentStatusTime()}
}

// ReconstructUnit rebuilds a unit from ledger reads.
func ReconstructUnit(name UnitName, status Status, statusTime StatusTime) Unit {
	return Unit{name: name, status: status, statusTime: statusTime}
}

// UnknownUnit returns the sentinel unit used when its reads failed.
func UnknownUnit(name UnitName) Unit {
	return Unit{name: name, status: StatusUnknown, statusTime: UnknownStatusTime()}
}

func (u Unit) Name() UnitName         { return u.name }
func (u Unit) Status() Status         { return u.status }
func (u Unit) StatusTime() StatusTime { return u.statusTime }

// IsKnown returns false for units whose status could not be read.
func (u Unit) IsKnown() bool { return u.status != StatusUnknown }
