package domain

import "fmt"

// Status represents the lifecycle status of a processing unit.
type Status string

const (
	StatusToDo       Status = "to-do"
	StatusOnProgress Status = "on-progress"
	StatusDone       Status = "done"

	// StatusUnknown is assigned locally when a unit's status could not be read.
	// It is never written to the ledger.
	StatusUnknown Status = "unknown"
)

// statusRank orders the enumerated statuses for regression checks.
var statusRank = map[Status]int{
	StatusToDo:       0,
	StatusOnProgress: 1,
	StatusDone:       2,
}

// IsValid returns true for the three enumerated ledger statuses.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// String returns the wire value of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a raw value into an enumerated Status.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// RegressionPolicy decides whether a unit may move backwards through the lifecycle.
type RegressionPolicy string

const (
	// AllowRegression accepts any enumerated target status (observed ledger behavior).
	AllowRegression RegressionPolicy = "allow"
	// ForwardOnly rejects transitions to an earlier lifecycle state.
	ForwardOnly RegressionPolicy = "forward-only"
)

// ParseRegressionPolicy parses a configured policy name. Empty selects AllowRegression.
func ParseRegressionPolicy(raw string) (RegressionPolicy, error) {
	switch RegressionPolicy(raw) {
	case "", AllowRegression:
		return AllowRegression, nil
	case ForwardOnly:
		return ForwardOnly, nil
	default:
		return "", fmt.Errorf("unknown regression policy %q", raw)
	}
}

// StatusMachine validates requested unit status transitions.
// It performs no I/O; the ledger remains the final authority.
type StatusMachine struct {
	policy     RegressionPolicy
	rejectNoop bool
}

// NewStatusMachine creates a StatusMachine with the given regression policy.
func NewStatusMachine(policy RegressionPolicy) *StatusMachine {
	if policy == "" {
		policy = AllowRegression
	}
	return &StatusMachine{policy: policy}
}

// WithRejectNoop makes the machine refuse requests for the unit's current status.
func (m *StatusMachine) WithRejectNoop(reject bool) *StatusMachine {
	m.rejectNoop = reject
	return m
}

// Policy returns the configured regression policy.
func (m *StatusMachine) Policy() RegressionPolicy { return m.policy }

// Transition checks whether current may move to requested and returns the new status.
// A current status of StatusUnknown never blocks a request.
func (m *StatusMachine) Transition(current, requested Status) (Status, error) {
	if !requested.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, requested)
	}

	if !current.IsValid() {
		return requested, nil
	}

	if m.rejectNoop && current == requested {
		return "", fmt.Errorf("%w: unit is already %s", ErrInvalidStatus, requested)
	}

	if m.policy == ForwardOnly && statusRank[requested] < statusRank[current] {
		return "", fmt.Errorf("%w: %s → %s", ErrStatusRegression, current, requested)
	}

	return requested, nil
}
