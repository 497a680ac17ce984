package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Domain errors as sentinel values
var (
	// Caller errors, never retried
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrStatusRegression = fmt.Errorf("%w: status regression not allowed", ErrInvalidStatus)

	// Reference errors
	ErrDuplicateProduct = errors.New("product already exists")
	ErrNotFound         = errors.New("product not found")
	ErrUnitNotFound     = errors.New("unit not found")

	// Ledger-side business rule failure
	ErrRejected = errors.New("rejected by ledger")

	// Transient failures
	ErrConnection = errors.New("ledger connection error")
	ErrTimeout    = errors.New("ledger call timed out")
)

// ErrorKind classifies a ledger failure.
type ErrorKind string

const (
	KindInvalidInput     ErrorKind = "invalid_input"
	KindInvalidStatus    ErrorKind = "invalid_status"
	KindDuplicateProduct ErrorKind = "duplicate_product"
	KindNotFound         ErrorKind = "not_found"
	KindUnitNotFound     ErrorKind = "unit_not_found"
	KindRejected         ErrorKind = "rejected"
	KindConnection       ErrorKind = "connection"
	KindTimeout          ErrorKind = "timeout"
	KindInternal         ErrorKind = "internal"
)

var kindSentinels = map[ErrorKind]error{
	KindInvalidInput:     ErrInvalidInput,
	KindInvalidStatus:    ErrInvalidStatus,
	KindDuplicateProduct: ErrDuplicateProduct,
	KindNotFound:         ErrNotFound,
	KindUnitNotFound:     ErrUnitNotFound,
	KindRejected:         ErrRejected,
	KindConnection:       ErrConnection,
	KindTimeout:          ErrTimeout,
}

// LedgerError is a typed failure returned by ledger operations.
// Message carries the ledger's own text verbatim where it has one.
type LedgerError struct {
	Op      string
	Kind    ErrorKind
	Message string
	Err     error
}

// NewLedgerError builds a LedgerError for op.
func NewLedgerError(op string, kind ErrorKind, message string, cause error) *LedgerError {
	return &LedgerError{Op: op, Kind: kind, Message: message, Err: cause}
}

func (e *LedgerError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		b.WriteString(sentinel.Error())
	} else {
		b.WriteString(string(e.Kind))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *LedgerError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel, ok := kindSentinels[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf classifies any error into an ErrorKind.
func KindOf(err error) ErrorKind {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Kind
	}
	// ErrStatusRegression wraps ErrInvalidStatus, so order matters only for distinct sentinels.
	for _, kind := range []ErrorKind{
		KindInvalidStatus, KindInvalidInput, KindDuplicateProduct, KindUnitNotFound,
		KindNotFound, KindRejected, KindConnection, KindTimeout,
	} {
		if errors.Is(err, kindSentinels[kind]) {
			return kind
		}
	}
	return KindInternal
}

// IsRetryable reports whether a caller-initiated retry may succeed.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConnection, KindTimeout:
		return true
	default:
		return false
	}
}

// LedgerMessage returns the ledger's own diagnosis for rejected writes, if any.
func LedgerMessage(err error) string {
	var le *LedgerError
	if errors.As(err, &le) {
		return le.Message
	}
	return ""
}

var revertPattern = regexp.MustCompile(`execution reverted:\s*([^"\n]+)`)

// RevertReason extracts "<msg>" from ledger texts of the form
// `execution reverted: <msg>`. Other texts are returned trimmed.
func RevertReason(raw string) string {
	if m := revertPattern.FindStringSubmatch(raw); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(raw)
}
