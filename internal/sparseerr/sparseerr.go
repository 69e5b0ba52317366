// Package sparseerr defines the typed error taxonomy shared by every
// component of the sparse ANN engine, so callers can dispatch on error kind
// with errors.Is / errors.As instead of matching on message text.
package sparseerr

import (
	"errors"
	"fmt"
)

// Kind identifies a class of error in the taxonomy described in spec §7.
type Kind int

const (
	// KindUnknown is the zero value and should never be returned deliberately.
	KindUnknown Kind = iota
	// KindInvalidIndices marks an admin request naming a non-sparse index.
	KindInvalidIndices
	// KindMalformedVector marks a SparseVector that violates its invariants.
	KindMalformedVector
	// KindDuplicateDoc marks a re-insertion into a forward index slot.
	KindDuplicateDoc
	// KindDuplicateTerm marks a second write to a term's posting clusters.
	KindDuplicateTerm
	// KindStorageError marks an I/O failure against the backing store.
	KindStorageError
	// KindCapacityExceeded marks a cache-budget breach.
	KindCapacityExceeded
	// KindInvalidParameter marks an out-of-range algorithm parameter.
	KindInvalidParameter
	// KindCancelled marks an operation that observed its cancellation token.
	KindCancelled
	// KindDeadlineExceeded marks an operation that ran past its deadline.
	KindDeadlineExceeded
	// KindQueueFull marks a rejected task admission.
	KindQueueFull
	// KindArithmeticOverflow marks a non-finite weight encountered in a vector.
	KindArithmeticOverflow
)

func (k Kind) String() string {
	switch k {
	case KindInvalidIndices:
		return "InvalidIndices"
	case KindMalformedVector:
		return "MalformedVector"
	case KindDuplicateDoc:
		return "DuplicateDoc"
	case KindDuplicateTerm:
		return "DuplicateTerm"
	case KindStorageError:
		return "StorageError"
	case KindCapacityExceeded:
		return "CapacityExceeded"
	case KindInvalidParameter:
		return "InvalidParameter"
	case KindCancelled:
		return "Cancelled"
	case KindDeadlineExceeded:
		return "DeadlineExceeded"
	case KindQueueFull:
		return "QueueFull"
	case KindArithmeticOverflow:
		return "ArithmeticOverflow"
	default:
		return "Unknown"
	}
}

// Error is the concrete error type returned by every package in this module.
// Op names the failing operation (e.g. "forwardindex.Insert") for log lines;
// Err, when set, is the wrapped underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a *Error with the same Kind, so callers can
// write errors.Is(err, sparseerr.New(sparseerr.KindDuplicateDoc, "", nil)) or,
// more idiomatically, use the KindOf/Is helpers below.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error wrapping err (which may be nil).
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind carried by err, or KindUnknown if err is not (or
// does not wrap) a *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is (or wraps) a *Error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// InvalidIndices is the §7/§4.8 admin-rejection error: it carries the names
// that failed validation and the operation ("warmup" or "clear_cache") so
// the caller can render it without re-deriving which indices were rejected.
type InvalidIndices struct {
	Names     []string
	Operation string
}

func (e *InvalidIndices) Error() string {
	return fmt.Sprintf("invalid indices for %s: %v", e.Operation, e.Names)
}

// AsError wraps an InvalidIndices payload in the standard *Error envelope.
func (e *InvalidIndices) AsError(op string) *Error {
	return New(KindInvalidIndices, op, e)
}
