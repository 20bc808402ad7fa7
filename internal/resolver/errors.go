package resolver

import (
	"errors"
	"fmt"

	"github.com/zjrosen/implreg/internal/mapping"
)

// Kind classifies a resolution failure.
type Kind int

const (
	// KindSectionMissing: the configured mapping section does not exist.
	KindSectionMissing Kind = iota + 1
	// KindKeyNotFound: the key is absent from the section.
	KindKeyNotFound
	// KindTypeLoad: the mapped reference names no registered type.
	KindTypeLoad
	// KindConstruction: the strategy is unavailable, no constructor matched, the
	// constructor failed, or the result is not of the requested type.
	KindConstruction
	// KindSource: the mapping source itself failed (I/O, database).
	KindSource
)

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrSectionMissing = mapping.ErrSectionMissing
	ErrKeyNotFound    = mapping.ErrKeyNotFound
	ErrTypeLoad       = errors.New("type load failed")
	ErrConstruction   = errors.New("construction failed")
	ErrSource         = errors.New("mapping source failed")
	ErrTypeMismatch   = errors.New("instance does not implement the requested type")
)

func (k Kind) String() string {
	switch k {
	case KindSectionMissing:
		return "section_missing"
	case KindKeyNotFound:
		return "key_not_found"
	case KindTypeLoad:
		return "type_load"
	case KindConstruction:
		return "construction"
	case KindSource:
		return "source"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindSectionMissing:
		return ErrSectionMissing
	case KindKeyNotFound:
		return ErrKeyNotFound
	case KindTypeLoad:
		return ErrTypeLoad
	case KindConstruction:
		return ErrConstruction
	case KindSource:
		return ErrSource
	default:
		return nil
	}
}

// Error is returned by every failed resolution.
type Error struct {
	Kind      Kind
	Strategy  Strategy
	Section   string
	Key       string
	Reference string // empty before the lookup succeeded
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("resolve %q in section %q (%s)", e.Key, e.Section, e.Strategy)
	if e.Reference != "" {
		msg += fmt.Sprintf(" via %q", e.Reference)
	}
	return fmt.Sprintf("%s: %s: %v", msg, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of a resolution error, or 0 when err is not one.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// IsNotConfigured reports whether err means the key has no mapping entry.
func IsNotConfigured(err error) bool {
	k := KindOf(err)
	return k == KindSectionMissing || k == KindKeyNotFound
}

// OrZero drops the error, returning the zero value on failure.
func OrZero[T any](v T, err error) T {
	if err != nil {
		var zero T
		return zero
	}
	return v
}
