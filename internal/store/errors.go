package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrNetwork   = errors.New("network error")
	ErrServer    = errors.New("server error")
	ErrFormat    = errors.New("format error")
	ErrBusy      = errors.New("request already in progress")
	ErrUnknown   = errors.New("unknown error")
	ErrCancelled = errors.New("cancelled")
)

var kinds = []error{ErrCancelled, ErrBusy, ErrNetwork, ErrServer, ErrFormat, ErrUnknown}

// LoadError pairs a taxonomy kind with the low-level cause.
type LoadError struct {
	Kind error
	Op   string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *LoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newLoadError(kind error, op string, cause error) *LoadError {
	return &LoadError{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the taxonomy sentinel carried by err, nil for nil, and
// ErrUnknown for anything untyped.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return le.Kind
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return ErrUnknown
}

// KindName is the short label used in logs and metrics.
func KindName(kind error) string {
	switch kind {
	case nil:
		return "none"
	case ErrNetwork:
		return "network"
	case ErrServer:
		return "server"
	case ErrFormat:
		return "format"
	case ErrBusy:
		return "busy"
	case ErrCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}
