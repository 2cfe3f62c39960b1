// File: internal/deployerr/errors.go
// Brief: Failure taxonomy shared by every deployment stage.

// Package deployerr classifies deployment failures so the CLI can report them
// with the right context. Components return these errors; only main exits.
package deployerr

import (
	"errors"
	"fmt"
)

// Kind names the stage-level category of a failure.
type Kind string

const (
	// Discovery means no archive could be found to deploy.
	Discovery Kind = "DiscoveryError"
	// Extraction covers unreadable archives and entries that cannot be written.
	Extraction Kind = "ExtractionError"
	// Schema means the template has no usable Parameters section.
	Schema Kind = "SchemaError"
	// Input is an operator prompt that could not be read.
	Input Kind = "InputError"
	// RemoteState is any object store or stack backend failure that is not
	// one of the handled existence conditions.
	RemoteState Kind = "RemoteStateError"
	// ConvergenceTimeout is only produced when a poll ceiling is configured.
	ConvergenceTimeout Kind = "ConvergenceTimeout"
)

// Error carries the kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return e.Op
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. An err that already carries a kind keeps it.
func New(kind Kind, op string, err error) error {
	var existing *Error
	if errors.As(err, &existing) {
		if op == "" {
			return err
		}
		return &Error{Kind: existing.Kind, Op: op, Err: err}
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kinded error from a format string. %w is honoured.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the outermost kind found in the chain, or "" when none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
