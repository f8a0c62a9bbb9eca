// Package storeerr defines the closed error taxonomy shared by every
// storage component: ids, schema, chatstore and importer all fail through
// this single Error type so callers can distinguish kinds without parsing
// SQL text.
package storeerr

import (
	"errors"
	"fmt"
)

// Kind is one of the six failure categories the engine ever returns.
type Kind int

const (
	// NotFound means a scoped lookup found no live row.
	NotFound Kind = iota
	// Conflict means an invariant or policy was violated.
	Conflict
	// InvalidId means a textual identifier failed to parse.
	InvalidId
	// Invariant means an internal consistency check failed at runtime.
	Invariant
	// Bootstrap means opening, migrating or configuring the database failed.
	Bootstrap
	// Io means a filesystem operation failed at open or import.
	Io
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case Conflict:
		return "conflict"
	case InvalidId:
		return "invalid_id"
	case Invariant:
		return "invariant"
	case Bootstrap:
		return "bootstrap"
	case Io:
		return "io"
	default:
		return "unknown"
	}
}

// Error is the single error type every storage component returns. Context
// fields not relevant to a given Kind are left zero.
type Error struct {
	Kind Kind

	// NotFound
	Entity string
	ID     string

	// Conflict / Bootstrap
	Stage string

	// InvalidId
	IDKind string
	Raw    string

	// Invariant
	Description string

	// Io
	Path string

	Err error // wrapped source error, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case NotFound:
		return fmt.Sprintf("not found: %s %s", e.Entity, e.ID)
	case Conflict:
		return fmt.Sprintf("conflict at %s", e.Stage)
	case InvalidId:
		return fmt.Sprintf("invalid %s: %q", e.IDKind, e.Raw)
	case Invariant:
		msg := fmt.Sprintf("invariant violated: %s", e.Description)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case Bootstrap:
		msg := fmt.Sprintf("bootstrap failed at %s", e.Stage)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	case Io:
		msg := fmt.Sprintf("io error at %s", e.Path)
		if e.Err != nil {
			msg += ": " + e.Err.Error()
		}
		return msg
	default:
		return "storage error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Kind == kind
}

func NewNotFound(entity, id string) *Error {
	return &Error{Kind: NotFound, Entity: entity, ID: id}
}

func NewConflict(stage string) *Error {
	return &Error{Kind: Conflict, Stage: stage}
}

func NewInvalidID(idKind, raw string, source error) *Error {
	return &Error{Kind: InvalidId, IDKind: idKind, Raw: raw, Err: source}
}

func NewInvariant(description string, source error) *Error {
	return &Error{Kind: Invariant, Description: description, Err: source}
}

func NewBootstrap(stage string, source error) *Error {
	return &Error{Kind: Bootstrap, Stage: stage, Err: source}
}

func NewIo(path string, source error) *Error {
	return &Error{Kind: Io, Path: path, Err: source}
}
