// Package errors provides error handling for nodecanvas.
//
// This package re-exports github.com/cockroachdb/errors so callers get stack
// traces, wrapping and hints from a single import, and defines the sentinel
// conditions the graph surface reports to its callers.
//
// Usage:
//
//	if _, ok := nodes[id]; !ok {
//	    return errors.Wrapf(errors.ErrUnknownNode, "node %d", id)
//	}
//
//	if errors.Is(err, errors.ErrUnknownNode) {
//	    // map to 404
//	}
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New       = crdb.New
	Newf      = crdb.Newf
	Wrap      = crdb.Wrap
	Wrapf     = crdb.Wrapf
	WithStack = crdb.WithStack
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is          = crdb.Is
	IsAny       = crdb.IsAny
	As          = crdb.As
	Mark        = crdb.Mark
	UnwrapAll   = crdb.UnwrapAll
	GetAllHints = crdb.GetAllHints
)

// Conditions surfaced by the graph surface. Wrap these to add context; match
// them with Is.
var (
	// ErrInvalidGeometry indicates a zoom <= 0 or a non-finite coordinate
	ErrInvalidGeometry = New("invalid geometry")

	// ErrUnknownNode indicates a node id that does not resolve
	ErrUnknownNode = New("unknown node")

	// ErrDuplicateID indicates a node id that is already in use
	ErrDuplicateID = New("duplicate node id")

	// ErrDanglingEdge indicates an edge whose source or target does not exist
	ErrDanglingEdge = New("dangling edge")

	// ErrUnknownEdge indicates a source/target pair with no edge between them
	ErrUnknownEdge = New("unknown edge")
)

// IsInputError reports whether err is one of the surface's caller-input
// conditions, as opposed to an infrastructure failure.
func IsInputError(err error) bool {
	return err != nil && IsAny(err, ErrInvalidGeometry, ErrUnknownNode, ErrDuplicateID, ErrDanglingEdge, ErrUnknownEdge)
}
