package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind classifies the core docgraph packages' errors (docstore, vectorindex,
// graphstore, docsync, entity, graphbuild, retrieval) orthogonally to the
// numeric Code scheme above. Where AmanError dispatches on a string code,
// DocGraphError dispatches on Kind; MapError switches on both.
type Kind string

const (
	KindNotFound   Kind = "NOT_FOUND"
	KindValidation Kind = "VALIDATION"
	KindEmbedding  Kind = "EMBEDDING"
	KindStorage    Kind = "STORAGE"
	KindConflict   Kind = "CONFLICT"
	KindBuild      Kind = "BUILD"
)

// DocGraphError is a structured error carrying the failing operation and a
// Kind for dispatch, in the same spirit as AmanError's Code/Cause split.
type DocGraphError struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *DocGraphError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *DocGraphError) Unwrap() error { return e.Err }

// Is matches another DocGraphError with the same Kind, so callers can write
// errors.Is(err, &errors.DocGraphError{Kind: errors.KindNotFound}).
func (e *DocGraphError) Is(target error) bool {
	t, ok := target.(*DocGraphError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewKind builds a DocGraphError from a plain message.
func NewKind(kind Kind, op, message string) *DocGraphError {
	return &DocGraphError{Kind: kind, Op: op, Err: stderrors.New(message)}
}

// WrapKind builds a DocGraphError around an existing error. Returns nil if
// err is nil, so callers can write `return errors.WrapKind(k, op, err)`
// unconditionally in a defer or end-of-function return.
func WrapKind(kind Kind, op string, err error) *DocGraphError {
	if err == nil {
		return nil
	}
	return &DocGraphError{Kind: kind, Op: op, Err: err}
}

// IsKind reports whether err is a DocGraphError of the given Kind, unwrapping
// as needed.
func IsKind(err error, kind Kind) bool {
	var de *DocGraphError
	if stderrors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}
