package emucore

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by LoadError and StateError through errors.Is.
var (
	ErrNoContent          = errors.New("no content")
	ErrUnsupportedContent = errors.New("unsupported content")
	ErrCorruptContent     = errors.New("corrupt content")

	ErrStateSizeMismatch = errors.New("save state size mismatch")
	ErrStateCorrupt      = errors.New("save state corrupt")
)

// LoadErrorKind classifies content load failures.
type LoadErrorKind int

const (
	LoadUnsupported LoadErrorKind = iota
	LoadCorrupt
	LoadMissing
)

// LoadError is returned by Core.LoadGame.
type LoadError struct {
	Kind LoadErrorKind
	Err  error
}

// NewLoadError wraps err as a load failure of the given kind.
func NewLoadError(kind LoadErrorKind, format string, args ...any) *LoadError {
	return &LoadError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *LoadError) sentinel() error {
	switch e.Kind {
	case LoadCorrupt:
		return ErrCorruptContent
	case LoadMissing:
		return ErrNoContent
	default:
		return ErrUnsupportedContent
	}
}

func (e *LoadError) Error() string {
	if e.Err == nil {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%v: %v", e.sentinel(), e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *LoadError) Is(target error) bool {
	return target == e.sentinel()
}

// StateErrorKind classifies save state restore failures.
type StateErrorKind int

const (
	StateSizeMismatch StateErrorKind = iota
	StateCorrupt
)

// StateError is returned by Core.DeserializeState and the save state
// marshaller. The running state is untouched when it is returned.
type StateError struct {
	Kind StateErrorKind
	Err  error
}

// NewStateError wraps a restore failure of the given kind.
func NewStateError(kind StateErrorKind, format string, args ...any) *StateError {
	return &StateError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *StateError) sentinel() error {
	if e.Kind == StateSizeMismatch {
		return ErrStateSizeMismatch
	}
	return ErrStateCorrupt
}

func (e *StateError) Error() string {
	if e.Err == nil {
		return e.sentinel().Error()
	}
	return fmt.Sprintf("%v: %v", e.sentinel(), e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *StateError) Is(target error) bool {
	return target == e.sentinel()
}
