package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput signals a malformed request rejected before any backend call.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMappingUnsupported signals a schema element with no index mapping.
	ErrMappingUnsupported = errors.New("mapping unsupported")
	// ErrNoVector signals that no vector value is available for a similarity search.
	ErrNoVector = errors.New("no vector value")
	// ErrUnknownBackend signals an unregistered search engine name.
	ErrUnknownBackend = errors.New("unknown search engine")
)

// MappingUnsupportedError names the schema element type that cannot be mapped.
type MappingUnsupportedError struct {
	Kind string // field, metadata property, question
	Type string
}

func (e *MappingUnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s type %q", ErrMappingUnsupported.Error(), e.Kind, e.Type)
}

func (e *MappingUnsupportedError) Unwrap() error { return ErrMappingUnsupported }

// UnknownBackendError names the requested engine and the registered ones.
type UnknownBackendError struct {
	Name  string
	Known []string
}

func (e *UnknownBackendError) Error() string {
	return fmt.Sprintf("%s %q (known: %s)", ErrUnknownBackend.Error(), e.Name, strings.Join(e.Known, ", "))
}

func (e *UnknownBackendError) Unwrap() error { return ErrUnknownBackend }

// InvalidInput wraps ErrInvalidInput with a formatted message.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
