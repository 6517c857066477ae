package discovery

import (
	"errors"
	"strings"
)

// Domain-specific errors for the discovery engine.
var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// engine's current lifecycle state.
	ErrInvalidState = errors.New("discovery: invalid engine state")

	// ErrEntityNotFound is returned when an administrative operation names
	// an entity the host does not know.
	ErrEntityNotFound = errors.New("discovery: entity not found")

	// ErrAlreadyExists is returned when the requested derived sensor exists.
	ErrAlreadyExists = errors.New("discovery: sensor already exists")

	// ErrInvalidArgument is returned for empty or malformed entity IDs.
	ErrInvalidArgument = errors.New("discovery: invalid argument")
)

// ConfigurationError reports an administrative request that referenced
// unknown entities. It wraps ErrEntityNotFound.
type ConfigurationError struct {
	Operation string
	EntityIDs []string
}

func (e *ConfigurationError) Error() string {
	return "discovery: " + e.Operation + ": unknown entities " + strings.Join(e.EntityIDs, ", ")
}

func (e *ConfigurationError) Unwrap() error {
	return ErrEntityNotFound
}
