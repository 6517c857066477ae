package entity

import (
	"context"
	"strings"
)

// Metadata describes how an entity's state should be presented.
type Metadata struct {
	DeviceClass string
	Unit        string
	StateClass  string
	Icon        string
}

// Entity is a derived sensor managed by the host platform.
//
// The host calls Update on a schedule and writes the resulting state into
// its state store under EntityID.
type Entity interface {
	EntityID() string
	UniqueID() string
	Name() string

	// NativeValue returns the rendered state and false when the entity has no value.
	NativeValue() (string, bool)

	// Attributes returns extra state attributes. The map is owned by the caller.
	Attributes() map[string]any

	Metadata() Metadata
	Available() bool
	Update(ctx context.Context) error
}

// StateReader is read-only access to the host's live state.
type StateReader interface {
	GetState(entityID string) (*State, bool)
	EntityIDs(domain string) []string
}

// SplitID splits "sensor.kitchen_humidity" into ("sensor", "kitchen_humidity").
// IDs without a dot return an empty domain.
func SplitID(entityID string) (domain, objectID string) {
	domain, objectID, ok := strings.Cut(entityID, ".")
	if !ok {
		return "", entityID
	}
	return domain, objectID
}

// ObjectID returns the part of the entity ID after the domain.
func ObjectID(entityID string) string {
	if i := strings.LastIndex(entityID, "."); i >= 0 {
		return entityID[i+1:]
	}
	return entityID
}

// InDomain reports whether entityID belongs to domain.
func InDomain(entityID, domain string) bool {
	return strings.HasPrefix(entityID, domain+".")
}
