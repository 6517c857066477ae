package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DomainSensor is the entity domain all climate inputs and outputs live in.
const DomainSensor = "sensor"

// Reserved state values that carry no reading.
const (
	StateUnknown     = "unknown"
	StateUnavailable = "unavailable"
)

// Well-known attribute keys.
const (
	AttrDeviceClass       = "device_class"
	AttrFriendlyName      = "friendly_name"
	AttrUnitOfMeasurement = "unit_of_measurement"
	AttrStateClass        = "state_class"
	AttrIcon              = "icon"
	AttrSourceHumidity    = "source_humidity"
	AttrSourceTemperature = "source_temperature"
)

// Device classes the climate service cares about.
const (
	DeviceClassHumidity    = "humidity"
	DeviceClassTemperature = "temperature"
)

// Validity describes whether a state carries a usable reading.
type Validity string

const (
	ValidityOK          Validity = "ok"
	ValidityUnknown     Validity = "unknown"
	ValidityUnavailable Validity = "unavailable"
)

// State is a point-in-time snapshot of one entity as held by the host.
//
// States are values: the host hands out copies and the climate service
// never keeps them beyond a single evaluation.
type State struct {
	EntityID    string         `json:"entity_id"`
	Value       string         `json:"state"`
	Attributes  map[string]any `json:"attributes,omitempty"`
	LastChanged time.Time      `json:"last_changed"`
	LastUpdated time.Time      `json:"last_updated"`
}

// Validity classifies the raw state value.
func (s *State) Validity() Validity {
	switch s.Value {
	case StateUnknown, "":
		return ValidityUnknown
	case StateUnavailable:
		return ValidityUnavailable
	default:
		return ValidityOK
	}
}

// IsValid reports whether the state holds a reading.
func (s *State) IsValid() bool {
	return s.Validity() == ValidityOK
}

// DeviceClass returns the device_class attribute, or "" when absent.
func (s *State) DeviceClass() string {
	return s.attrString(AttrDeviceClass)
}

// FriendlyName returns the friendly_name attribute, or "" when absent.
func (s *State) FriendlyName() string {
	return s.attrString(AttrFriendlyName)
}

// Attr returns a string attribute.
func (s *State) Attr(key string) string {
	return s.attrString(key)
}

func (s *State) attrString(key string) string {
	if s.Attributes == nil {
		return ""
	}
	v, ok := s.Attributes[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Float parses the state value as a number.
func (s *State) Float() (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s.Value), 64)
	if err != nil {
		return 0, fmt.Errorf("parsing state of %s: %w", s.EntityID, err)
	}
	return f, nil
}

// Clone returns an independent copy of the state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	cpy := *s
	if s.Attributes != nil {
		cpy.Attributes = make(map[string]any, len(s.Attributes))
		for k, v := range s.Attributes {
			cpy.Attributes[k] = v
		}
	}
	return &cpy
}

// StateChangedEvent is delivered to listeners whenever an entity's state is
// written or removed. NewState is nil on removal; OldState is nil on first write.
type StateChangedEvent struct {
	EntityID string
	OldState *State
	NewState *State
}
