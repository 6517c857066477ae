package sensor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// AbsoluteHumiditySensor derives absolute humidity (g/m³) from a relative
// humidity sensor and its paired temperature sensor.
type AbsoluteHumiditySensor struct {
	states        entity.StateReader
	logger        Logger
	humidityID    string
	temperatureID string
	entityID      string
	uniqueID      string
	name          string

	mu    sync.RWMutex
	value *float64
}

// NewAbsoluteHumiditySensor creates a sensor for the given source pair. The
// display name is taken from the humidity sensor's friendly name at creation.
func NewAbsoluteHumiditySensor(states entity.StateReader, humidityID, temperatureID string, logger Logger) *AbsoluteHumiditySensor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &AbsoluteHumiditySensor{
		states:        states,
		logger:        logger,
		humidityID:    humidityID,
		temperatureID: temperatureID,
		entityID:      AbsoluteHumidityEntityID(humidityID),
		uniqueID:      AbsoluteHumidityPrefix + humidityID,
		name:          locationName(states, humidityID) + " Absolute Humidity",
	}
}

func (s *AbsoluteHumiditySensor) EntityID() string { return s.entityID }
func (s *AbsoluteHumiditySensor) UniqueID() string { return s.uniqueID }
func (s *AbsoluteHumiditySensor) Name() string     { return s.name }

// HumidityID returns the source humidity entity ID.
func (s *AbsoluteHumiditySensor) HumidityID() string { return s.humidityID }

// TemperatureID returns the source temperature entity ID.
func (s *AbsoluteHumiditySensor) TemperatureID() string { return s.temperatureID }

// Value returns the last computed absolute humidity.
func (s *AbsoluteHumiditySensor) Value() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == nil {
		return 0, false
	}
	return *s.value, true
}

func (s *AbsoluteHumiditySensor) NativeValue() (string, bool) {
	v, ok := s.Value()
	if !ok {
		return "", false
	}
	return strconv.FormatFloat(v, 'f', 2, 64), true
}

func (s *AbsoluteHumiditySensor) Metadata() entity.Metadata {
	return entity.Metadata{
		DeviceClass: entity.DeviceClassHumidity,
		Unit:        "g/m³",
		StateClass:  "measurement",
		Icon:        "mdi:water-percent",
	}
}

func (s *AbsoluteHumiditySensor) Attributes() map[string]any {
	return map[string]any{
		entity.AttrSourceHumidity:    s.humidityID,
		entity.AttrSourceTemperature: s.temperatureID,
	}
}

// Available reports whether both sources currently hold a reading.
func (s *AbsoluteHumiditySensor) Available() bool {
	return hasReading(s.states, s.humidityID) && hasReading(s.states, s.temperatureID)
}

// Update recomputes the value from the live source states.
//
// MissingData and OutOfRange leave the previous value in place; a parse
// failure clears it.
func (s *AbsoluteHumiditySensor) Update(_ context.Context) error {
	rh, err := readFloat(s.states, s.humidityID)
	if err != nil {
		return s.fail(err)
	}
	t, err := readFloat(s.states, s.temperatureID)
	if err != nil {
		return s.fail(err)
	}

	ah, err := climate.AbsoluteHumidity(rh, t)
	if err != nil {
		return s.fail(fmt.Errorf("%s: %w", s.entityID, err))
	}

	s.mu.Lock()
	s.value = &ah
	s.mu.Unlock()

	s.logger.Debug("absolute humidity updated",
		"entity_id", s.entityID,
		"relative_humidity", rh,
		"temperature", t,
		"absolute_humidity", ah,
	)
	return nil
}

func (s *AbsoluteHumiditySensor) fail(err error) error {
	if errors.Is(err, ErrParse) {
		s.mu.Lock()
		s.value = nil
		s.mu.Unlock()
	}
	return err
}

// hasReading reports whether entityID exists with a valid state.
func hasReading(states entity.StateReader, entityID string) bool {
	st, ok := states.GetState(entityID)
	return ok && st.IsValid()
}

// readFloat resolves entityID and parses its state, classifying failures as
// ErrMissingData or ErrParse.
func readFloat(states entity.StateReader, entityID string) (float64, error) {
	st, ok := states.GetState(entityID)
	if !ok {
		return 0, fmt.Errorf("%w: %s does not exist", ErrMissingData, entityID)
	}
	if !st.IsValid() {
		return 0, fmt.Errorf("%w: %s is %s", ErrMissingData, entityID, st.Validity())
	}
	f, err := st.Float()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return f, nil
}
