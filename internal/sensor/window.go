package sensor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// WindowSources names the inputs of a window recommendation sensor. The two
// absolute humidity IDs are optional hints.
type WindowSources struct {
	IndoorHumidity          string `json:"indoor_humidity"`
	IndoorTemperature       string `json:"indoor_temperature"`
	OutdoorHumidity         string `json:"outdoor_humidity"`
	OutdoorTemperature      string `json:"outdoor_temperature"`
	IndoorAbsoluteHumidity  string `json:"indoor_absolute_humidity,omitempty"`
	OutdoorAbsoluteHumidity string `json:"outdoor_absolute_humidity,omitempty"`
}

// WindowRecommendationSensor compares indoor and outdoor conditions and
// recommends whether to open a window.
type WindowRecommendationSensor struct {
	states     entity.StateReader
	logger     Logger
	src        WindowSources
	thresholds climate.Thresholds
	entityID   string
	uniqueID   string
	name       string

	mu         sync.RWMutex
	state      climate.Recommendation
	conditions *climate.Conditions
}

// NewWindowRecommendationSensor creates a window recommendation sensor.
func NewWindowRecommendationSensor(states entity.StateReader, src WindowSources, th climate.Thresholds, logger Logger) *WindowRecommendationSensor {
	if logger == nil {
		logger = noopLogger{}
	}
	return &WindowRecommendationSensor{
		states:     states,
		logger:     logger,
		src:        src,
		thresholds: th,
		entityID:   WindowRecommendationEntityID(src.IndoorHumidity),
		uniqueID:   WindowRecommendationPrefix + src.IndoorHumidity,
		name:       locationName(states, src.IndoorHumidity) + " window recommendation",
	}
}

func (s *WindowRecommendationSensor) EntityID() string { return s.entityID }
func (s *WindowRecommendationSensor) UniqueID() string { return s.uniqueID }
func (s *WindowRecommendationSensor) Name() string     { return s.name }

// Sources returns the sensor's input IDs.
func (s *WindowRecommendationSensor) Sources() WindowSources { return s.src }

// Recommendation returns the current recommendation, or "" when undefined.
func (s *WindowRecommendationSensor) Recommendation() climate.Recommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *WindowRecommendationSensor) NativeValue() (string, bool) {
	r := s.Recommendation()
	return string(r), r != ""
}

func (s *WindowRecommendationSensor) Metadata() entity.Metadata {
	return entity.Metadata{Icon: s.Recommendation().Icon()}
}

// Available reports whether all four raw sources hold a reading.
func (s *WindowRecommendationSensor) Available() bool {
	for _, id := range s.rawIDs() {
		if !hasReading(s.states, id) {
			return false
		}
	}
	return true
}

func (s *WindowRecommendationSensor) rawIDs() []string {
	return []string{s.src.IndoorHumidity, s.src.IndoorTemperature, s.src.OutdoorHumidity, s.src.OutdoorTemperature}
}

// Update re-reads all sources and re-evaluates the recommendation.
func (s *WindowRecommendationSensor) Update(_ context.Context) error {
	var vals [4]float64
	var parseErr error
	for i, id := range s.rawIDs() {
		v, err := readFloat(s.states, id)
		switch {
		case errors.Is(err, ErrParse):
			if parseErr == nil {
				parseErr = err
			}
		case err != nil:
			return err
		}
		vals[i] = v
	}
	if parseErr != nil {
		s.reset()
		return parseErr
	}

	inRH, inT, outRH, outT := vals[0], vals[1], vals[2], vals[3]
	if err := climate.ValidateReading(inRH, inT); err != nil {
		return fmt.Errorf("%s indoor: %w", s.entityID, err)
	}
	if err := climate.ValidateReading(outRH, outT); err != nil {
		return fmt.Errorf("%s outdoor: %w", s.entityID, err)
	}

	inAH, ok := s.derivedAbsoluteHumidity(s.src.IndoorHumidity, s.src.IndoorAbsoluteHumidity)
	if !ok {
		inAH = climate.RawAbsoluteHumidity(inRH, inT)
	}
	outAH, ok := s.derivedAbsoluteHumidity(s.src.OutdoorHumidity, s.src.OutdoorAbsoluteHumidity)
	if !ok {
		outAH = climate.RawAbsoluteHumidity(outRH, outT)
	}

	c := climate.Conditions{
		IndoorTemperature:       inT,
		OutdoorTemperature:      outT,
		IndoorAbsoluteHumidity:  inAH,
		OutdoorAbsoluteHumidity: outAH,
	}
	rec := climate.Recommend(c, s.thresholds)

	s.mu.Lock()
	s.state = rec
	s.conditions = &c
	s.mu.Unlock()

	s.logger.Debug("window recommendation updated",
		"entity_id", s.entityID,
		"recommendation", string(rec),
		"indoor_ah", inAH,
		"outdoor_ah", outAH,
	)
	return nil
}

func (s *WindowRecommendationSensor) reset() {
	s.mu.Lock()
	s.state = ""
	s.conditions = nil
	s.mu.Unlock()
}

// findAbsoluteHumiditySensor locates the derived sensor for humidityID: first
// by its source_humidity attribute, then by the naming convention.
func (s *WindowRecommendationSensor) findAbsoluteHumiditySensor(humidityID string) (string, bool) {
	if humidityID == "" {
		return "", false
	}
	for _, id := range s.states.EntityIDs(entity.DomainSensor) {
		if !strings.Contains(strings.ToLower(id), "absolute_humidity") {
			continue
		}
		st, ok := s.states.GetState(id)
		if ok && st.Attr(entity.AttrSourceHumidity) == humidityID {
			return id, true
		}
	}
	conv := AbsoluteHumidityEntityID(humidityID)
	if _, ok := s.states.GetState(conv); ok {
		return conv, true
	}
	return "", false
}

// derivedAbsoluteHumidity reads the live derived value for humidityID, falling
// back to the configured hint. Unusable values report false.
func (s *WindowRecommendationSensor) derivedAbsoluteHumidity(humidityID, hint string) (float64, bool) {
	id, ok := s.findAbsoluteHumiditySensor(humidityID)
	if !ok {
		id = hint
	}
	if id == "" {
		return 0, false
	}
	st, ok := s.states.GetState(id)
	if !ok || !st.IsValid() {
		return 0, false
	}
	v, err := st.Float()
	if err != nil {
		return 0, false
	}
	return v, true
}

// Attributes renders source IDs, current readings, differences and thresholds.
func (s *WindowRecommendationSensor) Attributes() map[string]any {
	attrs := map[string]any{
		"indoor_humidity":     s.src.IndoorHumidity,
		"indoor_temperature":  s.src.IndoorTemperature,
		"outdoor_humidity":    s.src.OutdoorHumidity,
		"outdoor_temperature": s.src.OutdoorTemperature,
	}
	if s.src.IndoorAbsoluteHumidity != "" {
		attrs["indoor_absolute_humidity"] = s.src.IndoorAbsoluteHumidity
	}
	if s.src.OutdoorAbsoluteHumidity != "" {
		attrs["outdoor_absolute_humidity"] = s.src.OutdoorAbsoluteHumidity
	}

	s.setReading(attrs, "indoor_humidity_value", s.src.IndoorHumidity, "%")
	s.setReading(attrs, "indoor_temperature_value", s.src.IndoorTemperature, "°C")
	s.setReading(attrs, "outdoor_humidity_value", s.src.OutdoorHumidity, "%")
	s.setReading(attrs, "outdoor_temperature_value", s.src.OutdoorTemperature, "°C")

	if id, ok := s.findAbsoluteHumiditySensor(s.src.IndoorHumidity); ok {
		s.setReading(attrs, "indoor_absolute_humidity_value", id, " g/m³")
	} else if s.src.IndoorAbsoluteHumidity != "" {
		s.setReading(attrs, "indoor_absolute_humidity_value", s.src.IndoorAbsoluteHumidity, " g/m³")
	}
	if id, ok := s.findAbsoluteHumiditySensor(s.src.OutdoorHumidity); ok {
		s.setReading(attrs, "outdoor_absolute_humidity_value", id, " g/m³")
	} else if s.src.OutdoorAbsoluteHumidity != "" {
		s.setReading(attrs, "outdoor_absolute_humidity_value", s.src.OutdoorAbsoluteHumidity, " g/m³")
	}

	s.mu.RLock()
	if c := s.conditions; c != nil {
		attrs["temperature_difference"] = fmt.Sprintf("%+.1f°C", c.IndoorTemperature-c.OutdoorTemperature)
		attrs["absolute_humidity_difference"] = fmt.Sprintf("%+.2f g/m³", c.IndoorAbsoluteHumidity-c.OutdoorAbsoluteHumidity)
	}
	s.mu.RUnlock()

	attrs["temperature_offset"] = fmt.Sprintf("%g°C", s.thresholds.TemperatureOffset)
	attrs["absolute_humidity_offset"] = fmt.Sprintf("%g g/m³", s.thresholds.AbsoluteHumidityOffset)
	attrs["absolute_humidity_warning_level"] = fmt.Sprintf("%g g/m³", s.thresholds.AbsoluteHumidityWarningLevel)
	return attrs
}

func (s *WindowRecommendationSensor) setReading(attrs map[string]any, key, entityID, unit string) {
	if st, ok := s.states.GetState(entityID); ok && st.IsValid() {
		attrs[key] = st.Value + unit
	}
}
