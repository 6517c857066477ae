package discovery

import (
	"strings"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// Transform proposes a temperature sensor ID for a humidity sensor ID.
type Transform struct {
	Name  string
	Apply func(humidityID string) string
}

// Transforms is the candidate list in priority order. The first candidate
// that differs from the input and resolves to a temperature sensor wins.
var Transforms = []Transform{
	{"humidity_suffix_to_temperature", func(id string) string {
		return strings.ReplaceAll(id, "_humidity", "_temperature")
	}},
	{"humidity_to_temperature", func(id string) string {
		return strings.ReplaceAll(id, "humidity", "temperature")
	}},
	{"humidity_suffix_to_temp", func(id string) string {
		return strings.ReplaceAll(id, "_humidity", "_temp")
	}},
	{"last_segment_to_temperature", func(id string) string {
		return stripLastSegment(id) + "_temperature"
	}},
	{"last_segment_to_temp", func(id string) string {
		return stripLastSegment(id) + "_temp"
	}},
	{"drop_humidity_suffix", func(id string) string {
		return strings.ReplaceAll(id, "_humidity", "")
	}},
	{"drop_sensor_prefix_and_humidity", func(id string) string {
		return strings.ReplaceAll(strings.ReplaceAll(id, "sensor_", ""), "_humidity", "")
	}},
}

// stripLastSegment removes the last "_"-delimited segment. IDs without an
// underscore are returned unchanged.
func stripLastSegment(id string) string {
	if i := strings.LastIndex(id, "_"); i >= 0 {
		return id[:i]
	}
	return id
}

// OutdoorVocabulary are the substrings that mark a sensor as outdoor-like.
var OutdoorVocabulary = []string{
	"outdoor", "outside", "exterior", "external",
	"weather", "yard", "garden", "patio", "deck", "balcony",
}

// StateLookup resolves a single entity.
type StateLookup interface {
	GetState(entityID string) (*entity.State, bool)
}

// Matcher proposes temperature partners for humidity sensors and classifies
// sensors as outdoor-like. It is stateless.
type Matcher struct {
	transforms []Transform
	vocabulary []string
}

// NewMatcher returns a Matcher using Transforms and OutdoorVocabulary.
func NewMatcher() *Matcher {
	return &Matcher{transforms: Transforms, vocabulary: OutdoorVocabulary}
}

// FindTemperatureMatch returns the first transform candidate for humidityID
// that names a known temperature-class sensor.
//
// Parameters:
//   - humidityID: the humidity sensor's entity ID
//   - lookup: live state access used to check candidates
//
// Returns:
//   - string: the matched temperature entity ID
//   - bool: false if no candidate resolves
func (m *Matcher) FindTemperatureMatch(humidityID string, lookup StateLookup) (string, bool) {
	for _, tr := range m.transforms {
		candidate := tr.Apply(humidityID)
		if candidate == humidityID || sensor.IsDerived(candidate) {
			continue
		}
		st, ok := lookup.GetState(candidate)
		if !ok || st.DeviceClass() != entity.DeviceClassTemperature {
			continue
		}
		return candidate, true
	}
	return "", false
}

// IsOutdoorLike reports whether the ID or display name contains any outdoor
// vocabulary word, case-insensitively.
func (m *Matcher) IsOutdoorLike(entityID, displayName string) bool {
	id := strings.ToLower(entityID)
	name := strings.ToLower(displayName)
	for _, word := range m.vocabulary {
		if strings.Contains(id, word) || strings.Contains(name, word) {
			return true
		}
	}
	return false
}
