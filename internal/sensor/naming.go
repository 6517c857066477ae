package sensor

import (
	"strings"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// Object ID prefixes of derived sensors. Anything in these namespaces was
// produced by this service and must never be fed back into discovery.
const (
	AbsoluteHumidityPrefix     = "absolute_humidity_"
	WindowRecommendationPrefix = "window_recommendation_"
)

// AbsoluteHumidityEntityID returns the conventional entity ID of the absolute
// humidity sensor derived from humidityID.
func AbsoluteHumidityEntityID(humidityID string) string {
	return entity.DomainSensor + "." + AbsoluteHumidityPrefix + entity.ObjectID(humidityID)
}

// WindowRecommendationEntityID returns the entity ID of the window
// recommendation sensor for an indoor humidity sensor.
func WindowRecommendationEntityID(humidityID string) string {
	return entity.DomainSensor + "." + WindowRecommendationPrefix + entity.ObjectID(humidityID)
}

// IsDerived reports whether entityID lies in a derived namespace.
func IsDerived(entityID string) bool {
	_, obj := entity.SplitID(entityID)
	return strings.HasPrefix(obj, AbsoluteHumidityPrefix) || strings.HasPrefix(obj, WindowRecommendationPrefix)
}

// locationName strips the word "Humidity" from a friendly name, falling back
// to the entity ID.
func locationName(states entity.StateReader, humidityID string) string {
	name := humidityID
	if st, ok := states.GetState(humidityID); ok {
		if fn := st.FriendlyName(); fn != "" {
			name = fn
		}
	}
	return strings.TrimSpace(strings.ReplaceAll(name, "Humidity", ""))
}
