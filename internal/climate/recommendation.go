package climate

// Recommendation is the state of a window recommendation sensor.
type Recommendation string

const (
	RecommendationTooWet  Recommendation = "too wet"
	RecommendationTooWarm Recommendation = "too warm"
	RecommendationOK      Recommendation = "ok to open"
	RecommendationOpenNow Recommendation = "opening recommended"
)

// ComfortLimit is the indoor temperature (°C) below which a room counts as
// comfortable and warm outdoor air should be kept out.
const ComfortLimit = 24.0

// Icon returns the display icon for the recommendation.
func (r Recommendation) Icon() string {
	switch r {
	case RecommendationOK:
		return "mdi:window-open"
	case RecommendationTooWet:
		return "mdi:water-alert"
	case RecommendationTooWarm:
		return "mdi:thermometer-alert"
	case RecommendationOpenNow:
		return "mdi:window-open-variant"
	default:
		return "mdi:window-closed"
	}
}

// Thresholds tune the decision table.
type Thresholds struct {
	TemperatureOffset            float64 `yaml:"temperature_offset" json:"temperature_offset"`
	AbsoluteHumidityOffset       float64 `yaml:"absolute_humidity_offset" json:"absolute_humidity_offset"`
	AbsoluteHumidityWarningLevel float64 `yaml:"absolute_humidity_warning_level" json:"absolute_humidity_warning_level"`
}

// DefaultThresholds returns the stock offsets: 3.0 °C, 0.5 g/m³ and a 12.0 g/m³
// indoor warning level.
func DefaultThresholds() Thresholds {
	return Thresholds{
		TemperatureOffset:            3.0,
		AbsoluteHumidityOffset:       0.5,
		AbsoluteHumidityWarningLevel: 12.0,
	}
}

// Conditions is one indoor/outdoor comparison.
type Conditions struct {
	IndoorTemperature       float64
	OutdoorTemperature      float64
	IndoorAbsoluteHumidity  float64
	OutdoorAbsoluteHumidity float64
}

// Recommend evaluates the decision table against c.
func Recommend(c Conditions, th Thresholds) Recommendation {
	if c.OutdoorAbsoluteHumidity > c.IndoorAbsoluteHumidity+th.AbsoluteHumidityOffset {
		return RecommendationTooWet
	}
	if c.IndoorAbsoluteHumidity > th.AbsoluteHumidityWarningLevel {
		return RecommendationOpenNow
	}
	if c.OutdoorTemperature > c.IndoorTemperature+th.TemperatureOffset && c.IndoorTemperature < ComfortLimit {
		return RecommendationTooWarm
	}
	return RecommendationOK
}
