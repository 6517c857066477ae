package climate

import (
	"fmt"
	"math"
)

// Accepted reading ranges, inclusive.
const (
	MinRelativeHumidity = 0.0
	MaxRelativeHumidity = 100.0
	MinTemperature      = -40.0
	MaxTemperature      = 80.0
)

// Magnus coefficients and the water vapour conversion factor.
const (
	magnusA         = 6.112
	magnusB         = 17.67
	magnusC         = 243.5
	vapourFactor    = 2.1674
	kelvinOffset    = 273.15
	roundingDecimal = 2
)

// ValidateReading checks a relative humidity (%) and temperature (°C) pair
// against the accepted ranges.
func ValidateReading(relativeHumidity, temperature float64) error {
	if math.IsNaN(relativeHumidity) || relativeHumidity < MinRelativeHumidity || relativeHumidity > MaxRelativeHumidity {
		return fmt.Errorf("%w: relative humidity %.2f%% outside [%.0f, %.0f]",
			ErrOutOfRange, relativeHumidity, MinRelativeHumidity, MaxRelativeHumidity)
	}
	if math.IsNaN(temperature) || temperature < MinTemperature || temperature > MaxTemperature {
		return fmt.Errorf("%w: temperature %.2f°C outside [%.0f, %.0f]",
			ErrOutOfRange, temperature, MinTemperature, MaxTemperature)
	}
	return nil
}

// AbsoluteHumidity converts relative humidity (%) at temperature (°C) to
// absolute humidity in g/m³, rounded to two decimals.
//
// Returns ErrOutOfRange if either input is outside the accepted range.
func AbsoluteHumidity(relativeHumidity, temperature float64) (float64, error) {
	if err := ValidateReading(relativeHumidity, temperature); err != nil {
		return 0, err
	}
	return Round(RawAbsoluteHumidity(relativeHumidity, temperature), roundingDecimal), nil
}

// RawAbsoluteHumidity is the unrounded, unchecked formula. The window
// recommendation uses it when no derived sensor value is available.
func RawAbsoluteHumidity(relativeHumidity, temperature float64) float64 {
	svp := magnusA * math.Exp(magnusB*temperature/(temperature+magnusC))
	return svp * relativeHumidity * vapourFactor / (kelvinOffset + temperature)
}

// Round rounds v half away from zero to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
