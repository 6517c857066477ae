package sensor

import (
	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// Logger defines the logging interface used by derived sensors.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Factory builds derived sensors bound to one state reader and one set of
// thresholds.
type Factory struct {
	states     entity.StateReader
	thresholds climate.Thresholds
	logger     Logger
}

// NewFactory creates a Factory.
//
// Parameters:
//   - states: live state access for the sensors it builds
//   - th: decision thresholds for window recommendation sensors
func NewFactory(states entity.StateReader, th climate.Thresholds) *Factory {
	return &Factory{
		states:     states,
		thresholds: th,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger handed to every sensor built afterwards.
func (f *Factory) SetLogger(logger Logger) {
	f.logger = logger
}

// Thresholds returns the thresholds applied to window sensors.
func (f *Factory) Thresholds() climate.Thresholds {
	return f.thresholds
}

// NewAbsoluteHumidity builds an absolute humidity sensor for a pair.
func (f *Factory) NewAbsoluteHumidity(humidityID, temperatureID string) *AbsoluteHumiditySensor {
	return NewAbsoluteHumiditySensor(f.states, humidityID, temperatureID, f.logger)
}

// NewWindowRecommendation builds a window recommendation sensor.
func (f *Factory) NewWindowRecommendation(src WindowSources) *WindowRecommendationSensor {
	return NewWindowRecommendationSensor(f.states, src, f.thresholds, f.logger)
}
