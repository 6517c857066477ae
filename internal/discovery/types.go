package discovery

import (
	"context"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// Dispatcher signals handled by the engine.
const (
	// SignalAddSensor carries (humidityID, temperatureID string).
	SignalAddSensor = "climate_add_sensor"

	// SignalAddWindowSensor carries (indoorHumidity, indoorTemperature,
	// outdoorHumidity, outdoorTemperature string).
	SignalAddWindowSensor = "climate_add_window_sensor"
)

// Sensor kinds reported to the Recorder.
const (
	KindAbsoluteHumidity     = "absolute_humidity"
	KindWindowRecommendation = "window_recommendation"
)

// Host is everything the engine needs from the host platform.
type Host interface {
	// GetState returns a copy of the entity's current state.
	GetState(entityID string) (*entity.State, bool)

	// EntityIDs lists known entities of a domain in a stable order.
	EntityIDs(domain string) []string

	// OnStateChanged registers a synchronous listener. The listener must not block.
	OnStateChanged(listener func(entity.StateChangedEvent)) (unsubscribe func())

	// AddEntities hands new derived sensors to the platform.
	AddEntities(ctx context.Context, entities []entity.Entity, updateBeforeAdd bool)

	// CreateTask schedules deferred work on the host's task loop.
	CreateTask(task func(ctx context.Context))
}

// Dispatcher is the host's named-signal bus.
type Dispatcher interface {
	Connect(signal string, handler func(args ...any)) (disconnect func())
}

// Recorder receives discovery metrics.
type Recorder interface {
	SensorCreated(kind string)
	Reevaluated(created int)
	EventHandled(deviceClass string)
	CommandRejected(command string)
}

// Auditor records discovery and administrative actions.
type Auditor interface {
	Record(ctx context.Context, action, entityID string, details map[string]any)
}

// Logger defines the logging interface used by the discovery package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopRecorder struct{}

func (noopRecorder) SensorCreated(string)   {}
func (noopRecorder) Reevaluated(int)        {}
func (noopRecorder) EventHandled(string)    {}
func (noopRecorder) CommandRejected(string) {}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, string, string, map[string]any) {}

// Config holds discovery settings.
type Config struct {
	// OutdoorTemperatureSensor and OutdoorHumiditySensor pin the outdoor
	// reference. Empty means auto-detect.
	OutdoorTemperatureSensor string
	OutdoorHumiditySensor    string

	Thresholds climate.Thresholds
}

// State is the engine lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateSteady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateSteady:
		return "steady"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a point-in-time view of the engine for status reporting.
type Snapshot struct {
	State                 State            `json:"state"`
	AbsoluteHumidityCount int              `json:"absolute_humidity_sensors"`
	WindowSensorCount     int              `json:"window_sensors"`
	Outdoor               OutdoorReference `json:"outdoor"`
	Humidity              []string         `json:"humidity_sources"`
}
