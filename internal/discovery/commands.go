package discovery

import (
	"context"
	"fmt"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// Administrative operation names, used for metrics and audit.
const (
	CommandAddSensor       = "add_sensor"
	CommandAddWindowSensor = "add_window_sensor"
	CommandRediscover      = "rediscover"
	CommandReevaluate      = "reevaluate_window_sensors"
)

// ActionSensorCreated is the audit action for a derived sensor created by
// discovery rather than by an operator command.
const ActionSensorCreated = "sensor.created"

// AddSensor creates an absolute humidity sensor for an explicit pair,
// bypassing the matcher.
//
// Parameters:
//   - ctx: bounds the wait for the host task loop
//   - humidityID, temperatureID: existing sensor entity IDs
//
// Returns:
//   - error: nil on success, or:
//   - ErrInvalidArgument if an ID is empty or not a sensor
//   - *ConfigurationError (ErrEntityNotFound) if an ID is unknown
//   - ErrAlreadyExists if the humidity sensor is already paired
//   - ErrInvalidState if the engine is not running
func (e *Engine) AddSensor(ctx context.Context, humidityID, temperatureID string) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	return e.runOnLoop(ctx, func(taskCtx context.Context) error {
		return e.addSensor(taskCtx, humidityID, temperatureID)
	})
}

// AddWindowSensor creates a window recommendation sensor for explicit
// indoor and outdoor pairs. The indoor humidity sensor may have only one,
// whatever temperature it is paired with.
//
// Returns the same errors as AddSensor.
func (e *Engine) AddWindowSensor(ctx context.Context, src sensor.WindowSources) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	return e.runOnLoop(ctx, func(taskCtx context.Context) error {
		return e.addWindowSensor(taskCtx, src)
	})
}

// Rediscover re-runs the initial scan. Already paired sensors are skipped.
//
// Returns the number of sensors created.
func (e *Engine) Rediscover(ctx context.Context) (int, error) {
	if err := e.checkRunning(); err != nil {
		return 0, err
	}
	var n int
	err := e.runOnLoop(ctx, func(taskCtx context.Context) error {
		created := e.scan(taskCtx)
		if len(created) > 0 {
			e.host.AddEntities(taskCtx, created, true)
		}
		n = len(created)
		e.auditor.Record(taskCtx, CommandRediscover, "", map[string]any{"created": n})
		e.logger.Info("rediscovery complete", "sensors", n)
		return nil
	})
	return n, err
}

// ReevaluateWindowSensors runs a re-evaluation pass on demand.
//
// Returns the number of window sensors created.
func (e *Engine) ReevaluateWindowSensors(ctx context.Context) (int, error) {
	if err := e.checkRunning(); err != nil {
		return 0, err
	}
	var n int
	err := e.runOnLoop(ctx, func(taskCtx context.Context) error {
		n = e.reevaluate(taskCtx)
		return nil
	})
	return n, err
}

func (e *Engine) addSensor(ctx context.Context, humidityID, temperatureID string) error {
	if err := e.validateIDs(CommandAddSensor, humidityID, temperatureID); err != nil {
		return err
	}
	if !e.registry.RegisterHumidity(humidityID) {
		e.recorder.CommandRejected(CommandAddSensor)
		return fmt.Errorf("%w: absolute humidity for %s", ErrAlreadyExists, humidityID)
	}

	abs := e.factory.NewAbsoluteHumidity(humidityID, temperatureID)
	e.recorder.SensorCreated(KindAbsoluteHumidity)
	e.auditor.Record(ctx, CommandAddSensor, abs.EntityID(), map[string]any{
		"humidity":    humidityID,
		"temperature": temperatureID,
	})
	e.host.AddEntities(ctx, []entity.Entity{abs}, true)
	e.logger.Info("manually added absolute humidity sensor", "entity_id", abs.EntityID())
	return nil
}

func (e *Engine) addWindowSensor(ctx context.Context, src sensor.WindowSources) error {
	if err := e.validateIDs(CommandAddWindowSensor,
		src.IndoorHumidity, src.IndoorTemperature, src.OutdoorHumidity, src.OutdoorTemperature); err != nil {
		return err
	}
	key := PairKey{Humidity: src.IndoorHumidity, Temperature: src.IndoorTemperature}
	windowID := sensor.WindowRecommendationEntityID(src.IndoorHumidity)
	if _, exists := e.host.GetState(windowID); exists {
		e.recorder.CommandRejected(CommandAddWindowSensor)
		return fmt.Errorf("%w: %s", ErrAlreadyExists, windowID)
	}
	if !e.registry.RegisterWindowPair(key) {
		e.recorder.CommandRejected(CommandAddWindowSensor)
		return fmt.Errorf("%w: window recommendation for %s", ErrAlreadyExists, key)
	}

	if src.IndoorAbsoluteHumidity == "" {
		src.IndoorAbsoluteHumidity = sensor.AbsoluteHumidityEntityID(src.IndoorHumidity)
	}
	if src.OutdoorAbsoluteHumidity == "" {
		src.OutdoorAbsoluteHumidity = sensor.AbsoluteHumidityEntityID(src.OutdoorHumidity)
	}

	w := e.factory.NewWindowRecommendation(src)
	e.recorder.SensorCreated(KindWindowRecommendation)
	e.auditor.Record(ctx, CommandAddWindowSensor, w.EntityID(), map[string]any{
		"indoor_humidity":     src.IndoorHumidity,
		"indoor_temperature":  src.IndoorTemperature,
		"outdoor_humidity":    src.OutdoorHumidity,
		"outdoor_temperature": src.OutdoorTemperature,
	})
	e.host.AddEntities(ctx, []entity.Entity{w}, true)
	e.logger.Info("manually added window recommendation sensor", "entity_id", w.EntityID())
	return nil
}

// validateIDs rejects empty, non-sensor, derived and unknown IDs. Nothing
// is changed when it fails.
func (e *Engine) validateIDs(op string, ids ...string) error {
	var missing []string
	for _, id := range ids {
		if id == "" || !entity.InDomain(id, entity.DomainSensor) {
			e.recorder.CommandRejected(op)
			return fmt.Errorf("%w: %q is not a sensor entity ID", ErrInvalidArgument, id)
		}
		if sensor.IsDerived(id) {
			e.recorder.CommandRejected(op)
			return fmt.Errorf("%w: %s is a derived sensor", ErrInvalidArgument, id)
		}
		if _, ok := e.host.GetState(id); !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		e.recorder.CommandRejected(op)
		err := &ConfigurationError{Operation: op, EntityIDs: missing}
		e.logger.Warn("administrative request rejected", "operation", op, "error", err)
		return err
	}
	return nil
}

func (e *Engine) checkRunning() error {
	if st := e.State(); st != StateSteady {
		return fmt.Errorf("%w: engine is %s", ErrInvalidState, st)
	}
	return nil
}

// runOnLoop executes fn as a host task and waits for its result. fn sees the
// caller's context values (user, request source) but not its cancellation:
// once queued, the task runs to completion. Must not be called from a host
// task.
func (e *Engine) runOnLoop(ctx context.Context, fn func(ctx context.Context) error) error {
	done := make(chan error, 1)
	taskCtx := context.WithoutCancel(ctx)
	e.host.CreateTask(func(context.Context) {
		done <- fn(taskCtx)
	})
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleAddSensorSignal handles SignalAddSensor(humidityID, temperatureID).
func (e *Engine) handleAddSensorSignal(args ...any) {
	ids, ok := stringArgs(args, 2)
	if !ok {
		e.logger.Warn("malformed signal", "signal", SignalAddSensor, "args", len(args))
		return
	}
	e.host.CreateTask(func(ctx context.Context) {
		if err := e.addSensor(ctx, ids[0], ids[1]); err != nil {
			e.logger.Warn("signal rejected", "signal", SignalAddSensor, "error", err)
		}
	})
}

// handleAddWindowSensorSignal handles SignalAddWindowSensor with four IDs.
func (e *Engine) handleAddWindowSensorSignal(args ...any) {
	ids, ok := stringArgs(args, 4)
	if !ok {
		e.logger.Warn("malformed signal", "signal", SignalAddWindowSensor, "args", len(args))
		return
	}
	src := sensor.WindowSources{
		IndoorHumidity:     ids[0],
		IndoorTemperature:  ids[1],
		OutdoorHumidity:    ids[2],
		OutdoorTemperature: ids[3],
	}
	e.host.CreateTask(func(ctx context.Context) {
		if err := e.addWindowSensor(ctx, src); err != nil {
			e.logger.Warn("signal rejected", "signal", SignalAddWindowSensor, "error", err)
		}
	})
}

func stringArgs(args []any, n int) ([]string, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]string, n)
	for i, a := range args {
		s, ok := a.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}
