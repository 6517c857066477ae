package discovery

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// Engine discovers humidity/temperature pairs and creates derived sensors
// for them exactly once.
//
// Lifecycle: Idle -> Scanning -> Steady -> Closed. Start performs the
// initial scan and subscribes to state changes; Close unsubscribes and
// clears the registry. A closed engine cannot be restarted.
//
// Thread Safety: all methods are safe for concurrent use. Event callbacks
// only schedule work; matching and creation run as host tasks.
type Engine struct {
	host       Host
	dispatcher Dispatcher
	factory    *sensor.Factory
	matcher    *Matcher
	registry   *Registry
	cfg        Config
	logger     Logger
	recorder   Recorder
	auditor    Auditor

	flight singleflight.Group
	rerun  atomic.Bool

	mu       sync.Mutex
	state    State
	inFlight map[string]struct{}
	unsubs   []func()
}

// NewEngine creates a discovery engine in the Idle state.
//
// Parameters:
//   - host: state store, event stream, entity sink and task loop
//   - dispatcher: signal bus for manual additions (may be nil)
//   - factory: builds derived sensors
//   - cfg: outdoor sensor overrides and thresholds
//   - logger: Logger instance (may be nil)
func NewEngine(host Host, dispatcher Dispatcher, factory *sensor.Factory, cfg Config, logger Logger) *Engine {
	if logger == nil {
		logger = noopLogger{}
	}
	matcher := NewMatcher()
	registry := NewRegistry(matcher)
	registry.SetLogger(logger)
	return &Engine{
		host:       host,
		dispatcher: dispatcher,
		factory:    factory,
		matcher:    matcher,
		registry:   registry,
		cfg:        cfg,
		logger:     logger,
		recorder:   noopRecorder{},
		auditor:    noopAuditor{},
		state:      StateIdle,
		inFlight:   make(map[string]struct{}),
	}
}

// SetRecorder sets the metrics recorder.
func (e *Engine) SetRecorder(r Recorder) {
	if r != nil {
		e.recorder = r
	}
}

// SetAuditor sets the audit sink.
func (e *Engine) SetAuditor(a Auditor) {
	if a != nil {
		e.auditor = a
	}
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Registry exposes the pairing registry, mainly for status reporting.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Start scans existing sensors, adds every derived sensor found in one
// batch and subscribes to live changes.
//
// Returns ErrInvalidState unless the engine is Idle.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateIdle {
		st := e.state
		e.mu.Unlock()
		return fmt.Errorf("%w: start from %s", ErrInvalidState, st)
	}
	e.state = StateScanning
	e.mu.Unlock()

	created := e.scan(ctx)
	if len(created) > 0 {
		e.host.AddEntities(ctx, created, true)
	}
	e.logger.Info("initial discovery complete", "sensors", len(created))

	unsubs := []func(){e.host.OnStateChanged(e.handleStateChanged)}
	if e.dispatcher != nil {
		unsubs = append(unsubs,
			e.dispatcher.Connect(SignalAddSensor, e.handleAddSensorSignal),
			e.dispatcher.Connect(SignalAddWindowSensor, e.handleAddWindowSensorSignal),
		)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateClosed {
		// Closed while scanning.
		for _, u := range unsubs {
			u()
		}
		return fmt.Errorf("%w: closed during start", ErrInvalidState)
	}
	e.unsubs = unsubs
	e.state = StateSteady
	return nil
}

// Close unsubscribes from the host and clears the registry. Safe to call
// more than once.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.state == StateClosed {
		e.mu.Unlock()
		return
	}
	unsubs := e.unsubs
	e.unsubs = nil
	e.state = StateClosed
	e.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	e.registry.Reset()
	e.logger.Info("discovery engine closed")
}

// Snapshot returns registry counts and the current outdoor reference.
func (e *Engine) Snapshot() Snapshot {
	hum, win := e.registry.Counts()
	return Snapshot{
		State:                 e.State(),
		AbsoluteHumidityCount: hum,
		WindowSensorCount:     win,
		Outdoor:               e.resolveOutdoor(),
		Humidity:              e.registry.Humidity(),
	}
}

// scan runs pair creation for every humidity sensor currently known.
func (e *Engine) scan(ctx context.Context) []entity.Entity {
	var created []entity.Entity
	for _, id := range e.host.EntityIDs(entity.DomainSensor) {
		if sensor.IsDerived(id) {
			continue
		}
		st, ok := e.host.GetState(id)
		if !ok || st.DeviceClass() != entity.DeviceClassHumidity {
			continue
		}
		created = append(created, e.createPair(ctx, id)...)
	}
	return created
}

// handleStateChanged is the synchronous event listener. It never blocks:
// all matching happens in scheduled tasks.
func (e *Engine) handleStateChanged(ev entity.StateChangedEvent) {
	if ev.NewState == nil || !entity.InDomain(ev.EntityID, entity.DomainSensor) {
		return
	}
	if e.State() != StateSteady {
		return
	}

	switch ev.NewState.DeviceClass() {
	case entity.DeviceClassHumidity:
		if sensor.IsDerived(ev.EntityID) {
			e.logger.Debug("skipping derived sensor", "entity_id", ev.EntityID)
			return
		}
		e.recorder.EventHandled(entity.DeviceClassHumidity)
		e.schedulePairCreation(ev.EntityID)
		e.scheduleOutdoorCheck(ev.EntityID)
	case entity.DeviceClassTemperature:
		e.recorder.EventHandled(entity.DeviceClassTemperature)
		e.scheduleOutdoorCheck(ev.EntityID)
	}
}

// schedulePairCreation queues pair creation for humidityID unless it is
// already registered or already queued.
func (e *Engine) schedulePairCreation(humidityID string) {
	if e.registry.HasHumidity(humidityID) {
		return
	}
	e.mu.Lock()
	if _, busy := e.inFlight[humidityID]; busy {
		e.mu.Unlock()
		return
	}
	e.inFlight[humidityID] = struct{}{}
	e.mu.Unlock()

	e.host.CreateTask(func(ctx context.Context) {
		defer func() {
			e.mu.Lock()
			delete(e.inFlight, humidityID)
			e.mu.Unlock()
		}()
		created := e.createPair(ctx, humidityID)
		if len(created) == 0 {
			return
		}
		e.logger.Info("discovered new sensors", "humidity", humidityID, "count", len(created))
		e.host.AddEntities(ctx, created, true)
	})
}

// scheduleOutdoorCheck queues a task that re-reads the entity and, if it
// looks outdoor-like, runs a re-evaluation pass.
func (e *Engine) scheduleOutdoorCheck(entityID string) {
	e.host.CreateTask(func(ctx context.Context) {
		st, ok := e.host.GetState(entityID)
		if !ok || !e.matcher.IsOutdoorLike(entityID, st.FriendlyName()) {
			return
		}
		e.logger.Debug("outdoor sensor activity", "entity_id", entityID, "device_class", st.DeviceClass())
		e.reevaluate(ctx)
	})
}

// createPair builds the absolute humidity sensor for humidityID and, if the
// outdoor reference is complete, its window recommendation sensor.
func (e *Engine) createPair(ctx context.Context, humidityID string) []entity.Entity {
	if sensor.IsDerived(humidityID) || e.registry.HasHumidity(humidityID) {
		return nil
	}
	tempID, ok := e.matcher.FindTemperatureMatch(humidityID, e.host)
	if !ok {
		e.logger.Debug("no temperature match", "humidity", humidityID)
		return nil
	}
	if !e.registry.RegisterHumidity(humidityID) {
		return nil
	}

	abs := e.factory.NewAbsoluteHumidity(humidityID, tempID)
	e.recorder.SensorCreated(KindAbsoluteHumidity)
	e.auditor.Record(ctx, ActionSensorCreated, abs.EntityID(), map[string]any{
		"kind":        KindAbsoluteHumidity,
		"humidity":    humidityID,
		"temperature": tempID,
	})
	e.logger.Debug("absolute humidity sensor created", "entity_id", abs.EntityID(), "temperature", tempID)

	created := []entity.Entity{abs}
	if w := e.createWindow(ctx, humidityID, tempID); w != nil {
		created = append(created, w)
	}
	return created
}

// createWindow builds a window recommendation sensor for a pair. It returns
// nil when the outdoor reference is incomplete or the pair already has one.
func (e *Engine) createWindow(ctx context.Context, humidityID, temperatureID string) entity.Entity {
	key := PairKey{Humidity: humidityID, Temperature: temperatureID}
	if e.registry.HasWindowPair(key) {
		return nil
	}
	ref := e.resolveOutdoor()
	if !ref.Complete() {
		e.logger.Debug("outdoor reference incomplete, window sensor deferred",
			"humidity", humidityID,
			"outdoor_temperature", ref.Temperature,
			"outdoor_humidity", ref.Humidity,
		)
		return nil
	}
	if !e.registry.RegisterWindowPair(key) {
		return nil
	}

	src := sensor.WindowSources{
		IndoorHumidity:         humidityID,
		IndoorTemperature:      temperatureID,
		OutdoorHumidity:        ref.Humidity,
		OutdoorTemperature:     ref.Temperature,
		IndoorAbsoluteHumidity: sensor.AbsoluteHumidityEntityID(humidityID),
	}
	if _, ok := e.matcher.FindTemperatureMatch(ref.Humidity, e.host); ok {
		src.OutdoorAbsoluteHumidity = sensor.AbsoluteHumidityEntityID(ref.Humidity)
	}

	w := e.factory.NewWindowRecommendation(src)
	e.recorder.SensorCreated(KindWindowRecommendation)
	e.auditor.Record(ctx, ActionSensorCreated, w.EntityID(), map[string]any{
		"kind":                KindWindowRecommendation,
		"indoor_humidity":     humidityID,
		"indoor_temperature":  temperatureID,
		"outdoor_humidity":    ref.Humidity,
		"outdoor_temperature": ref.Temperature,
	})
	e.logger.Debug("window recommendation sensor created", "entity_id", w.EntityID())
	return w
}

// reevaluate tries to create window sensors for every registered humidity
// sensor that lacks one. Concurrent calls share a pass, but a call that
// arrives while a pass is running always gets a pass that starts after it:
// the running pass repeats while rerun is set, and a caller whose request
// was not picked up before the pass ended starts a new one.
func (e *Engine) reevaluate(ctx context.Context) int {
	e.rerun.Store(true)
	var n int
	for e.rerun.Load() {
		v, _, _ := e.flight.Do("reevaluate", func() (any, error) {
			total := 0
			for e.rerun.Swap(false) {
				total += e.reevaluatePass(ctx)
			}
			return total, nil
		})
		c, _ := v.(int)
		n += c
	}
	return n
}

// reevaluatePass is a single re-evaluation over the current registry.
func (e *Engine) reevaluatePass(ctx context.Context) int {
	ref := e.resolveOutdoor()
	if !ref.Complete() {
		e.logger.Debug("outdoor reference incomplete, re-evaluation skipped")
		return 0
	}

	var created []entity.Entity
	for _, humidityID := range e.registry.Humidity() {
		tempID, ok := e.matcher.FindTemperatureMatch(humidityID, e.host)
		if !ok {
			continue
		}
		if w := e.createWindow(ctx, humidityID, tempID); w != nil {
			created = append(created, w)
		}
	}
	if len(created) > 0 {
		e.logger.Info("window sensors created after re-evaluation", "count", len(created))
		e.host.AddEntities(ctx, created, true)
	}
	e.recorder.Reevaluated(len(created))
	return len(created)
}

func (e *Engine) resolveOutdoor() OutdoorReference {
	return e.registry.ResolveOutdoorReference(e.cfg.OutdoorTemperatureSensor, e.cfg.OutdoorHumiditySensor, e.host)
}
