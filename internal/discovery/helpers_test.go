package discovery

import (
	"context"
	"sort"
	"sync"

	"github.com/nerrad567/gray-logic-climate/internal/climate"
	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// taskMode controls how fakeHost runs scheduled tasks.
type taskMode int

const (
	tasksQueued taskMode = iota // run on drain()
	tasksInline                 // run immediately
	tasksAsync                  // run on their own goroutine
)

// fakeHost is an in-memory Host.
type fakeHost struct {
	mu        sync.Mutex
	states    map[string]*entity.State
	listeners map[int]func(entity.StateChangedEvent)
	nextID    int
	tasks     []func(context.Context)
	added     [][]entity.Entity
	mode      taskMode
	publish   bool
	wg        sync.WaitGroup

	// afterEntityIDs, if set, runs after each EntityIDs snapshot is taken.
	afterEntityIDs func()
	entityIDCalls  int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		states:    make(map[string]*entity.State),
		listeners: make(map[int]func(entity.StateChangedEvent)),
	}
}

func (h *fakeHost) set(id, value string, attrs map[string]any) {
	h.mu.Lock()
	old := h.states[id]
	st := &entity.State{EntityID: id, Value: value, Attributes: attrs}
	h.states[id] = st
	listeners := h.snapshotListeners()
	h.mu.Unlock()

	ev := entity.StateChangedEvent{EntityID: id, OldState: old.Clone(), NewState: st.Clone()}
	for _, l := range listeners {
		l(ev)
	}
}

func (h *fakeHost) humidity(id, value, name string) {
	h.set(id, value, map[string]any{entity.AttrDeviceClass: entity.DeviceClassHumidity, entity.AttrFriendlyName: name})
}

func (h *fakeHost) temperature(id, value, name string) {
	h.set(id, value, map[string]any{entity.AttrDeviceClass: entity.DeviceClassTemperature, entity.AttrFriendlyName: name})
}

func (h *fakeHost) snapshotListeners() []func(entity.StateChangedEvent) {
	ids := make([]int, 0, len(h.listeners))
	for id := range h.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]func(entity.StateChangedEvent), 0, len(ids))
	for _, id := range ids {
		out = append(out, h.listeners[id])
	}
	return out
}

func (h *fakeHost) GetState(id string) (*entity.State, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	st, ok := h.states[id]
	return st.Clone(), ok
}

func (h *fakeHost) EntityIDs(domain string) []string {
	h.mu.Lock()
	h.entityIDCalls++
	var ids []string
	for id := range h.states {
		if entity.InDomain(id, domain) {
			ids = append(ids, id)
		}
	}
	hook := h.afterEntityIDs
	h.mu.Unlock()

	sort.Strings(ids)
	if hook != nil {
		hook()
	}
	return ids
}

func (h *fakeHost) enumerations() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entityIDCalls
}

func (h *fakeHost) OnStateChanged(l func(entity.StateChangedEvent)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := h.nextID
	h.nextID++
	h.listeners[id] = l
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.listeners, id)
	}
}

func (h *fakeHost) listenerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners)
}

func (h *fakeHost) AddEntities(ctx context.Context, entities []entity.Entity, updateBeforeAdd bool) {
	h.mu.Lock()
	h.added = append(h.added, entities)
	publish := h.publish
	h.mu.Unlock()

	if !publish {
		return
	}
	for _, e := range entities {
		if updateBeforeAdd {
			_ = e.Update(ctx)
		}
		attrs := e.Attributes()
		if md := e.Metadata(); md.DeviceClass != "" {
			attrs[entity.AttrDeviceClass] = md.DeviceClass
		}
		attrs[entity.AttrFriendlyName] = e.Name()
		value, ok := e.NativeValue()
		if !ok {
			value = entity.StateUnknown
		}
		h.set(e.EntityID(), value, attrs)
	}
}

func (h *fakeHost) CreateTask(task func(context.Context)) {
	switch h.mode {
	case tasksInline:
		task(context.Background())
	case tasksAsync:
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			task(context.Background())
		}()
	default:
		h.mu.Lock()
		h.tasks = append(h.tasks, task)
		h.mu.Unlock()
	}
}

// drain runs queued tasks, including ones queued while draining.
func (h *fakeHost) drain() {
	for {
		h.mu.Lock()
		if len(h.tasks) == 0 {
			h.mu.Unlock()
			return
		}
		task := h.tasks[0]
		h.tasks = h.tasks[1:]
		h.mu.Unlock()
		task(context.Background())
	}
}

func (h *fakeHost) pendingTasks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.tasks)
}

func (h *fakeHost) addCalls() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.added)
}

func (h *fakeHost) addedIDs() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ids []string
	for _, batch := range h.added {
		for _, e := range batch {
			ids = append(ids, e.EntityID())
		}
	}
	sort.Strings(ids)
	return ids
}

func (h *fakeHost) addedEntity(id string) entity.Entity {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, batch := range h.added {
		for _, e := range batch {
			if e.EntityID() == id {
				return e
			}
		}
	}
	return nil
}

func (h *fakeHost) countAdded(prefix string) int {
	n := 0
	for _, id := range h.addedIDs() {
		if len(id) >= len(prefix) && id[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

// fakeDispatcher is an in-memory Dispatcher.
type fakeDispatcher struct {
	mu       sync.Mutex
	handlers map[string][]func(args ...any)
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{handlers: make(map[string][]func(args ...any))}
}

func (d *fakeDispatcher) Connect(signal string, handler func(args ...any)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[signal] = append(d.handlers[signal], handler)
	idx := len(d.handlers[signal]) - 1
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.handlers[signal][idx] = nil
	}
}

func (d *fakeDispatcher) send(signal string, args ...any) {
	d.mu.Lock()
	hs := append([]func(args ...any){}, d.handlers[signal]...)
	d.mu.Unlock()
	for _, h := range hs {
		if h != nil {
			h(args...)
		}
	}
}

// mockRecorder counts Recorder calls.
type mockRecorder struct {
	mu       sync.Mutex
	created  map[string]int
	rejected map[string]int
	reevals  int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{created: make(map[string]int), rejected: make(map[string]int)}
}

func (r *mockRecorder) SensorCreated(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[kind]++
}

func (r *mockRecorder) Reevaluated(int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reevals++
}

func (r *mockRecorder) EventHandled(string) {}

func (r *mockRecorder) CommandRejected(cmd string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected[cmd]++
}

// mockAuditor records audit actions.
type mockAuditor struct {
	mu      sync.Mutex
	actions []string
}

func (a *mockAuditor) Record(_ context.Context, action, entityID string, _ map[string]any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action+" "+entityID)
}

func newTestEngine(h *fakeHost, d Dispatcher, cfg Config) *Engine {
	if cfg.Thresholds == (climate.Thresholds{}) {
		cfg.Thresholds = climate.DefaultThresholds()
	}
	return NewEngine(h, d, sensor.NewFactory(h, cfg.Thresholds), cfg, nil)
}

// seedHome adds a living room pair and an outdoor pair.
func seedHome(h *fakeHost) {
	h.humidity("sensor.living_humidity", "50", "Living Humidity")
	h.temperature("sensor.living_temperature", "22", "Living Temperature")
	h.humidity("sensor.outdoor_humidity", "70", "Outdoor Humidity")
	h.temperature("sensor.outdoor_temperature", "28", "Outdoor Temperature")
}
