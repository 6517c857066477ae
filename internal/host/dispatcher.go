package host

import (
	"sort"
	"sync"
)

// Dispatcher is a named-signal bus. Handlers run synchronously in Send.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string]map[uint64]func(args ...any)
	nextID   uint64
	logger   Logger
}

// NewDispatcher creates an empty Dispatcher.
func NewDispatcher(logger Logger) *Dispatcher {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Dispatcher{
		handlers: make(map[string]map[uint64]func(args ...any)),
		logger:   logger,
	}
}

// Connect subscribes handler to signal and returns a function that removes it.
func (d *Dispatcher) Connect(signal string, handler func(args ...any)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.handlers[signal] == nil {
		d.handlers[signal] = make(map[uint64]func(args ...any))
	}
	id := d.nextID
	d.nextID++
	d.handlers[signal][id] = handler

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.handlers[signal], id)
	}
}

// Send delivers args to every handler of signal. It returns the number of
// handlers called.
func (d *Dispatcher) Send(signal string, args ...any) int {
	d.mu.RLock()
	ids := make([]uint64, 0, len(d.handlers[signal]))
	for id := range d.handlers[signal] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	hs := make([]func(args ...any), len(ids))
	for i, id := range ids {
		hs[i] = d.handlers[signal][id]
	}
	d.mu.RUnlock()

	if len(hs) == 0 {
		d.logger.Debug("signal has no handlers", "signal", signal)
	}
	for _, h := range hs {
		h(args...)
	}
	return len(hs)
}
