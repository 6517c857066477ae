package host

import (
	"context"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// Runtime bundles the store, loop, dispatcher and platform into the host
// surface the discovery engine runs against.
type Runtime struct {
	Store      *StateStore
	Loop       *Loop
	Dispatcher *Dispatcher
	Platform   *Platform
}

// NewRuntime wires a fresh store, loop, dispatcher and platform.
func NewRuntime(logger Logger) *Runtime {
	if logger == nil {
		logger = noopLogger{}
	}
	store := NewStateStore()
	loop := NewLoop(logger)
	return &Runtime{
		Store:      store,
		Loop:       loop,
		Dispatcher: NewDispatcher(logger),
		Platform:   NewPlatform(store, loop, logger),
	}
}

// GetState returns a copy of an entity's state.
func (r *Runtime) GetState(entityID string) (*entity.State, bool) {
	return r.Store.Get(entityID)
}

// EntityIDs returns the sorted entity IDs in domain.
func (r *Runtime) EntityIDs(domain string) []string {
	return r.Store.EntityIDs(domain)
}

// OnStateChanged registers a store listener.
func (r *Runtime) OnStateChanged(listener func(entity.StateChangedEvent)) func() {
	return r.Store.Listen(listener)
}

// AddEntities hands entities to the platform.
func (r *Runtime) AddEntities(ctx context.Context, entities []entity.Entity, updateBeforeAdd bool) {
	r.Platform.AddEntities(ctx, entities, updateBeforeAdd)
}

// CreateTask queues task on the loop.
func (r *Runtime) CreateTask(task func(ctx context.Context)) {
	r.Loop.CreateTask(task)
}
