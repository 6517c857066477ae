package host

import (
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
)

// StateStore holds the current state of every known entity and notifies
// listeners of changes.
//
// Thread Safety: all methods are safe for concurrent use. Listeners run
// synchronously on the writer's goroutine after the lock is released, so a
// listener may read the store but must not block.
type StateStore struct {
	mu        sync.RWMutex
	states    map[string]*entity.State
	listeners map[uint64]func(entity.StateChangedEvent)
	nextID    uint64
	now       func() time.Time
}

// NewStateStore creates an empty store.
func NewStateStore() *StateStore {
	return &StateStore{
		states:    make(map[string]*entity.State),
		listeners: make(map[uint64]func(entity.StateChangedEvent)),
		now:       time.Now,
	}
}

// Get returns a copy of the entity's state.
func (s *StateStore) Get(entityID string) (*entity.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[entityID]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// GetState is Get under the name the entity.StateReader interface uses.
func (s *StateStore) GetState(entityID string) (*entity.State, bool) {
	return s.Get(entityID)
}

// EntityIDs returns the sorted IDs of all entities in domain. An empty
// domain returns every ID.
func (s *StateStore) EntityIDs(domain string) []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		if domain == "" || entity.InDomain(id, domain) {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// All returns copies of every state, sorted by entity ID.
func (s *StateStore) All() []*entity.State {
	s.mu.RLock()
	out := make([]*entity.State, 0, len(s.states))
	for _, st := range s.states {
		out = append(out, st.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out
}

// Len returns the number of entities.
func (s *StateStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.states)
}

// Set writes an entity's state and notifies listeners. LastChanged only
// moves when the value changes.
func (s *StateStore) Set(entityID, value string, attrs map[string]any) {
	now := s.now()
	st := &entity.State{
		EntityID:    entityID,
		Value:       value,
		Attributes:  copyAttrs(attrs),
		LastChanged: now,
		LastUpdated: now,
	}

	s.mu.Lock()
	old := s.states[entityID]
	if old != nil && old.Value == value {
		st.LastChanged = old.LastChanged
	}
	s.states[entityID] = st
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	s.notify(listeners, entity.StateChangedEvent{
		EntityID: entityID,
		OldState: old.Clone(),
		NewState: st.Clone(),
	})
}

// Remove deletes an entity and notifies listeners with a nil NewState.
// It reports whether the entity existed.
func (s *StateStore) Remove(entityID string) bool {
	s.mu.Lock()
	old, ok := s.states[entityID]
	delete(s.states, entityID)
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	if ok {
		s.notify(listeners, entity.StateChangedEvent{EntityID: entityID, OldState: old.Clone()})
	}
	return ok
}

// Listen registers a state change listener.
//
// Returns:
//   - func(): removes the listener; safe to call more than once
func (s *StateStore) Listen(listener func(entity.StateChangedEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = listener
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// snapshotListeners returns listeners in registration order. Caller holds s.mu.
func (s *StateStore) snapshotListeners() []func(entity.StateChangedEvent) {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]func(entity.StateChangedEvent), len(ids))
	for i, id := range ids {
		out[i] = s.listeners[id]
	}
	return out
}

func (s *StateStore) notify(listeners []func(entity.StateChangedEvent), ev entity.StateChangedEvent) {
	for _, l := range listeners {
		l(ev)
	}
}

func copyAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	cpy := make(map[string]any, len(attrs))
	for k, v := range attrs {
		cpy[k] = v
	}
	return cpy
}
