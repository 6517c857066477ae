package host

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-climate/internal/entity"
	"github.com/nerrad567/gray-logic-climate/internal/sensor"
)

// DefaultScanInterval is how often derived entities are refreshed.
const DefaultScanInterval = 30 * time.Second

// StatePublisher receives every state the platform writes for a derived
// entity. Implementations export to MQTT, InfluxDB and WebSocket clients.
type StatePublisher interface {
	PublishState(ctx context.Context, st *entity.State) error
}

// Platform owns the derived entities: it adds them, refreshes them on a
// schedule and writes their states into the store.
type Platform struct {
	store      *StateStore
	loop       *Loop
	logger     Logger
	mu         sync.RWMutex
	entities   map[string]entity.Entity
	order      []string
	publishers []StatePublisher
}

// NewPlatform creates a platform writing into store and scheduling refreshes
// on loop.
func NewPlatform(store *StateStore, loop *Loop, logger Logger) *Platform {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Platform{
		store:    store,
		loop:     loop,
		logger:   logger,
		entities: make(map[string]entity.Entity),
	}
}

// AddPublisher registers a state publisher. Call before entities are added.
func (p *Platform) AddPublisher(pub StatePublisher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publishers = append(p.publishers, pub)
}

// AddEntities registers new entities and writes their first state. Entities
// whose ID is already registered are skipped.
//
// Parameters:
//   - ctx: passed to Update and to publishers
//   - entities: the entities to add
//   - updateBeforeAdd: run Update once before the first write
func (p *Platform) AddEntities(ctx context.Context, entities []entity.Entity, updateBeforeAdd bool) {
	added := 0
	for _, e := range entities {
		id := e.EntityID()
		p.mu.Lock()
		if _, exists := p.entities[id]; exists {
			p.mu.Unlock()
			p.logger.Warn("entity already registered", "entity_id", id)
			continue
		}
		p.entities[id] = e
		p.order = append(p.order, id)
		p.mu.Unlock()

		if updateBeforeAdd {
			p.update(ctx, e)
		}
		p.write(ctx, e)
		added++
	}
	if added > 0 {
		p.logger.Info("entities added", "count", added)
	}
}

// Entities returns the registered entities in insertion order.
func (p *Platform) Entities() []entity.Entity {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]entity.Entity, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entities[id])
	}
	return out
}

// Entity returns a registered entity by ID.
func (p *Platform) Entity(entityID string) (entity.Entity, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entities[entityID]
	return e, ok
}

// Refresh updates every entity and writes its state. A failing entity does
// not stop the others.
func (p *Platform) Refresh(ctx context.Context) {
	for _, e := range p.Entities() {
		if ctx.Err() != nil {
			return
		}
		p.refreshOne(ctx, e)
	}
}

func (p *Platform) refreshOne(ctx context.Context, e entity.Entity) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("entity refresh panicked", "entity_id", e.EntityID(), "panic", r)
		}
	}()
	p.update(ctx, e)
	p.write(ctx, e)
}

// Run schedules Refresh on the loop every interval until ctx is cancelled.
func (p *Platform) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.loop.CreateTask(p.Refresh)
		}
	}
}

// Unload removes every derived entity and its state.
func (p *Platform) Unload() {
	p.mu.Lock()
	ids := p.order
	p.entities = make(map[string]entity.Entity)
	p.order = nil
	p.mu.Unlock()

	for _, id := range ids {
		p.store.Remove(id)
	}
	p.logger.Info("entities unloaded", "count", len(ids))
}

func (p *Platform) update(ctx context.Context, e entity.Entity) {
	err := e.Update(ctx)
	switch {
	case err == nil:
	case errors.Is(err, sensor.ErrMissingData):
		p.logger.Debug("update skipped, source data missing", "entity_id", e.EntityID(), "error", err)
	case errors.Is(err, sensor.ErrOutOfRange):
		p.logger.Warn("update skipped, reading out of range", "entity_id", e.EntityID(), "error", err)
	default:
		p.logger.Error("update failed", "entity_id", e.EntityID(), "error", err)
	}
}

// write renders e into the store and hands the result to every publisher.
func (p *Platform) write(ctx context.Context, e entity.Entity) {
	value := entity.StateUnavailable
	if e.Available() {
		value = entity.StateUnknown
		if v, ok := e.NativeValue(); ok {
			value = v
		}
	}

	attrs := e.Attributes()
	if attrs == nil {
		attrs = make(map[string]any)
	}
	md := e.Metadata()
	attrs[entity.AttrFriendlyName] = e.Name()
	if md.DeviceClass != "" {
		attrs[entity.AttrDeviceClass] = md.DeviceClass
	}
	if md.Unit != "" {
		attrs[entity.AttrUnitOfMeasurement] = md.Unit
	}
	if md.StateClass != "" {
		attrs[entity.AttrStateClass] = md.StateClass
	}
	if md.Icon != "" {
		attrs[entity.AttrIcon] = md.Icon
	}

	p.store.Set(e.EntityID(), value, attrs)

	st, ok := p.store.Get(e.EntityID())
	if !ok {
		return
	}
	p.mu.RLock()
	pubs := p.publishers
	p.mu.RUnlock()
	for _, pub := range pubs {
		if err := pub.PublishState(ctx, st); err != nil {
			p.logger.Warn("state publish failed", "entity_id", st.EntityID, "error", err)
		}
	}
}
