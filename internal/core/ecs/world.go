package ecs

import (
	"sync"

	"github.com/l1jgo/ecsrt/internal/core/event"
	"go.uber.org/zap"
)

// World is the top-level ECS container. It owns the entity allocator, every
// component store, every resource, and the deferred command buffer flushed
// by Maintain between ticks.
type World struct {
	alloc     EntityAllocator
	registry  *Registry
	resources resourceTable
	lazy      *LazyUpdate
	entities  *Entities
	events    *event.Bus
	log       *zap.Logger
}

type Option func(*World)

// WithAllocator replaces the default EntityPool.
func WithAllocator(a EntityAllocator) Option {
	return func(w *World) { w.alloc = a }
}

// WithLogger sets the logger used for dropped deferred operations.
func WithLogger(log *zap.Logger) Option {
	return func(w *World) { w.log = log }
}

func NewWorld(opts ...Option) *World {
	w := &World{
		registry: NewRegistry(),
		lazy:     newLazyUpdate(),
		events:   event.NewBus(),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.alloc == nil {
		w.alloc = NewEntityPool()
	}
	w.entities = &Entities{alloc: w.alloc}
	return w
}

func (w *World) Allocator() EntityAllocator { return w.alloc }
func (w *World) Registry() *Registry        { return w.registry }
func (w *World) Events() *event.Bus         { return w.events }

// Entities returns the handle systems use to create and delete entities
// during a tick. Both take effect on Maintain.
func (w *World) Entities() *Entities { return w.entities }

// Lazy returns the deferred command buffer applied on Maintain.
func (w *World) Lazy() *LazyUpdate { return w.lazy }

func (w *World) IsLive(id EntityID) bool {
	return w.alloc.IsLive(id)
}

// Delete queues an entity for destruction on the next Maintain.
func (w *World) Delete(id EntityID) {
	w.alloc.Deallocate(id)
}

// RegisterComponent creates an empty store for the type. Idempotent.
func (w *World) RegisterComponent(id TypeID) {
	w.registry.Register(id)
}

func (w *World) ComponentRegistered(id TypeID) bool {
	return w.registry.Registered(id)
}

// RegisterResource registers a resource slot with the given policy. A slot
// that already exists keeps its value and takes the new policy.
func (w *World) RegisterResource(id TypeID, policy ResourcePolicy) {
	slot := w.resources.register(id, policy)
	slot.init.Lock()
	slot.policy = policy
	slot.init.Unlock()
}

// EnsureResource registers the slot only if it does not exist yet.
func (w *World) EnsureResource(id TypeID, policy ResourcePolicy) {
	w.resources.register(id, policy)
}

func (w *World) ResourceRegistered(id TypeID) bool {
	return w.resources.entry(id) != nil
}

// ComponentLock returns the per-type lock the dispatcher holds while a
// system borrows the store.
func (w *World) ComponentLock(id TypeID) (*sync.RWMutex, error) {
	e := w.registry.entry(id)
	if e == nil {
		return nil, unregistered(id)
	}
	return &e.lock, nil
}

func (w *World) ResourceLock(id TypeID) (*sync.RWMutex, error) {
	e := w.resources.entry(id)
	if e == nil {
		return nil, unregistered(id)
	}
	return &e.lock, nil
}

// Maintain commits everything buffered during the last tick: reserved
// entities become live, lazy updates run in submission order, deleted
// entities lose all their components and their slots are recycled.
// Lifecycle events are then delivered to bus subscribers. Reservations
// deleted before they were committed are cleaned up without any event.
func (w *World) Maintain() {
	created, deleted, discarded := w.alloc.Maintain()
	w.lazy.apply(w)
	for _, id := range deleted {
		w.registry.RemoveAll(id)
	}
	for _, id := range discarded {
		w.registry.RemoveAll(id)
	}
	if len(created) > 0 {
		event.Emit(w.events, EntitiesCreated{IDs: created})
	}
	if len(deleted) > 0 {
		event.Emit(w.events, EntitiesDeleted{IDs: deleted})
	}
	w.events.SwapBuffers()
	w.events.DispatchAll()
}

// EntitiesCreated is published by Maintain for reservations made live.
type EntitiesCreated struct {
	IDs []EntityID
}

// EntitiesDeleted is published by Maintain for destroyed entities.
type EntitiesDeleted struct {
	IDs []EntityID
}

// Entities is the tick-safe entity handle: creations and deletions are
// buffered in the allocator until Maintain.
type Entities struct {
	alloc EntityAllocator
}

func (e *Entities) Create() EntityID        { return e.alloc.Reserve() }
func (e *Entities) Delete(id EntityID)      { e.alloc.Deallocate(id) }
func (e *Entities) IsLive(id EntityID) bool { return e.alloc.IsLive(id) }

// Register creates the store for T if missing and returns its TypeID.
func Register[T any](w *World) TypeID {
	id := TypeOf[T]()
	w.RegisterComponent(id)
	return id
}

func storeOf[T any](w *World) (*Store[T], error) {
	id := TypeOf[T]()
	e := w.registry.entry(id)
	if e == nil {
		return nil, unregistered(id)
	}
	return e.value.(*Store[T]), nil
}

// Storage returns a read handle on the store for T.
func Storage[T any](w *World) (*ReadStorage[T], error) {
	s, err := storeOf[T](w)
	if err != nil {
		return nil, err
	}
	return &ReadStorage[T]{s: s}, nil
}

// StorageMut returns a write handle on the store for T.
func StorageMut[T any](w *World) (*WriteStorage[T], error) {
	s, err := storeOf[T](w)
	if err != nil {
		return nil, err
	}
	return &WriteStorage[T]{ReadStorage[T]{s: s}}, nil
}

// RegisterResource registers R with the given absent-value policy.
func RegisterResource[R any](w *World, policy ResourcePolicy) TypeID {
	id := TypeOf[R]()
	w.RegisterResource(id, policy)
	return id
}

// InsertResource creates or replaces the value of R. An unregistered R is
// registered with FailIfAbsent.
func InsertResource[R any](w *World, v R) {
	id := TypeOf[R]()
	slot := w.resources.register(id, FailIfAbsent)
	slot.init.Lock()
	defer slot.init.Unlock()
	if p, ok := slot.value.(*R); ok {
		*p = v
		return
	}
	slot.value = &v
}

// Resource returns a copy of the current value of R.
func Resource[R any](w *World) (R, error) {
	p, err := ResourceMut[R](w)
	if err != nil {
		var zero R
		return zero, err
	}
	return *p, nil
}

// ResourceMut returns a pointer to the value of R owned by the World.
func ResourceMut[R any](w *World) (*R, error) {
	v, err := w.resources.fetch(TypeOf[R]())
	if err != nil {
		return nil, err
	}
	return v.(*R), nil
}
