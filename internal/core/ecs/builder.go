package ecs

import "fmt"

type pendingInsert struct {
	typ   TypeID
	value any
}

// EntityBuilder accumulates component insertions for a freshly allocated
// entity and commits them together on Build.
//
//	id, err := w.CreateEntity().
//		With(Position{X: 4, Y: 7}).
//		Build()
type EntityBuilder struct {
	world   *World
	entity  EntityID
	pending []pendingInsert
	built   bool
}

// CreateEntity allocates a live entity and returns a builder for it.
// Call between ticks, not from systems; systems use Entities and LazyUpdate.
func (w *World) CreateEntity() *EntityBuilder {
	return &EntityBuilder{
		world:   w,
		entity:  w.alloc.Allocate(),
		pending: make([]pendingInsert, 0, 4),
	}
}

// Entity returns the identifier reserved for this builder.
func (b *EntityBuilder) Entity() EntityID { return b.entity }

// With queues a component. A later value of the same type replaces an earlier one.
func With[T any](b *EntityBuilder, v T) *EntityBuilder {
	b.pending = append(b.pending, pendingInsert{typ: TypeOf[T](), value: v})
	return b
}

// With is the method form of the generic With for chaining; the component
// type is taken from the dynamic type of v.
func (b *EntityBuilder) With(v any) *EntityBuilder {
	id, ok := typeIDOfValue(v)
	if !ok {
		b.pending = append(b.pending, pendingInsert{typ: -1, value: v})
		return b
	}
	b.pending = append(b.pending, pendingInsert{typ: id, value: v})
	return b
}

// Build commits every queued component. If any component type is not
// registered nothing is inserted, the entity is queued for deletion and
// ErrUnregisteredType is returned.
func (b *EntityBuilder) Build() (EntityID, error) {
	if b.built {
		return b.entity, ErrBuilderConsumed
	}
	b.built = true
	for _, p := range b.pending {
		if p.typ < 0 {
			b.world.alloc.Deallocate(b.entity)
			return b.entity, fmt.Errorf("%w: %T", ErrUnregisteredType, p.value)
		}
		if !b.world.registry.Registered(p.typ) {
			b.world.alloc.Deallocate(b.entity)
			return b.entity, unregistered(p.typ)
		}
	}
	for _, p := range b.pending {
		b.world.registry.entry(p.typ).value.insertAny(b.entity, p.value)
	}
	b.pending = nil
	return b.entity, nil
}
