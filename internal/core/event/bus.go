package event

import (
	"reflect"
	"sync"
)

// Bus is a double-buffered event bus. Events emitted since the last swap
// sit in the back buffer; SwapBuffers moves them to the front where
// DispatchAll delivers them. The ECS World swaps and dispatches once per
// Maintain, so subscribers see each lifecycle batch exactly once.
type Bus struct {
	mu       sync.Mutex // protects handler registration and emission
	front    map[reflect.Type][]any
	back     map[reflect.Type][]any
	handlers map[reflect.Type][]func(any)
	seen     map[reflect.Type]struct{}
	order    []reflect.Type
}

func NewBus() *Bus {
	return &Bus{
		front:    make(map[reflect.Type][]any),
		back:     make(map[reflect.Type][]any),
		handlers: make(map[reflect.Type][]func(any)),
		seen:     make(map[reflect.Type]struct{}),
	}
}

func keyOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Emit queues an event into the back buffer.
func Emit[T any](b *Bus, event T) {
	t := keyOf[T]()
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.seen[t]; !seen {
		b.seen[t] = struct{}{}
		b.order = append(b.order, t)
	}
	b.back[t] = append(b.back[t], event)
}

// Subscribe registers a typed handler for events of type T.
func Subscribe[T any](b *Bus, fn func(T)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t := keyOf[T]()
	b.handlers[t] = append(b.handlers[t], func(ev any) { fn(ev.(T)) })
}

// Pending returns how many events of type T wait in the back buffer.
func Pending[T any](b *Bus) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.back[keyOf[T]()])
}

// SwapBuffers rotates back→front and clears the new back buffer.
func (b *Bus) SwapBuffers() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.front, b.back = b.back, b.front
	for k := range b.back {
		b.back[k] = b.back[k][:0]
	}
}

// DispatchAll delivers all front-buffer events to their subscribed handlers,
// event types in first-emitted order.
func (b *Bus) DispatchAll() {
	b.mu.Lock()
	order := append([]reflect.Type(nil), b.order...)
	b.mu.Unlock()

	for _, t := range order {
		b.mu.Lock()
		events := b.front[t]
		handlers := b.handlers[t]
		b.mu.Unlock()
		for _, ev := range events {
			for _, h := range handlers {
				h(ev)
			}
		}
	}

	b.mu.Lock()
	for k := range b.front {
		b.front[k] = b.front[k][:0]
	}
	b.mu.Unlock()
}
