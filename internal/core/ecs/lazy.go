package ecs

import (
	"sync"

	"go.uber.org/zap"
)

// LazyUpdate buffers world mutations requested during a tick. Systems in
// the same batch may push concurrently; World.Maintain applies the buffer
// in submission order.
type LazyUpdate struct {
	mu  sync.Mutex
	ops []func(*World)
}

func newLazyUpdate() *LazyUpdate {
	return &LazyUpdate{ops: make([]func(*World), 0, 64)}
}

// Exec queues an arbitrary mutation.
func (l *LazyUpdate) Exec(fn func(*World)) {
	l.mu.Lock()
	l.ops = append(l.ops, fn)
	l.mu.Unlock()
}

// Len returns the number of queued operations.
func (l *LazyUpdate) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ops)
}

func (l *LazyUpdate) apply(w *World) {
	l.mu.Lock()
	ops := l.ops
	l.ops = make([]func(*World), 0, cap(ops))
	l.mu.Unlock()
	for _, op := range ops {
		op(w)
	}
}

// LazyInsert queues an insertion of v for id. If T is unregistered when
// the buffer is applied the insertion is dropped and logged.
func LazyInsert[T any](l *LazyUpdate, id EntityID, v T) {
	l.Exec(func(w *World) {
		s, err := storeOf[T](w)
		if err != nil {
			w.dropped("insert", id, err)
			return
		}
		s.Insert(id, v)
	})
}

// LazyRemove queues removal of T from id.
func LazyRemove[T any](l *LazyUpdate, id EntityID) {
	l.Exec(func(w *World) {
		s, err := storeOf[T](w)
		if err != nil {
			w.dropped("remove", id, err)
			return
		}
		s.Remove(id)
	})
}

func (w *World) dropped(op string, id EntityID, err error) {
	w.log.Warn("lazy update dropped",
		zap.String("op", op),
		zap.Uint32("index", id.Index()),
		zap.Uint32("generation", id.Generation()),
		zap.Error(err),
	)
}
