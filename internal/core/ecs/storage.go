package ecs

import "iter"

// ReadStorage is a shared, read-only handle on a component store.
// Values are returned by copy.
type ReadStorage[T any] struct {
	s *Store[T]
}

func (r *ReadStorage[T]) Get(id EntityID) (T, bool) { return r.s.Get(id) }
func (r *ReadStorage[T]) Has(id EntityID) bool      { return r.s.Has(id) }
func (r *ReadStorage[T]) Len() int                  { return r.s.Len() }
func (r *ReadStorage[T]) All() iter.Seq2[EntityID, T] {
	return r.s.All()
}

func (r *ReadStorage[T]) Each(fn func(EntityID, T)) {
	for id, v := range r.s.All() {
		fn(id, v)
	}
}

func (r *ReadStorage[T]) entities() []EntityID { return r.s.entities() }

// WriteStorage is the exclusive handle on a component store.
type WriteStorage[T any] struct {
	ReadStorage[T]
}

func (w *WriteStorage[T]) Insert(id EntityID, v T) (T, bool) { return w.s.Insert(id, v) }
func (w *WriteStorage[T]) Remove(id EntityID) (T, bool)      { return w.s.Remove(id) }
func (w *WriteStorage[T]) GetMut(id EntityID) (*T, bool)     { return w.s.GetMut(id) }
func (w *WriteStorage[T]) AllMut() iter.Seq2[EntityID, *T] {
	return w.s.AllMut()
}
func (w *WriteStorage[T]) EachMut(fn func(EntityID, *T)) { w.s.Each(fn) }
