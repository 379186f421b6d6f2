package ecs

import "iter"

// storage is the type-erased face of a Store, used by the World for
// bulk cleanup on entity destroy and by builders and lazy updates.
type storage interface {
	Len() int
	Has(id EntityID) bool
	discard(id EntityID)
	insertAny(id EntityID, v any)
	entities() []EntityID
}

// Store is a generic sparse-set component store: values live in a dense
// slice, addressed through a sparse table indexed by entity slot.
// At most one value is held per entity. Iteration follows the dense order,
// which is insertion order disturbed by swap-removal; callers must not
// rely on it.
type Store[T any] struct {
	dense  []EntityID
	values []T
	sparse []int32 // entity index -> dense position, -1 when empty
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		dense:  make([]EntityID, 0, 256),
		values: make([]T, 0, 256),
	}
}

func (s *Store[T]) slot(id EntityID) (int, bool) {
	idx := id.Index()
	if int(idx) >= len(s.sparse) {
		return 0, false
	}
	pos := s.sparse[idx]
	if pos < 0 || s.dense[pos] != id {
		return 0, false
	}
	return int(pos), true
}

// Insert stores v for id, returning the previous value if there was one.
func (s *Store[T]) Insert(id EntityID, v T) (T, bool) {
	if pos, ok := s.slot(id); ok {
		prev := s.values[pos]
		s.values[pos] = v
		return prev, true
	}
	idx := int(id.Index())
	for len(s.sparse) <= idx {
		s.sparse = append(s.sparse, -1)
	}
	if pos := s.sparse[idx]; pos >= 0 {
		var zero T
		// Another generation of the same index holds the slot. Only a newer
		// id takes it over; a stale id must not clobber the live entity.
		if s.dense[pos].Generation() > id.Generation() {
			return zero, false
		}
		s.dense[pos] = id
		s.values[pos] = v
		return zero, false
	}
	s.sparse[idx] = int32(len(s.dense))
	s.dense = append(s.dense, id)
	s.values = append(s.values, v)
	var zero T
	return zero, false
}

// Remove deletes and returns the value for id.
func (s *Store[T]) Remove(id EntityID) (T, bool) {
	var zero T
	pos, ok := s.slot(id)
	if !ok {
		return zero, false
	}
	prev := s.values[pos]
	last := len(s.dense) - 1
	moved := s.dense[last]

	s.dense[pos] = moved
	s.values[pos] = s.values[last]
	s.sparse[moved.Index()] = int32(pos)

	s.values[last] = zero
	s.dense = s.dense[:last]
	s.values = s.values[:last]
	s.sparse[id.Index()] = -1
	return prev, true
}

func (s *Store[T]) Get(id EntityID) (T, bool) {
	pos, ok := s.slot(id)
	if !ok {
		var zero T
		return zero, false
	}
	return s.values[pos], true
}

// GetMut returns a pointer into the store. It stays valid until the next
// Insert or Remove on this store.
func (s *Store[T]) GetMut(id EntityID) (*T, bool) {
	pos, ok := s.slot(id)
	if !ok {
		return nil, false
	}
	return &s.values[pos], true
}

func (s *Store[T]) Has(id EntityID) bool {
	_, ok := s.slot(id)
	return ok
}

func (s *Store[T]) Len() int {
	return len(s.dense)
}

// All returns a lazy sequence over (entity, value) pairs. Each call starts over.
func (s *Store[T]) All() iter.Seq2[EntityID, T] {
	return func(yield func(EntityID, T) bool) {
		for i := 0; i < len(s.dense); i++ {
			if !yield(s.dense[i], s.values[i]) {
				return
			}
		}
	}
}

// AllMut is All with pointers into the store.
func (s *Store[T]) AllMut() iter.Seq2[EntityID, *T] {
	return func(yield func(EntityID, *T) bool) {
		for i := 0; i < len(s.dense); i++ {
			if !yield(s.dense[i], &s.values[i]) {
				return
			}
		}
	}
}

func (s *Store[T]) Each(fn func(EntityID, *T)) {
	for i := range s.dense {
		fn(s.dense[i], &s.values[i])
	}
}

func (s *Store[T]) discard(id EntityID) {
	s.Remove(id)
}

func (s *Store[T]) insertAny(id EntityID, v any) {
	s.Insert(id, v.(T))
}

func (s *Store[T]) entities() []EntityID {
	return s.dense
}
