package ecs

import "iter"

// Joinable is any storage handle that can take part in a Join.
type Joinable interface {
	Len() int
	Has(id EntityID) bool
	entities() []EntityID
}

// Join yields every entity present in all of the given storages.
// It walks the smallest storage and probes the others. The entity list is
// snapshotted first, so the loop body may insert into or remove from a
// joined write storage.
func Join(stores ...Joinable) iter.Seq[EntityID] {
	return func(yield func(EntityID) bool) {
		if len(stores) == 0 {
			return
		}
		smallest := 0
		for i, s := range stores {
			if s.Len() < stores[smallest].Len() {
				smallest = i
			}
		}
		ids := append([]EntityID(nil), stores[smallest].entities()...)
	next:
		for _, id := range ids {
			for i, s := range stores {
				if i != smallest && !s.Has(id) {
					continue next
				}
			}
			if !stores[smallest].Has(id) {
				continue
			}
			if !yield(id) {
				return
			}
		}
	}
}
