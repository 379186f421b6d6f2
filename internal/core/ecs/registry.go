package ecs

import "sync"

// slotEntry pairs a registered store or resource with the lock the
// dispatcher takes for it once per batch.
type slotEntry[V any] struct {
	lock  sync.RWMutex
	value V
}

// Registry tracks all component stores by TypeID and supports bulk cleanup
// on entity destroy. Lookups are slice indexing.
type Registry struct {
	stores []*slotEntry[storage]
	order  []TypeID
}

func NewRegistry() *Registry {
	return &Registry{
		stores: make([]*slotEntry[storage], 0, 16),
		order:  make([]TypeID, 0, 16),
	}
}

// Register creates an empty store for id. Returns false if it already existed.
func (r *Registry) Register(id TypeID) bool {
	if r.entry(id) != nil {
		return false
	}
	info, ok := lookupType(id)
	if !ok {
		return false
	}
	for len(r.stores) <= int(id) {
		r.stores = append(r.stores, nil)
	}
	r.stores[id] = &slotEntry[storage]{value: info.newStore()}
	r.order = append(r.order, id)
	return true
}

func (r *Registry) entry(id TypeID) *slotEntry[storage] {
	if id < 0 || int(id) >= len(r.stores) {
		return nil
	}
	return r.stores[id]
}

func (r *Registry) Registered(id TypeID) bool {
	return r.entry(id) != nil
}

// Types returns registered component types in registration order.
func (r *Registry) Types() []TypeID {
	return append([]TypeID(nil), r.order...)
}

// RemoveAll clears the given entity from every registered component store.
func (r *Registry) RemoveAll(id EntityID) {
	for _, t := range r.order {
		r.stores[t].value.discard(id)
	}
}
