package ecs

import "sync"

// ResourcePolicy decides what happens when a registered resource is read
// before any value was inserted.
type ResourcePolicy int

const (
	// FailIfAbsent makes access return ErrResourceAbsent.
	FailIfAbsent ResourcePolicy = iota
	// DefaultIfAbsent lazily constructs the zero value on first access.
	DefaultIfAbsent
)

func (p ResourcePolicy) String() string {
	switch p {
	case FailIfAbsent:
		return "fail_if_absent"
	case DefaultIfAbsent:
		return "default_if_absent"
	default:
		return "unknown"
	}
}

type resourceSlot struct {
	init   sync.Mutex // guards lazy construction
	policy ResourcePolicy
	value  any // *R, nil while absent
}

// resourceTable holds one singleton per type, indexed by TypeID.
type resourceTable struct {
	slots []*slotEntry[*resourceSlot]
	order []TypeID
}

func (t *resourceTable) entry(id TypeID) *slotEntry[*resourceSlot] {
	if id < 0 || int(id) >= len(t.slots) {
		return nil
	}
	return t.slots[id]
}

func (t *resourceTable) register(id TypeID, policy ResourcePolicy) *resourceSlot {
	if e := t.entry(id); e != nil {
		return e.value
	}
	for len(t.slots) <= int(id) {
		t.slots = append(t.slots, nil)
	}
	slot := &resourceSlot{policy: policy}
	t.slots[id] = &slotEntry[*resourceSlot]{value: slot}
	t.order = append(t.order, id)
	return slot
}

// fetch returns the stored *R as any, constructing it when the policy allows.
func (t *resourceTable) fetch(id TypeID) (any, error) {
	e := t.entry(id)
	if e == nil {
		return nil, unregistered(id)
	}
	slot := e.value
	slot.init.Lock()
	defer slot.init.Unlock()
	if slot.value != nil {
		return slot.value, nil
	}
	if slot.policy == FailIfAbsent {
		return nil, resourceAbsent(id)
	}
	info, _ := lookupType(id)
	slot.value = info.newValue()
	return slot.value, nil
}
