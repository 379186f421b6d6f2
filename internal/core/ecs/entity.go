package ecs

import "sync"

// EntityID encodes a 32-bit index in the lower bits and a 32-bit generation
// in the upper bits. Generation increments on destroy to invalidate stale refs.
// Generations start at 1, so the zero EntityID never names a live entity.
type EntityID uint64

func NewEntityID(index uint32, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(index))
}

func (id EntityID) Index() uint32      { return uint32(id) }
func (id EntityID) Generation() uint32 { return uint32(id >> 32) }
func (id EntityID) IsZero() bool       { return id == 0 }

// EntityAllocator yields entity identifiers and defers their destruction
// until Maintain. World delegates all entity bookkeeping to it.
type EntityAllocator interface {
	// Allocate returns an entity that is live immediately. Not safe to call
	// while systems are running.
	Allocate() EntityID
	// Reserve returns an entity that becomes live at the next Maintain.
	// Safe for concurrent use.
	Reserve() EntityID
	// Deallocate queues the entity for destruction at the next Maintain.
	// Safe for concurrent use.
	Deallocate(id EntityID)
	IsLive(id EntityID) bool
	// Maintain commits reservations and deallocations. created and deleted
	// list entities that became live or stopped being live; discarded lists
	// reservations deallocated before they were ever committed.
	Maintain() (created, deleted, discarded []EntityID)
}

// EntityPool manages entity allocation with generational indices and a free list.
// Freed indices only return to the free list during Maintain.
type EntityPool struct {
	mu          sync.Mutex
	generations []uint32
	alive       []bool
	freeList    []uint32
	nextIndex   uint32
	reserved    []EntityID
	killQueue   []EntityID
	queued      map[EntityID]struct{}
}

var _ EntityAllocator = (*EntityPool)(nil)

func NewEntityPool() *EntityPool {
	return &EntityPool{
		generations: make([]uint32, 0, 1024),
		alive:       make([]bool, 0, 1024),
		freeList:    make([]uint32, 0, 256),
		queued:      make(map[EntityID]struct{}, 64),
	}
}

func (p *EntityPool) Allocate() EntityID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next()
	p.alive[id.Index()] = true
	return id
}

func (p *EntityPool) Reserve() EntityID {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.next()
	p.reserved = append(p.reserved, id)
	return id
}

// next pops a free index or grows the table. Caller holds p.mu.
func (p *EntityPool) next() EntityID {
	if len(p.freeList) > 0 {
		idx := p.freeList[len(p.freeList)-1]
		p.freeList = p.freeList[:len(p.freeList)-1]
		return NewEntityID(idx, p.generations[idx])
	}
	idx := p.nextIndex
	p.nextIndex++
	p.generations = append(p.generations, 1)
	p.alive = append(p.alive, false)
	return NewEntityID(idx, p.generations[idx])
}

func (p *EntityPool) IsLive(id EntityID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current(id) && p.alive[id.Index()]
}

// current reports whether id carries the generation of its slot. Caller holds p.mu.
func (p *EntityPool) current(id EntityID) bool {
	idx := id.Index()
	if idx >= p.nextIndex {
		return false
	}
	return p.generations[idx] == id.Generation()
}

func (p *EntityPool) Deallocate(id EntityID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.current(id) {
		return // stale reference
	}
	if _, ok := p.queued[id]; ok {
		return
	}
	p.queued[id] = struct{}{}
	p.killQueue = append(p.killQueue, id)
}

func (p *EntityPool) Maintain() (created, deleted, discarded []EntityID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.reserved {
		if _, dying := p.queued[id]; dying {
			continue
		}
		p.alive[id.Index()] = true
		created = append(created, id)
	}
	p.reserved = p.reserved[:0]

	for _, id := range p.killQueue {
		idx := id.Index()
		if p.generations[idx] != id.Generation() {
			continue
		}
		if p.alive[idx] {
			deleted = append(deleted, id)
		} else {
			discarded = append(discarded, id)
		}
		p.generations[idx]++
		p.alive[idx] = false
		p.freeList = append(p.freeList, idx)
	}
	p.killQueue = p.killQueue[:0]
	clear(p.queued)
	return created, deleted, discarded
}

// Len returns the number of live entities.
func (p *EntityPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, a := range p.alive {
		if a {
			n++
		}
	}
	return n
}
