package ecs

import (
	"reflect"
	"sync"
)

// TypeID is a small dense identifier assigned to a Go type the first time it
// is seen by TypeOf. Worlds index their stores and resources by it.
type TypeID int

type typeInfo struct {
	rtype    reflect.Type
	name     string
	newStore func() storage
	newValue func() any
}

var typeTable = struct {
	sync.RWMutex
	ids   map[reflect.Type]TypeID
	infos []typeInfo
}{ids: make(map[reflect.Type]TypeID, 64)}

// TypeOf returns the TypeID for T, assigning one on first use.
func TypeOf[T any]() TypeID {
	rt := reflect.TypeOf((*T)(nil)).Elem()

	typeTable.RLock()
	id, ok := typeTable.ids[rt]
	typeTable.RUnlock()
	if ok {
		return id
	}

	typeTable.Lock()
	defer typeTable.Unlock()
	if id, ok := typeTable.ids[rt]; ok {
		return id
	}
	id = TypeID(len(typeTable.infos))
	typeTable.infos = append(typeTable.infos, typeInfo{
		rtype:    rt,
		name:     rt.String(),
		newStore: func() storage { return NewStore[T]() },
		newValue: func() any { return new(T) },
	})
	typeTable.ids[rt] = id
	return id
}

// TypeName returns the Go type name behind id, for diagnostics.
func TypeName(id TypeID) string {
	info, ok := lookupType(id)
	if !ok {
		return "<unknown>"
	}
	return info.name
}

func (id TypeID) String() string { return TypeName(id) }

func lookupType(id TypeID) (typeInfo, bool) {
	typeTable.RLock()
	defer typeTable.RUnlock()
	if id < 0 || int(id) >= len(typeTable.infos) {
		return typeInfo{}, false
	}
	return typeTable.infos[id], true
}

func typeIDOfValue(v any) (TypeID, bool) {
	if v == nil {
		return 0, false
	}
	typeTable.RLock()
	defer typeTable.RUnlock()
	id, ok := typeTable.ids[reflect.TypeOf(v)]
	return id, ok
}
