package system

import (
	"fmt"
	"slices"
	"strings"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
)

// Access declares which component and resource types a system reads and
// writes. Chain the builder methods:
//
//	system.NewAccess().
//		Read(ecs.TypeOf[Velocity]()).
//		Write(ecs.TypeOf[Position]()).
//		ReadResource(ecs.TypeOf[DeltaTime]())
//
// A write declaration also permits reading the type.
type Access struct {
	Reads          []ecs.TypeID
	Writes         []ecs.TypeID
	ResourceReads  []ecs.TypeID
	ResourceWrites []ecs.TypeID
}

func NewAccess() Access { return Access{} }

func (a Access) Read(ids ...ecs.TypeID) Access {
	a.Reads = append(slices.Clip(a.Reads), ids...)
	return a
}

func (a Access) Write(ids ...ecs.TypeID) Access {
	a.Writes = append(slices.Clip(a.Writes), ids...)
	return a
}

func (a Access) ReadResource(ids ...ecs.TypeID) Access {
	a.ResourceReads = append(slices.Clip(a.ResourceReads), ids...)
	return a
}

func (a Access) WriteResource(ids ...ecs.TypeID) Access {
	a.ResourceWrites = append(slices.Clip(a.ResourceWrites), ids...)
	return a
}

// Reads adds component T to the read set of a.
func Reads[T any](a Access) Access { return a.Read(ecs.TypeOf[T]()) }

// Writes adds component T to the write set of a.
func Writes[T any](a Access) Access { return a.Write(ecs.TypeOf[T]()) }

func ReadsResource[R any](a Access) Access { return a.ReadResource(ecs.TypeOf[R]()) }

func WritesResource[R any](a Access) Access { return a.WriteResource(ecs.TypeOf[R]()) }

// normalized returns a copy with every set sorted and de-duplicated.
func (a Access) normalized() Access {
	return Access{
		Reads:          sortedSet(a.Reads),
		Writes:         sortedSet(a.Writes),
		ResourceReads:  sortedSet(a.ResourceReads),
		ResourceWrites: sortedSet(a.ResourceWrites),
	}
}

func sortedSet(ids []ecs.TypeID) []ecs.TypeID {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// Validate rejects a type declared both read and written.
func (a Access) Validate() error {
	n := a.normalized()
	var both []string
	for _, id := range intersect(n.Reads, n.Writes) {
		both = append(both, "component "+ecs.TypeName(id))
	}
	for _, id := range intersect(n.ResourceReads, n.ResourceWrites) {
		both = append(both, "resource "+ecs.TypeName(id))
	}
	if len(both) > 0 {
		return fmt.Errorf("%w: %s", ErrAmbiguousAccess, strings.Join(both, ", "))
	}
	return nil
}

// Conflicts reports a write-write or read-write overlap on any component
// or resource type.
func (a Access) Conflicts(b Access) bool {
	return len(a.ConflictingTypes(b)) > 0
}

// ConflictingTypes lists the overlapping types, components first.
func (a Access) ConflictingTypes(b Access) []ecs.TypeID {
	a, b = a.normalized(), b.normalized()
	var out []ecs.TypeID
	out = append(out, intersect(a.Writes, b.Writes)...)
	out = append(out, intersect(a.Writes, b.Reads)...)
	out = append(out, intersect(a.Reads, b.Writes)...)
	out = append(out, intersect(a.ResourceWrites, b.ResourceWrites)...)
	out = append(out, intersect(a.ResourceWrites, b.ResourceReads)...)
	out = append(out, intersect(a.ResourceReads, b.ResourceWrites)...)
	return out
}

// Components returns every component type touched, sorted.
func (a Access) Components() []ecs.TypeID {
	return sortedSet(append(slices.Clone(a.Reads), a.Writes...))
}

// Resources returns every resource type touched, sorted.
func (a Access) Resources() []ecs.TypeID {
	return sortedSet(append(slices.Clone(a.ResourceReads), a.ResourceWrites...))
}

func (a Access) canRead(id ecs.TypeID) bool {
	return contains(a.Reads, id) || contains(a.Writes, id)
}

func (a Access) canWrite(id ecs.TypeID) bool {
	return contains(a.Writes, id)
}

func (a Access) canReadResource(id ecs.TypeID) bool {
	return contains(a.ResourceReads, id) || contains(a.ResourceWrites, id)
}

func (a Access) canWriteResource(id ecs.TypeID) bool {
	return contains(a.ResourceWrites, id)
}

// contains expects a sorted set.
func contains(set []ecs.TypeID, id ecs.TypeID) bool {
	_, ok := slices.BinarySearch(set, id)
	return ok
}

// intersect expects two sorted sets.
func intersect(a, b []ecs.TypeID) []ecs.TypeID {
	var out []ecs.TypeID
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

func (a Access) String() string {
	var sb strings.Builder
	write := func(label string, ids []ecs.TypeID) {
		if len(ids) == 0 {
			return
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		names := make([]string, len(ids))
		for i, id := range ids {
			names[i] = ecs.TypeName(id)
		}
		fmt.Fprintf(&sb, "%s[%s]", label, strings.Join(names, ","))
	}
	n := a.normalized()
	write("r", n.Reads)
	write("w", n.Writes)
	write("rr", n.ResourceReads)
	write("rw", n.ResourceWrites)
	return sb.String()
}
