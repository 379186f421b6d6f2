package system

import (
	"fmt"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"go.uber.org/zap"
)

// View is the World as one system sees it during one run: only the types
// its Access declares are reachable. The dispatcher releases the View when
// Run returns; handles obtained from it must not be kept past that point.
type View struct {
	world    *ecs.World
	access   Access // normalized
	name     string
	log      *zap.Logger
	released bool
}

func newView(w *ecs.World, name string, access Access, log *zap.Logger) *View {
	return &View{world: w, access: access, name: name, log: log}
}

func (v *View) release() {
	v.released = true
	v.world = nil
}

// Name returns the name the system was registered under.
func (v *View) Name() string { return v.name }

// Logger returns the dispatcher logger tagged with the system name.
func (v *View) Logger() *zap.Logger { return v.log }

// Entities returns the tick-safe entity handle. Creations and deletions
// become visible after World.Maintain.
func (v *View) Entities() *ecs.Entities {
	if v.released {
		return nil
	}
	return v.world.Entities()
}

// Lazy returns the deferred command buffer applied on World.Maintain.
func (v *View) Lazy() *ecs.LazyUpdate {
	if v.released {
		return nil
	}
	return v.world.Lazy()
}

func (v *View) check(declared bool, kind string, id ecs.TypeID) error {
	if v.released {
		return fmt.Errorf("%w: %s", ErrViewReleased, v.name)
	}
	if !declared {
		return fmt.Errorf("%w: %s %s in %q", ErrUndeclaredAccess, kind, ecs.TypeName(id), v.name)
	}
	return nil
}

// ReadStorage returns a read handle for T; T must be declared read or written.
func ReadStorage[T any](v *View) (*ecs.ReadStorage[T], error) {
	id := ecs.TypeOf[T]()
	if err := v.check(v.access.canRead(id), "read", id); err != nil {
		return nil, err
	}
	return ecs.Storage[T](v.world)
}

// WriteStorage returns the write handle for T; T must be declared written.
func WriteStorage[T any](v *View) (*ecs.WriteStorage[T], error) {
	id := ecs.TypeOf[T]()
	if err := v.check(v.access.canWrite(id), "write", id); err != nil {
		return nil, err
	}
	return ecs.StorageMut[T](v.world)
}

// ReadResource returns a copy of resource R.
func ReadResource[R any](v *View) (R, error) {
	id := ecs.TypeOf[R]()
	if err := v.check(v.access.canReadResource(id), "resource read", id); err != nil {
		var zero R
		return zero, err
	}
	return ecs.Resource[R](v.world)
}

// WriteResource returns a pointer to resource R.
func WriteResource[R any](v *View) (*R, error) {
	id := ecs.TypeOf[R]()
	if err := v.check(v.access.canWriteResource(id), "resource write", id); err != nil {
		return nil, err
	}
	return ecs.ResourceMut[R](v.world)
}
