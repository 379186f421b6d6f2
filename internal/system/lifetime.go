package system

import (
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
	"go.uber.org/zap"
)

// LifetimeSystem counts down Lifetime components and queues expired
// entities for deletion. The entities stay visible for the rest of the
// tick and are destroyed by World.Maintain.
type LifetimeSystem struct{}

func NewLifetimeSystem() *LifetimeSystem { return &LifetimeSystem{} }

func (s *LifetimeSystem) Access() coresys.Access {
	return coresys.Writes[component.Lifetime](coresys.NewAccess())
}

func (s *LifetimeSystem) Run(v *coresys.View) error {
	lifetimes, err := coresys.WriteStorage[component.Lifetime](v)
	if err != nil {
		return err
	}
	entities := v.Entities()
	lifetimes.EachMut(func(id ecs.EntityID, lt *component.Lifetime) {
		lt.Ticks--
		if lt.Ticks <= 0 {
			entities.Delete(id)
			v.Logger().Debug("entity expired", zap.Uint64("entity", uint64(id)))
		}
	})
	return nil
}
