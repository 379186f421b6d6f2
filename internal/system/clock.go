package system

import (
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
)

// ClockSystem advances the TickCount resource once per dispatch.
type ClockSystem struct{}

func NewClockSystem() *ClockSystem { return &ClockSystem{} }

func (s *ClockSystem) Access() coresys.Access {
	return coresys.WritesResource[component.TickCount](coresys.NewAccess())
}

// Setup seeds the counter so the resource exists before the first tick.
func (s *ClockSystem) Setup(w *ecs.World) {
	ecs.RegisterResource[component.TickCount](w, ecs.DefaultIfAbsent)
}

func (s *ClockSystem) Run(v *coresys.View) error {
	tc, err := coresys.WriteResource[component.TickCount](v)
	if err != nil {
		return err
	}
	tc.N++
	return nil
}
