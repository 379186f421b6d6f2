package system

import (
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
)

// Integrator advances a position by a velocity over dt seconds.
type Integrator interface {
	Integrate(pos component.Position, vel component.Velocity, dt float32) component.Position
}

// Euler is the default explicit Euler step.
type Euler struct{}

func (Euler) Integrate(pos component.Position, vel component.Velocity, dt float32) component.Position {
	return component.Position{X: pos.X + vel.X*dt, Y: pos.Y + vel.Y*dt}
}

// UpdatePositionSystem moves every entity that has both a Position and a
// Velocity by Velocity × DeltaTime.
type UpdatePositionSystem struct {
	integrator Integrator
}

// NewUpdatePositionSystem uses Euler when integrator is nil.
func NewUpdatePositionSystem(integrator Integrator) *UpdatePositionSystem {
	if integrator == nil {
		integrator = Euler{}
	}
	return &UpdatePositionSystem{integrator: integrator}
}

func (s *UpdatePositionSystem) Access() coresys.Access {
	return coresys.NewAccess().
		Read(ecs.TypeOf[component.Velocity]()).
		Write(ecs.TypeOf[component.Position]()).
		ReadResource(ecs.TypeOf[component.DeltaTime]())
}

func (s *UpdatePositionSystem) Run(v *coresys.View) error {
	dt, err := coresys.ReadResource[component.DeltaTime](v)
	if err != nil {
		return err
	}
	velocities, err := coresys.ReadStorage[component.Velocity](v)
	if err != nil {
		return err
	}
	positions, err := coresys.WriteStorage[component.Position](v)
	if err != nil {
		return err
	}

	for id := range ecs.Join(velocities, positions) {
		vel, _ := velocities.Get(id)
		pos, _ := positions.GetMut(id)
		*pos = s.integrator.Integrate(*pos, vel, dt.Seconds)
	}
	return nil
}
