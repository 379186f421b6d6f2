package system

import "github.com/l1jgo/ecsrt/internal/core/ecs"

// System is the interface every ECS system implements. Access is queried
// once, when the system is added to a Builder. Run receives a View limited
// to that declaration and is called once per tick.
type System interface {
	Access() Access
	Run(v *View) error
}

// Setupper is implemented by systems that want to prepare the World
// (register types, seed resources) when Dispatcher.Setup runs.
type Setupper interface {
	Setup(w *ecs.World)
}

type funcSystem struct {
	access Access
	fn     func(*View) error
}

func (f funcSystem) Access() Access    { return f.access }
func (f funcSystem) Run(v *View) error { return f.fn(v) }

// Func adapts a plain function into a System.
func Func(access Access, fn func(v *View) error) System {
	return funcSystem{access: access, fn: fn}
}
