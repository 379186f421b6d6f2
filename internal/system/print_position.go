package system

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
)

// PrintPositionSystem greets every positioned entity and prints where it is.
// Name is optional: entities without one are printed without a greeting.
type PrintPositionSystem struct {
	out io.Writer
}

func NewPrintPositionSystem(out io.Writer) *PrintPositionSystem {
	return &PrintPositionSystem{out: out}
}

func (s *PrintPositionSystem) Access() coresys.Access {
	return coresys.NewAccess().
		Read(ecs.TypeOf[component.Position](), ecs.TypeOf[component.Name]())
}

func (s *PrintPositionSystem) Run(v *coresys.View) error {
	positions, err := coresys.ReadStorage[component.Position](v)
	if err != nil {
		return err
	}
	names, err := coresys.ReadStorage[component.Name](v)
	if err != nil {
		return err
	}

	for id, pos := range positions.All() {
		if name, ok := names.Get(id); ok {
			if _, err := fmt.Fprintf(s.out, "Hello %s! ", name.Name); err != nil {
				return fmt.Errorf("print entity %d: %w", id, err)
			}
		}
		if _, err := fmt.Fprintf(s.out, "Position { x: %s, y: %s }\n", formatCoord(pos.X), formatCoord(pos.Y)); err != nil {
			return fmt.Errorf("print entity %d: %w", id, err)
		}
	}
	return nil
}

// formatCoord prints the shortest float32 form and keeps a trailing ".0"
// on whole numbers: 4 -> "4.0", 2.05 -> "2.05".
func formatCoord(f float32) string {
	switch {
	case math.IsNaN(float64(f)):
		return "NaN"
	case math.IsInf(float64(f), 1):
		return "inf"
	case math.IsInf(float64(f), -1):
		return "-inf"
	}
	s := strconv.FormatFloat(float64(f), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
