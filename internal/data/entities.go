package data

import (
	"fmt"
	"os"

	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"gopkg.in/yaml.v3"
)

// EntitySeed describes one entity to create at startup. Every component is
// optional.
type EntitySeed struct {
	Name     string              `yaml:"name"`
	Position *component.Position `yaml:"position"`
	Velocity *component.Velocity `yaml:"velocity"`
	Lifetime int                 `yaml:"lifetime"` // ticks; 0 = forever
}

type entityListFile struct {
	Entities []EntitySeed `yaml:"entities"`
}

// SeedTable holds entity seeds in file order.
type SeedTable struct {
	seeds []EntitySeed
}

func LoadSeedTable(path string) (*SeedTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read entity seeds: %w", err)
	}
	return ParseSeedTable(data)
}

func ParseSeedTable(data []byte) (*SeedTable, error) {
	var f entityListFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse entity seeds: %w", err)
	}
	for i, s := range f.Entities {
		if s.Lifetime < 0 {
			return nil, fmt.Errorf("entity seed %d: negative lifetime", i)
		}
	}
	return &SeedTable{seeds: f.Entities}, nil
}

func (t *SeedTable) Count() int { return len(t.seeds) }

func (t *SeedTable) Seeds() []EntitySeed { return t.seeds }

// Spawn creates one entity per seed. The component types used must already
// be registered in w.
func (t *SeedTable) Spawn(w *ecs.World) ([]ecs.EntityID, error) {
	ids := make([]ecs.EntityID, 0, len(t.seeds))
	for i, s := range t.seeds {
		b := w.CreateEntity()
		if s.Name != "" {
			ecs.With(b, component.Name{Name: s.Name})
		}
		if s.Position != nil {
			ecs.With(b, *s.Position)
		}
		if s.Velocity != nil {
			ecs.With(b, *s.Velocity)
		}
		if s.Lifetime > 0 {
			ecs.With(b, component.Lifetime{Ticks: s.Lifetime})
		}
		id, err := b.Build()
		if err != nil {
			return ids, fmt.Errorf("spawn entity seed %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
