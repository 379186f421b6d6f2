package component

// Position is where an entity sits in the plane.
// Pure data; systems do all the mutating.
type Position struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Velocity is units per second.
type Velocity struct {
	X float32 `yaml:"x"`
	Y float32 `yaml:"y"`
}

// Name is optional; entities without one print anonymously.
type Name struct {
	Name string
}

// Lifetime counts down remaining ticks; at zero the entity is deleted.
type Lifetime struct {
	Ticks int
}
