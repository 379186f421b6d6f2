package component

// DeltaTime is the world resource holding seconds elapsed since the last tick.
type DeltaTime struct {
	Seconds float32
}

// TickCount is bumped once per dispatch by the clock system.
type TickCount struct {
	N uint64
}
