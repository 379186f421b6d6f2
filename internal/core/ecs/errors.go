package ecs

import (
	"errors"
	"fmt"
)

var (
	// ErrUnregisteredType is returned when a store or resource is accessed
	// before it was registered. Register the type first.
	ErrUnregisteredType = errors.New("unregistered type")
	// ErrResourceAbsent is returned for a FailIfAbsent resource with no value.
	ErrResourceAbsent = errors.New("resource absent")
	// ErrBuilderConsumed is returned by Build on a builder that already built.
	ErrBuilderConsumed = errors.New("entity builder already built")
)

func unregistered(id TypeID) error {
	return fmt.Errorf("%w: %s", ErrUnregisteredType, TypeName(id))
}

func resourceAbsent(id TypeID) error {
	return fmt.Errorf("%w: %s", ErrResourceAbsent, TypeName(id))
}
