package system

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrCyclicDependency  = errors.New("cyclic dependency")
	ErrAmbiguousAccess   = errors.New("ambiguous access: type both read and written")
	ErrSystemFailure     = errors.New("system failure")
	ErrDuplicateSystem   = errors.New("duplicate system name")
	ErrUnknownDependency = errors.New("unknown dependency")
	ErrInvalidSystem     = errors.New("invalid system")
	ErrUndeclaredAccess  = errors.New("access outside declared set")
	ErrViewReleased      = errors.New("view used after its run ended")
	// ErrAccessContention means two running systems wanted the same type at
	// once. Plans are conflict-free by construction, so this is a plan bug.
	ErrAccessContention = errors.New("access contention")
	ErrSystemPanic      = errors.New("system panicked")
)

// CycleError names the systems forming a dependency cycle, in edge order.
type CycleError struct {
	Systems []string
}

func (e *CycleError) Error() string {
	path := append(append([]string(nil), e.Systems...), e.Systems[0])
	return fmt.Sprintf("%s: %s", ErrCyclicDependency, strings.Join(path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCyclicDependency }

// SystemError reports a system that failed during Dispatch. Batches before
// Batch completed; Batch itself stopped at System; later batches never ran.
type SystemError struct {
	System           string
	Batch            int
	BatchesCompleted int
	Err              error
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("%s: %q in batch %d (%d batches completed): %v",
		ErrSystemFailure, e.System, e.Batch, e.BatchesCompleted, e.Err)
}

func (e *SystemError) Unwrap() []error { return []error{ErrSystemFailure, e.Err} }
