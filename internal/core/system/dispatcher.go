package system

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Builder collects systems and their ordering hints, then compiles them
// into a Dispatcher.
type Builder struct {
	regs       []registration
	log        *zap.Logger
	workers    int
	sequential bool
}

type BuilderOption func(*Builder)

func WithLogger(log *zap.Logger) BuilderOption {
	return func(b *Builder) { b.log = log }
}

// WithWorkers bounds how many systems of one batch run at once.
func WithWorkers(n int) BuilderOption {
	return func(b *Builder) { b.workers = n }
}

// WithSequential runs every batch member on the dispatch goroutine.
func WithSequential() BuilderOption {
	return func(b *Builder) { b.sequential = true }
}

func NewBuilder(opts ...BuilderOption) *Builder {
	b := &Builder{
		regs:    make([]registration, 0, 16),
		log:     zap.NewNop(),
		workers: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.workers < 1 {
		b.workers = 1
	}
	return b
}

// With adds a system under a unique name, to run after the named systems.
// The system's Access is read here, once.
func (b *Builder) With(s System, name string, after ...string) *Builder {
	r := registration{name: name, sys: s, after: slices.Clone(after)}
	if s != nil {
		r.access = s.Access().normalized()
	}
	b.regs = append(b.regs, r)
	return b
}

// Build compiles the execution plan. Configuration errors (cycles,
// ambiguous access, unknown or duplicate names) prevent a Dispatcher.
func (b *Builder) Build() (*Dispatcher, error) {
	plan, err := buildPlan(b.regs)
	if err != nil {
		return nil, fmt.Errorf("build dispatcher: %w", err)
	}
	d := &Dispatcher{
		regs:       slices.Clone(b.regs),
		plan:       plan,
		log:        b.log,
		workers:    b.workers,
		sequential: b.sequential,
	}
	for _, r := range d.regs {
		d.components = append(d.components, r.access.Components()...)
		d.resources = append(d.resources, r.access.Resources()...)
		b.log.Debug("system registered",
			zap.String("system", r.name),
			zap.Int("batch", plan.BatchOf(r.name)),
			zap.Stringer("access", r.access),
		)
	}
	d.components = sortedSet(d.components)
	d.resources = sortedSet(d.resources)
	b.log.Info("execution plan built",
		zap.Int("systems", len(d.regs)),
		zap.Int("batches", plan.Len()),
		zap.Stringer("plan", plan),
	)
	return d, nil
}

// TickStats describes the last Dispatch.
type TickStats struct {
	Tick     uint64
	Duration time.Duration
	Batches  []time.Duration
}

// Dispatcher owns the compiled plan and runs it once per Dispatch call.
type Dispatcher struct {
	regs       []registration
	plan       *Plan
	log        *zap.Logger
	workers    int
	sequential bool
	components []ecs.TypeID
	resources  []ecs.TypeID

	statsMu sync.Mutex
	stats   TickStats
}

func (d *Dispatcher) Plan() *Plan { return d.plan }

// Systems returns system names in declaration order.
func (d *Dispatcher) Systems() []string {
	names := make([]string, len(d.regs))
	for i, r := range d.regs {
		names[i] = r.name
	}
	return names
}

func (d *Dispatcher) Stats() TickStats {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	s := d.stats
	s.Batches = slices.Clone(s.Batches)
	return s
}

// Setup registers every declared component type, registers declared
// resources that do not exist yet as DefaultIfAbsent, and calls Setup on
// systems implementing Setupper.
func (d *Dispatcher) Setup(w *ecs.World) {
	for _, id := range d.components {
		w.RegisterComponent(id)
	}
	for _, id := range d.resources {
		w.EnsureResource(id, ecs.DefaultIfAbsent)
	}
	for _, r := range d.regs {
		if s, ok := r.sys.(Setupper); ok {
			s.Setup(w)
		}
	}
}

// Dispatch runs one tick: each batch in order, members of a batch
// concurrently unless the dispatcher is sequential. The first failing
// system stops the tick; batches already run keep their effects and the
// returned *SystemError says how far the tick got.
// Entity creation and deletion requested by systems wait for World.Maintain.
func (d *Dispatcher) Dispatch(w *ecs.World) error {
	if err := d.checkRegistered(w); err != nil {
		return err
	}

	start := time.Now()
	batchTimes := make([]time.Duration, 0, d.plan.Len())
	defer func() {
		d.statsMu.Lock()
		d.stats.Tick++
		d.stats.Duration = time.Since(start)
		d.stats.Batches = batchTimes
		d.statsMu.Unlock()
	}()

	for b, batch := range d.plan.batches {
		batchStart := time.Now()
		failed, err := d.runBatch(w, batch)
		batchTimes = append(batchTimes, time.Since(batchStart))
		if err != nil {
			name := d.regs[failed].name
			d.log.Warn("system failed, tick aborted",
				zap.String("system", name),
				zap.Int("batch", b),
				zap.Int("batches_completed", b),
				zap.Error(err),
			)
			return &SystemError{System: name, Batch: b, BatchesCompleted: b, Err: err}
		}
	}
	return nil
}

func (d *Dispatcher) checkRegistered(w *ecs.World) error {
	for _, id := range d.components {
		if !w.ComponentRegistered(id) {
			return fmt.Errorf("dispatch: component %w: %s", ecs.ErrUnregisteredType, ecs.TypeName(id))
		}
	}
	for _, id := range d.resources {
		if !w.ResourceRegistered(id) {
			return fmt.Errorf("dispatch: resource %w: %s", ecs.ErrUnregisteredType, ecs.TypeName(id))
		}
	}
	return nil
}

// runBatch returns the declaration index of the failing system with its error.
// With several failures in one concurrent batch the earliest-declared wins.
func (d *Dispatcher) runBatch(w *ecs.World, batch []int) (int, error) {
	if d.sequential || d.workers == 1 || len(batch) == 1 {
		for _, i := range batch {
			if err := d.runSystem(w, i); err != nil {
				return i, err
			}
		}
		return -1, nil
	}

	var g errgroup.Group
	g.SetLimit(d.workers)
	errs := make([]error, len(batch))
	for k, i := range batch {
		g.Go(func() error {
			errs[k] = d.runSystem(w, i)
			return errs[k]
		})
	}
	if err := g.Wait(); err == nil {
		return -1, nil
	}
	for k, err := range errs {
		if err != nil {
			return batch[k], err
		}
	}
	return -1, nil
}

// runSystem borrows the system's declared types for the duration of Run.
func (d *Dispatcher) runSystem(w *ecs.World, i int) (err error) {
	r := d.regs[i]
	release, err := acquire(w, r.access)
	if err != nil {
		return err
	}
	defer release()

	log := d.log.With(zap.String("system", r.name))
	view := newView(w, r.name, r.access, log)
	defer view.release()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("system panic recovered", zap.Any("panic", rec))
			err = fmt.Errorf("%w: %v", ErrSystemPanic, rec)
		}
	}()

	start := time.Now()
	err = r.sys.Run(view)
	log.Debug("system ran", zap.Duration("took", time.Since(start)))
	return err
}

// acquire takes the per-type locks for one run without blocking. A lock
// that is already held means the plan let two conflicting systems overlap.
func acquire(w *ecs.World, a Access) (func(), error) {
	var unlocks []func()
	release := func() {
		for k := len(unlocks) - 1; k >= 0; k-- {
			unlocks[k]()
		}
	}
	take := func(lock *sync.RWMutex, exclusive bool, kind string, id ecs.TypeID) error {
		if exclusive {
			if !lock.TryLock() {
				return fmt.Errorf("%w: %s %s", ErrAccessContention, kind, ecs.TypeName(id))
			}
			unlocks = append(unlocks, lock.Unlock)
			return nil
		}
		if !lock.TryRLock() {
			return fmt.Errorf("%w: %s %s", ErrAccessContention, kind, ecs.TypeName(id))
		}
		unlocks = append(unlocks, lock.RUnlock)
		return nil
	}

	steps := []struct {
		ids       []ecs.TypeID
		exclusive bool
		resource  bool
	}{
		{a.Reads, false, false},
		{a.Writes, true, false},
		{a.ResourceReads, false, true},
		{a.ResourceWrites, true, true},
	}
	for _, st := range steps {
		for _, id := range st.ids {
			var (
				lock *sync.RWMutex
				err  error
				kind = "component"
			)
			if st.resource {
				kind = "resource"
				lock, err = w.ResourceLock(id)
			} else {
				lock, err = w.ComponentLock(id)
			}
			if err == nil {
				err = take(lock, st.exclusive, kind, id)
			}
			if err != nil {
				release()
				return nil, err
			}
		}
	}
	return release, nil
}

// RunOnce runs a single system against w outside any plan, with the same
// access checks a Dispatcher applies. Useful for tools and tests.
func RunOnce(w *ecs.World, name string, s System) error {
	d := &Dispatcher{
		regs: []registration{{name: name, sys: s, access: s.Access().normalized()}},
		log:  zap.NewNop(),
	}
	if err := d.regs[0].access.Validate(); err != nil {
		return err
	}
	return d.runSystem(w, 0)
}
