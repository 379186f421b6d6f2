package system_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newWorld(t *testing.T, d *system.Dispatcher) *ecs.World {
	t.Helper()
	w := ecs.NewWorld()
	d.Setup(w)
	return w
}

func setX(x float32) system.System {
	return system.Func(system.NewAccess().Write(posT), func(v *system.View) error {
		pos, err := system.WriteStorage[Position](v)
		if err != nil {
			return err
		}
		for _, p := range pos.AllMut() {
			p.X = x
		}
		return nil
	})
}

func TestDispatchReadAfterWrite(t *testing.T) {
	var seen []float32
	reader := system.Func(system.NewAccess().Read(posT), func(v *system.View) error {
		pos, err := system.ReadStorage[Position](v)
		if err != nil {
			return err
		}
		pos.Each(func(_ ecs.EntityID, p Position) { seen = append(seen, p.X) })
		return nil
	})

	d, err := system.NewBuilder().
		With(setX(9), "write").
		With(reader, "read", "write").
		Build()
	require.NoError(t, err)

	w := newWorld(t, d)
	w.CreateEntity().With(Position{}).Build()

	require.NoError(t, d.Dispatch(w))
	assert.Equal(t, []float32{9}, seen)
}

func TestDispatchFailureAbortsLaterBatches(t *testing.T) {
	boom := errors.New("boom")
	var thirdRan bool
	d, err := system.NewBuilder().
		With(setX(1), "first").
		With(system.Func(system.NewAccess().Read(posT), func(*system.View) error { return boom }), "second", "first").
		With(system.Func(system.NewAccess().Write(posT), func(*system.View) error {
			thirdRan = true
			return nil
		}), "third", "second").
		Build()
	require.NoError(t, err)

	w := newWorld(t, d)
	e, _ := w.CreateEntity().With(Position{}).Build()

	err = d.Dispatch(w)
	require.Error(t, err)
	assert.ErrorIs(t, err, system.ErrSystemFailure)
	assert.ErrorIs(t, err, boom)

	var se *system.SystemError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "second", se.System)
	assert.Equal(t, 1, se.Batch)
	assert.Equal(t, 1, se.BatchesCompleted)

	assert.False(t, thirdRan)
	pos, _ := ecs.Storage[Position](w)
	p, _ := pos.Get(e)
	assert.Equal(t, float32(1), p.X, "effects of completed batches remain")
}

func TestDispatchConcurrentFailurePicksEarliestDeclared(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	d, err := system.NewBuilder(system.WithWorkers(4)).
		With(system.Func(system.NewAccess().Read(posT), func(*system.View) error {
			time.Sleep(10 * time.Millisecond)
			return errA
		}), "a").
		With(system.Func(system.NewAccess().Read(posT), func(*system.View) error { return errB }), "b").
		Build()
	require.NoError(t, err)

	err = d.Dispatch(newWorld(t, d))
	var se *system.SystemError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "a", se.System)
	assert.ErrorIs(t, err, errA)
}

func TestDispatchRecoversPanic(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	d, err := system.NewBuilder(system.WithLogger(zap.New(core))).
		With(system.Func(system.NewAccess(), func(*system.View) error { panic("kaboom") }), "bad").
		Build()
	require.NoError(t, err)

	err = d.Dispatch(newWorld(t, d))
	assert.ErrorIs(t, err, system.ErrSystemPanic)
	assert.ErrorIs(t, err, system.ErrSystemFailure)
	assert.Contains(t, err.Error(), "kaboom")
	assert.Equal(t, 1, logs.FilterMessage("system panic recovered").Len())
}

func TestDispatchRunsBatchConcurrently(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	rendezvous := func(*system.View) error {
		wg.Done()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("batch members did not overlap")
		}
	}
	d, err := system.NewBuilder(system.WithWorkers(2)).
		With(system.Func(system.NewAccess().Read(posT), rendezvous), "a").
		With(system.Func(system.NewAccess().Read(posT), rendezvous), "b").
		Build()
	require.NoError(t, err)
	require.Equal(t, 1, d.Plan().Len())
	assert.NoError(t, d.Dispatch(newWorld(t, d)))
}

func TestDispatchContentionIsReported(t *testing.T) {
	d, err := system.NewBuilder().With(setX(1), "write").Build()
	require.NoError(t, err)
	w := newWorld(t, d)

	lock, err := w.ComponentLock(posT)
	require.NoError(t, err)
	lock.RLock()
	err = d.Dispatch(w)
	lock.RUnlock()
	assert.ErrorIs(t, err, system.ErrAccessContention)

	assert.NoError(t, d.Dispatch(w), "locks are free again")
}

func TestDispatchReleasesLocksOnFailure(t *testing.T) {
	fail := true
	d, err := system.NewBuilder().
		With(system.Func(system.NewAccess().Write(posT).WriteResource(dtT), func(*system.View) error {
			if fail {
				return errors.New("fail once")
			}
			return nil
		}), "flaky").
		Build()
	require.NoError(t, err)
	w := newWorld(t, d)

	require.Error(t, d.Dispatch(w))
	fail = false
	assert.NoError(t, d.Dispatch(w))

	lock, _ := w.ComponentLock(posT)
	assert.True(t, lock.TryLock())
	lock.Unlock()
}

func TestDispatchUndeclaredAccess(t *testing.T) {
	d, err := system.NewBuilder().
		With(system.Func(system.NewAccess().Read(posT), func(v *system.View) error {
			_, err := system.ReadStorage[Velocity](v)
			return err
		}), "sneaky").
		Build()
	require.NoError(t, err)
	w := newWorld(t, d)
	ecs.Register[Velocity](w)

	err = d.Dispatch(w)
	assert.ErrorIs(t, err, system.ErrUndeclaredAccess)
}

func TestViewWritePermissions(t *testing.T) {
	w := ecs.NewWorld()
	ecs.Register[Position](w)
	ecs.Register[Velocity](w)
	ecs.InsertResource(w, DeltaTime{Seconds: 0.5})

	s := system.Func(system.NewAccess().Read(velT).Write(posT).ReadResource(dtT), func(v *system.View) error {
		if _, err := system.ReadStorage[Position](v); err != nil {
			return err // write implies read
		}
		if _, err := system.WriteStorage[Velocity](v); !errors.Is(err, system.ErrUndeclaredAccess) {
			return errors.New("write of a read-only type allowed")
		}
		if _, err := system.WriteResource[DeltaTime](v); !errors.Is(err, system.ErrUndeclaredAccess) {
			return errors.New("write of a read-only resource allowed")
		}
		dt, err := system.ReadResource[DeltaTime](v)
		if err != nil {
			return err
		}
		if dt.Seconds != 0.5 {
			return errors.New("wrong delta")
		}
		assert.Equal(t, "integrate", v.Name())
		return nil
	})
	assert.NoError(t, system.RunOnce(w, "integrate", s))
}

func TestViewIsReleasedAfterRun(t *testing.T) {
	var kept *system.View
	s := system.Func(system.NewAccess().Read(posT), func(v *system.View) error {
		kept = v
		return nil
	})
	w := ecs.NewWorld()
	ecs.Register[Position](w)
	require.NoError(t, system.RunOnce(w, "keeper", s))

	_, err := system.ReadStorage[Position](kept)
	assert.ErrorIs(t, err, system.ErrViewReleased)
	assert.Nil(t, kept.Entities())
	assert.Nil(t, kept.Lazy())
}

func TestRunOnceRejectsAmbiguousAccess(t *testing.T) {
	w := ecs.NewWorld()
	err := system.RunOnce(w, "bad", nop(system.NewAccess().Read(posT).Write(posT)))
	assert.ErrorIs(t, err, system.ErrAmbiguousAccess)
}

func TestDispatchRequiresRegisteredTypes(t *testing.T) {
	d, err := system.NewBuilder().With(setX(1), "write").Build()
	require.NoError(t, err)

	err = d.Dispatch(ecs.NewWorld())
	assert.ErrorIs(t, err, ecs.ErrUnregisteredType)
	assert.Equal(t, uint64(0), d.Stats().Tick, "nothing ran")
}

type seeding struct {
	setups atomic.Int32
}

func (s *seeding) Access() system.Access  { return system.NewAccess().ReadResource(dtT) }
func (s *seeding) Run(*system.View) error { return nil }
func (s *seeding) Setup(w *ecs.World) {
	s.setups.Add(1)
	ecs.InsertResource(w, DeltaTime{Seconds: 0.25})
}

func TestSetupRegistersDeclaredTypes(t *testing.T) {
	sys := &seeding{}
	d, err := system.NewBuilder().
		With(setX(1), "write").
		With(system.Func(system.NewAccess().Read(velT).WriteResource(ecs.TypeOf[Name]()), func(*system.View) error { return nil }), "names").
		With(sys, "seed").
		Build()
	require.NoError(t, err)

	w := ecs.NewWorld()
	d.Setup(w)
	assert.True(t, w.ComponentRegistered(posT))
	assert.True(t, w.ComponentRegistered(velT))
	assert.True(t, w.ResourceRegistered(nameT))
	assert.Equal(t, int32(1), sys.setups.Load())

	dt, err := ecs.Resource[DeltaTime](w)
	require.NoError(t, err)
	assert.Equal(t, float32(0.25), dt.Seconds, "Setupper values win over defaults")

	_, err = ecs.Resource[Name](w)
	assert.NoError(t, err, "declared resources default to the zero value")
	require.NoError(t, d.Dispatch(w))
}

func TestSetupKeepsExistingResourcePolicy(t *testing.T) {
	d, err := system.NewBuilder().
		With(system.Func(system.NewAccess().ReadResource(dtT), func(v *system.View) error {
			_, err := system.ReadResource[DeltaTime](v)
			return err
		}), "needs_dt").
		Build()
	require.NoError(t, err)

	w := ecs.NewWorld()
	ecs.RegisterResource[DeltaTime](w, ecs.FailIfAbsent)
	d.Setup(w)
	assert.ErrorIs(t, d.Dispatch(w), ecs.ErrResourceAbsent)
}

func TestSequentialAndConcurrentAgree(t *testing.T) {
	build := func(opts ...system.BuilderOption) *system.Dispatcher {
		integrate := system.Func(system.NewAccess().Read(velT).Write(posT).ReadResource(dtT), func(v *system.View) error {
			vel, err := system.ReadStorage[Velocity](v)
			if err != nil {
				return err
			}
			pos, err := system.WriteStorage[Position](v)
			if err != nil {
				return err
			}
			dt, err := system.ReadResource[DeltaTime](v)
			if err != nil {
				return err
			}
			for id := range ecs.Join(vel, pos) {
				p, _ := pos.GetMut(id)
				vv, _ := vel.Get(id)
				p.X += vv.X * dt.Seconds
				p.Y += vv.Y * dt.Seconds
			}
			return nil
		})
		damp := system.Func(system.NewAccess().Write(velT), func(v *system.View) error {
			vel, err := system.WriteStorage[Velocity](v)
			if err != nil {
				return err
			}
			for _, vv := range vel.AllMut() {
				vv.X /= 2
				vv.Y /= 2
			}
			return nil
		})
		rename := system.Func(system.NewAccess().Write(nameT), func(v *system.View) error {
			names, err := system.WriteStorage[Name](v)
			if err != nil {
				return err
			}
			for _, n := range names.AllMut() {
				n.Name += "!"
			}
			return nil
		})
		d, err := system.NewBuilder(opts...).
			With(integrate, "integrate").
			With(damp, "damp").
			With(rename, "rename").
			Build()
		require.NoError(t, err)
		return d
	}

	run := func(d *system.Dispatcher) []Position {
		w := newWorld(t, d)
		ecs.InsertResource(w, DeltaTime{Seconds: 0.5})
		var ids []ecs.EntityID
		for i := 0; i < 20; i++ {
			id, err := w.CreateEntity().
				With(Position{X: float32(i)}).
				With(Velocity{X: 1, Y: float32(i)}).
				With(Name{"n"}).
				Build()
			require.NoError(t, err)
			ids = append(ids, id)
		}
		for tick := 0; tick < 5; tick++ {
			require.NoError(t, d.Dispatch(w))
			w.Maintain()
		}
		pos, _ := ecs.Storage[Position](w)
		out := make([]Position, len(ids))
		for i, id := range ids {
			out[i], _ = pos.Get(id)
		}
		return out
	}

	concurrent := run(build(system.WithWorkers(4)))
	sequential := run(build(system.WithSequential()))
	assert.Equal(t, sequential, concurrent)
}

func TestSystemsCreateAndDeleteThroughView(t *testing.T) {
	var victim ecs.EntityID
	spawner := system.Func(system.NewAccess(), func(v *system.View) error {
		id := v.Entities().Create()
		ecs.LazyInsert(v.Lazy(), id, Position{X: 42})
		v.Entities().Delete(victim)
		return nil
	})
	d, err := system.NewBuilder().With(spawner, "spawner").Build()
	require.NoError(t, err)

	w := ecs.NewWorld()
	d.Setup(w)
	ecs.Register[Position](w)
	victim, _ = w.CreateEntity().With(Position{X: 1}).Build()

	require.NoError(t, d.Dispatch(w))
	pos, _ := ecs.Storage[Position](w)
	assert.Equal(t, 1, pos.Len(), "changes wait for Maintain")

	w.Maintain()
	assert.False(t, w.IsLive(victim))
	require.Equal(t, 1, pos.Len())
	for _, p := range pos.All() {
		assert.Equal(t, float32(42), p.X)
	}
}

func TestDispatchStats(t *testing.T) {
	d, err := system.NewBuilder().
		With(setX(1), "a").
		With(setX(2), "b").
		Build()
	require.NoError(t, err)
	w := newWorld(t, d)

	require.NoError(t, d.Dispatch(w))
	require.NoError(t, d.Dispatch(w))
	stats := d.Stats()
	assert.Equal(t, uint64(2), stats.Tick)
	assert.Len(t, stats.Batches, 2)
}
