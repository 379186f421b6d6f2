package main

import (
	"bytes"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/config"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDemoPlan(t *testing.T) {
	d, err := newDispatcher(config.DispatcherConfig{}, &bytes.Buffer{}, nil, zap.NewNop())
	require.NoError(t, err)

	plan := d.Plan()
	assert.Equal(t, 3, plan.Len())
	assert.Less(t, plan.BatchOf("hello_world"), plan.BatchOf("update_pos"))
	assert.Less(t, plan.BatchOf("update_pos"), plan.BatchOf("hello_updated"))
	assert.Equal(t, 0, plan.BatchOf("clock"))
	assert.Equal(t, 0, plan.BatchOf("lifetime"))
}

func TestDumpPlan(t *testing.T) {
	d, err := newDispatcher(config.DispatcherConfig{Sequential: true}, &bytes.Buffer{}, nil, zap.NewNop())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, dumpPlan(&out, d.Plan()))

	var desc coresys.PlanDescription
	require.NoError(t, json.Unmarshal(out.Bytes(), &desc))
	assert.Equal(t, 5, desc.Systems)
	assert.Equal(t, d.Plan().Batches(), desc.Batches)
}

func TestTickRunsSeededWorld(t *testing.T) {
	var out bytes.Buffer
	d, err := newDispatcher(config.DispatcherConfig{Workers: 2}, &out, nil, zap.NewNop())
	require.NoError(t, err)

	w := ecs.NewWorld()
	watchLifecycle(w, zap.NewNop())
	d.Setup(w)
	ecs.InsertResource(w, component.DeltaTime{Seconds: 0.5})

	seeds, err := data.LoadSeedTable("../../data/yaml/entities.yaml")
	require.NoError(t, err)
	ids, err := seeds.Spawn(w)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, tick(d, w))
	}

	tc, err := ecs.Resource[component.TickCount](w)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tc.N)

	assert.True(t, w.IsLive(ids[0]))
	assert.True(t, w.IsLive(ids[1]))
	assert.False(t, w.IsLive(ids[2]), "comet expires after three ticks")

	pos, _ := ecs.Storage[component.Position](w)
	p, _ := pos.Get(ids[1])
	assert.InDelta(t, 2.15, p.X, 1e-5)
	assert.Contains(t, out.String(), "Hello entity 2! Position { x: 2.0, y: 5.0 }")
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	log, err := newLogger(config.LoggingConfig{Level: "chatty", Format: "json"})
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.InfoLevel))
	assert.False(t, log.Core().Enabled(zap.DebugLevel))
}

func TestComponentNamesAfterSetup(t *testing.T) {
	d, err := newDispatcher(config.DispatcherConfig{}, &bytes.Buffer{}, nil, zap.NewNop())
	require.NoError(t, err)
	w := ecs.NewWorld()
	d.Setup(w)

	assert.ElementsMatch(t, []string{
		"component.Position",
		"component.Name",
		"component.Velocity",
		"component.Lifetime",
	}, componentNames(w))
}
