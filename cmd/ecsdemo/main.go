package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/l1jgo/ecsrt/internal/component"
	"github.com/l1jgo/ecsrt/internal/config"
	"github.com/l1jgo/ecsrt/internal/core/ecs"
	"github.com/l1jgo/ecsrt/internal/core/event"
	coresys "github.com/l1jgo/ecsrt/internal/core/system"
	"github.com/l1jgo/ecsrt/internal/data"
	"github.com/l1jgo/ecsrt/internal/scripting"
	"github.com/l1jgo/ecsrt/internal/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "config/demo.toml"
	if p := os.Getenv("ECSRT_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Optional Lua integrator
	var integrator system.Integrator
	if cfg.Demo.ScriptsDir != "" {
		luaEngine, err := scripting.NewEngine(cfg.Demo.ScriptsDir, log)
		if err != nil {
			return fmt.Errorf("lua engine: %w", err)
		}
		defer luaEngine.Close()
		if luaEngine.HasIntegrate() {
			integrator = luaEngine
			log.Info("movement integrated by lua", zap.String("dir", cfg.Demo.ScriptsDir))
		}
	}

	// 4. Build dispatcher and world
	dispatcher, err := newDispatcher(cfg.Dispatcher, os.Stdout, integrator, log)
	if err != nil {
		return err
	}
	if cfg.Demo.DumpPlan {
		if err := dumpPlan(os.Stdout, dispatcher.Plan()); err != nil {
			return fmt.Errorf("dump plan: %w", err)
		}
	}

	world := ecs.NewWorld(ecs.WithLogger(log))
	watchLifecycle(world, log)
	dispatcher.Setup(world)
	log.Debug("world set up", zap.Strings("components", componentNames(world)))
	ecs.InsertResource(world, component.DeltaTime{Seconds: cfg.Demo.DeltaTime})

	seeds, err := data.LoadSeedTable(cfg.Demo.EntitiesFile)
	if err != nil {
		return fmt.Errorf("load seeds: %w", err)
	}
	if _, err := seeds.Spawn(world); err != nil {
		return err
	}
	log.Info("world seeded", zap.Int("entities", seeds.Count()))

	// 5. Tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Demo.TickRate)
	defer ticker.Stop()

	last := time.Now()
	for ticks := 0; cfg.Demo.Ticks == 0 || ticks < cfg.Demo.Ticks; ticks++ {
		select {
		case now := <-ticker.C:
			if cfg.Demo.DeltaTime == 0 {
				ecs.InsertResource(world, component.DeltaTime{Seconds: float32(now.Sub(last).Seconds())})
			}
			last = now
			if err := tick(dispatcher, world); err != nil {
				return err
			}
			stats := dispatcher.Stats()
			log.Debug("tick done",
				zap.Uint64("tick", stats.Tick),
				zap.Duration("took", stats.Duration),
			)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			return nil
		}
	}
	log.Info("demo finished", zap.Int("ticks", cfg.Demo.Ticks))
	return nil
}

// newDispatcher wires the demo systems:
//
//	hello_world -> update_pos -> hello_updated
//
// with clock and lifetime free to share batches with them.
func newDispatcher(cfg config.DispatcherConfig, out io.Writer, integrator system.Integrator, log *zap.Logger) (*coresys.Dispatcher, error) {
	opts := []coresys.BuilderOption{coresys.WithLogger(log)}
	if cfg.Workers > 0 {
		opts = append(opts, coresys.WithWorkers(cfg.Workers))
	}
	if cfg.Sequential {
		opts = append(opts, coresys.WithSequential())
	}
	d, err := coresys.NewBuilder(opts...).
		With(system.NewClockSystem(), "clock").
		With(system.NewPrintPositionSystem(out), "hello_world").
		With(system.NewUpdatePositionSystem(integrator), "update_pos", "hello_world").
		With(system.NewPrintPositionSystem(out), "hello_updated", "update_pos").
		With(system.NewLifetimeSystem(), "lifetime").
		Build()
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	return d, nil
}

// tick is one dispatch followed by maintain. Maintain still runs after a
// failed dispatch so deferred work from the completed batches is applied.
func tick(d *coresys.Dispatcher, w *ecs.World) error {
	err := d.Dispatch(w)
	w.Maintain()
	if err != nil {
		return fmt.Errorf("tick: %w", err)
	}
	return nil
}

func watchLifecycle(w *ecs.World, log *zap.Logger) {
	event.Subscribe(w.Events(), func(ev ecs.EntitiesCreated) {
		log.Debug("entities created", zap.Int("count", len(ev.IDs)))
	})
	event.Subscribe(w.Events(), func(ev ecs.EntitiesDeleted) {
		for _, id := range ev.IDs {
			log.Info("entity deleted",
				zap.Uint32("index", id.Index()),
				zap.Uint32("generation", id.Generation()),
			)
		}
	})
}

// componentNames lists registered component types in registration order.
func componentNames(w *ecs.World) []string {
	types := w.Registry().Types()
	names := make([]string, len(types))
	for i, id := range types {
		names[i] = ecs.TypeName(id)
	}
	return names
}

func dumpPlan(out io.Writer, plan *coresys.Plan) error {
	b, err := json.MarshalIndent(plan.Describe(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", b)
	return err
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
