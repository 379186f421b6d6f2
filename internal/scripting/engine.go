package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/l1jgo/ecsrt/internal/component"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for movement scripting.
// The VM is not goroutine-safe; calls are serialized by mu.
type Engine struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
// A missing directory yields an engine with no functions defined.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}
	if err := e.loadDir(scriptsDir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

// NewEngineFromString is NewEngine for a single in-memory chunk.
func NewEngineFromString(src string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	if err := vm.DoString(src); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load script: %w", err)
	}
	return &Engine{vm: vm, log: log}, nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Close()
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// HasIntegrate reports whether a Lua integrate function is defined.
func (e *Engine) HasIntegrate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vm.GetGlobal("integrate") != lua.LNil
}

// Integrate calls the Lua integrate(pos, vel, dt) function. Without the
// function, or when the script errors, it falls back to an Euler step.
func (e *Engine) Integrate(pos component.Position, vel component.Velocity, dt float32) component.Position {
	fallback := component.Position{X: pos.X + vel.X*dt, Y: pos.Y + vel.Y*dt}

	e.mu.Lock()
	defer e.mu.Unlock()

	fn := e.vm.GetGlobal("integrate")
	if fn == lua.LNil {
		return fallback
	}

	p := e.vm.NewTable()
	p.RawSetString("x", lua.LNumber(pos.X))
	p.RawSetString("y", lua.LNumber(pos.Y))
	v := e.vm.NewTable()
	v.RawSetString("x", lua.LNumber(vel.X))
	v.RawSetString("y", lua.LNumber(vel.Y))

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, p, v, lua.LNumber(dt)); err != nil {
		e.log.Error("lua integrate error", zap.Error(err))
		return fallback
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua integrate returned non-table")
		return fallback
	}
	return component.Position{
		X: float32(lua.LVAsNumber(rt.RawGetString("x"))),
		Y: float32(lua.LVAsNumber(rt.RawGetString("y"))),
	}
}
