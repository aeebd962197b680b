package host

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ib-77/shardwire/internal/config"
	"github.com/ib-77/shardwire/internal/logging"
	"github.com/ib-77/shardwire/pkg/shard/bridge"
	"github.com/ib-77/shardwire/pkg/shard/mesh"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
	"github.com/ib-77/shardwire/pkg/shard/wire"
)

var ErrUnloaded = errors.New("runtime unloaded")

// Module registers a set of units.
type Module func(r *unit.Registry) error

// Runtime is the host side every unit talks to: the registry, the blocking
// bridge and the host-wide variables. It replaces any process-global state;
// meshes and units receive it explicitly.
type Runtime struct {
	ctx      context.Context
	cfg      *config.Config
	logger   *logging.Logger
	registry *unit.Registry
	bridge   *bridge.Bridge
	globals  *scope.Scope

	mu        sync.Mutex
	meshes    []*mesh.Mesh
	externals []*scope.Variable
	wires     []*wire.Wire
	unloaded  bool
}

// Load initializes a runtime and registers modules in order. A nil cfg
// means config.Default().
func Load(ctx context.Context, cfg *config.Config, logger *logging.Logger, modules ...Module) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, config.ValidationErrors(errs)
	}
	if logger == nil {
		logger = logging.NopLogger()
	}

	ctx = cfg.Context(ctx)
	reg := unit.NewRegistry(cfg.Registry.VersionToken)
	for i, m := range modules {
		if err := m(reg); err != nil {
			return nil, fmt.Errorf("module %d: %w", i, err)
		}
	}

	rt := &Runtime{
		ctx:      ctx,
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		bridge:   bridge.New(ctx, logger),
		globals:  scope.New("host"),
	}
	logger.Info("runtime loaded",
		"units", reg.Len(),
		"version", reg.Version(),
		"workers", rt.bridge.Workers())
	return rt, nil
}

func (rt *Runtime) Registry() *unit.Registry { return rt.registry }

func (rt *Runtime) Bridge() *bridge.Bridge { return rt.bridge }

func (rt *Runtime) Logger() *logging.Logger { return rt.logger }

func (rt *Runtime) Config() *config.Config { return rt.cfg }

// SetGlobal binds a host-owned variable visible to every mesh created
// afterwards. The runtime keeps ownership of val's clone.
func (rt *Runtime) SetGlobal(name string, val value.Var) {
	rt.globals.Reference(name).Set(val)
}

// NewMesh creates a mesh sharing the runtime bridge. Each host global is
// bound into the mesh globals as its own external variable holding a clone,
// so meshes on different scheduler goroutines never share a slot. Writes
// made by a mesh stay local to it.
func (rt *Runtime) NewMesh(name string) (*mesh.Mesh, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.unloaded {
		return nil, ErrUnloaded
	}

	m := mesh.New(rt.ctx, name, rt.bridge, rt.logger)
	for _, gname := range rt.globals.Names() {
		if v, ok := rt.globals.Lookup(gname); ok {
			ext := scope.NewExternal(gname, v.Get())
			m.Globals().SetExternal(gname, ext)
			rt.externals = append(rt.externals, ext)
		}
	}
	rt.meshes = append(rt.meshes, m)
	return m, nil
}

// Wire builds a wire from unit names with their parameters. The runtime
// disposes it at Unload.
func (rt *Runtime) Wire(name string, specs []UnitSpec, opts ...wire.Option) (*wire.Wire, error) {
	instances := make([]*unit.Instance, 0, len(specs))
	for _, s := range specs {
		inst, err := rt.registry.Build(s.Name, s.Params)
		if err != nil {
			for _, built := range instances {
				_ = built.Drop()
			}
			return nil, fmt.Errorf("wire %s: %w", name, err)
		}
		instances = append(instances, inst)
	}
	w := wire.New(name, instances, opts...)
	rt.mu.Lock()
	rt.wires = append(rt.wires, w)
	rt.mu.Unlock()
	return w, nil
}

// UnitSpec names a registered unit and its parameter values.
type UnitSpec struct {
	Name   string
	Params map[string]value.Var
}

// Unit is shorthand for a UnitSpec.
func Unit(name string, params map[string]value.Var) UnitSpec {
	return UnitSpec{Name: name, Params: params}
}

// Watch applies config file changes to the running logger.
func (rt *Runtime) Watch() {
	config.Watch(func(cfg *config.Config) {
		rt.logger.SetLevel(cfg.Logging.Level)
		rt.logger.Info("config reloaded", "level", cfg.Logging.Level)
	}, func(err error) {
		rt.logger.Warn("config reload rejected", "error", err)
	})
}

// Unload terminates every mesh, closes the bridge and clears the globals.
// Blocking work still running is detached and discarded.
func (rt *Runtime) Unload() {
	rt.mu.Lock()
	if rt.unloaded {
		rt.mu.Unlock()
		return
	}
	rt.unloaded = true
	meshes := rt.meshes
	rt.meshes = nil
	externals := rt.externals
	rt.externals = nil
	wires := rt.wires
	rt.wires = nil
	rt.mu.Unlock()

	for _, m := range meshes {
		m.Terminate()
	}
	for _, w := range wires {
		if err := w.Dispose(); err != nil {
			rt.logger.Warn("wire dispose failed", "wire", w.Name(), "error", err)
		}
	}
	for _, ext := range externals {
		ext.Set(value.NoneVar())
	}
	rt.bridge.Close()
	rt.globals.Clear()
	rt.logger.Info("runtime unloaded", "meshes", len(meshes))
}
