package unit

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

var (
	ErrUnknownUnit   = errors.New("unknown unit")
	ErrDuplicateUnit = errors.New("unit already registered")
	ErrInvalidUnit   = errors.New("invalid unit descriptor")
)

// Factory creates a fresh unit.
type Factory func() Unit

// Info is the registration record of a unit type, queried once and cached.
type Info struct {
	Name         string              `yaml:"name"`
	Hash         uint64              `yaml:"hash"`
	Help         string              `yaml:"help,omitempty"`
	InputTypes   value.Types         `yaml:"-"`
	OutputTypes  value.Types         `yaml:"-"`
	Parameters   []param.Info        `yaml:"parameters,omitempty"`
	Requirements []param.Requirement `yaml:"-"`
}

// Hash computes the identity hash of a unit name under a version token.
func Hash(name, version string) uint64 {
	return xxhash.Sum64String(name + "-" + version)
}

type entry struct {
	info    Info
	factory Factory
}

// Registry holds the unit types known to one runtime.
type Registry struct {
	version string
	mu      sync.RWMutex
	units   map[string]entry
	hashes  map[uint64]string
}

func NewRegistry(version string) *Registry {
	return &Registry{
		version: version,
		units:   make(map[string]entry),
		hashes:  make(map[uint64]string),
	}
}

func (r *Registry) Version() string {
	return r.version
}

// Register queries f once, validates the descriptor and caches it.
func (r *Registry) Register(f Factory) error {
	if f == nil {
		return fmt.Errorf("%w: nil factory", ErrInvalidUnit)
	}
	u := f()
	if u == nil {
		return fmt.Errorf("%w: factory returned nil", ErrInvalidUnit)
	}
	info, err := describe(u, r.version)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.units[info.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateUnit, info.Name)
	}
	if other, ok := r.hashes[info.Hash]; ok {
		return fmt.Errorf("%w: %s hash collides with %s", ErrInvalidUnit, info.Name, other)
	}
	r.units[info.Name] = entry{info: info, factory: f}
	r.hashes[info.Hash] = info.Name
	return nil
}

// MustRegister registers every factory and panics on the first failure.
// Meant for module init tables.
func (r *Registry) MustRegister(fs ...Factory) {
	for _, f := range fs {
		if err := r.Register(f); err != nil {
			panic(err)
		}
	}
}

func describe(u Unit, version string) (Info, error) {
	name := u.Name()
	var errs []error
	if name == "" {
		errs = append(errs, errors.New("empty name"))
	}
	if len(u.InputTypes()) == 0 {
		errs = append(errs, errors.New("no input types"))
	}
	if len(u.OutputTypes()) == 0 {
		errs = append(errs, errors.New("no output types"))
	}
	params := paramsOf(u)
	if err := params.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Info{}, fmt.Errorf("%w: %q: %w", ErrInvalidUnit, name, errors.Join(errs...))
	}

	info := Info{
		Name:        name,
		Hash:        Hash(name, version),
		Help:        helpOf(u),
		InputTypes:  u.InputTypes(),
		OutputTypes: u.OutputTypes(),
		Parameters:  params.Infos(),
	}
	if req, ok := u.(Requirer); ok {
		info.Requirements = req.Requirements()
	}
	return info, nil
}

// Create instantiates a registered unit.
func (r *Registry) Create(name string) (*Instance, error) {
	r.mu.RLock()
	e, ok := r.units[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, name)
	}
	return NewInstance(e.factory()), nil
}

// Info returns the cached record of name.
func (r *Registry) Info(name string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.units[name]
	return e.info, ok
}

// Lookup finds a unit by identity hash.
func (r *Registry) Lookup(hash uint64) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.hashes[hash]
	if !ok {
		return Info{}, false
	}
	return r.units[name].info, true
}

// Infos returns all records sorted by name.
func (r *Registry) Infos() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.units))
	for _, e := range r.units {
		infos = append(infos, e.info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Build creates a named instance and assigns its parameters by name.
func (r *Registry) Build(name string, params map[string]value.Var) (*Instance, error) {
	inst, err := r.Create(name)
	if err != nil {
		return nil, err
	}
	for pname, v := range params {
		idx := -1
		for i, p := range inst.Parameters() {
			if p.Name == pname {
				idx = i
				break
			}
		}
		if idx < 0 {
			_ = inst.Drop()
			return nil, shard.NewUnitError(name, -1, "setParam", fmt.Errorf("%w: no parameter %q", shard.ErrInvalidIndex, pname))
		}
		if err := inst.SetParam(idx, v); err != nil {
			_ = inst.Drop()
			return nil, err
		}
	}
	return inst, nil
}
