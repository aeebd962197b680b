package param

import (
	"errors"
	"fmt"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// Info describes one parameter as exposed to the host.
type Info struct {
	Name  string      `yaml:"name"`
	Help  string      `yaml:"help"`
	Types value.Types `yaml:"-"`
}

// Requirement names a variable a unit needs at activation.
type Requirement struct {
	Name   string
	Types  value.Types
	Global bool
}

// Binding ties an Info to the field that stores the parameter.
type Binding struct {
	Info    Info
	Get     func() value.Var
	Set     func(v value.Var) error
	Warmup  func(s *scope.Scope) error
	Cleanup func() error
	Require func() []Requirement
	Drop    func() error
}

// Bind exposes a ParamVar field.
func Bind(info Info, p *ParamVar) Binding {
	return Binding{
		Info:    info,
		Get:     p.Param,
		Set:     p.SetParam,
		Warmup:  p.Acquire,
		Cleanup: p.Release,
		Drop:    p.Drop,
		Require: func() []Requirement {
			if req, ok := p.Requirement(info.Types); ok {
				return []Requirement{req}
			}
			return nil
		},
	}
}

// Literal exposes a plain value field that never binds to a variable.
func Literal(info Info, field *value.Var) Binding {
	return Binding{
		Info: info,
		Get:  func() value.Var { return *field },
		Set: func(v value.Var) error {
			lit, err := v.TryClone()
			if err != nil {
				return err
			}
			old := *field
			*field = lit
			_ = old.Release()
			return nil
		},
		Drop: func() error {
			old := *field
			*field = value.NoneVar()
			return old.Release()
		},
	}
}

// Set is the parameter descriptor table of one unit instance. Indexes are
// the positions of the bindings passed to NewSet.
type Set struct {
	bindings []Binding
	warm     int
}

func NewSet(bindings ...Binding) *Set {
	return &Set{bindings: bindings}
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bindings)
}

// Infos returns the descriptor table in index order.
func (s *Set) Infos() []Info {
	if s == nil {
		return nil
	}
	infos := make([]Info, len(s.bindings))
	for i, b := range s.bindings {
		infos[i] = b.Info
	}
	return infos
}

// Validate checks the table once, at registration.
func (s *Set) Validate() error {
	if s == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(s.bindings))
	var errs []error
	for i, b := range s.bindings {
		switch {
		case b.Info.Name == "":
			errs = append(errs, fmt.Errorf("parameter %d has no name", i))
		case len(b.Info.Types) == 0:
			errs = append(errs, fmt.Errorf("parameter %q declares no types", b.Info.Name))
		case b.Get == nil || b.Set == nil:
			errs = append(errs, fmt.Errorf("parameter %q has no accessors", b.Info.Name))
		}
		if _, dup := seen[b.Info.Name]; dup {
			errs = append(errs, fmt.Errorf("parameter %q declared twice", b.Info.Name))
		}
		seen[b.Info.Name] = struct{}{}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", shard.ErrParameter, errors.Join(errs...))
	}
	return nil
}

func (s *Set) binding(index int) (Binding, error) {
	if s == nil || index < 0 || index >= len(s.bindings) {
		return Binding{}, fmt.Errorf("%w: %d", shard.ErrInvalidIndex, index)
	}
	return s.bindings[index], nil
}

// Get returns the parameter at index.
func (s *Set) Get(index int) (value.Var, error) {
	b, err := s.binding(index)
	if err != nil {
		return value.NoneVar(), err
	}
	return b.Get(), nil
}

// SetParam assigns the parameter at index after checking the value against
// the declared types.
func (s *Set) SetParam(index int, v value.Var) error {
	b, err := s.binding(index)
	if err != nil {
		return err
	}
	if !b.Info.Types.Accepts(v.Info()) {
		return fmt.Errorf("%w: %s expects %s, got %s",
			shard.ErrInvalidParamType, b.Info.Name, b.Info.Types, v.Info())
	}
	return b.Set(v)
}

// Warmup acquires every binding in order. On failure the bindings already
// acquired are released again.
func (s *Set) Warmup(sc *scope.Scope) error {
	if s == nil {
		return nil
	}
	for i, b := range s.bindings {
		if b.Warmup == nil {
			s.warm = i + 1
			continue
		}
		if err := b.Warmup(sc); err != nil {
			_ = s.Cleanup()
			return fmt.Errorf("parameter %q: %w", b.Info.Name, err)
		}
		s.warm = i + 1
	}
	return nil
}

// Cleanup releases the acquired bindings in reverse order.
func (s *Set) Cleanup() error {
	if s == nil {
		return nil
	}
	var errs []error
	for i := s.warm - 1; i >= 0; i-- {
		b := s.bindings[i]
		if b.Cleanup == nil {
			continue
		}
		if err := b.Cleanup(); err != nil {
			errs = append(errs, fmt.Errorf("parameter %q: %w", b.Info.Name, err))
		}
	}
	s.warm = 0
	return errors.Join(errs...)
}

// Drop releases every literal held by the bindings. The set must not be
// warm.
func (s *Set) Drop() error {
	if s == nil {
		return nil
	}
	if s.warm > 0 {
		return shard.ErrParamWhileWarm
	}
	var errs []error
	for _, b := range s.bindings {
		if b.Drop == nil {
			continue
		}
		if err := b.Drop(); err != nil {
			errs = append(errs, fmt.Errorf("parameter %q: %w", b.Info.Name, err))
		}
	}
	return errors.Join(errs...)
}

// RequiredVariables collects the variables referenced by the bindings. It is
// recomputed on every call since parameters may have changed.
func (s *Set) RequiredVariables() []Requirement {
	if s == nil {
		return nil
	}
	var out []Requirement
	for _, b := range s.bindings {
		if b.Require != nil {
			out = append(out, b.Require()...)
		}
	}
	return out
}
