package param

import (
	"fmt"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// Mode tells how a ParamVar resolves.
type Mode int

const (
	// Constant resolves to the stored literal.
	Constant Mode = iota
	// VariableReference resolves to a live variable of the active scope.
	VariableReference
)

func (m Mode) String() string {
	if m == VariableReference {
		return "variable"
	}
	return "constant"
}

type bindState int

const (
	detached bindState = iota
	acquired
	released
)

// ParamVar is a parameter slot bound either to a literal or to a named
// variable. Assigning a value.Ref literal switches it to variable mode.
//
// The binding must be acquired once per warmup and released once per
// cleanup; Get and Write outside that window fail with ErrNotAcquired.
type ParamVar struct {
	literal value.Var
	scope   *scope.Scope
	slot    *scope.Variable
	state   bindState
}

// NewConstant returns a binding holding v.
func NewConstant(v value.Var) ParamVar {
	return ParamVar{literal: v.Clone()}
}

// NewVariable returns a binding referencing the variable name.
func NewVariable(name string) ParamVar {
	return ParamVar{literal: value.Ref(name)}
}

// SetParam stores a new literal. Not allowed while acquired.
func (p *ParamVar) SetParam(v value.Var) error {
	if p.state == acquired {
		return shard.ErrParamWhileWarm
	}
	lit, err := v.TryClone()
	if err != nil {
		return err
	}
	old := p.literal
	p.literal = lit
	_ = old.Release()
	return nil
}

// Drop releases the literal when the owning unit is discarded.
func (p *ParamVar) Drop() error {
	if p.state == acquired {
		return shard.ErrParamWhileWarm
	}
	old := p.literal
	p.literal = value.NoneVar()
	return old.Release()
}

// Param returns the literal, or the variable reference in variable mode.
func (p *ParamVar) Param() value.Var {
	return p.literal
}

func (p *ParamVar) Mode() Mode {
	if p.literal.Type() == value.ContextVar {
		return VariableReference
	}
	return Constant
}

func (p *ParamVar) IsVariable() bool {
	return p.Mode() == VariableReference
}

// Name returns the referenced variable name, empty in constant mode.
func (p *ParamVar) Name() string {
	name, err := p.literal.VariableName()
	if err != nil {
		return ""
	}
	return name
}

func (p *ParamVar) Acquired() bool {
	return p.state == acquired
}

// Acquire resolves the binding against s. Acquiring again on the same scope
// is a no-op; a different scope while acquired is an error.
func (p *ParamVar) Acquire(s *scope.Scope) error {
	if p.state == acquired {
		if p.scope == s {
			return nil
		}
		return shard.ErrAlreadyAcquired
	}
	if p.IsVariable() {
		if s == nil {
			return fmt.Errorf("%w: no scope to resolve %q", shard.ErrParameter, p.Name())
		}
		p.slot = s.Reference(p.Name())
	}
	p.scope = s
	p.state = acquired
	return nil
}

// Get reads the binding. In variable mode the slot is read fresh on every
// call, so writes made by earlier units of the same tick are visible.
func (p *ParamVar) Get() (value.Var, error) {
	if p.state != acquired {
		return value.NoneVar(), shard.ErrNotAcquired
	}
	if p.slot != nil {
		return p.slot.Get(), nil
	}
	return p.literal, nil
}

// Write stores v into the referenced variable.
func (p *ParamVar) Write(v value.Var) error {
	if p.state != acquired {
		return shard.ErrNotAcquired
	}
	if p.slot == nil {
		return shard.ErrNotWritable
	}
	p.slot.Set(v)
	return nil
}

// Release detaches the binding from its scope.
func (p *ParamVar) Release() error {
	if p.state != acquired {
		return shard.ErrNotAcquired
	}
	if p.slot != nil {
		p.scope.Release(p.slot)
	}
	p.slot = nil
	p.scope = nil
	p.state = released
	return nil
}

// Requirement describes the variable the binding depends on. ok is false in
// constant mode.
func (p *ParamVar) Requirement(types value.Types) (Requirement, bool) {
	if !p.IsVariable() {
		return Requirement{}, false
	}
	var bound value.Types
	for _, t := range types {
		if t.Basic == value.ContextVar {
			bound = append(bound, t.Inner...)
		}
	}
	return Requirement{Name: p.Name(), Types: bound}, true
}
