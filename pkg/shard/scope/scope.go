package scope

import (
	"sort"
	"sync"

	"github.com/ib-77/shardwire/pkg/shard/value"
)

// Variable is one named slot of a scope. The slot owns its value: Set clones
// the incoming value and releases the one it replaces.
type Variable struct {
	name     string
	value    value.Var
	refs     int
	external bool
}

func (v *Variable) Name() string { return v.name }

// Get returns the current value. The result is borrowed from the slot.
func (v *Variable) Get() value.Var { return v.value }

// Set stores a clone of val and releases the previous value.
func (v *Variable) Set(val value.Var) {
	old := v.value
	v.value = val.Clone()
	_ = old.Release()
}

// External reports whether the variable is bound from outside the scope.
func (v *Variable) External() bool { return v.external }

// NewExternal creates a variable owned by the caller, for SetExternal.
func NewExternal(name string, val value.Var) *Variable {
	return &Variable{name: name, value: val.Clone(), external: true}
}

// Scope is the variable table of one pipeline activation. Lookups walk the
// parent chain (innermost first), then external bindings, then globals.
type Scope struct {
	name     string
	parent   *Scope
	globals  *Scope
	pure     bool
	mu       sync.Mutex
	vars     map[string]*Variable
	external map[string]*Variable
}

// Option configures a Scope.
type Option func(s *Scope)

// WithParent nests the scope inside an enclosing wire's scope.
func WithParent(parent *Scope) Option {
	return func(s *Scope) { s.parent = parent }
}

// WithGlobals attaches the mesh-wide table consulted after the wire chain.
func WithGlobals(globals *Scope) Option {
	return func(s *Scope) { s.globals = globals }
}

// Pure stops lookups at this scope: parents and globals are not consulted.
func Pure() Option {
	return func(s *Scope) { s.pure = true }
}

// New creates an empty scope.
func New(name string, opts ...Option) *Scope {
	s := &Scope{
		name:     name,
		vars:     make(map[string]*Variable),
		external: make(map[string]*Variable),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scope) Name() string { return s.name }

// Child creates a scope nested in s sharing its globals.
func (s *Scope) Child(name string) *Scope {
	return New(name, WithParent(s), WithGlobals(s.globals))
}

// Globals returns the global table, nil for a detached scope.
func (s *Scope) Globals() *Scope { return s.globals }

// SetExternal binds a caller-owned variable under name. External variables
// are not reference counted and never destroyed by the scope.
func (s *Scope) SetExternal(name string, v *Variable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v.external = true
	s.external[name] = v
}

// Reference resolves name and takes a reference on the variable. A name
// found nowhere is created in s.
func (s *Scope) Reference(name string) *Variable {
	if v := s.find(name, true); v != nil {
		return v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vars[name]; ok {
		v.refs++
		return v
	}
	v := &Variable{name: name, refs: 1}
	s.vars[name] = v
	return v
}

// ReferenceGlobal resolves or creates name in the global table.
func (s *Scope) ReferenceGlobal(name string) *Variable {
	if s.globals == nil {
		return s.Reference(name)
	}
	return s.globals.Reference(name)
}

// Lookup finds name without creating it or taking a reference.
func (s *Scope) Lookup(name string) (*Variable, bool) {
	v := s.find(name, false)
	return v, v != nil
}

func (s *Scope) find(name string, ref bool) *Variable {
	for cur := s; cur != nil; cur = cur.parent {
		if v := cur.local(name, ref); v != nil {
			return v
		}
		if cur.pure {
			return nil
		}
	}
	if s.globals != nil {
		return s.globals.local(name, ref)
	}
	return nil
}

func (s *Scope) local(name string, ref bool) *Variable {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.vars[name]; ok {
		if ref {
			v.refs++
		}
		return v
	}
	if v, ok := s.external[name]; ok {
		return v
	}
	return nil
}

// Release drops a reference taken by Reference. At zero the value is
// released and the variable removed from its table.
func (s *Scope) Release(v *Variable) {
	if v == nil || v.external {
		return
	}
	owner := s.owner(v)
	if owner == nil {
		return
	}

	owner.mu.Lock()
	v.refs--
	destroy := v.refs <= 0
	if destroy {
		delete(owner.vars, v.name)
	}
	owner.mu.Unlock()

	if destroy {
		_ = v.value.Release()
		v.value = value.NoneVar()
	}
}

func (s *Scope) owner(v *Variable) *Scope {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.holds(v) {
			return cur
		}
	}
	if s.globals != nil && s.globals.holds(v) {
		return s.globals
	}
	return nil
}

func (s *Scope) holds(v *Variable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vars[v.name] == v
}

// Names returns the sorted names of the variables defined directly in s.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.vars)+len(s.external))
	for name := range s.vars {
		names = append(names, name)
	}
	for name := range s.external {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear releases every variable defined directly in s regardless of its
// reference count. Used at mesh teardown.
func (s *Scope) Clear() {
	s.mu.Lock()
	vars := s.vars
	s.vars = make(map[string]*Variable)
	s.mu.Unlock()

	for _, v := range vars {
		_ = v.value.Release()
		v.value = value.NoneVar()
	}
}
