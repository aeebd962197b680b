package general

import (
	"context"
	"time"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

var anyVariable = value.Types{value.VarOf(value.Of(value.Any))}

// Const outputs its Value parameter, ignoring the input.
type Const struct {
	value  value.Var
	params *param.Set
}

func NewConst() unit.Unit {
	c := &Const{}
	c.params = param.NewSet(param.Literal(param.Info{
		Name:  "Value",
		Help:  "The constant to output.",
		Types: value.AnyTypes,
	}, &c.value))
	return c
}

func (c *Const) Name() string             { return "Const" }
func (c *Const) Help() string             { return "Outputs a constant value." }
func (c *Const) InputTypes() value.Types  { return value.AnyTypes }
func (c *Const) OutputTypes() value.Types { return value.AnyTypes }
func (c *Const) Parameters() *param.Set   { return c.params }

func (c *Const) Compose(unit.ComposeData) (value.TypeInfo, error) {
	return c.value.Info(), nil
}

func (c *Const) Activate(*unit.Context, value.Var) (value.Var, error) {
	return c.value, nil
}

// variable is the part shared by Set, Update and Get: a Name parameter
// bound in variable mode.
type variable struct {
	name   param.ParamVar
	params *param.Set
}

func (v *variable) bind(help string) {
	v.params = param.NewSet(param.Bind(param.Info{
		Name:  "Name",
		Help:  help,
		Types: anyVariable,
	}, &v.name))
}

func (v *variable) Parameters() *param.Set { return v.params }

// Set writes its input into a variable of the wire scope, creating it if
// needed, and passes the input through.
type Set struct {
	variable
	exposed value.TypeInfo
}

func NewSet() unit.Unit {
	s := &Set{}
	s.bind("The variable to write.")
	return s
}

func (s *Set) Name() string             { return "Set" }
func (s *Set) Help() string             { return "Stores the input in a variable." }
func (s *Set) InputTypes() value.Types  { return value.AnyTypes }
func (s *Set) OutputTypes() value.Types { return value.AnyTypes }

func (s *Set) Compose(data unit.ComposeData) (value.TypeInfo, error) {
	if !s.name.IsVariable() {
		return value.TypeInfo{}, shard.TypeError(s.Name(), "Name must reference a variable")
	}
	s.exposed = data.InputType
	return data.InputType, nil
}

// Exposed publishes the variable with the composed input type.
func (s *Set) Exposed() []param.Requirement {
	if !s.name.IsVariable() {
		return nil
	}
	return []param.Requirement{{Name: s.name.Name(), Types: value.Types{s.exposed}}}
}

func (s *Set) Activate(_ *unit.Context, input value.Var) (value.Var, error) {
	if err := s.name.Write(input); err != nil {
		return value.NoneVar(), err
	}
	return input, nil
}

// Update overwrites an existing variable. Unlike Set it fails while the
// variable holds nothing, and refuses a value of another type.
type Update struct {
	variable
}

func NewUpdate() unit.Unit {
	u := &Update{}
	u.bind("The variable to update.")
	return u
}

func (u *Update) Name() string             { return "Update" }
func (u *Update) Help() string             { return "Updates an existing variable." }
func (u *Update) InputTypes() value.Types  { return value.AnyTypes }
func (u *Update) OutputTypes() value.Types { return value.AnyTypes }

func (u *Update) Activate(_ *unit.Context, input value.Var) (value.Var, error) {
	cur, err := u.name.Get()
	if err != nil {
		return value.NoneVar(), err
	}
	if cur.IsNone() {
		return value.NoneVar(), shard.DependencyError(u.name.Name())
	}
	if cur.Type() != input.Type() {
		return value.NoneVar(), shard.MismatchError("%s holds %s, got %s", u.name.Name(), cur.Info(), input.Info())
	}
	if err := u.name.Write(input); err != nil {
		return value.NoneVar(), err
	}
	return input, nil
}

// Get outputs the current value of a variable, or Default while the variable
// is empty.
type Get struct {
	variable
	fallback value.Var
}

func NewGet() unit.Unit {
	g := &Get{}
	g.params = param.NewSet(
		param.Bind(param.Info{Name: "Name", Help: "The variable to read.", Types: anyVariable}, &g.name),
		param.Literal(param.Info{Name: "Default", Help: "Output while the variable is empty.", Types: value.AnyTypes}, &g.fallback),
	)
	return g
}

func (g *Get) Name() string             { return "Get" }
func (g *Get) Help() string             { return "Reads a variable." }
func (g *Get) InputTypes() value.Types  { return value.AnyTypes }
func (g *Get) OutputTypes() value.Types { return value.AnyTypes }

// Compose takes the output type from the upstream unit exposing the
// variable, then from Default. Variables set by the host are only known at
// activation and compose as Any.
func (g *Get) Compose(data unit.ComposeData) (value.TypeInfo, error) {
	if !g.name.IsVariable() {
		return value.TypeInfo{}, shard.TypeError(g.Name(), "Name must reference a variable")
	}
	for i := len(data.Shared) - 1; i >= 0; i-- {
		if s := data.Shared[i]; s.Name == g.name.Name() && len(s.Types) > 0 {
			return s.Types[0], nil
		}
	}
	if !g.fallback.IsNone() {
		return g.fallback.Info(), nil
	}
	return value.Of(value.Any), nil
}

func (g *Get) Activate(_ *unit.Context, _ value.Var) (value.Var, error) {
	cur, err := g.name.Get()
	if err != nil {
		return value.NoneVar(), err
	}
	if cur.IsNone() {
		if g.fallback.IsNone() {
			return value.NoneVar(), shard.DependencyError(g.name.Name())
		}
		return g.fallback, nil
	}
	return cur, nil
}

// Inc adds one to an Int variable, starting from zero, and outputs the new
// value.
type Inc struct {
	variable
	count value.Var
}

func NewInc() unit.Unit {
	i := &Inc{}
	i.bind("The counter variable.")
	return i
}

func (i *Inc) Name() string             { return "Inc" }
func (i *Inc) Help() string             { return "Increments a counter variable." }
func (i *Inc) InputTypes() value.Types  { return value.AnyTypes }
func (i *Inc) OutputTypes() value.Types { return value.IntTypes }

func (i *Inc) Exposed() []param.Requirement {
	if !i.name.IsVariable() {
		return nil
	}
	return []param.Requirement{{Name: i.name.Name(), Types: value.IntTypes}}
}

func (i *Inc) Activate(_ *unit.Context, _ value.Var) (value.Var, error) {
	cur, err := i.name.Get()
	if err != nil {
		return value.NoneVar(), err
	}
	var n int64
	if !cur.IsNone() {
		if n, err = cur.AsInt(); err != nil {
			return value.NoneVar(), err
		}
	}
	i.count = value.IntVar(n + 1)
	if err := i.name.Write(i.count); err != nil {
		return value.NoneVar(), err
	}
	return i.count, nil
}

// Log writes the input to the wire logger and passes it through.
type Log struct {
	prefix value.Var
	params *param.Set
}

func NewLog() unit.Unit {
	l := &Log{prefix: value.StringVar("")}
	l.params = param.NewSet(param.Literal(param.Info{
		Name:  "Prefix",
		Help:  "Message logged with the value.",
		Types: value.StringTypes,
	}, &l.prefix))
	return l
}

func (l *Log) Name() string             { return "Log" }
func (l *Log) InputTypes() value.Types  { return value.AnyTypes }
func (l *Log) OutputTypes() value.Types { return value.AnyTypes }
func (l *Log) Parameters() *param.Set   { return l.params }

func (l *Log) Activate(c *unit.Context, input value.Var) (value.Var, error) {
	msg, _ := l.prefix.AsString()
	if msg == "" {
		msg = "value"
	}
	c.Logger().Info(msg, "value", input.String(), "type", input.Info().String())
	return input, nil
}

// Pause suspends the wire for Time seconds. With Blocking set the wait runs
// as a blocking closure on the bridge instead of a cooperative sleep; the
// wire is suspended either way.
type Pause struct {
	seconds  value.Var
	blocking value.Var
	params   *param.Set
}

func NewPause() unit.Unit {
	p := &Pause{seconds: value.FloatVar(0), blocking: value.BoolVar(false)}
	p.params = param.NewSet(
		param.Literal(param.Info{Name: "Time", Help: "Seconds to wait.", Types: value.Types{value.Of(value.Float), value.Of(value.Int)}}, &p.seconds),
		param.Literal(param.Info{Name: "Blocking", Help: "Wait on a bridge worker.", Types: value.BoolTypes}, &p.blocking),
	)
	return p
}

func (p *Pause) Name() string             { return "Pause" }
func (p *Pause) Help() string             { return "Suspends the wire without blocking other wires." }
func (p *Pause) InputTypes() value.Types  { return value.AnyTypes }
func (p *Pause) OutputTypes() value.Types { return value.AnyTypes }
func (p *Pause) Parameters() *param.Set   { return p.params }

func (p *Pause) Activate(c *unit.Context, input value.Var) (value.Var, error) {
	secs, err := p.seconds.AsFloat()
	if err != nil {
		return value.NoneVar(), err
	}
	d := time.Duration(secs * float64(time.Second))

	if blocking, _ := p.blocking.AsBool(); !blocking {
		if err := c.Suspend(d); err != nil {
			return value.NoneVar(), err
		}
		return input, nil
	}

	_, err = unit.RunBlocking(c, func(ctx context.Context) (struct{}, error) {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-timer.C:
			return struct{}{}, nil
		case <-ctx.Done():
			return struct{}{}, shard.ErrCancelled
		}
	})
	if err != nil {
		return value.NoneVar(), err
	}
	return input, nil
}

// Module registers the general units.
func Module(r *unit.Registry) error {
	for _, f := range []unit.Factory{NewConst, NewSet, NewUpdate, NewGet, NewInc, NewLog, NewPause} {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}
