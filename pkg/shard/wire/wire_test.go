package wire

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// probe is a configurable unit recording its lifecycle calls.
type probe struct {
	name     string
	in, out  value.Types
	log      *[]string
	activate func(c *unit.Context, in value.Var) (value.Var, error)
	warmErr  error
	exposed  []param.Requirement
	requires []param.Requirement
}

func (p *probe) Name() string             { return p.name }
func (p *probe) InputTypes() value.Types  { return p.in }
func (p *probe) OutputTypes() value.Types { return p.out }

func (p *probe) Activate(c *unit.Context, in value.Var) (value.Var, error) {
	*p.log = append(*p.log, "activate "+p.name)
	if p.activate != nil {
		return p.activate(c, in)
	}
	return in, nil
}

func (p *probe) Warmup(*unit.Context) error {
	if p.warmErr != nil {
		return p.warmErr
	}
	*p.log = append(*p.log, "warmup "+p.name)
	return nil
}

func (p *probe) Cleanup(*unit.Context) error {
	*p.log = append(*p.log, "cleanup "+p.name)
	return nil
}

func (p *probe) Exposed() []param.Requirement      { return p.exposed }
func (p *probe) Requirements() []param.Requirement { return p.requires }

func probes(log *[]string, ps ...*probe) []*unit.Instance {
	out := make([]*unit.Instance, len(ps))
	for i, p := range ps {
		if p.in == nil {
			p.in = value.AnyTypes
		}
		if p.out == nil {
			p.out = value.AnyTypes
		}
		p.log = log
		out[i] = unit.NewInstance(p)
	}
	return out
}

func warm(t *testing.T, w *Wire, input value.TypeInfo) *scope.Scope {
	t.Helper()
	_, err := w.Compose(input)
	require.NoError(t, err)
	parent := scope.New("mesh")
	require.NoError(t, w.Warmup(unit.NewContext(context.Background(), unit.WithScope(parent))))
	return parent
}

func TestWire_ComposeChainsTypes(t *testing.T) {
	var log []string
	w := New("conv", probes(&log,
		&probe{name: "A", in: value.IntTypes, out: value.StringTypes},
		&probe{name: "B", in: value.StringTypes, out: value.BytesTypes},
	))

	out, err := w.Compose(value.Of(value.Int))
	require.NoError(t, err)
	assert.Equal(t, value.Of(value.Bytes), out)
	assert.Equal(t, value.Of(value.Bytes), w.OutputType())
}

func TestWire_ComposeFailureNamesUnit(t *testing.T) {
	var log []string
	w := New("bad", probes(&log,
		&probe{name: "A", in: value.IntTypes, out: value.StringTypes},
		&probe{name: "B", in: value.IntTypes, out: value.IntTypes},
	))

	_, err := w.Compose(value.Of(value.Int))
	assert.ErrorIs(t, err, shard.ErrBuildTimeType)
	var ue *shard.UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "B", ue.Unit)
	assert.Equal(t, 1, ue.Index)

	assert.ErrorIs(t, w.Warmup(unit.NewContext(context.Background())), shard.ErrNotComposed)

	_, err = New("empty", nil).Compose(value.Of(value.None))
	assert.ErrorIs(t, err, ErrEmptyWire)
}

func TestWire_TickRunsInOrder(t *testing.T) {
	var log []string
	w := New("seq", probes(&log,
		&probe{name: "A", activate: func(_ *unit.Context, in value.Var) (value.Var, error) {
			n, _ := in.AsInt()
			return value.IntVar(n * 2), nil
		}},
		&probe{name: "B", activate: func(_ *unit.Context, in value.Var) (value.Var, error) {
			n, _ := in.AsInt()
			return value.IntVar(n + 1), nil
		}},
	))
	warm(t, w, value.Of(value.Int))

	res := w.Tick(value.IntVar(20))
	require.True(t, res.IsSuccess())
	assert.True(t, res.Result().Equal(value.IntVar(41)))
	assert.Equal(t, int64(1), w.Ticks())

	require.NoError(t, w.Cleanup())
	assert.Equal(t, []string{
		"warmup A", "warmup B",
		"activate A", "activate B",
		"cleanup B", "cleanup A",
	}, log)
	assert.False(t, w.Warm())
}

func TestWire_ReadsObserveEarlierWritesInSameTick(t *testing.T) {
	var log []string
	var target, source param.ParamVar
	target = param.NewVariable("x")
	source = param.NewVariable("x")

	w := New("rw", probes(&log,
		&probe{name: "Write", activate: func(_ *unit.Context, in value.Var) (value.Var, error) {
			return in, target.Write(in)
		}},
		&probe{name: "Read", activate: func(_ *unit.Context, _ value.Var) (value.Var, error) {
			return source.Get()
		}},
	))
	warm(t, w, value.Of(value.Int))
	require.NoError(t, target.Acquire(w.Scope()))
	require.NoError(t, source.Acquire(w.Scope()))

	for i := int64(0); i < 5; i++ {
		res := w.Tick(value.IntVar(i))
		require.True(t, res.IsSuccess())
		assert.True(t, res.Result().Equal(value.IntVar(i)))
	}
	require.NoError(t, target.Release())
	require.NoError(t, source.Release())
	require.NoError(t, w.Cleanup())
}

func TestWire_TickStopsAtFirstError(t *testing.T) {
	var log []string
	w := New("err", probes(&log,
		&probe{name: "A", activate: func(*unit.Context, value.Var) (value.Var, error) {
			return value.NoneVar(), shard.DependencyError("UI.Parents")
		}},
		&probe{name: "B"},
	))
	warm(t, w, value.Of(value.None))

	res := w.Tick(value.NoneVar())
	assert.True(t, res.IsFailure())
	assert.ErrorIs(t, res.Err(), shard.ErrDependencyUnavailable)
	assert.True(t, shard.IsRecoverable(res.Err()))
	assert.NotContains(t, log, "activate B")

	// The wire stays usable for the next tick.
	res = w.Tick(value.NoneVar())
	assert.ErrorIs(t, res.Err(), shard.ErrDependencyUnavailable)
	assert.Equal(t, int64(2), w.Ticks())
	require.NoError(t, w.Cleanup())
}

func TestWire_WarmupRollback(t *testing.T) {
	var log []string
	w := New("rollback", probes(&log,
		&probe{name: "A"},
		&probe{name: "B", warmErr: errors.New("unreachable")},
	))
	_, err := w.Compose(value.Of(value.None))
	require.NoError(t, err)

	err = w.Warmup(unit.NewContext(context.Background()))
	var ue *shard.UnitError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, "B", ue.Unit)
	assert.Equal(t, []string{"warmup A", "cleanup A"}, log)
	assert.False(t, w.Warm())

	res := w.Tick(value.NoneVar())
	assert.ErrorIs(t, res.Err(), shard.ErrNotWarm)
}

func TestWire_RequiredVariablesSkipExposed(t *testing.T) {
	var log []string
	w := New("req", probes(&log,
		&probe{name: "Root", exposed: []param.Requirement{{Name: "UI.Parents"}}},
		&probe{name: "Image", requires: []param.Requirement{{Name: "UI.Parents"}, {Name: "Other"}}},
	))
	reqs := w.RequiredVariables()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Other", reqs[0].Name)

	_, err := w.Compose(value.Of(value.None))
	require.NoError(t, err)
	require.Len(t, w.Exposed(), 1)
}

func TestWire_PureScopeIgnoresParent(t *testing.T) {
	var log []string
	w := New("pure", probes(&log, &probe{name: "A"}), Pure())
	parent := warm(t, w, value.Of(value.None))
	parent.Reference("outer").Set(value.IntVar(1))

	_, found := w.Scope().Lookup("outer")
	assert.False(t, found)
	require.NoError(t, w.Cleanup())
}

func TestWire_DisposeCleansUpAndDrops(t *testing.T) {
	var log []string
	w := New("dispose", probes(&log, &probe{name: "A"}, &probe{name: "B"}))
	warm(t, w, value.Of(value.None))

	require.NoError(t, w.Dispose())
	assert.False(t, w.Warm())
	assert.Equal(t, []string{"warmup A", "warmup B", "cleanup B", "cleanup A"}, log)

	_, err := w.Compose(value.Of(value.None))
	assert.ErrorIs(t, err, shard.ErrDropped)
}
