package param

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

type fixture struct {
	url     ParamVar
	timeout value.Var
	set     *Set
}

func newFixture() *fixture {
	f := &fixture{url: NewConstant(value.StringVar("ws://localhost")), timeout: value.FloatVar(1)}
	f.set = NewSet(
		Bind(Info{Name: "URL", Types: value.Types{value.StringTypes[0], value.VarOf(value.Of(value.String))}}, &f.url),
		Literal(Info{Name: "Timeout", Types: value.FloatTypes}, &f.timeout),
	)
	return f
}

func TestSet_ConstantEcho(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		f := newFixture()
		s := rapid.String().Draw(t, "url")
		d := rapid.Float64Range(-1e9, 1e9).Draw(t, "timeout")

		require.NoError(t, f.set.SetParam(0, value.StringVar(s)))
		require.NoError(t, f.set.SetParam(1, value.FloatVar(d)))

		got, err := f.set.Get(0)
		require.NoError(t, err)
		assert.True(t, got.Equal(value.StringVar(s)))
		got, err = f.set.Get(1)
		require.NoError(t, err)
		assert.True(t, got.Equal(value.FloatVar(d)))
	})
}

func TestSet_InvalidIndex(t *testing.T) {
	f := newFixture()
	for _, i := range []int{-1, 2, 100} {
		assert.ErrorIs(t, f.set.SetParam(i, value.StringVar("x")), shard.ErrInvalidIndex)
		_, err := f.set.Get(i)
		assert.ErrorIs(t, err, shard.ErrInvalidIndex)
	}
}

func TestSet_WrongTypeLeavesValue(t *testing.T) {
	f := newFixture()
	err := f.set.SetParam(0, value.IntVar(4))
	assert.ErrorIs(t, err, shard.ErrInvalidParamType)
	assert.ErrorIs(t, err, shard.ErrParameter)

	got, _ := f.set.Get(0)
	assert.True(t, got.Equal(value.StringVar("ws://localhost")))
}

func TestSet_Infos(t *testing.T) {
	f := newFixture()
	infos := f.set.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "URL", infos[0].Name)
	assert.Equal(t, "Timeout", infos[1].Name)
	assert.Equal(t, 2, f.set.Len())
}

func TestSet_Validate(t *testing.T) {
	require.NoError(t, newFixture().set.Validate())

	var p ParamVar
	bad := NewSet(
		Bind(Info{Name: "A", Types: value.AnyTypes}, &p),
		Bind(Info{Name: "A", Types: value.AnyTypes}, &p),
		Bind(Info{Name: "", Types: value.AnyTypes}, &p),
		Bind(Info{Name: "B"}, &p),
	)
	err := bad.Validate()
	assert.ErrorIs(t, err, shard.ErrParameter)
	assert.Contains(t, err.Error(), `"A" declared twice`)
	assert.Contains(t, err.Error(), "no name")
	assert.Contains(t, err.Error(), "declares no types")
}

func TestParamVar_VariableReadsLatestWrite(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		sc := scope.New("wire")
		reader := NewVariable("counter")
		writer := NewVariable("counter")
		require.NoError(t, reader.Acquire(sc))
		require.NoError(t, writer.Acquire(sc))

		n := rapid.IntRange(1, 20).Draw(t, "writes")
		for i := 0; i < n; i++ {
			x := rapid.Int64().Draw(t, "x")
			require.NoError(t, writer.Write(value.IntVar(x)))
			got, err := reader.Get()
			require.NoError(t, err)
			v, err := got.AsInt()
			require.NoError(t, err)
			assert.Equal(t, x, v)
		}

		require.NoError(t, writer.Release())
		require.NoError(t, reader.Release())
		assert.Empty(t, sc.Names(), "last release destroys the variable")
	})
}

func TestParamVar_OutsideWarmWindow(t *testing.T) {
	p := NewVariable("x")
	_, err := p.Get()
	assert.ErrorIs(t, err, shard.ErrNotAcquired)
	assert.ErrorIs(t, p.Write(value.IntVar(1)), shard.ErrNotAcquired)
	assert.ErrorIs(t, p.Release(), shard.ErrNotAcquired)

	sc := scope.New("wire")
	require.NoError(t, p.Acquire(sc))
	require.NoError(t, p.Release())
	_, err = p.Get()
	assert.ErrorIs(t, err, shard.ErrNotAcquired)
}

func TestParamVar_ConstantIsNotWritable(t *testing.T) {
	p := NewConstant(value.IntVar(3))
	require.NoError(t, p.Acquire(scope.New("wire")))
	assert.ErrorIs(t, p.Write(value.IntVar(4)), shard.ErrNotWritable)

	got, err := p.Get()
	require.NoError(t, err)
	assert.True(t, got.Equal(value.IntVar(3)))
}

func TestParamVar_AcquireTwice(t *testing.T) {
	p := NewVariable("x")
	a, b := scope.New("a"), scope.New("b")
	require.NoError(t, p.Acquire(a))
	require.NoError(t, p.Acquire(a))
	assert.ErrorIs(t, p.Acquire(b), shard.ErrAlreadyAcquired)
}

func TestParamVar_SetParamWhileAcquired(t *testing.T) {
	p := NewConstant(value.IntVar(1))
	require.NoError(t, p.Acquire(scope.New("wire")))
	assert.ErrorIs(t, p.SetParam(value.IntVar(2)), shard.ErrParamWhileWarm)
	require.NoError(t, p.Release())
	require.NoError(t, p.SetParam(value.IntVar(2)))
	assert.True(t, p.Param().Equal(value.IntVar(2)))
}

func TestSet_WarmupRollsBackAndCleansUpInReverse(t *testing.T) {
	var order []string
	track := func(name string, fail bool) Binding {
		v := value.NoneVar()
		b := Literal(Info{Name: name, Types: value.AnyTypes}, &v)
		b.Warmup = func(*scope.Scope) error {
			if fail {
				return assert.AnError
			}
			order = append(order, "warm "+name)
			return nil
		}
		b.Cleanup = func() error {
			order = append(order, "clean "+name)
			return nil
		}
		return b
	}

	set := NewSet(track("a", false), track("b", false), track("c", true))
	err := set.Warmup(scope.New("wire"))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, []string{"warm a", "warm b", "clean b", "clean a"}, order)

	order = nil
	set = NewSet(track("a", false), track("b", false))
	require.NoError(t, set.Warmup(scope.New("wire")))
	require.NoError(t, set.Cleanup())
	assert.Equal(t, []string{"warm a", "warm b", "clean b", "clean a"}, order)
}

func TestSet_DropReleasesLiterals(t *testing.T) {
	kind := value.NewObjectType("test", "obj_")
	drops := 0
	wrap := func() value.Var {
		return value.Wrap(struct{}{}, kind, value.WithDrop(func(any) { drops++ }))
	}

	var bound ParamVar
	var lit value.Var
	s := NewSet(
		Bind(Info{Name: "Bound", Types: value.AnyTypes}, &bound),
		Literal(Info{Name: "Literal", Types: value.AnyTypes}, &lit),
	)

	a, b := wrap(), wrap()
	require.NoError(t, s.SetParam(0, a))
	require.NoError(t, s.SetParam(1, b))
	require.NoError(t, a.Release())
	require.NoError(t, b.Release())
	assert.Equal(t, 0, drops, "literals hold their own reference")

	dead := wrap()
	require.NoError(t, dead.Release())
	assert.ErrorIs(t, s.SetParam(0, dead), shard.ErrHandleReleased)
	assert.ErrorIs(t, s.SetParam(1, dead), shard.ErrHandleReleased)
	assert.Equal(t, 1, drops)

	require.NoError(t, s.Warmup(scope.New("test")))
	assert.ErrorIs(t, s.Drop(), shard.ErrParamWhileWarm)
	require.NoError(t, s.Cleanup())

	require.NoError(t, s.Drop())
	assert.Equal(t, 3, drops)
	assert.True(t, bound.Param().IsNone())
	assert.True(t, lit.IsNone())
}

func TestSet_RequiredVariables(t *testing.T) {
	f := newFixture()
	assert.Empty(t, f.set.RequiredVariables())

	require.NoError(t, f.set.SetParam(0, value.Ref("server")))
	reqs := f.set.RequiredVariables()
	require.Len(t, reqs, 1)
	assert.Equal(t, "server", reqs[0].Name)
	assert.Equal(t, value.Types{value.Of(value.String)}, reqs[0].Types)
}
