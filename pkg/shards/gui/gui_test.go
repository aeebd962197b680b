package gui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/scope"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
	"github.com/ib-77/shardwire/pkg/shard/wire"
	"github.com/ib-77/shardwire/pkg/shards/general"
	"github.com/ib-77/shardwire/pkg/shards/gfx"
)

func newRegistry(t *testing.T) *unit.Registry {
	t.Helper()
	reg := unit.NewRegistry("test")
	require.NoError(t, general.Module(reg))
	require.NoError(t, gfx.Module(reg))
	require.NoError(t, Module(reg))
	return reg
}

func build(t *testing.T, reg *unit.Registry, name string, params map[string]value.Var) *unit.Instance {
	t.Helper()
	inst, err := reg.Build(name, params)
	require.NoError(t, err)
	return inst
}

func warmWire(t *testing.T, instances ...*unit.Instance) *wire.Wire {
	t.Helper()
	w := wire.New(t.Name(), instances)
	_, err := w.Compose(value.Of(value.None))
	require.NoError(t, err)
	require.NoError(t, w.Warmup(unit.NewContext(context.Background())))
	t.Cleanup(func() { _ = w.Cleanup() })
	return w
}

func drawList(t *testing.T, w *wire.Wire) *DrawList {
	t.Helper()
	v, ok := w.Scope().Lookup(ParentsVar)
	require.True(t, ok)
	dl, err := value.Borrow[*DrawList](v.Get(), UIKind)
	require.NoError(t, err)
	return dl
}

func TestImage_ScaledSize(t *testing.T) {
	reg := newRegistry(t)
	img := build(t, reg, "UI.Image", map[string]value.Var{"Scale": value.Float2Var(1.5, 1.5)})
	w := warmWire(t,
		build(t, reg, "UI.Root", nil),
		build(t, reg, "Const", map[string]value.Var{"Value": value.ImageVar(value.NewImage(100, 50))}),
		img,
	)
	assert.Equal(t, "image", img.Unit().(*Image).Specialization())

	require.NoError(t, w.Tick(value.NoneVar()).Err())

	width, height := img.Unit().(*Image).Size()
	assert.Equal(t, 150.0, width)
	assert.Equal(t, 75.0, height)

	items := drawList(t, w).Items()
	require.Len(t, items, 1)
	assert.Equal(t, "image", items[0].Kind)
	assert.Equal(t, 150.0, items[0].Width)
	assert.Equal(t, 75.0, items[0].Height)
}

func TestImage_ScaleFromVariable(t *testing.T) {
	reg := newRegistry(t)
	img := build(t, reg, "UI.Image", map[string]value.Var{"Scale": value.Ref("zoom")})
	w := warmWire(t,
		build(t, reg, "Const", map[string]value.Var{"Value": value.Float2Var(2, 3)}),
		build(t, reg, "Set", map[string]value.Var{"Name": value.Ref("zoom")}),
		build(t, reg, "UI.Root", nil),
		build(t, reg, "Const", map[string]value.Var{"Value": value.ImageVar(value.NewImage(10, 10))}),
		img,
	)
	require.NoError(t, w.Tick(value.NoneVar()).Err())

	width, height := img.Unit().(*Image).Size()
	assert.Equal(t, 20.0, width)
	assert.Equal(t, 30.0, height)
}

func TestImage_AbsentParentLeavesStateAlone(t *testing.T) {
	reg := newRegistry(t)
	s := scope.New("frame")
	c := unit.NewContext(context.Background(), unit.WithScope(s))

	first := build(t, reg, "UI.Image", map[string]value.Var{"Scale": value.Float2Var(2, 2)})
	second := build(t, reg, "UI.Image", nil)
	for _, inst := range []*unit.Instance{first, second} {
		_, err := inst.Compose(unit.ComposeData{InputType: value.Of(value.Image)})
		require.NoError(t, err)
		require.NoError(t, inst.Warmup(c))
	}

	pixels := value.NewImage(4, 4)
	input := value.ImageVar(pixels)
	for _, inst := range []*unit.Instance{first, second} {
		_, err := inst.Activate(c, input)
		assert.ErrorIs(t, err, shard.ErrDependencyUnavailable)
		assert.True(t, shard.IsRecoverable(err))

		width, height := inst.Unit().(*Image).Size()
		assert.Zero(t, width)
		assert.Zero(t, height)
	}

	v, ok := s.Lookup(ParentsVar)
	require.True(t, ok)
	assert.True(t, v.Get().IsNone(), "the shared binding stays empty")
	assert.Equal(t, make([]byte, 4*4*4), pixels.Pixels)

	// The dependency appearing later makes the same units succeed.
	list := WrapDrawList(NewDrawList())
	v.Set(list)
	require.NoError(t, list.Release())
	for _, inst := range []*unit.Instance{first, second} {
		_, err := inst.Activate(c, input)
		require.NoError(t, err)
	}
	dl, err := value.Borrow[*DrawList](v.Get(), UIKind)
	require.NoError(t, err)
	assert.Len(t, dl.Items(), 2)

	require.NoError(t, second.Cleanup(c))
	require.NoError(t, first.Cleanup(c))
}

func TestImage_MismatchKeepsRefcount(t *testing.T) {
	reg := newRegistry(t)
	s := scope.New("frame")
	c := unit.NewContext(context.Background(), unit.WithScope(s))

	inst := build(t, reg, "UI.Image", nil)
	_, err := inst.Compose(unit.ComposeData{InputType: value.Of(value.Image)})
	require.NoError(t, err)
	require.NoError(t, inst.Warmup(c))
	defer func() { _ = inst.Cleanup(c) }()

	list := WrapDrawList(NewDrawList())
	s.Reference(ParentsVar).Set(list)

	tex, err := gfx.Upload(value.NewImage(2, 2), 0, 0)
	require.NoError(t, err)
	texture := gfx.WrapTexture(tex)
	defer texture.Release()

	before := texture.Handle().Refs()
	_, err = inst.Activate(c, texture)
	assert.ErrorIs(t, err, shard.ErrSpecializationMismatch)
	assert.ErrorIs(t, err, shard.ErrResourceTypeMismatch)
	assert.Equal(t, before, texture.Handle().Refs())

	// A parent variable holding the wrong kind of object.
	s.Reference(ParentsVar).Set(texture)
	before = texture.Handle().Refs()
	listRefs := list.Handle().Refs()
	_, err = inst.Activate(c, value.ImageVar(value.NewImage(1, 1)))
	assert.ErrorIs(t, err, shard.ErrResourceTypeMismatch)
	assert.Equal(t, before, texture.Handle().Refs())
	assert.Equal(t, listRefs, list.Handle().Refs())
	require.NoError(t, list.Release())
}

func TestImage_TextureSpecialization(t *testing.T) {
	reg := newRegistry(t)
	img := build(t, reg, "UI.Image", map[string]value.Var{"Scale": value.Float2Var(0.5, 0.5)})
	texUnit := build(t, reg, "GFX.Texture", nil)
	w := warmWire(t,
		build(t, reg, "UI.Root", nil),
		build(t, reg, "Const", map[string]value.Var{"Value": value.ImageVar(value.NewImage(8, 6))}),
		texUnit,
		img,
	)
	assert.Equal(t, "texture", img.Unit().(*Image).Specialization())
	assert.Equal(t, value.ObjectOf(gfx.TextureKind), w.OutputType())

	out, err := w.Tick(value.NoneVar()).Unpack()
	require.NoError(t, err)
	h := out.Handle()
	require.NotNil(t, h)
	assert.Equal(t, int32(2), h.Refs(), "texture unit and draw list")

	require.NoError(t, w.Tick(value.NoneVar()).Err())
	assert.Equal(t, int32(2), h.Refs(), "previous frame released its reference")

	items := drawList(t, w).Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4.0, items[0].Width)
	assert.Equal(t, 3.0, items[0].Height)
	assert.Equal(t, 2, drawList(t, w).Frames())
}

func TestImage_ComposeRejectsOtherInputs(t *testing.T) {
	reg := newRegistry(t)
	inst := build(t, reg, "UI.Image", nil)
	_, err := inst.Compose(unit.ComposeData{InputType: value.Of(value.Int)})
	assert.ErrorIs(t, err, shard.ErrBuildTimeType)
	assert.Empty(t, inst.Unit().(*Image).Specialization())
}
