package gfx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

func warm(t *testing.T, params map[string]value.Var) (*unit.Instance, *unit.Context) {
	t.Helper()
	reg := unit.NewRegistry("test")
	require.NoError(t, Module(reg))
	inst, err := reg.Build("GFX.Texture", params)
	require.NoError(t, err)
	_, err = inst.Compose(unit.ComposeData{InputType: value.Of(value.Image)})
	require.NoError(t, err)
	c := unit.NewContext(context.Background())
	require.NoError(t, inst.Warmup(c))
	return inst, c
}

func TestUpload_ConvertsChannels(t *testing.T) {
	rgb := &value.ImageData{Width: 1, Height: 1, Channels: 3, Pixels: []byte{10, 20, 30}}
	tex, err := Upload(rgb, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(10), tex.At(0, 0).R)
	assert.Equal(t, uint8(0xff), tex.At(0, 0).A)

	half := &value.ImageData{Width: 1, Height: 1, Channels: 4, Pixels: []byte{200, 100, 0, 128}}
	tex, err = Upload(half, 0, 0)
	require.NoError(t, err)
	assert.Less(t, tex.At(0, 0).R, uint8(200), "straight alpha gets premultiplied")

	half.Flags = value.PremultipliedAlpha
	tex, err = Upload(half, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint8(200), tex.At(0, 0).R)

	_, err = Upload(&value.ImageData{Width: 2, Height: 2, Channels: 4, Pixels: make([]byte, 3)}, 0, 0)
	assert.Error(t, err)
}

func TestUpload_Resamples(t *testing.T) {
	tex, err := Upload(value.NewImage(100, 50), 20, 10)
	require.NoError(t, err)
	assert.Equal(t, 20, tex.Width())
	assert.Equal(t, 10, tex.Height())
}

func TestTexture_CachedOnBufferIdentity(t *testing.T) {
	inst, c := warm(t, nil)

	img := value.NewImage(4, 4)
	first, err := inst.Activate(c, value.ImageVar(img))
	require.NoError(t, err)
	again, err := inst.Activate(c, value.ImageVar(img))
	require.NoError(t, err)
	assert.True(t, first.Equal(again), "same buffer, same texture")

	other, err := inst.Activate(c, value.ImageVar(value.NewImage(4, 4)))
	require.NoError(t, err)
	assert.False(t, first.Equal(other))
	assert.False(t, first.Handle().Alive(), "replaced texture is released")

	require.NoError(t, inst.Cleanup(c))
	assert.False(t, other.Handle().Alive())
}

func TestTexture_KeptTextureSurvivesCleanup(t *testing.T) {
	inst, c := warm(t, map[string]value.Var{"Size": value.Float2Var(2, 2)})

	out, err := inst.Activate(c, value.ImageVar(value.NewImage(8, 8)))
	require.NoError(t, err)
	kept := out.Clone()
	require.NoError(t, inst.Cleanup(c))

	tex, err := value.Borrow[*Texture](kept, TextureKind)
	require.NoError(t, err)
	assert.Equal(t, 2, tex.Width())

	owned, err := value.UnwrapOwned[*Texture](kept, TextureKind)
	require.NoError(t, err)
	assert.Same(t, tex, owned, "sole owner moves the payload out")
	assert.False(t, kept.Handle().Alive())
}

func TestTexture_InvalidImage(t *testing.T) {
	inst, c := warm(t, nil)
	_, err := inst.Activate(c, value.ImageVar(&value.ImageData{Width: 3, Height: 3, Channels: 4}))
	assert.ErrorIs(t, err, shard.ErrResourceTypeMismatch)
	require.NoError(t, inst.Cleanup(c))
}
