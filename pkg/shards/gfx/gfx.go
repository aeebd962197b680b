package gfx

import (
	"github.com/ib-77/shardwire/pkg/shard"
	"github.com/ib-77/shardwire/pkg/shard/param"
	"github.com/ib-77/shardwire/pkg/shard/unit"
	"github.com/ib-77/shardwire/pkg/shard/value"
)

// TextureUnit uploads its Image input as a texture. The texture is cached on
// the identity of the pixel buffer: feeding the same buffer again returns
// the same object without converting.
type TextureUnit struct {
	size   value.Var
	params *param.Set

	source  *value.ImageData
	pixels  *byte
	texture value.Var
}

func NewTexture() unit.Unit {
	u := &TextureUnit{size: value.Float2Var(0, 0)}
	u.params = param.NewSet(param.Literal(param.Info{
		Name:  "Size",
		Help:  "Resample to this size. (0 0) keeps the image size.",
		Types: value.Float2Types,
	}, &u.size))
	return u
}

func (u *TextureUnit) Name() string { return "GFX.Texture" }
func (u *TextureUnit) Help() string {
	return "Converts an image into a texture object."
}
func (u *TextureUnit) InputTypes() value.Types  { return value.ImageTypes }
func (u *TextureUnit) OutputTypes() value.Types { return value.Types{value.ObjectOf(TextureKind)} }
func (u *TextureUnit) Parameters() *param.Set   { return u.params }

func (u *TextureUnit) Activate(c *unit.Context, input value.Var) (value.Var, error) {
	img, err := input.AsImage()
	if err != nil {
		return value.NoneVar(), err
	}
	if u.cached(img) {
		return u.texture, nil
	}

	w, h, _ := u.size.AsFloat2()
	tex, err := Upload(img, int(w), int(h))
	if err != nil {
		return value.NoneVar(), shard.MismatchError("image: %v", err)
	}
	u.reset()
	u.texture = WrapTexture(tex)
	u.source = img
	if len(img.Pixels) > 0 {
		u.pixels = &img.Pixels[0]
	}
	c.Logger().Debug("texture uploaded", "width", tex.Width(), "height", tex.Height())
	return u.texture, nil
}

func (u *TextureUnit) cached(img *value.ImageData) bool {
	if u.texture.IsNone() || u.source != img {
		return false
	}
	if len(img.Pixels) == 0 {
		return u.pixels == nil
	}
	return u.pixels == &img.Pixels[0]
}

func (u *TextureUnit) reset() {
	_ = u.texture.Release()
	u.texture, u.source, u.pixels = value.NoneVar(), nil, nil
}

func (u *TextureUnit) Cleanup(*unit.Context) error {
	u.reset()
	return nil
}

// Module registers the graphics units.
func Module(r *unit.Registry) error {
	return r.Register(NewTexture)
}
