package gfx

import (
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/ib-77/shardwire/pkg/shard/value"
)

// TextureKind tags texture objects.
var TextureKind = value.NewObjectType("frag", "tex_")

// Texture is an uploaded, premultiplied RGBA surface.
type Texture struct {
	RGBA *image.RGBA
}

func (t *Texture) Width() int  { return t.RGBA.Rect.Dx() }
func (t *Texture) Height() int { return t.RGBA.Rect.Dy() }

// WrapTexture returns an object value owning tex. Shared textures are cloned
// by copying the pixels.
func WrapTexture(tex *Texture) value.Var {
	return value.Wrap(tex, TextureKind, value.WithClone(func(data any) (any, error) {
		src := data.(*Texture)
		dst := image.NewRGBA(src.RGBA.Rect)
		copy(dst.Pix, src.RGBA.Pix)
		return &Texture{RGBA: dst}, nil
	}))
}

// Upload converts a raw image into a texture. A non-zero size resamples the
// surface with a bilinear filter.
func Upload(img *value.ImageData, width, height int) (*Texture, error) {
	if err := img.Validate(); err != nil {
		return nil, err
	}
	src, err := toImage(img)
	if err != nil {
		return nil, err
	}

	if width <= 0 || height <= 0 {
		width, height = img.Width, img.Height
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == img.Width && height == img.Height {
		draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	} else {
		draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return &Texture{RGBA: dst}, nil
}

// toImage views the buffer as an image.Image without copying when the
// layout allows it.
func toImage(img *value.ImageData) (image.Image, error) {
	rect := image.Rect(0, 0, img.Width, img.Height)
	switch img.Channels {
	case 4:
		if img.Premultiplied() {
			return &image.RGBA{Pix: img.Pixels, Stride: img.Width * 4, Rect: rect}, nil
		}
		return &image.NRGBA{Pix: img.Pixels, Stride: img.Width * 4, Rect: rect}, nil
	case 1:
		return &image.Gray{Pix: img.Pixels, Stride: img.Width, Rect: rect}, nil
	case 3:
		out := image.NewNRGBA(rect)
		for i, j := 0, 0; i < len(img.Pixels); i, j = i+3, j+4 {
			out.Pix[j] = img.Pixels[i]
			out.Pix[j+1] = img.Pixels[i+1]
			out.Pix[j+2] = img.Pixels[i+2]
			out.Pix[j+3] = 0xff
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported channel count %d", img.Channels)
	}
}

// At is a convenience for tests and debugging.
func (t *Texture) At(x, y int) color.RGBA {
	return t.RGBA.RGBAAt(x, y)
}
