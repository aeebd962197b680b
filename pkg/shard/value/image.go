package value

import "fmt"

// Image flags
const (
	// PremultipliedAlpha marks pixels whose color channels are already
	// multiplied by alpha.
	PremultipliedAlpha uint8 = 1 << iota
)

// ImageData is a raw, host-side pixel buffer.
type ImageData struct {
	Width    int
	Height   int
	Channels int
	Flags    uint8
	Pixels   []byte
}

// NewImage allocates a zeroed RGBA buffer.
func NewImage(width, height int) *ImageData {
	return &ImageData{
		Width:    width,
		Height:   height,
		Channels: 4,
		Pixels:   make([]byte, width*height*4),
	}
}

// Premultiplied reports whether the PremultipliedAlpha flag is set.
func (img *ImageData) Premultiplied() bool {
	return img.Flags&PremultipliedAlpha == PremultipliedAlpha
}

// Validate checks that the buffer holds width*height*channels bytes.
func (img *ImageData) Validate() error {
	if img.Width < 0 || img.Height < 0 || img.Channels <= 0 {
		return fmt.Errorf("invalid image geometry %dx%dx%d", img.Width, img.Height, img.Channels)
	}
	if want := img.Width * img.Height * img.Channels; len(img.Pixels) != want {
		return fmt.Errorf("image buffer holds %d bytes, want %d", len(img.Pixels), want)
	}
	return nil
}
