// Package gfx provides the texture object (frag/tex_) and the GFX.Texture
// unit uploading raw images into it.
package gfx
