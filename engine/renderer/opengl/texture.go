package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
)

type glTexture struct {
	Handle uint32
	Info   metadata.TextureInfo
	Levels int32
	format textureFormat
}

func textureCreate(info metadata.TextureInfo, data []byte) (*glTexture, error) {
	tf, ok := lookupTextureFormat(info.Format)
	if !ok {
		return nil, fmt.Errorf("unknown texture format %s", info.Format)
	}
	if info.Width == 0 || info.Height == 0 {
		return nil, fmt.Errorf("texture size %dx%d", info.Width, info.Height)
	}
	levels := info.MipLevels()
	if info.Framebuffer || info.Format.IsDepth() || info.Format.HasStencil() {
		levels = 1
	}

	tex := &glTexture{Info: info, Levels: int32(levels), format: tf}
	gl.CreateTextures(gl.TEXTURE_2D, 1, &tex.Handle)
	if tex.Handle == 0 {
		return nil, fmt.Errorf("glCreateTextures returned no texture")
	}
	gl.TextureStorage2D(tex.Handle, tex.Levels, tf.internal, int32(info.Width), int32(info.Height))
	gl.TextureParameteri(tex.Handle, gl.TEXTURE_MAX_LEVEL, tex.Levels-1)
	if tf.swizzle != nil && !info.Framebuffer {
		gl.TextureParameteriv(tex.Handle, gl.TEXTURE_SWIZZLE_RGBA, &tf.swizzle[0])
	}

	if len(data) > 0 {
		if err := tex.Update(0, 0, info.Width, info.Height, data); err != nil {
			tex.Destroy()
			return nil, err
		}
	}
	core.LogDebug("Texture created: %dx%d %s, %d levels.", info.Width, info.Height, info.Format, levels)
	return tex, nil
}

// Update replaces a region of the base level and regenerates the mip chain.
func (t *glTexture) Update(x, y, width, height uint32, data []byte) error {
	if t.Info.Format.IsDepth() || t.Info.Format.HasStencil() {
		return fmt.Errorf("%s textures can only be rendered to", t.Info.Format)
	}
	if x+width > t.Info.Width || y+height > t.Info.Height {
		return fmt.Errorf("region %dx%d at (%d,%d) is outside the %dx%d texture", width, height, x, y, t.Info.Width, t.Info.Height)
	}
	bpp := t.Info.Format.BytesPerPixel()
	if want := width * height * bpp; uint32(len(data)) < want {
		return fmt.Errorf("texture data has %d bytes, %d needed", len(data), want)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, unpackAlignment(width, bpp))
	gl.TextureSubImage2D(t.Handle, 0, int32(x), int32(y), int32(width), int32(height), t.format.format, t.format.xtype, gl.Ptr(data))
	if t.Levels > 1 {
		gl.GenerateTextureMipmap(t.Handle)
	}
	return nil
}

func (t *glTexture) Destroy() {
	if t.Handle != 0 {
		gl.DeleteTextures(1, &t.Handle)
		t.Handle = 0
	}
}

func samplerCreate(info metadata.SamplerInfo, maxAnisotropy float32) uint32 {
	var sampler uint32
	gl.CreateSamplers(1, &sampler)
	for _, p := range samplerParams(info, maxAnisotropy) {
		if p.float {
			gl.SamplerParameterf(sampler, p.pname, p.f)
			continue
		}
		gl.SamplerParameteri(sampler, p.pname, p.i)
	}
	return sampler
}
