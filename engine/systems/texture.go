package systems

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"path"
	"strings"
	"sync"

	"github.com/spaghettifunk/prism/engine/assets"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/renderer"
	"github.com/spaghettifunk/prism/engine/renderer/metadata"
	"golang.org/x/image/draw"
)

const (
	CheckerTextureName = "checker"
	WhiteTextureName   = "white"

	defaultTextureSize = 256
)

type TextureSystemConfig struct {
	/** @brief The maximum number of textures that can be registered at once. */
	MaxTextureCount uint32
}

/**
 * @brief TextureSystem owns named textures uploaded from images together
 * with a few generated defaults.
 */
type TextureSystem struct {
	Config *TextureSystemConfig
	// Hashtable for texture lookups.
	RegisteredTextureTable map[string]metadata.TextureHandle

	renderer *renderer.Renderer
	assets   *assets.AssetManager

	mu      sync.Mutex
	changed []string
}

func NewTextureSystem(config *TextureSystemConfig, r *renderer.Renderer) (*TextureSystem, error) {
	if config.MaxTextureCount == 0 {
		err := fmt.Errorf("func NewTextureSystem - config.MaxTextureCount must be > 0")
		core.LogError(err.Error())
		return nil, err
	}

	ts := &TextureSystem{
		Config:                 config,
		RegisteredTextureTable: make(map[string]metadata.TextureHandle),
		renderer:               r,
	}
	if err := ts.createDefaultTextures(); err != nil {
		return nil, err
	}
	return ts, nil
}

func (ts *TextureSystem) createDefaultTextures() error {
	white := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(white, white.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if _, err := ts.Register(WhiteTextureName, white, false); err != nil {
		return err
	}

	checker := CheckerImage(defaultTextureSize, 8, color.RGBA{255, 255, 255, 255}, color.RGBA{40, 40, 160, 255})
	_, err := ts.Register(CheckerTextureName, checker, true)
	return err
}

// CheckerImage draws a cells x cells checkerboard and scales it to size
// pixels without filtering.
func CheckerImage(size, cells int, a, b color.RGBA) *image.RGBA {
	small := image.NewRGBA(image.Rect(0, 0, cells, cells))
	for y := 0; y < cells; y++ {
		for x := 0; x < cells; x++ {
			if (x+y)%2 == 0 {
				small.SetRGBA(x, y, a)
			} else {
				small.SetRGBA(x, y, b)
			}
		}
	}
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), small, small.Bounds(), draw.Src, nil)
	return dst
}

// ToRGBA converts any image into tightly packed RGBA8 pixels.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) && rgba.Stride == 4*rgba.Rect.Dx() {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

/**
 * @brief Register uploads img as an RGBA8 texture under name.
 *
 * Registering an existing name replaces the previous texture.
 */
func (ts *TextureSystem) Register(name string, img image.Image, mipmaps bool) (metadata.TextureHandle, error) {
	old, exists := ts.RegisteredTextureTable[name]
	if !exists && uint32(len(ts.RegisteredTextureTable)) >= ts.Config.MaxTextureCount {
		return metadata.InvalidTexture, fmt.Errorf("texture system is full, cannot register %q", name)
	}
	rgba := ToRGBA(img)
	h := ts.renderer.CreateTexture(metadata.TextureInfo{
		Width:           uint32(rgba.Rect.Dx()),
		Height:          uint32(rgba.Rect.Dy()),
		Format:          metadata.TextureFormatRGBA8,
		GenerateMipmaps: mipmaps,
	}, metadata.CopyMemory(rgba.Pix))
	if exists {
		ts.renderer.DeleteTexture(old)
	}
	ts.RegisteredTextureTable[name] = h
	core.LogDebug("texture %s registered as %s (%dx%d)", name, h, rgba.Rect.Dx(), rgba.Rect.Dy())
	return h, nil
}

// Acquire returns the texture registered under name, or the checker
// texture.
func (ts *TextureSystem) Acquire(name string) metadata.TextureHandle {
	if h, ok := ts.RegisteredTextureTable[name]; ok {
		return h
	}
	core.WarnOnce("texture-missing:"+name, "texture %q is not registered, using the checker", name)
	return ts.RegisteredTextureTable[CheckerTextureName]
}

// TextureName is the name an image asset registers under: its path
// relative to the asset root without the extension.
func TextureName(assetPath string) string {
	return strings.TrimSuffix(assetPath, path.Ext(assetPath))
}

/**
 * @brief LoadDirectory registers every image under dir as a mipmapped
 * texture and returns how many were registered.
 *
 * With watch set, modified images are queued and re-uploaded by Update.
 */
func (ts *TextureSystem) LoadDirectory(dir string, watch bool) (int, error) {
	if ts.assets != nil {
		return 0, fmt.Errorf("texture directory already loaded")
	}
	am, err := assets.NewAssetManager(dir, watch, ts.onAssetChange)
	if err != nil {
		return 0, err
	}
	ts.assets = am

	var errs []error
	count := 0
	for _, info := range am.Find(assets.AssetTypeImage) {
		if err := ts.loadAsset(info.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		count++
	}
	core.LogInfo("loaded %d textures from %s", count, dir)
	return count, errors.Join(errs...)
}

func (ts *TextureSystem) loadAsset(assetPath string) error {
	v, err := ts.assets.Load(assetPath)
	if err != nil {
		return err
	}
	img, ok := v.(image.Image)
	if !ok {
		return fmt.Errorf("asset %s is not an image", assetPath)
	}
	_, err = ts.Register(TextureName(assetPath), img, true)
	return err
}

func (ts *TextureSystem) onAssetChange(info assets.AssetInfo) {
	if info.Type != assets.AssetTypeImage {
		return
	}
	ts.mu.Lock()
	ts.changed = append(ts.changed, info.Path)
	ts.mu.Unlock()
}

// Update re-uploads the images modified since the last call and returns
// how many were replaced.
func (ts *TextureSystem) Update() int {
	ts.mu.Lock()
	changed := ts.changed
	ts.changed = nil
	ts.mu.Unlock()

	reloaded := 0
	seen := make(map[string]bool, len(changed))
	for _, p := range changed {
		if seen[p] {
			continue
		}
		seen[p] = true
		if err := ts.loadAsset(p); err != nil {
			core.LogWarn("failed to reload texture %s: %s", p, err)
			continue
		}
		reloaded++
	}
	return reloaded
}

func (ts *TextureSystem) Shutdown() error {
	if ts.assets != nil {
		ts.assets.Close()
		ts.assets = nil
	}
	for name, h := range ts.RegisteredTextureTable {
		ts.renderer.DeleteTexture(h)
		delete(ts.RegisteredTextureTable, name)
	}
	return nil
}
