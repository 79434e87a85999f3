package assets

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 0, 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestDetermineAssetType(t *testing.T) {
	assert.Equal(t, AssetTypeImage, DetermineAssetType("textures/wall.PNG"))
	assert.Equal(t, AssetTypeImage, DetermineAssetType("a.tiff"))
	assert.Equal(t, AssetTypeShader, DetermineAssetType("cube.vert.wgsl"))
	assert.Equal(t, AssetTypeBinary, DetermineAssetType("mesh.bin"))
	assert.Equal(t, AssetTypeNone, DetermineAssetType("README.md"))
	assert.Equal(t, "image", AssetTypeImage.String())
}

func TestAssetManagerIndexAndLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "bricks"), 0o755))
	writePNG(t, filepath.Join(dir, "bricks", "wall.png"), 4, 2)
	writePNG(t, filepath.Join(dir, "floor.png"), 2, 2)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), []byte{1, 2, 3}, 0o644))

	am, err := NewAssetManager(dir, false, nil)
	require.NoError(t, err)
	defer am.Close()

	images := am.Find(AssetTypeImage)
	require.Len(t, images, 2)
	assert.Equal(t, "bricks/wall.png", images[0].Path)
	assert.Equal(t, "floor.png", images[1].Path)

	v, err := am.Load("bricks/wall.png")
	require.NoError(t, err)
	img := v.(*image.RGBA)
	assert.Equal(t, image.Rect(0, 0, 4, 2), img.Rect)
	assert.Equal(t, color.RGBA{3, 1, 0, 255}, img.RGBAAt(3, 1))
	assert.False(t, am.Find(AssetTypeImage)[0].LastLoaded.IsZero())

	data, err := am.Load("data.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, data)

	_, err = am.Load("notes.txt")
	assert.Error(t, err)

	_, err = NewAssetManager(filepath.Join(dir, "missing"), false, nil)
	assert.Error(t, err)
}

func TestImageLoaderFlipY(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grad.png")
	writePNG(t, path, 2, 3)

	v, err := (&ImageLoader{FlipY: true}).Load(path)
	require.NoError(t, err)
	img := v.(*image.RGBA)
	assert.Equal(t, uint8(2), img.RGBAAt(0, 0).G)
	assert.Equal(t, uint8(0), img.RGBAAt(0, 2).G)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not an image"), 0o644))
	_, err = (&ImageLoader{}).Load(filepath.Join(dir, "bad.png"))
	assert.ErrorIs(t, err, ErrUnsupportedAsset)
}

func TestAssetManagerWatch(t *testing.T) {
	dir := t.TempDir()
	changes := make(chan AssetInfo, 8)
	am, err := NewAssetManager(dir, true, func(info AssetInfo) { changes <- info })
	require.NoError(t, err)
	defer am.Close()

	writePNG(t, filepath.Join(dir, "new.png"), 1, 1)
	select {
	case info := <-changes:
		assert.Equal(t, "new.png", info.Path)
		assert.Equal(t, AssetTypeImage, info.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no change reported")
	}
	assert.Eventually(t, func() bool { return len(am.Find(AssetTypeImage)) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(dir, "new.png")))
	assert.Eventually(t, func() bool { return len(am.Find(AssetTypeImage)) == 0 }, 2*time.Second, 10*time.Millisecond)
}
