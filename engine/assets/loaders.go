package assets

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// Loader turns the file at an absolute path into an in-memory asset.
type Loader interface {
	Load(path string) (any, error)
}

/**
 * @brief ImageLoader decodes PNG, JPEG, BMP and TIFF files into tightly
 * packed *image.RGBA with the origin at (0, 0).
 *
 * FlipY stores the bottom row first.
 */
type ImageLoader struct {
	FlipY bool
}

func (il *ImageLoader) Load(path string) (any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	if il.FlipY {
		flipRows(rgba)
	}
	return rgba, nil
}

func flipRows(img *image.RGBA) {
	row := make([]byte, img.Stride)
	h := img.Rect.Dy()
	for y := 0; y < h/2; y++ {
		top := img.Pix[y*img.Stride : (y+1)*img.Stride]
		bottom := img.Pix[(h-1-y)*img.Stride : (h-y)*img.Stride]
		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}

// BinaryLoader returns the raw bytes of a file.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string) (any, error) {
	return os.ReadFile(path)
}
