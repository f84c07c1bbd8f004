package surface

import (
	"fmt"
	"image"
	_ "image/png" // register PNG frames
	"math"
	"os"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP frames
)

// LoadFrame decodes a PNG or WebP frame from disk.
func LoadFrame(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open frame: %w", err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame %s: %w", path, err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("frame %s (%s) is empty", path, format)
	}
	return img, nil
}

// Resample scales img into a width x height NRGBA backing store.
func Resample(img image.Image, width, height int) *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

// NewFrameSurface builds a surface for img displayed at display. The backing
// store is display size times pixelRatio, the way a HiDPI canvas is
// allocated. The primary reader uses the GPU (bottom-up) layout and the
// fallback reads the top-left image directly.
func NewFrameSurface(img image.Image, display Rect, pixelRatio float64) (*Surface, error) {
	if display.Empty() {
		return nil, fmt.Errorf("display rect %s has no area", display)
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}

	w := int(math.Round(display.Width * pixelRatio))
	h := int(math.Round(display.Height * pixelRatio))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("backing store %dx%d too small", w, h)
	}

	backing := Resample(img, w, h)
	return &Surface{
		Display:  display,
		Primary:  BottomUpFromImage(backing),
		Fallback: NewImageReader(backing),
	}, nil
}
