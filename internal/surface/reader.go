package surface

import (
	"fmt"
	"image"
)

// ImageReader reads alpha from a top-left image.Image.
type ImageReader struct {
	img image.Image
}

var _ PixelReader = (*ImageReader)(nil)

// NewImageReader wraps img. A nil image yields a reader that always fails
// with ErrReadUnsupported.
func NewImageReader(img image.Image) *ImageReader {
	return &ImageReader{img: img}
}

func (r *ImageReader) Size() (int, int) {
	if r == nil || r.img == nil {
		return 0, 0
	}
	b := r.img.Bounds()
	return b.Dx(), b.Dy()
}

func (r *ImageReader) Origin() Origin { return OriginTopLeft }

func (r *ImageReader) AlphaAt(x, y int) (uint8, error) {
	if r == nil || r.img == nil {
		return 0, ErrReadUnsupported
	}
	b := r.img.Bounds()
	px, py := b.Min.X+x, b.Min.Y+y
	if !(image.Point{X: px, Y: py}).In(b) {
		return 0, fmt.Errorf("texel (%d,%d) outside %dx%d", x, y, b.Dx(), b.Dy())
	}

	// Premultiplied and straight alpha share the same alpha byte.
	switch img := r.img.(type) {
	case *image.NRGBA:
		return img.Pix[img.PixOffset(px, py)+3], nil
	case *image.RGBA:
		return img.Pix[img.PixOffset(px, py)+3], nil
	default:
		_, _, _, a := img.At(px, py).RGBA()
		return uint8(a >> 8), nil
	}
}

// BottomUpBuffer is a tightly packed RGBA buffer whose first row is the
// bottom of the picture, the layout produced by GPU framebuffer read-backs.
type BottomUpBuffer struct {
	width  int
	height int
	pix    []uint8
}

var _ PixelReader = (*BottomUpBuffer)(nil)

// NewBottomUpBuffer wraps pix, which must hold width*height*4 bytes.
func NewBottomUpBuffer(width, height int, pix []uint8) (*BottomUpBuffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("buffer holds %d bytes, want %d", len(pix), width*height*4)
	}
	return &BottomUpBuffer{width: width, height: height, pix: pix}, nil
}

// BottomUpFromImage copies img into a bottom-up buffer.
func BottomUpFromImage(img image.Image) *BottomUpBuffer {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		row := (h - y - 1) * w * 4
		for x := 0; x < w; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := row + x*4
			pix[i] = uint8(r >> 8)
			pix[i+1] = uint8(g >> 8)
			pix[i+2] = uint8(bl >> 8)
			pix[i+3] = uint8(a >> 8)
		}
	}
	return &BottomUpBuffer{width: w, height: h, pix: pix}
}

func (b *BottomUpBuffer) Size() (int, int) {
	if b == nil {
		return 0, 0
	}
	return b.width, b.height
}

func (b *BottomUpBuffer) Origin() Origin { return OriginBottomLeft }

func (b *BottomUpBuffer) AlphaAt(x, y int) (uint8, error) {
	if b == nil || b.pix == nil {
		return 0, ErrReadUnsupported
	}
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return 0, fmt.Errorf("texel (%d,%d) outside %dx%d", x, y, b.width, b.height)
	}
	return b.pix[(y*b.width+x)*4+3], nil
}
