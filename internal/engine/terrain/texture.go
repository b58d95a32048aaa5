package terrain

import (
	"image"
	"image/color"
)

// Texture is a read-only, decoded texture handle.
//
// Tiles compare textures by identity, never by content, so a texture must not be
// modified after construction.
type Texture struct {
	name   string
	img    image.Image
	width  int
	height int
	values []float32 // HSV value channel, row-major
}

// NewTexture wraps a decoded image. The value channel (max of R, G, B on
// non-premultiplied color) is computed once here.
func NewTexture(name string, img image.Image) *Texture {
	b := img.Bounds()
	t := &Texture{
		name:   name,
		img:    img,
		width:  b.Dx(),
		height: b.Dy(),
	}
	t.values = make([]float32, t.width*t.height)
	for y := 0; y < t.height; y++ {
		for x := 0; x < t.width; x++ {
			c := color.NRGBA64Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA64)
			t.values[y*t.width+x] = float32(max(c.R, c.G, c.B)) / 0xffff
		}
	}
	return t
}

// NewValueTexture builds a texture straight from value-channel rows (row-major,
// rows[y][x], values in [0,1]). The width is the longest row; shorter rows are
// padded with 0.
func NewValueTexture(name string, rows [][]float32) *Texture {
	height := len(rows)
	width := 0
	for _, row := range rows {
		width = max(width, len(row))
	}

	img := image.NewGray16(image.Rect(0, 0, width, height))
	values := make([]float32, width*height)
	for y, row := range rows {
		for x, v := range row {
			values[y*width+x] = v
			img.SetGray16(x, y, color.Gray16{Y: uint16(clampf(v, 0, 1)*0xffff + 0.5)})
		}
	}

	return &Texture{
		name:   name,
		img:    img,
		width:  width,
		height: height,
		values: values,
	}
}

// Name returns the asset name the texture was loaded from.
func (t *Texture) Name() string { return t.name }

// Width returns the texture width in pixels.
func (t *Texture) Width() int { return t.width }

// Height returns the texture height in pixels.
func (t *Texture) Height() int { return t.height }

// Image returns the decoded image, for GPU upload.
func (t *Texture) Image() image.Image { return t.img }

// Value returns the value channel of pixel (x, y) in [0,1].
func (t *Texture) Value(x, y int) float32 {
	return t.values[y*t.width+x]
}

func clampf(v, min, max float32) float32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampi(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
