package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	// Registered image formats.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/Faultbox/terratile/internal/engine/texture"
)

// ErrUnknownFormat is returned when no decoder recognizes the data.
var ErrUnknownFormat = errors.New("unknown image format")

// Decode decodes image data. TGA has no magic number, so it is chosen by the
// file extension; every other format is detected from its header.
func Decode(name string, data []byte) (image.Image, error) {
	if strings.EqualFold(filepath.Ext(name), ".tga") {
		return texture.DecodeTGA(data)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if errors.Is(err, image.ErrFormat) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, name)
	}
	return img, err
}
