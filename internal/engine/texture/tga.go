// Package texture provides image decoding and texture processing utilities.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// TGA image type constants.
const (
	TGATypeUncompressed = 2  // Uncompressed true-color
	TGATypeGray         = 3  // Uncompressed grayscale
	TGATypeRLE          = 10 // RLE compressed true-color
	TGATypeRLEGray      = 11 // RLE compressed grayscale
)

const (
	tgaHeaderSize            = 18
	tgaDescriptorTopToBottom = 0x20
)

// TGA decoding errors.
var (
	ErrTGATruncated   = errors.New("TGA data truncated")
	ErrTGAUnsupported = errors.New("unsupported TGA format")
)

// DecodeTGA decodes a TGA image.
// Supports true-color (24/32 bit) and 8-bit grayscale images, uncompressed or RLE.
// Grayscale images decode to *image.Gray, everything else to *image.NRGBA.
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < tgaHeaderSize {
		return nil, ErrTGATruncated
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	descriptor := data[17]

	if colorMapType != 0 {
		return nil, fmt.Errorf("%w: color-mapped", ErrTGAUnsupported)
	}

	gray := imageType == TGATypeGray || imageType == TGATypeRLEGray
	switch {
	case imageType != TGATypeUncompressed && imageType != TGATypeRLE && !gray:
		return nil, fmt.Errorf("%w: type %d", ErrTGAUnsupported, imageType)
	case gray && bpp != 8:
		return nil, fmt.Errorf("%w: %d-bit grayscale", ErrTGAUnsupported, bpp)
	case !gray && bpp != 24 && bpp != 32:
		return nil, fmt.Errorf("%w: %d-bit true-color", ErrTGAUnsupported, bpp)
	}

	offset := tgaHeaderSize + idLength
	if offset > len(data) {
		return nil, ErrTGATruncated
	}

	px := &tgaPixels{
		width:       width,
		height:      height,
		bytesPP:     bpp / 8,
		topToBottom: descriptor&tgaDescriptorTopToBottom != 0,
	}
	if gray {
		px.gray = image.NewGray(image.Rect(0, 0, width, height))
	} else {
		px.rgba = image.NewNRGBA(image.Rect(0, 0, width, height))
	}

	var err error
	if imageType == TGATypeRLE || imageType == TGATypeRLEGray {
		err = px.decodeRLE(data[offset:])
	} else {
		err = px.decodeRaw(data[offset:])
	}
	if err != nil {
		return nil, err
	}

	if gray {
		return px.gray, nil
	}
	return px.rgba, nil
}

// tgaPixels writes decoded pixels in file order into the destination image.
type tgaPixels struct {
	width, height int
	bytesPP       int
	topToBottom   bool

	gray *image.Gray
	rgba *image.NRGBA
}

func (p *tgaPixels) set(idx int, src []byte) {
	x := idx % p.width
	y := idx / p.width
	if !p.topToBottom {
		y = p.height - 1 - y
	}

	if p.gray != nil {
		p.gray.SetGray(x, y, color.Gray{Y: src[0]})
		return
	}

	// Stored as BGR(A).
	a := uint8(255)
	if p.bytesPP == 4 {
		a = src[3]
	}
	p.rgba.SetNRGBA(x, y, color.NRGBA{R: src[2], G: src[1], B: src[0], A: a})
}

func (p *tgaPixels) decodeRaw(pixelData []byte) error {
	count := p.width * p.height
	if len(pixelData) < count*p.bytesPP {
		return ErrTGATruncated
	}
	for i := 0; i < count; i++ {
		p.set(i, pixelData[i*p.bytesPP:])
	}
	return nil
}

func (p *tgaPixels) decodeRLE(pixelData []byte) error {
	pixelCount := p.width * p.height
	pixelIdx := 0
	dataIdx := 0

	for pixelIdx < pixelCount {
		if dataIdx >= len(pixelData) {
			return ErrTGATruncated
		}
		packet := pixelData[dataIdx]
		dataIdx++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			// RLE packet - repeat single pixel
			if dataIdx+p.bytesPP > len(pixelData) {
				return ErrTGATruncated
			}
			src := pixelData[dataIdx : dataIdx+p.bytesPP]
			dataIdx += p.bytesPP
			for i := 0; i < count && pixelIdx < pixelCount; i++ {
				p.set(pixelIdx, src)
				pixelIdx++
			}
			continue
		}

		// Raw packet - read count pixels
		for i := 0; i < count && pixelIdx < pixelCount; i++ {
			if dataIdx+p.bytesPP > len(pixelData) {
				return ErrTGATruncated
			}
			p.set(pixelIdx, pixelData[dataIdx:dataIdx+p.bytesPP])
			dataIdx += p.bytesPP
			pixelIdx++
		}
	}

	return nil
}

// ToRGBA converts any image to *image.RGBA with its origin at (0,0), for GPU upload.
func ToRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Rect.Min == (image.Point{}) {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba
}
