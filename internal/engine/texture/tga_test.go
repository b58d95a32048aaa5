package texture

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func tgaHeader(imageType, bpp, descriptor byte, w, h int) []byte {
	hdr := make([]byte, tgaHeaderSize)
	hdr[2] = imageType
	hdr[12] = byte(w)
	hdr[13] = byte(w >> 8)
	hdr[14] = byte(h)
	hdr[15] = byte(h >> 8)
	hdr[16] = bpp
	hdr[17] = descriptor
	return hdr
}

func TestDecodeTGA_UncompressedBottomUp(t *testing.T) {
	// 2x2, 24-bit BGR, bottom row first.
	data := tgaHeader(TGATypeUncompressed, 24, 0, 2, 2)
	data = append(data,
		0, 0, 255, 0, 255, 0, // bottom row: red, green
		255, 0, 0, 255, 255, 255, // top row: blue, white
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA failed: %v", err)
	}

	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 1, color.NRGBA{255, 0, 0, 255}},
		{1, 1, color.NRGBA{0, 255, 0, 255}},
		{0, 0, color.NRGBA{0, 0, 255, 255}},
		{1, 0, color.NRGBA{255, 255, 255, 255}},
	}
	nrgba := img.(*image.NRGBA)
	for _, tc := range tests {
		if got := nrgba.NRGBAAt(tc.x, tc.y); got != tc.want {
			t.Errorf("pixel (%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestDecodeTGA_RLEGrayTopDown(t *testing.T) {
	data := tgaHeader(TGATypeRLEGray, 8, tgaDescriptorTopToBottom, 3, 2)
	data = append(data,
		0x82, 10, // run of 3 x 10
		0x02, 20, 30, 40, // 3 raw pixels
	)

	img, err := DecodeTGA(data)
	if err != nil {
		t.Fatalf("DecodeTGA failed: %v", err)
	}
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("expected *image.Gray, got %T", img)
	}

	want := [][]uint8{{10, 10, 10}, {20, 30, 40}}
	for y, row := range want {
		for x, v := range row {
			if got := gray.GrayAt(x, y).Y; got != v {
				t.Errorf("pixel (%d,%d) = %d, want %d", x, y, got, v)
			}
		}
	}
}

func TestDecodeTGA_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"short header", []byte{0, 0, 2}, ErrTGATruncated},
		{"color mapped", func() []byte {
			d := tgaHeader(TGATypeUncompressed, 24, 0, 1, 1)
			d[1] = 1
			return d
		}(), ErrTGAUnsupported},
		{"16-bit", tgaHeader(TGATypeUncompressed, 16, 0, 1, 1), ErrTGAUnsupported},
		{"16-bit gray", tgaHeader(TGATypeGray, 16, 0, 1, 1), ErrTGAUnsupported},
		{"truncated pixels", tgaHeader(TGATypeUncompressed, 32, 0, 2, 2), ErrTGATruncated},
		{"truncated rle", append(tgaHeader(TGATypeRLE, 24, 0, 2, 1), 0x81), ErrTGATruncated},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeTGA(tc.data); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestToRGBA_RebasesOrigin(t *testing.T) {
	src := image.NewGray(image.Rect(5, 5, 7, 6))
	src.SetGray(6, 5, color.Gray{Y: 200})

	rgba := ToRGBA(src)
	if rgba.Bounds() != image.Rect(0, 0, 2, 1) {
		t.Fatalf("unexpected bounds %v", rgba.Bounds())
	}
	if got := rgba.RGBAAt(1, 0); got != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("pixel = %v, want gray 200", got)
	}
}
