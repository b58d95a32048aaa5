package assets

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"

	"github.com/Faultbox/terratile/internal/config"
)

func grayRamp() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(0, 0, color.Gray{Y: 0})
	img.SetGray(1, 0, color.Gray{Y: 255})
	img.SetGray(0, 1, color.Gray{Y: 51})
	img.SetGray(1, 1, color.Gray{Y: 102})
	return img
}

func writePNG(t *testing.T, dir, name string, img image.Image) {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func newTestManager(t *testing.T, root string) *Manager {
	t.Helper()
	m, err := NewManager(config.AssetsConfig{Root: root, CacheBytes: 1 << 20}, nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

func TestLoadTexture(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "maps/height.png", grayRamp())
	m := newTestManager(t, root)

	tex, err := m.LoadTexture("maps/height.png")
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	if tex.Name() != "maps/height.png" {
		t.Errorf("expected name maps/height.png, got %s", tex.Name())
	}
	if tex.Width() != 2 || tex.Height() != 2 {
		t.Fatalf("expected 2x2, got %dx%d", tex.Width(), tex.Height())
	}

	tests := []struct {
		x, y int
		want float32
	}{
		{0, 0, 0},
		{1, 0, 1},
		{0, 1, 0.2},
		{1, 1, 0.4},
	}
	for _, tc := range tests {
		if got := tex.Value(tc.x, tc.y); got < tc.want-1e-4 || got > tc.want+1e-4 {
			t.Errorf("value(%d,%d) = %v, want %v", tc.x, tc.y, got, tc.want)
		}
	}
}

func TestLoadTexture_SameHandle(t *testing.T) {
	root := t.TempDir()
	writePNG(t, root, "height.png", grayRamp())
	m := newTestManager(t, root)

	a, err := m.LoadTexture("height.png")
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	b, err := m.LoadTexture("./height.png")
	if err != nil {
		t.Fatalf("LoadTexture failed: %v", err)
	}
	if a != b {
		t.Error("expected the cached handle for the same path")
	}

	hits, misses := m.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %d / %d", hits, misses)
	}
}

func TestLoadTexture_Formats(t *testing.T) {
	root := t.TempDir()

	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, grayRamp()); err != nil {
		t.Fatalf("encoding bmp: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "height.bmp"), bmpBuf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	// 2x1 grayscale TGA, top-down.
	tga := make([]byte, 18)
	tga[2] = 3
	tga[12] = 2
	tga[14] = 1
	tga[16] = 8
	tga[17] = 0x20
	tga = append(tga, 0, 255)
	if err := os.WriteFile(filepath.Join(root, "height.TGA"), tga, 0644); err != nil {
		t.Fatal(err)
	}

	m := newTestManager(t, root)

	for _, name := range []string{"height.bmp", "height.TGA"} {
		t.Run(name, func(t *testing.T) {
			tex, err := m.LoadTexture(name)
			if err != nil {
				t.Fatalf("LoadTexture failed: %v", err)
			}
			if tex.Value(0, 0) != 0 || tex.Value(1, 0) != 1 {
				t.Errorf("unexpected values %v %v", tex.Value(0, 0), tex.Value(1, 0))
			}
		})
	}
}

func TestLoadTexture_Errors(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	m := newTestManager(t, root)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", "nope.png", os.ErrNotExist},
		{"unknown format", "notes.txt", ErrUnknownFormat},
		{"parent escape", "../secret.png", ErrOutsideRoot},
		{"absolute", filepath.Join(root, "notes.txt"), ErrOutsideRoot},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := m.LoadTexture(tc.path); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
