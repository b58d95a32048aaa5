package bake

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/terratile/internal/engine/terrain"
)

func builtTile(t *testing.T) *terrain.Tile {
	t.Helper()
	tile := terrain.NewTile("ridge", terrain.WithConfig(terrain.TileConfig{
		TileCount:   terrain.TileCount{Width: 2, Depth: 2},
		HeightScale: 10,
		ChunkCount:  3,
	}))
	tile.SetHeightMap(terrain.NewValueTexture("ridge/height.png", [][]float32{
		{0, 0.5, 1},
		{0.25, 0.5, 0.75},
		{1, 0.5, 0},
	}))
	tile.SetNormalMap(terrain.NewValueTexture("ridge/normal.png", [][]float32{{0.5}}))
	tile.SetShader(terrain.NewUniformSet())
	if err := tile.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return tile
}

func TestFromTile(t *testing.T) {
	tile := builtTile(t)

	a, err := FromTile(tile)
	if err != nil {
		t.Fatalf("FromTile failed: %v", err)
	}

	if a.Header.Version != Version || a.Header.Tile != "ridge" {
		t.Errorf("unexpected header %+v", a.Header)
	}
	if a.Header.Digest == "" || a.Header.Digest != a.Digest() {
		t.Errorf("digest not set: %q", a.Header.Digest)
	}
	if !a.CollisionVolume().Equal(tile.CollisionVolume()) {
		t.Error("stored collision volume differs from the tile's")
	}
	if a.Mesh.Size != [2]float32{2, 2} || a.Mesh.SubdivideWidth != 1 || a.Mesh.SubdivideDepth != 1 {
		t.Errorf("unexpected mesh %+v", a.Mesh)
	}
	want := UniformsV1{ChunkCount: 3, HeightScale: 10, HeightMap: "ridge/height.png", NormalMap: "ridge/normal.png"}
	if a.Uniforms != want {
		t.Errorf("uniforms = %+v, want %+v", a.Uniforms, want)
	}
}

func TestFromTile_NotBuilt(t *testing.T) {
	tests := []struct {
		name string
		tile func() *terrain.Tile
	}{
		{"never initialized", func() *terrain.Tile { return terrain.NewTile("fresh") }},
		{"last rebuild failed", func() *terrain.Tile {
			tile := builtTile(t)
			tile.SetHeightMap(nil)
			return tile
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromTile(tc.tile()); !errors.Is(err, ErrNotBuilt) {
				t.Errorf("expected ErrNotBuilt, got %v", err)
			}
		})
	}
}

func TestWriteRead(t *testing.T) {
	a, err := FromTile(builtTile(t))
	if err != nil {
		t.Fatalf("FromTile failed: %v", err)
	}

	for _, level := range []int{0, 1, 2, 4, 9} {
		path := Path(filepath.Join(t.TempDir(), "out"), "ridge")
		if err := Write(path, a, level); err != nil {
			t.Fatalf("level %d: Write failed: %v", level, err)
		}

		got, err := Read(path)
		if err != nil {
			t.Fatalf("level %d: Read failed: %v", level, err)
		}
		if got.Header != a.Header || got.Config != a.Config || got.Mesh != a.Mesh || got.Uniforms != a.Uniforms {
			t.Errorf("level %d: artifact mismatch:\n got %+v\nwant %+v", level, got, a)
		}
		if !got.CollisionVolume().Equal(a.CollisionVolume()) {
			t.Errorf("level %d: collision mismatch", level)
		}

		hdr, err := ReadHeader(path)
		if err != nil {
			t.Fatalf("level %d: ReadHeader failed: %v", level, err)
		}
		if hdr != a.Header {
			t.Errorf("level %d: header %+v, want %+v", level, hdr, a.Header)
		}
	}
}

func TestRead_DigestMismatch(t *testing.T) {
	a, err := FromTile(builtTile(t))
	if err != nil {
		t.Fatalf("FromTile failed: %v", err)
	}
	a.Collision.Data[0] += 1

	path := Path(t.TempDir(), "ridge")
	if err := Write(path, a, 2); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := Read(path); !errors.Is(err, ErrDigestMismatch) {
		t.Errorf("expected ErrDigestMismatch, got %v", err)
	}
}

func TestRead_SampleCountMismatch(t *testing.T) {
	a, err := FromTile(builtTile(t))
	if err != nil {
		t.Fatalf("FromTile failed: %v", err)
	}
	// Consistent digest, but one sample short of the grid.
	a.Collision.Data = a.Collision.Data[:len(a.Collision.Data)-1]
	a.Header.Digest = a.Digest()

	path := Path(t.TempDir(), "ridge")
	if err := Write(path, a, 2); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := Read(path); !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestCheckName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"ridge", false},
		{"valley_02.v2", false},
		{"", true},
		{"..", true},
		{"../escaped", true},
		{"nested/tile", true},
		{"/abs", true},
	}
	for _, tt := range tests {
		err := CheckName(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckName(%q) = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrTileName) {
			t.Errorf("CheckName(%q) error %v does not wrap ErrTileName", tt.name, err)
		}
	}
}

func TestRead_Version(t *testing.T) {
	a, err := FromTile(builtTile(t))
	if err != nil {
		t.Fatalf("FromTile failed: %v", err)
	}
	a.Header.Version = Version + 1

	path := Path(t.TempDir(), "ridge")
	if err := Write(path, a, 2); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if _, err := Read(path); !errors.Is(err, ErrVersion) {
		t.Errorf("Read: expected ErrVersion, got %v", err)
	}
	if _, err := ReadHeader(path); !errors.Is(err, ErrVersion) {
		t.Errorf("ReadHeader: expected ErrVersion, got %v", err)
	}
}

func TestRead_NotZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.tile.zst")
	if err := os.WriteFile(path, []byte(`{"version":1}`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Read(path); !errors.Is(err, zstd.ErrMagicMismatch) {
		t.Errorf("expected zstd.ErrMagicMismatch, got %v", err)
	}
}

func TestDigest(t *testing.T) {
	base := func() *Artifact {
		return &Artifact{
			Collision: CollisionV1{MapWidth: 2, MapDepth: 3, Data: make([]float32, 6)},
			Uniforms:  UniformsV1{HeightMap: "h", NormalMap: "n"},
		}
	}
	ref := base().Digest()

	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{"transposed grid", func(a *Artifact) { a.Collision.MapWidth, a.Collision.MapDepth = 3, 2 }},
		{"sample", func(a *Artifact) { a.Collision.Data[5] = 1 }},
		{"subdivisions", func(a *Artifact) { a.Mesh.SubdivideWidth = 1 }},
		{"normal map", func(a *Artifact) { a.Uniforms.NormalMap = "n2" }},
		{"name boundary", func(a *Artifact) { a.Uniforms.HeightMap, a.Uniforms.NormalMap = "hn", "" }},
		{"chunk index", func(a *Artifact) { a.Config.ChunkIndex.X = 1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := base()
			tc.mutate(a)
			if a.Digest() == ref {
				t.Error("digest did not change")
			}
		})
	}

	a := base()
	a.Header = Header{Version: 9, Tile: "other", Digest: "x"}
	if a.Digest() != ref {
		t.Error("header fields must not affect the digest")
	}
}
