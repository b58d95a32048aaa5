// Package bake writes and reads baked tile artifacts.
//
// An artifact file is a zstd stream holding one JSON header line followed by
// the JSON body. The header can be read without decoding the body.
package bake

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/Faultbox/terratile/internal/engine/terrain"
)

// Version is the artifact format version written by this package.
const Version = 1

// Ext is the file extension of baked artifacts.
const Ext = ".tile.zst"

// Artifact errors.
var (
	ErrNotBuilt       = errors.New("tile has no up-to-date build")
	ErrVersion        = errors.New("unsupported artifact version")
	ErrDigestMismatch = errors.New("artifact digest mismatch")
	ErrTileName       = errors.New("tile name is not a plain file name")
	ErrMalformed      = errors.New("malformed artifact")
)

// Header identifies an artifact.
type Header struct {
	Version int    `json:"version"`
	Tile    string `json:"tile"`
	Digest  string `json:"digest"`
}

// Artifact is the baked output of one tile.
type Artifact struct {
	Header    Header             `json:"header"`
	Config    terrain.TileConfig `json:"config"`
	Collision CollisionV1        `json:"collision"`
	Mesh      MeshV1             `json:"mesh"`
	Uniforms  UniformsV1         `json:"uniforms"`
}

// CollisionV1 is the stored collision volume.
type CollisionV1 struct {
	MapWidth int       `json:"map_width"`
	MapDepth int       `json:"map_depth"`
	Data     []float32 `json:"data"`
}

// MeshV1 is the stored plane mesh description.
type MeshV1 struct {
	Size           [2]float32 `json:"size"`
	SubdivideWidth int        `json:"subdivide_width"`
	SubdivideDepth int        `json:"subdivide_depth"`
}

// UniformsV1 holds the values pushed to the tile's shader. Textures are stored
// by name.
type UniformsV1 struct {
	ChunkCount  int     `json:"chunkCount"`
	HeightScale float32 `json:"heightScale"`
	HeightMap   string  `json:"heightMap"`
	NormalMap   string  `json:"normalMap"`
}

// FromTile captures a tile's current build. The tile must have been rebuilt
// successfully since its last input change.
func FromTile(t *terrain.Tile) (*Artifact, error) {
	vol, mesh := t.CollisionVolume(), t.Mesh()
	if t.Pending() || vol == nil || mesh == nil {
		return nil, fmt.Errorf("tile %q: %w", t.Name(), ErrNotBuilt)
	}

	cfg := t.Config()
	a := &Artifact{
		Header: Header{Version: Version, Tile: t.Name()},
		Config: cfg,
		Collision: CollisionV1{
			MapWidth: vol.MapWidth,
			MapDepth: vol.MapDepth,
			Data:     append([]float32(nil), vol.Data...),
		},
		Mesh: MeshV1{
			Size:           [2]float32{mesh.Size.X(), mesh.Size.Y()},
			SubdivideWidth: mesh.SubdivideWidth,
			SubdivideDepth: mesh.SubdivideDepth,
		},
		Uniforms: UniformsV1{
			ChunkCount:  cfg.ChunkCount,
			HeightScale: cfg.HeightScale,
			HeightMap:   textureName(t.HeightMap()),
			NormalMap:   textureName(t.NormalMap()),
		},
	}
	a.Header.Digest = a.Digest()
	return a, nil
}

// CollisionVolume returns the stored volume as a terrain.CollisionVolume.
func (a *Artifact) CollisionVolume() *terrain.CollisionVolume {
	return &terrain.CollisionVolume{
		MapWidth: a.Collision.MapWidth,
		MapDepth: a.Collision.MapDepth,
		Data:     append([]float32(nil), a.Collision.Data...),
	}
}

// Digest returns the hex SHA-256 of everything the artifact stores except
// its header.
func (a *Artifact) Digest() string {
	h := sha256.New()
	var buf [4]byte
	putInt := func(v int) {
		binary.LittleEndian.PutUint32(buf[:], uint32(v))
		h.Write(buf[:])
	}
	putFloat := func(v float32) {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		h.Write(buf[:])
	}

	putInt(a.Collision.MapWidth)
	putInt(a.Collision.MapDepth)
	for _, v := range a.Collision.Data {
		putFloat(v)
	}

	putFloat(a.Mesh.Size[0])
	putFloat(a.Mesh.Size[1])
	putInt(a.Mesh.SubdivideWidth)
	putInt(a.Mesh.SubdivideDepth)

	putInt(a.Config.TileCount.Width)
	putInt(a.Config.TileCount.Depth)
	putFloat(a.Config.HeightScale)
	putInt(a.Config.ChunkCount)
	putInt(a.Config.ChunkIndex.X)
	putInt(a.Config.ChunkIndex.Y)

	putInt(a.Uniforms.ChunkCount)
	putFloat(a.Uniforms.HeightScale)
	for _, name := range []string{a.Uniforms.HeightMap, a.Uniforms.NormalMap} {
		putInt(len(name))
		h.Write([]byte(name))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Path returns the artifact path for a tile inside dir.
func Path(dir, tile string) string {
	return filepath.Join(dir, tile+Ext)
}

// CheckName rejects tile names that would place the artifact outside its
// output directory.
func CheckName(tile string) error {
	if tile == "" || !filepath.IsLocal(tile) || filepath.Base(tile) != tile {
		return fmt.Errorf("%w: %q", ErrTileName, tile)
	}
	return nil
}

// Write stores an artifact at path. Level ranges from 1 (fastest) to 4 (best
// compression); out-of-range values are clamped.
func Write(path string, a *Artifact, level int) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return err
	}

	bw := bufio.NewWriterSize(enc, 256*1024)
	if err := writeBody(bw, a); err != nil {
		enc.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

func writeBody(w *bufio.Writer, a *Artifact) error {
	hb, err := json.Marshal(a.Header)
	if err != nil {
		return fmt.Errorf("json encode header: %w", err)
	}
	if _, err := w.Write(hb); err != nil {
		return err
	}
	if err := w.WriteByte('\n'); err != nil {
		return err
	}
	if err := json.NewEncoder(w).Encode(a); err != nil {
		return fmt.Errorf("json encode: %w", err)
	}
	return nil
}

// ReadHeader reads only the header of the artifact at path.
func ReadHeader(path string) (Header, error) {
	var hdr Header
	err := open(path, func(br *bufio.Reader) error {
		line, err := br.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("reading header: %w", err)
		}
		if err := json.Unmarshal(line, &hdr); err != nil {
			return fmt.Errorf("json decode header: %w", err)
		}
		return checkVersion(hdr)
	})
	return hdr, err
}

// Read reads and verifies the artifact at path.
func Read(path string) (*Artifact, error) {
	var a Artifact
	err := open(path, func(br *bufio.Reader) error {
		// The body repeats the header.
		if _, err := br.ReadBytes('\n'); err != nil {
			return fmt.Errorf("reading header: %w", err)
		}
		if err := json.NewDecoder(br).Decode(&a); err != nil {
			return fmt.Errorf("json decode: %w", err)
		}
		if err := checkVersion(a.Header); err != nil {
			return err
		}
		if c := a.Collision; c.MapWidth < 0 || c.MapDepth < 0 || len(c.Data) != c.MapWidth*c.MapDepth {
			return fmt.Errorf("%w: %d samples for a %dx%d grid", ErrMalformed, len(c.Data), c.MapWidth, c.MapDepth)
		}
		if got := a.Digest(); got != a.Header.Digest {
			return fmt.Errorf("%w: header %s, data %s", ErrDigestMismatch, a.Header.Digest, got)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func open(path string, fn func(*bufio.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	return fn(bufio.NewReaderSize(dec, 256*1024))
}

func checkVersion(h Header) error {
	if h.Version != Version {
		return fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	return nil
}

func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level < int(zstd.SpeedFastest):
		return zstd.SpeedFastest
	case level > int(zstd.SpeedBestCompression):
		return zstd.SpeedBestCompression
	default:
		return zstd.EncoderLevel(level)
	}
}

func textureName(tex *terrain.Texture) string {
	if tex == nil {
		return ""
	}
	return tex.Name()
}
