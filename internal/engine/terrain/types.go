// Package terrain derives the collision volume, plane mesh and shader uniforms of a
// heightmapped terrain tile, and keeps them in sync with the tile's inputs.
package terrain

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// TileCount is the number of tile spans along each axis of a tile.
type TileCount struct {
	Width int `json:"width" yaml:"width"`
	Depth int `json:"depth" yaml:"depth"`
}

// String returns the count as "WxD".
func (c TileCount) String() string {
	return fmt.Sprintf("%dx%d", c.Width, c.Depth)
}

// Validate rejects counts that would produce an empty grid or negative subdivisions.
func (c TileCount) Validate() error {
	if c.Width <= 0 {
		return &DegenerateConfigError{Field: "tileCount.width", Value: c.Width}
	}
	if c.Depth <= 0 {
		return &DegenerateConfigError{Field: "tileCount.depth", Value: c.Depth}
	}
	return nil
}

// ChunkIndex addresses a chunk within a chunked world. Stored but not used for paging.
type ChunkIndex struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// TileConfig holds the tunable parameters of a tile.
type TileConfig struct {
	TileCount   TileCount  `json:"tile_count" yaml:"tile_count"`
	HeightScale float32    `json:"height_scale" yaml:"height_scale"`
	ChunkCount  int        `json:"chunk_count" yaml:"chunk_count"`
	ChunkIndex  ChunkIndex `json:"chunk_index" yaml:"chunk_index"`
}

// DefaultTileConfig returns the configuration a freshly created tile starts with.
func DefaultTileConfig() TileConfig {
	return TileConfig{
		TileCount:   TileCount{Width: 1, Depth: 1},
		HeightScale: 1.0,
		ChunkCount:  1,
	}
}

// Validate checks the parts of the configuration the builders depend on.
func (c TileConfig) Validate() error {
	if err := c.TileCount.Validate(); err != nil {
		return err
	}
	hs := float64(c.HeightScale)
	if math.IsNaN(hs) || math.IsInf(hs, 0) {
		return &DegenerateConfigError{Field: "heightScale", Value: c.HeightScale}
	}
	return nil
}

// CollisionVolume is a height-field grid for the physics system.
//
// MapWidth follows TileCount.Width and the texture's x axis; MapDepth follows
// TileCount.Depth and the texture's y axis. Each axis holds one sample per edge,
// so it is one longer than the tile count. Data is row-major by depth:
// Data[row*MapWidth+col].
type CollisionVolume struct {
	MapWidth int
	MapDepth int
	Data     []float32
}

// At returns the height at the given column (width axis) and row (depth axis).
func (c *CollisionVolume) At(col, row int) float32 {
	return c.Data[row*c.MapWidth+col]
}

// Cells returns the number of grid samples.
func (c *CollisionVolume) Cells() int {
	return c.MapWidth * c.MapDepth
}

// HeightRange returns the lowest and highest sample in the grid.
func (c *CollisionVolume) HeightRange() (min, max float32) {
	if len(c.Data) == 0 {
		return 0, 0
	}
	min, max = c.Data[0], c.Data[0]
	for _, h := range c.Data[1:] {
		if h < min {
			min = h
		}
		if h > max {
			max = h
		}
	}
	return min, max
}

// Equal reports whether two volumes have identical dimensions and samples.
func (c *CollisionVolume) Equal(other *CollisionVolume) bool {
	if c == nil || other == nil {
		return c == other
	}
	if c.MapWidth != other.MapWidth || c.MapDepth != other.MapDepth || len(c.Data) != len(other.Data) {
		return false
	}
	for i := range c.Data {
		if c.Data[i] != other.Data[i] {
			return false
		}
	}
	return true
}

// PlaneMesh describes a flat, subdivided rectangle. Subdivisions count interior
// divisions only, so a plane of N tiles along an axis has N-1 of them.
type PlaneMesh struct {
	Size           mgl32.Vec2
	SubdivideWidth int
	SubdivideDepth int
}

// Vertex is a plane mesh vertex ready for GPU upload.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	TexCoord mgl32.Vec2
}

// Mesh holds expanded plane geometry.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Bounds   Bounds
}

// Bounds holds an axis-aligned bounding box.
type Bounds struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}
