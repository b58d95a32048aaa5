// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// TerrainVertexShader displaces the plane by the height map.
//
//go:embed terrain.vert
var TerrainVertexShader string

// TerrainFragmentShader lights the tile from its normal map and draws the
// chunk grid.
//
//go:embed terrain.frag
var TerrainFragmentShader string
