package terrain

import "math"

// SampleHeight returns the height-map value nearest to the normalized tile position
// (u, v), where (0,0) is pixel (0,0) and (1,1) is the last pixel.
//
// Nearest-pixel, rounding half away from zero. Positions outside [0,1] clamp to the
// texture edge. A nil or empty texture samples as 0.
func SampleHeight(u, v float32, heightMap *Texture) float32 {
	if heightMap == nil || heightMap.width < 1 || heightMap.height < 1 {
		return 0
	}

	width := heightMap.width - 1
	height := heightMap.height - 1

	x := int(math.Round(float64(u * float32(width))))
	y := int(math.Round(float64(v * float32(height))))

	return heightMap.Value(clampi(x, 0, width), clampi(y, 0, height))
}

// BuildCollisionVolume samples the height map once per grid edge and scales the
// result by cfg.HeightScale.
//
// Positions are divided by the tile count rather than by the sample count minus
// one, so the last column and row land exactly on u=1 and v=1 like the plane
// mesh's outer edge.
func BuildCollisionVolume(cfg TileConfig, heightMap *Texture) (*CollisionVolume, error) {
	if heightMap == nil {
		return nil, &MissingAssetError{Missing: []string{PropHeightMap}}
	}
	if err := cfg.TileCount.Validate(); err != nil {
		return nil, err
	}

	vol := &CollisionVolume{
		MapWidth: cfg.TileCount.Width + 1, // edges, not subdivisions
		MapDepth: cfg.TileCount.Depth + 1, // edges, not subdivisions
	}
	vol.Data = make([]float32, vol.MapWidth*vol.MapDepth)

	for col := 0; col < vol.MapWidth; col++ {
		for row := 0; row < vol.MapDepth; row++ {
			u := float32(col) / float32(cfg.TileCount.Width)
			v := float32(row) / float32(cfg.TileCount.Depth)
			vol.Data[row*vol.MapWidth+col] = SampleHeight(u, v, heightMap) * cfg.HeightScale
		}
	}

	return vol, nil
}
