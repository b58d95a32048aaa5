package main

import (
	"github.com/Faultbox/terratile/internal/engine/input"
	"github.com/Faultbox/terratile/internal/engine/terrain"
)

const (
	heightStep   = 1.25
	maxTileCount = 1024
)

// applyAction edits tile for one of the tile-editing actions. It reports
// whether an input changed and returns the tile's error after the edit.
// Actions that do not edit a tile are ignored.
func applyAction(tile *terrain.Tile, a input.Action) (bool, error) {
	cfg := tile.Config()
	var changed bool

	switch a {
	case input.ActionHeightUp:
		if cfg.HeightScale == 0 {
			changed = tile.SetHeightScale(1)
		} else {
			changed = tile.SetHeightScale(cfg.HeightScale * heightStep)
		}
	case input.ActionHeightDown:
		changed = tile.SetHeightScale(cfg.HeightScale / heightStep)
	case input.ActionWiden:
		changed = tile.SetTileCount(resize(cfg.TileCount, 1, 0))
	case input.ActionNarrow:
		changed = tile.SetTileCount(resize(cfg.TileCount, -1, 0))
	case input.ActionDeepen:
		changed = tile.SetTileCount(resize(cfg.TileCount, 0, 1))
	case input.ActionShallow:
		changed = tile.SetTileCount(resize(cfg.TileCount, 0, -1))
	case input.ActionChunksUp:
		changed = setChunks(tile, cfg.ChunkCount+1)
	case input.ActionChunksDown:
		changed = setChunks(tile, max(cfg.ChunkCount-1, 0))
	default:
		return false, nil
	}
	return changed, tile.Err()
}

func resize(c terrain.TileCount, dw, dd int) terrain.TileCount {
	return terrain.TileCount{
		Width: min(max(c.Width+dw, 1), maxTileCount),
		Depth: min(max(c.Depth+dd, 1), maxTileCount),
	}
}

// setChunks stores the chunk count and pushes it to the shader right away,
// since the chunk count alone does not rebuild the tile.
func setChunks(tile *terrain.Tile, n int) bool {
	if !tile.SetChunkCount(n) {
		return false
	}
	if tile.Err() == nil {
		terrain.SyncShaderParameters(tile.Shader(), tile.Config(), tile.HeightMap(), tile.NormalMap())
	}
	return true
}
