package terrain

import "sort"

// Uniform names pushed into a tile's shader.
const (
	UniformChunkCount  = "chunkCount"
	UniformHeightScale = "heightScale"
	UniformHeightMap   = "heightMap"
	UniformNormalMap   = "normalMap"
)

// ShaderBinding is a material or program that accepts named uniform values.
// Values are int, float32 or *Texture.
type ShaderBinding interface {
	SetParameter(name string, value any)
}

// SyncShaderParameters pushes the tile's uniforms into the binding, overwriting
// whatever it held. A nil binding is a no-op.
func SyncShaderParameters(binding ShaderBinding, cfg TileConfig, heightMap, normalMap *Texture) {
	if binding == nil {
		return
	}
	binding.SetParameter(UniformChunkCount, cfg.ChunkCount)
	binding.SetParameter(UniformHeightScale, cfg.HeightScale)
	binding.SetParameter(UniformHeightMap, heightMap)
	binding.SetParameter(UniformNormalMap, normalMap)
}

// UniformSet is an in-memory ShaderBinding that records the last value pushed for
// each uniform.
type UniformSet struct {
	values map[string]any
	pushes int
}

// NewUniformSet creates an empty uniform set.
func NewUniformSet() *UniformSet {
	return &UniformSet{values: make(map[string]any)}
}

// SetParameter records a uniform value.
func (u *UniformSet) SetParameter(name string, value any) {
	u.values[name] = value
	u.pushes++
}

// Get returns the last value pushed for name.
func (u *UniformSet) Get(name string) (any, bool) {
	v, ok := u.values[name]
	return v, ok
}

// Pushes returns how many SetParameter calls the set has received.
func (u *UniformSet) Pushes() int { return u.pushes }

// Names returns the recorded uniform names in sorted order.
func (u *UniformSet) Names() []string {
	names := make([]string, 0, len(u.values))
	for name := range u.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
