package terrain

import (
	"go.uber.org/zap"
)

// maxChainedRebuilds bounds how many follow-up rebuilds a single Rebuild call runs
// when listeners keep changing inputs.
const maxChainedRebuilds = 8

// CollisionTarget receives the collision volume after each successful rebuild.
type CollisionTarget interface {
	SetCollisionVolume(vol *CollisionVolume)
}

// MeshTarget receives the plane mesh and material after each successful rebuild.
type MeshTarget interface {
	SetMesh(mesh *PlaneMesh)
	SetMaterial(binding ShaderBinding)
}

// RebuildStats counts rebuild attempts.
type RebuildStats struct {
	Attempts  int
	Succeeded int
	Failed    int
}

// Tile owns a tile's inputs and its derived collision volume and plane mesh.
//
// Every tracked setter (height map, normal map, shader, tile count, height scale)
// that changes a value rebuilds all derived state before returning, unless the tile
// has not been initialized yet or the write happens inside Batch. Chunk count and
// chunk index are stored and reported but do not trigger a rebuild.
//
// A Tile is not safe for concurrent use.
type Tile struct {
	name string
	log  *zap.Logger

	heightMap   *Property[*Texture]
	normalMap   *Property[*Texture]
	shader      *Property[ShaderBinding]
	tileCount   *Property[TileCount]
	heightScale *Property[float32]
	chunkCount  *Property[int]
	chunkIndex  *Property[ChunkIndex]

	collision *CollisionVolume
	mesh      *PlaneMesh

	collisionTarget CollisionTarget
	meshTarget      MeshTarget

	changeListeners  []func(Change)
	rebuildListeners []func(*Tile)

	ready      bool
	dirty      bool
	rebuilding bool
	batchDepth int

	lastErr error
	stats   RebuildStats
}

// Option configures a Tile at construction.
type Option func(*Tile)

// WithLogger sets the logger rebuild failures are reported to.
func WithLogger(log *zap.Logger) Option {
	return func(t *Tile) {
		if log != nil {
			t.log = log
		}
	}
}

// WithConfig sets the initial configuration.
func WithConfig(cfg TileConfig) Option {
	return func(t *Tile) {
		t.tileCount.Set(cfg.TileCount)
		t.heightScale.Set(cfg.HeightScale)
		t.chunkCount.Set(cfg.ChunkCount)
		t.chunkIndex.Set(cfg.ChunkIndex)
	}
}

// WithCollisionTarget installs each new collision volume on target.
func WithCollisionTarget(target CollisionTarget) Option {
	return func(t *Tile) { t.collisionTarget = target }
}

// WithMeshTarget installs each new mesh and the tile's material on target.
func WithMeshTarget(target MeshTarget) Option {
	return func(t *Tile) { t.meshTarget = target }
}

// NewTile creates an uninitialized tile with the default configuration.
// Attach its assets with the setters, then call Init.
func NewTile(name string, opts ...Option) *Tile {
	def := DefaultTileConfig()
	t := &Tile{
		name:        name,
		log:         zap.NewNop(),
		heightMap:   NewProperty[*Texture](PropHeightMap, nil),
		normalMap:   NewProperty[*Texture](PropNormalMap, nil),
		shader:      NewProperty[ShaderBinding](PropShader, nil),
		tileCount:   NewProperty(PropTileCount, def.TileCount),
		heightScale: NewProperty(PropHeightScale, def.HeightScale),
		chunkCount:  NewProperty(PropChunkCount, def.ChunkCount),
		chunkIndex:  NewProperty(PropChunkIndex, def.ChunkIndex),
		dirty:       true,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns the tile name.
func (t *Tile) Name() string { return t.name }

// Config returns the current configuration.
func (t *Tile) Config() TileConfig {
	return TileConfig{
		TileCount:   t.tileCount.Get(),
		HeightScale: t.heightScale.Get(),
		ChunkCount:  t.chunkCount.Get(),
		ChunkIndex:  t.chunkIndex.Get(),
	}
}

// HeightMap returns the attached height texture.
func (t *Tile) HeightMap() *Texture { return t.heightMap.Get() }

// NormalMap returns the attached normal texture.
func (t *Tile) NormalMap() *Texture { return t.normalMap.Get() }

// Shader returns the attached shader binding.
func (t *Tile) Shader() ShaderBinding { return t.shader.Get() }

// CollisionVolume returns the last successfully built collision volume, or nil.
func (t *Tile) CollisionVolume() *CollisionVolume { return t.collision }

// Mesh returns the last successfully built plane mesh, or nil.
func (t *Tile) Mesh() *PlaneMesh { return t.mesh }

// Stats returns rebuild counters.
func (t *Tile) Stats() RebuildStats { return t.stats }

// Err returns the error of the most recent rebuild attempt, or nil.
func (t *Tile) Err() error { return t.lastErr }

// Pending reports whether the derived artifacts lag behind the current inputs,
// either because a rebuild has not run yet or because the last one failed.
func (t *Tile) Pending() bool { return t.dirty || t.lastErr != nil }

// OnChange registers fn to be called for every property change.
func (t *Tile) OnChange(fn func(Change)) {
	t.changeListeners = append(t.changeListeners, fn)
}

// OnRebuild registers fn to be called after every successful rebuild.
func (t *Tile) OnRebuild(fn func(*Tile)) {
	t.rebuildListeners = append(t.rebuildListeners, fn)
}

// SetHeightMap attaches the height texture. Reports whether the value changed.
func (t *Tile) SetHeightMap(tex *Texture) bool {
	return t.tracked(t.heightMap.Set(tex), PropHeightMap, tex)
}

// SetNormalMap attaches the normal texture. Reports whether the value changed.
func (t *Tile) SetNormalMap(tex *Texture) bool {
	return t.tracked(t.normalMap.Set(tex), PropNormalMap, tex)
}

// SetShader attaches the shader binding. Reports whether the value changed.
func (t *Tile) SetShader(binding ShaderBinding) bool {
	return t.tracked(t.shader.Set(binding), PropShader, binding)
}

// SetTileCount sets the number of tile spans. Reports whether the value changed.
// Counts below (1,1) are accepted here and rejected by the rebuild.
func (t *Tile) SetTileCount(count TileCount) bool {
	return t.tracked(t.tileCount.Set(count), PropTileCount, count)
}

// SetHeightScale sets the height multiplier. Negative values invert the terrain.
func (t *Tile) SetHeightScale(scale float32) bool {
	return t.tracked(t.heightScale.Set(scale), PropHeightScale, scale)
}

// SetChunkCount stores the chunk count. It is pushed to the shader on the next
// rebuild but does not trigger one.
func (t *Tile) SetChunkCount(count int) bool {
	return t.untracked(t.chunkCount.Set(count), PropChunkCount, count)
}

// SetChunkIndex stores the chunk index. It does not trigger a rebuild.
func (t *Tile) SetChunkIndex(idx ChunkIndex) bool {
	return t.untracked(t.chunkIndex.Set(idx), PropChunkIndex, idx)
}

// SetConfig applies every field of cfg with at most one rebuild.
// Reports whether any field changed.
func (t *Tile) SetConfig(cfg TileConfig) bool {
	var changed bool
	_ = t.Batch(func() {
		changed = t.SetTileCount(cfg.TileCount) || changed
		changed = t.SetHeightScale(cfg.HeightScale) || changed
		changed = t.SetChunkCount(cfg.ChunkCount) || changed
		changed = t.SetChunkIndex(cfg.ChunkIndex) || changed
	})
	return changed
}

// Init marks the tile ready and performs the initial rebuild. Call it once all
// required inputs are attached; until then setters only record changes.
func (t *Tile) Init() error {
	t.ready = true
	return t.Rebuild()
}

// Batch runs fn with rebuilds deferred, then performs a single rebuild if any
// tracked input changed. Batches nest; only the outermost one rebuilds.
func (t *Tile) Batch(fn func()) error {
	t.batchDepth++
	func() {
		defer func() { t.batchDepth-- }()
		fn()
	}()

	if t.batchDepth > 0 || !t.ready || !t.dirty || t.rebuilding {
		return nil
	}
	return t.Rebuild()
}

// Rebuild recomputes every derived artifact from the current inputs.
//
// If a required asset is missing or the configuration is degenerate, the failure is
// logged and returned and the previous artifacts stay in place. Inputs changed by
// rebuild listeners are picked up by a follow-up rebuild before Rebuild returns.
func (t *Tile) Rebuild() error {
	if t.rebuilding {
		t.dirty = true
		return nil
	}
	t.rebuilding = true
	defer func() { t.rebuilding = false }()

	var err error
	for i := 0; i < maxChainedRebuilds; i++ {
		t.dirty = false
		err = t.rebuildOnce()
		if err != nil || !t.dirty {
			return err
		}
	}

	t.log.Warn("tile inputs still changing after chained rebuilds",
		zap.String("tile", t.name),
		zap.Int("rebuilds", maxChainedRebuilds),
	)
	return err
}

func (t *Tile) rebuildOnce() error {
	t.stats.Attempts++

	if missing := t.missingAssets(); len(missing) > 0 {
		return t.fail(&MissingAssetError{Tile: t.name, Missing: missing})
	}

	cfg := t.Config()
	if err := cfg.Validate(); err != nil {
		return t.fail(err)
	}

	heightMap := t.heightMap.Get()
	normalMap := t.normalMap.Get()
	shader := t.shader.Get()

	collision, err := BuildCollisionVolume(cfg, heightMap)
	if err != nil {
		return t.fail(err)
	}
	mesh, err := BuildPlaneMesh(cfg)
	if err != nil {
		return t.fail(err)
	}

	t.collision = collision
	t.mesh = mesh
	t.lastErr = nil
	t.stats.Succeeded++

	if t.collisionTarget != nil {
		t.collisionTarget.SetCollisionVolume(collision)
	}
	SyncShaderParameters(shader, cfg, heightMap, normalMap)
	if t.meshTarget != nil {
		t.meshTarget.SetMaterial(shader)
		t.meshTarget.SetMesh(mesh)
	}

	t.log.Debug("tile rebuilt",
		zap.String("tile", t.name),
		zap.Stringer("tileCount", cfg.TileCount),
		zap.Float32("heightScale", cfg.HeightScale),
		zap.String("heightMap", heightMap.Name()),
		zap.Int("cells", collision.Cells()),
	)

	for _, fn := range t.rebuildListeners {
		fn(t)
	}
	return nil
}

func (t *Tile) missingAssets() []string {
	var missing []string
	if isAbsent(t.heightMap.Get()) {
		missing = append(missing, PropHeightMap)
	}
	if isAbsent(t.normalMap.Get()) {
		missing = append(missing, PropNormalMap)
	}
	if isAbsent(t.shader.Get()) {
		missing = append(missing, PropShader)
	}
	return missing
}

func (t *Tile) fail(err error) error {
	t.stats.Failed++
	t.lastErr = err
	t.log.Error("tile rebuild aborted, keeping previous state",
		zap.String("tile", t.name),
		zap.Error(err),
	)
	return err
}

func (t *Tile) tracked(changed bool, name string, value any) bool {
	if !changed {
		return false
	}
	t.notify(name, value)
	t.dirty = true
	if t.ready && t.batchDepth == 0 {
		_ = t.Rebuild()
	}
	return true
}

func (t *Tile) untracked(changed bool, name string, value any) bool {
	if changed {
		t.notify(name, value)
	}
	return changed
}

func (t *Tile) notify(name string, value any) {
	c := Change{Property: name, Args: []any{value}}
	for _, fn := range t.changeListeners {
		fn(c)
	}
}
