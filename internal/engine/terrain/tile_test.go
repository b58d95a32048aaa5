package terrain

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingTargets struct {
	volumes   []*CollisionVolume
	meshes    []*PlaneMesh
	materials []ShaderBinding
}

func (r *recordingTargets) SetCollisionVolume(vol *CollisionVolume) {
	r.volumes = append(r.volumes, vol)
}

func (r *recordingTargets) SetMesh(mesh *PlaneMesh) {
	r.meshes = append(r.meshes, mesh)
}

func (r *recordingTargets) SetMaterial(b ShaderBinding) {
	r.materials = append(r.materials, b)
}

// newReadyTile returns an initialized 2x2 tile over the checker map, plus the
// observer capturing its error logs.
func newReadyTile(t *testing.T, opts ...Option) (*Tile, *UniformSet, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.ErrorLevel)
	opts = append([]Option{
		WithLogger(zap.New(core)),
		WithConfig(TileConfig{TileCount: TileCount{Width: 2, Depth: 2}, HeightScale: 1, ChunkCount: 1}),
	}, opts...)

	tile := NewTile("test", opts...)
	shader := NewUniformSet()
	tile.SetHeightMap(checkerTexture())
	tile.SetNormalMap(NewValueTexture("normal", [][]float32{{0.5, 0.5}, {0.5, 0.5}}))
	tile.SetShader(shader)

	if err := tile.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	return tile, shader, logs
}

func TestTile_SettersBeforeInitDoNotRebuild(t *testing.T) {
	tile := NewTile("cold")
	tile.SetHeightMap(checkerTexture())
	tile.SetNormalMap(checkerTexture())
	tile.SetShader(NewUniformSet())
	tile.SetTileCount(TileCount{Width: 4, Depth: 4})

	if got := tile.Stats().Attempts; got != 0 {
		t.Errorf("expected no rebuild before Init, got %d attempts", got)
	}
	if !tile.Pending() {
		t.Error("tile should be pending before Init")
	}
	if tile.CollisionVolume() != nil || tile.Mesh() != nil {
		t.Error("no artifacts should exist before Init")
	}
}

func TestTile_InitBuildsEverything(t *testing.T) {
	targets := &recordingTargets{}
	tile, shader, logs := newReadyTile(t, WithCollisionTarget(targets), WithMeshTarget(targets))

	if tile.Pending() {
		t.Error("tile should be clean after Init")
	}
	if logs.Len() != 0 {
		t.Errorf("expected no error logs, got %d", logs.Len())
	}

	vol := tile.CollisionVolume()
	if vol == nil || vol.MapWidth != 3 || vol.MapDepth != 3 {
		t.Fatalf("expected 3x3 collision grid, got %+v", vol)
	}
	if vol.At(0, 0) != 0 || vol.At(2, 0) != 1 {
		t.Errorf("unexpected corner samples %v, %v", vol.At(0, 0), vol.At(2, 0))
	}

	mesh := tile.Mesh()
	if mesh == nil || mesh.SubdivideWidth != 1 || mesh.SubdivideDepth != 1 {
		t.Fatalf("expected (1,1) subdivisions, got %+v", mesh)
	}

	if v, _ := shader.Get(UniformHeightMap); v != tile.HeightMap() {
		t.Error("height map uniform not pushed")
	}
	if v, _ := shader.Get(UniformNormalMap); v != tile.NormalMap() {
		t.Error("normal map uniform not pushed")
	}

	if len(targets.volumes) != 1 || targets.volumes[0] != vol {
		t.Errorf("collision target should receive the new volume once, got %d", len(targets.volumes))
	}
	if len(targets.meshes) != 1 || targets.meshes[0] != mesh {
		t.Errorf("mesh target should receive the new mesh once, got %d", len(targets.meshes))
	}
	if len(targets.materials) != 1 || targets.materials[0] != ShaderBinding(shader) {
		t.Error("mesh target should receive the shader as material")
	}
}

func TestTile_TrackedWriteRebuilds(t *testing.T) {
	tile, shader, _ := newReadyTile(t)
	before := tile.Stats().Attempts
	oldVol := tile.CollisionVolume()

	if !tile.SetTileCount(TileCount{Width: 4, Depth: 3}) {
		t.Fatal("SetTileCount should report a change")
	}

	if got := tile.Stats().Attempts; got != before+1 {
		t.Errorf("expected one rebuild, got %d", got-before)
	}
	vol := tile.CollisionVolume()
	if vol == oldVol {
		t.Error("collision volume should be replaced, not patched")
	}
	if vol.MapWidth != 5 || vol.MapDepth != 4 {
		t.Errorf("expected 5x4 grid, got %dx%d", vol.MapWidth, vol.MapDepth)
	}
	if oldVol.MapWidth != 3 || len(oldVol.Data) != 9 {
		t.Error("previous volume must not be mutated")
	}

	tile.SetHeightScale(4)
	if v, _ := shader.Get(UniformHeightScale); v != float32(4) {
		t.Errorf("heightScale uniform = %v, want 4", v)
	}
	if got := tile.CollisionVolume().At(4, 0); got != 4 {
		t.Errorf("expected scaled corner 4, got %v", got)
	}
}

func TestTile_UnchangedWriteIsNoop(t *testing.T) {
	tile, shader, _ := newReadyTile(t)
	before := tile.Stats().Attempts
	pushes := shader.Pushes()

	changed := []bool{
		tile.SetHeightMap(tile.HeightMap()),
		tile.SetNormalMap(tile.NormalMap()),
		tile.SetShader(tile.Shader()),
		tile.SetTileCount(TileCount{Width: 2, Depth: 2}),
		tile.SetHeightScale(1),
		tile.SetChunkCount(1),
		tile.SetChunkIndex(ChunkIndex{}),
	}
	for i, c := range changed {
		if c {
			t.Errorf("write %d reported a change", i)
		}
	}

	if got := tile.Stats().Attempts; got != before {
		t.Errorf("expected no rebuilds, got %d", got-before)
	}
	if shader.Pushes() != pushes {
		t.Error("shader should not be touched by unchanged writes")
	}
}

func TestTile_IdempotentRebuild(t *testing.T) {
	tile, _, _ := newReadyTile(t)

	if err := tile.Rebuild(); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	volA, meshA := tile.CollisionVolume(), tile.Mesh()

	if err := tile.Rebuild(); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	volB, meshB := tile.CollisionVolume(), tile.Mesh()

	if !volA.Equal(volB) {
		t.Error("collision volumes differ between identical rebuilds")
	}
	if *meshA != *meshB {
		t.Errorf("meshes differ: %+v vs %+v", meshA, meshB)
	}
}

func TestTile_MissingAssetRetainsState(t *testing.T) {
	tile, shader, logs := newReadyTile(t)
	vol, mesh := tile.CollisionVolume(), tile.Mesh()
	volCopy := *vol
	volCopy.Data = append([]float32(nil), vol.Data...)
	pushes := shader.Pushes()

	if !tile.SetHeightMap(nil) {
		t.Fatal("clearing the height map should report a change")
	}

	if tile.CollisionVolume() != vol || tile.Mesh() != mesh {
		t.Error("artifacts should be retained by reference after a failed rebuild")
	}
	if !tile.CollisionVolume().Equal(&volCopy) {
		t.Error("retained collision volume content changed")
	}
	if shader.Pushes() != pushes {
		t.Error("shader should not be synced by a failed rebuild")
	}

	if logs.Len() != 1 {
		t.Fatalf("expected exactly one reported error, got %d", logs.Len())
	}

	var missing *MissingAssetError
	if !errors.As(tile.Err(), &missing) {
		t.Fatalf("expected MissingAssetError, got %v", tile.Err())
	}
	if len(missing.Missing) != 1 || missing.Missing[0] != PropHeightMap {
		t.Errorf("expected heightMap missing, got %v", missing.Missing)
	}
	if !tile.Pending() {
		t.Error("tile should report pending after a failed rebuild")
	}
	if s := tile.Stats(); s.Failed != 1 {
		t.Errorf("expected 1 failed rebuild, got %d", s.Failed)
	}
}

func TestTile_NextWriteRetriesAfterFailure(t *testing.T) {
	tile, _, logs := newReadyTile(t)
	tex := tile.HeightMap()

	tile.SetHeightMap(nil)
	tile.SetHeightMap(tex)

	if tile.Err() != nil {
		t.Errorf("expected recovery, got %v", tile.Err())
	}
	if tile.Pending() {
		t.Error("tile should be clean after recovery")
	}
	if logs.Len() != 1 {
		t.Errorf("expected one error log, got %d", logs.Len())
	}
}

func TestTile_InitWithoutAssetsReports(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	tile := NewTile("bare", WithLogger(zap.New(core)))

	err := tile.Init()
	if !errors.Is(err, ErrMissingAsset) {
		t.Fatalf("expected ErrMissingAsset, got %v", err)
	}

	var missing *MissingAssetError
	errors.As(err, &missing)
	want := []string{PropHeightMap, PropNormalMap, PropShader}
	if len(missing.Missing) != len(want) {
		t.Fatalf("expected %v missing, got %v", want, missing.Missing)
	}
	for i := range want {
		if missing.Missing[i] != want[i] {
			t.Errorf("missing[%d] = %s, want %s", i, missing.Missing[i], want[i])
		}
	}
	if missing.Tile != "bare" {
		t.Errorf("expected tile name in error, got %q", missing.Tile)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one error log, got %d", logs.Len())
	}
	if tile.CollisionVolume() != nil {
		t.Error("no artifacts should be built")
	}
}

func TestTile_DegenerateCountKeepsState(t *testing.T) {
	tile, _, logs := newReadyTile(t)
	vol := tile.CollisionVolume()

	tile.SetTileCount(TileCount{Width: 0, Depth: 2})

	if !errors.Is(tile.Err(), ErrDegenerateConfig) {
		t.Fatalf("expected ErrDegenerateConfig, got %v", tile.Err())
	}
	if tile.CollisionVolume() != vol {
		t.Error("previous collision volume should be kept")
	}
	if logs.Len() != 1 {
		t.Errorf("expected one error log, got %d", logs.Len())
	}
}

func TestTile_ChunkFieldsDoNotRebuild(t *testing.T) {
	tile, shader, _ := newReadyTile(t)
	before := tile.Stats().Attempts

	if !tile.SetChunkCount(4) || !tile.SetChunkIndex(ChunkIndex{X: 1, Y: 2}) {
		t.Fatal("chunk setters should report changes")
	}
	if got := tile.Stats().Attempts; got != before {
		t.Errorf("chunk fields should not trigger rebuilds, got %d", got-before)
	}
	if cfg := tile.Config(); cfg.ChunkCount != 4 || cfg.ChunkIndex != (ChunkIndex{X: 1, Y: 2}) {
		t.Errorf("chunk fields not stored: %+v", cfg)
	}

	// The stored chunk count reaches the shader with the next rebuild.
	tile.SetHeightScale(2)
	if v, _ := shader.Get(UniformChunkCount); v != 4 {
		t.Errorf("chunkCount uniform = %v, want 4", v)
	}
}

func TestTile_BatchRebuildsOnce(t *testing.T) {
	tile, _, _ := newReadyTile(t)
	before := tile.Stats().Attempts

	err := tile.Batch(func() {
		tile.SetTileCount(TileCount{Width: 8, Depth: 8})
		tile.SetHeightScale(3)
		tile.Batch(func() {
			tile.SetHeightMap(rampTexture(4, 4))
		})
		if tile.Stats().Attempts != before {
			t.Error("nested batch should not rebuild")
		}
		if !tile.Pending() {
			t.Error("tile should be pending inside a batch")
		}
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	if got := tile.Stats().Attempts; got != before+1 {
		t.Errorf("expected exactly one rebuild, got %d", got-before)
	}
	if tile.CollisionVolume().MapWidth != 9 {
		t.Errorf("expected 9 columns, got %d", tile.CollisionVolume().MapWidth)
	}
}

func TestTile_BatchWithoutChangesSkipsRebuild(t *testing.T) {
	tile, _, _ := newReadyTile(t)
	before := tile.Stats().Attempts

	_ = tile.Batch(func() {
		tile.SetHeightScale(1)
	})

	if got := tile.Stats().Attempts; got != before {
		t.Errorf("expected no rebuild, got %d", got-before)
	}
}

func TestTile_SetConfig(t *testing.T) {
	tile, shader, _ := newReadyTile(t)
	before := tile.Stats().Attempts

	cfg := TileConfig{TileCount: TileCount{Width: 3, Depth: 5}, HeightScale: 2, ChunkCount: 2, ChunkIndex: ChunkIndex{X: 1}}
	if !tile.SetConfig(cfg) {
		t.Fatal("SetConfig should report a change")
	}
	if tile.Config() != cfg {
		t.Errorf("config = %+v, want %+v", tile.Config(), cfg)
	}
	if got := tile.Stats().Attempts; got != before+1 {
		t.Errorf("expected one rebuild, got %d", got-before)
	}
	if v, _ := shader.Get(UniformChunkCount); v != 2 {
		t.Errorf("chunkCount uniform = %v, want 2", v)
	}

	if tile.SetConfig(cfg) {
		t.Error("re-applying the same config should not report a change")
	}
}

func TestTile_ChangeNotifications(t *testing.T) {
	tile, _, _ := newReadyTile(t)

	var changes []Change
	tile.OnChange(func(c Change) { changes = append(changes, c) })

	tile.SetHeightScale(2)
	tile.SetHeightScale(2)
	tile.SetChunkCount(7)

	if len(changes) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(changes))
	}
	if changes[0].Property != PropHeightScale || changes[0].Args[0] != float32(2) {
		t.Errorf("unexpected first change %+v", changes[0])
	}
	if changes[1].Property != PropChunkCount || changes[1].Args[0] != 7 {
		t.Errorf("unexpected second change %+v", changes[1])
	}
}

func TestTile_ListenerWritesRunAfterRebuild(t *testing.T) {
	tile, _, _ := newReadyTile(t)

	// Clamp the height scale from a rebuild listener, as an editor might.
	tile.OnRebuild(func(t *Tile) {
		if t.Config().HeightScale > 10 {
			t.SetHeightScale(10)
		}
	})

	before := tile.Stats().Attempts
	tile.SetHeightScale(50)

	if got := tile.Config().HeightScale; got != 10 {
		t.Errorf("expected clamped scale 10, got %v", got)
	}
	if got := tile.Stats().Attempts; got != before+2 {
		t.Errorf("expected a follow-up rebuild, got %d attempts", got-before)
	}
	if got := tile.CollisionVolume().At(2, 0); got != 10 {
		t.Errorf("collision volume should reflect the clamped scale, got %v", got)
	}
}
