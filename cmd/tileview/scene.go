package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/bakeindex"
	"github.com/Faultbox/terratile/internal/config"
	"github.com/Faultbox/terratile/internal/engine/camera"
	"github.com/Faultbox/terratile/internal/engine/input"
	"github.com/Faultbox/terratile/internal/engine/terrain"
	"github.com/Faultbox/terratile/internal/pipeline"
)

// meshView is what the scene draws into.
type meshView interface {
	terrain.MeshTarget
	Bounds() terrain.Bounds
}

// slot holds the latest mesh and material of one tile. Only the active slot
// forwards them to the view.
type slot struct {
	scene    *scene
	name     string
	mesh     *terrain.PlaneMesh
	material terrain.ShaderBinding
}

func (s *slot) SetMesh(mesh *terrain.PlaneMesh) {
	s.mesh = mesh
	if s.scene.active == s.name {
		s.scene.view.SetMesh(mesh)
	}
}

func (s *slot) SetMaterial(binding terrain.ShaderBinding) {
	s.material = binding
	if s.scene.active == s.name {
		s.scene.view.SetMaterial(binding)
	}
}

// scene ties the pipeline's tiles to the view and the camera.
type scene struct {
	cfg    *config.Config
	log    *zap.Logger
	view   meshView
	camera *camera.OrbitCamera
	p      *pipeline.Pipeline

	slots  map[string]*slot
	active string
}

func newScene(cfg *config.Config, view meshView, log *zap.Logger) *scene {
	if log == nil {
		log = zap.NewNop()
	}
	return &scene{
		cfg:    cfg,
		log:    log,
		view:   view,
		camera: camera.NewOrbitCamera(),
		slots:  make(map[string]*slot),
	}
}

// tileOptions routes every tile's mesh through its slot.
func (s *scene) tileOptions(spec config.TileSpec) []terrain.Option {
	return []terrain.Option{terrain.WithMeshTarget(s.slot(spec.Name))}
}

func (s *scene) slot(name string) *slot {
	sl, ok := s.slots[name]
	if !ok {
		sl = &slot{scene: s, name: name}
		s.slots[name] = sl
	}
	return sl
}

// attach sets the pipeline and shows its first tile.
func (s *scene) attach(p *pipeline.Pipeline) {
	s.p = p
	if names := p.Names(); len(names) > 0 {
		s.show(names[0])
	}
}

// show makes name the active tile and frames it.
func (s *scene) show(name string) {
	sl := s.slot(name)
	s.active = name
	s.view.SetMaterial(sl.material)
	s.view.SetMesh(sl.mesh)
	s.camera.FitToBounds(s.view.Bounds())
	s.log.Info("showing tile", zap.String("tile", name))
}

// next cycles to the following tile in name order.
func (s *scene) next() {
	names := s.p.Names()
	if len(names) == 0 {
		return
	}
	i := 0
	for j, n := range names {
		if n == s.active {
			i = (j + 1) % len(names)
			break
		}
	}
	s.show(names[i])
}

// activeTile returns the tile being shown.
func (s *scene) activeTile() (*terrain.Tile, bool) {
	if s.p == nil || s.active == "" {
		return nil, false
	}
	return s.p.Tile(s.active)
}

// handle runs one action.
func (s *scene) handle(ctx context.Context, a input.Action) error {
	switch a {
	case input.ActionNextTile:
		s.next()
		return nil
	case input.ActionResetCamera:
		s.camera.FitToBounds(s.view.Bounds())
		return nil
	case input.ActionReload:
		return s.reload()
	case input.ActionBake:
		return s.bake(ctx)
	}

	tile, ok := s.activeTile()
	if !ok {
		return nil
	}
	changed, err := applyAction(tile, a)
	if changed {
		cfg := tile.Config()
		s.log.Debug("tile edited",
			zap.String("tile", tile.Name()),
			zap.Stringer("action", a),
			zap.Stringer("tileCount", cfg.TileCount),
			zap.Float32("heightScale", cfg.HeightScale),
			zap.Int("chunkCount", cfg.ChunkCount),
		)
	}
	return err
}

// reload reapplies the manifest file to the live tiles.
func (s *scene) reload() error {
	m, err := config.LoadManifest(s.cfg.Manifest.Path)
	if err != nil {
		return err
	}
	err = s.p.ApplyManifest(m)
	if s.active == "" {
		s.attach(s.p)
	}
	s.log.Info("manifest reloaded", zap.String("path", s.cfg.Manifest.Path), zap.Int("tiles", len(m.Tiles)))
	return err
}

// bake writes every tile as it currently stands.
func (s *scene) bake(ctx context.Context) error {
	var idx *bakeindex.Index
	if s.cfg.Bake.IndexPath != "" {
		var err error
		if idx, err = bakeindex.Open(s.cfg.Bake.IndexPath); err != nil {
			return err
		}
		defer idx.Close()
	}

	results, err := s.p.Bake(ctx, s.cfg.Bake.OutputDir, s.cfg.Bake.Level, idx)
	baked := 0
	for _, r := range results {
		if r.Err == nil && !r.Skipped {
			baked++
		}
	}
	s.log.Info("bake finished", zap.Int("tiles", len(results)), zap.Int("written", baked))
	return err
}

// title describes the active tile for the window title.
func (s *scene) title() string {
	tile, ok := s.activeTile()
	if !ok {
		return "tileview"
	}
	cfg := tile.Config()
	status := "ok"
	if tile.Err() != nil {
		status = "error"
	}
	return fmt.Sprintf("tileview - %s [%s] scale %.2f chunks %d (%s)",
		tile.Name(), cfg.TileCount, cfg.HeightScale, cfg.ChunkCount, status)
}
