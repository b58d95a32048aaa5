// Package pipeline builds terrain tiles from a manifest and bakes them.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/assets"
	"github.com/Faultbox/terratile/internal/bake"
	"github.com/Faultbox/terratile/internal/bakeindex"
	"github.com/Faultbox/terratile/internal/config"
	"github.com/Faultbox/terratile/internal/engine/terrain"
)

// ShaderFactory returns the binding a tile pushes its uniforms to.
type ShaderFactory func(spec config.TileSpec) (terrain.ShaderBinding, error)

// TileOptions returns extra options for a newly created tile.
type TileOptions func(spec config.TileSpec) []terrain.Option

// RecordingShaders binds every tile to its own terrain.UniformSet.
func RecordingShaders(config.TileSpec) (terrain.ShaderBinding, error) {
	return terrain.NewUniformSet(), nil
}

// Pipeline owns the live tiles of one manifest.
type Pipeline struct {
	assets      *assets.Manager
	log         *zap.Logger
	shaders     ShaderFactory
	tileOptions TileOptions
	now         func() time.Time

	tiles map[string]*entry
}

type entry struct {
	spec config.TileSpec
	tile *terrain.Tile
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger passed to the pipeline and every tile it creates.
func WithLogger(log *zap.Logger) Option {
	return func(p *Pipeline) {
		if log != nil {
			p.log = log
		}
	}
}

// WithShaderFactory sets how tiles get their shader binding.
func WithShaderFactory(f ShaderFactory) Option {
	return func(p *Pipeline) { p.shaders = f }
}

// WithTileOptions adds per-tile options such as collision or mesh targets.
func WithTileOptions(f TileOptions) Option {
	return func(p *Pipeline) { p.tileOptions = f }
}

// New creates a pipeline that loads textures through am.
func New(am *assets.Manager, opts ...Option) *Pipeline {
	p := &Pipeline{
		assets:  am,
		log:     zap.NewNop(),
		shaders: RecordingShaders,
		now:     time.Now,
		tiles:   make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Tile returns the live tile with the given name.
func (p *Pipeline) Tile(name string) (*terrain.Tile, bool) {
	e, ok := p.tiles[name]
	if !ok {
		return nil, false
	}
	return e.tile, true
}

// Names returns the names of all live tiles in sorted order.
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.tiles))
	for name := range p.tiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Build creates a tile from spec, attaches its textures and shader, and
// initializes it. The tile is registered even when initialization fails so
// that a later Apply can repair it.
func (p *Pipeline) Build(spec config.TileSpec) (*terrain.Tile, error) {
	if err := bake.CheckName(spec.Name); err != nil {
		return nil, err
	}
	if _, exists := p.tiles[spec.Name]; exists {
		return nil, fmt.Errorf("tile %q already built", spec.Name)
	}

	opts := []terrain.Option{
		terrain.WithLogger(p.log.With(zap.String("component", "tile"))),
		terrain.WithConfig(spec.TileConfig()),
	}
	if p.tileOptions != nil {
		opts = append(opts, p.tileOptions(spec)...)
	}
	tile := terrain.NewTile(spec.Name, opts...)
	p.tiles[spec.Name] = &entry{spec: spec, tile: tile}

	attachErr := p.attach(tile, spec, config.TileSpec{})
	initErr := tile.Init()

	p.log.Info("tile built",
		zap.String("tile", spec.Name),
		zap.Stringer("tileCount", tile.Config().TileCount),
		zap.Bool("ready", initErr == nil),
	)
	return tile, errors.Join(attachErr, initErr)
}

// Load builds every tile in m, continuing past failures.
func (p *Pipeline) Load(m *config.Manifest) error {
	var errs []error
	for _, spec := range m.Tiles {
		if _, err := p.Build(spec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Apply updates a live tile to match spec. Every change is applied inside one
// batch, so the tile rebuilds at most once.
func (p *Pipeline) Apply(spec config.TileSpec) error {
	e, ok := p.tiles[spec.Name]
	if !ok {
		return fmt.Errorf("tile %q not built", spec.Name)
	}

	var attachErr error
	batchErr := e.tile.Batch(func() {
		attachErr = p.attach(e.tile, spec, e.spec)
		e.tile.SetConfig(spec.TileConfig())
	})
	e.spec = spec

	// A batch with no tracked change does not rebuild, but an earlier failure
	// may still be outstanding.
	if batchErr == nil && e.tile.Err() != nil {
		batchErr = e.tile.Rebuild()
	}
	return errors.Join(attachErr, batchErr)
}

// ApplyManifest applies every spec in m, building tiles that are not live yet.
func (p *Pipeline) ApplyManifest(m *config.Manifest) error {
	var errs []error
	for _, spec := range m.Tiles {
		var err error
		if _, ok := p.tiles[spec.Name]; ok {
			err = p.Apply(spec)
		} else {
			_, err = p.Build(spec)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// attach loads the textures and shader spec names and sets them on tile.
// Inputs whose spec field is unchanged from prev are left alone.
func (p *Pipeline) attach(tile *terrain.Tile, spec, prev config.TileSpec) error {
	var errs []error
	fresh := prev.Name == ""

	if fresh || spec.HeightMap != prev.HeightMap {
		tex, err := p.texture(spec.HeightMap)
		if err != nil {
			errs = append(errs, fmt.Errorf("tile %q height map: %w", spec.Name, err))
		}
		tile.SetHeightMap(tex)
	}
	if fresh || spec.NormalMap != prev.NormalMap {
		tex, err := p.texture(spec.NormalMap)
		if err != nil {
			errs = append(errs, fmt.Errorf("tile %q normal map: %w", spec.Name, err))
		}
		tile.SetNormalMap(tex)
	}
	if fresh || spec.Shader != prev.Shader {
		binding, err := p.shaders(spec)
		if err != nil {
			errs = append(errs, fmt.Errorf("tile %q shader: %w", spec.Name, err))
			binding = nil
		}
		tile.SetShader(binding)
	}
	return errors.Join(errs...)
}

func (p *Pipeline) texture(path string) (*terrain.Texture, error) {
	if path == "" {
		return nil, nil
	}
	return p.assets.LoadTexture(path)
}

// Result describes the bake of one tile.
type Result struct {
	Tile    string
	Path    string
	Digest  string
	Skipped bool // index already held this digest
	Err     error
}

// Bake writes an artifact for every live tile into dir. When idx is non-nil,
// tiles whose digest is already indexed with an existing file are skipped and
// every written artifact is recorded.
func (p *Pipeline) Bake(ctx context.Context, dir string, level int, idx *bakeindex.Index) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for _, name := range p.Names() {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r := p.bakeTile(ctx, p.tiles[name].tile, dir, level, idx)
		if r.Err != nil {
			errs = append(errs, r.Err)
		}
		results = append(results, r)
	}
	return results, errors.Join(errs...)
}

func (p *Pipeline) bakeTile(ctx context.Context, tile *terrain.Tile, dir string, level int, idx *bakeindex.Index) Result {
	r := Result{Tile: tile.Name(), Path: bake.Path(dir, tile.Name())}

	a, err := bake.FromTile(tile)
	if err != nil {
		if tile.Err() != nil {
			err = fmt.Errorf("%w: %v", err, tile.Err())
		}
		r.Err = err
		return r
	}
	r.Digest = a.Header.Digest

	if idx != nil {
		stale, err := idx.Stale(ctx, r.Tile, r.Digest)
		if err != nil {
			r.Err = err
			return r
		}
		if !stale && fileExists(r.Path) {
			r.Skipped = true
			p.log.Debug("bake up to date", zap.String("tile", r.Tile), zap.String("digest", r.Digest))
			return r
		}
	}

	if err := bake.Write(r.Path, a, level); err != nil {
		r.Err = fmt.Errorf("writing %s: %w", r.Path, err)
		return r
	}
	if idx != nil {
		if err := idx.Record(ctx, r.Path, a, p.now()); err != nil {
			r.Err = err
			return r
		}
	}

	p.log.Info("tile baked",
		zap.String("tile", r.Tile),
		zap.String("path", r.Path),
		zap.String("digest", r.Digest),
	)
	return r
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
