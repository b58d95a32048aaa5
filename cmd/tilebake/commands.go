package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Faultbox/terratile/internal/assets"
	"github.com/Faultbox/terratile/internal/bake"
	"github.com/Faultbox/terratile/internal/bakeindex"
	"github.com/Faultbox/terratile/internal/config"
	"github.com/Faultbox/terratile/internal/logger"
	"github.com/Faultbox/terratile/internal/pipeline"
)

// out receives command output.
var out io.Writer = os.Stdout

// openPipeline loads the manifest and builds every tile in it. Tiles that fail
// to build stay in the pipeline with their error; buildErr reports them.
func openPipeline(cfg *config.Config) (p *pipeline.Pipeline, am *assets.Manager, buildErr error, err error) {
	m, err := config.LoadManifest(cfg.Manifest.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	am, err = assets.NewManager(cfg.Assets, logger.Named("assets"))
	if err != nil {
		return nil, nil, nil, err
	}
	p = pipeline.New(am, pipeline.WithLogger(logger.Named("pipeline")))
	return p, am, p.Load(m), nil
}

func cmdBake(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("bake", flag.ContinueOnError)
	level := fs.Int("level", cfg.Bake.Level, "zstd level, 1 (fastest) to 4 (smallest)")
	noIndex := fs.Bool("no-index", false, "Bake every tile and leave the index untouched")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, am, _, err := openPipeline(cfg)
	if err != nil {
		return err
	}
	defer am.Close()

	var idx *bakeindex.Index
	if !*noIndex && cfg.Bake.IndexPath != "" {
		idx, err = bakeindex.Open(cfg.Bake.IndexPath)
		if err != nil {
			return fmt.Errorf("opening bake index: %w", err)
		}
		defer idx.Close()
	}

	results, err := p.Bake(ctx, cfg.Bake.OutputDir, *level, idx)
	printResults(out, results)
	if err != nil {
		return fmt.Errorf("%d of %d tiles failed: %w", countFailed(results), len(results), err)
	}
	return nil
}

func printResults(w io.Writer, results []pipeline.Result) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Fprintf(w, "  %-8s %-20s %v\n", "FAILED", r.Tile, r.Err)
		case r.Skipped:
			fmt.Fprintf(w, "  %-8s %-20s %s\n", "current", r.Tile, shortDigest(r.Digest))
		default:
			fmt.Fprintf(w, "  %-8s %-20s %s  %s\n", "baked", r.Tile, shortDigest(r.Digest), r.Path)
		}
	}
}

func countFailed(results []pipeline.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func cmdCheck(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, am, buildErr, err := openPipeline(cfg)
	if err != nil {
		return err
	}
	defer am.Close()

	failed := 0
	for _, name := range p.Names() {
		tile, _ := p.Tile(name)
		if tile.Err() != nil || tile.CollisionVolume() == nil {
			failed++
			fmt.Fprintf(out, "  %-8s %-20s %v\n", "FAILED", name, tile.Err())
			continue
		}
		vol := tile.CollisionVolume()
		lo, hi := vol.HeightRange()
		fmt.Fprintf(out, "  %-8s %-20s %dx%d samples, height %.3f..%.3f\n",
			"ok", name, vol.MapWidth, vol.MapDepth, lo, hi)
	}

	if buildErr != nil {
		return fmt.Errorf("%d of %d tiles failed: %w", failed, len(p.Names()), buildErr)
	}
	return nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: tilebake info <file.tile.zst>")
	}

	a, err := bake.Read(args[0])
	if err != nil {
		return err
	}
	vol := a.CollisionVolume()
	lo, hi := vol.HeightRange()

	fmt.Fprintf(out, "Artifact:   %s\n", args[0])
	fmt.Fprintf(out, "Tile:       %s\n", a.Header.Tile)
	fmt.Fprintf(out, "Version:    %d\n", a.Header.Version)
	fmt.Fprintf(out, "Digest:     %s\n", a.Header.Digest)
	fmt.Fprintf(out, "Tile count: %s\n", a.Config.TileCount)
	fmt.Fprintf(out, "Chunks:     %d (index %d,%d)\n", a.Config.ChunkCount, a.Config.ChunkIndex.X, a.Config.ChunkIndex.Y)
	fmt.Fprintf(out, "Collision:  %dx%d samples, height %.3f..%.3f\n", vol.MapWidth, vol.MapDepth, lo, hi)
	fmt.Fprintf(out, "Mesh:       %gx%g, subdivide %dx%d\n",
		a.Mesh.Size[0], a.Mesh.Size[1], a.Mesh.SubdivideWidth, a.Mesh.SubdivideDepth)
	fmt.Fprintf(out, "Uniforms:   heightScale=%g chunkCount=%d\n", a.Uniforms.HeightScale, a.Uniforms.ChunkCount)
	fmt.Fprintf(out, "            heightMap=%s normalMap=%s\n", a.Uniforms.HeightMap, a.Uniforms.NormalMap)
	return nil
}

func cmdSample(args []string) error {
	if len(args) < 3 {
		return errors.New("usage: tilebake sample <file.tile.zst> <col> <row>")
	}

	col, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("col: %w", err)
	}
	row, err := strconv.Atoi(args[2])
	if err != nil {
		return fmt.Errorf("row: %w", err)
	}

	a, err := bake.Read(args[0])
	if err != nil {
		return err
	}
	vol := a.CollisionVolume()
	if col < 0 || col >= vol.MapWidth || row < 0 || row >= vol.MapDepth {
		return fmt.Errorf("sample (%d,%d) outside %dx%d grid", col, row, vol.MapWidth, vol.MapDepth)
	}

	fmt.Fprintf(out, "%g\n", vol.At(col, row))
	return nil
}

func cmdIndex(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if cfg.Bake.IndexPath == "" {
		return errors.New("bake index disabled (bake.index_path is empty)")
	}
	idx, err := bakeindex.Open(cfg.Bake.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	entries, err := idx.List(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(out, "  %-20s %s  %dx%d  %.3f..%.3f  %s  %s\n",
			e.Tile, shortDigest(e.Digest), e.TileWidth, e.TileDepth,
			e.MinHeight, e.MaxHeight, e.BakedAt.Format("2006-01-02 15:04:05"), e.Path)
	}
	fmt.Fprintf(out, "%d tiles\n", len(entries))
	return nil
}

func cmdConfig(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	save := fs.String("save", "", "Write the effective config to this file instead of stdout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *save == "" {
		return cfg.WriteYAML(out)
	}
	if err := cfg.SaveTo(*save); err != nil {
		return err
	}
	fmt.Fprintf(out, "Config written to %s\n", *save)
	return nil
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
