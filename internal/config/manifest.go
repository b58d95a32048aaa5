package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/terratile/internal/engine/terrain"
)

// ErrInvalidManifest is returned when a manifest does not match the tile schema.
var ErrInvalidManifest = errors.New("invalid tile manifest")

const manifestSchemaURL = "terratile://manifest.schema.json"

const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["tiles"],
  "additionalProperties": false,
  "properties": {
    "tiles": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name", "tile_count"],
        "additionalProperties": false,
        "properties": {
          "name": {"type": "string", "pattern": "^[A-Za-z0-9_-][A-Za-z0-9_.-]*$"},
          "height_map": {"type": "string"},
          "normal_map": {"type": "string"},
          "shader": {"type": "string"},
          "tile_count": {
            "type": "array",
            "items": {"type": "integer", "minimum": 1},
            "minItems": 2,
            "maxItems": 2
          },
          "height_scale": {"type": "number"},
          "chunk_count": {"type": "integer", "minimum": 0},
          "chunk_index": {
            "type": "array",
            "items": {"type": "integer"},
            "minItems": 2,
            "maxItems": 2
          }
        }
      }
    }
  }
}`

var compiledManifestSchema = jsonschema.MustCompileString(manifestSchemaURL, manifestSchema)

// Manifest lists the tiles a bake or preview run works on.
type Manifest struct {
	Tiles []TileSpec `yaml:"tiles"`
}

// TileSpec describes one tile: its textures, shader and parameters.
// Texture paths are relative to the asset root.
type TileSpec struct {
	Name        string   `yaml:"name"`
	HeightMap   string   `yaml:"height_map,omitempty"`
	NormalMap   string   `yaml:"normal_map,omitempty"`
	Shader      string   `yaml:"shader,omitempty"`
	TileCount   [2]int   `yaml:"tile_count,flow"`
	HeightScale *float32 `yaml:"height_scale,omitempty"`
	ChunkCount  *int     `yaml:"chunk_count,omitempty"`
	ChunkIndex  [2]int   `yaml:"chunk_index,flow,omitempty"`
}

// TileConfig returns the tile parameters, with unset fields taken from
// terrain.DefaultTileConfig.
func (s TileSpec) TileConfig() terrain.TileConfig {
	cfg := terrain.DefaultTileConfig()
	cfg.TileCount = terrain.TileCount{Width: s.TileCount[0], Depth: s.TileCount[1]}
	cfg.ChunkIndex = terrain.ChunkIndex{X: s.ChunkIndex[0], Y: s.ChunkIndex[1]}
	if s.HeightScale != nil {
		cfg.HeightScale = *s.HeightScale
	}
	if s.ChunkCount != nil {
		cfg.ChunkCount = *s.ChunkCount
	}
	return cfg
}

// Tile returns the spec with the given name.
func (m *Manifest) Tile(name string) (TileSpec, bool) {
	for _, s := range m.Tiles {
		if s.Name == name {
			return s, true
		}
	}
	return TileSpec{}, false
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest validates YAML manifest data against the tile schema and decodes it.
func ParseManifest(data []byte) (*Manifest, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}

	doc, err := jsonValue(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if err := compiledManifestSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding manifest: %w", err)
	}

	seen := make(map[string]struct{}, len(m.Tiles))
	for _, s := range m.Tiles {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tile %q", ErrInvalidManifest, s.Name)
		}
		seen[s.Name] = struct{}{}
	}

	return &m, nil
}

// Save writes the manifest as YAML.
func (m *Manifest) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// jsonValue converts a YAML-decoded document into the shapes encoding/json
// produces, which is what the schema validator expects.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
