// Package assets loads and caches the textures terrain tiles are built from.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/terratile/internal/config"
	"github.com/Faultbox/terratile/internal/engine/terrain"
)

// ErrOutsideRoot is returned for paths that resolve outside the asset root.
var ErrOutsideRoot = errors.New("path escapes asset root")

// Manager loads textures from a root directory.
//
// Decoded textures are kept in a cost-bounded cache keyed by their cleaned
// path, so loading the same path again returns the same *terrain.Texture while
// it stays cached. Tiles compare textures by identity, so a cache hit never
// triggers a rebuild.
type Manager struct {
	root  string
	cache *ristretto.Cache[string, *terrain.Texture]
	log   *zap.Logger

	mu     sync.Mutex // serializes decodes
	hits   int
	misses int
}

// NewManager creates a manager for the configured asset root.
func NewManager(cfg config.AssetsConfig, log *zap.Logger) (*Manager, error) {
	if log == nil {
		log = zap.NewNop()
	}
	maxCost := cfg.CacheBytes
	if maxCost <= 0 {
		maxCost = config.Default().Assets.CacheBytes
	}

	cache, err := ristretto.NewCache(&ristretto.Config[string, *terrain.Texture]{
		NumCounters: 10000,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("creating texture cache: %w", err)
	}

	root := cfg.Root
	if root == "" {
		root = "."
	}
	return &Manager{root: root, cache: cache, log: log}, nil
}

// Root returns the directory texture paths are resolved against.
func (m *Manager) Root() string { return m.root }

// Read returns the raw bytes of a file under the asset root.
func (m *Manager) Read(path string) ([]byte, error) {
	full, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// LoadTexture decodes the image at path into a texture named after the path.
func (m *Manager) LoadTexture(path string) (*terrain.Texture, error) {
	key := filepath.ToSlash(filepath.Clean(path))

	m.mu.Lock()
	defer m.mu.Unlock()

	if tex, ok := m.cache.Get(key); ok {
		m.hits++
		return tex, nil
	}
	m.misses++

	data, err := m.Read(key)
	if err != nil {
		return nil, err
	}
	img, err := Decode(key, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}

	tex := terrain.NewTexture(key, img)
	m.cache.Set(key, tex, textureCost(tex))
	m.cache.Wait()

	m.log.Debug("texture loaded",
		zap.String("path", key),
		zap.Int("width", tex.Width()),
		zap.Int("height", tex.Height()))
	return tex, nil
}

// Stats returns cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

// Close releases the cache.
func (m *Manager) Close() {
	m.cache.Close()
}

func (m *Manager) resolve(path string) (string, error) {
	if filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s", ErrOutsideRoot, path)
	}
	return filepath.Join(m.root, clean), nil
}

// textureCost approximates the memory a decoded texture holds: the source
// image plus one float32 value per texel.
func textureCost(tex *terrain.Texture) int64 {
	return int64(tex.Width()) * int64(tex.Height()) * 8
}
