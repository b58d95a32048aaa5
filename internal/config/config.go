// Package config handles terratile configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Assets   AssetsConfig   `yaml:"assets"`
	Bake     BakeConfig     `yaml:"bake"`
	Preview  PreviewConfig  `yaml:"preview"`
	Manifest ManifestConfig `yaml:"manifest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AssetsConfig holds texture loading settings.
type AssetsConfig struct {
	Root       string `yaml:"root"`        // Directory texture paths are resolved against
	CacheBytes int64  `yaml:"cache_bytes"` // Budget for decoded textures
}

// BakeConfig holds artifact output settings.
type BakeConfig struct {
	OutputDir string `yaml:"output_dir"`
	IndexPath string `yaml:"index_path"` // SQLite index of baked tiles, empty disables it
	Level     int    `yaml:"level"`      // zstd level 1 (fastest) - 4 (best)
}

// PreviewConfig holds display settings for the tile viewer.
type PreviewConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	Fullscreen    bool    `yaml:"fullscreen"`
	VSync         bool    `yaml:"vsync"`
	MSAA          int     `yaml:"msaa"`          // Samples per pixel, 0 disables multisampling
	SunAzimuth    float32 `yaml:"sun_azimuth"`   // Degrees around +Y, 0 faces +Z
	SunElevation  float32 `yaml:"sun_elevation"` // Degrees above the horizon
	ScreenshotDir string  `yaml:"screenshot_dir"`
}

// ManifestConfig points at the tile manifest.
type ManifestConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Assets: AssetsConfig{
			Root:       ".",
			CacheBytes: 256 << 20,
		},
		Bake: BakeConfig{
			OutputDir: "baked",
			IndexPath: "baked/index.db",
			Level:     2,
		},
		Preview: PreviewConfig{
			Width:         1280,
			Height:        720,
			Fullscreen:    false,
			VSync:         true,
			MSAA:          4,
			SunAzimuth:    45,
			SunElevation:  50,
			ScreenshotDir: "screenshots",
		},
		Manifest: ManifestConfig{
			Path: "tiles.yaml",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
