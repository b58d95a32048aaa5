package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load builds the effective configuration: defaults, then the config file
// (the -config flag or the first file found), then flags. Relative paths in
// the file are resolved against the file's directory; flag paths stay
// relative to the working directory.
func Load() (*Config, error) {
	cfg := Default()

	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads defaults overlaid with a single YAML file, ignoring flags.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFile(cfg, path); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	before := *cfg
	if err := loadFromFile(cfg, path); err != nil {
		return fmt.Errorf("loading config from %s: %w", path, err)
	}
	cfg.resolvePaths(filepath.Dir(path), &before)
	return nil
}

// findConfigFile returns the first config file that exists, or "".
func findConfigFile() string {
	for _, path := range []string{
		"terratile.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user terratile config directory.
func ConfigDir() string {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "terratile")
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "terratile")
}

// loadFromFile decodes a YAML file over cfg. Keys the file omits keep their
// current values; unknown keys are an error.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// pathFields lists the settings that name files or directories.
func (c *Config) pathFields() []*string {
	return []*string{
		&c.Assets.Root,
		&c.Manifest.Path,
		&c.Bake.OutputDir,
		&c.Bake.IndexPath,
		&c.Preview.ScreenshotDir,
		&c.Logging.LogFile,
	}
}

// resolvePaths joins dir onto the relative paths that differ from before,
// i.e. the ones the config file set.
func (c *Config) resolvePaths(dir string, before *Config) {
	old := before.pathFields()
	for i, p := range c.pathFields() {
		if *p == *old[i] || *p == "" || filepath.IsAbs(*p) {
			continue
		}
		*p = filepath.Join(dir, *p)
	}
}

// Validate reports every setting that is out of range.
func (c *Config) Validate() error {
	var errs []error
	if c.Bake.Level < 1 || c.Bake.Level > 4 {
		errs = append(errs, fmt.Errorf("bake.level %d outside 1..4", c.Bake.Level))
	}
	if c.Bake.OutputDir == "" {
		errs = append(errs, errors.New("bake.output_dir is empty"))
	}
	if c.Assets.CacheBytes < 0 {
		errs = append(errs, fmt.Errorf("assets.cache_bytes %d is negative", c.Assets.CacheBytes))
	}
	if c.Preview.Width <= 0 || c.Preview.Height <= 0 {
		errs = append(errs, fmt.Errorf("preview size %dx%d must be positive", c.Preview.Width, c.Preview.Height))
	}
	if c.Preview.MSAA < 0 {
		errs = append(errs, fmt.Errorf("preview.msaa %d is negative", c.Preview.MSAA))
	}
	if c.Preview.SunElevation < -90 || c.Preview.SunElevation > 90 {
		errs = append(errs, fmt.Errorf("preview.sun_elevation %g outside -90..90", c.Preview.SunElevation))
	}
	if c.Manifest.Path == "" {
		errs = append(errs, errors.New("manifest.path is empty"))
	}
	return errors.Join(errs...)
}
