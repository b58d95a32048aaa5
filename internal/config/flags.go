package config

import "flag"

// Global flags shared by every terratile command. They override the config
// file; zero values leave it alone.
var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagQuiet      = flag.Bool("quiet", false, "Only log warnings and errors")
	flagLogFile    = flag.String("log-file", "", "Also write JSON logs to this file")
	flagManifest   = flag.String("manifest", "", "Path to tile manifest")
	flagAssets     = flag.String("assets", "", "Asset root directory")
	flagOut        = flag.String("out", "", "Bake output directory")
	flagIndex      = flag.String("index", "", "Bake index database")
	flagWindowed   = flag.Bool("windowed", false, "Run preview in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run preview in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Preview window width")
	flagHeight     = flag.Int("height", 0, "Preview window height")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the path given with -config, or "".
func ConfigPath() string {
	return *flagConfig
}

func applyFlags(cfg *Config) {
	switch {
	case *flagDebug:
		cfg.Logging.Level = "debug"
	case *flagQuiet:
		cfg.Logging.Level = "warn"
	}

	for _, o := range []struct {
		dst *string
		val string
	}{
		{&cfg.Logging.LogFile, *flagLogFile},
		{&cfg.Manifest.Path, *flagManifest},
		{&cfg.Assets.Root, *flagAssets},
		{&cfg.Bake.OutputDir, *flagOut},
		{&cfg.Bake.IndexPath, *flagIndex},
	} {
		if o.val != "" {
			*o.dst = o.val
		}
	}

	if *flagWindowed {
		cfg.Preview.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Preview.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Preview.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Preview.Height = *flagHeight
	}
}
