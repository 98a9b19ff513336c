package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
)

type Config struct {
	Log   LogConfig
	Codec CodecConfig
}

type LogConfig struct {
	Level  string
	Format string
}

type CodecConfig struct {
	// MaxExtensionAdditions bounds the extension addition bitmap a decoder accepts
	// from the wire.
	MaxExtensionAdditions uint64
	BatchWorkers          int
}

type fileConfig struct {
	Log struct {
		Level  string `toml:"level"`
		Format string `toml:"format"`
	} `toml:"log"`
	Codec struct {
		MaxExtensionAdditions int64 `toml:"max_extension_additions"`
		BatchWorkers          int   `toml:"batch_workers"`
	} `toml:"codec"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Codec: CodecConfig{
			MaxExtensionAdditions: 64,
			BatchWorkers:          4,
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file keep their
// default value. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}

	if meta.IsDefined("log", "level") {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(raw.Log.Level))
	}
	if meta.IsDefined("log", "format") {
		cfg.Log.Format = strings.ToLower(strings.TrimSpace(raw.Log.Format))
	}
	if meta.IsDefined("codec", "max_extension_additions") {
		if raw.Codec.MaxExtensionAdditions < 0 {
			return Config{}, fmt.Errorf("codec.max_extension_additions must not be negative")
		}
		cfg.Codec.MaxExtensionAdditions = uint64(raw.Codec.MaxExtensionAdditions)
	}
	if meta.IsDefined("codec", "batch_workers") {
		cfg.Codec.BatchWorkers = raw.Codec.BatchWorkers
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config parse failed (%s): unknown key %s", path, undecoded[0])
	}

	if err := Validate(cfg); err != nil {
		return Config{}, fmt.Errorf("config invalid (%s): %w", path, err)
	}
	return cfg, nil
}

func Validate(cfg Config) error {
	if cfg.Log.Level == "" {
		return fmt.Errorf("log.level is required")
	}
	if _, err := zerolog.ParseLevel(cfg.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch cfg.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("log.format %q: want console or json", cfg.Log.Format)
	}
	if cfg.Codec.MaxExtensionAdditions == 0 {
		return fmt.Errorf("codec.max_extension_additions must be positive")
	}
	if cfg.Codec.BatchWorkers < 1 {
		return fmt.Errorf("codec.batch_workers must be at least 1")
	}
	return nil
}
