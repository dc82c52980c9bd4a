// # internal/config/config.go
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Root       string     `toml:"root"`
	Exclude    Exclude    `toml:"exclude"`
	Generators Generators `toml:"generators"`
	Watch      Watch      `toml:"watch"`
	History    History    `toml:"history"`
	Metrics    Metrics    `toml:"metrics"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

// Generators toggles the per-package outputs. Manifest is the only one on by
// default.
type Generators struct {
	Manifest bool `toml:"manifest"`
	Readme   bool `toml:"readme"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type History struct {
	Path string `toml:"path"`
}

type Metrics struct {
	Addr string `toml:"addr"`
}

// defaultExcludeDirs never contain package sources worth scanning.
var defaultExcludeDirs = []string{
	"node_modules", ".git", "__pycache__", ".venv", "venv",
	".pytest_cache", ".mypy_cache", "dist", "build",
	".vscode", ".idea", "recordings", "backup", ".subtrees",
}

func Default() *Config {
	return &Config{
		Root: ".",
		Exclude: Exclude{
			Dirs: append([]string(nil), defaultExcludeDirs...),
		},
		Generators: Generators{Manifest: true},
		Watch:      Watch{Debounce: 500 * time.Millisecond},
		History:    History{Path: ".tpack/history.db"},
	}
}

// Load reads a TOML config file, falling back to defaults for anything the
// file leaves unset. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}

	if cfg.Root == "" {
		cfg.Root = "."
	}
	if len(cfg.Exclude.Dirs) == 0 {
		cfg.Exclude.Dirs = append([]string(nil), defaultExcludeDirs...)
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.History.Path == "" {
		cfg.History.Path = ".tpack/history.db"
	}

	return cfg, nil
}
