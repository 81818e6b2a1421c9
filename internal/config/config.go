package config

import (
	"os"
	"path/filepath"
)

const (
	KDLFileName  = ".memex.kdl"
	TOMLFileName = "memex.toml"
)

type Config struct {
	Version int    `toml:"version"`
	DataDir string `toml:"-"` // directory the config was loaded from; relative paths resolve against it
	Store   Store  `toml:"store"`
	Queue   Queue  `toml:"queue"`
	Text    Text   `toml:"text"`
	Search  Search `toml:"search"`
	Dump    Dump   `toml:"dump"`
	Watch   Watch  `toml:"watch"`
}

type Store struct {
	Path      string `toml:"path"`
	TimeoutMs int    `toml:"timeout_ms"` // wait for the file lock held by another process
}

type Queue struct {
	Capacity int `toml:"capacity"` // pending mutations before Submit blocks
}

type Text struct {
	Stemming      bool   `toml:"stemming"`
	Stopwords     bool   `toml:"stopwords"`
	MinTermLength int    `toml:"min_term_length"`
	Separator     string `toml:"separator"` // regexp splitting page text; empty uses Unicode word segmentation
}

type Search struct {
	PageSize       int     `toml:"page_size"`
	MaxPageSize    int     `toml:"max_page_size"`
	FuzzySuggest   bool    `toml:"fuzzy_suggest"`
	FuzzyThreshold float64 `toml:"fuzzy_threshold"`
}

type Dump struct {
	ChunkSize int    `toml:"chunk_size"`
	Dir       string `toml:"dir"`
	Workers   int    `toml:"workers"`
}

type Watch struct {
	Dir        string   `toml:"dir"`
	Include    []string `toml:"include"`
	Exclude    []string `toml:"exclude"`
	DebounceMs int      `toml:"debounce_ms"`
}

// Default returns the configuration used when no file overrides it.
func Default(dataDir string) *Config {
	return &Config{
		Version: 1,
		DataDir: dataDir,
		Store: Store{
			Path:      "memex.db",
			TimeoutMs: 1000,
		},
		Queue: Queue{Capacity: 256},
		Text: Text{
			Stemming:      true,
			Stopwords:     true,
			MinTermLength: 2,
		},
		Search: Search{
			PageSize:       10,
			MaxPageSize:    1000,
			FuzzySuggest:   true,
			FuzzyThreshold: 0.8,
		},
		Dump: Dump{
			ChunkSize: 1000,
			Dir:       "dump",
			Workers:   4,
		},
		Watch: Watch{
			Dir:        "inbox",
			Include:    []string{"**/*.json"},
			Exclude:    []string{"**/.*"},
			DebounceMs: 200,
		},
	}
}

// Load reads .memex.kdl, falling back to memex.toml, from dataDir and applies it over
// the defaults. A missing file is not an error. The result is validated.
func Load(dataDir string) (*Config, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if abs, err := filepath.Abs(dataDir); err == nil {
		dataDir = abs
	}

	cfg := Default(dataDir)
	loaded, err := LoadKDL(dataDir, cfg)
	if err != nil {
		return nil, err
	}
	if !loaded {
		if _, err := LoadTOML(dataDir, cfg); err != nil {
			return nil, err
		}
	}

	cfg.resolvePaths()
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) resolvePaths() {
	c.Store.Path = c.resolve(c.Store.Path)
	c.Dump.Dir = c.resolve(c.Dump.Dir)
	c.Watch.Dir = c.resolve(c.Watch.Dir)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.DataDir, p)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
