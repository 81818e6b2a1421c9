package main

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/memex-index/internal/config"
	"github.com/standardbeagle/memex-index/internal/debug"
	"github.com/standardbeagle/memex-index/internal/index"
	"github.com/standardbeagle/memex-index/internal/store"
	"github.com/standardbeagle/memex-index/internal/terms"
	"github.com/standardbeagle/memex-index/internal/version"
)

var (
	cfg          *config.Config
	st           *store.Store
	ix           *index.SearchIndex
	cleanupFuncs []func()
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	dir := c.String("config")
	loaded, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", dir, err)
	}
	if db := c.String("db"); db != "" {
		loaded.Store.Path = db
	}
	return loaded, nil
}

func indexOptions(cfg *config.Config) (index.Options, error) {
	opts := index.DefaultOptions()
	opts.Cleaner = terms.NewCleaner(terms.CleanerOptions{
		Stemming:      cfg.Text.Stemming,
		Stopwords:     cfg.Text.Stopwords,
		MinTermLength: cfg.Text.MinTermLength,
	})
	if cfg.Text.Separator != "" {
		sep, err := regexp.Compile(cfg.Text.Separator)
		if err != nil {
			return opts, fmt.Errorf("text.separator: %w", err)
		}
		opts.Separator = sep
	}
	opts.QueueCapacity = cfg.Queue.Capacity
	opts.DefaultPageSize = cfg.Search.PageSize
	opts.MaxPageSize = cfg.Search.MaxPageSize
	opts.FuzzySuggest = cfg.Search.FuzzySuggest
	opts.FuzzyThreshold = float32(cfg.Search.FuzzyThreshold)
	return opts, nil
}

// openIndex opens the store and index named by cfg and registers their cleanup.
func openIndex(cfg *config.Config) error {
	opts, err := indexOptions(cfg)
	if err != nil {
		return err
	}
	st, err = store.Open(cfg.Store.Path, store.Options{Timeout: time.Duration(cfg.Store.TimeoutMs) * time.Millisecond})
	if err != nil {
		return debug.Fatal("cannot open index: %v", err)
	}
	ix = index.New(st, opts)
	cleanupFuncs = append(cleanupFuncs, func() {
		ix.Close()
		if err := st.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close store: %v\n", err)
		}
		ix, st = nil, nil
	})
	return nil
}

func runCleanup() {
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	cleanupFuncs = nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "memex",
		Usage:   "Local full-text index of visited pages",
		Version: version.FullInfo(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Directory holding .memex.kdl or memex.toml; relative paths resolve against it",
				Value:   ".",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Index database file (overrides store.path)",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to stderr (to a log file in mcp mode)",
			},
		},
		Commands: commands(),
		Before: func(c *cli.Context) error {
			command := c.Args().First()
			if command == "" || command == "help" || c.Bool("help") || c.Bool("version") {
				return nil
			}
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				if command == "mcp" {
					path, err := debug.InitDebugLogFile("")
					if err != nil {
						return err
					}
					fmt.Fprintf(os.Stderr, "debug log: %s\n", path)
					cleanupFuncs = append(cleanupFuncs, func() { _ = debug.CloseDebugLog() })
				} else {
					debug.SetDebugOutput(os.Stderr)
				}
			}
			if command == "mcp" {
				debug.SetMCPMode(true)
			}

			loaded, err := loadConfigWithOverrides(c)
			if err != nil {
				return err
			}
			cfg = loaded
			debug.Printf("config dir %s, store %s\n", cfg.DataDir, cfg.Store.Path)
			return openIndex(cfg)
		},
		After: func(c *cli.Context) error {
			runCleanup()
			return nil
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}
