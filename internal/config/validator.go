package config

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strconv"

	memexerrors "github.com/standardbeagle/memex-index/internal/errors"
)

// Validator validates configuration and fills zero values with defaults.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults returns a ConfigError naming the first invalid section.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg.Store.Path == "" {
		return memexerrors.NewConfigError("store.path", "", errors.New("store path cannot be empty"))
	}
	if cfg.Store.TimeoutMs < 0 {
		return memexerrors.NewConfigError("store.timeout_ms", strconv.Itoa(cfg.Store.TimeoutMs), errors.New("cannot be negative"))
	}

	if cfg.Queue.Capacity < 0 {
		return memexerrors.NewConfigError("queue.capacity", strconv.Itoa(cfg.Queue.Capacity), errors.New("cannot be negative"))
	}

	if err := v.validateText(&cfg.Text); err != nil {
		return memexerrors.NewConfigError("text", cfg.Text.Separator, err)
	}

	if err := v.validateSearch(&cfg.Search); err != nil {
		return memexerrors.NewConfigError("search", "", err)
	}

	if cfg.Dump.ChunkSize < 0 || cfg.Dump.Workers < 0 {
		return memexerrors.NewConfigError("dump", "", fmt.Errorf("chunk_size and workers cannot be negative, got %d and %d", cfg.Dump.ChunkSize, cfg.Dump.Workers))
	}

	if cfg.Watch.DebounceMs < 0 {
		return memexerrors.NewConfigError("watch.debounce_ms", strconv.Itoa(cfg.Watch.DebounceMs), errors.New("cannot be negative"))
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateText(text *Text) error {
	if text.MinTermLength < 0 {
		return fmt.Errorf("min_term_length cannot be negative, got %d", text.MinTermLength)
	}
	if text.Separator != "" {
		if _, err := regexp.Compile(text.Separator); err != nil {
			return fmt.Errorf("separator is not a valid regexp: %w", err)
		}
	}
	return nil
}

func (v *Validator) validateSearch(search *Search) error {
	if search.PageSize < 0 {
		return fmt.Errorf("page_size cannot be negative, got %d", search.PageSize)
	}
	if search.MaxPageSize < 0 {
		return fmt.Errorf("max_page_size cannot be negative, got %d", search.MaxPageSize)
	}
	if search.MaxPageSize > 0 && search.PageSize > search.MaxPageSize {
		return fmt.Errorf("page_size %d exceeds max_page_size %d", search.PageSize, search.MaxPageSize)
	}
	if search.FuzzyThreshold < 0 || search.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be between 0 and 1, got %v", search.FuzzyThreshold)
	}
	return nil
}

func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Queue.Capacity == 0 {
		cfg.Queue.Capacity = 256
	}
	if cfg.Search.PageSize == 0 {
		cfg.Search.PageSize = 10
	}
	if cfg.Search.MaxPageSize == 0 {
		cfg.Search.MaxPageSize = 1000
	}
	if cfg.Dump.ChunkSize == 0 {
		cfg.Dump.ChunkSize = 1000
	}
	// leave a core free for the writer
	if cfg.Dump.Workers == 0 {
		cfg.Dump.Workers = max(1, runtime.NumCPU()-1)
	}
	if len(cfg.Watch.Include) == 0 {
		cfg.Watch.Include = []string{"**/*.json"}
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
