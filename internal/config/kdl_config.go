package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL applies dir/.memex.kdl to cfg. It reports false when the file is absent.
func LoadKDL(dir string, cfg *Config) (bool, error) {
	path := filepath.Join(dir, KDLFileName)
	if !fileExists(path) {
		return false, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", KDLFileName, err)
	}
	if err := parseKDL(string(content), cfg); err != nil {
		return false, err
	}
	return true, nil
}

func parseKDL(content string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "store":
			for _, cn := range n.Children {
				assignSimpleString(cn, "path", func(v string) { cfg.Store.Path = v })
				if nodeName(cn) == "timeout_ms" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Store.TimeoutMs = v
					}
				}
			}
		case "queue":
			for _, cn := range n.Children {
				if nodeName(cn) == "capacity" {
					if v, ok := firstIntArg(cn); ok {
						cfg.Queue.Capacity = v
					}
				}
			}
		case "text":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "stemming":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Text.Stemming = b
					}
				case "stopwords":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Text.Stopwords = b
					}
				case "min_term_length":
					if v, ok := firstIntArg(cn); ok {
						cfg.Text.MinTermLength = v
					}
				case "separator":
					if s, ok := firstStringArg(cn); ok {
						cfg.Text.Separator = s
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "page_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.PageSize = v
					}
				case "max_page_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxPageSize = v
					}
				case "fuzzy_suggest":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.FuzzySuggest = b
					}
				case "fuzzy_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Search.FuzzyThreshold = v
					}
				}
			}
		case "dump":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "chunk_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Dump.ChunkSize = v
					}
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Dump.Dir = s
					}
				case "workers":
					if v, ok := firstIntArg(cn); ok {
						cfg.Dump.Workers = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "dir":
					if s, ok := firstStringArg(cn); ok {
						cfg.Watch.Dir = s
					}
				case "include":
					// an include block replaces the default patterns
					cfg.Watch.Include = collectStringArgs(cn)
				case "exclude":
					cfg.Watch.Exclude = collectStringArgs(cn)
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				}
			}
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		log.Printf("WARNING: invalid float value for '%s' in KDL config, expected number but got %T", nodeName(n), n.Arguments[0].Value)
		return 0, false
	}
}

// collectStringArgs accepts both `include "a" "b"` and block form `include { "a"; "b" }`.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
