package monitor

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

const (
	ModeLinks  = "links"
	ModeBlocks = "blocks"

	defaultMinTextLength = 15
	defaultMaxItems      = 20
	defaultTimeout       = 30
)

// Registry holds the keyword list and the portals to scan.
type Registry struct {
	Keywords []string       `yaml:"keywords"`
	Sources  []SourceConfig `yaml:"sources"`
}

// SourceConfig defines a single procurement portal.
type SourceConfig struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	URL            string `yaml:"url"`
	Type           string `yaml:"type"` // Municipal, County, State
	Location       string `yaml:"location"`
	Mode           string `yaml:"mode,omitempty"` // "links" (default) or "blocks"
	BlockSelector  string `yaml:"block_selector,omitempty"`
	MinTextLength  int    `yaml:"min_text_length,omitempty"`
	MaxItems       int    `yaml:"max_items,omitempty"` // blocks mode only
	TimeoutSeconds int    `yaml:"timeout_seconds,omitempty"`
	Active         *bool  `yaml:"active,omitempty"` // nil means active
}

// IsActive reports whether the source takes part in scans.
func (s SourceConfig) IsActive() bool {
	return s.Active == nil || *s.Active
}

// LoadRegistry reads the registry from path, or the embedded sources.yaml when path is empty.
// ${VAR} references are expanded from the environment before parsing.
func LoadRegistry(path string) (*Registry, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = sourcesYAML.ReadFile("config/sources.yaml")
	}
	if err != nil {
		return nil, fmt.Errorf("read sources: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry parses and validates registry YAML, filling per-source defaults.
func ParseRegistry(data []byte) (*Registry, error) {
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	keywords := make([]string, 0, len(reg.Keywords))
	for _, k := range reg.Keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil, fmt.Errorf("registry has no keywords")
	}
	reg.Keywords = keywords

	seen := make(map[string]struct{}, len(reg.Sources))
	for i := range reg.Sources {
		src := &reg.Sources[i]
		if src.ID == "" || src.URL == "" {
			return nil, fmt.Errorf("source %d: id and url are required", i)
		}
		if _, dup := seen[src.ID]; dup {
			return nil, fmt.Errorf("source %s: duplicate id", src.ID)
		}
		seen[src.ID] = struct{}{}

		if src.Name == "" {
			src.Name = src.ID
		}
		switch src.Mode {
		case "":
			src.Mode = ModeLinks
		case ModeLinks:
		case ModeBlocks:
			if src.BlockSelector == "" {
				return nil, fmt.Errorf("source %s: blocks mode needs block_selector", src.ID)
			}
			if src.MaxItems == 0 {
				src.MaxItems = defaultMaxItems
			}
		default:
			return nil, fmt.Errorf("source %s: unknown mode %q", src.ID, src.Mode)
		}
		if src.MinTextLength == 0 {
			src.MinTextLength = defaultMinTextLength
		}
		if src.TimeoutSeconds == 0 {
			src.TimeoutSeconds = defaultTimeout
		}
	}

	return &reg, nil
}

// ActiveSources returns the sources that take part in scans, in registry order.
func (r *Registry) ActiveSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(r.Sources))
	for _, s := range r.Sources {
		if s.IsActive() {
			out = append(out, s)
		}
	}
	return out
}
