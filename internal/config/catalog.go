package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/newsdesk/internal/aggregator"
	"github.com/deusflow/newsdesk/internal/classify"
	"github.com/deusflow/newsdesk/internal/source"
)

// Catalog is the YAML document listing sources and classification rules.
// Categories are evaluated in file order.
type Catalog struct {
	DefaultCategory  string               `yaml:"default_category"`
	Categories       []classify.Rule      `yaml:"categories"`
	Exclude          []string             `yaml:"exclude"`
	PriorityKeywords []aggregator.Keyword `yaml:"priority_keywords"`
	Sources          []source.Config      `yaml:"sources"`
}

// LoadCatalog reads and validates the catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("can't read catalog: %w", err)
	}

	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("can't parse catalog %s: %w", path, err)
	}
	if cat.DefaultCategory == "" {
		cat.DefaultCategory = "general"
	}
	if err := cat.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", path, err)
	}
	return &cat, nil
}

func (c *Catalog) Validate() error {
	names := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("source %d: %w", i, err)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate source name %q", s.Name)
		}
		names[s.Name] = true
	}

	cats := make(map[string]bool, len(c.Categories))
	for _, r := range c.Categories {
		if r.Category == "" {
			return fmt.Errorf("category without name")
		}
		if cats[r.Category] {
			return fmt.Errorf("duplicate category %q", r.Category)
		}
		if len(r.Keywords) == 0 {
			return fmt.Errorf("category %q has no keywords", r.Category)
		}
		cats[r.Category] = true
	}
	return nil
}

// Enabled returns the sources not marked disabled, in file order.
func (c *Catalog) Enabled() []source.Config {
	var out []source.Config
	for _, s := range c.Sources {
		if !s.Disabled {
			out = append(out, s)
		}
	}
	return out
}
