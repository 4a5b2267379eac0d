package taxonomy

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultTaxonomyYAML []byte

// Taxonomy is the versioned keyword table driving topic extraction.
// Categories map a domain area to its stem keywords; Phrases are canonical
// situation phrases matched verbatim against normalized text.
type Taxonomy struct {
	Version    int                 `yaml:"version"`
	Categories map[string][]string `yaml:"categories"`
	Phrases    []string            `yaml:"phrases"`
}

// Load reads a taxonomy YAML file. An empty path loads the embedded default.
func Load(path string) (*Taxonomy, error) {
	if path == "" {
		return parse(DefaultTaxonomyYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading taxonomy: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parsing taxonomy: %w", err)
	}
	if err := t.validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func (t *Taxonomy) validate() error {
	if t.Version < 1 {
		return fmt.Errorf("taxonomy version must be >= 1, got %d", t.Version)
	}
	if len(t.Categories) == 0 {
		return fmt.Errorf("taxonomy has no categories")
	}
	for category, stems := range t.Categories {
		if strings.TrimSpace(category) == "" {
			return fmt.Errorf("taxonomy has an empty category name")
		}
		if len(stems) == 0 {
			return fmt.Errorf("category %q has no stems", category)
		}
		for _, stem := range stems {
			if strings.TrimSpace(stem) == "" {
				return fmt.Errorf("category %q has an empty stem", category)
			}
		}
	}
	return nil
}

// CategoryNames returns category names in stable order.
func (t *Taxonomy) CategoryNames() []string {
	names := make([]string, 0, len(t.Categories))
	for name := range t.Categories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// StemCount returns the total number of stems across all categories.
func (t *Taxonomy) StemCount() int {
	n := 0
	for _, stems := range t.Categories {
		n += len(stems)
	}
	return n
}
