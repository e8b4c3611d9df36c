// Parses export manifest YAML files.

package export

import (
	"fmt"
	"os"

	"github.com/mdvault/notion"
	"gopkg.in/yaml.v3"
)

// Manifest selects the pages and databases one export run covers.
//
//	version: 1
//	pages:
//	  - id: 878d628488d94894ab14f9b872cd6870
//	    max_depth: 5
//	    subpages: true
//	databases:
//	  - id: 0e9539099cff456d89e44684d6342a22
type Manifest struct {
	Version   int              `yaml:"version"`
	Pages     []PageConfig     `yaml:"pages,omitempty"`
	Databases []DatabaseConfig `yaml:"databases,omitempty"`
}

// PageConfig selects one page subtree.
type PageConfig struct {
	ID string `yaml:"id"`
	// MaxDepth bounds the traversal; negative or absent means the
	// library default.
	MaxDepth *int `yaml:"max_depth,omitempty"`
	// Subpages descends into sub-pages instead of stopping at their
	// boundary.
	Subpages bool `yaml:"subpages,omitempty"`
}

// DatabaseConfig selects one database.
type DatabaseConfig struct {
	ID string `yaml:"id"`
	// Limit bounds the export to the first page of at most Limit rows.
	Limit int `yaml:"limit,omitempty"`
}

// ParseManifest reads and parses a manifest file.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return ParseManifestBytes(data)
}

// ParseManifestBytes parses a manifest from bytes.
func ParseManifestBytes(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Validate checks the manifest and normalizes every id.
func (m *Manifest) Validate() error {
	if m.Version != 1 {
		return fmt.Errorf("unsupported manifest version: %d", m.Version)
	}
	if len(m.Pages) == 0 && len(m.Databases) == 0 {
		return fmt.Errorf("manifest selects nothing to export")
	}
	for i := range m.Pages {
		p := &m.Pages[i]
		if p.ID == "" {
			return fmt.Errorf("page %d: id is required", i)
		}
		p.ID = notion.NormalizeID(p.ID)
	}
	for i := range m.Databases {
		d := &m.Databases[i]
		if d.ID == "" {
			return fmt.Errorf("database %d: id is required", i)
		}
		d.ID = notion.NormalizeID(d.ID)
	}
	return nil
}
