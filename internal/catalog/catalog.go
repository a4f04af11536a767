// Package catalog loads the seed achievement catalog from YAML.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/vytor/mathtermind/internal/criteria"
	"github.com/vytor/mathtermind/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed achievements.yaml
var embeddedCatalog []byte

type yamlCatalog struct {
	Version      int               `yaml:"version"`
	Achievements []yamlAchievement `yaml:"achievements"`
}

type yamlAchievement struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Category    string         `yaml:"category"`
	Icon        string         `yaml:"icon"`
	Points      int            `yaml:"points"`
	Hidden      bool           `yaml:"hidden"`
	Tier        string         `yaml:"tier"`
	Criteria    map[string]any `yaml:"criteria"`
}

// Skipped records a catalog entry that could not be turned into an achievement.
type Skipped struct {
	Name   string
	Reason error
}

// Catalog is the parsed seed set.
type Catalog struct {
	Achievements []models.Achievement
	Skipped      []Skipped
}

// Read returns the raw catalog at path, or the embedded one when path is empty.
func Read(path string) ([]byte, error) {
	if path = strings.TrimSpace(path); path != "" {
		return os.ReadFile(path)
	}
	return embeddedCatalog, nil
}

// Load reads and parses the catalog at path (embedded when empty).
func Load(path string) (*Catalog, error) {
	data, err := Read(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a catalog document. Entries with invalid criteria are skipped
// and reported rather than failing the whole catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc yamlCatalog
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if len(doc.Achievements) == 0 {
		return nil, errors.New("catalog: no achievements defined")
	}

	out := &Catalog{}
	seen := make(map[string]bool, len(doc.Achievements))
	for _, entry := range doc.Achievements {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			return nil, errors.New("catalog: achievement name is required")
		}
		if seen[name] {
			return nil, fmt.Errorf("catalog: duplicate achievement name: %s", name)
		}
		seen[name] = true

		c, err := criteria.Parse(entry.Criteria)
		if err != nil {
			out.Skipped = append(out.Skipped, Skipped{Name: name, Reason: err})
			continue
		}
		if entry.Points < 0 {
			out.Skipped = append(out.Skipped, Skipped{Name: name, Reason: fmt.Errorf("negative points %d", entry.Points)})
			continue
		}

		a := models.Achievement{
			Name:        name,
			Description: entry.Description,
			Criteria:    criteria.Spec{Criteria: c},
			Category:    strings.ToLower(strings.TrimSpace(entry.Category)),
			Icon:        entry.Icon,
			Points:      entry.Points,
			IsHidden:    entry.Hidden,
		}
		if entry.Tier != "" {
			tier := entry.Tier
			a.Tier = &tier
		}
		out.Achievements = append(out.Achievements, a)
	}
	return out, nil
}
