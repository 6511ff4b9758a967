// Package allergen holds the allergen, caution and dietary reference data
// and the rule-based matcher that checks ingredient text against it.
package allergen

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"label-checker/internal/core/label"
)

//go:embed data/reference.yaml
var defaultReference []byte

// Kind separates the three reference collections.
type Kind string

const (
	KindAllergen   Kind = "allergen"
	KindCaution    Kind = "caution"
	KindPreference Kind = "preference"
)

// Definition is one reference entry. For dietary preferences Keywords holds
// the ingredients the diet avoids.
type Definition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	Keywords    []string `json:"keywords"`
}

type yamlDefinition struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Reason        string   `yaml:"reason"`
	Severity      string   `yaml:"severity"`
	Keywords      []string `yaml:"keywords"`
	AvoidKeywords []string `yaml:"avoid_keywords"`
}

type yamlReference struct {
	Allergens   []yamlDefinition `yaml:"allergens"`
	Cautions    []yamlDefinition `yaml:"cautions"`
	Preferences []yamlDefinition `yaml:"preferences"`
}

// Table is the immutable reference data. Build it once and share it.
type Table struct {
	allergens   []Definition
	cautions    []Definition
	preferences []Definition

	allergenIndex   map[string]int
	preferenceIndex map[string]int
}

// DefaultTable parses the embedded reference data.
func DefaultTable() (*Table, error) {
	return ParseTable(defaultReference)
}

// LoadTable reads reference data from path, or the embedded data when path
// is empty.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return ParseTable(data)
}

// ParseTable builds a Table from YAML.
func ParseTable(data []byte) (*Table, error) {
	var raw yamlReference
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse reference data: %w", err)
	}

	t := &Table{}
	var err error
	if t.allergens, t.allergenIndex, err = buildDefinitions(KindAllergen, raw.Allergens); err != nil {
		return nil, err
	}
	if t.cautions, _, err = buildDefinitions(KindCaution, raw.Cautions); err != nil {
		return nil, err
	}
	if t.preferences, t.preferenceIndex, err = buildDefinitions(KindPreference, raw.Preferences); err != nil {
		return nil, err
	}
	if len(t.allergens) == 0 {
		return nil, fmt.Errorf("reference data has no allergens")
	}
	return t, nil
}

func buildDefinitions(kind Kind, raw []yamlDefinition) ([]Definition, map[string]int, error) {
	defs := make([]Definition, 0, len(raw))
	index := make(map[string]int, len(raw))
	for i, r := range raw {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			return nil, nil, fmt.Errorf("%s #%d: missing id", kind, i+1)
		}
		key := label.Normalize(id)
		if _, dup := index[key]; dup {
			return nil, nil, fmt.Errorf("%s %q: duplicate id", kind, id)
		}

		keywords := r.Keywords
		if kind == KindPreference {
			keywords = r.AvoidKeywords
		}
		cleaned := make([]string, 0, len(keywords))
		for _, kw := range keywords {
			if kw = strings.TrimSpace(kw); kw != "" {
				cleaned = append(cleaned, kw)
			}
		}
		if len(cleaned) == 0 {
			return nil, nil, fmt.Errorf("%s %q: no keywords", kind, id)
		}

		name := strings.TrimSpace(r.Name)
		if name == "" {
			name = id
		}
		desc := r.Description
		if desc == "" {
			desc = r.Reason
		}

		index[key] = len(defs)
		defs = append(defs, Definition{
			ID:          id,
			Name:        name,
			Description: desc,
			Severity:    r.Severity,
			Keywords:    cleaned,
		})
	}
	return defs, index, nil
}

// Allergens returns the allergen definitions in reference order.
func (t *Table) Allergens() []Definition { return cloneDefinitions(t.allergens) }

// Cautions returns the caution definitions in reference order.
func (t *Table) Cautions() []Definition { return cloneDefinitions(t.cautions) }

// Preferences returns the dietary preference definitions in reference order.
func (t *Table) Preferences() []Definition { return cloneDefinitions(t.preferences) }

// Allergen looks an allergen up by id. Ids compare after Normalize, so
// "fındık", "FINDIK" and "findik" are the same allergen.
func (t *Table) Allergen(id string) (Definition, bool) {
	return lookup(t.allergens, t.allergenIndex, id)
}

// Preference looks a dietary preference up by id.
func (t *Table) Preference(id string) (Definition, bool) {
	return lookup(t.preferences, t.preferenceIndex, id)
}

func lookup(defs []Definition, index map[string]int, id string) (Definition, bool) {
	i, ok := index[label.Normalize(strings.TrimSpace(id))]
	if !ok {
		return Definition{}, false
	}
	return cloneDefinition(defs[i]), true
}

func cloneDefinition(d Definition) Definition {
	d.Keywords = append([]string(nil), d.Keywords...)
	return d
}

func cloneDefinitions(defs []Definition) []Definition {
	out := make([]Definition, len(defs))
	for i, d := range defs {
		out[i] = cloneDefinition(d)
	}
	return out
}
