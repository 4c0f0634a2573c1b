package forms

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed schemas.yaml
var schemaYAML []byte

// Spec describes one form.
type Spec struct {
	Required []string          `yaml:"required" json:"required"`
	Lists    []string          `yaml:"lists" json:"lists,omitempty"`
	Context  map[string]string `yaml:"context" json:"context,omitempty"`
}

func (s Spec) IsList(field string) bool {
	for _, l := range s.Lists {
		if l == field {
			return true
		}
	}
	return false
}

type Schema struct {
	Forms map[string]Spec `yaml:"forms" json:"forms"`
}

// Parse decodes a schema document and checks that context mappings only
// reference project, area or site.
func Parse(doc []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("parse form schema: %w", err)
	}
	for name, spec := range s.Forms {
		for field, part := range spec.Context {
			switch part {
			case "project", "area", "site":
			default:
				return nil, fmt.Errorf("form %s: field %s maps to unknown context part %q", name, field, part)
			}
		}
	}
	return &s, nil
}

var defaultSchema = mustParse(schemaYAML)

func mustParse(doc []byte) *Schema {
	s, err := Parse(doc)
	if err != nil {
		panic(err)
	}
	return s
}

// Default returns the embedded schema.
func Default() *Schema {
	return defaultSchema
}

func (s *Schema) Lookup(form string) (Spec, bool) {
	spec, ok := s.Forms[form]
	return spec, ok
}

func (s *Schema) Names() []string {
	names := make([]string, 0, len(s.Forms))
	for n := range s.Forms {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Validate reports every required field that is absent, null, a blank
// string or an empty list. Numbers and booleans count as present, zero
// included.
func (s *Schema) Validate(form string, values map[string]interface{}) map[string]string {
	spec, ok := s.Forms[form]
	if !ok {
		return map[string]string{"form": fmt.Sprintf("unknown form %q", form)}
	}
	errs := map[string]string{}
	for _, field := range spec.Required {
		if !present(values[field]) {
			errs[field] = "required"
		}
	}
	return errs
}

func present(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(t) != ""
	case []interface{}:
		return len(t) > 0
	case []string:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	default:
		return true
	}
}
