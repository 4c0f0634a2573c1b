package forms

import (
	"fmt"

	"arqueo-backend/internal/apperr"
)

// Form holds the values of one entity form between edits. Values are JSON
// shaped (strings, float64, bool, []interface{}, map[string]interface{}).
type Form struct {
	name   string
	spec   Spec
	schema *Schema
	values map[string]interface{}
	errors map[string]string
}

// New starts a form from optional initial data (edit mode).
func (s *Schema) New(name string, initial map[string]interface{}) (*Form, error) {
	spec, ok := s.Forms[name]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown form %q", name), nil)
	}
	values := make(map[string]interface{}, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &Form{name: name, spec: spec, schema: s, values: values, errors: map[string]string{}}, nil
}

// Prefill copies context parts (keys "project", "area", "site") into the
// fields the schema maps to them, leaving non-empty fields untouched.
func (f *Form) Prefill(parts map[string]string) {
	for field, part := range f.spec.Context {
		if present(f.values[field]) {
			continue
		}
		if v := parts[part]; v != "" {
			f.values[field] = v
		}
	}
}

func (f *Form) Set(field string, value interface{}) {
	f.values[field] = value
	delete(f.errors, field)
}

func (f *Form) Values() map[string]interface{} {
	return f.values
}

func (f *Form) Errors() map[string]string {
	return f.errors
}

func (f *Form) list(field string) ([]interface{}, error) {
	if !f.spec.IsList(field) {
		return nil, apperr.Validation(fmt.Sprintf("%s is not a list field of %s", field, f.name), map[string]string{field: "not a list"})
	}
	switch cur := f.values[field].(type) {
	case nil:
		return []interface{}{}, nil
	case []interface{}:
		return cur, nil
	case []string:
		out := make([]interface{}, len(cur))
		for i, s := range cur {
			out[i] = s
		}
		return out, nil
	default:
		return nil, apperr.Validation(fmt.Sprintf("%s holds a %T, not a list", field, cur), map[string]string{field: "not a list"})
	}
}

func indexErr(field string, idx, n int) error {
	return apperr.Validation(fmt.Sprintf("index %d out of range for %s (length %d)", idx, field, n), map[string]string{field: "index out of range"})
}

func (f *Form) AddItem(field string, v interface{}) error {
	items, err := f.list(field)
	if err != nil {
		return err
	}
	f.values[field] = append(append([]interface{}{}, items...), v)
	return nil
}

func (f *Form) UpdateItem(field string, idx int, v interface{}) error {
	items, err := f.list(field)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(items) {
		return indexErr(field, idx, len(items))
	}
	next := append([]interface{}{}, items...)
	next[idx] = v
	f.values[field] = next
	return nil
}

func (f *Form) RemoveItem(field string, idx int) error {
	items, err := f.list(field)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(items) {
		return indexErr(field, idx, len(items))
	}
	next := make([]interface{}, 0, len(items)-1)
	next = append(next, items[:idx]...)
	f.values[field] = append(next, items[idx+1:]...)
	return nil
}

// Submit validates synchronously. On failure the field-keyed error map is
// kept on the form and returned inside a validation error.
func (f *Form) Submit() (map[string]interface{}, error) {
	f.errors = f.schema.Validate(f.name, f.values)
	if len(f.errors) > 0 {
		return nil, apperr.Validation("missing required fields", f.errors)
	}
	return f.values, nil
}
