// Package customfield models user-defined dispute attributes as a closed set
// of field kinds and validates dispute values against them.
package customfield

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"chargeback/internal/models"
)

var alphanumericRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// Field is one custom field definition. Each kind carries only the
// configuration it needs.
type Field interface {
	Key() string
	Label() string
	Type() string
	Required() bool
	// Normalize checks a raw value and returns its stored form.
	Normalize(value interface{}) (interface{}, error)
}

type base struct {
	key      string
	label    string
	required bool
}

func (b base) Key() string    { return b.key }
func (b base) Label() string  { return b.label }
func (b base) Required() bool { return b.required }

type TextField struct{ base }

func (TextField) Type() string { return models.FieldTypeText }

func (f TextField) Normalize(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be text", f.key)
	}
	return s, nil
}

type NumberField struct{ base }

func (NumberField) Type() string { return models.FieldTypeNumber }

func (f NumberField) Normalize(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%s must be a number", f.key)
		}
		return n, nil
	}
	return nil, fmt.Errorf("%s must be a number", f.key)
}

type DateField struct{ base }

func (DateField) Type() string { return models.FieldTypeDate }

func (f DateField) Normalize(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a date", f.key)
	}
	s = strings.TrimSpace(s)
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return nil, fmt.Errorf("%s must be a date in YYYY-MM-DD format", f.key)
	}
	return s, nil
}

type AlphanumericField struct{ base }

func (AlphanumericField) Type() string { return models.FieldTypeAlphanumeric }

func (f AlphanumericField) Normalize(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok || !alphanumericRegex.MatchString(s) {
		return nil, fmt.Errorf("%s must contain only letters and digits", f.key)
	}
	return s, nil
}

// DropdownField restricts values to an ordered option list.
type DropdownField struct {
	base
	Options []string
}

func (DropdownField) Type() string { return models.FieldTypeDropdown }

func (f DropdownField) Normalize(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if ok {
		for _, opt := range f.Options {
			if opt == s {
				return s, nil
			}
		}
	}
	return nil, fmt.Errorf("%s must be one of: %s", f.key, strings.Join(f.Options, ", "))
}

// FromModel converts a stored definition to its kind.
func FromModel(m *models.CustomField) (Field, error) {
	b := base{key: m.Key, label: m.Label, required: m.Required}
	switch m.Type {
	case models.FieldTypeText:
		return TextField{b}, nil
	case models.FieldTypeNumber:
		return NumberField{b}, nil
	case models.FieldTypeDate:
		return DateField{b}, nil
	case models.FieldTypeAlphanumeric:
		return AlphanumericField{b}, nil
	case models.FieldTypeDropdown:
		return DropdownField{base: b, Options: append([]string(nil), m.Options...)}, nil
	}
	return nil, fmt.Errorf("custom field %q has unknown type %q", m.Key, m.Type)
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// ValidateValues checks values against fields and returns the normalized
// map. Keys without a definition are rejected.
func ValidateValues(fields []Field, values map[string]interface{}) (map[string]interface{}, map[string]string) {
	out := make(map[string]interface{})
	problems := make(map[string]string)

	known := make(map[string]Field, len(fields))
	for _, f := range fields {
		known[f.Key()] = f
	}
	for key := range values {
		if _, ok := known[key]; !ok {
			problems[key] = "unknown custom field"
		}
	}

	for _, f := range fields {
		raw, present := values[f.Key()]
		if !present || isBlank(raw) {
			if f.Required() {
				problems[f.Key()] = "is required"
			}
			continue
		}
		v, err := f.Normalize(raw)
		if err != nil {
			problems[f.Key()] = err.Error()
			continue
		}
		out[f.Key()] = v
	}
	return out, problems
}
