package fields

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed registry.yaml
var defaultRegistryYAML []byte

// Table names as used by the backend and the registry file.
const (
	TableTravelers  = "travelers"
	TableDependents = "dependents"
)

// DefaultPlaceholder is shown for fields the registry does not know about.
const DefaultPlaceholder = "Click to edit"

// Kind is the editor widget a field opens.
type Kind int

const (
	KindText Kind = iota
	KindTextArea
	KindDate
	KindSelect
	KindMultiSelect
)

func (k Kind) String() string {
	switch k {
	case KindTextArea:
		return "textarea"
	case KindDate:
		return "date"
	case KindSelect:
		return "select"
	case KindMultiSelect:
		return "multi-select"
	default:
		return "text"
	}
}

// Spec describes one field: its value domain, placeholder, widget and display policy.
type Spec struct {
	Name        string   `yaml:"name" json:"name"`
	Label       string   `yaml:"label" json:"label"`
	Tables      []string `yaml:"tables" json:"tables,omitempty"`
	Options     []string `yaml:"options" json:"options,omitempty"`
	OptionsFrom string   `yaml:"options_from" json:"-"`
	Multi       bool     `yaml:"multi" json:"isMulti"`
	Date        bool     `yaml:"date" json:"isDate"`
	LargeText   bool     `yaml:"large_text" json:"isLargeText"`
	Link        bool     `yaml:"link" json:"isLink"`
	Placeholder string   `yaml:"placeholder" json:"placeholder"`
	Required    bool     `yaml:"required" json:"required"`

	// SuppressHighlight keeps an empty field from being flagged as missing.
	SuppressHighlight bool `yaml:"suppress_highlight" json:"suppressHighlight"`
	// AffectsDerivedDisplay means a committed change invalidates group-level
	// badges (progress, counts, package), so the record is refetched.
	AffectsDerivedDisplay bool `yaml:"affects_derived_display" json:"affectsDerivedDisplay"`
}

// Kind reports which editor widget the field uses.
func (s Spec) Kind() Kind {
	switch {
	case s.Multi:
		return KindMultiSelect
	case len(s.Options) > 0:
		return KindSelect
	case s.Date:
		return KindDate
	case s.LargeText:
		return KindTextArea
	default:
		return KindText
	}
}

// InTable reports whether the field is rendered for records of the given table.
// Fields without a table list apply to both.
func (s Spec) InTable(table string) bool {
	if len(s.Tables) == 0 {
		return true
	}
	for _, t := range s.Tables {
		if t == table {
			return true
		}
	}
	return false
}

// Registry is a read-only lookup table of field specs.
type Registry struct {
	statuses []string
	order    []string
	byName   map[string]Spec
}

type registryFile struct {
	Statuses []string `yaml:"statuses"`
	Fields   []Spec   `yaml:"fields"`
}

// Override replaces option lists (and optionally statuses) of a loaded registry.
type Override struct {
	Statuses []string            `yaml:"statuses"`
	Options  map[string][]string `yaml:"options"`
}

var ErrUnknownOptionsSource = errors.New("unknown options_from source")

// Default returns the embedded registry. It panics only if the embedded file is broken.
func Default() *Registry {
	r, err := Parse(defaultRegistryYAML)
	if err != nil {
		panic(fmt.Sprintf("fields: embedded registry: %v", err))
	}
	return r
}

// Parse builds a registry from YAML.
func Parse(b []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	r := &Registry{
		statuses: append([]string(nil), f.Statuses...),
		byName:   make(map[string]Spec, len(f.Fields)),
	}
	for _, s := range f.Fields {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, errors.New("parse registry: field without name")
		}
		if _, dup := r.byName[s.Name]; dup {
			return nil, fmt.Errorf("parse registry: duplicate field %q", s.Name)
		}
		switch s.OptionsFrom {
		case "":
		case "statuses":
			s.Options = append([]string(nil), r.statuses...)
		default:
			return nil, fmt.Errorf("parse registry: field %q: %w %q", s.Name, ErrUnknownOptionsSource, s.OptionsFrom)
		}
		if strings.TrimSpace(s.Label) == "" {
			s.Label = s.Name
		}
		if strings.TrimSpace(s.Placeholder) == "" {
			s.Placeholder = DefaultPlaceholder
		}
		r.order = append(r.order, s.Name)
		r.byName[s.Name] = s
	}
	return r, nil
}

// LoadOverride applies an override file on top of r and returns a new registry.
// A missing path is not an error.
func (r *Registry) LoadOverride(path string) (*Registry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return r, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}
		return nil, err
	}
	var ov Override
	if err := yaml.Unmarshal(b, &ov); err != nil {
		return nil, fmt.Errorf("parse registry override %s: %w", path, err)
	}
	return r.WithOverride(ov), nil
}

// WithOverride returns a copy of r with the override applied.
func (r *Registry) WithOverride(ov Override) *Registry {
	out := &Registry{
		statuses: append([]string(nil), r.statuses...),
		order:    append([]string(nil), r.order...),
		byName:   make(map[string]Spec, len(r.byName)),
	}
	if len(ov.Statuses) > 0 {
		out.statuses = append([]string(nil), ov.Statuses...)
	}
	for name, s := range r.byName {
		if s.OptionsFrom == "statuses" {
			s.Options = append([]string(nil), out.statuses...)
		}
		if opts, ok := ov.Options[name]; ok && len(opts) > 0 {
			s.Options = append([]string(nil), opts...)
		}
		out.byName[name] = s
	}
	return out
}

// Lookup returns the spec for a field. Unknown fields are plain text fields.
func (r *Registry) Lookup(name string) Spec {
	if s, ok := r.byName[name]; ok {
		return s
	}
	return Spec{Name: name, Label: name, Placeholder: DefaultPlaceholder}
}

// Known reports whether the registry declares the field.
func (r *Registry) Known(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Statuses returns the fixed status set in declaration order.
func (r *Registry) Statuses() []string {
	return append([]string(nil), r.statuses...)
}

// Order returns the field names rendered for a table, in visual order.
func (r *Registry) Order(table string) []string {
	out := make([]string, 0, len(r.order))
	for _, name := range r.order {
		if r.byName[name].InTable(table) {
			out = append(out, name)
		}
	}
	return out
}

// All returns every spec in declaration order.
func (r *Registry) All() []Spec {
	out := make([]Spec, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}

// IsDate is a shortcut used by the wire conversion code.
func (r *Registry) IsDate(name string) bool {
	return r.Lookup(name).Date
}
