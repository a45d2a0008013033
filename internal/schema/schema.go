// Package schema declares the feature schema shared by the store codec,
// the scorer and request validation. The set of feature names is fixed:
// every vector written, read or scored must carry exactly these names.
package schema

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// Feature kinds. Categorical features carry encoded numeric codes with a
// declared domain; numeric features are unconstrained scalars.
const (
	KindNumeric     = "numeric"
	KindCategorical = "categorical"
)

// ErrInvalidVector marks a vector that does not satisfy the schema
// (missing name, unknown name, or categorical code outside its domain).
var ErrInvalidVector = errors.New("invalid feature vector")

// FeatureVector maps feature names to scalar values for one entity.
type FeatureVector map[string]float64

// Clone returns an independent copy of the vector.
func (v FeatureVector) Clone() FeatureVector {
	out := make(FeatureVector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Field is one declared feature.
type Field struct {
	Name  string    `yaml:"name"`
	Kind  string    `yaml:"kind"`
	Codes []float64 `yaml:"codes,omitempty"` // allowed values for categorical fields
}

// Schema is the ordered, immutable set of declared features.
type Schema struct {
	fields []Field
	index  map[string]int
}

// New builds a schema from the given fields. Field order is preserved and
// defines the vectorization order consumed by the scorer.
func New(fields []Field) (*Schema, error) {
	if len(fields) == 0 {
		return nil, errors.New("schema: no fields declared")
	}
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("schema: field %d has no name", i)
		}
		if f.Kind != KindNumeric && f.Kind != KindCategorical {
			return nil, fmt.Errorf("schema: field %q has unknown kind %q", f.Name, f.Kind)
		}
		if f.Kind == KindCategorical && len(f.Codes) == 0 {
			return nil, fmt.Errorf("schema: categorical field %q declares no codes", f.Name)
		}
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		index[f.Name] = i
	}
	return &Schema{fields: append([]Field(nil), fields...), index: index}, nil
}

// Len returns the number of declared features.
func (s *Schema) Len() int { return len(s.fields) }

// Names returns the declared feature names in schema order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.Name
	}
	return out
}

// Has reports whether name is a declared feature.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Field returns the declaration for name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Validate checks v against the schema: every declared name present, no
// undeclared names, categorical values within their declared domain.
// All violations are reported; the returned error wraps ErrInvalidVector.
func (s *Schema) Validate(v FeatureVector) error {
	var problems []string
	for _, f := range s.fields {
		val, ok := v[f.Name]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing feature %q", f.Name))
			continue
		}
		if f.Kind == KindCategorical && !containsCode(f.Codes, val) {
			problems = append(problems, fmt.Sprintf("feature %q: value %v outside declared codes %v", f.Name, val, f.Codes))
		}
	}
	for name := range v {
		if !s.Has(name) {
			problems = append(problems, fmt.Sprintf("undeclared feature %q", name))
		}
	}
	if len(problems) == 0 {
		return nil
	}
	sort.Strings(problems)
	return fmt.Errorf("%w: %v", ErrInvalidVector, problems)
}

// Vectorize returns the values of v in schema order. It validates first so
// a vector that passes Vectorize is safe to feed to the scorer.
func (s *Schema) Vectorize(v FeatureVector) ([]float64, error) {
	if err := s.Validate(v); err != nil {
		return nil, err
	}
	out := make([]float64, len(s.fields))
	for i, f := range s.fields {
		out[i] = v[f.Name]
	}
	return out, nil
}

func containsCode(codes []float64, v float64) bool {
	for _, c := range codes {
		if c == v {
			return true
		}
	}
	return false
}

type schemaFile struct {
	Features []Field `yaml:"features"`
}

// LoadFile reads a schema from a YAML artifact produced alongside the
// trained model.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a schema from YAML bytes.
func Parse(data []byte) (*Schema, error) {
	var f schemaFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("schema: parse: %w", err)
	}
	return New(f.Features)
}
