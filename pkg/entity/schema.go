package entity

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnknownField is returned when assigning a field a schema does not declare.
	ErrUnknownField = errors.New("unknown field")

	// ErrMapping is returned when a row value cannot be converted to a field's kind.
	ErrMapping = errors.New("cannot map value")
)

// Kind is the scalar type of a declared field.
type Kind uint8

const (
	// KindAny stores driver values as they come.
	KindAny Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindAny:
		return "any"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Field describes one declared field of a typed entity.
type Field struct {
	Name    string
	Kind    Kind
	Default any
}

// Schema is the ordered field list of a typed entity. It is immutable once built.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema builds a schema from fields in declaration order. Field names
// must be unique and non-empty; NewSchema panics otherwise, since schemas are
// declared at package initialization.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{
		fields: slices.Clone(fields),
		index:  make(map[string]int, len(fields)),
	}

	for i, f := range s.fields {
		if f.Name == "" {
			panic("entity: schema field without a name")
		}
		if _, ok := s.index[f.Name]; ok {
			panic("entity: duplicate schema field " + f.Name)
		}
		s.index[f.Name] = i
	}

	return s
}

// Fields returns a copy of the declared fields.
func (s *Schema) Fields() []Field {
	return slices.Clone(s.fields)
}

// Names returns the declared field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a declared field by name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Has reports whether name is declared.
func (s *Schema) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	return len(s.fields)
}

// New returns a Record of this schema with every field at its default.
func (s *Schema) New() *Record {
	r := &Record{
		schema: s,
		values: make([]any, len(s.fields)),
	}
	for i, f := range s.fields {
		r.values[i] = copyValue(f.Default)
	}
	return r
}

// Coerce converts v to the field's kind. nil is kept as nil for every kind.
func (f Field) Coerce(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	var (
		out any
		err error
	)
	switch f.Kind {
	case KindAny:
		return copyValue(v), nil
	case KindString:
		out = String(v)
	case KindInt:
		out, err = toInt(v)
	case KindFloat:
		out, err = toFloat(v)
	case KindBool:
		out, err = toBool(v)
	default:
		err = fmt.Errorf("unsupported kind %s", f.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w %v into %s field %q: %w", ErrMapping, v, f.Kind, f.Name, err)
	}

	return out, nil
}
