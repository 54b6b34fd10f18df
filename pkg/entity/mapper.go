package entity

import (
	"fmt"
)

// Mapper creates entities and moves values between them and raw rows.
//
// The entity kind is chosen once, at construction: a prototype is cloned for
// every row; otherwise a named type is instantiated through a Registry;
// otherwise rows become Dicts.
type Mapper struct {
	prototype Entity
	typeName  string
	factory   Factory
}

// NewMapper resolves the entity source. An unknown typeName fails here
// rather than on the first row. A non-nil prototype takes precedence over
// typeName; a nil registry means DefaultRegistry.
func NewMapper(prototype Entity, typeName string, registry *Registry) (*Mapper, error) {
	m := &Mapper{prototype: prototype, typeName: typeName}
	if prototype != nil || typeName == "" {
		return m, nil
	}

	if registry == nil {
		registry = DefaultRegistry
	}

	factory, err := registry.Lookup(typeName)
	if err != nil {
		return nil, err
	}
	m.factory = factory

	return m, nil
}

// Create returns a new, empty entity.
func (m *Mapper) Create() (Entity, error) {
	switch {
	case m.prototype != nil:
		return m.prototype.Clone(), nil
	case m.factory != nil:
		e := m.factory()
		if e == nil {
			return nil, fmt.Errorf("%w %q: factory returned nil", ErrUnknownType, m.typeName)
		}
		return e, nil
	default:
		return NewDict(), nil
	}
}

// Map creates an entity and fills it from row.
func (m *Mapper) Map(row *Row) (Entity, error) {
	e, err := m.Create()
	if err != nil {
		return nil, err
	}
	return m.FromRow(e, row)
}

// FromRow copies row into e. Dynamic entities receive every column. Typed
// entities receive the row value for each declared field, or the field
// default when the row lacks the column; extra columns are ignored.
func (m *Mapper) FromRow(e Entity, row *Row) (Entity, error) {
	switch v := e.(type) {
	case Dynamic:
		for _, c := range row.columns {
			v.SetAttr(c, row.values[c])
		}
		return v, nil
	case Typed:
		for _, f := range v.Schema().fields {
			value, ok := row.Get(f.Name)
			if !ok {
				value = f.Default
			}
			if err := v.Set(f.Name, value); err != nil {
				return nil, err
			}
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: %T implements neither Typed nor Dynamic", ErrMapping, e)
	}
}

// ToRow extracts the write payload of e: every field except primary.
func (m *Mapper) ToRow(e Entity, primary string) *Row {
	return ToRow(e, primary)
}

// ToRow extracts every field of e except the one named primary.
func ToRow(e Entity, primary string) *Row {
	names := Names(e)
	row := NewRow(len(names))
	for _, name := range names {
		if name == primary {
			continue
		}
		v, _ := Value(e, name)
		row.Set(name, v)
	}
	return row
}
