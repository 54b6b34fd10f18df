package entity

import (
	"fmt"
)

// Record is a typed entity backed by a Schema. Create one with Schema.New.
type Record struct {
	schema *Schema
	values []any
}

var _ Typed = (*Record)(nil)

func (r *Record) Schema() *Schema {
	return r.schema
}

func (r *Record) Get(name string) any {
	i, ok := r.schema.index[name]
	if !ok {
		return nil
	}
	return r.values[i]
}

// Set coerces value to the declared kind of the field and stores it.
func (r *Record) Set(name string, value any) error {
	i, ok := r.schema.index[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownField, name)
	}

	v, err := r.schema.fields[i].Coerce(value)
	if err != nil {
		return err
	}
	r.values[i] = v

	return nil
}

// Clone returns an independent copy sharing only the immutable schema.
func (r *Record) Clone() Entity {
	c := &Record{
		schema: r.schema,
		values: make([]any, len(r.values)),
	}
	for i, v := range r.values {
		c.values[i] = copyValue(v)
	}
	return c
}

// Map returns the field values keyed by name.
func (r *Record) Map() map[string]any {
	m := make(map[string]any, len(r.values))
	for i, f := range r.schema.fields {
		m[f.Name] = r.values[i]
	}
	return m
}
