package entity

import (
	"slices"
)

// Dict is a dynamic entity: an ordered map of attribute names to values.
// The zero value is ready to use.
type Dict struct {
	keys   []string
	values map[string]any
}

var _ Dynamic = (*Dict)(nil)

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{}
}

func (d *Dict) Attr(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

func (d *Dict) SetAttr(name string, value any) {
	if d.values == nil {
		d.values = make(map[string]any)
	}
	if _, ok := d.values[name]; !ok {
		d.keys = append(d.keys, name)
	}
	d.values[name] = copyValue(value)
}

func (d *Dict) Attrs() []string {
	return slices.Clone(d.keys)
}

// Get returns the attribute value or nil.
func (d *Dict) Get(name string) any {
	return d.values[name]
}

func (d *Dict) Len() int {
	return len(d.keys)
}

func (d *Dict) Clone() Entity {
	c := &Dict{
		keys:   slices.Clone(d.keys),
		values: make(map[string]any, len(d.values)),
	}
	for k, v := range d.values {
		c.values[k] = copyValue(v)
	}
	return c
}

// Map returns a copy of the attributes.
func (d *Dict) Map() map[string]any {
	m := make(map[string]any, len(d.values))
	for k, v := range d.values {
		m[k] = v
	}
	return m
}
