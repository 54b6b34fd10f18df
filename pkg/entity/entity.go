// Package entity maps raw database rows onto entities and back.
//
// An entity is the in-memory form of one row. It comes in two variants,
// distinguished by the capability it implements:
//
//   - Typed entities declare a fixed, ordered set of fields through a Schema
//     and expose Get/Set for those fields only. Record is the stock
//     implementation; application types may implement Typed directly.
//   - Dynamic entities accept any attribute through generic accessors and
//     carry no schema. Dict is the stock implementation.
//
// Callers dispatch on the dynamic capability first and fall back to the
// declared fields, which is what Mapper does.
package entity

// Entity is one row held in memory. Clone must return a deep copy so that an
// entity may serve as a prototype for others.
type Entity interface {
	Clone() Entity
}

// Typed is an entity with a declared, fixed set of fields.
type Typed interface {
	Entity
	Schema() *Schema
	// Get returns the current value of a declared field, or nil when the
	// field is unset or undeclared.
	Get(name string) any
	// Set assigns a declared field. Assigning an undeclared field is an error.
	Set(name string, value any) error
}

// Dynamic is an entity with open-ended attributes.
type Dynamic interface {
	Entity
	Attr(name string) (any, bool)
	SetAttr(name string, value any)
	// Attrs returns the attribute names in insertion order.
	Attrs() []string
}

// Value reads a field from an entity of either variant. The boolean reports
// whether the field exists on the entity.
func Value(e Entity, name string) (any, bool) {
	switch v := e.(type) {
	case Dynamic:
		return v.Attr(name)
	case Typed:
		if !v.Schema().Has(name) {
			return nil, false
		}
		return v.Get(name), true
	default:
		return nil, false
	}
}

// Names enumerates the field names of an entity: declared fields for typed
// entities, attributes for dynamic ones.
func Names(e Entity) []string {
	switch v := e.(type) {
	case Dynamic:
		return v.Attrs()
	case Typed:
		return v.Schema().Names()
	default:
		return nil
	}
}
