// Package document defines the in-memory shape of a graph export record: an
// ordered list of named fields whose values are either scalars or lists of
// scalars.
//
// Field order is significant. Column inference and row alignment are both
// positional, so a Document must preserve the order in which fields appeared
// in the source line.
package document

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Marker is the character graph exports prefix onto system fields
// (e.g. "~id", "~from", "~to"). It is removed from every field name.
const Marker = "~"

// ListSeparator joins the elements of a list value when it is written into a
// single text column.
const ListSeparator = "| "

// Value is a field value. A Value is either a scalar (IsList == false) or a
// list of scalars.
type Value struct {
	Scalar string
	List   []string
	IsList bool
}

// Scalar returns a scalar Value.
func Scalar(s string) Value { return Value{Scalar: s} }

// List returns a list Value. A nil slice is stored as an empty list.
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{List: items, IsList: true}
}

// String renders the value as text. List elements are joined with
// ListSeparator.
func (v Value) String() string {
	if v.IsList {
		return strings.Join(v.List, ListSeparator)
	}
	return v.Scalar
}

// Field is a single named value.
type Field struct {
	Name  string
	Value Value
}

// Document is an ordered sequence of fields.
type Document struct {
	Fields []Field
}

// New builds a Document from fields, cleaning every name.
func New(fields ...Field) Document {
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = Field{Name: CleanName(f.Name), Value: f.Value}
	}
	return Document{Fields: out}
}

// Len returns the number of fields.
func (d Document) Len() int { return len(d.Fields) }

// Names returns the field names in order.
func (d Document) Names() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}

// Values returns the rendered field values in order.
func (d Document) Values() []string {
	vals := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		vals[i] = f.Value.String()
	}
	return vals
}

// Get returns the value of the first field named name.
func (d Document) Get(name string) (Value, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// CleanName strips every Marker from name and normalizes it to NFC so that
// visually identical names compare equal.
func CleanName(name string) string {
	if strings.Contains(name, Marker) {
		name = strings.ReplaceAll(name, Marker, "")
	}
	if norm.NFC.IsNormalString(name) {
		return name
	}
	return norm.NFC.String(name)
}
