package types

import "strings"

// TupleValue is a fixed ordered sequence of values with positional
// access. Tuples are immutable; assoc returns a new tuple.
type TupleValue struct {
	Elements []Value
}

// Type returns the type code for tuples
func (t TupleValue) Type() TypeCode {
	return TYPE_TUPLE
}

// String returns the wandelscript literal representation
func (t TupleValue) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Equal checks deep equality
func (t TupleValue) Equal(other Value) bool {
	o, ok := other.(TupleValue)
	if !ok {
		return false
	}
	if len(t.Elements) != len(o.Elements) {
		return false
	}
	for i, e := range t.Elements {
		if !e.Equal(o.Elements[i]) {
			return false
		}
	}
	return true
}

// Truthy returns false only for the empty tuple
func (t TupleValue) Truthy() bool {
	return len(t.Elements) > 0
}

// NewTuple creates a new TupleValue
func NewTuple(elements []Value) TupleValue {
	return TupleValue{Elements: elements}
}

// Len returns the number of elements
func (t TupleValue) Len() int {
	return len(t.Elements)
}

// Get returns the element at a zero-based index, or nil when out of
// range
func (t TupleValue) Get(i int) Value {
	if i < 0 || i >= len(t.Elements) {
		return nil
	}
	return t.Elements[i]
}

// Set returns a new tuple with the element at i replaced
func (t TupleValue) Set(i int, v Value) TupleValue {
	elements := make([]Value, len(t.Elements))
	copy(elements, t.Elements)
	elements[i] = v
	return TupleValue{Elements: elements}
}

// Reverse returns a new tuple with the elements in reverse order
func (t TupleValue) Reverse() TupleValue {
	elements := make([]Value, len(t.Elements))
	for i, e := range t.Elements {
		elements[len(t.Elements)-1-i] = e
	}
	return TupleValue{Elements: elements}
}
