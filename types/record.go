package types

import "strings"

// RecordValue is an ordered mapping from string keys to values.
// Records are frozen; Assoc returns a new record.
type RecordValue struct {
	keys   []string
	values map[string]Value
}

// Type returns the type code for records
func (r RecordValue) Type() TypeCode {
	return TYPE_RECORD
}

// String returns the wandelscript literal representation
func (r RecordValue) String() string {
	parts := make([]string, len(r.keys))
	for i, k := range r.keys {
		parts[i] = k + ": " + r.values[k].String()
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal checks deep equality. Key order does not matter.
func (r RecordValue) Equal(other Value) bool {
	o, ok := other.(RecordValue)
	if !ok {
		return false
	}
	if len(r.keys) != len(o.keys) {
		return false
	}
	for k, v := range r.values {
		ov, ok := o.values[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Truthy returns false only for the empty record
func (r RecordValue) Truthy() bool {
	return len(r.keys) > 0
}

// NewRecord creates a record from parallel key/value slices
func NewRecord(keys []string, values []Value) RecordValue {
	m := make(map[string]Value, len(keys))
	ks := make([]string, 0, len(keys))
	for i, k := range keys {
		if _, seen := m[k]; !seen {
			ks = append(ks, k)
		}
		m[k] = values[i]
	}
	return RecordValue{keys: ks, values: m}
}

// EmptyRecord returns a record with no entries
func EmptyRecord() RecordValue {
	return RecordValue{values: map[string]Value{}}
}

// Get returns the value for a key
func (r RecordValue) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the keys in insertion order
func (r RecordValue) Keys() []string {
	ks := make([]string, len(r.keys))
	copy(ks, r.keys)
	return ks
}

// Len returns the number of entries
func (r RecordValue) Len() int {
	return len(r.keys)
}

// Assoc returns a new record with key set to value; the receiver is
// unchanged
func (r RecordValue) Assoc(key string, value Value) RecordValue {
	m := make(map[string]Value, len(r.values)+1)
	for k, v := range r.values {
		m[k] = v
	}
	ks := r.keys
	if _, seen := m[key]; !seen {
		ks = make([]string, len(r.keys), len(r.keys)+1)
		copy(ks, r.keys)
		ks = append(ks, key)
	} else {
		ks = make([]string, len(r.keys))
		copy(ks, r.keys)
	}
	m[key] = value
	return RecordValue{keys: ks, values: m}
}
