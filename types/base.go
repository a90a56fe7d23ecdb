package types

// Value is the interface all wandelscript runtime values implement
type Value interface {
	Type() TypeCode
	String() string   // wandelscript literal representation
	Equal(Value) bool // Deep structural equality
	Truthy() bool     // Truthiness in conditions
}
