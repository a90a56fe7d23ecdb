package types

import "fmt"

// StringValue represents a wandelscript string
type StringValue struct {
	Val string
}

// Type returns the type code for strings
func (s StringValue) Type() TypeCode {
	return TYPE_STRING
}

// String returns the wandelscript literal representation
func (s StringValue) String() string {
	return fmt.Sprintf("%q", s.Val)
}

// Equal checks deep equality
func (s StringValue) Equal(other Value) bool {
	otherStr, ok := other.(StringValue)
	if !ok {
		return false
	}
	return s.Val == otherStr.Val
}

// Truthy returns false only for the empty string
func (s StringValue) Truthy() bool {
	return s.Val != ""
}

// NewString creates a new StringValue
func NewString(val string) StringValue {
	return StringValue{Val: val}
}
