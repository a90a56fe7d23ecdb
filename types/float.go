package types

import (
	"math"
	"strconv"
	"strings"
)

// FloatValue represents a wandelscript floating point number
type FloatValue struct {
	Val float64
}

// Type returns the type code for floats
func (f FloatValue) Type() TypeCode {
	return TYPE_FLOAT
}

// String returns the wandelscript literal representation
func (f FloatValue) String() string {
	return FormatFloat(f.Val)
}

// FormatFloat renders a float so whole numbers still show a decimal
// point (3.0 not 3)
func FormatFloat(val float64) string {
	if math.IsNaN(val) {
		return "NaN"
	}
	if math.IsInf(val, 1) {
		return "Inf"
	}
	if math.IsInf(val, -1) {
		return "-Inf"
	}
	s := strconv.FormatFloat(val, 'g', -1, 64)
	if !strings.Contains(s, ".") && !strings.Contains(s, "e") && !strings.Contains(s, "E") {
		s += ".0"
	}
	return s
}

// Equal checks deep equality. NaN is not equal to anything (IEEE 754).
func (f FloatValue) Equal(other Value) bool {
	otherFloat, ok := other.(FloatValue)
	if !ok {
		return false
	}
	if math.IsNaN(f.Val) || math.IsNaN(otherFloat.Val) {
		return false
	}
	return f.Val == otherFloat.Val
}

// Truthy returns false only for zero
func (f FloatValue) Truthy() bool {
	return f.Val != 0
}

// NewFloat creates a new FloatValue
func NewFloat(val float64) FloatValue {
	return FloatValue{Val: val}
}
