package types

import (
	"fmt"
	"math"
)

// Vector3Value is an ordered triple of doubles: a position, a plain
// vector or a rotation vector, depending on context.
type Vector3Value struct {
	X, Y, Z float64
}

// Type returns the type code for vectors
func (v Vector3Value) Type() TypeCode {
	return TYPE_VECTOR3
}

// String returns the wandelscript literal representation
func (v Vector3Value) String() string {
	return fmt.Sprintf("(%s, %s, %s)", FormatFloat(v.X), FormatFloat(v.Y), FormatFloat(v.Z))
}

// Equal checks deep equality
func (v Vector3Value) Equal(other Value) bool {
	o, ok := other.(Vector3Value)
	if !ok {
		return false
	}
	return v.X == o.X && v.Y == o.Y && v.Z == o.Z
}

// Truthy: vectors are always truthy
func (v Vector3Value) Truthy() bool {
	return true
}

// NewVector3 creates a new Vector3Value
func NewVector3(x, y, z float64) Vector3Value {
	return Vector3Value{X: x, Y: y, Z: z}
}

// Add returns the componentwise sum
func (v Vector3Value) Add(o Vector3Value) Vector3Value {
	return Vector3Value{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns the componentwise difference
func (v Vector3Value) Sub(o Vector3Value) Vector3Value {
	return Vector3Value{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns the vector scaled by s
func (v Vector3Value) Scale(s float64) Vector3Value {
	return Vector3Value{v.X * s, v.Y * s, v.Z * s}
}

// Norm returns the Euclidean length
func (v Vector3Value) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// ToTuple returns the components as a slice
func (v Vector3Value) ToTuple() []float64 {
	return []float64{v.X, v.Y, v.Z}
}
