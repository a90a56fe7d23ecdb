package types

import (
	"fmt"
	"math"
)

// PoseValue is a rigid-body transform: a position and an orientation
// given as a rotation vector. Equality is structural on the 6-tuple.
type PoseValue struct {
	Position    Vector3Value
	Orientation Vector3Value
}

// Type returns the type code for poses
func (p PoseValue) Type() TypeCode {
	return TYPE_POSE
}

// String returns the wandelscript literal representation
func (p PoseValue) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s, %s, %s)",
		FormatFloat(p.Position.X), FormatFloat(p.Position.Y), FormatFloat(p.Position.Z),
		FormatFloat(p.Orientation.X), FormatFloat(p.Orientation.Y), FormatFloat(p.Orientation.Z))
}

// Equal checks deep equality
func (p PoseValue) Equal(other Value) bool {
	o, ok := other.(PoseValue)
	if !ok {
		return false
	}
	return p.Position.Equal(o.Position) && p.Orientation.Equal(o.Orientation)
}

// Truthy: poses are always truthy
func (p PoseValue) Truthy() bool {
	return true
}

// NewPose creates a new PoseValue from six components
func NewPose(x, y, z, rx, ry, rz float64) PoseValue {
	return PoseValue{
		Position:    Vector3Value{x, y, z},
		Orientation: Vector3Value{rx, ry, rz},
	}
}

// PoseFromTuple builds a pose from a 6-element slice
func PoseFromTuple(t []float64) PoseValue {
	return NewPose(t[0], t[1], t[2], t[3], t[4], t[5])
}

// ToTuple returns the six components as a slice
func (p PoseValue) ToTuple() []float64 {
	return []float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.X, p.Orientation.Y, p.Orientation.Z,
	}
}

// quaternion is an internal helper for rigid-body math
type quaternion struct {
	w, x, y, z float64
}

func quatFromRotVec(v Vector3Value) quaternion {
	angle := v.Norm()
	if angle < 1e-12 {
		return quaternion{w: 1}
	}
	half := angle / 2
	s := math.Sin(half) / angle
	return quaternion{w: math.Cos(half), x: v.X * s, y: v.Y * s, z: v.Z * s}
}

func (q quaternion) toRotVec() Vector3Value {
	n := math.Sqrt(q.x*q.x + q.y*q.y + q.z*q.z)
	if n < 1e-12 {
		return Vector3Value{}
	}
	angle := 2 * math.Atan2(n, q.w)
	// keep the rotation in (-pi, pi]
	if angle > math.Pi {
		angle -= 2 * math.Pi
	}
	return Vector3Value{q.x / n * angle, q.y / n * angle, q.z / n * angle}
}

func (q quaternion) mul(o quaternion) quaternion {
	return quaternion{
		w: q.w*o.w - q.x*o.x - q.y*o.y - q.z*o.z,
		x: q.w*o.x + q.x*o.w + q.y*o.z - q.z*o.y,
		y: q.w*o.y - q.x*o.z + q.y*o.w + q.z*o.x,
		z: q.w*o.z + q.x*o.y - q.y*o.x + q.z*o.w,
	}
}

func (q quaternion) conj() quaternion {
	return quaternion{w: q.w, x: -q.x, y: -q.y, z: -q.z}
}

func (q quaternion) rotate(v Vector3Value) Vector3Value {
	p := quaternion{x: v.X, y: v.Y, z: v.Z}
	r := q.mul(p).mul(q.conj())
	return Vector3Value{r.x, r.y, r.z}
}

// Compose chains two rigid transforms: first other, then p.
func (p PoseValue) Compose(other PoseValue) PoseValue {
	qp := quatFromRotVec(p.Orientation)
	qo := quatFromRotVec(other.Orientation)
	return PoseValue{
		Position:    p.Position.Add(qp.rotate(other.Position)),
		Orientation: qp.mul(qo).toRotVec(),
	}
}

// Inverse returns the inverse rigid transform, so that
// p.Compose(p.Inverse()) is the identity.
func (p PoseValue) Inverse() PoseValue {
	qi := quatFromRotVec(p.Orientation).conj()
	return PoseValue{
		Position:    qi.rotate(p.Position).Scale(-1),
		Orientation: qi.toRotVec(),
	}
}

// Apply transforms a point by the pose
func (p PoseValue) Apply(v Vector3Value) Vector3Value {
	return quatFromRotVec(p.Orientation).rotate(v).Add(p.Position)
}

// Interpolate blends two poses: linear in position, spherical in
// orientation.
func Interpolate(a, b PoseValue, t float64) PoseValue {
	qa := quatFromRotVec(a.Orientation)
	qb := quatFromRotVec(b.Orientation)
	return PoseValue{
		Position:    a.Position.Add(b.Position.Sub(a.Position).Scale(t)),
		Orientation: slerp(qa, qb, t).toRotVec(),
	}
}

func slerp(a, b quaternion, t float64) quaternion {
	dot := a.w*b.w + a.x*b.x + a.y*b.y + a.z*b.z
	if dot < 0 {
		b = quaternion{-b.w, -b.x, -b.y, -b.z}
		dot = -dot
	}
	if dot > 0.9995 {
		// nearly parallel, fall back to normalized lerp
		q := quaternion{
			w: a.w + t*(b.w-a.w),
			x: a.x + t*(b.x-a.x),
			y: a.y + t*(b.y-a.y),
			z: a.z + t*(b.z-a.z),
		}
		n := math.Sqrt(q.w*q.w + q.x*q.x + q.y*q.y + q.z*q.z)
		return quaternion{q.w / n, q.x / n, q.y / n, q.z / n}
	}
	theta := math.Acos(dot)
	sa := math.Sin((1 - t) * theta)
	sb := math.Sin(t * theta)
	sn := math.Sin(theta)
	return quaternion{
		w: (a.w*sa + b.w*sb) / sn,
		x: (a.x*sa + b.x*sb) / sn,
		y: (a.y*sa + b.y*sb) / sn,
		z: (a.z*sa + b.z*sb) / sn,
	}
}
