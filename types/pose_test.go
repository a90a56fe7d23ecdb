package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func requirePoseNear(t *testing.T, want, got PoseValue, tolerance float64) {
	t.Helper()
	wantTuple := want.ToTuple()
	gotTuple := got.ToTuple()
	for i := range wantTuple {
		require.InDelta(t, wantTuple[i], gotTuple[i], tolerance, "component %d", i)
	}
}

func TestPoseComposeTranslationOnly(t *testing.T) {
	a := NewPose(0, 0, 5, 0, 0, 0)
	b := NewPose(1, 2, 3, 0, 0, 0)
	requirePoseNear(t, NewPose(1, 2, 8, 0, 0, 0), a.Compose(b), 1e-9)
}

func TestPoseComposeWithInverseIsIdentity(t *testing.T) {
	pose := NewPose(0, 0, 5, 0, 0, 1)
	requirePoseNear(t, NewPose(0, 0, 0, 0, 0, 0), pose.Compose(pose.Inverse()), 1e-6)
	requirePoseNear(t, NewPose(0, 0, 0, 0, 0, 0), pose.Inverse().Compose(pose), 1e-6)
}

func TestPoseComposeAssociative(t *testing.T) {
	a := NewPose(1, 2, 3, 0.1, 0.2, 0.3)
	b := NewPose(4, 5, 6, -0.2, 0.1, 0.4)
	c := NewPose(-2, 0, 7, 0.3, -0.1, 0.2)
	requirePoseNear(t, a.Compose(b).Compose(c), a.Compose(b.Compose(c)), 1e-9)
}

func TestPoseInverseOfTranslation(t *testing.T) {
	pose := NewPose(1, 2, 3, 0, 0, 0)
	requirePoseNear(t, NewPose(-1, -2, -3, 0, 0, 0), pose.Inverse(), 1e-9)
}

func TestPoseApplyRotation(t *testing.T) {
	// rotate 90 degrees around z: x axis maps onto y
	pose := NewPose(0, 0, 0, 0, 0, math.Pi/2)
	rotated := pose.Apply(NewVector3(1, 0, 0))
	require.InDelta(t, 0, rotated.X, 1e-9)
	require.InDelta(t, 1, rotated.Y, 1e-9)
	require.InDelta(t, 0, rotated.Z, 1e-9)
}

func TestPoseInterpolateEndpoints(t *testing.T) {
	a := NewPose(0, 0, 0, 0, 0, 0)
	b := NewPose(10, 0, 0, 0, 0, 1)
	requirePoseNear(t, a, Interpolate(a, b, 0), 1e-9)
	requirePoseNear(t, b, Interpolate(a, b, 1), 1e-9)
	halfway := Interpolate(a, b, 0.5)
	require.InDelta(t, 5, halfway.Position.X, 1e-9)
	require.InDelta(t, 0.5, halfway.Orientation.Z, 1e-9)
}

func TestPoseEquality(t *testing.T) {
	a := NewPose(1, 2, 3, 4, 5, 6)
	require.True(t, a.Equal(NewPose(1, 2, 3, 4, 5, 6)))
	require.False(t, a.Equal(NewPose(1, 2, 3, 4, 5, 7)))
	require.False(t, a.Equal(NewVector3(1, 2, 3)))
}

func TestValueEquality(t *testing.T) {
	require.True(t, NewInt(3).Equal(NewInt(3)))
	require.False(t, NewInt(3).Equal(NewFloat(3)))
	require.True(t, NewTuple([]Value{NewInt(1), NewString("a")}).Equal(
		NewTuple([]Value{NewInt(1), NewString("a")})))
	require.False(t, NewTuple([]Value{NewInt(1)}).Equal(NewTuple([]Value{NewInt(2)})))
}

func TestRecordAssocLeavesOriginalUnchanged(t *testing.T) {
	record := NewRecord([]string{"a", "b"}, []Value{NewInt(1), NewInt(2)})
	updated := record.Assoc("a", NewInt(10))

	original, _ := record.Get("a")
	require.True(t, NewInt(1).Equal(original))
	changed, _ := updated.Get("a")
	require.True(t, NewInt(10).Equal(changed))

	// assoc twice on the same key equals assoc once with the last
	// value
	twice := record.Assoc("a", NewInt(5)).Assoc("a", NewInt(7))
	once := record.Assoc("a", NewInt(7))
	require.True(t, twice.Equal(once))
}

func TestRecordKeyOrder(t *testing.T) {
	record := NewRecord([]string{"z", "a"}, []Value{NewInt(1), NewInt(2)})
	require.Equal(t, []string{"z", "a"}, record.Keys())
	extended := record.Assoc("m", NewInt(3))
	require.Equal(t, []string{"z", "a", "m"}, extended.Keys())
}

func TestTruthiness(t *testing.T) {
	require.False(t, NewInt(0).Truthy())
	require.True(t, NewInt(-1).Truthy())
	require.False(t, NewFloat(0).Truthy())
	require.False(t, NewString("").Truthy())
	require.True(t, NewString("x").Truthy())
	require.False(t, NewTuple(nil).Truthy())
	require.True(t, NewPose(0, 0, 0, 0, 0, 0).Truthy())
}

func TestFloatFormatting(t *testing.T) {
	require.Equal(t, "3.0", NewFloat(3).String())
	require.Equal(t, "3.14", NewFloat(3.14).String())
}
