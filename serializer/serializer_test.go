package serializer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wandelscript/types"
)

func roundTrip(t *testing.T, v types.Value) types.Value {
	t.Helper()
	encoded, err := Dumps(v)
	require.NoError(t, err)
	decoded, err := Loads(encoded)
	require.NoError(t, err)
	return decoded
}

func TestRoundTripScalars(t *testing.T) {
	values := []types.Value{
		types.NewInt(42),
		types.NewInt(-7),
		types.NewFloat(3.25),
		types.NewBool(true),
		types.NewString("hello"),
	}
	for _, v := range values {
		require.True(t, v.Equal(roundTrip(t, v)), v.String())
	}
}

func TestRoundTripVector(t *testing.T) {
	v := types.NewVector3(1, 2.5, -3)
	require.True(t, v.Equal(roundTrip(t, v)))

	encoded, err := Dumps(v)
	require.NoError(t, err)
	require.JSONEq(t, `{"x":1,"y":2.5,"z":-3}`, encoded)
}

func TestRoundTripPose(t *testing.T) {
	p := types.NewPose(1, 2, 3, 0.1, 0.2, 0.3)
	require.True(t, p.Equal(roundTrip(t, p)))

	encoded, err := Dumps(p)
	require.NoError(t, err)
	require.JSONEq(t, `{"position":{"x":1,"y":2,"z":3},"orientation":{"x":0.1,"y":0.2,"z":0.3}}`, encoded)
}

func TestRoundTripTuple(t *testing.T) {
	v := types.NewTuple([]types.Value{
		types.NewInt(1),
		types.NewString("two"),
		types.NewVector3(0, 0, 3),
	})
	require.True(t, v.Equal(roundTrip(t, v)))

	encoded, err := Dumps(v)
	require.NoError(t, err)
	require.Equal(t, byte('['), encoded[0])
}

func TestRoundTripRecord(t *testing.T) {
	v := types.NewRecord(
		[]string{"id", "state", "data"},
		[]types.Value{
			types.NewString("id1"),
			types.NewString("stopped"),
			types.NewRecord([]string{"a", "b"}, []types.Value{types.NewInt(1), types.NewInt(2)}),
		},
	)
	require.True(t, v.Equal(roundTrip(t, v)))
}

func TestRoundTripNested(t *testing.T) {
	v := types.NewRecord(
		[]string{"poses", "count"},
		[]types.Value{
			types.NewTuple([]types.Value{
				types.NewPose(0, 0, 5, 0, 0, 1),
				types.NewPose(1, 2, 3, 0, 0, 0),
			}),
			types.NewInt(2),
		},
	)
	require.True(t, v.Equal(roundTrip(t, v)))
}

func TestIntegersSurviveAsIntegers(t *testing.T) {
	decoded, err := Loads("5")
	require.NoError(t, err)
	require.True(t, types.NewInt(5).Equal(decoded))

	decoded, err = Loads("5.0")
	require.NoError(t, err)
	require.True(t, types.NewFloat(5).Equal(decoded))
}

func TestClosuresAreNotEncodable(t *testing.T) {
	closure := types.NewClosure("f", nil, nil)
	require.False(t, IsEncodable(closure))
}

func TestEncodeStoreSkipsUnencodable(t *testing.T) {
	store := map[string]types.Value{
		"a":   types.NewInt(1),
		"f":   types.NewClosure("f", nil, nil),
		"dev": types.NewDevice("controller"),
	}
	snapshot := EncodeStore(store)
	require.Contains(t, snapshot, "a")
	require.NotContains(t, snapshot, "f")
	require.NotContains(t, snapshot, "dev")
}
