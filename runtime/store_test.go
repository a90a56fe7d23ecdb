package runtime

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/types"
)

func TestStoreLookupWalksChain(t *testing.T) {
	root := NewStore(map[string]types.Value{"a": types.NewInt(1)})
	child := root.Descend(nil)

	value, ok := child.Get("a")
	require.True(t, ok)
	require.True(t, types.NewInt(1).Equal(value))
}

func TestStoreAssignmentMutatesNearestScope(t *testing.T) {
	root := NewStore(map[string]types.Value{"a": types.NewInt(1)})
	child := root.Descend(nil)

	child.Set("a", types.NewInt(2))
	value, _ := root.Get("a")
	require.True(t, types.NewInt(2).Equal(value))
	require.False(t, child.ContainsLocal("a"))
}

func TestStoreUnboundNameBindsInCurrentScope(t *testing.T) {
	root := NewStore(nil)
	child := root.Descend(nil)

	child.Set("b", types.NewInt(3))
	require.True(t, child.ContainsLocal("b"))
	_, ok := root.Get("b")
	require.False(t, ok)
}

func TestStoreShadowedLocal(t *testing.T) {
	root := NewStore(map[string]types.Value{"a": types.NewInt(1)})
	child := root.Descend(map[string]types.Value{"a": types.NewInt(10)})

	child.Set("a", types.NewInt(11))
	fromChild, _ := child.Get("a")
	fromRoot, _ := root.Get("a")
	require.True(t, types.NewInt(11).Equal(fromChild))
	require.True(t, types.NewInt(1).Equal(fromRoot))
}

func TestStoreSharesFrameSystem(t *testing.T) {
	root := NewStore(nil)
	child := root.Descend(nil)
	require.Same(t, root.FrameSystem(), child.FrameSystem())
}

func TestStoreMotionSettings(t *testing.T) {
	root := NewStore(nil)
	root.Set(cell.FieldToVarname("position_zone_radius"), types.NewInt(20))
	root.Set(cell.FieldToVarname("tcp_velocity_limit"), types.NewFloat(120.5))

	settings := root.MotionSettings()
	require.Equal(t, 20.0, settings.PositionZoneRadius)
	require.Equal(t, 120.5, settings.TcpVelocityLimit)
}

func TestCallStackOverflow(t *testing.T) {
	stack := NewCallStack(2)
	root := NewStore(nil)
	require.NoError(t, stack.Push(root, nil))
	require.NoError(t, stack.Push(root.Descend(nil), nil))

	err := stack.Push(root.Descend(nil), nil)
	require.Error(t, err)
	var overflow *exception.GenericRuntimeError
	require.ErrorAs(t, err, &overflow)
	require.Contains(t, err.Error(), "call stack")
}
