package eval

import (
	"bytes"
	"context"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/require"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/parser"
	"wandelscript/runtime"
	"wandelscript/types"
)

func tryCodeOn(robotCell cell.RobotCell, code string, stdout io.Writer) (*runtime.ExecutionContext, error) {
	program, err := parser.Parse(code)
	if err != nil {
		return nil, err
	}
	params := runtime.Params{
		DefaultTCP: "Flange",
		Logger:     log.New(io.Discard, "", 0),
	}
	if stdout != nil {
		params.Stdout = stdout
	} else {
		params.Stdout = io.Discard
	}
	ec := runtime.NewExecutionContext(robotCell, params)
	evaluator := NewEvaluator(ec)
	return ec, evaluator.RunProgram(context.Background(), program)
}

func tryCode(code string) (*runtime.ExecutionContext, error) {
	return tryCodeOn(cell.NewSimulatedRobotCell(), code, nil)
}

func runCode(t *testing.T, code string) *runtime.ExecutionContext {
	t.Helper()
	ec, err := tryCode(code)
	require.NoError(t, err)
	return ec
}

func storeValue(t *testing.T, ec *runtime.ExecutionContext, name string) types.Value {
	t.Helper()
	value, ok := ec.Store().Get(name)
	require.True(t, ok, "store has no %q", name)
	return value
}

func requireStoreInt(t *testing.T, ec *runtime.ExecutionContext, name string, want int64) {
	t.Helper()
	require.True(t, types.NewInt(want).Equal(storeValue(t, ec, name)), "%s = %v", name, storeValue(t, ec, name))
}

func requirePoseNear(t *testing.T, want types.PoseValue, got types.Value, tolerance float64) {
	t.Helper()
	pose, ok := got.(types.PoseValue)
	require.True(t, ok, "expected a pose, got %v", got)
	wantTuple := want.ToTuple()
	gotTuple := pose.ToTuple()
	for i := range wantTuple {
		require.InDelta(t, wantTuple[i], gotTuple[i], tolerance, "component %d", i)
	}
}

func TestIntConversion(t *testing.T) {
	ec := runCode(t, "a = int(5.63)\n")
	requireStoreInt(t, ec, "a", 5)
}

func TestVectorAddition(t *testing.T) {
	ec := runCode(t, "a = (0, 1, 2) + (0, 0, 3)\n")
	require.True(t, types.NewVector3(0, 1, 5).Equal(storeValue(t, ec, "a")))
}

func TestPoseInverseComposesToIdentity(t *testing.T) {
	ec := runCode(t, "pose = (0, 0, 5, 0, 0, 1)\nb = ~pose\nc = pose :: b\n")
	requirePoseNear(t, types.NewPose(0, 0, 0, 0, 0, 0), storeValue(t, ec, "c"), 1e-6)
}

func TestForLoopRanges(t *testing.T) {
	code := "a = 0\nb = 0\nc = 0\n" +
		"for i in 3..5:\n    a = a + i\n" +
		"for i in 3..<5:\n    b = b + i\n" +
		"for i in 3..<5:\n    c = c + i\n    if i == 3:\n        break\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", 12)
	requireStoreInt(t, ec, "b", 7)
	requireStoreInt(t, ec, "c", 3)
}

func TestWhileLoop(t *testing.T) {
	ec := runCode(t, "i = 0\nwhile i < 100:\n    i = i + 13\n")
	requireStoreInt(t, ec, "i", 104)
}

func TestRepeatLoop(t *testing.T) {
	ec := runCode(t, "a = 0\nrepeat 5:\n    a = a + 2\n")
	requireStoreInt(t, ec, "a", 10)
}

func TestConditional(t *testing.T) {
	ec := runCode(t, "a = 0\nif 2 > 1:\n    a = 10\nelse:\n    a = 1\n")
	requireStoreInt(t, ec, "a", 10)
}

func TestSwitch(t *testing.T) {
	code := "a = 10/2-5\nswitch a:\ncase 0+1: a = 2-1\ncase 0*10: a = -1\ndefault: a = 2\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", -1)
}

func TestTrueDivision(t *testing.T) {
	ec := runCode(t, "a = 3 / 5\n")
	require.True(t, types.NewFloat(0.6).Equal(storeValue(t, ec, "a")))
}

func TestStringConcat(t *testing.T) {
	ec := runCode(t, `a = "wandel" + "script"` + "\n")
	require.True(t, types.NewString("wandelscript").Equal(storeValue(t, ec, "a")))
}

func TestDestructuring(t *testing.T) {
	ec := runCode(t, "a, b, c = [1, 2, 3]\n")
	requireStoreInt(t, ec, "a", 1)
	requireStoreInt(t, ec, "b", 2)
	requireStoreInt(t, ec, "c", 3)
}

func TestTupleIndexing(t *testing.T) {
	ec := runCode(t, "t = [1, 2, [5, 6]]\na = t[2]\nb = a[1]\nc = t[0]\n")
	requireStoreInt(t, ec, "b", 6)
	requireStoreInt(t, ec, "c", 1)
}

func TestRecords(t *testing.T) {
	code := "record = { key1: 1, key2: \"value\", key3: (1, 2, 3) }\n" +
		"a = record[\"key2\"]\nb = record.key3\n"
	ec := runCode(t, code)
	require.True(t, types.NewString("value").Equal(storeValue(t, ec, "a")))
	require.True(t, types.NewVector3(1, 2, 3).Equal(storeValue(t, ec, "b")))
}

func TestClosures(t *testing.T) {
	code := "def foo():\n    def bar(u):\n        return 23\n    return bar\nb = foo()\nc = b(4)\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "c", 23)
}

func TestRecursion(t *testing.T) {
	code := "def power2(a, e):\n" +
		"    if e:\n" +
		"        result = a * power2(a, e - 1)\n" +
		"    else:\n" +
		"        result = 1\n" +
		"    return result\n" +
		"a = power2(3, 4)\nb = power(3, 4)\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", 81)
	requireStoreInt(t, ec, "b", 81)
}

func TestCallStackOverflowIsRuntimeError(t *testing.T) {
	code := "def loop(n):\n    return loop(n + 1)\na = loop(0)\n"
	_, err := tryCode(code)
	var overflow *exception.GenericRuntimeError
	require.ErrorAs(t, err, &overflow)
}

func TestAssignmentScoping(t *testing.T) {
	// writes go to the nearest scope defining the name
	code := "a = 1\ndef set_it():\n    a = 5\n    return 0\nx = set_it()\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", 5)
}

func TestPoseAsFunction(t *testing.T) {
	code := "p = (0, 0, 5, 0, 0, 0)\nq = p((1, 1, 1))\n"
	ec := runCode(t, code)
	require.True(t, types.NewVector3(1, 1, 6).Equal(storeValue(t, ec, "q")))
}

func TestClosureComposition(t *testing.T) {
	code := "def f(x):\n    return (1, 0, 0, 0, 0, 0)\n" +
		"g = f :: (0, 0, 2, 0, 0, 0)\n" +
		"h = g(0)\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(1, 0, 2, 0, 0, 0), storeValue(t, ec, "h"), 1e-9)
}

func TestAssocBuiltins(t *testing.T) {
	code := "v = assoc((1, 2, 3), 1, 5)\n" +
		"tup = assoc([1, 2, 3], 1, 5)\n" +
		"p = assoc((0, 0, 0, 0, 0, 0), 2, 7)\n" +
		"r = assoc({ a: 1 }, \"b\", 2)\n"
	ec := runCode(t, code)
	require.True(t, types.NewVector3(1, 5, 3).Equal(storeValue(t, ec, "v")))
	tup := storeValue(t, ec, "tup").(types.TupleValue)
	require.True(t, types.NewInt(5).Equal(tup.Get(1)))
	requirePoseNear(t, types.NewPose(0, 0, 7, 0, 0, 0), storeValue(t, ec, "p"), 0)
	record := storeValue(t, ec, "r").(types.RecordValue)
	b, ok := record.Get("b")
	require.True(t, ok)
	require.True(t, types.NewInt(2).Equal(b))
}

func TestFrameRelations(t *testing.T) {
	code := "a = frame(\"a\")\nb = frame(\"b\")\nc = frame(\"c\")\n" +
		"[a | b] = (0, 0, 10, 0, 0, 0)\n" +
		"[b | c] = (0, 10, 10, 0, 0, 0)\n" +
		"pose = [a | c]\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(0, 10, 20, 0, 0, 0), storeValue(t, ec, "pose"), 1e-9)
}

func TestFrameAssignCreatesFrames(t *testing.T) {
	code := "[part | table] = (1, 2, 3, 0, 0, 0)\npose = [part | table]\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(1, 2, 3, 0, 0, 0), storeValue(t, ec, "pose"), 1e-9)
}

func TestMoveRecordsTrajectory(t *testing.T) {
	code := "move via ptp() to (0, 0, 0, 0, 0, 0)\nmove via line() to (0, 10, 10, 0, 0, 0)\n"
	ec := runCode(t, code)

	segments := ec.Recordings["0@controller"]
	require.Len(t, segments, 1)
	states := segments[0]
	require.NotEmpty(t, states)
	first := states[0].State.Pose
	require.InDelta(t, 0, first.Position.X, 1e-9)
	require.InDelta(t, 0, first.Position.Y, 1e-9)
	require.InDelta(t, 0, first.Position.Z, 1e-9)
	last := states[len(states)-1].State.Pose
	require.InDelta(t, 0, last.Position.X, 1e-9)
	require.InDelta(t, 10, last.Position.Y, 1e-9)
	require.InDelta(t, 10, last.Position.Z, 1e-9)
}

func TestMoveWithoutToolFails(t *testing.T) {
	program, err := parser.Parse("move via p2p() to (0, 0, 0, 0, 0, 0)\n")
	require.NoError(t, err)
	ec := runtime.NewExecutionContext(cell.NewSimulatedRobotCell(), runtime.Params{
		Stdout: io.Discard,
		Logger: log.New(io.Discard, "", 0),
	})
	evaluator := NewEvaluator(ec)
	err = evaluator.RunProgram(context.Background(), program)
	var userErr *exception.UserError
	require.ErrorAs(t, err, &userErr)
	require.Contains(t, err.Error(), "No tool is defined")
}

func TestTCPModifierInstallsTool(t *testing.T) {
	code := "tcp(\"Flange\")\nmove via p2p() to (0, 0, 3, 0, 0, 0)\n"
	program, err := parser.Parse(code)
	require.NoError(t, err)
	ec := runtime.NewExecutionContext(cell.NewSimulatedRobotCell(), runtime.Params{
		Stdout: io.Discard,
		Logger: log.New(io.Discard, "", 0),
	})
	evaluator := NewEvaluator(ec)
	require.NoError(t, evaluator.RunProgram(context.Background(), program))
}

func TestVectorMoveTargetTakesLastOrientation(t *testing.T) {
	code := "move via p2p() to (0, 0, 5, 0, 0, 1)\nmove via line() to (1, 2, 3)\npp = planned_pose()\nsync\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(1, 2, 3, 0, 0, 1), storeValue(t, ec, "pp"), 1e-9)
}

func TestPlannedPose(t *testing.T) {
	code := "move via p2p() to (1, 2, 3, 0, 0, 0)\npp = planned_pose()\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(1, 2, 3, 0, 0, 0), storeValue(t, ec, "pp"), 1e-9)
}

func TestMotionSettingsModifierScope(t *testing.T) {
	code := "with blending(20):\n    a = __ms_position_zone_radius\nb = __ms_position_zone_radius\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", 20)
	require.True(t, types.NewFloat(0).Equal(storeValue(t, ec, "b")))
}

func TestModifierUndoRunsOnError(t *testing.T) {
	code := "with blending(20):\n    raise \"boom\"\n"
	ec, err := tryCode(code)
	var userErr *exception.UserError
	require.ErrorAs(t, err, &userErr)
	restored, ok := ec.Store().Get("__ms_position_zone_radius")
	require.True(t, ok)
	require.True(t, types.NewFloat(0).Equal(restored))
}

func TestRaise(t *testing.T) {
	_, err := tryCode("raise \"boom\"\n")
	var userErr *exception.UserError
	require.ErrorAs(t, err, &userErr)
	require.Contains(t, err.Error(), "boom")
}

func TestNameError(t *testing.T) {
	_, err := tryCode("a = nope\n")
	var nameErr *exception.NameError
	require.ErrorAs(t, err, &nameErr)
	require.Contains(t, err.Error(), "nope")
}

func TestTypeErrorCarriesLocation(t *testing.T) {
	_, err := tryCode("a = 1\nb = a + \"x\"\n")
	var typeErr *exception.TypeError
	require.ErrorAs(t, err, &typeErr)
	require.NotNil(t, typeErr.Location())
	require.Equal(t, 2, typeErr.Location().Start.Line)
}

func TestNestedSyncError(t *testing.T) {
	code := "do with controller[0]:\n    move to (0, 0, 1, 0, 0, 0)\n    sync\n"
	_, err := tryCode(code)
	var nested *exception.NestedSyncError
	require.ErrorAs(t, err, &nested)
	require.NotNil(t, nested.Location())
	require.Equal(t, 3, nested.Location().Start.Line)
}

func TestStopTerminatesProgram(t *testing.T) {
	ec := runCode(t, "a = 1\nstop\na = 2\n")
	requireStoreInt(t, ec, "a", 1)
}

func TestPrint(t *testing.T) {
	var stdout bytes.Buffer
	_, err := tryCodeOn(cell.NewSimulatedRobotCell(), "print(\"Hello Wandelscript\")\n", &stdout)
	require.NoError(t, err)
	require.Equal(t, "Hello Wandelscript\n", stdout.String())
}

func TestReadWriteDevice(t *testing.T) {
	code := "write(controller, \"a\", 12 * 2)\nb = read(controller, \"a\")\nc = read(controller, \"unset\")\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "b", 24)
	require.True(t, types.NewString("default_value").Equal(storeValue(t, ec, "c")))
}

func TestCallDevice(t *testing.T) {
	code := "a = call(controller, \"key\", 12 * 2, 3)\n"
	ec := runCode(t, code)
	want := types.NewTuple([]types.Value{
		types.NewString("key"),
		types.NewTuple([]types.Value{types.NewInt(24), types.NewInt(3)}),
	})
	require.True(t, want.Equal(storeValue(t, ec, "a")))
}

func TestWriteAttachesToMotion(t *testing.T) {
	code := "move via p2p() to (0, 0, 5, 0, 0, 0)\n" +
		"write(controller, \"flag\", 1)\n" +
		"sync\n" +
		"a = read(controller, \"flag\")\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", 1)
}

func TestSyncBlockReadsFinalPose(t *testing.T) {
	code := "do:\n" +
		"    move via p2p() to (0, 0, 0, 0, 0, 0)\n" +
		"    move via line() to (1, 2, 3, 0, 0, 0)\n" +
		"sync:\n" +
		"    a = read(controller[0], \"pose\")\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(1, 2, 3, 0, 0, 0), storeValue(t, ec, "a"), 1e-6)
}

func TestSyncExceptCatchesUserError(t *testing.T) {
	code := "a = 0\ndo:\n    raise \"bad\"\nexcept:\n    a = 1\n"
	ec := runCode(t, code)
	requireStoreInt(t, ec, "a", 1)
}

func TestSyncExceptDoesNotCatchOtherErrors(t *testing.T) {
	code := "do:\n    b = nope\nexcept:\n    a = 1\n"
	_, err := tryCode(code)
	var nameErr *exception.NameError
	require.ErrorAs(t, err, &nameErr)
}

func TestRobotContextRunsInParallel(t *testing.T) {
	initial := types.NewPose(0, 0, 0, 0, 0, 0)
	first := cell.NewSimulatedRobot(cell.SimulatedRobotConfig{ID: "0@controller", InitialPose: &initial})
	second := cell.NewSimulatedRobot(cell.SimulatedRobotConfig{ID: "1@controller", InitialPose: &initial})
	robotCell := cell.NewSimulatedRobotCellWith(
		[]*cell.SimulatedRobot{first, second},
		[]cell.Device{cell.NewSimulatedIO("controller")},
	)

	code := "do with controller[0]:\n" +
		"    move to (0, 0, 0, 0, 0, 0)\n" +
		"    move to (0, 0, 7, 0, 0, 0)\n" +
		"and do with controller[1]:\n" +
		"    move to (0, 0, 0, 0, 0, 0)\n" +
		"    move to (0, 0, 11, 0, 0, 0)\n" +
		"a = read(controller[0], \"Flange\")\n" +
		"b = read(controller[1], \"Flange\")\n"
	ec, err := tryCodeOn(robotCell, code, nil)
	require.NoError(t, err)

	requirePoseNear(t, types.NewPose(0, 0, 7, 0, 0, 0), storeValue(t, ec, "a"), 1e-6)
	requirePoseNear(t, types.NewPose(0, 0, 11, 0, 0, 0), storeValue(t, ec, "b"), 1e-6)
	require.NotEmpty(t, ec.Recordings["0@controller"])
	require.NotEmpty(t, ec.Recordings["1@controller"])
}

func TestUnknownRobotInContext(t *testing.T) {
	code := "do with controller[7]:\n    pass\n"
	_, err := tryCode(code)
	var wrongRobot *exception.WrongRobotError
	require.ErrorAs(t, err, &wrongRobot)
}

func TestInterruptCallbackFiresPerMotionState(t *testing.T) {
	code := "a = 0\n" +
		"interrupt inter1() when is_equal(\"input4\", 2):\n" +
		"    a = a + 1\n" +
		"activate inter1\n" +
		"move via p2p() to (0, 0, 5, 0, 0, 0)\n" +
		"sync\n" +
		"deactivate inter1\n" +
		"move via p2p() to (0, 0, 6, 0, 0, 0)\n" +
		"sync\n"
	ec := runCode(t, code)
	// the simulated planner emits ten states per motion; the callback
	// only runs while the interrupt is active
	requireStoreInt(t, ec, "a", 10)
}

func TestMoveDefCustomConnector(t *testing.T) {
	code := "movedef updown(start >--> end):\n" +
		"    move via line() to (0, 0, 5, 0, 0, 0)\n" +
		"    move via line() to end\n" +
		"move via p2p() to (0, 0, 0, 0, 0, 0)\n" +
		"move via updown() to (1, 0, 0, 0, 0, 0)\n"
	ec := runCode(t, code)
	segments := ec.Recordings["0@controller"]
	require.Len(t, segments, 1)
	states := segments[0]
	last := states[len(states)-1].State.Pose
	require.InDelta(t, 1, last.Position.X, 1e-6)
	require.InDelta(t, 0, last.Position.Z, 1e-6)
}

func TestArcConnector(t *testing.T) {
	code := "move via p2p() to (0, 0, 0, 0, 0, 0)\n" +
		"move via arc((1, 2, 0, 0, 0, 0)) to (2, 2, 0, 0, 0, 0)\n"
	ec := runCode(t, code)
	segments := ec.Recordings["0@controller"]
	require.Len(t, segments, 1)
}

func TestJointPTPConnector(t *testing.T) {
	code := "move via joint_p2p() to [0.001, 0.002, 0.003, 0, 0, 0]\n"
	ec := runCode(t, code)
	segments := ec.Recordings["0@controller"]
	require.Len(t, segments, 1)
	states := segments[0]
	last := states[len(states)-1].State.Pose
	require.InDelta(t, 1, last.Position.X, 1e-9)
	require.InDelta(t, 2, last.Position.Y, 1e-9)
}

func TestOrientationLiteral(t *testing.T) {
	ec := runCode(t, "o = (..., 0, 0, 1)\n")
	requirePoseNear(t, types.NewPose(0, 0, 0, 0, 0, 1), storeValue(t, ec, "o"), 1e-9)
}

func TestReferentialPurity(t *testing.T) {
	code := "a = sin(1.0) + 2 * 3\nb = sin(1.0) + 2 * 3\nsame = a == b\n"
	ec := runCode(t, code)
	require.True(t, types.NewBool(true).Equal(storeValue(t, ec, "same")))
}

func TestInterpolateAndDistance(t *testing.T) {
	code := "a = (0, 0, 0, 0, 0, 0)\nb = (10, 0, 0, 0, 0, 0)\n" +
		"mid = interpolate(a, b, 0.5)\n" +
		"d = distance(a, b)\n"
	ec := runCode(t, code)
	requirePoseNear(t, types.NewPose(5, 0, 0, 0, 0, 0), storeValue(t, ec, "mid"), 1e-9)
	require.True(t, types.NewFloat(10).Equal(storeValue(t, ec, "d")))
}
