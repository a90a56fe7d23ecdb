package eval

import (
	"context"
	"fmt"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/frames"
	"wandelscript/parser"
	"wandelscript/runtime"
	"wandelscript/types"
)

// OrientationStrategyLast is the only implemented strategy for
// augmenting position-only move targets: copy the orientation of the
// previous pose.
const OrientationStrategyLast = "last"

// addOrientation augments a position with an orientation. Without a
// previous pose the orientation stays at identity.
func addOrientation(strategy string, position types.Vector3Value, previous *types.PoseValue) (types.PoseValue, error) {
	if strategy != OrientationStrategyLast {
		return types.PoseValue{}, fmt.Errorf("unexpected orientation strategy %s", strategy)
	}
	pose := types.PoseValue{Position: position}
	if previous != nil {
		pose.Orientation = previous.Orientation
	}
	return pose, nil
}

// evalMove resolves the tool, the end value and the connector of a
// move statement and pushes the resulting motions onto the active
// robot's buffer.
func (e *Evaluator) evalMove(ctx context.Context, node *parser.MoveStmt) types.Result {
	span := node.Span()
	e.ec.Location = &span

	undos, applied := e.applyModifiers(ctx, node.Modifiers)
	if !applied.IsNormal() {
		return applied
	}
	result := e.evalMoveInner(ctx, node)
	e.runUndos(ctx, undos)
	return result
}

func (e *Evaluator) evalMoveInner(ctx context.Context, node *parser.MoveStmt) types.Result {
	end := e.Eval(ctx, node.Target)
	if !end.IsNormal() {
		return end
	}
	endValue := end.Val
	span := node.Span()

	var tool string
	var overrideRobot string
	switch {
	case node.Relation != nil:
		// a moving robot on the source side targets that robot with
		// the target frame as its tool
		source := e.Eval(ctx, node.Relation.Source)
		if !source.IsNormal() {
			return source
		}
		if handle, ok := source.Val.(types.DeviceValue); ok {
			if _, err := e.ec.RobotCell.Robot(handle.ID); err == nil {
				targetFrame, err := e.resolveFrameOperand(ctx, node.Relation.Target)
				if err != nil {
					return e.fail(node, err)
				}
				tool = targetFrame.Name
				overrideRobot = handle.ID
				break
			}
		}

		// a frame-relative move expresses the target pose in the frame
		// graph and converts it into a flange pose
		pose, ok := endValue.(types.PoseValue)
		if !ok {
			return types.Fail(&exception.SyntaxError{
				Range: &span,
				Text:  "a frame-relative move needs a pose target",
			})
		}
		targetFrame, err := e.resolveFrameOperand(ctx, node.Relation.Target)
		if err != nil {
			return e.fail(node, err)
		}
		sourceFrame, err := e.resolveFrameOperand(ctx, node.Relation.Source)
		if err != nil {
			return e.fail(node, err)
		}
		system := e.ec.Store().FrameSystem().Copy()
		system.Set(targetFrame.Name, sourceFrame.Name, pose)
		resolved, err := system.Eval(runtime.RobotFrameName, runtime.FlangeFrameName)
		if err != nil {
			return types.Fail(&exception.GenericRuntimeError{Range: &span, Text: err.Error()})
		}
		endValue = resolved
		tool = ""
	case node.Frame != nil:
		frameVal := e.Eval(ctx, node.Frame)
		if !frameVal.IsNormal() {
			return frameVal
		}
		name, err := e.validateTool(ctx, frameVal.Val)
		if err != nil {
			return types.Fail(err)
		}
		tool = name
	default:
		tool = e.ec.DefaultTCP()
		if tool == "" {
			return types.Fail(&exception.UserError{
				Range: &span,
				Value: "No tool is defined. Please define one using the 'tcp' function!",
			})
		}
	}

	robotID := overrideRobot
	if robotID == "" {
		active, err := e.ec.ActiveRobot()
		if err != nil {
			return types.Fail(err)
		}
		robotID = active
	}

	var start *types.PoseValue
	if pose, ok := e.ec.Queue.LastPose(robotID); ok {
		start = &pose
	}

	// position-only targets take their orientation from the previous
	// pose
	if position, ok := endValue.(types.Vector3Value); ok {
		connectorName := "p2p"
		if node.Connector != nil {
			connectorName = node.Connector.Name
		}
		if connectorName != "joint_p2p" {
			pose, err := addOrientation(OrientationStrategyLast, position, start)
			if err != nil {
				return types.Fail(&exception.GenericRuntimeError{Range: &span, Text: err.Error()})
			}
			endValue = pose
		}
	}

	var connectorArgs []types.Value
	connectorName := "p2p"
	if node.Connector != nil {
		connectorName = node.Connector.Name
		connectorArgs = make([]types.Value, len(node.Connector.Args))
		for i, argNode := range node.Connector.Args {
			arg := e.Eval(ctx, argNode)
			if !arg.IsNormal() {
				return arg
			}
			connectorArgs[i] = arg.Val
		}
	}

	settings := e.ec.Store().MotionSettings()
	if connector, ok := connectors[connectorName]; ok {
		motions, err := connector(start, endValue, connectorArgs, settings)
		if err != nil {
			return e.fail(node, err)
		}
		if err := e.ec.Queue.Push(motions, tool, robotID); err != nil {
			return types.Fail(err)
		}
		return types.Ok(nil)
	}

	// custom connectors defined by movedef are closures in scope
	if bound, ok := e.ec.Store().Get(connectorName); ok {
		closure, ok := bound.(types.ClosureValue)
		if !ok {
			return types.Fail(&exception.TypeError{
				Range: &span,
				Text:  connectorName + " is not a connector",
			})
		}
		startValue := types.Value(types.NewBool(false))
		if start != nil {
			startValue = *start
		}
		args := append([]types.Value{startValue, endValue}, connectorArgs...)
		if _, err := closure.Call(ctx, args); err != nil {
			return e.fail(node, err)
		}
		return types.Ok(nil)
	}

	return types.Fail(&exception.NameError{Range: &span, Name: connectorName})
}

// validateTool checks that a move tool exists in the cell and is
// attached to the active robot
func (e *Evaluator) validateTool(ctx context.Context, value types.Value) (string, error) {
	var name string
	switch v := value.(type) {
	case frames.Frame:
		name = v.Name
	case types.StringValue:
		name = v.Val
	default:
		return "", &exception.TypeError{
			Range: e.ec.Location,
			Text:  fmt.Sprintf("a move tool must be a frame, got %s", typeName(value)),
		}
	}

	robotsByTool := make(map[string][]string)
	for _, id := range e.ec.RobotCell.RobotIDs() {
		robot, err := e.ec.RobotCell.Robot(id)
		if err != nil {
			continue
		}
		tools, err := robot.TCPs(ctx)
		if err != nil {
			return "", err
		}
		for tool := range tools {
			robotsByTool[tool] = append(robotsByTool[tool], id)
		}
	}

	owners, known := robotsByTool[name]
	if !known {
		available := make([]string, 0, len(robotsByTool))
		for tool := range robotsByTool {
			available = append(available, tool)
		}
		return "", &exception.UserError{
			Value: fmt.Sprintf("No robot with the tool: '%s'. Available tools: %v", name, available),
		}
	}
	active, err := e.ec.ActiveRobot()
	if err != nil {
		return "", err
	}
	attached := false
	for _, owner := range owners {
		if owner == active {
			attached = true
			break
		}
	}
	if !attached {
		return "", &exception.WrongRobotError{
			Text: fmt.Sprintf("Tool '%s' is not attached to the active robot '%s'", name, active),
		}
	}
	return name, nil
}

// connectorFunc builds the motions for one connector invocation
type connectorFunc func(start *types.PoseValue, end types.Value, args []types.Value, settings cell.MotionSettings) ([]cell.Motion, error)

// connectors maps connector names to their implementations. p2p and
// ptp are the same motion under both historical names.
var connectors = map[string]connectorFunc{
	"p2p":       connectPTP,
	"ptp":       connectPTP,
	"line":      connectLine,
	"arc":       connectArc,
	"joint_p2p": connectJointPTP,
	"spline":    connectSpline,
}

func endPose(name string, end types.Value) (types.PoseValue, error) {
	pose, ok := end.(types.PoseValue)
	if !ok {
		return types.PoseValue{}, &exception.TypeError{
			Text: fmt.Sprintf("%s expects a pose target, got %s", name, typeName(end)),
		}
	}
	return pose, nil
}

func connectPTP(start *types.PoseValue, end types.Value, args []types.Value, settings cell.MotionSettings) ([]cell.Motion, error) {
	pose, err := endPose("p2p", end)
	if err != nil {
		return nil, err
	}
	return []cell.Motion{cell.PTP{Target: pose, MotionSettings: settings}}, nil
}

func connectLine(start *types.PoseValue, end types.Value, args []types.Value, settings cell.MotionSettings) ([]cell.Motion, error) {
	pose, err := endPose("line", end)
	if err != nil {
		return nil, err
	}
	return []cell.Motion{cell.Linear{Target: pose, MotionSettings: settings}}, nil
}

// connectArc builds a circular motion. A position-only intermediate
// takes the halfway orientation between start and end.
func connectArc(start *types.PoseValue, end types.Value, args []types.Value, settings cell.MotionSettings) ([]cell.Motion, error) {
	pose, err := endPose("arc", end)
	if err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, &exception.TypeError{Text: "arc expects one intermediate pose or position"}
	}
	var intermediate types.PoseValue
	switch arg := args[0].(type) {
	case types.PoseValue:
		intermediate = arg
	case types.Vector3Value:
		if start == nil {
			return nil, &exception.GenericRuntimeError{
				Text: "First segment can't be an arc with an intermediate position. Use an intermediate pose or prepend another motion.",
			}
		}
		halfway := types.Interpolate(*start, pose, 0.5)
		intermediate = types.PoseValue{Position: arg, Orientation: halfway.Orientation}
	default:
		return nil, &exception.TypeError{Text: "arc intermediate must be a position or a pose"}
	}
	return []cell.Motion{cell.Circular{Target: pose, Intermediate: intermediate, MotionSettings: settings}}, nil
}

// connectJointPTP moves in joint space; the target is a tuple of
// joint values
func connectJointPTP(start *types.PoseValue, end types.Value, args []types.Value, settings cell.MotionSettings) ([]cell.Motion, error) {
	tuple, ok := end.(types.TupleValue)
	if !ok {
		return nil, &exception.TypeError{
			Text: fmt.Sprintf("joint_p2p expects a tuple of joint values, got %s", typeName(end)),
		}
	}
	joints := make([]float64, tuple.Len())
	for i, element := range tuple.Elements {
		n, _, ok := toNumeric(element)
		if !ok {
			return nil, &exception.TypeError{Text: "joint values must be numbers"}
		}
		joints[i] = n
	}
	return []cell.Motion{cell.JointPTP{Joints: joints, MotionSettings: settings}}, nil
}

// connectSpline builds a smooth motion through timed (time, pose)
// keypoints ending at the target pose
func connectSpline(start *types.PoseValue, end types.Value, args []types.Value, settings cell.MotionSettings) ([]cell.Motion, error) {
	pose, err := endPose("spline", end)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, &exception.GenericRuntimeError{Text: "First segment can't be a spline"}
	}
	keypoints := make([]cell.SplineKeypoint, 0, len(args)+1)
	lastTime := 0.0
	for _, arg := range args {
		pair, ok := arg.(types.TupleValue)
		if !ok || pair.Len() != 2 {
			return nil, &exception.GenericRuntimeError{Text: "Invalid data for a spline"}
		}
		t, _, okT := toNumeric(pair.Get(0))
		keyPose, okP := pair.Get(1).(types.PoseValue)
		if !okT || !okP {
			return nil, &exception.GenericRuntimeError{Text: "Invalid data for a spline"}
		}
		keypoints = append(keypoints, cell.SplineKeypoint{Time: t, Pose: keyPose})
		lastTime = t
	}
	keypoints = append(keypoints, cell.SplineKeypoint{Time: lastTime + 1, Pose: pose})
	return []cell.Motion{cell.Spline{Keypoints: keypoints, MotionSettings: settings}}, nil
}
