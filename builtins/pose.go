package builtins

import (
	"context"
	"fmt"
	"math"

	"wandelscript/exception"
	"wandelscript/frames"
	"wandelscript/runtime"
	"wandelscript/types"
)

// builtinInterpolate blends two poses; a tuple of parameters yields a
// tuple of poses
func builtinInterpolate(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 3 {
		return nil, argCountError("interpolate", 3, len(args))
	}
	a, okA := args[0].(types.PoseValue)
	b, okB := args[1].(types.PoseValue)
	if !okA || !okB {
		return nil, &exception.TypeError{Text: "interpolate expects two poses"}
	}
	if params, ok := args[2].(types.TupleValue); ok {
		poses := make([]types.Value, params.Len())
		for i, p := range params.Elements {
			t, ok := asFloat(p)
			if !ok {
				return nil, numericArgError("interpolate", p)
			}
			poses[i] = types.Interpolate(a, b, t)
		}
		return types.NewTuple(poses), nil
	}
	t, ok := asFloat(args[2])
	if !ok {
		return nil, numericArgError("interpolate", args[2])
	}
	return types.Interpolate(a, b, t), nil
}

// builtinDistance is the distance in mm between two poses or
// positions
func builtinDistance(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return nil, argCountError("distance", 2, len(args))
	}
	a, err := positionOf("distance", args[0])
	if err != nil {
		return nil, err
	}
	b, err := positionOf("distance", args[1])
	if err != nil {
		return nil, err
	}
	d := a.Sub(b)
	return types.NewFloat(math.Sqrt(d.X*d.X + d.Y*d.Y + d.Z*d.Z)), nil
}

func positionOf(name string, v types.Value) (types.Vector3Value, error) {
	switch t := v.(type) {
	case types.Vector3Value:
		return t, nil
	case types.PoseValue:
		return t.Position, nil
	}
	return types.Vector3Value{}, &exception.TypeError{
		Text: fmt.Sprintf("%s expects poses or positions, got %s", name, v.Type()),
	}
}

func builtinToPosition(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("to_position", 1, len(args))
	}
	pose, ok := args[0].(types.PoseValue)
	if !ok {
		return nil, &exception.TypeError{Text: "to_position expects a pose"}
	}
	return pose.Position, nil
}

func builtinToOrientation(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("to_orientation", 1, len(args))
	}
	pose, ok := args[0].(types.PoseValue)
	if !ok {
		return nil, &exception.TypeError{Text: "to_orientation expects a pose"}
	}
	return pose.Orientation, nil
}

// builtinToPose builds a pose from a position, a 6-element tuple or a
// pose
func builtinToPose(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("to_pose", 1, len(args))
	}
	switch v := args[0].(type) {
	case types.PoseValue:
		return v, nil
	case types.Vector3Value:
		return types.PoseValue{Position: v}, nil
	case types.TupleValue:
		if v.Len() == 6 {
			components := make([]float64, 6)
			for i, e := range v.Elements {
				f, ok := asFloat(e)
				if !ok {
					return nil, numericArgError("to_pose", e)
				}
				components[i] = f
			}
			return types.PoseFromTuple(components), nil
		}
	}
	return nil, &exception.TypeError{Text: fmt.Sprintf("to_pose is not defined for %s", args[0].Type())}
}

// builtinFrame returns or creates a frame handle bound to the current
// scope's frame system
func builtinFrame(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("frame", 1, len(args))
	}
	name, ok := args[0].(types.StringValue)
	if !ok {
		return nil, &exception.TypeError{Text: "frame expects a name"}
	}
	return frames.NewFrame(name.Val, ec.Store().FrameSystem()), nil
}

// builtinPlannedPose returns the last queued pose for the active
// robot
func builtinPlannedPose(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 0 {
		return nil, argCountError("planned_pose", 0, len(args))
	}
	robot, err := ec.ActiveRobot()
	if err != nil {
		return nil, err
	}
	pose, ok := ec.Queue.LastPose(robot)
	if !ok {
		return nil, &exception.GenericRuntimeError{
			Range: ec.Location,
			Text:  "Before planned_pose can be used, a move command needs to be executed",
		}
	}
	return pose, nil
}
