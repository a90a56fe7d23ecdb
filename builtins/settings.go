package builtins

import (
	"context"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/frames"
	"wandelscript/runtime"
	"wandelscript/types"
)

func motionSettingFields() []string {
	return cell.MotionSettingsFields
}

// makeSettingsModifier builds the scoped modifier for one motion
// settings field. Calling it overrides the field in the store and
// returns an undo closure restoring the previous value.
func makeSettingsModifier(field string) BuiltinFunc {
	varname := cell.FieldToVarname(field)
	return func(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
		if len(args) != 1 {
			return nil, argCountError(field, 1, len(args))
		}
		if _, ok := asFloat(args[0]); !ok {
			return nil, numericArgError(field, args[0])
		}
		store := ec.Store()
		previous, hadPrevious := store.Get(varname)
		if !hadPrevious {
			previous = types.NewFloat(cell.MotionSettingFieldDefaults[field])
		}
		store.Set(varname, args[0])

		undo := types.NewClosure("", store, func(ctx context.Context, _ []types.Value) (types.Value, error) {
			store.Set(varname, previous)
			return nil, nil
		})
		return undo, nil
	}
}

// builtinTCP installs the current tool and returns an undo closure
func builtinTCP(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("tcp", 1, len(args))
	}
	var name string
	switch v := args[0].(type) {
	case types.StringValue:
		name = v.Val
	case frames.Frame:
		name = v.Name
	default:
		return nil, &exception.TypeError{Text: "tcp expects a name or a frame"}
	}
	store := ec.Store()
	previous, hadPrevious := store.Get(runtime.TCPVarName)
	store.Set(runtime.TCPVarName, types.NewString(name))

	undo := types.NewClosure("", store, func(ctx context.Context, _ []types.Value) (types.Value, error) {
		if hadPrevious {
			store.Set(runtime.TCPVarName, previous)
		} else {
			store.Set(runtime.TCPVarName, types.NewString(""))
		}
		return nil, nil
	})
	return undo, nil
}

// builtinTCPPose returns the offset of a named tool on the active
// robot
func builtinTCPPose(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("tcp_pose", 1, len(args))
	}
	var name string
	switch v := args[0].(type) {
	case types.StringValue:
		name = v.Val
	case frames.Frame:
		name = v.Name
	default:
		return nil, &exception.TypeError{Text: "tcp_pose expects a name or a frame"}
	}
	robot, err := ec.GetRobot("")
	if err != nil {
		return nil, err
	}
	tools, err := robot.TCPs(ctx)
	if err != nil {
		return nil, err
	}
	pose, ok := tools[name]
	if !ok {
		return nil, &exception.UserError{
			Range: ec.Location,
			Value: "No tool named '" + name + "' on the active robot",
		}
	}
	return pose, nil
}
