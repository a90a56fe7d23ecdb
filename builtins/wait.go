package builtins

import (
	"context"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/runtime"
	"wandelscript/types"
)

// boolIOPollMs is the poll interval of wait_for_bool_io
const boolIOPollMs = 100

// builtinWaitForBoolIO polls a boolean input until it matches the
// expected value
func builtinWaitForBoolIO(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 3 {
		return nil, argCountError("wait_for_bool_io", 3, len(args))
	}
	device, ok := args[0].(types.DeviceValue)
	if !ok {
		return nil, &exception.TypeError{Text: "wait_for_bool_io expects a device"}
	}
	key, ok := args[1].(types.StringValue)
	if !ok {
		return nil, &exception.TypeError{Text: "wait_for_bool_io expects a string key"}
	}
	expected, ok := args[2].(types.BoolValue)
	if !ok {
		return nil, &exception.TypeError{Text: "wait_for_bool_io expects a boolean"}
	}

	for {
		value, err := ec.Queue.RunAction(ctx, cell.ReadAction{Device: device.ID, Key: key.Val})
		if err != nil {
			return nil, err
		}
		if current, ok := value.(types.BoolValue); ok && current.Val == expected.Val {
			return nil, nil
		}
		if err := ec.Wait(ctx, boolIOPollMs); err != nil {
			return nil, err
		}
	}
}
