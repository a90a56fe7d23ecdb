package builtins

import (
	"context"
	"time"

	"wandelscript/runtime"
	"wandelscript/types"
)

// builtinInt truncates a float towards zero; integers pass through
func builtinInt(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("int", 1, len(args))
	}
	switch v := args[0].(type) {
	case types.IntValue:
		return v, nil
	case types.FloatValue:
		return types.NewInt(int64(v.Val)), nil
	case types.BoolValue:
		if v.Val {
			return types.NewInt(1), nil
		}
		return types.NewInt(0), nil
	}
	return nil, numericArgError("int", args[0])
}

// builtinString renders any value; strings stay unquoted
func builtinString(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("string", 1, len(args))
	}
	if s, ok := args[0].(types.StringValue); ok {
		return s, nil
	}
	return types.NewString(args[0].String()), nil
}

// builtinTime returns milliseconds since the epoch
func builtinTime(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 0 {
		return nil, argCountError("time", 0, len(args))
	}
	return types.NewFloat(float64(time.Now().UnixNano()) / 1e6), nil
}
