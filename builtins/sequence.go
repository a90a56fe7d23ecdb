package builtins

import (
	"context"
	"fmt"

	"wandelscript/exception"
	"wandelscript/runtime"
	"wandelscript/types"
)

func builtinLen(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("len", 1, len(args))
	}
	switch v := args[0].(type) {
	case types.TupleValue:
		return types.NewInt(int64(v.Len())), nil
	case types.RecordValue:
		return types.NewInt(int64(v.Len())), nil
	case types.StringValue:
		return types.NewInt(int64(len(v.Val))), nil
	}
	return nil, &exception.TypeError{Text: fmt.Sprintf("len is not defined for %s", args[0].Type())}
}

func builtinReverse(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("reverse", 1, len(args))
	}
	tuple, ok := args[0].(types.TupleValue)
	if !ok {
		return nil, &exception.TypeError{Text: fmt.Sprintf("reverse is not defined for %s", args[0].Type())}
	}
	return tuple.Reverse(), nil
}

// builtinAssoc returns a copy of a sequence, vector, pose or record
// with one entry replaced; the original is unchanged
func builtinAssoc(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 3 {
		return nil, argCountError("assoc", 3, len(args))
	}
	switch target := args[0].(type) {
	case types.TupleValue:
		index, ok := asInt(args[1])
		if !ok {
			return nil, &exception.TypeError{Text: "assoc on a tuple expects an integer key"}
		}
		if index < 0 || index >= int64(target.Len()) {
			return nil, &exception.GenericRuntimeError{Text: fmt.Sprintf("assoc index out of range: %d", index)}
		}
		return target.Set(int(index), args[2]), nil
	case types.Vector3Value:
		index, ok := asInt(args[1])
		if !ok {
			return nil, &exception.TypeError{Text: "assoc on a vector expects an integer key"}
		}
		value, ok := asFloat(args[2])
		if !ok {
			return nil, numericArgError("assoc", args[2])
		}
		components := target.ToTuple()
		if index < 0 || index >= 3 {
			return nil, &exception.GenericRuntimeError{Text: fmt.Sprintf("assoc index out of range: %d", index)}
		}
		components[index] = value
		return types.NewVector3(components[0], components[1], components[2]), nil
	case types.PoseValue:
		index, ok := asInt(args[1])
		if !ok {
			return nil, &exception.TypeError{Text: "assoc on a pose expects an integer key"}
		}
		value, ok := asFloat(args[2])
		if !ok {
			return nil, numericArgError("assoc", args[2])
		}
		components := target.ToTuple()
		if index < 0 || index >= 6 {
			return nil, &exception.GenericRuntimeError{Text: fmt.Sprintf("assoc index out of range: %d", index)}
		}
		components[index] = value
		return types.PoseFromTuple(components), nil
	case types.RecordValue:
		key, ok := args[1].(types.StringValue)
		if !ok {
			return nil, &exception.TypeError{Text: "assoc on a record expects a string key"}
		}
		return target.Assoc(key.Val, args[2]), nil
	}
	return nil, &exception.TypeError{Text: fmt.Sprintf("assoc is not defined for %s", args[0].Type())}
}
