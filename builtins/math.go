package builtins

import (
	"context"
	"math"

	"wandelscript/exception"
	"wandelscript/runtime"
	"wandelscript/types"
)

// makeUnaryMath wraps a float function as a builtin
func makeUnaryMath(name string, fn func(float64) float64) BuiltinFunc {
	return func(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
		if len(args) != 1 {
			return nil, argCountError(name, 1, len(args))
		}
		x, ok := asFloat(args[0])
		if !ok {
			return nil, numericArgError(name, args[0])
		}
		return types.NewFloat(fn(x)), nil
	}
}

var (
	builtinSin  = makeUnaryMath("sin", math.Sin)
	builtinCos  = makeUnaryMath("cos", math.Cos)
	builtinTan  = makeUnaryMath("tan", math.Tan)
	builtinSinh = makeUnaryMath("sinh", math.Sinh)
	builtinCosh = makeUnaryMath("cosh", math.Cosh)
	builtinTanh = makeUnaryMath("tanh", math.Tanh)
	builtinExp  = makeUnaryMath("exp", math.Exp)
	builtinLog  = makeUnaryMath("log", math.Log)
	builtinSqrt = makeUnaryMath("sqrt", math.Sqrt)
)

func builtinAbs(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("abs", 1, len(args))
	}
	switch v := args[0].(type) {
	case types.IntValue:
		if v.Val < 0 {
			return types.NewInt(-v.Val), nil
		}
		return v, nil
	case types.FloatValue:
		return types.NewFloat(math.Abs(v.Val)), nil
	}
	return nil, numericArgError("abs", args[0])
}

func builtinRound(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("round", 1, len(args))
	}
	x, ok := asFloat(args[0])
	if !ok {
		return nil, numericArgError("round", args[0])
	}
	return types.NewInt(int64(math.Round(x))), nil
}

func builtinCeil(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("ceil", 1, len(args))
	}
	x, ok := asFloat(args[0])
	if !ok {
		return nil, numericArgError("ceil", args[0])
	}
	return types.NewInt(int64(math.Ceil(x))), nil
}

func builtinFloor(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 1 {
		return nil, argCountError("floor", 1, len(args))
	}
	x, ok := asFloat(args[0])
	if !ok {
		return nil, numericArgError("floor", args[0])
	}
	return types.NewInt(int64(math.Floor(x))), nil
}

// builtinIntdiv is floor division on integers
func builtinIntdiv(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return nil, argCountError("intdiv", 2, len(args))
	}
	a, okA := asInt(args[0])
	b, okB := asInt(args[1])
	if !okA || !okB {
		return nil, &exception.TypeError{Text: "intdiv expects two integers"}
	}
	if b == 0 {
		return nil, &exception.GenericRuntimeError{Text: "integer division by zero"}
	}
	return types.NewInt(floorDiv(a, b)), nil
}

func builtinModulo(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return nil, argCountError("modulo", 2, len(args))
	}
	a, okA := asInt(args[0])
	b, okB := asInt(args[1])
	if !okA || !okB {
		return nil, &exception.TypeError{Text: "modulo expects two integers"}
	}
	if b == 0 {
		return nil, &exception.GenericRuntimeError{Text: "integer modulo by zero"}
	}
	return types.NewInt(floorMod(a, b)), nil
}

func builtinDivmod(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return nil, argCountError("divmod", 2, len(args))
	}
	a, okA := asInt(args[0])
	b, okB := asInt(args[1])
	if !okA || !okB {
		return nil, &exception.TypeError{Text: "divmod expects two integers"}
	}
	if b == 0 {
		return nil, &exception.GenericRuntimeError{Text: "integer division by zero"}
	}
	return types.NewTuple([]types.Value{
		types.NewInt(floorDiv(a, b)),
		types.NewInt(floorMod(a, b)),
	}), nil
}

func builtinPower(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return nil, argCountError("power", 2, len(args))
	}
	a, okA := asFloat(args[0])
	b, okB := asFloat(args[1])
	if !okA || !okB {
		return nil, &exception.TypeError{Text: "power expects two numbers"}
	}
	// keep integer powers integral so recursion over exponents works
	ia, isIntA := asInt(args[0])
	ib, isIntB := asInt(args[1])
	if isIntA && isIntB && ib >= 0 {
		result := int64(1)
		for i := int64(0); i < ib; i++ {
			result *= ia
		}
		return types.NewInt(result), nil
	}
	return types.NewFloat(math.Pow(a, b)), nil
}

// floorDiv matches floor division semantics for negative operands
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	return a - floorDiv(a, b)*b
}
