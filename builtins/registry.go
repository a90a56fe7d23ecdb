// Package builtins holds every function callable by name from a
// wandelscript program. Registration is explicit at startup.
package builtins

import (
	"context"
	"fmt"

	"wandelscript/exception"
	"wandelscript/runtime"
	"wandelscript/types"
)

// BuiltinFunc is the uniform shape of a builtin: it receives the Go
// context for cancellation, the execution context and the evaluated
// arguments.
type BuiltinFunc func(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error)

// Registry holds all registered builtin functions
type Registry struct {
	funcs map[string]BuiltinFunc
}

// NewRegistry creates a registry with every core builtin registered
func NewRegistry() *Registry {
	r := &Registry{funcs: make(map[string]BuiltinFunc)}

	// math
	r.Register("sin", builtinSin)
	r.Register("cos", builtinCos)
	r.Register("tan", builtinTan)
	r.Register("sinh", builtinSinh)
	r.Register("cosh", builtinCosh)
	r.Register("tanh", builtinTanh)
	r.Register("exp", builtinExp)
	r.Register("log", builtinLog)
	r.Register("sqrt", builtinSqrt)
	r.Register("abs", builtinAbs)
	r.Register("round", builtinRound)
	r.Register("ceil", builtinCeil)
	r.Register("floor", builtinFloor)
	r.Register("intdiv", builtinIntdiv)
	r.Register("modulo", builtinModulo)
	r.Register("divmod", builtinDivmod)
	r.Register("power", builtinPower)

	// conversion
	r.Register("int", builtinInt)
	r.Register("string", builtinString)
	r.Register("to_string", builtinString)
	r.Register("time", builtinTime)

	// sequences and records
	r.Register("len", builtinLen)
	r.Register("reverse", builtinReverse)
	r.Register("assoc", builtinAssoc)

	// poses
	r.Register("interpolate", builtinInterpolate)
	r.Register("distance", builtinDistance)
	r.Register("to_position", builtinToPosition)
	r.Register("to_orientation", builtinToOrientation)
	r.Register("to_pose", builtinToPose)

	// frames and planning
	r.Register("frame", builtinFrame)
	r.Register("planned_pose", builtinPlannedPose)
	r.Register("tcp", builtinTCP)
	r.Register("tcp_pose", builtinTCPPose)

	// motion settings modifiers, one per field plus the common aliases
	for _, field := range motionSettingFields() {
		r.Register(field, makeSettingsModifier(field))
	}
	r.Register("velocity", makeSettingsModifier("tcp_velocity_limit"))
	r.Register("acceleration", makeSettingsModifier("tcp_acceleration_limit"))
	r.Register("blending", makeSettingsModifier("position_zone_radius"))

	// io
	r.Register("wait_for_bool_io", builtinWaitForBoolIO)
	r.Register("fetch", builtinFetch)

	return r
}

// Register adds a builtin under a name
func (r *Registry) Register(name string, fn BuiltinFunc) {
	r.funcs[name] = fn
}

// Lookup returns the builtin registered under a name
func (r *Registry) Lookup(name string) (BuiltinFunc, bool) {
	fn, ok := r.funcs[name]
	return fn, ok
}

// argCountError reports a wrong number of arguments
func argCountError(name string, want int, got int) error {
	return &exception.TypeError{Text: fmt.Sprintf("%s expects %d arguments, got %d", name, want, got)}
}

// asFloat coerces a numeric value to float64
func asFloat(v types.Value) (float64, bool) {
	switch n := v.(type) {
	case types.IntValue:
		return float64(n.Val), true
	case types.FloatValue:
		return n.Val, true
	}
	return 0, false
}

// asInt extracts an integer value
func asInt(v types.Value) (int64, bool) {
	n, ok := v.(types.IntValue)
	if !ok {
		return 0, false
	}
	return n.Val, true
}

// numericArgError reports a non-numeric argument
func numericArgError(name string, v types.Value) error {
	return &exception.TypeError{Text: fmt.Sprintf("%s expects a number, got %s", name, v.Type())}
}
