// Package ffi registers Go functions as wandelscript builtins.
// Arguments convert from runtime values into the declared Go
// parameter types on entry, results convert back on exit.
package ffi

import (
	"context"
	"fmt"
	"reflect"

	"wandelscript/builtins"
	"wandelscript/exception"
	"wandelscript/runtime"
	"wandelscript/types"
)

// ForeignFunction references a Go function callable from a program
type ForeignFunction struct {
	Name string
	// Function is an arbitrary Go func. An optional leading
	// context.Context parameter receives the evaluation context.
	Function any
	// PassContext passes the execution context as the first value
	// parameter
	PassContext bool
}

// Register wraps the foreign functions and adds them to a registry
func Register(registry *builtins.Registry, functions []ForeignFunction) error {
	for _, fn := range functions {
		wrapped, err := wrap(fn)
		if err != nil {
			return err
		}
		registry.Register(fn.Name, wrapped)
	}
	return nil
}

var (
	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	valueType   = reflect.TypeOf((*types.Value)(nil)).Elem()
	ecType      = reflect.TypeOf((*runtime.ExecutionContext)(nil))
)

func wrap(fn ForeignFunction) (builtins.BuiltinFunc, error) {
	fnValue := reflect.ValueOf(fn.Function)
	if fnValue.Kind() != reflect.Func {
		return nil, fmt.Errorf("foreign function %s is not a func", fn.Name)
	}
	fnType := fnValue.Type()

	return func(ctx context.Context, ec *runtime.ExecutionContext, args []types.Value) (types.Value, error) {
		in := make([]reflect.Value, 0, fnType.NumIn())
		next := 0
		if fnType.NumIn() > next && fnType.In(next) == contextType {
			in = append(in, reflect.ValueOf(ctx))
			next++
		}
		if fn.PassContext {
			if fnType.NumIn() <= next || fnType.In(next) != ecType {
				return nil, fmt.Errorf("foreign function %s declares no execution context parameter", fn.Name)
			}
			in = append(in, reflect.ValueOf(ec))
			next++
		}
		want := fnType.NumIn() - next
		if len(args) != want {
			return nil, &exception.TypeError{
				Text: fmt.Sprintf("%s expects %d arguments, got %d", fn.Name, want, len(args)),
			}
		}
		for i, arg := range args {
			converted, err := convertIn(arg, fnType.In(next+i))
			if err != nil {
				return nil, &exception.TypeError{
					Text: fmt.Sprintf("%s argument %d: %v", fn.Name, i+1, err),
				}
			}
			in = append(in, converted)
		}

		out := fnValue.Call(in)
		var result types.Value
		for _, o := range out {
			if o.Type() == errorType {
				if !o.IsNil() {
					return nil, o.Interface().(error)
				}
				continue
			}
			converted, err := convertOut(o)
			if err != nil {
				return nil, err
			}
			result = converted
		}
		return result, nil
	}, nil
}

// convertIn converts a runtime value into a Go parameter
func convertIn(v types.Value, target reflect.Type) (reflect.Value, error) {
	if target == valueType || (v != nil && reflect.TypeOf(v) == target) {
		return reflect.ValueOf(v), nil
	}
	switch target.Kind() {
	case reflect.Float64, reflect.Float32:
		switch n := v.(type) {
		case types.IntValue:
			return reflect.ValueOf(float64(n.Val)).Convert(target), nil
		case types.FloatValue:
			return reflect.ValueOf(n.Val).Convert(target), nil
		}
	case reflect.Int, reflect.Int32, reflect.Int64:
		if n, ok := v.(types.IntValue); ok {
			return reflect.ValueOf(n.Val).Convert(target), nil
		}
	case reflect.String:
		if s, ok := v.(types.StringValue); ok {
			return reflect.ValueOf(s.Val).Convert(target), nil
		}
	case reflect.Bool:
		if b, ok := v.(types.BoolValue); ok {
			return reflect.ValueOf(b.Val).Convert(target), nil
		}
	case reflect.Struct:
		// records convert field-wise into declared struct types
		if record, ok := v.(types.RecordValue); ok {
			out := reflect.New(target).Elem()
			for i := 0; i < target.NumField(); i++ {
				field := target.Field(i)
				name := field.Tag.Get("ws")
				if name == "" {
					name = field.Name
				}
				entry, found := record.Get(name)
				if !found {
					continue
				}
				converted, err := convertIn(entry, field.Type)
				if err != nil {
					return reflect.Value{}, fmt.Errorf("field %s: %w", name, err)
				}
				out.Field(i).Set(converted)
			}
			return out, nil
		}
	case reflect.Slice:
		if tuple, ok := v.(types.TupleValue); ok {
			out := reflect.MakeSlice(target, tuple.Len(), tuple.Len())
			for i, element := range tuple.Elements {
				converted, err := convertIn(element, target.Elem())
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(converted)
			}
			return out, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", typeLabel(v), target)
}

func typeLabel(v types.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Type().String()
}

// convertOut converts a Go result back into a runtime value
func convertOut(v reflect.Value) (types.Value, error) {
	if v.Type().Implements(valueType) {
		if v.IsZero() && v.Kind() == reflect.Interface {
			return nil, nil
		}
		return v.Interface().(types.Value), nil
	}
	switch v.Kind() {
	case reflect.Float64, reflect.Float32:
		return types.NewFloat(v.Float()), nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		return types.NewInt(v.Int()), nil
	case reflect.String:
		return types.NewString(v.String()), nil
	case reflect.Bool:
		return types.NewBool(v.Bool()), nil
	case reflect.Slice:
		elements := make([]types.Value, v.Len())
		for i := 0; i < v.Len(); i++ {
			converted, err := convertOut(v.Index(i))
			if err != nil {
				return nil, err
			}
			elements[i] = converted
		}
		return types.NewTuple(elements), nil
	case reflect.Struct:
		keys := make([]string, 0, v.NumField())
		values := make([]types.Value, 0, v.NumField())
		for i := 0; i < v.NumField(); i++ {
			field := v.Type().Field(i)
			if !field.IsExported() {
				continue
			}
			name := field.Tag.Get("ws")
			if name == "" {
				name = field.Name
			}
			converted, err := convertOut(v.Field(i))
			if err != nil {
				return nil, err
			}
			keys = append(keys, name)
			values = append(values, converted)
		}
		return types.NewRecord(keys, values), nil
	}
	return nil, fmt.Errorf("cannot convert %s result to a wandelscript value", v.Type())
}
