package types

import "context"

// CallFunc is the callable body of a closure. The defining scope is
// captured inside the function value; arguments are evaluated by the
// caller.
type CallFunc func(ctx context.Context, args []Value) (Value, error)

// ClosureValue is an anonymous function together with the variable
// scope its implementation can refer to. The scope handle is kept
// opaque here so the value model stays independent of the runtime
// package.
type ClosureValue struct {
	Name  string
	Scope any
	Fn    CallFunc
}

// Type returns the type code for closures
func (c ClosureValue) Type() TypeCode {
	return TYPE_CLOSURE
}

// String returns the wandelscript literal representation
func (c ClosureValue) String() string {
	if c.Name != "" {
		return "<function " + c.Name + ">"
	}
	return "<function>"
}

// Equal: closures compare by identity of their callable, which Go
// cannot observe; two distinct closures are never equal.
func (c ClosureValue) Equal(other Value) bool {
	return false
}

// Truthy: closures are always truthy
func (c ClosureValue) Truthy() bool {
	return true
}

// NewClosure creates a new ClosureValue
func NewClosure(name string, scope any, fn CallFunc) ClosureValue {
	return ClosureValue{Name: name, Scope: scope, Fn: fn}
}

// Call invokes the closure
func (c ClosureValue) Call(ctx context.Context, args []Value) (Value, error) {
	return c.Fn(ctx, args)
}

// ComposePose returns a new closure applying the pose after the
// closure's own result, preserving the capture: (f :: p)(x) = f(x) :: p
func (c ClosureValue) ComposePose(p PoseValue) ClosureValue {
	inner := c.Fn
	return ClosureValue{Scope: c.Scope, Fn: func(ctx context.Context, args []Value) (Value, error) {
		res, err := inner(ctx, args)
		if err != nil {
			return nil, err
		}
		pose, ok := res.(PoseValue)
		if !ok {
			return nil, composeTypeError(res)
		}
		return pose.Compose(p), nil
	}}
}

// PoseCompose returns a new closure applying the pose before the
// closure's own result: (p :: f)(x) = p :: f(x)
func (c ClosureValue) PoseCompose(p PoseValue) ClosureValue {
	inner := c.Fn
	return ClosureValue{Scope: c.Scope, Fn: func(ctx context.Context, args []Value) (Value, error) {
		res, err := inner(ctx, args)
		if err != nil {
			return nil, err
		}
		pose, ok := res.(PoseValue)
		if !ok {
			return nil, composeTypeError(res)
		}
		return p.Compose(pose), nil
	}}
}

// Compose chains two closures: (f :: g)(x) = f(x) :: g(x)
func (c ClosureValue) Compose(other ClosureValue) ClosureValue {
	left, right := c.Fn, other.Fn
	return ClosureValue{Scope: c.Scope, Fn: func(ctx context.Context, args []Value) (Value, error) {
		a, err := left(ctx, args)
		if err != nil {
			return nil, err
		}
		b, err := right(ctx, args)
		if err != nil {
			return nil, err
		}
		pa, ok := a.(PoseValue)
		if !ok {
			return nil, composeTypeError(a)
		}
		pb, ok := b.(PoseValue)
		if !ok {
			return nil, composeTypeError(b)
		}
		return pa.Compose(pb), nil
	}}
}
