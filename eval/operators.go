package eval

import (
	"fmt"

	"wandelscript/exception"
	"wandelscript/parser"
	"wandelscript/types"
)

// toNumeric extracts a numeric operand. The second return reports
// whether the operand is a float.
func toNumeric(v types.Value) (float64, bool, bool) {
	switch n := v.(type) {
	case types.IntValue:
		return float64(n.Val), false, true
	case types.FloatValue:
		return n.Val, true, true
	}
	return 0, false, false
}

func operandTypeError(op string, left, right types.Value) error {
	return &exception.TypeError{
		Text: fmt.Sprintf("unsupported operand types for %s: %s and %s", op, typeName(left), typeName(right)),
	}
}

func typeName(v types.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Type().String()
}

// evalBinaryOp dispatches a binary operator on the operand type pair
func evalBinaryOp(op parser.TokenType, left, right types.Value) (types.Value, error) {
	switch op {
	case parser.TOKEN_PLUS:
		return evalAdd(left, right)
	case parser.TOKEN_MINUS:
		return evalSubtract(left, right)
	case parser.TOKEN_STAR:
		return evalMultiply(left, right)
	case parser.TOKEN_SLASH:
		return evalDivide(left, right)
	case parser.TOKEN_COLONCOLON:
		return evalCompose(left, right)
	case parser.TOKEN_EQ:
		return types.NewBool(valuesEqual(left, right)), nil
	case parser.TOKEN_NE:
		return types.NewBool(!valuesEqual(left, right)), nil
	case parser.TOKEN_LT, parser.TOKEN_LE, parser.TOKEN_GT, parser.TOKEN_GE:
		return evalOrdering(op, left, right)
	}
	return nil, operandTypeError(op.String(), left, right)
}

// evalAdd implements +: numeric addition, string concatenation,
// componentwise vector and pose addition
func evalAdd(left, right types.Value) (types.Value, error) {
	if l, ok := left.(types.StringValue); ok {
		if r, ok := right.(types.StringValue); ok {
			return types.NewString(l.Val + r.Val), nil
		}
		return nil, operandTypeError("+", left, right)
	}
	if l, ok := left.(types.Vector3Value); ok {
		if r, ok := right.(types.Vector3Value); ok {
			return l.Add(r), nil
		}
		return nil, operandTypeError("+", left, right)
	}
	if l, ok := left.(types.PoseValue); ok {
		if r, ok := right.(types.PoseValue); ok {
			return types.PoseValue{
				Position:    l.Position.Add(r.Position),
				Orientation: l.Orientation.Add(r.Orientation),
			}, nil
		}
		return nil, operandTypeError("+", left, right)
	}

	lv, lf, lok := toNumeric(left)
	rv, rf, rok := toNumeric(right)
	if !lok || !rok {
		return nil, operandTypeError("+", left, right)
	}
	if lf || rf {
		return types.NewFloat(lv + rv), nil
	}
	return types.NewInt(left.(types.IntValue).Val + right.(types.IntValue).Val), nil
}

func evalSubtract(left, right types.Value) (types.Value, error) {
	if l, ok := left.(types.Vector3Value); ok {
		if r, ok := right.(types.Vector3Value); ok {
			return l.Sub(r), nil
		}
		return nil, operandTypeError("-", left, right)
	}
	if l, ok := left.(types.PoseValue); ok {
		if r, ok := right.(types.PoseValue); ok {
			return types.PoseValue{
				Position:    l.Position.Sub(r.Position),
				Orientation: l.Orientation.Sub(r.Orientation),
			}, nil
		}
		return nil, operandTypeError("-", left, right)
	}

	lv, lf, lok := toNumeric(left)
	rv, rf, rok := toNumeric(right)
	if !lok || !rok {
		return nil, operandTypeError("-", left, right)
	}
	if lf || rf {
		return types.NewFloat(lv - rv), nil
	}
	return types.NewInt(left.(types.IntValue).Val - right.(types.IntValue).Val), nil
}

// evalMultiply implements *: numeric multiplication and vector
// scaling in either order
func evalMultiply(left, right types.Value) (types.Value, error) {
	if l, ok := left.(types.Vector3Value); ok {
		if s, _, ok := toNumeric(right); ok {
			return l.Scale(s), nil
		}
		return nil, operandTypeError("*", left, right)
	}
	if r, ok := right.(types.Vector3Value); ok {
		if s, _, ok := toNumeric(left); ok {
			return r.Scale(s), nil
		}
		return nil, operandTypeError("*", left, right)
	}

	lv, lf, lok := toNumeric(left)
	rv, rf, rok := toNumeric(right)
	if !lok || !rok {
		return nil, operandTypeError("*", left, right)
	}
	if lf || rf {
		return types.NewFloat(lv * rv), nil
	}
	return types.NewInt(left.(types.IntValue).Val * right.(types.IntValue).Val), nil
}

// evalDivide implements /: true division, so integers divide into
// floats. Integer division is the intdiv builtin.
func evalDivide(left, right types.Value) (types.Value, error) {
	lv, _, lok := toNumeric(left)
	rv, _, rok := toNumeric(right)
	if !lok || !rok {
		return nil, operandTypeError("/", left, right)
	}
	if rv == 0 {
		return nil, &exception.GenericRuntimeError{Text: "division by zero"}
	}
	return types.NewFloat(lv / rv), nil
}

// evalCompose implements ::, the pose composition operator
func evalCompose(left, right types.Value) (types.Value, error) {
	switch l := left.(type) {
	case types.PoseValue:
		switch r := right.(type) {
		case types.PoseValue:
			return l.Compose(r), nil
		case types.Vector3Value:
			// the result keeps the orientation of the left pose
			return l.Compose(types.PoseValue{Position: r}), nil
		case types.ClosureValue:
			return r.PoseCompose(l), nil
		}
	case types.Vector3Value:
		if r, ok := right.(types.Vector3Value); ok {
			return l.Add(r), nil
		}
	case types.ClosureValue:
		switch r := right.(type) {
		case types.PoseValue:
			return l.ComposePose(r), nil
		case types.ClosureValue:
			return l.Compose(r), nil
		}
	}
	return nil, operandTypeError("::", left, right)
}

// valuesEqual is structural equality with numeric cross-type
// comparison
func valuesEqual(left, right types.Value) bool {
	lv, _, lok := toNumeric(left)
	rv, _, rok := toNumeric(right)
	if lok && rok {
		return lv == rv
	}
	if left == nil || right == nil {
		return left == nil && right == nil
	}
	return left.Equal(right)
}

// evalOrdering implements < <= > >=, defined for numbers only
func evalOrdering(op parser.TokenType, left, right types.Value) (types.Value, error) {
	lv, _, lok := toNumeric(left)
	rv, _, rok := toNumeric(right)
	if !lok || !rok {
		return nil, operandTypeError(op.String(), left, right)
	}
	switch op {
	case parser.TOKEN_LT:
		return types.NewBool(lv < rv), nil
	case parser.TOKEN_LE:
		return types.NewBool(lv <= rv), nil
	case parser.TOKEN_GT:
		return types.NewBool(lv > rv), nil
	case parser.TOKEN_GE:
		return types.NewBool(lv >= rv), nil
	}
	return nil, operandTypeError(op.String(), left, right)
}

// evalUnaryOp dispatches a unary operator
func evalUnaryOp(op parser.TokenType, operand types.Value) (types.Value, error) {
	switch op {
	case parser.TOKEN_NOT:
		return types.NewBool(operand != nil && !operand.Truthy()), nil
	case parser.TOKEN_TILDE:
		switch v := operand.(type) {
		case types.PoseValue:
			return v.Inverse(), nil
		case types.BoolValue:
			return types.NewBool(!v.Val), nil
		case types.IntValue:
			return types.NewInt(^v.Val), nil
		}
		return nil, &exception.TypeError{Text: fmt.Sprintf("~ is not defined for %s", typeName(operand))}
	case parser.TOKEN_MINUS:
		switch v := operand.(type) {
		case types.IntValue:
			return types.NewInt(-v.Val), nil
		case types.FloatValue:
			return types.NewFloat(-v.Val), nil
		case types.Vector3Value:
			return v.Scale(-1), nil
		}
		return nil, &exception.TypeError{Text: fmt.Sprintf("unary - is not defined for %s", typeName(operand))}
	case parser.TOKEN_PLUS:
		switch operand.(type) {
		case types.IntValue, types.FloatValue, types.Vector3Value:
			return operand, nil
		}
		return nil, &exception.TypeError{Text: fmt.Sprintf("unary + is not defined for %s", typeName(operand))}
	}
	return nil, &exception.TypeError{Text: fmt.Sprintf("unknown unary operator %s", op)}
}
