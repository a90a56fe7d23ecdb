// Package eval walks the AST and executes it against an execution
// context. Evaluation is cooperative: every blocking operation
// (device IO, sync, wait, planning) suspends on the Go context.
package eval

import (
	"context"
	"errors"
	"fmt"

	"wandelscript/builtins"
	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/frames"
	"wandelscript/parser"
	"wandelscript/runtime"
	"wandelscript/types"
)

// Evaluator walks the AST and evaluates expressions and statements
type Evaluator struct {
	ec       *runtime.ExecutionContext
	builtins *builtins.Registry
}

// NewEvaluator creates an evaluator over an execution context with
// the default builtin registry
func NewEvaluator(ec *runtime.ExecutionContext) *Evaluator {
	return NewEvaluatorWithRegistry(ec, builtins.NewRegistry())
}

// NewEvaluatorWithRegistry creates an evaluator with a custom
// registry, e.g. one extended with foreign functions
func NewEvaluatorWithRegistry(ec *runtime.ExecutionContext, registry *builtins.Registry) *Evaluator {
	return &Evaluator{ec: ec, builtins: registry}
}

// Context returns the execution context
func (e *Evaluator) Context() *runtime.ExecutionContext {
	return e.ec
}

// RunProgram seeds the tool frames, runs the program body and drains
// the queue at program end.
func (e *Evaluator) RunProgram(ctx context.Context, program *parser.Program) error {
	store := e.ec.Store()
	for _, id := range e.ec.RobotCell.RobotIDs() {
		robot, err := e.ec.RobotCell.Robot(id)
		if err != nil {
			continue
		}
		tools, err := robot.TCPs(ctx)
		if err != nil {
			return err
		}
		for name := range tools {
			store.SetLocal(name, frames.NewFrame(name, store.FrameSystem()))
		}
	}

	result := e.Eval(ctx, program.Body)
	switch result.Flow {
	case types.FlowError:
		if errors.Is(result.Err, errTerminated) {
			return nil
		}
		return result.Err
	case types.FlowTerminate:
		return nil
	}
	return e.ec.Sync(ctx)
}

// errTerminated carries a stop statement across function boundaries
var errTerminated = errors.New("program terminated")

// Eval evaluates a node and returns a Result carrying the value, a
// control-flow signal or an error.
func (e *Evaluator) Eval(ctx context.Context, node parser.Node) types.Result {
	span := node.Span()
	e.ec.Location = &span

	switch n := node.(type) {
	case *parser.LiteralExpr:
		return types.Ok(n.Value)
	case *parser.ReferenceExpr:
		return e.evalReference(n)
	case *parser.UnaryExpr:
		return e.evalUnary(ctx, n)
	case *parser.BinaryExpr:
		return e.evalBinary(ctx, n)
	case *parser.IndexExpr:
		return e.evalIndex(ctx, n)
	case *parser.PropertyExpr:
		return e.evalProperty(ctx, n)
	case *parser.CallExpr:
		return e.evalCall(ctx, n)
	case *parser.TupleExpr:
		return e.evalTuple(ctx, n)
	case *parser.OrientationExpr:
		return e.evalOrientation(ctx, n)
	case *parser.RecordExpr:
		return e.evalRecord(ctx, n)
	case *parser.FrameRelationExpr:
		return e.evalFrameRelation(ctx, n)
	case *parser.ReadExpr:
		return e.evalRead(ctx, n)
	case *parser.CallDeviceExpr:
		return e.evalCallDevice(ctx, n)
	case *parser.Block:
		return e.evalBlock(ctx, n)
	default:
		return e.evalStatement(ctx, node)
	}
}

// fail attaches the node's source range to errors that lack one
func (e *Evaluator) fail(node parser.Node, err error) types.Result {
	span := node.Span()
	var typeErr *exception.TypeError
	if errors.As(err, &typeErr) && typeErr.Range == nil {
		typeErr.Range = &span
	}
	var genericErr *exception.GenericRuntimeError
	if errors.As(err, &genericErr) && genericErr.Range == nil {
		genericErr.Range = &span
	}
	return types.Fail(err)
}

func (e *Evaluator) evalBlock(ctx context.Context, block *parser.Block) types.Result {
	for _, stmt := range block.Statements {
		if err := ctx.Err(); err != nil {
			return types.Fail(err)
		}
		if e.ec.Stopped() {
			return types.Fail(context.Canceled)
		}
		result := e.Eval(ctx, stmt)
		if !result.IsNormal() {
			return result
		}
	}
	return types.Ok(nil)
}

func (e *Evaluator) evalReference(node *parser.ReferenceExpr) types.Result {
	value, ok := e.ec.Store().Get(node.Name)
	if !ok {
		span := node.Span()
		return types.Fail(&exception.NameError{Range: &span, Name: node.Name})
	}
	return types.Ok(value)
}

func (e *Evaluator) evalUnary(ctx context.Context, node *parser.UnaryExpr) types.Result {
	operand := e.Eval(ctx, node.Operand)
	if !operand.IsNormal() {
		return operand
	}
	value, err := evalUnaryOp(node.Operator, operand.Val)
	if err != nil {
		return e.fail(node, err)
	}
	return types.Ok(value)
}

func (e *Evaluator) evalBinary(ctx context.Context, node *parser.BinaryExpr) types.Result {
	left := e.Eval(ctx, node.Left)
	if !left.IsNormal() {
		return left
	}

	// and/or short-circuit and return an operand value
	switch node.Operator {
	case parser.TOKEN_AND:
		if left.Val == nil || !left.Val.Truthy() {
			return left
		}
		return e.Eval(ctx, node.Right)
	case parser.TOKEN_OR:
		if left.Val != nil && left.Val.Truthy() {
			return left
		}
		return e.Eval(ctx, node.Right)
	}

	right := e.Eval(ctx, node.Right)
	if !right.IsNormal() {
		return right
	}
	value, err := evalBinaryOp(node.Operator, left.Val, right.Val)
	if err != nil {
		return e.fail(node, err)
	}
	return types.Ok(value)
}

func (e *Evaluator) evalIndex(ctx context.Context, node *parser.IndexExpr) types.Result {
	target := e.Eval(ctx, node.Target)
	if !target.IsNormal() {
		return target
	}
	index := e.Eval(ctx, node.Index)
	if !index.IsNormal() {
		return index
	}

	switch container := target.Val.(type) {
	case types.TupleValue:
		i, ok := index.Val.(types.IntValue)
		if !ok {
			return e.fail(node, &exception.TypeError{Text: "tuple indices must be integers"})
		}
		value := container.Get(int(i.Val))
		if value == nil {
			return e.fail(node, &exception.GenericRuntimeError{
				Text: fmt.Sprintf("tuple index out of range: %d", i.Val),
			})
		}
		return types.Ok(value)
	case types.RecordValue:
		key, ok := index.Val.(types.StringValue)
		if !ok {
			return e.fail(node, &exception.TypeError{Text: "record keys must be strings"})
		}
		value, found := container.Get(key.Val)
		if !found {
			return e.fail(node, &exception.GenericRuntimeError{Text: "record has no key '" + key.Val + "'"})
		}
		return types.Ok(value)
	case types.Vector3Value:
		i, ok := index.Val.(types.IntValue)
		if !ok || i.Val < 0 || i.Val > 2 {
			return e.fail(node, &exception.GenericRuntimeError{Text: "vector index out of range"})
		}
		return types.Ok(types.NewFloat(container.ToTuple()[i.Val]))
	case types.PoseValue:
		i, ok := index.Val.(types.IntValue)
		if !ok || i.Val < 0 || i.Val > 5 {
			return e.fail(node, &exception.GenericRuntimeError{Text: "pose index out of range"})
		}
		return types.Ok(types.NewFloat(container.ToTuple()[i.Val]))
	case types.DeviceValue:
		// controller[0] addresses the motion group 0@controller
		i, ok := index.Val.(types.IntValue)
		if !ok {
			return e.fail(node, &exception.TypeError{Text: "motion group indices must be integers"})
		}
		id := fmt.Sprintf("%d@%s", i.Val, container.ID)
		if _, err := e.ec.RobotCell.Robot(id); err != nil {
			span := node.Span()
			return types.Fail(&exception.WrongRobotError{Range: &span, Text: "Unknown robot: '" + id + "'"})
		}
		return types.Ok(types.NewDevice(id))
	}
	return e.fail(node, &exception.TypeError{
		Text: fmt.Sprintf("%s is not indexable", typeName(target.Val)),
	})
}

func (e *Evaluator) evalProperty(ctx context.Context, node *parser.PropertyExpr) types.Result {
	target := e.Eval(ctx, node.Target)
	if !target.IsNormal() {
		return target
	}
	record, ok := target.Val.(types.RecordValue)
	if !ok {
		return e.fail(node, &exception.TypeError{
			Text: fmt.Sprintf("%s has no attributes", typeName(target.Val)),
		})
	}
	value, found := record.Get(node.Key)
	if !found {
		return e.fail(node, &exception.GenericRuntimeError{Text: "record has no attribute '" + node.Key + "'"})
	}
	return types.Ok(value)
}

// evalCall resolves a function call: registered builtin first, then a
// closure or pose bound in scope
func (e *Evaluator) evalCall(ctx context.Context, node *parser.CallExpr) types.Result {
	args := make([]types.Value, len(node.Args))
	for i, argNode := range node.Args {
		arg := e.Eval(ctx, argNode)
		if !arg.IsNormal() {
			return arg
		}
		args[i] = arg.Val
	}

	span := node.Span()
	if fn, ok := e.builtins.Lookup(node.Name); ok {
		e.ec.Location = &span
		value, err := fn(ctx, e.ec, args)
		if err != nil {
			return e.fail(node, err)
		}
		return types.Ok(value)
	}

	if bound, ok := e.ec.Store().Get(node.Name); ok {
		switch callee := bound.(type) {
		case types.ClosureValue:
			value, err := callee.Call(ctx, args)
			if err != nil {
				return e.fail(node, err)
			}
			return types.Ok(value)
		case types.PoseValue:
			// a pose bound to a name acts as the transform it denotes
			if len(args) == 1 {
				switch arg := args[0].(type) {
				case types.PoseValue:
					return types.Ok(callee.Compose(arg))
				case types.Vector3Value:
					return types.Ok(callee.Apply(arg))
				}
			}
			return e.fail(node, &exception.TypeError{Text: "a pose applies to one pose or position"})
		}
	}

	return types.Fail(&exception.NameError{Range: &span, Name: node.Name})
}

// evalTuple evaluates a sequence literal. Parenthesized all-numeric
// sequences of 3 or 6 elements become vectors and poses.
func (e *Evaluator) evalTuple(ctx context.Context, node *parser.TupleExpr) types.Result {
	elements := make([]types.Value, len(node.Elements))
	for i, elementNode := range node.Elements {
		element := e.Eval(ctx, elementNode)
		if !element.IsNormal() {
			return element
		}
		elements[i] = element.Val
	}

	if node.Paren && (len(elements) == 3 || len(elements) == 6) {
		numbers := make([]float64, len(elements))
		allNumeric := true
		for i, element := range elements {
			n, _, ok := toNumeric(element)
			if !ok {
				allNumeric = false
				break
			}
			numbers[i] = n
		}
		if allNumeric {
			if len(numbers) == 3 {
				return types.Ok(types.NewVector3(numbers[0], numbers[1], numbers[2]))
			}
			return types.Ok(types.PoseFromTuple(numbers))
		}
	}
	return types.Ok(types.NewTuple(elements))
}

// evalOrientation evaluates (..., rx, ry, rz) to a pose with zero
// position
func (e *Evaluator) evalOrientation(ctx context.Context, node *parser.OrientationExpr) types.Result {
	var components [3]float64
	for i, elementNode := range node.Elements {
		element := e.Eval(ctx, elementNode)
		if !element.IsNormal() {
			return element
		}
		n, _, ok := toNumeric(element.Val)
		if !ok {
			return e.fail(node, &exception.TypeError{Text: "orientation components must be numbers"})
		}
		components[i] = n
	}
	return types.Ok(types.PoseValue{
		Orientation: types.NewVector3(components[0], components[1], components[2]),
	})
}

func (e *Evaluator) evalRecord(ctx context.Context, node *parser.RecordExpr) types.Result {
	values := make([]types.Value, len(node.Values))
	for i, valueNode := range node.Values {
		value := e.Eval(ctx, valueNode)
		if !value.IsNormal() {
			return value
		}
		values[i] = value.Val
	}
	return types.Ok(types.NewRecord(node.Keys, values))
}

// evalFrameRelation resolves [target | source] through the frame
// graph. The robot-to-flange relation is pinned to the last planned
// pose so programs can relate frames to where the robot will be.
func (e *Evaluator) evalFrameRelation(ctx context.Context, node *parser.FrameRelationExpr) types.Result {
	target := e.Eval(ctx, node.Target)
	if !target.IsNormal() {
		return target
	}
	source := e.Eval(ctx, node.Source)
	if !source.IsNormal() {
		return source
	}
	targetFrame, okT := target.Val.(frames.Frame)
	sourceFrame, okS := source.Val.(frames.Frame)
	if !okT || !okS {
		return e.fail(node, &exception.TypeError{Text: "both sides of a frame relation must be frames"})
	}

	system := e.ec.Store().FrameSystem().Copy()
	if robot, err := e.ec.ActiveRobot(); err == nil {
		if pose, ok := e.ec.Queue.LastPose(robot); ok {
			system.Set(runtime.RobotFrameName, runtime.FlangeFrameName, pose)
		}
	}
	pose, err := system.Eval(targetFrame.Name, sourceFrame.Name)
	if err != nil {
		return e.fail(node, &exception.GenericRuntimeError{Text: err.Error()})
	}
	return types.Ok(pose)
}

// evalRead classifies the read by device: robots answer pose and
// joint reads, everything else is a keyed device read. Reads run
// immediately.
func (e *Evaluator) evalRead(ctx context.Context, node *parser.ReadExpr) types.Result {
	device := e.Eval(ctx, node.Device)
	if !device.IsNormal() {
		return device
	}
	key := e.Eval(ctx, node.Key)
	if !key.IsNormal() {
		return key
	}
	handle, ok := device.Val.(types.DeviceValue)
	if !ok {
		return e.fail(node, &exception.GenericRuntimeError{
			Text: fmt.Sprintf("%s does not support the read operation", typeName(device.Val)),
		})
	}

	var action cell.Action
	if _, err := e.ec.RobotCell.Robot(handle.ID); err == nil {
		switch k := key.Val.(type) {
		case types.StringValue:
			switch k.Val {
			case "pose":
				action = cell.ReadPoseAction{Device: handle.ID, TCP: e.ec.DefaultTCP()}
			case "joints":
				action = cell.ReadJointsAction{Device: handle.ID}
			default:
				action = cell.ReadPoseAction{Device: handle.ID, TCP: k.Val}
			}
		case frames.Frame:
			action = cell.ReadPoseAction{Device: handle.ID, TCP: k.Name}
		default:
			return e.fail(node, &exception.TypeError{Text: "read key must be a string or a frame"})
		}
	} else {
		k, ok := key.Val.(types.StringValue)
		if !ok {
			return e.fail(node, &exception.TypeError{Text: "read key must be a string"})
		}
		action = cell.ReadAction{Device: handle.ID, Key: k.Val}
	}

	value, err := e.ec.Queue.RunAction(ctx, action)
	if err != nil {
		var unknownPose *cell.UnknownPoseError
		if errors.As(err, &unknownPose) {
			span := node.Span()
			return types.Fail(&exception.ConfigurationError{Range: &span, Text: err.Error()})
		}
		return e.fail(node, err)
	}
	return types.Ok(value)
}

func (e *Evaluator) evalCallDevice(ctx context.Context, node *parser.CallDeviceExpr) types.Result {
	device := e.Eval(ctx, node.Device)
	if !device.IsNormal() {
		return device
	}
	key := e.Eval(ctx, node.Key)
	if !key.IsNormal() {
		return key
	}
	handle, ok := device.Val.(types.DeviceValue)
	if !ok {
		return e.fail(node, &exception.GenericRuntimeError{
			Text: fmt.Sprintf("%s does not support the call operation.", typeName(device.Val)),
		})
	}
	k, ok := key.Val.(types.StringValue)
	if !ok {
		return e.fail(node, &exception.TypeError{Text: "call key must be a string"})
	}

	args := make([]types.Value, len(node.Args))
	for i, argNode := range node.Args {
		arg := e.Eval(ctx, argNode)
		if !arg.IsNormal() {
			return arg
		}
		args[i] = arg.Val
	}

	value, err := e.ec.Queue.RunAction(ctx, cell.CallAction{Device: handle.ID, Key: k.Val, Args: args})
	if err != nil {
		return e.fail(node, err)
	}
	return types.Ok(value)
}

// formatValue renders a value for print output; strings print
// unquoted
func formatValue(v types.Value) string {
	if v == nil {
		return "None"
	}
	if s, ok := v.(types.StringValue); ok {
		return s.Val
	}
	return v.String()
}
