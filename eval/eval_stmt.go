package eval

import (
	"context"
	"errors"
	"fmt"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/frames"
	"wandelscript/parser"
	"wandelscript/runtime"
	"wandelscript/trace"
	"wandelscript/types"
)

// stmtKind names a statement for the tracer
func stmtKind(node parser.Node) string {
	switch node.(type) {
	case *parser.AssignStmt, *parser.FrameAssignStmt:
		return "assign"
	case *parser.MoveStmt:
		return "move"
	case *parser.SyncStmt:
		return "sync"
	case *parser.RobotContextStmt:
		return "robot"
	case *parser.IfStmt:
		return "if"
	case *parser.ForStmt, *parser.WhileStmt, *parser.RepeatStmt:
		return "loop"
	case *parser.FuncDefStmt, *parser.MoveDefStmt:
		return "def"
	case *parser.InterruptDefStmt, *parser.SwitchInterruptStmt:
		return "interrupt"
	case *parser.WaitStmt:
		return "wait"
	case *parser.WriteStmt:
		return "write"
	default:
		return "stmt"
	}
}

func (e *Evaluator) evalStatement(ctx context.Context, node parser.Node) types.Result {
	if trace.IsEnabled() {
		span := node.Span()
		trace.Statement(stmtKind(node), span.Start.Line, span.Start.Column)
	}
	switch n := node.(type) {
	case *parser.AssignStmt:
		return e.evalAssign(ctx, n)
	case *parser.FrameAssignStmt:
		return e.evalFrameAssign(ctx, n)
	case *parser.ExprStmt:
		result := e.Eval(ctx, n.Expr)
		if !result.IsNormal() {
			return result
		}
		return types.Ok(nil)
	case *parser.IfStmt:
		return e.evalIf(ctx, n)
	case *parser.ForStmt:
		return e.evalFor(ctx, n)
	case *parser.WhileStmt:
		return e.evalWhile(ctx, n)
	case *parser.RepeatStmt:
		return e.evalRepeat(ctx, n)
	case *parser.SwitchStmt:
		return e.evalSwitch(ctx, n)
	case *parser.FuncDefStmt:
		return e.evalFuncDef(n)
	case *parser.MoveDefStmt:
		return e.evalMoveDef(n)
	case *parser.InterruptDefStmt:
		return e.evalInterruptDef(ctx, n)
	case *parser.SwitchInterruptStmt:
		return e.evalSwitchInterrupt(n)
	case *parser.WithStmt:
		return e.evalWith(ctx, n)
	case *parser.SyncStmt:
		return e.evalSync(ctx, n)
	case *parser.RobotContextStmt:
		return e.evalRobotContext(ctx, n)
	case *parser.MoveStmt:
		return e.evalMove(ctx, n)
	case *parser.WaitStmt:
		return e.evalWait(ctx, n)
	case *parser.RaiseStmt:
		return e.evalRaise(ctx, n)
	case *parser.BreakStmt:
		return types.Break()
	case *parser.PassStmt:
		return types.Ok(nil)
	case *parser.StopStmt:
		return types.Terminate()
	case *parser.ReturnStmt:
		if n.Value == nil {
			return types.Return(nil)
		}
		value := e.Eval(ctx, n.Value)
		if !value.IsNormal() {
			return value
		}
		return types.Return(value.Val)
	case *parser.PrintStmt:
		value := e.Eval(ctx, n.Value)
		if !value.IsNormal() {
			return value
		}
		fmt.Fprintln(e.ec.Stdout, formatValue(value.Val))
		return types.Ok(nil)
	case *parser.WriteStmt:
		return e.evalWrite(ctx, n)
	default:
		return types.Fail(fmt.Errorf("unknown AST node %T", node))
	}
}

func (e *Evaluator) evalAssign(ctx context.Context, node *parser.AssignStmt) types.Result {
	value := e.Eval(ctx, node.Value)
	if !value.IsNormal() {
		return value
	}
	store := e.ec.Store()
	if len(node.Names) == 1 {
		store.Set(node.Names[0], value.Val)
		return types.Ok(value.Val)
	}

	tuple, ok := value.Val.(types.TupleValue)
	if !ok || tuple.Len() != len(node.Names) {
		return e.fail(node, &exception.TypeError{
			Text: fmt.Sprintf("cannot destructure %s into %d names", typeName(value.Val), len(node.Names)),
		})
	}
	for i, name := range node.Names {
		store.SetLocal(name, tuple.Get(i))
	}
	return types.Ok(value.Val)
}

// evalFrameAssign writes an edge into the frame graph, creating
// frames for unbound names on both sides
func (e *Evaluator) evalFrameAssign(ctx context.Context, node *parser.FrameAssignStmt) types.Result {
	value := e.Eval(ctx, node.Value)
	if !value.IsNormal() {
		return value
	}
	pose, ok := value.Val.(types.PoseValue)
	if !ok {
		return e.fail(node, &exception.TypeError{
			Text: fmt.Sprintf("Unexpected type: Expected pose but received: %s", typeName(value.Val)),
		})
	}

	target, err := e.resolveFrameOperand(ctx, node.Relation.Target)
	if err != nil {
		return e.fail(node, err)
	}
	source, err := e.resolveFrameOperand(ctx, node.Relation.Source)
	if err != nil {
		return e.fail(node, err)
	}
	e.ec.Store().FrameSystem().Set(target.Name, source.Name, pose)
	return types.Ok(pose)
}

// resolveFrameOperand evaluates one side of a frame relation target,
// creating and binding a frame when the name is unbound
func (e *Evaluator) resolveFrameOperand(ctx context.Context, node parser.Expr) (frames.Frame, error) {
	store := e.ec.Store()
	if ref, ok := node.(*parser.ReferenceExpr); ok {
		if _, bound := store.Get(ref.Name); !bound {
			frame := frames.NewFrame(ref.Name, store.FrameSystem())
			store.Set(ref.Name, frame)
			return frame, nil
		}
	}
	result := e.Eval(ctx, node)
	if result.IsError() {
		return frames.Frame{}, result.Err
	}
	frame, ok := result.Val.(frames.Frame)
	if !ok {
		return frames.Frame{}, &exception.TypeError{
			Text: fmt.Sprintf("frame relation operands must be frames, got %s", typeName(result.Val)),
		}
	}
	return frame, nil
}

func (e *Evaluator) evalIf(ctx context.Context, node *parser.IfStmt) types.Result {
	cond := e.Eval(ctx, node.Condition)
	if !cond.IsNormal() {
		return cond
	}
	if cond.Val != nil && cond.Val.Truthy() {
		return e.Eval(ctx, node.Body)
	}
	for i, elifCond := range node.ElifConds {
		c := e.Eval(ctx, elifCond)
		if !c.IsNormal() {
			return c
		}
		if c.Val != nil && c.Val.Truthy() {
			return e.Eval(ctx, node.ElifBodies[i])
		}
	}
	if node.Else != nil {
		return e.Eval(ctx, node.Else)
	}
	return types.Ok(nil)
}

func (e *Evaluator) evalFor(ctx context.Context, node *parser.ForStmt) types.Result {
	start := e.Eval(ctx, node.Range.Start)
	if !start.IsNormal() {
		return start
	}
	end := e.Eval(ctx, node.Range.End)
	if !end.IsNormal() {
		return end
	}
	startInt, okS := start.Val.(types.IntValue)
	endInt, okE := end.Val.(types.IntValue)
	if !okS || !okE {
		return e.fail(node, &exception.TypeError{Text: "range bounds must be integers"})
	}
	last := endInt.Val
	if !node.Range.Exclusive {
		last++
	}

	store := e.ec.Store()
	for i := startInt.Val; i < last; i++ {
		store.Set(node.Name, types.NewInt(i))
		result := e.Eval(ctx, node.Body)
		if result.IsBreak() {
			break
		}
		if !result.IsNormal() {
			return result
		}
	}
	return types.Ok(nil)
}

func (e *Evaluator) evalWhile(ctx context.Context, node *parser.WhileStmt) types.Result {
	for {
		cond := e.Eval(ctx, node.Condition)
		if !cond.IsNormal() {
			return cond
		}
		if cond.Val == nil || !cond.Val.Truthy() {
			return types.Ok(nil)
		}
		result := e.Eval(ctx, node.Body)
		if result.IsBreak() {
			return types.Ok(nil)
		}
		if !result.IsNormal() {
			return result
		}
	}
}

func (e *Evaluator) evalRepeat(ctx context.Context, node *parser.RepeatStmt) types.Result {
	count := e.Eval(ctx, node.Count)
	if !count.IsNormal() {
		return count
	}
	n, ok := count.Val.(types.IntValue)
	if !ok {
		return e.fail(node, &exception.TypeError{Text: "repeat expects an integer count"})
	}
	for i := int64(0); i < n.Val; i++ {
		result := e.Eval(ctx, node.Body)
		if result.IsBreak() {
			break
		}
		if !result.IsNormal() {
			return result
		}
	}
	return types.Ok(nil)
}

func (e *Evaluator) evalSwitch(ctx context.Context, node *parser.SwitchStmt) types.Result {
	subject := e.Eval(ctx, node.Subject)
	if !subject.IsNormal() {
		return subject
	}
	for i, caseExpr := range node.CaseExprs {
		candidate := e.Eval(ctx, caseExpr)
		if !candidate.IsNormal() {
			return candidate
		}
		if valuesEqual(subject.Val, candidate.Val) {
			return e.Eval(ctx, node.CaseBodies[i])
		}
	}
	if node.Default != nil {
		return e.Eval(ctx, node.Default)
	}
	return types.Ok(nil)
}

// makeClosure builds the callable for a function body closing over
// the defining scope. Calls push a bounded stack frame; a return
// signal becomes the call result.
func (e *Evaluator) makeClosure(name string, params []string, body *parser.Block, defScope *runtime.Store) types.ClosureValue {
	span := body.Span()
	return types.NewClosure(name, defScope, func(ctx context.Context, args []types.Value) (types.Value, error) {
		locals := make(map[string]types.Value, len(params))
		for i, param := range params {
			if i < len(args) {
				locals[param] = args[i]
			}
		}
		frame := defScope.Descend(locals)
		if err := e.ec.CallStack().Push(frame, &span); err != nil {
			return nil, err
		}
		defer e.ec.CallStack().Pop()

		result := e.Eval(ctx, body)
		switch result.Flow {
		case types.FlowReturn:
			return result.Val, nil
		case types.FlowError:
			return nil, result.Err
		case types.FlowTerminate:
			return nil, errTerminated
		}
		return nil, nil
	})
}

func (e *Evaluator) evalFuncDef(node *parser.FuncDefStmt) types.Result {
	store := e.ec.Store()
	closure := e.makeClosure(node.Name, node.Params, node.Body, store)
	store.Set(node.Name, closure)
	return types.Ok(nil)
}

// evalMoveDef binds a custom connector. The closure receives the
// start pose, the end value and the extra connector arguments; its
// body usually issues move statements itself.
func (e *Evaluator) evalMoveDef(node *parser.MoveDefStmt) types.Result {
	store := e.ec.Store()
	params := append([]string{node.Start, node.End}, node.Params...)
	closure := e.makeClosure(node.Name, params, node.Body, store)
	store.Set(node.Name, closure)
	return types.Ok(nil)
}

// evalInterruptDef stores the interrupt as a (condition, arguments,
// callback) triple under its name
func (e *Evaluator) evalInterruptDef(ctx context.Context, node *parser.InterruptDefStmt) types.Result {
	args := make([]types.Value, len(node.CondArgs))
	for i, argNode := range node.CondArgs {
		arg := e.Eval(ctx, argNode)
		if !arg.IsNormal() {
			return arg
		}
		args[i] = arg.Val
	}
	store := e.ec.Store()
	closure := e.makeClosure(node.Name, node.Params, node.Body, store)
	store.Set(node.Name, types.NewTuple([]types.Value{
		types.NewString(node.Condition),
		types.NewTuple(args),
		closure,
	}))
	return types.Ok(nil)
}

func (e *Evaluator) evalSwitchInterrupt(node *parser.SwitchInterruptStmt) types.Result {
	span := node.Span()
	if !node.Activate {
		e.ec.Queue.DeactivateInterrupt(node.Name)
		return types.Ok(nil)
	}
	bound, ok := e.ec.Store().Get(node.Name)
	if !ok {
		return types.Fail(&exception.NameError{Range: &span, Name: node.Name})
	}
	triple, ok := bound.(types.TupleValue)
	if !ok || triple.Len() != 3 {
		return types.Fail(&exception.TypeError{Range: &span, Text: node.Name + " is not an interrupt"})
	}
	callback, ok := triple.Get(2).(types.ClosureValue)
	if !ok {
		return types.Fail(&exception.TypeError{Range: &span, Text: node.Name + " is not an interrupt"})
	}
	e.ec.Queue.ActivateInterrupt(node.Name, callback)
	return types.Ok(nil)
}

// applyModifiers runs modifier calls in order and returns the undo
// closures they produced
func (e *Evaluator) applyModifiers(ctx context.Context, modifiers []*parser.CallExpr) ([]types.ClosureValue, types.Result) {
	var undos []types.ClosureValue
	for _, modifier := range modifiers {
		result := e.evalCall(ctx, modifier)
		if !result.IsNormal() {
			// undo what has been applied before surfacing the error
			e.runUndos(ctx, undos)
			return nil, result
		}
		if undo, ok := result.Val.(types.ClosureValue); ok {
			undos = append(undos, undo)
		}
	}
	return undos, types.Ok(nil)
}

// runUndos invokes undo closures in reverse order
func (e *Evaluator) runUndos(ctx context.Context, undos []types.ClosureValue) {
	for i := len(undos) - 1; i >= 0; i-- {
		_, _ = undos[i].Call(ctx, nil)
	}
}

// evalWith applies the modifiers, runs the body and undoes the
// modifiers in reverse on every exit path
func (e *Evaluator) evalWith(ctx context.Context, node *parser.WithStmt) types.Result {
	undos, applied := e.applyModifiers(ctx, node.Modifiers)
	if !applied.IsNormal() {
		return applied
	}
	result := e.Eval(ctx, node.Body)
	e.runUndos(ctx, undos)
	return result
}

// evalSync runs the optional do body, drains the queue and routes
// MotionError/UserError into the except body when present
func (e *Evaluator) evalSync(ctx context.Context, node *parser.SyncStmt) types.Result {
	failed := func(err error) types.Result {
		if node.ExceptBody == nil {
			return types.Fail(err)
		}
		var motionErr *exception.MotionError
		var userErr *exception.UserError
		if errors.As(err, &motionErr) || errors.As(err, &userErr) {
			return e.Eval(ctx, node.ExceptBody)
		}
		return types.Fail(err)
	}

	if node.DoBody != nil {
		result := e.Eval(ctx, node.DoBody)
		if result.IsError() {
			return failed(result.Err)
		}
		if !result.IsNormal() {
			return result
		}
	}
	if err := e.ec.Sync(ctx); err != nil {
		return failed(err)
	}
	if node.SyncBody != nil {
		return e.Eval(ctx, node.SyncBody)
	}
	return types.Ok(nil)
}

// evalRobotContext runs each body with its robot active, then issues
// the implicit terminal sync so the buffered motions execute in
// parallel
func (e *Evaluator) evalRobotContext(ctx context.Context, node *parser.RobotContextStmt) types.Result {
	for i, robotExpr := range node.Robots {
		robot := e.Eval(ctx, robotExpr)
		if !robot.IsNormal() {
			return robot
		}
		handle, ok := robot.Val.(types.DeviceValue)
		if !ok {
			return e.fail(node, &exception.GenericRuntimeError{
				Text: fmt.Sprintf("The device must be a robot but is a: %s", typeName(robot.Val)),
			})
		}
		if _, err := e.ec.RobotCell.Robot(handle.ID); err != nil {
			span := node.Span()
			return types.Fail(&exception.WrongRobotError{Range: &span, Text: "Unknown robot: '" + handle.ID + "'"})
		}

		if err := e.ec.EnterRobot(handle.ID); err != nil {
			return types.Fail(err)
		}
		result := e.Eval(ctx, node.Bodies[i])
		e.ec.ExitRobot()
		if !result.IsNormal() {
			return result
		}
	}
	if err := e.ec.Sync(ctx); err != nil {
		return types.Fail(err)
	}
	return types.Ok(nil)
}

func (e *Evaluator) evalWait(ctx context.Context, node *parser.WaitStmt) types.Result {
	duration := e.Eval(ctx, node.Duration)
	if !duration.IsNormal() {
		return duration
	}
	ms, _, ok := toNumeric(duration.Val)
	if !ok {
		return e.fail(node, &exception.TypeError{Text: "wait expects a duration in milliseconds"})
	}
	if err := e.ec.Wait(ctx, ms); err != nil {
		return types.Fail(err)
	}
	return types.Ok(nil)
}

func (e *Evaluator) evalRaise(ctx context.Context, node *parser.RaiseStmt) types.Result {
	value := e.Eval(ctx, node.Value)
	if !value.IsNormal() {
		return value
	}
	message := formatValue(value.Val)
	span := node.Span()
	return types.Fail(&exception.UserError{Range: &span, Value: message})
}

// evalWrite runs immediately when no motions are buffered, otherwise
// it attaches to the active robot's trajectory and fires on path
func (e *Evaluator) evalWrite(ctx context.Context, node *parser.WriteStmt) types.Result {
	device := e.Eval(ctx, node.Device)
	if !device.IsNormal() {
		return device
	}
	key := e.Eval(ctx, node.Key)
	if !key.IsNormal() {
		return key
	}
	value := e.Eval(ctx, node.Value)
	if !value.IsNormal() {
		return value
	}
	handle, ok := device.Val.(types.DeviceValue)
	if !ok {
		return e.fail(node, &exception.GenericRuntimeError{
			Text: fmt.Sprintf("%s does not support the write operation", typeName(device.Val)),
		})
	}
	k, ok := key.Val.(types.StringValue)
	if !ok {
		return e.fail(node, &exception.GenericRuntimeError{
			Text: fmt.Sprintf("Key must be a string but is: %s. Use correct order: write(<device>, <key>, <value>)", typeName(key.Val)),
		})
	}

	action := cell.WriteAction{Device: handle.ID, Key: k.Val, Value: value.Val}
	if e.ec.Queue.IsEmpty() {
		if _, err := e.ec.Queue.RunAction(ctx, action); err != nil {
			return e.fail(node, err)
		}
		return types.Ok(nil)
	}
	robot, err := e.ec.ActiveRobot()
	if err != nil {
		return types.Fail(err)
	}
	e.ec.Queue.AttachAction(action, robot)
	return types.Ok(nil)
}
