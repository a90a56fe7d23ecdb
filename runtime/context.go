package runtime

import (
	"context"
	"io"
	"log"
	"os"
	"sync"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/types"
)

// Params configures an execution context
type Params struct {
	DefaultRobot string
	DefaultTCP   string
	InitialVars  map[string]types.Value
	Debug        bool
	Plannable    bool
	Stdout       io.Writer
	Logger       *log.Logger
}

// ExecutionContext carries everything a running program needs: the
// robot cell, the call stack with its stores, the action queue, the
// stop signal and the recorded trajectories.
type ExecutionContext struct {
	RobotCell cell.RobotCell
	Queue     *ActionQueue
	Stdout    io.Writer
	Logger    *log.Logger
	Debug     bool

	// Location is continuously updated by the evaluator and gives
	// errors raised outside the tree walk a source position
	Location *exception.TextRange

	// Recordings maps motion group ids to one recorded trajectory per
	// drained motion buffer
	Recordings map[string][][]cell.MotionState

	callStack    *CallStack
	robotIDs     []string
	defaultRobot string
	activeRobot  string

	stopOnce sync.Once
	stop     chan struct{}
}

// NewExecutionContext seeds the root scope with the initial
// variables, the default TCP and a device handle per cell device.
func NewExecutionContext(robotCell cell.RobotCell, params Params) *ExecutionContext {
	initVars := make(map[string]types.Value)
	for name, value := range params.InitialVars {
		initVars[name] = value
	}
	if params.DefaultTCP != "" {
		initVars[TCPVarName] = types.NewString(params.DefaultTCP)
	}
	for id := range robotCell.Devices() {
		initVars[id] = types.NewDevice(id)
	}

	robotIDs := robotCell.RobotIDs()
	defaultRobot := params.DefaultRobot
	if defaultRobot == "" && len(robotIDs) == 1 {
		defaultRobot = robotIDs[0]
	}

	stdout := params.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	logger := params.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	ec := &ExecutionContext{
		RobotCell:    robotCell,
		Stdout:       stdout,
		Logger:       logger,
		Debug:        params.Debug,
		Recordings:   make(map[string][][]cell.MotionState),
		callStack:    NewCallStack(DefaultCallStackSize),
		robotIDs:     robotIDs,
		defaultRobot: defaultRobot,
		stop:         make(chan struct{}),
	}
	// the call stack owns the root store; push cannot overflow here
	_ = ec.callStack.Push(NewStore(initVars), nil)
	ec.Queue = NewActionQueue(ec, params.Plannable)
	return ec
}

// Store returns the current scope
func (ec *ExecutionContext) Store() *Store {
	return ec.callStack.Current()
}

// CallStack returns the call stack
func (ec *ExecutionContext) CallStack() *CallStack {
	return ec.callStack
}

// Stop requests cooperative cancellation of the run
func (ec *ExecutionContext) Stop() {
	ec.stopOnce.Do(func() { close(ec.stop) })
}

// StopChan returns the channel closed on stop
func (ec *ExecutionContext) StopChan() <-chan struct{} {
	return ec.stop
}

// Stopped reports whether a stop was requested
func (ec *ExecutionContext) Stopped() bool {
	select {
	case <-ec.stop:
		return true
	default:
		return false
	}
}

// InRobotContext reports whether a do-with block is active
func (ec *ExecutionContext) InRobotContext() bool {
	return ec.activeRobot != ""
}

// EnterRobot activates a robot for a do-with block
func (ec *ExecutionContext) EnterRobot(id string) error {
	if ec.InRobotContext() {
		return &exception.WrongRobotError{
			Range: ec.Location,
			Text:  "Cannot change to robot '" + id + "' while another robot '" + ec.activeRobot + "' is active",
		}
	}
	ec.activeRobot = id
	return nil
}

// ExitRobot deactivates the current robot context
func (ec *ExecutionContext) ExitRobot() {
	ec.activeRobot = ""
}

// ActiveRobot resolves the robot that should execute: the contextual
// one inside a do-with block, otherwise the default.
func (ec *ExecutionContext) ActiveRobot() (string, error) {
	if len(ec.robotIDs) == 0 {
		return "", &exception.WrongRobotError{Range: ec.Location, Text: "No robot found in robot cell."}
	}
	if ec.activeRobot != "" {
		return ec.activeRobot, nil
	}
	if ec.defaultRobot == "" {
		return "", &exception.WrongRobotError{
			Range: ec.Location,
			Text:  "No default robot found. Cannot execute outside of a robot context.",
		}
	}
	return ec.defaultRobot, nil
}

// DefaultTCP returns the current scope's tool, or "" when unset
func (ec *ExecutionContext) DefaultTCP() string {
	if value, ok := ec.Store().Get(TCPVarName); ok {
		if s, ok := value.(types.StringValue); ok {
			return s.Val
		}
	}
	return ""
}

// GetRobot looks up a robot in the cell
func (ec *ExecutionContext) GetRobot(name string) (cell.Robot, error) {
	if name == "" {
		resolved, err := ec.ActiveRobot()
		if err != nil {
			return nil, err
		}
		name = resolved
	}
	robot, err := ec.RobotCell.Robot(name)
	if err != nil {
		return nil, &exception.WrongRobotError{Range: ec.Location, Text: "Unknown robot: '" + name + "'"}
	}
	return robot, nil
}

// ReadPose reads the current pose of a robot
func (ec *ExecutionContext) ReadPose(ctx context.Context, robotName, tcp string) (types.PoseValue, error) {
	robot, err := ec.GetRobot(robotName)
	if err != nil {
		return types.PoseValue{}, err
	}
	if tcp == "" {
		tcp, err = robot.ActiveTCPName(ctx)
		if err != nil {
			return types.PoseValue{}, err
		}
	}
	state, err := robot.GetState(ctx, tcp)
	if err != nil {
		return types.PoseValue{}, err
	}
	return state.Pose, nil
}

// ReadJoints reads the current joint configuration of a robot
func (ec *ExecutionContext) ReadJoints(ctx context.Context, robotName string) ([]float64, error) {
	robot, err := ec.GetRobot(robotName)
	if err != nil {
		return nil, err
	}
	tcp, err := robot.ActiveTCPName(ctx)
	if err != nil {
		return nil, err
	}
	state, err := robot.GetState(ctx, tcp)
	if err != nil {
		return nil, err
	}
	return state.Joints, nil
}

// Sync drains the action queue. Inside a robot context it fails with a
// NestedSyncError instead.
func (ec *ExecutionContext) Sync(ctx context.Context) error {
	if ec.InRobotContext() {
		return &exception.NestedSyncError{Range: ec.Location}
	}
	return ec.Queue.Run(ctx)
}

// Wait suspends for a duration in milliseconds through the cell timer
func (ec *ExecutionContext) Wait(ctx context.Context, ms float64) error {
	return ec.RobotCell.Timer(ctx, ms)
}
