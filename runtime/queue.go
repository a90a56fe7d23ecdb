package runtime

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"wandelscript/cell"
	"wandelscript/exception"
	"wandelscript/types"
)

// MotionLimitIn is the maximal length of a motion buffer used for
// planning
const MotionLimitIn = 10000

// PlannableMotionLimitIn is the buffer limit in plan-only execution
const PlannableMotionLimitIn = 1000

// ActionQueue collects motions and device actions between sync
// barriers and executes them at the next drain. Motions are buffered
// per motion group; the tool of a buffer is fixed once set.
type ActionQueue struct {
	ec          *ExecutionContext
	motionLimit int
	plannable   bool

	tcp         map[string]string
	record      map[string]*cell.CombinedActions
	lastMotions map[string]cell.Motion

	callbackOrder []string
	callbacks     map[string]types.ClosureValue
}

// NewActionQueue creates a queue for the given context. A plannable
// queue rejects all side-effecting actions.
func NewActionQueue(ec *ExecutionContext, plannable bool) *ActionQueue {
	limit := MotionLimitIn
	if plannable {
		limit = PlannableMotionLimitIn
	}
	return &ActionQueue{
		ec:          ec,
		motionLimit: limit,
		plannable:   plannable,
		tcp:         make(map[string]string),
		record:      make(map[string]*cell.CombinedActions),
		lastMotions: make(map[string]cell.Motion),
		callbacks:   make(map[string]types.ClosureValue),
	}
}

// Reset clears all buffered state including interrupt callbacks
func (q *ActionQueue) Reset() {
	q.tcp = make(map[string]string)
	q.record = make(map[string]*cell.CombinedActions)
	q.callbackOrder = nil
	q.callbacks = make(map[string]types.ClosureValue)
}

// IsEmpty reports whether no buffer holds any entry
func (q *ActionQueue) IsEmpty() bool {
	for _, container := range q.record {
		if container.Len() > 0 {
			return false
		}
	}
	return true
}

// LastPose returns the target of the last queued motion for a robot
func (q *ActionQueue) LastPose(motionGroupID string) (types.PoseValue, bool) {
	if motion, ok := q.lastMotions[motionGroupID]; ok {
		return motion.TargetPose()
	}
	return types.PoseValue{}, false
}

// Push appends motions to a robot's buffer, enforcing the fixed tool
// and the capacity limit
func (q *ActionQueue) Push(motions []cell.Motion, tool string, motionGroupID string) error {
	if current, ok := q.tcp[motionGroupID]; !ok {
		if tool != "" {
			q.tcp[motionGroupID] = tool
		}
	} else if tool != "" && current != tool {
		return &exception.MotionError{
			Range: q.ec.Location,
			Text:  fmt.Sprintf("Changing the tcp in one motion is not supported: changed from %s to %s", current, tool),
		}
	}

	for _, motion := range motions {
		container, ok := q.record[motionGroupID]
		if !ok {
			container = &cell.CombinedActions{}
			q.record[motionGroupID] = container
		}
		if container.Len() >= q.motionLimit {
			return &exception.MotionError{
				Range: q.ec.Location,
				Text:  "Maximum motion queue size exceeded. Won't plan program.",
			}
		}
		container.AppendMotion(motion)
		q.lastMotions[motionGroupID] = motion
	}
	return nil
}

// AttachAction appends an action to a robot's buffer; it fires once
// the trajectory passes the motions buffered so far
func (q *ActionQueue) AttachAction(action cell.Action, motionGroupID string) {
	container, ok := q.record[motionGroupID]
	if !ok {
		container = &cell.CombinedActions{}
		q.record[motionGroupID] = container
	}
	container.AppendAction(action)
}

// ActivateInterrupt registers a per-motion-state callback under a name
func (q *ActionQueue) ActivateInterrupt(name string, callback types.ClosureValue) {
	if _, ok := q.callbacks[name]; !ok {
		q.callbackOrder = append(q.callbackOrder, name)
	}
	q.callbacks[name] = callback
}

// DeactivateInterrupt removes a registered callback
func (q *ActionQueue) DeactivateInterrupt(name string) {
	if _, ok := q.callbacks[name]; !ok {
		return
	}
	delete(q.callbacks, name)
	for i, n := range q.callbackOrder {
		if n == name {
			q.callbackOrder = append(q.callbackOrder[:i], q.callbackOrder[i+1:]...)
			break
		}
	}
}

// RunAction executes an action immediately against its device. In
// plan-only mode every side effect is rejected; only reads from pure
// configuration stores pass.
func (q *ActionQueue) RunAction(ctx context.Context, action cell.Action) (types.Value, error) {
	if q.plannable {
		allowed := false
		if read, ok := action.(cell.ReadAction); ok {
			if device, found := q.ec.RobotCell.Device(read.Device); found {
				if typed, ok := device.(cell.Typed); ok && typed.ConfigurationType() == "database" {
					allowed = true
				}
			}
		}
		if !allowed {
			return nil, &exception.NotPlannableError{
				Range: q.ec.Location,
				Text:  "Actions are not supported in plan-only execution to avoid critical side effects.",
			}
		}
	}

	switch a := action.(type) {
	case cell.WriteAction:
		device, ok := q.ec.RobotCell.Device(a.Device)
		if !ok {
			return nil, &exception.GenericRuntimeError{Range: q.ec.Location, Text: "Unknown device: " + a.Device}
		}
		output, ok := device.(cell.OutputDevice)
		if !ok {
			return nil, &exception.GenericRuntimeError{
				Range: q.ec.Location,
				Text:  a.Device + " does not support the write operation",
			}
		}
		return nil, output.Write(ctx, a.Key, a.Value)
	case cell.ReadAction:
		device, ok := q.ec.RobotCell.Device(a.Device)
		if !ok {
			return nil, &exception.GenericRuntimeError{Range: q.ec.Location, Text: "Unknown device: " + a.Device}
		}
		input, ok := device.(cell.InputDevice)
		if !ok {
			return nil, &exception.GenericRuntimeError{
				Range: q.ec.Location,
				Text:  a.Device + " does not support the read operation",
			}
		}
		return input.Read(ctx, a.Key)
	case cell.CallAction:
		device, ok := q.ec.RobotCell.Device(a.Device)
		if !ok {
			return nil, &exception.GenericRuntimeError{Range: q.ec.Location, Text: "Unknown device: " + a.Device}
		}
		callable, ok := device.(cell.CallableDevice)
		if !ok {
			return nil, &exception.GenericRuntimeError{
				Range: q.ec.Location,
				Text:  a.Device + " does not support the call operation.",
			}
		}
		return callable.Call(ctx, a.Key, a.Args)
	case cell.ReadPoseAction:
		pose, err := q.ec.ReadPose(ctx, a.Device, a.TCP)
		if err != nil {
			return nil, err
		}
		return pose, nil
	case cell.ReadJointsAction:
		joints, err := q.ec.ReadJoints(ctx, a.Device)
		if err != nil {
			return nil, err
		}
		elements := make([]types.Value, len(joints))
		for i, j := range joints {
			elements[i] = types.NewFloat(j)
		}
		return types.NewTuple(elements), nil
	default:
		return nil, fmt.Errorf("unsupported action %T", action)
	}
}

// robotStream is one robot's planned execution during a drain
type robotStream struct {
	motionGroupID string
	iterator      cell.MotionIterator
	pending       []cell.ActionContainer
}

// Run drains the queue: plan per robot, stream the trajectories, fire
// interrupt callbacks and path-parameter-attached actions, record the
// states and clear the buffers. A user stop aborts at the next state
// and stops the cell under a shielded context.
func (q *ActionQueue) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	stopperDone := make(chan struct{})
	defer close(stopperDone)
	go func() {
		select {
		case <-q.ec.StopChan():
			// shield the cleanup from the drain's cancellation
			_ = q.ec.RobotCell.Stop(context.WithoutCancel(ctx))
			cancel()
		case <-stopperDone:
		}
	}()

	err := q.drain(runCtx)

	q.record = make(map[string]*cell.CombinedActions)
	q.tcp = make(map[string]string)
	if q.ec.Stopped() {
		// a user stop supersedes whatever the cancellation tore down
		return context.Canceled
	}
	return err
}

func (q *ActionQueue) drain(ctx context.Context) error {
	motionGroupIDs := make([]string, 0, len(q.record))
	for motionGroupID := range q.record {
		motionGroupIDs = append(motionGroupIDs, motionGroupID)
	}
	sort.Strings(motionGroupIDs)

	var streams []*robotStream
	for _, motionGroupID := range motionGroupIDs {
		container := q.record[motionGroupID]
		if len(container.Motions) == 0 {
			// actions without motions run in order, ignoring path
			// parameters
			for _, attached := range container.Actions {
				if _, err := q.RunAction(ctx, attached.Action); err != nil {
					return err
				}
			}
			continue
		}

		robot, err := q.ec.GetRobot(motionGroupID)
		if err != nil {
			return err
		}
		tcp := q.tcp[motionGroupID]
		if tcp == "" {
			tcp, err = robot.ActiveTCPName(ctx)
			if err != nil {
				return err
			}
		}
		trajectory, err := robot.Plan(ctx, container.Motions, tcp)
		if err != nil {
			return &exception.MotionError{Range: q.ec.Location, Text: "Planning failed: " + err.Error()}
		}
		iterator, err := robot.StreamExecute(ctx, trajectory, tcp)
		if err != nil {
			return &exception.MotionError{Range: q.ec.Location, Text: "Execution failed: " + err.Error()}
		}

		pending := append([]cell.ActionContainer(nil), container.Actions...)
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].PathParameter < pending[j].PathParameter
		})
		streams = append(streams, &robotStream{
			motionGroupID: motionGroupID,
			iterator:      iterator,
			pending:       pending,
		})
	}

	if len(streams) == 0 {
		return nil
	}

	// every robot with motions records into a fresh trajectory segment
	for _, stream := range streams {
		q.ec.Recordings[stream.motionGroupID] = append(q.ec.Recordings[stream.motionGroupID], nil)
	}
	pendingByRobot := make(map[string]*robotStream, len(streams))
	for _, stream := range streams {
		pendingByRobot[stream.motionGroupID] = stream
	}

	// The robots stream concurrently; their states merge into one
	// channel and all user-visible effects (interrupt callbacks,
	// attached actions, recording) run on this goroutine only.
	merged := make(chan cell.MotionState)
	streamCtx, cancelStreams := context.WithCancel(ctx)
	defer cancelStreams()
	group, groupCtx := errgroup.WithContext(streamCtx)
	for _, stream := range streams {
		iterator := stream.iterator
		group.Go(func() error {
			for {
				state, ok, err := iterator.Next(groupCtx)
				if err != nil {
					return err
				}
				if !ok {
					return nil
				}
				select {
				case merged <- state:
				case <-groupCtx.Done():
					return groupCtx.Err()
				}
			}
		})
	}
	producersDone := make(chan error, 1)
	go func() {
		producersDone <- group.Wait()
		close(merged)
	}()

	var consumeErr error
	for state := range merged {
		if consumeErr != nil {
			continue // drain remaining states after a failure
		}
		if q.ec.Stopped() {
			consumeErr = context.Canceled
			cancelStreams()
			continue
		}
		if err := q.fireCallbacks(ctx, state); err != nil {
			consumeErr = err
			cancelStreams()
			continue
		}
		if err := q.fireActions(ctx, pendingByRobot[state.MotionGroupID], state); err != nil {
			consumeErr = err
			cancelStreams()
			continue
		}
		segments := q.ec.Recordings[state.MotionGroupID]
		segments[len(segments)-1] = append(segments[len(segments)-1], state)
		q.ec.Recordings[state.MotionGroupID] = segments
	}

	if err := <-producersDone; err != nil && consumeErr == nil {
		consumeErr = err
	}
	return consumeErr
}

// fireCallbacks invokes every active interrupt callback with the
// current path parameter and pose
func (q *ActionQueue) fireCallbacks(ctx context.Context, state cell.MotionState) error {
	for _, name := range q.callbackOrder {
		callback := q.callbacks[name]
		args := []types.Value{
			types.NewBool(false), // motion handle placeholder
			types.NewFloat(state.PathParameter),
			state.State.Pose,
		}
		if _, err := callback.Call(ctx, args); err != nil {
			return err
		}
	}
	return nil
}

// fireActions executes every pending action whose path parameter has
// been reached, in ascending order
func (q *ActionQueue) fireActions(ctx context.Context, stream *robotStream, state cell.MotionState) error {
	if stream == nil {
		return nil
	}
	fired := 0
	for _, attached := range stream.pending {
		if attached.PathParameter > state.PathParameter {
			break
		}
		if _, err := q.RunAction(ctx, attached.Action); err != nil {
			return err
		}
		fired++
	}
	stream.pending = stream.pending[fired:]
	return nil
}
