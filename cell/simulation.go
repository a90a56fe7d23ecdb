package cell

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wandelscript/types"
)

// stepsPerMotion is the number of interpolation samples the simulated
// planner produces per motion
const stepsPerMotion = 10

// SimulatedRobotConfig configures one simulated robot
type SimulatedRobotConfig struct {
	ID          string
	InitialPose *types.PoseValue
	Tools       map[string]types.PoseValue
}

// SimulatedRobot is a robot with a naive joint-space planner: each
// cartesian coordinate maps directly onto one joint, so planned and
// recorded poses round-trip exactly.
type SimulatedRobot struct {
	id    string
	tools map[string]types.PoseValue

	mu         sync.Mutex
	trajectory []MotionState
}

// NewSimulatedRobot creates a simulated robot. Without tools a single
// Flange tool with identity offset is configured.
func NewSimulatedRobot(config SimulatedRobotConfig) *SimulatedRobot {
	tools := config.Tools
	if len(tools) == 0 {
		tools = map[string]types.PoseValue{"Flange": types.NewPose(0, 0, 0, 0, 0, 0)}
	}
	r := &SimulatedRobot{id: config.ID, tools: tools}
	if config.InitialPose != nil {
		r.trajectory = []MotionState{{
			MotionGroupID: config.ID,
			PathParameter: 0,
			State:         RobotState{Pose: *config.InitialPose, Joints: poseToJoints(*config.InitialPose)},
		}}
	}
	return r
}

// poseToJoints is the naive inverse kinematics matching jointsToPose
func poseToJoints(p types.PoseValue) []float64 {
	return []float64{
		p.Position.X / 1000.0,
		p.Position.Y / 1000.0,
		p.Position.Z / 1000.0,
		p.Orientation.X,
		p.Orientation.Y,
		p.Orientation.Z,
	}
}

// jointsToPose is the naive forward kinematics matching poseToJoints
func jointsToPose(joints []float64) types.PoseValue {
	return types.NewPose(
		1000.0*joints[0], 1000.0*joints[1], 1000.0*joints[2],
		joints[3], joints[4], joints[5],
	)
}

// ID returns the motion group id
func (r *SimulatedRobot) ID() string { return r.id }

// ActiveTCPName returns "Flange" when that tool is configured, otherwise
// any one of the configured tools (map iteration order)
func (r *SimulatedRobot) ActiveTCPName(ctx context.Context) (string, error) {
	for name := range r.tools {
		if name == "Flange" {
			return name, nil
		}
	}
	for name := range r.tools {
		return name, nil
	}
	return "", fmt.Errorf("robot %s has no tools", r.id)
}

// TCPs returns the configured tools and their offsets
func (r *SimulatedRobot) TCPs(ctx context.Context) (map[string]types.PoseValue, error) {
	tools := make(map[string]types.PoseValue, len(r.tools))
	for name, pose := range r.tools {
		tools[name] = pose
	}
	return tools, nil
}

// GetState returns the current robot state. An error is returned when
// the robot has no initial pose and has never moved.
func (r *SimulatedRobot) GetState(ctx context.Context, tcp string) (RobotState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.trajectory) == 0 {
		return RobotState{}, &UnknownPoseError{Robot: r.id}
	}
	return r.trajectory[len(r.trajectory)-1].State, nil
}

// UnknownPoseError is returned when a pose is requested from a robot
// without an initial pose that has not moved so far
type UnknownPoseError struct {
	Robot string
}

func (e *UnknownPoseError) Error() string {
	return fmt.Sprintf("pose of robot %s is unknown: it has no initial pose and has not moved", e.Robot)
}

// Plan interpolates joint configurations between the current state
// and each motion target
func (r *SimulatedRobot) Plan(ctx context.Context, motions []Motion, tcp string) (*JointTrajectory, error) {
	if _, ok := r.tools[tcp]; !ok {
		return nil, fmt.Errorf("robot %s has no tool %q", r.id, tcp)
	}

	r.mu.Lock()
	current := make([]float64, 6)
	if len(r.trajectory) > 0 {
		copy(current, r.trajectory[len(r.trajectory)-1].State.Joints)
	}
	r.mu.Unlock()

	trajectory := &JointTrajectory{}
	elapsed := 0.0
	for i, motion := range motions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var final []float64
		if jnt, ok := motion.(JointPTP); ok {
			final = append([]float64(nil), jnt.Joints...)
		} else {
			target, ok := motion.TargetPose()
			if !ok {
				return nil, fmt.Errorf("motion %d has no plannable target", i)
			}
			final = poseToJoints(target)
		}
		for step := 0; step < stepsPerMotion; step++ {
			alpha := float64(step) / float64(stepsPerMotion-1)
			sample := make([]float64, 6)
			for j := range sample {
				sample[j] = (1-alpha)*current[j] + alpha*final[j]
			}
			trajectory.JointPositions = append(trajectory.JointPositions, sample)
			trajectory.Times = append(trajectory.Times, elapsed)
			trajectory.Locations = append(trajectory.Locations, float64(i)+alpha)
			elapsed += 0.1
		}
		current = final
	}
	return trajectory, nil
}

// simIterator steps through a planned trajectory, recording each
// state on the robot
type simIterator struct {
	robot      *SimulatedRobot
	trajectory *JointTrajectory
	index      int
}

func (it *simIterator) Next(ctx context.Context) (MotionState, bool, error) {
	if err := ctx.Err(); err != nil {
		return MotionState{}, false, err
	}
	if it.index >= len(it.trajectory.JointPositions) {
		return MotionState{}, false, nil
	}
	joints := it.trajectory.JointPositions[it.index]
	state := MotionState{
		MotionGroupID: it.robot.id,
		PathParameter: it.trajectory.Locations[it.index],
		State:         RobotState{Pose: jointsToPose(joints), Joints: joints},
	}
	it.index++

	it.robot.mu.Lock()
	it.robot.trajectory = append(it.robot.trajectory, state)
	it.robot.mu.Unlock()
	return state, true, nil
}

// StreamExecute steps through the trajectory sample by sample
func (r *SimulatedRobot) StreamExecute(ctx context.Context, trajectory *JointTrajectory, tcp string) (MotionIterator, error) {
	return &simIterator{robot: r, trajectory: trajectory}, nil
}

// Stop is a no-op for the simulation
func (r *SimulatedRobot) Stop(ctx context.Context) error { return nil }

// SimulatedIO is an IO device backed by a map. Reads of unknown keys
// return the configured default value.
type SimulatedIO struct {
	id      string
	kind    string
	mu      sync.Mutex
	values  map[string]types.Value
	defawlt types.Value
}

// NewSimulatedIO creates an IO device with the given id
func NewSimulatedIO(id string) *SimulatedIO {
	return &SimulatedIO{
		id:      id,
		kind:    "simulated_io",
		values:  make(map[string]types.Value),
		defawlt: types.NewString("default_value"),
	}
}

// NewSimulatedDatabase creates a configuration store device whose
// reads stay permitted in plan-only execution
func NewSimulatedDatabase(id string, values map[string]types.Value) *SimulatedIO {
	dev := NewSimulatedIO(id)
	dev.kind = "database"
	for k, v := range values {
		dev.values[k] = v
	}
	return dev
}

// ID returns the device id
func (d *SimulatedIO) ID() string { return d.id }

// ConfigurationType returns the device kind
func (d *SimulatedIO) ConfigurationType() string { return d.kind }

// Read returns the stored value for a key, or the default
func (d *SimulatedIO) Read(ctx context.Context, key string) (types.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if v, ok := d.values[key]; ok {
		return v, nil
	}
	return d.defawlt, nil
}

// Write stores a value under a key
func (d *SimulatedIO) Write(ctx context.Context, key string, value types.Value) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.values[key] = value
	return nil
}

// Call echoes the key and arguments, which is enough to observe call
// routing in tests
func (d *SimulatedIO) Call(ctx context.Context, key string, args []types.Value) (types.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return types.NewTuple([]types.Value{
		types.NewString(key),
		types.NewTuple(append([]types.Value(nil), args...)),
	}), nil
}

// SimulatedRobotCell is a cell of simulated robots and IO devices
type SimulatedRobotCell struct {
	robots  map[string]*SimulatedRobot
	ids     []string
	devices map[string]Device
}

// NewSimulatedRobotCell creates a cell with one robot "0@controller",
// an IO device "controller" and the given extra devices
func NewSimulatedRobotCell(extra ...Device) *SimulatedRobotCell {
	initial := types.NewPose(0, 0, 0, 0, 0, 0)
	robot := NewSimulatedRobot(SimulatedRobotConfig{ID: "0@controller", InitialPose: &initial})
	return NewSimulatedRobotCellWith([]*SimulatedRobot{robot}, append([]Device{NewSimulatedIO("controller")}, extra...))
}

// NewSimulatedRobotCellWith creates a cell from explicit robots and
// devices
func NewSimulatedRobotCellWith(robots []*SimulatedRobot, devices []Device) *SimulatedRobotCell {
	c := &SimulatedRobotCell{
		robots:  make(map[string]*SimulatedRobot),
		devices: make(map[string]Device),
	}
	for _, r := range robots {
		c.robots[r.ID()] = r
		c.ids = append(c.ids, r.ID())
		c.devices[r.ID()] = r
	}
	for _, d := range devices {
		c.devices[d.ID()] = d
	}
	return c
}

// Open acquires the cell
func (c *SimulatedRobotCell) Open(ctx context.Context) error { return nil }

// Close releases the cell
func (c *SimulatedRobotCell) Close(ctx context.Context) error { return nil }

// RobotIDs returns the ids of all robots in the cell
func (c *SimulatedRobotCell) RobotIDs() []string {
	ids := make([]string, len(c.ids))
	copy(ids, c.ids)
	return ids
}

// Robot returns the robot with the given id
func (c *SimulatedRobotCell) Robot(id string) (Robot, error) {
	r, ok := c.robots[id]
	if !ok {
		return nil, fmt.Errorf("unknown robot: %s", id)
	}
	return r, nil
}

// Device returns the device with the given id
func (c *SimulatedRobotCell) Device(id string) (Device, bool) {
	d, ok := c.devices[id]
	return d, ok
}

// Devices returns all devices keyed by id
func (c *SimulatedRobotCell) Devices() map[string]Device {
	devices := make(map[string]Device, len(c.devices))
	for id, d := range c.devices {
		devices[id] = d
	}
	return devices
}

// StateStream emits a normal safety state at the requested rate until
// the context is cancelled
func (c *SimulatedRobotCell) StateStream(ctx context.Context, rateMs float64) (<-chan ControllerState, error) {
	states := make(chan ControllerState)
	go func() {
		defer close(states)
		ticker := time.NewTicker(time.Duration(rateMs * float64(time.Millisecond)))
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case states <- ControllerState{Controller: "simulated", SafetyState: SafetyNormal}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return states, nil
}

// Stop stops all robots
func (c *SimulatedRobotCell) Stop(ctx context.Context) error {
	for _, r := range c.robots {
		if err := r.Stop(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Timer waits the given number of milliseconds
func (c *SimulatedRobotCell) Timer(ctx context.Context, ms float64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(time.Duration(ms * float64(time.Millisecond))):
		return nil
	}
}
