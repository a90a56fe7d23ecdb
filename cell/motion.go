package cell

import "wandelscript/types"

// Motion is a single motion command connecting two configurations
type Motion interface {
	// TargetPose returns the cartesian end of the motion, or false for
	// joint-space motions
	TargetPose() (types.PoseValue, bool)
	Settings() MotionSettings
	motionNode()
}

// PTP is a point-to-point motion in cartesian space
type PTP struct {
	Target         types.PoseValue
	MotionSettings MotionSettings
}

func (m PTP) TargetPose() (types.PoseValue, bool) { return m.Target, true }
func (m PTP) Settings() MotionSettings            { return m.MotionSettings }
func (m PTP) motionNode()                         {}

// JointPTP is a point-to-point motion in joint space
type JointPTP struct {
	Joints         []float64
	MotionSettings MotionSettings
}

func (m JointPTP) TargetPose() (types.PoseValue, bool) { return types.PoseValue{}, false }
func (m JointPTP) Settings() MotionSettings            { return m.MotionSettings }
func (m JointPTP) motionNode()                         {}

// Linear is a straight-line motion
type Linear struct {
	Target         types.PoseValue
	MotionSettings MotionSettings
}

func (m Linear) TargetPose() (types.PoseValue, bool) { return m.Target, true }
func (m Linear) Settings() MotionSettings            { return m.MotionSettings }
func (m Linear) motionNode()                         {}

// Circular is an arc through an intermediate pose
type Circular struct {
	Target         types.PoseValue
	Intermediate   types.PoseValue
	MotionSettings MotionSettings
}

func (m Circular) TargetPose() (types.PoseValue, bool) { return m.Target, true }
func (m Circular) Settings() MotionSettings            { return m.MotionSettings }
func (m Circular) motionNode()                         {}

// SplineKeypoint is one timed keyframe of a spline motion
type SplineKeypoint struct {
	Time float64
	Pose types.PoseValue
}

// Spline is a smooth motion through timed keyframes
type Spline struct {
	Keypoints      []SplineKeypoint
	MotionSettings MotionSettings
}

func (m Spline) TargetPose() (types.PoseValue, bool) {
	if len(m.Keypoints) == 0 {
		return types.PoseValue{}, false
	}
	return m.Keypoints[len(m.Keypoints)-1].Pose, true
}
func (m Spline) Settings() MotionSettings { return m.MotionSettings }
func (m Spline) motionNode()              {}

// Action is a device interaction that the queue can defer and attach
// to a trajectory
type Action interface {
	DeviceID() string
	actionNode()
}

// ReadAction reads a key from an input device
type ReadAction struct {
	Device string
	Key    string
}

func (a ReadAction) DeviceID() string { return a.Device }
func (a ReadAction) actionNode()      {}

// WriteAction writes a value to an output device
type WriteAction struct {
	Device string
	Key    string
	Value  types.Value
}

func (a WriteAction) DeviceID() string { return a.Device }
func (a WriteAction) actionNode()      {}

// CallAction invokes a named operation on a callable device
type CallAction struct {
	Device string
	Key    string
	Args   []types.Value
}

func (a CallAction) DeviceID() string { return a.Device }
func (a CallAction) actionNode()      {}

// ReadPoseAction reads the pose of a robot with an optional TCP
type ReadPoseAction struct {
	Device string
	TCP    string
}

func (a ReadPoseAction) DeviceID() string { return a.Device }
func (a ReadPoseAction) actionNode()      {}

// ReadJointsAction reads the joint configuration of a robot
type ReadJointsAction struct {
	Device string
}

func (a ReadJointsAction) DeviceID() string { return a.Device }
func (a ReadJointsAction) actionNode()      {}

// ActionContainer is an action attached to a buffer position. The
// path parameter counts completed motions at attach time, so the
// action fires once the trajectory has passed that many motions; an
// action attached before any motion fires at trajectory start.
type ActionContainer struct {
	Action        Action
	PathParameter float64
}

// CombinedActions is one robot's buffered motions and attached
// actions between two sync barriers
type CombinedActions struct {
	Motions []Motion
	Actions []ActionContainer
}

// AppendMotion adds a motion to the buffer
func (c *CombinedActions) AppendMotion(m Motion) {
	c.Motions = append(c.Motions, m)
}

// AppendAction attaches an action at the current motion position
func (c *CombinedActions) AppendAction(a Action) {
	c.Actions = append(c.Actions, ActionContainer{
		Action:        a,
		PathParameter: float64(len(c.Motions)),
	})
}

// Len returns the number of buffered entries
func (c *CombinedActions) Len() int {
	return len(c.Motions) + len(c.Actions)
}
