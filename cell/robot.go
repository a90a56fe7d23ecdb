package cell

import (
	"context"

	"wandelscript/types"
)

// RobotState is the cartesian and joint state of a robot
type RobotState struct {
	Pose   types.PoseValue
	Joints []float64
}

// MotionState is one sample of a streamed motion execution. The path
// parameter grows monotonically along the planned trajectory and
// schedules in-motion actions.
type MotionState struct {
	MotionGroupID string
	PathParameter float64
	State         RobotState
}

// JointTrajectory is a planned joint-space trajectory
type JointTrajectory struct {
	JointPositions [][]float64
	Times          []float64
	Locations      []float64
}

// MotionIterator yields motion states one at a time. Next returns
// ok=false when the stream is exhausted.
type MotionIterator interface {
	Next(ctx context.Context) (MotionState, bool, error)
}

// Robot is an independently addressable motion group within a cell
type Robot interface {
	Device
	ActiveTCPName(ctx context.Context) (string, error)
	TCPs(ctx context.Context) (map[string]types.PoseValue, error)
	GetState(ctx context.Context, tcp string) (RobotState, error)
	Plan(ctx context.Context, motions []Motion, tcp string) (*JointTrajectory, error)
	StreamExecute(ctx context.Context, trajectory *JointTrajectory, tcp string) (MotionIterator, error)
	Stop(ctx context.Context) error
}
