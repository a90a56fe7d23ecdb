// Package runtime holds the execution state of a running program:
// the variable store, the call stack, the execution context and the
// deferred action queue.
package runtime

import (
	"wandelscript/cell"
	"wandelscript/frames"
	"wandelscript/types"
)

// Names of the frames every program can rely on. The relation between
// them is the current flange pose of the active robot.
const (
	FlangeFrameName = "Flange"
	RobotFrameName  = "robot_"
)

// TCPVarName is the store variable holding the currently selected
// tool, written by the tcp builtin.
const TCPVarName = "__tcp__"

// Store manages variable bindings with lexical scoping. Lookup walks
// the parent chain; assignment writes into the nearest scope that
// already defines the name, otherwise the current one.
type Store struct {
	frameSystem *frames.System
	parent      *Store
	data        map[string]types.Value
}

// NewStore creates a root store with a fresh frame system
func NewStore(initVars map[string]types.Value) *Store {
	s := &Store{
		frameSystem: frames.NewSystem(),
		data:        make(map[string]types.Value),
	}
	for name, value := range initVars {
		s.data[name] = value
	}
	return s
}

// Descend creates a child scope sharing the frame system
func (s *Store) Descend(initVars map[string]types.Value) *Store {
	child := &Store{
		frameSystem: s.frameSystem,
		parent:      s,
		data:        make(map[string]types.Value),
	}
	for name, value := range initVars {
		child.data[name] = value
	}
	return child
}

// FrameSystem returns the frame system shared by the scope chain
func (s *Store) FrameSystem() *frames.System {
	return s.frameSystem
}

// Flange returns the flange frame handle
func (s *Store) Flange() frames.Frame {
	return frames.NewFrame(FlangeFrameName, s.frameSystem)
}

// RobotFrame returns the robot base frame handle
func (s *Store) RobotFrame() frames.Frame {
	return frames.NewFrame(RobotFrameName, s.frameSystem)
}

// ContainsLocal reports whether the name is bound in this scope
func (s *Store) ContainsLocal(name string) bool {
	_, ok := s.data[name]
	return ok
}

// scopeOf returns the nearest scope defining the name
func (s *Store) scopeOf(name string) *Store {
	for scope := s; scope != nil; scope = scope.parent {
		if scope.ContainsLocal(name) {
			return scope
		}
	}
	return nil
}

// Get looks up a name along the scope chain
func (s *Store) Get(name string) (types.Value, bool) {
	scope := s.scopeOf(name)
	if scope == nil {
		return nil, false
	}
	return scope.data[name], true
}

// Set assigns into the nearest scope defining the name, or binds in
// the current scope
func (s *Store) Set(name string, value types.Value) {
	scope := s.scopeOf(name)
	if scope == nil {
		scope = s
	}
	scope.data[name] = value
}

// SetLocal binds a name in this scope regardless of the chain
func (s *Store) SetLocal(name string, value types.Value) {
	s.data[name] = value
}

// Data returns a copy of the local bindings
func (s *Store) Data() map[string]types.Value {
	data := make(map[string]types.Value, len(s.data))
	for name, value := range s.data {
		data[name] = value
	}
	return data
}

// MotionSettings collects the motion settings from the scope chain.
// Unset fields keep their defaults.
func (s *Store) MotionSettings() cell.MotionSettings {
	settings := cell.DefaultMotionSettings()
	for _, field := range cell.MotionSettingsFields {
		if value, ok := s.Get(cell.FieldToVarname(field)); ok {
			switch v := value.(type) {
			case types.IntValue:
				_ = settings.SetField(field, float64(v.Val))
			case types.FloatValue:
				_ = settings.SetField(field, v.Val)
			}
		}
	}
	return settings
}
