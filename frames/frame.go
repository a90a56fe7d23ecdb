package frames

import "wandelscript/types"

// Frame is a (physical) coordinate system in space, identified by its
// name within one frame system.
type Frame struct {
	Name   string
	System *System
}

// Type returns the type code for frames
func (f Frame) Type() types.TypeCode {
	return types.TYPE_FRAME
}

// String returns the wandelscript literal representation
func (f Frame) String() string {
	return "<frame " + f.Name + ">"
}

// Equal compares by name and owning system
func (f Frame) Equal(other types.Value) bool {
	o, ok := other.(Frame)
	if !ok {
		return false
	}
	return f.Name == o.Name && f.System == o.System
}

// Truthy: frames are always truthy
func (f Frame) Truthy() bool {
	return true
}

// NewFrame creates a frame handle bound to a system
func NewFrame(name string, system *System) Frame {
	return Frame{Name: name, System: system}
}
