package types

import "fmt"

// DeviceValue is an opaque handle into the robot cell. It is only
// usable as an argument to read/write/call and as a robot reference.
type DeviceValue struct {
	ID string
}

// Type returns the type code for devices
func (d DeviceValue) Type() TypeCode {
	return TYPE_DEVICE
}

// String returns the wandelscript literal representation
func (d DeviceValue) String() string {
	return "<device " + d.ID + ">"
}

// Equal compares by device id
func (d DeviceValue) Equal(other Value) bool {
	o, ok := other.(DeviceValue)
	if !ok {
		return false
	}
	return d.ID == o.ID
}

// Truthy: devices are always truthy
func (d DeviceValue) Truthy() bool {
	return true
}

// NewDevice creates a new DeviceValue
func NewDevice(id string) DeviceValue {
	return DeviceValue{ID: id}
}

func composeTypeError(v Value) error {
	return fmt.Errorf("pose composition expects a pose result, got %s", v.Type())
}
