package cell

import "fmt"

// MotionSettings carries the kinematic limits and blending
// configuration of a single motion. Programs override fields through
// scoped modifier builtins which write __ms_<field> variables into
// the store.
type MotionSettings struct {
	MinBlendingVelocity             float64
	PositionZoneRadius              float64
	OrientationZoneRadius           float64
	JointVelocityLimit              float64
	JointAccelerationLimit          float64
	TcpVelocityLimit                float64
	TcpAccelerationLimit            float64
	TcpOrientationVelocityLimit     float64
	TcpOrientationAccelerationLimit float64
}

// MotionSettingsFields lists every settable field name
var MotionSettingsFields = []string{
	"min_blending_velocity",
	"position_zone_radius",
	"orientation_zone_radius",
	"joint_velocity_limit",
	"joint_acceleration_limit",
	"tcp_velocity_limit",
	"tcp_acceleration_limit",
	"tcp_orientation_velocity_limit",
	"tcp_orientation_acceleration_limit",
}

// MotionSettingFieldDefaults maps field names to their defaults
var MotionSettingFieldDefaults = map[string]float64{
	"min_blending_velocity":              0,
	"position_zone_radius":               0,
	"orientation_zone_radius":            0,
	"joint_velocity_limit":               0,
	"joint_acceleration_limit":           0,
	"tcp_velocity_limit":                 50,
	"tcp_acceleration_limit":             0,
	"tcp_orientation_velocity_limit":     0,
	"tcp_orientation_acceleration_limit": 0,
}

// FieldToVarname returns the store variable name holding a field
// override
func FieldToVarname(field string) string {
	return "__ms_" + field
}

// SetField writes a field by its settings name
func (s *MotionSettings) SetField(field string, value float64) error {
	switch field {
	case "min_blending_velocity":
		s.MinBlendingVelocity = value
	case "position_zone_radius":
		s.PositionZoneRadius = value
	case "orientation_zone_radius":
		s.OrientationZoneRadius = value
	case "joint_velocity_limit":
		s.JointVelocityLimit = value
	case "joint_acceleration_limit":
		s.JointAccelerationLimit = value
	case "tcp_velocity_limit":
		s.TcpVelocityLimit = value
	case "tcp_acceleration_limit":
		s.TcpAccelerationLimit = value
	case "tcp_orientation_velocity_limit":
		s.TcpOrientationVelocityLimit = value
	case "tcp_orientation_acceleration_limit":
		s.TcpOrientationAccelerationLimit = value
	default:
		return fmt.Errorf("unknown motion setting: %s", field)
	}
	return nil
}

// DefaultMotionSettings returns settings with every field at its
// default
func DefaultMotionSettings() MotionSettings {
	s := MotionSettings{}
	for field, value := range MotionSettingFieldDefaults {
		_ = s.SetField(field, value)
	}
	return s
}
