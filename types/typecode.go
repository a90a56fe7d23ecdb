package types

// TypeCode identifies the runtime type of a Value
type TypeCode int

const (
	TYPE_INT TypeCode = iota
	TYPE_FLOAT
	TYPE_BOOL
	TYPE_STRING
	TYPE_VECTOR3
	TYPE_POSE
	TYPE_TUPLE
	TYPE_RECORD
	TYPE_FRAME
	TYPE_CLOSURE
	TYPE_DEVICE
)

// String returns the wandelscript name of the type
func (t TypeCode) String() string {
	switch t {
	case TYPE_INT:
		return "int"
	case TYPE_FLOAT:
		return "float"
	case TYPE_BOOL:
		return "bool"
	case TYPE_STRING:
		return "string"
	case TYPE_VECTOR3:
		return "vector"
	case TYPE_POSE:
		return "pose"
	case TYPE_TUPLE:
		return "tuple"
	case TYPE_RECORD:
		return "record"
	case TYPE_FRAME:
		return "frame"
	case TYPE_CLOSURE:
		return "function"
	case TYPE_DEVICE:
		return "device"
	default:
		return "unknown"
	}
}
