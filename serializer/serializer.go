// Package serializer maps runtime values to their JSON encoding and
// back. Vectors and poses encode as shaped objects; decoding detects
// those shapes and restores the typed values.
package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"wandelscript/types"
)

// Encode converts a value into a JSON-ready representation
func Encode(v types.Value) (any, error) {
	switch value := v.(type) {
	case types.IntValue:
		return value.Val, nil
	case types.FloatValue:
		return value.Val, nil
	case types.BoolValue:
		return value.Val, nil
	case types.StringValue:
		return value.Val, nil
	case types.Vector3Value:
		return map[string]any{"x": value.X, "y": value.Y, "z": value.Z}, nil
	case types.PoseValue:
		position, _ := Encode(value.Position)
		orientation, _ := Encode(value.Orientation)
		return map[string]any{"position": position, "orientation": orientation}, nil
	case types.TupleValue:
		elements := make([]any, value.Len())
		for i, e := range value.Elements {
			encoded, err := Encode(e)
			if err != nil {
				return nil, err
			}
			elements[i] = encoded
		}
		return elements, nil
	case types.RecordValue:
		object := make(map[string]any, value.Len())
		for _, key := range value.Keys() {
			entry, _ := value.Get(key)
			encoded, err := Encode(entry)
			if err != nil {
				return nil, err
			}
			object[key] = encoded
		}
		return object, nil
	}
	return nil, fmt.Errorf("value of type %s is not serializable", v.Type())
}

// IsEncodable reports whether Encode accepts a value and, for a float,
// whether it is finite. Floats nested in tuples or records are not
// checked for finiteness, and a record whose keys are exactly x, y and
// z decodes back as a vector.
func IsEncodable(v types.Value) bool {
	if f, ok := v.(types.FloatValue); ok && (math.IsInf(f.Val, 0) || math.IsNaN(f.Val)) {
		return false
	}
	_, err := Encode(v)
	return err == nil
}

// Decode converts a JSON-ready representation back into a value.
// Objects shaped like poses or vectors decode to their typed values.
func Decode(data any) (types.Value, error) {
	switch value := data.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a wandelscript value")
	case bool:
		return types.NewBool(value), nil
	case string:
		return types.NewString(value), nil
	case float64:
		return types.NewFloat(value), nil
	case int64:
		return types.NewInt(value), nil
	case int:
		return types.NewInt(int64(value)), nil
	case json.Number:
		if !strings.ContainsAny(value.String(), ".eE") {
			if i, err := value.Int64(); err == nil {
				return types.NewInt(i), nil
			}
		}
		f, err := value.Float64()
		if err != nil {
			return nil, err
		}
		return types.NewFloat(f), nil
	case []any:
		elements := make([]types.Value, len(value))
		for i, e := range value {
			decoded, err := Decode(e)
			if err != nil {
				return nil, err
			}
			elements[i] = decoded
		}
		return types.NewTuple(elements), nil
	case map[string]any:
		if vector, ok := decodeVectorShape(value); ok {
			return vector, nil
		}
		if pose, ok := decodePoseShape(value); ok {
			return pose, nil
		}
		keys := make([]string, 0, len(value))
		for key := range value {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		values := make([]types.Value, len(keys))
		for i, key := range keys {
			decoded, err := Decode(value[key])
			if err != nil {
				return nil, err
			}
			values[i] = decoded
		}
		return types.NewRecord(keys, values), nil
	}
	return nil, fmt.Errorf("cannot decode %T", data)
}

func decodeNumber(data any) (float64, bool) {
	switch n := data.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func decodeVectorShape(object map[string]any) (types.Vector3Value, bool) {
	if len(object) != 3 {
		return types.Vector3Value{}, false
	}
	x, okX := decodeNumber(object["x"])
	y, okY := decodeNumber(object["y"])
	z, okZ := decodeNumber(object["z"])
	if !okX || !okY || !okZ {
		return types.Vector3Value{}, false
	}
	return types.NewVector3(x, y, z), true
}

func decodePoseShape(object map[string]any) (types.PoseValue, bool) {
	if len(object) != 2 {
		return types.PoseValue{}, false
	}
	positionData, okP := object["position"].(map[string]any)
	orientationData, okO := object["orientation"].(map[string]any)
	if !okP || !okO {
		return types.PoseValue{}, false
	}
	position, okP := decodeVectorShape(positionData)
	orientation, okO := decodeVectorShape(orientationData)
	if !okP || !okO {
		return types.PoseValue{}, false
	}
	return types.PoseValue{Position: position, Orientation: orientation}, true
}

// Dumps serializes a value to JSON text
func Dumps(v types.Value) (string, error) {
	encoded, err := Encode(v)
	if err != nil {
		return "", err
	}
	data, err := json.Marshal(encoded)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Loads parses JSON text into a value
func Loads(s string) (types.Value, error) {
	return DecodeJSON([]byte(s))
}

// DecodeJSON parses JSON bytes into a value, preserving the
// int/float distinction of the source text
func DecodeJSON(data []byte) (types.Value, error) {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	var parsed any
	if err := decoder.Decode(&parsed); err != nil {
		return nil, err
	}
	return Decode(parsed)
}

// EncodeStore serializes a store snapshot, skipping values that have
// no JSON shape and non-finite floats
func EncodeStore(store map[string]types.Value) map[string]any {
	snapshot := make(map[string]any)
	for name, value := range store {
		if !IsEncodable(value) {
			continue
		}
		encoded, err := Encode(value)
		if err != nil {
			continue
		}
		snapshot[name] = encoded
	}
	return snapshot
}
