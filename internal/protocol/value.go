package protocol

import (
	"encoding/json"
	"strconv"
)

// Kind is the value type of an operation.
type Kind int

const (
	KindInt Kind = iota + 1
	KindFloat
	KindEnum
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a decoded device value. Only the field selected by Kind is meaningful;
// enum values carry both the device code and its label.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Bool  bool
	Code  string
	Label string
}

func IntValue(v int64) Value     { return Value{Kind: KindInt, Int: v} }
func FloatValue(v float64) Value { return Value{Kind: KindFloat, Float: v} }
func BoolValue(v bool) Value     { return Value{Kind: KindBool, Bool: v} }

// EnumValue builds an enum value from a registry item.
func EnumValue(item EnumItem) Value {
	return Value{Kind: KindEnum, Code: item.Code, Label: item.Label}
}

// Number returns the value as float64; enums and booleans map to 0/1 or 0.
func (v Value) Number() float64 {
	switch v.Kind {
	case KindInt:
		return float64(v.Int)
	case KindFloat:
		return v.Float
	case KindBool:
		if v.Bool {
			return 1
		}
	}
	return 0
}

// Interface returns the natural Go value: int64, float64, bool or the enum label.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	case KindBool:
		return v.Bool
	case KindEnum:
		return v.Label
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindEnum:
		return v.Label
	default:
		return "<none>"
	}
}

// MarshalJSON encodes the natural value, so a float reads as 1080.5 and an enum as its label.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}
