package meta

// ValueKind identifies the concrete type stored in a Value.
type ValueKind uint8

const (
	// ValueInvalid represents an invalid value.
	ValueInvalid ValueKind = iota
	// ValueNull represents an explicit null.
	ValueNull
	// ValueInt represents an integer value.
	ValueInt
	// ValueFloat represents a float value.
	ValueFloat
	// ValueString represents a string value.
	ValueString
	// ValueBool represents a boolean value.
	ValueBool
)

// Value is a small typed scalar used for generic entity attributes.
//
// The representation avoids reflection and interface boxing so attribute
// lookups stay cheap on interactive paths. It is also part of the snapshot
// format; keep it stable.
type Value struct {
	Kind ValueKind `json:"k"`
	I64  int64     `json:"i,omitempty"`
	F64  float64   `json:"f,omitempty"`
	S    string    `json:"s,omitempty"`
	B    bool      `json:"b,omitempty"`
}

// Null returns an explicit null value.
func Null() Value { return Value{Kind: ValueNull} }

// Int returns an integer value.
func Int(v int64) Value { return Value{Kind: ValueInt, I64: v} }

// Float returns a float value.
func Float(v float64) Value { return Value{Kind: ValueFloat, F64: v} }

// String returns a string value.
func String(v string) Value { return Value{Kind: ValueString, S: v} }

// Bool returns a boolean value.
func Bool(v bool) Value { return Value{Kind: ValueBool, B: v} }

// IntValue returns the integer payload, or 0 for other kinds.
func (v Value) IntValue() int64 {
	if v.Kind == ValueInt {
		return v.I64
	}
	return 0
}

// FloatValue returns the float payload. Integer values convert.
func (v Value) FloatValue() float64 {
	switch v.Kind {
	case ValueFloat:
		return v.F64
	case ValueInt:
		return float64(v.I64)
	default:
		return 0
	}
}

// StringValue returns the string payload, or "" for other kinds.
func (v Value) StringValue() string {
	if v.Kind == ValueString {
		return v.S
	}
	return ""
}

// BoolValue returns the boolean payload, or false for other kinds.
func (v Value) BoolValue() bool {
	return v.Kind == ValueBool && v.B
}
