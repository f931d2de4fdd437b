package bytecode

import (
	"fmt"
	"math"
	"strconv"
)

// ValueKind identifies the variant held by a Value.
type ValueKind uint8

const (
	KindNil ValueKind = iota
	KindBool
	KindNumber
	KindObject
)

// String returns a human-readable name for the kind.
func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("ValueKind(%d)", k)
	}
}

// Value is a tagged runtime value. It is always copied by value; an object
// reference is a non-owning handle that must be resolved through whoever owns
// the object (a Chunk for literals, a VM registry at runtime).
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	h    Handle
}

// Nil returns the nil value.
func Nil() Value { return Value{kind: KindNil} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number returns a numeric value.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// ObjectRef returns a value referencing the object behind h.
func ObjectRef(h Handle) Value { return Value{kind: KindObject, h: h} }

// Kind returns the variant of v.
func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == KindNil }
func (v Value) IsBool() bool   { return v.kind == KindBool }
func (v Value) IsNumber() bool { return v.kind == KindNumber }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool returns the boolean payload. Only meaningful when IsBool.
func (v Value) AsBool() bool { return v.b }

// AsNumber returns the numeric payload. Only meaningful when IsNumber.
func (v Value) AsNumber() float64 { return v.n }

// AsHandle returns the object handle. Only meaningful when IsObject.
func (v Value) AsHandle() Handle { return v.h }

// Truthy reports whether v counts as true in a condition.
// Nil and false are falsy; everything else, including 0, is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.b
	default:
		return true
	}
}

// Equal reports structural equality. Values of different kinds are never
// equal, numbers compare with IEEE-754 semantics (NaN != NaN) and object
// references compare by identity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindObject:
		return v.h == o.h
	}
	return false
}

// String returns the debug text of v. Object references render as their
// handle since the payload lives elsewhere.
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return FormatNumber(v.n)
	case KindObject:
		return v.h.String()
	}
	return "?"
}

// FormatNumber renders a float64 the way the language prints numbers:
// integral values have no fraction and no exponent.
func FormatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
