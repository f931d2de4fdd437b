package bytecode

import (
	"math"
	"testing"
)

func TestValueEqual(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"nil nil", Nil(), Nil(), true},
		{"true true", Bool(true), Bool(true), true},
		{"true false", Bool(true), Bool(false), false},
		{"numbers", Number(1.5), Number(1.5), true},
		{"nan", Number(nan), Number(nan), false},
		{"zero signs", Number(0), Number(math.Copysign(0, -1)), true},
		{"nil false", Nil(), Bool(false), false},
		{"zero false", Number(0), Bool(false), false},
		{"same handle", ObjectRef(Handle{1, 0}), ObjectRef(Handle{1, 0}), true},
		{"other gen", ObjectRef(Handle{1, 0}), ObjectRef(Handle{1, 1}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValueTruthy(t *testing.T) {
	tests := []struct {
		v    Value
		want bool
	}{
		{Nil(), false},
		{Bool(false), false},
		{Bool(true), true},
		{Number(0), true},
		{Number(-1), true},
		{ObjectRef(Handle{}), true},
	}
	for _, tt := range tests {
		if got := tt.v.Truthy(); got != tt.want {
			t.Errorf("%v.Truthy() = %v, want %v", tt.v, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    float64
		want string
	}{
		{90, "90"},
		{-0.5, "-0.5"},
		{1.2, "1.2"},
		{-0.8214285714285714, "-0.8214285714285714"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "inf"},
		{math.Inf(-1), "-inf"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.n); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestConcatIsFreshObject(t *testing.T) {
	a := NewString([]byte("foo"))
	b := NewString([]byte("bar"))
	c := Concat(a, b)

	if c.String() != "foobar" {
		t.Errorf("Concat = %q, want %q", c.String(), "foobar")
	}
	if c == a || c == b {
		t.Error("Concat returned one of its inputs")
	}
	c.Bytes[0] = 'X'
	if a.String() != "foo" {
		t.Errorf("mutating result changed input to %q", a.String())
	}
}
