package bytecode

import "fmt"

// Handle addresses an object in an arena. Index selects the slot and Gen
// must match the slot's generation, so a handle to a reclaimed slot is
// detected instead of silently resolving to whatever reused it.
type Handle struct {
	Index uint32
	Gen   uint32
}

func (h Handle) String() string {
	return fmt.Sprintf("<obj %d.%d>", h.Index, h.Gen)
}

// ObjectKind identifies the payload type of a heap object.
type ObjectKind uint8

const (
	ObjString ObjectKind = iota + 1
)

// Object is a heap-allocated payload referenced through a Handle.
type Object interface {
	Kind() ObjectKind
	String() string
}

// StringObject is an immutable byte string.
type StringObject struct {
	Bytes []byte
}

// NewString copies b into a new string object.
func NewString(b []byte) *StringObject {
	return &StringObject{Bytes: append([]byte(nil), b...)}
}

func (s *StringObject) Kind() ObjectKind { return ObjString }
func (s *StringObject) String() string   { return string(s.Bytes) }

// Concat returns a new string holding a followed by b.
func Concat(a, b *StringObject) *StringObject {
	out := make([]byte, 0, len(a.Bytes)+len(b.Bytes))
	out = append(out, a.Bytes...)
	out = append(out, b.Bytes...)
	return &StringObject{Bytes: out}
}
