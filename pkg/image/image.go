// Package image serializes compiled chunks to a portable byte image.
//
// An image is a CBOR map with integer keys in canonical form, so equal
// chunks encode to identical bytes. Decode checks the magic, the format
// version and every structural invariant of the chunk before returning it.
package image

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/nimaipatel/rlox-bytecode/pkg/bytecode"
)

const (
	// Magic identifies a chunk image.
	Magic = "RLXC"
	// Version is the image format version written by Encode.
	Version = 1
)

// ErrNotImage is returned when the data does not carry the image magic.
var ErrNotImage = errors.New("image: not a chunk image")

// ErrVersion is returned for images of an unsupported format version.
var ErrVersion = errors.New("image: unsupported version")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Wire forms. Field numbers are part of the format.

type wireImage struct {
	Magic     string       `cbor:"1,keyasint"`
	Version   uint         `cbor:"2,keyasint"`
	Code      []byte       `cbor:"3,keyasint"`
	Constants []wireValue  `cbor:"4,keyasint"`
	Lines     []wireRun    `cbor:"5,keyasint"`
	Objects   []wireObject `cbor:"6,keyasint,omitempty"`
}

type wireValue struct {
	Kind  uint8   `cbor:"1,keyasint"`
	Bool  bool    `cbor:"2,keyasint,omitempty"`
	Num   float64 `cbor:"3,keyasint"` // no omitempty: it would drop the sign of -0
	Index uint32  `cbor:"4,keyasint,omitempty"`
	Gen   uint32  `cbor:"5,keyasint,omitempty"`
}

type wireRun struct {
	Count uint `cbor:"1,keyasint"`
	Line  int  `cbor:"2,keyasint"`
}

type wireObject struct {
	Kind  uint8  `cbor:"1,keyasint"`
	Bytes []byte `cbor:"2,keyasint"`
}

// Encode serializes chunk.
func Encode(chunk *bytecode.Chunk) ([]byte, error) {
	w := wireImage{
		Magic:     Magic,
		Version:   Version,
		Code:      chunk.Code,
		Constants: make([]wireValue, len(chunk.Constants)),
		Lines:     make([]wireRun, len(chunk.Lines)),
	}
	if w.Code == nil {
		w.Code = []byte{}
	}

	for i, v := range chunk.Constants {
		wv := wireValue{Kind: uint8(v.Kind())}
		switch v.Kind() {
		case bytecode.KindBool:
			wv.Bool = v.AsBool()
		case bytecode.KindNumber:
			wv.Num = v.AsNumber()
		case bytecode.KindObject:
			h := v.AsHandle()
			wv.Index, wv.Gen = h.Index, h.Gen
		}
		w.Constants[i] = wv
	}

	for i, run := range chunk.Lines {
		if run.Count <= 0 {
			return nil, fmt.Errorf("image: line run %d has count %d", i, run.Count)
		}
		w.Lines[i] = wireRun{Count: uint(run.Count), Line: run.Line}
	}

	for i, obj := range chunk.Objects {
		s, ok := obj.(*bytecode.StringObject)
		if !ok {
			return nil, fmt.Errorf("image: object %d has unsupported kind %v", i, obj.Kind())
		}
		w.Objects = append(w.Objects, wireObject{Kind: uint8(bytecode.ObjString), Bytes: s.Bytes})
	}

	data, err := encMode.Marshal(&w)
	if err != nil {
		return nil, fmt.Errorf("image: marshal: %w", err)
	}
	return data, nil
}

// Decode deserializes and validates an image.
func Decode(data []byte) (*bytecode.Chunk, error) {
	var w wireImage
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if w.Magic != Magic {
		return nil, ErrNotImage
	}
	if w.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, w.Version)
	}

	chunk := &bytecode.Chunk{
		Code:      w.Code,
		Constants: make([]bytecode.Value, len(w.Constants)),
		Lines:     make([]bytecode.LineRun, len(w.Lines)),
	}
	if chunk.Code == nil {
		chunk.Code = []byte{}
	}

	for i, wo := range w.Objects {
		if bytecode.ObjectKind(wo.Kind) != bytecode.ObjString {
			return nil, fmt.Errorf("image: object %d has unknown kind %d", i, wo.Kind)
		}
		chunk.Objects = append(chunk.Objects, bytecode.NewString(wo.Bytes))
	}

	for i, wv := range w.Constants {
		switch bytecode.ValueKind(wv.Kind) {
		case bytecode.KindNil:
			chunk.Constants[i] = bytecode.Nil()
		case bytecode.KindBool:
			chunk.Constants[i] = bytecode.Bool(wv.Bool)
		case bytecode.KindNumber:
			chunk.Constants[i] = bytecode.Number(wv.Num)
		case bytecode.KindObject:
			chunk.Constants[i] = bytecode.ObjectRef(bytecode.Handle{Index: wv.Index, Gen: wv.Gen})
		default:
			return nil, fmt.Errorf("image: constant %d has unknown kind %d", i, wv.Kind)
		}
	}

	for i, wr := range w.Lines {
		chunk.Lines[i] = bytecode.LineRun{Count: int(wr.Count), Line: wr.Line}
	}

	if err := chunk.Validate(); err != nil {
		return nil, fmt.Errorf("image: invalid chunk: %w", err)
	}
	return chunk, nil
}
