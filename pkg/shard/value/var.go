package value

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ib-77/shardwire/pkg/shard"
)

// Var is the tagged union flowing between units. The zero Var is None.
//
// Values handed to Activate are borrowed for the duration of the call. A
// unit keeping an object value past the call must Clone it and Release the
// clone when done.
type Var struct {
	typ     Type
	boolean bool
	integer int64
	num     [2]float64
	str     string
	bytes   []byte
	seq     []Var
	object  *Handle
	image   *ImageData
}

func NoneVar() Var { return Var{} }

func BoolVar(b bool) Var { return Var{typ: Bool, boolean: b} }

func IntVar(i int64) Var { return Var{typ: Int, integer: i} }

func FloatVar(f float64) Var { return Var{typ: Float, num: [2]float64{f}} }

func Float2Var(x, y float64) Var { return Var{typ: Float2, num: [2]float64{x, y}} }

func StringVar(s string) Var { return Var{typ: String, str: s} }

func BytesVar(b []byte) Var { return Var{typ: Bytes, bytes: b} }

// SeqVar builds a sequence. The elements are stored as given; ownership of
// any object element moves into the sequence.
func SeqVar(items ...Var) Var { return Var{typ: Seq, seq: items} }

// ImageVar wraps a raw pixel buffer.
func ImageVar(img *ImageData) Var { return Var{typ: Image, image: img} }

// Ref builds a variable reference literal. Assigned to a parameter it
// switches the binding to variable mode.
func Ref(name string) Var { return Var{typ: ContextVar, str: name} }

func (v Var) Type() Type { return v.typ }

func (v Var) IsNone() bool { return v.typ == None }

// Info derives the compose-time type of the value.
func (v Var) Info() TypeInfo {
	switch v.typ {
	case Object:
		if v.object == nil {
			return Of(Object)
		}
		return ObjectOf(v.object.kind)
	case Seq:
		var inner Types
		for _, item := range v.seq {
			it := item.Info()
			if !inner.Contains(it) {
				inner = append(inner, it)
			}
		}
		return SeqOf(inner...)
	default:
		return Of(v.typ)
	}
}

func mismatch(want Type, got Type) error {
	return shard.MismatchError("expected %s, got %s", want, got)
}

func (v Var) AsBool() (bool, error) {
	if v.typ != Bool {
		return false, mismatch(Bool, v.typ)
	}
	return v.boolean, nil
}

func (v Var) AsInt() (int64, error) {
	if v.typ != Int {
		return 0, mismatch(Int, v.typ)
	}
	return v.integer, nil
}

// AsFloat accepts Float and Int.
func (v Var) AsFloat() (float64, error) {
	switch v.typ {
	case Float:
		return v.num[0], nil
	case Int:
		return float64(v.integer), nil
	default:
		return 0, mismatch(Float, v.typ)
	}
}

func (v Var) AsFloat2() (float64, float64, error) {
	if v.typ != Float2 {
		return 0, 0, mismatch(Float2, v.typ)
	}
	return v.num[0], v.num[1], nil
}

func (v Var) AsString() (string, error) {
	if v.typ != String {
		return "", mismatch(String, v.typ)
	}
	return v.str, nil
}

func (v Var) AsBytes() ([]byte, error) {
	switch v.typ {
	case Bytes:
		return v.bytes, nil
	case String:
		return []byte(v.str), nil
	default:
		return nil, mismatch(Bytes, v.typ)
	}
}

// AsSeq returns the elements without cloning them.
func (v Var) AsSeq() ([]Var, error) {
	if v.typ != Seq {
		return nil, mismatch(Seq, v.typ)
	}
	return v.seq, nil
}

func (v Var) AsImage() (*ImageData, error) {
	if v.typ != Image || v.image == nil {
		return nil, mismatch(Image, v.typ)
	}
	return v.image, nil
}

// VariableName returns the name held by a variable reference literal.
func (v Var) VariableName() (string, error) {
	if v.typ != ContextVar {
		return "", mismatch(ContextVar, v.typ)
	}
	return v.str, nil
}

// Handle returns the object handle, or nil for non-object values.
func (v Var) Handle() *Handle {
	if v.typ != Object {
		return nil
	}
	return v.object
}

// Clone returns an aliasing value: object handles gain a reference, the
// payload is never copied. Cloning a destroyed object yields None; TryClone
// reports it instead.
func (v Var) Clone() Var {
	switch v.typ {
	case Object:
		if v.object == nil || !v.object.retain() {
			return Var{}
		}
		return v
	case Seq:
		items := make([]Var, len(v.seq))
		for i, item := range v.seq {
			items[i] = item.Clone()
		}
		return Var{typ: Seq, seq: items}
	default:
		return v
	}
}

// TryClone is Clone failing with ErrHandleReleased when the value is, or
// contains, a destroyed object. Nothing is retained on failure.
func (v Var) TryClone() (Var, error) {
	switch v.typ {
	case Object:
		if v.object == nil || !v.object.retain() {
			return Var{}, fmt.Errorf("%w: %s", shard.ErrHandleReleased, v.Info())
		}
		return v, nil
	case Seq:
		items := make([]Var, 0, len(v.seq))
		for _, item := range v.seq {
			c, err := item.TryClone()
			if err != nil {
				_ = Var{typ: Seq, seq: items}.Release()
				return Var{}, err
			}
			items = append(items, c)
		}
		return Var{typ: Seq, seq: items}, nil
	default:
		return v, nil
	}
}

// Release drops the references held by the value. The last release of an
// object runs its destructor before returning.
func (v Var) Release() error {
	switch v.typ {
	case Object:
		if v.object == nil {
			return nil
		}
		return v.object.release()
	case Seq:
		var errs []error
		for _, item := range v.seq {
			if err := item.Release(); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	default:
		return nil
	}
}

// Equal compares values. Objects compare by handle identity, images by
// buffer identity.
func (v Var) Equal(o Var) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case None:
		return true
	case Bool:
		return v.boolean == o.boolean
	case Int:
		return v.integer == o.integer
	case Float, Float2:
		return v.num == o.num
	case String, ContextVar:
		return v.str == o.str
	case Bytes:
		return bytes.Equal(v.bytes, o.bytes)
	case Seq:
		if len(v.seq) != len(o.seq) {
			return false
		}
		for i := range v.seq {
			if !v.seq[i].Equal(o.seq[i]) {
				return false
			}
		}
		return true
	case Object:
		return v.object == o.object
	case Image:
		return v.image == o.image
	default:
		return false
	}
}

func (v Var) String() string {
	switch v.typ {
	case None:
		return "none"
	case Bool:
		return fmt.Sprintf("%t", v.boolean)
	case Int:
		return fmt.Sprintf("%d", v.integer)
	case Float:
		return fmt.Sprintf("%g", v.num[0])
	case Float2:
		return fmt.Sprintf("(%g %g)", v.num[0], v.num[1])
	case String:
		return fmt.Sprintf("%q", v.str)
	case Bytes:
		return fmt.Sprintf("bytes[%d]", len(v.bytes))
	case ContextVar:
		return "." + v.str
	case Seq:
		parts := make([]string, len(v.seq))
		for i, item := range v.seq {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, " ") + "]"
	case Object:
		if v.object == nil {
			return "object(nil)"
		}
		return fmt.Sprintf("object(%s %s refs=%d)", v.object.kind, v.object.id, v.object.Refs())
	case Image:
		if v.image == nil {
			return "image(nil)"
		}
		return fmt.Sprintf("image(%dx%d)", v.image.Width, v.image.Height)
	default:
		return v.typ.String()
	}
}
