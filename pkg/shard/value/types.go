package value

import (
	"fmt"
	"strings"
)

// Type is the discriminant of a Var.
type Type uint8

const (
	None Type = iota
	Any
	Bool
	Int
	Float
	Float2
	String
	Bytes
	Seq
	Object
	Image
	ContextVar
)

func (t Type) String() string {
	switch t {
	case None:
		return "None"
	case Any:
		return "Any"
	case Bool:
		return "Bool"
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Float2:
		return "Float2"
	case String:
		return "String"
	case Bytes:
		return "Bytes"
	case Seq:
		return "Seq"
	case Object:
		return "Object"
	case Image:
		return "Image"
	case ContextVar:
		return "ContextVar"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// FourCC packs a four character code big-endian, the way the host builds
// vendor and type tags. Shorter codes are padded with spaces.
func FourCC(code string) int32 {
	var b [4]byte
	for i := range b {
		b[i] = ' '
		if i < len(code) {
			b[i] = code[i]
		}
	}
	return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}

func fourCCString(v int32) string {
	u := uint32(v)
	b := []byte{byte(u >> 24), byte(u >> 16), byte(u >> 8), byte(u)}
	for _, c := range b {
		if c < 0x20 || c > 0x7e {
			return fmt.Sprintf("0x%08x", u)
		}
	}
	return string(b)
}

// VendorFrag is the vendor tag used by the built-in object kinds.
var VendorFrag = FourCC("frag")

// ObjectType identifies an opaque object kind across the plugin boundary.
type ObjectType struct {
	Vendor int32
	TypeID int32
}

// NewObjectType builds an ObjectType from two four character codes.
func NewObjectType(vendor, typeID string) ObjectType {
	return ObjectType{Vendor: FourCC(vendor), TypeID: FourCC(typeID)}
}

func (o ObjectType) String() string {
	return fourCCString(o.Vendor) + "/" + fourCCString(o.TypeID)
}

// TypeInfo describes the shape of a Var at compose time.
type TypeInfo struct {
	Basic  Type
	Object ObjectType // set when Basic is Object
	Inner  Types      // element types for Seq, bound types for ContextVar
}

// Of returns the TypeInfo of a basic type.
func Of(basic Type) TypeInfo {
	return TypeInfo{Basic: basic}
}

// ObjectOf returns the TypeInfo of an object kind.
func ObjectOf(kind ObjectType) TypeInfo {
	return TypeInfo{Basic: Object, Object: kind}
}

// SeqOf returns a sequence type. No element types means any elements.
func SeqOf(inner ...TypeInfo) TypeInfo {
	return TypeInfo{Basic: Seq, Inner: inner}
}

// VarOf returns the type of a variable reference bound to the given types.
func VarOf(inner ...TypeInfo) TypeInfo {
	return TypeInfo{Basic: ContextVar, Inner: inner}
}

// Equal compares two TypeInfo structurally.
func (t TypeInfo) Equal(o TypeInfo) bool {
	if t.Basic != o.Basic || t.Object != o.Object || len(t.Inner) != len(o.Inner) {
		return false
	}
	for i := range t.Inner {
		if !t.Inner[i].Equal(o.Inner[i]) {
			return false
		}
	}
	return true
}

func (t TypeInfo) String() string {
	switch t.Basic {
	case Object:
		return "Object(" + t.Object.String() + ")"
	case Seq, ContextVar:
		if len(t.Inner) == 0 {
			return t.Basic.String()
		}
		return t.Basic.String() + "[" + t.Inner.String() + "]"
	default:
		return t.Basic.String()
	}
}

// Types is a small closed set of accepted shapes.
type Types []TypeInfo

// Accepts reports whether any member of the set accepts in.
func (ts Types) Accepts(in TypeInfo) bool {
	for _, t := range ts {
		if Match(in, t) {
			return true
		}
	}
	return false
}

// Contains reports whether the set holds a type equal to in.
func (ts Types) Contains(in TypeInfo) bool {
	for _, t := range ts {
		if t.Equal(in) {
			return true
		}
	}
	return false
}

func (ts Types) String() string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.String()
	}
	return strings.Join(names, " | ")
}

// Match reports whether a value of type input may be fed to a receiver
// declaring type receiver.
func Match(input, receiver TypeInfo) bool {
	if receiver.Basic == Any {
		return true
	}
	if input.Basic != receiver.Basic {
		return false
	}

	switch input.Basic {
	case Object:
		return input.Object == receiver.Object
	case Seq, ContextVar:
		if len(receiver.Inner) == 0 || len(input.Inner) == 0 {
			return true
		}
		for _, it := range input.Inner {
			if !receiver.Inner.Accepts(it) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// Common type sets.
var (
	NoneTypes   = Types{Of(None)}
	AnyTypes    = Types{Of(Any)}
	BoolTypes   = Types{Of(Bool)}
	IntTypes    = Types{Of(Int)}
	FloatTypes  = Types{Of(Float)}
	Float2Types = Types{Of(Float2)}
	StringTypes = Types{Of(String)}
	BytesTypes  = Types{Of(Bytes)}
	ImageTypes  = Types{Of(Image)}
	AnySeqTypes = Types{SeqOf()}
)
