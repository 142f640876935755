package kfun

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Type tags
// ---------------------------------------------------------------------------

// Type is a value type tag. The same tags appear in normalized prototypes,
// so the numbering is part of the JIT prototype format and must not change.
type Type byte

const (
	TypeNil     Type = 0
	TypeInt     Type = 1
	TypeFloat   Type = 2
	TypeString  Type = 3
	TypeObject  Type = 4
	TypeArray   Type = 5
	TypeMapping Type = 6
	TypeMixed   Type = 8
	TypeVoid    Type = 9
	TypeLValue  Type = 10
)

var typeNames = map[Type]string{
	TypeNil:     "nil",
	TypeInt:     "int",
	TypeFloat:   "float",
	TypeString:  "string",
	TypeObject:  "object",
	TypeArray:   "mixed *",
	TypeMapping: "mapping",
	TypeMixed:   "mixed",
	TypeVoid:    "void",
	TypeLValue:  "lvalue",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", byte(t))
}

// ---------------------------------------------------------------------------
// Value: interpreter values crossing the kfun boundary
// ---------------------------------------------------------------------------

// Value is a value on the interpreter's evaluation stack. Only the kinds
// native functions exchange with bytecode are represented; the zero Value
// is nil.
type Value struct {
	typ Type
	i   int64
	f   float64
	s   string
	a   []Value
}

// Nil is the nil value.
var Nil = Value{}

// NewInt returns an integer value.
func NewInt(n int64) Value { return Value{typ: TypeInt, i: n} }

// NewFloat returns a float value.
func NewFloat(f float64) Value { return Value{typ: TypeFloat, f: f} }

// NewString returns a string value. Strings are byte strings; they may
// carry arbitrary binary data such as cipher output.
func NewString(s string) Value { return Value{typ: TypeString, s: s} }

// NewArray returns an array value holding a copy of elems.
func NewArray(elems ...Value) Value {
	a := make([]Value, len(elems))
	copy(a, elems)
	return Value{typ: TypeArray, a: a}
}

// Type returns the value's type tag.
func (v Value) Type() Type { return v.typ }

// IsNil reports whether v is nil.
func (v Value) IsNil() bool { return v.typ == TypeNil }

// AsInt returns the integer payload. It is 0 for non-integers.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float payload. It is 0 for non-floats.
func (v Value) AsFloat() float64 { return v.f }

// AsString returns the string payload. It is "" for non-strings.
func (v Value) AsString() string { return v.s }

// AsArray returns the array elements. The slice must not be modified.
func (v Value) AsArray() []Value { return v.a }

// Equal reports whether two values are structurally equal.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeNil:
		return true
	case TypeInt:
		return v.i == o.i
	case TypeFloat:
		return v.f == o.f
	case TypeString:
		return v.s == o.s
	case TypeArray:
		if len(v.a) != len(o.a) {
			return false
		}
		for i := range v.a {
			if !v.a[i].Equal(o.a[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.typ {
	case TypeNil:
		return "nil"
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeFloat:
		return fmt.Sprintf("%g", v.f)
	case TypeString:
		return fmt.Sprintf("%q", v.s)
	case TypeArray:
		parts := make([]string, len(v.a))
		for i, e := range v.a {
			parts[i] = e.String()
		}
		return "({ " + strings.Join(parts, ", ") + " })"
	}
	return v.typ.String()
}
