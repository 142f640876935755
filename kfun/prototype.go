package kfun

import "fmt"

// ---------------------------------------------------------------------------
// Prototypes
// ---------------------------------------------------------------------------
//
// Embedders describe a kfun with a prototype string: the return type tag
// followed by one tag per argument.
//
//	v  void        i  int         f  float      s  string
//	o  object      a  array       m  mapping    x  mixed
//	&  lvalue      *  varargs marker
//
// Arguments after a '*' are optional. A '*' at the very end marks an
// ellipsis: the last argument may repeat. "sss" takes two strings,
// "is*i" takes a string and an optional int, "ss*" takes any number of
// strings. "v" alone as argument list means no arguments.

// Class bits of a normalized signature.
const (
	ClassStatic      byte = 0x02
	ClassEllipsis    byte = 0x08
	ClassTypeChecked byte = 0x20
)

const (
	protoVarArgs = '*'
	protoHeader  = 6
)

var protoTags = map[byte]Type{
	'v': TypeVoid,
	'i': TypeInt,
	'f': TypeFloat,
	's': TypeString,
	'o': TypeObject,
	'a': TypeArray,
	'm': TypeMapping,
	'x': TypeMixed,
	'&': TypeLValue,
}

// Signature is a normalized prototype.
type Signature struct {
	Class  byte
	NArgs  int // required arguments
	VArgs  int // optional arguments
	Return Type
	Args   []Type
}

// Size returns the length of the compact encoding.
func (s Signature) Size() int {
	return protoHeader + len(s.Args)
}

// Bytes returns the compact encoding used by the JIT interface:
// class, nargs, vargs, 0, size, return type, argument types.
func (s Signature) Bytes() []byte {
	b := make([]byte, 0, s.Size())
	b = append(b, s.Class, byte(s.NArgs), byte(s.VArgs), 0, byte(s.Size()), byte(s.Return))
	for _, t := range s.Args {
		b = append(b, byte(t))
	}
	return b
}

func (s Signature) String() string {
	return fmt.Sprintf("%s(%d+%d args, class %#02x)", s.Return, s.NArgs, s.VArgs, s.Class)
}

// unusedSignature is the signature of retirement placeholders.
var unusedSignature = Signature{Class: ClassStatic, Return: TypeMixed}

// ParsePrototype normalizes a prototype string. The second result reports
// whether the prototype has lvalue arguments, which turns off type
// checking for them and makes the call gate return assigned lvalues.
func ParsePrototype(proto string) (Signature, bool, error) {
	bad := func(why string) (Signature, bool, error) {
		return Signature{}, false, fmt.Errorf("%w %q: %s", ErrBadPrototype, proto, why)
	}
	if proto == "" {
		return bad("empty")
	}

	ret, ok := protoTags[proto[0]]
	if !ok || ret == TypeLValue {
		return bad("bad return type")
	}

	sig := Signature{Class: ClassStatic, Return: ret}
	lvalue := false
	varargs := false

	p := proto[1:]
	if p == "v" {
		p = ""
	}
	for i := 0; i < len(p); i++ {
		c := p[i]
		if c == protoVarArgs {
			if i == len(p)-1 {
				sig.Class |= ClassEllipsis
				if !varargs {
					if sig.NArgs == 0 {
						return bad("ellipsis without argument")
					}
					sig.NArgs--
					sig.VArgs++
				}
				break
			}
			if varargs {
				return bad("repeated varargs marker")
			}
			varargs = true
			continue
		}

		t, ok := protoTags[c]
		if !ok || t == TypeVoid {
			return bad(fmt.Sprintf("bad argument type %q", c))
		}
		if t != TypeMixed {
			if t == TypeLValue {
				sig.Class &^= ClassTypeChecked
				lvalue = true
			} else {
				sig.Class |= ClassTypeChecked
			}
		}
		if varargs {
			sig.VArgs++
		} else {
			sig.NArgs++
		}
		sig.Args = append(sig.Args, t)
	}

	if sig.Size() > 0xff {
		return bad("too many arguments")
	}
	return sig, lvalue, nil
}
