package kfun

import (
	"bytes"
	"errors"
	"testing"
)

func TestParsePrototype(t *testing.T) {
	tests := []struct {
		proto  string
		class  byte
		nargs  int
		vargs  int
		ret    Type
		args   []Type
		lvalue bool
	}{
		{"v", ClassStatic, 0, 0, TypeVoid, nil, false},
		{"iv", ClassStatic, 0, 0, TypeInt, nil, false},
		{"xx", ClassStatic, 1, 0, TypeMixed, []Type{TypeMixed}, false},
		{"sss", ClassStatic | ClassTypeChecked, 2, 0, TypeString, []Type{TypeString, TypeString}, false},
		{"is*i", ClassStatic | ClassTypeChecked, 1, 1, TypeInt, []Type{TypeString, TypeInt}, false},
		{"ss*", ClassStatic | ClassTypeChecked | ClassEllipsis, 0, 1, TypeString, []Type{TypeString}, false},
		{"ssx*", ClassStatic | ClassTypeChecked | ClassEllipsis, 1, 1, TypeString, []Type{TypeString, TypeMixed}, false},
		{"is*i*", ClassStatic | ClassTypeChecked | ClassEllipsis, 1, 1, TypeInt, []Type{TypeString, TypeInt}, false},
		{"is&", ClassStatic, 2, 0, TypeInt, []Type{TypeString, TypeLValue}, true},
		{"i&s", ClassStatic | ClassTypeChecked, 2, 0, TypeInt, []Type{TypeLValue, TypeString}, true},
	}

	for _, tt := range tests {
		sig, lvalue, err := ParsePrototype(tt.proto)
		if err != nil {
			t.Errorf("ParsePrototype(%q) error: %v", tt.proto, err)
			continue
		}
		if sig.Class != tt.class {
			t.Errorf("ParsePrototype(%q).Class = %#x, want %#x", tt.proto, sig.Class, tt.class)
		}
		if sig.NArgs != tt.nargs || sig.VArgs != tt.vargs {
			t.Errorf("ParsePrototype(%q) args = %d+%d, want %d+%d", tt.proto, sig.NArgs, sig.VArgs, tt.nargs, tt.vargs)
		}
		if sig.Return != tt.ret {
			t.Errorf("ParsePrototype(%q).Return = %v, want %v", tt.proto, sig.Return, tt.ret)
		}
		if len(sig.Args) != len(tt.args) {
			t.Errorf("ParsePrototype(%q).Args = %v, want %v", tt.proto, sig.Args, tt.args)
		} else {
			for i := range tt.args {
				if sig.Args[i] != tt.args[i] {
					t.Errorf("ParsePrototype(%q).Args[%d] = %v, want %v", tt.proto, i, sig.Args[i], tt.args[i])
				}
			}
		}
		if lvalue != tt.lvalue {
			t.Errorf("ParsePrototype(%q) lvalue = %v, want %v", tt.proto, lvalue, tt.lvalue)
		}
	}
}

func TestParsePrototypeMalformed(t *testing.T) {
	for _, proto := range []string{"", "&s", "*", "s*", "sq", "ssvs", "s**s", "is*i*i", "ss*s*s"} {
		if _, _, err := ParsePrototype(proto); !errors.Is(err, ErrBadPrototype) {
			t.Errorf("ParsePrototype(%q) error = %v, want ErrBadPrototype", proto, err)
		}
	}
}

func TestSignatureBytes(t *testing.T) {
	sig, _, err := ParsePrototype("is*i")
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{ClassStatic | ClassTypeChecked, 1, 1, 0, 8, byte(TypeInt), byte(TypeString), byte(TypeInt)}
	if got := sig.Bytes(); !bytes.Equal(got, want) {
		t.Errorf("Bytes() = %v, want %v", got, want)
	}
	if sig.Size() != len(want) {
		t.Errorf("Size() = %d, want %d", sig.Size(), len(want))
	}
}
