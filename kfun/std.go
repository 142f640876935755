package kfun

import (
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Standard kfuns compiled into the driver
// ---------------------------------------------------------------------------

// StandardBuiltins returns the driver's built-ins. Their order is their
// stable index and must never change; new built-ins go at the end, and
// only while the extension offset leaves room.
func StandardBuiltins() []Descriptor {
	return []Descriptor{
		builtin("encrypt", "ssx*", CategoryGate(CategoryEncrypt)),
		builtin("decrypt", "ssx*", CategoryGate(CategoryDecrypt)),
		builtin("hash_string", "sss*", CategoryGate(CategoryHash)),
		builtin("strlen", "is", kfStrlen),
		builtin("sizeof", "ia", kfSizeof),
		builtin("time", "iv", kfTime),
	}
}

// StandardCompiled returns the compiled-in kfuns outside the built-in
// range, including placeholders for retired ones.
func StandardCompiled() []Descriptor {
	return []Descriptor{
		builtin("explode", "ass", kfExplode),
		builtin("implode", "sas", kfImplode),
		builtin("lower_case", "ss", kfLowerCase),
		builtin("upper_case", "ss", kfUpperCase),
		// crypt() became hash_string("crypt", ...)
		Placeholder("crypt", 0),
	}
}

func builtin(name, proto string, fn NativeFunc) Descriptor {
	sig, lvalue, err := ParsePrototype(proto)
	if err != nil {
		panic(err)
	}
	return Descriptor{Name: name, Signature: sig, Func: fn, LValue: lvalue}
}

// ret replaces the nargs argument cells with v.
func ret(f *Frame, nargs int, v Value) error {
	f.Pop(nargs)
	f.Push(v)
	return nil
}

func kfStrlen(f *Frame, nargs int, d *Descriptor) error {
	s := f.Arg(0)
	if s.Type() != TypeString {
		return BadArg(d.Name, 1)
	}
	return ret(f, nargs, NewInt(int64(len(s.AsString()))))
}

func kfSizeof(f *Frame, nargs int, d *Descriptor) error {
	a := f.Arg(0)
	if a.Type() != TypeArray {
		return BadArg(d.Name, 1)
	}
	return ret(f, nargs, NewInt(int64(len(a.AsArray()))))
}

func kfTime(f *Frame, nargs int, d *Descriptor) error {
	return ret(f, nargs, NewInt(time.Now().Unix()))
}

func kfExplode(f *Frame, nargs int, d *Descriptor) error {
	args := f.Args(nargs)
	if len(args) != 2 || args[0].Type() != TypeString {
		return BadArg(d.Name, 1)
	}
	if args[1].Type() != TypeString {
		return BadArg(d.Name, 2)
	}
	sep := args[1].AsString()
	s := args[0].AsString()
	if sep != "" {
		// one separator at either end does not start or end an element
		s = strings.TrimSuffix(strings.TrimPrefix(s, sep), sep)
	}
	if s == "" {
		return ret(f, nargs, NewArray())
	}
	parts := strings.Split(s, sep)
	vals := make([]Value, 0, len(parts))
	for _, p := range parts {
		vals = append(vals, NewString(p))
	}
	return ret(f, nargs, NewArray(vals...))
}

func kfImplode(f *Frame, nargs int, d *Descriptor) error {
	args := f.Args(nargs)
	if len(args) != 2 || args[0].Type() != TypeArray {
		return BadArg(d.Name, 1)
	}
	if args[1].Type() != TypeString {
		return BadArg(d.Name, 2)
	}
	elems := args[0].AsArray()
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.Type() != TypeString {
			return BadArg(d.Name, 1)
		}
		parts[i] = e.AsString()
	}
	return ret(f, nargs, NewString(strings.Join(parts, args[1].AsString())))
}

func kfLowerCase(f *Frame, nargs int, d *Descriptor) error {
	s := f.Arg(0)
	if s.Type() != TypeString {
		return BadArg(d.Name, 1)
	}
	return ret(f, nargs, NewString(strings.ToLower(s.AsString())))
}

func kfUpperCase(f *Frame, nargs int, d *Descriptor) error {
	s := f.Arg(0)
	if s.Type() != TypeString {
		return BadArg(d.Name, 1)
	}
	return ret(f, nargs, NewString(strings.ToUpper(s.AsString())))
}
