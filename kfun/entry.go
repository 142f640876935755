package kfun

import (
	"fmt"
	"strings"
)

// Slot is a descriptor's position in the entry table. Slots of extensions
// change between builds; never persist them.
type Slot int

// StableIndex is the call index compiled into bytecode and persisted in
// snapshots. Built-ins have StableIndex == Slot.
type StableIndex uint16

// MaxVersion is the highest kfun version; versions are persisted as one
// decimal digit.
const MaxVersion = 9

// NativeFunc implements a kfun. It consumes nargs stack cells and pushes
// one result. A returned error aborts the call; the interpreter unwinds the
// stack.
type NativeFunc func(f *Frame, nargs int, d *Descriptor) error

// ExtFunc is an embedder-supplied kfun. It reads its nargs arguments from
// the frame without popping them and returns its result; the call gate
// takes care of the stack.
type ExtFunc func(f *Frame, nargs int) (Value, error)

// Descriptor describes a kernel function.
type Descriptor struct {
	Name      string // base name; for placeholders the retired function's name
	Signature Signature
	Func      NativeFunc
	Ext       ExtFunc
	Version   uint8
	LValue    bool // accepts lvalue arguments
	Retired   bool // retirement placeholder

	seq int
}

// Marker returns the persisted form of the descriptor's identity,
// "<version>.<name>".
func (d *Descriptor) Marker() string {
	return fmt.Sprintf("%d.%s", d.Version, d.Name)
}

// key is the sort key within the extension region.
func (d *Descriptor) key() string {
	if d.Retired {
		return d.Marker()
	}
	return d.Name
}

func (d *Descriptor) String() string {
	if d.Retired {
		return d.Marker() + " (retired)"
	}
	return fmt.Sprintf("%s v%d", d.Name, d.Version)
}

// Placeholder returns a retirement placeholder for version v of name. It
// keeps stable indices that referred to the retired function resolvable;
// calling it fails with ErrUnusedKfun.
func Placeholder(name string, v uint8) Descriptor {
	return Descriptor{
		Name:      name,
		Signature: unusedSignature,
		Func:      Unused,
		Version:   v,
		Retired:   true,
	}
}

// Unused is the implementation of retirement placeholders.
func Unused(f *Frame, nargs int, d *Descriptor) error {
	return &RuntimeError{Kfun: d.Name, Err: ErrUnusedKfun}
}

// callGate invokes an extension and normalizes the stack: the nargs
// argument cells are replaced by the result, followed by an array of
// assigned lvalues for lvalue-accepting kfuns.
func callGate(f *Frame, nargs int, d *Descriptor) error {
	f.lvalues = f.lvalues[:0]
	f.LValueResult = false
	val, err := d.Ext(f, nargs)
	if err != nil {
		return err
	}
	f.Pop(nargs)
	f.Push(val)
	if d.LValue {
		f.LValueResult = true
		f.Push(NewArray(f.lvalues...))
	}
	return nil
}

// Marker is the structured form of a persisted kfun name.
type Marker struct {
	Name      string
	Version   uint8
	Versioned bool // false for bare names
}

// ParseMarker parses a persisted name: "<digit>.<name>" or a bare name.
func ParseMarker(s string) Marker {
	if len(s) > 2 && s[1] == '.' && s[0] >= '0' && s[0] <= '9' {
		return Marker{Name: s[2:], Version: s[0] - '0', Versioned: true}
	}
	return Marker{Name: s}
}

func (m Marker) String() string {
	if m.Versioned {
		return fmt.Sprintf("%d.%s", m.Version, m.Name)
	}
	return m.Name
}

// validName reports whether s can be registered as a kfun name. Names must
// not look like persisted markers and must survive NUL termination.
func validName(s string) bool {
	if s == "" || strings.IndexByte(s, 0) >= 0 {
		return false
	}
	return !ParseMarker(s).Versioned
}
