package kfun

import "fmt"

// ---------------------------------------------------------------------------
// Category dispatch: cipher and hash selection
// ---------------------------------------------------------------------------

// Category is one of the algorithm tables selected by name at run time.
type Category int

const (
	CategoryEncrypt Category = iota
	CategoryDecrypt
	CategoryHash
	numCategories
)

var categoryPrefixes = [numCategories]string{"encrypt ", "decrypt ", "hash "}

var categoryNames = [numCategories]string{"encrypt", "decrypt", "hash"}

func (c Category) String() string {
	if c >= 0 && c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", int(c))
}

// notFound is the error raised for an unknown algorithm.
func (c Category) notFound() error {
	if c == CategoryHash {
		return ErrUnknownHash
	}
	return ErrUnknownCipher
}

// ResolveByName finds an algorithm in a category table.
func (r *Registry) ResolveByName(c Category, name string) (*Descriptor, bool) {
	if c < 0 || c >= numCategories {
		return nil, false
	}
	return r.table.lookupCategory(c, name)
}

// Dispatch runs a category call. The first of the nargs arguments names
// the algorithm; the algorithm is called with the remaining nargs-1. On
// success exactly nargs cells are replaced by one result. On error the
// stack is left as it was.
func (r *Registry) Dispatch(c Category, f *Frame, nargs int) error {
	if nargs < 1 || nargs > f.Depth() {
		return &RuntimeError{Kfun: c.String(), Err: ErrTooFewArgs}
	}
	name := f.Arg(nargs - 1)
	if name.Type() != TypeString {
		return BadArg(c.String(), 1)
	}
	d, ok := r.ResolveByName(c, name.AsString())
	if !ok {
		return &RuntimeError{Kfun: c.String(), Err: c.notFound()}
	}

	val, err := d.Ext(f, nargs-1)
	if err != nil {
		return err
	}
	f.Pop(nargs)
	f.Push(val)
	return nil
}

// CategoryGate returns the built-in implementing a category call, such as
// encrypt(cipher, ...) or hash_string(algorithm, ...).
func CategoryGate(c Category) NativeFunc {
	return func(f *Frame, nargs int, d *Descriptor) error {
		if f.kfuns == nil {
			return &RuntimeError{Kfun: d.Name, Err: c.notFound()}
		}
		return f.kfuns.Dispatch(c, f, nargs)
	}
}
