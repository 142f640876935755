package kfun

import (
	"bytes"
	"testing"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// noop returns its own name.
func noop(f *Frame, nargs int, d *Descriptor) error {
	return ret(f, nargs, NewString(d.Name))
}

func echo(name string) ExtFunc {
	return func(f *Frame, nargs int) (Value, error) {
		return NewString(name), nil
	}
}

func builtins(names ...string) []Descriptor {
	ds := make([]Descriptor, len(names))
	for i, n := range names {
		ds[i] = builtin(n, "xx*", noop)
	}
	return ds
}

func exts(names ...string) []ExtFunction {
	fns := make([]ExtFunction, len(names))
	for i, n := range names {
		fns[i] = ExtFunction{Name: n, Prototype: "xx*", Func: echo(n)}
	}
	return fns
}

func versioned(name string, v uint8) ExtFunction {
	return ExtFunction{Name: name, Prototype: "xx*", Func: echo(name), Version: v}
}

// newBuilder returns a builder with built-ins A and B.
func newBuilder() *Builder {
	return NewBuilder(DefaultLayout(), builtins("A", "B")...)
}

func mustRegistry(t *testing.T, b *Builder) *Registry {
	t.Helper()
	tab, err := b.Finalize()
	if err != nil {
		t.Fatalf("Finalize() error: %v", err)
	}
	return NewRegistry(tab)
}

func mustRegister(t *testing.T, b *Builder, fns ...ExtFunction) {
	t.Helper()
	if err := b.RegisterFunctions(fns); err != nil {
		t.Fatalf("RegisterFunctions() error: %v", err)
	}
}

func mustDump(t *testing.T, r *Registry) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := r.Dump(&buf); err != nil {
		t.Fatalf("Dump() error: %v", err)
	}
	return buf.Bytes()
}

func mustRestore(t *testing.T, r *Registry, snap []byte) {
	t.Helper()
	if err := r.Restore(bytes.NewReader(snap)); err != nil {
		t.Fatalf("Restore() error: %v", err)
	}
}

func mustIndex(t *testing.T, r *Registry, name string) StableIndex {
	t.Helper()
	idx, ok := r.IndexOf(name)
	if !ok {
		t.Fatalf("IndexOf(%q) not found", name)
	}
	return idx
}

// resolvedName returns the marker of the descriptor at i, or "" if unbound.
func resolvedName(r *Registry, i StableIndex) string {
	d, ok := r.Resolve(i)
	if !ok {
		return ""
	}
	if d.Retired {
		return d.Marker()
	}
	return d.Name
}

// resolution maps every bound stable index to its descriptor.
func resolution(r *Registry) map[StableIndex]*Descriptor {
	m := make(map[StableIndex]*Descriptor)
	for _, b := range r.Bindings() {
		m[b.Index] = b.Descriptor
	}
	return m
}
