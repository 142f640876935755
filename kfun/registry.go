// Package kfun implements the kernel function table: the registry that
// maps native functions to the stable call indices compiled into bytecode
// and persisted in snapshots.
//
// Built-ins are numbered by their fixed position. Extensions live in a
// separate index space starting at Layout.ExtensionOffset; their indices
// are assigned when first seen and reconciled by Restore, so an index
// handed out once keeps naming the same function across driver builds that
// add, retire or rename functions.
package kfun

import (
	"fmt"
	"sync"

	"github.com/tliron/commonlog"
)

// Registry owns a Table and the index map numbering it. Resolution is
// read-only and safe for concurrent use; Restore and Reclaim take the
// registry exclusively and replace the index map as a whole, so no caller
// observes a half-reconciled map.
type Registry struct {
	mu    sync.RWMutex
	table *Table
	index *indexMap
	log   commonlog.Logger
}

// NewRegistry numbers a fresh table: there is no snapshot to honour.
func NewRegistry(t *Table) *Registry {
	r := &Registry{
		table: t,
		index: initIndexMap(t),
		log:   commonlog.GetLogger("hearth.kfun"),
	}
	r.log.Infof("kfun table: %d built-ins, %d extensions, %d retired",
		t.builtins, len(t.order), t.retired)
	return r
}

// Table returns the entry table.
func (r *Registry) Table() *Table { return r.table }

// Resolve returns the descriptor for a stable index.
func (r *Registry) Resolve(i StableIndex) (*Descriptor, bool) {
	r.mu.RLock()
	s, ok := r.index.slot(i)
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.table.Entry(s), true
}

// StableIndexOf returns the stable index currently held by slot s.
func (r *Registry) StableIndexOf(s Slot) (StableIndex, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index.index(s)
}

// IndexOf returns the stable index a compiler should emit for a call to
// the named kfun.
func (r *Registry) IndexOf(name string) (StableIndex, bool) {
	if s, ok := r.table.LookupBuiltin(name); ok {
		return StableIndex(s), true
	}
	s, ok := r.table.Lookup(name)
	if !ok {
		return 0, false
	}
	return r.StableIndexOf(s)
}

// Call invokes the kfun at stable index i with nargs arguments on f.
func (r *Registry) Call(f *Frame, i StableIndex, nargs int) error {
	d, ok := r.Resolve(i)
	if !ok {
		return fmt.Errorf("%w %d", ErrNoSuchIndex, i)
	}
	sig := d.Signature
	if d.Retired {
		return d.Func(f, nargs, d)
	}
	if nargs > f.Depth() || nargs < sig.NArgs {
		return &RuntimeError{Kfun: d.Name, Err: ErrTooFewArgs}
	}
	if nargs > sig.NArgs+sig.VArgs && sig.Class&ClassEllipsis == 0 {
		return &RuntimeError{Kfun: d.Name, Err: ErrTooManyArgs}
	}
	f.kfuns = r
	f.LValueResult = false
	return d.Func(f, nargs, d)
}

// Range returns the extension stable indices in use, [lo, hi).
func (r *Registry) Range() (lo, hi StableIndex) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return StableIndex(r.index.offset), StableIndex(r.index.limit)
}

// Binding is one numbered kfun.
type Binding struct {
	Index      StableIndex
	Slot       Slot
	Descriptor *Descriptor
	Orphan     bool // the slot maps back to another index
}

// Bindings lists all bound stable indices in ascending order.
func (r *Registry) Bindings() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Binding
	add := func(i StableIndex) {
		s, ok := r.index.slot(i)
		if !ok {
			return
		}
		out = append(out, Binding{
			Index:      i,
			Slot:       s,
			Descriptor: r.table.Entry(s),
			Orphan:     !r.index.consistent(i),
		})
	}
	for i := 0; i < r.table.builtins; i++ {
		add(StableIndex(i))
	}
	for i := r.index.offset; i < r.index.limit; i++ {
		add(StableIndex(i))
	}
	return out
}
