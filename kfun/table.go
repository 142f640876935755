package kfun

import "sort"

// ---------------------------------------------------------------------------
// Table: the entry table
// ---------------------------------------------------------------------------

// Table is the finalized entry table, a dense arena of descriptors
// addressed by Slot:
//
//	[0, Builtins)              built-ins, in their fixed order
//	[Builtins, liveStart)      retirement placeholders, sorted by marker
//	[liveStart, Len)           live extensions, sorted by name
//
// A Table is immutable.
type Table struct {
	layout   Layout
	entries  []Descriptor
	builtins int
	retired  int
	cats     [numCategories][]Descriptor
	order    []Slot // live extensions in registration order
}

// Layout returns the index space layout.
func (t *Table) Layout() Layout { return t.layout }

// Len returns the number of slots.
func (t *Table) Len() int { return len(t.entries) }

// Builtins returns the number of built-ins.
func (t *Table) Builtins() int { return t.builtins }

// Retired returns the number of retirement placeholders.
func (t *Table) Retired() int { return t.retired }

// Entry returns the descriptor in slot s.
func (t *Table) Entry(s Slot) *Descriptor {
	return &t.entries[s]
}

func (t *Table) liveStart() int { return t.builtins + t.retired }

// Lookup finds a live extension by name.
func (t *Table) Lookup(name string) (Slot, bool) {
	lo, hi := t.liveStart(), len(t.entries)
	i := lo + sort.Search(hi-lo, func(i int) bool {
		return t.entries[lo+i].Name >= name
	})
	if i < hi && t.entries[i].Name == name {
		return Slot(i), true
	}
	return -1, false
}

// LookupRetired finds the placeholder for version v of name.
func (t *Table) LookupRetired(name string, v uint8) (Slot, bool) {
	key := Marker{Name: name, Version: v, Versioned: true}.String()
	lo, hi := t.builtins, t.liveStart()
	i := lo + sort.Search(hi-lo, func(i int) bool {
		return t.entries[lo+i].key() >= key
	})
	if i < hi && t.entries[i].key() == key {
		return Slot(i), true
	}
	return -1, false
}

// LookupBuiltin finds a built-in by name. Built-ins are not sorted; this
// is a linear scan for bootstrap use.
func (t *Table) LookupBuiltin(name string) (Slot, bool) {
	for i := 0; i < t.builtins; i++ {
		if t.entries[i].Name == name {
			return Slot(i), true
		}
	}
	return -1, false
}

// match finds the current descriptor for a persisted name. A versioned
// name first matches the live function at that exact version, then the
// placeholder retiring that version, and only then the live function at
// any version.
func (t *Table) match(m Marker) (Slot, bool) {
	if !m.Versioned {
		return t.Lookup(m.Name)
	}
	s, live := t.Lookup(m.Name)
	if live && t.entries[s].Version == m.Version {
		return s, true
	}
	if p, ok := t.LookupRetired(m.Name, m.Version); ok {
		return p, true
	}
	return s, live
}

// Category returns the descriptors of a category table, sorted by name.
func (t *Table) Category(c Category) []Descriptor {
	return t.cats[c]
}

// lookupCategory finds an algorithm in a category table.
func (t *Table) lookupCategory(c Category, name string) (*Descriptor, bool) {
	tab := t.cats[c]
	i := sort.Search(len(tab), func(i int) bool { return tab[i].Name >= name })
	if i < len(tab) && tab[i].Name == name {
		return &tab[i], true
	}
	return nil, false
}
