package kfun

// ---------------------------------------------------------------------------
// indexMap: stable index <-> slot
// ---------------------------------------------------------------------------

// optSlot is a slot that may be unassigned.
type optSlot struct {
	slot Slot
	set  bool
}

// optIndex is a stable index that may be unassigned.
type optIndex struct {
	index StableIndex
	set   bool
}

// indexMap is the bijection-with-holes between stable indices and slots.
// For extensions, stable indices in use form the range [offset, limit).
//
// When two stable indices share a slot, the slot maps back to only one of
// them; the other is an orphan. Orphans still resolve, so bytecode holding
// them keeps working, and Reclaim drops them from the top of the range.
type indexMap struct {
	stableToRaw []optSlot
	rawToStable []optIndex
	offset      int
	limit       int
}

// newIndexMap returns a map with only the built-ins bound.
func newIndexMap(t *Table) *indexMap {
	m := &indexMap{
		stableToRaw: make([]optSlot, t.layout.MaxIndex),
		rawToStable: make([]optIndex, len(t.entries)),
		offset:      t.layout.ExtensionOffset,
		limit:       t.layout.ExtensionOffset,
	}
	for i := 0; i < t.builtins; i++ {
		m.bind(StableIndex(i), Slot(i))
	}
	return m
}

// initIndexMap numbers a fresh table: built-ins keep their slot, live
// extensions are numbered from the offset in registration order, and
// placeholders stay unnumbered.
func initIndexMap(t *Table) *indexMap {
	m := newIndexMap(t)
	for _, s := range t.order {
		m.bind(StableIndex(m.limit), s)
		m.limit++
	}
	return m
}

func (m *indexMap) clone() *indexMap {
	c := &indexMap{
		stableToRaw: make([]optSlot, len(m.stableToRaw)),
		rawToStable: make([]optIndex, len(m.rawToStable)),
		offset:      m.offset,
		limit:       m.limit,
	}
	copy(c.stableToRaw, m.stableToRaw)
	copy(c.rawToStable, m.rawToStable)
	return c
}

func (m *indexMap) bind(i StableIndex, s Slot) {
	m.stableToRaw[i] = optSlot{slot: s, set: true}
	m.rawToStable[s] = optIndex{index: i, set: true}
}

// unbind frees stable index i. The slot keeps its back reference only if it
// pointed elsewhere.
func (m *indexMap) unbind(i StableIndex) {
	r := m.stableToRaw[i]
	m.stableToRaw[i] = optSlot{}
	if r.set && m.rawToStable[r.slot] == (optIndex{index: i, set: true}) {
		m.rawToStable[r.slot] = optIndex{}
	}
}

func (m *indexMap) slot(i StableIndex) (Slot, bool) {
	if int(i) >= len(m.stableToRaw) {
		return -1, false
	}
	r := m.stableToRaw[i]
	return r.slot, r.set
}

func (m *indexMap) index(s Slot) (StableIndex, bool) {
	if s < 0 || int(s) >= len(m.rawToStable) {
		return 0, false
	}
	x := m.rawToStable[s]
	return x.index, x.set
}

// consistent reports whether stable index i is bound to a slot that maps
// back to it.
func (m *indexMap) consistent(i StableIndex) bool {
	r := m.stableToRaw[i]
	if !r.set {
		return false
	}
	x := m.rawToStable[r.slot]
	return x.set && x.index == i
}
