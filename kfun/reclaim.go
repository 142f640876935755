package kfun

// ---------------------------------------------------------------------------
// Reclaim: shrinking the extension index space
// ---------------------------------------------------------------------------

// Reclaim compacts the extension index space and returns the number of
// stable indices freed.
//
// Phase one drops unbound and orphaned indices from the top of the range.
// Phase two recycles the indices still held by retirement placeholders: the
// function at the highest index moves into the placeholder's index and the
// top index is freed. Every live function stays resolvable, but at a
// possibly different index, so Reclaim may only run when no bytecode or
// snapshot that refers to the freed indices will be resumed.
func (r *Registry) Reclaim() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.index.clone()
	t := r.table

	freed := trimTop(m)
	if freed > 0 {
		r.log.Noticef("reclaimed %d kernel function%s", freed, plural(freed))
	}

	for s := t.builtins; s < t.liveStart(); s++ {
		x := m.rawToStable[s]
		if !x.set {
			continue
		}
		r.log.Noticef("preparing to reclaim unused kfun %s", t.entries[s].Marker())

		top := StableIndex(m.limit - 1)
		if x.index == top {
			m.unbind(top)
		} else {
			moved := m.stableToRaw[top].slot
			m.unbind(top)
			m.rawToStable[s] = optIndex{}
			m.bind(x.index, moved)
		}
		m.limit--
		freed++
		freed += trimTop(m)
	}

	r.index = m
	return freed
}

// trimTop lowers the limit past unbound and orphaned indices and returns
// how many it dropped.
func trimTop(m *indexMap) int {
	n := 0
	for m.limit > m.offset {
		top := StableIndex(m.limit - 1)
		if m.consistent(top) {
			break
		}
		m.unbind(top)
		m.limit--
		n++
	}
	return n
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}
