package kfun

import (
	"fmt"
	"sort"
	"strings"
)

// ---------------------------------------------------------------------------
// Layout
// ---------------------------------------------------------------------------

// Layout fixes the shape of the stable index space. It is part of the
// persistent contract: snapshots only restore into a driver with the same
// layout.
type Layout struct {
	ExtensionOffset int // first extension stable index
	MaxIndex        int // size of the stable index space
}

// DefaultLayout returns the standard layout: extensions numbered from 128
// in a 1024-entry index space.
func DefaultLayout() Layout {
	return Layout{ExtensionOffset: 128, MaxIndex: 1024}
}

func (l Layout) validate(builtins int) error {
	if l.MaxIndex <= 0 || l.MaxIndex > 1<<16 {
		return fmt.Errorf("%w: index space of %d", ErrIndexSpace, l.MaxIndex)
	}
	if l.ExtensionOffset < builtins || l.ExtensionOffset >= l.MaxIndex {
		return fmt.Errorf("%w: extension offset %d with %d built-ins", ErrIndexSpace,
			l.ExtensionOffset, builtins)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builder: startup-time registration
// ---------------------------------------------------------------------------

// ExtFunction is a kfun supplied by embedding code.
type ExtFunction struct {
	Name      string // "encrypt X", "decrypt X" and "hash X" go to the category tables
	Prototype string
	Func      ExtFunc
	Version   uint8
}

// Builder collects kfuns at startup. Finalize turns it into a Table;
// registration errors are configuration errors and must stop the driver.
type Builder struct {
	layout   Layout
	builtins []Descriptor
	general  []Descriptor
	cats     [numCategories][]Descriptor
	seq      int
}

// NewBuilder creates a builder. The built-ins are numbered in the order
// given; that order is fixed forever.
func NewBuilder(layout Layout, builtins ...Descriptor) *Builder {
	b := &Builder{layout: layout}
	b.builtins = append(b.builtins, builtins...)
	return b
}

// Compiled adds kfuns compiled into the driver that live outside the
// built-in range, including retirement placeholders.
func (b *Builder) Compiled(ds ...Descriptor) error {
	for _, d := range ds {
		if !validName(d.Name) {
			return fmt.Errorf("%w: %q", ErrBadName, d.Name)
		}
		if d.Version > MaxVersion {
			return fmt.Errorf("%w: %s", ErrBadVersion, d.Marker())
		}
		if d.Func == nil {
			return fmt.Errorf("kfun %q: no implementation", d.Name)
		}
		b.add(d)
	}
	return nil
}

// RegisterFunctions adds embedder kfuns. Prototypes are normalized here,
// once.
func (b *Builder) RegisterFunctions(fns []ExtFunction) error {
	for _, fn := range fns {
		if err := b.register(fn); err != nil {
			return err
		}
	}
	return nil
}

func (b *Builder) register(fn ExtFunction) error {
	if fn.Func == nil {
		return fmt.Errorf("kfun %q: no implementation", fn.Name)
	}
	if fn.Version > MaxVersion {
		return fmt.Errorf("%w: %d.%s", ErrBadVersion, fn.Version, fn.Name)
	}
	sig, lvalue, err := ParsePrototype(fn.Prototype)
	if err != nil {
		return fmt.Errorf("kfun %q: %w", fn.Name, err)
	}

	cat, name, ok := categoryOf(fn.Name)
	if !validName(name) {
		return fmt.Errorf("%w: %q", ErrBadName, fn.Name)
	}
	d := Descriptor{
		Name:      name,
		Signature: sig,
		Func:      callGate,
		Ext:       fn.Func,
		Version:   fn.Version,
		LValue:    lvalue,
	}
	if ok {
		b.cats[cat] = append(b.cats[cat], d)
		return nil
	}
	b.add(d)
	return nil
}

func (b *Builder) add(d Descriptor) {
	d.seq = b.seq
	b.seq++
	b.general = append(b.general, d)
}

// Supersede registers a new calling convention for an existing kfun. The
// current entry is retired into a placeholder at its version and fn is
// registered at the next version, so bytecode compiled against the old
// convention keeps resolving to the placeholder.
func (b *Builder) Supersede(fn ExtFunction) error {
	if _, _, ok := categoryOf(fn.Name); ok {
		return fmt.Errorf("%w: category kfun %q has no version", ErrBadName, fn.Name)
	}
	for i := range b.general {
		old := &b.general[i]
		if old.Retired || old.Name != fn.Name {
			continue
		}
		if old.Version >= MaxVersion {
			return fmt.Errorf("%w: %s", ErrBadVersion, old.Marker())
		}
		fn.Version = old.Version + 1
		seq := old.seq
		*old = Placeholder(old.Name, old.Version)
		old.seq = seq
		return b.register(fn)
	}
	return fmt.Errorf("%w: %q", ErrNotRegistered, fn.Name)
}

// Finalize validates all registrations and builds the entry table.
func (b *Builder) Finalize() (*Table, error) {
	if err := b.layout.validate(len(b.builtins)); err != nil {
		return nil, err
	}

	names := make(map[string]bool, len(b.builtins)+len(b.general))
	for _, d := range b.builtins {
		if d.Func == nil || d.Retired || !validName(d.Name) {
			return nil, fmt.Errorf("%w: built-in %q", ErrBadName, d.Name)
		}
		if names[d.Name] {
			return nil, fmt.Errorf("%w: built-in %q", ErrDuplicateName, d.Name)
		}
		names[d.Name] = true
	}

	ext := make([]Descriptor, len(b.general))
	copy(ext, b.general)
	sort.SliceStable(ext, func(i, j int) bool {
		if ext[i].Retired != ext[j].Retired {
			return ext[i].Retired
		}
		return ext[i].key() < ext[j].key()
	})

	t := &Table{layout: b.layout, builtins: len(b.builtins)}
	t.entries = make([]Descriptor, 0, len(b.builtins)+len(ext))
	t.entries = append(t.entries, b.builtins...)
	t.entries = append(t.entries, ext...)

	live := 0
	for i := t.builtins; i < len(t.entries); i++ {
		d := &t.entries[i]
		if d.Retired {
			t.retired++
		} else {
			live++
		}
		if i > t.builtins && t.entries[i-1].Retired == d.Retired && t.entries[i-1].key() == d.key() {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.key())
		}
		if !d.Retired && names[d.Name] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateName, d.Name)
		}
	}
	if live > b.layout.MaxIndex-b.layout.ExtensionOffset {
		return nil, fmt.Errorf("%w: %d extension kfuns", ErrIndexSpace, live)
	}

	// a placeholder may not shadow the live function at the same version
	for i := t.builtins; i < t.liveStart(); i++ {
		p := &t.entries[i]
		if s, ok := t.Lookup(p.Name); ok && t.entries[s].Version == p.Version {
			return nil, fmt.Errorf("%w: %s is both live and retired", ErrDuplicateName, p.Marker())
		}
	}

	for c := range b.cats {
		tab := make([]Descriptor, len(b.cats[c]))
		copy(tab, b.cats[c])
		sort.Slice(tab, func(i, j int) bool { return tab[i].Name < tab[j].Name })
		for i := 1; i < len(tab); i++ {
			if tab[i].Name == tab[i-1].Name {
				return nil, fmt.Errorf("%w: %s %q", ErrDuplicateName, Category(c), tab[i].Name)
			}
		}
		t.cats[c] = tab
	}

	t.order = make([]Slot, 0, live)
	for i := t.liveStart(); i < len(t.entries); i++ {
		t.order = append(t.order, Slot(i))
	}
	sort.Slice(t.order, func(i, j int) bool {
		return t.entries[t.order[i]].seq < t.entries[t.order[j]].seq
	})

	return t, nil
}

// MustFinalize is like Finalize but panics on configuration errors.
func (b *Builder) MustFinalize() *Table {
	t, err := b.Finalize()
	if err != nil {
		panic(err)
	}
	return t
}

// categoryOf routes a registration name to its category table.
func categoryOf(name string) (Category, string, bool) {
	for c, prefix := range categoryPrefixes {
		if strings.HasPrefix(name, prefix) {
			return Category(c), name[len(prefix):], true
		}
	}
	return 0, name, false
}
