package kfun

// ---------------------------------------------------------------------------
// Frame: the interpreter boundary
// ---------------------------------------------------------------------------

// Frame is the part of an interpreter call frame a kfun sees: the
// evaluation stack. A kfun called with nargs arguments finds them in the
// top nargs cells, the first argument deepest. On success it replaces
// exactly those cells with its result.
type Frame struct {
	stack []Value // stack[len(stack)-1] is the top

	// LValueResult is set when the last kfun call pushed an array of
	// lvalue results on top of its return value.
	LValueResult bool

	lvalues []Value
	kfuns   *Registry // set by Registry.Call for call gates
}

// NewFrame creates a frame whose stack holds vals, the last one on top.
func NewFrame(vals ...Value) *Frame {
	f := &Frame{stack: make([]Value, 0, len(vals)+8)}
	f.stack = append(f.stack, vals...)
	return f
}

// Push pushes v on the stack.
func (f *Frame) Push(v Value) {
	f.stack = append(f.stack, v)
}

// Pop removes the top n cells.
func (f *Frame) Pop(n int) {
	if n > len(f.stack) {
		panic("kfun: evaluation stack underflow")
	}
	for i := len(f.stack) - n; i < len(f.stack); i++ {
		f.stack[i] = Nil
	}
	f.stack = f.stack[:len(f.stack)-n]
}

// Depth returns the number of cells on the stack.
func (f *Frame) Depth() int { return len(f.stack) }

// Top returns the top of the stack, or nil when it is empty.
func (f *Frame) Top() Value {
	if len(f.stack) == 0 {
		return Nil
	}
	return f.stack[len(f.stack)-1]
}

// Arg returns the cell i positions below the top; Arg(0) is the top.
func (f *Frame) Arg(i int) Value {
	return f.stack[len(f.stack)-1-i]
}

// Args returns the top n cells in call order (first argument first).
func (f *Frame) Args(n int) []Value {
	args := make([]Value, n)
	copy(args, f.stack[len(f.stack)-n:])
	return args
}

// Stack returns a copy of the whole stack, bottom first.
func (f *Frame) Stack() []Value {
	s := make([]Value, len(f.stack))
	copy(s, f.stack)
	return s
}

// SetLValues records the values an lvalue-accepting kfun assigns to its
// lvalue arguments. The call gate pushes them as an array.
func (f *Frame) SetLValues(vals ...Value) {
	f.lvalues = append(f.lvalues[:0], vals...)
}
