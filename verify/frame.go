package verify

import "github.com/eclipse-openj9/openj9-sub059/vtype"

// Frame is the abstract machine state at one bytecode offset (spec §3.3
// C4): locals followed by the operand stack, contiguous in one slice so
// a frame copy is a single append.
type Frame struct {
	PC                 int
	UninitializedThis  bool
	LocalsCount        int // stack_base_index; -1 (via Live=false) means "no frame yet"
	StackTop           int // number of slots currently on the operand stack
	MaxStack           int
	Slots              []vtype.Word // len == LocalsCount+MaxStack; locals then stack, packed
	Live               bool         // false for an unreached branch target
}

// NewFrame allocates a frame with room for localsCount locals and
// maxStack operand-stack slots, all initialized to Top.
func NewFrame(localsCount, maxStack int) *Frame {
	f := &Frame{
		LocalsCount: localsCount,
		MaxStack:    maxStack,
		Slots:       make([]vtype.Word, localsCount+maxStack),
	}
	for i := range f.Slots {
		f.Slots[i] = vtype.TopWord
	}
	return f
}

// Reset reinitializes f in place for reuse across methods (spec §9
// "Arena allocation" — per-method buffers are reused, not reallocated).
func (f *Frame) Reset(localsCount, maxStack int) {
	need := localsCount + maxStack
	if cap(f.Slots) >= need {
		f.Slots = f.Slots[:need]
	} else {
		f.Slots = make([]vtype.Word, need)
	}
	for i := range f.Slots {
		f.Slots[i] = vtype.TopWord
	}
	f.PC = 0
	f.UninitializedThis = false
	f.LocalsCount = localsCount
	f.MaxStack = maxStack
	f.StackTop = 0
	f.Live = false
}

// Local returns the type in local slot i.
func (f *Frame) Local(i int) vtype.Type { return vtype.Unpack(f.Slots[i]) }

// SetLocal overwrites local slot i.
func (f *Frame) SetLocal(i int, t vtype.Type) { f.Slots[i] = vtype.Pack(t) }

// Push pushes t onto the operand stack, reporting a stack-overflow
// failure if that would exceed MaxStack.
func (f *Frame) Push(t vtype.Type) error {
	if f.StackTop >= f.MaxStack {
		return StackOverflowError{PC: f.PC}
	}
	f.Slots[f.LocalsCount+f.StackTop] = vtype.Pack(t)
	f.StackTop++
	return nil
}

// Pop pops the top operand-stack slot.
func (f *Frame) Pop() (vtype.Type, error) {
	if f.StackTop == 0 {
		return vtype.Type{}, StackUnderflowError{PC: f.PC}
	}
	f.StackTop--
	return vtype.Unpack(f.Slots[f.LocalsCount+f.StackTop]), nil
}

// Peek returns the top operand-stack slot without popping it.
func (f *Frame) Peek() (vtype.Type, error) {
	if f.StackTop == 0 {
		return vtype.Type{}, StackUnderflowError{PC: f.PC}
	}
	return vtype.Unpack(f.Slots[f.LocalsCount+f.StackTop-1]), nil
}

// StackSlot returns the operand-stack slot at depth i from the bottom
// (0-indexed), for dup/swap family instructions that rearrange several
// slots at once.
func (f *Frame) StackSlot(i int) vtype.Type { return vtype.Unpack(f.Slots[f.LocalsCount+i]) }

// SetStackSlot overwrites the operand-stack slot at depth i.
func (f *Frame) SetStackSlot(i int, t vtype.Type) { f.Slots[f.LocalsCount+i] = vtype.Pack(t) }

// Clone deep-copies f, for entry/exit points that need an independent
// snapshot (exception-handler merge restores the original afterward).
func (f *Frame) Clone() *Frame {
	cp := *f
	cp.Slots = append([]vtype.Word(nil), f.Slots...)
	return &cp
}

// CopyFrom overwrites f's contents with src's, reusing f's backing array
// when it's already large enough.
func (f *Frame) CopyFrom(src *Frame) {
	f.Reset(src.LocalsCount, src.MaxStack)
	copy(f.Slots, src.Slots)
	f.PC = src.PC
	f.UninitializedThis = src.UninitializedThis
	f.StackTop = src.StackTop
	f.Live = src.Live
}
