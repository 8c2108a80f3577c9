package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// convertRawFrame expands a decoded StackMapTable entry (one
// verification_type_info per logical value) into a Frame (one Go slot
// per physical local-variable-table index), resolving VObject entries
// against the class's constant pool and VUninitializedThis/
// VUninitialized against the current class and originating `new` pc.
func convertRawFrame(class *classfile.Class, method *classfile.Method, interner *vtype.Interner, arena *Arena, raw bcmap.RawFrame) (*Frame, error) {
	f := arena.Frame(int(method.MaxLocals), int(method.MaxStack))
	f.PC = raw.PC
	f.Live = true

	idx := 0
	for _, v := range raw.Locals {
		t, err := expandVType(class, interner, v)
		if err != nil {
			return nil, err
		}
		if idx >= f.LocalsCount {
			return nil, BadBytecodeError{PC: raw.PC, Message: "stack map frame declares more locals than max_locals"}
		}
		f.SetLocal(idx, t)
		idx++
		if t.IsWide() && idx < f.LocalsCount {
			f.SetLocal(idx, vtype.TopType)
			idx++
		}
		if t.Kind == vtype.UninitThis {
			f.UninitializedThis = true
		}
	}

	for _, v := range raw.Stack {
		t, err := expandVType(class, interner, v)
		if err != nil {
			return nil, err
		}
		if err := f.Push(t); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func expandVType(class *classfile.Class, interner *vtype.Interner, v bcmap.VType) (vtype.Type, error) {
	switch v.Kind {
	case bcmap.VTop:
		return vtype.TopType, nil
	case bcmap.VInteger:
		return vtype.IntType, nil
	case bcmap.VFloat:
		return vtype.FloatType, nil
	case bcmap.VDouble:
		return vtype.DoubleType, nil
	case bcmap.VLong:
		return vtype.LongType, nil
	case bcmap.VNull:
		return vtype.NullType, nil
	case bcmap.VUninitializedThis:
		return vtype.Type{Kind: vtype.UninitThis, Class: uint32(interner.Intern(class.Name))}, nil
	case bcmap.VObject:
		name, err := class.Pool.ClassName(v.CPIndex)
		if err != nil {
			return vtype.Type{}, err
		}
		return vtype.Type{Kind: vtype.Object, Class: uint32(interner.Intern(name))}, nil
	case bcmap.VUninitialized:
		return vtype.Type{Kind: vtype.UninitNew, Class: uint32(v.Offset)}, nil
	default:
		return vtype.Type{}, BadBytecodeError{Message: "unknown verification_type_info kind"}
	}
}

// matchStack implements the match half of Pass B (spec §4.4, C9): live
// must be no wider than declared. Locals tolerate declared's Top as "not
// tracked here, anything goes"; every operand-stack slot must be equal or
// assignable to the declared one, with no Top exemption, since the
// recorded frame's stack shape is the contract a branch target or map
// point promises its predecessors.
func matchStack(lattice *vtype.Lattice, live, declared *Frame) error {
	if live.StackTop != declared.StackTop {
		return StackUnderflowError{PC: declared.PC}
	}
	if declared.UninitializedThis != live.UninitializedThis && !declared.UninitializedThis {
		return UninitializedReceiverError{PC: declared.PC}
	}

	n := live.LocalsCount
	if declared.LocalsCount < n {
		n = declared.LocalsCount
	}
	for i := 0; i < n; i++ {
		if declared.Local(i).Kind == vtype.Top {
			continue
		}
		if err := matchSlot(lattice, live.Local(i), declared.Local(i)); err != nil {
			return err
		}
	}
	for i := 0; i < declared.StackTop; i++ {
		if err := matchSlot(lattice, live.StackSlot(i), declared.StackSlot(i)); err != nil {
			return err
		}
	}
	return nil
}

func matchSlot(lattice *vtype.Lattice, got, want vtype.Type) error {
	if got == want {
		return nil
	}
	if !got.IsReference() || !want.IsReference() {
		return IncompatibleTypeError{Expected: want.String(), Found: got.String()}
	}
	res, err := lattice.IsAssignable(got, want)
	if err != nil {
		return err
	}
	if res != vtype.Yes {
		return IncompatibleTypeError{Expected: want.String(), Found: got.String()}
	}
	return nil
}

// verifyBytecodes runs Pass B (spec §4.4, C9): a single linear scan that
// checks (rather than merges) against the class's declared StackMapTable,
// replacing the live frame with the declared one at every map point
// instead of widening it.
func verifyBytecodes(class *classfile.Class, method *classfile.Method, lattice *vtype.Lattice, cfg Config, arena *Arena, rawFrames []bcmap.RawFrame) error {
	declared := make(map[int]*Frame, len(rawFrames))
	for _, rf := range rawFrames {
		f, err := convertRawFrame(class, method, lattice.Interner, arena, rf)
		if err != nil {
			return err
		}
		declared[rf.PC] = f
	}

	live, err := buildEntryFrame(class, method, lattice.Interner, arena)
	if err != nil {
		return err
	}

	var s *simulator
	s = &simulator{
		class:    class,
		method:   method,
		lattice:  lattice,
		interner: lattice.Interner,
		code:     method.Code,
		cfg:      cfg,
		onBranch: func(pc int, edge *Frame) error {
			target, ok := declared[pc]
			if !ok {
				return BadBytecodeError{PC: pc, Message: "branch target has no stack map frame"}
			}
			return matchStack(lattice, edge, target)
		},
	}

	pc := 0
	for pc < len(method.Code) {
		if pc != 0 {
			if target, ok := declared[pc]; ok {
				if err := matchStack(lattice, live, target); err != nil {
					return err
				}
				live = target.Clone()
			}
		}

		n, term, err := s.step(live, pc)
		if err != nil {
			return err
		}
		if eff, ok := bcmap.Lookup(method.Code[pc]); ok && eff.CanRaise {
			if err := matchExceptionHandlers(lattice, method, declared, pc, live); err != nil {
				return err
			}
		}

		pc += n
		if term {
			if pc >= len(method.Code) {
				break
			}
			if _, ok := declared[pc]; !ok {
				return BadBytecodeError{PC: pc, Message: "missing stack map frame after unconditional control transfer"}
			}
		}
	}
	return nil
}

func matchExceptionHandlers(lattice *vtype.Lattice, method *classfile.Method, declared map[int]*Frame, pc int, live *Frame) error {
	for _, h := range method.ExceptionTable {
		if pc < int(h.StartPC) || pc >= int(h.EndPC) {
			continue
		}
		target, ok := declared[int(h.HandlerPC)]
		if !ok {
			return BadBytecodeError{PC: int(h.HandlerPC), Message: "exception handler has no stack map frame"}
		}
		edge := live.Clone()
		edge.StackTop = 0
		var excType vtype.Type
		if h.CatchType == "" {
			excType = vtype.Type{Kind: vtype.Object, Class: uint32(vtype.ClassThrowable)}
		} else {
			excType = vtype.Type{Kind: vtype.Object, Class: uint32(lattice.Interner.Intern(h.CatchType))}
		}
		if err := edge.Push(excType); err != nil {
			return err
		}
		if err := matchStack(lattice, edge, target); err != nil {
			return err
		}
	}
	return nil
}
