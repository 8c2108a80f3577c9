package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// simulator holds everything one instruction step needs besides the live
// frame, which each step call receives as an argument: the class's
// constant pool (for CP-indexed operands), the type lattice, and the
// handler hook that distinguishes Pass A (merge at every successor) from
// Pass B (match against a declared frame).
type simulator struct {
	class    *classfile.Class
	method   *classfile.Method
	lattice  *vtype.Lattice
	interner *vtype.Interner
	code     []byte
	cfg      Config

	// onBranch is called for every branch successor (conditional
	// fall-through, taken branch, switch case/default) with the target pc
	// and the post-instruction frame. Exception-handler edges do not go
	// through it; each pass handles them separately.
	onBranch func(pc int, live *Frame) error
}

// be16 reads a big-endian u16 operand.
func be16(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

// step applies one instruction's effect to live, starting at pc, and
// returns the instruction's length and whether it's a terminator (return,
// throw, unconditional branch, switch — simulation does not fall through
// past it).
func (s *simulator) step(live *Frame, pc int) (length int, terminator bool, err error) {
	n, err := bcmap.InstrLength(s.code, pc)
	if err != nil {
		return 0, false, BadBytecodeError{PC: pc, Message: err.Error()}
	}
	op := s.code[pc]
	live.PC = pc
	operands := s.code[pc+1 : pc+n]

	eff, ok := bcmap.Lookup(op)
	if !ok {
		return 0, false, BadBytecodeError{PC: pc, Message: "unrecognized opcode"}
	}
	if eff.Action == bcmap.ActionUnimplemented {
		return 0, false, BadBytecodeError{PC: pc, Message: "jsr/ret subroutines are not supported"}
	}

	switch eff.Action {
	case bcmap.ActionLoadTempPush:
		idx := localIndex(op, operands)
		t := live.Local(idx)
		if t.Kind == vtype.Top {
			return 0, false, IncompatibleTypeError{Slot: idx, Expected: "initialized local", Found: "top"}
		}
		if err := live.Push(t); err != nil {
			return 0, false, err
		}
		if t.IsWide() {
			// a long/double takes a single operand-stack slot; no Top
			// half is pushed for it.
		}
	case bcmap.ActionPopStoreTemp:
		idx := localIndex(op, operands)
		v, err := live.Pop()
		if err != nil {
			return 0, false, err
		}
		live.SetLocal(idx, v)
		if v.IsWide() && idx+1 < live.LocalsCount {
			live.SetLocal(idx+1, vtype.TopType)
		}
	case bcmap.ActionArrayFetchPush:
		if err := s.stepArrayFetch(live, op); err != nil {
			return 0, false, err
		}
	case bcmap.ActionArrayStore:
		if err := s.stepArrayStore(live, op); err != nil {
			return 0, false, err
		}
	case bcmap.ActionPop2Push, bcmap.ActionPop2PushInt:
		if err := s.stepBinary(live, op, eff.Action); err != nil {
			return 0, false, err
		}
	case bcmap.ActionPopXPushX:
		if _, err := live.Pop(); err != nil {
			return 0, false, err
		}
		if err := live.Push(unaryResultType(op)); err != nil {
			return 0, false, err
		}
	case bcmap.ActionPopXPushY:
		if _, err := live.Pop(); err != nil {
			return 0, false, err
		}
		if err := live.Push(conversionResultType(op)); err != nil {
			return 0, false, err
		}
	case bcmap.ActionDupSwap:
		if err := s.stepStackShuffle(live, op); err != nil {
			return 0, false, err
		}
	case bcmap.ActionBranch:
		term, err := s.stepBranch(live, op, pc, n, operands)
		if err != nil {
			return 0, false, err
		}
		return n, term, nil
	case bcmap.ActionReturn:
		if err := s.stepReturn(live, op, pc); err != nil {
			return 0, false, err
		}
		return n, true, nil
	case bcmap.ActionStaticFieldAccess:
		if err := s.stepFieldAccess(live, op, operands, pc); err != nil {
			return 0, false, err
		}
	case bcmap.ActionSend:
		if err := s.stepInvoke(live, op, operands, pc); err != nil {
			return 0, false, err
		}
	case bcmap.ActionPushNew:
		idx := be16(operands)
		if err := live.Push(vtype.Type{Kind: vtype.UninitNew, Class: uint32(pc)}); err != nil {
			return 0, false, err
		}
		_ = idx // the class name is resolved lazily at invokespecial<init> time
	case bcmap.ActionMisc:
		if err := s.stepMisc(live, op, operands, pc); err != nil {
			return 0, false, err
		}
	}
	return n, false, nil
}

func localIndex(op byte, operands []byte) int {
	switch {
	case op >= bcmap.OpIload0 && op <= bcmap.OpIload3:
		return int(op - bcmap.OpIload0)
	case op >= bcmap.OpLload0 && op <= bcmap.OpLload3:
		return int(op - bcmap.OpLload0)
	case op >= bcmap.OpFload0 && op <= bcmap.OpFload3:
		return int(op - bcmap.OpFload0)
	case op >= bcmap.OpDload0 && op <= bcmap.OpDload3:
		return int(op - bcmap.OpDload0)
	case op >= bcmap.OpAload0 && op <= bcmap.OpAload3:
		return int(op - bcmap.OpAload0)
	case op >= bcmap.OpIstore0 && op <= bcmap.OpIstore3:
		return int(op - bcmap.OpIstore0)
	case op >= bcmap.OpLstore0 && op <= bcmap.OpLstore3:
		return int(op - bcmap.OpLstore0)
	case op >= bcmap.OpFstore0 && op <= bcmap.OpFstore3:
		return int(op - bcmap.OpFstore0)
	case op >= bcmap.OpDstore0 && op <= bcmap.OpDstore3:
		return int(op - bcmap.OpDstore0)
	case op >= bcmap.OpAstore0 && op <= bcmap.OpAstore3:
		return int(op - bcmap.OpAstore0)
	default:
		return int(operands[0])
	}
}

func (s *simulator) stepArrayFetch(live *Frame, op byte) error {
	index, err := live.Pop()
	if err != nil {
		return err
	}
	arrayref, err := live.Pop()
	if err != nil {
		return err
	}
	if index.Kind != vtype.Int {
		return IncompatibleTypeError{Expected: "int", Found: index.String()}
	}
	var result vtype.Type
	switch op {
	case bcmap.OpIaload:
		result = vtype.IntType
	case bcmap.OpLaload:
		result = vtype.LongType
	case bcmap.OpFaload:
		result = vtype.FloatType
	case bcmap.OpDaload:
		result = vtype.DoubleType
	case bcmap.OpBaload, bcmap.OpCaload, bcmap.OpSaload:
		result = vtype.IntType
	case bcmap.OpAaload:
		if arrayref.Kind == vtype.Null {
			result = vtype.NullType
		} else if arrayref.Kind == vtype.Object && arrayref.Arity > 0 {
			result = arrayref.ElementOf()
		} else {
			return IncompatibleTypeError{Expected: "object array", Found: arrayref.String()}
		}
	}
	return live.Push(result)
}

func (s *simulator) stepArrayStore(live *Frame, op byte) error {
	value, err := live.Pop()
	if err != nil {
		return err
	}
	index, err := live.Pop()
	if err != nil {
		return err
	}
	arrayref, err := live.Pop()
	if err != nil {
		return err
	}
	if index.Kind != vtype.Int {
		return IncompatibleTypeError{Expected: "int", Found: index.String()}
	}
	if op == bcmap.OpAastore {
		if !value.IsReference() {
			return IncompatibleTypeError{Expected: "reference", Found: value.String()}
		}
		if arrayref.Kind != vtype.Null && (arrayref.Kind != vtype.Object || arrayref.Arity == 0) {
			return IncompatibleTypeError{Expected: "object array", Found: arrayref.String()}
		}
		return nil
	}
	want := arrayStoreElementKinds(op)
	if arrayref.Kind == vtype.Null {
		return nil
	}
	for _, k := range want {
		if arrayref.Kind == k && arrayref.Arity > 0 {
			return nil
		}
	}
	return IncompatibleTypeError{Expected: "matching array type", Found: arrayref.String()}
}

// arrayStoreElementKinds returns the array Kinds a primitive *astore
// opcode accepts (spec §4.6, §8.3): bastore serves both byte[] and
// boolean[], since the JVM encodes both as the same instruction.
func arrayStoreElementKinds(op byte) []vtype.Kind {
	switch op {
	case bcmap.OpIastore:
		return []vtype.Kind{vtype.IntArray}
	case bcmap.OpLastore:
		return []vtype.Kind{vtype.LongArray}
	case bcmap.OpFastore:
		return []vtype.Kind{vtype.FloatArray}
	case bcmap.OpDastore:
		return []vtype.Kind{vtype.DoubleArray}
	case bcmap.OpBastore:
		return []vtype.Kind{vtype.ByteArray, vtype.BoolArray}
	case bcmap.OpCastore:
		return []vtype.Kind{vtype.CharArray}
	case bcmap.OpSastore:
		return []vtype.Kind{vtype.ShortArray}
	default:
		return nil
	}
}

func (s *simulator) stepBinary(live *Frame, op byte, action bcmap.Action) error {
	_, err := live.Pop()
	if err != nil {
		return err
	}
	rhs, err := live.Pop()
	if err != nil {
		return err
	}
	if action == bcmap.ActionPop2PushInt {
		return live.Push(vtype.IntType)
	}
	return live.Push(rhs)
}

func unaryResultType(op byte) vtype.Type {
	switch op {
	case bcmap.OpLneg:
		return vtype.LongType
	case bcmap.OpFneg:
		return vtype.FloatType
	case bcmap.OpDneg:
		return vtype.DoubleType
	case bcmap.OpI2b, bcmap.OpI2c, bcmap.OpI2s:
		return vtype.IntType
	default:
		return vtype.IntType
	}
}

func conversionResultType(op byte) vtype.Type {
	switch op {
	case bcmap.OpI2l, bcmap.OpF2l, bcmap.OpD2l:
		return vtype.LongType
	case bcmap.OpI2f, bcmap.OpL2f, bcmap.OpD2f:
		return vtype.FloatType
	case bcmap.OpI2d, bcmap.OpL2d, bcmap.OpF2d:
		return vtype.DoubleType
	default: // l2i, f2i, d2i
		return vtype.IntType
	}
}

func (s *simulator) stepStackShuffle(live *Frame, op byte) error {
	switch op {
	case bcmap.OpPop:
		_, err := live.Pop()
		return err
	case bcmap.OpPop2:
		if _, err := live.Pop(); err != nil {
			return err
		}
		_, err := live.Pop()
		return err
	case bcmap.OpDup:
		v, err := live.Peek()
		if err != nil {
			return err
		}
		return live.Push(v)
	case bcmap.OpDupX1:
		a, err := live.Pop()
		if err != nil {
			return err
		}
		b, err := live.Pop()
		if err != nil {
			return err
		}
		if err := live.Push(a); err != nil {
			return err
		}
		if err := live.Push(b); err != nil {
			return err
		}
		return live.Push(a)
	case bcmap.OpDupX2:
		a, err := live.Pop()
		if err != nil {
			return err
		}
		b, err := live.Pop()
		if err != nil {
			return err
		}
		c, err := live.Pop()
		if err != nil {
			return err
		}
		if err := live.Push(a); err != nil {
			return err
		}
		if err := live.Push(c); err != nil {
			return err
		}
		if err := live.Push(b); err != nil {
			return err
		}
		return live.Push(a)
	case bcmap.OpDup2:
		a, err := live.Pop()
		if err != nil {
			return err
		}
		b, err := live.Pop()
		if err != nil {
			return err
		}
		if err := live.Push(b); err != nil {
			return err
		}
		if err := live.Push(a); err != nil {
			return err
		}
		if err := live.Push(b); err != nil {
			return err
		}
		return live.Push(a)
	case bcmap.OpSwap:
		a, err := live.Pop()
		if err != nil {
			return err
		}
		b, err := live.Pop()
		if err != nil {
			return err
		}
		if err := live.Push(a); err != nil {
			return err
		}
		return live.Push(b)
	case bcmap.OpDup2X1:
		a, err := live.Pop()
		if err != nil {
			return err
		}
		b, err := live.Pop()
		if err != nil {
			return err
		}
		c, err := live.Pop()
		if err != nil {
			return err
		}
		for _, v := range []vtype.Type{b, a, c, b, a} {
			if err := live.Push(v); err != nil {
				return err
			}
		}
		return nil
	case bcmap.OpDup2X2:
		a, err := live.Pop()
		if err != nil {
			return err
		}
		b, err := live.Pop()
		if err != nil {
			return err
		}
		c, err := live.Pop()
		if err != nil {
			return err
		}
		d, err := live.Pop()
		if err != nil {
			return err
		}
		for _, v := range []vtype.Type{b, a, d, c, b, a} {
			if err := live.Push(v); err != nil {
				return err
			}
		}
		return nil
	default:
		return BadBytecodeError{PC: live.PC, Message: "unrecognized stack-shuffle opcode"}
	}
}

func (s *simulator) stepReturn(live *Frame, op byte, pc int) error {
	if op == bcmap.OpAthrow {
		v, err := live.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return IncompatibleTypeError{Expected: "Throwable", Found: v.String()}
		}
		return nil
	}
	if op == bcmap.OpReturn {
		if live.UninitializedThis {
			return UninitializedReceiverError{PC: pc}
		}
		return nil
	}
	v, err := live.Pop()
	if err != nil {
		return err
	}
	wantKind := map[byte]vtype.Kind{
		bcmap.OpIreturn: vtype.Int, bcmap.OpLreturn: vtype.Long,
		bcmap.OpFreturn: vtype.Float, bcmap.OpDreturn: vtype.Double,
	}
	if op == bcmap.OpAreturn {
		if !v.IsReference() {
			return IncompatibleTypeError{Expected: "reference", Found: v.String()}
		}
		if live.UninitializedThis {
			return UninitializedReceiverError{PC: pc}
		}
		return nil
	}
	if v.Kind != wantKind[op] {
		return IncompatibleTypeError{Expected: wantKind[op].String(), Found: v.String()}
	}
	return nil
}
