package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// stepMisc handles the opcodes whose effect doesn't fit one of the
// generic action shapes: constant pushes, ldc family, checkcast/
// instanceof, array allocation, arraylength, monitor enter/exit, iinc,
// and wide-prefixed forms.
func (s *simulator) stepMisc(live *Frame, op byte, operands []byte, pc int) error {
	switch op {
	case bcmap.OpNop:
		return nil
	case bcmap.OpAconstNull:
		return live.Push(vtype.NullType)
	case bcmap.OpIconstM1, bcmap.OpIconst0, bcmap.OpIconst1, bcmap.OpIconst2, bcmap.OpIconst3, bcmap.OpIconst4, bcmap.OpIconst5,
		bcmap.OpBipush, bcmap.OpSipush:
		return live.Push(vtype.IntType)
	case bcmap.OpLconst0, bcmap.OpLconst1:
		return live.Push(vtype.LongType)
	case bcmap.OpFconst0, bcmap.OpFconst1, bcmap.OpFconst2:
		return live.Push(vtype.FloatType)
	case bcmap.OpDconst0, bcmap.OpDconst1:
		return live.Push(vtype.DoubleType)
	case bcmap.OpLdc, bcmap.OpLdcW:
		var idx uint16
		if op == bcmap.OpLdc {
			idx = uint16(operands[0])
		} else {
			idx = be16(operands)
		}
		return s.stepLdc(live, idx, pc)
	case bcmap.OpLdc2W:
		idx := be16(operands)
		tag, err := s.class.Pool.Tag(idx)
		if err != nil {
			return BadBytecodeError{PC: pc, Message: err.Error()}
		}
		if tag == 5 {
			return live.Push(vtype.LongType)
		}
		return live.Push(vtype.DoubleType)
	case bcmap.OpIinc:
		idx := int(operands[0])
		if live.Local(idx).Kind != vtype.Int {
			return IncompatibleTypeError{Slot: idx, Expected: "int", Found: live.Local(idx).String()}
		}
		return nil
	case bcmap.OpCheckcast:
		v, err := live.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return IncompatibleTypeError{Expected: "reference", Found: v.String()}
		}
		idx := be16(operands)
		name, err := s.class.Pool.ClassName(idx)
		if err != nil {
			return BadBytecodeError{PC: pc, Message: err.Error()}
		}
		return live.Push(s.classRefType(name))
	case bcmap.OpInstanceof:
		v, err := live.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return IncompatibleTypeError{Expected: "reference", Found: v.String()}
		}
		return live.Push(vtype.IntType)
	case bcmap.OpNewarray:
		if _, err := live.Pop(); err != nil {
			return err
		}
		return live.Push(newarrayType(operands[0]))
	case bcmap.OpAnewarray:
		if _, err := live.Pop(); err != nil {
			return err
		}
		idx := be16(operands)
		name, err := s.class.Pool.ClassName(idx)
		if err != nil {
			return BadBytecodeError{PC: pc, Message: err.Error()}
		}
		t := s.classRefType(name)
		return live.Push(t.WithArity(t.Arity + 1))
	case bcmap.OpMultianewarray:
		idx := be16(operands)
		dims := int(operands[2])
		for i := 0; i < dims; i++ {
			if _, err := live.Pop(); err != nil {
				return err
			}
		}
		name, err := s.class.Pool.ClassName(idx)
		if err != nil {
			return BadBytecodeError{PC: pc, Message: err.Error()}
		}
		return live.Push(s.classRefType(name))
	case bcmap.OpArraylength:
		v, err := live.Pop()
		if err != nil {
			return err
		}
		if v.Kind != vtype.Null && !v.IsBaseArray() && !(v.Kind == vtype.Object && v.Arity > 0) {
			return IncompatibleTypeError{Expected: "array", Found: v.String()}
		}
		return live.Push(vtype.IntType)
	case bcmap.OpMonitorenter, bcmap.OpMonitorexit:
		v, err := live.Pop()
		if err != nil {
			return err
		}
		if !v.IsReference() {
			return IncompatibleTypeError{Expected: "reference", Found: v.String()}
		}
		return nil
	case bcmap.OpWide:
		return s.stepWide(live, operands)
	default:
		return BadBytecodeError{PC: pc, Message: "unhandled opcode"}
	}
}

func (s *simulator) stepLdc(live *Frame, idx uint16, pc int) error {
	tag, err := s.class.Pool.Tag(idx)
	if err != nil {
		return BadBytecodeError{PC: pc, Message: err.Error()}
	}
	switch tag {
	case 3: // Integer
		return live.Push(vtype.IntType)
	case 4: // Float
		return live.Push(vtype.FloatType)
	case 8: // String
		return live.Push(s.classRefType("java/lang/String"))
	case 7: // Class
		return live.Push(s.classRefType("java/lang/Class"))
	case 16: // MethodType
		return live.Push(s.classRefType("java/lang/invoke/MethodType"))
	case 15: // MethodHandle
		return live.Push(s.classRefType("java/lang/invoke/MethodHandle"))
	default:
		return BadBytecodeError{PC: pc, Message: "ldc operand is not a loadable constant"}
	}
}

func (s *simulator) classRefType(name string) vtype.Type {
	return vtype.Type{Kind: vtype.Object, Class: uint32(s.interner.Intern(name))}
}

func newarrayType(code byte) vtype.Type {
	switch code {
	case bcmap.ArrBoolean:
		return vtype.Type{Kind: vtype.BoolArray, Arity: 1}
	case bcmap.ArrChar:
		return vtype.Type{Kind: vtype.CharArray, Arity: 1}
	case bcmap.ArrFloat:
		return vtype.Type{Kind: vtype.FloatArray, Arity: 1}
	case bcmap.ArrDouble:
		return vtype.Type{Kind: vtype.DoubleArray, Arity: 1}
	case bcmap.ArrByte:
		return vtype.Type{Kind: vtype.ByteArray, Arity: 1}
	case bcmap.ArrShort:
		return vtype.Type{Kind: vtype.ShortArray, Arity: 1}
	case bcmap.ArrInt:
		return vtype.Type{Kind: vtype.IntArray, Arity: 1}
	case bcmap.ArrLong:
		return vtype.Type{Kind: vtype.LongArray, Arity: 1}
	default:
		return vtype.TopType
	}
}

// stepWide handles the wide-prefixed local-variable forms, which use a
// 2-byte local index instead of 1 (JVMS §6.5.wide). iload/istore/etc
// reuse the same per-opcode logic with the wider index already decoded.
func (s *simulator) stepWide(live *Frame, operands []byte) error {
	sub := operands[0]
	idx := int(be16(operands[1:3]))
	switch sub {
	case bcmap.OpIload, bcmap.OpLload, bcmap.OpFload, bcmap.OpDload, bcmap.OpAload:
		t := live.Local(idx)
		if t.Kind == vtype.Top {
			return IncompatibleTypeError{Slot: idx, Expected: "initialized local", Found: "top"}
		}
		return live.Push(t)
	case bcmap.OpIstore, bcmap.OpLstore, bcmap.OpFstore, bcmap.OpDstore, bcmap.OpAstore:
		v, err := live.Pop()
		if err != nil {
			return err
		}
		live.SetLocal(idx, v)
		if v.IsWide() && idx+1 < live.LocalsCount {
			live.SetLocal(idx+1, vtype.TopType)
		}
		return nil
	case bcmap.OpIinc:
		if live.Local(idx).Kind != vtype.Int {
			return IncompatibleTypeError{Slot: idx, Expected: "int", Found: live.Local(idx).String()}
		}
		return nil
	default:
		return BadBytecodeError{Message: "unsupported wide sub-opcode"}
	}
}
