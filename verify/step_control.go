package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// stepBranch pops the operands a conditional/goto/switch needs, then
// reports every successor to s.onBranch: the taken target(s), and for a
// conditional, the fall-through pc too (spec §4.4 step 3, §4.6
// tableswitch/lookupswitch row).
func (s *simulator) stepBranch(live *Frame, op byte, pc, length int, operands []byte) (terminator bool, err error) {
	switch op {
	case bcmap.OpGoto, bcmap.OpGotoW:
		target := pc + branchOffset(op, operands)
		if err := s.onBranch(target, live); err != nil {
			return false, err
		}
		return true, nil
	case bcmap.OpTableswitch, bcmap.OpLookupswitch:
		v, err := live.Pop()
		if err != nil {
			return false, err
		}
		if v.Kind != vtype.Int {
			return false, IncompatibleTypeError{Expected: "int", Found: v.String()}
		}
		for _, target := range switchTargets(s.code, pc, op) {
			if err := s.onBranch(target, live); err != nil {
				return false, err
			}
		}
		return true, nil
	default: // conditional
		n := popsForConditional(op)
		for i := 0; i < n; i++ {
			v, err := live.Pop()
			if err != nil {
				return false, err
			}
			if op == bcmap.OpIfAcmpeq || op == bcmap.OpIfAcmpne || op == bcmap.OpIfnull || op == bcmap.OpIfnonnull {
				if !v.IsReference() {
					return false, IncompatibleTypeError{Expected: "reference", Found: v.String()}
				}
			} else if v.Kind != vtype.Int {
				return false, IncompatibleTypeError{Expected: "int", Found: v.String()}
			}
		}
		target := pc + branchOffset(op, operands)
		if err := s.onBranch(target, live); err != nil {
			return false, err
		}
		fallThrough := pc + length
		if fallThrough < len(s.code) {
			if err := s.onBranch(fallThrough, live); err != nil {
				return false, err
			}
		}
		return false, nil
	}
}

func popsForConditional(op byte) int {
	switch op {
	case bcmap.OpIfIcmpeq, bcmap.OpIfIcmpne, bcmap.OpIfIcmplt, bcmap.OpIfIcmpge, bcmap.OpIfIcmpgt, bcmap.OpIfIcmple,
		bcmap.OpIfAcmpeq, bcmap.OpIfAcmpne:
		return 2
	default:
		return 1
	}
}

func branchOffset(op byte, operands []byte) int {
	if op == bcmap.OpGotoW {
		return int(int32(uint32(operands[0])<<24 | uint32(operands[1])<<16 | uint32(operands[2])<<8 | uint32(operands[3])))
	}
	return int(int16(be16(operands)))
}

func switchTargets(code []byte, pc int, op byte) []int {
	pad := func(pc int) int {
		rem := (pc + 1) % 4
		if rem == 0 {
			return 0
		}
		return 4 - rem
	}
	be32 := func(b []byte) int32 {
		return int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
	}
	p := pc + 1 + pad(pc)
	def := pc + int(be32(code[p:]))
	targets := []int{def}
	switch op {
	case bcmap.OpTableswitch:
		low := int(be32(code[p+4:]))
		high := int(be32(code[p+8:]))
		base := p + 12
		for i := 0; i <= high-low; i++ {
			targets = append(targets, pc+int(be32(code[base+i*4:])))
		}
	case bcmap.OpLookupswitch:
		npairs := int(be32(code[p+4:]))
		base := p + 8
		for i := 0; i < npairs; i++ {
			targets = append(targets, pc+int(be32(code[base+i*8+4:])))
		}
	}
	return targets
}

// stepFieldAccess handles getstatic/putstatic/getfield/putfield: resolve
// the field descriptor from the constant pool, pop/check/push per
// static-ness, and run the protected-access check on instance accesses
// (spec §4.6 getfield/putfield row, §4.7).
func (s *simulator) stepFieldAccess(live *Frame, op byte, operands []byte, pc int) error {
	idx := be16(operands)
	ref, err := s.class.Pool.FieldRef(idx)
	if err != nil {
		return BadBytecodeError{PC: pc, Message: err.Error()}
	}
	ft, err := classfile.ParseFieldDescriptor(ref.Descriptor)
	if err != nil {
		return BadBytecodeError{PC: pc, Message: err.Error()}
	}
	fieldType := s.fieldTypeOf(ft)

	switch op {
	case bcmap.OpGetstatic:
		return live.Push(fieldType)
	case bcmap.OpPutstatic:
		_, err := live.Pop()
		return err
	case bcmap.OpGetfield:
		receiver, err := live.Pop()
		if err != nil {
			return err
		}
		if err := s.checkReceiverAssignable(receiver, ref.Class, pc); err != nil {
			return err
		}
		if s.cfg.Options.has(OptProtectedAccessCheck) {
			if err := s.checkProtectedAccess(ref.Class, ref.Name, receiver, pc); err != nil {
				return err
			}
		}
		return live.Push(fieldType)
	case bcmap.OpPutfield:
		if _, err := live.Pop(); err != nil {
			return err
		}
		receiver, err := live.Pop()
		if err != nil {
			return err
		}
		if err := s.checkReceiverAssignable(receiver, ref.Class, pc); err != nil {
			return err
		}
		if s.cfg.Options.has(OptProtectedAccessCheck) {
			return s.checkProtectedAccess(ref.Class, ref.Name, receiver, pc)
		}
		return nil
	}
	return nil
}

func (s *simulator) fieldTypeOf(ft classfile.FieldType) vtype.Type {
	if ft.Arity > 0 {
		if ft.Base == 'L' {
			return vtype.Type{Kind: vtype.Object, Class: uint32(s.interner.Intern(ft.ClassName)), Arity: ft.Arity}
		}
		return baseArrayType(ft.Base).WithArity(ft.Arity)
	}
	if ft.Base == 'L' {
		return vtype.Type{Kind: vtype.Object, Class: uint32(s.interner.Intern(ft.ClassName))}
	}
	return baseScalarType(ft.Base)
}

func baseScalarType(base byte) vtype.Type {
	switch base {
	case 'J':
		return vtype.LongType
	case 'F':
		return vtype.FloatType
	case 'D':
		return vtype.DoubleType
	default: // B, C, I, S, Z
		return vtype.IntType
	}
}

func baseArrayType(base byte) vtype.Type {
	switch base {
	case 'B':
		return vtype.Type{Kind: vtype.ByteArray}
	case 'C':
		return vtype.Type{Kind: vtype.CharArray}
	case 'D':
		return vtype.Type{Kind: vtype.DoubleArray}
	case 'F':
		return vtype.Type{Kind: vtype.FloatArray}
	case 'I':
		return vtype.Type{Kind: vtype.IntArray}
	case 'J':
		return vtype.Type{Kind: vtype.LongArray}
	case 'S':
		return vtype.Type{Kind: vtype.ShortArray}
	case 'Z':
		return vtype.Type{Kind: vtype.BoolArray}
	default:
		return vtype.TopType
	}
}

func (s *simulator) checkReceiverAssignable(receiver vtype.Type, declaringClass string, pc int) error {
	if receiver.Kind == vtype.Null {
		return nil
	}
	declIdx := s.interner.Intern(declaringClass)
	want := vtype.Type{Kind: vtype.Object, Class: uint32(declIdx)}
	res, err := s.lattice.IsAssignable(receiver, want)
	if err != nil {
		return err
	}
	if res == vtype.No {
		return IncompatibleTypeError{Expected: declaringClass, Found: receiver.String()}
	}
	return nil
}
