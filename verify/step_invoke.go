package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// stepInvoke handles every invoke* opcode except invokedynamic, which
// this verifier deliberately rejects (SPEC_FULL/DESIGN.md Open Question:
// the 3-byte historical operand form is out of scope, and the modern
// 2-byte CP-index form still needs a bootstrap-method table this model
// doesn't carry) — invokedynamic surfaces as BadBytecode.
func (s *simulator) stepInvoke(live *Frame, op byte, operands []byte, pc int) error {
	if op == bcmap.OpInvokedynamic {
		return BadBytecodeError{PC: pc, Message: "invokedynamic is not supported"}
	}

	idx := be16(operands)
	ref, isInterfaceRef, err := s.class.Pool.MethodRef(idx)
	if err != nil {
		return BadBytecodeError{PC: pc, Message: err.Error()}
	}
	args, err := classfile.ArgumentTypes(ref.Descriptor)
	if err != nil {
		return BadBytecodeError{PC: pc, Message: err.Error()}
	}

	// Pop arguments right to left.
	for i := len(args) - 1; i >= 0; i-- {
		v, err := live.Pop()
		if err != nil {
			return err
		}
		want := s.fieldTypeOf(args[i])
		if err := s.checkArgAssignable(v, want); err != nil {
			return err
		}
	}

	if op == bcmap.OpInvokestatic {
		return s.pushReturnType(live, ref.Descriptor)
	}

	receiver, err := live.Pop()
	if err != nil {
		return err
	}

	if ref.Name == "<init>" {
		return s.stepInvokeInit(live, receiver, ref, pc)
	}

	switch op {
	case bcmap.OpInvokeinterface, bcmap.OpInvokedynamic:
		if !receiver.IsReference() {
			return IncompatibleTypeError{Expected: "reference", Found: receiver.String()}
		}
	default:
		if err := s.checkReceiverAssignable(receiver, ref.Class, pc); err != nil {
			return err
		}
	}
	_ = isInterfaceRef

	if s.cfg.Options.has(OptProtectedAccessCheck) && (op == bcmap.OpInvokevirtual || op == bcmap.OpInvokespecial) {
		if err := s.checkProtectedAccess(ref.Class, ref.Name+ref.Descriptor, receiver, pc); err != nil {
			return err
		}
	}

	return s.pushReturnType(live, ref.Descriptor)
}

// stepInvokeInit implements the `<init>` contract (spec §4.6
// "invokespecial on <init>"): the receiver must be an uninitialized-new
// or uninitialized-this tag, the invoked class must match (the `new`'s
// class, or this/superclass for a chained constructor call), and on
// success every slot in the frame carrying the same tag is rewritten to
// the now-initialized class.
func (s *simulator) stepInvokeInit(live *Frame, receiver vtype.Type, ref classfile.MemberRef, pc int) error {
	switch receiver.Kind {
	case vtype.UninitNew:
		newPC := int(receiver.Class)
		if newPC < 0 || newPC >= len(s.code) || s.code[newPC] != bcmap.OpNew {
			return BadBytecodeError{PC: pc, Message: "uninitialized-new tag does not point at a new instruction"}
		}
		newCPIdx := be16(s.code[newPC+1 : newPC+3])
		newClassName, err := s.class.Pool.ClassName(newCPIdx)
		if err != nil {
			return BadBytecodeError{PC: pc, Message: err.Error()}
		}
		if newClassName != ref.Class {
			return IncompatibleTypeError{Expected: newClassName, Found: ref.Class}
		}
		resolved := vtype.Type{Kind: vtype.Object, Class: uint32(s.interner.Intern(ref.Class))}
		rewriteSpecial(live, receiver, resolved)
		return nil
	case vtype.UninitThis:
		if ref.Class != s.class.Name && ref.Class != s.class.SuperclassName {
			return IncompatibleTypeError{Expected: s.class.Name + " or " + s.class.SuperclassName, Found: ref.Class}
		}
		resolved := vtype.Type{Kind: vtype.Object, Class: uint32(s.interner.Intern(ref.Class))}
		rewriteSpecial(live, receiver, resolved)
		live.UninitializedThis = false
		return nil
	default:
		return IncompatibleTypeError{Expected: "uninitialized receiver", Found: receiver.String()}
	}
}

// rewriteSpecial replaces every occurrence of tag (by identity, i.e. same
// Kind+Class) across locals and the operand stack with resolved, since
// more than one local/stack slot may alias the same `new` result.
func rewriteSpecial(live *Frame, tag, resolved vtype.Type) {
	for i := 0; i < live.LocalsCount; i++ {
		if live.Local(i) == tag {
			live.SetLocal(i, resolved)
		}
	}
	for i := 0; i < live.StackTop; i++ {
		if live.StackSlot(i) == tag {
			live.SetStackSlot(i, resolved)
		}
	}
}

func (s *simulator) checkArgAssignable(got, want vtype.Type) error {
	if got == want {
		return nil
	}
	if !want.IsReference() {
		if got.Kind != want.Kind {
			return IncompatibleTypeError{Expected: want.String(), Found: got.String()}
		}
		return nil
	}
	res, err := s.lattice.IsAssignable(got, want)
	if err != nil {
		return err
	}
	if res == vtype.No {
		return IncompatibleTypeError{Expected: want.String(), Found: got.String()}
	}
	return nil
}

func (s *simulator) pushReturnType(live *Frame, descriptor string) error {
	_, ret, err := classfile.ParseMethodDescriptor(descriptor)
	if err != nil {
		return err
	}
	if ret.Base == 'V' {
		return nil
	}
	return live.Push(s.fieldTypeOf(ret))
}
