package classfile

import "fmt"

// cpEntry is one raw constant pool slot. Structural well-formedness of the
// constant pool is assumed already done by a static verifier; this package
// reads just enough of it to resolve names, descriptors, and member/class
// references on demand. Class keeps a live *ConstantPool after ReadClass
// returns so bytecode operands (CP indices) can be resolved lazily during
// verification instead of being eagerly expanded up front.
type cpEntry struct {
	tag  byte
	i1   uint16
	i2   uint16
	utf8 string
}

type ConstantPool struct {
	entries []cpEntry // 1-indexed; entries[0] is unused
}

func (p *ConstantPool) get(idx uint16) (cpEntry, error) {
	if idx == 0 || int(idx) >= len(p.entries) {
		return cpEntry{}, fmt.Errorf("classfile: constant pool index %d out of range", idx)
	}
	return p.entries[idx], nil
}

func (p *ConstantPool) utf8(idx uint16) (string, error) {
	e, err := p.get(idx)
	if err != nil {
		return "", err
	}
	if e.tag != tagUtf8 {
		return "", fmt.Errorf("classfile: constant pool index %d is not Utf8 (tag %d)", idx, e.tag)
	}
	return e.utf8, nil
}

func (p *ConstantPool) className(idx uint16) (string, error) {
	e, err := p.get(idx)
	if err != nil {
		return "", err
	}
	if e.tag != tagClass {
		return "", fmt.Errorf("classfile: constant pool index %d is not Class (tag %d)", idx, e.tag)
	}
	return p.utf8(e.i1)
}

// nameAndType resolves a NameAndType entry to its member name and
// descriptor string.
func (p *ConstantPool) nameAndType(idx uint16) (name, descriptor string, err error) {
	e, err := p.get(idx)
	if err != nil {
		return "", "", err
	}
	if e.tag != tagNameAndType {
		return "", "", fmt.Errorf("classfile: constant pool index %d is not NameAndType (tag %d)", idx, e.tag)
	}
	name, err = p.utf8(e.i1)
	if err != nil {
		return "", "", err
	}
	descriptor, err = p.utf8(e.i2)
	return name, descriptor, err
}

// MemberRef is a resolved field or method reference: the declaring
// class's name, the member's name, and its descriptor string.
type MemberRef struct {
	Class      string
	Name       string
	Descriptor string
}

func (p *ConstantPool) memberRef(idx uint16, wantTag byte) (MemberRef, error) {
	e, err := p.get(idx)
	if err != nil {
		return MemberRef{}, err
	}
	if e.tag != wantTag {
		return MemberRef{}, fmt.Errorf("classfile: constant pool index %d has tag %d, want %d", idx, e.tag, wantTag)
	}
	class, err := p.className(e.i1)
	if err != nil {
		return MemberRef{}, err
	}
	name, descriptor, err := p.nameAndType(e.i2)
	if err != nil {
		return MemberRef{}, err
	}
	return MemberRef{Class: class, Name: name, Descriptor: descriptor}, nil
}

// MethodRef resolves a Methodref or InterfaceMethodref constant pool
// entry, which invokestatic/invokespecial/invokevirtual/invokeinterface
// reference from the bytecode stream (spec §4.6).
func (p *ConstantPool) MethodRef(idx uint16) (MemberRef, bool, error) {
	e, err := p.get(idx)
	if err != nil {
		return MemberRef{}, false, err
	}
	switch e.tag {
	case tagMethodref:
		ref, err := p.memberRef(idx, tagMethodref)
		return ref, false, err
	case tagInterfaceMethodref:
		ref, err := p.memberRef(idx, tagInterfaceMethodref)
		return ref, true, err
	default:
		return MemberRef{}, false, fmt.Errorf("classfile: constant pool index %d is not a method reference (tag %d)", idx, e.tag)
	}
}

// FieldRef resolves a Fieldref constant pool entry (getfield/putfield,
// spec §4.6).
func (p *ConstantPool) FieldRef(idx uint16) (MemberRef, error) {
	return p.memberRef(idx, tagFieldref)
}

// ClassName resolves a Class constant pool entry to its name, as used by
// `new`, `checkcast`, `instanceof`, and exception handler catch types.
func (p *ConstantPool) ClassName(idx uint16) (string, error) {
	return p.className(idx)
}

// FindClass returns the constant pool index of a Class entry naming
// name, if one exists. The method driver uses this to build the
// implicit frame-0 locals a StackMapTable's first delta is relative to
// (spec §4.2): every class name occurring in a method descriptor that
// already has a declared stack map is guaranteed, by the class file's
// own well-formedness, to also have a Class constant somewhere in the
// pool, since the descriptor itself is stored as a Utf8 the compiler
// paired with a Class entry wherever the verifier needs to name it.
func (p *ConstantPool) FindClass(name string) (uint16, bool) {
	for i := 1; i < len(p.entries); i++ {
		e := p.entries[i]
		if e.tag != tagClass {
			continue
		}
		if n, err := p.utf8(e.i1); err == nil && n == name {
			return uint16(i), true
		}
	}
	return 0, false
}

// Tag reports the tag byte of the entry at idx, for `ldc`/`ldc_w`/
// `ldc2_w` operands whose pushed type depends on which kind of constant
// they name (int, float, String, Class, MethodHandle, MethodType, or a
// long/double via ldc2_w).
func (p *ConstantPool) Tag(idx uint16) (byte, error) {
	e, err := p.get(idx)
	if err != nil {
		return 0, err
	}
	return e.tag, nil
}
