package verify

import (
	"bytes"
	"encoding/binary"

	"github.com/eclipse-openj9/openj9-sub059/classfile"
)

// Constant pool tag values (JVMS §4.4); classfile keeps its own tag
// constants unexported, so a byte-level builder living in another package
// has to know these directly, same as classfile/reader_test.go does one
// package over.
const (
	cpTagUtf8        = 1
	cpTagClass       = 7
	cpTagFieldref    = 9
	cpTagMethodref   = 10
	cpTagNameAndType = 12
)

// classBuilder assembles a minimal, well-formed class file byte stream for
// engine-level tests without hand-maintaining a giant byte literal, the same
// approach classfile's own reader_test.go uses one package over.
type classBuilder struct {
	cpCount  uint16
	cpBytes  bytes.Buffer
	utf8Idx  map[string]uint16
	classIdx map[string]uint16
}

func newClassBuilder() *classBuilder {
	return &classBuilder{cpCount: 1, utf8Idx: map[string]uint16{}, classIdx: map[string]uint16{}}
}

func (b *classBuilder) u8(v uint8)   { b.cpBytes.WriteByte(v) }
func (b *classBuilder) u16(v uint16) { binary.Write(&b.cpBytes, binary.BigEndian, v) }

func (b *classBuilder) utf8(s string) uint16 {
	if idx, ok := b.utf8Idx[s]; ok {
		return idx
	}
	b.u8(cpTagUtf8)
	b.u16(uint16(len(s)))
	b.cpBytes.WriteString(s)
	idx := b.cpCount
	b.cpCount++
	b.utf8Idx[s] = idx
	return idx
}

func (b *classBuilder) class(name string) uint16 {
	if idx, ok := b.classIdx[name]; ok {
		return idx
	}
	nameIdx := b.utf8(name)
	b.u8(cpTagClass)
	b.u16(nameIdx)
	idx := b.cpCount
	b.cpCount++
	b.classIdx[name] = idx
	return idx
}

func (b *classBuilder) nameAndType(name, descriptor string) uint16 {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(descriptor)
	b.u8(cpTagNameAndType)
	b.u16(nameIdx)
	b.u16(descIdx)
	idx := b.cpCount
	b.cpCount++
	return idx
}

func (b *classBuilder) methodref(class, name, descriptor string) uint16 {
	classIdx := b.class(class)
	ntIdx := b.nameAndType(name, descriptor)
	b.u8(cpTagMethodref)
	b.u16(classIdx)
	b.u16(ntIdx)
	idx := b.cpCount
	b.cpCount++
	return idx
}

func (b *classBuilder) fieldref(class, name, descriptor string) uint16 {
	classIdx := b.class(class)
	ntIdx := b.nameAndType(name, descriptor)
	b.u8(cpTagFieldref)
	b.u16(classIdx)
	b.u16(ntIdx)
	idx := b.cpCount
	b.cpCount++
	return idx
}

// methodSpec describes one method table entry for build.
type methodSpec struct {
	name, descriptor string
	access           uint16
	codeAttr         []byte // nil for native/abstract methods
}

// build writes a class file carrying exactly the methods in methods.
func (b *classBuilder) build(thisName, superName string, methods []methodSpec) []byte {
	thisIdx := b.class(thisName)
	var superIdx uint16
	if superName != "" {
		superIdx = b.class(superName)
	}
	codeAttrNameIdx := b.utf8(classfile.AttrCode)

	type resolvedMethod struct {
		nameIdx, descIdx uint16
		access           uint16
		codeAttr         []byte
	}
	resolved := make([]resolvedMethod, len(methods))
	for i, m := range methods {
		resolved[i] = resolvedMethod{
			nameIdx:  b.utf8(m.name),
			descIdx:  b.utf8(m.descriptor),
			access:   m.access,
			codeAttr: m.codeAttr,
		}
	}

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, classfile.Magic)
	binary.Write(&out, binary.BigEndian, uint16(0))  // minor
	binary.Write(&out, binary.BigEndian, uint16(52)) // major: StackMapTable-era

	binary.Write(&out, binary.BigEndian, b.cpCount)
	out.Write(b.cpBytes.Bytes())

	binary.Write(&out, binary.BigEndian, uint16(classfile.AccPublic|classfile.AccSuper))
	binary.Write(&out, binary.BigEndian, thisIdx)
	binary.Write(&out, binary.BigEndian, superIdx)
	binary.Write(&out, binary.BigEndian, uint16(0)) // interfaces_count
	binary.Write(&out, binary.BigEndian, uint16(0)) // fields_count

	binary.Write(&out, binary.BigEndian, uint16(len(resolved)))
	for _, m := range resolved {
		binary.Write(&out, binary.BigEndian, m.access)
		binary.Write(&out, binary.BigEndian, m.nameIdx)
		binary.Write(&out, binary.BigEndian, m.descIdx)
		if m.codeAttr == nil {
			binary.Write(&out, binary.BigEndian, uint16(0))
		} else {
			binary.Write(&out, binary.BigEndian, uint16(1))
			binary.Write(&out, binary.BigEndian, codeAttrNameIdx)
			binary.Write(&out, binary.BigEndian, uint32(len(m.codeAttr)))
			out.Write(m.codeAttr)
		}
	}

	binary.Write(&out, binary.BigEndian, uint16(0)) // class attributes_count
	return out.Bytes()
}

// handlerSpec is one exception table row, with catchType resolved against
// the builder's constant pool ("" means catch-all).
type handlerSpec struct {
	startPC, endPC, handlerPC uint16
	catchType                 string
}

func (b *classBuilder) buildCodeAttr(maxStack, maxLocals uint16, code []byte, handlers []handlerSpec) []byte {
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, maxStack)
	binary.Write(&out, binary.BigEndian, maxLocals)
	binary.Write(&out, binary.BigEndian, uint32(len(code)))
	out.Write(code)
	binary.Write(&out, binary.BigEndian, uint16(len(handlers)))
	for _, h := range handlers {
		binary.Write(&out, binary.BigEndian, h.startPC)
		binary.Write(&out, binary.BigEndian, h.endPC)
		binary.Write(&out, binary.BigEndian, h.handlerPC)
		var catchIdx uint16
		if h.catchType != "" {
			catchIdx = b.class(h.catchType)
		}
		binary.Write(&out, binary.BigEndian, catchIdx)
	}
	binary.Write(&out, binary.BigEndian, uint16(0)) // Code attributes_count
	return out.Bytes()
}

// buildCodeAttrWithStackMap is buildCodeAttr plus a single StackMapTable
// attribute, for tests that exercise Pass B (verifyBytecodes) directly
// instead of the Pass-A fallback every plain buildCodeAttr class gets.
func (b *classBuilder) buildCodeAttrWithStackMap(maxStack, maxLocals uint16, code []byte, handlers []handlerSpec, stackMapBody []byte) []byte {
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, maxStack)
	binary.Write(&out, binary.BigEndian, maxLocals)
	binary.Write(&out, binary.BigEndian, uint32(len(code)))
	out.Write(code)
	binary.Write(&out, binary.BigEndian, uint16(len(handlers)))
	for _, h := range handlers {
		binary.Write(&out, binary.BigEndian, h.startPC)
		binary.Write(&out, binary.BigEndian, h.endPC)
		binary.Write(&out, binary.BigEndian, h.handlerPC)
		var catchIdx uint16
		if h.catchType != "" {
			catchIdx = b.class(h.catchType)
		}
		binary.Write(&out, binary.BigEndian, catchIdx)
	}
	stackMapNameIdx := b.utf8(classfile.AttrStackMapTable)
	binary.Write(&out, binary.BigEndian, uint16(1)) // Code attributes_count
	binary.Write(&out, binary.BigEndian, stackMapNameIdx)
	binary.Write(&out, binary.BigEndian, uint32(len(stackMapBody)))
	out.Write(stackMapBody)
	return out.Bytes()
}
