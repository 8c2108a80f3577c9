package classfile

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

// classBuilder assembles a minimal, well-formed class file byte stream for
// reader tests without hand-maintaining a giant byte literal.
type classBuilder struct {
	buf      bytes.Buffer
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
	b.u8(tagUtf8)
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
	b.u8(tagClass)
	b.u16(nameIdx)
	idx := b.cpCount
	b.cpCount++
	b.classIdx[name] = idx
	return idx
}

func (b *classBuilder) nameAndType(name, descriptor string) uint16 {
	nameIdx := b.utf8(name)
	descIdx := b.utf8(descriptor)
	b.u8(tagNameAndType)
	b.u16(nameIdx)
	b.u16(descIdx)
	idx := b.cpCount
	b.cpCount++
	return idx
}

func (b *classBuilder) methodref(class, name, descriptor string) uint16 {
	classIdx := b.class(class)
	ntIdx := b.nameAndType(name, descriptor)
	b.u8(tagMethodref)
	b.u16(classIdx)
	b.u16(ntIdx)
	idx := b.cpCount
	b.cpCount++
	return idx
}

// build writes a one-method class file. codeAttr, if non-nil, is embedded
// verbatim as the method's Code attribute body.
func (b *classBuilder) build(thisName, superName, methodName, methodDesc string, methodAccess uint16, codeAttr []byte) []byte {
	thisIdx := b.class(thisName)
	superIdx := b.class(superName)
	nameIdx := b.utf8(methodName)
	descIdx := b.utf8(methodDesc)
	codeAttrNameIdx := b.utf8(AttrCode)

	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, Magic)
	binary.Write(&out, binary.BigEndian, uint16(0)) // minor
	binary.Write(&out, binary.BigEndian, uint16(52)) // major

	binary.Write(&out, binary.BigEndian, b.cpCount)
	out.Write(b.cpBytes.Bytes())

	binary.Write(&out, binary.BigEndian, uint16(AccPublic|AccSuper)) // access_flags
	binary.Write(&out, binary.BigEndian, thisIdx)
	binary.Write(&out, binary.BigEndian, superIdx)
	binary.Write(&out, binary.BigEndian, uint16(0)) // interfaces_count
	binary.Write(&out, binary.BigEndian, uint16(0)) // fields_count

	binary.Write(&out, binary.BigEndian, uint16(1)) // methods_count
	binary.Write(&out, binary.BigEndian, methodAccess)
	binary.Write(&out, binary.BigEndian, nameIdx)
	binary.Write(&out, binary.BigEndian, descIdx)

	if codeAttr == nil {
		binary.Write(&out, binary.BigEndian, uint16(0)) // attributes_count
	} else {
		binary.Write(&out, binary.BigEndian, uint16(1))
		binary.Write(&out, binary.BigEndian, codeAttrNameIdx)
		binary.Write(&out, binary.BigEndian, uint32(len(codeAttr)))
		out.Write(codeAttr)
	}

	binary.Write(&out, binary.BigEndian, uint16(0)) // class attributes_count
	return out.Bytes()
}

func buildCodeAttr(maxStack, maxLocals uint16, code []byte, handlers []ExceptionHandler) []byte {
	var out bytes.Buffer
	binary.Write(&out, binary.BigEndian, maxStack)
	binary.Write(&out, binary.BigEndian, maxLocals)
	binary.Write(&out, binary.BigEndian, uint32(len(code)))
	out.Write(code)
	binary.Write(&out, binary.BigEndian, uint16(len(handlers)))
	for _, h := range handlers {
		binary.Write(&out, binary.BigEndian, h.StartPC)
		binary.Write(&out, binary.BigEndian, h.EndPC)
		binary.Write(&out, binary.BigEndian, h.HandlerPC)
		binary.Write(&out, binary.BigEndian, uint16(0)) // catch_type: catch-all
	}
	binary.Write(&out, binary.BigEndian, uint16(0)) // Code attributes_count
	return out.Bytes()
}

func TestReadClassBasic(t *testing.T) {
	b := newClassBuilder()
	code := []byte{0x2a, 0xb1} // aload_0, return
	attr := buildCodeAttr(1, 1, code, nil)
	raw := b.build("com/example/Widget", "java/lang/Object", "<init>", "()V", AccPublic, attr)

	cls, err := ReadClass(bytes.NewReader(raw), ReadOptions{})
	require.NoError(t, err)
	require.Equal(t, "com/example/Widget", cls.Name)
	require.Equal(t, "java/lang/Object", cls.SuperclassName)
	require.Len(t, cls.Methods, 1)

	m := cls.Methods[0]
	require.Equal(t, "<init>", m.Name)
	require.Equal(t, "()V", m.Descriptor)
	require.True(t, m.IsInit())
	require.Equal(t, uint16(1), m.MaxStack)
	require.Equal(t, uint16(1), m.MaxLocals)
	require.Equal(t, code, m.Code)
	require.NotNil(t, cls.Pool)
}

func TestReadClassExceptionTable(t *testing.T) {
	b := newClassBuilder()
	code := make([]byte, 10)
	handlers := []ExceptionHandler{{StartPC: 0, EndPC: 5, HandlerPC: 5}}
	attr := buildCodeAttr(2, 1, code, handlers)
	raw := b.build("com/example/Widget", "java/lang/Object", "run", "()V", AccPublic, attr)

	cls, err := ReadClass(bytes.NewReader(raw), ReadOptions{})
	require.NoError(t, err)
	m := cls.Methods[0]
	require.Len(t, m.ExceptionTable, 1)
	require.Equal(t, "", m.ExceptionTable[0].CatchType) // catch-all
}

func TestReadClassAbstractMethodHasNoCode(t *testing.T) {
	b := newClassBuilder()
	raw := b.build("com/example/Widget", "java/lang/Object", "doIt", "()V", AccPublic|AccAbstract, nil)

	cls, err := ReadClass(bytes.NewReader(raw), ReadOptions{})
	require.NoError(t, err)
	m := cls.Methods[0]
	require.True(t, m.IsAbstract())
	require.Nil(t, m.Code)
}

func TestReadClassBadMagic(t *testing.T) {
	raw := []byte{0, 0, 0, 0}
	_, err := ReadClass(bytes.NewReader(raw), ReadOptions{})
	require.Error(t, err)
}

func TestReadClassExcludeStackMapTable(t *testing.T) {
	b := newClassBuilder()
	code := []byte{0x2a, 0xb1}
	attr := buildCodeAttr(1, 1, code, nil)
	raw := b.build("com/example/Widget", "java/lang/Object", "<init>", "()V", AccPublic, attr)

	opts := ReadOptions{ExcludeAttributes: map[string]bool{AttrStackMapTable: true}}
	cls, err := ReadClass(bytes.NewReader(raw), opts)
	require.NoError(t, err)
	require.Nil(t, cls.Methods[0].StackMapTable)
}

func TestConstantPoolMethodRef(t *testing.T) {
	b := newClassBuilder()
	idx := b.methodref("java/lang/Object", "<init>", "()V")
	code := []byte{0x2a, 0xb1}
	attr := buildCodeAttr(1, 1, code, nil)
	raw := b.build("com/example/Widget", "java/lang/Object", "<init>", "()V", AccPublic, attr)

	cls, err := ReadClass(bytes.NewReader(raw), ReadOptions{})
	require.NoError(t, err)

	ref, isInterface, err := cls.Pool.MethodRef(idx)
	require.NoError(t, err)
	require.False(t, isInterface)
	require.Equal(t, "java/lang/Object", ref.Class)
	require.Equal(t, "<init>", ref.Name)
	require.Equal(t, "()V", ref.Descriptor)
}
