package bcmap

import "fmt"

// VKind is a StackMapTable verification_type_info tag (JVMS §4.7.4).
type VKind byte

const (
	VTop VKind = iota
	VInteger
	VFloat
	VDouble
	VLong
	VNull
	VUninitializedThis
	VObject       // Class constant pool index in CPIndex
	VUninitialized // bytecode offset of the originating `new` in Offset
)

// VType is one decoded verification_type_info slot.
type VType struct {
	Kind    VKind
	CPIndex uint16 // valid when Kind == VObject
	Offset  uint16 // valid when Kind == VUninitialized
}

func (v VType) isWide() bool { return v.Kind == VLong || v.Kind == VDouble }

// RawFrame is one decoded StackMapTable entry, in absolute pc and fully
// expanded locals/stack (no deltas), ready for the verify package to turn
// into an abstract frame once it has a ConstantPool and Interner handy.
type RawFrame struct {
	PC     int
	Locals []VType
	Stack  []VType
}

type byteReader struct {
	b []byte
	i int
}

func (r *byteReader) u8() (byte, error) {
	if r.i >= len(r.b) {
		return 0, fmt.Errorf("bcmap: truncated StackMapTable")
	}
	v := r.b[r.i]
	r.i++
	return v, nil
}

func (r *byteReader) u16() (uint16, error) {
	if r.i+2 > len(r.b) {
		return 0, fmt.Errorf("bcmap: truncated StackMapTable")
	}
	v := be16(r.b[r.i:])
	r.i += 2
	return v, nil
}

func (r *byteReader) verificationType() (VType, error) {
	tag, err := r.u8()
	if err != nil {
		return VType{}, err
	}
	switch tag {
	case 0:
		return VType{Kind: VTop}, nil
	case 1:
		return VType{Kind: VInteger}, nil
	case 2:
		return VType{Kind: VFloat}, nil
	case 3:
		return VType{Kind: VDouble}, nil
	case 4:
		return VType{Kind: VLong}, nil
	case 5:
		return VType{Kind: VNull}, nil
	case 6:
		return VType{Kind: VUninitializedThis}, nil
	case 7:
		idx, err := r.u16()
		if err != nil {
			return VType{}, err
		}
		return VType{Kind: VObject, CPIndex: idx}, nil
	case 8:
		off, err := r.u16()
		if err != nil {
			return VType{}, err
		}
		return VType{Kind: VUninitialized, Offset: off}, nil
	default:
		return VType{}, fmt.Errorf("bcmap: unknown verification_type_info tag %d", tag)
	}
}

// DecodeStackMapTable decodes the compressed delta-frame attribute body
// into a dense sequence of absolute, fully-expanded frames (spec §4.2,
// SPEC_FULL §4.10). initialLocals is the implicit frame at pc 0 (derived
// from the method signature) that the first SAME/APPEND/CHOP delta is
// relative to.
func DecodeStackMapTable(data []byte, initialLocals []VType) ([]RawFrame, error) {
	r := &byteReader{b: data}
	count, err := r.u16()
	if err != nil {
		return nil, err
	}

	frames := make([]RawFrame, 0, count)
	locals := append([]VType(nil), initialLocals...)
	pc := -1 // first frame's offset_delta is added directly, not +1

	for i := uint16(0); i < count; i++ {
		tag, err := r.u8()
		if err != nil {
			return nil, err
		}

		var offsetDelta int
		var stack []VType

		switch {
		case tag <= 63: // SAME
			offsetDelta = int(tag)
		case tag <= 127: // SAME_LOCALS_1_STACK_ITEM
			offsetDelta = int(tag) - 64
			v, err := r.verificationType()
			if err != nil {
				return nil, err
			}
			stack = []VType{v}
		case tag == 247: // SAME_LOCALS_1_STACK_ITEM_EXTENDED
			d, err := r.u16()
			if err != nil {
				return nil, err
			}
			offsetDelta = int(d)
			v, err := r.verificationType()
			if err != nil {
				return nil, err
			}
			stack = []VType{v}
		case tag >= 248 && tag <= 250: // CHOP
			d, err := r.u16()
			if err != nil {
				return nil, err
			}
			offsetDelta = int(d)
			k := int(251 - tag)
			if k > len(locals) {
				return nil, fmt.Errorf("bcmap: StackMapTable CHOP %d exceeds locals count %d", k, len(locals))
			}
			locals = locals[:len(locals)-k]
		case tag == 251: // SAME_EXTENDED
			d, err := r.u16()
			if err != nil {
				return nil, err
			}
			offsetDelta = int(d)
		case tag >= 252 && tag <= 254: // APPEND
			d, err := r.u16()
			if err != nil {
				return nil, err
			}
			offsetDelta = int(d)
			k := int(tag - 251)
			for j := 0; j < k; j++ {
				v, err := r.verificationType()
				if err != nil {
					return nil, err
				}
				locals = append(locals, v)
			}
		case tag == 255: // FULL
			d, err := r.u16()
			if err != nil {
				return nil, err
			}
			offsetDelta = int(d)
			nLocals, err := r.u16()
			if err != nil {
				return nil, err
			}
			newLocals := make([]VType, 0, nLocals)
			for j := uint16(0); j < nLocals; j++ {
				v, err := r.verificationType()
				if err != nil {
					return nil, err
				}
				newLocals = append(newLocals, v)
			}
			locals = newLocals
			nStack, err := r.u16()
			if err != nil {
				return nil, err
			}
			stack = make([]VType, 0, nStack)
			for j := uint16(0); j < nStack; j++ {
				v, err := r.verificationType()
				if err != nil {
					return nil, err
				}
				stack = append(stack, v)
			}
		default:
			return nil, fmt.Errorf("bcmap: impossible StackMapTable tag %d", tag)
		}

		if i == 0 {
			pc = offsetDelta
		} else {
			pc += offsetDelta + 1
		}

		frames = append(frames, RawFrame{
			PC:     pc,
			Locals: append([]VType(nil), locals...),
			Stack:  stack,
		})
	}
	return frames, nil
}

// EncodeStackMapTable re-compresses a dense frame sequence into the
// delta-frame attribute body, choosing the most specific tag available
// at each step (spec's round-trip-decode algebraic law, §8.2).
func EncodeStackMapTable(frames []RawFrame, initialLocals []VType) ([]byte, error) {
	var out []byte
	putU16 := func(v uint16) { out = append(out, byte(v>>8), byte(v)) }
	putVType := func(v VType) {
		out = append(out, byte(v.Kind))
		switch v.Kind {
		case VObject:
			putU16(v.CPIndex)
		case VUninitialized:
			putU16(v.Offset)
		}
	}

	putU16(uint16(len(frames)))

	locals := append([]VType(nil), initialLocals...)
	prevPC := -1

	for i, f := range frames {
		var offsetDelta int
		if i == 0 {
			offsetDelta = f.PC
		} else {
			offsetDelta = f.PC - prevPC - 1
		}
		prevPC = f.PC

		sameLocals := sameVTypes(locals, f.Locals)

		switch {
		case sameLocals && len(f.Stack) == 0 && offsetDelta <= 63:
			out = append(out, byte(offsetDelta))
		case sameLocals && len(f.Stack) == 1 && offsetDelta <= 63:
			out = append(out, byte(64+offsetDelta))
			putVType(f.Stack[0])
		case sameLocals && len(f.Stack) == 1:
			out = append(out, 247)
			putU16(uint16(offsetDelta))
			putVType(f.Stack[0])
		case sameLocals && len(f.Stack) == 0:
			out = append(out, 251)
			putU16(uint16(offsetDelta))
		case isChop(locals, f.Locals) && len(f.Stack) == 0:
			k := len(locals) - len(f.Locals)
			out = append(out, byte(251-k))
			putU16(uint16(offsetDelta))
		case isAppend(locals, f.Locals) && len(f.Stack) == 0:
			k := len(f.Locals) - len(locals)
			out = append(out, byte(251+k))
			putU16(uint16(offsetDelta))
			for _, v := range f.Locals[len(locals):] {
				putVType(v)
			}
		default:
			out = append(out, 255)
			putU16(uint16(offsetDelta))
			putU16(uint16(len(f.Locals)))
			for _, v := range f.Locals {
				putVType(v)
			}
			putU16(uint16(len(f.Stack)))
			for _, v := range f.Stack {
				putVType(v)
			}
		}
		locals = append([]VType(nil), f.Locals...)
	}
	return out, nil
}

func sameVTypes(a, b []VType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func isChop(old, new_ []VType) bool {
	if len(new_) >= len(old) || len(old)-len(new_) > 3 {
		return false
	}
	return sameVTypes(old[:len(new_)], new_)
}

func isAppend(old, new_ []VType) bool {
	if len(new_) <= len(old) || len(new_)-len(old) > 3 {
		return false
	}
	return sameVTypes(old, new_[:len(old)])
}
