package verify

import (
	"fmt"

	"github.com/eclipse-openj9/openj9-sub059/bcmap"
	"github.com/eclipse-openj9/openj9-sub059/classfile"
)

// Method runs the method driver (spec §4.9, C11): skip native/abstract
// methods (they carry no Code attribute), then either check the class's
// declared StackMapTable (Pass B) or, absent one or when
// ignore_stack_maps is set, synthesize frames from scratch (Pass A). A
// Pass-B failure on a pre-StackMapTable-era class file is retried with
// Pass A unless no_fallback is set (spec §4.9 step 4).
func (st *State) Method(class *classfile.Class, method *classfile.Method) error {
	if method.IsNative() || method.IsAbstract() {
		return nil
	}

	ms := st.beginMethod()

	bmap, err := bcmap.DiscoverBranches(method.Code, method.ExceptionTable)
	if err != nil {
		return wrapDetail(class, method, err)
	}

	ignoreMaps := st.Config.Options.has(OptIgnoreStackMaps)
	hasMap := len(method.StackMapTable) > 0

	if !ignoreMaps && hasMap {
		initialLocals, err := entryVTypesForDecode(class, method)
		if err != nil {
			return wrapDetail(class, method, err)
		}
		rawFrames, err := bcmap.DecodeStackMapTable(method.StackMapTable, initialLocals)
		if err != nil {
			return wrapDetail(class, method, BadBytecodeError{Message: err.Error()})
		}
		if err := verifyBytecodes(class, method, ms.Lattice, st.Config, ms.Arena, rawFrames); err != nil {
			allowFallback := !st.Config.Options.has(OptNoFallback) && class.Major < classfile.MajorVersionStackMapTables
			if !allowFallback {
				return wrapDetail(class, method, err)
			}
			ms.Arena.Reset()
			if _, ferr := simulateStack(class, method, ms.Lattice, st.Config, ms.Arena, bmap); ferr != nil {
				return wrapDetail(class, method, ferr)
			}
		}
		return nil
	}

	if _, err := simulateStack(class, method, ms.Lattice, st.Config, ms.Arena, bmap); err != nil {
		return wrapDetail(class, method, err)
	}
	return nil
}

// entryVTypesForDecode builds the implicit frame-0 locals a class's
// first StackMapTable delta is relative to (spec §4.2): one
// verification_type_info per logical value (`this`, then each descriptor
// argument in order), the same shape JVMS 4.7.4 describes.
func entryVTypesForDecode(class *classfile.Class, method *classfile.Method) ([]bcmap.VType, error) {
	var locals []bcmap.VType

	if !method.IsStatic() {
		if method.IsInit() && class.Name != "java/lang/Object" {
			locals = append(locals, bcmap.VType{Kind: bcmap.VUninitializedThis})
		} else {
			idx, ok := class.Pool.FindClass(class.Name)
			if !ok {
				return nil, fmt.Errorf("verify: no constant pool Class entry for %s", class.Name)
			}
			locals = append(locals, bcmap.VType{Kind: bcmap.VObject, CPIndex: idx})
		}
	}

	args, err := classfile.ArgumentTypes(method.Descriptor)
	if err != nil {
		return nil, err
	}
	for _, a := range args {
		v, err := vtypeForArg(class, a)
		if err != nil {
			return nil, err
		}
		locals = append(locals, v)
	}
	return locals, nil
}

func vtypeForArg(class *classfile.Class, ft classfile.FieldType) (bcmap.VType, error) {
	switch {
	case ft.Arity > 0:
		idx, ok := class.Pool.FindClass(arrayDescriptor(ft))
		if !ok {
			return bcmap.VType{}, fmt.Errorf("verify: no constant pool Class entry for array descriptor")
		}
		return bcmap.VType{Kind: bcmap.VObject, CPIndex: idx}, nil
	case ft.Base == 'L':
		idx, ok := class.Pool.FindClass(ft.ClassName)
		if !ok {
			return bcmap.VType{}, fmt.Errorf("verify: no constant pool Class entry for %s", ft.ClassName)
		}
		return bcmap.VType{Kind: bcmap.VObject, CPIndex: idx}, nil
	case ft.Base == 'J':
		return bcmap.VType{Kind: bcmap.VLong}, nil
	case ft.Base == 'F':
		return bcmap.VType{Kind: bcmap.VFloat}, nil
	case ft.Base == 'D':
		return bcmap.VType{Kind: bcmap.VDouble}, nil
	default: // B, C, I, S, Z
		return bcmap.VType{Kind: bcmap.VInteger}, nil
	}
}

func arrayDescriptor(ft classfile.FieldType) string {
	s := ""
	for i := uint8(0); i < ft.Arity; i++ {
		s += "["
	}
	if ft.Base == 'L' {
		return s + "L" + ft.ClassName + ";"
	}
	return s + string(ft.Base)
}

// wrapDetail converts a raw typed error from either pass into the
// latched §7 Detail record cmd/classverify reports.
func wrapDetail(class *classfile.Class, method *classfile.Method, err error) error {
	if err == nil {
		return nil
	}
	if d, ok := err.(*Detail); ok {
		return d
	}
	return &Detail{
		Class:   class.Name,
		Method:  method.Name,
		PC:      pcOf(err),
		Kind:    kindOf(err),
		Message: err.Error(),
	}
}

func pcOf(err error) int {
	switch e := err.(type) {
	case StackUnderflowError:
		return e.PC
	case StackOverflowError:
		return e.PC
	case BadBytecodeError:
		return e.PC
	case UninitializedReceiverError:
		return e.PC
	case AccessDeniedError:
		return e.PC
	default:
		return 0
	}
}
