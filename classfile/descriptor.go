package classfile

import "fmt"

// FieldType is a neutral, pre-interning decoding of a single field
// descriptor (JVMS §4.3.2): a base kind, the class name for Lobject; and
// Larray, and an array arity. The verify package turns this into a
// vtype.Type once it has an Interner to assign the class name an index.
type FieldType struct {
	Base      byte   // one of 'B','C','D','F','I','J','L','S','Z'; the element kind for arrays
	ClassName string // set only when Base == 'L'
	Arity     uint8  // number of leading '[' for array types
}

// IsObject reports whether the descriptor names a class or array type as
// opposed to a primitive.
func (f FieldType) IsObject() bool {
	return f.Base == 'L' || f.Arity > 0
}

// parseFieldType parses one field descriptor starting at s[i], returning
// the decoded type and the index just past it.
func parseFieldType(s string, i int) (FieldType, int, error) {
	arity := uint8(0)
	for i < len(s) && s[i] == '[' {
		arity++
		i++
	}
	if i >= len(s) {
		return FieldType{}, 0, fmt.Errorf("classfile: truncated descriptor %q", s)
	}
	switch s[i] {
	case 'B', 'C', 'D', 'F', 'I', 'J', 'S', 'Z':
		return FieldType{Base: s[i], Arity: arity}, i + 1, nil
	case 'L':
		end := i + 1
		for end < len(s) && s[end] != ';' {
			end++
		}
		if end >= len(s) {
			return FieldType{}, 0, fmt.Errorf("classfile: unterminated class descriptor in %q", s)
		}
		return FieldType{Base: 'L', ClassName: s[i+1 : end], Arity: arity}, end + 1, nil
	default:
		return FieldType{}, 0, fmt.Errorf("classfile: bad descriptor byte %q in %q", s[i], s)
	}
}

// ParseFieldDescriptor decodes a single field descriptor, e.g.
// "[Ljava/lang/String;" or "I".
func ParseFieldDescriptor(s string) (FieldType, error) {
	ft, i, err := parseFieldType(s, 0)
	if err != nil {
		return FieldType{}, err
	}
	if i != len(s) {
		return FieldType{}, fmt.Errorf("classfile: trailing data in field descriptor %q", s)
	}
	return ft, nil
}

// ParseMethodDescriptor decodes a method descriptor, e.g.
// "(IJLjava/lang/String;)V", returning the argument count (wide types
// counted as two slots, matching JVM local-variable slot accounting) and
// the parsed return type. The argument types themselves are not returned;
// ArgumentTypes decodes those.
func ParseMethodDescriptor(s string) (argSlots int, ret FieldType, err error) {
	if len(s) == 0 || s[0] != '(' {
		return 0, FieldType{}, fmt.Errorf("classfile: method descriptor %q missing '('", s)
	}
	i := 1
	for i < len(s) && s[i] != ')' {
		var ft FieldType
		ft, i, err = parseFieldType(s, i)
		if err != nil {
			return 0, FieldType{}, err
		}
		if ft.Arity == 0 && (ft.Base == 'J' || ft.Base == 'D') {
			argSlots += 2
		} else {
			argSlots++
		}
	}
	if i >= len(s) || s[i] != ')' {
		return 0, FieldType{}, fmt.Errorf("classfile: method descriptor %q missing ')'", s)
	}
	i++
	if i < len(s) && s[i] == 'V' && i == len(s)-1 {
		return argSlots, FieldType{Base: 'V'}, nil
	}
	ret, tail, err := parseFieldType(s, i)
	if err != nil {
		return 0, FieldType{}, err
	}
	if tail != len(s) {
		return 0, FieldType{}, fmt.Errorf("classfile: trailing data in method descriptor %q", s)
	}
	return argSlots, ret, nil
}

// ArgumentTypes decodes just the parameter list of a method descriptor,
// in left-to-right order, for callers (invoke* verification) that need
// the full per-argument type list rather than just a slot count.
func ArgumentTypes(descriptor string) ([]FieldType, error) {
	if len(descriptor) == 0 || descriptor[0] != '(' {
		return nil, fmt.Errorf("classfile: method descriptor %q missing '('", descriptor)
	}
	var args []FieldType
	i := 1
	for i < len(descriptor) && descriptor[i] != ')' {
		ft, next, err := parseFieldType(descriptor, i)
		if err != nil {
			return nil, err
		}
		args = append(args, ft)
		i = next
	}
	return args, nil
}
