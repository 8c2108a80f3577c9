package vtype

import "fmt"

// Kind discriminates the cases of an abstract type (spec §3.1). Unlike the
// source verifier's hand-rolled word layout, Kind is a plain Go tagged sum;
// Word (see word.go) is the packed, cache-dense rendering used inside
// per-method frame slots.
type Kind uint8

const (
	// Top is the supremum of the lattice: it matches every widening and
	// is the second half of every wide (long/double) slot.
	Top Kind = iota
	// Null is assignable to every reference type.
	Null
	// Int, Float are the single-slot primitive categories that can live
	// on the operand stack or in a local.
	Int
	Float
	// Long, Double occupy two consecutive local slots, the second set to
	// Top when the value is stored; on the operand stack they take one
	// slot, with no Top half pushed.
	Long
	Double

	// BaseArray* are arrays of primitive element kind. Arity counts
	// array dimensions (e.g. int[][] has Arity 2).
	BoolArray
	ByteArray
	CharArray
	ShortArray
	IntArray
	LongArray
	FloatArray
	DoubleArray

	// Object is a class or interface reference, or an array of one
	// (Arity > 0, Class names the element type).
	Object

	// UninitNew is the result of a `new` at bytecode offset PC, not yet
	// passed to a constructor.
	UninitNew
	// UninitThis is the receiver of a constructor frame before a chained
	// <init> call succeeds.
	UninitThis
)

// Type is the abstract type of one frame slot.
type Type struct {
	Kind  Kind
	Class uint32 // class index (Object, UninitThis) or new-pc (UninitNew)
	Arity uint8  // array dimension count; 0 for non-arrays
}

// TopType, NullType and the four scalar types are the kind-only singletons used constantly enough
// to warrant package-level values.
var (
	TopType  = Type{Kind: Top}
	NullType = Type{Kind: Null}
	IntType  = Type{Kind: Int}
	LongType = Type{Kind: Long}

	FloatType  = Type{Kind: Float}
	DoubleType = Type{Kind: Double}
)

// IsBase reports whether t is a scalar primitive (Int/Float/Long/Double) or
// Top — i.e. it carries no class index and no special tag.
func (t Type) IsBase() bool {
	switch t.Kind {
	case Top, Int, Float, Long, Double:
		return true
	default:
		return false
	}
}

// IsBaseArray reports whether t is an array of a primitive element kind.
func (t Type) IsBaseArray() bool {
	switch t.Kind {
	case BoolArray, ByteArray, CharArray, ShortArray, IntArray, LongArray, FloatArray, DoubleArray:
		return true
	default:
		return false
	}
}

// IsReference reports whether t can occupy a slot that the verifier treats
// as an object reference: Null, Object, or either uninitialized tag.
func (t Type) IsReference() bool {
	switch t.Kind {
	case Null, Object, UninitNew, UninitThis:
		return true
	default:
		return false
	}
}

// IsWide reports whether t occupies two consecutive slots.
func (t Type) IsWide() bool {
	return t.Kind == Long || t.Kind == Double
}

// IsSpecial reports whether t carries one of the two uninitialized tags,
// which merge only with themselves (spec §3.1 invariants).
func (t Type) IsSpecial() bool {
	return t.Kind == UninitNew || t.Kind == UninitThis
}

// WithArity returns a copy of t with its Arity field replaced.
func (t Type) WithArity(arity uint8) Type {
	t.Arity = arity
	return t
}

// ElementOf returns the type one array dimension down from an Object or
// base-type array. Callers must only invoke this on arrays (Arity > 0 for
// Object, or any BaseArray kind).
func (t Type) ElementOf() Type {
	if t.Kind == Object {
		if t.Arity == 0 {
			return t
		}
		return t.WithArity(t.Arity - 1)
	}
	if t.IsBaseArray() && t.Arity > 1 {
		return t.WithArity(t.Arity - 1)
	}
	// Arity-1 base array: element is the scalar primitive itself.
	switch t.Kind {
	case BoolArray, ByteArray:
		return Type{Kind: Int}
	case CharArray, ShortArray, IntArray:
		return Type{Kind: Int}
	case LongArray:
		return Type{Kind: Long}
	case FloatArray:
		return Type{Kind: Float}
	case DoubleArray:
		return Type{Kind: Double}
	default:
		return t
	}
}

func (k Kind) String() string {
	switch k {
	case Top:
		return "top"
	case Null:
		return "null"
	case Int:
		return "int"
	case Float:
		return "float"
	case Long:
		return "long"
	case Double:
		return "double"
	case BoolArray:
		return "bool[]"
	case ByteArray:
		return "byte[]"
	case CharArray:
		return "char[]"
	case ShortArray:
		return "short[]"
	case IntArray:
		return "int[]"
	case LongArray:
		return "long[]"
	case FloatArray:
		return "float[]"
	case DoubleArray:
		return "double[]"
	case Object:
		return "object"
	case UninitNew:
		return "uninitialized(new)"
	case UninitThis:
		return "uninitialized(this)"
	default:
		return fmt.Sprintf("<unknown kind %d>", uint8(k))
	}
}

func (t Type) String() string {
	switch t.Kind {
	case Object:
		s := fmt.Sprintf("class#%d", t.Class)
		for i := uint8(0); i < t.Arity; i++ {
			s += "[]"
		}
		return s
	case UninitNew:
		return fmt.Sprintf("uninitialized(new@%d)", t.Class)
	case UninitThis:
		return fmt.Sprintf("uninitialized(this, class#%d)", t.Class)
	default:
		if t.IsBaseArray() {
			s := t.Kind.String()
			for i := uint8(1); i < t.Arity; i++ {
				s += "[]"
			}
			return s
		}
		return t.Kind.String()
	}
}
