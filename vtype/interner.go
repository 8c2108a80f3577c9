package vtype

// Well-known class indices, preloaded in this order before any per-method
// work begins (spec §3.2, §6.5).
const (
	ClassObject Index = iota
	ClassString
	ClassThrowable
	ClassClass
	ClassMethodType
	ClassMethodHandle

	numWellKnown
)

var wellKnownNames = [numWellKnown]string{
	ClassObject:       "java/lang/Object",
	ClassString:       "java/lang/String",
	ClassThrowable:    "java/lang/Throwable",
	ClassClass:        "java/lang/Class",
	ClassMethodType:   "java/lang/invoke/MethodType",
	ClassMethodHandle: "java/lang/invoke/MethodHandle",
}

// Interface class names the lattice treats specially in rule 7 of
// IsAssignable (spec §4.1): arrays widen to these two at arity 0 once the
// resolver confirms the named class is an interface.
const (
	NameCloneable  = "java/lang/Cloneable"
	NameSerializable = "java/io/Serializable"
)

// Index is a dense index into an Interner's class-name table.
type Index uint32

// Interner is a growable, append-only table mapping class-name strings to
// dense indices (spec §3.2, C2). Intern and Lookup go through a map, where
// the source verifier scans its table linearly with an early
// pointer-equality fast path for names found inside the class being
// verified.
//
// Go strings already give us the "zero-copy when sliced from the class
// bytes, copied into an arena when synthesised" distinction for free (a
// Go string header just aliases the backing array), so Interner does not
// need the source's separate ROM/arena storage modes.
type Interner struct {
	names []string
	index map[string]Index
}

// NewInterner returns an Interner with the six well-known classes preloaded
// at indices 0..5, in the order spec §6.5 requires.
func NewInterner() *Interner {
	in := &Interner{
		names: make([]string, 0, numWellKnown+16),
		index: make(map[string]Index, numWellKnown+16),
	}
	for _, name := range wellKnownNames {
		in.Intern(name)
	}
	return in
}

// Intern returns the dense index for name, adding it to the table if this
// is the first time it has been seen.
func (in *Interner) Intern(name string) Index {
	if idx, ok := in.index[name]; ok {
		return idx
	}
	idx := Index(len(in.names))
	in.names = append(in.names, name)
	in.index[name] = idx
	logger.Printf("interned class %q at index %d", name, idx)
	return idx
}

// Lookup returns the index for name without adding it, and whether it was
// found.
func (in *Interner) Lookup(name string) (Index, bool) {
	idx, ok := in.index[name]
	return idx, ok
}

// Name returns the class name a previously-interned index refers to. It
// panics on an out-of-range index, which indicates a verifier bug (every
// Word carrying a class index must have been produced by Intern on this
// same Interner).
func (in *Interner) Name(idx Index) string {
	return in.names[idx]
}

// MustObject returns the preloaded index of java/lang/Object as a uint32,
// for call sites that compare it against a Type.Class field.
func (in *Interner) MustObject() uint32 {
	return uint32(ClassObject)
}

// ObjectType returns the Type value for java/lang/Object at arity 0, the
// target of every "everything widens to Object" merge (spec §4.5).
func (in *Interner) ObjectType() Type {
	return Type{Kind: Object, Class: uint32(ClassObject)}
}
