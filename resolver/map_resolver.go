package resolver

import "fmt"

// MapResolver is an in-memory reference Resolver backed by a map of
// pre-registered ClassInfo values. It never loads a class it wasn't told
// about, returning NotYetLoaded instead — suitable for tests and the CLI's
// offline verification of a handful of .class files, mirroring the
// teacher's practice of stubbing an in-memory "module" rather than a full
// dynamic linker (wasm.ResolveFunc in the single-file cmd/wasm-run case
// just errors on any import).
type MapResolver struct {
	classes map[string]ClassInfo
}

// NewMapResolver returns a MapResolver already seeded with the well-known
// roots every verification needs (spec §6.5): java/lang/Object, String,
// Throwable, Class, MethodType and MethodHandle, plus the Cloneable and
// Serializable interfaces.
func NewMapResolver() *MapResolver {
	r := &MapResolver{classes: make(map[string]ClassInfo)}
	r.Register(ClassInfo{Name: "java/lang/Object", Depth: 0, Superchain: []string{"java/lang/Object"}})
	r.registerSimple("java/lang/String", false)
	r.registerSimple("java/lang/Throwable", false)
	r.registerSimple("java/lang/Class", false)
	r.registerSimple("java/lang/invoke/MethodType", false)
	r.registerSimple("java/lang/invoke/MethodHandle", false)
	r.registerInterface("java/lang/Cloneable")
	r.registerInterface("java/io/Serializable")
	return r
}

func (r *MapResolver) registerSimple(name string, isInterface bool) {
	r.Register(ClassInfo{
		Name:        name,
		Depth:       1,
		Superchain:  []string{name, "java/lang/Object"},
		IsInterface: isInterface,
	})
}

func (r *MapResolver) registerInterface(name string) {
	r.Register(ClassInfo{
		Name:        name,
		Depth:       0,
		Superchain:  []string{name},
		IsInterface: true,
	})
}

// Register adds or replaces a class's hierarchy information.
func (r *MapResolver) Register(info ClassInfo) {
	r.classes[info.Name] = info
}

// RegisterClass is a convenience for the common case: a concrete class
// extending a single already-registered superclass.
func (r *MapResolver) RegisterClass(name, super string) error {
	sup, ok := r.classes[super]
	if !ok {
		return fmt.Errorf("resolver: unknown superclass %q for %q", super, name)
	}
	chain := make([]string, 0, sup.Depth+2)
	chain = append(chain, name)
	chain = append(chain, sup.Superchain...)
	r.Register(ClassInfo{Name: name, Depth: sup.Depth + 1, Superchain: chain})
	return nil
}

// RegisterInterface registers a standalone interface (interfaces have no
// superclass chain beyond themselves for the purposes of this resolver).
func (r *MapResolver) RegisterInterface(name string) {
	r.registerInterface(name)
}

func (r *MapResolver) GetClass(loader any, name string) (ClassInfo, LoadStatus, error) {
	info, ok := r.classes[name]
	if !ok {
		return ClassInfo{}, NotYetLoaded, fmt.Errorf("%w: %s", ErrNotYetLoaded, name)
	}
	return info, Loaded, nil
}

func (r *MapResolver) IsSameOrSuperclassOf(a, b ClassInfo) bool {
	if a.Name == b.Name {
		return true
	}
	if a.Depth > b.Depth {
		return false
	}
	// b.Superchain[b.Depth-a.Depth] is b's ancestor at a's depth.
	idx := b.Depth - a.Depth
	if idx < 0 || idx >= len(b.Superchain) {
		return false
	}
	return b.Superchain[idx] == a.Name
}
