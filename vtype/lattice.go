package vtype

import (
	"errors"

	"github.com/eclipse-openj9/openj9-sub059/resolver"
)

// AssignResult is the outcome of an IsAssignable query (spec §4.1).
type AssignResult uint8

const (
	Yes AssignResult = iota
	No
	NeedsLinkRecord
)

func (r AssignResult) String() string {
	switch r {
	case Yes:
		return "yes"
	case No:
		return "no"
	case NeedsLinkRecord:
		return "needs-link-record"
	default:
		return "unknown"
	}
}

// ErrOutOfMemory is returned (never wrapped, so errors.Is works) when a
// resolver call fails because the embedding runtime is out of memory; this
// is the only resolver failure IsAssignable/MergeClasses do not treat as
// "answer No" or "fall back to Object" (spec §4.1, §7 "OOM is reported as
// a distinct status and never as IncompatibleType").
var ErrOutOfMemory = errors.New("vtype: out of memory resolving class")

// Lattice bundles the collaborators IsAssignable and MergeClasses need: the
// per-class interning table, the injected ClassResolver, and (when
// class_relationship_verifier is enabled, spec §6.3) the deferred-link
// recorder that record-only mode populates instead of loading eagerly.
type Lattice struct {
	Interner   *Interner
	Resolver   resolver.Resolver
	Deferred   *resolver.DeferredLinkRecorder // nil unless record-only mode is active
	RecordOnly bool
}

// classInfo loads (or, in record-only mode, defers) class hierarchy
// information for the class at idx. deferredTo is non-empty exactly when
// the caller should treat the query as NeedsLinkRecord instead of
// resolving it.
func (l *Lattice) classInfo(idx Index, counterpart string) (info resolver.ClassInfo, deferredTo string, err error) {
	name := l.Interner.Name(idx)
	if l.RecordOnly && counterpart != "" {
		l.Deferred.Record(name, counterpart)
		return resolver.ClassInfo{}, counterpart, nil
	}
	info, status, err := l.Resolver.GetClass(nil, name)
	if status == resolver.OutOfMemory {
		return resolver.ClassInfo{}, "", ErrOutOfMemory
	}
	return info, "", err
}

// IsAssignable decides whether src can be assigned to a slot declared as
// dst, applying the ten rules of spec §4.1 in order.
func (l *Lattice) IsAssignable(src, dst Type) (AssignResult, error) {
	// 1. src == dst.
	if src == dst {
		return Yes, nil
	}
	// 2. NULL is assignable to every reference.
	if src.Kind == Null && dst.IsReference() {
		return Yes, nil
	}
	// 3. A special tag or base type, already caught above if equal, is
	// never assignable to anything else.
	if src.IsSpecial() || src.IsBase() {
		return No, nil
	}
	// 4. Everything is assignable to Object at arity 0.
	if dst.Kind == Object && dst.Arity == 0 && l.Interner.Name(Index(dst.Class)) == "java/lang/Object" {
		return Yes, nil
	}
	// 5. Nothing (other than NULL, handled above) is assignable to NULL.
	if dst.Kind == Null {
		return No, nil
	}

	srcArity, dstArity := arityOf(src), arityOf(dst)

	// 6. Widening the array arity down is never allowed.
	if dstArity > srcArity {
		return No, nil
	}

	// 7. dst has strictly fewer dimensions than src: src is some array,
	// dst only makes sense if it's Object, Cloneable, or Serializable.
	if dstArity < srcArity {
		if dst.IsBaseArray() {
			return No, nil
		}
		if dst.Kind == Object && dst.Arity == 0 {
			dstName := l.Interner.Name(Index(dst.Class))
			if dstName == "java/lang/Object" {
				return Yes, nil
			}
			if dstName == NameCloneable || dstName == NameSerializable {
				info, deferred, err := l.classInfo(Index(dst.Class), "")
				if err != nil {
					return No, err
				}
				if deferred != "" {
					return NeedsLinkRecord, nil
				}
				if info.IsInterface {
					return Yes, nil
				}
			}
		}
		return No, nil
	}

	// 8. Equal arities, either side a base-element array: kinds already
	// compared unequal in rule 1, so this is a hard mismatch.
	if src.IsBaseArray() || dst.IsBaseArray() {
		return No, nil
	}

	// 9. dst is Object at the same arity as src: always assignable.
	if dst.Kind == Object {
		dstName := l.Interner.Name(Index(dst.Class))
		if dstName == "java/lang/Object" {
			return Yes, nil
		}
	}

	// 10. Both are loaded classes/interfaces at the same arity: resolve
	// and test the subtype relation.
	srcName := l.Interner.Name(Index(src.Class))
	dstName := l.Interner.Name(Index(dst.Class))
	if l.RecordOnly {
		l.Deferred.Record(srcName, dstName)
		return NeedsLinkRecord, nil
	}

	dstInfo, deferred, err := l.classInfo(Index(dst.Class), srcName)
	if err != nil {
		return No, err
	}
	if deferred != "" {
		return NeedsLinkRecord, nil
	}
	if dstInfo.IsInterface {
		return Yes, nil
	}

	srcInfo, deferred2, err := l.classInfo(Index(src.Class), dstName)
	if err != nil {
		return No, err
	}
	if deferred2 != "" {
		return NeedsLinkRecord, nil
	}

	if l.Resolver.IsSameOrSuperclassOf(dstInfo, srcInfo) {
		return Yes, nil
	}
	return No, nil
}

func arityOf(t Type) uint8 {
	if t.Kind == Object || t.IsBaseArray() {
		return t.Arity
	}
	return 0
}

// MergeClasses computes the least upper bound class of a and b by walking
// up both superclass chains in lockstep (deeper one first) until they
// converge (spec §4.1). A recoverable resolver failure (not found,
// inaccessible) widens to java/lang/Object rather than propagating, so
// that a single unloadable ancestor does not abort an entire merge pass;
// only ErrOutOfMemory propagates (spec §7).
func (l *Lattice) MergeClasses(a, b Index) (Index, error) {
	if a == b {
		return a, nil
	}

	aInfo, aDeferred, err := l.classInfo(a, l.Interner.Name(b))
	if err != nil {
		if errors.Is(err, ErrOutOfMemory) {
			return 0, err
		}
		return l.objectIndex(), nil
	}
	if aDeferred != "" {
		// Record-only mode: the eventual answer is deferred to link time;
		// widen to Object now so verification can proceed speculatively.
		return l.objectIndex(), nil
	}

	bInfo, bDeferred, err := l.classInfo(b, l.Interner.Name(a))
	if err != nil {
		if errors.Is(err, ErrOutOfMemory) {
			return 0, err
		}
		return l.objectIndex(), nil
	}
	if bDeferred != "" {
		return l.objectIndex(), nil
	}

	aChain, bChain := aInfo.Superchain, bInfo.Superchain
	// Align depths: drop from the front of the deeper chain.
	for len(aChain) > len(bChain) {
		aChain = aChain[1:]
	}
	for len(bChain) > len(aChain) {
		bChain = bChain[1:]
	}
	for i := range aChain {
		if aChain[i] == bChain[i] {
			return l.Interner.Intern(aChain[i]), nil
		}
	}
	return l.objectIndex(), nil
}

func (l *Lattice) objectIndex() Index {
	idx, ok := l.Interner.Lookup("java/lang/Object")
	if !ok {
		return l.Interner.Intern("java/lang/Object")
	}
	return idx
}
