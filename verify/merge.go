package verify

import (
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

// mergeSlot implements the per-slot half of the frame merge operator
// (spec §4.5). isLocal selects the locals-region rules (which tolerate
// widening a dead/incompatible local to Top) versus the stricter
// operand-stack rules (any non-reference mismatch is a hard failure).
func mergeSlot(lattice *vtype.Lattice, target, source vtype.Type, isLocal bool) (merged vtype.Type, changed bool, err error) {
	if target == source {
		return target, false, nil
	}

	// Base-type arrays are references here too, so mismatched ones reach
	// mergeReferenceSlot and widen to Object.
	isRef := func(t vtype.Type) bool { return t.IsReference() || t.IsBaseArray() }
	if isLocal {
		if target.IsSpecial() || source.IsSpecial() || !isRef(target) || !isRef(source) {
			if target.Kind == vtype.Top {
				return target, false, nil
			}
			return vtype.TopType, true, nil
		}
		if target.Kind == vtype.Object && target.Class == lattice.Interner.MustObject() && target.Arity == 0 {
			return target, false, nil
		}
		if source.Kind == vtype.Null {
			return target, false, nil
		}
		if target.Kind == vtype.Null {
			return source, true, nil
		}
		return mergeReferenceSlot(lattice, target, source)
	}

	if !isRef(target) || !isRef(source) {
		return vtype.Type{}, false, IncompatibleTypeError{Expected: target.String(), Found: source.String()}
	}
	return mergeReferenceSlot(lattice, target, source)
}

func mergeReferenceSlot(lattice *vtype.Lattice, target, source vtype.Type) (vtype.Type, bool, error) {
	if source.Kind == vtype.Null {
		return target, false, nil
	}
	if target.Kind == vtype.Null {
		return source, true, nil
	}
	if target.IsBaseArray() || source.IsBaseArray() {
		if target == source {
			return target, false, nil
		}
		return lattice.Interner.ObjectType(), true, nil
	}

	mergedClass, err := lattice.MergeClasses(vtype.Index(target.Class), vtype.Index(source.Class))
	if err != nil {
		return vtype.Type{}, false, err
	}
	arity := target.Arity
	if source.Arity < arity {
		arity = source.Arity
	}
	merged := vtype.Type{Kind: vtype.Object, Class: uint32(mergedClass), Arity: arity}
	if merged == target {
		return target, false, nil
	}
	return merged, true, nil
}

// mergeStacks merges the source frame into the (possibly unvisited)
// target frame at a branch edge (spec §4.4 step 3). If target has never
// been reached, it is initialized from source and the caller should
// enqueue it on the unwalked queue; otherwise this performs the
// slot-wise join and reports whether anything widened, so the caller can
// enqueue target on the rewalk queue.
func mergeStacks(lattice *vtype.Lattice, target, source *Frame) (firstVisit bool, changed bool, err error) {
	if !target.Live {
		target.CopyFrom(source)
		target.Live = true
		return true, false, nil
	}
	if target.StackTop != source.StackTop {
		return false, false, StackUnderflowError{PC: target.PC}
	}

	anyChanged := false
	for i := 0; i < target.LocalsCount; i++ {
		merged, ch, err := mergeSlot(lattice, target.Local(i), source.Local(i), true)
		if err != nil {
			return false, false, err
		}
		if ch {
			target.SetLocal(i, merged)
			anyChanged = true
		}
	}
	for i := 0; i < target.StackTop; i++ {
		merged, ch, err := mergeSlot(lattice, target.StackSlot(i), source.StackSlot(i), false)
		if err != nil {
			return false, false, err
		}
		if ch {
			target.SetStackSlot(i, merged)
			anyChanged = true
		}
	}
	if source.UninitializedThis {
		target.UninitializedThis = true
	}
	return false, anyChanged, nil
}
