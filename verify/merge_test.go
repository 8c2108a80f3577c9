package verify

import (
	"testing"

	"github.com/eclipse-openj9/openj9-sub059/resolver"
	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

func newTestLattice(t *testing.T) (*vtype.Lattice, *resolver.MapResolver) {
	t.Helper()
	res := resolver.NewMapResolver()
	if err := res.RegisterClass("java/lang/Number", "java/lang/Object"); err != nil {
		t.Fatalf("RegisterClass Number: %v", err)
	}
	if err := res.RegisterClass("java/lang/Integer", "java/lang/Number"); err != nil {
		t.Fatalf("RegisterClass Integer: %v", err)
	}
	if err := res.RegisterClass("java/lang/Long", "java/lang/Number"); err != nil {
		t.Fatalf("RegisterClass Long: %v", err)
	}
	in := vtype.NewInterner()
	return &vtype.Lattice{Interner: in, Resolver: res}, res
}

func TestMergeSlotLocalsWidenIncompatibleToTop(t *testing.T) {
	lattice, _ := newTestLattice(t)
	target := vtype.Type{Kind: vtype.Int}
	source := vtype.Type{Kind: vtype.Float}

	merged, changed, err := mergeSlot(lattice, target, source, true)
	if err != nil {
		t.Fatalf("mergeSlot: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true widening Int/Float local to Top")
	}
	if merged.Kind != vtype.Top {
		t.Fatalf("merged = %v, want Top", merged)
	}
}

func TestMergeSlotStackIncompatibleIsHardError(t *testing.T) {
	lattice, _ := newTestLattice(t)
	target := vtype.Type{Kind: vtype.Int}
	source := vtype.Type{Kind: vtype.Float}

	_, _, err := mergeSlot(lattice, target, source, false)
	if err == nil {
		t.Fatal("expected IncompatibleTypeError merging Int/Float on the stack")
	}
	if _, ok := err.(IncompatibleTypeError); !ok {
		t.Fatalf("got %T, want IncompatibleTypeError", err)
	}
}

func TestMergeSlotNullMergesToReference(t *testing.T) {
	lattice, _ := newTestLattice(t)
	in := lattice.Interner
	strIdx, _ := in.Lookup("java/lang/String")
	str := vtype.Type{Kind: vtype.Object, Class: uint32(strIdx)}
	null := vtype.Type{Kind: vtype.Null}

	merged, changed, err := mergeSlot(lattice, str, null, false)
	if err != nil {
		t.Fatalf("mergeSlot(str, null): %v", err)
	}
	if changed {
		t.Fatal("merging Null into an already-reference target should not change it")
	}
	if merged != str {
		t.Fatalf("merged = %v, want %v", merged, str)
	}

	merged2, changed2, err := mergeSlot(lattice, null, str, false)
	if err != nil {
		t.Fatalf("mergeSlot(null, str): %v", err)
	}
	if !changed2 {
		t.Fatal("widening a Null target to a reference source should report changed")
	}
	if merged2 != str {
		t.Fatalf("merged2 = %v, want %v", merged2, str)
	}
}

func TestMergeSlotBaseArrayMismatchWidensToObject(t *testing.T) {
	lattice, _ := newTestLattice(t)
	intArr := vtype.Type{Kind: vtype.IntArray, Arity: 1}
	longArr := vtype.Type{Kind: vtype.LongArray, Arity: 1}

	merged, changed, err := mergeSlot(lattice, intArr, longArr, false)
	if err != nil {
		t.Fatalf("mergeSlot: %v", err)
	}
	if !changed {
		t.Fatal("expected changed=true widening mismatched base arrays")
	}
	if merged != lattice.Interner.ObjectType() {
		t.Fatalf("merged = %v, want java/lang/Object", merged)
	}
}

func TestMergeClassesConvergesOnCommonAncestor(t *testing.T) {
	lattice, _ := newTestLattice(t)
	in := lattice.Interner
	intIdx := in.Intern("java/lang/Integer")
	longIdx := in.Intern("java/lang/Long")

	merged, err := lattice.MergeClasses(intIdx, longIdx)
	if err != nil {
		t.Fatalf("MergeClasses: %v", err)
	}
	if got := in.Name(merged); got != "java/lang/Number" {
		t.Fatalf("MergeClasses(Integer, Long) = %s, want java/lang/Number", got)
	}
}

func TestMergeClassesFallsBackToObjectWhenUnrelated(t *testing.T) {
	lattice, res := newTestLattice(t)
	if err := res.RegisterClass("java/lang/Thread", "java/lang/Object"); err != nil {
		t.Fatalf("RegisterClass Thread: %v", err)
	}
	in := lattice.Interner
	intIdx := in.Intern("java/lang/Integer")
	threadIdx := in.Intern("java/lang/Thread")

	merged, err := lattice.MergeClasses(intIdx, threadIdx)
	if err != nil {
		t.Fatalf("MergeClasses: %v", err)
	}
	if got := in.Name(merged); got != "java/lang/Object" {
		t.Fatalf("MergeClasses(Integer, Thread) = %s, want java/lang/Object", got)
	}
}

func TestMergeStacksFirstVisitCopies(t *testing.T) {
	lattice, _ := newTestLattice(t)
	source := NewFrame(1, 1)
	source.SetLocal(0, vtype.Type{Kind: vtype.Int})
	source.Live = true

	target := NewFrame(1, 1)
	firstVisit, changed, err := mergeStacks(lattice, target, source)
	if err != nil {
		t.Fatalf("mergeStacks: %v", err)
	}
	if !firstVisit {
		t.Fatal("expected firstVisit=true for a dead target")
	}
	if changed {
		t.Fatal("a first visit is not itself a widening change")
	}
	if !target.Live {
		t.Fatal("target should be marked Live after first visit")
	}
	if got := target.Local(0); got.Kind != vtype.Int {
		t.Fatalf("target local 0 = %v, want Int", got)
	}
}

func TestMergeStacksSubsequentVisitWidens(t *testing.T) {
	lattice, _ := newTestLattice(t)
	in := lattice.Interner
	intIdx := in.Intern("java/lang/Integer")
	longIdx := in.Intern("java/lang/Long")

	target := NewFrame(1, 0)
	target.SetLocal(0, vtype.Type{Kind: vtype.Object, Class: uint32(intIdx)})
	target.Live = true

	source := NewFrame(1, 0)
	source.SetLocal(0, vtype.Type{Kind: vtype.Object, Class: uint32(longIdx)})
	source.Live = true

	firstVisit, changed, err := mergeStacks(lattice, target, source)
	if err != nil {
		t.Fatalf("mergeStacks: %v", err)
	}
	if firstVisit {
		t.Fatal("target was already live; should not be firstVisit")
	}
	if !changed {
		t.Fatal("expected changed=true merging Integer/Long local to Number")
	}
	if got := target.Local(0); in.Name(vtype.Index(got.Class)) != "java/lang/Number" {
		t.Fatalf("merged local = %v, want java/lang/Number", got)
	}
}

func TestMergeStacksUninitializedThisPropagatesOneWay(t *testing.T) {
	lattice, _ := newTestLattice(t)
	target := NewFrame(0, 0)
	target.Live = true
	target.UninitializedThis = false

	source := NewFrame(0, 0)
	source.Live = true
	source.UninitializedThis = true

	if _, _, err := mergeStacks(lattice, target, source); err != nil {
		t.Fatalf("mergeStacks: %v", err)
	}
	if !target.UninitializedThis {
		t.Fatal("UninitializedThis should propagate from source to target")
	}

	// A second merge from an already-initialized source must not clear it.
	source2 := NewFrame(0, 0)
	source2.Live = true
	source2.UninitializedThis = false
	if _, _, err := mergeStacks(lattice, target, source2); err != nil {
		t.Fatalf("mergeStacks: %v", err)
	}
	if !target.UninitializedThis {
		t.Fatal("UninitializedThis must never be cleared once set (one-way OR)")
	}
}

func TestMergeStacksStackDepthMismatchIsUnderflow(t *testing.T) {
	lattice, _ := newTestLattice(t)
	target := NewFrame(0, 2)
	target.Push(vtype.Type{Kind: vtype.Int})
	target.Live = true

	source := NewFrame(0, 2)
	source.Push(vtype.Type{Kind: vtype.Int})
	source.Push(vtype.Type{Kind: vtype.Int})
	source.Live = true

	_, _, err := mergeStacks(lattice, target, source)
	if err == nil {
		t.Fatal("expected an error merging frames with different stack depths")
	}
	if _, ok := err.(StackUnderflowError); !ok {
		t.Fatalf("got %T, want StackUnderflowError", err)
	}
}
