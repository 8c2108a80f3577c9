package verify

import (
	"testing"

	"github.com/eclipse-openj9/openj9-sub059/vtype"
)

func TestFramePushPopRoundTrip(t *testing.T) {
	f := NewFrame(2, 3)
	f.SetLocal(0, vtype.Type{Kind: vtype.Int})
	f.SetLocal(1, vtype.Type{Kind: vtype.Long})

	if got := f.Local(0); got.Kind != vtype.Int {
		t.Fatalf("local 0 = %v, want Int", got)
	}
	if got := f.Local(1); got.Kind != vtype.Long {
		t.Fatalf("local 1 = %v, want Long", got)
	}

	if err := f.Push(vtype.Type{Kind: vtype.Object, Class: 7}); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if err := f.Push(vtype.Type{Kind: vtype.Float}); err != nil {
		t.Fatalf("Push: %v", err)
	}

	top, err := f.Peek()
	if err != nil {
		t.Fatalf("Peek: %v", err)
	}
	if top.Kind != vtype.Float {
		t.Fatalf("Peek = %v, want Float", top)
	}

	got, err := f.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got.Kind != vtype.Float {
		t.Fatalf("Pop = %v, want Float", got)
	}
	got, err = f.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if got.Kind != vtype.Object || got.Class != 7 {
		t.Fatalf("Pop = %v, want Object#7", got)
	}
	if f.StackTop != 0 {
		t.Fatalf("StackTop = %d, want 0", f.StackTop)
	}
}

func TestFrameStackOverflowUnderflow(t *testing.T) {
	f := NewFrame(0, 1)
	if err := f.Push(vtype.Type{Kind: vtype.Int}); err != nil {
		t.Fatalf("first Push: %v", err)
	}
	if err := f.Push(vtype.Type{Kind: vtype.Int}); err == nil {
		t.Fatal("second Push: want StackOverflowError, got nil")
	} else if _, ok := err.(StackOverflowError); !ok {
		t.Fatalf("second Push: want StackOverflowError, got %T", err)
	}

	f2 := NewFrame(0, 1)
	if _, err := f2.Pop(); err == nil {
		t.Fatal("Pop on empty stack: want StackUnderflowError, got nil")
	} else if _, ok := err.(StackUnderflowError); !ok {
		t.Fatalf("Pop on empty stack: want StackUnderflowError, got %T", err)
	}
	if _, err := f2.Peek(); err == nil {
		t.Fatal("Peek on empty stack: want StackUnderflowError, got nil")
	}
}

func TestFrameStackSlotShuffle(t *testing.T) {
	f := NewFrame(0, 3)
	f.Push(vtype.Type{Kind: vtype.Int})
	f.Push(vtype.Type{Kind: vtype.Float})
	f.SetStackSlot(0, vtype.Type{Kind: vtype.Long})
	if got := f.StackSlot(0); got.Kind != vtype.Long {
		t.Fatalf("StackSlot(0) = %v, want Long", got)
	}
	if got := f.StackSlot(1); got.Kind != vtype.Float {
		t.Fatalf("StackSlot(1) = %v, want Float", got)
	}
}

// TestFrameCloneIndependence guards the vtype.Word packing fix: Clone must
// deep-copy the packed Slots buffer, not alias the source's backing array.
func TestFrameCloneIndependence(t *testing.T) {
	f := NewFrame(1, 1)
	f.SetLocal(0, vtype.Type{Kind: vtype.Int})
	f.Push(vtype.Type{Kind: vtype.Object, Class: 42})

	clone := f.Clone()
	clone.SetLocal(0, vtype.Type{Kind: vtype.Long})
	clone.SetStackSlot(0, vtype.Type{Kind: vtype.Object, Class: 99})

	if got := f.Local(0); got.Kind != vtype.Int {
		t.Fatalf("original local 0 mutated by clone: got %v", got)
	}
	if got := f.StackSlot(0); got.Kind != vtype.Object || got.Class != 42 {
		t.Fatalf("original stack slot 0 mutated by clone: got %v", got)
	}
	if got := clone.Local(0); got.Kind != vtype.Long {
		t.Fatalf("clone local 0 = %v, want Long", got)
	}
}

func TestFrameCopyFromReusesBackingArray(t *testing.T) {
	src := NewFrame(1, 1)
	src.SetLocal(0, vtype.Type{Kind: vtype.Double})
	src.Push(vtype.Type{Kind: vtype.Int})
	src.PC = 12

	dst := NewFrame(1, 1)
	backing := dst.Slots
	dst.CopyFrom(src)

	if &dst.Slots[0] != &backing[0] {
		t.Fatal("CopyFrom reallocated Slots when capacity already sufficed")
	}
	if got := dst.Local(0); got.Kind != vtype.Double {
		t.Fatalf("dst local 0 = %v, want Double", got)
	}
	if dst.PC != 12 || dst.StackTop != 1 {
		t.Fatalf("dst PC/StackTop = %d/%d, want 12/1", dst.PC, dst.StackTop)
	}
}
