package vtype

import "testing"

func TestWellKnownIndicesPreloadedInOrder(t *testing.T) {
	in := NewInterner()
	want := []struct {
		idx  Index
		name string
	}{
		{ClassObject, "java/lang/Object"},
		{ClassString, "java/lang/String"},
		{ClassThrowable, "java/lang/Throwable"},
		{ClassClass, "java/lang/Class"},
		{ClassMethodType, "java/lang/invoke/MethodType"},
		{ClassMethodHandle, "java/lang/invoke/MethodHandle"},
	}
	for _, w := range want {
		if got := in.Name(w.idx); got != w.name {
			t.Errorf("Name(%d) = %q, want %q", w.idx, got, w.name)
		}
	}
}

func TestInternDedups(t *testing.T) {
	in := NewInterner()
	a := in.Intern("com/example/Foo")
	b := in.Intern("com/example/Foo")
	if a != b {
		t.Fatalf("interning the same name twice gave different indices: %d != %d", a, b)
	}
	c := in.Intern("com/example/Bar")
	if c == a {
		t.Fatal("different names should get different indices")
	}
}

func TestLookupMissing(t *testing.T) {
	in := NewInterner()
	if _, ok := in.Lookup("com/example/Nope"); ok {
		t.Fatal("Lookup of an un-interned name should report not-found")
	}
}
