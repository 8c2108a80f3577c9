package resolver

import "testing"

func TestMapResolverWellKnown(t *testing.T) {
	r := NewMapResolver()
	info, status, err := r.GetClass(nil, "java/lang/String")
	if err != nil {
		t.Fatalf("GetClass(String): %v", err)
	}
	if status != Loaded {
		t.Fatalf("status = %v, want Loaded", status)
	}
	if info.Superclass() != "java/lang/Object" {
		t.Fatalf("Superclass() = %q, want java/lang/Object", info.Superclass())
	}
}

func TestMapResolverNotYetLoaded(t *testing.T) {
	r := NewMapResolver()
	_, status, err := r.GetClass(nil, "com/example/Missing")
	if status != NotYetLoaded {
		t.Fatalf("status = %v, want NotYetLoaded", status)
	}
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRegisterClassAndSuperclassOf(t *testing.T) {
	r := NewMapResolver()
	if err := r.RegisterClass("com/example/A", "java/lang/Object"); err != nil {
		t.Fatal(err)
	}
	if err := r.RegisterClass("com/example/B", "com/example/A"); err != nil {
		t.Fatal(err)
	}

	a, _, err := r.GetClass(nil, "com/example/A")
	if err != nil {
		t.Fatal(err)
	}
	b, _, err := r.GetClass(nil, "com/example/B")
	if err != nil {
		t.Fatal(err)
	}
	obj, _, err := r.GetClass(nil, "java/lang/Object")
	if err != nil {
		t.Fatal(err)
	}

	if !r.IsSameOrSuperclassOf(a, b) {
		t.Error("A should be a superclass of B")
	}
	if !r.IsSameOrSuperclassOf(obj, b) {
		t.Error("Object should be a superclass of B")
	}
	if r.IsSameOrSuperclassOf(b, a) {
		t.Error("B should not be a superclass of A")
	}
	if !r.IsSameOrSuperclassOf(a, a) {
		t.Error("a class should be same-or-superclass of itself")
	}
}

func TestDeferredLinkRecorderDedup(t *testing.T) {
	d := NewDeferredLinkRecorder()
	if !d.Record("com/example/A", "com/example/B") {
		t.Error("first record of a pair should report new")
	}
	if d.Record("com/example/A", "com/example/B") {
		t.Error("duplicate record should report not-new")
	}
	if len(d.Pairs()) != 1 {
		t.Fatalf("len(Pairs()) = %d, want 1", len(d.Pairs()))
	}
}
