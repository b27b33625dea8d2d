package libcbm

import "testing"

func TestInternerAssignsStableDenseIDs(t *testing.T) {
	in := NewInterner()
	a := in.Intern("a")
	b := in.Intern("b")
	aAgain := in.Intern("a")
	if a != 0 || b != 1 {
		t.Fatalf("Intern(a)=%d, Intern(b)=%d, want 0, 1", a, b)
	}
	if aAgain != a {
		t.Fatalf("Intern(a) a second time = %d, want %d", aAgain, a)
	}
	if in.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", in.Len())
	}
	if in.Key(b) != "b" {
		t.Fatalf("Key(%d) = %q, want %q", b, in.Key(b), "b")
	}
}
