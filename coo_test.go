package libcbm

import (
	"math"
	"testing"
)

func TestBucketFinalizeFillsImpliedDiagonal(t *testing.T) {
	b := newBucket(3)
	if err := b.set(0, 1, 0.25); err != nil {
		t.Fatal(err)
	}
	m, err := b.finalize()
	if err != nil {
		t.Fatal(err)
	}
	if got := m.At(0, 0); math.Abs(got-0.75) > 1e-12 {
		t.Fatalf("retained diagonal at (0,0) = %v, want 0.75", got)
	}
	if got := m.At(0, 1); math.Abs(got-0.25) > 1e-12 {
		t.Fatalf("m[0,1] = %v, want 0.25", got)
	}
	if got := m.At(1, 1); got != 1.0 {
		t.Fatalf("untouched row's diagonal = %v, want 1.0", got)
	}
	if got := m.At(2, 2); got != 1.0 {
		t.Fatalf("untouched row's diagonal = %v, want 1.0", got)
	}
}

func TestBucketSetRejectsDuplicateCoordinate(t *testing.T) {
	b := newBucket(2)
	if err := b.set(0, 1, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := b.set(0, 1, 0.2); err == nil {
		t.Fatal("expected an error setting the same coordinate twice")
	}
}

func TestBucketAddAccumulates(t *testing.T) {
	b := newBucket(2)
	if err := b.add(0, 1, 0.1); err != nil {
		t.Fatal(err)
	}
	if err := b.add(0, 1, 0.2); err != nil {
		t.Fatal(err)
	}
	m, err := b.finalize()
	if err != nil {
		t.Fatal(err)
	}
	if got := m.At(0, 1); math.Abs(got-0.3) > 1e-12 {
		t.Fatalf("m[0,1] = %v, want 0.3", got)
	}
}

func TestBucketFinalizeRejectsOveroutflow(t *testing.T) {
	b := newBucket(2)
	if err := b.add(0, 1, 0.6); err != nil {
		t.Fatal(err)
	}
	if err := b.set(0, 0, 0.6); err != nil {
		t.Fatal(err)
	}
	if _, err := b.finalize(); err == nil {
		t.Fatal("expected an error for a source row routing more than 100% of its mass")
	}
}

func TestBucketSetRejectsNonFiniteCoefficient(t *testing.T) {
	b := newBucket(2)
	if err := b.set(0, 1, math.NaN()); err == nil {
		t.Fatal("expected an error for a non-finite coefficient")
	}
}

func TestBucketSetRejectsOutOfRangeCoordinate(t *testing.T) {
	b := newBucket(2)
	if err := b.set(2, 0, 0.1); err == nil {
		t.Fatal("expected an error for an out-of-range coordinate")
	}
}

func TestIdentityMatrixIsIdentity(t *testing.T) {
	m := identityMatrix(4)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if got := m.At(i, j); got != want {
				t.Fatalf("identity[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}
