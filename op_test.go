package libcbm

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestNewOpAcceptsMatchingDimensions(t *testing.T) {
	m := identityMatrix(3)
	op, err := NewOp("ok", ProcessDecay, []*mat.Dense{m}, []int{0, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if op.Name != "ok" || op.Process != ProcessDecay {
		t.Fatalf("unexpected op %+v", op)
	}
}

func TestNewOpRejectsWrongMatrixDimensions(t *testing.T) {
	m := identityMatrix(2)
	if _, err := NewOp("bad", ProcessDecay, []*mat.Dense{m}, []int{0}, 3); err == nil {
		t.Fatal("expected a dimension error for a 2x2 matrix in a P=3 op")
	}
}

func TestNewOpRejectsOutOfRangeMatrixIndex(t *testing.T) {
	m := identityMatrix(3)
	if _, err := NewOp("bad", ProcessDecay, []*mat.Dense{m}, []int{5}, 3); err == nil {
		t.Fatal("expected a dimension error for an out-of-range matrix index")
	}
}

func TestIdentityOpBroadcastsToAllStands(t *testing.T) {
	op := IdentityOp("noop", ProcessDisturbance, 3, 5)
	if len(op.MatrixIndex) != 5 {
		t.Fatalf("len(MatrixIndex) = %d, want 5", len(op.MatrixIndex))
	}
	for i, idx := range op.MatrixIndex {
		if idx != 0 {
			t.Fatalf("MatrixIndex[%d] = %d, want 0", i, idx)
		}
	}
}
