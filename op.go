package libcbm

import (
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Op is a batch of sparse P×P transfer matrices plus an index vector of
// length N selecting which matrix each stand uses (spec.md §3 "Matrix
// operation (Op)"). Matrices are interned per parameter bucket rather
// than allocated per stand (spec.md §9).
type Op struct {
	Name        string
	Process     ProcessTag
	Matrices    []*mat.Dense
	MatrixIndex []int
}

// NewOp validates that every MatrixIndex entry addresses a matrix in
// Matrices and that every matrix is P×P, returning a DimensionError
// otherwise.
func NewOp(name string, process ProcessTag, matrices []*mat.Dense, matrixIndex []int, p int) (*Op, error) {
	for _, m := range matrices {
		r, c := m.Dims()
		if r != p || c != p {
			return nil, dimErrorf("NewOp:"+name, p, r)
		}
	}
	for i, idx := range matrixIndex {
		if idx < 0 || idx >= len(matrices) {
			return nil, dimErrorf("NewOp:"+name+":matrixIndex["+strconv.Itoa(i)+"]", len(matrices)-1, idx)
		}
	}
	return &Op{Name: name, Process: process, Matrices: matrices, MatrixIndex: matrixIndex}, nil
}

// IdentityOp returns a no-op Op over n stands sharing a single P×P
// identity matrix, a cheap placeholder when a process has nothing to do
// for any stand.
func IdentityOp(name string, process ProcessTag, p, n int) *Op {
	idx := make([]int, n)
	return &Op{Name: name, Process: process, Matrices: []*mat.Dense{identityMatrix(p)}, MatrixIndex: idx}
}
