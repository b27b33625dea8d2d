package libcbm

import (
	"math"

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/mat"
)

// bucket accumulates the coordinate (row, col, coefficient) triples of a
// single P×P transfer matrix during assembly (spec.md §9: "coordinate
// (COO) at construction"). Diagonal entries default to the retained
// fraction (1.0) and are only overridden by an explicit Set call; every
// other cell defaults to zero.
type bucket struct {
	p        int
	explicit map[[2]int]float64
	// uncapped holds row indices exempt from the ≤1 outflow-sum check, for
	// the reserved Input row: Input is a constant 1.0 source rather than a
	// depleting mass pool, so a growth op's Input row legitimately routes
	// out more than "100%" (an absolute tonnes increment, not a fraction).
	uncapped map[int]bool
}

func newBucket(p int, uncappedRows ...int) *bucket {
	b := &bucket{p: p, explicit: make(map[[2]int]float64)}
	if len(uncappedRows) > 0 {
		b.uncapped = make(map[int]bool, len(uncappedRows))
		for _, r := range uncappedRows {
			b.uncapped[r] = true
		}
	}
	return b
}

// set records a (row, col) -> coefficient triple, following the assembly
// surface's "SRC.SINK" column convention. Setting the same coordinate
// twice is a ConfigurationError (spec.md §4.1 duplicate-coordinate
// failure mode).
func (b *bucket) set(row, col int, coeff float64) error {
	if row < 0 || row >= b.p || col < 0 || col >= b.p {
		return configErrorf("bucket.set", "coordinate (%d,%d) is out of range for a %d-pool matrix", row, col, b.p)
	}
	if math.IsNaN(coeff) || math.IsInf(coeff, 0) {
		return domainErrorf("bucket.set", "non-finite coefficient %v at (%d,%d)", coeff, row, col)
	}
	key := [2]int{row, col}
	if _, ok := b.explicit[key]; ok {
		return configErrorf("bucket.set", "duplicate coordinate (%d,%d)", row, col)
	}
	b.explicit[key] = coeff
	return nil
}

// add accumulates onto a (row, col) coefficient rather than erroring on a
// repeat set; used when several independent parameter rows route flow
// into the same cell (e.g. several species' turnover proportions landing
// on the same DOM pool of a shared bucket).
func (b *bucket) add(row, col int, coeff float64) error {
	if row < 0 || row >= b.p || col < 0 || col >= b.p {
		return configErrorf("bucket.add", "coordinate (%d,%d) is out of range for a %d-pool matrix", row, col, b.p)
	}
	if math.IsNaN(coeff) || math.IsInf(coeff, 0) {
		return domainErrorf("bucket.add", "non-finite coefficient %v at (%d,%d)", coeff, row, col)
	}
	key := [2]int{row, col}
	b.explicit[key] += coeff
	return nil
}

// finalize materializes the bucket into a dense P×P transfer matrix,
// using ctessum/sparse's coordinate array as the intermediate
// representation (spec.md §9), filling in implied diagonals (1.0 unless
// explicitly set) and validating non-negativity / source-row-sum ≤ 1
// (spec.md §7 DomainError conditions).
func (b *bucket) finalize() (*mat.Dense, error) {
	coo := sparse.ZerosSparse(b.p, b.p)
	rowSum := make([]float64, b.p)
	diagSet := make([]bool, b.p)
	for rc, v := range b.explicit {
		row, col := rc[0], rc[1]
		if v < 0 {
			return nil, domainErrorf("bucket.finalize", "negative matrix coefficient %v at (%d,%d)", v, row, col)
		}
		coo.Set(v, row, col)
		if row == col {
			diagSet[row] = true
		} else {
			rowSum[row] += v
		}
	}
	for r := 0; r < b.p; r++ {
		if diagSet[r] {
			continue
		}
		retained := 1.0 - rowSum[r]
		if b.uncapped[r] {
			// An uncapped row (the Input row) is a constant source, not a
			// depleting pool: it always carries itself forward at 1.0
			// regardless of how much absolute mass its other cells route
			// out, rather than shrinking its own retained fraction.
			retained = 1.0
		} else if retained < -1e-9 {
			return nil, domainErrorf("bucket.finalize", "source pool %d routes %v (>1) of its mass out, implying a negative retained fraction %v", r, rowSum[r], retained)
		}
		coo.Set(retained, r, r)
	}
	for r := 0; r < b.p; r++ {
		if b.uncapped[r] {
			continue
		}
		total := rowSum[r]
		if diagSet[r] {
			total += coo.Get(r, r)
		} else {
			total += 1.0 - rowSum[r]
		}
		if total > 1.0+1e-9 {
			return nil, domainErrorf("bucket.finalize", "source pool %d routes %v (>1) of its mass out", r, total)
		}
	}
	flat := coo.ToDense()
	return mat.NewDense(b.p, b.p, flat), nil
}

// identityMatrix returns the P×P identity transfer matrix, used for
// disturbance_type == 0 and for no-op ops.
func identityMatrix(p int) *mat.Dense {
	m := mat.NewDense(p, p, nil)
	for i := 0; i < p; i++ {
		m.Set(i, i, 1.0)
	}
	return m
}
