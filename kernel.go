package libcbm

import "gonum.org/v1/gonum/mat"

// ComputePools applies an ordered list of ops to an N×P pool matrix in
// place (spec.md §4.1). For each op in order, for each stand i with
// enabled[i] true, stand i's pool row is replaced by pools[i]·M where M
// is the matrix op.Matrices[op.MatrixIndex[i]]. Stands with enabled[i]
// false are left untouched. Op order is significant; iteration over
// stands within one op is independent and associative and may be
// parallelized by an implementation without changing the observable
// result (spec.md §5).
func ComputePools(ops []*Op, pools *PoolMatrix, enabled []bool) error {
	n := pools.N()
	if len(enabled) != n {
		return dimErrorf("ComputePools:enabled", n, len(enabled))
	}
	p := pools.P()
	var result mat.VecDense
	for _, op := range ops {
		if len(op.MatrixIndex) != n {
			return dimErrorf("ComputePools:"+op.Name+":matrixIndex", n, len(op.MatrixIndex))
		}
		for i := 0; i < n; i++ {
			if !enabled[i] {
				continue
			}
			m := op.Matrices[op.MatrixIndex[i]]
			if r, c := m.Dims(); r != p || c != p {
				return dimErrorf("ComputePools:"+op.Name, p, r)
			}
			row := pools.Row(i)
			vec := mat.NewVecDense(p, append([]float64(nil), row...))
			result.MulVec(m.T(), vec)
			copy(row, result.RawVector().Data)
		}
	}
	return nil
}

// ComputeFlux applies ops exactly like ComputePools, but before each
// vector-matrix product it records, for every flux indicator whose
// ProcessTag matches the op, the mass transferred out of the indicator's
// source pools into its sink pools: for source s in Sources and sink k
// in Sinks, flux[i,indicator] += pools[i][s] * M[s,k] (s != k), i.e. the
// off-diagonal (outbound, non-retained) entries of diag(pools[i])·(M−I)
// (spec.md §4.1).
func ComputeFlux(ops []*Op, indicators *FluxIndicatorSet, pools *PoolMatrix, flux *FluxMatrix, enabled []bool) error {
	n := pools.N()
	if len(enabled) != n {
		return dimErrorf("ComputeFlux:enabled", n, len(enabled))
	}
	if flux.N() != n {
		return dimErrorf("ComputeFlux:flux", n, flux.N())
	}
	p := pools.P()
	var result mat.VecDense
	for _, op := range ops {
		if len(op.MatrixIndex) != n {
			return dimErrorf("ComputeFlux:"+op.Name+":matrixIndex", n, len(op.MatrixIndex))
		}
		matching := matchingIndicators(indicators, op.Process)
		for i := 0; i < n; i++ {
			if !enabled[i] {
				continue
			}
			m := op.Matrices[op.MatrixIndex[i]]
			if r, c := m.Dims(); r != p || c != p {
				return dimErrorf("ComputeFlux:"+op.Name, p, r)
			}
			row := pools.Row(i)
			if len(matching) > 0 {
				fluxRow := flux.Row(i)
				for _, mi := range matching {
					ind := indicators.All()[mi]
					var total float64
					for _, s := range ind.Sources {
						for _, k := range ind.Sinks {
							if s == k {
								continue
							}
							total += row[s] * m.At(s, k)
						}
					}
					fluxRow[mi] += total
				}
			}
			vec := mat.NewVecDense(p, append([]float64(nil), row...))
			result.MulVec(m.T(), vec)
			copy(row, result.RawVector().Data)
		}
	}
	return nil
}

func matchingIndicators(indicators *FluxIndicatorSet, process ProcessTag) []int {
	var out []int
	for i, ind := range indicators.All() {
		if ind.Process == process {
			out = append(out, i)
		}
	}
	return out
}
