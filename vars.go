package libcbm

// PoolMatrix is the N×P dense pool-mass table the kernel mutates in
// place. Rows are stands; columns are pools, in PoolSet order.
type PoolMatrix struct {
	pools *PoolSet
	n     int
	// rows[i] is stand i's pool vector, length P.
	rows [][]float64
}

// NewPoolMatrix allocates an N×P pool matrix with every cell zero except
// the Input pool, which is set to 1.0 for every stand per the Input-pool
// invariant.
func NewPoolMatrix(ps *PoolSet, n int) *PoolMatrix {
	m := &PoolMatrix{pools: ps, n: n, rows: make([][]float64, n)}
	p := ps.Len()
	for i := range m.rows {
		row := make([]float64, p)
		row[ps.InputIndex()] = 1.0
		m.rows[i] = row
	}
	return m
}

// N returns the number of stands.
func (m *PoolMatrix) N() int { return m.n }

// P returns the number of pools.
func (m *PoolMatrix) P() int { return m.pools.Len() }

// Row returns stand i's pool vector. The returned slice aliases the
// matrix's storage; callers must not retain it across a call that
// resizes the matrix.
func (m *PoolMatrix) Row(i int) []float64 { return m.rows[i] }

// Pools returns the PoolSet the matrix pools are indexed against.
func (m *PoolMatrix) Pools() *PoolSet { return m.pools }

// Total sums a single pool across all stands.
func (m *PoolMatrix) Total(poolIndex int) float64 {
	var sum float64
	for _, row := range m.rows {
		sum += row[poolIndex]
	}
	return sum
}

// FluxMatrix is the N×F flux-accumulator table ComputeFlux writes into.
type FluxMatrix struct {
	indicators *FluxIndicatorSet
	n          int
	rows       [][]float64
}

// NewFluxMatrix allocates an N×F flux matrix, zeroed.
func NewFluxMatrix(fs *FluxIndicatorSet, n int) *FluxMatrix {
	m := &FluxMatrix{indicators: fs, n: n, rows: make([][]float64, n)}
	for i := range m.rows {
		m.rows[i] = make([]float64, fs.Len())
	}
	return m
}

// N returns the number of stands.
func (m *FluxMatrix) N() int { return m.n }

// F returns the number of flux indicators.
func (m *FluxMatrix) F() int { return m.indicators.Len() }

// Row returns stand i's flux-indicator vector.
func (m *FluxMatrix) Row(i int) []float64 { return m.rows[i] }

// Zero clears all accumulated flux, as done at the start of each annual
// step (spec step_start sub-phase).
func (m *FluxMatrix) Zero() {
	for _, row := range m.rows {
		for i := range row {
			row[i] = 0
		}
	}
}

// Indicators returns the FluxIndicatorSet the matrix columns are indexed
// against.
func (m *FluxMatrix) Indicators() *FluxIndicatorSet { return m.indicators }

// SpinupPhase enumerates the spinup state machine's phases (spec.md
// §3 "Spinup state").
type SpinupPhase int

const (
	PhaseAnnualProcess SpinupPhase = iota
	PhaseHistoricalDisturbance
	PhaseGrowToFinalAge
	PhaseLastPassDisturbance
	PhaseGrowToFinalAge2
	PhaseDelay
	PhaseEnd
)

func (p SpinupPhase) String() string {
	switch p {
	case PhaseAnnualProcess:
		return "AnnualProcess"
	case PhaseHistoricalDisturbance:
		return "HistoricalDisturbance"
	case PhaseGrowToFinalAge:
		return "GrowToFinalAge"
	case PhaseLastPassDisturbance:
		return "LastPassDisturbance"
	case PhaseGrowToFinalAge2:
		return "GrowToFinalAge2"
	case PhaseDelay:
		return "Delay"
	case PhaseEnd:
		return "End"
	default:
		return "Unknown"
	}
}

// StandState is the per-stand dynamic record carried across simulation
// steps (spec.md §3 "Stand state").
type StandState struct {
	Age                       int
	LandClass                 int
	TimeSinceLastDisturbance  int
	TimeSinceLandClassChange  int
	RegenerationDelay         int
	GrowthEnabled             bool
	Enabled                   bool
	LastDisturbanceType       int
	GrowthMultiplier          float64
	SpatialUnit               int
	Species                   int
	SpeciesClass              SpeciesClass
	Classifiers               []string
	HistoricalDisturbanceType int
	LastPassDisturbanceType   int

	// DisturbanceType is mutated by the caller between step_start and
	// step_disturbance to select the disturbance applied this step; 0
	// means no disturbance.
	DisturbanceType int
	// MeanAnnualTemperature is the temperature dom_decay uses for this
	// stand and is overridable per step. RunSpinup copies it from
	// SpinupParameters.MeanAnnualTemperature; it is not filled from the
	// per-spatial-unit ParameterBundle.MeanAnnualTemperature table.
	MeanAnnualTemperature float64

	// MerchInc, FoliageInc and OtherInc are populated by the caller for
	// the increment-driven growth variant; they are ignored under
	// GrowthModeVolume.
	MerchInc   float64
	FoliageInc float64
	OtherInc   float64
}

// StateTable is the columnar N-row table of StandState used by the
// kernel and drivers. It is a thin, typed view; the underlying storage
// is a plain Go slice rather than a generic column-of-interfaces table,
// matching the kernel's need for dense contiguous access.
type StateTable struct {
	rows []StandState
}

// NewStateTable allocates a StateTable of n zero-valued stands. All
// Enabled and GrowthEnabled flags start true.
func NewStateTable(n int) *StateTable {
	t := &StateTable{rows: make([]StandState, n)}
	for i := range t.rows {
		t.rows[i].Enabled = true
		t.rows[i].GrowthEnabled = true
		t.rows[i].GrowthMultiplier = 1.0
	}
	return t
}

// N returns the number of stands.
func (t *StateTable) N() int { return len(t.rows) }

// Row returns a pointer to stand i's state, for in-place mutation.
func (t *StateTable) Row(i int) *StandState { return &t.rows[i] }

// Enabled returns the per-stand enabled mask, used directly by the
// kernel entry points.
func (t *StateTable) Enabled() []bool {
	out := make([]bool, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Enabled
	}
	return out
}

// SpeciesClass is the derived softwood/hardwood classification used by
// turnover and root parameter lookups (supplemented from
// original_source's sw_hw column).
type SpeciesClass int

const (
	Softwood SpeciesClass = iota
	Hardwood
)

// SpinupVars is the transient per-stand spinup record (spec.md §3
// "Spinup state (transient, per stand)").
type SpinupVars struct {
	Phase            SpinupPhase
	Age              int
	RotationCount    int
	LastRotationSlow float64
	ThisRotationSlow float64
	DelayStep        int
	Converged        bool
}

// SpinupVarsTable is the columnar table of transient spinup state.
type SpinupVarsTable struct {
	rows []SpinupVars
}

// NewSpinupVarsTable allocates a SpinupVarsTable of n stands, all
// starting in PhaseAnnualProcess.
func NewSpinupVarsTable(n int) *SpinupVarsTable {
	return &SpinupVarsTable{rows: make([]SpinupVars, n)}
}

// N returns the number of stands.
func (t *SpinupVarsTable) N() int { return len(t.rows) }

// Row returns a pointer to stand i's spinup state.
func (t *SpinupVarsTable) Row(i int) *SpinupVars { return &t.rows[i] }

// CBMVars bundles the pools, flux and state tables a simulation step
// reads and writes, mirroring spec.md §6's cbm_vars. Per-stand step
// parameters (disturbance_type, mean_annual_temperature, and the
// increment-driven growth inputs) live directly on StandState rather
// than in a separate table, since every field in spec.md §6's
// `parameters` sub-bundle is mutated in lockstep with state during
// step_disturbance/step_annual_process.
type CBMVars struct {
	Pools *PoolMatrix
	Flux  *FluxMatrix
	State *StateTable
}
