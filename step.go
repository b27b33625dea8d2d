package libcbm

// PreDynamicsHook is the documented extension point of spec.md §9
// ("Callback seam"): the driver invokes it once per step with the full
// CBMVars bundle after step_start and before step_disturbance, so a
// caller can assign StandState.DisturbanceType (rule-based disturbance
// selection), override MeanAnnualTemperature, or set increment-driven
// growth inputs. Implemented as a single-method interface rather than a
// coroutine, per spec.md §9.
type PreDynamicsHook interface {
	PreDynamics(vars *CBMVars) error
}

// PreDynamicsFunc adapts an ordinary function to a PreDynamicsHook.
type PreDynamicsFunc func(vars *CBMVars) error

// PreDynamics implements PreDynamicsHook.
func (f PreDynamicsFunc) PreDynamics(vars *CBMVars) error { return f(vars) }

// GrowthMode selects which of the two engine variants of spec.md §9
// drives the growth op: volume-curve lookup, or caller-supplied
// increments.
type GrowthMode int

const (
	// GrowthModeVolume resolves a growth curve per stand and derives
	// biomass increments from its age-volume table.
	GrowthModeVolume GrowthMode = iota
	// GrowthModeIncrement takes StandState.MerchInc/FoliageInc/OtherInc
	// directly, bypassing growth-curve resolution entirely.
	GrowthModeIncrement
)

// Stepper drives CBMVars through one annual step at a time (spec.md
// §4.4). It holds no per-run state of its own beyond the resolved
// parameter index and pool set; CBMVars is entirely caller-owned.
type Stepper struct {
	pools *PoolSet
	flux  *FluxIndicatorSet
	mo    *MatrixOps
	pi    *ParameterIndex
	hook  PreDynamicsHook
	mode  GrowthMode
}

// NewStepper builds a Stepper. hook may be nil, in which case no
// per-step callback runs.
func NewStepper(ps *PoolSet, fis *FluxIndicatorSet, mo *MatrixOps, pi *ParameterIndex, hook PreDynamicsHook, mode GrowthMode) *Stepper {
	return &Stepper{pools: ps, flux: fis, mo: mo, pi: pi, hook: hook, mode: mode}
}

// Step advances every stand in vars by one simulation year, per spec.md
// §4.4's four sub-phases: step_start, step_disturbance,
// step_annual_process, step_end.
func (st *Stepper) Step(vars *CBMVars) error {
	n := vars.State.N()
	if vars.Pools.N() != n {
		return dimErrorf("Stepper.Step:pools", n, vars.Pools.N())
	}
	if vars.Flux.N() != n {
		return dimErrorf("Stepper.Step:flux", n, vars.Flux.N())
	}

	// step_start: zero the flux vector.
	vars.Flux.Zero()

	if st.hook != nil {
		if err := st.hook.PreDynamics(vars); err != nil {
			return err
		}
	}

	enabled := vars.State.Enabled()

	disturbanceTypes := make([]int, n)
	spatialUnits := make([]int, n)
	landClasses := make([]int, n)
	disturbed := make([]bool, n)
	for i := 0; i < n; i++ {
		row := vars.State.Row(i)
		spatialUnits[i] = row.SpatialUnit
		landClasses[i] = row.LandClass
		disturbanceTypes[i] = row.DisturbanceType
		disturbed[i] = enabled[i] && row.DisturbanceType != 0
	}

	// step_disturbance.
	disturbanceOp, err := st.mo.Disturbance(disturbanceTypes, spatialUnits, landClasses)
	if err != nil {
		return err
	}
	if err := ComputeFlux([]*Op{disturbanceOp}, st.flux, vars.Pools, vars.Flux, enabled); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if disturbed[i] {
			vars.State.Row(i).LastDisturbanceType = disturbanceTypes[i]
		}
	}

	// step_annual_process: growth (half), biomass-turnover, snag-turnover,
	// overmature_decline, growth (half), dom_decay, slow_mixing. The two
	// growth applications and overmature_decline are skipped per-stand
	// (not globally) by excluding growth-disabled stands from the enabled
	// mask passed to them; the turnover, decay and slow-mixing ops still
	// apply to a growth-disabled-but-enabled stand (spec.md §4.4 item 3,
	// §9 "growth_enabled differs on step vs. spinup").
	growthEnabled := make([]bool, n)
	classes := make([]SpeciesClass, n)
	species := make([]int, n)
	ages := make([]int, n)
	meanAnnualTemps := make([]float64, n)
	merchInc := make([]float64, n)
	foliageInc := make([]float64, n)
	otherInc := make([]float64, n)
	for i := 0; i < n; i++ {
		row := vars.State.Row(i)
		growthEnabled[i] = enabled[i] && row.GrowthEnabled
		classes[i] = row.SpeciesClass
		species[i] = row.Species
		ages[i] = row.Age
		meanAnnualTemps[i] = row.MeanAnnualTemperature
		merchInc[i] = row.MerchInc
		foliageInc[i] = row.FoliageInc
		otherInc[i] = row.OtherInc
	}

	var growth, decline *Op
	if st.mode == GrowthModeIncrement {
		growth, decline, err = st.mo.GrowthFromIncrements(merchInc, foliageInc, otherInc, classes, spatialUnits, vars.Pools)
	} else {
		curves := make([]*GrowthCurve, n)
		for i := 0; i < n; i++ {
			if !growthEnabled[i] {
				continue
			}
			row := vars.State.Row(i)
			if c, ok := st.pi.ResolveGrowthCurve(row.Species, row.Classifiers); ok {
				curves[i] = c
			}
		}
		growth, decline, err = st.mo.Growth(ages, curves, classes, spatialUnits, vars.Pools)
	}
	if err != nil {
		return err
	}
	biomassTurnover, err := st.mo.BiomassTurnover(classes, spatialUnits, species)
	if err != nil {
		return err
	}
	snagTurnover, err := st.mo.SnagTurnover(classes, spatialUnits)
	if err != nil {
		return err
	}
	domDecay, err := st.mo.DomDecay(meanAnnualTemps)
	if err != nil {
		return err
	}
	slowMixing, err := st.mo.SlowMixing(n)
	if err != nil {
		return err
	}

	if err := ComputeFlux([]*Op{growth}, st.flux, vars.Pools, vars.Flux, growthEnabled); err != nil {
		return err
	}
	if err := ComputeFlux([]*Op{biomassTurnover, snagTurnover}, st.flux, vars.Pools, vars.Flux, enabled); err != nil {
		return err
	}
	if err := ComputeFlux([]*Op{decline}, st.flux, vars.Pools, vars.Flux, growthEnabled); err != nil {
		return err
	}
	if err := ComputeFlux([]*Op{growth}, st.flux, vars.Pools, vars.Flux, growthEnabled); err != nil {
		return err
	}
	if err := ComputeFlux([]*Op{domDecay, slowMixing}, st.flux, vars.Pools, vars.Flux, enabled); err != nil {
		return err
	}

	// step_end.
	for i := 0; i < n; i++ {
		if !enabled[i] {
			continue
		}
		row := vars.State.Row(i)
		if disturbed[i] {
			if t, ok := st.pi.LandClassTransition(row.LandClass, disturbanceTypes[i]); ok {
				row.LandClass = t.ToLandClass
				row.RegenerationDelay = t.RegenerationDelay
				row.TimeSinceLandClassChange = 0
			}
			row.Age = 0
			row.TimeSinceLastDisturbance = 0
		} else {
			row.Age++
			row.TimeSinceLastDisturbance++
			row.TimeSinceLandClassChange++
		}
		if row.RegenerationDelay > 0 {
			row.RegenerationDelay--
			row.GrowthEnabled = row.RegenerationDelay == 0
		}
	}

	return nil
}
