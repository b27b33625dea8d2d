package libcbm

import "math"

// SpinupOptions configures the spinup driver's convergence test
// (spec.md §9 Open Questions: τ is exposed as a knob rather than
// hard-coded).
type SpinupOptions struct {
	// Tau is the relative slow-pool-change convergence tolerance. Zero
	// means the default of 0.01 (1%).
	Tau float64
	// MaxIterations safeguards against a stand that never reaches
	// PhaseEnd because of malformed parameters (e.g. ReturnInterval <= 0
	// looping forever on historical disturbance). Zero means the default
	// of 100000.
	MaxIterations int
}

func (o SpinupOptions) tau() float64 {
	if o.Tau > 0 {
		return o.Tau
	}
	return 0.01
}

func (o SpinupOptions) maxIterations() int {
	if o.MaxIterations > 0 {
		return o.MaxIterations
	}
	return 100000
}

const spinupEpsilon = 1e-9

func relDiff(current, last float64) float64 {
	denom := current
	if denom < spinupEpsilon {
		denom = spinupEpsilon
	}
	return math.Abs(current-last) / denom
}

// RunSpinup drives every stand in input from zero pools through its
// historical disturbance regime to an approximate steady state, then to
// its declared inventory condition (spec.md §4.3). Growth curves are
// resolved per stand from pi via its species/classifier tuple; under
// the increment-driven variant (input.Increments != nil) growth instead
// comes from the caller-supplied per-age increment tables. Spinup has
// no flux-indicator concept of its own (spec.md §4.3 drives pools only;
// flux bookkeeping begins with the annual-step driver).
//
// It returns the resulting pool matrix, per-stand state (ready to seed
// the annual-step driver), and the per-stand SpinupVarsTable (exposing
// the Converged flag spec.md §4.3 calls for as a non-fatal diagnostic).
func RunSpinup(ps *PoolSet, mo *MatrixOps, pi *ParameterIndex, input SpinupInput, opts SpinupOptions) (*PoolMatrix, *StateTable, *SpinupVarsTable, error) {
	n := len(input.Parameters)
	pools := NewPoolMatrix(ps, n)
	sv := NewSpinupVarsTable(n)
	state := NewStateTable(n)

	agSlow, ok := ps.Index("AboveGroundSlow")
	if !ok {
		return nil, nil, nil, configErrorf("RunSpinup", "pool AboveGroundSlow is not defined")
	}
	bgSlow, ok := ps.Index("BelowGroundSlow")
	if !ok {
		return nil, nil, nil, configErrorf("RunSpinup", "pool BelowGroundSlow is not defined")
	}

	curves := make([]*GrowthCurve, n)
	classes := make([]SpeciesClass, n)
	spatialUnits := make([]int, n)
	species := make([]int, n)
	for i, sp := range input.Parameters {
		classes[i] = sp.SpeciesClass
		spatialUnits[i] = sp.SpatialUnit
		species[i] = sp.Species
		if input.Increments == nil {
			if c, ok := pi.ResolveGrowthCurve(sp.Species, sp.Classifiers); ok {
				curves[i] = c
			}
		}
		stateRow := state.Row(i)
		stateRow.SpatialUnit = sp.SpatialUnit
		stateRow.Species = sp.Species
		stateRow.SpeciesClass = sp.SpeciesClass
		stateRow.Classifiers = sp.Classifiers
		stateRow.LandClass = sp.LandClass
		stateRow.HistoricalDisturbanceType = sp.HistoricalDisturbanceType
		stateRow.LastPassDisturbanceType = sp.LastPassDisturbanceType
		stateRow.MeanAnnualTemperature = sp.MeanAnnualTemperature
		stateRow.GrowthEnabled = true
		stateRow.Enabled = true
	}

	ages := make([]int, n)
	meanAnnualTemps := make([]float64, n)
	for i, sp := range input.Parameters {
		meanAnnualTemps[i] = sp.MeanAnnualTemperature
	}

	tau := opts.tau()
	active := make([]bool, n)
	for i := range active {
		active[i] = true
	}

	for iter := 0; ; iter++ {
		if iter >= opts.maxIterations() {
			return nil, nil, nil, domainErrorf("RunSpinup", "spinup did not reach PhaseEnd for all stands within %d iterations", opts.maxIterations())
		}
		anyActive := false
		for i := 0; i < n; i++ {
			active[i] = sv.Row(i).Phase != PhaseEnd
			anyActive = anyActive || active[i]
		}
		if !anyActive {
			break
		}

		var growth, decline *Op
		var err error
		if input.Increments == nil {
			stepCurves := make([]*GrowthCurve, n)
			for i := range stepCurves {
				if active[i] {
					stepCurves[i] = curves[i]
				}
			}
			growth, decline, err = mo.Growth(ages, stepCurves, classes, spatialUnits, pools)
		} else {
			merchInc := make([]float64, n)
			foliageInc := make([]float64, n)
			otherInc := make([]float64, n)
			for i := 0; i < n; i++ {
				if !active[i] {
					continue
				}
				merchInc[i], foliageInc[i], otherInc[i] = lookupIncrement(input.Increments[i], ages[i])
			}
			growth, decline, err = mo.GrowthFromIncrements(merchInc, foliageInc, otherInc, classes, spatialUnits, pools)
		}
		if err != nil {
			return nil, nil, nil, err
		}
		biomassTurnover, err := mo.BiomassTurnover(classes, spatialUnits, species)
		if err != nil {
			return nil, nil, nil, err
		}
		snagTurnover, err := mo.SnagTurnover(classes, spatialUnits)
		if err != nil {
			return nil, nil, nil, err
		}
		domDecay, err := mo.DomDecay(meanAnnualTemps)
		if err != nil {
			return nil, nil, nil, err
		}
		slowMixing, err := mo.SlowMixing(n)
		if err != nil {
			return nil, nil, nil, err
		}

		// Growth, turnover, decay and slow-mixing run every spinup year for
		// every active stand regardless of phase (spec.md §4.3 step 5: the
		// delay years are additional years of annual process, just without
		// disturbance); only the age increment below is withheld during
		// PhaseDelay, which instead advances via its own DelayStep counter
		// (cbm_exn_land_state.end_spinup_step: age advances on
		// GrowToFinalAge/AnnualProcesses, delay_step advances on Delay).
		annualOps := []*Op{growth, biomassTurnover, snagTurnover, decline, growth, domDecay, slowMixing}
		if err := ComputePools(annualOps, pools, active); err != nil {
			return nil, nil, nil, err
		}
		for i := 0; i < n; i++ {
			if active[i] && sv.Row(i).Phase != PhaseDelay {
				ages[i]++
			}
		}

		disturbanceTypes := make([]int, n)
		landClasses := make([]int, n)
		for i, sp := range input.Parameters {
			landClasses[i] = sp.LandClass
			if !active[i] {
				continue
			}
			s := sv.Row(i)
			switch s.Phase {
			case PhaseAnnualProcess:
				if ages[i] >= sp.ReturnInterval {
					if s.RotationCount >= sp.MaxRotations {
						s.Phase = PhaseGrowToFinalAge
						s.Converged = false
						break
					}
					slowCurrent := pools.Row(i)[agSlow] + pools.Row(i)[bgSlow]
					if s.RotationCount >= sp.MinRotations && relDiff(slowCurrent, s.LastRotationSlow) < tau {
						s.Phase = PhaseGrowToFinalAge
						s.Converged = true
					} else {
						// The historical disturbance fires within this
						// same iteration (applied via disturbanceTypes
						// below); the resting phase afterward is again
						// AnnualProcess for the next rotation.
						disturbanceTypes[i] = sp.HistoricalDisturbanceType
						s.LastRotationSlow = slowCurrent
						ages[i] = 0
						s.RotationCount++
					}
				}
			case PhaseGrowToFinalAge:
				if sp.FinalAge <= 0 || ages[i] >= sp.FinalAge-1 {
					disturbanceTypes[i] = sp.LastPassDisturbanceType
					ages[i] = 0
					s.Phase = PhaseDelay
				}
			case PhaseDelay:
				s.DelayStep++
				if s.DelayStep >= sp.Delay {
					if sp.FinalAge > 0 {
						s.Phase = PhaseGrowToFinalAge2
					} else {
						s.Phase = PhaseEnd
					}
				}
			case PhaseGrowToFinalAge2:
				if ages[i] >= sp.FinalAge {
					s.Phase = PhaseEnd
				}
			}
			s.Age = ages[i]
		}

		disturbanceOp, err := mo.Disturbance(disturbanceTypes, spatialUnits, landClasses)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := ComputePools([]*Op{disturbanceOp}, pools, active); err != nil {
			return nil, nil, nil, err
		}
	}

	for i := 0; i < n; i++ {
		row := state.Row(i)
		row.Age = ages[i]
		row.TimeSinceLastDisturbance = 0
		row.TimeSinceLandClassChange = 0
		row.RegenerationDelay = 0
		row.LastDisturbanceType = input.Parameters[i].LastPassDisturbanceType
		row.GrowthMultiplier = 1.0
	}
	return pools, state, sv, nil
}

// lookupIncrement finds the AgeIncrement entry for age in an
// ascending-by-age table, returning zeros if age falls outside the
// table (the increment-driven variant has no data past the caller's
// supplied cohort length).
func lookupIncrement(table []AgeIncrement, age int) (merch, foliage, other float64) {
	lo, hi := 0, len(table)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		if table[mid].Age == age {
			return table[mid].MerchInc, table[mid].FoliageInc, table[mid].OtherInc
		}
		if table[mid].Age < age {
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	return 0, 0, 0
}
