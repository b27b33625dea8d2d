package libcbm

// Engine bundles a fixed PoolSet, FluxIndicatorSet and resolved
// ParameterIndex into the entry points a caller needs to run spinup and
// annual steps over a population of stands (spec.md §6 "Engine
// initialization"). An Engine's pools, indicators, parameters and mode
// are fixed after NewEngine returns; its MatrixOps keeps growing caches
// of the matrices it has built. Per-stand state lives in the
// CBMVars/SpinupInput values passed to its methods.
type Engine struct {
	pools      *PoolSet
	flux       *FluxIndicatorSet
	index      *ParameterIndex
	mo         *MatrixOps
	mode       GrowthMode
	spinupOpts SpinupOptions
}

// EngineConfig is the set of arguments NewEngine validates and freezes
// into an Engine.
type EngineConfig struct {
	// Pools orders the fixed pool list; if nil, DefaultPools() is used.
	Pools []string
	// FluxIndicators configures the flux-accumulator set; if nil,
	// DefaultFluxIndicators(pools) is used.
	FluxIndicators []FluxIndicator
	// Parameters is the read-only parameter bundle.
	Parameters *ParameterBundle
	// Mode selects the volume-curve-driven or increment-driven growth
	// variant (spec.md §9 "Two engine variants").
	Mode GrowthMode
	// Spinup configures the convergence test the spinup driver uses.
	Spinup SpinupOptions
}

// NewEngine validates cfg and builds an Engine. Unknown pool references
// anywhere in cfg (flux indicators, decay routing, disturbance matrix
// rows) surface as a ConfigurationError here, before any stand is run.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Parameters == nil {
		return nil, configErrorf("NewEngine", "a parameter bundle is required")
	}
	poolNames := cfg.Pools
	if poolNames == nil {
		poolNames = DefaultPools()
	}
	ps, err := NewPoolSet(poolNames)
	if err != nil {
		return nil, err
	}

	indicators := cfg.FluxIndicators
	if indicators == nil {
		indicators, err = DefaultFluxIndicators(ps)
		if err != nil {
			return nil, err
		}
	}
	fis, err := NewFluxIndicatorSet(ps, indicators)
	if err != nil {
		return nil, err
	}

	pi, err := NewParameterIndex(cfg.Parameters)
	if err != nil {
		return nil, err
	}
	if err := validateParameterPoolReferences(ps, cfg.Parameters); err != nil {
		return nil, err
	}

	return &Engine{
		pools:      ps,
		flux:       fis,
		index:      pi,
		mo:         NewMatrixOps(ps, pi),
		mode:       cfg.Mode,
		spinupOpts: cfg.Spinup,
	}, nil
}

// validateParameterPoolReferences checks every pool name a parameter
// bundle references by string against ps up front, so that a typo in a
// decay-routing or disturbance-matrix pool name is a ConfigurationError
// at NewEngine rather than a late failure deep in the first spinup run.
func validateParameterPoolReferences(ps *PoolSet, bundle *ParameterBundle) error {
	check := func(name string) error {
		if name == "" {
			return nil
		}
		if _, ok := ps.Index(name); !ok {
			return configErrorf("NewEngine", "parameter bundle references unknown pool %q", name)
		}
		return nil
	}
	for _, d := range bundle.DecayParameters {
		if err := check(d.Pool); err != nil {
			return err
		}
		if err := check(d.RouteTo); err != nil {
			return err
		}
	}
	for _, row := range bundle.DisturbanceMatrixRows {
		if err := check(row.Source); err != nil {
			return err
		}
		if err := check(row.Sink); err != nil {
			return err
		}
	}
	return nil
}

// Pools returns the Engine's fixed PoolSet.
func (e *Engine) Pools() *PoolSet { return e.pools }

// FluxIndicators returns the Engine's fixed FluxIndicatorSet.
func (e *Engine) FluxIndicators() *FluxIndicatorSet { return e.flux }

// ParameterIndex returns the Engine's resolved parameter lookup tables.
func (e *Engine) ParameterIndex() *ParameterIndex { return e.index }

// RunSpinup drives every stand in input through the spinup state
// machine (spec.md §4.3), returning its resulting CBMVars and the
// per-stand spinup diagnostics (most importantly, Converged).
func (e *Engine) RunSpinup(input SpinupInput) (*CBMVars, *SpinupVarsTable, error) {
	pools, state, sv, err := RunSpinup(e.pools, e.mo, e.index, input, e.spinupOpts)
	if err != nil {
		return nil, nil, err
	}
	flux := NewFluxMatrix(e.flux, state.N())
	return &CBMVars{Pools: pools, Flux: flux, State: state}, sv, nil
}

// NewStepper builds a Stepper bound to this Engine's pool set, flux
// indicators, matrix-op assembler and growth mode. hook may be nil.
func (e *Engine) NewStepper(hook PreDynamicsHook) *Stepper {
	return NewStepper(e.pools, e.flux, e.mo, e.index, hook, e.mode)
}

// NewCBMVars allocates a zeroed CBMVars for n stands, with every pool
// row's Input cell set to 1.0 (the Input-pool invariant, spec.md §3).
// Most callers instead get their initial CBMVars from RunSpinup; this is
// for tests and for callers that seed pools directly.
func (e *Engine) NewCBMVars(n int) *CBMVars {
	return &CBMVars{
		Pools: NewPoolMatrix(e.pools, n),
		Flux:  NewFluxMatrix(e.flux, n),
		State: NewStateTable(n),
	}
}
