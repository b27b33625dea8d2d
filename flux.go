package libcbm

// ProcessTag labels the physical process an Op represents, and is used to
// attribute flux to indicators whose ProcessTag matches.
type ProcessTag uint16

const (
	// ProcessGrowthAndMortality tags ops that apply growth, turnover and
	// overmature-decline flows.
	ProcessGrowthAndMortality ProcessTag = iota + 1
	// ProcessDecay tags ops that apply DOM decay and slow-pool mixing.
	ProcessDecay
	// ProcessDisturbance tags ops that apply a disturbance matrix.
	ProcessDisturbance
)

func (p ProcessTag) String() string {
	switch p {
	case ProcessGrowthAndMortality:
		return "Growth and Turnover"
	case ProcessDecay:
		return "Decay"
	case ProcessDisturbance:
		return "Disturbance"
	default:
		return "Unknown"
	}
}

// FluxIndicator is a named accumulator over a (source-pool-set,
// sink-pool-set) pair, populated only by ops whose ProcessTag matches.
type FluxIndicator struct {
	Name    string
	Process ProcessTag
	Sources []int
	Sinks   []int
}

// FluxIndicatorSet is the fixed, ordered collection of flux indicators an
// Engine accumulates into during ComputeFlux.
type FluxIndicatorSet struct {
	indicators []FluxIndicator
	byName     map[string]int
}

// NewFluxIndicatorSet validates and fixes the order of a list of flux
// indicators against a PoolSet. Unknown pool references are a
// ConfigurationError.
func NewFluxIndicatorSet(ps *PoolSet, indicators []FluxIndicator) (*FluxIndicatorSet, error) {
	fs := &FluxIndicatorSet{
		indicators: make([]FluxIndicator, len(indicators)),
		byName:     make(map[string]int, len(indicators)),
	}
	for i, ind := range indicators {
		if _, ok := fs.byName[ind.Name]; ok {
			return nil, configErrorf("NewFluxIndicatorSet", "duplicate flux indicator name %q", ind.Name)
		}
		for _, s := range ind.Sources {
			if s < 0 || s >= ps.Len() {
				return nil, configErrorf("NewFluxIndicatorSet", "flux indicator %q references unknown source pool index %d", ind.Name, s)
			}
		}
		for _, s := range ind.Sinks {
			if s < 0 || s >= ps.Len() {
				return nil, configErrorf("NewFluxIndicatorSet", "flux indicator %q references unknown sink pool index %d", ind.Name, s)
			}
		}
		fs.indicators[i] = ind
		fs.byName[ind.Name] = i
	}
	return fs, nil
}

// Len returns the number of flux indicators, F.
func (fs *FluxIndicatorSet) Len() int { return len(fs.indicators) }

// Index returns the index of the named indicator.
func (fs *FluxIndicatorSet) Index(name string) (int, bool) {
	i, ok := fs.byName[name]
	return i, ok
}

// All returns the ordered flux indicators.
func (fs *FluxIndicatorSet) All() []FluxIndicator { return fs.indicators }

// DefaultFluxIndicators returns five bookkeeping indicators across the
// three process tags: NPP into biomass and biomass turnover into DOM
// ("Growth and Turnover"), DOM decay to atmosphere ("Decay"), and
// disturbance-driven emissions and product transfers ("Disturbance").
// pools must be resolvable by name in ps.
func DefaultFluxIndicators(ps *PoolSet) ([]FluxIndicator, error) {
	idx := func(names ...string) ([]int, error) {
		out := make([]int, 0, len(names))
		for _, n := range names {
			i, ok := ps.Index(n)
			if !ok {
				return nil, configErrorf("DefaultFluxIndicators", "pool %q is not defined", n)
			}
			out = append(out, i)
		}
		return out, nil
	}

	biomass := []string{
		"SoftwoodMerch", "SoftwoodFoliage", "SoftwoodOther", "SoftwoodCoarseRoots", "SoftwoodFineRoots",
		"HardwoodMerch", "HardwoodFoliage", "HardwoodOther", "HardwoodCoarseRoots", "HardwoodFineRoots",
	}
	dom := []string{
		"AboveGroundVeryFast", "BelowGroundVeryFast", "AboveGroundFast", "BelowGroundFast",
		"MediumSoil", "AboveGroundSlow", "BelowGroundSlow", "StemSnag", "BranchSnag",
	}

	var out []FluxIndicator

	growthSources, err := idx(InputPoolName)
	if err != nil {
		return nil, err
	}
	growthSinks, err := idx(biomass...)
	if err != nil {
		return nil, err
	}
	out = append(out, FluxIndicator{Name: "NPP", Process: ProcessGrowthAndMortality, Sources: growthSources, Sinks: growthSinks})

	turnoverSinks, err := idx(dom...)
	if err != nil {
		return nil, err
	}
	out = append(out, FluxIndicator{Name: "BiomassToDOM", Process: ProcessGrowthAndMortality, Sources: growthSinks, Sinks: turnoverSinks})

	domSources, err := idx(dom...)
	if err != nil {
		return nil, err
	}
	co2Sinks, err := idx("CO2")
	if err != nil {
		return nil, err
	}
	out = append(out, FluxIndicator{Name: "DOMEmissions", Process: ProcessDecay, Sources: domSources, Sinks: co2Sinks})

	allPools, err := idx(append(append([]string{}, biomass...), dom...)...)
	if err != nil {
		return nil, err
	}
	atmSinks, err := idx("CO2", "CH4", "CO", "NO2")
	if err != nil {
		return nil, err
	}
	productSinks, err := idx("Products")
	if err != nil {
		return nil, err
	}
	out = append(out, FluxIndicator{
		Name:    "DisturbanceCO2Production",
		Process: ProcessDisturbance,
		Sources: allPools,
		Sinks:   atmSinks,
	})
	out = append(out, FluxIndicator{
		Name:    "DisturbanceProductProduction",
		Process: ProcessDisturbance,
		Sources: allPools,
		Sinks:   productSinks,
	})

	return out, nil
}
