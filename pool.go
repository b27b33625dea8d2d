package libcbm

// InputPoolName is the reserved name of the constant mass-source pool.
// Its value is always 1.0 for every stand at every timestep; growth draws
// mass out of it into biomass pools rather than conjuring mass from
// nothing.
const InputPoolName = "Input"

// Pool is a named scalar carbon quantity tracked per stand. Order is
// fixed once a PoolSet is built and pools are thereafter addressed by
// Index.
type Pool struct {
	Name  string
	Index int
}

// PoolSet is the fixed, ordered collection of pools an Engine tracks.
// It is immutable after construction.
type PoolSet struct {
	pools    []Pool
	byName   map[string]int
	inputIdx int
}

// NewPoolSet builds a PoolSet from an ordered list of pool names. The
// reserved Input pool must be present exactly once; duplicate names are a
// ConfigurationError.
func NewPoolSet(names []string) (*PoolSet, error) {
	ps := &PoolSet{
		pools:  make([]Pool, len(names)),
		byName: make(map[string]int, len(names)),
	}
	ps.inputIdx = -1
	for i, n := range names {
		if _, ok := ps.byName[n]; ok {
			return nil, configErrorf("NewPoolSet", "duplicate pool name %q", n)
		}
		ps.pools[i] = Pool{Name: n, Index: i}
		ps.byName[n] = i
		if n == InputPoolName {
			ps.inputIdx = i
		}
	}
	if ps.inputIdx < 0 {
		return nil, configErrorf("NewPoolSet", "pool set is missing the reserved %q pool", InputPoolName)
	}
	return ps, nil
}

// Len returns the number of pools, P.
func (ps *PoolSet) Len() int { return len(ps.pools) }

// Index returns the index of the named pool, and false if it is unknown.
func (ps *PoolSet) Index(name string) (int, bool) {
	i, ok := ps.byName[name]
	return i, ok
}

// MustIndex is like Index but panics on an unknown pool name; intended
// for use while assembling fixed, programmer-specified process tables at
// init time, where an unknown name is a programming error rather than a
// runtime condition.
func (ps *PoolSet) MustIndex(name string) int {
	i, ok := ps.byName[name]
	if !ok {
		panic("libcbm: unknown pool name " + name)
	}
	return i
}

// InputIndex returns the index of the reserved Input pool.
func (ps *PoolSet) InputIndex() int { return ps.inputIdx }

// Names returns the ordered pool names.
func (ps *PoolSet) Names() []string {
	out := make([]string, len(ps.pools))
	for i, p := range ps.pools {
		out[i] = p.Name
	}
	return out
}

// DefaultPools returns the standard CBM pool ordering: the Input pool,
// biomass pools, dead-organic-matter pools, atmospheric sinks, and the
// product sink. Callers that need a different pool set (e.g. the moss-C
// variant) should build their own PoolSet via NewPoolSet.
func DefaultPools() []string {
	return []string{
		InputPoolName,
		"SoftwoodMerch", "SoftwoodFoliage", "SoftwoodOther",
		"SoftwoodCoarseRoots", "SoftwoodFineRoots",
		"HardwoodMerch", "HardwoodFoliage", "HardwoodOther",
		"HardwoodCoarseRoots", "HardwoodFineRoots",
		"AboveGroundVeryFast", "BelowGroundVeryFast",
		"AboveGroundFast", "BelowGroundFast",
		"MediumSoil",
		"AboveGroundSlow", "BelowGroundSlow",
		"StemSnag", "BranchSnag",
		"CO2", "CH4", "CO", "NO2",
		"Products",
	}
}
