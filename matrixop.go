package libcbm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// opCache interns one finalized matrix per distinct bucket key, so that
// stands sharing a parameter key (spatial unit, species class,
// temperature, disturbance type, ...) share the same *mat.Dense rather
// than each getting its own copy (spec.md §9 "batched polymorphism").
type opCache struct {
	interner *Interner
	matrices []*mat.Dense
}

func newOpCache() *opCache {
	return &opCache{interner: NewInterner()}
}

// index returns the bucket index for key, building and interning a new
// matrix via build if key has not been seen before.
func (c *opCache) index(key string, build func() (*mat.Dense, error)) (int, error) {
	id := c.interner.Intern(key)
	if id == len(c.matrices) {
		m, err := build()
		if err != nil {
			return 0, err
		}
		c.matrices = append(c.matrices, m)
	}
	return id, nil
}

// MatrixOps builds the named matrix operations of spec.md §4.2 from a
// resolved ParameterIndex, interning one matrix per distinct parameter
// bucket and reusing it across every Op constructed over the lifetime of
// the MatrixOps value (spec.md §9's "supplemented feature": buckets are
// shared across spinup rotations rather than rebuilt each iteration).
type MatrixOps struct {
	pools *PoolSet
	index *ParameterIndex

	growthCache      *opCache
	declineCache     *opCache
	turnoverCache    *opCache
	snagCache        *opCache
	decayCache       *opCache
	slowMixCache     *opCache
	disturbanceCache *opCache
}

// NewMatrixOps constructs a MatrixOps over a pool set and resolved
// parameter index.
func NewMatrixOps(ps *PoolSet, pi *ParameterIndex) *MatrixOps {
	return &MatrixOps{
		pools:            ps,
		index:            pi,
		growthCache:      newOpCache(),
		declineCache:     newOpCache(),
		turnoverCache:    newOpCache(),
		snagCache:        newOpCache(),
		decayCache:       newOpCache(),
		slowMixCache:     newOpCache(),
		disturbanceCache: newOpCache(),
	}
}

// biomassDelta is the per-pool net change in target biomass between one
// age and the next, used to split growth (positive) from overmature
// decline (negative) (spec.md §4.2 items 1 and 3).
type biomassDelta struct {
	merch, foliage, other, coarseRoot, fineRoot float64
}

func curveDelta(curve *GrowthCurve, age int) biomassDelta {
	mNow, fNow, oNow, crNow, frNow := curve.BiomassAt(age)
	mPrev, fPrev, oPrev, crPrev, frPrev := curve.BiomassAt(age - 1)
	return biomassDelta{
		merch:      mNow - mPrev,
		foliage:    fNow - fPrev,
		other:      oNow - oPrev,
		coarseRoot: crNow - crPrev,
		fineRoot:   frNow - frPrev,
	}
}

// Growth builds the growth and overmature_decline ops for one call
// (spec.md §4.2 items 1 and 3). curves[i] == nil means stand i has no
// growth curve and gets an identity transform in both ops. pools supplies
// each stand's current biomass, which overmature_decline needs to convert
// its negative biomass-target delta into a matrix-coefficient proportion
// (a transfer matrix coefficient is a fraction of the source pool, not an
// absolute tonnes amount; see addOvermatureDeclineForClass). Under the
// increment-driven variant, pass increments directly via
// GrowthFromIncrements instead.
func (mo *MatrixOps) Growth(ages []int, curves []*GrowthCurve, classes []SpeciesClass, spatialUnits []int, pools *PoolMatrix) (growth, decline *Op, err error) {
	n := len(ages)
	deltas := make([]biomassDelta, n)
	for i := 0; i < n; i++ {
		if curves[i] == nil {
			continue
		}
		deltas[i] = curveDelta(curves[i], ages[i])
	}
	return mo.growthAndDeclineOps(deltas, classes, spatialUnits, pools)
}

// GrowthFromIncrements builds the growth and overmature_decline ops
// directly from caller-supplied per-stand increments (spec.md §9's
// increment-driven engine variant).
func (mo *MatrixOps) GrowthFromIncrements(merchInc, foliageInc, otherInc []float64, classes []SpeciesClass, spatialUnits []int, pools *PoolMatrix) (growth, decline *Op, err error) {
	n := len(merchInc)
	deltas := make([]biomassDelta, n)
	for i := 0; i < n; i++ {
		deltas[i] = biomassDelta{merch: merchInc[i], foliage: foliageInc[i], other: otherInc[i]}
	}
	return mo.growthAndDeclineOps(deltas, classes, spatialUnits, pools)
}

// biomassPoolValues returns a stand's current biomass in the five
// growth/decline categories for its species class, used to convert an
// overmature_decline delta into a matrix-coefficient proportion.
func biomassPoolValues(ps *PoolSet, pools *PoolMatrix, stand int, class SpeciesClass) (merch, foliage, other, coarseRoot, fineRoot float64) {
	prefix := classPrefix(class)
	row := pools.Row(stand)
	get := func(suffix string) float64 {
		idx, ok := ps.Index(prefix + suffix)
		if !ok {
			return 0
		}
		return row[idx]
	}
	return get("Merch"), get("Foliage"), get("Other"), get("CoarseRoots"), get("FineRoots")
}

// declineProportion converts an overmature_decline magnitude (tonnes, ≥0)
// into the fraction of the source pool it represents, the form a transfer
// matrix coefficient needs (spec.md §4.2 item 3; cbm_exn_growth_functions.py's
// merch_to_stem_snag_prop = -merch_inc/merch[i]). A pool with no mass to
// decline from contributes no flow.
func declineProportion(magnitude, poolValue float64) float64 {
	if poolValue <= 0 {
		return 0
	}
	return magnitude / poolValue
}

func (mo *MatrixOps) growthAndDeclineOps(deltas []biomassDelta, classes []SpeciesClass, spatialUnits []int, pools *PoolMatrix) (growth, decline *Op, err error) {
	n := len(deltas)
	p := mo.pools.Len()
	growthIdx := make([]int, n)
	declineIdx := make([]int, n)

	for i := 0; i < n; i++ {
		d := deltas[i]
		class := classes[i]
		gm, gf, go_, gcr, gfr := half(d.merch), half(d.foliage), half(d.other), half(d.coarseRoot), half(d.fineRoot)
		growthKey := fmt.Sprintf("%d|%g|%g|%g|%g|%g", int(class), gm, gf, go_, gcr, gfr)
		gi, gerr := mo.growthCache.index(growthKey, func() (*mat.Dense, error) {
			b := newBucket(p, mo.pools.InputIndex())
			if err := addGrowthIncrementForClass(b, mo.pools, class, gm, gf, go_, gcr, gfr); err != nil {
				return nil, err
			}
			return b.finalize()
		})
		if gerr != nil {
			return nil, nil, gerr
		}
		growthIdx[i] = gi

		turnover, ok := mo.index.Turnover(spatialUnits[i], class)
		merchPool, foliagePool, otherPool, coarseRootPool, fineRootPool := biomassPoolValues(mo.pools, pools, i, class)
		pm := declineProportion(neg(d.merch), merchPool)
		pf := declineProportion(neg(d.foliage), foliagePool)
		po := declineProportion(neg(d.other), otherPool)
		pcr := declineProportion(neg(d.coarseRoot), coarseRootPool)
		pfr := declineProportion(neg(d.fineRoot), fineRootPool)
		declineKey := fmt.Sprintf("%d|%d|%g|%g|%g|%g|%g|%v", int(class), spatialUnits[i], pm, pf, po, pcr, pfr, ok)
		di, derr := mo.declineCache.index(declineKey, func() (*mat.Dense, error) {
			b := newBucket(p)
			if err := addOvermatureDeclineForClass(b, mo.pools, class, turnover, pm, pf, po, pcr, pfr); err != nil {
				return nil, err
			}
			return b.finalize()
		})
		if derr != nil {
			return nil, nil, derr
		}
		declineIdx[i] = di
	}

	growth, err = NewOp("growth", ProcessGrowthAndMortality, mo.growthCache.matrices, growthIdx, p)
	if err != nil {
		return nil, nil, err
	}
	decline, err = NewOp("overmature_decline", ProcessGrowthAndMortality, mo.declineCache.matrices, declineIdx, p)
	if err != nil {
		return nil, nil, err
	}
	return growth, decline, nil
}

func half(v float64) float64 {
	if v <= 0 {
		return 0
	}
	return v / 2
}

func neg(v float64) float64 {
	if v >= 0 {
		return 0
	}
	return -v
}

func classPrefix(class SpeciesClass) string {
	if class == Hardwood {
		return "Hardwood"
	}
	return "Softwood"
}

func addGrowthIncrementForClass(b *bucket, ps *PoolSet, class SpeciesClass, merch, foliage, other, coarseRoot, fineRoot float64) error {
	input := ps.InputIndex()
	prefix := classPrefix(class)
	for suffix, v := range map[string]float64{
		"Merch": merch, "Foliage": foliage, "Other": other,
		"CoarseRoots": coarseRoot, "FineRoots": fineRoot,
	} {
		if v == 0 {
			continue
		}
		idx, ok := ps.Index(prefix + suffix)
		if !ok {
			return configErrorf("addGrowthIncrement", "pool %s%s is not defined", prefix, suffix)
		}
		if err := b.add(input, idx, v); err != nil {
			return err
		}
	}
	return nil
}

// addOvermatureDeclineForClass routes the proportion of a negative
// biomass-target change from the relevant live-biomass pool to the DOM
// pools turnover parameters say that pool would otherwise turn over
// into (spec.md §4.2 item 3: "the negative increments flow ... into DOM
// ..., not back to Input"). merch, foliage, other, coarseRoot and
// fineRoot are fractions of each pool's current mass (declineProportion),
// not absolute tonnes: a transfer matrix coefficient is always a
// fraction applied via pools·M.
func addOvermatureDeclineForClass(b *bucket, ps *PoolSet, class SpeciesClass, turnover TurnoverParameter, merch, foliage, other, coarseRoot, fineRoot float64) error {
	prefix := classPrefix(class)
	route := func(srcSuffix string, amount float64, sinkName string, fraction float64) error {
		if amount == 0 || fraction <= 0 {
			return nil
		}
		src, ok := ps.Index(prefix + srcSuffix)
		if !ok {
			return configErrorf("addOvermatureDecline", "pool %s%s is not defined", prefix, srcSuffix)
		}
		sink, ok := ps.Index(sinkName)
		if !ok {
			return configErrorf("addOvermatureDecline", "pool %s is not defined", sinkName)
		}
		return b.add(src, sink, amount*fraction)
	}
	if err := route("Merch", merch, "StemSnag", 1.0); err != nil {
		return err
	}
	if err := route("Foliage", foliage, "AboveGroundVeryFast", 1.0); err != nil {
		return err
	}
	if err := route("Other", other, "AboveGroundFast", turnover.OtherToAGFast); err != nil {
		return err
	}
	if err := route("Other", other, "BranchSnag", 1.0-turnover.OtherToAGFast); err != nil {
		return err
	}
	if err := route("CoarseRoots", coarseRoot, "AboveGroundFast", turnover.CoarseRootToAGFast); err != nil {
		return err
	}
	if err := route("CoarseRoots", coarseRoot, "BelowGroundFast", turnover.CoarseRootToBGFast); err != nil {
		return err
	}
	if err := route("FineRoots", fineRoot, "AboveGroundVeryFast", turnover.FineRootToAGVeryFast); err != nil {
		return err
	}
	if err := route("FineRoots", fineRoot, "BelowGroundVeryFast", turnover.FineRootToBGVeryFast); err != nil {
		return err
	}
	return nil
}

// decayRate computes the temperature-adjusted annual decay rate of
// spec.md §4.2 item 4: r = min(maxRate, baseRate * Q10^((T-Tref)/10)).
func decayRate(d DecayParameter, meanAnnualTemp float64) float64 {
	r := d.BaseRate * math.Pow(d.Q10, (meanAnnualTemp-d.ReferenceTemp)/10.0)
	if r > d.MaxRate {
		return d.MaxRate
	}
	return r
}

// snagRate derives an annual turnover proportion from a half-life (the
// fraction of mass lost per year if the remainder decays as
// exp(-ln(2)/halfLife)), falling back to an explicit rate when no
// half-life is configured (spec.md §3's snag-turnover inputs allow
// either representation).
func snagRate(halfLife, fallbackRate float64) float64 {
	if halfLife > 0 {
		return 1 - math.Exp(-math.Ln2/halfLife)
	}
	return fallbackRate
}

// BiomassTurnover builds the live-biomass-to-DOM turnover op of
// spec.md §4.2 item 2: foliage, branch/other and fine/coarse root
// biomass turn over into DOM pools at fixed annual proportions keyed by
// (spatial unit, species class). Stands with no turnover parameters
// configured get an identity transform.
func (mo *MatrixOps) BiomassTurnover(classes []SpeciesClass, spatialUnits []int, species []int) (*Op, error) {
	n := len(classes)
	p := mo.pools.Len()
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		class := classes[i]
		turnover, ok := mo.index.Turnover(spatialUnits[i], class)
		root, rootOK := mo.index.Root(species[i])
		key := fmt.Sprintf("turnover|%d|%d|%v|%v", int(class), spatialUnits[i], ok, species[i])
		if !ok {
			key = fmt.Sprintf("turnover|%d|identity", int(class))
		}
		id, err := mo.turnoverCache.index(key, func() (*mat.Dense, error) {
			b := newBucket(p)
			if !ok {
				return identityMatrix(p), nil
			}
			if err := addBiomassTurnover(b, mo.pools, class, turnover, root, rootOK); err != nil {
				return nil, err
			}
			return b.finalize()
		})
		if err != nil {
			return nil, err
		}
		idx[i] = id
	}
	return NewOp("biomass_turnover", ProcessGrowthAndMortality, mo.turnoverCache.matrices, idx, p)
}

func addBiomassTurnover(b *bucket, ps *PoolSet, class SpeciesClass, t TurnoverParameter, root RootParameter, rootOK bool) error {
	prefix := classPrefix(class)
	add := func(srcName, sinkName string, rate float64) error {
		if rate <= 0 {
			return nil
		}
		src, ok := ps.Index(srcName)
		if !ok {
			return configErrorf("addBiomassTurnover", "pool %s is not defined", srcName)
		}
		sink, ok := ps.Index(sinkName)
		if !ok {
			return configErrorf("addBiomassTurnover", "pool %s is not defined", sinkName)
		}
		return b.add(src, sink, rate)
	}
	if err := add(prefix+"Foliage", "AboveGroundVeryFast", t.FoliageToAGVeryFast); err != nil {
		return err
	}
	if err := add(prefix+"Other", "BranchSnag", t.BranchToBranchSnag); err != nil {
		return err
	}
	if err := add(prefix+"Merch", "StemSnag", t.StemToStemSnag); err != nil {
		return err
	}
	if !rootOK {
		return nil
	}
	if err := add(prefix+"CoarseRoots", "AboveGroundFast", root.CoarseRootTurnover*t.CoarseRootToAGFast); err != nil {
		return err
	}
	if err := add(prefix+"CoarseRoots", "BelowGroundFast", root.CoarseRootTurnover*t.CoarseRootToBGFast); err != nil {
		return err
	}
	if err := add(prefix+"FineRoots", "AboveGroundVeryFast", root.FineRootTurnover*t.FineRootToAGVeryFast); err != nil {
		return err
	}
	if err := add(prefix+"FineRoots", "BelowGroundVeryFast", root.FineRootTurnover*t.FineRootToBGVeryFast); err != nil {
		return err
	}
	return nil
}

// SnagTurnover builds the stem-snag and branch-snag to DOM op of
// spec.md §4.2 item 2, deriving a turnover rate from each snag's
// configured half-life (falling back to an explicit rate).
func (mo *MatrixOps) SnagTurnover(classes []SpeciesClass, spatialUnits []int) (*Op, error) {
	n := len(classes)
	p := mo.pools.Len()
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		class := classes[i]
		turnover, ok := mo.index.Turnover(spatialUnits[i], class)
		key := fmt.Sprintf("snag|%d|%d|%v", int(class), spatialUnits[i], ok)
		id, err := mo.snagCache.index(key, func() (*mat.Dense, error) {
			if !ok {
				return identityMatrix(p), nil
			}
			b := newBucket(p)
			stemRate := snagRate(turnover.StemSnagHalfLife, turnover.StemSnagToAGFast)
			branchRate := snagRate(turnover.BranchSnagHalfLife, turnover.BranchSnagToAGFast)
			// StemSnag and BranchSnag are shared DOM pools, not split per
			// species class; every class's decline/turnover routes into
			// the same two snag pools, which this op then turns over at a
			// class-specific rate.
			stemSnag, ok1 := mo.pools.Index("StemSnag")
			agFast, ok2 := mo.pools.Index("AboveGroundFast")
			branchSnag, ok3 := mo.pools.Index("BranchSnag")
			if !ok1 || !ok2 || !ok3 {
				return nil, configErrorf("SnagTurnover", "snag or AboveGroundFast pools are not defined")
			}
			if stemRate > 0 {
				if err := b.add(stemSnag, agFast, stemRate); err != nil {
					return nil, err
				}
			}
			if branchRate > 0 {
				if err := b.add(branchSnag, agFast, branchRate); err != nil {
					return nil, err
				}
			}
			return b.finalize()
		})
		if err != nil {
			return nil, err
		}
		idx[i] = id
	}
	return NewOp("snag_turnover", ProcessGrowthAndMortality, mo.snagCache.matrices, idx, p)
}

// DomDecay builds the dead-organic-matter decay op of spec.md §4.2
// item 4: each DOM pool with configured decay parameters loses
// min(maxRate, baseRate*Q10^((T-Tref)/10)) of its mass each year, a
// fixed proportion of which goes directly to atmosphere (CO2) and the
// remainder to the pool's configured routing target.
func (mo *MatrixOps) DomDecay(meanAnnualTemps []float64) (*Op, error) {
	n := len(meanAnnualTemps)
	p := mo.pools.Len()
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		t := meanAnnualTemps[i]
		key := fmt.Sprintf("decay|%.6f", t)
		id, err := mo.decayCache.index(key, func() (*mat.Dense, error) {
			b := newBucket(p)
			if err := addDomDecay(b, mo.pools, mo.index, t); err != nil {
				return nil, err
			}
			return b.finalize()
		})
		if err != nil {
			return nil, err
		}
		idx[i] = id
	}
	return NewOp("dom_decay", ProcessDecay, mo.decayCache.matrices, idx, p)
}

func addDomDecay(b *bucket, ps *PoolSet, pi *ParameterIndex, meanAnnualTemp float64) error {
	co2, ok := ps.Index("CO2")
	if !ok {
		return configErrorf("addDomDecay", "pool CO2 is not defined")
	}
	for _, d := range pi.bundle.DecayParameters {
		src, ok := ps.Index(d.Pool)
		if !ok {
			return configErrorf("addDomDecay", "pool %s is not defined", d.Pool)
		}
		rate := decayRate(d, meanAnnualTemp)
		if rate <= 0 {
			continue
		}
		toAtmosphere := rate * d.PropToAtmosphere
		toRoute := rate - toAtmosphere
		if toAtmosphere > 0 {
			if err := b.add(src, co2, toAtmosphere); err != nil {
				return err
			}
		}
		if toRoute > 0 {
			routeTo := d.RouteTo
			if routeTo == "" {
				routeTo = "AboveGroundSlow"
			}
			sink, ok := ps.Index(routeTo)
			if !ok {
				return configErrorf("addDomDecay", "pool %s is not defined", routeTo)
			}
			if sink == src {
				continue
			}
			if err := b.add(src, sink, toRoute); err != nil {
				return err
			}
		}
	}
	return nil
}

// SlowMixing builds the constant-rate AboveGroundSlow→BelowGroundSlow
// transfer op of spec.md §4.2 item 5. The same single matrix is shared
// by every one of the n stands.
func (mo *MatrixOps) SlowMixing(n int) (*Op, error) {
	p := mo.pools.Len()
	id, err := mo.slowMixCache.index("slow_mixing", func() (*mat.Dense, error) {
		ag, ok1 := mo.pools.Index("AboveGroundSlow")
		bg, ok2 := mo.pools.Index("BelowGroundSlow")
		if !ok1 || !ok2 {
			return nil, configErrorf("SlowMixing", "AboveGroundSlow or BelowGroundSlow pools are not defined")
		}
		b := newBucket(p)
		if mo.index.bundle.SlowMixingRate > 0 {
			if err := b.add(ag, bg, mo.index.bundle.SlowMixingRate); err != nil {
				return nil, err
			}
		}
		return b.finalize()
	})
	if err != nil {
		return nil, err
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = id
	}
	return NewOp("slow_mixing", ProcessDecay, mo.slowMixCache.matrices, idx, p)
}

// Disturbance builds the disturbance op of spec.md §4.2 item 6 and §6,
// resolving each stand's (disturbanceType, spatialUnit, landClass)
// tuple to a disturbance-matrix id and materializing its (source, sink,
// proportion) rows. disturbanceType == 0 always yields an identity
// transform.
func (mo *MatrixOps) Disturbance(disturbanceTypes, spatialUnits, landClasses []int) (*Op, error) {
	n := len(disturbanceTypes)
	p := mo.pools.Len()
	idx := make([]int, n)
	for i := 0; i < n; i++ {
		matrixID, ok := mo.index.DisturbanceMatrixID(disturbanceTypes[i], spatialUnits[i], landClasses[i])
		if !ok {
			return nil, configErrorf("Disturbance", "no disturbance matrix association for disturbance type %d, spatial unit %d, land class %d",
				disturbanceTypes[i], spatialUnits[i], landClasses[i])
		}
		key := fmt.Sprintf("disturbance|%d", matrixID)
		id, err := mo.disturbanceCache.index(key, func() (*mat.Dense, error) {
			if matrixID == 0 {
				return identityMatrix(p), nil
			}
			b := newBucket(p)
			for _, row := range mo.index.DisturbanceMatrixRows(matrixID) {
				src, ok := mo.pools.Index(row.Source)
				if !ok {
					return nil, configErrorf("Disturbance", "pool %s is not defined", row.Source)
				}
				sink, ok := mo.pools.Index(row.Sink)
				if !ok {
					return nil, configErrorf("Disturbance", "pool %s is not defined", row.Sink)
				}
				if err := b.set(src, sink, row.Proportion); err != nil {
					return nil, err
				}
			}
			return b.finalize()
		})
		if err != nil {
			return nil, err
		}
		idx[i] = id
	}
	return NewOp("disturbance", ProcessDisturbance, mo.disturbanceCache.matrices, idx, p)
}
