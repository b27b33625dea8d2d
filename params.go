package libcbm

import (
	"fmt"
	"strconv"
)

// DecayParameter holds the per-DOM-pool decay rate parameters of spec.md
// §3: base rate, reference temperature, Q10 response, the proportion of
// decayed mass routed directly to atmosphere, and a rate ceiling.
type DecayParameter struct {
	Pool             string
	BaseRate         float64
	ReferenceTemp    float64
	Q10              float64
	PropToAtmosphere float64
	MaxRate          float64
	// RouteTo names the pool that receives the non-atmosphere remainder.
	// Empty means "AboveGroundSlow" (spec.md §4.2's default routing);
	// stem-snag and branch-snag decay set their own value.
	RouteTo string
}

// TurnoverParameter holds the per-(spatial-unit, species-class) annual
// turnover fractions from live biomass pools into DOM pools, plus the
// stem/branch snag half-life inputs used to derive snag turnover rates.
type TurnoverParameter struct {
	SpatialUnit  int
	SpeciesClass SpeciesClass

	FoliageToAGVeryFast    float64
	StemToStemSnag         float64
	StemSnagToAGFast       float64
	BranchToBranchSnag     float64
	BranchSnagToAGFast     float64
	OtherToAGFast          float64
	CoarseRootToAGFast     float64
	CoarseRootToBGFast     float64
	FineRootToAGVeryFast   float64
	FineRootToBGVeryFast   float64

	StemSnagHalfLife   float64
	BranchSnagHalfLife float64
}

// RootParameter holds the per-species biomass-to-root split and root
// turnover rates.
type RootParameter struct {
	Species            int
	CoarseRootFraction float64
	FineRootFraction   float64
	CoarseRootTurnover float64
	FineRootTurnover   float64
}

// GrowthCurvePoint is one (age, merchantable-volume) sample of a
// piecewise-linear growth curve.
type GrowthCurvePoint struct {
	Age    int
	Volume float64
}

// GrowthCurve is a per-classifier-set/species piecewise-linear
// age→merchantable-volume table, plus the fractions that convert it to
// the per-pool biomass increments used by the volume-driven growth op.
// Points must be sorted ascending by Age.
type GrowthCurve struct {
	ID             int
	ClassifierKey  string // longest-match classifier-set key, "?" = wildcard component
	Species        int
	Points         []GrowthCurvePoint
	// MerchFraction, FoliageFraction, OtherFraction, CoarseRootFraction
	// and FineRootFraction partition a volume increment into biomass
	// pools (a simplified stand-in for the external volume-to-biomass
	// conversion tables, which spec.md §1 places out of scope).
	MerchFraction      float64
	FoliageFraction    float64
	OtherFraction      float64
	CoarseRootFraction float64
	FineRootFraction   float64
	// Density converts merchantable volume [m3/ha] to merchantable
	// biomass [tonnes C/ha].
	Density float64
}

// VolumeAt returns the interpolated merchantable volume at the given
// age, per spec.md §4.5: piecewise-linear between table points, and the
// last defined volume held constant for ages beyond the table.
func (g *GrowthCurve) VolumeAt(age int) float64 {
	pts := g.Points
	if len(pts) == 0 {
		return 0
	}
	if age <= pts[0].Age {
		return pts[0].Volume
	}
	last := pts[len(pts)-1]
	if age >= last.Age {
		return last.Volume
	}
	for i := 1; i < len(pts); i++ {
		if age <= pts[i].Age {
			prev := pts[i-1]
			span := float64(pts[i].Age - prev.Age)
			frac := float64(age-prev.Age) / span
			return prev.Volume + frac*(pts[i].Volume-prev.Volume)
		}
	}
	return last.Volume
}

// BiomassAt converts a merchantable-volume sample into a
// (merch, foliage, other, coarseRoot, fineRoot) biomass tuple using the
// curve's fixed partition fractions and density.
func (g *GrowthCurve) BiomassAt(age int) (merch, foliage, other, coarseRoot, fineRoot float64) {
	totalBiomass := g.VolumeAt(age) * g.Density
	merch = totalBiomass * g.MerchFraction
	foliage = totalBiomass * g.FoliageFraction
	other = totalBiomass * g.OtherFraction
	coarseRoot = totalBiomass * g.CoarseRootFraction
	fineRoot = totalBiomass * g.FineRootFraction
	return
}

// DisturbanceMatrixRow is one (source, sink, proportion) flow in a
// disturbance matrix file (spec.md §6).
type DisturbanceMatrixRow struct {
	MatrixID int
	Source   string
	Sink     string
	Proportion float64
}

// DisturbanceAssociation resolves a (spatial unit, disturbance type,
// optional land class) tuple to a disturbance-matrix id (spec.md §6).
// LandClass == nil matches any land class.
type DisturbanceAssociation struct {
	SpatialUnit     int
	DisturbanceType int
	LandClass       *int
	MatrixID        int
}

// LandClassTransition resolves (land class, disturbance type) to a new
// land class and regeneration-delay reset, e.g. for deforestation or
// afforestation events (spec.md §4.4 step_end, §9's land-class-transition
// Open Question).
type LandClassTransition struct {
	FromLandClass     int
	DisturbanceType   int
	ToLandClass       int
	RegenerationDelay int
}

// ParameterBundle is the read-only set of parameter tables an Engine is
// built from (spec.md §6).
type ParameterBundle struct {
	DecayParameters         []DecayParameter
	TurnoverParameters      []TurnoverParameter
	RootParameters          []RootParameter
	SlowMixingRate           float64
	DisturbanceMatrixRows    []DisturbanceMatrixRow
	DisturbanceAssociations  []DisturbanceAssociation
	GrowthCurves             []GrowthCurve
	LandClassTransitions     []LandClassTransition
	// MeanAnnualTemperature is a per-spatial-unit temperature table, read
	// through ParameterIndex.MeanAnnualTemperature. Spinup and step use the
	// per-stand SpinupParameters/StandState temperatures and do not fall
	// back to this table.
	MeanAnnualTemperature map[int]float64
}

// SpinupParameters are the per-stand parameters spinup is driven by
// (spec.md §3 "Parameters per stand" under §4.3).
type SpinupParameters struct {
	ReturnInterval            int
	MinRotations              int
	MaxRotations              int
	HistoricalDisturbanceType int
	LastPassDisturbanceType   int
	FinalAge                  int
	Delay                     int
	SpatialUnit               int
	Species                   int
	SpeciesClass              SpeciesClass
	Classifiers               []string
	// LandClass feeds disturbance-matrix resolution alongside
	// HistoricalDisturbanceType/LastPassDisturbanceType; it does not
	// change during spinup itself (land-class transitions are a step-only
	// concern, spec.md §4.4).
	LandClass             int
	MeanAnnualTemperature float64
}

// SpinupInput is the per-stand spinup-input bundle of spec.md §6.
type SpinupInput struct {
	Parameters []SpinupParameters
	// Increments optionally supplies the increment-driven variant's
	// per-step biomass increments keyed by age, indexed in parallel with
	// Parameters; nil under the volume-driven variant.
	Increments [][]AgeIncrement
}

// AgeIncrement is one year's merch/foliage/other increment sample for
// the increment-driven growth variant.
type AgeIncrement struct {
	Age        int
	MerchInc   float64
	FoliageInc float64
	OtherInc   float64
}

// disturbanceKey builds the Interner key for a disturbance-association
// lookup; landClass < 0 means "no land class" (wildcard).
func disturbanceKey(disturbanceType, spatialUnit, landClass int) string {
	return fmt.Sprintf("%d|%d|%d", disturbanceType, spatialUnit, landClass)
}

// turnoverKey builds the Interner key for a turnover-parameter lookup.
func turnoverKey(spatialUnit int, class SpeciesClass) string {
	return strconv.Itoa(spatialUnit) + "|" + strconv.Itoa(int(class))
}

// landClassTransitionKey builds the Interner key for a land-class
// transition lookup.
func landClassTransitionKey(landClass, disturbanceType int) string {
	return strconv.Itoa(landClass) + "|" + strconv.Itoa(disturbanceType)
}
