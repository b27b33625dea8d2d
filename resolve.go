package libcbm

import "strings"

// ParameterIndex resolves parameter-table lookups into the dense bucket
// ids the matrix-op assembly layer (C2) selects by, and is built once
// from a ParameterBundle (spec.md §4.5).
type ParameterIndex struct {
	bundle *ParameterBundle

	decayByPool               map[string]DecayParameter
	turnoverByKey             map[string]TurnoverParameter
	rootBySpecies             map[int]RootParameter
	disturbanceMatrixRowsByID map[int][]DisturbanceMatrixRow
	associationByKey          map[string]int // disturbanceKey -> matrix id
	landClassTransitionByKey  map[string]LandClassTransition

	growthCurves []GrowthCurve
}

// NewParameterIndex builds lookup maps over a ParameterBundle once, so
// that per-stand, per-step decay, turnover, root, disturbance and
// land-class lookups are O(1) map access rather than a linear scan of the
// parameter tables. Growth-curve resolution still scans the curve list.
func NewParameterIndex(bundle *ParameterBundle) (*ParameterIndex, error) {
	pi := &ParameterIndex{
		bundle:                    bundle,
		decayByPool:               make(map[string]DecayParameter),
		turnoverByKey:             make(map[string]TurnoverParameter),
		rootBySpecies:             make(map[int]RootParameter),
		disturbanceMatrixRowsByID: make(map[int][]DisturbanceMatrixRow),
		associationByKey:          make(map[string]int),
		landClassTransitionByKey:  make(map[string]LandClassTransition),
		growthCurves:              bundle.GrowthCurves,
	}
	for _, d := range bundle.DecayParameters {
		if _, ok := pi.decayByPool[d.Pool]; ok {
			return nil, configErrorf("NewParameterIndex", "duplicate decay parameters for pool %q", d.Pool)
		}
		pi.decayByPool[d.Pool] = d
	}
	for _, t := range bundle.TurnoverParameters {
		pi.turnoverByKey[turnoverKey(t.SpatialUnit, t.SpeciesClass)] = t
	}
	for _, r := range bundle.RootParameters {
		pi.rootBySpecies[r.Species] = r
	}
	for _, row := range bundle.DisturbanceMatrixRows {
		pi.disturbanceMatrixRowsByID[row.MatrixID] = append(pi.disturbanceMatrixRowsByID[row.MatrixID], row)
	}
	for _, a := range bundle.DisturbanceAssociations {
		landClass := -1
		if a.LandClass != nil {
			landClass = *a.LandClass
		}
		pi.associationByKey[disturbanceKey(a.DisturbanceType, a.SpatialUnit, landClass)] = a.MatrixID
	}
	for _, t := range bundle.LandClassTransitions {
		pi.landClassTransitionByKey[landClassTransitionKey(t.FromLandClass, t.DisturbanceType)] = t
	}
	return pi, nil
}

// LandClassTransition resolves (current land class, disturbance type)
// to a land-class transition, and false if the disturbance does not
// trigger one (the stand's land class and regeneration delay are left
// unchanged).
func (pi *ParameterIndex) LandClassTransition(landClass, disturbanceType int) (LandClassTransition, bool) {
	t, ok := pi.landClassTransitionByKey[landClassTransitionKey(landClass, disturbanceType)]
	return t, ok
}

// DecayParameter returns the decay parameters for pool, and false if the
// pool has none configured (in which case it does not decay).
func (pi *ParameterIndex) DecayParameter(pool string) (DecayParameter, bool) {
	d, ok := pi.decayByPool[pool]
	return d, ok
}

// Turnover returns the turnover parameters for (spatialUnit, class).
func (pi *ParameterIndex) Turnover(spatialUnit int, class SpeciesClass) (TurnoverParameter, bool) {
	t, ok := pi.turnoverByKey[turnoverKey(spatialUnit, class)]
	return t, ok
}

// Root returns the root parameters for species.
func (pi *ParameterIndex) Root(species int) (RootParameter, bool) {
	r, ok := pi.rootBySpecies[species]
	return r, ok
}

// DisturbanceMatrixID resolves (disturbanceType, spatialUnit, landClass)
// to a matrix id, first trying the land-class-specific association and
// falling back to the land-class-wildcard association (spec.md §4.5).
// disturbanceType == 0 always resolves to matrix id 0 (the no-op
// identity).
func (pi *ParameterIndex) DisturbanceMatrixID(disturbanceType, spatialUnit, landClass int) (int, bool) {
	if disturbanceType == 0 {
		return 0, true
	}
	if id, ok := pi.associationByKey[disturbanceKey(disturbanceType, spatialUnit, landClass)]; ok {
		return id, true
	}
	if id, ok := pi.associationByKey[disturbanceKey(disturbanceType, spatialUnit, -1)]; ok {
		return id, true
	}
	return 0, false
}

// DisturbanceMatrixRows returns the (source, sink, proportion) rows for
// a resolved matrix id.
func (pi *ParameterIndex) DisturbanceMatrixRows(matrixID int) []DisturbanceMatrixRow {
	return pi.disturbanceMatrixRowsByID[matrixID]
}

// MeanAnnualTemperature returns the default mean annual temperature for
// a spatial unit.
func (pi *ParameterIndex) MeanAnnualTemperature(spatialUnit int) float64 {
	return pi.bundle.MeanAnnualTemperature[spatialUnit]
}

// ResolveGrowthCurve finds the growth curve for a species and classifier
// tuple using longest-match semantics: among curves whose ClassifierKey
// matches classifiers component-wise (a "?" component matches any
// value), the curve with the most non-wildcard matching components
// wins (spec.md §4.5). Returns false if no curve matches.
func (pi *ParameterIndex) ResolveGrowthCurve(species int, classifiers []string) (*GrowthCurve, bool) {
	var best *GrowthCurve
	bestScore := -1
	for i := range pi.growthCurves {
		c := &pi.growthCurves[i]
		if c.Species != species {
			continue
		}
		score, ok := classifierMatchScore(c.ClassifierKey, classifiers)
		if !ok {
			continue
		}
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// classifierMatchScore compares a "|"-joined classifier key containing
// possible "?" wildcard components against a stand's classifier values.
// It returns the number of non-wildcard components that matched exactly,
// and false if any non-wildcard component mismatched or the component
// counts differ. A stand with no classifiers configured (len(classifiers)
// == 0) matches only an all-wildcard key, since there is nothing for a
// non-wildcard component to match against.
func classifierMatchScore(key string, classifiers []string) (int, bool) {
	parts := strings.Split(key, "|")
	if len(classifiers) == 0 {
		for _, part := range parts {
			if part != "?" {
				return 0, false
			}
		}
		return 0, true
	}
	if len(parts) != len(classifiers) {
		return 0, false
	}
	score := 0
	for i, part := range parts {
		if part == "?" {
			continue
		}
		if part != classifiers[i] {
			return 0, false
		}
		score++
	}
	return score, true
}
