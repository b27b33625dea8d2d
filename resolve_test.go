package libcbm

import "testing"

func TestParameterIndexRejectsDuplicateDecayPool(t *testing.T) {
	_, err := NewParameterIndex(&ParameterBundle{
		DecayParameters: []DecayParameter{{Pool: "AboveGroundSlow"}, {Pool: "AboveGroundSlow"}},
	})
	if err == nil {
		t.Fatal("expected an error for duplicate decay parameters on the same pool")
	}
}

func TestDisturbanceMatrixIDZeroAlwaysResolves(t *testing.T) {
	pi, err := NewParameterIndex(&ParameterBundle{})
	if err != nil {
		t.Fatal(err)
	}
	id, ok := pi.DisturbanceMatrixID(0, 1, 2)
	if !ok || id != 0 {
		t.Fatalf("DisturbanceMatrixID(0, ...) = (%d, %v), want (0, true)", id, ok)
	}
}

func TestDisturbanceMatrixIDFallsBackToLandClassWildcard(t *testing.T) {
	lc := 3
	pi, err := NewParameterIndex(&ParameterBundle{
		DisturbanceAssociations: []DisturbanceAssociation{
			{SpatialUnit: 1, DisturbanceType: 5, LandClass: nil, MatrixID: 42},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	id, ok := pi.DisturbanceMatrixID(5, 1, lc)
	if !ok || id != 42 {
		t.Fatalf("DisturbanceMatrixID = (%d, %v), want (42, true)", id, ok)
	}
}

func TestDisturbanceMatrixIDPrefersLandClassSpecificAssociation(t *testing.T) {
	lc := 3
	pi, err := NewParameterIndex(&ParameterBundle{
		DisturbanceAssociations: []DisturbanceAssociation{
			{SpatialUnit: 1, DisturbanceType: 5, LandClass: nil, MatrixID: 1},
			{SpatialUnit: 1, DisturbanceType: 5, LandClass: &lc, MatrixID: 2},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	id, ok := pi.DisturbanceMatrixID(5, 1, lc)
	if !ok || id != 2 {
		t.Fatalf("DisturbanceMatrixID = (%d, %v), want (2, true)", id, ok)
	}
}

func TestDisturbanceMatrixIDUnresolved(t *testing.T) {
	pi, err := NewParameterIndex(&ParameterBundle{})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pi.DisturbanceMatrixID(9, 1, 2); ok {
		t.Fatal("expected DisturbanceMatrixID to report unresolved for an unconfigured association")
	}
}

func TestLandClassTransitionResolves(t *testing.T) {
	pi, err := NewParameterIndex(&ParameterBundle{
		LandClassTransitions: []LandClassTransition{
			{FromLandClass: 0, DisturbanceType: 7, ToLandClass: 1, RegenerationDelay: 3},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	got, ok := pi.LandClassTransition(0, 7)
	if !ok || got.ToLandClass != 1 || got.RegenerationDelay != 3 {
		t.Fatalf("LandClassTransition = (%+v, %v), want ToLandClass=1, RegenerationDelay=3", got, ok)
	}
	if _, ok := pi.LandClassTransition(0, 99); ok {
		t.Fatal("expected no transition for an unconfigured disturbance type")
	}
}

func TestResolveGrowthCurveLongestMatchWins(t *testing.T) {
	pi, err := NewParameterIndex(&ParameterBundle{
		GrowthCurves: []GrowthCurve{
			{ID: 1, Species: 10, ClassifierKey: "?|?"},
			{ID: 2, Species: 10, ClassifierKey: "NaturalStand|?"},
			{ID: 3, Species: 10, ClassifierKey: "NaturalStand|Pine"},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, ok := pi.ResolveGrowthCurve(10, []string{"NaturalStand", "Pine"})
	if !ok || c.ID != 3 {
		t.Fatalf("ResolveGrowthCurve = (id=%d, %v), want (3, true)", c.ID, ok)
	}
	c, ok = pi.ResolveGrowthCurve(10, []string{"NaturalStand", "Spruce"})
	if !ok || c.ID != 2 {
		t.Fatalf("ResolveGrowthCurve = (id=%d, %v), want (2, true)", c.ID, ok)
	}
	c, ok = pi.ResolveGrowthCurve(10, []string{"Plantation", "Spruce"})
	if !ok || c.ID != 1 {
		t.Fatalf("ResolveGrowthCurve = (id=%d, %v), want (1, true)", c.ID, ok)
	}
}

func TestResolveGrowthCurveNoMatch(t *testing.T) {
	pi, err := NewParameterIndex(&ParameterBundle{
		GrowthCurves: []GrowthCurve{{ID: 1, Species: 10, ClassifierKey: "A|B"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := pi.ResolveGrowthCurve(10, []string{"A"}); ok {
		t.Fatal("expected no match for a mismatched classifier component count")
	}
	if _, ok := pi.ResolveGrowthCurve(99, []string{"A", "B"}); ok {
		t.Fatal("expected no match for an unknown species")
	}
}

func TestResolveGrowthCurveWildcardMatchesUnclassifiedStand(t *testing.T) {
	pi, err := NewParameterIndex(&ParameterBundle{
		GrowthCurves: []GrowthCurve{{ID: 1, Species: 10, ClassifierKey: "?"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	c, ok := pi.ResolveGrowthCurve(10, nil)
	if !ok || c.ID != 1 {
		t.Fatalf("ResolveGrowthCurve(10, nil) = (id=%d, %v), want (1, true)", c.ID, ok)
	}
	// An all-wildcard key still matches a classified stand too, at the
	// component count it was given.
	c, ok = pi.ResolveGrowthCurve(10, []string{"A"})
	if !ok || c.ID != 1 {
		t.Fatalf("ResolveGrowthCurve(10, [A]) = (id=%d, %v), want (1, true)", c.ID, ok)
	}
}

func TestGrowthCurveVolumeAtInterpolatesAndClamps(t *testing.T) {
	c := &GrowthCurve{Points: []GrowthCurvePoint{{Age: 0, Volume: 0}, {Age: 10, Volume: 100}, {Age: 20, Volume: 150}}}
	if v := c.VolumeAt(5); v != 50 {
		t.Fatalf("VolumeAt(5) = %v, want 50", v)
	}
	if v := c.VolumeAt(0); v != 0 {
		t.Fatalf("VolumeAt(0) = %v, want 0", v)
	}
	if v := c.VolumeAt(1000); v != 150 {
		t.Fatalf("VolumeAt(1000) = %v, want 150 (held constant past the table)", v)
	}
	if v := c.VolumeAt(-5); v != 0 {
		t.Fatalf("VolumeAt(-5) = %v, want 0 (clamped to the first point)", v)
	}
}

func TestGrowthCurveBiomassAtPartitions(t *testing.T) {
	c := &GrowthCurve{
		Points:          []GrowthCurvePoint{{Age: 0, Volume: 0}, {Age: 10, Volume: 100}},
		Density:         1.0,
		MerchFraction:   0.5,
		FoliageFraction: 0.2,
		OtherFraction:   0.3,
	}
	merch, foliage, other, coarseRoot, fineRoot := c.BiomassAt(10)
	if merch != 50 || foliage != 20 || other != 30 || coarseRoot != 0 || fineRoot != 0 {
		t.Fatalf("BiomassAt(10) = (%v,%v,%v,%v,%v)", merch, foliage, other, coarseRoot, fineRoot)
	}
}
