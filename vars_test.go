package libcbm

import "testing"

func TestNewPoolMatrixSeedsInputAcrossStands(t *testing.T) {
	ps, err := NewPoolSet(DefaultPools())
	if err != nil {
		t.Fatal(err)
	}
	m := NewPoolMatrix(ps, 4)
	input := ps.InputIndex()
	for i := 0; i < 4; i++ {
		if m.Row(i)[input] != 1.0 {
			t.Fatalf("stand %d Input = %v, want 1.0", i, m.Row(i)[input])
		}
	}
	if m.N() != 4 || m.P() != ps.Len() {
		t.Fatalf("N()=%d P()=%d, want N=4 P=%d", m.N(), m.P(), ps.Len())
	}
}

func TestPoolMatrixTotalSumsAcrossStands(t *testing.T) {
	ps, err := NewPoolSet([]string{"Input", "A"})
	if err != nil {
		t.Fatal(err)
	}
	m := NewPoolMatrix(ps, 3)
	a, _ := ps.Index("A")
	m.Row(0)[a] = 1
	m.Row(1)[a] = 2
	m.Row(2)[a] = 3
	if got, want := m.Total(a), 6.0; got != want {
		t.Fatalf("Total(A) = %v, want %v", got, want)
	}
}

func TestFluxMatrixZeroAcrossMultipleStands(t *testing.T) {
	ps, err := NewPoolSet([]string{"Input", "A", "B"})
	if err != nil {
		t.Fatal(err)
	}
	a, _ := ps.Index("A")
	b, _ := ps.Index("B")
	fis, err := NewFluxIndicatorSet(ps, []FluxIndicator{{Name: "x", Process: ProcessDecay, Sources: []int{a}, Sinks: []int{b}}})
	if err != nil {
		t.Fatal(err)
	}
	m := NewFluxMatrix(fis, 2)
	m.Row(0)[0] = 1
	m.Row(1)[0] = 2
	m.Zero()
	if m.Row(0)[0] != 0 || m.Row(1)[0] != 0 {
		t.Fatal("Zero() did not clear every stand's flux row")
	}
}

func TestNewStateTableDefaults(t *testing.T) {
	st := NewStateTable(5)
	if st.N() != 5 {
		t.Fatalf("N() = %d, want 5", st.N())
	}
	for i := 0; i < 5; i++ {
		row := st.Row(i)
		if !row.Enabled {
			t.Fatalf("stand %d Enabled = false, want true", i)
		}
		if row.GrowthMultiplier != 1.0 {
			t.Fatalf("stand %d GrowthMultiplier = %v, want 1.0", i, row.GrowthMultiplier)
		}
	}
}

func TestStateTableEnabledReflectsPerStandFlag(t *testing.T) {
	st := NewStateTable(3)
	st.Row(1).Enabled = false
	enabled := st.Enabled()
	want := []bool{true, false, true}
	for i := range want {
		if enabled[i] != want[i] {
			t.Fatalf("Enabled()[%d] = %v, want %v", i, enabled[i], want[i])
		}
	}
}

func TestSpinupPhaseStringCoversAllPhases(t *testing.T) {
	phases := []SpinupPhase{
		PhaseAnnualProcess, PhaseHistoricalDisturbance, PhaseGrowToFinalAge,
		PhaseLastPassDisturbance, PhaseGrowToFinalAge2, PhaseDelay, PhaseEnd,
	}
	seen := make(map[string]bool)
	for _, p := range phases {
		s := p.String()
		if s == "Unknown" {
			t.Fatalf("phase %d stringified as Unknown", p)
		}
		if seen[s] {
			t.Fatalf("duplicate phase string %q", s)
		}
		seen[s] = true
	}
	if got := SpinupPhase(999).String(); got != "Unknown" {
		t.Fatalf("out-of-range phase String() = %q, want Unknown", got)
	}
}

func TestNewSpinupVarsTableStartsInAnnualProcess(t *testing.T) {
	sv := NewSpinupVarsTable(2)
	for i := 0; i < 2; i++ {
		if sv.Row(i).Phase != PhaseAnnualProcess {
			t.Fatalf("stand %d phase = %v, want PhaseAnnualProcess", i, sv.Row(i).Phase)
		}
	}
}
