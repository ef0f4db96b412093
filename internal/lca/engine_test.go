package lca

import (
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/lifecyclelab/ecolca/internal/dataset"
)

func testMaterials() map[string]dataset.Material {
	return map[string]dataset.Material{
		"Steel": {
			Name:            "Steel",
			CO2ePerKg:       2.5,
			RecycledContent: 30,
			Circularity:     "high",
			EndOfLife:       "Recyclable",
			Lifetime:        "10 years",
		},
		"Aluminium": {
			Name:            "Aluminium",
			CO2ePerKg:       8.2,
			RecycledContent: 60,
			Circularity:     "medium",
			EndOfLife:       "Recyclable",
			Lifetime:        "20 years",
		},
		"Foam": {
			Name:            "Foam",
			CO2ePerKg:       3.1,
			RecycledContent: 0,
			Circularity:     "not circular",
			EndOfLife:       "Landfill",
			Lifetime:        "5 years",
		},
	}
}

func testProcesses() map[string]dataset.Process {
	return map[string]dataset.Process{
		"Manufacturing": {Name: "Manufacturing", CO2ePerUnit: 1.2, Unit: "kg"},
		"Transport":     {Name: "Transport", CO2ePerUnit: 0.1, Unit: "km"},
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

// ----------------------------------------------------------------------------
// ComputeResults Tests
// ----------------------------------------------------------------------------

func TestComputeResults_MaterialOnly(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{
		Materials:     []MaterialLine{{Material: "Steel", Mass: 10}},
		LifetimeWeeks: 52,
	}, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	if !almostEqual(res.MaterialCO2eTotal, 25.0) {
		t.Errorf("MaterialCO2eTotal = %v, want 25.0", res.MaterialCO2eTotal)
	}
	if !almostEqual(res.WeightedRecycledContent, 30.0) {
		t.Errorf("WeightedRecycledContent = %v, want 30.0", res.WeightedRecycledContent)
	}
	if !almostEqual(res.OverallCO2e, 25.0) {
		t.Errorf("OverallCO2e = %v, want 25.0", res.OverallCO2e)
	}
	if !almostEqual(res.TotalMass, 10.0) {
		t.Errorf("TotalMass = %v, want 10.0", res.TotalMass)
	}
}

func TestComputeResults_WithProcesses(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{
		Materials:     []MaterialLine{{Material: "Steel", Mass: 10}},
		Processes:     []ProcessLine{{Process: "Manufacturing", Amount: 5}},
		LifetimeWeeks: 52,
	}, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	if !almostEqual(res.ProcessCO2eTotal, 6.0) {
		t.Errorf("ProcessCO2eTotal = %v, want 6.0", res.ProcessCO2eTotal)
	}
	if !almostEqual(res.OverallCO2e, 31.0) {
		t.Errorf("OverallCO2e = %v, want 31.0", res.OverallCO2e)
	}
}

func TestComputeResults_TreeEquivalents(t *testing.T) {
	e := NewEngine(Params{TreeCO2KgPerYear: 22})
	materials := map[string]dataset.Material{
		"Panel": {Name: "Panel", CO2ePerKg: 22},
	}

	res, err := e.ComputeResults(Assessment{
		Materials:     []MaterialLine{{Material: "Panel", Mass: 1}},
		LifetimeWeeks: 52,
	}, materials, nil)
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	if !almostEqual(res.TreesEquivalent, 1.0) {
		t.Errorf("TreesEquivalent = %v, want 1.0", res.TreesEquivalent)
	}
	if !almostEqual(res.TreesPerYear, 1.0) {
		t.Errorf("TreesPerYear = %v, want 1.0", res.TreesPerYear)
	}
	if !almostEqual(res.LifetimeYears, 1.0) {
		t.Errorf("LifetimeYears = %v, want 1.0", res.LifetimeYears)
	}
}

func TestComputeResults_ZeroMassHasZeroWeightedContent(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{
		Materials:     []MaterialLine{{Material: "Steel", Mass: 0}},
		LifetimeWeeks: 52,
	}, testMaterials(), nil)
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	if res.WeightedRecycledContent != 0 {
		t.Errorf("WeightedRecycledContent = %v, want 0 at zero mass", res.WeightedRecycledContent)
	}
	if res.MaterialCO2eTotal != 0 {
		t.Errorf("MaterialCO2eTotal = %v, want 0", res.MaterialCO2eTotal)
	}
}

func TestComputeResults_Idempotent(t *testing.T) {
	e := NewEngine(Params{})
	a := Assessment{
		Materials: []MaterialLine{
			{Material: "Steel", Mass: 10},
			{Material: "Aluminium", Mass: 2.5},
		},
		Processes:     []ProcessLine{{Process: "Transport", Amount: 120}},
		LifetimeWeeks: 104,
	}

	first, err := e.ComputeResults(a, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("first ComputeResults: %v", err)
	}
	second, err := e.ComputeResults(a, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("second ComputeResults: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ across identical calls:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestComputeResults_MissingMaterial(t *testing.T) {
	e := NewEngine(Params{})

	_, err := e.ComputeResults(Assessment{
		Materials:     []MaterialLine{{Material: "Unobtainium", Mass: 1}},
		LifetimeWeeks: 52,
	}, testMaterials(), testProcesses())

	var missing *MissingEntryError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingEntryError", err)
	}
	if missing.Kind != "material" || missing.Name != "Unobtainium" {
		t.Errorf("MissingEntryError = %+v, want material/Unobtainium", missing)
	}
}

func TestComputeResults_MissingProcess(t *testing.T) {
	e := NewEngine(Params{})

	_, err := e.ComputeResults(Assessment{
		Materials:     []MaterialLine{{Material: "Steel", Mass: 1}},
		Processes:     []ProcessLine{{Process: "Teleportation", Amount: 1}},
		LifetimeWeeks: 52,
	}, testMaterials(), testProcesses())

	var missing *MissingEntryError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want *MissingEntryError", err)
	}
	if missing.Kind != "process" {
		t.Errorf("Kind = %q, want process", missing.Kind)
	}
}

func TestComputeResults_BreakdownOrderAndPercent(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{
		Materials: []MaterialLine{
			{Material: "Foam", Mass: 2},
			{Material: "Steel", Mass: 10},
			{Material: "Aluminium", Mass: 5},
		},
		LifetimeWeeks: 52,
	}, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	wantOrder := []string{"Foam", "Steel", "Aluminium"}
	if len(res.Materials) != len(wantOrder) {
		t.Fatalf("breakdown entries = %d, want %d", len(res.Materials), len(wantOrder))
	}
	var percentSum float64
	for i, entry := range res.Materials {
		if entry.Material != wantOrder[i] {
			t.Errorf("breakdown[%d] = %q, want %q (input order preserved)", i, entry.Material, wantOrder[i])
		}
		wantPercent := entry.TotalCO2e / res.OverallCO2e * 100
		if !almostEqual(entry.Percent, wantPercent) {
			t.Errorf("breakdown[%d].Percent = %v, want %v", i, entry.Percent, wantPercent)
		}
		percentSum += entry.Percent
	}
	if !almostEqual(percentSum, 100.0) {
		t.Errorf("percent sum = %v, want 100", percentSum)
	}
}

func TestComputeResults_AttachedProcessLines(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{
		Materials: []MaterialLine{
			{Material: "Steel", Mass: 10},
			{Material: "Foam", Mass: 2},
		},
		Processes: []ProcessLine{
			{Process: "Manufacturing", Amount: 5, Material: "Steel"},
			{Process: "Transport", Amount: 100, Material: "Casing"}, // not selected
			{Process: "Transport", Amount: 50},                      // unattached
		},
		LifetimeWeeks: 52,
	}, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	// 5*1.2 + 100*0.1 + 50*0.1: every line counts toward the total.
	if !almostEqual(res.ProcessCO2eTotal, 21.0) {
		t.Errorf("ProcessCO2eTotal = %v, want 21.0", res.ProcessCO2eTotal)
	}

	steel := res.Materials[0]
	if !almostEqual(steel.ProcessCO2e, 6.0) {
		t.Errorf("Steel.ProcessCO2e = %v, want 6.0 from the attached step", steel.ProcessCO2e)
	}
	if !almostEqual(steel.TotalCO2e, 31.0) {
		t.Errorf("Steel.TotalCO2e = %v, want 31.0", steel.TotalCO2e)
	}
	if foam := res.Materials[1]; foam.ProcessCO2e != 0 {
		t.Errorf("Foam.ProcessCO2e = %v, want 0", foam.ProcessCO2e)
	}
}

func TestComputeResults_EndOfLifeBreakdown(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{
		Materials: []MaterialLine{
			{Material: "Steel", Mass: 10},
			{Material: "Aluminium", Mass: 5},
			{Material: "Foam", Mass: 2},
		},
		LifetimeWeeks: 52,
	}, testMaterials(), nil)
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}

	want := map[string]float64{"Recyclable": 15, "Landfill": 2}
	if !reflect.DeepEqual(res.EndOfLife, want) {
		t.Errorf("EndOfLife = %v, want %v", res.EndOfLife, want)
	}
}

func TestComputeResults_EmptyAssessment(t *testing.T) {
	e := NewEngine(Params{})

	res, err := e.ComputeResults(Assessment{LifetimeWeeks: 52}, testMaterials(), testProcesses())
	if err != nil {
		t.Fatalf("ComputeResults: %v", err)
	}
	if res.OverallCO2e != 0 || res.TreesEquivalent != 0 || res.TreesPerYear != 0 {
		t.Errorf("empty assessment results = %+v, want all-zero totals", res)
	}
	if len(res.Materials) != 0 {
		t.Errorf("breakdown = %v, want empty", res.Materials)
	}
}

// ----------------------------------------------------------------------------
// Assessment Validation Tests
// ----------------------------------------------------------------------------

func TestComputeResults_InvalidAssessment(t *testing.T) {
	tests := []struct {
		name        string
		assessment  Assessment
		wantProblem string
	}{
		{
			name: "zero lifetime",
			assessment: Assessment{
				Materials: []MaterialLine{{Material: "Steel", Mass: 1}},
			},
			wantProblem: "lifetime_weeks must be greater than 0",
		},
		{
			name: "negative mass",
			assessment: Assessment{
				Materials:     []MaterialLine{{Material: "Steel", Mass: -4}},
				LifetimeWeeks: 52,
			},
			wantProblem: "materials[0].mass must be at least 0",
		},
		{
			name: "empty material name",
			assessment: Assessment{
				Materials:     []MaterialLine{{Material: "", Mass: 1}},
				LifetimeWeeks: 52,
			},
			wantProblem: "materials[0].material is required",
		},
		{
			name: "empty process name",
			assessment: Assessment{
				Materials:     []MaterialLine{{Material: "Steel", Mass: 1}},
				Processes:     []ProcessLine{{Process: "", Amount: 1}},
				LifetimeWeeks: 52,
			},
			wantProblem: "processes[0].process is required",
		},
		{
			name: "duplicate material line",
			assessment: Assessment{
				Materials: []MaterialLine{
					{Material: "Steel", Mass: 1},
					{Material: "Steel", Mass: 2},
				},
				LifetimeWeeks: 52,
			},
			wantProblem: `duplicate entry "Steel"`,
		},
	}

	e := NewEngine(Params{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ComputeResults(tt.assessment, testMaterials(), testProcesses())

			var invalid *InvalidAssessmentError
			if !errors.As(err, &invalid) {
				t.Fatalf("err = %v, want *InvalidAssessmentError", err)
			}
			found := false
			for _, p := range invalid.Problems {
				if strings.Contains(p, tt.wantProblem) {
					found = true
				}
			}
			if !found {
				t.Errorf("Problems = %v, want one containing %q", invalid.Problems, tt.wantProblem)
			}
		})
	}
}
