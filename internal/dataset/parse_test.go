package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/lifecyclelab/ecolca/internal/workbook"
)

func materialsSheet(rows ...[]string) *workbook.Sheet {
	return &workbook.Sheet{
		Name:   "Materials",
		Header: []string{"Material Name", "CO2e (kg)", "Recycled Content", "Circularity", "EoL", "Lifetime", "Category"},
		Rows:   rows,
	}
}

func processesSheet(rows ...[]string) *workbook.Sheet {
	return &workbook.Sheet{
		Name:   "Processes",
		Header: []string{"Process Type", "CO2e per unit", "Unit"},
		Rows:   rows,
	}
}

// ----------------------------------------------------------------------------
// ParseMaterials Tests
// ----------------------------------------------------------------------------

func TestParseMaterials_FullRow(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "High", "Recyclable", "10 years", "Metal"},
	)

	materials, issues, err := ParseMaterials(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseMaterials: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}

	got, ok := materials["Steel"]
	if !ok {
		t.Fatalf("materials missing %q, have %v", "Steel", materials)
	}
	want := Material{
		Name:            "Steel",
		CO2ePerKg:       2.5,
		RecycledContent: 30,
		Circularity:     "high",
		EndOfLife:       "Recyclable",
		Lifetime:        "10 years",
		Category:        "Metal",
	}
	if got != want {
		t.Errorf("materials[Steel] = %+v, want %+v", got, want)
	}
}

func TestParseMaterials_DefaultsEmptyDescriptors(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "", "", ""},
	)

	materials, issues, err := ParseMaterials(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseMaterials: %v", err)
	}

	got := materials["Steel"]
	if got.Circularity != DefaultDescriptor || got.EndOfLife != DefaultDescriptor || got.Lifetime != DefaultDescriptor {
		t.Errorf("descriptors = %q/%q/%q, want %q for all",
			got.Circularity, got.EndOfLife, got.Lifetime, DefaultDescriptor)
	}
	if len(issues) != 3 {
		t.Errorf("issues = %d, want 3 (one per defaulted field): %v", len(issues), issues)
	}
}

func TestParseMaterials_DropsBrokenRows(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "high", "Recyclable", "10 years"},
		[]string{"", "1.0", "10", "low", "Landfill", "1 year"},            // no name
		[]string{"Copper", "not a number", "10", "low", "Landfill", "1"},  // bad co2e
		[]string{"Zinc", "-1", "10", "low", "Landfill", "1 year"},         // negative co2e
		[]string{"Brass", "2.0", "150", "low", "Landfill", "1 year"},      // recycled content over 100
	)

	materials, issues, err := ParseMaterials(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseMaterials: %v", err)
	}

	if len(materials) != 1 {
		t.Errorf("len(materials) = %d, want 1 (only Steel survives): %v", len(materials), materials)
	}
	if _, ok := materials["Steel"]; !ok {
		t.Errorf("materials missing Steel")
	}
	if len(issues) != 4 {
		t.Errorf("issues = %d, want 4:\n%v", len(issues), issues)
	}

	// Row numbers in issues use the spreadsheet's 1-based display rows.
	for _, issue := range issues {
		if issue.Row < 3 || issue.Row > 6 {
			t.Errorf("issue row %d outside expected data range 3-6: %v", issue.Row, issue)
		}
	}
}

func TestParseMaterials_SkipsBlankRows(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "high", "Recyclable", "10 years"},
		[]string{"", "", "", "", "", ""},
		[]string{"   ", "", "", "", "", ""},
		[]string{"Aluminium", "8.2", "60", "high", "Recyclable", "20 years"},
	)

	materials, issues, err := ParseMaterials(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseMaterials: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("issues = %v, want none for blank rows", issues)
	}
	if len(materials) != 2 {
		t.Errorf("len(materials) = %d, want 2", len(materials))
	}
}

func TestParseMaterials_DuplicatePolicy(t *testing.T) {
	sheet := func() *workbook.Sheet {
		return materialsSheet(
			[]string{"Steel", "2.5", "30", "high", "Recyclable", "10 years"},
			[]string{"Steel", "3.0", "40", "low", "Landfill", "5 years"},
		)
	}

	tests := []struct {
		name      string
		policy    DuplicatePolicy
		wantCO2e  float64
		wantInMsg string
	}{
		{
			name:      "last wins",
			policy:    DuplicateLastWins,
			wantCO2e:  3.0,
			wantInMsg: "last occurrence wins",
		},
		{
			name:      "first wins",
			policy:    DuplicateFirstWins,
			wantCO2e:  2.5,
			wantInMsg: "first occurrence wins",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			materials, issues, err := ParseMaterials(sheet(), tt.policy)
			if err != nil {
				t.Fatalf("ParseMaterials: %v", err)
			}
			if got := materials["Steel"].CO2ePerKg; got != tt.wantCO2e {
				t.Errorf("materials[Steel].CO2ePerKg = %v, want %v", got, tt.wantCO2e)
			}
			if len(issues) != 1 {
				t.Fatalf("issues = %v, want exactly one duplicate issue", issues)
			}
			if !strings.Contains(issues[0].Message, tt.wantInMsg) {
				t.Errorf("issue message %q does not mention %q", issues[0].Message, tt.wantInMsg)
			}
		})
	}
}

func TestParseMaterials_UnknownCircularityKept(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "Partially", "Recyclable", "10 years"},
	)

	materials, issues, err := ParseMaterials(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseMaterials: %v", err)
	}
	if got := materials["Steel"].Circularity; got != "partially" {
		t.Errorf("Circularity = %q, want lowercased original token", got)
	}
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "must be one of") {
		t.Errorf("issues = %v, want one vocabulary issue", issues)
	}
}

func TestParseMaterials_HeaderAliases(t *testing.T) {
	s := &workbook.Sheet{
		Name:   "Materials",
		Header: []string{"Material", "kg CO2e per kg", "Recycled %", "Circ", "End of Life", "Lifespan"},
		Rows: [][]string{
			{"Steel", "2.5", "30", "high", "Recyclable", "10 years"},
		},
	}

	materials, _, err := ParseMaterials(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseMaterials with alias headers: %v", err)
	}
	got := materials["Steel"]
	if got.CO2ePerKg != 2.5 || got.RecycledContent != 30 || got.EndOfLife != "Recyclable" {
		t.Errorf("aliased columns not resolved: %+v", got)
	}
}

func TestParseMaterials_MissingColumn(t *testing.T) {
	s := &workbook.Sheet{
		Name:   "Materials",
		Header: []string{"Material Name", "Recycled Content", "Circularity", "EoL", "Lifetime"},
		Rows: [][]string{
			{"Steel", "30", "high", "Recyclable", "10 years"},
		},
	}

	_, _, err := ParseMaterials(s, DuplicateLastWins)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if !strings.Contains(fe.Reason, "missing required columns") || !strings.Contains(fe.Reason, "CO2e (kg)") {
		t.Errorf("Reason = %q, want it to name the missing CO2e column", fe.Reason)
	}
}

func TestParseMaterials_EmptySheet(t *testing.T) {
	s := &workbook.Sheet{Name: "Materials"}

	_, _, err := ParseMaterials(s, DuplicateLastWins)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if fe.Reason != "sheet is empty" {
		t.Errorf("Reason = %q, want %q", fe.Reason, "sheet is empty")
	}
}

func TestParseMaterials_NoValidRows(t *testing.T) {
	s := materialsSheet(
		[]string{"", "2.5", "30", "high", "Recyclable", "10 years"},
		[]string{"Steel", "bad", "30", "high", "Recyclable", "10 years"},
	)

	_, issues, err := ParseMaterials(s, DuplicateLastWins)
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if fe.Reason != "no valid data rows" {
		t.Errorf("Reason = %q, want %q", fe.Reason, "no valid data rows")
	}
	if len(issues) != 2 {
		t.Errorf("issues = %v, want the two row problems returned alongside the error", issues)
	}
}

// ----------------------------------------------------------------------------
// ParseProcesses Tests
// ----------------------------------------------------------------------------

func TestParseProcesses_FullRow(t *testing.T) {
	s := processesSheet(
		[]string{"Injection Molding", "1.2", "kWh"},
		[]string{"Road Transport", "0.1", "KM"},
	)

	processes, issues, err := ParseProcesses(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseProcesses: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("issues = %v, want none", issues)
	}

	got := processes["Injection Molding"]
	want := Process{Name: "Injection Molding", CO2ePerUnit: 1.2, Unit: "kwh"}
	if got != want {
		t.Errorf("processes[Injection Molding] = %+v, want %+v", got, want)
	}
	if unit := processes["Road Transport"].Unit; unit != "km" {
		t.Errorf("Unit = %q, want lowercased %q", unit, "km")
	}
}

func TestParseProcesses_EmptyUnitKept(t *testing.T) {
	s := processesSheet(
		[]string{"Manufacturing", "1.2", ""},
	)

	processes, issues, err := ParseProcesses(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseProcesses: %v", err)
	}
	if got := processes["Manufacturing"].Unit; got != "" {
		t.Errorf("Unit = %q, want empty", got)
	}
	if len(issues) != 1 || !strings.Contains(issues[0].Message, "required field is empty") {
		t.Errorf("issues = %v, want one empty-field issue", issues)
	}
}

func TestParseProcesses_NegativeFactorDropped(t *testing.T) {
	s := processesSheet(
		[]string{"Manufacturing", "1.2", "kWh"},
		[]string{"Offset Magic", "-5", "kWh"},
	)

	processes, issues, err := ParseProcesses(s, DuplicateLastWins)
	if err != nil {
		t.Fatalf("ParseProcesses: %v", err)
	}
	if _, ok := processes["Offset Magic"]; ok {
		t.Errorf("negative emission factor row should be dropped")
	}
	if len(issues) != 1 {
		t.Errorf("issues = %v, want 1", issues)
	}
}

// ----------------------------------------------------------------------------
// ParseMetadata Tests
// ----------------------------------------------------------------------------

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		sheet    *workbook.Sheet
		wantInfo DatabaseInfo
	}{
		{
			name:     "nil sheet",
			sheet:    nil,
			wantInfo: DatabaseInfo{},
		},
		{
			name:     "empty sheet",
			sheet:    &workbook.Sheet{Name: "Metadata"},
			wantInfo: DatabaseInfo{},
		},
		{
			name: "key value header",
			sheet: &workbook.Sheet{
				Name:   "Metadata",
				Header: []string{"Key", "Value"},
				Rows: [][]string{
					{"Version", "2024.1"},
					{"Description", "Factor set Q1"},
					{"Maintainer", "ignored"},
				},
			},
			wantInfo: DatabaseInfo{Version: "2024.1", Description: "Factor set Q1"},
		},
		{
			name: "headerless pairs",
			sheet: &workbook.Sheet{
				Name:   "Metadata",
				Header: []string{"Version", "2024.2"},
				Rows: [][]string{
					{"Notes", "Imported from supplier sheet"},
				},
			},
			wantInfo: DatabaseInfo{Version: "2024.2", Description: "Imported from supplier sheet"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetadata(tt.sheet)
			if err != nil {
				t.Fatalf("ParseMetadata: %v", err)
			}
			if got != tt.wantInfo {
				t.Errorf("ParseMetadata = %+v, want %+v", got, tt.wantInfo)
			}
		})
	}
}
