package dataset

import (
	"errors"
	"strings"
	"testing"

	"github.com/lifecyclelab/ecolca/internal/workbook"
)

// ----------------------------------------------------------------------------
// ValidateSheet Tests
// ----------------------------------------------------------------------------

func TestValidateSheet_CleanSheet(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "high", "Recyclable", "10 years"},
		[]string{"Aluminium", "8.2", "60", "high", "Recyclable", "20 years"},
	)

	report, err := ValidateSheet(s, MaterialFields())
	if err != nil {
		t.Fatalf("ValidateSheet: %v", err)
	}

	if report.RowCount != 2 || report.ValidRows != 2 {
		t.Errorf("RowCount/ValidRows = %d/%d, want 2/2", report.RowCount, report.ValidRows)
	}
	if len(report.Issues) != 0 {
		t.Errorf("Issues = %v, want none", report.Issues)
	}
	if got := report.Columns["CO2e (kg)"]; got != "CO2e (kg)" {
		t.Errorf("Columns[CO2e (kg)] = %q, want the matched header", got)
	}
	if got := report.Columns["Name"]; got != "Material Name" {
		t.Errorf("Columns[Name] = %q, want %q", got, "Material Name")
	}
}

func TestValidateSheet_CollectsIssuesWithoutFailing(t *testing.T) {
	s := materialsSheet(
		[]string{"Steel", "2.5", "30", "high", "Recyclable", "10 years"},
		[]string{"Copper", "bad", "30", "high", "Recyclable", "10 years"},
		[]string{"Steel", "3.0", "40", "low", "Landfill", "5 years"},
	)

	report, err := ValidateSheet(s, MaterialFields())
	if err != nil {
		t.Fatalf("ValidateSheet: %v", err)
	}

	if report.RowCount != 3 {
		t.Errorf("RowCount = %d, want 3", report.RowCount)
	}
	// The broken number drops a row; the duplicate stays countable.
	if report.ValidRows != 2 {
		t.Errorf("ValidRows = %d, want 2", report.ValidRows)
	}
	if len(report.Issues) != 2 {
		t.Fatalf("Issues = %v, want a number issue and a duplicate issue", report.Issues)
	}

	var sawNumber, sawDuplicate bool
	for _, issue := range report.Issues {
		if strings.Contains(issue.Message, "not a number") {
			sawNumber = true
		}
		if strings.Contains(issue.Message, "duplicate name") {
			sawDuplicate = true
		}
	}
	if !sawNumber || !sawDuplicate {
		t.Errorf("Issues = %v, want both problem kinds reported", report.Issues)
	}
}

func TestValidateSheet_EmptySheet(t *testing.T) {
	s := &workbook.Sheet{Name: "Materials"}

	_, err := ValidateSheet(s, MaterialFields())
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if fe.Sheet != "Materials" || fe.Reason != "sheet is empty" {
		t.Errorf("FormatError = %+v, want empty-sheet reason for Materials", fe)
	}
}

func TestValidateSheet_MissingColumns(t *testing.T) {
	s := &workbook.Sheet{
		Name:   "Processes",
		Header: []string{"Process Type", "Notes"},
		Rows:   [][]string{{"Manufacturing", "whatever"}},
	}

	_, err := ValidateSheet(s, ProcessFields())
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	for _, field := range []string{"CO2e per unit", "Unit"} {
		if !strings.Contains(fe.Reason, field) {
			t.Errorf("Reason = %q, want it to name missing field %q", fe.Reason, field)
		}
	}
}

func TestValidateSheet_NoValidRowsReturnsReport(t *testing.T) {
	s := materialsSheet(
		[]string{"", "2.5", "30", "high", "Recyclable", "10 years"},
	)

	report, err := ValidateSheet(s, MaterialFields())
	var fe *FormatError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %v, want *FormatError", err)
	}
	if report == nil {
		t.Fatal("report = nil, want the partial report alongside the error")
	}
	if report.RowCount != 1 || report.ValidRows != 0 {
		t.Errorf("RowCount/ValidRows = %d/%d, want 1/0", report.RowCount, report.ValidRows)
	}
	if len(report.Issues) == 0 {
		t.Error("Issues empty, want the empty-name issue explaining the rejection")
	}
}
