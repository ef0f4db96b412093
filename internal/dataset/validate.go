package dataset

import (
	"strings"

	"github.com/lifecyclelab/ecolca/internal/workbook"
)

// SheetReport is the outcome of checking one sheet against its field
// specifications. Columns maps each resolved field to the header cell
// that matched it.
type SheetReport struct {
	Sheet     string            `json:"sheet"`
	Columns   map[string]string `json:"columns"`
	RowCount  int               `json:"row_count"`
	ValidRows int               `json:"valid_rows"`
	Issues    []RowIssue        `json:"issues,omitempty"`
}

// ValidateSheet checks a sheet's structure and cell content without
// loading anything. Structural problems (empty sheet, missing required
// columns, zero usable rows) come back as a *FormatError; cell-level
// problems are collected in the report.
//
// When every row is rejected the report is still returned alongside the
// error so callers can surface the issues that explain the rejection.
func ValidateSheet(s *workbook.Sheet, specs []FieldSpec) (*SheetReport, error) {
	if s.Empty() {
		return nil, &FormatError{Sheet: s.Name, Reason: "sheet is empty"}
	}
	cols, missing := resolveColumns(s.Header, specs)
	if len(missing) > 0 {
		return nil, &FormatError{Sheet: s.Name, Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	report := &SheetReport{
		Sheet:   s.Name,
		Columns: make(map[string]string, len(cols)),
	}
	for field, idx := range cols {
		report.Columns[field] = strings.TrimSpace(s.Header[idx])
	}

	seen := make(map[string]bool)
	for i, row := range s.Rows {
		if workbook.BlankRow(row) {
			continue
		}
		report.RowCount++

		key, _, issues, keep := parseRow(s.Name, s.RowNumber(i), row, cols, specs)
		report.Issues = append(report.Issues, issues...)
		if !keep {
			continue
		}
		if key != "" && seen[key] {
			report.Issues = append(report.Issues, RowIssue{
				Sheet:   s.Name,
				Row:     s.RowNumber(i),
				Column:  keyField(specs),
				Value:   key,
				Message: "duplicate name",
			})
		}
		seen[key] = true
		report.ValidRows++
	}

	if report.ValidRows == 0 {
		return report, &FormatError{Sheet: s.Name, Reason: "no valid data rows"}
	}
	return report, nil
}
