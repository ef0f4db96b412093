package dataset

import (
	"fmt"
	"strings"

	"github.com/lifecyclelab/ecolca/internal/workbook"
)

// DuplicatePolicy decides which row wins when a name repeats in a sheet.
type DuplicatePolicy string

const (
	// DuplicateLastWins keeps the bottom-most row, matching spreadsheet
	// habits where corrections are appended.
	DuplicateLastWins DuplicatePolicy = "last"
	// DuplicateFirstWins keeps the top-most row.
	DuplicateFirstWins DuplicatePolicy = "first"
)

// Valid reports whether p names a known policy.
func (p DuplicatePolicy) Valid() bool {
	return p == DuplicateLastWins || p == DuplicateFirstWins
}

// ParseMaterials builds the material lookup from a Materials sheet.
// Rows that fail a required rule are dropped and reported as issues;
// the error is non-nil only for structural failures.
func ParseMaterials(s *workbook.Sheet, policy DuplicatePolicy) (map[string]Material, []RowIssue, error) {
	if policy == "" {
		policy = DuplicateLastWins
	}
	if s.Empty() {
		return nil, nil, &FormatError{Sheet: s.Name, Reason: "sheet is empty"}
	}
	cols, missing := resolveColumns(s.Header, materialFields)
	if len(missing) > 0 {
		return nil, nil, &FormatError{Sheet: s.Name, Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	materials := make(map[string]Material)
	var issues []RowIssue
	for i, row := range s.Rows {
		if workbook.BlankRow(row) {
			continue
		}
		rowNum := s.RowNumber(i)

		key, vals, rowIssues, keep := parseRow(s.Name, rowNum, row, cols, materialFields)
		issues = append(issues, rowIssues...)
		if !keep {
			continue
		}

		if _, exists := materials[key]; exists {
			issues = append(issues, duplicateIssue(s.Name, rowNum, keyField(materialFields), key, policy))
			if policy == DuplicateFirstWins {
				continue
			}
		}
		materials[key] = Material{
			Name:            key,
			CO2ePerKg:       vals.numbers[fieldCO2ePerKg],
			RecycledContent: vals.numbers[fieldRecycledContent],
			Circularity:     vals.text[fieldCircularity],
			EndOfLife:       vals.text[fieldEoL],
			Lifetime:        vals.text[fieldLifetime],
			Category:        vals.text[fieldCategory],
			Description:     vals.text[fieldDescription],
		}
	}

	if len(materials) == 0 {
		return nil, issues, &FormatError{Sheet: s.Name, Reason: "no valid data rows"}
	}
	return materials, issues, nil
}

// ParseProcesses builds the process lookup from a Processes sheet under
// the same row rules as ParseMaterials.
func ParseProcesses(s *workbook.Sheet, policy DuplicatePolicy) (map[string]Process, []RowIssue, error) {
	if policy == "" {
		policy = DuplicateLastWins
	}
	if s.Empty() {
		return nil, nil, &FormatError{Sheet: s.Name, Reason: "sheet is empty"}
	}
	cols, missing := resolveColumns(s.Header, processFields)
	if len(missing) > 0 {
		return nil, nil, &FormatError{Sheet: s.Name, Reason: "missing required columns: " + strings.Join(missing, ", ")}
	}

	processes := make(map[string]Process)
	var issues []RowIssue
	for i, row := range s.Rows {
		if workbook.BlankRow(row) {
			continue
		}
		rowNum := s.RowNumber(i)

		key, vals, rowIssues, keep := parseRow(s.Name, rowNum, row, cols, processFields)
		issues = append(issues, rowIssues...)
		if !keep {
			continue
		}

		if _, exists := processes[key]; exists {
			issues = append(issues, duplicateIssue(s.Name, rowNum, keyField(processFields), key, policy))
			if policy == DuplicateFirstWins {
				continue
			}
		}
		processes[key] = Process{
			Name:        key,
			CO2ePerUnit: vals.numbers[fieldCO2ePerUnit],
			Unit:        vals.text[fieldUnit],
			Category:    vals.text[fieldCategory],
			Description: vals.text[fieldDescription],
		}
	}

	if len(processes) == 0 {
		return nil, issues, &FormatError{Sheet: s.Name, Reason: "no valid data rows"}
	}
	return processes, issues, nil
}

func duplicateIssue(sheet string, rowNum int, column, key string, policy DuplicatePolicy) RowIssue {
	winner := "last occurrence wins"
	if policy == DuplicateFirstWins {
		winner = "first occurrence wins"
	}
	return RowIssue{
		Sheet:   sheet,
		Row:     rowNum,
		Column:  column,
		Value:   key,
		Message: fmt.Sprintf("duplicate name, %s", winner),
	}
}

// ParseMetadata reads the optional Metadata sheet: free-form key/value
// rows describing the workbook. A nil or empty sheet yields a zero
// DatabaseInfo; unrecognized keys are ignored. Counts and timestamps are
// the Manager's to fill.
func ParseMetadata(s *workbook.Sheet) (DatabaseInfo, error) {
	var info DatabaseInfo
	if s == nil || s.Empty() {
		return info, nil
	}

	rows := s.Rows
	// Without a recognizable Key/Value header the header row is data too.
	if canonical(cellAt(s.Header, 0)) != "key" {
		pair := append([]string(nil), s.Header...)
		rows = append([][]string{pair}, rows...)
	}

	for _, row := range rows {
		value := CleanCell(cellAt(row, 1))
		if value == "" {
			continue
		}
		switch canonical(cellAt(row, 0)) {
		case "version", "databaseversion", "dbversion":
			info.Version = value
		case "description", "notes", "comment":
			info.Description = value
		}
	}
	return info, nil
}
