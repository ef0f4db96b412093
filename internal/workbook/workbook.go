// Package workbook reads spreadsheet files into raw tabular sheets.
//
// Cells stay untyped strings here: conversion, validation, and defaulting
// all happen downstream so that every consumer sees exactly what the file
// contained. Sheet lookup is fuzzy because source workbooks rarely agree
// on exact tab names ("Materials", "materials ", "Material List").
package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet as raw rows of strings.
// Header is the first row with any non-blank cell; Rows holds everything
// after it, blanks included, so row numbers can be reported as the
// spreadsheet shows them.
type Sheet struct {
	Name   string
	Header []string
	Rows   [][]string

	// headerRow is the zero-based position of the header in the file.
	headerRow int
}

// Workbook is a loaded spreadsheet file with its sheets in file order.
type Workbook struct {
	Path   string
	Sheets []Sheet
}

// Load reads every sheet of the spreadsheet at path. It fails when the
// file cannot be opened or is not a recognized spreadsheet format; sheet
// content is never interpreted here.
func Load(path string) (*Workbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	wb := &Workbook{Path: path}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		wb.Sheets = append(wb.Sheets, newSheet(name, rows))
	}
	return wb, nil
}

// newSheet splits raw rows into header and data rows, skipping any blank
// rows above the header.
func newSheet(name string, rows [][]string) Sheet {
	s := Sheet{Name: name, headerRow: -1}
	for i, row := range rows {
		if BlankRow(row) {
			continue
		}
		header := make([]string, len(row))
		for j, cell := range row {
			header[j] = strings.TrimSpace(cell)
		}
		s.Header = header
		s.headerRow = i
		s.Rows = rows[i+1:]
		break
	}
	return s
}

// Empty reports whether the sheet has no header row at all.
func (s *Sheet) Empty() bool {
	return len(s.Header) == 0
}

// RowNumber converts an index into Rows to the 1-based row number the
// spreadsheet application displays, accounting for the header position.
func (s *Sheet) RowNumber(i int) int {
	return s.headerRow + 2 + i
}

// FindSheet resolves target against the workbook's sheet names the way
// source files name them in practice: exact case-insensitive match first,
// then a match with all whitespace stripped, then substring containment.
func (w *Workbook) FindSheet(target string) (*Sheet, bool) {
	lower := strings.ToLower(target)
	for i := range w.Sheets {
		if strings.ToLower(w.Sheets[i].Name) == lower {
			return &w.Sheets[i], true
		}
	}

	squashed := stripSpace(lower)
	for i := range w.Sheets {
		if stripSpace(strings.ToLower(w.Sheets[i].Name)) == squashed {
			return &w.Sheets[i], true
		}
	}

	for i := range w.Sheets {
		if strings.Contains(strings.ToLower(w.Sheets[i].Name), lower) {
			return &w.Sheets[i], true
		}
	}
	return nil, false
}

// SheetNames returns the sheet names in file order, for error reporting.
func (w *Workbook) SheetNames() []string {
	names := make([]string, len(w.Sheets))
	for i, s := range w.Sheets {
		names[i] = s.Name
	}
	return names
}

// BlankRow reports whether every cell in the row is empty or whitespace.
func BlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// stripSpace removes all whitespace characters from s.
func stripSpace(s string) string {
	return strings.Join(strings.Fields(s), "")
}
