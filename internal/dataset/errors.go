package dataset

// errors.go defines the failure vocabulary of the parse pipeline and the
// Manager.
//
// Two severities exist. Structural problems (unreadable file, missing
// sheet or column, nothing parseable) are fatal to the operation and
// surface as *FormatError. Row-level problems (bad number, out-of-range
// value, unknown enum token) are collected as RowIssue values and
// returned alongside results; they only become fatal when a caller asked
// for a strict check, in which case they ride in a *ValidationError.

import (
	"errors"
	"fmt"
)

// ErrNoActiveDatabase signals that no database has ever been activated
// and no fallback workbook exists in the store.
var ErrNoActiveDatabase = errors.New("no active database configured")

// ErrDatabaseNotFound signals that a named database is not in the store.
var ErrDatabaseNotFound = errors.New("database not found")

// ErrNoBackup signals a rollback request with no pointer backup to restore.
var ErrNoBackup = errors.New("no backup available to roll back to")

// FormatError reports a structural problem with a workbook: the file
// cannot be read, a required sheet or column is missing, or a sheet
// yields no usable rows. It always aborts the operation that raised it.
type FormatError struct {
	Path   string
	Sheet  string
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	msg := "invalid workbook format"
	if e.Sheet != "" {
		msg += fmt.Sprintf(": sheet %q", e.Sheet)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// RowIssue is one cell- or row-level problem found while validating or
// parsing a sheet. Row is the 1-based row number as the spreadsheet
// application displays it.
type RowIssue struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (i RowIssue) String() string {
	msg := fmt.Sprintf("%s row %d", i.Sheet, i.Row)
	if i.Column != "" {
		msg += fmt.Sprintf(", column %q", i.Column)
	}
	if i.Value != "" {
		msg += fmt.Sprintf(" (value %q)", i.Value)
	}
	return msg + ": " + i.Message
}

// ValidationError aggregates row issues when they must fail the whole
// operation: structure dry-runs, and loads running under strict mode.
type ValidationError struct {
	Path   string
	Issues []RowIssue
}

func (e *ValidationError) Error() string {
	switch len(e.Issues) {
	case 0:
		return "validation failed"
	case 1:
		return "validation failed: " + e.Issues[0].String()
	default:
		return fmt.Sprintf("validation failed: %d issues, first: %s", len(e.Issues), e.Issues[0])
	}
}
