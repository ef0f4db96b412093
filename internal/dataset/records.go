// Package dataset turns raw workbook sheets into typed material and
// process records and manages which dataset is active.
//
// The package has two halves: a parse pipeline (field specs, sheet
// validation, record parsing) that converts one workbook into typed
// records, and a Manager that owns the in-memory cache of the active
// dataset plus the on-disk pointer naming it.
package dataset

import (
	"strings"
	"time"
)

// Sheet names expected in a database workbook. Lookup is fuzzy, so
// "materials" or "Material List" resolve too.
const (
	SheetMaterials = "Materials"
	SheetProcesses = "Processes"
	SheetMetadata  = "Metadata"
)

// DefaultDescriptor fills required text fields whose cells are empty.
const DefaultDescriptor = "Unknown"

// Circularity descriptors recognized in source data, ranked best to worst.
const (
	CircularityHigh   = "high"
	CircularityMedium = "medium"
	CircularityLow    = "low"
	CircularityNone   = "not circular"
)

var circularityScores = map[string]int{
	CircularityHigh:   3,
	CircularityMedium: 2,
	CircularityLow:    1,
	CircularityNone:   0,
}

// CircularityScore ranks a circularity descriptor numerically for
// comparison views. Unrecognized descriptors rank 0.
func CircularityScore(s string) int {
	return circularityScores[strings.ToLower(strings.TrimSpace(s))]
}

// Material is one reference material with its footprint coefficients.
type Material struct {
	Name            string  `json:"name"`
	CO2ePerKg       float64 `json:"co2e_per_kg"`
	RecycledContent float64 `json:"recycled_content"`
	Circularity     string  `json:"circularity"`
	EndOfLife       string  `json:"end_of_life"`
	Lifetime        string  `json:"lifetime"`
	Category        string  `json:"category,omitempty"`
	Description     string  `json:"description,omitempty"`
}

// Process is one manufacturing or treatment step with its emission factor.
type Process struct {
	Name        string  `json:"name"`
	CO2ePerUnit float64 `json:"co2e_per_unit"`
	Unit        string  `json:"unit"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description,omitempty"`
}

// DatabaseInfo describes one successfully loaded dataset. It is produced
// once per load and never mutated; a reload supersedes it wholesale.
type DatabaseInfo struct {
	Source         string    `json:"source"`
	Version        string    `json:"version,omitempty"`
	Description    string    `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastValidated  time.Time `json:"last_validated"`
	MaterialsCount int       `json:"materials_count"`
	ProcessesCount int       `json:"processes_count"`
}

// ActiveConfig is the persisted pointer record naming the active
// database. The zero value is the "no active database" sentinel.
type ActiveConfig struct {
	ActiveDatabase string         `json:"active_database"`
	LastUpdated    time.Time      `json:"last_updated"`
	Version        string         `json:"version"`
	Metadata       ActiveMetadata `json:"metadata"`
}

// ActiveMetadata summarizes the dataset the pointer names.
type ActiveMetadata struct {
	MaterialsCount int       `json:"materials_count"`
	ProcessesCount int       `json:"processes_count"`
	LastValidation time.Time `json:"last_validation"`
}

// IsZero reports whether the config is the no-active-database sentinel.
func (c ActiveConfig) IsZero() bool {
	return c.ActiveDatabase == ""
}

// Snapshot is an immutable view of one loaded dataset. The Manager
// replaces the whole snapshot on reload; callers must treat the maps as
// read-only.
type Snapshot struct {
	Materials map[string]Material
	Processes map[string]Process
	Info      DatabaseInfo

	// Issues are the row-level problems collected while parsing. They
	// accompany a successful load; structural failures never produce a
	// snapshot at all.
	Issues []RowIssue
}
