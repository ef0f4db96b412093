package dataset

// spec.go defines the field specifications for the workbook sheets and
// the shared per-row rule engine both the validator and the parsers use,
// so a dry-run check and a real load can never disagree about a row.

import (
	"fmt"
	"strconv"
	"strings"
)

// FieldType is the expected data type of a workbook column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldNumeric
	FieldEnum
)

// FieldSpec defines how one logical field is located in a sheet and what
// its cells must contain.
type FieldSpec struct {
	Name       string              // Reporting name, matches the documented template header
	Aliases    []string            // Canonical header forms accepted for this field; first present alias wins
	Type       FieldType           // Expected data type
	Required   bool                // Column must exist in the sheet
	Key        bool                // Field value becomes the record's map key; rows without it are dropped
	Min        *float64            // Inclusive lower bound for numeric fields
	Max        *float64            // Inclusive upper bound for numeric fields
	EnumValues []string            // Allowed tokens for enum fields, compared case-insensitively
	Normalizer func(string) string // Optional transformation applied before storage
	Default    string              // Fills empty required text/enum cells
}

// Field names shared between the spec tables and the record builders.
const (
	fieldName            = "Name"
	fieldCO2ePerKg       = "CO2e (kg)"
	fieldRecycledContent = "Recycled Content"
	fieldCircularity     = "Circularity"
	fieldEoL             = "EoL"
	fieldLifetime        = "Lifetime"
	fieldCO2ePerUnit     = "CO2e per unit"
	fieldUnit            = "Unit"
	fieldCategory        = "Category"
	fieldDescription     = "Description"
)

func f64(v float64) *float64 { return &v }

// materialFields describes the Materials sheet. The alias lists mirror
// the header variants seen in circulating workbooks, canonicalized the
// way resolveColumns canonicalizes headers.
var materialFields = []FieldSpec{
	{
		Name:     fieldName,
		Aliases:  []string{"materialname", "material", "name", "materialdescription", "description"},
		Type:     FieldText,
		Required: true,
		Key:      true,
	},
	{
		Name: fieldCO2ePerKg,
		Aliases: []string{
			"co2eperkg", "co2ekg", "co2e", "co2perkg", "co2", "co2kg",
			"coeperkg", "coekg", "kgco2eperkg", "kgco2ekg",
			"carbonintensity", "carbonfactor", "emissionfactor", "emissionfactorkg",
			"co2efactor", "co2factor", "ghg", "ghgfactor", "globalwarmingpotential",
		},
		Type:     FieldNumeric,
		Required: true,
		Min:      f64(0),
	},
	{
		Name:     fieldRecycledContent,
		Aliases:  []string{"recycledcontent", "recycled", "recycle", "recycledpct", "recycledpercent"},
		Type:     FieldNumeric,
		Required: true,
		Min:      f64(0),
		Max:      f64(100),
	},
	{
		Name:       fieldCircularity,
		Aliases:    []string{"circularity", "circ", "circularitylevel"},
		Type:       FieldEnum,
		Required:   true,
		EnumValues: []string{CircularityHigh, CircularityMedium, CircularityLow, CircularityNone},
		Normalizer: strings.ToLower,
		Default:    DefaultDescriptor,
	},
	{
		Name:     fieldEoL,
		Aliases:  []string{"eol", "endoflife", "eoldefault"},
		Type:     FieldText,
		Required: true,
		Default:  DefaultDescriptor,
	},
	{
		Name:     fieldLifetime,
		Aliases:  []string{"lifetime", "life", "lifespan", "lifetimeyears", "lifetimeweeks"},
		Type:     FieldText,
		Required: true,
		Default:  DefaultDescriptor,
	},
	{
		Name:    fieldCategory,
		Aliases: []string{"category", "materialcategory", "group"},
		Type:    FieldText,
	},
	{
		Name:    fieldDescription,
		Aliases: []string{"description", "notes", "comment"},
		Type:    FieldText,
	},
}

// processFields describes the Processes sheet.
var processFields = []FieldSpec{
	{
		Name:     fieldName,
		Aliases:  []string{"processtype", "process", "step", "operation", "processname", "name"},
		Type:     FieldText,
		Required: true,
		Key:      true,
	},
	{
		Name: fieldCO2ePerUnit,
		Aliases: []string{
			"co2eperunit", "co2eunit", "coeperunit", "co2e", "co2ekg", "co2",
			"emission", "factor", "co2efactor", "emissionfactor", "emissionfactorkg",
		},
		Type:     FieldNumeric,
		Required: true,
		Min:      f64(0),
	},
	{
		Name:       fieldUnit,
		Aliases:    []string{"unit", "uom", "units", "measure", "measurement"},
		Type:       FieldText,
		Required:   true,
		Normalizer: strings.ToLower,
	},
	{
		Name:    fieldCategory,
		Aliases: []string{"category", "group"},
		Type:    FieldText,
	},
	{
		Name:    fieldDescription,
		Aliases: []string{"description", "notes", "comment"},
		Type:    FieldText,
	},
}

// MaterialFields returns the field specifications for the Materials sheet.
func MaterialFields() []FieldSpec {
	return append([]FieldSpec(nil), materialFields...)
}

// ProcessFields returns the field specifications for the Processes sheet.
func ProcessFields() []FieldSpec {
	return append([]FieldSpec(nil), processFields...)
}

// resolveColumns maps each field to the sheet column backing it. Aliases
// are tried in order against the canonicalized header; the first present
// alias wins. missing names the required fields no alias could satisfy.
func resolveColumns(header []string, specs []FieldSpec) (cols map[string]int, missing []string) {
	byCanon := make(map[string]int, len(header))
	for i, h := range header {
		c := canonical(h)
		if c == "" {
			continue
		}
		if _, seen := byCanon[c]; !seen {
			byCanon[c] = i
		}
	}

	cols = make(map[string]int, len(specs))
	for _, spec := range specs {
		found := false
		for _, alias := range spec.Aliases {
			if idx, ok := byCanon[alias]; ok {
				cols[spec.Name] = idx
				found = true
				break
			}
		}
		if !found && spec.Required {
			missing = append(missing, spec.Name)
		}
	}
	return cols, missing
}

// rowValues holds one row's parsed cells keyed by field name.
type rowValues struct {
	text    map[string]string
	numbers map[string]float64
}

// parseRow applies every field rule to one data row. It returns the key
// value, the parsed cells, the issues found, and whether the row survives.
//
// A row is dropped when its key cell is empty or a required numeric cell
// is missing, unparseable, or out of bounds. Empty required text and enum
// cells are defaulted with an issue; enum tokens outside the vocabulary
// are kept as written (normalized) with an issue.
func parseRow(sheet string, rowNum int, row []string, cols map[string]int, specs []FieldSpec) (string, rowValues, []RowIssue, bool) {
	vals := rowValues{
		text:    make(map[string]string, len(specs)),
		numbers: make(map[string]float64, 2),
	}
	var (
		key    string
		issues []RowIssue
		keep   = true
	)

	for _, spec := range specs {
		idx, ok := cols[spec.Name]
		if !ok {
			continue
		}
		raw := CleanCell(cellAt(row, idx))

		switch spec.Type {
		case FieldNumeric:
			if raw == "" && !spec.Required {
				continue
			}
			v, okNum := ParseNumber(raw)
			if !okNum {
				issues = append(issues, RowIssue{Sheet: sheet, Row: rowNum, Column: spec.Name, Value: raw, Message: "not a number"})
				if spec.Required {
					keep = false
				}
				continue
			}
			if spec.Min != nil && v < *spec.Min {
				issues = append(issues, RowIssue{Sheet: sheet, Row: rowNum, Column: spec.Name, Value: raw,
					Message: "must be at least " + formatBound(*spec.Min)})
				if spec.Required {
					keep = false
				}
				continue
			}
			if spec.Max != nil && v > *spec.Max {
				issues = append(issues, RowIssue{Sheet: sheet, Row: rowNum, Column: spec.Name, Value: raw,
					Message: "must be at most " + formatBound(*spec.Max)})
				if spec.Required {
					keep = false
				}
				continue
			}
			vals.numbers[spec.Name] = v

		case FieldEnum:
			value := raw
			if spec.Normalizer != nil && value != "" {
				value = spec.Normalizer(value)
			}
			if value == "" {
				if spec.Required {
					issues = append(issues, emptyFieldIssue(sheet, rowNum, spec))
					value = spec.Default
				}
				vals.text[spec.Name] = value
				continue
			}
			if !enumMember(value, spec.EnumValues) {
				issues = append(issues, RowIssue{Sheet: sheet, Row: rowNum, Column: spec.Name, Value: raw,
					Message: "must be one of: " + strings.Join(spec.EnumValues, ", ")})
			}
			vals.text[spec.Name] = value

		case FieldText:
			value := NormalizeName(raw)
			if spec.Normalizer != nil && value != "" {
				value = spec.Normalizer(value)
			}
			if spec.Key {
				if value == "" {
					issues = append(issues, RowIssue{Sheet: sheet, Row: rowNum, Column: spec.Name, Message: "name is empty"})
					keep = false
					continue
				}
				key = value
				vals.text[spec.Name] = value
				continue
			}
			if value == "" && spec.Required {
				issues = append(issues, emptyFieldIssue(sheet, rowNum, spec))
				value = spec.Default
			}
			vals.text[spec.Name] = value
		}
	}

	return key, vals, issues, keep
}

func emptyFieldIssue(sheet string, rowNum int, spec FieldSpec) RowIssue {
	msg := "required field is empty"
	if spec.Default != "" {
		msg = fmt.Sprintf("required field is empty, using %q", spec.Default)
	}
	return RowIssue{Sheet: sheet, Row: rowNum, Column: spec.Name, Message: msg}
}

// enumMember reports whether value is in the allowed list, ignoring case.
func enumMember(value string, allowed []string) bool {
	for _, v := range allowed {
		if strings.EqualFold(v, value) {
			return true
		}
	}
	return false
}

// keyField returns the name of the key field in specs.
func keyField(specs []FieldSpec) string {
	for _, spec := range specs {
		if spec.Key {
			return spec.Name
		}
	}
	return ""
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
