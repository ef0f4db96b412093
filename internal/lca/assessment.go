package lca

// MaterialLine selects one material and the mass of it used, in kg.
type MaterialLine struct {
	Material string  `json:"material" validate:"required"`
	Mass     float64 `json:"mass" validate:"gte=0"`
}

// ProcessLine selects one processing step and how much of it is applied,
// in the process's own unit. Material optionally attributes the step to
// one of the assessment's material lines for the breakdown; the step
// counts toward the totals either way.
type ProcessLine struct {
	Process  string  `json:"process" validate:"required"`
	Amount   float64 `json:"amount" validate:"gte=0"`
	Material string  `json:"material,omitempty"`
}

// Assessment is one product scenario to score: the materials it is made
// of, the processing steps applied, and how long the product lives. The
// engine treats it as read-only.
type Assessment struct {
	Name          string         `json:"name,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Materials     []MaterialLine `json:"materials" validate:"dive"`
	Processes     []ProcessLine  `json:"processes,omitempty" validate:"dive"`
	LifetimeWeeks int            `json:"lifetime_weeks" validate:"gt=0"`
}

// Results is the scored outcome of one assessment. Values carry full
// float precision; rounding is the presentation layer's concern.
type Results struct {
	MaterialCO2eTotal       float64 `json:"material_co2e_total"`
	ProcessCO2eTotal        float64 `json:"process_co2e_total"`
	OverallCO2e             float64 `json:"overall_co2e"`
	TotalMass               float64 `json:"total_mass"`
	WeightedRecycledContent float64 `json:"weighted_recycled_content"`
	LifetimeYears           float64 `json:"lifetime_years"`
	TreesEquivalent         float64 `json:"trees_equivalent"`
	TreesPerYear            float64 `json:"trees_per_year"`

	// Materials mirrors the assessment's input order entry for entry.
	Materials []MaterialBreakdown `json:"per_material_breakdown"`

	// EndOfLife groups the selected mass by end-of-life treatment.
	EndOfLife map[string]float64 `json:"eol_breakdown,omitempty"`
}

// MaterialBreakdown is one material line's share of the result, with the
// dataset coefficients that produced it echoed back for display.
type MaterialBreakdown struct {
	Material         string  `json:"material"`
	Mass             float64 `json:"mass"`
	CO2e             float64 `json:"co2e"`
	ProcessCO2e      float64 `json:"process_co2e,omitempty"`
	TotalCO2e        float64 `json:"total_co2e"`
	Percent          float64 `json:"percent_of_overall"`
	CO2ePerKg        float64 `json:"co2e_per_kg"`
	RecycledContent  float64 `json:"recycled_content"`
	Circularity      string  `json:"circularity"`
	CircularityScore int     `json:"circularity_score"`
	EndOfLife        string  `json:"end_of_life"`
	Lifetime         string  `json:"lifetime"`
}
