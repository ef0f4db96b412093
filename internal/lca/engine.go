// Package lca scores product assessments against a loaded dataset of
// material and process emission factors.
//
// The engine is a pure function of its inputs: it never mutates the
// assessment or the dataset maps and never touches storage, so identical
// inputs always produce identical results.
package lca

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/lifecyclelab/ecolca/internal/dataset"
)

const (
	// DefaultTreeCO2KgPerYear is the yearly CO2 uptake of one mature
	// tree, used to express footprints as tree-equivalents.
	DefaultTreeCO2KgPerYear = 22.0

	weeksPerYear   = 52.0
	defaultEpsilon = 1e-9
)

// Params fixes the external constants the engine depends on.
type Params struct {
	// TreeCO2KgPerYear converts kg CO2e into tree-years.
	TreeCO2KgPerYear float64
	// Epsilon floors the lifetime in years so per-year figures stay finite.
	Epsilon float64
}

// Engine scores assessments. It holds no dataset state of its own; the
// caller passes the active lookups into every ComputeResults call.
type Engine struct {
	params   Params
	validate *validator.Validate
}

// NewEngine builds an engine, defaulting any unset parameter.
func NewEngine(p Params) *Engine {
	if p.TreeCO2KgPerYear <= 0 {
		p.TreeCO2KgPerYear = DefaultTreeCO2KgPerYear
	}
	if p.Epsilon <= 0 {
		p.Epsilon = defaultEpsilon
	}

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Engine{params: p, validate: v}
}

// ComputeResults scores one assessment against the given dataset maps.
// The per-material breakdown preserves the assessment's input order. A
// line naming an unknown material or process aborts the whole
// calculation with a *MissingEntryError; no partial totals leak out.
func (e *Engine) ComputeResults(a Assessment, materials map[string]dataset.Material, processes map[string]dataset.Process) (*Results, error) {
	if err := e.ValidateAssessment(a); err != nil {
		return nil, err
	}

	breakdown := make([]MaterialBreakdown, 0, len(a.Materials))
	eol := make(map[string]float64)

	var materialTotal, totalMass, massWeightedRC float64
	for _, line := range a.Materials {
		rec, ok := materials[line.Material]
		if !ok {
			return nil, &MissingEntryError{Kind: "material", Name: line.Material}
		}
		co2e := line.Mass * rec.CO2ePerKg
		materialTotal += co2e
		totalMass += line.Mass
		massWeightedRC += line.Mass * rec.RecycledContent
		eol[rec.EndOfLife] += line.Mass

		breakdown = append(breakdown, MaterialBreakdown{
			Material:         rec.Name,
			Mass:             line.Mass,
			CO2e:             co2e,
			CO2ePerKg:        rec.CO2ePerKg,
			RecycledContent:  rec.RecycledContent,
			Circularity:      rec.Circularity,
			CircularityScore: dataset.CircularityScore(rec.Circularity),
			EndOfLife:        rec.EndOfLife,
			Lifetime:         rec.Lifetime,
		})
	}

	// Indexed after the slice is complete so the pointers stay valid.
	byName := make(map[string]*MaterialBreakdown, len(breakdown))
	for i := range breakdown {
		byName[breakdown[i].Material] = &breakdown[i]
	}

	var processTotal float64
	for _, line := range a.Processes {
		rec, ok := processes[line.Process]
		if !ok {
			return nil, &MissingEntryError{Kind: "process", Name: line.Process}
		}
		co2e := line.Amount * rec.CO2ePerUnit
		processTotal += co2e

		// Attribution is best-effort: a step attached to a material the
		// assessment does not select still counts toward the totals.
		if line.Material != "" {
			if entry, ok := byName[line.Material]; ok {
				entry.ProcessCO2e += co2e
			}
		}
	}

	overall := materialTotal + processTotal

	wrc := 0.0
	if totalMass > 0 {
		wrc = massWeightedRC / totalMass
	}

	years := float64(a.LifetimeWeeks) / weeksPerYear
	if years < e.params.Epsilon {
		years = e.params.Epsilon
	}

	trees := overall / e.params.TreeCO2KgPerYear

	for i := range breakdown {
		breakdown[i].TotalCO2e = breakdown[i].CO2e + breakdown[i].ProcessCO2e
		if overall != 0 {
			breakdown[i].Percent = breakdown[i].TotalCO2e / overall * 100
		}
	}

	return &Results{
		MaterialCO2eTotal:       materialTotal,
		ProcessCO2eTotal:        processTotal,
		OverallCO2e:             overall,
		TotalMass:               totalMass,
		WeightedRecycledContent: wrc,
		LifetimeYears:           years,
		TreesEquivalent:         trees,
		TreesPerYear:            trees / years,
		Materials:               breakdown,
		EndOfLife:               eol,
	}, nil
}

// ValidateAssessment checks the assessment's shape before any lookups:
// tag rules first, then the cross-field rule that a material may only be
// selected once. It never touches the dataset, so callers can use it to
// vet an assessment they intend to store rather than score.
func (e *Engine) ValidateAssessment(a Assessment) error {
	var problems []string

	if err := e.validate.Struct(a); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate assessment: %w", err)
		}
		for _, fe := range verrs {
			problems = append(problems, problemFor(fe))
		}
	}

	seen := make(map[string]bool, len(a.Materials))
	for _, line := range a.Materials {
		if line.Material == "" {
			continue
		}
		if seen[line.Material] {
			problems = append(problems, fmt.Sprintf("materials: duplicate entry %q", line.Material))
		}
		seen[line.Material] = true
	}

	if len(problems) > 0 {
		return &InvalidAssessmentError{Problems: problems}
	}
	return nil
}

// problemFor renders one field violation with its JSON path.
func problemFor(fe validator.FieldError) string {
	path := fe.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return path + " is required"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", path, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", path, fe.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", path, fe.Tag())
	}
}
