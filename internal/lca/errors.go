package lca

import "fmt"

// MissingEntryError reports an assessment line naming a material or
// process absent from the active dataset. The calculation aborts; no
// partial totals are returned.
type MissingEntryError struct {
	Kind string // "material" or "process"
	Name string
}

func (e *MissingEntryError) Error() string {
	return fmt.Sprintf("%s %q not found in active database", e.Kind, e.Name)
}

// InvalidAssessmentError lists everything wrong with an assessment's
// shape, found before any lookup or arithmetic runs.
type InvalidAssessmentError struct {
	Problems []string
}

func (e *InvalidAssessmentError) Error() string {
	switch len(e.Problems) {
	case 0:
		return "invalid assessment"
	case 1:
		return "invalid assessment: " + e.Problems[0]
	default:
		return fmt.Sprintf("invalid assessment: %d problems, first: %s", len(e.Problems), e.Problems[0])
	}
}
