// Package version persists named assessment snapshots as immutable JSON
// records. A stored assessment is a valid calculation-engine input, so
// old scenarios can be re-scored against newer datasets.
package version

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lifecyclelab/ecolca/internal/lca"
)

// Record is one saved version. Records are immutable once written; a
// record's ID is permanent and never reused, even after deletion.
type Record struct {
	ID         string
	Name       string
	CreatedAt  time.Time
	User       string
	Assessment lca.Assessment
	Metadata   Metadata
}

// Metadata carries the free-form description a user attaches on save.
type Metadata struct {
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Version     string   `json:"version,omitempty"`
}

// Summary is the index entry for one stored version.
type Summary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
	User           string    `json:"user,omitempty"`
	Description    string    `json:"description,omitempty"`
	MaterialsCount int       `json:"materials_count"`
}

func (r Record) summary() Summary {
	return Summary{
		ID:             r.ID,
		Name:           r.Name,
		CreatedAt:      r.CreatedAt,
		User:           r.User,
		Description:    r.Metadata.Description,
		MaterialsCount: len(r.Assessment.Materials),
	}
}

// The persisted layout splits an assessment into a selection list, a
// name→mass map, and a processing block. The split is redundant on
// purpose: it keeps records human-diffable and lets the decoder
// cross-check the two halves against each other.
type recordJSON struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	CreatedAt  time.Time         `json:"created_at"`
	User       string            `json:"user"`
	Assessment assessmentPayload `json:"assessment_data"`
	Metadata   Metadata          `json:"metadata"`
}

type assessmentPayload struct {
	Name              string             `json:"name,omitempty"`
	Notes             string             `json:"notes,omitempty"`
	SelectedMaterials []string           `json:"selected_materials"`
	MaterialMasses    map[string]float64 `json:"material_masses"`
	ProcessingData    processingData     `json:"processing_data"`
	LifetimeWeeks     int                `json:"lifetime_weeks"`
}

type processingData struct {
	Steps []processStep `json:"steps"`
}

type processStep struct {
	Process  string  `json:"process_name"`
	Amount   float64 `json:"amount"`
	Material string  `json:"material,omitempty"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	payload, err := encodeAssessment(r.Assessment)
	if err != nil {
		return nil, err
	}
	return json.Marshal(recordJSON{
		ID:         r.ID,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt,
		User:       r.User,
		Assessment: payload,
		Metadata:   r.Metadata,
	})
}

// UnmarshalJSON rejects unknown fields and malformed assessment shapes
// outright rather than defaulting them.
func (r *Record) UnmarshalJSON(data []byte) error {
	var raw recordJSON
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	a, err := decodeAssessment(raw.Assessment)
	if err != nil {
		return err
	}
	*r = Record{
		ID:         raw.ID,
		Name:       raw.Name,
		CreatedAt:  raw.CreatedAt,
		User:       raw.User,
		Assessment: a,
		Metadata:   raw.Metadata,
	}
	return nil
}

func encodeAssessment(a lca.Assessment) (assessmentPayload, error) {
	selected := make([]string, 0, len(a.Materials))
	masses := make(map[string]float64, len(a.Materials))
	for _, line := range a.Materials {
		if _, dup := masses[line.Material]; dup {
			return assessmentPayload{}, fmt.Errorf("assessment has duplicate material %q", line.Material)
		}
		selected = append(selected, line.Material)
		masses[line.Material] = line.Mass
	}

	steps := make([]processStep, 0, len(a.Processes))
	for _, line := range a.Processes {
		steps = append(steps, processStep{
			Process:  line.Process,
			Amount:   line.Amount,
			Material: line.Material,
		})
	}

	return assessmentPayload{
		Name:              a.Name,
		Notes:             a.Notes,
		SelectedMaterials: selected,
		MaterialMasses:    masses,
		ProcessingData:    processingData{Steps: steps},
		LifetimeWeeks:     a.LifetimeWeeks,
	}, nil
}

func decodeAssessment(p assessmentPayload) (lca.Assessment, error) {
	if p.LifetimeWeeks <= 0 {
		return lca.Assessment{}, errors.New("assessment_data: lifetime_weeks must be greater than 0")
	}

	seen := make(map[string]bool, len(p.SelectedMaterials))
	lines := make([]lca.MaterialLine, 0, len(p.SelectedMaterials))
	for _, name := range p.SelectedMaterials {
		if name == "" {
			return lca.Assessment{}, errors.New("assessment_data: selected material name is empty")
		}
		if seen[name] {
			return lca.Assessment{}, fmt.Errorf("assessment_data: duplicate selected material %q", name)
		}
		seen[name] = true

		mass, ok := p.MaterialMasses[name]
		if !ok {
			return lca.Assessment{}, fmt.Errorf("assessment_data: no mass recorded for %q", name)
		}
		if mass < 0 {
			return lca.Assessment{}, fmt.Errorf("assessment_data: mass for %q is negative", name)
		}
		lines = append(lines, lca.MaterialLine{Material: name, Mass: mass})
	}
	for name := range p.MaterialMasses {
		if !seen[name] {
			return lca.Assessment{}, fmt.Errorf("assessment_data: mass recorded for unselected material %q", name)
		}
	}

	steps := make([]lca.ProcessLine, 0, len(p.ProcessingData.Steps))
	for i, s := range p.ProcessingData.Steps {
		if s.Process == "" {
			return lca.Assessment{}, fmt.Errorf("assessment_data: processing step %d has no process name", i)
		}
		if s.Amount < 0 {
			return lca.Assessment{}, fmt.Errorf("assessment_data: processing step %d has a negative amount", i)
		}
		steps = append(steps, lca.ProcessLine{
			Process:  s.Process,
			Amount:   s.Amount,
			Material: s.Material,
		})
	}

	if len(lines) == 0 {
		lines = nil
	}
	if len(steps) == 0 {
		steps = nil
	}
	return lca.Assessment{
		Name:          p.Name,
		Notes:         p.Notes,
		Materials:     lines,
		Processes:     steps,
		LifetimeWeeks: p.LifetimeWeeks,
	}, nil
}
