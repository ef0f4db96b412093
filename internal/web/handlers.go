package web

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/lifecyclelab/ecolca/internal/dataset"
	"github.com/lifecyclelab/ecolca/internal/lca"
	"github.com/lifecyclelab/ecolca/internal/version"
)

// databaseRequest names a workbook in the databases directory.
type databaseRequest struct {
	Name string `json:"name"`
}

// activateResponse reports a completed activation: the new pointer
// record plus what the loaded snapshot contained.
type activateResponse struct {
	Active dataset.ActiveConfig `json:"active"`
	Info   dataset.DatabaseInfo `json:"info"`
	Issues []dataset.RowIssue   `json:"issues,omitempty"`
}

// validateResponse is the outcome of a structure dry-run. Valid=false
// is still a 200; the check itself worked.
type validateResponse struct {
	Name    string                `json:"name"`
	Valid   bool                  `json:"valid"`
	Reports []dataset.SheetReport `json:"reports,omitempty"`
	Issues  []dataset.RowIssue    `json:"issues,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type saveVersionRequest struct {
	Name       string           `json:"name"`
	User       string           `json:"user,omitempty"`
	Assessment lca.Assessment   `json:"assessment"`
	Metadata   version.Metadata `json:"metadata,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleListMaterials returns the active dataset's materials keyed by
// name. Map keys marshal sorted, so output order is stable.
func (s *Server) handleListMaterials(w http.ResponseWriter, r *http.Request) {
	materials, err := s.manager.Materials(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, materials)
}

func (s *Server) handleListProcesses(w http.ResponseWriter, r *http.Request) {
	processes, err := s.manager.Processes(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, processes)
}

func (s *Server) handleListDatabases(w http.ResponseWriter, r *http.Request) {
	names, err := s.manager.ListDatabases()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if names == nil {
		names = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"databases": names})
}

// handleGetActive returns the pointer record, or 204 when no database
// has ever been activated.
func (s *Server) handleGetActive(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.manager.ActiveConfig()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	if cfg.IsZero() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	var req databaseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		s.respondError(w, r, errors.New("invalid request body: name is required"), http.StatusBadRequest)
		return
	}

	snap, err := s.manager.SetActive(r.Context(), req.Name)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	cfg, err := s.manager.ActiveConfig()
	if err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, activateResponse{
		Active: cfg,
		Info:   snap.Info,
		Issues: snap.Issues,
	})
}

// handleValidateDatabase dry-runs the structure check against a stored
// workbook. The active dataset is never touched.
func (s *Server) handleValidateDatabase(w http.ResponseWriter, r *http.Request) {
	var req databaseRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		s.respondError(w, r, errors.New("invalid request body: name is required"), http.StatusBadRequest)
		return
	}

	path, err := s.manager.Resolve(req.Name)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	reports, err := s.manager.ValidateStructure(r.Context(), path)
	resp := validateResponse{Name: req.Name, Valid: err == nil, Reports: reports}
	if err != nil {
		var (
			validationErr *dataset.ValidationError
			formatErr     *dataset.FormatError
		)
		switch {
		case errors.As(err, &validationErr):
			resp.Issues = validationErr.Issues
			resp.Error = err.Error()
		case errors.As(err, &formatErr):
			resp.Error = err.Error()
		default:
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRollback(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.manager.Rollback(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

// handleImport accepts a multipart workbook upload, stores it under a
// dated name, and activates it. A workbook that fails validation leaves
// the store unchanged.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Storage.MaxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		switch {
		case errors.Is(err, http.ErrMissingFile):
			s.respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		case strings.Contains(err.Error(), "request body too large"):
			s.respondError(w, r, err, http.StatusRequestEntityTooLarge)
		default:
			s.respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
		}
		return
	}
	defer file.Close()

	result, err := s.manager.Import(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// handleComputeResults scores an assessment against the active dataset.
// Materials and processes come from one snapshot read, so a concurrent
// activation cannot split the request across two datasets.
func (s *Server) handleComputeResults(w http.ResponseWriter, r *http.Request) {
	var a lca.Assessment
	if err := decodeJSON(r, &a); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	snap, err := s.manager.Snapshot(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	results, err := s.engine.ComputeResults(a, snap.Materials, snap.Processes)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// handleSaveVersion validates the assessment's shape before anything is
// written. Saving never requires the named entries to exist in the
// active dataset, only that the payload is well-formed.
func (s *Server) handleSaveVersion(w http.ResponseWriter, r *http.Request) {
	var req saveVersionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}
	if err := s.engine.ValidateAssessment(req.Assessment); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	rec, err := s.store.Save(req.Name, req.Assessment, req.User, req.Metadata)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string][]version.Summary{"versions": s.store.List()})
}

func (s *Server) handleVersionStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.store.Stats())
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.Get(chi.URLParam(r, "versionID"))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteVersion(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "versionID")); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
