package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/lifecyclelab/ecolca/internal/workbook"
)

const (
	// LatestDatabaseName is the rolling copy of the most recent import.
	LatestDatabaseName = "database_latest.xlsx"

	datedNameFormat = "2006-01-02"
)

// ManagerOptions configures a Manager. Zero fields get defaults where a
// sensible one exists; directory fields are required.
type ManagerOptions struct {
	DatabasesDir string
	PointerFile  string
	BackupsDir   string
	Policy       DuplicatePolicy
	StrictLoad   bool
	Logger       *slog.Logger
}

// Manager owns the active dataset: which workbook is live, the parsed
// in-memory lookup built from it, and the pointer file that survives
// restarts. Reads are lock-free apart from an RLock on the snapshot
// pointer; switches replace the snapshot wholesale so readers never see
// a half-loaded dataset.
type Manager struct {
	databasesDir string
	pointerFile  string
	backupsDir   string
	policy       DuplicatePolicy
	strict       bool
	log          *slog.Logger

	group singleflight.Group

	mu       sync.RWMutex
	snapshot *Snapshot
}

// NewManager creates the storage directories and returns a Manager. No
// workbook is loaded until the first read or an explicit activation.
func NewManager(opts ManagerOptions) (*Manager, error) {
	if opts.DatabasesDir == "" || opts.PointerFile == "" || opts.BackupsDir == "" {
		return nil, errors.New("dataset: databases dir, pointer file, and backups dir are required")
	}
	if opts.Policy == "" {
		opts.Policy = DuplicateLastWins
	}
	if !opts.Policy.Valid() {
		return nil, fmt.Errorf("dataset: unknown duplicate policy %q", opts.Policy)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	for _, dir := range []string{opts.DatabasesDir, opts.BackupsDir, filepath.Dir(opts.PointerFile)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return &Manager{
		databasesDir: opts.DatabasesDir,
		pointerFile:  opts.PointerFile,
		backupsDir:   opts.BackupsDir,
		policy:       opts.Policy,
		strict:       opts.StrictLoad,
		log:          opts.Logger,
	}, nil
}

// Snapshot returns the in-memory dataset, lazily loading the active
// database on first use. Concurrent first readers share a single load.
// The returned snapshot is shared and must be treated as read-only.
func (m *Manager) Snapshot(ctx context.Context) (*Snapshot, error) {
	m.mu.RLock()
	snap := m.snapshot
	m.mu.RUnlock()
	if snap != nil {
		return snap, nil
	}

	v, err, _ := m.group.Do("load-active", func() (any, error) {
		m.mu.RLock()
		cached := m.snapshot
		m.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
		return m.loadActive(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

// Materials returns the active material lookup keyed by exact name.
func (m *Manager) Materials(ctx context.Context) (map[string]Material, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Materials, nil
}

// Processes returns the active process lookup keyed by exact name.
func (m *Manager) Processes(ctx context.Context) (map[string]Process, error) {
	snap, err := m.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Processes, nil
}

// ActiveConfig reads the persisted pointer. The zero config means no
// database has been activated yet.
func (m *Manager) ActiveConfig() (ActiveConfig, error) {
	return readPointer(m.pointerFile)
}

// LoadDatabase parses the workbook at path and makes it the in-memory
// dataset. The active pointer is not touched; use SetActive to persist
// the choice across restarts.
func (m *Manager) LoadDatabase(ctx context.Context, path string) (*Snapshot, error) {
	snap, err := m.loadSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	m.log.Info("database loaded",
		"source", snap.Info.Source,
		"materials", len(snap.Materials),
		"processes", len(snap.Processes),
		"issues", len(snap.Issues))
	return snap, nil
}

// SetActive switches the active database to the named workbook. The
// switch is two-phase: the workbook is fully loaded before the pointer
// is rewritten, so a broken file can never become active. The previous
// pointer is backed up first so Rollback can restore it.
func (m *Manager) SetActive(ctx context.Context, name string) (*Snapshot, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}
	snap, err := m.loadSnapshot(ctx, path)
	if err != nil {
		return nil, err
	}

	prev, err := readPointer(m.pointerFile)
	if err != nil {
		return nil, err
	}
	if !prev.IsZero() {
		backupPath := filepath.Join(m.backupsDir, backupName(time.Now()))
		if err := writeJSONFile(backupPath, prev); err != nil {
			return nil, fmt.Errorf("back up active pointer: %w", err)
		}
	}

	cfg := ActiveConfig{
		ActiveDatabase: name,
		LastUpdated:    time.Now().UTC(),
		Version:        snap.Info.Version,
		Metadata: ActiveMetadata{
			MaterialsCount: len(snap.Materials),
			ProcessesCount: len(snap.Processes),
			LastValidation: snap.Info.LastValidated,
		},
	}
	if err := writeJSONFile(m.pointerFile, cfg); err != nil {
		return nil, fmt.Errorf("write active pointer: %w", err)
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	m.log.Info("active database switched",
		"name", name,
		"materials", len(snap.Materials),
		"processes", len(snap.Processes))
	return snap, nil
}

// Rollback restores the most recent pointer backup. The restored
// database is revalidated before the pointer is rewritten, and the
// consumed backup file is removed.
func (m *Manager) Rollback(ctx context.Context) (ActiveConfig, error) {
	backups, err := listBackups(m.backupsDir)
	if err != nil {
		return ActiveConfig{}, err
	}
	if len(backups) == 0 {
		return ActiveConfig{}, ErrNoBackup
	}

	backupPath := filepath.Join(m.backupsDir, backups[0])
	prev, err := readPointer(backupPath)
	if err != nil {
		return ActiveConfig{}, err
	}
	if prev.ActiveDatabase == "" {
		return ActiveConfig{}, fmt.Errorf("backup %s names no database", backups[0])
	}

	path, err := m.Resolve(prev.ActiveDatabase)
	if err != nil {
		return ActiveConfig{}, err
	}
	snap, err := m.loadSnapshot(ctx, path)
	if err != nil {
		return ActiveConfig{}, err
	}

	cfg := ActiveConfig{
		ActiveDatabase: prev.ActiveDatabase,
		LastUpdated:    time.Now().UTC(),
		Version:        snap.Info.Version,
		Metadata: ActiveMetadata{
			MaterialsCount: len(snap.Materials),
			ProcessesCount: len(snap.Processes),
			LastValidation: snap.Info.LastValidated,
		},
	}
	if err := writeJSONFile(m.pointerFile, cfg); err != nil {
		return ActiveConfig{}, fmt.Errorf("write active pointer: %w", err)
	}

	m.mu.Lock()
	m.snapshot = snap
	m.mu.Unlock()

	if err := os.Remove(backupPath); err != nil {
		m.log.Warn("remove consumed backup", "path", backupPath, "error", err)
	}
	m.log.Info("rolled back active database", "name", prev.ActiveDatabase)
	return cfg, nil
}

// ValidateStructure dry-runs the load pipeline against the workbook at
// path. Nothing is stored, activated, or cached. Sheet reports collected
// before a failure come back alongside the error so callers can show
// what was found.
func (m *Manager) ValidateStructure(ctx context.Context, path string) ([]SheetReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	wb, err := workbook.Load(path)
	if err != nil {
		return nil, &FormatError{Path: path, Reason: "cannot open workbook", Err: err}
	}

	var reports []SheetReport
	var issues []RowIssue
	for _, target := range []struct {
		sheet string
		specs []FieldSpec
	}{
		{SheetMaterials, materialFields},
		{SheetProcesses, processFields},
	} {
		s, ok := wb.FindSheet(target.sheet)
		if !ok {
			return reports, &FormatError{Path: path, Reason: missingSheetReason(target.sheet, wb)}
		}
		report, err := ValidateSheet(s, target.specs)
		if err != nil {
			if report != nil {
				reports = append(reports, *report)
			}
			return reports, withPath(path, err)
		}
		reports = append(reports, *report)
		issues = append(issues, report.Issues...)
	}

	if len(issues) > 0 {
		return reports, &ValidationError{Path: path, Issues: issues}
	}
	return reports, nil
}

// ImportResult describes a completed workbook import.
type ImportResult struct {
	StoredAs string       `json:"stored_as"`
	Active   ActiveConfig `json:"active"`
	Info     DatabaseInfo `json:"info"`
	Issues   []RowIssue   `json:"issues,omitempty"`
}

// Import stores an uploaded workbook and activates it. The upload is
// fully validated before anything lands in the databases directory; a
// workbook that fails the pipeline leaves the previous dataset active
// and the directory untouched. Accepted files are kept twice: under a
// dated name for history and as the rolling latest copy.
func (m *Manager) Import(ctx context.Context, filename string, r io.Reader) (*ImportResult, error) {
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".xlsx" {
		return nil, &FormatError{Path: filename, Reason: fmt.Sprintf("unsupported file type %q, want .xlsx", ext)}
	}

	tmp, err := os.CreateTemp(m.databasesDir, ".upload-*.tmp")
	if err != nil {
		return nil, fmt.Errorf("create upload temp file: %w", err)
	}
	tmpName := tmp.Name()
	_, copyErr := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if copyErr != nil {
			return nil, fmt.Errorf("store upload: %w", copyErr)
		}
		return nil, fmt.Errorf("store upload: %w", closeErr)
	}

	if _, err := m.loadSnapshot(ctx, tmpName); err != nil {
		os.Remove(tmpName)
		return nil, err
	}

	dated := "database_" + time.Now().UTC().Format(datedNameFormat) + ".xlsx"
	datedPath := filepath.Join(m.databasesDir, dated)
	if err := os.Rename(tmpName, datedPath); err != nil {
		os.Remove(tmpName)
		return nil, fmt.Errorf("store upload as %s: %w", dated, err)
	}
	if err := copyFile(datedPath, filepath.Join(m.databasesDir, LatestDatabaseName)); err != nil {
		return nil, err
	}

	snap, err := m.SetActive(ctx, dated)
	if err != nil {
		return nil, err
	}
	cfg, err := m.ActiveConfig()
	if err != nil {
		return nil, err
	}

	return &ImportResult{
		StoredAs: dated,
		Active:   cfg,
		Info:     snap.Info,
		Issues:   snap.Issues,
	}, nil
}

// ListDatabases returns workbook file names in the databases directory,
// newest first by modification time.
func (m *Manager) ListDatabases() ([]string, error) {
	entries, err := os.ReadDir(m.databasesDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list databases in %s: %w", m.databasesDir, err)
	}

	type dbFile struct {
		name string
		mod  time.Time
	}
	var files []dbFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".xlsx") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, dbFile{name, info.ModTime()})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].mod.Equal(files[j].mod) {
			return files[i].name > files[j].name
		}
		return files[i].mod.After(files[j].mod)
	})

	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.name
	}
	return names, nil
}

// Resolve turns a database name into its on-disk path. Names must be
// bare file names; anything path-like is rejected as not found.
func (m *Manager) Resolve(name string) (string, error) {
	if name == "" || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: invalid name %q", ErrDatabaseNotFound, name)
	}
	path := filepath.Join(m.databasesDir, name)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrDatabaseNotFound, name)
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	return path, nil
}

// loadActive loads the dataset named by the pointer, falling back to the
// rolling latest copy or the newest workbook on disk when the pointer is
// missing or stale. Adopting a fallback persists it as the new pointer.
func (m *Manager) loadActive(ctx context.Context) (*Snapshot, error) {
	cfg, err := readPointer(m.pointerFile)
	if err != nil {
		return nil, err
	}

	if name := cfg.ActiveDatabase; name != "" {
		path, err := m.Resolve(name)
		if err == nil {
			snap, err := m.loadSnapshot(ctx, path)
			if err != nil {
				return nil, err
			}
			m.mu.Lock()
			m.snapshot = snap
			m.mu.Unlock()
			return snap, nil
		}
		if !errors.Is(err, ErrDatabaseNotFound) {
			return nil, err
		}
		m.log.Warn("active pointer names a missing database, falling back", "name", name)
	}

	fallback, err := m.defaultDatabase()
	if err != nil {
		return nil, err
	}
	m.log.Info("adopting fallback database", "name", fallback)
	return m.SetActive(ctx, fallback)
}

// defaultDatabase picks the fallback when no usable pointer exists: the
// rolling latest copy if present, otherwise the newest workbook on disk.
func (m *Manager) defaultDatabase() (string, error) {
	if _, err := os.Stat(filepath.Join(m.databasesDir, LatestDatabaseName)); err == nil {
		return LatestDatabaseName, nil
	}
	names, err := m.ListDatabases()
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", ErrNoActiveDatabase
	}
	return names[0], nil
}

// loadSnapshot runs the full pipeline on one workbook: open, locate the
// required sheets, parse, and collect issues. In strict mode any issue
// fails the load as a *ValidationError.
func (m *Manager) loadSnapshot(ctx context.Context, path string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wb, err := workbook.Load(path)
	if err != nil {
		return nil, &FormatError{Path: path, Reason: "cannot open workbook", Err: err}
	}

	matSheet, ok := wb.FindSheet(SheetMaterials)
	if !ok {
		return nil, &FormatError{Path: path, Reason: missingSheetReason(SheetMaterials, wb)}
	}
	procSheet, ok := wb.FindSheet(SheetProcesses)
	if !ok {
		return nil, &FormatError{Path: path, Reason: missingSheetReason(SheetProcesses, wb)}
	}

	materials, matIssues, err := ParseMaterials(matSheet, m.policy)
	if err != nil {
		return nil, withPath(path, err)
	}
	processes, procIssues, err := ParseProcesses(procSheet, m.policy)
	if err != nil {
		return nil, withPath(path, err)
	}
	metaSheet, _ := wb.FindSheet(SheetMetadata)
	meta, err := ParseMetadata(metaSheet)
	if err != nil {
		return nil, withPath(path, err)
	}

	issues := append(matIssues, procIssues...)
	if m.strict && len(issues) > 0 {
		return nil, &ValidationError{Path: path, Issues: issues}
	}

	created := time.Now().UTC()
	if st, err := os.Stat(path); err == nil {
		created = st.ModTime().UTC()
	}

	return &Snapshot{
		Materials: materials,
		Processes: processes,
		Issues:    issues,
		Info: DatabaseInfo{
			Source:         filepath.Base(path),
			Version:        meta.Version,
			Description:    meta.Description,
			CreatedAt:      created,
			LastValidated:  time.Now().UTC(),
			MaterialsCount: len(materials),
			ProcessesCount: len(processes),
		},
	}, nil
}

func missingSheetReason(name string, wb *workbook.Workbook) string {
	found := wb.SheetNames()
	if len(found) == 0 {
		return fmt.Sprintf("missing required sheet %q", name)
	}
	return fmt.Sprintf("missing required sheet %q (found: %s)", name, strings.Join(found, ", "))
}

// withPath stamps the workbook path onto structural errors raised by the
// sheet-level helpers.
func withPath(path string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) && fe.Path == "" {
		fe.Path = path
	}
	var ve *ValidationError
	if errors.As(err, &ve) && ve.Path == "" {
		ve.Path = path
	}
	return err
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := writeFileAtomic(dst, data); err != nil {
		return fmt.Errorf("copy to %s: %w", dst, err)
	}
	return nil
}
