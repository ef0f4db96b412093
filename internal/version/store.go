package version

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lifecyclelab/ecolca/internal/lca"
)

var (
	// ErrVersionNotFound is returned when no record exists for an ID.
	ErrVersionNotFound = errors.New("version not found")
	// ErrNameTaken is returned when a save reuses an existing name.
	ErrNameTaken = errors.New("version name already taken")
	// ErrInvalidName is returned when a name fails the character rules.
	ErrInvalidName = errors.New("invalid version name")
)

const indexFileName = "index.json"

// Names double as filenames in exports and as UI labels, so the
// character set stays deliberately narrow.
var safeName = regexp.MustCompile(`^[A-Za-z0-9._ -]{1,64}$`)

// Store keeps version records as one JSON file per record plus a small
// index file for listings. All methods are safe for concurrent use.
type Store struct {
	dir   string
	index string
	log   *slog.Logger

	mu     sync.RWMutex
	byID   map[string]Summary
	byName map[string]string
}

// NewStore opens the store rooted at dir, creating it when missing. A
// missing or corrupt index is rebuilt from the record files on disk.
func NewStore(dir string, log *slog.Logger) (*Store, error) {
	if dir == "" {
		return nil, errors.New("version: store directory is required")
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create version store %s: %w", dir, err)
	}

	s := &Store{
		dir:    dir,
		index:  filepath.Join(dir, indexFileName),
		log:    log,
		byID:   make(map[string]Summary),
		byName: make(map[string]string),
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// Save stores a new version under name and returns the full record.
// Names are unique across the store; deleting a record frees its name.
func (s *Store) Save(name string, a lca.Assessment, user string, meta Metadata) (Record, error) {
	name = strings.TrimSpace(name)
	if !safeName.MatchString(name) {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	rec := Record{
		ID:         uuid.NewString(),
		Name:       name,
		CreatedAt:  time.Now().UTC(),
		User:       user,
		Assessment: a,
		Metadata:   meta,
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("encode version %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byName[name]; taken {
		return Record{}, fmt.Errorf("%w: %q", ErrNameTaken, name)
	}
	if err := writeFileAtomic(s.recordPath(rec.ID), data); err != nil {
		return Record{}, err
	}

	sum := rec.summary()
	s.byID[rec.ID] = sum
	s.byName[rec.Name] = rec.ID
	if err := s.writeIndex(); err != nil {
		return Record{}, err
	}

	s.log.Info("version saved", "id", rec.ID, "name", rec.Name, "materials", sum.MaterialsCount)
	return rec, nil
}

// Get returns the full record for id.
func (s *Store) Get(id string) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Record{}, fmt.Errorf("%w: %q", ErrVersionNotFound, id)
	}

	s.mu.RLock()
	_, known := s.byID[id]
	s.mu.RUnlock()
	if !known {
		return Record{}, fmt.Errorf("%w: %q", ErrVersionNotFound, id)
	}
	return s.readRecord(s.recordPath(id))
}

// Load returns just the stored assessment, ready to feed back into the
// calculation engine.
func (s *Store) Load(id string) (lca.Assessment, error) {
	rec, err := s.Get(id)
	if err != nil {
		return lca.Assessment{}, err
	}
	return rec.Assessment, nil
}

// List returns summaries of every stored version, newest first.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.summariesLocked()
}

// Delete removes a version permanently. Its ID is never reused.
func (s *Store) Delete(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrVersionNotFound, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sum, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrVersionNotFound, id)
	}
	if err := os.Remove(s.recordPath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove version record: %w", err)
	}

	delete(s.byID, id)
	delete(s.byName, sum.Name)
	if err := s.writeIndex(); err != nil {
		return err
	}

	s.log.Info("version deleted", "id", id, "name", sum.Name)
	return nil
}

// Stats reports store-wide totals for dashboards.
type Stats struct {
	TotalVersions  int    `json:"total_versions"`
	LatestVersion  string `json:"latest_version,omitempty"`
	TotalMaterials int    `json:"total_materials"`
}

// Stats summarizes the stored versions.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{TotalVersions: len(s.byID)}
	var latest time.Time
	for _, sum := range s.byID {
		st.TotalMaterials += sum.MaterialsCount
		if sum.CreatedAt.After(latest) {
			latest = sum.CreatedAt
			st.LatestVersion = sum.Name
		}
	}
	return st
}

func (s *Store) recordPath(id string) string {
	return filepath.Join(s.dir, id+".json")
}

type indexFile struct {
	Versions []Summary `json:"versions"`
}

func (s *Store) loadIndex() error {
	data, err := os.ReadFile(s.index)
	if err == nil {
		var idx indexFile
		if err := json.Unmarshal(data, &idx); err == nil {
			for _, sum := range idx.Versions {
				s.byID[sum.ID] = sum
				s.byName[sum.Name] = sum.ID
			}
			return nil
		}
		s.log.Warn("version index unreadable, rebuilding", "path", s.index, "error", err)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read version index %s: %w", s.index, err)
	}
	return s.rebuildIndex()
}

func (s *Store) rebuildIndex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("scan version store %s: %w", s.dir, err)
	}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFileName || strings.HasPrefix(name, ".") || filepath.Ext(name) != ".json" {
			continue
		}
		rec, err := s.readRecord(filepath.Join(s.dir, name))
		if err != nil {
			s.log.Warn("skipping unreadable version record", "file", name, "error", err)
			continue
		}
		sum := rec.summary()
		s.byID[sum.ID] = sum
		s.byName[sum.Name] = sum.ID
	}
	if len(s.byID) == 0 {
		return nil
	}
	return s.writeIndex()
}

// writeIndex persists the in-memory index. Callers hold s.mu.
func (s *Store) writeIndex() error {
	data, err := json.MarshalIndent(indexFile{Versions: s.summariesLocked()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode version index: %w", err)
	}
	return writeFileAtomic(s.index, data)
}

func (s *Store) summariesLocked() []Summary {
	out := make([]Summary, 0, len(s.byID))
	for _, sum := range s.byID {
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (s *Store) readRecord(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Record{}, fmt.Errorf("%w: %q", ErrVersionNotFound, strings.TrimSuffix(filepath.Base(path), ".json"))
		}
		return Record{}, fmt.Errorf("read version record %s: %w", path, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("decode version record %s: %w", path, err)
	}
	return rec, nil
}

// writeFileAtomic writes via a temp file in the same directory and
// renames it into place, so readers never observe a partial record.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
