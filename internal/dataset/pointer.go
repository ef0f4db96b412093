package dataset

// pointer.go persists the active-database pointer and its rollback
// backups. Every write goes through a temp-file-then-rename so a crash
// mid-write cannot leave a torn file behind.

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	backupPrefix = "active_"
	backupStamp  = "20060102T150405.000"
)

// readPointer loads an active-pointer file. A missing file is not an
// error: the zero ActiveConfig signals that nothing is active yet.
func readPointer(path string) (ActiveConfig, error) {
	var cfg ActiveConfig
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read active pointer %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ActiveConfig{}, fmt.Errorf("decode active pointer %s: %w", path, err)
	}
	return cfg, nil
}

// writeJSONFile marshals v and atomically replaces path with it.
func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return writeFileAtomic(path, append(data, '\n'))
}

// writeFileAtomic writes data to a temp file in path's directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// backupName returns the file name for a pointer backup taken at now.
func backupName(now time.Time) string {
	return backupPrefix + now.UTC().Format(backupStamp) + ".json"
}

// listBackups returns pointer backups in dir, newest first. The stamp is
// fixed width, so lexicographic order is time order.
func listBackups(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list backups in %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, backupPrefix) && strings.HasSuffix(name, ".json") {
			names = append(names, name)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}
