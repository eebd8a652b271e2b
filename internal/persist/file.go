package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"meypark-backend/internal/model"
)

// ErrNoSnapshot is returned by Load when nothing was committed yet.
var ErrNoSnapshot = errors.New("no snapshot committed")

// FileCommitter writes the snapshot as one JSON document. Each commit goes to a
// temporary file in the same directory which is synced and renamed over the target,
// so readers never observe a partial document.
type FileCommitter struct {
	path string
}

// NewFileCommitter creates a committer for the given path.
func NewFileCommitter(path string) *FileCommitter {
	return &FileCommitter{path: path}
}

// Path returns the target file.
func (f *FileCommitter) Path() string {
	return f.path
}

// Load reads the last committed snapshot.
func (f *FileCommitter) Load(_ context.Context) (*model.Snapshot, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap model.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", f.path, err)
	}
	snap.Normalize()
	return &snap, nil
}

// Commit replaces the file with snap.
func (f *FileCommitter) Commit(_ context.Context, snap *model.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// LoadMeters reads a geographic kiosk seed file: a JSON object of meters keyed by id.
func LoadMeters(path string) (map[string]model.ParkingMeter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	meters := make(map[string]model.ParkingMeter)
	if err := json.Unmarshal(data, &meters); err != nil {
		return nil, fmt.Errorf("decode kiosks %s: %w", path, err)
	}
	return meters, nil
}
