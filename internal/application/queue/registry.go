package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/google/uuid"
)

const (
	ProcessedDir = "processed"
	FailedDir    = "failed"

	fileExt = ".json"
)

// Registry stores queued pipeline records on disk
type Registry struct {
	workDir   string
	validator *Validator
}

// NewRegistry creates a registry rooted at workDir
func NewRegistry(workDir string) *Registry {
	return &Registry{
		workDir:   workDir,
		validator: NewValidator(),
	}
}

// GenerateID returns a new random record identifier
func (r *Registry) GenerateID() string {
	return uuid.New().String()
}

// WorkDir returns the directory pending records are written to
func (r *Registry) WorkDir() string {
	return r.workDir
}

// ProcessedDir returns the directory successfully handled records end up in
func (r *Registry) ProcessedDir() string {
	return filepath.Join(r.workDir, ProcessedDir)
}

// FailedDir returns the quarantine directory
func (r *Registry) FailedDir() string {
	return filepath.Join(r.workDir, FailedDir)
}

// Persist writes record to <work_dir>/<sanitized id>.json and returns the
// path. The file appears atomically: it is written under a dot-prefixed
// temporary name, which the worker ignores, and renamed into place.
func (r *Registry) Persist(record *domain.PipelineRecord) (string, error) {
	if err := r.validator.Validate(record); err != nil {
		return "", fmt.Errorf("invalid record: %w", err)
	}

	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: failed to create %s: %v", domain.ErrIO, r.workDir, err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize pipeline record: %w", err)
	}

	path := filepath.Join(r.workDir, FileName(record.ID))

	if err := r.checkOwner(path, record.ID); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(r.workDir, ".pending-*")
	if err != nil {
		return "", fmt.Errorf("%w: failed to create temp file: %v", domain.ErrIO, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to write pipeline file %s: %v", domain.ErrIO, path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to write pipeline file %s: %v", domain.ErrIO, path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("%w: failed to move pipeline file into place %s: %v", domain.ErrIO, path, err)
	}

	return path, nil
}

// checkOwner refuses to replace a pending file queued under another id. Ids
// that differ only in sanitized characters map to the same name. The check
// is not atomic with the rename that follows.
func (r *Registry) checkOwner(path, id string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("%w: failed to read %s: %v", domain.ErrIO, path, err)
	}

	var existing struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &existing); err != nil || existing.ID != id {
		return fmt.Errorf("%w: %s is pending for record %q", domain.ErrQueueConflict, filepath.Base(path), existing.ID)
	}

	return nil
}

// Decode parses a queue file. Content that is valid JSON but not a usable
// record, such as null or an object without an id, is rejected too.
func (r *Registry) Decode(data []byte) (*domain.PipelineRecord, error) {
	var record domain.PipelineRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeserialization, err)
	}

	if err := r.validator.Validate(&record); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDeserialization, err)
	}

	return &record, nil
}

// Snapshot counts the files in the work, processed and failed directories.
// Missing directories count as empty.
func (r *Registry) Snapshot() (domain.QueueSnapshot, error) {
	var snap domain.QueueSnapshot
	var err error

	if snap.Pending, err = countFiles(r.workDir); err != nil {
		return snap, err
	}
	if snap.Processed, err = countFiles(r.ProcessedDir()); err != nil {
		return snap, err
	}
	if snap.Failed, err = countFiles(r.FailedDir()); err != nil {
		return snap, err
	}
	return snap, nil
}

// FileName returns the queue file name for id
func FileName(id string) string {
	return sanitize(id) + fileExt
}

// IsQueueFile reports whether a directory entry name is a record the worker
// should pick up. Dot-files are in-flight writes.
func IsQueueFile(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".")
}

// sanitize replaces characters that are unsafe in file names. A leading dot
// is replaced too so a record can never be mistaken for an in-flight write.
func sanitize(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for i, c := range id {
		switch {
		case c < 0x20 || c == 0x7f:
			b.WriteByte('_')
		case strings.ContainsRune(`:/\*?"<>|`, c):
			b.WriteByte('_')
		case i == 0 && c == '.':
			b.WriteByte('_')
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

func countFiles(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: failed to read %s: %v", domain.ErrIO, dir, err)
	}

	count := 0
	for _, e := range entries {
		if !e.IsDir() && IsQueueFile(e.Name()) {
			count++
		}
	}
	return count, nil
}
