package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/genforge-dev/genforge/queue"
)

const artifactExt = ".backup.json"

// FileStore implements Store using a directory of artifact files, one per
// handle. Writes go through a temp file and rename so a crash mid-write
// never leaves a truncated artifact under a valid handle.
type FileStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Create writes the state as a new artifact.
func (s *FileStore) Create(ctx context.Context, handle string, st queue.State) (*Record, error) {
	if handle == "" {
		handle = uuid.New().String()
	}
	if err := validateHandle(handle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	data, checksum, err := encodeState(st)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.artifactPath(handle)
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("%w: handle %q already exists", ErrWriteFailed, handle)
	}

	tmp, err := os.CreateTemp(s.dir, "."+handle+".tmp-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return nil, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}

	return &Record{
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
		Version:   formatVersion,
		Checksum:  checksum,
	}, nil
}

// Restore reads and validates the artifact named by handle.
func (s *FileStore) Restore(ctx context.Context, handle string) (queue.State, error) {
	if err := validateHandle(handle); err != nil {
		return queue.State{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if err := ctx.Err(); err != nil {
		return queue.State{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// Path is built from the validated handle via filepath.Join.
	data, err := os.ReadFile(s.artifactPath(handle)) //nolint:gosec
	if err != nil {
		if os.IsNotExist(err) {
			return queue.State{}, fmt.Errorf("%w: %s", ErrNotFound, handle)
		}
		return queue.State{}, fmt.Errorf("read artifact: %w", err)
	}

	return decodeState(data)
}

// List returns records for all artifacts in the directory, newest first.
func (s *FileStore) List(ctx context.Context) ([]*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read backup directory: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), artifactExt) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		handle := strings.TrimSuffix(entry.Name(), artifactExt)
		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name())) //nolint:gosec
		if err != nil {
			continue
		}
		var a artifact
		if err := json.Unmarshal(data, &a); err != nil {
			continue
		}

		records = append(records, &Record{
			Handle:    handle,
			CreatedAt: info.ModTime().UTC(),
			Version:   a.Version,
			Checksum:  a.Checksum,
		})
	}

	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

// Delete removes an artifact. Unknown handles are ignored.
func (s *FileStore) Delete(ctx context.Context, handle string) error {
	if err := validateHandle(handle); err != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.artifactPath(handle)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove artifact: %w", err)
	}
	return nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error { return nil }

func (s *FileStore) artifactPath(handle string) string {
	return filepath.Join(s.dir, handle+artifactExt)
}
