package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore implements ShareStore with one JSON file per record.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

var _ ShareStore = (*FileStore)(nil)

// NewFileStore returns a store under dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create share index dir: %w", err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

// Dir returns the directory holding the records.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) PutShare(ctx context.Context, rec *ShareRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.CreatedAt == 0 {
		rec.CreatedAt = s.now().Unix()
	}
	if rec.ExpiresAt == 0 {
		rec.ExpiresAt = s.now().Add(DefaultShareTTL).Unix()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal share %s: %w", rec.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tmp, err := os.CreateTemp(s.dir, ".share-*")
	if err != nil {
		return fmt.Errorf("put share %s: %w", rec.ID, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("put share %s: %w", rec.ID, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("put share %s: %w", rec.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.ID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("put share %s: %w", rec.ID, err)
	}
	return nil
}

func (s *FileStore) GetShare(ctx context.Context, id string) (*ShareRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	data, err := os.ReadFile(s.path(id))
	s.mu.Unlock()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share %s: %w", id, err)
	}
	var rec ShareRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode share %s: %w", id, err)
	}
	if rec.Expired(s.now()) {
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) DeleteShare(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete share %s: %w", id, err)
	}
	return nil
}
