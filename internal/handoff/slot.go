// Package handoff carries the composed photo strip from the capture stage to
// the decoration stage. A Slot is a tiny string key-value store with
// consume-once reads, the server-side counterpart of browser local storage.
package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Slot keys shared by the stages.
const (
	KeyPhotoStrip    = "photoStrip"
	KeySelectedFrame = "selectedFramePath"
)

// DefaultFramePath is the frame overlay used when no frame was chosen.
const DefaultFramePath = "Assets/fish-photobooth/camerapage/teky.png"

// Slot stores string values by key. Put overwrites. Take returns the value and
// removes it; a second Take of the same key reports ok=false. Implementations
// are safe for concurrent use.
type Slot interface {
	Put(ctx context.Context, key, value string) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Take(ctx context.Context, key string) (value string, ok bool, err error)
}

// FramePath returns the selected frame path, or DefaultFramePath.
func FramePath(ctx context.Context, s Slot) string {
	v, ok, err := s.Get(ctx, KeySelectedFrame)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read selected frame, using default")
		return DefaultFramePath
	}
	if !ok || v == "" {
		return DefaultFramePath
	}
	return v
}

// MemorySlot is an in-process Slot.
type MemorySlot struct {
	mu     sync.Mutex
	values map[string]string
}

var _ Slot = (*MemorySlot)(nil)

// NewMemorySlot returns an empty MemorySlot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{values: make(map[string]string)}
}

func (m *MemorySlot) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemorySlot) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemorySlot) Take(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	delete(m.values, key)
	return v, ok, nil
}

// FileSlot persists the slot as a single JSON object in a file, so the
// hand-off survives a restart between the capture and decoration requests.
type FileSlot struct {
	mu   sync.Mutex
	path string
}

var _ Slot = (*FileSlot)(nil)

// NewFileSlot returns a slot stored at dir/slot.json. The directory is
// created if needed.
func NewFileSlot(dir string) (*FileSlot, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create slot directory: %w", err)
	}
	return &FileSlot{path: filepath.Join(dir, "slot.json")}, nil
}

func (f *FileSlot) Put(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = value
	return f.save(values)
}

func (f *FileSlot) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileSlot) Take(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	values, err := f.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	if !ok {
		return "", false, nil
	}
	delete(values, key)
	if err := f.save(values); err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (f *FileSlot) load() (map[string]string, error) {
	values := make(map[string]string)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse slot %s: %w", f.path, err)
	}
	return values, nil
}

// save replaces the slot file via a temp file and rename.
func (f *FileSlot) save(values map[string]string) error {
	data, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("failed to encode slot: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), "slot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp slot: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write slot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write slot: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace slot: %w", err)
	}
	return nil
}
