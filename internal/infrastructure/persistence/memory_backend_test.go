package persistence

import (
	"context"
	"errors"
	"sync"
)

// memoryBackend is an in-process Backend for tests
type memoryBackend struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	writeErr error
	readErr  error
	writes   int
}

func newMemoryBackend() *memoryBackend {
	return &memoryBackend{blobs: make(map[string][]byte)}
}

func (m *memoryBackend) Read(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.blobs[name]
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *memoryBackend) Write(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.blobs[name] = append([]byte(nil), data...)
	return nil
}

var errDiskFull = errors.New("disk full")
