package store

import (
	"context"
	"sync"

	"reading-timing-service/internal/models"
)

// Memory is an in-process DocumentStore for tests and credential-less runs.
type Memory struct {
	mu   sync.RWMutex
	docs map[string]models.SentenceTimingData

	// Call counters for fallback-order assertions in tests.
	Reads  int
	Writes int
}

var _ DocumentStore = (*Memory)(nil)

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string]models.SentenceTimingData)}
}

// Read returns the stored document or ErrNotFound.
func (m *Memory) Read(ctx context.Context, key string) (*models.SentenceTimingData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reads++
	doc, ok := m.docs[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := doc
	return &out, nil
}

// Write upserts the document, last-write-wins.
func (m *Memory) Write(ctx context.Context, key string, data *models.SentenceTimingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Writes++
	m.docs[key] = *data
	return nil
}

// Len reports the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
