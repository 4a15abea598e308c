// Package store implements the authoritative-store tier of the timing-data
// provider chain. The remote document store itself sits behind the
// DocumentStore interface; production uses Cloud Firestore.
package store

import (
	"context"
	"errors"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/provider"
)

const tierName = "authoritative-store"

// ErrNotFound is returned by DocumentStore implementations when no document
// exists for a key. The Provider maps it to a plain miss.
var ErrNotFound = errors.New("document not found")

// DocumentStore is the remote document store capability. No transactions or
// multi-key atomicity; Write is an idempotent per-key upsert.
type DocumentStore interface {
	Read(ctx context.Context, key string) (*models.SentenceTimingData, error)
	Write(ctx context.Context, key string, data *models.SentenceTimingData) error
}

// Provider adapts a DocumentStore to the provider chain. This tier has no
// caching and no TTL: it is the durable source of truth, populated primarily
// by the out-of-band pre-generation job.
type Provider struct {
	docs DocumentStore
}

var _ provider.Provider = (*Provider)(nil)

// New creates the authoritative-store provider over the given document store.
func New(docs DocumentStore) *Provider {
	return &Provider{docs: docs}
}

// Name identifies the tier.
func (p *Provider) Name() string {
	return tierName
}

// Get performs a single remote read. Not-found is (nil, nil); transport
// failures surface as a TransportError for the Composite provider to catch.
func (p *Provider) Get(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error) {
	data, err := p.docs.Read(ctx, key.String())
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, &provider.TransportError{Tier: tierName, Err: err}
	}
	return data, nil
}

// Put upserts timing data under its content key. Last-write-wins; the store
// never triggers synthesis on its own.
func (p *Provider) Put(ctx context.Context, data *models.SentenceTimingData) error {
	key := contentkey.New(data.Date, data.ReadingType)
	if err := p.docs.Write(ctx, key.String(), data); err != nil {
		return &provider.TransportError{Tier: tierName, Err: err}
	}
	return nil
}

// Clear is not supported on the durable tier.
func (p *Provider) Clear(ctx context.Context) error {
	return provider.ErrUnsupported
}
