// Package provider implements the layered timing-data provider chain: a
// local persistent cache, the authoritative remote store, and an on-demand
// synthesis fallback, orchestrated by the Composite provider.
package provider

import (
	"context"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
)

// Provider is the capability set shared by every tier in the fallback
// chain. Absence of data is reported as (nil, nil), never as an error;
// errors are reserved for transport and timeout failures, which the
// Composite provider treats as a miss.
//
// Tiers that cannot support a capability return ErrUnsupported.
type Provider interface {
	// Name identifies the tier in logs and metrics.
	Name() string

	// Get looks up timing data by content key.
	Get(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error)

	// Put stores timing data under its derived content key.
	// Last-write-wins; no version negotiation between tiers.
	Put(ctx context.Context, data *models.SentenceTimingData) error

	// Clear removes everything held by this tier.
	Clear(ctx context.Context) error
}
