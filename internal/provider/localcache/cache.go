// Package localcache implements the local persistent cache tier of the
// timing-data provider chain on top of bbolt. Entries carry a TTL and are
// lazily evicted on read; a periodic sweep removes the rest.
package localcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/observability/metrics"
	"reading-timing-service/internal/provider"
)

const tierName = "local-cache"

var bucketName = []byte("timings")

// Config holds local cache configuration.
type Config struct {
	// Path is the bbolt database file location.
	Path string
	// TTL applied to every entry on Put.
	TTL time.Duration
	// ItemBudgetBytes is the soft per-entry size budget. Writes above it
	// are allowed but warned about; the tier has no size-based eviction.
	ItemBudgetBytes int
}

// DefaultConfig returns the production cache defaults.
func DefaultConfig(path string) Config {
	return Config{
		Path:            path,
		TTL:             7 * 24 * time.Hour,
		ItemBudgetBytes: 256 * 1024,
	}
}

// Cache is the local persistent timing-data cache.
type Cache struct {
	db      *bolt.DB
	ttl     time.Duration
	budget  int
	metrics *metrics.Metrics

	// now is swapped out in tests to control expiry.
	now func() time.Time
}

var _ provider.Provider = (*Cache)(nil)

// Open opens (creating if needed) the cache database at cfg.Path.
func Open(cfg Config) (*Cache, error) {
	db, err := bolt.Open(cfg.Path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache bucket: %w", err)
	}
	return &Cache{
		db:      db,
		ttl:     cfg.TTL,
		budget:  cfg.ItemBudgetBytes,
		metrics: metrics.DefaultMetrics,
		now:     time.Now,
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Name identifies the tier.
func (c *Cache) Name() string {
	return tierName
}

// Get returns cached timing data for the key, or nil on a miss. An expired
// or malformed entry is deleted and reported as a plain miss, never as
// "found but stale".
func (c *Cache) Get(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	k := []byte(key.CacheKey())
	var raw []byte
	if err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketName).Get(k); v != nil {
			raw = make([]byte, len(v))
			copy(raw, v)
		}
		return nil
	}); err != nil {
		return nil, &provider.TransportError{Tier: tierName, Err: err}
	}
	if raw == nil {
		return nil, nil
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		logger := logging.WithTier(tierName, key.String())
		logger.Warn().Err(err).Msg("Removing malformed cache entry")
		c.metrics.CacheEntriesCorrupt.Inc()
		c.delete(k)
		return nil, nil
	}
	if entry.Expired(c.now()) {
		c.delete(k)
		return nil, nil
	}
	return &entry.Data, nil
}

// Put stores timing data with CachedAt = now and the configured TTL,
// unconditionally overwriting any entry for the same key.
func (c *Cache) Put(ctx context.Context, data *models.SentenceTimingData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := contentkey.New(data.Date, data.ReadingType)
	entry := models.CacheEntry{
		Data:     *data,
		CachedAt: c.now(),
		TTLMs:    uint64(c.ttl / time.Millisecond),
	}
	raw, err := json.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("serialize cache entry: %w", err)
	}
	if c.budget > 0 && len(raw) > c.budget {
		logger := logging.WithTier(tierName, key.String())
		logger.Warn().
			Int("sizeBytes", len(raw)).
			Int("budgetBytes", c.budget).
			Msg("Cache entry exceeds per-item budget")
		c.metrics.CacheOversizePuts.Inc()
	}

	if err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key.CacheKey()), raw)
	}); err != nil {
		return &provider.TransportError{Tier: tierName, Err: err}
	}
	return nil
}

// Clear removes every cached entry.
func (c *Cache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketName); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketName)
		return err
	})
}

// SweepExpired scans the full cache and removes expired entries. Malformed
// entries are removed too rather than surfaced; the sweep never fails on
// bad data. Returns the number of entries removed.
func (c *Cache) SweepExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := c.now()
	expired, corrupt := 0, 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		cur := tx.Bucket(bucketName).Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			var entry models.CacheEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				if err := cur.Delete(); err != nil {
					return err
				}
				corrupt++
				continue
			}
			if entry.Expired(now) {
				if err := cur.Delete(); err != nil {
					return err
				}
				expired++
			}
		}
		return nil
	})
	if err != nil {
		return 0, &provider.TransportError{Tier: tierName, Err: err}
	}

	c.metrics.RecordSweep(expired, corrupt)
	if removed := expired + corrupt; removed > 0 {
		logger := logging.WithComponent(tierName)
		logger.Info().
			Int("expired", expired).
			Int("corrupt", corrupt).
			Msg("Cache sweep removed entries")
	}
	return expired + corrupt, nil
}

// delete removes one key best-effort; used by the lazy eviction path.
func (c *Cache) delete(k []byte) {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete(k)
	})
	if err != nil {
		logger := logging.WithComponent(tierName)
		logger.Warn().Err(err).Msg("Failed to evict stale cache entry")
	}
}
