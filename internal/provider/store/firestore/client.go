// Package firestore provides the Cloud Firestore implementation of the
// remote document store capability.
package firestore

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/logging"
	"reading-timing-service/internal/provider/store"
)

// Config holds Firestore connection settings.
type Config struct {
	ProjectID       string
	Collection      string
	CredentialsFile string // optional; ADC when empty
}

// Client implements store.DocumentStore on a Firestore collection, one
// document per content key.
type Client struct {
	client     *firestore.Client
	collection string
}

var _ store.DocumentStore = (*Client)(nil)

// New connects to Firestore. Uses application default credentials unless a
// credentials file is configured.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	c, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	logger := logging.WithComponent("firestore")
	logger.Info().
		Str("projectId", cfg.ProjectID).
		Str("collection", cfg.Collection).
		Msg("Firestore document store initialized")
	return &Client{client: c, collection: cfg.Collection}, nil
}

// Close releases the underlying client.
func (c *Client) Close() error {
	return c.client.Close()
}

// Read fetches one document by content key.
func (c *Client) Read(ctx context.Context, key string) (*models.SentenceTimingData, error) {
	snap, err := c.client.Collection(c.collection).Doc(key).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(snap.Data())
}

// Write upserts one document under the content key.
func (c *Client) Write(ctx context.Context, key string, data *models.SentenceTimingData) error {
	doc, err := encode(data)
	if err != nil {
		return err
	}
	_, err = c.client.Collection(c.collection).Doc(key).Set(ctx, doc)
	return err
}

// encode/decode go through JSON so the Firestore document shape matches the
// JSON wire format exactly, field by field.
func encode(data *models.SentenceTimingData) (map[string]any, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encode timing document: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("encode timing document: %w", err)
	}
	return doc, nil
}

func decode(doc map[string]any) (*models.SentenceTimingData, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode timing document: %w", err)
	}
	var data models.SentenceTimingData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode timing document: %w", err)
	}
	return &data, nil
}
