package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTrigger sends synthesis requests to the backend's HTTP trigger
// endpoint. The per-request deadline comes from the caller's context; the
// client-level timeout is only a backstop.
type HTTPTrigger struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

var _ TriggerClient = (*HTTPTrigger)(nil)

// NewHTTPTrigger creates a trigger client for the given endpoint.
func NewHTTPTrigger(endpoint, apiKey string) *HTTPTrigger {
	return &HTTPTrigger{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Trigger posts the synthesis request and decodes the acknowledgement.
func (t *HTTPTrigger) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode trigger request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build trigger request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("trigger endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var out TriggerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode trigger response: %w", err)
	}
	return &out, nil
}
