package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/service/generation"
)

type stubProvider struct {
	data    map[string]*models.SentenceTimingData
	getErr  error
	saveErr error
	saved   []*models.SentenceTimingData
}

func (p *stubProvider) GetTimingData(_ context.Context, key contentkey.Key) (*models.SentenceTimingData, error) {
	if p.getErr != nil {
		return nil, p.getErr
	}
	return p.data[key.String()], nil
}

func (p *stubProvider) SaveTimingData(_ context.Context, data *models.SentenceTimingData) error {
	if err := data.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid timing data: %w", err)
	}
	if p.saveErr != nil {
		return p.saveErr
	}
	p.saved = append(p.saved, data)
	return nil
}

type stubGenerator struct {
	data  *models.SentenceTimingData
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, req generation.Request) (*models.SentenceTimingData, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	return g.data, nil
}

func psalmData() *models.SentenceTimingData {
	return &models.SentenceTimingData{
		ReadingID:   "r-1",
		Text:        "The Lord is my shepherd",
		ReadingType: "psalm",
		Date:        "2026-03-01",
		Words: []models.WordTiming{
			{Word: "The", Index: 0, StartMs: 0, EndMs: 4000, CharOffset: 0, CharLength: 3},
			{Word: "Lord", Index: 1, StartMs: 4000, EndMs: 5200, CharOffset: 4, CharLength: 4},
			{Word: "is", Index: 2, StartMs: 5200, EndMs: 6000, CharOffset: 9, CharLength: 2},
			{Word: "my", Index: 3, StartMs: 6000, EndMs: 7500, CharOffset: 12, CharLength: 2},
			{Word: "shepherd", Index: 4, StartMs: 7500, EndMs: 9000, CharOffset: 17, CharLength: 8},
		},
		DurationMs: 9000,
		Speed:      1.0,
		Version:    models.SchemaVersion,
	}
}

func testServer(provider TimingProvider, generator Generator) *httptest.Server {
	return httptest.NewServer(NewRouter(NewHandlers(provider, generator)))
}

func TestGetTimings_Found(t *testing.T) {
	provider := &stubProvider{data: map[string]*models.SentenceTimingData{
		"2026-03-01:psalm": psalmData(),
	}}
	srv := testServer(provider, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/timings/2026-03-01/psalm")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var data models.SentenceTimingData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.ReadingID != "r-1" || len(data.Words) != 5 {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestGetTimings_NotFound(t *testing.T) {
	srv := testServer(&stubProvider{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/timings/2026-03-01/psalm")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.Error == "" {
		t.Error("expected error message in body")
	}
}

func TestGetTimings_InvalidKey(t *testing.T) {
	srv := testServer(&stubProvider{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/timings/%20/%20")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestResolve_Positions(t *testing.T) {
	provider := &stubProvider{data: map[string]*models.SentenceTimingData{
		"2026-03-01:psalm": psalmData(),
	}}
	srv := testServer(provider, nil)
	defer srv.Close()

	tests := []struct {
		positionMs uint64
		want       int
	}{
		{0, 0},
		{2000, 0},
		{4000, 1},
		{5500, 2},
		{7500, 4},
		{8999, 4},
		{9000, -1},
	}

	for _, tt := range tests {
		url := fmt.Sprintf("%s/v1/timings/2026-03-01/psalm/resolve?positionMs=%d", srv.URL, tt.positionMs)
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		var body resolveResponse
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Fatalf("positionMs=%d: expected 200, got %d", tt.positionMs, resp.StatusCode)
		}
		if body.ActiveIndex != tt.want {
			t.Errorf("positionMs=%d: expected activeIndex %d, got %d", tt.positionMs, tt.want, body.ActiveIndex)
		}
	}
}

func TestResolve_Window(t *testing.T) {
	provider := &stubProvider{data: map[string]*models.SentenceTimingData{
		"2026-03-01:psalm": psalmData(),
	}}
	srv := testServer(provider, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/timings/2026-03-01/psalm/resolve?positionMs=5500&radius=1")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if body.ActiveIndex != 2 {
		t.Fatalf("expected activeIndex 2, got %d", body.ActiveIndex)
	}
	if len(body.Window) != 3 {
		t.Fatalf("expected 3-word window, got %d", len(body.Window))
	}
	if body.Window[0].Word != "Lord" || body.Window[2].Word != "my" {
		t.Errorf("unexpected window: %+v", body.Window)
	}
}

func TestResolve_MissingPosition(t *testing.T) {
	srv := testServer(&stubProvider{}, nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/timings/2026-03-01/psalm/resolve")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPutTimings_Accepts(t *testing.T) {
	provider := &stubProvider{}
	srv := testServer(provider, nil)
	defer srv.Close()

	payload, _ := json.Marshal(psalmData())
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/timings", bytes.NewReader(payload))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if len(provider.saved) != 1 {
		t.Errorf("expected 1 save, got %d", len(provider.saved))
	}
}

func TestPutTimings_RejectsInvalidData(t *testing.T) {
	provider := &stubProvider{}
	srv := testServer(provider, nil)
	defer srv.Close()

	bad := psalmData()
	bad.DurationMs = 0
	payload, _ := json.Marshal(bad)
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/timings", bytes.NewReader(payload))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if len(provider.saved) != 0 {
		t.Errorf("expected no saves, got %d", len(provider.saved))
	}
}

func TestPutTimings_MalformedBody(t *testing.T) {
	srv := testServer(&stubProvider{}, nil)
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/timings", strings.NewReader("{not json"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPutTimings_PersistFailure(t *testing.T) {
	provider := &stubProvider{saveErr: errors.New("disk full")}
	srv := testServer(provider, nil)
	defer srv.Close()

	payload, _ := json.Marshal(psalmData())
	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/v1/timings", bytes.NewReader(payload))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestGenerate_ReturnsData(t *testing.T) {
	gen := &stubGenerator{data: psalmData()}
	srv := testServer(&stubProvider{}, gen)
	defer srv.Close()

	payload := `{"date":"2026-03-01","readingType":"psalm","text":"The Lord is my shepherd"}`
	resp, err := http.Post(srv.URL+"/v1/generate", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gen.calls != 1 {
		t.Errorf("expected 1 generator call, got %d", gen.calls)
	}
	var data models.SentenceTimingData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if data.ReadingID != "r-1" {
		t.Errorf("unexpected payload: %+v", data)
	}
}

func TestGenerate_NotConfigured(t *testing.T) {
	srv := testServer(&stubProvider{}, nil)
	defer srv.Close()

	payload := `{"date":"2026-03-01","readingType":"psalm","text":"text"}`
	resp, err := http.Post(srv.URL+"/v1/generate", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotImplemented {
		t.Errorf("expected 501, got %d", resp.StatusCode)
	}
}

func TestGenerate_InvalidRequest(t *testing.T) {
	gen := &stubGenerator{err: errors.New("invalid content key")}
	srv := testServer(&stubProvider{}, gen)
	defer srv.Close()

	payload := `{"date":"","readingType":"psalm","text":"text"}`
	resp, err := http.Post(srv.URL+"/v1/generate", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSync_Session(t *testing.T) {
	provider := &stubProvider{data: map[string]*models.SentenceTimingData{
		"2026-03-01:psalm": psalmData(),
	}}
	srv := testServer(provider, nil)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sync/2026-03-01/psalm"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// First message acknowledges the reading.
	var ack syncResponse
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if ack.Error != "" {
		t.Fatalf("unexpected error: %s", ack.Error)
	}
	if ack.WordCount != 5 {
		t.Errorf("expected word count 5, got %d", ack.WordCount)
	}
	if ack.ActiveIndex != -1 {
		t.Errorf("expected ack activeIndex -1, got %d", ack.ActiveIndex)
	}

	// Stream positions.
	positions := []struct {
		positionMs uint64
		want       int
	}{
		{0, 0},
		{5500, 2},
		{9000, -1},
	}
	for _, tt := range positions {
		if err := conn.WriteJSON(syncRequest{PositionMs: tt.positionMs}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		var resp syncResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if resp.ActiveIndex != tt.want {
			t.Errorf("positionMs=%d: expected activeIndex %d, got %d", tt.positionMs, tt.want, resp.ActiveIndex)
		}
	}
}

func TestSync_Window(t *testing.T) {
	provider := &stubProvider{data: map[string]*models.SentenceTimingData{
		"2026-03-01:psalm": psalmData(),
	}}
	srv := testServer(provider, nil)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sync/2026-03-01/psalm"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	var ack syncResponse
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read failed: %v", err)
	}

	if err := conn.WriteJSON(syncRequest{PositionMs: 5500, Radius: 1}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	var resp syncResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if resp.ActiveIndex != 2 {
		t.Fatalf("expected activeIndex 2, got %d", resp.ActiveIndex)
	}
	if len(resp.Window) != 3 || resp.Window[1].Word != "is" {
		t.Errorf("unexpected window: %+v", resp.Window)
	}
}

func TestSync_UnknownReading(t *testing.T) {
	srv := testServer(&stubProvider{}, nil)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/sync/2026-03-01/psalm"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail for unknown reading")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 handshake response, got %+v", resp)
	}
}
