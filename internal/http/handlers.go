// Package http provides the service's REST and websocket API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reading-timing-service/internal/contentkey"
	"reading-timing-service/internal/models"
	"reading-timing-service/internal/service/generation"
	"reading-timing-service/internal/timing"
)

// TimingProvider is the layered timing data source the handlers read from
// and write through.
type TimingProvider interface {
	GetTimingData(ctx context.Context, key contentkey.Key) (*models.SentenceTimingData, error)
	SaveTimingData(ctx context.Context, data *models.SentenceTimingData) error
}

// Generator runs the synthesize-reconstruct-persist pipeline on demand.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (*models.SentenceTimingData, error)
}

// Handlers holds the API handler dependencies.
type Handlers struct {
	provider  TimingProvider
	generator Generator
}

// NewHandlers creates the API handlers. The generator may be nil, in which
// case POST /v1/generate responds 501.
func NewHandlers(provider TimingProvider, generator Generator) *Handlers {
	return &Handlers{
		provider:  provider,
		generator: generator,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func keyFromRequest(r *http.Request) (contentkey.Key, bool) {
	key := contentkey.New(chi.URLParam(r, "date"), chi.URLParam(r, "readingType"))
	return key, key.Valid()
}

// GetTimings handles GET /v1/timings/{date}/{readingType}.
func (h *Handlers) GetTimings(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date or reading type")
		return
	}

	data, err := h.provider.GetTimingData(r.Context(), key)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			writeError(w, http.StatusRequestTimeout, "request cancelled")
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "no timing data for "+key.String())
		return
	}

	writeJSON(w, http.StatusOK, data)
}

// PutTimings handles PUT /v1/timings. The payload must pass validation
// before any tier is written.
func (h *Handlers) PutTimings(w http.ResponseWriter, r *http.Request) {
	var data models.SentenceTimingData
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload: "+err.Error())
		return
	}

	if err := h.provider.SaveTimingData(r.Context(), &data); err != nil {
		if verr := new(models.ValidationError); errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Error().Err(err).Str("contentKey", contentkey.New(data.Date, data.ReadingType).String()).
			Msg("Failed to persist timing data")
		writeError(w, http.StatusInternalServerError, "persist failed")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type generateRequest struct {
	Date        string  `json:"date"`
	ReadingType string  `json:"readingType"`
	Text        string  `json:"text"`
	Reference   string  `json:"reference,omitempty"`
	VoiceID     string  `json:"voiceId,omitempty"`
	Speed       float64 `json:"speed,omitempty"`
	Force       bool    `json:"force,omitempty"`
}

// Generate handles POST /v1/generate.
func (h *Handlers) Generate(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		writeError(w, http.StatusNotImplemented, "generation not configured")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed payload: "+err.Error())
		return
	}

	data, err := h.generator.Generate(r.Context(), generation.Request{
		Date:        req.Date,
		ReadingType: req.ReadingType,
		Text:        req.Text,
		Reference:   req.Reference,
		VoiceID:     req.VoiceID,
		Speed:       req.Speed,
		Force:       req.Force,
	})
	if err != nil {
		if !contentkey.New(req.Date, req.ReadingType).Valid() || req.Text == "" {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Error().Err(err).Msg("Generation failed")
		writeError(w, http.StatusBadGateway, "generation failed")
		return
	}

	writeJSON(w, http.StatusOK, data)
}

type resolveResponse struct {
	ContentKey  string              `json:"contentKey"`
	PositionMs  uint64              `json:"positionMs"`
	ActiveIndex int                 `json:"activeIndex"`
	Window      []models.WordTiming `json:"window,omitempty"`
}

// Resolve handles GET /v1/timings/{date}/{readingType}/resolve. It maps a
// playback position to the active word, with an optional surrounding window.
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date or reading type")
		return
	}

	positionMs, err := strconv.ParseUint(r.URL.Query().Get("positionMs"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "positionMs must be a non-negative integer")
		return
	}
	radius := 0
	if raw := r.URL.Query().Get("radius"); raw != "" {
		radius, err = strconv.Atoi(raw)
		if err != nil || radius < 0 {
			writeError(w, http.StatusBadRequest, "radius must be a non-negative integer")
			return
		}
	}

	data, err := h.provider.GetTimingData(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	if data == nil {
		writeError(w, http.StatusNotFound, "no timing data for "+key.String())
		return
	}

	active := timing.ResolveActiveIndex(data.Words, positionMs)
	resp := resolveResponse{
		ContentKey:  key.String(),
		PositionMs:  positionMs,
		ActiveIndex: active,
	}
	if radius > 0 && active >= 0 {
		resp.Window = timing.WindowAround(data.Words, active, radius)
	}

	writeJSON(w, http.StatusOK, resp)
}
