package http

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"reading-timing-service/internal/models"
	"reading-timing-service/internal/observability/metrics"
	"reading-timing-service/internal/timing"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		// Clients are native apps, not browsers; origin checks do not apply.
		return true
	},
}

// syncRequest is one client message on the sync socket: a playback position
// and an optional render-window radius.
type syncRequest struct {
	PositionMs uint64 `json:"positionMs"`
	Radius     int    `json:"radius,omitempty"`
}

type syncResponse struct {
	ContentKey  string              `json:"contentKey,omitempty"`
	PositionMs  uint64              `json:"positionMs"`
	ActiveIndex int                 `json:"activeIndex"`
	Window      []models.WordTiming `json:"window,omitempty"`
	WordCount   int                 `json:"wordCount,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// Sync handles GET /v1/sync/{date}/{readingType}: a websocket session that
// resolves streamed playback positions against the reading's word timings.
// The reading is fixed for the life of the session; the first server message
// acknowledges it with the word count.
func (h *Handlers) Sync(w http.ResponseWriter, r *http.Request) {
	key, ok := keyFromRequest(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid date or reading type")
		return
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

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	m := metrics.DefaultMetrics
	m.SyncSessionsActive.Inc()
	defer m.SyncSessionsActive.Dec()

	if err := conn.WriteJSON(syncResponse{
		ContentKey:  key.String(),
		ActiveIndex: -1,
		WordCount:   len(data.Words),
	}); err != nil {
		return
	}

	for {
		var req syncRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("contentKey", key.String()).Msg("Sync session ended abnormally")
			}
			return
		}

		active := timing.ResolveActiveIndex(data.Words, req.PositionMs)
		resp := syncResponse{
			ContentKey:  key.String(),
			PositionMs:  req.PositionMs,
			ActiveIndex: active,
		}
		if req.Radius > 0 && active >= 0 {
			resp.Window = timing.WindowAround(data.Words, active, req.Radius)
		}
		if err := conn.WriteJSON(resp); err != nil {
			return
		}
	}
}
