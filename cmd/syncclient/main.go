// Command syncclient simulates a reading-app client: it opens the sync
// websocket for one reading and streams playback positions in real time,
// printing the highlighted word as it changes.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

type syncRequest struct {
	PositionMs uint64 `json:"positionMs"`
	Radius     int    `json:"radius,omitempty"`
}

type syncResponse struct {
	ContentKey  string `json:"contentKey,omitempty"`
	PositionMs  uint64 `json:"positionMs"`
	ActiveIndex int    `json:"activeIndex"`
	Window      []struct {
		Word string `json:"word"`
	} `json:"window,omitempty"`
	WordCount int    `json:"wordCount,omitempty"`
	Error     string `json:"error,omitempty"`
}

func main() {
	var (
		baseURL     = flag.String("url", "ws://localhost:8080", "service base URL (ws scheme)")
		date        = flag.String("date", time.Now().UTC().Format("2006-01-02"), "reading date")
		readingType = flag.String("type", "psalm", "reading type")
		durationMs  = flag.Uint64("duration", 30000, "simulated playback length in ms")
		stepMs      = flag.Uint64("step", 250, "position update interval in ms")
	)
	flag.Parse()

	wsURL := fmt.Sprintf("%s/v1/sync/%s/%s", *baseURL, *date, *readingType)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		log.Fatalf("dial %s failed: %v", wsURL, err)
	}
	defer conn.Close()

	var ack syncResponse
	if err := conn.ReadJSON(&ack); err != nil {
		log.Fatalf("read failed: %v", err)
	}
	if ack.Error != "" {
		log.Fatalf("server: %s", ack.Error)
	}
	log.Printf("synced to %s (%d words)", ack.ContentKey, ack.WordCount)

	ticker := time.NewTicker(time.Duration(*stepMs) * time.Millisecond)
	defer ticker.Stop()

	lastIndex := -2
	for position := uint64(0); position <= *durationMs; position += *stepMs {
		<-ticker.C

		if err := conn.WriteJSON(syncRequest{PositionMs: position, Radius: 1}); err != nil {
			log.Fatalf("write failed: %v", err)
		}
		var resp syncResponse
		if err := conn.ReadJSON(&resp); err != nil {
			log.Fatalf("read failed: %v", err)
		}

		if resp.ActiveIndex == lastIndex {
			continue
		}
		lastIndex = resp.ActiveIndex

		if resp.ActiveIndex < 0 {
			log.Printf("%6dms: (silence)", position)
			continue
		}
		words := make([]string, 0, len(resp.Window))
		for _, w := range resp.Window {
			words = append(words, w.Word)
		}
		log.Printf("%6dms: word %d %v", position, resp.ActiveIndex, words)
	}
}
