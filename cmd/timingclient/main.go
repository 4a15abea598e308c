// Command timingclient is a smoke-test client for the REST API: it fetches
// timing data for one reading and resolves a few playback positions.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "service base URL")
		date        = flag.String("date", time.Now().UTC().Format("2006-01-02"), "reading date")
		readingType = flag.String("type", "psalm", "reading type")
	)
	flag.Parse()

	client := &http.Client{Timeout: 30 * time.Second}

	timingsURL := fmt.Sprintf("%s/v1/timings/%s/%s", *baseURL, *date, *readingType)
	resp, err := client.Get(timingsURL)
	if err != nil {
		log.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("GET %s: status %d", timingsURL, resp.StatusCode)
	}

	var data struct {
		ReadingID  string `json:"readingId"`
		DurationMs uint64 `json:"durationMs"`
		Words      []struct {
			Word    string `json:"word"`
			StartMs uint64 `json:"startMs"`
			EndMs   uint64 `json:"endMs"`
		} `json:"words"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		log.Fatalf("decode failed: %v", err)
	}

	log.Printf("reading %s: %d words, %dms", data.ReadingID, len(data.Words), data.DurationMs)

	// Resolve a handful of positions across the audio.
	for i := 0; i < 5; i++ {
		positionMs := data.DurationMs * uint64(i) / 5
		resolveURL := fmt.Sprintf("%s/resolve?positionMs=%d", timingsURL, positionMs)
		r, err := client.Get(resolveURL)
		if err != nil {
			log.Fatalf("resolve failed: %v", err)
		}
		var result struct {
			ActiveIndex int `json:"activeIndex"`
		}
		if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
			log.Fatalf("decode failed: %v", err)
		}
		r.Body.Close()

		word := "(none)"
		if result.ActiveIndex >= 0 && result.ActiveIndex < len(data.Words) {
			word = data.Words[result.ActiveIndex].Word
		}
		log.Printf("position %6dms -> index %d %s", positionMs, result.ActiveIndex, word)
	}
}
