package models

// TimingGenerated is published when new timing data is produced and persisted.
type TimingGenerated struct {
	EventType   string `json:"eventType"`
	ContentKey  string `json:"contentKey"`
	Date        string `json:"date"`
	ReadingType string `json:"readingType"`
	DurationMs  uint64 `json:"durationMs"`
	WordCount   int    `json:"wordCount"`
	TTSProvider string `json:"ttsProvider"`
	Voice       string `json:"voice"`
	Timestamp   int64  `json:"timestamp"`
}

// TimingMissed is published when every tier of the fallback chain missed,
// signalling content worth pre-generating.
type TimingMissed struct {
	EventType  string `json:"eventType"`
	ContentKey string `json:"contentKey"`
	Stage      string `json:"stage"` // deepest tier consulted
	Timestamp  int64  `json:"timestamp"`
}
