package models

import (
	"errors"
	"testing"
	"time"
)

func validData() *SentenceTimingData {
	return &SentenceTimingData{
		ReadingID:   "r-1",
		Text:        "Give thanks to the LORD",
		ReadingType: "psalm",
		Date:        "2026-08-29",
		Words: []WordTiming{
			{Word: "Give", Index: 0, StartMs: 0, EndMs: 500, CharOffset: 0, CharLength: 4},
			{Word: "thanks", Index: 1, StartMs: 500, EndMs: 1100, CharOffset: 5, CharLength: 6},
			{Word: "to", Index: 2, StartMs: 1100, EndMs: 1300, CharOffset: 12, CharLength: 2},
			{Word: "the", Index: 3, StartMs: 1400, EndMs: 1700, CharOffset: 15, CharLength: 3},
			{Word: "LORD", Index: 4, StartMs: 1700, EndMs: 2400, CharOffset: 19, CharLength: 4},
		},
		DurationMs: 2500,
		Speed:      1.0,
		Version:    SchemaVersion,
	}
}

func TestValidate_AcceptsWellFormedData(t *testing.T) {
	if err := validData().Validate(); err != nil {
		t.Errorf("well-formed data rejected: %v", err)
	}
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SentenceTimingData)
	}{
		{"empty text", func(d *SentenceTimingData) { d.Text = "" }},
		{"zero duration", func(d *SentenceTimingData) { d.DurationMs = 0 }},
		{"no words", func(d *SentenceTimingData) { d.Words = nil }},
		{"index gap", func(d *SentenceTimingData) { d.Words[2].Index = 5 }},
		{"empty span", func(d *SentenceTimingData) { d.Words[1].EndMs = d.Words[1].StartMs }},
		{"overlapping words", func(d *SentenceTimingData) { d.Words[3].StartMs = 1000 }},
		{"duration before last word", func(d *SentenceTimingData) { d.DurationMs = 2000 }},
		{"speed too slow", func(d *SentenceTimingData) { d.Speed = 0.25 }},
		{"speed too fast", func(d *SentenceTimingData) { d.Speed = 3.0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validData()
			tt.mutate(d)
			err := d.Validate()
			if err == nil {
				t.Fatal("expected validation failure")
			}
			verr := new(ValidationError)
			if !errors.As(err, &verr) {
				t.Errorf("expected *ValidationError, got %T", err)
			}
		})
	}
}

func TestValidate_AbuttingWordsAllowed(t *testing.T) {
	d := validData()
	// Words 0..2 abut exactly; words 2 and 3 have a silence gap. Both are legal.
	if err := d.Validate(); err != nil {
		t.Errorf("abutting and gapped words must both validate: %v", err)
	}
}

func TestComputeChecksum_Deterministic(t *testing.T) {
	a, b := validData(), validData()
	if a.ComputeChecksum() != b.ComputeChecksum() {
		t.Error("identical content produced different checksums")
	}

	b.Text = "Give thanks to the LORD forever"
	if a.ComputeChecksum() == b.ComputeChecksum() {
		t.Error("different content produced the same checksum")
	}
}

func TestCacheEntry_Expired(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	entry := CacheEntry{CachedAt: now, TTLMs: 1000}

	if entry.Expired(now) {
		t.Error("entry must not be expired at write time")
	}
	if entry.Expired(now.Add(time.Second)) {
		t.Error("entry at exactly TTL must not be expired (strict inequality)")
	}
	if !entry.Expired(now.Add(time.Second + time.Millisecond)) {
		t.Error("entry past TTL must be expired")
	}

	zero := CacheEntry{CachedAt: now, TTLMs: 0}
	if !zero.Expired(now.Add(time.Millisecond)) {
		t.Error("zero-TTL entry must expire immediately")
	}
}
