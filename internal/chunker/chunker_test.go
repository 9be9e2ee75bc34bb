package chunker

import (
	"strings"
	"testing"
)

func TestSplit_ShortTextBypassed(t *testing.T) {
	chunks := Split("hello world", Config{MaxChunkSize: 100, Overlap: 10})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Text != "hello world" || c.TotalChunks != 1 || c.StartOffset != 0 || c.EndOffset != 11 {
		t.Errorf("unexpected chunk: %+v", c)
	}
}

func TestSplit_CoversFullTextWithOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij", 100) // 1000 bytes
	cfg := Config{MaxChunkSize: 300, Overlap: 50}
	chunks := Split(text, cfg)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if chunks[0].StartOffset != 0 {
		t.Errorf("first chunk starts at %d", chunks[0].StartOffset)
	}
	last := chunks[len(chunks)-1]
	if last.EndOffset != len(text) {
		t.Errorf("last chunk ends at %d, want %d", last.EndOffset, len(text))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d has index %d", i, c.Index)
		}
		if c.TotalChunks != len(chunks) {
			t.Errorf("chunk %d total = %d, want %d", i, c.TotalChunks, len(chunks))
		}
		if c.Text != text[c.StartOffset:c.EndOffset] {
			t.Errorf("chunk %d text does not match its offsets", i)
		}
		if i > 0 {
			prev := chunks[i-1]
			if c.StartOffset != prev.EndOffset-cfg.Overlap && prev.EndOffset != len(text) {
				// Interior boundaries must respect the configured overlap.
				if prev.EndOffset == prev.StartOffset+cfg.MaxChunkSize {
					t.Errorf("chunk %d start %d, want %d", i, c.StartOffset, prev.EndOffset-cfg.Overlap)
				}
			}
			if c.StartOffset > prev.EndOffset {
				t.Errorf("gap between chunk %d and %d", i-1, i)
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("semantic context ", 200)
	cfg := Config{MaxChunkSize: 500, Overlap: 100}
	a := Split(text, cfg)
	b := Split(text, cfg)
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_ZeroConfigFallsBackToDefaults(t *testing.T) {
	text := strings.Repeat("x", DefaultConfig.MaxChunkSize+1)
	chunks := Split(text, Config{})
	if len(chunks) < 2 {
		t.Fatalf("expected defaults to split text, got %d chunks", len(chunks))
	}
}
