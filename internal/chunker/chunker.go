// Package chunker splits long text into overlapping, size-bounded windows
// with stable byte offsets.
package chunker

// Config bounds chunk size and the overlap carried between consecutive chunks.
type Config struct {
	MaxChunkSize int
	Overlap      int
}

// DefaultConfig matches the embedding model's comfortable input window.
var DefaultConfig = Config{MaxChunkSize: 2000, Overlap: 200}

// Chunk is one window into the source text. Offsets are byte positions into
// the original string; the union of all [StartOffset, EndOffset) ranges
// covers the full text.
type Chunk struct {
	Text        string
	Index       int
	TotalChunks int
	StartOffset int
	EndOffset   int
}

// Split cuts text into overlapping windows. Text at or below MaxChunkSize is
// returned as a single chunk untouched. Deterministic for identical input
// and config.
func Split(text string, cfg Config) []Chunk {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultConfig.MaxChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.MaxChunkSize {
		cfg.Overlap = cfg.MaxChunkSize / 10
	}

	if len(text) <= cfg.MaxChunkSize {
		return []Chunk{{
			Text:        text,
			Index:       0,
			TotalChunks: 1,
			StartOffset: 0,
			EndOffset:   len(text),
		}}
	}

	step := cfg.MaxChunkSize - cfg.Overlap
	var out []Chunk
	for start := 0; start < len(text); start += step {
		end := start + cfg.MaxChunkSize
		if end > len(text) {
			end = len(text)
		}
		out = append(out, Chunk{
			Text:        text[start:end],
			Index:       len(out),
			StartOffset: start,
			EndOffset:   end,
		})
		if end == len(text) {
			break
		}
	}
	for i := range out {
		out[i].TotalChunks = len(out)
	}
	return out
}
