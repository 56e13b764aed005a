// Package vectorstore implements the Vector Store Manager: a paragraph-aware
// chunker, an Embedder-backed batch embedding step, and an in-process
// cosine-similarity index for top-k retrieval (spec §4.5). No external
// vector database is used — the index lives entirely in process memory, per
// spec's explicit "in-process" requirement, so teacher/pack dependencies
// wired to external vector DBs (e.g. qdrant/go-client) have no home here.
package vectorstore

import (
	"strings"

	"go-research/internal/domain"
)

// DefaultChunkSize and DefaultOverlap are the spec §4.5 defaults.
const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
	minChunkLen      = 10
)

// Chunk splits text into overlapping, paragraph-respecting windows of
// approximately size bytes with about overlap characters of repeat between
// consecutive chunks. Lengths are measured in bytes, except that the overlap
// carried across a paragraph boundary is the last overlap runes of the
// previous window. Chunks trimming to fewer than minChunkLen characters are
// dropped.
func Chunk(text string, url, title string, size, overlap int) []domain.TextChunk {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}

	paragraphs := splitParagraphs(text)
	var chunks []domain.TextChunk
	var current strings.Builder
	position := 0

	flush := func() {
		trimmed := strings.TrimSpace(current.String())
		if len(trimmed) >= minChunkLen {
			chunks = append(chunks, domain.TextChunk{
				Text:     trimmed,
				Metadata: domain.ChunkMetadata{URL: url, Title: title, Position: position},
			})
			position++
		}
		current.Reset()
	}

	for _, p := range paragraphs {
		if current.Len() > 0 && current.Len()+len(p) > size {
			prev := current.String()
			flush()
			if overlap > 0 {
				tail := lastNRunes(prev, overlap)
				current.WriteString(tail)
			}
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)

		for current.Len() > size {
			full := current.String()
			cut := size
			if cut > len(full) {
				cut = len(full)
			}
			chunkText := full[:cut]
			trimmed := strings.TrimSpace(chunkText)
			if len(trimmed) >= minChunkLen {
				chunks = append(chunks, domain.TextChunk{
					Text:     trimmed,
					Metadata: domain.ChunkMetadata{URL: url, Title: title, Position: position},
				})
				position++
			}
			start := cut - overlap
			if start < 0 || overlap <= 0 {
				start = cut
			}
			current.Reset()
			current.WriteString(full[start:])
		}
	}
	flush()

	return chunks
}

func splitParagraphs(text string) []string {
	raw := strings.Split(text, "\n\n")
	out := make([]string, 0, len(raw))
	for _, p := range raw {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 && strings.TrimSpace(text) != "" {
		out = append(out, strings.TrimSpace(text))
	}
	return out
}

func lastNRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}
