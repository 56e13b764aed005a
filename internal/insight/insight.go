// Package insight implements the Insight Generator: retrieval of the
// top-k relevant chunks for a key question, cited-learning extraction via
// one structured LLM call, and cosine-similarity clustering to deduplicate
// and consolidate learnings across iterations (spec §4.6). JSON parsing
// follows the teacher's bracket/fence extraction convention from
// internal/agents/analysis.go.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/llm"
)

// ClusterThreshold is the cosine-similarity cutoff above which two learnings
// are considered duplicates, per spec §4.6.
const ClusterThreshold = 0.85

// extractedLearning is the shape the LLM is asked to return for each
// learning: the text plus the 1-based index of the chunk it cites.
type extractedLearning struct {
	Text        string `json:"text"`
	SourceIndex int    `json:"source_index"`
}

// Extract retrieves the top-scoring chunks for question and asks the LLM to
// pull out cited learnings. Every returned Learning.Source is a URL taken
// verbatim from the cited chunk's metadata. On any parse failure it falls
// back to treating each retrieved chunk's leading sentence as a learning,
// so a failed LLM call never yields zero learnings when chunks exist.
func Extract(ctx context.Context, chat llm.ChatClient, question string, chunks []domain.ScoredRecord) ([]domain.Learning, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	prompt := buildExtractionPrompt(question, chunks)
	resp, err := chat.ChatJSON(ctx, config.TierDefault, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return fallbackLearnings(chunks), nil
	}

	extracted, err := parseExtracted(resp.Content)
	if err != nil || len(extracted) == 0 {
		return fallbackLearnings(chunks), nil
	}

	learnings := make([]domain.Learning, 0, len(extracted))
	for _, e := range extracted {
		idx := e.SourceIndex - 1
		if idx < 0 || idx >= len(chunks) || strings.TrimSpace(e.Text) == "" {
			continue
		}
		rec := chunks[idx].Record
		learnings = append(learnings, domain.Learning{
			Text:   strings.TrimSpace(e.Text),
			Source: rec.Metadata.URL,
			Title:  rec.Metadata.Title,
		})
	}
	if len(learnings) == 0 {
		return fallbackLearnings(chunks), nil
	}
	return learnings, nil
}

func buildExtractionPrompt(question string, chunks []domain.ScoredRecord) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Key question: %s\n\n", question))
	b.WriteString("Source excerpts:\n")
	for i, c := range chunks {
		b.WriteString(fmt.Sprintf("[%d] (%s)\n%s\n\n", i+1, c.Record.Metadata.URL, c.Record.Text))
	}
	b.WriteString(`Extract the distinct factual learnings these excerpts support that answer the
key question. Every learning must cite exactly one excerpt by its number.

Return a JSON object: {"learnings": [{"text": "...", "source_index": 1}]}`)
	return b.String()
}

// parseExtracted tolerates a fenced code block or surrounding prose around
// the JSON object, then around a bare array, mirroring the teacher's
// bracket-extraction fallback chain.
func parseExtracted(content string) ([]extractedLearning, error) {
	content = stripCodeFence(content)

	if start, end := indexOf(content, "{", "}"); start >= 0 {
		var wrapper struct {
			Learnings []extractedLearning `json:"learnings"`
		}
		if err := json.Unmarshal([]byte(content[start:end]), &wrapper); err == nil {
			return wrapper.Learnings, nil
		}
	}
	if start, end := indexOf(content, "[", "]"); start >= 0 {
		var arr []extractedLearning
		if err := json.Unmarshal([]byte(content[start:end]), &arr); err == nil {
			return arr, nil
		}
	}
	return nil, fmt.Errorf("no parseable JSON found in insight extraction response")
}

func indexOf(s, open, close string) (int, int) {
	start := strings.Index(s, open)
	end := strings.LastIndex(s, close) + 1
	if start < 0 || end <= start {
		return -1, -1
	}
	return start, end
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

// fallbackLearnings treats each chunk's first sentence as a standalone
// learning when LLM extraction is unavailable or unparseable.
func fallbackLearnings(chunks []domain.ScoredRecord) []domain.Learning {
	out := make([]domain.Learning, 0, len(chunks))
	for _, c := range chunks {
		sentence := firstSentence(c.Record.Text)
		if sentence == "" {
			continue
		}
		out = append(out, domain.Learning{
			Text:   sentence,
			Source: c.Record.Metadata.URL,
			Title:  c.Record.Metadata.Title,
		})
	}
	return out
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i > 0 {
		return strings.TrimSpace(text[:i+1])
	}
	if len(text) > 280 {
		return text[:280]
	}
	return text
}

// Embed is the subset of llm.Embedder clustering needs.
type Embed interface {
	Embed(ctx context.Context, texts []string) ([]domain.Embedding, error)
}

// Cluster deduplicates learnings via single-linkage greedy clustering:
// each learning joins the first existing cluster whose representative
// (first member) scores >= ClusterThreshold cosine similarity against it,
// else starts a new cluster. Representatives are the first learning seen
// per cluster, then consolidated by Consolidate.
func Cluster(ctx context.Context, embedder Embed, learnings []domain.Learning) ([][]domain.Learning, error) {
	if len(learnings) == 0 {
		return nil, nil
	}

	texts := make([]string, len(learnings))
	for i, l := range learnings {
		texts[i] = l.Text
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed learnings for clustering: %w", err)
	}
	if len(vectors) != len(learnings) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d learnings", len(vectors), len(learnings))
	}

	var clusters [][]domain.Learning
	var reps []domain.Embedding

	for i, l := range learnings {
		placed := false
		for c, rep := range reps {
			if cosine(vectors[i], rep) >= ClusterThreshold {
				clusters[c] = append(clusters[c], l)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, []domain.Learning{l})
			reps = append(reps, vectors[i])
		}
	}
	return clusters, nil
}

// Consolidate renders one LLM call per multi-member cluster to merge
// near-duplicate learnings into a single statement, keeping the first
// member's source as the citation. Single-member clusters pass through
// unchanged. On LLM failure the cluster's first learning is kept as-is.
func Consolidate(ctx context.Context, chat llm.ChatClient, clusters [][]domain.Learning) []domain.Learning {
	out := make([]domain.Learning, 0, len(clusters))
	for _, cluster := range clusters {
		if len(cluster) == 1 {
			out = append(out, cluster[0])
			continue
		}
		out = append(out, consolidateOne(ctx, chat, cluster))
	}
	return out
}

func consolidateOne(ctx context.Context, chat llm.ChatClient, cluster []domain.Learning) domain.Learning {
	var b strings.Builder
	b.WriteString("Merge these near-duplicate research learnings into one concise statement,\n")
	b.WriteString("preserving every distinct fact they contain:\n\n")
	for i, l := range cluster {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, l.Text))
	}

	resp, err := chat.Chat(ctx, config.TierLight, []llm.Message{{Role: "user", Content: b.String()}})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return cluster[0]
	}
	return domain.Learning{
		Text:   strings.TrimSpace(resp.Content),
		Source: cluster[0].Source,
		Title:  cluster[0].Title,
	}
}

func cosine(a, b domain.Embedding) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
