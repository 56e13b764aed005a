// Package gaps implements the Gap Analyzer: for one key question and its
// accumulated learnings, decide whether the question is adequately answered
// and, if not, produce targeted follow-up search queries (spec §4.7).
// Adapted from the teacher's internal/agents/analysis.go knowledge-gap
// extraction, narrowed to a single structured call per question.
package gaps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/llm"
)

type gapResponse struct {
	IsComplete bool `json:"is_complete"`
	Gaps       []struct {
		Text       string  `json:"text"`
		Severity   int     `json:"severity"`
		Confidence float64 `json:"confidence"`
	} `json:"gaps"`
}

// Analyze determines completeness of a key question given its learnings so
// far. On any LLM or parse failure it conservatively reports incomplete
// with one generic gap, so the orchestrator keeps searching rather than
// silently stopping on an analyzer fault.
func Analyze(ctx context.Context, chat llm.ChatClient, question string, learnings []domain.Learning) domain.GapAnalysisResult {
	if len(learnings) == 0 {
		return domain.GapAnalysisResult{
			IsComplete: false,
			RemainingGaps: []domain.Gap{
				{Text: "Need initial information", Severity: domain.SeverityBlocking, Confidence: 0.5},
			},
		}
	}

	prompt := buildAnalysisPrompt(question, learnings)
	resp, err := chat.ChatJSON(ctx, config.TierDefault, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return incompleteFallback(question)
	}

	parsed, err := parseGapResponse(resp.Content)
	if err != nil {
		return incompleteFallback(question)
	}

	if parsed.IsComplete {
		return domain.GapAnalysisResult{IsComplete: true}
	}

	gaps := make([]domain.Gap, 0, len(parsed.Gaps))
	for _, g := range parsed.Gaps {
		if strings.TrimSpace(g.Text) == "" {
			continue
		}
		gaps = append(gaps, domain.Gap{
			Text:       strings.TrimSpace(g.Text),
			Severity:   clampSeverity(g.Severity),
			Confidence: clampConfidence(g.Confidence),
		})
	}
	if len(gaps) == 0 {
		return domain.GapAnalysisResult{IsComplete: true}
	}
	return domain.GapAnalysisResult{IsComplete: false, RemainingGaps: gaps}
}

func buildAnalysisPrompt(question string, learnings []domain.Learning) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Key question: %s\n\n", question))
	if len(learnings) == 0 {
		b.WriteString("No learnings have been gathered yet.\n\n")
	} else {
		b.WriteString("Learnings gathered so far:\n")
		for _, l := range learnings {
			b.WriteString(fmt.Sprintf("- %s (source: %s)\n", l.Text, l.Source))
		}
		b.WriteString("\n")
	}
	b.WriteString(`Decide whether these learnings adequately answer the key question. If not,
list the specific, actionable pieces of missing information, each with a
severity (1=minor, 2=moderate, 3=blocking) and a confidence (0-1) that this
gap truly exists.

Return a JSON object:
{"is_complete": false, "gaps": [{"text": "...", "severity": 2, "confidence": 0.7}]}`)
	return b.String()
}

func parseGapResponse(content string) (gapResponse, error) {
	content = stripCodeFence(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}") + 1
	if start < 0 || end <= start {
		return gapResponse{}, fmt.Errorf("no JSON object found in gap analysis response")
	}
	var parsed gapResponse
	if err := json.Unmarshal([]byte(content[start:end]), &parsed); err != nil {
		return gapResponse{}, fmt.Errorf("parse gap analysis: %w", err)
	}
	return parsed, nil
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

func clampSeverity(s int) domain.GapSeverity {
	switch {
	case s <= 1:
		return domain.SeverityMinor
	case s == 2:
		return domain.SeverityModerate
	default:
		return domain.SeverityBlocking
	}
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func incompleteFallback(question string) domain.GapAnalysisResult {
	return domain.GapAnalysisResult{
		IsComplete: false,
		RemainingGaps: []domain.Gap{
			{Text: "Re-evaluate findings for " + question, Severity: domain.SeverityBlocking, Confidence: 0.5},
		},
	}
}

// GenerateQueries turns one remaining gap (the orchestrator passes the
// highest-severity one) into targeted search queries. Its inputs are the key
// question and the gap; the run's original research query is not passed in
// and does not appear in the prompt. On failure it falls back to the
// question combined with the gap's text.
func GenerateQueries(ctx context.Context, chat llm.ChatClient, question string, gap domain.Gap) []string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Key question: %s\n\nKnowledge gap:\n- %s\n", question, gap.Text))
	b.WriteString(`
Write one or two targeted web search queries that would find information to
close this gap.

Return a JSON object: {"queries": ["...", "..."]}`)

	resp, err := chat.ChatJSON(ctx, config.TierLight, []llm.Message{{Role: "user", Content: b.String()}})
	if err != nil {
		return fallbackQueries(question, gap)
	}

	queries, err := parseQueries(resp.Content)
	if err != nil || len(queries) == 0 {
		return fallbackQueries(question, gap)
	}
	return queries
}

func parseQueries(content string) ([]string, error) {
	content = stripCodeFence(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}") + 1
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object found in query generation response")
	}
	var wrapper struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(content[start:end]), &wrapper); err != nil {
		return nil, fmt.Errorf("parse generated queries: %w", err)
	}
	return wrapper.Queries, nil
}

func fallbackQueries(question string, gap domain.Gap) []string {
	return []string{question + " " + gap.Text}
}
