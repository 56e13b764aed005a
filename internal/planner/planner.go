// Package planner implements the Planner: one preliminary exploratory
// search followed by a single structured-output LLM call that produces the
// ReportPlan every later stage reads, adapted from the teacher's
// internal/planning perspective-discovery pattern (bracket-extraction JSON
// parsing with a hard-coded fallback plan on failure).
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/llm"
	"go-research/internal/search"
)

// Planner produces the one ReportPlan a research run is built around.
type Planner struct {
	chat   llm.ChatClient
	search search.Client
}

func New(chat llm.ChatClient, searchClient search.Client) *Planner {
	return &Planner{chat: chat, search: searchClient}
}

// Plan runs the preliminary search and the planning LLM call, per spec §4.2.
// On any LLM failure or invalid response it falls back to a single-section
// plan covering the query directly — Plan never returns an invalid
// ReportPlan.
func (p *Planner) Plan(ctx context.Context, query string) domain.ReportPlan {
	var searchContext string
	if p.search != nil {
		results, err := p.search.Search(ctx, query)
		if err == nil {
			searchContext = summarizeForPrompt(results)
		}
	}

	prompt := buildPrompt(query, searchContext)
	resp, err := p.chat.ChatJSON(ctx, config.TierReasoning, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return fallbackPlan(query)
	}

	plan, err := parsePlan(resp.Content)
	if err != nil || !plan.Valid() {
		return fallbackPlan(query)
	}
	return plan
}

func buildPrompt(query, searchContext string) string {
	var b strings.Builder
	b.WriteString("You are planning a research report.\n\n")
	b.WriteString(fmt.Sprintf("Topic: %s\n\n", query))
	if searchContext != "" {
		b.WriteString("Preliminary search results for context:\n")
		b.WriteString(searchContext)
		b.WriteString("\n\n")
	}
	b.WriteString(`Produce a report title and an outline of 3-5 sections. Each section needs a
title and the single key question it must answer.

Return a JSON object of the exact shape:
{
  "report_title": "...",
  "report_outline": [
    {"title": "...", "key_question": "..."}
  ]
}`)
	return b.String()
}

func summarizeForPrompt(results []domain.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		if i >= 5 {
			break
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", r.Title, r.Snippet))
	}
	return b.String()
}

// parsePlan extracts the JSON object from an LLM response, tolerating
// surrounding prose or a fenced code block — the same bracket-extraction
// strategy the teacher uses for JSON arrays, generalized to objects.
func parsePlan(content string) (domain.ReportPlan, error) {
	content = stripCodeFence(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}") + 1
	if start < 0 || end <= start {
		return domain.ReportPlan{}, fmt.Errorf("no JSON object found in planner response")
	}

	var plan domain.ReportPlan
	if err := json.Unmarshal([]byte(content[start:end]), &plan); err != nil {
		return domain.ReportPlan{}, fmt.Errorf("parse report plan: %w", err)
	}
	return plan, nil
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

// fallbackPlan is the single-section plan used whenever planning fails, so
// the orchestrator always has a valid ReportPlan to proceed with.
func fallbackPlan(query string) domain.ReportPlan {
	return domain.ReportPlan{
		ReportTitle: query,
		ReportOutline: []domain.ReportSection{
			{Title: "Main Research", KeyQuestion: query},
		},
	}
}
