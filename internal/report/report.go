// Package report implements the Report Generator: one LLM call that writes
// the full Markdown report against the plan outline and every learning
// gathered, followed by citation post-processing that rewrites bracket
// citations into Markdown links and appends a References section (spec
// §4.8). Adapted from the teacher's internal/agents/synthesis.go
// outline+citation pattern, collapsed from per-section calls to one call.
package report

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/llm"
)

// Generate writes the final Markdown report for plan given every learning
// gathered across the run. On LLM failure it returns an emergency report
// built directly from the learnings, never an empty result.
func Generate(ctx context.Context, chat llm.ChatClient, plan domain.ReportPlan, learnings []domain.Learning) string {
	sourceIndex := buildSourceIndex(learnings)

	prompt := buildPrompt(plan, learnings, sourceIndex)
	resp, err := chat.Chat(ctx, config.TierReasoning, []llm.Message{
		{Role: "user", Content: prompt},
	})
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		return emergencyReport(plan, learnings)
	}

	return postProcess(resp.Content, sourceIndex)
}

// buildSourceIndex assigns a stable citation number to each distinct source
// URL, in first-seen order.
func buildSourceIndex(learnings []domain.Learning) map[string]int {
	index := make(map[string]int)
	next := 1
	for _, l := range learnings {
		if l.Source == "" {
			continue
		}
		if _, ok := index[l.Source]; !ok {
			index[l.Source] = next
			next++
		}
	}
	return index
}

func buildPrompt(plan domain.ReportPlan, learnings []domain.Learning, sourceIndex map[string]int) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Write a comprehensive Markdown research report titled \"%s\".\n\n", plan.ReportTitle))
	b.WriteString("Outline:\n")
	for _, s := range plan.ReportOutline {
		b.WriteString(fmt.Sprintf("- %s (answers: %s)\n", s.Title, s.KeyQuestion))
	}
	b.WriteString("\nLearnings, each tagged with its citation number:\n")
	for _, l := range learnings {
		num := sourceIndex[l.Source]
		b.WriteString(fmt.Sprintf("[%d] %s\n", num, l.Text))
	}
	b.WriteString(`
Write the full report in Markdown with a heading per outline section. Cite
every claim drawn from a learning using its bracketed number, e.g. "...grew
40% in 2023 [3]." Do not invent a References section; one will be appended
automatically. Do not fabricate citation numbers beyond the ones given.`)
	return b.String()
}

var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// postProcess rewrites every "[K]" citation into a Markdown link against the
// source URL assigned citation number K, then appends a References section
// listing every cited source in numeric order, per spec §4.8.
func postProcess(content string, sourceIndex map[string]int) string {
	urlByNum := make(map[int]string, len(sourceIndex))
	for url, num := range sourceIndex {
		urlByNum[num] = url
	}

	used := make(map[int]bool)
	rewritten := citationPattern.ReplaceAllStringFunc(content, func(match string) string {
		sub := citationPattern.FindStringSubmatch(match)
		num := 0
		fmt.Sscanf(sub[1], "%d", &num)
		url, ok := urlByNum[num]
		if !ok {
			return match
		}
		used[num] = true
		return fmt.Sprintf("[%d](%s)", num, url)
	})

	if len(used) == 0 {
		return rewritten
	}

	nums := make([]int, 0, len(used))
	for n := range used {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	var b strings.Builder
	b.WriteString(rewritten)
	b.WriteString("\n\n## References\n\n")
	for _, n := range nums {
		b.WriteString(fmt.Sprintf("%d. %s\n", n, urlByNum[n]))
	}
	return b.String()
}

// emergencyReport builds a minimal but complete report directly from
// learnings when the generation call fails, so the orchestrator always
// returns something the caller can read.
func emergencyReport(plan domain.ReportPlan, learnings []domain.Learning) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("# %s\n\n", plan.ReportTitle))
	b.WriteString("_Report generation failed; this is an emergency summary of gathered learnings._\n\n")

	for _, s := range plan.ReportOutline {
		b.WriteString(fmt.Sprintf("## %s\n\n", s.Title))
		b.WriteString(fmt.Sprintf("Key question: %s\n\n", s.KeyQuestion))
	}

	b.WriteString("## Learnings\n\n")
	seen := make(map[string]bool)
	var sources []string
	for _, l := range learnings {
		b.WriteString(fmt.Sprintf("- %s\n", l.Text))
		if l.Source != "" && !seen[l.Source] {
			seen[l.Source] = true
			sources = append(sources, l.Source)
		}
	}

	if len(sources) > 0 {
		b.WriteString("\n## References\n\n")
		for i, s := range sources {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, s))
		}
	} else {
		b.WriteString("\n_No valid source URLs were cited._\n")
	}
	return b.String()
}
