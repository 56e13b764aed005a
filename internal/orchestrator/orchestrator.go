package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"go-research/internal/config"
	"go-research/internal/domain"
	"go-research/internal/gaps"
	"go-research/internal/insight"
	"go-research/internal/llm"
	"go-research/internal/planner"
	"go-research/internal/progress"
	"go-research/internal/report"
	"go-research/internal/scraper"
	"go-research/internal/search"
	"go-research/internal/vectorstore"
)

const (
	baseStepsPerIteration = 4 // search, scrape, vectorize, gap-analysis
	planningStep          = 1
	finalReportSteps      = 1
)

// Orchestrator wires every component into the iterative research loop.
type Orchestrator struct {
	cfg      *config.Config
	chat     llm.ChatClient
	cost     *llm.CostTracker
	planner  *planner.Planner
	search   search.Client
	scrape   scraper.Scrape
	store    *vectorstore.Store
	embedder insight.Embed
	updater  *progress.Updater
}

// New builds an Orchestrator. sink may be nil (progress is then log-only).
// Every chat call made by the Planner, Gap Analyzer, Insight Generator and
// Report Generator is routed through a shared CostTracker so a run's total
// token spend can be reported on ResearchResult.Metrics.
func New(cfg *config.Config, chat llm.ChatClient, searchClient search.Client, scrape scraper.Scrape, embedder llm.Embedder, sink progress.Sink) *Orchestrator {
	tracked := llm.NewCostTracker(chat)
	return &Orchestrator{
		cfg:      cfg,
		chat:     tracked,
		cost:     tracked,
		planner:  planner.New(tracked, searchClient),
		search:   searchClient,
		scrape:   scrape,
		store:    vectorstore.New(embedder),
		embedder: embedder,
		updater:  progress.New(sink),
	}
}

// Run drives one complete research cycle for query and returns the final
// ResearchResult. A cancelled context stops the loop at the next safe point
// and returns whatever partial result has accumulated so far — Run never
// discards work already done.
func (o *Orchestrator) Run(ctx context.Context, query string) (domain.ResearchResult, error) {
	log.Info().Str("query", query).Int("max_depth", o.cfg.MaxDepth).Msg("research_run_started")
	o.store.Clear()

	o.updater.AddLogEntry(domain.LogPlan, domain.StatusPending, "creating report plan", 0)
	plan := o.planner.Plan(ctx, query)
	o.updater.AddLogEntry(domain.LogPlan, domain.StatusComplete, fmt.Sprintf("plan %q with %d sections", plan.ReportTitle, len(plan.ReportOutline)), 0)

	state := NewResearchState(query, plan, o.cfg.MaxDepth)
	o.updater.UpdateProgressInit(state, len(plan.ReportOutline), baseStepsPerIteration, planningStep, finalReportSteps)

	timeout := o.cfg.Timeout
	if timeout <= 0 {
		timeout = 270 * time.Second
	}

	for {
		if ctx.Err() != nil {
			o.updater.AddLogEntry(domain.LogReasoning, domain.StatusWarning, "context cancelled, stopping with partial results", state.currentDepth)
			break
		}
		if state.elapsed() >= timeout {
			o.updater.UpdateProgress(state, progress.EventWarning, "time budget exhausted")
			break
		}

		if state.depthExhausted() {
			o.updater.AddLogEntry(domain.LogReasoning, domain.StatusWarning, "max depth reached, stopping", state.currentDepth)
			break
		}

		item, ok := state.dequeue()
		if !ok {
			break
		}
		if state.sectionVisits(item.sectionIndex) >= state.maxDepth {
			o.updater.AddLogEntry(domain.LogReasoning, domain.StatusWarning, fmt.Sprintf("section %d hit max depth, skipping", item.sectionIndex), state.currentDepth)
			continue
		}

		depth := state.advanceDepth()
		o.updater.UpdateProgress(state, progress.EventDepthDelta, fmt.Sprintf("iteration %d/%d", depth, state.maxDepth))

		o.runIteration(ctx, state, item)

		if ctx.Err() != nil {
			break
		}
	}

	learnings := state.allLearnings()
	o.updater.AddLogEntry(domain.LogSynthesis, domain.StatusPending, "generating final report", state.currentDepth)
	finalReport := report.Generate(ctx, o.chat, plan, learnings)
	state.stepDone()

	snap := state.Snapshot()
	state.SetTotalSteps(snap.CompletedSteps)
	o.updater.UpdateProgress(state, progress.EventComplete, "research complete")
	o.updater.AddLogEntry(domain.LogSynthesis, domain.StatusComplete, "final report generated", state.currentDepth)
	log.Info().Str("query", query).Dur("elapsed", state.elapsed()).Int("iterations", state.currentDepth).Msg("research_run_finished")

	return domain.ResearchResult{
		Query:          query,
		Insights:       learningTexts(learnings),
		FinalReport:    finalReport,
		Sources:        sourceMap(learnings),
		CompletedSteps: state.Snapshot().CompletedSteps,
		TotalSteps:     state.Snapshot().TotalSteps,
		Logs:           o.updater.Logs(),
		Metrics: domain.ResearchMetrics{
			TimeElapsed:         state.elapsed(),
			IterationsCompleted: state.currentDepth,
			SourcesExamined:     len(sourceMap(learnings)),
			TotalTokens:         o.cost.Total().TotalTokens,
			EstimatedCostUSD:    o.cost.Total().TotalCost,
		},
	}, nil
}

// runIteration performs one pass of search&curate → scrape → vectorize →
// insight → gap-analysis for a single queue item, then either marks the
// section complete or re-enqueues targeted follow-up queries at the front
// of the queue.
func (o *Orchestrator) runIteration(ctx context.Context, state *ResearchState, item workItem) {
	depth := state.Snapshot().CurrentDepth
	section := state.sections[item.sectionIndex].section

	o.updater.UpdateProgress(state, progress.EventActivity, fmt.Sprintf("searching: %s", item.query))
	results, err := o.search.Search(ctx, item.query)
	if err != nil {
		o.updater.AddLogEntry(domain.LogSearch, domain.StatusError, err.Error(), depth)
		results = nil
	}
	resultCap := search.CurationCap(depth)
	curated := search.Curate(results, resultCap)
	state.stepDone()
	o.updater.AddLogEntry(domain.LogSearch, domain.StatusComplete, fmt.Sprintf("found %d curated results", len(curated)), depth)

	if len(curated) == 0 {
		state.markComplete(item.sectionIndex)
		return
	}

	urls := make([]string, len(curated))
	for i, r := range curated {
		urls[i] = r.URL
	}

	o.updater.UpdateProgress(state, progress.EventActivity, fmt.Sprintf("scraping %d sources", len(urls)))
	scraped := o.scrape.ScrapeURLs(ctx, urls, item.query)
	state.stepDone()

	var indexed int
	for _, sr := range scraped {
		if !sr.Success {
			o.updater.AddLogEntry(domain.LogScrape, domain.StatusError, fmt.Sprintf("%s: %s", sr.URL, sr.Error), depth)
			continue
		}
		n, err := o.store.AddDocument(ctx, sr.URL, sr.Title, sr.ProcessedContent, vectorstore.DefaultChunkSize, vectorstore.DefaultOverlap)
		if err != nil {
			o.updater.AddLogEntry(domain.LogVectorize, domain.StatusError, err.Error(), depth)
			continue
		}
		indexed += n
	}
	state.stepDone()
	o.updater.AddLogEntry(domain.LogVectorize, domain.StatusComplete, fmt.Sprintf("indexed %d chunks", indexed), depth)

	topK := o.cfg.ExtractTopKChunks
	chunks, err := o.store.Search(ctx, item.query, topK)
	if err != nil {
		o.updater.AddLogEntry(domain.LogAnalyze, domain.StatusError, err.Error(), depth)
		chunks = nil
	}
	if mean, median, stddev, err := vectorstore.ScoreDistribution(chunks); err == nil && len(chunks) > 0 {
		o.updater.AddLogEntry(domain.LogAnalyze, domain.StatusComplete, fmt.Sprintf("retrieval score distribution: mean=%.3f median=%.3f stddev=%.3f", mean, median, stddev), depth)
	}

	learnings, err := insight.Extract(ctx, o.chat, section.KeyQuestion, chunks)
	if err != nil {
		o.updater.AddLogEntry(domain.LogAnalyze, domain.StatusError, err.Error(), depth)
	}
	state.recordLearnings(item.sectionIndex, learnings)
	o.updater.AddLogEntry(domain.LogAnalyze, domain.StatusComplete, fmt.Sprintf("extracted %d learnings", len(learnings)), depth)

	accumulated := state.sectionLearnings(item.sectionIndex)
	if len(accumulated) >= 2 {
		clusters, err := insight.Cluster(ctx, o.embedder, accumulated)
		if err != nil {
			o.updater.AddLogEntry(domain.LogSynthesis, domain.StatusError, err.Error(), depth)
		} else {
			consolidated := insight.Consolidate(ctx, o.chat, clusters)
			if len(consolidated) < len(accumulated) {
				o.updater.AddLogEntry(domain.LogSynthesis, domain.StatusComplete, fmt.Sprintf("consolidated %d learnings into %d", len(accumulated), len(consolidated)), depth)
				state.replaceLearnings(item.sectionIndex, consolidated)
				accumulated = consolidated
			}
		}
	}

	gapResult := gaps.Analyze(ctx, o.chat, section.KeyQuestion, accumulated)
	state.stepDone()

	if gapResult.IsComplete {
		state.markComplete(item.sectionIndex)
		o.updater.AddLogEntry(domain.LogReasoning, domain.StatusComplete, fmt.Sprintf("section %q complete", section.Title), depth)
		return
	}

	if state.depthExhausted() {
		o.updater.AddLogEntry(domain.LogReasoning, domain.StatusWarning, fmt.Sprintf("section %q has remaining gaps but max depth reached", section.Title), depth)
		return
	}

	gap := highestSeverityGap(gapResult.RemainingGaps)
	queries := gaps.GenerateQueries(ctx, o.chat, section.KeyQuestion, gap)
	if len(queries) == 0 {
		state.markComplete(item.sectionIndex)
		return
	}

	targeted := make([]workItem, 0, len(queries)+1)
	for _, q := range queries {
		targeted = append(targeted, workItem{sectionIndex: item.sectionIndex, query: q, origin: originTargeted})
	}
	targeted = append(targeted, workItem{sectionIndex: item.sectionIndex, query: section.KeyQuestion, origin: originPlan})
	state.enqueueTargeted(targeted)
	o.updater.AddLogEntry(domain.LogReasoning, domain.StatusPending, fmt.Sprintf("section %q has %d remaining gaps, enqueued %d queries", section.Title, len(gapResult.RemainingGaps), len(queries)), depth)
}

// highestSeverityGap picks the single most severe remaining gap, breaking
// ties by the first one encountered, per spec §4.9 step 6.
func highestSeverityGap(gapList []domain.Gap) domain.Gap {
	best := gapList[0]
	for _, g := range gapList[1:] {
		if g.Severity > best.Severity {
			best = g
		}
	}
	return best
}

func learningTexts(learnings []domain.Learning) []string {
	out := make([]string, len(learnings))
	for i, l := range learnings {
		out[i] = l.Text
	}
	return out
}

func sourceMap(learnings []domain.Learning) map[string]string {
	out := make(map[string]string)
	for _, l := range learnings {
		if l.Source == "" {
			continue
		}
		if _, ok := out[l.Source]; !ok {
			out[l.Source] = l.Title
		}
	}
	return out
}
