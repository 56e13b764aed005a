// Package orchestrator implements the Research Orchestrator: the iterative
// state machine that drives a ReportPlan's sections through
// search/curate → scrape → vectorize → insight → gap-analysis, re-enqueuing
// targeted follow-up queries until every section is complete or the run's
// depth/time budget is exhausted (spec §4.9). It replaces the teacher's
// DAG/STORM/ThinkDeep architectures with a single flat work queue (see
// DESIGN.md for why those are superseded rather than adapted in place).
package orchestrator

import (
	"sync"
	"time"

	"go-research/internal/domain"
	"go-research/internal/progress"
)

// workOrigin distinguishes a queue item created from the initial plan
// outline from one generated by gap analysis as a targeted follow-up.
type workOrigin int

const (
	originPlan workOrigin = iota
	originTargeted
)

// workItem is one unit of the orchestrator's work queue: a section's key
// question (or a gap-derived refinement of it) to search, scrape and
// extract learnings for.
type workItem struct {
	sectionIndex int
	query        string
	origin       workOrigin
}

// sectionState tracks one outline section's accumulated learnings and
// completion status across however many queue visits it takes.
type sectionState struct {
	section   domain.ReportSection
	learnings []domain.Learning
	visits    int
	complete  bool
}

// queue holds pending work with the spec's FIFO-among-targeted-queries but
// LIFO-versus-plan-questions discipline: targeted batches are pushed to the
// front (so they preempt whatever plan questions are still waiting) while
// preserving their own relative order within the batch.
type queue struct {
	items []workItem
}

func (q *queue) pushPlan(items ...workItem) {
	q.items = append(q.items, items...)
}

// pushTargeted inserts a batch at the front of the queue, ahead of
// everything already queued, in the batch's given order.
func (q *queue) pushTargeted(items []workItem) {
	q.items = append(append([]workItem{}, items...), q.items...)
}

func (q *queue) pop() (workItem, bool) {
	if len(q.items) == 0 {
		return workItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

func (q *queue) len() int { return len(q.items) }

// ResearchState is the orchestrator's run-scoped state, satisfying
// progress.State so the Progress Updater can read/mutate it directly.
type ResearchState struct {
	mu sync.Mutex

	query     string
	plan      domain.ReportPlan
	maxDepth  int
	startedAt time.Time

	sections []sectionState
	work     queue

	currentDepth   int
	completedSteps int
	totalSteps     int
}

// NewResearchState seeds one section per plan outline entry and one initial
// plan-origin work item per section.
func NewResearchState(query string, plan domain.ReportPlan, maxDepth int) *ResearchState {
	s := &ResearchState{
		query:     query,
		plan:      plan,
		maxDepth:  maxDepth,
		startedAt: time.Now(),
		sections:  make([]sectionState, len(plan.ReportOutline)),
	}
	items := make([]workItem, len(plan.ReportOutline))
	for i, section := range plan.ReportOutline {
		s.sections[i] = sectionState{section: section}
		items[i] = workItem{sectionIndex: i, query: section.KeyQuestion, origin: originPlan}
	}
	s.work.pushPlan(items...)
	return s
}

// Snapshot implements progress.State.
func (s *ResearchState) Snapshot() progress.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return progress.Snapshot{
		CurrentDepth:   s.currentDepth,
		MaxDepth:       s.maxDepth,
		CompletedSteps: s.completedSteps,
		TotalSteps:     s.totalSteps,
	}
}

// SetTotalSteps implements progress.State.
func (s *ResearchState) SetTotalSteps(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalSteps = n
}

// QueueLength implements progress.State.
func (s *ResearchState) QueueLength() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.work.len()
}

func (s *ResearchState) dequeue() (workItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.work.pop()
	return item, ok
}

func (s *ResearchState) enqueueTargeted(items []workItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.work.pushTargeted(items)
}

func (s *ResearchState) recordLearnings(sectionIndex int, learnings []domain.Learning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[sectionIndex].learnings = append(s.sections[sectionIndex].learnings, learnings...)
	s.sections[sectionIndex].visits++
}

// advanceDepth increments the single run-wide iteration counter once per
// dequeued work item and reports the new value, per spec §4.9 step 1.
func (s *ResearchState) advanceDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentDepth++
	return s.currentDepth
}

// depthExhausted reports whether the run-wide iteration counter has reached
// maxDepth, the condition that gates the outer Run loop.
func (s *ResearchState) depthExhausted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentDepth >= s.maxDepth
}

// replaceLearnings overwrites a section's accumulated learnings, used after
// clustering/consolidation collapses near-duplicates into fewer entries.
func (s *ResearchState) replaceLearnings(sectionIndex int, learnings []domain.Learning) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[sectionIndex].learnings = learnings
}

func (s *ResearchState) markComplete(sectionIndex int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sections[sectionIndex].complete = true
}

func (s *ResearchState) stepDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completedSteps++
}

func (s *ResearchState) elapsed() time.Duration {
	return time.Since(s.startedAt)
}

func (s *ResearchState) allLearnings() []domain.Learning {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Learning
	for _, sec := range s.sections {
		out = append(out, sec.learnings...)
	}
	return out
}

func (s *ResearchState) sectionLearnings(i int) []domain.Learning {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Learning, len(s.sections[i].learnings))
	copy(out, s.sections[i].learnings)
	return out
}

func (s *ResearchState) sectionVisits(i int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sections[i].visits
}
