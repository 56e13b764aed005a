// Package domain holds the data types shared by every stage of the research
// pipeline: plans, search/scrape records, chunks, learnings, gaps and the
// run-level state the orchestrator owns.
package domain

import "time"

// ReportSection is one entry in a ReportPlan's outline: a heading paired with
// the question that section exists to answer.
type ReportSection struct {
	Title       string `json:"title"`
	KeyQuestion string `json:"key_question"`
}

// ReportPlan is the title and outline produced once by the Planner and read
// by every later stage. It is never mutated after creation.
type ReportPlan struct {
	ReportTitle   string          `json:"report_title"`
	ReportOutline []ReportSection `json:"report_outline"`
}

// Valid reports whether the plan satisfies the Planner's contract: a
// non-empty outline where every section has a title and key question.
func (p ReportPlan) Valid() bool {
	if len(p.ReportOutline) == 0 {
		return false
	}
	for _, s := range p.ReportOutline {
		if s.Title == "" || s.KeyQuestion == "" {
			return false
		}
	}
	return true
}

// SearchResult is one ranked hit from the Search Client.
type SearchResult struct {
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Snippet       string    `json:"snippet"`
	PublishedDate time.Time `json:"published_date,omitempty"`
	Source        string    `json:"source,omitempty"`
	Relevance     float64   `json:"relevance,omitempty"`
}

// ScrapeResult is the outcome of fetching and extracting one URL. When
// Success is false, ProcessedContent must be empty.
type ScrapeResult struct {
	URL              string
	Success          bool
	Title            string
	PublishedDate    time.Time
	ProcessedContent string
	RelevantChunks   []string
	Error            string
}

// ChunkMetadata carries the provenance of a TextChunk.
type ChunkMetadata struct {
	URL      string
	Title    string
	Position int
}

// TextChunk is a single unit of chunked document text. Text must be at
// least 10 characters after trimming whitespace.
type TextChunk struct {
	Text     string
	Metadata ChunkMetadata
}

// Embedding is a fixed-dimension vector of floats; the dimension is fixed
// for the lifetime of a run.
type Embedding []float32

// VectorRecord is one entry in the in-process vector index. ID is always
// "<url>-<position>".
type VectorRecord struct {
	ID       string
	Values   Embedding
	Metadata ChunkMetadata
	Text     string
}

// ScoredRecord pairs a VectorRecord with its similarity score against a
// query embedding, as returned by top-k search.
type ScoredRecord struct {
	Record VectorRecord
	Score  float64
}

// Learning is a single cited, extracted point of fact or analysis. Source is
// preserved verbatim through clustering/synthesis.
type Learning struct {
	Text   string
	Source string
	Title  string
}

// GapSeverity is the importance tier of a knowledge Gap, 1 (minor) to 3
// (blocking).
type GapSeverity int

const (
	SeverityMinor    GapSeverity = 1
	SeverityModerate GapSeverity = 2
	SeverityBlocking GapSeverity = 3
)

// Gap is a specific, actionable piece of missing information blocking a key
// question from being considered answered.
type Gap struct {
	Text       string
	Severity   GapSeverity
	Confidence float64
}

// GapAnalysisResult is the Gap Analyzer's verdict for one key question.
// IsComplete implies RemainingGaps is empty; its negation implies at least
// one gap is present.
type GapAnalysisResult struct {
	IsComplete    bool
	RemainingGaps []Gap
}

// LogEntryType classifies a ResearchLogEntry.
type LogEntryType string

const (
	LogPlan      LogEntryType = "plan"
	LogSearch    LogEntryType = "search"
	LogScrape    LogEntryType = "scrape"
	LogVectorize LogEntryType = "vectorize"
	LogSynthesis LogEntryType = "synthesis"
	LogAnalyze   LogEntryType = "analyze"
	LogReasoning LogEntryType = "reasoning"
	LogThought   LogEntryType = "thought"
)

// LogEntryStatus is the outcome of the step a ResearchLogEntry describes.
type LogEntryStatus string

const (
	StatusPending  LogEntryStatus = "pending"
	StatusComplete LogEntryStatus = "complete"
	StatusWarning  LogEntryStatus = "warning"
	StatusError    LogEntryStatus = "error"
)

// ResearchLogEntry is one chronological entry in the Progress Updater's log.
type ResearchLogEntry struct {
	Type      LogEntryType
	Status    LogEntryStatus
	Message   string
	Timestamp time.Time
	Depth     int
}

// ResearchMetrics summarizes a completed (or partial) run for ResearchResult.
type ResearchMetrics struct {
	TimeElapsed         time.Duration
	IterationsCompleted int
	SourcesExamined     int
	TotalTokens         int
	EstimatedCostUSD    float64
}

// ResearchResult is the final, immutable output of one orchestration run.
type ResearchResult struct {
	Query          string
	Insights       []string
	FinalReport    string
	Sources        map[string]string // url -> title
	Metrics        ResearchMetrics
	CompletedSteps int
	TotalSteps     int
	Logs           []ResearchLogEntry
}
