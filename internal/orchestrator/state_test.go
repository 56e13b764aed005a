package orchestrator

import (
	"testing"

	"go-research/internal/domain"
)

func samplePlan() domain.ReportPlan {
	return domain.ReportPlan{
		ReportTitle: "T",
		ReportOutline: []domain.ReportSection{
			{Title: "A", KeyQuestion: "qa"},
			{Title: "B", KeyQuestion: "qb"},
		},
	}
}

func TestAdvanceDepthIsRunWideNotPerSection(t *testing.T) {
	s := NewResearchState("q", samplePlan(), 3)

	s.recordLearnings(0, []domain.Learning{{Text: "x"}})
	s.recordLearnings(0, []domain.Learning{{Text: "y"}})
	s.recordLearnings(1, []domain.Learning{{Text: "z"}})

	if s.currentDepth != 0 {
		t.Fatalf("recordLearnings must not move currentDepth, got %d", s.currentDepth)
	}

	s.advanceDepth()
	s.advanceDepth()
	if s.currentDepth != 2 {
		t.Fatalf("expected currentDepth 2 after two advances, got %d", s.currentDepth)
	}
	if s.depthExhausted() {
		t.Fatalf("should not be exhausted at 2/3")
	}
	s.advanceDepth()
	if !s.depthExhausted() {
		t.Fatalf("expected exhausted at 3/3")
	}
}

func TestReplaceLearningsOverwritesSection(t *testing.T) {
	s := NewResearchState("q", samplePlan(), 5)
	s.recordLearnings(0, []domain.Learning{{Text: "a"}, {Text: "b"}})

	s.replaceLearnings(0, []domain.Learning{{Text: "merged"}})

	got := s.sectionLearnings(0)
	if len(got) != 1 || got[0].Text != "merged" {
		t.Fatalf("unexpected learnings after replace: %+v", got)
	}
}
