package ingest

import (
	"context"
	"testing"

	"github.com/spigell/linkedai/internal/jobs"
	"go.uber.org/zap"
)

func withoutIncomplete() []Filter {
	filters := DefaultFilters()
	DisableByName(filters, "incomplete", "keep everything")
	return filters
}

func TestFiltersWithoutIncompleteDropNullRecords(t *testing.T) {
	postings := jobs.NewSearchResults(
		&jobs.Posting{Title: "a", Company: "A", Link: "https://www.linkedin.com/jobs/view/a-1"},
		nil,
	)

	cfg := &Config{ExcludeCompanies: []string{"B"}}

	left, err := RunFilters(context.Background(), cfg, zap.NewNop(), withoutIncomplete(), postings)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if left.Len() != 1 || left.At(0).Title != "a" {
		t.Fatalf("expected only the real posting to be left, got %+v", left.Jobs)
	}
}

func TestDuplicatesKeepsPostingsWithoutIdentity(t *testing.T) {
	tests := []struct {
		name     string
		postings []*jobs.Posting
		left     int
	}{
		{
			name: "no links",
			postings: []*jobs.Posting{
				{Title: "first", Description: "one"},
				{Title: "second", Description: "two"},
			},
			left: 2,
		},
		{
			name: "host only links",
			postings: []*jobs.Posting{
				{Title: "first", Link: "https://example.com/"},
				{Title: "again", Link: "https://example.com/"},
				{Title: "other", Link: "https://other.example.com/"},
			},
			left: 2,
		},
		{
			name: "same record id",
			postings: []*jobs.Posting{
				{Title: "first", Link: "https://www.linkedin.com/jobs/view/go-1"},
				{Title: "tracked", Link: "https://www.linkedin.com/jobs/view/go-1?refId=x"},
			},
			left: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, err := RunFilters(context.Background(), &Config{}, zap.NewNop(), withoutIncomplete(), jobs.NewSearchResults(tt.postings...))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if left.Len() != tt.left {
				t.Fatalf("expected %d postings left, got %d: %+v", tt.left, left.Len(), left.Jobs)
			}
		})
	}
}
