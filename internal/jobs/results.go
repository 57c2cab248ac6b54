package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

// SearchResults is an ordered collection of postings. The order is the one the
// retrieval backend returned (relevance order) and is never re-sorted.
type SearchResults struct {
	Jobs []*Posting `json:"jobs"`
}

func NewSearchResults(postings ...*Posting) *SearchResults {
	if postings == nil {
		postings = []*Posting{}
	}
	return &SearchResults{Jobs: postings}
}

func (r *SearchResults) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Jobs)
}

// At returns the posting at the zero-based index or nil when out of range.
func (r *SearchResults) At(idx int) *Posting {
	if r == nil || idx < 0 || idx >= len(r.Jobs) {
		return nil
	}
	return r.Jobs[idx]
}

// Exclude removes postings whose field matches one of the targets and returns the IDs of removed postings.
// Relative order of the remaining postings is preserved.
func (r *SearchResults) Exclude(name string, targets []string) []string {
	var excluded []string
	for idx := 0; idx < len(r.Jobs); {
		posting := r.Jobs[idx]
		if posting == nil || !slices.Contains(targets, posting.GetStringField(name)) {
			idx++
			continue
		}
		r.RemoveByIndex(idx)
		excluded = append(excluded, posting.ID())
	}
	return excluded
}

func (r *SearchResults) RemoveByIndex(idx int) {
	r.Jobs = slices.Delete(r.Jobs, idx, idx+1)
}

// ReportByCompany groups postings by company name.
func (r *SearchResults) ReportByCompany() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, posting := range r.Jobs {
		report[posting.Company] = append(report[posting.Company], map[string]string{
			"title":    posting.Title,
			"location": posting.Location,
			"link":     posting.Link,
		})
	}
	return report
}

func (r *SearchResults) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "jobs_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", fmt.Errorf("encode search results: %w", err)
	}
	return file.Name(), nil
}
