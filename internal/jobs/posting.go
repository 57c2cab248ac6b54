package jobs

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const (
	PostingIDField      = "ID"
	PostingLinkField    = "Link"
	PostingCompanyField = "Company"
)

// Posting is a single job posting as produced by the scraper and stored in the vector store.
type Posting struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Link        string `json:"link"`
}

// ID returns the record identity key derived from the posting link.
func (p *Posting) ID() string {
	return RecordID(p.Link)
}

// Document is the text that gets embedded for the posting.
func (p *Posting) Document() string {
	return p.Title + "\n\n" + p.Description
}

func (p *Posting) GetStringField(name string) string {
	switch name {
	case PostingIDField:
		return p.ID()
	case PostingLinkField:
		return p.Link
	case PostingCompanyField:
		return p.Company
	default:
		return ""
	}
}

// RecordID extracts the identity key from a job link: the trailing path segment
// with the query string stripped, reduced to its last dash-separated token.
// "https://www.linkedin.com/jobs/view/cool-job-123456?refId=x" gives "123456".
func RecordID(link string) string {
	link = strings.TrimSpace(link)
	if idx := strings.IndexAny(link, "?#"); idx != -1 {
		link = link[:idx]
	}
	link = strings.TrimRight(link, "/")

	segment := link
	if idx := strings.LastIndex(segment, "/"); idx != -1 {
		segment = segment[idx+1:]
	}

	if idx := strings.LastIndex(segment, "-"); idx != -1 && idx < len(segment)-1 {
		segment = segment[idx+1:]
	}

	return segment
}

// LoadFile reads a JSON array of postings, the format written by the scraper.
func LoadFile(path string) ([]*Posting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var postings []*Posting
	if err := json.Unmarshal(data, &postings); err != nil {
		return nil, fmt.Errorf("decode postings from %q: %w", path, err)
	}

	return postings, nil
}
