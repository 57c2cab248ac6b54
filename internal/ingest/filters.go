package ingest

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/linkedai/internal/jobs"
	"go.uber.org/zap"
)

type incompleteFilter struct {
	disabled bool
	reason   string
}

// NewIncomplete drops postings without a link, title or description.
func NewIncomplete() Filter {
	return &incompleteFilter{}
}

func (f *incompleteFilter) Name() string { return "incomplete" }

func (f *incompleteFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *incompleteFilter) IsEnabled() bool { return !f.disabled }

func (f *incompleteFilter) Validate(*Config) error { return nil }

func (f *incompleteFilter) Apply(_ context.Context, logger *zap.Logger, v *jobs.SearchResults) (*jobs.SearchResults, Step, error) {
	initial := v.Len()

	var dropped []string
	kept := make([]*jobs.Posting, 0, initial)
	for _, posting := range v.Jobs {
		if posting == nil {
			dropped = append(dropped, "")
			continue
		}
		if strings.TrimSpace(posting.Link) == "" || posting.ID() == "" ||
			strings.TrimSpace(posting.Title) == "" || strings.TrimSpace(posting.Description) == "" {
			dropped = append(dropped, posting.Link)
			continue
		}
		kept = append(kept, posting)
	}
	v.Jobs = kept

	if len(dropped) > 0 {
		logger.Info("excluding incomplete postings",
			zap.Strings("excluded_links", dropped),
			zap.Int("postings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(dropped), Left: v.Len()}, nil
}

func (f *incompleteFilter) Status() Status {
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason}
}

type duplicatesFilter struct{}

// NewDuplicates keeps the first posting for every record ID, or link when the ID cannot be derived.
// Null records are dropped; records with neither ID nor link are kept.
func NewDuplicates() Filter {
	return &duplicatesFilter{}
}

func (f *duplicatesFilter) Name() string { return "duplicates" }

func (f *duplicatesFilter) Disable(string) {}

func (f *duplicatesFilter) IsEnabled() bool { return true }

func (f *duplicatesFilter) Validate(*Config) error { return nil }

func (f *duplicatesFilter) Apply(_ context.Context, logger *zap.Logger, v *jobs.SearchResults) (*jobs.SearchResults, Step, error) {
	initial := v.Len()

	seen := make(map[string]struct{}, initial)
	var duplicates []string
	empty := 0
	kept := make([]*jobs.Posting, 0, initial)
	for _, posting := range v.Jobs {
		if posting == nil {
			empty++
			continue
		}
		key := posting.ID()
		if key == "" {
			key = posting.Link
		}
		// records without an ID or link cannot be compared
		if key == "" {
			kept = append(kept, posting)
			continue
		}
		if _, ok := seen[key]; ok {
			duplicates = append(duplicates, key)
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, posting)
	}
	v.Jobs = kept
	dropped := initial - v.Len()

	if empty > 0 {
		logger.Warn("excluding empty records", zap.Int("count", empty))
	}

	if len(duplicates) > 0 {
		logger.Info("excluding duplicate postings",
			zap.Strings("duplicate_ids", duplicates),
			zap.Int("postings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: dropped, Left: v.Len()}, nil
}

type companiesFilter struct {
	companies []string
}

// NewExcludedCompanies drops postings of companies listed in the config.
func NewExcludedCompanies() Filter {
	return &companiesFilter{}
}

func (f *companiesFilter) Name() string { return "companies" }

func (f *companiesFilter) Disable(string) {}

func (f *companiesFilter) IsEnabled() bool { return true }

func (f *companiesFilter) Validate(cfg *Config) error {
	f.companies = nil
	if cfg != nil {
		f.companies = append(f.companies, cfg.ExcludeCompanies...)
	}
	return nil
}

func (f *companiesFilter) Apply(_ context.Context, logger *zap.Logger, v *jobs.SearchResults) (*jobs.SearchResults, Step, error) {
	initial := v.Len()
	if len(f.companies) == 0 {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	excluded := v.Exclude(jobs.PostingCompanyField, f.companies)
	if len(excluded) > 0 {
		logger.Info("excluding postings by companies",
			zap.Strings("excluded_companies", f.companies),
			zap.Strings("excluded_postings", excluded),
			zap.Int("postings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(excluded), Left: v.Len()}, nil
}

func (f *companiesFilter) Status() Status {
	details := map[string]string{}
	if len(f.companies) > 0 {
		details["companies"] = strings.Join(f.companies, ",")
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

type excludeFileFilter struct {
	path string
}

// NewExcludeFile drops postings whose link or record ID is listed in the exclude file, one per line.
func NewExcludeFile() Filter {
	return &excludeFileFilter{}
}

func (f *excludeFileFilter) Name() string { return "exclude_file" }

func (f *excludeFileFilter) Disable(string) {}

func (f *excludeFileFilter) IsEnabled() bool { return true }

func (f *excludeFileFilter) Validate(cfg *Config) error {
	f.path = ""
	if cfg != nil {
		f.path = strings.TrimSpace(cfg.ExcludeFile)
	}
	return nil
}

func (f *excludeFileFilter) Apply(_ context.Context, logger *zap.Logger, v *jobs.SearchResults) (*jobs.SearchResults, Step, error) {
	initial := v.Len()
	if f.path == "" {
		return v, Step{Initial: initial, Dropped: 0, Left: v.Len()}, nil
	}

	ids, err := readExcludeFile(f.path)
	if err != nil {
		return v, Step{}, fmt.Errorf("getting excluded postings from file: %w", err)
	}

	removed := v.Exclude(jobs.PostingIDField, ids)
	if len(removed) > 0 {
		logger.Info("excluding postings based on exclude file",
			zap.String("path", f.path),
			zap.Strings("excluded_postings", removed),
			zap.Int("postings_left", v.Len()),
		)
	}

	return v, Step{Initial: initial, Dropped: len(removed), Left: v.Len()}, nil
}

func (f *excludeFileFilter) Status() Status {
	details := map[string]string{}
	if f.path != "" {
		details["path"] = f.path
	}
	return Status{Name: f.Name(), Enabled: true, Details: details}
}

// readExcludeFile returns the record IDs listed in the file. Lines may hold links or bare IDs;
// blank lines and lines starting with # are skipped.
func readExcludeFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		id := jobs.RecordID(text)
		if id == "" {
			return nil, fmt.Errorf("line %d: cannot derive record id from %q", line, text)
		}
		ids = append(ids, id)
	}

	return ids, scanner.Err()
}
