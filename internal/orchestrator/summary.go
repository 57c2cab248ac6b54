package orchestrator

import (
	"fmt"
	"strings"

	"github.com/spigell/linkedai/internal/jobs"
	"github.com/spigell/linkedai/internal/resume"
	"github.com/spigell/linkedai/internal/tools"
)

// summarize renders a short human readable view of a tool result.
func summarize(args tools.Args, result any) string {
	switch res := result.(type) {
	case *jobs.SearchResults:
		return summarizeSearch(res)
	case resume.MatchResult:
		match, _ := args.(tools.MatchArgs)
		return summarizeMatch(match.Jobs, res)
	default:
		return ""
	}
}

func summarizeSearch(results *jobs.SearchResults) string {
	if results.Len() == 0 {
		return "No matching jobs found."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d job(s):", results.Len())
	for i, posting := range results.Jobs {
		fmt.Fprintf(&b, "\n%d. %s at %s", i+1, posting.Title, posting.Company)
		if posting.Location != "" {
			fmt.Fprintf(&b, " (%s)", posting.Location)
		}
		if posting.Link != "" {
			fmt.Fprintf(&b, "\n   %s", posting.Link)
		}
	}
	return b.String()
}

func summarizeMatch(results *jobs.SearchResults, match resume.MatchResult) string {
	posting := results.At(match.BestMatchID)
	if posting == nil {
		return fmt.Sprintf("Best match index %d does not point to a listed job.", match.BestMatchID)
	}

	summary := fmt.Sprintf("Best match: %s at %s", posting.Title, posting.Company)
	if match.Reasoning != "" {
		summary += "\n" + match.Reasoning
	}
	return summary
}
