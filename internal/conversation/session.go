package conversation

import "github.com/spigell/linkedai/internal/jobs"

type ResultName string

const (
	LastSearch ResultName = "last_search"
	LastMatch  ResultName = "last_match"
	LastTweaks ResultName = "last_tweaks"
)

// Session is the scratch state of a single turn.
type Session struct {
	Iterations    int
	MaxIterations int
	Results       map[ResultName]any
	// LastSearch is the most recent retrieval result of the turn, used as the
	// implicit jobs argument of a resume match.
	LastSearch *jobs.SearchResults
}

func NewSession(maxIterations int) *Session {
	if maxIterations < 1 {
		maxIterations = 1
	}
	return &Session{
		MaxIterations: maxIterations,
		Results:       make(map[ResultName]any),
	}
}

func (s *Session) Exhausted() bool {
	return s.Iterations >= s.MaxIterations
}

// Record stores a tool result under its logical name.
func (s *Session) Record(name ResultName, result any) {
	s.Results[name] = result
	if results, ok := result.(*jobs.SearchResults); ok && name == LastSearch {
		s.LastSearch = results
	}
}
