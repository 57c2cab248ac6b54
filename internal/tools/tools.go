package tools

import (
	"github.com/spigell/linkedai/internal/conversation"
	"github.com/spigell/linkedai/internal/jobs"
)

type Name string

const (
	SearchJobs          Name = "search_jobs"
	MatchJobToResume    Name = "match_job_to_resume"
	SuggestResumeTweaks Name = "suggest_resume_tweaks"
)

// Parameter is a JSON Schema fragment describing a tool argument.
type Parameter struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]*Parameter `json:"properties,omitempty"`
	Order       []string              `json:"-"`
	Required    []string              `json:"required,omitempty"`
	Items       *Parameter            `json:"items,omitempty"`
	Minimum     *float64              `json:"minimum,omitempty"`
}

// Schema is what the model backend sees for a tool.
type Schema struct {
	Name        Name       `json:"name"`
	Description string     `json:"description"`
	Parameters  *Parameter `json:"parameters"`
}

// Args is one of SearchArgs, MatchArgs or TweakArgs.
type Args interface {
	Tool() Name
}

type SearchArgs struct {
	Query    string `json:"query"`
	NResults int    `json:"n_results"`
}

func (SearchArgs) Tool() Name { return SearchJobs }

// MatchArgs carries the jobs to match against. Jobs is nil when the model
// omitted the argument and the session default should be used.
type MatchArgs struct {
	Jobs *jobs.SearchResults `json:"jobs"`
}

func (MatchArgs) Tool() Name { return MatchJobToResume }

type TweakArgs struct {
	JobDescription string `json:"job_description"`
}

func (TweakArgs) Tool() Name { return SuggestResumeTweaks }

// Definition binds a tool schema to its argument type, result slot and progress marker.
type Definition struct {
	Schema   Schema
	Result   conversation.ResultName
	Progress string

	newArgs  func() Args
	required []string
}

func postingParameter() *Parameter {
	str := func(desc string) *Parameter { return &Parameter{Type: "string", Description: desc} }
	return &Parameter{
		Type: "object",
		Properties: map[string]*Parameter{
			"title":       str("Job title"),
			"company":     str("Hiring company"),
			"location":    str("Job location"),
			"description": str("Full job description"),
			"link":        str("Link to the job posting"),
		},
		Order:    []string{"title", "company", "location", "description", "link"},
		Required: []string{"title", "company", "location", "description", "link"},
	}
}

func definitions() []*Definition {
	minResults := 1.0

	return []*Definition{
		{
			Schema: Schema{
				Name:        SearchJobs,
				Description: "Query the Jobs database for jobs matching the user's query",
				Parameters: &Parameter{
					Type: "object",
					Properties: map[string]*Parameter{
						"query": {Type: "string", Description: "Free text description of the wanted job"},
						"n_results": {
							Type:        "integer",
							Description: "Number of jobs to return",
							Minimum:     &minResults,
						},
					},
					Order:    []string{"query", "n_results"},
					Required: []string{"query", "n_results"},
				},
			},
			Result:   conversation.LastSearch,
			Progress: "Searching for jobs...",
			newArgs:  func() Args { return &SearchArgs{} },
		},
		{
			Schema: Schema{
				Name:        MatchJobToResume,
				Description: "Compare the user's resume against a list of jobs and find the best match. When jobs are omitted the most recent search results are used.",
				Parameters: &Parameter{
					Type: "object",
					Properties: map[string]*Parameter{
						"jobs": {
							Type:        "object",
							Description: "Jobs to compare against the resume",
							Properties: map[string]*Parameter{
								"jobs": {Type: "array", Items: postingParameter()},
							},
							Order:    []string{"jobs"},
							Required: []string{"jobs"},
						},
					},
					Order: []string{"jobs"},
				},
			},
			Result:   conversation.LastMatch,
			Progress: "Matching jobs to your resume...",
			newArgs:  func() Args { return &MatchArgs{} },
		},
		{
			Schema: Schema{
				Name:        SuggestResumeTweaks,
				Description: "Suggest tweaks to the user's resume to better fit a given job.",
				Parameters: &Parameter{
					Type: "object",
					Properties: map[string]*Parameter{
						"job_description": {Type: "string", Description: "Description of the target job"},
					},
					Order:    []string{"job_description"},
					Required: []string{"job_description"},
				},
			},
			Result:   conversation.LastTweaks,
			Progress: "Generating resume suggestions...",
			newArgs:  func() Args { return &TweakArgs{} },
		},
	}
}
