package tools

import (
	"errors"
	"reflect"
	"testing"
)

func TestSchemasAreStable(t *testing.T) {
	registry := NewRegistry()

	first := registry.Schemas()
	second := registry.Schemas()

	if len(first) != 3 {
		t.Fatalf("expected 3 schemas, got %d", len(first))
	}

	names := []Name{SearchJobs, MatchJobToResume, SuggestResumeTweaks}
	for i, schema := range first {
		if schema.Name != names[i] {
			t.Fatalf("expected schema %d to be %s, got %s", i, names[i], schema.Name)
		}
	}

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected schemas to be identical across calls")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()

	tests := []struct {
		name    string
		tool    string
		raw     string
		expect  Args
		invalid bool
	}{
		{
			name:   "search args",
			tool:   "search_jobs",
			raw:    `{"query": "python developer", "n_results": 5}`,
			expect: SearchArgs{Query: "python developer", NResults: 5},
		},
		{
			name:    "search with non positive count",
			tool:    "search_jobs",
			raw:     `{"query": "python developer", "n_results": 0}`,
			invalid: true,
		},
		{
			name:    "search with fractional count",
			tool:    "search_jobs",
			raw:     `{"query": "python developer", "n_results": 2.5}`,
			invalid: true,
		},
		{
			name:    "search with string count",
			tool:    "search_jobs",
			raw:     `{"query": "python developer", "n_results": "5"}`,
			invalid: true,
		},
		{
			name:    "search missing query",
			tool:    "search_jobs",
			raw:     `{"n_results": 5}`,
			invalid: true,
		},
		{
			name:    "unknown field",
			tool:    "search_jobs",
			raw:     `{"query": "go", "n_results": 5, "location": "Berlin"}`,
			invalid: true,
		},
		{
			name:    "malformed JSON",
			tool:    "search_jobs",
			raw:     `{"query": `,
			invalid: true,
		},
		{
			name:   "match without jobs",
			tool:   "match_job_to_resume",
			raw:    `{}`,
			expect: MatchArgs{},
		},
		{
			name:   "match with empty payload",
			tool:   "match_job_to_resume",
			raw:    ``,
			expect: MatchArgs{},
		},
		{
			name:   "tweak args",
			tool:   "suggest_resume_tweaks",
			raw:    `{"job_description": "Python developer role"}`,
			expect: TweakArgs{JobDescription: "Python developer role"},
		},
		{
			name:    "tweak with blank description",
			tool:    "suggest_resume_tweaks",
			raw:     `{"job_description": "  "}`,
			invalid: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			args, err := registry.Validate(tt.tool, tt.raw)
			if tt.invalid {
				var verr *ValidationError
				if !errors.As(err, &verr) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(args, tt.expect) {
				t.Fatalf("expected %#v, got %#v", tt.expect, args)
			}
		})
	}
}

func TestValidateMatchJobs(t *testing.T) {
	registry := NewRegistry()

	raw := `{"jobs": {"jobs": [{"title": "Test Job", "company": "Test Company", "location": "Remote", "description": "Test description", "link": "https://example.com/jobs/view/test-1"}]}}`
	args, err := registry.Validate("match_job_to_resume", raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	match, ok := args.(MatchArgs)
	if !ok {
		t.Fatalf("expected MatchArgs, got %T", args)
	}
	if match.Jobs.Len() != 1 || match.Jobs.Jobs[0].Title != "Test Job" {
		t.Fatalf("unexpected jobs: %+v", match.Jobs)
	}

	bare := `{"jobs": [{"title": "Bare Job"}]}`
	args, err = registry.Validate("match_job_to_resume", bare)
	if err != nil {
		t.Fatalf("unexpected error for bare list: %v", err)
	}
	if args.(MatchArgs).Jobs.Jobs[0].Title != "Bare Job" {
		t.Fatalf("unexpected jobs for bare list: %+v", args)
	}
}

func TestValidateUnknownTool(t *testing.T) {
	_, err := NewRegistry().Validate("apply_to_job", `{}`)
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected unknown tool error, got %v", err)
	}
}

func TestDefinitionsCarryProgressAndResult(t *testing.T) {
	registry := NewRegistry()
	for _, schema := range registry.Schemas() {
		def, err := registry.Lookup(string(schema.Name))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if def.Progress == "" || def.Result == "" {
			t.Fatalf("expected progress and result for %s", schema.Name)
		}
	}
}

func TestRequiredFieldsFollowSchemas(t *testing.T) {
	registry := NewRegistry()

	for _, schema := range registry.Schemas() {
		def, err := registry.Lookup(string(schema.Name))
		if err != nil {
			t.Fatalf("lookup %s: %v", schema.Name, err)
		}

		if !reflect.DeepEqual(def.required, schema.Parameters.Required) {
			t.Fatalf("%s: required %v does not follow schema %v", schema.Name, def.required, schema.Parameters.Required)
		}

		for _, field := range schema.Parameters.Required {
			_, err := registry.Validate(string(schema.Name), "{}")
			var validation *ValidationError
			if !errors.As(err, &validation) {
				t.Fatalf("%s: expected validation error without %q, got %v", schema.Name, field, err)
			}
		}
	}
}
