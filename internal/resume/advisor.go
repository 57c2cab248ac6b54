package resume

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/linkedai/internal/ai"
	"github.com/spigell/linkedai/internal/jobs"
	"github.com/spigell/linkedai/internal/utils"
	"go.uber.org/zap"
)

//go:embed match_prompt.md
var matchTemplate string

//go:embed tweak_prompt.md
var tweakTemplate string

const defaultMaxLogLength = 200

// MatchResult names the best fitting job by its zero-based position in the
// supplied results. The index is not checked against the results.
type MatchResult struct {
	BestMatchID int    `json:"best_match_id"`
	Reasoning   string `json:"reasoning"`
}

type TweakResult struct {
	Suggestions string `json:"suggestions"`
}

// Advisor compares the loaded resume with job postings using an LLM.
type Advisor struct {
	generator ai.Generator
	resume    string
	logger    *zap.Logger
	maxLogLen int
}

func NewAdvisor(generator ai.Generator, resume string, logger *zap.Logger, maxLogLength int) *Advisor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Advisor{
		generator: generator,
		resume:    resume,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Advisor) HasResume() bool {
	return strings.TrimSpace(a.resume) != ""
}

// Match asks the model for the best matching job. An unusable answer yields
// the zero MatchResult; only backend failures are returned as errors.
func (a *Advisor) Match(ctx context.Context, results *jobs.SearchResults) (MatchResult, error) {
	jobsJSON, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return MatchResult{}, fmt.Errorf("marshal jobs payload: %w", err)
	}

	prompt := strings.ReplaceAll(matchTemplate, "{{RESUME}}", a.resume)
	prompt = strings.ReplaceAll(prompt, "{{JOBS_JSON}}", string(jobsJSON))

	a.logger.Debug("resume match request",
		zap.Int("jobs", results.Len()),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateJSON(ctx, prompt)
	if err != nil {
		return MatchResult{}, err
	}

	a.logger.Debug("resume match response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, a.maxLogLen)),
	)

	result, err := parseMatch(raw)
	if err != nil {
		a.logger.Warn("resume match response failed validation", zap.Error(err), zap.String("content", utils.TruncateForLog(raw, a.maxLogLen)))
		return MatchResult{}, nil
	}

	return result, nil
}

// Tweak asks the model for resume changes that fit the job description better.
func (a *Advisor) Tweak(ctx context.Context, jobDescription string) (TweakResult, error) {
	prompt := strings.ReplaceAll(tweakTemplate, "{{RESUME}}", a.resume)
	prompt = strings.ReplaceAll(prompt, "{{JOB_DESCRIPTION}}", jobDescription)

	a.logger.Debug("resume tweak request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	suggestions, err := a.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return TweakResult{}, err
	}

	if strings.TrimSpace(suggestions) == "" {
		a.logger.Warn("resume tweak response is empty")
	}

	return TweakResult{Suggestions: suggestions}, nil
}

func parseMatch(raw string) (MatchResult, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return MatchResult{}, fmt.Errorf("parse match response: %w", err)
	}
	if data == nil {
		return MatchResult{}, fmt.Errorf("parse match response: empty object")
	}

	id, ok := coerceInt(data["best_match_id"])
	if !ok {
		return MatchResult{}, fmt.Errorf("parse match response: best_match_id is not an integer")
	}

	return MatchResult{BestMatchID: id, Reasoning: coerceString(data["reasoning"])}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceInt(v any) (int, bool) {
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, false
		}
		return int(val), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		bytes, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(bytes)
	}
}
