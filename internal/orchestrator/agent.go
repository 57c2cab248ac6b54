package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"

	_ "embed"

	"github.com/spigell/linkedai/internal/ai"
	"github.com/spigell/linkedai/internal/conversation"
	"github.com/spigell/linkedai/internal/jobs"
	"github.com/spigell/linkedai/internal/logger"
	"github.com/spigell/linkedai/internal/resume"
	"github.com/spigell/linkedai/internal/tools"
	"go.uber.org/zap"
)

//go:embed system_prompt.md
var defaultSystemPrompt string

const DefaultMaxIterations = 3

var (
	ErrNoSearchResults = errors.New("no previous search results in this request, search for jobs first or pass jobs explicitly")
	ErrTurnAbandoned   = errors.New("turn was abandoned before the tool call ran")
)

type JobSearcher interface {
	Search(ctx context.Context, query string, n int) (*jobs.SearchResults, error)
}

type ResumeAdvisor interface {
	Match(ctx context.Context, results *jobs.SearchResults) (resume.MatchResult, error)
	Tweak(ctx context.Context, jobDescription string) (resume.TweakResult, error)
}

// Recorder receives every message appended to the history.
type Recorder interface {
	Record(msg conversation.Message)
}

type Config struct {
	MaxIterations int
	SystemPrompt  string
	Recorder      Recorder
}

type handler func(ctx context.Context, args tools.Args) (any, error)

// Agent runs the tool calling loop for a single conversation. It is not safe for concurrent use.
type Agent struct {
	model         ai.ChatModel
	registry      *tools.Registry
	handlers      map[tools.Name]handler
	history       *conversation.History
	maxIterations int
	recorder      Recorder
	logger        *zap.Logger

	lastSession *conversation.Session
}

func New(model ai.ChatModel, searcher JobSearcher, advisor ResumeAdvisor, cfg Config, log *zap.Logger) *Agent {
	if log == nil {
		log = zap.NewNop()
	}

	maxIterations := cfg.MaxIterations
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}

	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = strings.TrimSpace(defaultSystemPrompt)
	}

	a := &Agent{
		model:         model,
		registry:      tools.NewRegistry(),
		history:       conversation.NewHistory(systemPrompt),
		maxIterations: maxIterations,
		recorder:      cfg.Recorder,
		logger:        log,
	}

	a.handlers = map[tools.Name]handler{
		tools.SearchJobs: func(ctx context.Context, args tools.Args) (any, error) {
			search := args.(tools.SearchArgs)
			return searcher.Search(ctx, search.Query, search.NResults)
		},
		tools.MatchJobToResume: func(ctx context.Context, args tools.Args) (any, error) {
			return advisor.Match(ctx, args.(tools.MatchArgs).Jobs)
		},
		tools.SuggestResumeTweaks: func(ctx context.Context, args tools.Args) (any, error) {
			return advisor.Tweak(ctx, args.(tools.TweakArgs).JobDescription)
		},
	}

	a.record(a.history.Last())

	return a
}

// Chat runs one turn for the user text. Fragments are produced lazily as the
// consumer ranges over the sequence; a model failure ends the sequence with an error.
func (a *Agent) Chat(ctx context.Context, text string) iter.Seq2[Fragment, error] {
	return func(yield func(Fragment, error) bool) {
		live := true
		emit := func(f Fragment) bool {
			if live && !yield(f, nil) {
				live = false
			}
			return live
		}
		fail := func(err error) {
			if live {
				yield(Fragment{}, err)
				live = false
			}
		}

		if err := a.append(conversation.UserMessage(text)); err != nil {
			fail(err)
			return
		}

		session := conversation.NewSession(a.maxIterations)
		a.lastSession = session

		a.logger.Info("turn started", zap.Int("max_iterations", session.MaxIterations))

		for {
			if session.Exhausted() {
				a.finalize(ctx, emit, fail)
				return
			}

			session.Iterations++
			a.logger.Debug("model round", zap.Int("iteration", session.Iterations))

			reply, err := a.model.Generate(ctx, a.history.Messages(), a.registry.Schemas())
			if err != nil {
				fail(fmt.Errorf("model round %d: %w", session.Iterations, err))
				return
			}

			if err := a.append(reply); err != nil {
				fail(err)
				return
			}

			if !reply.HasToolCalls() {
				if reply.Content != "" {
					emit(Fragment{Kind: AnswerFragment, Text: reply.Content})
				}
				a.logger.Info("turn finished", zap.Int("iterations", session.Iterations))
				return
			}

			if reply.Content != "" {
				emit(Fragment{Kind: ContentFragment, Text: reply.Content})
			}

			for _, call := range reply.ToolCalls {
				if !live {
					a.closeCall(conversation.ToolErrorMessage(call, ErrTurnAbandoned))
					continue
				}
				a.dispatch(ctx, session, call, emit)
			}

			if !live {
				return
			}
		}
	}
}

// finalize asks the model for a last answer with all tools withdrawn.
func (a *Agent) finalize(ctx context.Context, emit func(Fragment) bool, fail func(error)) {
	a.logger.Info("iteration limit reached, finalizing", zap.Int("max_iterations", a.maxIterations))

	emit(Fragment{Kind: ProgressFragment, Text: FinalizingMarker})

	reply, err := a.model.Generate(ctx, a.history.Messages(), nil)
	if err != nil {
		fail(fmt.Errorf("final model round: %w", err))
		return
	}

	if len(reply.ToolCalls) > 0 {
		a.logger.Warn("dropping tool calls from final response", zap.Int("tool_calls", len(reply.ToolCalls)))
		reply.ToolCalls = nil
	}

	if err := a.append(reply); err != nil {
		fail(err)
		return
	}

	if reply.Content != "" {
		emit(Fragment{Kind: AnswerFragment, Text: reply.Content})
	}
}

// dispatch runs one tool call and closes it with a result or an error message.
// Failures stay inside the call and never end the turn.
// The consumer may stop at the progress marker, then the call is closed without running.
func (a *Agent) dispatch(ctx context.Context, session *conversation.Session, call conversation.ToolCall, emit func(Fragment) bool) {
	log := logger.WithFields(a.logger, logger.ToolFields(call.Name, call.ID)...)

	failCall := func(err error) {
		log.Warn("tool call failed", zap.Error(err))
		a.closeCall(conversation.ToolErrorMessage(call, err))
	}

	def, err := a.registry.Lookup(call.Name)
	if err != nil {
		failCall(err)
		return
	}

	if !emit(Fragment{Kind: ProgressFragment, Text: def.Progress}) {
		log.Info("turn abandoned before the tool call ran")
		a.closeCall(conversation.ToolErrorMessage(call, ErrTurnAbandoned))
		return
	}

	args, err := a.registry.Validate(call.Name, call.Arguments)
	if err != nil {
		failCall(err)
		return
	}

	args, err = applyDefaults(session, args)
	if err != nil {
		failCall(err)
		return
	}

	result, err := a.handlers[def.Schema.Name](ctx, args)
	if err != nil {
		failCall(err)
		return
	}

	session.Record(def.Result, result)

	content, err := json.Marshal(result)
	if err != nil {
		failCall(fmt.Errorf("serialize %s result: %w", call.Name, err))
		return
	}

	log.Info("tool call succeeded", zap.Int("result_length", len(content)))
	a.closeCall(conversation.ToolResultMessage(call, string(content)))

	if summary := summarize(args, result); summary != "" {
		emit(Fragment{Kind: ContentFragment, Text: summary})
	}
}

// applyDefaults fills the jobs of a resume match from the latest search of the turn.
func applyDefaults(session *conversation.Session, args tools.Args) (tools.Args, error) {
	match, ok := args.(tools.MatchArgs)
	if !ok || match.Jobs != nil {
		return args, nil
	}
	if session.LastSearch == nil {
		return nil, ErrNoSearchResults
	}
	match.Jobs = session.LastSearch
	return match, nil
}

func (a *Agent) closeCall(msg conversation.Message) {
	if err := a.append(msg); err != nil {
		a.logger.Error("failed to close tool call", zap.String("call_id", msg.ToolCallID), zap.Error(err))
	}
}

func (a *Agent) append(msg conversation.Message) error {
	if err := a.history.Append(msg); err != nil {
		return err
	}
	a.record(msg)
	return nil
}

func (a *Agent) record(msg conversation.Message) {
	if a.recorder != nil {
		a.recorder.Record(msg)
	}
}

// Reset drops the conversation, leaving only the system instruction.
func (a *Agent) Reset() {
	a.history.Reset()
	a.lastSession = nil
	a.record(a.history.Last())
	a.logger.Info("conversation reset")
}

// History returns a copy of the conversation so far.
func (a *Agent) History() []conversation.Message {
	return a.history.Messages()
}

// LastSearch returns the most recent search results of the latest turn, if any.
func (a *Agent) LastSearch() *jobs.SearchResults {
	if a.lastSession == nil {
		return nil
	}
	return a.lastSession.LastSearch
}
