package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/linkedai/internal/jobs"
	"github.com/spigell/linkedai/internal/logger"
	"github.com/spigell/linkedai/internal/orchestrator"
)

const (
	CommandReset = "/reset"
	CommandExit  = "/exit"
	CommandDump  = "/dump"
)

var errExit = errors.New("exit requested")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat with the job search assistant",
	Run: func(_ *cobra.Command, _ []string) {
		chat()
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

// chatSession is the part of the agent the terminal shell drives.
type chatSession interface {
	Chat(ctx context.Context, text string) iter.Seq2[orchestrator.Fragment, error]
	Reset()
	LastSearch() *jobs.SearchResults
}

func chat() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Logs go to stderr so they do not interleave with answers.
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"), "stderr")
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the linkedai chat", zap.String("version", version))

	svc, err := newAssistant(ctx, config, logger)
	if err != nil {
		logger.Fatal("preparing the assistant", zap.Error(err))
	}
	defer svc.Close()

	if !svc.advisor.HasResume() {
		logger.Warn("resume is not loaded, matching and suggestions will be generic",
			zap.String("resume", config.Resume),
			zap.String("hint", "set the 'resume' key or LINKEDAI_RESUME environment variable"),
		)
	}

	shell := newREPL(svc.newAgent(uuid.NewString()), os.Stdout, logger)
	shell.greet()

	input := promptui.Prompt{Label: "You"}
	for {
		line, err := input.Run()
		if err != nil {
			// Ctrl+C and Ctrl+D end the session.
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("reading input", zap.Error(err))
		}

		if err := shell.handle(ctx, line); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if ctx.Err() != nil {
			return
		}
	}
}

type repl struct {
	session chatSession
	out     io.Writer
	logger  *zap.Logger

	progress  func(a ...interface{}) string
	assistant func(a ...interface{}) string
	failure   func(a ...interface{}) string
	banner    func(a ...interface{}) string
}

func newREPL(session chatSession, out io.Writer, logger *zap.Logger) *repl {
	return &repl{
		session:   session,
		out:       out,
		logger:    logger,
		progress:  color.New(color.FgYellow).SprintFunc(),
		assistant: color.New(color.FgCyan, color.Bold).SprintFunc(),
		failure:   color.New(color.FgRed, color.Bold).SprintFunc(),
		banner:    color.New(color.FgGreen, color.Bold).SprintFunc(),
	}
}

func (r *repl) greet() {
	fmt.Fprintln(r.out, r.banner("LinkedAI job search assistant"))
	fmt.Fprintf(r.out, "Ask about jobs or your resume. Commands: %s, %s, %s.\n\n", CommandReset, CommandDump, CommandExit)
}

// handle processes one line of user input.
func (r *repl) handle(ctx context.Context, line string) error {
	text := strings.TrimSpace(line)

	switch text {
	case "":
		return nil
	case CommandExit:
		return errExit
	case CommandReset:
		r.session.Reset()
		fmt.Fprintln(r.out, r.banner(orchestrator.ResetBanner))
		return nil
	case CommandDump:
		r.dump()
		return nil
	}

	for fragment, err := range r.session.Chat(ctx, text) {
		if err != nil {
			r.logger.Error("chat turn failed", zap.Error(err))
			fmt.Fprintln(r.out, r.failure("**Error**: "+err.Error()))
			break
		}

		switch fragment.Kind {
		case orchestrator.ProgressFragment:
			fmt.Fprintln(r.out, r.progress(fragment.Text))
		case orchestrator.ContentFragment:
			fmt.Fprintln(r.out, fragment.Text)
		case orchestrator.AnswerFragment:
			fmt.Fprintf(r.out, "%s %s\n", r.assistant("Assistant:"), fragment.Text)
		}
	}

	fmt.Fprintln(r.out)
	return nil
}

func (r *repl) dump() {
	results := r.session.LastSearch()
	if results.Len() == 0 {
		fmt.Fprintln(r.out, "Nothing to dump, search for jobs first.")
		return
	}

	filename, err := results.DumpToTmpFile()
	if err != nil {
		fmt.Fprintln(r.out, r.failure("**Error**: "+err.Error()))
		return
	}

	r.logger.Info("dumping search results to file", zap.String("filename", filename), zap.Int("count", results.Len()))
	fmt.Fprintf(r.out, "Saved %d job(s) to %s\n", results.Len(), filename)

	report := results.ReportByCompany()
	for _, company := range slices.Sorted(maps.Keys(report)) {
		fmt.Fprintf(r.out, "  %s: %d job(s)\n", company, len(report[company]))
	}
}
