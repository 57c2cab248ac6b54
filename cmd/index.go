package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/linkedai/internal/ingest"
	"github.com/spigell/linkedai/internal/jobs"
	"github.com/spigell/linkedai/internal/logger"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed scraped job postings and store them in the vector index",
	Run: func(cmd *cobra.Command, _ []string) {
		index(cmd)
	},
}

func init() {
	rootCmd.AddCommand(indexCmd)

	indexCmd.Flags().StringP("file", "f", "", "JSON file with scraped job postings")
	indexCmd.Flags().Bool("recreate", false, "drop and recreate the collection before indexing")
	indexCmd.Flags().BoolP("keep-incomplete", "k", false, "do not drop postings without a title or description")
	indexCmd.Flags().StringP("exclude-file", "e", "", "file with job links or IDs to skip. Default is unset.")

	indexCmd.MarkFlagRequired("file")

	viper.BindPFlag("ingest.exclude-file", indexCmd.Flags().Lookup("exclude-file"))
}

func index(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	file, _ := cmd.Flags().GetString("file")
	recreate, _ := cmd.Flags().GetBool("recreate")
	keepIncomplete, _ := cmd.Flags().GetBool("keep-incomplete")

	postings, err := jobs.LoadFile(file)
	if err != nil {
		logger.Fatal("loading job postings", zap.Error(err))
	}

	logger.Info("loaded job postings", zap.String("file", file), zap.Int("count", len(postings)))

	llm, err := newGemini(ctx, config.Gemini, logger)
	if err != nil {
		logger.Fatal("building gemini client", zap.Error(err))
	}

	embedder, err := newEmbedder(config.Embeddings, llm, logger)
	if err != nil {
		logger.Fatal("building embedder", zap.Error(err))
	}

	store, err := newVectorStore(config.Qdrant, logger)
	if err != nil {
		logger.Fatal("connecting to qdrant", zap.Error(err))
	}
	defer store.Close()

	filters := ingest.DefaultFilters()
	if keepIncomplete {
		ingest.DisableByName(filters, "incomplete", "disabled by --keep-incomplete flag")
	}

	ingestConfig := ingest.Config{Recreate: recreate}
	if config.Ingest != nil {
		ingestConfig.BatchSize = config.Ingest.BatchSize
		ingestConfig.ExcludeCompanies = config.Ingest.ExcludeCompanies
		ingestConfig.ExcludeFile = config.Ingest.ExcludeFile
	}

	indexer := ingest.NewIndexer(embedder, store, filters, ingestConfig, logger.Named("ingest"))

	report, err := indexer.Index(ctx, postings)
	if err != nil {
		logger.Fatal("indexing job postings", zap.Error(err))
	}

	printReport(report, indexer.Filters(), store.Collection())
}

func printReport(report ingest.Report, filters []ingest.Status, collection string) {
	bold := color.New(color.Bold).SprintFunc()
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	faint := color.New(color.Faint).SprintFunc()

	fmt.Println(bold("Indexing summary"))
	fmt.Printf("  collection: %s\n", collection)
	fmt.Printf("  loaded:     %d\n", report.Loaded)
	fmt.Printf("  indexed:    %s in %d batch(es)\n", green(report.Indexed), report.Batches)

	for _, status := range filters {
		line := fmt.Sprintf("  filter %s enabled=%t", status.Name, status.Enabled)
		if status.Reason != "" {
			line += " (" + status.Reason + ")"
		}
		fmt.Println(faint(line))
	}
}
