package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"arxiv_digest/cmd/digest/config"
	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/database"
	"arxiv_digest/internal/llm"
	"arxiv_digest/internal/services"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	envFile  string
	provider string
	debug    bool
	logger   zerolog.Logger
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:           "digest",
	Short:         "Daily arXiv research digests ranked by a language model",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
			Level(level).With().Timestamp().Logger()

		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		var err error
		if cfg, err = config.Load(files...); err != nil {
			return err
		}
		if provider != "" {
			cfg.LLMProvider = provider
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load (default .env)")
	rootCmd.PersistentFlags().StringVar(&provider, "provider", "", "language model backend: gemini or openai")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.AddCommand(runCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// closer releases whatever newDigestService opened.
type closer func()

func newGenerator(ctx context.Context, c *config.Config) (llm.Generator, closer, error) {
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("GOOGLE_AI_STUDIO_API_KEY is not set in the environment")
		}
		g, err := llm.NewGeminiGenerator(ctx, c.GeminiAPIKey, c.GeminiModel, c.Temperature)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create GenAI client: %w", err)
		}
		return g, func() { _ = g.Close() }, nil
	case "openai":
		if c.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is not set in the environment")
		}
		g, err := llm.NewOpenAIGenerator(c.OpenAIAPIKey, c.OpenAIBaseURL, c.OpenAIModel, c.Temperature)
		if err != nil {
			return nil, nil, err
		}
		return g, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", c.LLMProvider)
	}
}

// newDigestService builds the pipeline. The database and the GCS bucket are
// only wired when configured.
func newDigestService(ctx context.Context, c *config.Config, defaults services.DigestOptions) (*services.DigestService, services.ReportServiceDB, services.CloudStorageManager, closer, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	generator, closeGen, err := newGenerator(ctx, c)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	closers = append(closers, closeGen)

	fetcher := arxiv.NewClient(arxiv.ClientConfig{
		BaseURL:    c.ArxivBaseURL,
		PageSize:   c.PageSize,
		Delay:      c.Delay,
		MaxRetries: c.MaxRetries,
	}, logger)

	var reportDB services.ReportServiceDB
	if c.DatabaseEnabled() {
		db, err := database.InitDB(c.Database)
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, err
		}
		reportDB = services.NewReportServiceDB(db)
		logger.Info().Str("host", c.Database.Host).Msg("Report persistence enabled")
	}

	var cloudStorage services.CloudStorageManager
	if c.GCSBucketName != "" {
		gcsService, err := services.NewGCSService(ctx)
		if err != nil {
			closeAll()
			return nil, nil, nil, nil, fmt.Errorf("failed to create GCS service: %w", err)
		}
		closers = append(closers, func() { _ = gcsService.Close() })
		cloudStorage = gcsService
		logger.Info().Str("bucket", c.GCSBucketName).Msg("Report publishing enabled")
	}

	digest := services.NewDigestService(
		fetcher,
		generator,
		services.NewExportService(),
		reportDB,
		cloudStorage,
		c.GCSBucketName,
		defaults,
		logger,
	)
	return digest, reportDB, cloudStorage, closeAll, nil
}
