package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arxiv_digest/cmd/digest/config"
	"arxiv_digest/internal/services"

	"github.com/spf13/cobra"
)

var runFlags struct {
	date       string
	categories string
	top        int
	output     string
	renderer   string
	humanInput bool
	bibtex     string
	pdf        string
	verbose    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch, rank and render the digest for one date",
	Long: `Fetches the papers submitted to arXiv on --date, lets the researcher agent
rank the most impactful ones and writes an HTML report.`,
	Args: cobra.NoArgs,
	RunE: runDigest,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.date, "date", "", "submission date YYYY-MM-DD (default yesterday, UTC)")
	f.StringVar(&runFlags.categories, "categories", "", "comma separated arXiv categories (default from ARXIV_CATEGORIES or cs.CL)")
	f.IntVar(&runFlags.top, "top", 0, "number of papers in the report (default from TOP_N or 10)")
	f.StringVarP(&runFlags.output, "output", "o", "", "HTML output file, {date} is replaced")
	f.StringVar(&runFlags.renderer, "renderer", services.RendererLLM, "report renderer: llm or template")
	f.BoolVar(&runFlags.humanInput, "human-input", false, "review each agent result on the terminal")
	f.StringVar(&runFlags.bibtex, "bibtex", "", "also write a BibTeX file")
	f.StringVar(&runFlags.pdf, "pdf", "", "also write a PDF digest")
	f.BoolVarP(&runFlags.verbose, "verbose", "v", false, "log agent prompts and outputs")
}

func runDigest(cmd *cobra.Command, args []string) error {
	date := runFlags.date
	if date == "" {
		date = time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	digest, _, _, closeAll, err := newDigestService(ctx, cfg, defaultOptions(cfg))
	if err != nil {
		return err
	}
	defer closeAll()

	if runFlags.humanInput {
		digest.SetReviewer(services.NewConsoleReviewer(cmd.InOrStdin(), cmd.OutOrStdout()))
	}

	opts := services.DigestOptions{
		TopN:       runFlags.top,
		OutputFile: runFlags.output,
		Renderer:   runFlags.renderer,
		HumanInput: runFlags.humanInput,
		BibTeXFile: runFlags.bibtex,
		PDFFile:    runFlags.pdf,
		Verbose:    runFlags.verbose || debug,
	}
	if runFlags.categories != "" {
		opts.Categories = config.SplitList(runFlags.categories)
	}

	result, err := digest.Run(ctx, services.RunRequest{Date: date, DigestOptions: opts})
	if err != nil {
		if ctx.Err() == context.Canceled {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Report with %d of %d papers written to %s\n", len(result.Ranked), result.Fetched, result.OutputFile)
	if result.PublishedObject != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "Published to gs://%s/%s\n", cfg.GCSBucketName, result.PublishedObject)
	}
	return nil
}

func defaultOptions(c *config.Config) services.DigestOptions {
	return services.DigestOptions{
		Categories: c.Categories,
		TopN:       c.TopN,
		OutputFile: c.OutputFile,
		Renderer:   services.RendererLLM,
	}
}
