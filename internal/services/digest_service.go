package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/llm"
	"arxiv_digest/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	RendererLLM      = "llm"
	RendererTemplate = "template"

	DefaultTopN       = 10
	DefaultOutputFile = "./ai_research_report.html"
)

var ErrUnknownRenderer = errors.New("unknown renderer")

type DigestOptions struct {
	Categories []string
	TopN       int
	OutputFile string
	Renderer   string
	HumanInput bool
	BibTeXFile string
	PDFFile    string
	Verbose    bool
}

type RunRequest struct {
	// RunID is generated when zero.
	RunID uuid.UUID
	Date  string
	DigestOptions
}

type DigestResult struct {
	RunID           uuid.UUID
	Date            string
	Fetched         int
	Ranked          []models.RankedPaper
	HTML            string
	OutputFile      string
	PublishedObject string
}

// DigestService runs the fetch, rank and render steps for one date.
type DigestService struct {
	fetcher      PaperFetcher
	generator    llm.Generator
	exporter     *ExportService
	reportDB     ReportServiceDB
	cloudStorage CloudStorageManager
	bucketName   string
	reviewer     llm.Reviewer
	events       EventPublisher
	defaults     DigestOptions
	logger       zerolog.Logger
	now          func() time.Time
}

func NewDigestService(
	fetcher PaperFetcher,
	generator llm.Generator,
	exporter *ExportService,
	reportDB ReportServiceDB,
	cloudStorage CloudStorageManager,
	bucketName string,
	defaults DigestOptions,
	logger zerolog.Logger,
) *DigestService {
	return &DigestService{
		fetcher:      fetcher,
		generator:    generator,
		exporter:     exporter,
		reportDB:     reportDB,
		cloudStorage: cloudStorage,
		bucketName:   bucketName,
		defaults:     defaults,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *DigestService) SetReviewer(reviewer llm.Reviewer) {
	s.reviewer = reviewer
}

func (s *DigestService) SetEventPublisher(events EventPublisher) {
	s.events = events
}

func (s *DigestService) Run(ctx context.Context, req RunRequest) (*DigestResult, error) {
	if req.RunID == uuid.Nil {
		req.RunID = uuid.New()
	}
	opts := s.mergeOptions(req.DigestOptions)
	runID := req.RunID.String()
	logger := s.logger.With().Str("run_id", runID).Str("date", req.Date).Logger()

	s.emit(runID, models.StageStarted, "Run started", nil)
	result, err := s.run(ctx, req.RunID, req.Date, opts, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Digest run failed")
		s.emit(runID, models.StageFailed, "", err)
		return nil, err
	}

	logger.Info().Int("fetched", result.Fetched).Int("ranked", len(result.Ranked)).Str("file", result.OutputFile).Msg("Digest run completed")
	s.emit(runID, models.StageCompleted, fmt.Sprintf("Report with %d papers written", len(result.Ranked)), nil)
	return result, nil
}

func (s *DigestService) run(ctx context.Context, runID uuid.UUID, date string, opts DigestOptions, logger zerolog.Logger) (*DigestResult, error) {
	if _, err := arxiv.ParseDate(date); err != nil {
		return nil, err
	}
	if opts.Renderer != RendererLLM && opts.Renderer != RendererTemplate {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRenderer, opts.Renderer)
	}
	if s.generator == nil {
		return nil, llm.ErrNoGenerator
	}

	id := runID.String()
	title := ReportTitle(opts.TopN, date)
	inputs := map[string]string{
		"date":  date,
		"top":   strconv.Itoa(opts.TopN),
		"title": title,
	}

	fetchTool := NewFetchArxivPapersTool(s.fetcher, opts.Categories)
	researcher := NewResearcherAgent(fetchTool, opts.Verbose)
	research := NewResearchTask(researcher, opts.HumanInput)

	var ranked []models.RankedPaper
	research.Guardrail = func(raw string) (string, error) {
		r, err := ParseRanking(raw, fetchTool.Papers(), opts.TopN)
		if err != nil {
			return "", err
		}
		ranked = r
		return MarshalRanking(r)
	}

	tasks := []*llm.Task{research}
	var html string
	if opts.Renderer == RendererLLM {
		reporting := NewReportingTask(NewFrontendEngineerAgent(opts.Verbose), research, opts.HumanInput)
		reporting.Guardrail = func(raw string) (string, error) {
			cleaned, err := CleanReportHTML(raw, title, ranked)
			if err != nil {
				return "", err
			}
			html = cleaned
			return cleaned, nil
		}
		tasks = append(tasks, reporting)
	}

	crew := &llm.Crew{
		Tasks:     tasks,
		Generator: s.generator,
		Reviewer:  s.reviewer,
		Logger:    logger,
		OnTaskStart: func(task *llm.Task) {
			switch task {
			case research:
				s.emit(id, models.StageFetching, "Fetching papers from "+strings.Join(opts.Categories, ", "), nil)
			default:
				s.emit(id, models.StageRendering, "Rendering HTML report", nil)
			}
		},
		OnTaskDone: func(out llm.TaskOutput) {
			if out.Task == research {
				s.emit(id, models.StageRanking, fmt.Sprintf("Ranked %d of %d papers", len(ranked), len(fetchTool.Papers())), nil)
			}
		},
	}
	if _, err := crew.Kickoff(ctx, inputs); err != nil {
		return nil, err
	}

	if opts.Renderer == RendererTemplate {
		s.emit(id, models.StageRendering, "Rendering HTML report from template", nil)
		rendered, err := RenderTemplateReport(title, ranked, s.now())
		if err != nil {
			return nil, err
		}
		html = rendered
	}

	result := &DigestResult{
		RunID:      runID,
		Date:       date,
		Fetched:    len(fetchTool.Papers()),
		Ranked:     ranked,
		HTML:       html,
		OutputFile: expandDate(opts.OutputFile, date),
	}

	if err := s.writeOutputs(result, opts, title); err != nil {
		return nil, err
	}
	s.emit(id, models.StageWriting, "Report written to "+result.OutputFile, nil)

	if err := s.publish(ctx, result); err != nil {
		return nil, err
	}
	if err := s.persist(result, opts); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *DigestService) writeOutputs(result *DigestResult, opts DigestOptions, title string) error {
	if result.OutputFile != "" {
		if err := ensureDir(result.OutputFile); err != nil {
			return err
		}
		if err := os.WriteFile(result.OutputFile, []byte(result.HTML), 0o644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}
	if opts.BibTeXFile != "" {
		if err := s.exporter.WriteBibTeX(expandDate(opts.BibTeXFile, result.Date), result.Ranked); err != nil {
			return err
		}
	}
	if opts.PDFFile != "" {
		if err := s.exporter.WritePDF(expandDate(opts.PDFFile, result.Date), title, result.Ranked); err != nil {
			return err
		}
	}
	return nil
}

func (s *DigestService) publish(ctx context.Context, result *DigestResult) error {
	if s.cloudStorage == nil || s.bucketName == "" {
		return nil
	}
	name := filepath.Base(result.OutputFile)
	if result.OutputFile == "" {
		name = filepath.Base(DefaultOutputFile)
	}
	object := fmt.Sprintf("reports/%s/%s", result.Date, name)
	if err := s.cloudStorage.UploadFile(ctx, s.bucketName, object, "text/html; charset=utf-8", bytes.NewReader([]byte(result.HTML))); err != nil {
		return fmt.Errorf("failed to publish report: %w", err)
	}
	result.PublishedObject = object
	s.emit(result.RunID.String(), models.StagePublished, fmt.Sprintf("Published to gs://%s/%s", s.bucketName, object), nil)
	return nil
}

func (s *DigestService) persist(result *DigestResult, opts DigestOptions) error {
	if s.reportDB == nil {
		return nil
	}
	report := &models.Report{
		ID:         result.RunID,
		Date:       result.Date,
		Categories: strings.Join(opts.Categories, ","),
		Provider:   s.generator.Provider(),
		Model:      s.generator.Model(),
		Fetched:    result.Fetched,
		HTML:       result.HTML,
	}
	for _, r := range result.Ranked {
		report.Papers = append(report.Papers, models.ReportPaper{
			Rank:          r.Rank,
			ArxivID:       r.ArxivID,
			Title:         r.Title,
			Authors:       r.AuthorsCSV(),
			URL:           r.URL,
			Justification: r.Justification,
		})
	}
	if err := s.reportDB.CreateReportDB(report); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

func (s *DigestService) mergeOptions(opts DigestOptions) DigestOptions {
	d := s.defaults
	if len(opts.Categories) == 0 {
		opts.Categories = d.Categories
	}
	if len(opts.Categories) == 0 {
		opts.Categories = []string{"cs.CL"}
	}
	if opts.TopN <= 0 {
		opts.TopN = d.TopN
	}
	if opts.TopN <= 0 {
		opts.TopN = DefaultTopN
	}
	if opts.OutputFile == "" {
		opts.OutputFile = d.OutputFile
	}
	if opts.Renderer == "" {
		opts.Renderer = d.Renderer
	}
	if opts.Renderer == "" {
		opts.Renderer = RendererLLM
	}
	if opts.BibTeXFile == "" {
		opts.BibTeXFile = d.BibTeXFile
	}
	if opts.PDFFile == "" {
		opts.PDFFile = d.PDFFile
	}
	opts.HumanInput = opts.HumanInput || d.HumanInput
	opts.Verbose = opts.Verbose || d.Verbose
	return opts
}

func (s *DigestService) emit(runID string, stage models.RunStage, message string, err error) {
	if s.events == nil {
		return
	}
	event := models.RunEvent{RunID: runID, Stage: stage, Message: message, Time: s.now().UTC()}
	if err != nil {
		event.Error = err.Error()
	}
	s.events.Publish(models.RunTopic(runID), event)
}

func expandDate(path, date string) string {
	return strings.ReplaceAll(path, "{date}", date)
}
