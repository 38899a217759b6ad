package services

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/llm"
	"arxiv_digest/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const rankingJSON = `{"papers": [
	{"arxiv_id": "2503.00002v2", "title": "Retrieval Without Regret", "url": "http://arxiv.org/abs/2503.00002v2", "justification": "Strong retrieval results."},
	{"arxiv_id": "2411.11111v1", "title": "Not fetched", "justification": "Invented."},
	{"arxiv_id": "2503.00001v1", "title": "Scaling Laws for Tiny Transformers", "url": "http://arxiv.org/abs/2503.00001v1", "justification": "Clear scaling story."}
]}`

const reportHTML = "```html\n<!DOCTYPE html><html><head><title>Top 10 AI Research Papers for 2025-03-12</title></head><body>" +
	"<h1>Top 10 AI Research Papers for 2025-03-12</h1><ol>" +
	`<li><a href="http://arxiv.org/abs/2503.00002v2">Retrieval Without Regret</a><p>Grace Hopper</p><p>Retrieval helps.</p></li>` +
	`<li><a href="http://arxiv.org/abs/2503.00001v1">Scaling Laws for Tiny Transformers</a><p>Ada Lovelace, Alan Turing</p><p>They scale.</p></li>` +
	"</ol></body></html>\n```"

func researchPrompt() interface{} {
	return mock.MatchedBy(func(p llm.Prompt) bool {
		return p.JSON && strings.Contains(p.System, "Senior AI Researcher")
	})
}

func reportingPrompt() interface{} {
	return mock.MatchedBy(func(p llm.Prompt) bool {
		return !p.JSON && strings.Contains(p.System, "Senior Frontend Engineer")
	})
}

func fixedNow() time.Time {
	return time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC)
}

func TestDigestService_Run_LLMRenderer(t *testing.T) {
	dir := t.TempDir()
	fetcher := new(MockPaperFetcher)
	gen := new(MockGenerator)
	reportDB := new(MockReportServiceDB)
	cloud := new(MockCloudStorageManager)
	events := &recordingPublisher{}

	categories := []string{"cs.CL", "cs.AI"}
	fetcher.On("FetchPapers", mock.Anything, "2025-03-12", categories).Return(samplePapers(), nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool {
		return p.JSON &&
			strings.Contains(p.System, "top 10 most significant ArXiv papers published on 2025-03-12") &&
			strings.Contains(p.User, "3 papers fetched.") &&
			strings.Contains(p.User, "arxiv_id: 2503.00003v1")
	})).Return(rankingJSON, nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool {
		return !p.JSON &&
			strings.Contains(p.User, "titled 'Top 10 AI Research Papers for 2025-03-12'") &&
			strings.Contains(p.User, `"rank": 2`) &&
			!strings.Contains(p.User, "2411.11111")
	})).Return(reportHTML, nil).Once()
	reportDB.On("CreateReportDB", mock.MatchedBy(func(r *models.Report) bool {
		return r.Date == "2025-03-12" &&
			r.Categories == "cs.CL,cs.AI" &&
			r.Provider == "mock" &&
			r.Model == "mock-model" &&
			r.Fetched == 3 &&
			len(r.Papers) == 2 &&
			r.Papers[0].ArxivID == "2503.00002v2" &&
			r.Papers[1].Authors == "Ada Lovelace, Alan Turing" &&
			strings.Contains(r.HTML, `target="_blank"`)
	})).Return(nil).Once()
	cloud.On("UploadFile", mock.Anything, "digest-bucket", "reports/2025-03-12/report.html", "text/html; charset=utf-8", mock.Anything).Return(nil).Once()

	svc := NewDigestService(fetcher, gen, NewExportService(), reportDB, cloud, "digest-bucket", DigestOptions{
		Categories: categories,
		TopN:       10,
		Renderer:   RendererLLM,
	}, zerolog.Nop())
	svc.SetEventPublisher(events)
	svc.now = fixedNow

	runID := uuid.New()
	result, err := svc.Run(context.Background(), RunRequest{
		RunID: runID,
		Date:  "2025-03-12",
		DigestOptions: DigestOptions{
			OutputFile: filepath.Join(dir, "report.html"),
			BibTeXFile: filepath.Join(dir, "{date}.bib"),
		},
	})
	require.NoError(t, err)

	assert.Equal(t, runID, result.RunID)
	assert.Equal(t, 3, result.Fetched)
	require.Len(t, result.Ranked, 2)
	assert.Equal(t, "2503.00002v2", result.Ranked[0].ArxivID)
	assert.Equal(t, 2, result.Ranked[1].Rank)
	assert.Equal(t, "reports/2025-03-12/report.html", result.PublishedObject)

	written, err := os.ReadFile(filepath.Join(dir, "report.html"))
	require.NoError(t, err)
	assert.Equal(t, result.HTML, string(written))
	assert.NotContains(t, result.HTML, "```")
	assert.Contains(t, result.HTML, `rel="noopener noreferrer"`)

	_, err = os.Stat(filepath.Join(dir, "2025-03-12.bib"))
	assert.NoError(t, err)

	assert.Equal(t, []models.RunStage{
		models.StageStarted,
		models.StageFetching,
		models.StageRanking,
		models.StageRendering,
		models.StageWriting,
		models.StagePublished,
		models.StageCompleted,
	}, events.stages())
	for _, topic := range events.topics {
		assert.Equal(t, models.RunTopic(runID.String()), topic)
	}

	fetcher.AssertExpectations(t)
	gen.AssertExpectations(t)
	reportDB.AssertExpectations(t)
	cloud.AssertExpectations(t)
}

func TestDigestService_Run_TemplateRenderer(t *testing.T) {
	dir := t.TempDir()
	fetcher := new(MockPaperFetcher)
	gen := new(MockGenerator)

	fetcher.On("FetchPapers", mock.Anything, "2025-03-12", []string{"cs.CL"}).Return(samplePapers(), nil).Once()
	gen.On("Generate", mock.Anything, researchPrompt()).Return(rankingJSON, nil).Once()

	svc := NewDigestService(fetcher, gen, NewExportService(), nil, nil, "", DigestOptions{}, zerolog.Nop())
	svc.now = fixedNow

	result, err := svc.Run(context.Background(), RunRequest{
		Date: "2025-03-12",
		DigestOptions: DigestOptions{
			TopN:       1,
			Renderer:   RendererTemplate,
			OutputFile: filepath.Join(dir, "out", "{date}.html"),
			PDFFile:    filepath.Join(dir, "out", "digest.pdf"),
		},
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, result.RunID)
	require.Len(t, result.Ranked, 1)
	assert.Equal(t, filepath.Join(dir, "out", "2025-03-12.html"), result.OutputFile)
	assert.Contains(t, result.HTML, "<title>Top 1 AI Research Papers for 2025-03-12</title>")
	assert.Contains(t, result.HTML, "Retrieval Without Regret")
	assert.NotContains(t, result.HTML, "Scaling Laws for Tiny Transformers")
	assert.Empty(t, result.PublishedObject)

	_, err = os.Stat(result.OutputFile)
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "out", "digest.pdf"))
	assert.NoError(t, err)

	gen.AssertNumberOfCalls(t, "Generate", 1)
	gen.AssertNotCalled(t, "Generate", mock.Anything, reportingPrompt())
}

func TestDigestService_Run_RetriesUnusableRanking(t *testing.T) {
	fetcher := new(MockPaperFetcher)
	gen := new(MockGenerator)

	fetcher.On("FetchPapers", mock.Anything, "2025-03-12", []string{"cs.CL"}).Return(samplePapers(), nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool {
		return p.JSON && !strings.Contains(p.User, "rejected")
	})).Return(`{"papers": [{"arxiv_id": "0000.00000"}]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p llm.Prompt) bool {
		return p.JSON && strings.Contains(p.User, ErrEmptyRanking.Error())
	})).Return(rankingJSON, nil).Once()

	svc := NewDigestService(fetcher, gen, NewExportService(), nil, nil, "", DigestOptions{Renderer: RendererTemplate}, zerolog.Nop())
	result, err := svc.Run(context.Background(), RunRequest{Date: "2025-03-12"})
	require.NoError(t, err)
	assert.Len(t, result.Ranked, 2)
	assert.Empty(t, result.OutputFile)
	gen.AssertExpectations(t)
}

func TestDigestService_Run_NoPapers(t *testing.T) {
	fetcher := new(MockPaperFetcher)
	gen := new(MockGenerator)
	events := &recordingPublisher{}

	fetcher.On("FetchPapers", mock.Anything, "2025-03-15", []string{"cs.CL"}).Return([]models.Paper{}, nil).Once()

	svc := NewDigestService(fetcher, gen, NewExportService(), nil, nil, "", DigestOptions{}, zerolog.Nop())
	svc.SetEventPublisher(events)

	_, err := svc.Run(context.Background(), RunRequest{Date: "2025-03-15"})
	require.ErrorIs(t, err, ErrNoPapers)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)

	stages := events.stages()
	require.NotEmpty(t, stages)
	assert.Equal(t, models.StageFailed, stages[len(stages)-1])
	assert.NotEmpty(t, events.events[len(events.events)-1].Error)
}

func TestDigestService_Run_Validation(t *testing.T) {
	fetcher := new(MockPaperFetcher)
	gen := new(MockGenerator)
	svc := NewDigestService(fetcher, gen, NewExportService(), nil, nil, "", DigestOptions{}, zerolog.Nop())

	_, err := svc.Run(context.Background(), RunRequest{Date: "March 12"})
	assert.ErrorIs(t, err, arxiv.ErrInvalidDate)

	_, err = svc.Run(context.Background(), RunRequest{Date: "2025-03-12", DigestOptions: DigestOptions{Renderer: "markdown"}})
	assert.ErrorIs(t, err, ErrUnknownRenderer)

	noModel := NewDigestService(fetcher, nil, NewExportService(), nil, nil, "", DigestOptions{}, zerolog.Nop())
	_, err = noModel.Run(context.Background(), RunRequest{Date: "2025-03-12"})
	assert.ErrorIs(t, err, llm.ErrNoGenerator)

	fetcher.AssertNotCalled(t, "FetchPapers", mock.Anything, mock.Anything, mock.Anything)
}

func TestDigestService_MergeOptions(t *testing.T) {
	svc := NewDigestService(nil, nil, nil, nil, nil, "", DigestOptions{
		Categories: []string{"cs.LG"},
		OutputFile: DefaultOutputFile,
		HumanInput: true,
	}, zerolog.Nop())

	opts := svc.mergeOptions(DigestOptions{TopN: 5})
	assert.Equal(t, []string{"cs.LG"}, opts.Categories)
	assert.Equal(t, 5, opts.TopN)
	assert.Equal(t, DefaultOutputFile, opts.OutputFile)
	assert.Equal(t, RendererLLM, opts.Renderer)
	assert.True(t, opts.HumanInput)

	bare := NewDigestService(nil, nil, nil, nil, nil, "", DigestOptions{}, zerolog.Nop())
	opts = bare.mergeOptions(DigestOptions{})
	assert.Equal(t, []string{"cs.CL"}, opts.Categories)
	assert.Equal(t, DefaultTopN, opts.TopN)
}
