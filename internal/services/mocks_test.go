package services

import (
	"context"
	"io"
	"sync"
	"time"

	"arxiv_digest/internal/llm"
	"arxiv_digest/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockPaperFetcher struct {
	mock.Mock
}

func (m *MockPaperFetcher) FetchPapers(ctx context.Context, date string, categories []string) ([]models.Paper, error) {
	args := m.Called(ctx, date, categories)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Paper), args.Error(1)
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt llm.Prompt) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func (m *MockGenerator) Provider() string { return "mock" }

func (m *MockGenerator) Model() string { return "mock-model" }

type MockReportServiceDB struct {
	mock.Mock
}

func (m *MockReportServiceDB) CreateReportDB(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockReportServiceDB) GetReportDB(id uuid.UUID) (*models.Report, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Report), args.Error(1)
}

func (m *MockReportServiceDB) ListReportsDB(date string) ([]models.Report, error) {
	args := m.Called(date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Report), args.Error(1)
}

func (m *MockReportServiceDB) DeleteReportDB(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}

type MockCloudStorageManager struct {
	mock.Mock
}

func (m *MockCloudStorageManager) UploadFile(ctx context.Context, bucketName, objectName, contentType string, content io.Reader) error {
	args := m.Called(ctx, bucketName, objectName, contentType, content)
	return args.Error(0)
}

func (m *MockCloudStorageManager) ListFiles(ctx context.Context, bucketName, prefix string) ([]string, error) {
	args := m.Called(ctx, bucketName, prefix)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []models.RunEvent
}

func (p *recordingPublisher) Publish(topic string, msg interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, msg.(models.RunEvent))
}

func (p *recordingPublisher) stages() []models.RunStage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.RunStage
	for _, e := range p.events {
		out = append(out, e.Stage)
	}
	return out
}

func samplePapers() []models.Paper {
	published := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	return []models.Paper{
		{
			ArxivID:    "2503.00001v1",
			Title:      "Scaling Laws for Tiny Transformers",
			Authors:    []string{"Ada Lovelace", "Alan Turing"},
			Abstract:   "We study tiny transformers. They scale. We show why. A fourth sentence.",
			Published:  published,
			URL:        "http://arxiv.org/abs/2503.00001v1",
			PDFURL:     "http://arxiv.org/pdf/2503.00001v1",
			Categories: []string{"cs.CL"},
		},
		{
			ArxivID:    "2503.00002v2",
			Title:      "Retrieval Without Regret",
			Authors:    []string{"Grace Hopper"},
			Abstract:   "Retrieval helps language models.",
			Published:  published,
			URL:        "http://arxiv.org/abs/2503.00002v2",
			Categories: []string{"cs.CL", "cs.IR"},
		},
		{
			ArxivID:   "2503.00003v1",
			Title:     "A Benchmark for Everything",
			Authors:   []string{"Barbara Liskov"},
			Abstract:  "We propose a benchmark.",
			Published: published,
			URL:       "http://arxiv.org/abs/2503.00003v1",
		},
	}
}
