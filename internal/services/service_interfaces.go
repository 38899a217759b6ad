package services

import (
	"context"
	"io"

	"arxiv_digest/internal/models"

	"github.com/google/uuid"
)

type PaperFetcher interface {
	FetchPapers(ctx context.Context, date string, categories []string) ([]models.Paper, error)
}

type ReportServiceDB interface {
	CreateReportDB(report *models.Report) error
	GetReportDB(id uuid.UUID) (*models.Report, error)
	ListReportsDB(date string) ([]models.Report, error)
	DeleteReportDB(id uuid.UUID) error
}

type CloudStorageManager interface {
	UploadFile(ctx context.Context, bucketName, objectName, contentType string, content io.Reader) error
	ListFiles(ctx context.Context, bucketName, prefix string) ([]string, error)
}

type EventPublisher interface {
	Publish(topic string, msg interface{})
}
