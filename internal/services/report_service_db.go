package services

import (
	"arxiv_digest/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DefaultReportService struct {
	db *gorm.DB
}

func NewReportServiceDB(db *gorm.DB) ReportServiceDB {
	return &DefaultReportService{db: db}
}

func (s *DefaultReportService) CreateReportDB(report *models.Report) error {
	return s.db.Create(report).Error
}

func (s *DefaultReportService) GetReportDB(id uuid.UUID) (*models.Report, error) {
	var report models.Report
	err := s.db.Preload("Papers", func(db *gorm.DB) *gorm.DB {
		return db.Order("rank ASC")
	}).Where("id = ?", id).First(&report).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReportsDB returns reports newest first, optionally limited to one date.
// Papers are not loaded.
func (s *DefaultReportService) ListReportsDB(date string) ([]models.Report, error) {
	var reports []models.Report
	query := s.db.Omit("html").Order("created_at DESC")
	if date != "" {
		query = query.Where("date = ?", date)
	}
	if err := query.Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *DefaultReportService) DeleteReportDB(id uuid.UUID) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("report_id = ?", id).Delete(&models.ReportPaper{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Report{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
