package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Report struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Date       string         `gorm:"type:varchar(10);index" json:"date"`
	Categories string         `json:"categories"`
	Provider   string         `json:"provider"`
	Model      string         `json:"model"`
	Fetched    int            `json:"fetched"`
	HTML       string         `gorm:"type:text" json:"-"`
	Papers     []ReportPaper  `gorm:"foreignKey:ReportID;constraint:OnDelete:CASCADE" json:"papers"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

type ReportPaper struct {
	gorm.Model
	ReportID      uuid.UUID `gorm:"type:uuid;index" json:"-"`
	Rank          int       `json:"rank"`
	ArxivID       string    `gorm:"type:varchar(32)" json:"arxiv_id"`
	Title         string    `json:"title"`
	Authors       string    `json:"authors"`
	URL           string    `json:"url"`
	Justification string    `json:"justification"`
}
