package models

import (
	"strings"
	"time"
)

// Paper is one arXiv entry as returned by the metadata API.
type Paper struct {
	ArxivID    string    `json:"arxiv_id"`
	Title      string    `json:"title"`
	Authors    []string  `json:"authors"`
	Abstract   string    `json:"abstract"`
	Published  time.Time `json:"published"`
	URL        string    `json:"url"`
	PDFURL     string    `json:"pdf_url,omitempty"`
	Categories []string  `json:"categories,omitempty"`
}

func (p Paper) AuthorsCSV() string {
	return strings.Join(p.Authors, ", ")
}

// RankedPaper is a fetched paper selected by the researcher, with its position
// in the ranking and the reason it was picked.
type RankedPaper struct {
	Paper
	Rank          int    `json:"rank"`
	Justification string `json:"justification"`
}
