package services

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/models"

	"github.com/jung-kurt/gofpdf"
	"github.com/nickng/bibtex"
)

var citeKeyUnsafe = regexp.MustCompile(`[^A-Za-z0-9]`)

// ExportService writes the ranking in formats other than HTML.
type ExportService struct{}

func NewExportService() *ExportService {
	return &ExportService{}
}

// BibTeX returns one @misc entry per ranked paper, keyed by arXiv ID.
func (s *ExportService) BibTeX(ranked []models.RankedPaper) string {
	bib := bibtex.NewBibTex()
	for _, r := range ranked {
		entry := bibtex.NewBibEntry("misc", citeKey(r.Paper))
		entry.AddField("title", bibtex.NewBibConst(r.Title))
		entry.AddField("author", bibtex.NewBibConst(strings.Join(r.Authors, " and ")))
		if !r.Published.IsZero() {
			entry.AddField("year", bibtex.NewBibConst(r.Published.Format("2006")))
		}
		entry.AddField("eprint", bibtex.NewBibConst(arxiv.BaseID(r.ArxivID)))
		entry.AddField("archiveprefix", bibtex.NewBibConst("arXiv"))
		if len(r.Categories) > 0 {
			entry.AddField("primaryclass", bibtex.NewBibConst(r.Categories[0]))
		}
		entry.AddField("url", bibtex.NewBibConst(r.URL))
		if r.Justification != "" {
			entry.AddField("note", bibtex.NewBibConst(r.Justification))
		}
		bib.AddEntry(entry)
	}
	return bib.PrettyString()
}

func (s *ExportService) WriteBibTeX(path string, ranked []models.RankedPaper) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(s.BibTeX(ranked)), 0o644); err != nil {
		return fmt.Errorf("failed to write bibtex file: %w", err)
	}
	return nil
}

// WritePDF lays the ranking out as a printable digest.
func (s *ExportService) WritePDF(path, title string, ranked []models.RankedPaper) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 9, tr(title), "", "L", false)
	pdf.Ln(4)

	for _, r := range ranked {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.SetTextColor(29, 78, 216)
		pdf.WriteLinkString(6, tr(fmt.Sprintf("%d. %s", r.Rank, r.Title)), r.URL)
		pdf.Ln(7)

		pdf.SetTextColor(82, 96, 109)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.MultiCell(0, 5, tr(r.AuthorsCSV()), "", "L", false)

		pdf.SetTextColor(31, 41, 51)
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, tr(Summarize(r.Abstract, 3)), "", "L", false)
		if r.Justification != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, tr(r.Justification), "", "L", false)
		}
		pdf.Ln(4)
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf file: %w", err)
	}
	return nil
}

func citeKey(p models.Paper) string {
	return "arxiv_" + citeKeyUnsafe.ReplaceAllString(arxiv.BaseID(p.ArxivID), "_")
}

func ensureDir(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
