package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"arxiv_digest/internal/models"
)

var ErrNoPapers = errors.New("no papers found for the requested date")

// FetchArxivPapersTool hands the researcher every paper submitted on the target
// date. The fetched records are kept so the ranking can be checked against them.
type FetchArxivPapersTool struct {
	fetcher    PaperFetcher
	categories []string
	papers     []models.Paper
}

func NewFetchArxivPapersTool(fetcher PaperFetcher, categories []string) *FetchArxivPapersTool {
	return &FetchArxivPapersTool{fetcher: fetcher, categories: categories}
}

func (t *FetchArxivPapersTool) Name() string { return "fetch_arxiv_papers" }

func (t *FetchArxivPapersTool) Description() string {
	return fmt.Sprintf("Fetches all ArXiv papers from the selected AI categories (%s) submitted on the target date.", strings.Join(t.categories, ", "))
}

func (t *FetchArxivPapersTool) Run(ctx context.Context, inputs map[string]string) (string, error) {
	date := inputs["date"]
	papers, err := t.fetcher.FetchPapers(ctx, date, t.categories)
	if err != nil {
		return "", err
	}
	if len(papers) == 0 {
		return "", fmt.Errorf("%w: %s (%s)", ErrNoPapers, date, strings.Join(t.categories, ", "))
	}
	t.papers = papers
	return FormatPaperList(papers), nil
}

// Papers returns what the last Run fetched.
func (t *FetchArxivPapersTool) Papers() []models.Paper {
	return t.papers
}

func FormatPaperList(papers []models.Paper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d papers fetched.\n\n", len(papers))
	for i, p := range papers {
		fmt.Fprintf(&b, "[%d] arxiv_id: %s\n", i+1, p.ArxivID)
		fmt.Fprintf(&b, "Title: %s\n", p.Title)
		fmt.Fprintf(&b, "Authors: %s\n", p.AuthorsCSV())
		if !p.Published.IsZero() {
			fmt.Fprintf(&b, "Published: %s\n", p.Published.Format("2006-01-02 15:04 MST"))
		}
		fmt.Fprintf(&b, "URL: %s\n", p.URL)
		fmt.Fprintf(&b, "Abstract: %s\n\n", p.Abstract)
	}
	return b.String()
}
