package services

import (
	"strings"
	"testing"
	"time"

	"arxiv_digest/internal/models"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedSample() []models.RankedPaper {
	papers := samplePapers()
	return []models.RankedPaper{
		{Paper: papers[1], Rank: 1, Justification: "Strong retrieval results."},
		{Paper: papers[0], Rank: 2, Justification: "Clear scaling story."},
	}
}

func TestCleanReportHTML(t *testing.T) {
	raw := "```html\n<!DOCTYPE html><html><head><title></title></head><body>" +
		`<h1>Top 10 AI Research Papers for 2025-03-12</h1><ol>` +
		`<li><a href="https://arxiv.org/abs/2503.00002">Retrieval Without Regret</a></li>` +
		`<li><a href="http://arxiv.org/abs/2503.00001v1" target="_self">Scaling Laws</a></li>` +
		`</ol></body></html>` + "\n```"

	out, err := CleanReportHTML(raw, "Top 10 AI Research Papers for 2025-03-12", rankedSample())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE html>"))
	assert.NotContains(t, out, "```")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "Top 10 AI Research Papers for 2025-03-12", doc.Find("title").Text())
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		target, _ := a.Attr("target")
		rel, _ := a.Attr("rel")
		assert.Equal(t, "_blank", target)
		assert.Equal(t, "noopener noreferrer", rel)
	})
}

func TestCleanReportHTML_AddsMissingTitle(t *testing.T) {
	out, err := CleanReportHTML(`<ul><li><a href="https://example.org">Blog</a></li></ul>`, "Top 10 & more", nil)
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "Top 10 & more", doc.Find("head title").Text())
	assert.Equal(t, 1, doc.Find(`a[target="_blank"]`).Length())
}

func TestCleanReportHTML_Rejects(t *testing.T) {
	_, err := CleanReportHTML("Here are the top papers: 1. Foo 2. Bar", "t", nil)
	assert.ErrorIs(t, err, ErrNotHTML)

	_, err = CleanReportHTML("<html><body><p>No links</p></body></html>", "t", nil)
	assert.ErrorIs(t, err, ErrNotHTML)

	_, err = CleanReportHTML(`<html><body><a href="https://arxiv.org/abs/2401.99999">Invented</a></body></html>`, "t", rankedSample())
	require.ErrorIs(t, err, ErrUnknownPapers)
	assert.Contains(t, err.Error(), "2401.99999")
}

func TestRenderTemplateReport(t *testing.T) {
	ranked := rankedSample()
	ranked[0].Title = "Retrieval <Without> Regret"

	out, err := RenderTemplateReport(ReportTitle(10, "2025-03-12"), ranked, time.Date(2025, 3, 13, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "Top 10 AI Research Papers for 2025-03-12", doc.Find("title").Text())
	assert.Equal(t, "Top 10 AI Research Papers for 2025-03-12", doc.Find("h1").Text())

	items := doc.Find("ol > li")
	require.Equal(t, 2, items.Length())

	first := items.First()
	link := first.Find("a")
	href, _ := link.Attr("href")
	target, _ := link.Attr("target")
	assert.Equal(t, "http://arxiv.org/abs/2503.00002v2", href)
	assert.Equal(t, "_blank", target)
	assert.Equal(t, "Retrieval <Without> Regret", link.Text())
	assert.Equal(t, "Grace Hopper", first.Find(".authors").Text())

	second := items.Eq(1)
	assert.Equal(t, "Ada Lovelace, Alan Turing", second.Find(".authors").Text())
	assert.Equal(t, "We study tiny transformers. They scale. We show why.", second.Find(".summary").Text())
	assert.Contains(t, out, "Generated 2025-03-13 08:00 UTC")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "One. Two!", Summarize("One. Two! Three? Four.", 2))
	assert.Equal(t, "Version 2.5 works. Done.", Summarize("Version 2.5 works.\n Done. Extra.", 2))
	assert.Equal(t, "No terminator", Summarize("No terminator", 3))
}
