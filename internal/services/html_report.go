package services

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrNotHTML       = errors.New("report is not an HTML document with linked papers")
	ErrUnknownPapers = errors.New("report links to papers outside the ranking")
)

// ReportTitle is the heading every report carries.
func ReportTitle(count int, date string) string {
	return fmt.Sprintf("Top %d AI Research Papers for %s", count, date)
}

// CleanReportHTML normalizes the frontend engineer's answer: code fences are
// stripped, every link opens in a new tab, and an empty <title> is filled in.
// When ranked is non-empty, links to arXiv papers must point into it.
func CleanReportHTML(raw, title string, ranked []models.RankedPaper) (string, error) {
	body := StripCodeFence(raw)
	if !strings.Contains(body, "<") {
		return "", ErrNotHTML
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse report HTML: %w", err)
	}

	links := doc.Find("a[href]")
	if links.Length() == 0 {
		return "", ErrNotHTML
	}

	allowed := make(map[string]bool, len(ranked))
	for _, r := range ranked {
		allowed[arxiv.BaseID(r.ArxivID)] = true
	}

	var unknown []string
	links.Each(func(_ int, a *goquery.Selection) {
		a.SetAttr("target", "_blank")
		a.SetAttr("rel", "noopener noreferrer")

		href, _ := a.Attr("href")
		if len(allowed) == 0 || !strings.Contains(href, "arxiv.org") {
			return
		}
		if id := arxiv.BaseID(href); id != "" && !allowed[id] {
			unknown = append(unknown, id)
		}
	})
	if len(unknown) > 0 {
		return "", fmt.Errorf("%w: %s", ErrUnknownPapers, strings.Join(unknown, ", "))
	}

	titleSel := doc.Find("head title")
	if titleSel.Length() == 0 {
		doc.Find("head").AppendHtml("<title>" + template.HTMLEscapeString(title) + "</title>")
	} else if strings.TrimSpace(titleSel.Text()) == "" {
		titleSel.SetText(title)
	}

	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render report HTML: %w", err)
	}
	if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(out)), "<!doctype") {
		out = "<!DOCTYPE html>\n" + out
	}
	return out, nil
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"join":      strings.Join,
	"summarize": func(s string) string { return Summarize(s, 3) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>
body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; max-width: 860px; margin: 2rem auto; padding: 0 1rem; color: #1f2933; background: #f7f9fb; }
h1 { font-size: 1.8rem; border-bottom: 2px solid #3b82f6; padding-bottom: .5rem; }
ol { padding-left: 1.2rem; }
li { background: #fff; border-radius: 8px; box-shadow: 0 1px 3px rgba(0,0,0,.08); margin: 1rem 0; padding: 1rem 1.25rem; }
li a { font-size: 1.15rem; font-weight: 600; color: #1d4ed8; text-decoration: none; }
li a:hover { text-decoration: underline; }
.authors { color: #52606d; font-size: .9rem; margin: .35rem 0; }
.why { font-style: italic; color: #3e4c59; font-size: .9rem; }
footer { color: #9aa5b1; font-size: .8rem; margin-top: 2rem; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<ol>
{{- range .Papers}}
<li>
<a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Title}}</a>
<p class="authors">{{join .Authors ", "}}</p>
<p class="summary">{{summarize .Abstract}}</p>
{{- if .Justification}}
<p class="why">{{.Justification}}</p>
{{- end}}
</li>
{{- end}}
</ol>
<footer>Generated {{.Generated.Format "2006-01-02 15:04 MST"}}</footer>
</body>
</html>
`))

// RenderTemplateReport renders the ranking without a model call.
func RenderTemplateReport(title string, ranked []models.RankedPaper, now time.Time) (string, error) {
	var buf bytes.Buffer
	err := reportTemplate.Execute(&buf, struct {
		Title     string
		Papers    []models.RankedPaper
		Generated time.Time
	}{
		Title:     title,
		Papers:    ranked,
		Generated: now.UTC(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// Summarize keeps the first n sentences of an abstract.
func Summarize(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if n <= 0 {
		return text
	}
	count := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' {
				count++
				if count == n {
					return text[:i+1]
				}
			}
		}
	}
	return text
}
