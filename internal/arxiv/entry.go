package arxiv

import (
	"regexp"
	"strconv"
	"strings"

	"arxiv_digest/internal/models"

	"github.com/mmcdole/gofeed/atom"
)

var idPattern = regexp.MustCompile(`(?i)(\d{4}\.\d{4,5}|[a-z\-]+(?:\.[a-z]{2})?/\d{7})(v\d+)?`)

func paperFromEntry(entry *atom.Entry) models.Paper {
	p := models.Paper{
		ArxivID:  idFromEntryURL(entry.ID),
		Title:    collapse(entry.Title),
		Abstract: collapse(entry.Summary),
		URL:      entry.ID,
	}
	if entry.PublishedParsed != nil {
		p.Published = entry.PublishedParsed.UTC()
	}
	for _, author := range entry.Authors {
		if author != nil && author.Name != "" {
			p.Authors = append(p.Authors, collapse(author.Name))
		}
	}
	for _, category := range entry.Categories {
		if category != nil && category.Term != "" {
			p.Categories = append(p.Categories, category.Term)
		}
	}
	for _, link := range entry.Links {
		if link == nil {
			continue
		}
		switch {
		case link.Title == "pdf" && p.PDFURL == "":
			p.PDFURL = link.Href
		case link.Rel == "alternate" && p.URL == "":
			p.URL = link.Href
		}
	}
	return p
}

// idFromEntryURL turns "http://arxiv.org/abs/2503.01234v2" into "2503.01234v2".
// Old-style identifiers keep their archive prefix ("hep-th/9901001v1").
func idFromEntryURL(entryURL string) string {
	if i := strings.Index(entryURL, "/abs/"); i >= 0 {
		return entryURL[i+len("/abs/"):]
	}
	return entryURL
}

// BaseID extracts an arXiv identifier without its version suffix from an ID
// or an abs/pdf URL. It returns "" when none is present.
func BaseID(s string) string {
	m := idPattern.FindStringSubmatch(s)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func isErrorEntry(entry *atom.Entry) bool {
	return strings.Contains(entry.ID, "/api/errors")
}

func totalResults(feed *atom.Feed) int {
	values, ok := feed.Extensions["opensearch"]["totalResults"]
	if !ok || len(values) == 0 {
		return -1
	}
	n, err := strconv.Atoi(strings.TrimSpace(values[0].Value))
	if err != nil {
		return -1
	}
	return n
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
