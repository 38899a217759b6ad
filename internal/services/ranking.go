package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"arxiv_digest/internal/arxiv"
	"arxiv_digest/internal/models"
)

var ErrEmptyRanking = errors.New("ranking contains none of the fetched papers")

type rankingEntry struct {
	ArxivID       string          `json:"arxiv_id"`
	Title         string          `json:"title"`
	Authors       json.RawMessage `json:"authors,omitempty"`
	URL           string          `json:"url"`
	Justification string          `json:"justification"`
}

type rankingResponse struct {
	Papers []rankingEntry `json:"papers"`
}

var fencePattern = regexp.MustCompile("(?s)^\\s*```[a-zA-Z]*\\s*\n(.*?)\n?```\\s*$")

// ParseRanking reads the researcher's JSON answer and reconciles it with the
// fetched papers: unknown and repeated entries are dropped, bibliographic fields
// come from the fetched record, and at most topN entries are kept.
func ParseRanking(raw string, fetched []models.Paper, topN int) ([]models.RankedPaper, error) {
	entries, err := decodeRanking(raw)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]int, len(fetched))
	byTitle := make(map[string]int, len(fetched))
	for i, p := range fetched {
		byID[arxiv.BaseID(p.ArxivID)] = i
		byTitle[normalizeTitle(p.Title)] = i
	}

	// An entry that names an ID is matched by ID only. The title is used
	// for entries that carry neither an ID nor a URL.
	lookup := func(e rankingEntry) (int, bool) {
		for _, candidate := range []string{e.ArxivID, e.URL} {
			if id := arxiv.BaseID(candidate); id != "" {
				if i, ok := byID[id]; ok {
					return i, true
				}
			}
		}
		if strings.TrimSpace(e.ArxivID) != "" || strings.TrimSpace(e.URL) != "" {
			return 0, false
		}
		i, ok := byTitle[normalizeTitle(e.Title)]
		return i, ok && e.Title != ""
	}

	used := make(map[int]bool)
	var ranked []models.RankedPaper
	for _, e := range entries {
		if topN > 0 && len(ranked) >= topN {
			break
		}
		i, ok := lookup(e)
		if !ok || used[i] {
			continue
		}
		used[i] = true
		ranked = append(ranked, models.RankedPaper{
			Paper:         fetched[i],
			Rank:          len(ranked) + 1,
			Justification: strings.TrimSpace(e.Justification),
		})
	}

	if len(ranked) == 0 {
		return nil, ErrEmptyRanking
	}
	return ranked, nil
}

func decodeRanking(raw string) ([]rankingEntry, error) {
	body := StripCodeFence(raw)

	var resp rankingResponse
	objErr := json.Unmarshal([]byte(body), &resp)
	if objErr == nil && resp.Papers != nil {
		return resp.Papers, nil
	}

	var list []rankingEntry
	if err := json.Unmarshal([]byte(body), &list); err == nil {
		return list, nil
	}

	// Some models wrap the object in prose.
	if start, end := strings.Index(body, "{"), strings.LastIndex(body, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(body[start:end+1]), &resp); err == nil && resp.Papers != nil {
			return resp.Papers, nil
		}
	}

	if objErr == nil {
		objErr = errors.New(`missing "papers" list`)
	}
	return nil, fmt.Errorf("failed to parse ranking: %w", objErr)
}

// MarshalRanking renders the reconciled ranking as the JSON handed to the
// report step.
func MarshalRanking(ranked []models.RankedPaper) (string, error) {
	type entry struct {
		Rank          int      `json:"rank"`
		ArxivID       string   `json:"arxiv_id"`
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Abstract      string   `json:"abstract"`
		URL           string   `json:"url"`
		Justification string   `json:"justification"`
	}
	out := struct {
		Papers []entry `json:"papers"`
	}{Papers: make([]entry, 0, len(ranked))}
	for _, r := range ranked {
		out.Papers = append(out.Papers, entry{
			Rank:          r.Rank,
			ArxivID:       r.ArxivID,
			Title:         r.Title,
			Authors:       r.Authors,
			Abstract:      r.Abstract,
			URL:           r.URL,
			Justification: r.Justification,
		})
	}
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StripCodeFence removes a surrounding Markdown code fence, if any.
func StripCodeFence(s string) string {
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(s)
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
