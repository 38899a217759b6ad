package arxiv

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"arxiv_digest/internal/models"

	"github.com/mmcdole/gofeed/atom"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL    = "http://export.arxiv.org/api/query"
	DefaultPageSize   = 100
	DefaultDelay      = 3 * time.Second
	DefaultMaxRetries = 3

	dateLayout  = "2006-01-02"
	queryLayout = "200601021504"
)

var (
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
	ErrAPI         = errors.New("arxiv api error")
)

type ClientConfig struct {
	BaseURL    string
	PageSize   int
	Delay      time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// Client pages through the arXiv query API. Consecutive requests are spaced by
// at least Delay, whatever category or page they belong to.
type Client struct {
	baseURL    string
	pageSize   int
	maxRetries int
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     zerolog.Logger
}

func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		pageSize:   cfg.PageSize,
		maxRetries: cfg.MaxRetries,
		httpClient: cfg.HTTPClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger.With().Str("component", "arxiv").Logger(),
	}
}

// ParseDate validates a YYYY-MM-DD string and returns midnight UTC of that day.
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t, nil
}

// SearchQuery builds the category and submission-window query for one day.
func SearchQuery(category string, day time.Time) string {
	start := day.Format(queryLayout)
	end := day.AddDate(0, 0, 1).Format(queryLayout)
	return fmt.Sprintf("cat:%s AND submittedDate:[%s TO %s]", category, start, end)
}

// FetchPapers returns every paper submitted on date in the given categories.
// Categories are queried in order and a paper listed in several of them is
// returned once, under the first category that produced it.
func (c *Client) FetchPapers(ctx context.Context, date string, categories []string) ([]models.Paper, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	// Keyed by base ID so a revised listing of a paper does not count twice.
	seen := make(map[string]struct{})
	var all []models.Paper
	for _, category := range categories {
		category = strings.TrimSpace(category)
		if category == "" {
			continue
		}
		c.logger.Info().Str("category", category).Str("date", date).Msg("Fetching papers")

		papers, err := c.Search(ctx, SearchQuery(category, day))
		if err != nil {
			return nil, fmt.Errorf("failed to fetch papers for category %s: %w", category, err)
		}

		added := 0
		for _, p := range papers {
			key := BaseID(p.ArxivID)
			if key == "" {
				key = p.ArxivID
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			all = append(all, p)
			added++
		}
		c.logger.Info().Str("category", category).Int("count", added).Msg("Fetched papers")
	}

	return all, nil
}

// Search runs a raw arXiv search query and follows pagination until the
// reported total is reached.
func (c *Client) Search(ctx context.Context, query string) ([]models.Paper, error) {
	var papers []models.Paper
	total := -1
	start := 0
	retries := 0

	for total < 0 || start < total {
		page, pageTotal, err := c.fetchPage(ctx, query, start)
		if err != nil {
			return nil, err
		}
		if pageTotal >= 0 {
			total = pageTotal
		}

		if len(page) == 0 {
			if total < 0 || start >= total || retries >= c.maxRetries {
				break
			}
			retries++
			c.logger.Warn().Int("start", start).Int("total", total).Int("retry", retries).Msg("Empty page before end of results, retrying")
			continue
		}
		retries = 0

		papers = append(papers, page...)
		start += len(page)

		if total < 0 && len(page) < c.pageSize {
			break
		}
	}

	return papers, nil
}

func (c *Client) fetchPage(ctx context.Context, query string, start int) ([]models.Paper, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	params := url.Values{}
	params.Set("search_query", query)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(c.pageSize))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	reqURL := c.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}

	c.logger.Debug().Str("url", reqURL).Msg("Requesting page")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query arxiv: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("%w: unexpected status code %d", ErrAPI, resp.StatusCode)
	}

	// One parser per page; a Client is shared by concurrent runs.
	parser := &atom.Parser{}
	feed, err := parser.Parse(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	papers := make([]models.Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if isErrorEntry(entry) {
			return nil, 0, fmt.Errorf("%w: %s", ErrAPI, collapse(entry.Summary))
		}
		papers = append(papers, paperFromEntry(entry))
	}

	return papers, totalResults(feed), nil
}
