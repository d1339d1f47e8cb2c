// Package search pages through the platform's search results and fetches per-video
// details while booking every call against the run's quota meter.
package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"tutorial-scraper/internal/models"
	"tutorial-scraper/shared/logger"
)

const (
	// MaxPageSize is the largest page the platform returns per search call
	MaxPageSize = 50
	// MaxBatchSize is the largest number of ids accepted per detail call
	MaxBatchSize = 50

	// DurationMedium asks the platform for medium-or-longer videos. Local
	// filtering remains authoritative.
	DurationMedium = "medium"

	DefaultMaxResults = 25
)

// PageRequest is one search call
type PageRequest struct {
	Query             string
	PublishedAfter    time.Time
	PageToken         string
	MaxResults        int64
	Duration          string
	RelevanceLanguage string
}

// Page is one page of search hits. An empty NextPageToken means no more results.
type Page struct {
	Items         []models.CandidateSummary
	NextPageToken string
}

// API is the host platform's search and detail capability.
// Implementations return models.ErrQuotaExceeded (wrapped) when the platform reports
// an exhausted quota and *models.TransientError for every other remote failure.
type API interface {
	SearchPage(ctx context.Context, req PageRequest) (Page, error)
	Videos(ctx context.Context, ids []string) ([]models.VideoDetail, error)
}

// Options configures a Client
type Options struct {
	MaxResults        int
	QuotaBudget       int
	RequestsPerSecond float64
	RelevanceLanguage string
	Now               func() time.Time
}

// Client is the per-run remote search client
type Client struct {
	api        API
	meter      *Meter
	limiter    *rate.Limiter
	maxResults int
	language   string
	now        func() time.Time
	log        zerolog.Logger
}

// NewClient wraps api with pagination, batching, pacing and quota accounting
func NewClient(api API, opts Options) *Client {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	lang := opts.RelevanceLanguage
	if lang == "" {
		lang = "en"
	}

	return &Client{
		api:        api,
		meter:      NewMeter(opts.QuotaBudget),
		limiter:    rate.NewLimiter(limit, 1),
		maxResults: maxResults,
		language:   lang,
		now:        now,
		log:        logger.WithComponent("search"),
	}
}

// Search returns up to MaxResults candidates for q, in the order the platform ranked them
func (c *Client) Search(ctx context.Context, q models.Query) ([]models.CandidateSummary, error) {
	var results []models.CandidateSummary
	pageToken := q.PageToken
	publishedAfter := q.Recency.PublishedAfter(c.now())

	for len(results) < c.maxResults {
		if err := c.acquire(ctx, SearchCost); err != nil {
			return results, err
		}

		size := c.maxResults - len(results)
		if size > MaxPageSize {
			size = MaxPageSize
		}

		page, err := c.api.SearchPage(ctx, PageRequest{
			Query:             q.Text(),
			PublishedAfter:    publishedAfter,
			PageToken:         pageToken,
			MaxResults:        int64(size),
			Duration:          DurationMedium,
			RelevanceLanguage: c.language,
		})
		if err != nil {
			return results, fmt.Errorf("search %q: %w", q.Text(), err)
		}

		results = append(results, page.Items...)
		c.log.Debug().Str("query", q.String()).Int("page_items", len(page.Items)).Int("total", len(results)).Msg("search page fetched")

		if page.NextPageToken == "" || len(page.Items) == 0 {
			break
		}
		pageToken = page.NextPageToken
	}

	if len(results) > c.maxResults {
		results = results[:c.maxResults]
	}
	return results, nil
}

// Detail fetches full metadata for ids in batches of MaxBatchSize.
// Ids the platform no longer knows are simply absent from the result.
func (c *Client) Detail(ctx context.Context, ids []string) (map[string]models.VideoDetail, error) {
	details := make(map[string]models.VideoDetail, len(ids))

	for i := 0; i < len(ids); i += MaxBatchSize {
		end := i + MaxBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		if err := c.acquire(ctx, DetailCost); err != nil {
			return details, err
		}

		videos, err := c.api.Videos(ctx, ids[i:end])
		if err != nil {
			return details, fmt.Errorf("video details for batch of %d: %w", end-i, err)
		}
		for _, v := range videos {
			details[v.VideoID] = v
		}
	}

	return details, nil
}

// UnitsUsed is the number of quota units booked by this client
func (c *Client) UnitsUsed() int {
	return c.meter.Used()
}

// UnitsRemaining is the unspent local budget, or -1 when no budget is set
func (c *Client) UnitsRemaining() int {
	return c.meter.Remaining()
}

// acquire waits for the pacing limiter and books the call's cost
func (c *Client) acquire(ctx context.Context, units int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		// the limiter refuses to wait past the context deadline
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return c.meter.Charge(units)
}
