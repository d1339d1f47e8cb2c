package search

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"tutorial-scraper/internal/models"
)

// FakeAPI is an in-memory API for tests. Results are keyed by query
// text and split into pages of PageSize items.
type FakeAPI struct {
	mu sync.Mutex

	Results  map[string][]models.CandidateSummary
	Details  map[string]models.VideoDetail
	PageSize int

	// SearchErrs maps a 1-based search call number to the error it returns
	SearchErrs map[int]error
	// DetailErrs maps a 1-based detail call number to the error it returns
	DetailErrs map[int]error

	SearchCalls []PageRequest
	DetailCalls [][]string
}

// NewFakeAPI returns an empty fake with a page size of MaxPageSize
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		Results:    make(map[string][]models.CandidateSummary),
		Details:    make(map[string]models.VideoDetail),
		PageSize:   MaxPageSize,
		SearchErrs: make(map[int]error),
		DetailErrs: make(map[int]error),
	}
}

// AddVideo registers a detail record and lists it as a hit for the query text
func (f *FakeAPI) AddVideo(queryText string, detail models.VideoDetail) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Details[detail.VideoID] = detail
	f.Results[queryText] = append(f.Results[queryText], models.CandidateSummary{
		VideoID:      detail.VideoID,
		Title:        detail.Title,
		ChannelTitle: detail.ChannelTitle,
		PublishedAt:  detail.PublishedAt,
	})
}

// SearchPage implements API. Page tokens are stringified offsets.
func (f *FakeAPI) SearchPage(_ context.Context, req PageRequest) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.SearchCalls = append(f.SearchCalls, req)
	if err := f.SearchErrs[len(f.SearchCalls)]; err != nil {
		return Page{}, err
	}

	all := f.Results[req.Query]
	start := decodeToken(req.PageToken)
	if start >= len(all) {
		return Page{}, nil
	}

	size := f.PageSize
	if size <= 0 || size > int(req.MaxResults) {
		size = int(req.MaxResults)
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}

	page := Page{Items: append([]models.CandidateSummary(nil), all[start:end]...)}
	if end < len(all) {
		page.NextPageToken = encodeToken(end)
	}
	return page, nil
}

// Videos implements API
func (f *FakeAPI) Videos(_ context.Context, ids []string) ([]models.VideoDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.DetailCalls = append(f.DetailCalls, append([]string(nil), ids...))
	if err := f.DetailErrs[len(f.DetailCalls)]; err != nil {
		return nil, err
	}

	var out []models.VideoDetail
	for _, id := range ids {
		if d, ok := f.Details[id]; ok {
			out = append(out, d)
		}
	}
	return out, nil
}

func encodeToken(offset int) string {
	return "p" + strconv.Itoa(offset)
}

func decodeToken(token string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(token, "p"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
