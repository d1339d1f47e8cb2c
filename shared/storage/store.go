// Package storage persists tutorial records and applies the ingestion upsert policy.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"tutorial-scraper/internal/models"
)

// Writer is the capability ingestion needs. Each call is atomic on its own.
type Writer interface {
	// Get returns models.ErrNotFound when no record has the id
	Get(ctx context.Context, videoID string) (models.TutorialRecord, error)
	// Insert stores a new record with every field as given
	Insert(ctx context.Context, rec models.TutorialRecord) error
	// Update overwrites the metadata and classification fields of an existing record
	// and its LastUpdated time; Watched, Favorite and FirstSeen are left alone
	Update(ctx context.Context, rec models.TutorialRecord) error
}

// Store is the full tutorial library: ingestion writes plus user-facing operations
type Store interface {
	Writer
	MarkWatched(ctx context.Context, videoID string, watched bool) error
	SetFavorite(ctx context.Context, videoID string, favorite bool) error
	Delete(ctx context.Context, videoID string) error
	List(ctx context.Context, f Filter) ([]models.TutorialRecord, error)
	Summary(ctx context.Context) (Summary, error)
	Close() error
}

// Order selects the sort order of List
type Order string

const (
	OrderViews  Order = "views"  // most viewed first
	OrderRecent Order = "recent" // most recently discovered first
)

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	Language      string
	Subject       string
	FavoritesOnly bool
	UnwatchedOnly bool
	// Text is a case-insensitive substring searched in title and description
	Text  string
	Order Order
	Limit int
}

func (f Filter) matches(rec models.TutorialRecord) bool {
	if f.Language != "" && (rec.Language == nil || *rec.Language != f.Language) {
		return false
	}
	if f.Subject != "" && (rec.Subject == nil || *rec.Subject != f.Subject) {
		return false
	}
	if f.FavoritesOnly && !rec.Favorite {
		return false
	}
	if f.UnwatchedOnly && rec.Watched {
		return false
	}
	if f.Text != "" {
		needle := strings.ToLower(f.Text)
		if !strings.Contains(strings.ToLower(rec.Title), needle) &&
			!strings.Contains(strings.ToLower(rec.Description), needle) {
			return false
		}
	}
	return true
}

// sortRecords orders records in place; ties fall back to video id so results are stable
func sortRecords(recs []models.TutorialRecord, order Order) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if order == OrderRecent {
			if !a.FirstSeen.Equal(b.FirstSeen) {
				return a.FirstSeen.After(b.FirstSeen)
			}
		} else if a.ViewCount != b.ViewCount {
			return a.ViewCount > b.ViewCount
		}
		return a.VideoID < b.VideoID
	})
}

// Summary counts stored tutorials per category
type Summary struct {
	Total      int            `json:"total"`
	Watched    int            `json:"watched"`
	Favorites  int            `json:"favorites"`
	ByLanguage map[string]int `json:"by_language"`
	BySubject  map[string]int `json:"by_subject"`
}

func newSummary() Summary {
	return Summary{ByLanguage: map[string]int{}, BySubject: map[string]int{}}
}

func (s *Summary) add(rec models.TutorialRecord) {
	s.Total++
	if rec.Watched {
		s.Watched++
	}
	if rec.Favorite {
		s.Favorites++
	}
	if rec.Language != nil {
		s.ByLanguage[*rec.Language]++
	}
	if rec.Subject != nil {
		s.BySubject[*rec.Subject]++
	}
}

// Open returns the store selected by driver ("sqlite" or "json") rooted at path
func Open(driver, path string) (Store, error) {
	switch driver {
	case "", "sqlite":
		return NewSQLiteStore(path)
	case "json":
		return NewFileStore(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}
