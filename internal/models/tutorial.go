package models

import (
	"fmt"
	"strings"
	"time"
)

// CategoryKind tells whether a search category is a programming language or a subject
type CategoryKind string

const (
	KindLanguage CategoryKind = "language"
	KindSubject  CategoryKind = "subject"
)

// Recency is the upload-date filter applied to searches
type Recency string

const (
	RecencyAny   Recency = "any"
	RecencyHour  Recency = "hour"
	RecencyToday Recency = "today"
	RecencyWeek  Recency = "week"
	RecencyMonth Recency = "month"
	RecencyYear  Recency = "year"
)

// Valid reports whether r is one of the known upload-date filters
func (r Recency) Valid() bool {
	switch r {
	case RecencyAny, RecencyHour, RecencyToday, RecencyWeek, RecencyMonth, RecencyYear:
		return true
	}
	return false
}

// PublishedAfter returns the lower bound for upload time relative to now.
// Unknown values behave like "any".
func (r Recency) PublishedAfter(now time.Time) time.Time {
	switch r {
	case RecencyHour:
		return now.Add(-time.Hour)
	case RecencyToday:
		return now.AddDate(0, 0, -1)
	case RecencyWeek:
		return now.AddDate(0, 0, -7)
	case RecencyMonth:
		return now.AddDate(0, 0, -30)
	case RecencyYear:
		return now.AddDate(0, 0, -365)
	default:
		return now.AddDate(-10, 0, 0)
	}
}

// Query is a single search request produced by the planner
type Query struct {
	Category  string       `json:"category"`
	Kind      CategoryKind `json:"kind"`
	Recency   Recency      `json:"recency"`
	PageToken string       `json:"page_token,omitempty"`
}

// Text returns the free-text search string sent to the platform
func (q Query) Text() string {
	if q.Kind == KindLanguage {
		return fmt.Sprintf("%s programming tutorial", q.Category)
	}
	return fmt.Sprintf("%s tutorial", q.Category)
}

func (q Query) String() string {
	return fmt.Sprintf("%s:%s", q.Kind, q.Category)
}

// CandidateSummary is a search hit, only used to request details
type CandidateSummary struct {
	VideoID      string    `json:"video_id"`
	Title        string    `json:"title"`
	ChannelTitle string    `json:"channel_title"`
	PublishedAt  time.Time `json:"published_at"`
}

// VideoDetail is a snapshot of a video's remote metadata at fetch time
type VideoDetail struct {
	VideoID         string    `json:"video_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	ChannelTitle    string    `json:"channel_title"`
	ChannelID       string    `json:"channel_id"`
	DurationSeconds int       `json:"duration_seconds"`
	ViewCount       int64     `json:"view_count"`
	LikeCount       int64     `json:"like_count"`
	PublishedAt     time.Time `json:"published_at"`
	ThumbnailURL    string    `json:"thumbnail_url"`
}

// URL returns the watch page for the video
func (v VideoDetail) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", v.VideoID)
}

// Classification is derived from a VideoDetail's text fields and duration only
type Classification struct {
	Language         *string `json:"programming_language"`
	Subject          *string `json:"subject"`
	IsShort          bool    `json:"is_short"`
	IsExcludedRegion bool    `json:"is_excluded_region"`
}

// LanguageName returns the matched language or "" when unclassified
func (c Classification) LanguageName() string {
	if c.Language == nil {
		return ""
	}
	return *c.Language
}

// SubjectName returns the matched subject or "" when unclassified
func (c Classification) SubjectName() string {
	if c.Subject == nil {
		return ""
	}
	return *c.Subject
}

// MaxDescriptionLength caps stored descriptions
const MaxDescriptionLength = 500

// TutorialRecord is the persisted form of a classified video.
// Watched, Favorite and FirstSeen belong to the user and are never touched by ingestion.
type TutorialRecord struct {
	VideoDetail
	Language    *string   `json:"programming_language"`
	Subject     *string   `json:"subject"`
	Watched     bool      `json:"is_watched"`
	Favorite    bool      `json:"is_favorite"`
	FirstSeen   time.Time `json:"first_seen"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewTutorialRecord builds the ingestion-owned part of a record
func NewTutorialRecord(detail VideoDetail, c Classification) TutorialRecord {
	detail.Description = truncate(detail.Description, MaxDescriptionLength)
	return TutorialRecord{
		VideoDetail: detail,
		Language:    c.Language,
		Subject:     c.Subject,
	}
}

// ApplyMetadata overwrites the ingestion-owned fields of r with those of src
func (r *TutorialRecord) ApplyMetadata(src TutorialRecord, now time.Time) {
	r.VideoDetail = src.VideoDetail
	r.Language = src.Language
	r.Subject = src.Subject
	r.LastUpdated = now
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}
