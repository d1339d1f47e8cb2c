package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecencyPublishedAfter(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		recency Recency
		want    time.Time
	}{
		{RecencyHour, time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC)},
		{RecencyToday, time.Date(2024, 3, 14, 12, 0, 0, 0, time.UTC)},
		{RecencyWeek, time.Date(2024, 3, 8, 12, 0, 0, 0, time.UTC)},
		{RecencyMonth, time.Date(2024, 2, 14, 12, 0, 0, 0, time.UTC)},
		{RecencyYear, time.Date(2023, 3, 16, 12, 0, 0, 0, time.UTC)},
		{RecencyAny, time.Date(2014, 3, 15, 12, 0, 0, 0, time.UTC)},
		{Recency("decade"), time.Date(2014, 3, 15, 12, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.recency), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.recency.PublishedAfter(now))
		})
	}
}

func TestRecencyValid(t *testing.T) {
	for _, r := range []Recency{RecencyAny, RecencyHour, RecencyToday, RecencyWeek, RecencyMonth, RecencyYear} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Recency("").Valid())
	assert.False(t, Recency("Week").Valid())
}

func TestQueryText(t *testing.T) {
	assert.Equal(t, "C++ programming tutorial", Query{Category: "C++", Kind: KindLanguage}.Text())
	assert.Equal(t, "System Design tutorial", Query{Category: "System Design", Kind: KindSubject}.Text())
	assert.Equal(t, "language:Go", Query{Category: "Go", Kind: KindLanguage}.String())
}

func TestNewTutorialRecordTruncatesDescription(t *testing.T) {
	lang := "Go"
	detail := VideoDetail{VideoID: "abc", Description: strings.Repeat("é", MaxDescriptionLength+20)}

	rec := NewTutorialRecord(detail, Classification{Language: &lang, IsShort: true})

	assert.Equal(t, MaxDescriptionLength, len([]rune(rec.Description)))
	assert.Equal(t, "Go", *rec.Language)
	assert.Nil(t, rec.Subject)
	assert.False(t, rec.Watched)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", rec.URL())

	short := NewTutorialRecord(VideoDetail{Description: "short"}, Classification{})
	assert.Equal(t, "short", short.Description)
}

func TestApplyMetadataKeepsUserFields(t *testing.T) {
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := first.Add(48 * time.Hour)
	rec := TutorialRecord{
		VideoDetail: VideoDetail{VideoID: "abc", Title: "old", ViewCount: 1},
		Watched:     true,
		Favorite:    true,
		FirstSeen:   first,
		LastUpdated: first,
	}

	subject := "Docker"
	rec.ApplyMetadata(NewTutorialRecord(VideoDetail{VideoID: "abc", Title: "new", ViewCount: 9}, Classification{Subject: &subject}), now)

	assert.Equal(t, "new", rec.Title)
	assert.Equal(t, int64(9), rec.ViewCount)
	assert.Equal(t, "Docker", *rec.Subject)
	assert.True(t, rec.Watched)
	assert.True(t, rec.Favorite)
	assert.Equal(t, first, rec.FirstSeen)
	assert.Equal(t, now, rec.LastUpdated)
}

func TestClassificationNames(t *testing.T) {
	lang := "Rust"
	c := Classification{Language: &lang}
	assert.Equal(t, "Rust", c.LanguageName())
	assert.Equal(t, "", c.SubjectName())
}

func TestErrors(t *testing.T) {
	cause := errors.New("connection reset")
	te := &TransientError{Op: "search.list", StatusCode: 503, Err: cause}
	wrapped := fmt.Errorf("query go: %w", te)

	assert.True(t, IsTransient(wrapped))
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, "search.list: transient remote error (status 503): connection reset", te.Error())
	assert.False(t, IsTransient(fmt.Errorf("x: %w", ErrQuotaExceeded)))

	se := &StorageWriteError{VideoID: "v1", Err: cause}
	assert.ErrorIs(t, se, cause)
	assert.Contains(t, se.Error(), "v1")

	ce := &ConfigError{Problems: []string{"a", "b"}}
	assert.Equal(t, "invalid ingestion configuration: a; b", ce.Error())
}

func TestRunReportSummary(t *testing.T) {
	start := time.Date(2024, 1, 1, 6, 0, 0, 0, time.UTC)
	r := RunReport{
		StartedAt:          start,
		FinishedAt:         start.Add(90 * time.Second),
		QueriesIssued:      3,
		CandidatesExamined: 40,
		Inserted:           5,
		Updated:            2,
		ExcludedShort:      4,
		ExcludedRegion:     1,
		QuotaUnits:         303,
	}

	assert.Equal(t, 90*time.Second, r.Duration())
	assert.Equal(t, "3 queries, examined 40 videos, 5 new, 2 updated, excluded 4 short and 1 region, 303 quota units", r.GetSummary())

	r.Halted = true
	r.HaltReason = HaltQuota
	r.QueriesAborted = 7
	assert.True(t, strings.HasSuffix(r.GetSummary(), "(halted: quota_exceeded, 7 queries aborted)"))

	assert.Zero(t, RunReport{StartedAt: start}.Duration())
}
