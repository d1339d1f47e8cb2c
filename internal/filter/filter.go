// Package filter holds the pure predicates and the lexical classifier applied to every fetched video.
// Nothing here performs I/O; the same VideoDetail and Rules always produce the same result.
package filter

import (
	"strings"

	"tutorial-scraper/internal/models"
)

// DefaultMinDurationSeconds is the short-clip threshold used when none is configured
const DefaultMinDurationSeconds = 120

// Rules configures an Engine
type Rules struct {
	Languages          []string
	Subjects           []string
	ExcludedPatterns   []string
	MinDurationSeconds int
}

// IsShort reports whether the video is below the minimum duration
func IsShort(detail models.VideoDetail, minSeconds int) bool {
	return detail.DurationSeconds < minSeconds
}

// RegionMatcher flags videos aimed at an excluded regional-language audience
type RegionMatcher struct {
	patterns []term
}

// NewRegionMatcher compiles the configured phrase patterns
func NewRegionMatcher(patterns []string) *RegionMatcher {
	return &RegionMatcher{patterns: newTerms(patterns)}
}

// Excluded reports whether any pattern appears in the title, description or channel name
func (m *RegionMatcher) Excluded(detail models.VideoDetail) bool {
	_, ok := m.Match(detail)
	return ok
}

// Match returns the first pattern found, checking title, description then channel name
func (m *RegionMatcher) Match(detail models.VideoDetail) (string, bool) {
	if len(m.patterns) == 0 {
		return "", false
	}
	fields := []string{
		strings.ToLower(detail.Title),
		strings.ToLower(detail.Description),
		strings.ToLower(detail.ChannelTitle),
	}
	for _, field := range fields {
		for _, p := range m.patterns {
			if containsToken(field, p.needle) {
				return p.name, true
			}
		}
	}
	return "", false
}

// Classifier assigns the first matching configured language and subject.
// The title is searched before the description, and within a field the earliest
// configured entry wins. A video mentioning both "Python" and "Go" in its title is
// classified as whichever comes first in the configured list.
type Classifier struct {
	languages []term
	subjects  []term
}

// NewClassifier builds a classifier over the configured category lists
func NewClassifier(languages, subjects []string) *Classifier {
	return &Classifier{
		languages: newTerms(languages),
		subjects:  newTerms(subjects),
	}
}

// Classify never fails; dimensions without a match are left nil
func (c *Classifier) Classify(detail models.VideoDetail) (language, subject *string) {
	title := strings.ToLower(detail.Title)
	description := strings.ToLower(detail.Description)
	return firstMatch(c.languages, title, description), firstMatch(c.subjects, title, description)
}

func firstMatch(terms []term, title, description string) *string {
	for _, field := range []string{title, description} {
		for _, t := range terms {
			if containsToken(field, t.needle) {
				name := t.name
				return &name
			}
		}
	}
	return nil
}

// Engine chains the short-clip filter, the region filter and the classifier
type Engine struct {
	minDuration int
	region      *RegionMatcher
	classifier  *Classifier
}

// NewEngine builds an Engine; a non-positive threshold falls back to the default
func NewEngine(rules Rules) *Engine {
	minDuration := rules.MinDurationSeconds
	if minDuration <= 0 {
		minDuration = DefaultMinDurationSeconds
	}
	return &Engine{
		minDuration: minDuration,
		region:      NewRegionMatcher(rules.ExcludedPatterns),
		classifier:  NewClassifier(rules.Languages, rules.Subjects),
	}
}

// Evaluate runs the filters in order. A short video is not checked further;
// a region match is not classified.
func (e *Engine) Evaluate(detail models.VideoDetail) models.Classification {
	if IsShort(detail, e.minDuration) {
		return models.Classification{IsShort: true}
	}
	if e.region.Excluded(detail) {
		return models.Classification{IsExcludedRegion: true}
	}
	lang, subj := e.classifier.Classify(detail)
	return models.Classification{Language: lang, Subject: subj}
}
