package planner

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"tutorial-scraper/internal/models"
)

func TestPlanOrder(t *testing.T) {
	got := slices.Collect(Plan([]string{"Python", "Go"}, []string{"Docker", "GraphQL"}, models.RecencyMonth))

	want := []models.Query{
		{Category: "Python", Kind: models.KindLanguage, Recency: models.RecencyMonth},
		{Category: "Go", Kind: models.KindLanguage, Recency: models.RecencyMonth},
		{Category: "Docker", Kind: models.KindSubject, Recency: models.RecencyMonth},
		{Category: "GraphQL", Kind: models.KindSubject, Recency: models.RecencyMonth},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Plan() mismatch (-want +got):\n%s", diff)
	}
}

func TestPlanDeterministic(t *testing.T) {
	langs := []string{"Rust", "Java", "SQL"}
	subjects := []string{"Algorithms"}

	first := slices.Collect(Plan(langs, subjects, models.RecencyWeek))
	second := slices.Collect(Plan(langs, subjects, models.RecencyWeek))
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Plan() not deterministic (-first +second):\n%s", diff)
	}
	if len(first) != Count(langs, subjects) {
		t.Errorf("Count() = %d, want %d", Count(langs, subjects), len(first))
	}
}

func TestPlanEmpty(t *testing.T) {
	got := slices.Collect(Plan(nil, nil, models.RecencyAny))
	if len(got) != 0 {
		t.Errorf("Plan(nil, nil) yielded %d queries, want 0", len(got))
	}
}

func TestPlanStopsEarly(t *testing.T) {
	var seen []string
	for q := range Plan([]string{"Python", "Go", "Rust"}, []string{"DevOps"}, models.RecencyAny) {
		seen = append(seen, q.Category)
		if len(seen) == 2 {
			break
		}
	}
	if diff := cmp.Diff([]string{"Python", "Go"}, seen); diff != "" {
		t.Errorf("early break mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryText(t *testing.T) {
	tests := []struct {
		name     string
		query    models.Query
		expected string
	}{
		{"Language", models.Query{Category: "Python", Kind: models.KindLanguage}, "Python programming tutorial"},
		{"Subject", models.Query{Category: "System Design", Kind: models.KindSubject}, "System Design tutorial"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Text(); got != tt.expected {
				t.Errorf("Text() = %q, want %q", got, tt.expected)
			}
		})
	}
}
