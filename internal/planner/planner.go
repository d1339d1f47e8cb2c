// Package planner turns the configured categories into the ordered list of search queries for a run.
package planner

import (
	"iter"

	"tutorial-scraper/internal/models"
)

// Plan yields one query per configured category, languages first, each in configured order.
// Nothing is computed until the sequence is ranged over.
func Plan(languages, subjects []string, recency models.Recency) iter.Seq[models.Query] {
	return func(yield func(models.Query) bool) {
		for _, lang := range languages {
			if !yield(models.Query{Category: lang, Kind: models.KindLanguage, Recency: recency}) {
				return
			}
		}
		for _, subj := range subjects {
			if !yield(models.Query{Category: subj, Kind: models.KindSubject, Recency: recency}) {
				return
			}
		}
	}
}

// Count is the number of queries Plan yields
func Count(languages, subjects []string) int {
	return len(languages) + len(subjects)
}
