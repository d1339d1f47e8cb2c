package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tutorial-scraper/internal/models"
)

// Outcome is the result of an Upsert
type Outcome int

const (
	Inserted Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	default:
		return "unknown"
	}
}

// Upsert stores a classified video keyed by its id.
//
// A new id is inserted with FirstSeen and LastUpdated set to now and both user flags
// cleared. A known id gets its metadata and classification refreshed and LastUpdated
// bumped; the user's Watched and Favorite flags and the original FirstSeen survive.
//
// Concurrent calls for different ids are safe when w is; concurrent calls for the same
// id are not supported.
func Upsert(ctx context.Context, w Writer, detail models.VideoDetail, c models.Classification, now time.Time) (Outcome, error) {
	rec := models.NewTutorialRecord(detail, c)

	existing, err := w.Get(ctx, detail.VideoID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		rec.FirstSeen = now
		rec.LastUpdated = now
		rec.Watched = false
		rec.Favorite = false
		if err := w.Insert(ctx, rec); err != nil {
			return 0, fmt.Errorf("insert %s: %w", detail.VideoID, err)
		}
		return Inserted, nil
	case err != nil:
		return 0, fmt.Errorf("lookup %s: %w", detail.VideoID, err)
	}

	existing.ApplyMetadata(rec, now)
	if err := w.Update(ctx, existing); err != nil {
		return 0, fmt.Errorf("update %s: %w", detail.VideoID, err)
	}
	return Updated, nil
}
