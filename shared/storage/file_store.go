package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/renameio/v2"

	"tutorial-scraper/internal/models"
)

// FileStore keeps the tutorial library in a single JSON file that is rewritten
// atomically after every change
type FileStore struct {
	filePath  string
	tutorials map[string]models.TutorialRecord
	mu        sync.RWMutex
}

// NewFileStore opens (or creates) the library file inside dataDir
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store := &FileStore{
		filePath:  filepath.Join(dataDir, "tutorials.json"),
		tutorials: make(map[string]models.TutorialRecord),
	}

	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load tutorial library: %w", err)
	}

	return store, nil
}

// Get returns the stored record for videoID
func (fs *FileStore) Get(_ context.Context, videoID string) (models.TutorialRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	rec, ok := fs.tutorials[videoID]
	if !ok {
		return models.TutorialRecord{}, models.ErrNotFound
	}
	return rec, nil
}

// Insert adds a new record; an existing id is an error
func (fs *FileStore) Insert(_ context.Context, rec models.TutorialRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, exists := fs.tutorials[rec.VideoID]; exists {
		return fmt.Errorf("tutorial %s already exists", rec.VideoID)
	}
	fs.tutorials[rec.VideoID] = rec
	if err := fs.save(); err != nil {
		delete(fs.tutorials, rec.VideoID)
		return err
	}
	return nil
}

// Update refreshes the ingestion-owned fields of an existing record
func (fs *FileStore) Update(_ context.Context, rec models.TutorialRecord) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	current, ok := fs.tutorials[rec.VideoID]
	if !ok {
		return models.ErrNotFound
	}
	updated := current
	updated.ApplyMetadata(rec, rec.LastUpdated)
	return fs.replace(rec.VideoID, current, updated)
}

// MarkWatched sets the watched flag
func (fs *FileStore) MarkWatched(_ context.Context, videoID string, watched bool) error {
	return fs.modify(videoID, func(rec *models.TutorialRecord) { rec.Watched = watched })
}

// SetFavorite sets the favorite flag
func (fs *FileStore) SetFavorite(_ context.Context, videoID string, favorite bool) error {
	return fs.modify(videoID, func(rec *models.TutorialRecord) { rec.Favorite = favorite })
}

// Delete removes a record
func (fs *FileStore) Delete(_ context.Context, videoID string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	previous, ok := fs.tutorials[videoID]
	if !ok {
		return models.ErrNotFound
	}
	delete(fs.tutorials, videoID)
	if err := fs.save(); err != nil {
		fs.tutorials[videoID] = previous
		return err
	}
	return nil
}

// List returns records matching f
func (fs *FileStore) List(_ context.Context, f Filter) ([]models.TutorialRecord, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var out []models.TutorialRecord
	for _, rec := range fs.tutorials {
		if f.matches(rec) {
			out = append(out, rec)
		}
	}
	sortRecords(out, f.Order)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Summary counts records per category
func (fs *FileStore) Summary(_ context.Context) (Summary, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	s := newSummary()
	for _, rec := range fs.tutorials {
		s.add(rec)
	}
	return s, nil
}

// Close is a no-op; every change is already on disk
func (fs *FileStore) Close() error {
	return nil
}

func (fs *FileStore) modify(videoID string, fn func(*models.TutorialRecord)) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	previous, ok := fs.tutorials[videoID]
	if !ok {
		return models.ErrNotFound
	}
	rec := previous
	fn(&rec)
	return fs.replace(videoID, previous, rec)
}

// replace swaps in next and restores previous when the file cannot be written.
// Callers hold the write lock.
func (fs *FileStore) replace(videoID string, previous, next models.TutorialRecord) error {
	fs.tutorials[videoID] = next
	if err := fs.save(); err != nil {
		fs.tutorials[videoID] = previous
		return err
	}
	return nil
}

// load reads the library from disk; a missing file is an empty library
func (fs *FileStore) load() error {
	file, err := os.Open(fs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open library file: %w", err)
	}
	defer file.Close()

	var records []models.TutorialRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return fmt.Errorf("failed to decode library: %w", err)
	}

	for _, rec := range records {
		fs.tutorials[rec.VideoID] = rec
	}
	return nil
}

// save writes the library sorted by id. Callers hold the write lock.
func (fs *FileStore) save() error {
	records := make([]models.TutorialRecord, 0, len(fs.tutorials))
	for _, rec := range fs.tutorials {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].VideoID < records[j].VideoID })

	pending, err := renameio.NewPendingFile(fs.filePath)
	if err != nil {
		return fmt.Errorf("failed to create pending library file: %w", err)
	}
	defer func() { _ = pending.Cleanup() }()

	encoder := json.NewEncoder(pending)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode library: %w", err)
	}

	return pending.CloseAtomicallyReplace()
}
