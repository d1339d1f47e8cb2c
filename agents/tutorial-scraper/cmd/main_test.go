package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorial-scraper/internal/models"
	"tutorial-scraper/shared/config"
	"tutorial-scraper/shared/storage"
)

var fixedTime = time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)

func commandConfig(t *testing.T) *config.Config {
	return &config.Config{
		YouTube:  config.YouTubeConfig{AuthMode: config.AuthAPIKey, APIKey: "test-key"},
		Scraper:  config.ScraperConfig{MinDurationSeconds: 120, MaxResultsPerQuery: 25, UploadDateFilter: "any"},
		Storage:  config.StorageConfig{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "tutorials.db")},
		Schedule: "0 0 6 * * *",
	}
}

func TestRunAgentOnceReturnsRunError(t *testing.T) {
	cfg := commandConfig(t)

	// no languages or subjects: the run fails before any remote call
	err := runAgent(context.Background(), cfg, true)
	require.Error(t, err)
	assert.ErrorContains(t, err, "failed to run")

	// the store was closed and can be reopened
	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestRunAgentOnceReturnsInitializeError(t *testing.T) {
	cfg := commandConfig(t)
	cfg.Storage.Driver = "cosmos"

	err := runAgent(context.Background(), cfg, true)
	assert.ErrorContains(t, err, "failed to initialize agent")
}

func TestRunCommandAnnotations(t *testing.T) {
	cfg := commandConfig(t)
	ctx := context.Background()

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	require.NoError(t, err)
	_, err = storage.Upsert(ctx, store, models.VideoDetail{VideoID: "abc", Title: "Go Tutorial", DurationSeconds: 600}, models.Classification{}, fixedTime)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	require.NoError(t, runCommand(ctx, cfg, []string{"watch", "abc"}))
	require.NoError(t, runCommand(ctx, cfg, []string{"favorite", "abc"}))
	require.NoError(t, runCommand(ctx, cfg, []string{"stats"}))

	assert.ErrorIs(t, runCommand(ctx, cfg, []string{"watch", "missing"}), models.ErrNotFound)
	assert.ErrorContains(t, runCommand(ctx, cfg, []string{"rewind", "abc"}), "unknown command")
	assert.ErrorContains(t, runCommand(ctx, cfg, []string{"watch"}), "usage")

	store, err = storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, rec.Watched)
	assert.True(t, rec.Favorite)
}
