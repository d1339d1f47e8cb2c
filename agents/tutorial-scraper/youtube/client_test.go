package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"tutorial-scraper/internal/models"
	"tutorial-scraper/internal/search"
	"tutorial-scraper/shared/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(),
		&config.YouTubeConfig{AuthMode: config.AuthAPIKey, APIKey: "test-key"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func TestSearchPage(t *testing.T) {
	var got map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/search"), r.URL.Path)
		got = map[string]string{}
		for key := range r.URL.Query() {
			got[key] = r.URL.Query().Get(key)
		}
		writeJSON(w, http.StatusOK, `{
			"nextPageToken": "CAUQAA",
			"items": [
				{"id": {"kind": "youtube#video", "videoId": "abc123"},
				 "snippet": {"title": "Go Tutorial", "channelTitle": "Gophers", "publishedAt": "2026-02-01T10:00:00Z"}},
				{"id": {"kind": "youtube#channel", "channelId": "UCxyz"},
				 "snippet": {"title": "Not a video"}}
			]
		}`)
	})

	page, err := c.SearchPage(context.Background(), search.PageRequest{
		Query:             "Go programming tutorial",
		PublishedAfter:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		PageToken:         "CAoQAA",
		MaxResults:        25,
		Duration:          search.DurationMedium,
		RelevanceLanguage: "en",
	})
	require.NoError(t, err)

	assert.Equal(t, "CAUQAA", page.NextPageToken)
	require.Len(t, page.Items, 1)
	assert.Equal(t, models.CandidateSummary{
		VideoID:      "abc123",
		Title:        "Go Tutorial",
		ChannelTitle: "Gophers",
		PublishedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}, page.Items[0])

	assert.Equal(t, "Go programming tutorial", got["q"])
	assert.Equal(t, "video", got["type"])
	assert.Equal(t, "medium", got["videoDuration"])
	assert.Equal(t, "en", got["relevanceLanguage"])
	assert.Equal(t, "relevance", got["order"])
	assert.Equal(t, "25", got["maxResults"])
	assert.Equal(t, "CAoQAA", got["pageToken"])
	assert.Equal(t, "2026-01-01T00:00:00Z", got["publishedAfter"])
	assert.Equal(t, "snippet", got["part"])
}

func TestVideos(t *testing.T) {
	var ids string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/videos"), r.URL.Path)
		ids = r.URL.Query().Get("id")
		writeJSON(w, http.StatusOK, `{
			"items": [{
				"id": "abc123",
				"snippet": {
					"title": "Rust Tutorial",
					"description": "Ownership explained",
					"channelTitle": "Crab Academy",
					"channelId": "UCcrab",
					"publishedAt": "2025-11-20T08:30:00Z",
					"thumbnails": {
						"default": {"url": "https://i.ytimg.com/vi/abc123/default.jpg"},
						"high": {"url": "https://i.ytimg.com/vi/abc123/hqdefault.jpg"}
					}
				},
				"contentDetails": {"duration": "PT1H2M3S"},
				"statistics": {"viewCount": "15000", "likeCount": "900"}
			}]
		}`)
	})

	details, err := c.Videos(context.Background(), []string{"abc123", "gone42"})
	require.NoError(t, err)

	assert.Equal(t, "abc123,gone42", ids)
	require.Len(t, details, 1)
	assert.Equal(t, models.VideoDetail{
		VideoID:         "abc123",
		Title:           "Rust Tutorial",
		Description:     "Ownership explained",
		ChannelTitle:    "Crab Academy",
		ChannelID:       "UCcrab",
		DurationSeconds: 3723,
		ViewCount:       15000,
		LikeCount:       900,
		PublishedAt:     time.Date(2025, 11, 20, 8, 30, 0, 0, time.UTC),
		ThumbnailURL:    "https://i.ytimg.com/vi/abc123/hqdefault.jpg",
	}, details[0])
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		quota     bool
		transient bool
	}{
		{
			name:   "quota exceeded",
			status: http.StatusForbidden,
			body:   `{"error": {"code": 403, "message": "quota", "errors": [{"domain": "youtube.quota", "reason": "quotaExceeded", "message": "The request cannot be completed because you have exceeded your quota."}]}}`,
			quota:  true,
		},
		{
			name:   "daily limit",
			status: http.StatusForbidden,
			body:   `{"error": {"code": 403, "message": "limit", "errors": [{"domain": "usageLimits", "reason": "dailyLimitExceeded", "message": "Daily Limit Exceeded"}]}}`,
			quota:  true,
		},
		{
			name:      "forbidden for another reason",
			status:    http.StatusForbidden,
			body:      `{"error": {"code": 403, "message": "forbidden", "errors": [{"domain": "global", "reason": "forbidden", "message": "Forbidden"}]}}`,
			transient: true,
		},
		{
			name:      "rate limited",
			status:    http.StatusForbidden,
			body:      `{"error": {"code": 403, "message": "slow down", "errors": [{"domain": "usageLimits", "reason": "rateLimitExceeded", "message": "Rate Limit Exceeded"}]}}`,
			transient: true,
		},
		{
			name:      "server error",
			status:    http.StatusServiceUnavailable,
			body:      `{"error": {"code": 503, "message": "backend error"}}`,
			transient: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := c.SearchPage(context.Background(), search.PageRequest{Query: "x", MaxResults: 5})
			require.Error(t, err)
			assert.Equal(t, tt.quota, errors.Is(err, models.ErrQuotaExceeded))
			assert.Equal(t, tt.transient, models.IsTransient(err))

			_, err = c.Videos(context.Background(), []string{"a"})
			assert.Equal(t, tt.quota, errors.Is(err, models.ErrQuotaExceeded))
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c, err := NewClient(context.Background(),
		&config.YouTubeConfig{AuthMode: config.AuthAPIKey, APIKey: "k"},
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	_, err = c.SearchPage(context.Background(), search.PageRequest{Query: "x", MaxResults: 5})
	var te *models.TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "search.list", te.Op)
	assert.Zero(t, te.StatusCode)
}

func TestRefreshTokenWithAPIKeyIsNoop(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {})
	assert.NoError(t, c.RefreshToken(context.Background()))
}

func TestTokenSaver(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "test_token.json")

	originalToken := &oauth2.Token{
		AccessToken:  "original-access-token",
		RefreshToken: "test-refresh-token",
		Expiry:       time.Now().Add(-time.Hour),
	}

	require.NoError(t, saveToken(tokenFile, originalToken))

	savedToken, err := tokenFromFile(tokenFile)
	require.NoError(t, err)
	assert.Equal(t, originalToken.RefreshToken, savedToken.RefreshToken)
}

func TestGetToken(t *testing.T) {
	tokenFile := filepath.Join(t.TempDir(), "test_token.json")

	// Point the device flow at a closed server so a missing token fails fast
	closed := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	closed.Close()

	oauthConfig := &oauth2.Config{
		ClientID:     "test-client-id",
		ClientSecret: "test-client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:       closed.URL + "/auth",
			TokenURL:      closed.URL + "/token",
			DeviceAuthURL: closed.URL + "/device",
		},
	}

	t.Run("LoadExistingValidToken", func(t *testing.T) {
		validToken := &oauth2.Token{
			AccessToken:  "valid-access-token",
			RefreshToken: "valid-refresh-token",
			Expiry:       time.Now().Add(time.Hour),
		}
		require.NoError(t, saveToken(tokenFile, validToken))

		token, err := getToken(oauthConfig, tokenFile)
		require.NoError(t, err)
		assert.Equal(t, validToken.AccessToken, token.AccessToken)
	})

	t.Run("LoadExpiredTokenWithRefresh", func(t *testing.T) {
		expiredToken := &oauth2.Token{
			AccessToken:  "expired-access-token",
			RefreshToken: "valid-refresh-token",
			Expiry:       time.Now().Add(-time.Hour),
		}
		require.NoError(t, saveToken(tokenFile, expiredToken))

		token, err := getToken(oauthConfig, tokenFile)
		require.NoError(t, err)
		assert.Equal(t, expiredToken.RefreshToken, token.RefreshToken)
	})

	t.Run("NoTokenFile", func(t *testing.T) {
		require.NoError(t, os.Remove(tokenFile))

		_, err := getToken(oauthConfig, tokenFile)
		assert.ErrorContains(t, err, "device authorization failed")
	})
}

func TestTokenFromFile(t *testing.T) {
	tempDir := t.TempDir()
	tokenFile := filepath.Join(tempDir, "test_token.json")

	t.Run("ValidTokenFile", func(t *testing.T) {
		testToken := &oauth2.Token{
			AccessToken:  "test-access-token",
			RefreshToken: "test-refresh-token",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		}
		data, err := json.Marshal(testToken)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(tokenFile, data, 0600))

		token, err := tokenFromFile(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, testToken.AccessToken, token.AccessToken)
		assert.Equal(t, testToken.RefreshToken, token.RefreshToken)
	})

	t.Run("NonExistentFile", func(t *testing.T) {
		_, err := tokenFromFile(filepath.Join(tempDir, "nonexistent.json"))
		assert.Error(t, err)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		require.NoError(t, os.WriteFile(tokenFile, []byte("invalid json"), 0600))
		_, err := tokenFromFile(tokenFile)
		assert.Error(t, err)
	})
}

func TestSaveToken(t *testing.T) {
	tempDir := t.TempDir()

	t.Run("SaveWithNestedDirectory", func(t *testing.T) {
		tokenFile := filepath.Join(tempDir, "nested", "dir", "token.json")
		require.NoError(t, saveToken(tokenFile, &oauth2.Token{AccessToken: "nested-access"}))

		info, err := os.Stat(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	})

	t.Run("OverwriteExistingFile", func(t *testing.T) {
		tokenFile := filepath.Join(tempDir, "overwrite_token.json")
		require.NoError(t, saveToken(tokenFile, &oauth2.Token{AccessToken: "first-token"}))
		require.NoError(t, saveToken(tokenFile, &oauth2.Token{AccessToken: "second-token"}))

		saved, err := tokenFromFile(tokenFile)
		require.NoError(t, err)
		assert.Equal(t, "second-token", saved.AccessToken)
	})
}

func TestParseDurationSeconds(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		expected int
	}{
		{"Empty", "", 0},
		{"Seconds only", "PT45S", 45},
		{"Minutes only", "PT2M", 120},
		{"Hours only", "PT1H", 3600},
		{"Minutes and seconds", "PT1M30S", 90},
		{"Hours and minutes", "PT2H15M", 8100},
		{"Full format", "PT2H15M30S", 8130},
		{"Days", "P1DT2H", 93600},
		{"Live stream", "P0D", 0},
		{"Invalid format", "invalid", 0},
		{"No time components", "PT", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseDurationSeconds(tt.duration))
		})
	}
}
