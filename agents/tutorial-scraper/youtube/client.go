package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"tutorial-scraper/internal/models"
	"tutorial-scraper/internal/search"
	"tutorial-scraper/shared/config"
	"tutorial-scraper/shared/logger"
)

// Client implements search.API on top of the YouTube Data API
type Client struct {
	service     *youtube.Service
	config      *config.YouTubeConfig
	oauthConfig *oauth2.Config
	token       *oauth2.Token
	log         zerolog.Logger
}

var _ search.API = (*Client)(nil)

// NewClient authenticates with an API key or, in oauth mode, a stored or freshly
// authorized device-flow token. Extra options are appended to the service options.
func NewClient(ctx context.Context, cfg *config.YouTubeConfig, opts ...option.ClientOption) (*Client, error) {
	c := &Client{
		config: cfg,
		log:    logger.WithComponent("youtube"),
	}

	var serviceOpts []option.ClientOption
	switch cfg.AuthMode {
	case config.AuthOAuth:
		// Create OAuth2 config for the device authorization flow.
		c.oauthConfig = &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{youtube.YoutubeReadonlyScope},
			Endpoint:     google.Endpoint,
		}

		token, err := getToken(c.oauthConfig, cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("failed to get OAuth token: %w", err)
		}
		c.token = token

		tokenSource := &tokenSaver{
			config:    c.oauthConfig,
			token:     token,
			tokenFile: cfg.TokenFile,
			log:       c.log,
		}
		serviceOpts = append(serviceOpts, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	default:
		serviceOpts = append(serviceOpts, option.WithAPIKey(cfg.APIKey))
	}

	service, err := youtube.NewService(ctx, append(serviceOpts, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	c.service = service

	return c, nil
}

// SearchPage runs one search.list call
func (c *Client) SearchPage(ctx context.Context, req search.PageRequest) (search.Page, error) {
	call := c.service.Search.List([]string{"snippet"}).
		Q(req.Query).
		Type("video").
		Order("relevance").
		MaxResults(req.MaxResults).
		Context(ctx)

	if req.Duration != "" {
		call = call.VideoDuration(req.Duration)
	}
	if req.RelevanceLanguage != "" {
		call = call.RelevanceLanguage(req.RelevanceLanguage)
	}
	if !req.PublishedAfter.IsZero() {
		call = call.PublishedAfter(req.PublishedAfter.UTC().Format(time.RFC3339))
	}
	if req.PageToken != "" {
		call = call.PageToken(req.PageToken)
	}

	resp, err := call.Do()
	if err != nil {
		return search.Page{}, classifyError("search.list", err)
	}

	page := search.Page{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		summary := models.CandidateSummary{
			VideoID:      item.Id.VideoId,
			Title:        item.Snippet.Title,
			ChannelTitle: item.Snippet.ChannelTitle,
		}
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			summary.PublishedAt = publishedAt
		}
		page.Items = append(page.Items, summary)
	}

	return page, nil
}

// Videos runs one videos.list call for up to search.MaxBatchSize ids
func (c *Client) Videos(ctx context.Context, ids []string) ([]models.VideoDetail, error) {
	resp, err := c.service.Videos.List([]string{"snippet", "contentDetails", "statistics"}).
		Id(strings.Join(ids, ",")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classifyError("videos.list", err)
	}

	details := make([]models.VideoDetail, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.Snippet == nil {
			continue
		}

		detail := models.VideoDetail{
			VideoID:      item.Id,
			Title:        item.Snippet.Title,
			Description:  item.Snippet.Description,
			ChannelTitle: item.Snippet.ChannelTitle,
			ChannelID:    item.Snippet.ChannelId,
			ThumbnailURL: thumbnailURL(item.Snippet.Thumbnails),
		}
		if item.ContentDetails != nil {
			detail.DurationSeconds = parseDurationSeconds(item.ContentDetails.Duration)
		}
		if publishedAt, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
			detail.PublishedAt = publishedAt
		}
		if item.Statistics != nil {
			detail.ViewCount = int64(item.Statistics.ViewCount)
			detail.LikeCount = int64(item.Statistics.LikeCount)
		}

		details = append(details, detail)
	}

	return details, nil
}

// quotaReasons are the error reasons YouTube uses for a spent daily budget.
// rateLimitExceeded is deliberately absent: it clears up on its own.
var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
}

// classifyError separates quota exhaustion from every other remote failure
func classifyError(op string, err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return &models.TransientError{Op: op, Err: err}
	}

	if apiErr.Code == http.StatusForbidden {
		for _, item := range apiErr.Errors {
			if quotaReasons[item.Reason] {
				return fmt.Errorf("%s: %w (%s)", op, models.ErrQuotaExceeded, item.Message)
			}
		}
	}
	return &models.TransientError{Op: op, StatusCode: apiErr.Code, Err: err}
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, thumb := range []*youtube.Thumbnail{t.High, t.Medium, t.Default} {
		if thumb != nil && thumb.Url != "" {
			return thumb.Url
		}
	}
	return ""
}

// tokenSaver wraps an oauth2.TokenSource to automatically save refreshed tokens.
// It intercepts token refresh operations and persists the new token to disk,
// ensuring that refreshed tokens survive application restarts.
type tokenSaver struct {
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	log       zerolog.Logger
	mu        sync.Mutex // Protects concurrent token refresh operations
}

// Token implements oauth2.TokenSource interface.
// It returns the current token, refreshing it if necessary and saving any
// refreshed token to disk.
func (ts *tokenSaver) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	newToken, err := ts.config.TokenSource(context.Background(), ts.token).Token()
	if err != nil {
		return nil, err
	}

	if newToken.AccessToken != ts.token.AccessToken {
		ts.log.Info().Time("expiry", newToken.Expiry).Msg("Token refreshed, saving to file")
		ts.token = newToken
		if err := saveToken(ts.tokenFile, newToken); err != nil {
			ts.log.Warn().Err(err).Msg("Failed to save refreshed token")
		}
	}

	return newToken, nil
}

// RefreshToken refreshes the OAuth token ahead of a run so a scheduled run does not
// stall on an expired token. It is a no-op with API key auth.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.oauthConfig == nil {
		return nil
	}

	newToken, err := c.oauthConfig.TokenSource(ctx, c.token).Token()
	if err != nil {
		return fmt.Errorf("failed to refresh token: %w", err)
	}

	if newToken.AccessToken != c.token.AccessToken {
		c.log.Info().Msg("Token refreshed, saving to file")
		c.token = newToken
		if err := saveToken(c.config.TokenFile, newToken); err != nil {
			return fmt.Errorf("failed to save refreshed token: %w", err)
		}
	} else {
		c.log.Debug().Time("expiry", c.token.Expiry).Msg("Token still valid")
	}

	return nil
}

// getToken loads a stored token, keeping expired ones that carry a refresh token,
// and only falls back to the device flow when nothing usable is on disk
func getToken(config *oauth2.Config, tokenFile string) (*oauth2.Token, error) {
	log := logger.WithComponent("youtube")

	tok, err := tokenFromFile(tokenFile)
	if err == nil {
		if tok.RefreshToken != "" {
			log.Info().Time("expiry", tok.Expiry).Msg("Loaded token from file")
			return tok, nil
		}
		if tok.Valid() {
			return tok, nil
		}
	}

	log.Info().Msg("Requesting new token with device authorization")
	tok, err = getTokenWithDeviceFlow(config)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			log.Error().
				Str("status", retrieveErr.Response.Status).
				Str("body", strings.TrimSpace(string(retrieveErr.Body))).
				Msg("Device authorization response failed")
		}
		return nil, fmt.Errorf("device authorization failed: %w. Ensure your OAuth client is created as 'TVs and Limited Input devices' and that the YouTube Data API v3 is enabled", err)
	}

	if err := saveToken(tokenFile, tok); err != nil {
		log.Warn().Err(err).Msg("Failed to save token")
	}
	return tok, nil
}

func getTokenWithDeviceFlow(config *oauth2.Config) (*oauth2.Token, error) {
	ctx := context.Background()

	resp, err := config.DeviceAuth(ctx, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to start device authorization: %w", err)
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 80))
	fmt.Printf("YOUTUBE DEVICE AUTHORIZATION REQUIRED\n")
	fmt.Printf("%s\n", strings.Repeat("=", 80))
	fmt.Printf("1. Visit %s in your browser (any device works).\n", resp.VerificationURI)
	fmt.Printf("2. Enter this code when prompted: %s\n\n", resp.UserCode)
	if completeURL := strings.TrimSpace(resp.VerificationURIComplete); completeURL != "" {
		fmt.Printf("   Or open this link directly:\n\n   %s\n\n", completeURL)
	}
	fmt.Printf("Waiting for authorization to complete... (Ctrl+C to cancel)\n")
	fmt.Printf("%s\n", strings.Repeat("-", 80))

	tok, err := config.DeviceAccessToken(ctx, resp, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("device authorization did not complete: %w", err)
	}

	fmt.Printf("\nAuthorization successful.\n%s\n\n", strings.Repeat("=", 80))
	return tok, nil
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// saveToken writes the token atomically with owner-only permissions
func saveToken(path string, token *oauth2.Token) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("unable to create token directory: %w", err)
		}
	}

	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode oauth token: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	return nil
}

var durationPattern = regexp.MustCompile(`^P(?:(\d+)D)?T?(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseDurationSeconds converts an ISO 8601 duration such as "PT1M30S" or "P1DT2H"
// into seconds; anything unparseable is 0
func parseDurationSeconds(duration string) int {
	matches := durationPattern.FindStringSubmatch(duration)
	if matches == nil {
		return 0
	}

	var total int
	for i, unit := range []int{86400, 3600, 60, 1} {
		if matches[i+1] == "" {
			continue
		}
		if n, err := strconv.Atoi(matches[i+1]); err == nil {
			total += n * unit
		}
	}
	return total
}
