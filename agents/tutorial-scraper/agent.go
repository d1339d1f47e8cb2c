package tutorialscraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tutorial-scraper/agents/tutorial-scraper/youtube"
	"tutorial-scraper/internal/ingest"
	"tutorial-scraper/internal/models"
	"tutorial-scraper/internal/search"
	"tutorial-scraper/shared/config"
	"tutorial-scraper/shared/email"
	"tutorial-scraper/shared/logger"
	"tutorial-scraper/shared/monitoring"
	"tutorial-scraper/shared/scheduler"
	"tutorial-scraper/shared/storage"
)

type tokenRefresher interface {
	RefreshToken(ctx context.Context) error
}

type digestSender interface {
	SendDigest(d *email.Digest) error
}

// TutorialAgent implements the scheduler.Agent interface
type TutorialAgent struct {
	config      *config.Config
	api         search.API
	refresher   tokenRefresher
	store       storage.Store
	emailSender digestSender
	now         func() time.Time
	log         zerolog.Logger
}

var _ scheduler.Agent = (*TutorialAgent)(nil)

func NewTutorialAgent(cfg *config.Config) *TutorialAgent {
	return &TutorialAgent{
		config: cfg,
		now:    time.Now,
		log:    logger.WithComponent("agent"),
	}
}

func (a *TutorialAgent) Name() string {
	return "Tutorial Scraper"
}

// Initialize creates whatever collaborators have not been set yet
func (a *TutorialAgent) Initialize() error {
	a.log.Info().Msgf("Initializing %s...", a.Name())

	if a.api == nil {
		client, err := youtube.NewClient(context.Background(), &a.config.YouTube)
		if err != nil {
			return fmt.Errorf("failed to create YouTube client: %w", err)
		}
		a.api = client
		a.refresher = client
		a.log.Info().Str("auth_mode", a.config.YouTube.AuthMode).Msg("YouTube client initialized")
	}

	if a.store == nil {
		store, err := storage.Open(a.config.Storage.Driver, a.config.Storage.Path)
		if err != nil {
			return fmt.Errorf("failed to open tutorial store: %w", err)
		}
		a.store = store
		a.log.Info().Str("driver", a.config.Storage.Driver).Str("path", a.config.Storage.Path).Msg("Tutorial store opened")
	}

	if a.emailSender == nil && a.config.Email.Enabled {
		a.emailSender = email.NewSender(&a.config.Email)
		a.log.Info().Msg("Email sender initialized")
	}

	return nil
}

// Close releases the store
func (a *TutorialAgent) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

func (a *TutorialAgent) RunOnce(ctx context.Context, events *scheduler.AgentEvents) error {
	startTime := a.now()

	if a.refresher != nil {
		if err := a.refresher.RefreshToken(ctx); err != nil {
			events.OnPartialFailure(fmt.Errorf("token refresh: %w", err), a.now().Sub(startTime))
		}
	}

	runCtx := ctx
	if timeout := a.config.Scraper.RunTimeout; timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, err := ingest.Run(runCtx, a.config.Ingest(), ingest.Deps{
		API:   a.api,
		Store: a.store,
		Now:   a.now,
	})
	monitoring.RecordRun(report, err)

	if err != nil {
		var cfgErr *models.ConfigError
		if errors.As(err, &cfgErr) {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return fmt.Errorf("ingestion run %s failed after %d new tutorials: %w", report.RunID, report.Inserted, err)
	}

	if report.Halted {
		events.OnPartialFailure(fmt.Errorf("run halted (%s) after %d queries, %d queries not run",
			report.HaltReason, report.QueriesIssued, report.QueriesAborted), a.now().Sub(startTime))
	}

	if a.emailSender != nil && report.Inserted > 0 {
		if err := a.sendDigest(ctx, report); err != nil {
			events.OnPartialFailure(fmt.Errorf("failed to send digest: %w", err), a.now().Sub(startTime))
		}
	}

	events.OnSuccess(report, a.now().Sub(startTime))
	return nil
}

func (a *TutorialAgent) sendDigest(ctx context.Context, report models.RunReport) error {
	digest := &email.Digest{Date: a.now(), Report: report}
	for _, id := range report.InsertedIDs {
		rec, err := a.store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("load tutorial %s: %w", id, err)
		}
		digest.Tutorials = append(digest.Tutorials, rec)
	}

	a.log.Info().Int("tutorials", len(digest.Tutorials)).Msg("Sending digest")
	return a.emailSender.SendDigest(digest)
}
