// Package ingest runs the ingestion pipeline: planned queries go through remote search
// and detail enrichment, then filtering and classification, and survivors are upserted
// into the tutorial library.
package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tutorial-scraper/internal/filter"
	"tutorial-scraper/internal/models"
	"tutorial-scraper/internal/planner"
	"tutorial-scraper/internal/search"
	"tutorial-scraper/shared/logger"
	"tutorial-scraper/shared/storage"
)

// Deps are the collaborators a run talks to
type Deps struct {
	API   search.API
	Store storage.Writer
	// Now defaults to time.Now
	Now func() time.Time
}

// Run executes one ingestion run and returns its report.
//
// Quota exhaustion, the MaxQueries budget and ctx cancellation or deadline all stop the
// run early; the partial report is returned with a nil error and Halted set. A failed
// storage write stops the run with a *models.StorageWriteError; records committed before
// it stay committed. An invalid cfg returns a *models.ConfigError before any remote call.
func Run(ctx context.Context, cfg Config, deps Deps) (models.RunReport, error) {
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	report := models.RunReport{RunID: uuid.NewString(), StartedAt: now()}

	if err := cfg.Validate(); err != nil {
		report.FinishedAt = now()
		return report, err
	}
	if deps.API == nil || deps.Store == nil {
		report.FinishedAt = now()
		return report, &models.ConfigError{Problems: []string{"search API and store are required"}}
	}

	r := &run{
		cfg:    cfg,
		store:  deps.Store,
		engine: filter.NewEngine(cfg.rules()),
		client: search.NewClient(deps.API, search.Options{
			MaxResults:        cfg.MaxResultsPerQuery,
			QuotaBudget:       cfg.QuotaBudget,
			RequestsPerSecond: cfg.RequestsPerSecond,
			RelevanceLanguage: cfg.RelevanceLanguage,
			Now:               now,
		}),
		now:    now,
		seen:   make(map[string]struct{}),
		report: report,
		log:    logger.WithComponent("ingest").With().Str("run_id", report.RunID).Logger(),
	}

	err := r.execute(ctx)

	r.report.QuotaUnits = r.client.UnitsUsed()
	r.report.FinishedAt = now()
	return r.report, err
}

// run is the state of one ingestion run. The seen set and the search client's quota
// meter belong to it alone.
type run struct {
	cfg    Config
	store  storage.Writer
	engine *filter.Engine
	client *search.Client
	now    func() time.Time
	seen   map[string]struct{}
	report models.RunReport
	log    zerolog.Logger
}

func (r *run) execute(ctx context.Context) error {
	total := planner.Count(r.cfg.Languages, r.cfg.Subjects)
	r.log.Info().
		Int("planned_queries", total).
		Int("quota_budget", r.cfg.QuotaBudget).
		Str("recency", string(r.cfg.recency())).
		Msg("Starting ingestion run")

	index := 0
	for q := range planner.Plan(r.cfg.Languages, r.cfg.Subjects, r.cfg.recency()) {
		if r.cfg.MaxQueries > 0 && index >= r.cfg.MaxQueries {
			r.halt(models.HaltQueryBudget, total-index, nil)
			return nil
		}
		if ctx.Err() != nil {
			r.halt(models.HaltDeadline, total-index, ctx.Err())
			return nil
		}

		err := r.process(ctx, q)

		var storageErr *models.StorageWriteError
		switch {
		case err == nil:
			r.report.QueriesIssued++
		case errors.As(err, &storageErr):
			r.halt(models.HaltStorageFailed, total-index, err)
			return err
		case haltReason(ctx, err) != models.HaltNone:
			r.halt(haltReason(ctx, err), total-index, err)
			return nil
		default:
			r.report.QueriesIssued++
			r.report.QueriesFailed++
			r.log.Warn().Err(err).Str("query", q.String()).Msg("Skipping query after remote error")
		}
		index++
	}

	r.log.Info().
		Int("queries", r.report.QueriesIssued).
		Int("inserted", r.report.Inserted).
		Int("updated", r.report.Updated).
		Int("quota_units", r.client.UnitsUsed()).
		Msg("Ingestion run complete")
	return nil
}

// process runs one query through search, detail, filter and upsert. Counters only move
// once the remote calls for the query have succeeded, so an abandoned query contributes
// nothing but its quota cost.
func (r *run) process(ctx context.Context, q models.Query) error {
	candidates, err := r.client.Search(ctx, q)
	if err != nil {
		return err
	}

	ids, duplicates := r.unseen(candidates)

	var details map[string]models.VideoDetail
	if len(ids) > 0 {
		details, err = r.client.Detail(ctx, ids)
		if err != nil {
			return err
		}
	}

	for _, id := range ids {
		r.seen[id] = struct{}{}
	}
	r.report.DuplicatesSkipped += duplicates
	r.report.CandidatesExamined += len(ids)
	r.report.DetailsFetched += len(details)

	for _, id := range ids {
		detail, ok := details[id]
		if !ok {
			// removed or made private between search and detail
			continue
		}
		if err := r.keep(ctx, detail); err != nil {
			return err
		}
	}

	r.log.Debug().
		Str("query", q.String()).
		Int("candidates", len(candidates)).
		Int("new", len(ids)).
		Int("duplicates", duplicates).
		Msg("Query processed")
	return nil
}

// keep filters, classifies and upserts one detail record
func (r *run) keep(ctx context.Context, detail models.VideoDetail) error {
	c := r.engine.Evaluate(detail)
	switch {
	case c.IsShort:
		r.report.ExcludedShort++
		return nil
	case c.IsExcludedRegion:
		r.report.ExcludedRegion++
		return nil
	}

	outcome, err := storage.Upsert(ctx, r.store, detail, c, r.now())
	if err != nil {
		return &models.StorageWriteError{VideoID: detail.VideoID, Err: err}
	}

	switch outcome {
	case storage.Inserted:
		r.report.Inserted++
		r.report.InsertedIDs = append(r.report.InsertedIDs, detail.VideoID)
	case storage.Updated:
		r.report.Updated++
	}

	r.log.Debug().
		Str("video_id", detail.VideoID).
		Str("language", c.LanguageName()).
		Str("subject", c.SubjectName()).
		Stringer("outcome", outcome).
		Msg("Tutorial stored")
	return nil
}

// unseen returns candidate ids not yet processed in this run, in the order the platform
// returned them, and how many were dropped as duplicates
func (r *run) unseen(candidates []models.CandidateSummary) ([]string, int) {
	ids := make([]string, 0, len(candidates))
	inPage := make(map[string]struct{}, len(candidates))
	duplicates := 0

	for _, c := range candidates {
		if _, ok := r.seen[c.VideoID]; ok {
			duplicates++
			continue
		}
		if _, ok := inPage[c.VideoID]; ok {
			duplicates++
			continue
		}
		inPage[c.VideoID] = struct{}{}
		ids = append(ids, c.VideoID)
	}
	return ids, duplicates
}

func (r *run) halt(reason models.HaltReason, aborted int, cause error) {
	r.report.Halted = true
	r.report.HaltReason = reason
	r.report.QueriesAborted = aborted

	event := r.log.Warn()
	if reason == models.HaltStorageFailed {
		event = r.log.Error()
	}
	event.Err(cause).
		Str("reason", string(reason)).
		Int("queries_completed", r.report.QueriesIssued).
		Int("queries_aborted", aborted).
		Int("quota_units", r.client.UnitsUsed()).
		Int("quota_remaining", r.client.UnitsRemaining()).
		Msg("Ingestion run halted")
}

// haltReason maps errors that end the whole run; everything else only costs the query
func haltReason(ctx context.Context, err error) models.HaltReason {
	switch {
	case errors.Is(err, models.ErrQuotaExceeded):
		return models.HaltQuota
	case ctx.Err() != nil:
		return models.HaltDeadline
	case models.IsTransient(err):
		// a single request timing out is not the run's deadline
		return models.HaltNone
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return models.HaltDeadline
	default:
		return models.HaltNone
	}
}
