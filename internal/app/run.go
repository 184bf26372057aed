package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/google/uuid"
	"github.com/qepting91/postwatch/internal/collector"
	"github.com/qepting91/postwatch/internal/dashboard"
	"github.com/qepting91/postwatch/internal/domain"
	"github.com/qepting91/postwatch/internal/ingest"
	"github.com/qepting91/postwatch/internal/novelty"
	"github.com/qepting91/postwatch/internal/storage"
	"github.com/rs/zerolog"
)

// Summary describes one run.
type Summary struct {
	RunID   string
	Day     domain.Day
	Skipped bool
	Sources []domain.SourceResult
	Novel   []domain.Entry
}

// Failed counts sources whose fetch failed.
func (s Summary) Failed() int {
	n := 0
	for _, r := range s.Sources {
		if r.Failed() {
			n++
		}
	}
	return n
}

// Run fetches every source once, commits the novel items and refreshes the
// snapshot and status site. Sources are fetched one at a time in file order.
// A failed fetch is recorded and the run goes on; a storage error is fatal.
func (a *App) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: uuid.NewString(), Day: a.today()}
	log := a.log.With().Str("run_id", sum.RunID).Logger()

	if !a.cfg.CrawlerEnabled {
		log.Info().Msg("crawler disabled, skipping run")
		sum.Skipped = true
		return sum, nil
	}

	release, err := a.acquire(ctx, sum.RunID, log)
	if err != nil {
		return sum, err
	}
	defer release()

	targets, err := ingest.LoadTargets(a.cfg.SourcesFile)
	if errors.Is(err, fs.ErrNotExist) {
		if perr := dashboard.WritePlaceholder(a.cfg.OutputDir, a.cfg.SourcesFile); perr != nil {
			log.Error().Err(perr).Msg("failed to write placeholder page")
		}
		return sum, fmt.Errorf("sources file %s not found: %w", a.cfg.SourcesFile, err)
	}
	if err != nil {
		return sum, fmt.Errorf("read sources file: %w", err)
	}

	history, err := a.openHistory()
	if err != nil {
		return sum, fmt.Errorf("load history: %w", err)
	}
	defer history.Close()

	log.Info().Int("sources", len(targets)).Int("known", history.Len()).Msg("starting run")

	sum.Sources = make([]domain.SourceResult, 0, len(targets))
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return sum, fmt.Errorf("run aborted before commit: %w", err)
		}
		sum.Sources = append(sum.Sources, a.fetch(ctx, t, log))
	}
	// A cancel during the last fetch surfaces as a FetchError; catch it here.
	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("run aborted before commit: %w", err)
	}

	resolver := novelty.New(history, a.buckets,
		novelty.WithClock(a.now),
		novelty.WithLocation(a.loc),
		novelty.WithLogger(log),
	)
	res, err := resolver.Resolve(sum.Sources)
	if err != nil {
		return sum, err
	}
	sum.Day = res.Day
	sum.Novel = res.Novel

	// The commit is done; reporting failures below still fail the run but
	// cannot undo it.
	var errs []error
	if err := storage.WriteSnapshot(a.cfg.SnapshotPath(), storage.NewSnapshot(a.now(), sum.Sources)); err != nil {
		errs = append(errs, err)
	}
	page := dashboard.BuildPage(res.Day, a.now().In(a.loc), sum.Sources, res.NovelBySource)
	if err := dashboard.WritePage(a.cfg.OutputDir, page); err != nil {
		errs = append(errs, err)
	}
	if err := dashboard.WriteTrend(a.cfg.OutputDir, a.buckets, res.Day, a.cfg.TrendDays); err != nil {
		errs = append(errs, err)
	}

	log.Info().
		Str("day", res.Day.String()).
		Int("sources", len(sum.Sources)).
		Int("failed", sum.Failed()).
		Int("new", len(sum.Novel)).
		Int("known", history.Len()).
		Msg("run complete")

	return sum, errors.Join(errs...)
}

// fetch asks the adapter for one source. A failure keeps the source with no
// items so the status page can show it as unavailable.
func (a *App) fetch(ctx context.Context, t domain.Target, log zerolog.Logger) domain.SourceResult {
	name := t.Name
	if name == "" {
		name = collector.FallbackLabel(t.URL)
	}

	profile, err := a.collector.FetchProfile(ctx, t.URL, a.cfg.MaxPostsPerSource)
	if err != nil {
		ferr := &domain.FetchError{URL: t.URL, Err: err}
		log.Warn().Err(ferr).Str("source", t.URL).Msg("fetch failed")
		return domain.SourceResult{
			URL:   t.URL,
			Label: name + " (unavailable)",
			Items: []domain.ScrapedItem{},
			Err:   ferr,
		}
	}

	label := profile.Label
	if label == "" {
		label = name
	}
	log.Debug().Str("source", t.URL).Str("label", label).Int("items", len(profile.Items)).Msg("fetched")
	return domain.SourceResult{URL: t.URL, Label: label, Items: profile.Items}
}
