package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qepting91/postwatch/internal/domain"
)

type CompactReport struct {
	Cutoff  domain.Day
	Records int
	Buckets int
}

// Compact drops history records and daily buckets older than retention_days.
// Retention is off by default: forgetting a link means it will be reported
// again if a profile still lists it.
func (a *App) Compact(ctx context.Context) (CompactReport, error) {
	var rep CompactReport
	if a.cfg.RetentionDays <= 0 {
		a.log.Info().Msg("retention_days is 0, nothing to compact")
		return rep, nil
	}
	rep.Cutoff = a.today().AddDays(-a.cfg.RetentionDays)

	id := uuid.NewString()
	log := a.log.With().Str("run_id", id).Logger()
	release, err := a.acquire(ctx, id, log)
	if err != nil {
		return rep, err
	}
	defer release()

	history, err := a.openHistory()
	if err != nil {
		return rep, fmt.Errorf("load history: %w", err)
	}
	defer history.Close()

	if rep.Records, err = history.Compact(rep.Cutoff); err != nil {
		return rep, fmt.Errorf("compact history: %w", err)
	}
	if rep.Buckets, err = a.buckets.Prune(rep.Cutoff); err != nil {
		return rep, fmt.Errorf("prune buckets: %w", err)
	}

	log.Info().
		Str("cutoff", rep.Cutoff.String()).
		Int("records", rep.Records).
		Int("buckets", rep.Buckets).
		Msg("compaction complete")
	return rep, nil
}
