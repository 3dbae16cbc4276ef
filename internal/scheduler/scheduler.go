package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	FeedCheckSpec         = "0 * * * *"
	HistoryPruneSpec      = "30 3 * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	checkFeedsTimeout     = 45 * time.Minute
	pruneHistoryTimeout   = time.Minute
)

type FeedChecker interface {
	CheckFeeds(ctx context.Context) (int, error)
}

type HistoryPruner interface {
	DeleteSummariesBefore(ctx context.Context, before time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	feeds     FeedChecker
	history   HistoryPruner
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// New builds a scheduler. A nil feeds disables feed checks and a non-positive
// retention disables history pruning.
func New(
	ctx context.Context,
	feeds FeedChecker,
	history HistoryPruner,
	retention time.Duration,
	log *slog.Logger,
) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		feeds:     feeds,
		history:   history,
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.feeds != nil {
		if _, err := s.cron.AddFunc(FeedCheckSpec, s.checkFeeds); err != nil {
			return err
		}
	}

	if s.history != nil && s.retention > 0 {
		if _, err := s.cron.AddFunc(HistoryPruneSpec, s.pruneHistory); err != nil {
			return err
		}
	}

	s.cron.Start()

	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) JobCount() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) checkFeeds() {
	ctx, cancel := context.WithTimeout(s.ctx, checkFeedsTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	added, err := s.feeds.CheckFeeds(ctx)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to check judgment feeds",
			"error", err,
			"added", added)
		return
	}

	s.log.InfoContext(ctx, "Judgment feeds are checked",
		"added", added)
}

func (s *Scheduler) pruneHistory() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneHistoryTimeout)
	defer cancel()

	before := s.now().Add(-s.retention)

	deleted, err := s.history.DeleteSummariesBefore(ctx, before)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to prune summary history",
			"error", err,
			"before", before)
		return
	}

	s.log.InfoContext(ctx, "Summary history is pruned",
		"deleted", deleted,
		"before", before)
}
