package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/paperifyhq/paperify/internal/config"
	subscriptiondomain "github.com/paperifyhq/paperify/internal/subscription/domain"
)

// Scheduler runs the periodic maintenance passes. Read paths never delete
// expired rows; this is the only place cleanup happens.
type Scheduler struct {
	cfg      config.Config
	log      *zap.Logger
	subs     subscriptiondomain.Service
	interval time.Duration
}

type SchedulerParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Subs   subscriptiondomain.Service
}

func NewScheduler(p SchedulerParam) *Scheduler {
	interval := p.Config.Scheduler.PurgeInterval
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		cfg:      p.Config,
		log:      p.Log.Named("scheduler"),
		subs:     p.Subs,
		interval: interval,
	}
}

// RunForever blocks until ctx is cancelled. The first pass runs
// immediately so a restart does not postpone overdue cleanup by a full
// interval.
func (s *Scheduler) RunForever(ctx context.Context) {
	s.log.Info("scheduler started", zap.Duration("interval", s.interval))

	s.purge(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.purge(ctx)
		}
	}
}

func (s *Scheduler) purge(ctx context.Context) {
	deleted, err := s.subs.PurgeExpired(ctx)
	if err != nil {
		s.log.Error("purge expired subscriptions failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		s.log.Info("purged expired subscriptions", zap.Int64("deleted", deleted))
	}
}
