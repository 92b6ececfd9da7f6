package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	auditdomain "github.com/smallbiznis/gymcore/internal/audit/domain"
	"github.com/smallbiznis/gymcore/internal/auditcontext"
	authdomain "github.com/smallbiznis/gymcore/internal/auth/domain"
	"github.com/smallbiznis/gymcore/internal/clock"
	obscontext "github.com/smallbiznis/gymcore/internal/observability/context"
	obslogger "github.com/smallbiznis/gymcore/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gymcore/internal/observability/metrics"
	"github.com/smallbiznis/gymcore/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("scheduler: missing dependency")

const (
	jobPurgeSessions = "purge_sessions"
	jobPushMetrics   = "push_metrics"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Sessions authdomain.SessionRepository
	Config   Config              `optional:"true"`
	Locker   *ratelimit.Locker   `optional:"true"`
	Metrics  *obsmetrics.Metrics `optional:"true"`
	Pusher   obsmetrics.Pusher   `optional:"true"`
	Gatherer prometheus.Gatherer `optional:"true"`
}

// Scheduler runs periodic maintenance jobs. When a redis locker is
// configured only one instance runs an exclusive job at a time.
type Scheduler struct {
	log      *zap.Logger
	cfg      Config
	genID    *snowflake.Node
	clock    clock.Clock
	sessions authdomain.SessionRepository
	locker   *ratelimit.Locker
	metrics  *obsmetrics.Metrics
	pusher   obsmetrics.Pusher
	gatherer prometheus.Gatherer
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Sessions == nil {
		return nil, ErrInvalidConfig
	}
	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Scheduler{
		log:      p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:      p.Config.withDefaults(),
		genID:    p.GenID,
		clock:    p.Clock,
		sessions: p.Sessions,
		locker:   p.Locker,
		metrics:  p.Metrics,
		pusher:   p.Pusher,
		gatherer: gatherer,
	}, nil
}

// RunOnce runs every job once. Session purging is exclusive across
// instances; metrics are pushed by each instance for its own process.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var errs []error
	if err := s.runJob(parent, jobPurgeSessions, true, s.PurgeSessionsJob); err != nil {
		errs = append(errs, err)
	}
	if s.pusher != nil {
		if err := s.runJob(parent, jobPushMetrics, false, s.PushMetricsJob); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, exclusive bool, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	runID := s.genID.Generate().String()
	ctx = obscontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	ctx = auditcontext.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("job", name),
		zap.String("run_id", runID),
	)

	release, acquired := func() {}, true
	if exclusive {
		release, acquired = s.acquire(ctx, name, log)
	}
	if !acquired {
		s.metrics.RecordJobRun(ctx, name, "skipped", 0)
		return nil
	}
	defer release()

	err := fn(ctx)
	elapsed := s.clock.Now().Sub(start)
	if err == nil {
		s.metrics.RecordJobRun(ctx, name, "ok", elapsed)
		return nil
	}

	// a deadline is a soft timeout; the next tick picks up the rest
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.RecordJobRun(ctx, name, "timeout", elapsed)
		log.Warn("job timed out",
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	s.metrics.RecordJobRun(ctx, name, "error", elapsed)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) acquire(ctx context.Context, name string, log *zap.Logger) (func(), bool) {
	noop := func() {}
	if !s.locker.Enabled() {
		return noop, true
	}

	key := "scheduler:" + name
	token, acquired, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
	if err != nil {
		log.Warn("job lock unavailable, running unlocked", zap.Error(err))
		return noop, true
	}
	if !acquired {
		log.Debug("job held by another instance")
		return noop, false
	}
	return func() {
		if err := s.locker.Release(context.Background(), key, token); err != nil {
			log.Warn("job lock release failed", zap.Error(err))
		}
	}, true
}

// PurgeSessionsJob deletes sessions that expired or were revoked longer ago
// than the retention window, one batch at a time.
func (s *Scheduler) PurgeSessionsJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.SessionRetention)
	var total int64

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		purged, err := s.sessions.PurgeSessions(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return err
		}
		total += purged
		if purged < int64(s.cfg.BatchSize) {
			break
		}
	}

	if total > 0 {
		s.log.Info("sessions purged",
			zap.Int64("count", total),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

// PushMetricsJob sends the process collectors to the configured push
// exporter.
func (s *Scheduler) PushMetricsJob(ctx context.Context) error {
	return s.pusher.Push(ctx, s.gatherer)
}
