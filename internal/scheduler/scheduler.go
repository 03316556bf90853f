/**
 * @description
 * Hourly pipeline scheduler.
 * Minute 0 of every UTC hour runs the full cycle: token refresh, holder sampling,
 * volume refresh, score solve, hourly write, daily rollup (hour 23), portfolio
 * refresh and, on the four PST checkpoints, snapshot + announcement + portfolio
 * rotation. Minute 35 casts the automatic votes and rescores.
 *
 * @dependencies
 * - github.com/robfig/cron/v3
 * - go.uber.org/zap
 * - backend/internal/retry
 * - backend/internal/metrics
 *
 * @notes
 * Cycles never overlap. A trigger that finds a cycle still running is skipped and
 * counted. Every stage is retried on its own and a failed stage does not stop the
 * stages after it; they work on whatever the previous cycle left in the store.
 */

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/metrics"
	"github.com/ttms-project/backend/internal/models"
	"github.com/ttms-project/backend/internal/retry"
	"github.com/ttms-project/backend/internal/services"
	"github.com/ttms-project/backend/internal/store"
)

// Cron specs, evaluated in UTC.
const (
	HourlySpec   = "0 * * * *"
	AutoVoteSpec = "35 * * * *"
)

// Stage names, used for logs and metric labels.
const (
	StageTokens    = "tokens"
	StageHolders   = "holders"
	StageVolume    = "volume"
	StageScore     = "score"
	StageHourly    = "hourly"
	StageRollup    = "rollup"
	StagePortfolio = "portfolio"
	StageSnapshot  = "snapshot"
	StageAnnounce  = "announce"
	StageRotate    = "rotate"
	StageAutoVote  = "autovote"
)

// RollupHour is the UTC hour after whose write the daily rollup runs.
const RollupHour = 23

// PST is the fixed UTC-7 zone the checkpoints are named in.
var PST = time.FixedZone("PST", -7*60*60)

// Checkpoint returns the snapshot tag for t's PST hour, if it is one of the four
// daily checkpoints.
func Checkpoint(t time.Time) (string, bool) {
	switch t.In(PST).Hour() {
	case 3:
		return models.Tag3am, true
	case 9:
		return models.Tag9am, true
	case 15:
		return models.Tag3pm, true
	case 21:
		return models.Tag9pm, true
	}
	return "", false
}

// Services is the set of pipeline stages the scheduler drives.
type Services struct {
	Tokens    *services.TokenService
	Holders   *services.HolderService
	Volumes   *services.VolumeService
	Scores    *services.ScoreService
	Votes     *services.VoteService
	Hourly    *services.HourlyService
	Snapshots *services.SnapshotService
	Portfolio *services.PortfolioService
}

// StageResult is the outcome of one stage of a cycle.
type StageResult struct {
	Stage    string
	Err      error
	Duration time.Duration
}

// Report summarizes one triggered cycle.
type Report struct {
	Job      string
	At       time.Time
	Skipped  bool
	Stages   []StageResult
	Snapshot *models.Snapshot
}

// Failed lists the stages that ended in an error.
func (r Report) Failed() []string {
	var out []string
	for _, s := range r.Stages {
		if s.Err != nil {
			out = append(out, s.Stage)
		}
	}
	return out
}

// Scheduler runs the pipeline on a cron and serializes its cycles.
type Scheduler struct {
	Services
	Retry         retry.Config
	AutoVotesTopK int
	Logger        *zap.Logger

	Cron *cron.Cron

	running sync.Mutex
}

// New builds a scheduler from config. logger may be nil.
func New(svcs Services, cfg *config.Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		Services:      svcs,
		Retry:         retry.Config{Attempts: cfg.Scoring.RetryAttempts, Delay: cfg.Scoring.RetryDelay},
		AutoVotesTopK: cfg.Scoring.AutoVotesTopK,
		Logger:        logger,
	}
}

// Start registers both jobs and starts the cron. Each run is bounded by ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	s.Cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)

	if _, err := s.Cron.AddFunc(HourlySpec, func() { s.RunHourly(ctx, time.Now().UTC()) }); err != nil {
		return fmt.Errorf("failed to schedule hourly cycle: %w", err)
	}
	if _, err := s.Cron.AddFunc(AutoVoteSpec, func() { s.RunAutoVote(ctx, time.Now().UTC()) }); err != nil {
		return fmt.Errorf("failed to schedule auto-vote cycle: %w", err)
	}

	s.Cron.Start()
	s.Logger.Info("Scheduler started", zap.String("hourly", HourlySpec), zap.String("autovote", AutoVoteSpec))
	return nil
}

// Stop stops the cron and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	if s.Cron != nil {
		<-s.Cron.Stop().Done()
	}
}

// RunHourly runs one full cycle for now.
func (s *Scheduler) RunHourly(ctx context.Context, now time.Time) Report {
	report := Report{Job: "hourly", At: now}
	if !s.running.TryLock() {
		return s.skip(report)
	}
	defer s.running.Unlock()

	s.stage(ctx, &report, StageTokens, func(ctx context.Context) error {
		_, err := s.Tokens.Refresh(ctx, now)
		return err
	})
	s.stage(ctx, &report, StageHolders, func(ctx context.Context) error {
		_, err := s.Holders.Run(ctx, now)
		return err
	})
	s.stage(ctx, &report, StageVolume, func(ctx context.Context) error {
		return s.Volumes.Run(ctx, now)
	})
	s.stage(ctx, &report, StageScore, func(ctx context.Context) error {
		_, err := s.Scores.Solve(ctx, now)
		return err
	})
	s.stage(ctx, &report, StageHourly, func(ctx context.Context) error {
		_, err := s.Hourly.Write(ctx, now)
		return err
	})
	if now.UTC().Hour() == RollupHour {
		s.stage(ctx, &report, StageRollup, func(ctx context.Context) error {
			_, err := s.Hourly.Rollup(ctx, now)
			return err
		})
	}
	s.stage(ctx, &report, StagePortfolio, func(ctx context.Context) error {
		_, err := s.Portfolio.Refresh(ctx, now)
		return err
	})

	if tag, ok := Checkpoint(now); ok {
		s.checkpoint(ctx, &report, tag, now)
	}

	s.finish(report)
	return report
}

func (s *Scheduler) checkpoint(ctx context.Context, report *Report, tag string, now time.Time) {
	fresh := false
	err := s.stage(ctx, report, StageSnapshot, func(ctx context.Context) error {
		snap, err := s.Snapshots.Take(ctx, tag, now)
		switch {
		case errors.Is(err, store.ErrDuplicateKey):
			s.Logger.Info("Snapshot already taken", zap.String("tag", tag))
			report.Snapshot = snap
			return nil
		case err != nil:
			return err
		}
		report.Snapshot = snap
		fresh = true
		return nil
	})
	if err != nil || report.Snapshot == nil {
		return
	}

	if fresh {
		s.stage(ctx, report, StageAnnounce, func(ctx context.Context) error {
			return s.Snapshots.Announce(ctx, report.Snapshot)
		})
	}
	if models.IsSessionTag(tag) {
		s.stage(ctx, report, StageRotate, func(ctx context.Context) error {
			return s.Portfolio.Rotate(ctx, tag, report.Snapshot, now)
		})
	}
}

// RunAutoVote casts the system votes for the current hour and rescores.
func (s *Scheduler) RunAutoVote(ctx context.Context, now time.Time) Report {
	report := Report{Job: "autovote", At: now}
	if !s.running.TryLock() {
		return s.skip(report)
	}
	defer s.running.Unlock()

	s.stage(ctx, &report, StageAutoVote, func(ctx context.Context) error {
		_, err := s.Votes.AutoVote(ctx, now, s.AutoVotesTopK)
		return err
	})
	s.stage(ctx, &report, StageScore, func(ctx context.Context) error {
		_, err := s.Scores.Solve(ctx, now)
		return err
	})

	s.finish(report)
	return report
}

func (s *Scheduler) stage(ctx context.Context, report *Report, name string, fn func(ctx context.Context) error) error {
	started := time.Now()
	err := retry.Do(ctx, s.Retry, s.Logger, name, fn)
	metrics.ObserveStage(name, started, err)
	report.Stages = append(report.Stages, StageResult{Stage: name, Err: err, Duration: time.Since(started)})
	if err != nil {
		s.Logger.Error("Stage failed", zap.String("job", report.Job), zap.String("stage", name), zap.Error(err))
	}
	return err
}

func (s *Scheduler) skip(report Report) Report {
	report.Skipped = true
	metrics.SkippedCycles.WithLabelValues(report.Job).Inc()
	s.Logger.Warn("Previous cycle still running, skipping trigger", zap.String("job", report.Job), zap.Time("at", report.At))
	return report
}

func (s *Scheduler) finish(report Report) {
	failed := report.Failed()
	if len(failed) > 0 {
		s.Logger.Warn("Cycle finished with failures",
			zap.String("job", report.Job),
			zap.Strings("failed", failed),
			zap.Int("stages", len(report.Stages)))
		return
	}
	s.Logger.Info("Cycle finished", zap.String("job", report.Job), zap.Int("stages", len(report.Stages)))
}
