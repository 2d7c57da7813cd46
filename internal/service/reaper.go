package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lshigami/codescreen/config"
	"github.com/lshigami/codescreen/internal/apperrors"
	"github.com/lshigami/codescreen/internal/model"
	"github.com/lshigami/codescreen/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// SweepReport summarises one reaper pass.
type SweepReport struct {
	Checked          int
	Submitted        int
	AlreadyCompleted int
	Failed           int
}

// Reaper periodically force-submits in-progress sessions whose time plus grace
// period has run out. It goes through the same submit path as candidates do.
type Reaper struct {
	candidateRepo repository.CandidateRepository
	testRepo      repository.TestRepository
	sessions      SessionService
	clock         Clock
	cfg           config.Reaper

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewReaper(
	cfg *config.Config,
	candidateRepo repository.CandidateRepository,
	testRepo repository.TestRepository,
	sessions SessionService,
	clock Clock,
) *Reaper {
	return &Reaper{
		candidateRepo: candidateRepo,
		testRepo:      testRepo,
		sessions:      sessions,
		clock:         clock,
		cfg:           cfg.Reaper,
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Start launches the sweep loop in its own goroutine.
func (r *Reaper) Start() {
	log.Info().Dur("interval", r.cfg.Interval).Dur("gracePeriod", r.cfg.GracePeriod).Msg("Reaper: starting")
	go r.run()
}

// Stop ends the loop and waits for an in-flight sweep to drain, or for ctx to expire.
func (r *Reaper) Stop(ctx context.Context) error {
	r.stopOnce.Do(func() { close(r.stop) })
	select {
	case <-r.done:
		log.Info().Msg("Reaper: stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reaper) run() {
	defer close(r.done)
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			report := r.Sweep(context.Background())
			if report.Submitted > 0 || report.Failed > 0 {
				log.Info().
					Int("checked", report.Checked).
					Int("submitted", report.Submitted).
					Int("alreadyCompleted", report.AlreadyCompleted).
					Int("failed", report.Failed).
					Msg("Reaper: sweep finished")
			}
		}
	}
}

// Deadline is when an in-progress session becomes eligible for reaping.
func (r *Reaper) Deadline(startedAt time.Time, test *model.Test) time.Time {
	return startedAt.Add(test.Allowance() + r.cfg.GracePeriod)
}

// Sweep runs one pass. Per-candidate failures are logged and counted, never returned.
func (r *Reaper) Sweep(ctx context.Context) SweepReport {
	var report SweepReport

	candidates, err := r.candidateRepo.FindInProgress(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Reaper: failed to list in-progress sessions")
		return report
	}
	report.Checked = len(candidates)
	if len(candidates) == 0 {
		return report
	}

	now := r.clock.Now()
	tests := make(map[uint]*model.Test)
	var overdue []model.Candidate
	for _, c := range candidates {
		if c.StartedAt == nil {
			log.Warn().Uint("candidateID", c.ID).Msg("Reaper: in-progress session without start time, skipping")
			continue
		}
		test, ok := tests[c.TestID]
		if !ok {
			test, err = r.testRepo.FindByID(ctx, c.TestID)
			if err != nil {
				log.Warn().Err(err).Uint("candidateID", c.ID).Uint("testID", c.TestID).Msg("Reaper: test lookup failed, skipping")
				report.Failed++
				continue
			}
			tests[c.TestID] = test
		}
		if now.After(r.Deadline(*c.StartedAt, test)) {
			overdue = append(overdue, c)
		}
	}

	var submitted, alreadyCompleted, failed atomic.Int64
	p := pool.New().WithMaxGoroutines(r.cfg.Concurrency)
	for i := range overdue {
		candidate := overdue[i]
		p.Go(func() {
			submitCtx, cancel := context.WithTimeout(ctx, r.cfg.SubmitTimeout)
			defer cancel()

			result, err := r.sessions.SubmitCandidate(submitCtx, &candidate, true)
			switch {
			case errors.Is(err, apperrors.ErrAlreadyCompleted):
				alreadyCompleted.Add(1)
			case err != nil:
				failed.Add(1)
				log.Error().Err(err).Uint("candidateID", candidate.ID).Msg("Reaper: auto-submit failed")
			default:
				submitted.Add(1)
				log.Info().Uint("candidateID", candidate.ID).Int("score", result.Score).Msg("Reaper: session auto-submitted after timeout")
			}
		})
	}
	p.Wait()

	report.Submitted = int(submitted.Load())
	report.AlreadyCompleted = int(alreadyCompleted.Load())
	report.Failed += int(failed.Load())
	return report
}
