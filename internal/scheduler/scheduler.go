// Package scheduler runs the periodic evaluation trigger: every interval it
// enumerates organizations with enabled rules and runs one pass each,
// sequentially. The per-organization lock keeps a manual "run now" from
// overlapping with a ticking pass.
package scheduler

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"ads-autopilot/internal/engine"
)

type OrgLister interface {
	ListOrganizations(ctx context.Context) ([]string, error)
}

type Runner interface {
	Run(ctx context.Context, orgID string, dryRun bool) (engine.RunResult, error)
}

type Scheduler struct {
	orgs     OrgLister
	runner   Runner
	interval time.Duration
}

func New(orgs OrgLister, runner Runner, interval time.Duration) *Scheduler {
	return &Scheduler{orgs: orgs, runner: runner, interval: interval}
}

// Start ticks until ctx is canceled. The first sweep runs after one full
// interval so a restart loop does not hammer the platform.
func (s *Scheduler) Start(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Msg("scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	orgs, err := s.orgs.ListOrganizations(ctx)
	if err != nil {
		backoff := jitter(time.Second)
		log.Error().Err(err).Dur("retry_in", backoff).Msg("list organizations")
		time.Sleep(backoff)
		return
	}

	for _, orgID := range orgs {
		res, err := s.runner.Run(ctx, orgID, false)
		switch {
		case errors.Is(err, engine.ErrLockHeld):
			log.Info().Str("org_id", orgID).Msg("pass already running, skipping")
		case errors.Is(err, engine.ErrNoConnection):
			log.Warn().Str("org_id", orgID).Msg("no usable platform connection")
		case err != nil:
			log.Error().Err(err).Str("org_id", orgID).Msg("scheduled pass failed")
		default:
			log.Info().
				Str("org_id", orgID).
				Int("created", res.Created).
				Int("executed", res.Executed).
				Msg("scheduled pass done")
		}
	}
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	factor := 0.5 + rand.Float64() // 0.5x-1.5x
	return time.Duration(float64(base) * factor)
}
