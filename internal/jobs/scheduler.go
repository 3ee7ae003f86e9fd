// Package jobs schedules the background sweeps: expiring stale waiting
// games, drawing due giveaways and purging settled rows.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/callzzzz333/mm2-arena/internal/config"
	"github.com/callzzzz333/mm2-arena/internal/services/battles"
	"github.com/callzzzz333/mm2-arena/internal/services/coinflip"
	"github.com/callzzzz333/mm2-arena/internal/services/crash"
	"github.com/callzzzz333/mm2-arena/internal/services/giveaways"
)

// Sweepers bundles every service with a background sweep.
type Sweepers struct {
	Coinflip  *coinflip.Service
	Battles   *battles.Service
	Giveaways *giveaways.Service
	Crash     *crash.Service
}

type Scheduler struct {
	cron *cron.Cron
	cfg  config.SweeperConfig
	s    Sweepers
}

// NewScheduler registers one sweep tick at the configured interval.
// Ticks never overlap: a slow sweep skips the next tick instead of
// stacking on top of it.
func NewScheduler(cfg config.SweeperConfig, s Sweepers) (*Scheduler, error) {
	sched := &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		cfg:  cfg,
		s:    s,
	}

	_, err := sched.cron.AddFunc(fmt.Sprintf("@every %s", cfg.Interval), sched.tick)
	if err != nil {
		return nil, fmt.Errorf("schedule sweep: %w", err)
	}

	return sched, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Interval)
	defer cancel()

	s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) {
	started := time.Now()

	swept, err := s.s.Coinflip.SweepExpired(ctx, s.cfg.CoinflipWindow)
	logSweep("coinflip", swept, err)

	swept, err = s.s.Battles.SweepExpired(ctx, s.cfg.BattleWindow)
	logSweep("battles", swept, err)

	swept, err = s.s.Giveaways.SweepDue(ctx)
	logSweep("giveaways_due", swept, err)

	swept, err = s.s.Giveaways.SweepCompleted(ctx)
	logSweep("giveaways_purge", swept, err)

	swept, err = s.s.Crash.SweepIdle(ctx, s.cfg.CrashIdleWindow)
	logSweep("crash", swept, err)

	slog.Debug("sweep tick done", "elapsed", time.Since(started))
}

func logSweep(name string, swept int, err error) {
	if err != nil {
		slog.Error("sweep failed", "sweep", name, "error", err)

		return
	}

	if swept > 0 {
		slog.Info("sweep done", "sweep", name, "swept", swept)
	}
}
