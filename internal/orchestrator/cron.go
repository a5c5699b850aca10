package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/weatherdesk/tradecore/internal/logging"
)

// Scheduler drives the background plane's three periodic tasks: the
// trading cycle, the daily settlement sweep, and the pending-trade TTL
// sweep. Each job runs on its own cron schedule and never overlaps
// itself (robfig/cron skips a tick already running).
type Scheduler struct {
	cron             *cron.Cron
	cycle            *Cycle
	settlementSweep  *SettlementSweep
	pendingSweep     *PendingTradeSweep
	log              zerolog.Logger
}

// NewScheduler builds a Scheduler.
func NewScheduler(cycle *Cycle, settlementSweep *SettlementSweep, pendingSweep *PendingTradeSweep, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:            cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		cycle:           cycle,
		settlementSweep: settlementSweep,
		pendingSweep:    pendingSweep,
		log:             logging.For(log, logging.TagSystem),
	}
}

// CycleSchedule builds an "@every" cron spec from a plain interval in
// seconds (config's cycle_interval_seconds), used when no cron_schedule
// is configured.
func CycleSchedule(intervalSeconds int) string {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return fmt.Sprintf("@every %ds", intervalSeconds)
}

// Start registers all three jobs and starts the cron scheduler. It
// does not block; callers drive their own lifetime via ctx and call
// Stop on shutdown. cycleSchedule is a cron expression (config's
// cron_schedule) or an "@every Ns" interval from CycleSchedule.
func (s *Scheduler) Start(ctx context.Context, cycleSchedule string) error {
	if _, err := s.cron.AddFunc(cycleSchedule, func() {
		if err := s.cycle.Run(ctx, time.Now()); err != nil {
			s.log.Error().Err(err).Msg("trading cycle failed")
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("@every 5m", func() {
		n, err := s.settlementSweep.Run(ctx, time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("settlement sweep failed")
			return
		}
		if n > 0 {
			s.log.Info().Int("settled", n).Msg("settlement sweep completed")
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("@every 1m", func() {
		n, err := s.pendingSweep.Run(ctx, time.Now())
		if err != nil {
			s.log.Error().Err(err).Msg("pending trade sweep failed")
			return
		}
		if n > 0 {
			s.log.Info().Int("expired", n).Msg("pending trade sweep expired stale trades")
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
