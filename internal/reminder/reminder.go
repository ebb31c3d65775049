// Package reminder periodically nudges participants who still owe money on
// open bills.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/campus-pay/campus_pay/internal/ledger"
	"github.com/campus-pay/campus_pay/internal/notification"
)

const runTimeout = time.Minute

// Scheduler sends reminders for unpaid splits on a cron schedule.
type Scheduler struct {
	store    ledger.Store
	notifier notification.Notifier
	logger   *slog.Logger
	cron     *cron.Cron
	schedule string
}

// New builds a scheduler firing on schedule, a standard five-field cron expression.
func New(store ledger.Store, notifier notification.Notifier, logger *slog.Logger, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		logger:   logger,
		schedule: schedule,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger), cron.Recover(cron.DiscardLogger))),
	}
	if _, err := s.cron.AddFunc(schedule, s.tick); err != nil {
		return nil, fmt.Errorf("parse reminder schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reminder scheduler started", slog.String("schedule", s.schedule))
}

// Stop halts the schedule and waits for a running job to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	sent, err := s.RunOnce(ctx)
	if err != nil {
		s.logger.Error("reminder run failed", slog.Any("error", err))
		return
	}
	s.logger.Info("reminders sent", slog.Int("count", sent))
}

// RunOnce queues one reminder per unpaid, non-creator split of every open
// bill and returns how many were queued.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	bills, err := s.store.OpenBills(ctx)
	if err != nil {
		return 0, fmt.Errorf("load open bills: %w", err)
	}
	sent := 0
	for _, bill := range bills {
		for _, split := range bill.Splits {
			if split.Paid || split.UserID == bill.CreatorID {
				continue
			}
			msg := fmt.Sprintf("Reminder: you owe %s for %q", split.Amount.StringFixed(2), bill.Description)
			if err := s.notifier.Send(ctx, notification.New(split.UserID, notification.TypeGroup, msg, bill.ID)); err != nil {
				s.logger.Warn("reminder not queued", slog.String("user_id", split.UserID), slog.Any("error", err))
				continue
			}
			sent++
		}
	}
	return sent, nil
}
