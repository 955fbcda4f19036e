package services

import (
	"context"
	"time"

	"clicker-battle/events"
	"clicker-battle/logger"
	"clicker-battle/metrics"
	"clicker-battle/models"

	"gorm.io/gorm"
)

const defaultWatchTimeout = 5 * time.Second

// BattleService serves click reports and reads of a running match. The battle clock runs
// on the clients; the server only stores the latest counts.
type BattleService struct {
	Store    *MatchStore
	Notifier events.Notifier
	Log      *logger.Logger
	WatchMax time.Duration
}

func NewBattleService(db *gorm.DB, notifier events.Notifier, log *logger.Logger, watchMax time.Duration) *BattleService {
	return &BattleService{Store: NewMatchStore(db), Notifier: notifier, Log: log, WatchMax: watchMax}
}

// ReportClicks stores the caller's latest click count.
func (s *BattleService) ReportClicks(ctx context.Context, matchID, userID string, clicks int) error {
	if err := s.Store.UpdateClicks(ctx, matchID, userID, clicks); err != nil {
		return err
	}
	metrics.ClickReportsTotal.Inc()

	if m, err := s.Store.Get(ctx, matchID); err == nil {
		publishMatchEvent(ctx, s.Notifier, s.Log, m, events.TypeClicks)
	}
	return nil
}

func (s *BattleService) Match(ctx context.Context, matchID string) (*models.MatchView, error) {
	return s.Store.View(ctx, matchID)
}

// Watch waits for the next change to the match, at most timeout, and returns its view.
// If knownStatus is set and the match is already in another status it returns at once.
func (s *BattleService) Watch(ctx context.Context, matchID, knownStatus string, timeout time.Duration) (*models.MatchView, error) {
	if timeout <= 0 {
		timeout = defaultWatchTimeout
	}
	if s.WatchMax > 0 && timeout > s.WatchMax {
		timeout = s.WatchMax
	}

	// subscribe before reading so a change in between is not lost
	ch, cancel, err := s.Notifier.Subscribe(ctx, matchID)
	if err != nil {
		return nil, err
	}
	defer cancel()

	view, err := s.Store.View(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if view.Status == models.StatusCompleted || (knownStatus != "" && view.Status != knownStatus) {
		return view, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
	case <-timer.C:
		return view, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return s.Store.View(ctx, matchID)
}
