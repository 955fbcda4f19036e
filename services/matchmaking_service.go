package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"clicker-battle/database"
	"clicker-battle/events"
	"clicker-battle/logger"
	"clicker-battle/metrics"
	"clicker-battle/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// matchmakingLockKey names the Postgres advisory lock that serializes pairing across instances.
const matchmakingLockKey int64 = 0x636c69636b

// MatchmakingService pairs users with a waiting opponent of similar rating, or queues them.
type MatchmakingService struct {
	DB         *gorm.DB
	Store      *MatchStore
	Notifier   events.Notifier
	Log        *logger.Logger
	EloRange   int
	Candidates int

	// search and create must not interleave, or two compatible users both end up waiting
	mu sync.Mutex
}

func NewMatchmakingService(db *gorm.DB, notifier events.Notifier, log *logger.Logger, eloRange, candidates int) *MatchmakingService {
	return &MatchmakingService{
		DB:         db,
		Store:      NewMatchStore(db),
		Notifier:   notifier,
		Log:        log,
		EloRange:   eloRange,
		Candidates: candidates,
	}
}

type MatchmakingResult struct {
	MatchID    string  `json:"matchId"`
	Waiting    bool    `json:"waiting"`
	OpponentID *string `json:"opponentId,omitempty"`
}

// RequestMatch claims the earliest compatible waiting entry, or returns the caller's own
// waiting entry, creating it if needed.
func (s *MatchmakingService) RequestMatch(ctx context.Context, userID string) (*MatchmakingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *MatchmakingResult
	var claimed *models.Match
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if database.IsPostgres(tx) {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", matchmakingLockKey).Error; err != nil {
				return fmt.Errorf("acquire matchmaking lock: %w", err)
			}
		}
		store := s.Store.WithTx(tx)

		var user models.User
		if err := tx.Select("id", "elo_rating").Where("id = ?", userID).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load rating: %w", err)
		}

		candidates, err := store.WaitingCandidates(ctx, userID, user.EloRating-s.EloRange, user.EloRating+s.EloRange, s.Candidates)
		if err != nil {
			return err
		}
		for i := range candidates {
			ok, err := store.ClaimWaiting(ctx, candidates[i].ID, userID)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			// the caller is paired now, so any entry they left waiting is obsolete
			if err := tx.Where("player1_id = ? AND kind = ? AND status = ?",
				userID, models.KindMatchmaking, models.StatusWaiting).
				Delete(&models.Match{}).Error; err != nil {
				return fmt.Errorf("drop own waiting entry: %w", err)
			}
			claimed, err = store.Get(ctx, candidates[i].ID)
			if err != nil {
				return err
			}
			opponent := claimed.Player1ID
			result = &MatchmakingResult{MatchID: claimed.ID, Waiting: false, OpponentID: &opponent}
			return nil
		}

		own, err := store.OwnWaiting(ctx, userID)
		if err != nil {
			return err
		}
		if own != nil {
			result = &MatchmakingResult{MatchID: own.ID, Waiting: true}
			return nil
		}

		m, err := store.Create(ctx, userID, nil, models.KindMatchmaking, models.StatusWaiting)
		if err != nil {
			return err
		}
		metrics.MatchesCreatedTotal.WithLabelValues(models.KindMatchmaking).Inc()
		result = &MatchmakingResult{MatchID: m.ID, Waiting: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if claimed != nil {
		metrics.MatchmakingPairedTotal.Inc()
		metrics.MatchesStartedTotal.WithLabelValues(models.KindMatchmaking).Inc()
		publishMatchEvent(ctx, s.Notifier, s.Log, claimed, events.TypeStarted)
		s.Log.Info("matchmaking paired",
			zap.String("match_id", claimed.ID), zap.String("player1_id", claimed.Player1ID), zap.String("player2_id", userID))
	} else {
		metrics.MatchmakingQueuedTotal.Inc()
		s.Log.Debug("matchmaking waiting", zap.String("match_id", result.MatchID), zap.String("user_id", userID))
	}
	return result, nil
}

// Cancel withdraws the user's waiting entry.
func (s *MatchmakingService) Cancel(ctx context.Context, matchID, userID string) error {
	deleted, err := s.Store.CancelWaiting(ctx, matchID, userID)
	if err != nil {
		return err
	}
	if deleted {
		publishMatchEvent(ctx, s.Notifier, s.Log, &models.Match{ID: matchID, Status: "cancelled"}, events.TypeDeleted)
		s.Log.Info("matchmaking cancelled", zap.String("match_id", matchID), zap.String("user_id", userID))
	}
	return nil
}

// SweepStaleWaiting deletes matchmaking entries left waiting longer than ttl.
func (s *MatchmakingService) SweepStaleWaiting(ctx context.Context, ttl time.Duration) (int64, error) {
	n, err := s.Store.DeleteStaleWaiting(ctx, time.Now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.StaleWaitingDeletedTotal.Add(float64(n))
	}
	return n, nil
}
