package services

import (
	"context"
	"fmt"

	"clicker-battle/events"
	"clicker-battle/logger"
	"clicker-battle/metrics"
	"clicker-battle/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChallengeService handles direct challenges between two users.
type ChallengeService struct {
	DB       *gorm.DB
	Store    *MatchStore
	Notifier events.Notifier
	Log      *logger.Logger
}

func NewChallengeService(db *gorm.DB, notifier events.Notifier, log *logger.Logger) *ChallengeService {
	return &ChallengeService{DB: db, Store: NewMatchStore(db), Notifier: notifier, Log: log}
}

// Challenge creates a waiting challenge from challenger to opponent.
func (s *ChallengeService) Challenge(ctx context.Context, challengerID, opponentID string) (*models.Match, error) {
	if challengerID == opponentID {
		return nil, ErrInvalidOpponent
	}
	if _, err := uuid.Parse(opponentID); err != nil {
		return nil, ErrInvalidOpponent
	}

	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", opponentID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("look up opponent: %w", err)
	}
	if count == 0 {
		return nil, ErrInvalidOpponent
	}

	m, err := s.Store.Create(ctx, challengerID, &opponentID, models.KindChallenge, models.StatusWaiting)
	if err != nil {
		return nil, err
	}
	metrics.MatchesCreatedTotal.WithLabelValues(models.KindChallenge).Inc()
	s.Log.Info("challenge created",
		zap.String("match_id", m.ID), zap.String("challenger_id", challengerID), zap.String("opponent_id", opponentID))
	return m, nil
}

// Pending returns the newest challenge waiting for userID, or nil.
func (s *ChallengeService) Pending(ctx context.Context, userID string) (*PendingChallenge, error) {
	return s.Store.PendingChallengeFor(ctx, userID)
}

func (s *ChallengeService) Accept(ctx context.Context, matchID, userID string) (*models.Match, error) {
	m, err := s.Store.AcceptChallenge(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	metrics.MatchesStartedTotal.WithLabelValues(models.KindChallenge).Inc()
	publishMatchEvent(ctx, s.Notifier, s.Log, m, events.TypeStarted)
	s.Log.Info("challenge accepted", zap.String("match_id", m.ID), zap.String("user_id", userID))
	return m, nil
}

// Decline removes the challenge if it is still waiting for userID. Always acknowledged.
func (s *ChallengeService) Decline(ctx context.Context, matchID, userID string) error {
	deleted, err := s.Store.DeclineChallenge(ctx, matchID, userID)
	if err != nil {
		return err
	}
	if deleted {
		publishMatchEvent(ctx, s.Notifier, s.Log, &models.Match{ID: matchID, Status: "declined"}, events.TypeDeleted)
		s.Log.Info("challenge declined", zap.String("match_id", matchID), zap.String("user_id", userID))
	}
	return nil
}

// Status reports the state of a challenge the user created.
func (s *ChallengeService) Status(ctx context.Context, matchID, userID string) (string, error) {
	return s.Store.ChallengeStatus(ctx, matchID, userID)
}
