// services/users.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"clicker-battle/logger"
	"clicker-battle/models"

	"gorm.io/gorm"
)

const (
	LeaderboardSize = 100
	maxPlayersList  = 200
	maxHistoryRows  = 100
)

// UserService serves profile, presence and ranking reads.
type UserService struct {
	DB  *gorm.DB
	Log *logger.Logger
	now func() time.Time
}

func NewUserService(db *gorm.DB, log *logger.Logger) *UserService {
	return &UserService{DB: db, Log: log, now: time.Now}
}

// PlayerSummary is the public view of a user in lists.
type PlayerSummary struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	EloRating   int        `json:"elo_rating"`
	GamesPlayed int        `json:"games_played"`
	GamesWon    int        `json:"games_won"`
	GamesLost   int        `json:"games_lost"`
	TotalClicks int64      `json:"total_clicks"`
	LastActive  *time.Time `json:"last_activity,omitempty"`
	IsOnline    bool       `json:"is_online"`
}

func summarize(u models.User, now time.Time) PlayerSummary {
	return PlayerSummary{
		ID:          u.ID,
		Username:    u.Username,
		EloRating:   u.EloRating,
		GamesPlayed: u.GamesPlayed,
		GamesWon:    u.GamesWon,
		GamesLost:   u.GamesLost,
		TotalClicks: u.TotalClicks,
		LastActive:  u.LastActivity,
		IsOnline:    u.IsOnline(now),
	}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return &u, nil
}

// Heartbeat marks the user as active now.
func (s *UserService) Heartbeat(ctx context.Context, userID string) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_activity", s.now())
	if res.Error != nil {
		return fmt.Errorf("heartbeat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Players lists everyone except the caller, online players first, then by rating.
func (s *UserService) Players(ctx context.Context, excludeID string) ([]PlayerSummary, error) {
	var users []models.User
	if err := s.DB.WithContext(ctx).
		Where("id <> ?", excludeID).
		Order("elo_rating DESC, username ASC").
		Limit(maxPlayersList).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	now := s.now()
	out := make([]PlayerSummary, len(users))
	for i, u := range users {
		out[i] = summarize(u, now)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].IsOnline && !out[j].IsOnline
	})
	return out, nil
}

// Leaderboard returns the top players by rating.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]PlayerSummary, error) {
	if limit <= 0 || limit > LeaderboardSize {
		limit = LeaderboardSize
	}

	var users []models.User
	if err := s.DB.WithContext(ctx).
		Order("elo_rating DESC, games_won DESC, username ASC").
		Limit(limit).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}

	now := s.now()
	out := make([]PlayerSummary, len(users))
	for i, u := range users {
		out[i] = summarize(u, now)
	}
	return out, nil
}

// EloHistory returns the user's rating changes, newest first.
func (s *UserService) EloHistory(ctx context.Context, userID string, limit int) ([]models.EloHistory, error) {
	if limit <= 0 || limit > maxHistoryRows {
		limit = maxHistoryRows
	}

	var rows []models.EloHistory
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load rating history: %w", err)
	}
	return rows, nil
}
