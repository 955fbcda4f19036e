package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DefaultRating = 1000
	OnlineWindow  = 60 * time.Second
)

// User is a registered player. Rating and aggregate stats are only changed by the finisher.
type User struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	Username     string `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Handle       string `gorm:"uniqueIndex;size:64;not null" json:"handle"` // slug of username
	PasswordHash string `gorm:"not null" json:"-"`

	EloRating   int   `json:"elo_rating" gorm:"not null;default:1000"`
	TotalClicks int64 `json:"total_clicks" gorm:"default:0"`
	GamesPlayed int   `json:"games_played" gorm:"default:0"`
	GamesWon    int   `json:"games_won" gorm:"default:0"`
	GamesLost   int   `json:"games_lost" gorm:"default:0"`

	LastActivity *time.Time `json:"last_activity,omitempty"`
	LastLogin    *time.Time `json:"last_login,omitempty"`

	Timestamps
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	newID(&u.ID)
	if u.EloRating == 0 {
		u.EloRating = DefaultRating
	}
	return nil
}

// IsOnline reports whether the user sent a heartbeat within the online window.
func (u *User) IsOnline(now time.Time) bool {
	return IsOnline(u.LastActivity, now)
}

func IsOnline(lastActivity *time.Time, now time.Time) bool {
	if lastActivity == nil {
		return false
	}
	return now.Sub(*lastActivity) < OnlineWindow
}
