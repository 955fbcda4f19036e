package models

import (
	"time"

	"gorm.io/gorm"
)

// EloHistory is written once per player per completed match and never changed.
type EloHistory struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"type:uuid;not null;uniqueIndex:idx_elo_history_user_match,priority:1" json:"user_id"`
	MatchID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_elo_history_user_match,priority:2" json:"match_id"`
	OldElo    int       `json:"old_elo" gorm:"not null"`
	NewElo    int       `json:"new_elo" gorm:"not null"`
	EloChange int       `json:"elo_change" gorm:"not null"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (EloHistory) TableName() string {
	return "elo_history"
}

func (h *EloHistory) BeforeCreate(tx *gorm.DB) error {
	newID(&h.ID)
	return nil
}
