package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	KindChallenge   = "challenge"
	KindMatchmaking = "matchmaking"

	StatusWaiting    = "waiting"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

// Match is one battle between two players, from challenge or matchmaking through completion.
type Match struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	Kind      string  `gorm:"type:varchar(16);index;not null" json:"kind"`
	Player1ID string  `gorm:"type:uuid;index;not null" json:"player1_id"`
	Player2ID *string `gorm:"type:uuid;index" json:"player2_id"`
	Status    string  `gorm:"type:varchar(16);index;not null;default:'waiting'" json:"status"`

	Player1Clicks int `json:"player1_clicks" gorm:"not null;default:0"`
	Player2Clicks int `json:"player2_clicks" gorm:"not null;default:0"`

	// Outcome; nil until completed. WinnerID stays nil on a draw.
	WinnerID         *string `gorm:"type:uuid" json:"winner_id"`
	Player1EloChange *int    `json:"player1_elo_change"`
	Player2EloChange *int    `json:"player2_elo_change"`
	Player1EloAfter  *int    `json:"player1_elo_after"`
	Player2EloAfter  *int    `json:"player2_elo_after"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	ArchivedAt  *time.Time `gorm:"index" json:"-"`

	Timestamps
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// IsParticipant reports whether userID is player1 or player2.
func (m *Match) IsParticipant(userID string) bool {
	return m.Player1ID == userID || (m.Player2ID != nil && *m.Player2ID == userID)
}

// MatchView is a match joined with both players' usernames and current ratings.
type MatchView struct {
	Match
	Player1Username string  `json:"player1_username"`
	Player1Elo      int     `json:"player1_elo"`
	Player2Username *string `json:"player2_username"`
	Player2Elo      *int    `json:"player2_elo"`
}
