package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clicker-battle/models"

	"gorm.io/gorm"
)

// MatchStore persists matches and their state transitions. Every transition is a single
// conditional statement so concurrent callers cannot move a match twice.
type MatchStore struct {
	DB *gorm.DB
}

func NewMatchStore(db *gorm.DB) *MatchStore {
	return &MatchStore{DB: db}
}

// WithTx returns a store bound to tx.
func (s *MatchStore) WithTx(tx *gorm.DB) *MatchStore {
	return &MatchStore{DB: tx}
}

// PendingChallenge is the newest waiting challenge addressed to a user.
type PendingChallenge struct {
	ChallengeID      string    `json:"challengeId"`
	ChallengerID     string    `json:"challengerId"`
	ChallengerName   string    `json:"challengerName"`
	ChallengerRating int       `json:"challengerRating"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (s *MatchStore) Create(ctx context.Context, player1 string, player2 *string, kind, status string) (*models.Match, error) {
	m := &models.Match{
		Kind:      kind,
		Player1ID: player1,
		Player2ID: player2,
		Status:    status,
	}
	if status == models.StatusInProgress {
		now := time.Now()
		m.StartedAt = &now
	}
	if err := s.DB.WithContext(ctx).Create(m).Error; err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

func (s *MatchStore) Get(ctx context.Context, id string) (*models.Match, error) {
	var m models.Match
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}
	return &m, nil
}

// View loads a match with both players' usernames and current ratings.
func (s *MatchStore) View(ctx context.Context, id string) (*models.MatchView, error) {
	var v models.MatchView
	res := s.DB.WithContext(ctx).Table("matches").
		Select(`matches.*,
			u1.username AS player1_username, u1.elo_rating AS player1_elo,
			u2.username AS player2_username, u2.elo_rating AS player2_elo`).
		Joins("JOIN users u1 ON u1.id = matches.player1_id").
		Joins("LEFT JOIN users u2 ON u2.id = matches.player2_id").
		Where("matches.id = ?", id).
		Limit(1).
		Scan(&v)
	if res.Error != nil {
		return nil, fmt.Errorf("load match view %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &v, nil
}

// UpdateClicks overwrites the caller's click counter. Status is checked before
// participation, and the write itself is guarded so a report racing a finish loses.
func (s *MatchStore) UpdateClicks(ctx context.Context, id, userID string, clicks int) error {
	if clicks < 0 {
		return ErrInvalidClicks
	}

	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if m.Status != models.StatusInProgress {
		return ErrMatchNotActive
	}

	var column string
	switch {
	case m.Player1ID == userID:
		column = "player1_clicks"
	case m.Player2ID != nil && *m.Player2ID == userID:
		column = "player2_clicks"
	default:
		return ErrNotAParticipant
	}

	res := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND status = ?", id, models.StatusInProgress).
		Update(column, clicks)
	if res.Error != nil {
		return fmt.Errorf("update clicks: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrMatchNotActive
	}
	return nil
}

// AcceptChallenge starts a waiting challenge addressed to accepter.
func (s *MatchStore) AcceptChallenge(ctx context.Context, id, accepter string) (*models.Match, error) {
	res := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND player2_id = ? AND status = ? AND kind = ?",
			id, accepter, models.StatusWaiting, models.KindChallenge).
		Updates(map[string]any{
			"status":     models.StatusInProgress,
			"started_at": time.Now(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("accept challenge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrChallengeNotFound
	}
	return s.Get(ctx, id)
}

// DeclineChallenge deletes a waiting challenge addressed to recipient. Reports whether a
// row was removed; nothing matching is not an error.
func (s *MatchStore) DeclineChallenge(ctx context.Context, id, recipient string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND player2_id = ? AND status = ? AND kind = ?",
			id, recipient, models.StatusWaiting, models.KindChallenge).
		Delete(&models.Match{})
	if res.Error != nil {
		return false, fmt.Errorf("decline challenge: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// CancelWaiting deletes a waiting match owned by owner. A match that was already paired
// returns ErrInvalidState; a missing one is acknowledged.
func (s *MatchStore) CancelWaiting(ctx context.Context, id, owner string) (bool, error) {
	res := s.DB.WithContext(ctx).
		Where("id = ? AND player1_id = ? AND status = ?", id, owner, models.StatusWaiting).
		Delete(&models.Match{})
	if res.Error != nil {
		return false, fmt.Errorf("cancel waiting match: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	m, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if m.Player1ID != owner {
		return false, nil
	}
	return false, ErrInvalidState
}

// ClaimWaiting pairs claimant into a waiting matchmaking entry if it is still open.
func (s *MatchStore) ClaimWaiting(ctx context.Context, id, claimant string) (bool, error) {
	res := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id = ? AND kind = ? AND status = ? AND player2_id IS NULL AND player1_id <> ?",
			id, models.KindMatchmaking, models.StatusWaiting, claimant).
		Updates(map[string]any{
			"player2_id": claimant,
			"status":     models.StatusInProgress,
			"started_at": time.Now(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("claim waiting match: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// WaitingCandidates lists open matchmaking entries whose owner's rating is within
// [minRating, maxRating], earliest first.
func (s *MatchStore) WaitingCandidates(ctx context.Context, requester string, minRating, maxRating, limit int) ([]models.Match, error) {
	var out []models.Match
	err := s.DB.WithContext(ctx).Model(&models.Match{}).
		Select("matches.*").
		Joins("JOIN users ON users.id = matches.player1_id").
		Where("matches.kind = ? AND matches.status = ? AND matches.player2_id IS NULL AND matches.player1_id <> ?",
			models.KindMatchmaking, models.StatusWaiting, requester).
		Where("users.elo_rating BETWEEN ? AND ?", minRating, maxRating).
		Order("matches.created_at ASC, matches.id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("find waiting candidates: %w", err)
	}
	return out, nil
}

// OwnWaiting returns the user's open matchmaking entry, or nil.
func (s *MatchStore) OwnWaiting(ctx context.Context, userID string) (*models.Match, error) {
	var m models.Match
	err := s.DB.WithContext(ctx).
		Where("player1_id = ? AND kind = ? AND status = ? AND player2_id IS NULL",
			userID, models.KindMatchmaking, models.StatusWaiting).
		Order("created_at ASC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find own waiting entry: %w", err)
	}
	return &m, nil
}

// PendingChallengeFor returns the most recent waiting challenge addressed to userID, or nil.
func (s *MatchStore) PendingChallengeFor(ctx context.Context, userID string) (*PendingChallenge, error) {
	var row struct {
		ID        string
		Player1ID string
		Username  string
		EloRating int
		CreatedAt time.Time
	}
	res := s.DB.WithContext(ctx).Table("matches").
		Select("matches.id, matches.player1_id, users.username, users.elo_rating, matches.created_at").
		Joins("JOIN users ON users.id = matches.player1_id").
		Where("matches.player2_id = ? AND matches.status = ? AND matches.kind = ?",
			userID, models.StatusWaiting, models.KindChallenge).
		Order("matches.created_at DESC").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, fmt.Errorf("find pending challenge: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &PendingChallenge{
		ChallengeID:      row.ID,
		ChallengerID:     row.Player1ID,
		ChallengerName:   row.Username,
		ChallengerRating: row.EloRating,
		CreatedAt:        row.CreatedAt,
	}, nil
}

// ChallengeStatus reports the status of a match the requester created.
func (s *MatchStore) ChallengeStatus(ctx context.Context, id, requester string) (string, error) {
	var m models.Match
	err := s.DB.WithContext(ctx).Select("id", "status").
		Where("id = ? AND player1_id = ?", id, requester).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load challenge status: %w", err)
	}
	return m.Status, nil
}

// DeleteStaleWaiting removes matchmaking entries nobody claimed before cutoff.
func (s *MatchStore) DeleteStaleWaiting(ctx context.Context, cutoff time.Time) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("kind = ? AND status = ? AND player2_id IS NULL AND created_at < ?",
			models.KindMatchmaking, models.StatusWaiting, cutoff).
		Delete(&models.Match{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete stale waiting entries: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CompletedUnarchived lists completed matches not yet exported, oldest first.
func (s *MatchStore) CompletedUnarchived(ctx context.Context, limit int) ([]models.Match, error) {
	var out []models.Match
	err := s.DB.WithContext(ctx).
		Where("status = ? AND archived_at IS NULL", models.StatusCompleted).
		Order("completed_at ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("find unarchived matches: %w", err)
	}
	return out, nil
}

func (s *MatchStore) MarkArchived(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).Model(&models.Match{}).
		Where("id IN ?", ids).
		Update("archived_at", at).Error
	if err != nil {
		return fmt.Errorf("mark matches archived: %w", err)
	}
	return nil
}
