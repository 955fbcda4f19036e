package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"clicker-battle/database"
	"clicker-battle/events"
	"clicker-battle/logger"
	"clicker-battle/metrics"
	"clicker-battle/models"
	"clicker-battle/rating"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errLostFinishRace = errors.New("match completed by a concurrent finish")

// Finisher completes a battle and applies the rating change exactly once.
type Finisher struct {
	DB       *gorm.DB
	Store    *MatchStore
	Notifier events.Notifier
	Results  events.ResultPublisher
	Log      *logger.Logger
}

func NewFinisher(db *gorm.DB, notifier events.Notifier, results events.ResultPublisher, log *logger.Logger) *Finisher {
	if results == nil {
		results = events.NopResultPublisher{}
	}
	return &Finisher{DB: db, Store: NewMatchStore(db), Notifier: notifier, Results: results, Log: log}
}

// FinishResult is the outcome of a completed match as returned to both players.
type FinishResult struct {
	MatchID          string  `json:"matchId"`
	WinnerID         *string `json:"winnerId"`
	IsDraw           bool    `json:"isDraw"`
	Player1ID        string  `json:"player1Id"`
	Player2ID        string  `json:"player2Id"`
	Player1Clicks    int     `json:"player1Clicks"`
	Player2Clicks    int     `json:"player2Clicks"`
	Player1EloChange int     `json:"player1EloChange"`
	Player2EloChange int     `json:"player2EloChange"`
	Player1NewElo    int     `json:"player1NewElo"`
	Player2NewElo    int     `json:"player2NewElo"`
	Replayed         bool    `json:"replayed"`
}

// Finish moves an in_progress match to completed, updates both players and records their
// rating history in one transaction. Finishing a completed match returns the stored result.
func (f *Finisher) Finish(ctx context.Context, matchID, requesterID string) (*FinishResult, error) {
	start := time.Now()

	var result *FinishResult
	var fresh *models.Match
	err := f.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := forUpdate(tx).Where("id = ?", matchID).First(&m).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("lock match: %w", err)
		}
		if !m.IsParticipant(requesterID) {
			return ErrNotAParticipant
		}
		if m.Status == models.StatusCompleted {
			result = replay(&m)
			return nil
		}
		if m.Status != models.StatusInProgress || m.Player2ID == nil {
			return ErrInvalidState
		}

		p1, p2, err := lockPlayers(tx, m.Player1ID, *m.Player2ID)
		if err != nil {
			return err
		}

		outcome := rating.OutcomeFor(m.Player1Clicks, m.Player2Clicks)
		d1, d2 := rating.Compute(p1.EloRating, p2.EloRating, outcome)
		new1, new2 := p1.EloRating+d1, p2.EloRating+d2

		var winnerID *string
		switch outcome {
		case rating.AWins:
			winnerID = &m.Player1ID
		case rating.BWins:
			winnerID = m.Player2ID
		}

		now := time.Now()
		res := tx.Model(&models.Match{}).
			Where("id = ? AND status = ?", m.ID, models.StatusInProgress).
			Updates(map[string]any{
				"status":             models.StatusCompleted,
				"winner_id":          winnerID,
				"player1_elo_change": d1,
				"player2_elo_change": d2,
				"player1_elo_after":  new1,
				"player2_elo_after":  new2,
				"completed_at":       now,
			})
		if res.Error != nil {
			return fmt.Errorf("complete match: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return errLostFinishRace
		}

		if err := applyResult(tx, p1, new1, m.Player1Clicks, outcome == rating.AWins, outcome == rating.BWins); err != nil {
			return err
		}
		if err := applyResult(tx, p2, new2, m.Player2Clicks, outcome == rating.BWins, outcome == rating.AWins); err != nil {
			return err
		}

		history := []models.EloHistory{
			{UserID: p1.ID, MatchID: m.ID, OldElo: p1.EloRating, NewElo: new1, EloChange: d1},
			{UserID: p2.ID, MatchID: m.ID, OldElo: p2.EloRating, NewElo: new2, EloChange: d2},
		}
		if err := tx.Create(&history).Error; err != nil {
			return fmt.Errorf("record rating history: %w", err)
		}

		m.Status = models.StatusCompleted
		m.WinnerID = winnerID
		m.Player1EloChange, m.Player2EloChange = &d1, &d2
		m.Player1EloAfter, m.Player2EloAfter = &new1, &new2
		m.CompletedAt = &now
		fresh = &m
		result = replay(&m)
		result.Replayed = false
		return nil
	})

	switch {
	case errors.Is(err, errLostFinishRace):
		m, getErr := f.Store.Get(ctx, matchID)
		if getErr != nil || m.Status != models.StatusCompleted {
			return nil, fmt.Errorf("%w: %v", ErrFinishFailed, err)
		}
		result = replay(m)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotAParticipant), errors.Is(err, ErrInvalidState):
		return nil, err
	case err != nil:
		metrics.FinishErrorsTotal.Inc()
		f.Log.Error("finish transaction rolled back", err, zap.String("match_id", matchID))
		return nil, fmt.Errorf("%w: %v", ErrFinishFailed, err)
	}

	if fresh == nil {
		metrics.FinishReplaysTotal.Inc()
		return result, nil
	}

	metrics.FinishLatency.Observe(time.Since(start).Seconds())
	outcome := "win"
	if result.IsDraw {
		outcome = "draw"
	}
	metrics.MatchesCompletedTotal.WithLabelValues(outcome).Inc()

	publishMatchEvent(ctx, f.Notifier, f.Log, fresh, events.TypeCompleted)
	f.publishResult(ctx, fresh)

	f.Log.Info("match completed",
		zap.String("match_id", fresh.ID),
		zap.Int("player1_clicks", fresh.Player1Clicks),
		zap.Int("player2_clicks", fresh.Player2Clicks),
		zap.Int("player1_elo_change", result.Player1EloChange),
		zap.Int("player2_elo_change", result.Player2EloChange),
	)
	return result, nil
}

func (f *Finisher) publishResult(ctx context.Context, m *models.Match) {
	r := events.MatchResult{
		MatchID:          m.ID,
		Kind:             m.Kind,
		Player1ID:        m.Player1ID,
		Player2ID:        deref(m.Player2ID),
		WinnerID:         m.WinnerID,
		Player1Clicks:    m.Player1Clicks,
		Player2Clicks:    m.Player2Clicks,
		Player1EloChange: derefInt(m.Player1EloChange),
		Player2EloChange: derefInt(m.Player2EloChange),
		Player1EloAfter:  derefInt(m.Player1EloAfter),
		Player2EloAfter:  derefInt(m.Player2EloAfter),
		CompletedAt:      *m.CompletedAt,
	}

	go func() {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := f.Results.PublishResult(pctx, r); err != nil {
			metrics.ResultPublishErrorsTotal.Inc()
			f.Log.Error("failed to publish match result", err, zap.String("match_id", r.MatchID))
		}
	}()
}

// forUpdate adds FOR UPDATE on Postgres. SQLite serializes writers on its own.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if database.IsPostgres(tx) {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lockPlayers locks both users in id order so two finishes never wait on each other.
func lockPlayers(tx *gorm.DB, player1ID, player2ID string) (*models.User, *models.User, error) {
	ids := []string{player1ID, player2ID}
	sort.Strings(ids)

	var users []models.User
	if err := forUpdate(tx).Where("id IN ?", ids).Order("id ASC").Find(&users).Error; err != nil {
		return nil, nil, fmt.Errorf("lock players: %w", err)
	}

	var p1, p2 *models.User
	for i := range users {
		switch users[i].ID {
		case player1ID:
			p1 = &users[i]
		case player2ID:
			p2 = &users[i]
		}
	}
	if p1 == nil || p2 == nil {
		return nil, nil, fmt.Errorf("lock players: player missing for match")
	}
	return p1, p2, nil
}

func applyResult(tx *gorm.DB, u *models.User, newElo, clicks int, won, lost bool) error {
	res := tx.Model(&models.User{}).Where("id = ?", u.ID).Updates(map[string]any{
		"elo_rating":   newElo,
		"total_clicks": gorm.Expr("total_clicks + ?", clicks),
		"games_played": gorm.Expr("games_played + 1"),
		"games_won":    gorm.Expr("games_won + ?", boolToInt(won)),
		"games_lost":   gorm.Expr("games_lost + ?", boolToInt(lost)),
	})
	if res.Error != nil {
		return fmt.Errorf("update player %s: %w", u.ID, res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("update player %s: %d rows affected", u.ID, res.RowsAffected)
	}
	return nil
}

// replay builds the result from the values stored on a completed match.
func replay(m *models.Match) *FinishResult {
	return &FinishResult{
		MatchID:          m.ID,
		WinnerID:         m.WinnerID,
		IsDraw:           m.WinnerID == nil,
		Player1ID:        m.Player1ID,
		Player2ID:        deref(m.Player2ID),
		Player1Clicks:    m.Player1Clicks,
		Player2Clicks:    m.Player2Clicks,
		Player1EloChange: derefInt(m.Player1EloChange),
		Player2EloChange: derefInt(m.Player2EloChange),
		Player1NewElo:    derefInt(m.Player1EloAfter),
		Player2NewElo:    derefInt(m.Player2EloAfter),
		Replayed:         true,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
