package client

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"clicker-battle/logger"
	"clicker-battle/models"
	"clicker-battle/services"

	"go.uber.org/zap"
)

// Cadence holds the client's timers.
type Cadence struct {
	Heartbeat       time.Duration
	IncomingPoll    time.Duration
	StatusPoll      time.Duration
	Countdown       time.Duration
	Battle          time.Duration
	ClickSync       time.Duration
	SettleBeforeEnd time.Duration
}

// DefaultCadence matches the browser client.
var DefaultCadence = Cadence{
	Heartbeat:       30 * time.Second,
	IncomingPoll:    3 * time.Second,
	StatusPoll:      2 * time.Second,
	Countdown:       3 * time.Second,
	Battle:          10 * time.Second,
	ClickSync:       500 * time.Millisecond,
	SettleBeforeEnd: time.Second,
}

var (
	// ErrChallengeDeclined is returned when a sent challenge disappears before it starts.
	ErrChallengeDeclined = errors.New("challenge was declined")
	// ErrMatchmakingExpired is returned when a waiting matchmaking entry is removed
	// (cancelled or swept) before anyone is paired into it.
	ErrMatchmakingExpired = errors.New("matchmaking entry expired")
)

// Poller runs the session's polling loops. Request errors are logged and the loop
// retries on its next tick.
type Poller struct {
	Session *Session
	Cadence Cadence
	Log     *logger.Logger

	clicks        atomic.Int64
	opponentClick atomic.Int64
}

func NewPoller(s *Session, cadence Cadence, log *logger.Logger) *Poller {
	return &Poller{Session: s, Cadence: cadence, Log: log.With(zap.String("user", s.Username))}
}

// Click records one click during a battle.
func (p *Poller) Click() {
	p.clicks.Add(1)
}

// SetClicks overwrites the local click counter. Call SetClicks(0) before a new battle.
func (p *Poller) SetClicks(n int) {
	p.clicks.Store(int64(n))
}

func (p *Poller) Clicks() int {
	return int(p.clicks.Load())
}

// OpponentClicks is the last opponent count seen during click sync.
func (p *Poller) OpponentClicks() int {
	return int(p.opponentClick.Load())
}

// RunHeartbeat keeps the user online until ctx is done.
func (p *Poller) RunHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(p.Cadence.Heartbeat)
	defer ticker.Stop()

	for {
		if err := p.Session.Heartbeat(ctx); err != nil && ctx.Err() == nil {
			p.Log.Warn("heartbeat failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// WaitForChallenge polls for incoming challenges until decide accepts one; declined
// challenges are declined on the server. Returns the accepted match id.
func (p *Poller) WaitForChallenge(ctx context.Context, decide func(*services.PendingChallenge) bool) (string, error) {
	ticker := time.NewTicker(p.Cadence.IncomingPoll)
	defer ticker.Stop()

	seen := ""
	for {
		pending, err := p.Session.PendingChallenge(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			p.Log.Warn("check challenges failed", zap.Error(err))
		case pending != nil && pending.ChallengeID != seen:
			seen = pending.ChallengeID
			if !decide(pending) {
				if err := p.Session.Decline(ctx, pending.ChallengeID); err != nil {
					p.Log.Warn("decline failed", zap.Error(err))
				}
				break
			}
			if err := p.Session.Accept(ctx, pending.ChallengeID); err != nil {
				p.Log.Warn("accept failed", zap.String("match_id", pending.ChallengeID), zap.Error(err))
				break
			}
			return pending.ChallengeID, nil
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitForAcceptance polls a sent challenge until the opponent accepts it.
func (p *Poller) WaitForAcceptance(ctx context.Context, matchID string) error {
	return p.pollUntil(ctx, func() (bool, error) {
		status, err := p.Session.ChallengeStatus(ctx, matchID)
		if isNotFound(err) {
			return false, ErrChallengeDeclined
		}
		if err != nil {
			return false, err
		}
		return status == models.StatusInProgress, nil
	})
}

// WaitForOpponent polls a waiting matchmaking entry until someone is paired into it.
func (p *Poller) WaitForOpponent(ctx context.Context, matchID string) error {
	return p.pollUntil(ctx, func() (bool, error) {
		m, err := p.Session.Match(ctx, matchID)
		if isNotFound(err) {
			return false, ErrMatchmakingExpired
		}
		if err != nil {
			return false, err
		}
		return m.Status == models.StatusInProgress, nil
	})
}

func (p *Poller) pollUntil(ctx context.Context, check func() (bool, error)) error {
	ticker := time.NewTicker(p.Cadence.StatusPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		done, err := check()
		if errors.Is(err, ErrChallengeDeclined) || errors.Is(err, ErrMatchmakingExpired) {
			return err
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("status poll failed", zap.Error(err))
			continue
		}
		if done {
			return nil
		}
	}
}

// PlayBattle runs the countdown and the timed battle, syncing clicks on every tick, then
// reports the final count, lets the opponent's final report land and finishes the match.
func (p *Poller) PlayBattle(ctx context.Context, matchID string) (*services.FinishResult, error) {
	if err := sleep(ctx, p.Cadence.Countdown); err != nil {
		return nil, err
	}

	battleCtx, cancel := context.WithTimeout(ctx, p.Cadence.Battle)
	defer cancel()

	ticker := time.NewTicker(p.Cadence.ClickSync)
	defer ticker.Stop()

sync:
	for {
		select {
		case <-battleCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			break sync
		case <-ticker.C:
			p.syncClicks(battleCtx, matchID)
		}
	}

	if err := p.Session.ReportClicks(ctx, matchID, p.Clicks()); err != nil {
		p.Log.Warn("final click report failed", zap.Error(err))
	}
	if err := sleep(ctx, p.Cadence.SettleBeforeEnd); err != nil {
		return nil, err
	}

	res, err := p.Session.Finish(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if res.Player1ID == p.Session.UserID {
		p.Session.Rating = res.Player1NewElo
	} else {
		p.Session.Rating = res.Player2NewElo
	}
	p.Session.MatchID = ""
	return res, nil
}

func (p *Poller) syncClicks(ctx context.Context, matchID string) {
	if err := p.Session.ReportClicks(ctx, matchID, p.Clicks()); err != nil {
		if ctx.Err() == nil {
			p.Log.Warn("click sync failed", zap.Error(err))
		}
		return
	}
	m, err := p.Session.Match(ctx, matchID)
	if err != nil {
		if ctx.Err() == nil {
			p.Log.Warn("match refresh failed", zap.Error(err))
		}
		return
	}
	p.opponentClick.Store(int64(p.Session.OpponentClicks(m)))
}

func isNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
