// Package events fans out match state changes to waiting watchers and
// publishes completed results downstream.
package events

import (
	"context"
	"sync"
	"time"
)

const (
	TypeStarted   = "started"
	TypeClicks    = "clicks"
	TypeCompleted = "completed"
	TypeDeleted   = "deleted"
)

// MatchEvent is a single state change of a match.
type MatchEvent struct {
	MatchID       string    `json:"match_id"`
	Type          string    `json:"type"`
	Status        string    `json:"status"`
	Player1Clicks int       `json:"player1_clicks"`
	Player2Clicks int       `json:"player2_clicks"`
	At            time.Time `json:"at"`
}

// Notifier delivers match events to subscribers of that match.
type Notifier interface {
	Publish(ctx context.Context, ev MatchEvent) error
	// Subscribe returns a channel of events for matchID. The cancel func must be called
	// to release the subscription.
	Subscribe(ctx context.Context, matchID string) (<-chan MatchEvent, func(), error)
}

// MemoryNotifier is an in-process Notifier for single-instance deployments and tests.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[string]map[chan MatchEvent]struct{}
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[string]map[chan MatchEvent]struct{})}
}

func (n *MemoryNotifier) Publish(_ context.Context, ev MatchEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	for ch := range n.subs[ev.MatchID] {
		// slow watchers drop events; they re-read the match anyway
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(_ context.Context, matchID string) (<-chan MatchEvent, func(), error) {
	ch := make(chan MatchEvent, 8)

	n.mu.Lock()
	if n.subs[matchID] == nil {
		n.subs[matchID] = make(map[chan MatchEvent]struct{})
	}
	n.subs[matchID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs[matchID], ch)
			if len(n.subs[matchID]) == 0 {
				delete(n.subs, matchID)
			}
			n.mu.Unlock()
		})
	}
	return ch, cancel, nil
}

// Subscribers reports how many watchers are attached to matchID.
func (n *MemoryNotifier) Subscribers(matchID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[matchID])
}
