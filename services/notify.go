package services

import (
	"context"
	"time"

	"clicker-battle/events"
	"clicker-battle/logger"
	"clicker-battle/models"

	"go.uber.org/zap"
)

// publishMatchEvent tells watchers that m changed. Failures only cost watchers a
// timeout, so they are logged and dropped.
func publishMatchEvent(ctx context.Context, n events.Notifier, log *logger.Logger, m *models.Match, typ string) {
	if n == nil {
		return
	}
	ev := events.MatchEvent{
		MatchID:       m.ID,
		Type:          typ,
		Status:        m.Status,
		Player1Clicks: m.Player1Clicks,
		Player2Clicks: m.Player2Clicks,
		At:            time.Now().UTC(),
	}
	if err := n.Publish(context.WithoutCancel(ctx), ev); err != nil {
		log.Warn("failed to publish match event",
			zap.String("match_id", m.ID), zap.String("type", typ), zap.Error(err))
	}
}
