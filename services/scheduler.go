// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartSweepScheduler removes abandoned matchmaking entries every interval until the
// returned scheduler is shut down.
func (s *MatchmakingService) StartSweepScheduler(ttl, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	// Every interval: drop waiting entries older than ttl
	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			n, err := s.SweepStaleWaiting(ctx, ttl)
			if err != nil {
				s.Log.Error("[Scheduler] stale waiting sweep failed", err)
				return
			}
			if n > 0 {
				s.Log.Info("[Scheduler] removed abandoned matchmaking entries", zap.Int64("count", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule stale waiting sweep: %w", err)
	}

	sched.Start()
	return sched, nil
}
