package events

import (
	"context"
	"fmt"
	"sync"

	"clicker-battle/logger"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const channelPrefix = "clicker:match:"

// RedisNotifier fans match events out over Redis pub/sub so every server instance
// can answer watch requests.
type RedisNotifier struct {
	client *redis.Client
	log    *logger.Logger
}

func NewRedisNotifier(client *redis.Client, log *logger.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, log: log}
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func channelFor(matchID string) string {
	return channelPrefix + matchID
}

func (n *RedisNotifier) Publish(ctx context.Context, ev MatchEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal match event: %w", err)
	}
	if err := n.client.Publish(ctx, channelFor(ev.MatchID), payload).Err(); err != nil {
		return fmt.Errorf("publish match event: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, matchID string) (<-chan MatchEvent, func(), error) {
	pubsub := n.client.Subscribe(ctx, channelFor(matchID))
	// wait for the subscription to be confirmed so no publish is missed afterwards
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe to match %s: %w", matchID, err)
	}

	out := make(chan MatchEvent, 8)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev MatchEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					n.log.Warn("dropping malformed match event", zap.String("channel", msg.Channel), zap.Error(err))
					continue
				}
				select {
				case out <- ev:
				default:
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
		})
	}
	return out, cancel, nil
}
