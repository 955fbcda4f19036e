package events

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"
)

// MatchResult is the record published for every completed match.
type MatchResult struct {
	MatchID          string    `json:"match_id"`
	Kind             string    `json:"kind"`
	Player1ID        string    `json:"player1_id"`
	Player2ID        string    `json:"player2_id"`
	WinnerID         *string   `json:"winner_id"`
	Player1Clicks    int       `json:"player1_clicks"`
	Player2Clicks    int       `json:"player2_clicks"`
	Player1EloChange int       `json:"player1_elo_change"`
	Player2EloChange int       `json:"player2_elo_change"`
	Player1EloAfter  int       `json:"player1_elo_after"`
	Player2EloAfter  int       `json:"player2_elo_after"`
	CompletedAt      time.Time `json:"completed_at"`
}

// ResultPublisher sends completed match results to a downstream stream.
type ResultPublisher interface {
	PublishResult(ctx context.Context, r MatchResult) error
	Close() error
}

// KafkaResultPublisher writes results to a Kafka topic keyed by match id.
type KafkaResultPublisher struct {
	writer *kafka.Writer
}

// KafkaConfig holds Kafka producer configuration
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

func NewKafkaResultPublisher(cfg KafkaConfig) *KafkaResultPublisher {
	return &KafkaResultPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, r MatchResult) error {
	value, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal match result: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(r.MatchID), Value: value}); err != nil {
		return fmt.Errorf("write match result: %w", err)
	}
	return nil
}

func (p *KafkaResultPublisher) Close() error {
	return p.writer.Close()
}

// NopResultPublisher is used when no results stream is configured.
type NopResultPublisher struct{}

func (NopResultPublisher) PublishResult(context.Context, MatchResult) error { return nil }
func (NopResultPublisher) Close() error                                     { return nil }
