package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

const (
	DefaultBehaviorTopic = "behavior-events"
	DefaultServedTopic   = "recommendation-served"
)

// behaviorPayload is the wire form of one behavior event. It carries only the
// fields downstream consumers need, not the raw log row.
type behaviorPayload struct {
	BehaviorID int64     `json:"behavior_id"`
	UserID     int64     `json:"user_id"`
	ContentID  int64     `json:"content_id"`
	Action     string    `json:"action"`
	Weight     float64   `json:"weight"`
	Timestamp  time.Time `json:"timestamp"`
}

// MessageBus exports domain events to Kafka. It is a producer only; this
// service owns no consumers. Messages are keyed by user id so one user's
// events stay ordered within a partition.
type MessageBus struct {
	behaviorWriter *kafka.Writer
	servedWriter   *kafka.Writer
	logger         *logrus.Logger
}

// NewMessageBus returns nil when no brokers are configured; callers treat a
// nil bus as event export disabled.
func NewMessageBus(cfg *config.KafkaConfig, logger *logrus.Logger) *MessageBus {
	if !cfg.Enabled() {
		return nil
	}

	behaviorTopic := cfg.Topics.BehaviorEvents
	if behaviorTopic == "" {
		behaviorTopic = DefaultBehaviorTopic
	}
	servedTopic := cfg.Topics.RecommendationsServed
	if servedTopic == "" {
		servedTopic = DefaultServedTopic
	}

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
			BatchSize:    100,
		}
	}

	logger.WithFields(logrus.Fields{
		"brokers":        cfg.Brokers,
		"behavior_topic": behaviorTopic,
		"served_topic":   servedTopic,
	}).Info("Kafka event export enabled")

	return &MessageBus{
		behaviorWriter: newWriter(behaviorTopic),
		servedWriter:   newWriter(servedTopic),
		logger:         logger,
	}
}

// PublishBehavior exports one recorded behavior.
func (mb *MessageBus) PublishBehavior(ctx context.Context, event *models.BehaviorEvent) error {
	payload := behaviorPayload{
		BehaviorID: event.ID,
		UserID:     event.UserID,
		ContentID:  event.ContentID,
		Action:     event.Action,
		Weight:     event.Weight,
		Timestamp:  event.Timestamp,
	}
	value, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal behavior event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	if err := mb.behaviorWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write behavior event: %w", err)
	}
	return nil
}

// PublishRecommendation exports one served recommendation page.
func (mb *MessageBus) PublishRecommendation(ctx context.Context, served *models.RecommendationServedEvent) error {
	value, err := json.Marshal(served)
	if err != nil {
		return fmt.Errorf("failed to marshal recommendation event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(served.UserID, 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "source", Value: []byte(served.Source)},
			{Key: "timestamp", Value: []byte(served.Timestamp.Format(time.RFC3339))},
		},
	}

	if err := mb.servedWriter.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write recommendation event: %w", err)
	}
	return nil
}

func (mb *MessageBus) Close() error {
	var errs []error

	if err := mb.behaviorWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close behavior writer: %w", err))
	}
	if err := mb.servedWriter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close served writer: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing message bus: %v", errs)
	}
	return nil
}
