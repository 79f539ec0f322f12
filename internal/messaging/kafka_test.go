package messaging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func TestNewMessageBus_DisabledWithoutBrokers(t *testing.T) {
	bus := NewMessageBus(&config.KafkaConfig{}, quietLogger())
	assert.Nil(t, bus)
}

func TestNewMessageBus_TopicDefaults(t *testing.T) {
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:9092"}}

	bus := NewMessageBus(cfg, quietLogger())
	require.NotNil(t, bus)
	defer bus.Close()

	assert.Equal(t, DefaultBehaviorTopic, bus.behaviorWriter.Topic)
	assert.Equal(t, DefaultServedTopic, bus.servedWriter.Topic)
}

func TestNewMessageBus_ConfiguredTopics(t *testing.T) {
	cfg := &config.KafkaConfig{Brokers: []string{"localhost:9092"}}
	cfg.Topics.BehaviorEvents = "mbti.behaviors"
	cfg.Topics.RecommendationsServed = "mbti.recommendations"

	bus := NewMessageBus(cfg, quietLogger())
	require.NotNil(t, bus)
	defer bus.Close()

	assert.Equal(t, "mbti.behaviors", bus.behaviorWriter.Topic)
	assert.Equal(t, "mbti.recommendations", bus.servedWriter.Topic)
}

func TestBehaviorPayload_WireShape(t *testing.T) {
	event := &models.BehaviorEvent{
		ID:        555,
		UserID:    7,
		ContentID: 9001,
		Action:    "like",
		Weight:    0.8,
		SessionID: "should-not-appear",
		Timestamp: time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
	}

	payload := behaviorPayload{
		BehaviorID: event.ID,
		UserID:     event.UserID,
		ContentID:  event.ContentID,
		Action:     event.Action,
		Weight:     event.Weight,
		Timestamp:  event.Timestamp,
	}

	value, err := json.Marshal(payload)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(value, &wire))

	assert.Equal(t, float64(555), wire["behavior_id"])
	assert.Equal(t, float64(7), wire["user_id"])
	assert.Equal(t, float64(9001), wire["content_id"])
	assert.Equal(t, "like", wire["action"])
	assert.Equal(t, 0.8, wire["weight"])
	assert.NotContains(t, wire, "session_id")
}

func TestRecommendationServedEvent_WireShape(t *testing.T) {
	served := &models.RecommendationServedEvent{
		UserID:        7,
		Page:          3,
		ContentIDs:    []int64{101, 103},
		AvgSimilarity: 0.87,
		Source:        "mbti_ranking",
		Timestamp:     time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC),
	}

	value, err := json.Marshal(served)
	require.NoError(t, err)

	var wire map[string]interface{}
	require.NoError(t, json.Unmarshal(value, &wire))

	assert.Equal(t, float64(7), wire["user_id"])
	assert.Equal(t, float64(3), wire["page"])
	assert.Equal(t, "mbti_ranking", wire["source"])
	assert.Equal(t, 0.87, wire["avg_similarity"])
	assert.Len(t, wire["content_ids"], 2)
}
