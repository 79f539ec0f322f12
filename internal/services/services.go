package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/database"
	"github.com/ruoshui-go/mbtirec/internal/messaging"
	"github.com/ruoshui-go/mbtirec/internal/upstream"
)

type Services struct {
	Store       *Store
	Upstream    *upstream.Client
	LLM         *LLMClient
	Scoring     *ScoringEngine
	Updater     *ProfileUpdater
	Workers     *WorkerPool
	Recommender *Recommender
	Behavior    *BehaviorService
	Auth        *AuthService
	Health      *HealthService
	MessageBus  *messaging.MessageBus
	Metrics     *Metrics

	logger *logrus.Logger
}

func New(cfg *config.Config, logger *logrus.Logger, db *database.Database) (*Services, error) {
	metrics := NewMetrics(prometheus.DefaultRegisterer)
	store := NewStore(db.PG, db.Redis, cfg.Redis.CacheTTL, cfg.Recommend.ExcludeChunkSize, logger)
	upstreamClient := upstream.New(&cfg.Sohu, logger)
	llm := NewLLMClient(&cfg.LLM, logger)

	scoring := NewScoringEngine(store, llm, upstreamClient, cfg, metrics, logger)
	updater := NewProfileUpdater(store, scoring, &cfg.MBTI, logger)
	workers := NewWorkerPool(scoring, updater, &cfg.Workers, metrics, logger)

	// A nil bus means event export is off; the services treat the nil
	// interface as "skip publishing".
	messageBus := messaging.NewMessageBus(&cfg.Kafka, logger)
	var events EventBus
	if messageBus != nil {
		events = messageBus
	}

	recommender := NewRecommender(store, upstreamClient, workers, events, &cfg.Recommend, metrics, logger)
	behavior := NewBehaviorService(store, workers, events, &cfg.MBTI, metrics, logger)
	auth := NewAuthService(&cfg.Auth, logger)
	health := NewHealthService(cfg, logger, db, upstreamClient, prometheus.DefaultRegisterer)

	return &Services{
		Store:       store,
		Upstream:    upstreamClient,
		LLM:         llm,
		Scoring:     scoring,
		Updater:     updater,
		Workers:     workers,
		Recommender: recommender,
		Behavior:    behavior,
		Auth:        auth,
		Health:      health,
		MessageBus:  messageBus,
		Metrics:     metrics,
		logger:      logger,
	}, nil
}

// Stop drains the worker pool and closes the event bus.
func (s *Services) Stop() {
	s.Workers.Stop()

	if s.MessageBus != nil {
		if err := s.MessageBus.Close(); err != nil {
			s.logger.WithError(err).Warn("Failed to close message bus")
		}
	}
}
