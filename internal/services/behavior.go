package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

const (
	defaultHistoryPageSize = 20
	maxHistoryPageSize     = 100
	defaultStatsDays       = 30
	maxStatsDays           = 365
)

// BehaviorService records user interactions and fans out the background work
// each one implies. Recording never depends on the content being known
// upstream; unknown ids simply score later.
type BehaviorService struct {
	store     *Store
	scheduler Scheduler
	events    EventBus
	metrics   *Metrics
	cfg       *config.MBTIConfig
	logger    *logrus.Logger
}

func NewBehaviorService(store *Store, scheduler Scheduler, events EventBus, cfg *config.MBTIConfig, metrics *Metrics, logger *logrus.Logger) *BehaviorService {
	return &BehaviorService{
		store:     store,
		scheduler: scheduler,
		events:    events,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

// Record appends one behavior, bumps the user's update counter, and schedules
// the content scoring plus any threshold-triggered profile update.
func (s *BehaviorService) Record(ctx context.Context, req *models.BehaviorRecordRequest) (*models.BehaviorRecordResult, error) {
	weight := s.cfg.BehaviorWeight(req.Action)
	if req.Weight != nil {
		weight = *req.Weight
	}

	ts := time.Now()
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	event := &models.BehaviorEvent{
		UserID:    req.UserID,
		ContentID: req.ContentID,
		Action:    req.Action,
		Weight:    weight,
		Source:    req.Source,
		SessionID: req.SessionID,
		Extra:     req.Extra,
		Timestamp: ts,
	}

	behaviorID, err := s.store.RecordBehavior(ctx, event)
	if err != nil {
		return nil, fmt.Errorf("failed to record behavior: %w", err)
	}

	count, err := s.store.IncrementBehaviorCounter(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to bump behavior counter: %w", err)
	}

	threshold := s.cfg.UserUpdateThreshold
	triggered := threshold > 0 && count%threshold == 0
	if triggered {
		s.scheduler.ScheduleUserUpdate(req.UserID, true)
		s.logger.WithFields(logrus.Fields{
			"user_id":        req.UserID,
			"behavior_count": count,
		}).Info("Behavior threshold reached, profile update scheduled")
	}

	// Every touch keeps the content side fresh: score it if it never was,
	// and let its vector drift toward the audience when its own threshold
	// is due.
	s.scheduler.ScheduleScoreContent(req.ContentID)
	s.scheduler.ScheduleContentUpdate(req.ContentID)

	if s.events != nil {
		published := *event
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.events.PublishBehavior(pubCtx, &published); err != nil {
				if s.metrics != nil {
					s.metrics.EventPublishFailures.Inc()
				}
				s.logger.WithError(err).Warn("Failed to publish behavior event")
			}
		}()
	}

	next := threshold
	if threshold > 0 {
		next = (count/threshold + 1) * threshold
	}

	return &models.BehaviorRecordResult{
		BehaviorID:           behaviorID,
		UserID:               req.UserID,
		ContentID:            req.ContentID,
		Action:               req.Action,
		Weight:               weight,
		MBTIUpdateTriggered:  triggered,
		CurrentBehaviorCount: count,
		NextUpdateThreshold:  next,
	}, nil
}

// History returns one page of a user's behavior log, newest first.
func (s *BehaviorService) History(ctx context.Context, userID int64, q *models.BehaviorHistoryQuery) (*models.BehaviorHistoryResult, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = defaultHistoryPageSize
	}
	if q.PageSize > maxHistoryPageSize {
		q.PageSize = maxHistoryPageSize
	}

	behaviors, total, err := s.store.GetBehaviorHistory(ctx, userID, q)
	if err != nil {
		return nil, err
	}
	if behaviors == nil {
		behaviors = []models.BehaviorEvent{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + q.PageSize - 1) / q.PageSize
	}

	return &models.BehaviorHistoryResult{
		UserID:    userID,
		Behaviors: behaviors,
		Pagination: models.Pagination{
			CurrentPage: q.Page,
			PageSize:    q.PageSize,
			TotalCount:  total,
			TotalPages:  totalPages,
			HasNext:     q.Page < totalPages,
		},
	}, nil
}

// Stats aggregates a user's behaviors over the trailing period.
func (s *BehaviorService) Stats(ctx context.Context, userID int64, days int) (*models.BehaviorStatsResult, error) {
	if days <= 0 {
		days = defaultStatsDays
	}
	if days > maxStatsDays {
		days = maxStatsDays
	}

	since := time.Now().AddDate(0, 0, -days)
	counts, err := s.store.GetActionCounts(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, c := range counts {
		total += c
	}
	dailyAvg := float64(total) / float64(days)

	return &models.BehaviorStatsResult{
		UserID:             userID,
		PeriodDays:         days,
		TotalBehaviors:     total,
		ActionDistribution: counts,
		DailyAverage:       dailyAvg,
		ActivityLevel:      activityLevel(dailyAvg),
	}, nil
}

func activityLevel(dailyAvg float64) string {
	switch {
	case dailyAvg >= 5:
		return "high"
	case dailyAvg >= 2:
		return "medium"
	case dailyAvg >= 0.5:
		return "low"
	default:
		return "inactive"
	}
}
