package models

import (
	"encoding/json"
	"time"
)

// BehaviorEvent is one row of the append-only interaction log.
type BehaviorEvent struct {
	ID        int64           `json:"id" db:"id"`
	UserID    int64           `json:"user_id" db:"user_id"`
	ContentID int64           `json:"content_id" db:"content_id"`
	Action    string          `json:"action" db:"action"`
	Weight    float64         `json:"weight" db:"weight"`
	Source    string          `json:"source,omitempty" db:"source"`
	SessionID string          `json:"session_id,omitempty" db:"session_id"`
	Extra     json.RawMessage `json:"extra,omitempty" db:"extra"`
	Timestamp time.Time       `json:"timestamp" db:"timestamp"`
}

// BehaviorRecordRequest is the POST /behavior/record body. Weight, when
// supplied, wins over the per-action default.
type BehaviorRecordRequest struct {
	UserID    int64           `json:"user_id" validate:"required,gt=0"`
	ContentID int64           `json:"content_id" validate:"required,gt=0"`
	Action    string          `json:"action" validate:"required,oneof=view like collect comment share follow"`
	Weight    *float64        `json:"weight,omitempty" validate:"omitempty,min=0,max=1"`
	Source    string          `json:"source,omitempty" validate:"omitempty,max=100"`
	SessionID string          `json:"session_id,omitempty" validate:"omitempty,max=100"`
	Extra     json.RawMessage `json:"extra,omitempty"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// BehaviorRecordResult is the data payload returned after recording.
type BehaviorRecordResult struct {
	BehaviorID           int64   `json:"behavior_id"`
	UserID               int64   `json:"user_id"`
	ContentID            int64   `json:"content_id"`
	Action               string  `json:"action"`
	Weight               float64 `json:"weight"`
	MBTIUpdateTriggered  bool    `json:"mbti_update_triggered"`
	CurrentBehaviorCount int     `json:"current_behavior_count"`
	NextUpdateThreshold  int     `json:"next_update_threshold"`
}

// BehaviorHistoryQuery carries the history endpoint filters.
type BehaviorHistoryQuery struct {
	Action    string
	StartDate *time.Time
	EndDate   *time.Time
	Page      int
	PageSize  int
}

// Pagination is the shared page descriptor for list endpoints.
type Pagination struct {
	CurrentPage int  `json:"current_page"`
	PageSize    int  `json:"page_size"`
	TotalCount  int  `json:"total_count"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
}

// BehaviorHistoryResult is the data payload of the history endpoint.
type BehaviorHistoryResult struct {
	UserID     int64           `json:"user_id"`
	Behaviors  []BehaviorEvent `json:"behaviors"`
	Pagination Pagination      `json:"pagination"`
}

// BehaviorStatsResult aggregates a user's recent activity.
type BehaviorStatsResult struct {
	UserID             int64          `json:"user_id"`
	PeriodDays         int            `json:"period_days"`
	TotalBehaviors     int            `json:"total_behaviors"`
	ActionDistribution map[string]int `json:"action_distribution"`
	DailyAverage       float64        `json:"daily_average"`
	ActivityLevel      string         `json:"activity_level"`
}
