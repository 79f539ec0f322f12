package models

import "time"

// RecommendationQuery carries the (already defaulted) recommendation
// parameters resolved by the handler.
type RecommendationQuery struct {
	UserID                int64
	Page                  int // 0 means unset
	Limit                 int
	ContentType           string
	SimilarityThreshold   float64
	ExcludeViewed         bool
	FreshDays             int
	IncludeContentDetails bool
	AutoPage              bool
}

// RecommendationItem is one ranked hit.
type RecommendationItem struct {
	ContentID       int64                  `json:"content_id"`
	SimilarityScore float64                `json:"similarity_score"`
	MBTIType        string                 `json:"mbti_type,omitempty"`
	Probabilities   map[string]float64     `json:"mbti_probabilities,omitempty"`
	Rank            int                    `json:"rank"`
	Content         map[string]interface{} `json:"content"`
}

// RecommendationMetadata describes how a page of recommendations was built.
type RecommendationMetadata struct {
	RecommendationsCount   int     `json:"recommendations_count"`
	TotalCandidates        int     `json:"total_candidates"`
	AvgSimilarity          float64 `json:"avg_similarity"`
	Source                 string  `json:"source"`
	ThresholdRelaxed       bool    `json:"threshold_relaxed"`
	ContentDetailsAttached bool    `json:"content_details_attached"`
	Page                   int     `json:"page"`
	Limit                  int     `json:"limit"`
}

// RecommendationResult is the data payload of the recommendations endpoint.
// UserMBTI is nil for cold-start users.
type RecommendationResult struct {
	UserID          int64                  `json:"user_id"`
	UserMBTI        map[string]interface{} `json:"user_mbti"`
	Recommendations []RecommendationItem   `json:"recommendations"`
	Metadata        RecommendationMetadata `json:"metadata"`
}

// SimilarContentResult is the data payload of the similar-content endpoint.
type SimilarContentResult struct {
	ContentID int64                  `json:"content_id"`
	MBTIType  string                 `json:"mbti_type"`
	Similar   []SimilarContentItem   `json:"similar_contents"`
	Metadata  RecommendationMetadata `json:"metadata"`
}

// SimilarContentItem is one hit of the similar-content query.
type SimilarContentItem struct {
	ContentID       int64                  `json:"content_id"`
	SimilarityScore float64                `json:"similarity_score"`
	MBTIDistance    float64                `json:"mbti_distance"`
	MBTIType        string                 `json:"mbti_type,omitempty"`
	Rank            int                    `json:"rank"`
	Content         map[string]interface{} `json:"content,omitempty"`
}

// RecommendationServedEvent is the payload exported to the broker after a
// page of recommendations is served.
type RecommendationServedEvent struct {
	UserID        int64     `json:"user_id"`
	Page          int       `json:"page"`
	ContentIDs    []int64   `json:"content_ids"`
	AvgSimilarity float64   `json:"avg_similarity"`
	Source        string    `json:"source"`
	Timestamp     time.Time `json:"timestamp"`
}

// RecommendationLog is one row of the append-only serve audit.
type RecommendationLog struct {
	ID                    int64      `json:"id" db:"id"`
	UserID                int64      `json:"user_id" db:"user_id"`
	RecommendedContentIDs []int64    `json:"recommended_content_ids" db:"recommended_content_ids"`
	SimilarityScores      []float64  `json:"similarity_scores" db:"similarity_scores"`
	Limit                 int        `json:"limit" db:"limit_requested"`
	SimilarityThreshold   float64    `json:"similarity_threshold" db:"similarity_threshold"`
	ContentType           string     `json:"content_type,omitempty" db:"content_type"`
	TotalCandidates       int        `json:"total_candidates" db:"total_candidates"`
	AvgSimilarity         float64    `json:"avg_similarity" db:"avg_similarity"`
	UserProbabilities     MBTIVector `json:"user_probabilities"`
	CreatedAt             time.Time  `json:"created_at" db:"created_at"`
}
