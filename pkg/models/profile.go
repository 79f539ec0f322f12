package models

// MBTIUpdateRequest is the POST /mbti/update body.
type MBTIUpdateRequest struct {
	ForceUpdate          bool `json:"force_update"`
	AnalyzeLastNBehavior int  `json:"analyze_last_n_behaviors,omitempty" validate:"omitempty,min=10,max=1000"`
}

// MBTIUpdateResult reports the outcome of an explicit profile update request.
type MBTIUpdateResult struct {
	UserID            int64              `json:"user_id"`
	UpdatePerformed   bool               `json:"update_performed"`
	Reason            string             `json:"reason,omitempty"`
	BehaviorsAnalyzed int                `json:"behaviors_analyzed,omitempty"`
	MBTIType          string             `json:"mbti_type,omitempty"`
	Probabilities     map[string]float64 `json:"probabilities,omitempty"`
}

// MBTIProfileResult is the data payload of the profile endpoint.
type MBTIProfileResult struct {
	UserID                    int64              `json:"user_id"`
	MBTIType                  string             `json:"mbti_type"`
	MBTIDescription           string             `json:"mbti_description"`
	Probabilities             map[string]float64 `json:"probabilities"`
	Confidence                map[string]float64 `json:"confidence"`
	TotalBehaviorsAnalyzed    int                `json:"total_behaviors_analyzed"`
	BehaviorsSinceLastUpdate  int                `json:"behaviors_since_last_update"`
	NextUpdateIn              int                `json:"next_update_in"`
	CurrentRecommendationPage int                `json:"current_recommendation_page"`
	LastUpdated               string             `json:"last_updated"`
	CreatedAt                 string             `json:"created_at"`
}

// ScoringModeResult is the data payload of the scoring-mode endpoints.
type ScoringModeResult struct {
	CurrentMode    string   `json:"current_mode"`
	PreviousMode   string   `json:"previous_mode,omitempty"`
	Description    string   `json:"description"`
	AvailableModes []string `json:"available_modes"`
}

// ScoringModeRequest is the POST /system/mbti-scoring-mode body.
type ScoringModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=ai random mixed"`
}
