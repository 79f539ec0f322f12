package models

// Article is a content item as the upstream platform returns it. Field names
// mirror the upstream JSON; only the fields the service consumes are mapped.
type Article struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	CoverImage       string   `json:"coverImage"`
	CoverURL         string   `json:"coverUrl,omitempty"`
	Content          string   `json:"content"`
	Images           []string `json:"images"`
	UserName         string   `json:"userName"`
	NickName         string   `json:"nickName"`
	State            string   `json:"state"`
	AuditState       string   `json:"auditState"`
	CreateTime       string   `json:"createTime"`
	PublishTime      string   `json:"publishTime"`
	MediaContentType string   `json:"mediaContentType"`
	ViewCount        int      `json:"viewCount"`
	PraiseCount      int      `json:"praiseCount"`
	CollectCount     int      `json:"collectCount"`

	// Recommendable is derived locally, not part of the upstream payload.
	Recommendable bool `json:"recommendable"`
}

// Author prefers the display nickname over the account name.
func (a *Article) Author() string {
	if a.NickName != "" {
		return a.NickName
	}
	return a.UserName
}

// Cover returns whichever cover field the upstream populated.
func (a *Article) Cover() string {
	if a.CoverImage != "" {
		return a.CoverImage
	}
	return a.CoverURL
}

// Map flattens the article to the upstream JSON shape, for payloads that add
// sibling keys next to the raw content fields.
func (a *Article) Map() map[string]interface{} {
	return map[string]interface{}{
		"id":               a.ID,
		"title":            a.Title,
		"coverImage":       a.Cover(),
		"content":          a.Content,
		"images":           a.Images,
		"userName":         a.UserName,
		"nickName":         a.NickName,
		"state":            a.State,
		"auditState":       a.AuditState,
		"createTime":       a.CreateTime,
		"publishTime":      a.PublishTime,
		"mediaContentType": a.MediaContentType,
		"viewCount":        a.ViewCount,
		"praiseCount":      a.PraiseCount,
		"collectCount":     a.CollectCount,
	}
}

// ScoringItem is one unit of work for the scoring engine.
type ScoringItem struct {
	ContentID int64  `json:"content_id"`
	Title     string `json:"title,omitempty"`
	Text      string `json:"text,omitempty"`
}

// ScoringResult is the outcome of scoring a single content item.
type ScoringResult struct {
	ContentID     int64      `json:"content_id"`
	Vector        MBTIVector `json:"mbti_probabilities"`
	MBTIType      string     `json:"mbti_type"`
	ScoringMethod string     `json:"scoring_method"`
	FromCache     bool       `json:"from_cache"`
	ScoringFailed bool       `json:"scoring_failed,omitempty"`
	Err           error      `json:"-"`
}

// EvaluateContentRequest is the admin single-evaluate body. Content and Title
// are optional overrides for items the upstream cannot serve.
type EvaluateContentRequest struct {
	Content string `json:"content,omitempty" validate:"omitempty,max=20000"`
	Title   string `json:"title,omitempty" validate:"omitempty,max=500"`
}

// BatchEvaluateRequest is the admin batch-evaluate body.
type BatchEvaluateRequest struct {
	ContentIDs []int64 `json:"content_ids" validate:"required,min=1,max=50,dive,gt=0"`
}

// BatchEvaluateResult reports what was queued; scoring itself is asynchronous.
type BatchEvaluateResult struct {
	TotalRequested    int     `json:"total_requested"`
	AlreadyEvaluated  int     `json:"already_evaluated"`
	PendingEvaluation int     `json:"pending_evaluation"`
	PendingIDs        []int64 `json:"pending_ids"`
}

// ContentBatchRequest is the content proxy batch body.
type ContentBatchRequest struct {
	ContentIDs  []int64 `json:"content_ids" validate:"required,min=1,max=100,dive,gt=0"`
	IncludeMBTI *bool   `json:"include_mbti,omitempty"`
}
