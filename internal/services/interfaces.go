package services

import (
	"context"

	"github.com/ruoshui-go/mbtirec/internal/upstream"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// ChatCompleter is the one-shot completion surface the scoring engine needs.
// The LLM client satisfies it; tests swap in a canned implementation.
type ChatCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContentFetcher supplies article text for ids whose caller had none at hand.
// The upstream client satisfies it; tests plug in a stub.
type ContentFetcher interface {
	GetArticle(ctx context.Context, contentType string, id int64) (*models.Article, error)
}

// ArticleProvider is the upstream surface the recommender needs: feed pages
// for supplementation and detail joins for served items.
type ArticleProvider interface {
	ListArticles(ctx context.Context, page, size int, filters *upstream.ListFilters) ([]models.Article, int, error)
	GetArticlesBatch(ctx context.Context, contentType string, ids []int64) ([]models.Article, []int64, error)
}

// Scheduler hands background work to the worker pool. Implementations must
// return immediately; work that cannot be queued is dropped and will be
// re-submitted by the next behavior touching the same subject.
type Scheduler interface {
	ScheduleScoreContent(contentID int64)
	ScheduleUserUpdate(userID int64, force bool)
	ScheduleContentUpdate(contentID int64)
}

// EventBus exports domain events to the broker. Best effort: failures are the
// publisher's problem to log, never the request path's.
type EventBus interface {
	PublishBehavior(ctx context.Context, event *models.BehaviorEvent) error
	PublishRecommendation(ctx context.Context, served *models.RecommendationServedEvent) error
}
