package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// Serve sources reported in recommendation metadata.
const (
	SourceMBTIRanking    = "mbti_ranking"
	SourceColdStart      = "cold_start"
	SourceUpstreamDirect = "upstream_direct"
)

// defaultSimilarity stands in wherever no real similarity exists: cold-start
// serves, upstream supplementation, and items still waiting on a vector.
const defaultSimilarity = 0.5

// Recommender assembles ranked content pages for users. Ranking happens on
// the 4-axis projection of the stored vectors; the full 8-dim form is kept
// for payloads and audit snapshots.
type Recommender struct {
	store     *Store
	articles  ArticleProvider
	scheduler Scheduler
	events    EventBus
	metrics   *Metrics
	cfg       *config.RecommendConfig
	logger    *logrus.Logger
}

// NewRecommender wires the recommender. articles, scheduler, and events may
// be nil in degraded setups; every use is guarded.
func NewRecommender(store *Store, articles ArticleProvider, scheduler Scheduler, events EventBus, cfg *config.RecommendConfig, metrics *Metrics, logger *logrus.Logger) *Recommender {
	return &Recommender{
		store:     store,
		articles:  articles,
		scheduler: scheduler,
		events:    events,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger,
	}
}

type rankedContent struct {
	content *models.ContentVector
	sim     float64
}

// Recommend serves one page of personalized recommendations.
func (r *Recommender) Recommend(ctx context.Context, q *models.RecommendationQuery) (*models.RecommendationResult, error) {
	profile, err := r.store.GetOrCreateProfile(ctx, q.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	page := r.resolvePage(q, profile)

	if !profile.HasType() {
		return r.coldStart(ctx, q, page)
	}

	var exclude []int64
	if q.ExcludeViewed {
		since := time.Now().AddDate(0, 0, -q.FreshDays)
		exclude, err = r.store.GetLikedContentIDs(ctx, q.UserID, since)
		if err != nil {
			return nil, fmt.Errorf("failed to load exclusions: %w", err)
		}
	}

	candidates, err := r.store.ListScoredContent(ctx, exclude, listType(q.ContentType), r.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	if len(candidates) == 0 {
		return r.upstreamDirect(ctx, q, profile, page)
	}

	ranked := make([]rankedContent, len(candidates))
	for i, c := range candidates {
		ranked[i] = rankedContent{content: c, sim: mbti.CosineAxes(profile.Vector, c.Vector)}
	}
	sortRanked(ranked)

	var pool []rankedContent
	for _, it := range ranked {
		if it.sim >= q.SimilarityThreshold {
			pool = append(pool, it)
		}
	}
	relaxed := false
	if len(pool) < q.Limit {
		pool = ranked
		relaxed = true
	}

	offset := (page - 1) * q.Limit
	items := make([]models.RecommendationItem, 0, q.Limit)
	for i, it := range slicePage(pool, offset, q.Limit) {
		items = append(items, models.RecommendationItem{
			ContentID:       it.content.ContentID,
			SimilarityScore: it.sim,
			MBTIType:        it.content.MBTIType,
			Probabilities:   it.content.Vector.ToMap(),
			Rank:            offset + i + 1,
		})
	}

	detailsAttached := false
	if q.IncludeContentDetails && len(items) > 0 {
		detailsAttached = r.attachDetails(ctx, q.ContentType, items)
	}

	avg := avgSimilarity(items)
	if len(items) > 0 {
		r.finishServe(ctx, q, profile, page, items, len(candidates), avg, SourceMBTIRanking)
	}
	r.countRequest(SourceMBTIRanking)

	return &models.RecommendationResult{
		UserID: q.UserID,
		UserMBTI: map[string]interface{}{
			"type":   profile.MBTIType,
			"vector": mbti.AxisProjection(profile.Vector),
		},
		Recommendations: items,
		Metadata: models.RecommendationMetadata{
			RecommendationsCount:   len(items),
			TotalCandidates:        len(candidates),
			AvgSimilarity:          avg,
			Source:                 SourceMBTIRanking,
			ThresholdRelaxed:       relaxed,
			ContentDetailsAttached: detailsAttached,
			Page:                   page,
			Limit:                  q.Limit,
		},
	}, nil
}

// coldStart serves the newest scored items at a flat similarity. The cursor
// does not move; a user without a derived type has no paging position yet.
func (r *Recommender) coldStart(ctx context.Context, q *models.RecommendationQuery, page int) (*models.RecommendationResult, error) {
	candidates, err := r.store.ListScoredContent(ctx, nil, listType(q.ContentType), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	neutral := models.NeutralVector()
	items := make([]models.RecommendationItem, 0, len(candidates))
	for i, c := range candidates {
		items = append(items, models.RecommendationItem{
			ContentID:       c.ContentID,
			SimilarityScore: defaultSimilarity,
			Probabilities:   neutral.ToMap(),
			Rank:            i + 1,
		})
	}

	detailsAttached := false
	if q.IncludeContentDetails && len(items) > 0 {
		detailsAttached = r.attachDetails(ctx, q.ContentType, items)
	}
	r.countRequest(SourceColdStart)

	avg := 0.0
	if len(items) > 0 {
		avg = defaultSimilarity
	}
	return &models.RecommendationResult{
		UserID:          q.UserID,
		UserMBTI:        nil,
		Recommendations: items,
		Metadata: models.RecommendationMetadata{
			RecommendationsCount:   len(items),
			TotalCandidates:        len(candidates),
			AvgSimilarity:          avg,
			Source:                 SourceColdStart,
			ContentDetailsAttached: detailsAttached,
			Page:                   page,
			Limit:                  q.Limit,
		},
	}, nil
}

// upstreamDirect serves a raw upstream feed page when the store has nothing
// scored to rank. Served ids are queued for scoring so the next request can
// rank them.
func (r *Recommender) upstreamDirect(ctx context.Context, q *models.RecommendationQuery, profile *models.UserProfile, page int) (*models.RecommendationResult, error) {
	var (
		articles []models.Article
		total    int
		err      error
	)
	if r.articles != nil {
		articles, total, err = r.articles.ListArticles(ctx, page, q.Limit, nil)
	}
	if err != nil {
		r.countUpstream("failed")
		r.logger.WithError(err).WithField("user_id", q.UserID).Warn("Upstream feed unavailable, serving empty page")
		articles, total = nil, 0
	} else if r.articles != nil {
		r.countUpstream("ok")
	}

	neutral := models.NeutralVector()
	items := make([]models.RecommendationItem, 0, len(articles))
	detailsAttached := false
	for _, a := range articles {
		if !a.Recommendable {
			continue
		}
		if r.scheduler != nil {
			r.scheduler.ScheduleScoreContent(a.ID)
		}
		item := models.RecommendationItem{
			ContentID:       a.ID,
			SimilarityScore: defaultSimilarity,
			Probabilities:   neutral.ToMap(),
			Rank:            (page-1)*q.Limit + len(items) + 1,
		}
		if q.IncludeContentDetails {
			item.Content = a.Map()
			detailsAttached = true
		}
		items = append(items, item)
	}

	avg := avgSimilarity(items)
	if len(items) > 0 {
		r.finishServe(ctx, q, profile, page, items, total, avg, SourceUpstreamDirect)
	}
	r.countRequest(SourceUpstreamDirect)

	return &models.RecommendationResult{
		UserID: q.UserID,
		UserMBTI: map[string]interface{}{
			"type":   profile.MBTIType,
			"vector": mbti.AxisProjection(profile.Vector),
		},
		Recommendations: items,
		Metadata: models.RecommendationMetadata{
			RecommendationsCount:   len(items),
			TotalCandidates:        total,
			AvgSimilarity:          avg,
			Source:                 SourceUpstreamDirect,
			ContentDetailsAttached: detailsAttached,
			Page:                   page,
			Limit:                  q.Limit,
		},
	}, nil
}

// SimilarContent ranks stored content against one item's vector. The floor
// filters weak matches; there is no relaxed fallback here.
func (r *Recommender) SimilarContent(ctx context.Context, contentID int64, page, limit int, includeDetails bool) (*models.SimilarContentResult, error) {
	base, err := r.store.GetContentVector(ctx, contentID)
	if err != nil {
		return nil, err
	}

	candidates, err := r.store.ListScoredContent(ctx, []int64{contentID}, "", r.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}

	var ranked []rankedContent
	for _, c := range candidates {
		sim := mbti.CosineAxes(base.Vector, c.Vector)
		if sim >= r.cfg.SimilarThreshold {
			ranked = append(ranked, rankedContent{content: c, sim: sim})
		}
	}
	sortRanked(ranked)

	offset := (page - 1) * limit
	hits := make([]models.SimilarContentItem, 0, limit)
	for i, it := range slicePage(ranked, offset, limit) {
		hits = append(hits, models.SimilarContentItem{
			ContentID:       it.content.ContentID,
			SimilarityScore: it.sim,
			MBTIDistance:    1 - it.sim,
			MBTIType:        it.content.MBTIType,
			Rank:            offset + i + 1,
		})
	}

	detailsAttached := false
	if includeDetails && len(hits) > 0 {
		ids := make([]int64, len(hits))
		for i, h := range hits {
			ids[i] = h.ContentID
		}
		details, ok := r.fetchDetailMaps(ctx, "", ids)
		detailsAttached = ok
		for i := range hits {
			hits[i].Content = details[hits[i].ContentID]
		}
	}

	var avg float64
	for _, h := range hits {
		avg += h.SimilarityScore
	}
	if len(hits) > 0 {
		avg /= float64(len(hits))
	}

	return &models.SimilarContentResult{
		ContentID: contentID,
		MBTIType:  base.MBTIType,
		Similar:   hits,
		Metadata: models.RecommendationMetadata{
			RecommendationsCount:   len(hits),
			TotalCandidates:        len(candidates),
			AvgSimilarity:          avg,
			Source:                 SourceMBTIRanking,
			ContentDetailsAttached: detailsAttached,
			Page:                   page,
			Limit:                  limit,
		},
	}, nil
}

// resolvePage turns the request's page field into an absolute page number,
// continuing from the stored cursor when auto paging is on.
func (r *Recommender) resolvePage(q *models.RecommendationQuery, profile *models.UserProfile) int {
	if q.Page > 0 {
		return q.Page
	}
	if q.AutoPage {
		return profile.CurrentRecommendationPage + 1
	}
	return 1
}

// finishServe performs the after-serve bookkeeping: cursor, audit log, event
// export. All of it is best effort; the served page is already final.
func (r *Recommender) finishServe(ctx context.Context, q *models.RecommendationQuery, profile *models.UserProfile, page int, items []models.RecommendationItem, totalCandidates int, avg float64, source string) {
	ids := make([]int64, len(items))
	sims := make([]float64, len(items))
	for i, it := range items {
		ids[i] = it.ContentID
		sims[i] = it.SimilarityScore
	}

	if err := r.store.AdvanceRecommendationCursor(ctx, q.UserID, page); err != nil {
		r.logger.WithError(err).WithField("user_id", q.UserID).Warn("Failed to advance recommendation cursor")
	}

	if err := r.store.LogRecommendation(ctx, &models.RecommendationLog{
		UserID:                q.UserID,
		RecommendedContentIDs: ids,
		SimilarityScores:      sims,
		Limit:                 q.Limit,
		SimilarityThreshold:   q.SimilarityThreshold,
		ContentType:           q.ContentType,
		TotalCandidates:       totalCandidates,
		AvgSimilarity:         avg,
		UserProbabilities:     profile.Vector,
	}); err != nil {
		r.logger.WithError(err).WithField("user_id", q.UserID).Warn("Failed to log recommendation")
	}

	if r.events != nil {
		served := &models.RecommendationServedEvent{
			UserID:        q.UserID,
			Page:          page,
			ContentIDs:    ids,
			AvgSimilarity: avg,
			Source:        source,
			Timestamp:     time.Now().UTC(),
		}
		go func() {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := r.events.PublishRecommendation(pubCtx, served); err != nil {
				if r.metrics != nil {
					r.metrics.EventPublishFailures.Inc()
				}
				r.logger.WithError(err).Warn("Failed to publish recommendation event")
			}
		}()
	}

	r.logger.WithFields(logrus.Fields{
		"user_id":        q.UserID,
		"page":           page,
		"served":         len(items),
		"avg_similarity": avg,
		"source":         source,
	}).Info("Recommendations served")
}

// attachDetails joins upstream details onto served items. A missing item gets
// a nil content; a dead upstream leaves every content nil and reports false.
func (r *Recommender) attachDetails(ctx context.Context, contentType string, items []models.RecommendationItem) bool {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ContentID
	}
	details, ok := r.fetchDetailMaps(ctx, contentType, ids)
	for i := range items {
		items[i].Content = details[items[i].ContentID]
	}
	return ok
}

func (r *Recommender) fetchDetailMaps(ctx context.Context, contentType string, ids []int64) (map[int64]map[string]interface{}, bool) {
	if r.articles == nil {
		return nil, false
	}

	found, missing, err := r.articles.GetArticlesBatch(ctx, listType(contentType), ids)
	if err != nil {
		r.countUpstream("failed")
		r.logger.WithError(err).Warn("Detail join failed, serving without content")
		return nil, false
	}
	if len(found) == 0 {
		r.countUpstream("failed")
		return nil, false
	}
	r.countUpstream("ok")

	if len(missing) > 0 {
		r.logger.WithFields(logrus.Fields{
			"requested": len(ids),
			"missing":   len(missing),
		}).Debug("Upstream served a subset of details")
	}

	details := make(map[int64]map[string]interface{}, len(found))
	for i := range found {
		details[found[i].ID] = found[i].Map()
	}
	return details, true
}

func (r *Recommender) countRequest(source string) {
	if r.metrics != nil {
		r.metrics.RecommendationRequests.WithLabelValues(source).Inc()
	}
}

func (r *Recommender) countUpstream(outcome string) {
	if r.metrics != nil {
		r.metrics.UpstreamRequests.WithLabelValues(outcome).Inc()
	}
}

// sortRanked orders by similarity, newest first within a tie.
func sortRanked(ranked []rankedContent) {
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].sim != ranked[j].sim {
			return ranked[i].sim > ranked[j].sim
		}
		ti, tj := publishedAt(ranked[i].content), publishedAt(ranked[j].content)
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return ranked[i].content.ContentID > ranked[j].content.ContentID
	})
}

func publishedAt(c *models.ContentVector) time.Time {
	if c.PublishTime != nil {
		return *c.PublishTime
	}
	return time.Time{}
}

func slicePage(pool []rankedContent, offset, limit int) []rankedContent {
	if offset >= len(pool) || offset < 0 {
		return nil
	}
	end := offset + limit
	if end > len(pool) {
		end = len(pool)
	}
	return pool[offset:end]
}

func avgSimilarity(items []models.RecommendationItem) float64 {
	if len(items) == 0 {
		return 0
	}
	var sum float64
	for _, it := range items {
		sum += it.SimilarityScore
	}
	return sum / float64(len(items))
}

// listType maps the API's content-type filter onto the upstream/list value;
// "all" means no filter.
func listType(contentType string) string {
	if contentType == "all" {
		return ""
	}
	return contentType
}
