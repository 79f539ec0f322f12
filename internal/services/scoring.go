package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/internal/upstream"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// Scoring modes selectable at runtime.
const (
	ScoringModeAI     = "ai"
	ScoringModeRandom = "random"
	ScoringModeMixed  = "mixed"
)

// Scoring methods as persisted on content vectors.
const (
	MethodAIAnalysis       = "ai_analysis"
	MethodRandomGeneration = "random_generation"
)

const (
	modeRandom int32 = iota
	modeAI
	modeMixed
)

func modeFromString(s string) (int32, bool) {
	switch s {
	case ScoringModeRandom:
		return modeRandom, true
	case ScoringModeAI:
		return modeAI, true
	case ScoringModeMixed:
		return modeMixed, true
	}
	return 0, false
}

func modeToString(m int32) string {
	switch m {
	case modeAI:
		return ScoringModeAI
	case modeMixed:
		return ScoringModeMixed
	default:
		return ScoringModeRandom
	}
}

// ScoringEngine maps content items into MBTI probability space. It consults
// the store first and only computes vectors for unseen items, either by
// asking the LLM or by deriving a deterministic pseudo-random vector,
// depending on the active mode.
type ScoringEngine struct {
	store   *Store
	llm     ChatCompleter
	fetcher ContentFetcher
	metrics *Metrics
	logger  *logrus.Logger

	batchSize   int
	concurrency int
	llmAttempts int
	limiter     *rate.Limiter

	mode atomic.Int32
}

// NewScoringEngine wires the engine from config. The limiter paces fresh
// sub-batches so LLM traffic stays under the upstream rate limits.
func NewScoringEngine(store *Store, llm ChatCompleter, fetcher ContentFetcher, cfg *config.Config, metrics *Metrics, logger *logrus.Logger) *ScoringEngine {
	e := &ScoringEngine{
		store:       store,
		llm:         llm,
		fetcher:     fetcher,
		metrics:     metrics,
		logger:      logger,
		batchSize:   cfg.MBTI.BatchSize,
		concurrency: cfg.MBTI.Concurrency,
		llmAttempts: cfg.LLM.MaxRetries,
		limiter:     rate.NewLimiter(rate.Every(cfg.MBTI.BatchPause), 1),
	}
	if e.batchSize <= 0 {
		e.batchSize = 10
	}
	if e.concurrency <= 0 {
		e.concurrency = 3
	}
	if e.llmAttempts <= 0 {
		e.llmAttempts = 1
	}

	if m, ok := modeFromString(cfg.MBTI.ScoringMode); ok {
		e.mode.Store(m)
	} else {
		logger.WithField("mode", cfg.MBTI.ScoringMode).Warn("unknown scoring mode in config, falling back to random")
		e.mode.Store(modeRandom)
	}
	return e
}

// Mode returns the active scoring mode.
func (e *ScoringEngine) Mode() string {
	return modeToString(e.mode.Load())
}

// SetMode switches the scoring mode at runtime and returns the previous one.
func (e *ScoringEngine) SetMode(mode string) (string, error) {
	m, ok := modeFromString(mode)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}
	prev := e.mode.Swap(m)
	if prev != m {
		e.logger.WithFields(logrus.Fields{
			"from": modeToString(prev),
			"to":   mode,
		}).Info("scoring mode changed")
	}
	return modeToString(prev), nil
}

// resolveMethod picks the scoring method for one item under the active mode.
// Mixed mode flips a fair coin per item.
func (e *ScoringEngine) resolveMethod() string {
	switch e.mode.Load() {
	case modeAI:
		return MethodAIAnalysis
	case modeMixed:
		if rand.Intn(2) == 0 {
			return MethodAIAnalysis
		}
		return MethodRandomGeneration
	default:
		return MethodRandomGeneration
	}
}

// Score maps one content item into MBTI space, returning the stored vector
// when the item was scored before.
func (e *ScoringEngine) Score(ctx context.Context, item models.ScoringItem) (*models.ScoringResult, error) {
	cv, err := e.store.GetContentVector(ctx, item.ContentID)
	if err == nil {
		return cachedResult(cv), nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	return e.scoreFresh(ctx, item, e.resolveMethod())
}

// EnsureScored scores contentID if no vector exists yet. The article text is
// fetched from the upstream platform when the AI path needs it.
func (e *ScoringEngine) EnsureScored(ctx context.Context, contentID int64) (*models.ScoringResult, error) {
	return e.Score(ctx, models.ScoringItem{ContentID: contentID})
}

// ScoreBatch scores many items. Stored vectors are returned without LLM
// calls and cost nothing; the remainder is processed in sub-batches with
// bounded concurrency, paced by the rate limiter.
func (e *ScoringEngine) ScoreBatch(ctx context.Context, items []models.ScoringItem) ([]*models.ScoringResult, error) {
	results := make([]*models.ScoringResult, len(items))
	if len(items) == 0 {
		return results, nil
	}

	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ContentID
	}
	existing, err := e.store.GetContentVectors(ctx, ids)
	if err != nil {
		return nil, err
	}

	var pending []int
	for i, item := range items {
		if cv, ok := existing[item.ContentID]; ok {
			results[i] = cachedResult(cv)
			continue
		}
		pending = append(pending, i)
	}

	for start := 0; start < len(pending); start += e.batchSize {
		if err := e.limiter.Wait(ctx); err != nil {
			return results, err
		}
		end := start + e.batchSize
		if end > len(pending) {
			end = len(pending)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for _, idx := range pending[start:end] {
			g.Go(func() error {
				res, err := e.scoreFresh(gctx, items[idx], e.resolveMethod())
				if err != nil {
					e.logger.WithError(err).WithField("content_id", items[idx].ContentID).Error("batch scoring item failed")
					res = neutralResult(items[idx].ContentID, err)
				}
				results[idx] = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return results, err
		}
	}

	return results, nil
}

func (e *ScoringEngine) scoreFresh(ctx context.Context, item models.ScoringItem, method string) (*models.ScoringResult, error) {
	if method == MethodRandomGeneration {
		res := &models.ScoringResult{
			ContentID:     item.ContentID,
			Vector:        randomVector(item.ContentID),
			ScoringMethod: MethodRandomGeneration,
		}
		if err := e.persist(ctx, res, item); err != nil {
			return nil, err
		}
		return res, nil
	}
	return e.scoreWithLLM(ctx, item)
}

// scoreWithLLM runs the AI path. Fetch failures and exhausted retries yield
// an unsaved neutral result so the item can be retried later; an unparseable
// reply persists the neutral vector, mirroring a successful call that
// produced no signal.
func (e *ScoringEngine) scoreWithLLM(ctx context.Context, item models.ScoringItem) (*models.ScoringResult, error) {
	text := item.Text
	if text == "" && e.fetcher != nil {
		article, err := e.fetcher.GetArticle(ctx, "article", item.ContentID)
		if err != nil {
			e.metrics.ScoringFailed.Inc()
			e.logger.WithError(err).WithField("content_id", item.ContentID).Warn("content fetch for scoring failed")
			return neutralResult(item.ContentID, err), nil
		}
		text = article.Content
		if item.Title == "" {
			item.Title = article.Title
		}
	}

	prepared := prepareScoringText(text)
	if utf8.RuneCountInString(prepared) < minScoringTextRunes {
		e.metrics.ScoringFailed.Inc()
		e.logger.WithField("content_id", item.ContentID).Warn("content too short to score, using neutral vector")
		return neutralResult(item.ContentID, nil), nil
	}

	reply, err := e.completeWithRetry(ctx, buildScoringPrompt(prepared))
	if err != nil {
		e.metrics.ScoringFailed.Inc()
		e.logger.WithError(err).WithField("content_id", item.ContentID).Error("LLM scoring failed")
		return neutralResult(item.ContentID, err), nil
	}

	res := &models.ScoringResult{ContentID: item.ContentID, ScoringMethod: MethodAIAnalysis}
	vector, perr := parseVectorResponse(reply)
	if perr != nil {
		e.metrics.ScoringFailed.Inc()
		e.logger.WithError(perr).WithFields(logrus.Fields{
			"content_id": item.ContentID,
			"reply":      upstream.Truncate(reply, 200),
		}).Warn("unparseable LLM reply, persisting neutral vector")
		res.Vector = models.NeutralVector()
		res.ScoringFailed = true
	} else {
		res.Vector = vector
	}

	if err := e.persist(ctx, res, item); err != nil {
		return nil, err
	}
	return res, nil
}

// persist writes the vector inside a transaction, re-checking under the row
// lock so concurrent scorers of the same item converge on the first result.
func (e *ScoringEngine) persist(ctx context.Context, res *models.ScoringResult, item models.ScoringItem) error {
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	existing, err := e.store.GetContentVectorForUpdate(ctx, tx, res.ContentID)
	if err == nil {
		res.Vector = existing.Vector
		res.MBTIType = existing.MBTIType
		res.ScoringMethod = existing.ScoringMethod
		res.FromCache = true
		res.ScoringFailed = false
		return tx.Commit(ctx)
	}
	if !errors.Is(err, ErrNotFound) {
		return err
	}

	res.MBTIType = mbti.TypeLabel(res.Vector)
	cv := &models.ContentVector{
		ContentID:     res.ContentID,
		Vector:        res.Vector,
		MBTIType:      res.MBTIType,
		Title:         item.Title,
		ContentType:   "article",
		ScoringMethod: res.ScoringMethod,
	}
	if err := e.store.UpsertContentVector(ctx, tx, cv); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	e.metrics.ScoringTotal.WithLabelValues(res.ScoringMethod).Inc()
	e.logger.WithFields(logrus.Fields{
		"content_id": res.ContentID,
		"mbti_type":  res.MBTIType,
		"method":     res.ScoringMethod,
	}).Info("content vector persisted")
	return nil
}

// completeWithRetry calls the LLM up to llmAttempts times with exponential
// backoff between attempts.
func (e *ScoringEngine) completeWithRetry(ctx context.Context, prompt string) (string, error) {
	var lastErr error
	for attempt := 0; attempt < e.llmAttempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt-1)) * time.Second
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		reply, err := e.llm.Complete(ctx, prompt)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		e.logger.WithError(err).WithField("attempt", attempt+1).Warn("LLM request failed")
	}
	return "", lastErr
}

// randomVector derives a stable pseudo-random vector from the content id so
// rescoring the same item always agrees.
func randomVector(contentID int64) models.MBTIVector {
	rng := rand.New(rand.NewSource(contentID))
	sample := func() float64 { return 0.2 + rng.Float64()*0.6 }

	var v models.MBTIVector
	v.E = sample()
	v.I = 1 - v.E
	v.S = sample()
	v.N = 1 - v.S
	v.T = sample()
	v.F = 1 - v.T
	v.J = sample()
	v.P = 1 - v.J
	return v
}

func cachedResult(cv *models.ContentVector) *models.ScoringResult {
	return &models.ScoringResult{
		ContentID:     cv.ContentID,
		Vector:        cv.Vector,
		MBTIType:      cv.MBTIType,
		ScoringMethod: cv.ScoringMethod,
		FromCache:     true,
	}
}

func neutralResult(contentID int64, err error) *models.ScoringResult {
	v := models.NeutralVector()
	return &models.ScoringResult{
		ContentID:     contentID,
		Vector:        v,
		MBTIType:      mbti.TypeLabel(v),
		ScoringMethod: MethodAIAnalysis,
		ScoringFailed: true,
		Err:           err,
	}
}
