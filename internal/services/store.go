package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// DatabaseQuerier abstracts the pgx pool so tests can substitute pgxmock.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// rowQuerier is the subset shared by pools and transactions.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Store is the single source of truth for profiles, content vectors, the
// behavior log and the recommendation audit log. Reads of hot rows go through
// an optional Redis cache; every writer invalidates.
type Store struct {
	db       DatabaseQuerier
	redis    *redis.Client
	cacheTTL time.Duration
	logger   *logrus.Logger

	excludeChunkSize int
}

func NewStore(db DatabaseQuerier, redisClient *redis.Client, cacheTTL time.Duration, excludeChunkSize int, logger *logrus.Logger) *Store {
	if excludeChunkSize <= 0 {
		excludeChunkSize = 10000
	}
	return &Store{
		db:               db,
		redis:            redisClient,
		cacheTTL:         cacheTTL,
		logger:           logger,
		excludeChunkSize: excludeChunkSize,
	}
}

// Begin starts a transaction on the underlying pool.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.db.Begin(ctx)
}

const profileColumns = `user_id, prob_e, prob_i, prob_s, prob_n, prob_t, prob_f, prob_j, prob_p,
		mbti_type, confidence, total_behaviors_analyzed, behaviors_since_last_update,
		current_recommendation_page, last_recommendation_time, last_updated, created_at`

func scanProfile(row pgx.Row) (*models.UserProfile, error) {
	var p models.UserProfile
	var confJSON []byte
	err := row.Scan(
		&p.UserID,
		&p.Vector.E, &p.Vector.I, &p.Vector.S, &p.Vector.N,
		&p.Vector.T, &p.Vector.F, &p.Vector.J, &p.Vector.P,
		&p.MBTIType,
		&confJSON,
		&p.TotalBehaviorsAnalyzed,
		&p.BehaviorsSinceLastUpdate,
		&p.CurrentRecommendationPage,
		&p.LastRecommendationTime,
		&p.LastUpdated,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(confJSON) > 0 {
		if err := json.Unmarshal(confJSON, &p.Confidence); err != nil {
			p.Confidence = map[string]float64{}
		}
	}
	return &p, nil
}

func (s *Store) profileCacheKey(userID int64) string {
	return fmt.Sprintf("mbti:profile:%d", userID)
}

func (s *Store) contentCacheKey(contentID int64) string {
	return fmt.Sprintf("mbti:content:%d", contentID)
}

// GetProfile returns the profile or ErrNotFound.
func (s *Store) GetProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, s.profileCacheKey(userID)).Result()
		if err == nil {
			var p models.UserProfile
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				return &p, nil
			}
		}
	}

	query := `SELECT ` + profileColumns + ` FROM user_mbti_profiles WHERE user_id = $1`
	p, err := scanProfile(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}

	s.cacheProfile(ctx, p)
	return p, nil
}

// GetOrCreateProfile returns the profile, creating a neutral one on first
// reference. Never destroys existing state.
func (s *Store) GetOrCreateProfile(ctx context.Context, userID int64) (*models.UserProfile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	insert := `INSERT INTO user_mbti_profiles (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`
	if _, err := s.db.Exec(ctx, insert, userID); err != nil {
		return nil, fmt.Errorf("failed to create profile: %w", err)
	}

	s.logger.WithField("user_id", userID).Info("Created default MBTI profile")
	return s.GetProfile(ctx, userID)
}

// UpdateProfileVector writes a re-derived vector with optimistic concurrency:
// the write succeeds only if last_updated still matches the snapshot the
// derivation started from. Returns ErrConflict when the row moved.
func (s *Store) UpdateProfileVector(ctx context.Context, userID int64, v models.MBTIVector, totalAnalyzed int, expectedLastUpdated time.Time) error {
	label := mbti.TypeLabel(v)
	confJSON, err := json.Marshal(mbti.Confidence(v))
	if err != nil {
		return fmt.Errorf("failed to marshal confidence: %w", err)
	}

	query := `
		UPDATE user_mbti_profiles
		SET prob_e = $2, prob_i = $3, prob_s = $4, prob_n = $5,
			prob_t = $6, prob_f = $7, prob_j = $8, prob_p = $9,
			mbti_type = $10, confidence = $11,
			total_behaviors_analyzed = $12,
			behaviors_since_last_update = 0,
			last_updated = NOW()
		WHERE user_id = $1 AND last_updated = $13`

	tag, err := s.db.Exec(ctx, query,
		userID,
		v.E, v.I, v.S, v.N, v.T, v.F, v.J, v.P,
		label, confJSON, totalAnalyzed, expectedLastUpdated,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile vector: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrConflict
	}

	s.invalidateProfile(ctx, userID)
	return nil
}

// IncrementBehaviorCounter bumps behaviors_since_last_update atomically,
// creating the profile row on first contact, and returns the new counter.
func (s *Store) IncrementBehaviorCounter(ctx context.Context, userID int64) (int, error) {
	query := `
		INSERT INTO user_mbti_profiles (user_id, behaviors_since_last_update)
		VALUES ($1, 1)
		ON CONFLICT (user_id) DO UPDATE
		SET behaviors_since_last_update = user_mbti_profiles.behaviors_since_last_update + 1
		RETURNING behaviors_since_last_update`

	var count int
	if err := s.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to increment behavior counter: %w", err)
	}

	s.invalidateProfile(ctx, userID)
	return count, nil
}

// AdvanceRecommendationCursor moves the per-user page cursor forward. The
// GREATEST keeps the cursor monotonic when concurrent requests race.
func (s *Store) AdvanceRecommendationCursor(ctx context.Context, userID int64, newPage int) error {
	query := `
		UPDATE user_mbti_profiles
		SET current_recommendation_page = GREATEST(current_recommendation_page, $2),
			last_recommendation_time = NOW()
		WHERE user_id = $1`

	tag, err := s.db.Exec(ctx, query, userID, newPage)
	if err != nil {
		return fmt.Errorf("failed to advance recommendation cursor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.invalidateProfile(ctx, userID)
	return nil
}

func (s *Store) cacheProfile(ctx context.Context, p *models.UserProfile) {
	if s.redis == nil {
		return
	}
	if data, err := json.Marshal(p); err == nil {
		if err := s.redis.Set(ctx, s.profileCacheKey(p.UserID), data, s.cacheTTL).Err(); err != nil {
			s.logger.WithError(err).Debug("Failed to cache profile")
		}
	}
}

func (s *Store) invalidateProfile(ctx context.Context, userID int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.profileCacheKey(userID)).Err(); err != nil {
		s.logger.WithError(err).Debug("Failed to invalidate profile cache")
	}
}

// RecordBehavior appends one event to the behavior log and returns its id.
func (s *Store) RecordBehavior(ctx context.Context, event *models.BehaviorEvent) (int64, error) {
	query := `
		INSERT INTO user_behaviors (user_id, content_id, action, weight, source, session_id, extra, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var extra interface{}
	if len(event.Extra) > 0 {
		extra = []byte(event.Extra)
	}

	var id int64
	err := s.db.QueryRow(ctx, query,
		event.UserID,
		event.ContentID,
		event.Action,
		event.Weight,
		event.Source,
		event.SessionID,
		extra,
		event.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to record behavior: %w", err)
	}

	event.ID = id
	return id, nil
}

const behaviorColumns = `id, user_id, content_id, action, weight, source, session_id, extra, timestamp`

func scanBehaviors(rows pgx.Rows) ([]models.BehaviorEvent, error) {
	var events []models.BehaviorEvent
	for rows.Next() {
		var e models.BehaviorEvent
		var extra []byte
		err := rows.Scan(&e.ID, &e.UserID, &e.ContentID, &e.Action, &e.Weight,
			&e.Source, &e.SessionID, &extra, &e.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to scan behavior: %w", err)
		}
		if len(extra) > 0 {
			e.Extra = json.RawMessage(extra)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetRecentBehaviors returns up to limit events, newest first.
func (s *Store) GetRecentBehaviors(ctx context.Context, userID int64, limit int) ([]models.BehaviorEvent, error) {
	query := `SELECT ` + behaviorColumns + `
		FROM user_behaviors WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC LIMIT $2`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent behaviors: %w", err)
	}
	defer rows.Close()

	return scanBehaviors(rows)
}

// GetBehaviorHistory returns one page of the behavior log plus the total
// matching count.
func (s *Store) GetBehaviorHistory(ctx context.Context, userID int64, q *models.BehaviorHistoryQuery) ([]models.BehaviorEvent, int, error) {
	query := `SELECT ` + behaviorColumns + ` FROM user_behaviors WHERE user_id = $1`

	args := []interface{}{userID}
	argCount := 1

	// Add filters
	if q.Action != "" {
		argCount++
		query += fmt.Sprintf(" AND action = $%d", argCount)
		args = append(args, q.Action)
	}
	if q.StartDate != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp >= $%d", argCount)
		args = append(args, *q.StartDate)
	}
	if q.EndDate != nil {
		argCount++
		query += fmt.Sprintf(" AND timestamp <= $%d", argCount)
		args = append(args, *q.EndDate)
	}

	// Get total count
	countQuery := "SELECT COUNT(*) FROM (" + query + ") as filtered"
	var totalCount int
	if err := s.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count behaviors: %w", err)
	}

	query += " ORDER BY timestamp DESC, id DESC"
	argCount++
	query += fmt.Sprintf(" LIMIT $%d", argCount)
	args = append(args, q.PageSize)
	argCount++
	query += fmt.Sprintf(" OFFSET $%d", argCount)
	args = append(args, (q.Page-1)*q.PageSize)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query behavior history: %w", err)
	}
	defer rows.Close()

	events, err := scanBehaviors(rows)
	if err != nil {
		return nil, 0, err
	}
	return events, totalCount, nil
}

// GetActionCounts aggregates behaviors per action since the given time.
func (s *Store) GetActionCounts(ctx context.Context, userID int64, since time.Time) (map[string]int, error) {
	query := `
		SELECT action, COUNT(*)
		FROM user_behaviors
		WHERE user_id = $1 AND timestamp >= $2
		GROUP BY action`

	rows, err := s.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query action counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var action string
		var count int
		if err := rows.Scan(&action, &count); err != nil {
			return nil, fmt.Errorf("failed to scan action count: %w", err)
		}
		counts[action] = count
	}
	return counts, rows.Err()
}

// GetDistinctToucherUsers lists users that produced any behavior against the
// content.
func (s *Store) GetDistinctToucherUsers(ctx context.Context, contentID int64) ([]int64, error) {
	query := `SELECT DISTINCT user_id FROM user_behaviors WHERE content_id = $1`

	rows, err := s.db.Query(ctx, query, contentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query toucher users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CountDistinctToucherUsers is the cheap threshold probe for content updates.
func (s *Store) CountDistinctToucherUsers(ctx context.Context, contentID int64) (int, error) {
	var count int
	query := `SELECT COUNT(DISTINCT user_id) FROM user_behaviors WHERE content_id = $1`
	if err := s.db.QueryRow(ctx, query, contentID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count toucher users: %w", err)
	}
	return count, nil
}

// GetDistinctOperatedContentIDs lists content the user has ever touched.
func (s *Store) GetDistinctOperatedContentIDs(ctx context.Context, userID int64) ([]int64, error) {
	query := `SELECT DISTINCT content_id FROM user_behaviors WHERE user_id = $1`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query operated content: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan content id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetLikedContentIDs lists content the user liked within the window.
func (s *Store) GetLikedContentIDs(ctx context.Context, userID int64, since time.Time) ([]int64, error) {
	query := `
		SELECT DISTINCT content_id FROM user_behaviors
		WHERE user_id = $1 AND action = 'like' AND timestamp >= $2`

	rows, err := s.db.Query(ctx, query, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked content: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan content id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const contentColumns = `content_id, prob_e, prob_i, prob_s, prob_n, prob_t, prob_f, prob_j, prob_p,
		mbti_type, title, cover_image, author, content_type, scoring_method, publish_time, scored_at, updated_at`

func scanContentVector(row pgx.Row) (*models.ContentVector, error) {
	var c models.ContentVector
	err := row.Scan(
		&c.ContentID,
		&c.Vector.E, &c.Vector.I, &c.Vector.S, &c.Vector.N,
		&c.Vector.T, &c.Vector.F, &c.Vector.J, &c.Vector.P,
		&c.MBTIType,
		&c.Title,
		&c.CoverImage,
		&c.Author,
		&c.ContentType,
		&c.ScoringMethod,
		&c.PublishTime,
		&c.ScoredAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetContentVector returns the stored vector or ErrNotFound. Reads go through
// the cache; qr may be a transaction to read under its lock instead.
func (s *Store) GetContentVector(ctx context.Context, contentID int64) (*models.ContentVector, error) {
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, s.contentCacheKey(contentID)).Result()
		if err == nil {
			var c models.ContentVector
			if err := json.Unmarshal([]byte(cached), &c); err == nil {
				return &c, nil
			}
		}
	}

	query := `SELECT ` + contentColumns + ` FROM content_mbti_vectors WHERE content_id = $1`
	c, err := scanContentVector(s.db.QueryRow(ctx, query, contentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query content vector: %w", err)
	}

	s.cacheContentVector(ctx, c)
	return c, nil
}

// GetContentVectorForUpdate reads a content row under FOR UPDATE inside tx.
func (s *Store) GetContentVectorForUpdate(ctx context.Context, tx rowQuerier, contentID int64) (*models.ContentVector, error) {
	query := `SELECT ` + contentColumns + ` FROM content_mbti_vectors WHERE content_id = $1 FOR UPDATE`
	c, err := scanContentVector(tx.QueryRow(ctx, query, contentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to lock content vector: %w", err)
	}
	return c, nil
}

// GetContentVectors bulk-loads vectors for the given ids.
func (s *Store) GetContentVectors(ctx context.Context, contentIDs []int64) (map[int64]*models.ContentVector, error) {
	result := make(map[int64]*models.ContentVector, len(contentIDs))
	if len(contentIDs) == 0 {
		return result, nil
	}

	query := `SELECT ` + contentColumns + ` FROM content_mbti_vectors WHERE content_id = ANY($1)`
	rows, err := s.db.Query(ctx, query, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query content vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContentVector(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content vector: %w", err)
		}
		result[c.ContentID] = c
	}
	return result, rows.Err()
}

// UpsertContentVector writes a content vector; qr may be the pool or an open
// transaction holding the row lock.
func (s *Store) UpsertContentVector(ctx context.Context, qr rowQuerier, c *models.ContentVector) error {
	if qr == nil {
		qr = s.db
	}
	label := mbti.TypeLabel(c.Vector)

	query := `
		INSERT INTO content_mbti_vectors
			(content_id, prob_e, prob_i, prob_s, prob_n, prob_t, prob_f, prob_j, prob_p,
			 mbti_type, title, cover_image, author, content_type, scoring_method, publish_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (content_id) DO UPDATE
		SET prob_e = EXCLUDED.prob_e, prob_i = EXCLUDED.prob_i,
			prob_s = EXCLUDED.prob_s, prob_n = EXCLUDED.prob_n,
			prob_t = EXCLUDED.prob_t, prob_f = EXCLUDED.prob_f,
			prob_j = EXCLUDED.prob_j, prob_p = EXCLUDED.prob_p,
			mbti_type = EXCLUDED.mbti_type,
			title = COALESCE(NULLIF(EXCLUDED.title, ''), content_mbti_vectors.title),
			cover_image = COALESCE(NULLIF(EXCLUDED.cover_image, ''), content_mbti_vectors.cover_image),
			author = COALESCE(NULLIF(EXCLUDED.author, ''), content_mbti_vectors.author),
			content_type = EXCLUDED.content_type,
			scoring_method = EXCLUDED.scoring_method,
			publish_time = COALESCE(EXCLUDED.publish_time, content_mbti_vectors.publish_time),
			updated_at = NOW()`

	contentType := c.ContentType
	if contentType == "" {
		contentType = "article"
	}

	_, err := qr.Exec(ctx, query,
		c.ContentID,
		c.Vector.E, c.Vector.I, c.Vector.S, c.Vector.N,
		c.Vector.T, c.Vector.F, c.Vector.J, c.Vector.P,
		label, c.Title, c.CoverImage, c.Author, contentType, c.ScoringMethod, c.PublishTime,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert content vector: %w", err)
	}

	c.MBTIType = label
	s.invalidateContentVector(ctx, c.ContentID)
	return nil
}

func (s *Store) cacheContentVector(ctx context.Context, c *models.ContentVector) {
	if s.redis == nil {
		return
	}
	if data, err := json.Marshal(c); err == nil {
		if err := s.redis.Set(ctx, s.contentCacheKey(c.ContentID), data, s.cacheTTL).Err(); err != nil {
			s.logger.WithError(err).Debug("Failed to cache content vector")
		}
	}
}

func (s *Store) invalidateContentVector(ctx context.Context, contentID int64) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, s.contentCacheKey(contentID)).Err(); err != nil {
		s.logger.WithError(err).Debug("Failed to invalidate content cache")
	}
}

// ListScoredContent returns up to limit scored items, newest-scored first,
// skipping excluded ids. Oversized exclusion lists are applied in chunks; the
// tail beyond five chunks is dropped with a warning rather than building an
// unbounded statement.
func (s *Store) ListScoredContent(ctx context.Context, excludeIDs []int64, contentType string, limit int) ([]*models.ContentVector, error) {
	query := `SELECT ` + contentColumns + ` FROM content_mbti_vectors WHERE 1=1`

	args := []interface{}{}
	argCount := 0

	if contentType != "" {
		argCount++
		query += fmt.Sprintf(" AND content_type = $%d", argCount)
		args = append(args, contentType)
	}

	if len(excludeIDs) > 0 {
		const maxExcludeChunks = 5
		chunks := chunkInt64s(excludeIDs, s.excludeChunkSize)
		if len(chunks) > maxExcludeChunks {
			s.logger.WithFields(logrus.Fields{
				"exclude_count": len(excludeIDs),
				"chunks_used":   maxExcludeChunks,
			}).Warn("Exclusion list too large, truncating")
			chunks = chunks[:maxExcludeChunks]
		}
		for _, chunk := range chunks {
			argCount++
			query += fmt.Sprintf(" AND NOT (content_id = ANY($%d))", argCount)
			args = append(args, chunk)
		}
	}

	argCount++
	query += fmt.Sprintf(" ORDER BY scored_at DESC, content_id DESC LIMIT $%d", argCount)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scored content: %w", err)
	}
	defer rows.Close()

	var items []*models.ContentVector
	for rows.Next() {
		c, err := scanContentVector(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content vector: %w", err)
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// GetLabeledUserVectors returns the vectors of the given users that already
// have a derived type.
func (s *Store) GetLabeledUserVectors(ctx context.Context, userIDs []int64) ([]models.MBTIVector, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT prob_e, prob_i, prob_s, prob_n, prob_t, prob_f, prob_j, prob_p
		FROM user_mbti_profiles
		WHERE user_id = ANY($1) AND mbti_type <> ''`

	rows, err := s.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query labeled user vectors: %w", err)
	}
	defer rows.Close()

	var vectors []models.MBTIVector
	for rows.Next() {
		var v models.MBTIVector
		if err := rows.Scan(&v.E, &v.I, &v.S, &v.N, &v.T, &v.F, &v.J, &v.P); err != nil {
			return nil, fmt.Errorf("failed to scan user vector: %w", err)
		}
		vectors = append(vectors, v)
	}
	return vectors, rows.Err()
}

// LogRecommendation appends one serve to the audit log.
func (s *Store) LogRecommendation(ctx context.Context, log *models.RecommendationLog) error {
	idsJSON, err := json.Marshal(log.RecommendedContentIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal content ids: %w", err)
	}
	scoresJSON, err := json.Marshal(log.SimilarityScores)
	if err != nil {
		return fmt.Errorf("failed to marshal similarity scores: %w", err)
	}
	probsJSON, err := json.Marshal(log.UserProbabilities)
	if err != nil {
		return fmt.Errorf("failed to marshal user probabilities: %w", err)
	}

	query := `
		INSERT INTO recommendation_logs
			(user_id, recommended_content_ids, similarity_scores, limit_requested,
			 similarity_threshold, content_type, total_candidates, avg_similarity, user_probabilities)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = s.db.Exec(ctx, query,
		log.UserID, idsJSON, scoresJSON, log.Limit,
		log.SimilarityThreshold, log.ContentType, log.TotalCandidates, log.AvgSimilarity, probsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to log recommendation: %w", err)
	}
	return nil
}

// DatabaseStats are the row counts surfaced by the system info endpoint.
type DatabaseStats struct {
	UserProfiles       int64 `json:"user_profiles"`
	ContentVectors     int64 `json:"content_vectors"`
	Behaviors          int64 `json:"behaviors"`
	RecommendationLogs int64 `json:"recommendation_logs"`
}

// GetDatabaseStats counts rows across the four tables.
func (s *Store) GetDatabaseStats(ctx context.Context) (*DatabaseStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM user_mbti_profiles),
			(SELECT COUNT(*) FROM content_mbti_vectors),
			(SELECT COUNT(*) FROM user_behaviors),
			(SELECT COUNT(*) FROM recommendation_logs)`

	var stats DatabaseStats
	err := s.db.QueryRow(ctx, query).Scan(
		&stats.UserProfiles,
		&stats.ContentVectors,
		&stats.Behaviors,
		&stats.RecommendationLogs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query database stats: %w", err)
	}
	return &stats, nil
}

func chunkInt64s(ids []int64, size int) [][]int64 {
	if size <= 0 {
		return [][]int64{ids}
	}
	var chunks [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
