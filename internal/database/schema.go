package database

// schemaStatements bootstraps the relational schema. Statements are
// idempotent so startup is safe against an already-initialized database.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS user_mbti_profiles (
		user_id BIGINT PRIMARY KEY,
		prob_e DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_i DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_s DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_n DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_t DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_f DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_j DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_p DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		mbti_type VARCHAR(4) NOT NULL DEFAULT '',
		confidence JSONB NOT NULL DEFAULT '{}',
		total_behaviors_analyzed INTEGER NOT NULL DEFAULT 0,
		behaviors_since_last_update INTEGER NOT NULL DEFAULT 0,
		current_recommendation_page INTEGER NOT NULL DEFAULT 0,
		last_recommendation_time TIMESTAMPTZ,
		last_updated TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS content_mbti_vectors (
		content_id BIGINT PRIMARY KEY,
		prob_e DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_i DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_s DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_n DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_t DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_f DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_j DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		prob_p DOUBLE PRECISION NOT NULL DEFAULT 0.5,
		mbti_type VARCHAR(4) NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		cover_image TEXT NOT NULL DEFAULT '',
		author TEXT NOT NULL DEFAULT '',
		content_type VARCHAR(32) NOT NULL DEFAULT 'article',
		scoring_method VARCHAR(32) NOT NULL DEFAULT '',
		publish_time TIMESTAMPTZ,
		scored_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_content_vectors_scored_at
		ON content_mbti_vectors (scored_at DESC)`,

	`CREATE TABLE IF NOT EXISTS user_behaviors (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		content_id BIGINT NOT NULL,
		action VARCHAR(16) NOT NULL,
		weight DOUBLE PRECISION NOT NULL,
		source VARCHAR(100) NOT NULL DEFAULT '',
		session_id VARCHAR(100) NOT NULL DEFAULT '',
		extra JSONB,
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_behaviors_user_time
		ON user_behaviors (user_id, timestamp DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_user_behaviors_content
		ON user_behaviors (content_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_behaviors_user_action
		ON user_behaviors (user_id, action, timestamp DESC)`,

	`CREATE TABLE IF NOT EXISTS recommendation_logs (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		recommended_content_ids JSONB NOT NULL DEFAULT '[]',
		similarity_scores JSONB NOT NULL DEFAULT '[]',
		limit_requested INTEGER NOT NULL DEFAULT 0,
		similarity_threshold DOUBLE PRECISION NOT NULL DEFAULT 0,
		content_type VARCHAR(32) NOT NULL DEFAULT '',
		total_candidates INTEGER NOT NULL DEFAULT 0,
		avg_similarity DOUBLE PRECISION NOT NULL DEFAULT 0,
		user_probabilities JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_recommendation_logs_user
		ON recommendation_logs (user_id, created_at DESC)`,
}
