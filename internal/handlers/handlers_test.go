package handlers

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

func newTestStore(t *testing.T) (*services.Store, pgxmock.PgxPoolIface) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockDB.Close)

	return services.NewStore(mockDB, nil, time.Hour, 10000, quietLogger()), mockDB
}

func testMBTIConfig() config.MBTIConfig {
	return config.MBTIConfig{
		ScoringMode:            services.ScoringModeRandom,
		UserUpdateThreshold:    50,
		ContentUpdateThreshold: 50,
		RecentBehaviorLimit:    200,
		MinBehaviors:           10,
		BatchSize:              10,
		Concurrency:            3,
		BatchPause:             time.Second,
		BehaviorWeights:        map[string]float64{"view": 0.1, "like": 0.8},
	}
}

func newTestEngine(t *testing.T, store *services.Store) *services.ScoringEngine {
	t.Helper()

	cfg := &config.Config{MBTI: testMBTIConfig()}
	return services.NewScoringEngine(store, nil, nil, cfg, services.NewMetrics(prometheus.NewRegistry()), quietLogger())
}

// nopScheduler satisfies services.Scheduler without doing background work.
type nopScheduler struct{}

func (nopScheduler) ScheduleScoreContent(int64)     {}
func (nopScheduler) ScheduleUserUpdate(int64, bool) {}
func (nopScheduler) ScheduleContentUpdate(int64)    {}

func perform(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	return payload
}

// dataOf asserts a success envelope and returns its data object.
func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	payload := decodeEnvelope(t, w)
	require.Equal(t, true, payload["success"], "expected success envelope, got %s", w.Body.String())
	data, ok := payload["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %s", w.Body.String())
	return data
}

// errorCodeOf asserts a failure envelope and returns its error_code.
func errorCodeOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()

	payload := decodeEnvelope(t, w)
	require.Equal(t, false, payload["success"], "expected error envelope, got %s", w.Body.String())
	code, _ := payload["error_code"].(string)
	return code
}

func profileRows(userID int64, mbtiType string, counter int, lastUpdated time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"user_id", "prob_e", "prob_i", "prob_s", "prob_n", "prob_t", "prob_f", "prob_j", "prob_p",
		"mbti_type", "confidence", "total_behaviors_analyzed", "behaviors_since_last_update",
		"current_recommendation_page", "last_recommendation_time", "last_updated", "created_at",
	}).AddRow(
		userID, 0.6, 0.4, 0.5, 0.5, 0.7, 0.3, 0.5, 0.5,
		mbtiType, []byte(`{"EI":0.2}`), 100, counter,
		2, nil, lastUpdated, lastUpdated.Add(-24*time.Hour),
	)
}

func neutralProfileRows(userID int64, created time.Time) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"user_id", "prob_e", "prob_i", "prob_s", "prob_n", "prob_t", "prob_f", "prob_j", "prob_p",
		"mbti_type", "confidence", "total_behaviors_analyzed", "behaviors_since_last_update",
		"current_recommendation_page", "last_recommendation_time", "last_updated", "created_at",
	}).AddRow(
		userID, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5, 0.5,
		"", []byte(`{}`), 0, 0,
		1, nil, created, created,
	)
}

var contentVectorColumns = []string{
	"content_id", "prob_e", "prob_i", "prob_s", "prob_n", "prob_t", "prob_f", "prob_j", "prob_p",
	"mbti_type", "title", "cover_image", "author", "content_type", "scoring_method", "publish_time", "scored_at", "updated_at",
}

func contentVectorRows(ids ...int64) *pgxmock.Rows {
	rows := pgxmock.NewRows(contentVectorColumns)
	now := time.Now()
	for _, id := range ids {
		rows.AddRow(
			id, 0.7, 0.3, 0.5, 0.5, 0.8, 0.2, 0.5, 0.5,
			"ESTJ", "title", "cover", "author", "article", "ai_analysis", nil, now, now,
		)
	}
	return rows
}
