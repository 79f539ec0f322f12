package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/services"
)

func newRecommendationRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()

	store, mockDB := newTestStore(t)
	cfg := &config.RecommendConfig{
		CandidateLimit:      1000,
		DefaultLimit:        20,
		SimilarityThreshold: 0.5,
		FreshDays:           30,
		SimilarThreshold:    0.3,
	}
	rec := services.NewRecommender(store, nil, nopScheduler{}, nil, cfg, services.NewMetrics(prometheus.NewRegistry()), quietLogger())
	h := NewRecommendationHandler(quietLogger(), rec, cfg)

	router := gin.New()
	router.GET("/api/v1/recommendations/:user_id", h.Get)
	router.GET("/api/v1/recommendations/similar/:content_id", h.GetSimilar)
	return router, mockDB
}

func TestRecommendationHandler_ServesRankedFeed(t *testing.T) {
	router, mockDB := newRecommendationRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT DISTINCT content_id FROM user_behaviors").
		WithArgs(int64(7), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"content_id"}).AddRow(int64(50)))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs("article", []int64{50}, 1000).
		WillReturnRows(contentVectorRows(101, 102))
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), 10, 0.5, "article", 2, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	w := perform(router, http.MethodGet, "/api/v1/recommendations/7?page=1&limit=10&include_content_details=false", "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeEnvelope(t, w)
	assert.Equal(t, "推荐生成成功", payload["message"])

	data := dataOf(t, w)
	assert.Equal(t, float64(7), data["user_id"])
	assert.NotNil(t, data["user_mbti"])

	recs, ok := data["recommendations"].([]interface{})
	require.True(t, ok)
	require.Len(t, recs, 2)

	meta, ok := data["metadata"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "mbti_ranking", meta["source"])
	assert.Equal(t, float64(1), meta["page"])
	assert.Equal(t, float64(10), meta["limit"])
	assert.Equal(t, float64(2), meta["total_candidates"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommendationHandler_RejectsBadContentType(t *testing.T) {
	router, _ := newRecommendationRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/recommendations/7?content_type=music", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CONTENT_TYPE", errorCodeOf(t, w))
}

func TestRecommendationHandler_RejectsBadUserID(t *testing.T) {
	router, _ := newRecommendationRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/recommendations/-3", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_USER_ID", errorCodeOf(t, w))
}

func TestRecommendationHandler_SimilarRequiresStoredVector(t *testing.T) {
	router, mockDB := newRecommendationRouter(t)

	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE content_id").
		WithArgs(int64(999)).
		WillReturnRows(pgxmock.NewRows(contentVectorColumns))

	w := perform(router, http.MethodGet, "/api/v1/recommendations/similar/999", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "CONTENT_NOT_SCORED", errorCodeOf(t, w))

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommendationHandler_SimilarRanks(t *testing.T) {
	router, mockDB := newRecommendationRouter(t)

	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE content_id").
		WithArgs(int64(101)).
		WillReturnRows(contentVectorRows(101))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs([]int64{101}, 1000).
		WillReturnRows(contentVectorRows(102, 103))

	w := perform(router, http.MethodGet, "/api/v1/recommendations/similar/101?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, w)
	assert.Equal(t, float64(101), data["content_id"])
	assert.Equal(t, "ESTJ", data["mbti_type"])

	similar, ok := data["similar_contents"].([]interface{})
	require.True(t, ok)
	require.Len(t, similar, 2)

	first, ok := similar[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), first["rank"])
	assert.InDelta(t, 1.0, first["similarity_score"].(float64), 1e-9)
	assert.InDelta(t, 0.0, first["mbti_distance"].(float64), 1e-9)

	require.NoError(t, mockDB.ExpectationsWereMet())
}
