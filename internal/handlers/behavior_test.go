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

	"github.com/ruoshui-go/mbtirec/internal/services"
)

func newBehaviorRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()

	store, mockDB := newTestStore(t)
	cfg := testMBTIConfig()
	behavior := services.NewBehaviorService(store, nopScheduler{}, nil, &cfg, services.NewMetrics(prometheus.NewRegistry()), quietLogger())
	h := NewBehaviorHandler(quietLogger(), behavior)

	router := gin.New()
	router.POST("/api/v1/behavior/record", h.Record)
	router.GET("/api/v1/behavior/history/:user_id", h.History)
	router.GET("/api/v1/behavior/stats/:user_id", h.Stats)
	return router, mockDB
}

func TestBehaviorHandler_Record(t *testing.T) {
	router, mockDB := newBehaviorRouter(t)

	mockDB.ExpectQuery("INSERT INTO user_behaviors").
		WithArgs(int64(7), int64(101), "like", 0.8, "", "", nil, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mockDB.ExpectQuery("INSERT INTO user_mbti_profiles").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"behaviors_since_last_update"}).AddRow(5))

	w := perform(router, http.MethodPost, "/api/v1/behavior/record", `{"user_id":7,"content_id":101,"action":"like"}`)
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeEnvelope(t, w)
	assert.Equal(t, "行为记录成功", payload["message"])

	data := dataOf(t, w)
	assert.Equal(t, float64(11), data["behavior_id"])
	assert.Equal(t, 0.8, data["weight"])
	assert.Equal(t, false, data["mbti_update_triggered"])
	assert.Equal(t, float64(5), data["current_behavior_count"])
	assert.Equal(t, float64(50), data["next_update_threshold"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestBehaviorHandler_RecordRejectsUnknownAction(t *testing.T) {
	router, mockDB := newBehaviorRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/behavior/record", `{"user_id":7,"content_id":101,"action":"purchase"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCodeOf(t, w))

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestBehaviorHandler_RecordRejectsMalformedBody(t *testing.T) {
	router, _ := newBehaviorRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/behavior/record", `{"user_id":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST_BODY", errorCodeOf(t, w))
}

func TestBehaviorHandler_HistoryRejectsBadDate(t *testing.T) {
	router, _ := newBehaviorRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/behavior/history/7?start_date=yesterday", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_START_DATE", errorCodeOf(t, w))
}

func TestBehaviorHandler_HistoryPaginates(t *testing.T) {
	router, mockDB := newBehaviorRouter(t)

	mockDB.ExpectQuery("SELECT COUNT").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))
	mockDB.ExpectQuery("SELECT id, user_id, content_id, action").
		WithArgs(int64(7), 20, 0).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "content_id", "action", "weight", "source", "session_id", "extra", "timestamp",
		}).AddRow(int64(9), int64(7), int64(101), "view", 0.1, "app", "", nil, time.Now()))

	w := perform(router, http.MethodGet, "/api/v1/behavior/history/7", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, w)
	assert.Equal(t, float64(7), data["user_id"])

	pagination, ok := data["pagination"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), pagination["current_page"])
	assert.Equal(t, float64(20), pagination["page_size"])
	assert.Equal(t, float64(1), pagination["total_count"])
	assert.Equal(t, false, pagination["has_next"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestBehaviorHandler_StatsDefaultsDays(t *testing.T) {
	router, mockDB := newBehaviorRouter(t)

	mockDB.ExpectQuery("SELECT action, COUNT").
		WithArgs(int64(7), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"action", "count"}).
			AddRow("view", 40).
			AddRow("like", 20))

	// An out-of-range days value falls back to the 30-day default.
	w := perform(router, http.MethodGet, "/api/v1/behavior/stats/7?days=9999", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, w)
	assert.Equal(t, float64(30), data["period_days"])
	assert.Equal(t, float64(60), data["total_behaviors"])
	assert.Equal(t, "medium", data["activity_level"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}
