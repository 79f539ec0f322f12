package handlers

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruoshui-go/mbtirec/internal/services"
)

func newProfileRouter(t *testing.T) (*gin.Engine, pgxmock.PgxPoolIface) {
	t.Helper()

	store, mockDB := newTestStore(t)
	engine := newTestEngine(t, store)
	cfg := testMBTIConfig()
	updater := services.NewProfileUpdater(store, engine, &cfg, quietLogger())
	h := NewProfileHandler(quietLogger(), store, updater, &cfg)

	router := gin.New()
	router.GET("/api/v1/mbti/profile/:user_id", h.Get)
	router.POST("/api/v1/mbti/update/:user_id", h.Update)
	return router, mockDB
}

func TestProfileHandler_GetCreatesNeutralProfile(t *testing.T) {
	router, mockDB := newProfileRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	mockDB.ExpectExec("INSERT INTO user_mbti_profiles").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(42)).
		WillReturnRows(neutralProfileRows(42, now))

	w := perform(router, http.MethodGet, "/api/v1/mbti/profile/42", "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeEnvelope(t, w)
	assert.Equal(t, "获取MBTI档案成功", payload["message"])

	data := dataOf(t, w)
	assert.Equal(t, float64(42), data["user_id"])
	assert.Equal(t, "ESTJ", data["mbti_type"])
	assert.Equal(t, "总经理 - 优秀的管理者", data["mbti_description"])
	assert.Equal(t, float64(50), data["next_update_in"])

	probs, ok := data["probabilities"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.5, probs["E"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestProfileHandler_GetExistingProfile(t *testing.T) {
	router, mockDB := newProfileRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))

	w := perform(router, http.MethodGet, "/api/v1/mbti/profile/7", "")
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, w)
	assert.Equal(t, "ESTJ", data["mbti_type"]) // label follows the stored vector
	assert.Equal(t, float64(12), data["behaviors_since_last_update"])
	assert.Equal(t, float64(38), data["next_update_in"])
	assert.NotEmpty(t, data["confidence"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestProfileHandler_UpdateNotDue(t *testing.T) {
	router, mockDB := newProfileRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))

	w := perform(router, http.MethodPost, "/api/v1/mbti/update/7", "")
	require.Equal(t, http.StatusOK, w.Code)

	payload := decodeEnvelope(t, w)
	assert.Equal(t, "MBTI档案无需更新", payload["message"])

	data := dataOf(t, w)
	assert.Equal(t, false, data["update_performed"])
	assert.Equal(t, "not_due", data["reason"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestProfileHandler_UpdateInsufficientData(t *testing.T) {
	router, mockDB := newProfileRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 60, now))
	mockDB.ExpectQuery("SELECT (.+) FROM user_behaviors WHERE user_id").
		WithArgs(int64(7), 200).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "content_id", "action", "weight", "source", "session_id", "extra", "timestamp",
		}))

	w := perform(router, http.MethodPost, "/api/v1/mbti/update/7", `{"force_update":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	data := dataOf(t, w)
	assert.Equal(t, false, data["update_performed"])
	assert.Equal(t, "insufficient_data", data["reason"])

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestProfileHandler_UpdateValidatesBody(t *testing.T) {
	router, _ := newProfileRouter(t)

	w := perform(router, http.MethodPost, "/api/v1/mbti/update/7", `{"analyze_last_n_behaviors":5}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", errorCodeOf(t, w))
}

func TestProfileHandler_RejectsBadUserID(t *testing.T) {
	router, _ := newProfileRouter(t)

	w := perform(router, http.MethodGet, "/api/v1/mbti/profile/zero", "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_USER_ID", errorCodeOf(t, w))
}
