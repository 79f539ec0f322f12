package services

import (
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/mbti"
)

func newTestPool(t *testing.T, count int) (*WorkerPool, pgxmock.PgxPoolIface) {
	t.Helper()

	engine, mockDB := newTestEngine(t, &fakeCompleter{}, nil, ScoringModeRandom)

	mbtiCfg := &config.MBTIConfig{
		UserUpdateThreshold:    50,
		ContentUpdateThreshold: 50,
		RecentBehaviorLimit:    200,
		MinBehaviors:           10,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	updater := NewProfileUpdater(engine.store, engine, mbtiCfg, logger)

	workerCfg := &config.WorkerConfig{
		Count:         count,
		QueueSize:     8,
		DrainTimeout:  2 * time.Second,
		UpdateTimeout: time.Second,
	}
	pool := NewWorkerPool(engine, updater, workerCfg, NewMetrics(prometheus.NewRegistry()), logger)
	t.Cleanup(pool.Stop)
	return pool, mockDB
}

func expectRandomScore(mockDB pgxmock.PgxPoolIface, contentID int64) {
	rv := randomVector(contentID)
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE content_id").
		WithArgs(contentID).
		WillReturnRows(pgxmock.NewRows([]string{"content_id"}))
	mockDB.ExpectBegin()
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors (.+) FOR UPDATE").
		WithArgs(contentID).
		WillReturnRows(pgxmock.NewRows([]string{"content_id"}))
	mockDB.ExpectExec("INSERT INTO content_mbti_vectors").
		WithArgs(contentID, rv.E, rv.I, rv.S, rv.N, rv.T, rv.F, rv.J, rv.P,
			mbti.TypeLabel(rv), "", "", "", "article", MethodRandomGeneration, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockDB.ExpectCommit()
}

func TestWorkerPool_ScoresContentInBackground(t *testing.T) {
	pool, mockDB := newTestPool(t, 1)
	expectRandomScore(mockDB, 91)

	pool.ScheduleScoreContent(91)

	require.Eventually(t, func() bool {
		return mockDB.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_StopDrainsQueuedTasks(t *testing.T) {
	pool, mockDB := newTestPool(t, 1)
	expectRandomScore(mockDB, 91)
	expectRandomScore(mockDB, 92)

	pool.ScheduleScoreContent(91)
	pool.ScheduleScoreContent(92)
	pool.Stop()

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestWorkerPool_SkipsUpdateThatIsNotDue(t *testing.T) {
	pool, mockDB := newTestPool(t, 1)

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, time.Now()))

	pool.ScheduleUserUpdate(7, false)

	require.Eventually(t, func() bool {
		return mockDB.ExpectationsWereMet() == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerPool_DropsWhenQueueFull(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	// No workers behind the channel, so the second submit finds it full.
	pool := &WorkerPool{
		tasks:   make(chan Task, 1),
		metrics: NewMetrics(prometheus.NewRegistry()),
		logger:  logger,
	}

	assert.True(t, pool.submit(Task{Kind: TaskScoreContent, ContentID: 1}))
	assert.False(t, pool.submit(Task{Kind: TaskScoreContent, ContentID: 2}))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(pool.metrics.WorkerDropped.WithLabelValues(TaskScoreContent)))
}
