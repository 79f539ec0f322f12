package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/internal/upstream"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

type fakeArticles struct {
	mu         sync.Mutex
	feed       []models.Article
	feedTotal  int
	feedErr    error
	details    []models.Article
	listCalls  int
	batchCalls int
	batchIDs   []int64
}

func (f *fakeArticles) ListArticles(_ context.Context, _, _ int, _ *upstream.ListFilters) ([]models.Article, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.feedErr != nil {
		return nil, 0, f.feedErr
	}
	return f.feed, f.feedTotal, nil
}

func (f *fakeArticles) GetArticlesBatch(_ context.Context, _ string, ids []int64) ([]models.Article, []int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.batchIDs = append([]int64(nil), ids...)

	have := make(map[int64]models.Article, len(f.details))
	for _, a := range f.details {
		have[a.ID] = a
	}
	var found []models.Article
	var missing []int64
	for _, id := range ids {
		if a, ok := have[id]; ok {
			found = append(found, a)
		} else {
			missing = append(missing, id)
		}
	}
	return found, missing, nil
}

type fakeScheduler struct {
	mu             sync.Mutex
	scored         []int64
	userUpdates    []int64
	forced         []bool
	contentUpdates []int64
}

func (f *fakeScheduler) ScheduleScoreContent(contentID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scored = append(f.scored, contentID)
}

func (f *fakeScheduler) ScheduleUserUpdate(userID int64, force bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.userUpdates = append(f.userUpdates, userID)
	f.forced = append(f.forced, force)
}

func (f *fakeScheduler) ScheduleContentUpdate(contentID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contentUpdates = append(f.contentUpdates, contentID)
}

func (f *fakeScheduler) scoredIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.scored...)
}

func newTestRecommender(t *testing.T, articles ArticleProvider) (*Recommender, pgxmock.PgxPoolIface, *fakeScheduler) {
	t.Helper()

	store, mockDB := newTestStore(t)
	sched := &fakeScheduler{}
	cfg := &config.RecommendConfig{
		CandidateLimit:      1000,
		DefaultLimit:        20,
		SimilarityThreshold: 0.5,
		FreshDays:           30,
		SimilarThreshold:    0.3,
	}

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	rec := NewRecommender(store, articles, sched, nil, cfg, NewMetrics(prometheus.NewRegistry()), logger)
	return rec, mockDB, sched
}

func scoredRows(cs ...*models.ContentVector) *pgxmock.Rows {
	rows := pgxmock.NewRows([]string{
		"content_id", "prob_e", "prob_i", "prob_s", "prob_n", "prob_t", "prob_f", "prob_j", "prob_p",
		"mbti_type", "title", "cover_image", "author", "content_type", "scoring_method", "publish_time", "scored_at", "updated_at",
	})
	now := time.Now()
	for _, c := range cs {
		rows.AddRow(
			c.ContentID,
			c.Vector.E, c.Vector.I, c.Vector.S, c.Vector.N,
			c.Vector.T, c.Vector.F, c.Vector.J, c.Vector.P,
			mbti.TypeLabel(c.Vector), c.Title, "", "", "article", "ai_analysis", nil, now, now,
		)
	}
	return rows
}

func scored(id int64, v models.MBTIVector) *models.ContentVector {
	return &models.ContentVector{ContentID: id, Vector: v, MBTIType: mbti.TypeLabel(v)}
}

// Candidate vectors with clearly separated 4-axis similarities against the
// profileRows vector (E .6, S .5, T .7, J .5).
var (
	alignedVec  = models.MBTIVector{E: 0.7, I: 0.3, S: 0.5, N: 0.5, T: 0.8, F: 0.2, J: 0.5, P: 0.5}
	opposedVec  = models.MBTIVector{E: 0.2, I: 0.8, S: 0.5, N: 0.5, T: 0.2, F: 0.8, J: 0.5, P: 0.5}
	neutralVec8 = models.NeutralVector()
)

func TestRecommender_ColdStartServesNewest(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(42)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}))
	mockDB.ExpectExec("INSERT INTO user_mbti_profiles").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(42)).
		WillReturnRows(profileRows(42, "", 0, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(3).
		WillReturnRows(scoredRows(scored(10, alignedVec), scored(11, opposedVec)))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 42, Limit: 3, SimilarityThreshold: 0.5, FreshDays: 30,
	})
	require.NoError(t, err)

	assert.Nil(t, res.UserMBTI)
	assert.Equal(t, SourceColdStart, res.Metadata.Source)
	require.Len(t, res.Recommendations, 2)
	for i, item := range res.Recommendations {
		assert.Equal(t, defaultSimilarity, item.SimilarityScore)
		assert.Equal(t, i+1, item.Rank)
		assert.InDelta(t, 0.5, item.Probabilities["E"], 1e-9)
	}
	assert.Equal(t, 2, res.Metadata.RecommendationsCount)

	// No cursor advance and no audit row were expected.
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_RanksBySimilarity(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})
	now := time.Now()

	profileVec := models.MBTIVector{E: 0.6, I: 0.4, S: 0.5, N: 0.5, T: 0.7, F: 0.3, J: 0.5, P: 0.5}
	simAligned := mbti.CosineAxes(profileVec, alignedVec)
	simNeutral := mbti.CosineAxes(profileVec, neutralVec8)
	require.Greater(t, simAligned, simNeutral)
	require.Greater(t, simNeutral, mbti.CosineAxes(profileVec, opposedVec))

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT DISTINCT content_id FROM user_behaviors").
		WithArgs(int64(7), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"content_id"}).AddRow(int64(50)))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs([]int64{50}, 1000).
		WillReturnRows(scoredRows(scored(101, alignedVec), scored(102, opposedVec), scored(103, neutralVec8)))
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(int64(7), pgxmock.AnyArg(), pgxmock.AnyArg(), 2, 0.5, "", 3, (simAligned+simNeutral)/2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 2, SimilarityThreshold: 0.5, ExcludeViewed: true, FreshDays: 30,
	})
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, int64(101), res.Recommendations[0].ContentID)
	assert.Equal(t, int64(103), res.Recommendations[1].ContentID)
	assert.Equal(t, 1, res.Recommendations[0].Rank)
	assert.Equal(t, 2, res.Recommendations[1].Rank)
	assert.InDelta(t, simAligned, res.Recommendations[0].SimilarityScore, 1e-12)

	assert.Equal(t, "ENTJ", res.UserMBTI["type"])
	assert.Equal(t, SourceMBTIRanking, res.Metadata.Source)
	assert.False(t, res.Metadata.ThresholdRelaxed)
	assert.Equal(t, 3, res.Metadata.TotalCandidates)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_ThresholdRelaxed(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows(scored(101, alignedVec), scored(103, neutralVec8)))
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 2, SimilarityThreshold: 0.999, FreshDays: 30,
	})
	require.NoError(t, err)

	// Only one candidate clears 0.999, so the filter is abandoned and the
	// top two overall are served.
	assert.True(t, res.Metadata.ThresholdRelaxed)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, int64(101), res.Recommendations[0].ContentID)
	assert.Equal(t, int64(103), res.Recommendations[1].ContentID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_SecondPageIsDisjoint(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})
	now := time.Now()

	profileVec := models.MBTIVector{E: 0.6, I: 0.4, S: 0.5, N: 0.5, T: 0.7, F: 0.3, J: 0.5, P: 0.5}
	halfVec := models.MBTIVector{E: 0.4, I: 0.6, S: 0.5, N: 0.5, T: 0.4, F: 0.6, J: 0.5, P: 0.5}

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows(
			scored(101, alignedVec), scored(102, opposedVec),
			scored(103, neutralVec8), scored(104, halfVec),
		))
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Page: 2, Limit: 2, SimilarityThreshold: 0.1, FreshDays: 30,
	})
	require.NoError(t, err)

	// Full order by similarity: 101, 103, 104, 102. Page 2 takes the tail.
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, int64(104), res.Recommendations[0].ContentID)
	assert.Equal(t, int64(102), res.Recommendations[1].ContentID)
	assert.Equal(t, 3, res.Recommendations[0].Rank)
	assert.Equal(t, 4, res.Recommendations[1].Rank)
	assert.GreaterOrEqual(t,
		mbti.CosineAxes(profileVec, neutralVec8),
		res.Recommendations[0].SimilarityScore)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_AutoPageBeyondEndServesNothing(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})
	now := time.Now()

	// profileRows stores cursor page 2, so auto paging resolves to page 3.
	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows(scored(101, alignedVec), scored(103, neutralVec8)))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 2, SimilarityThreshold: 0.1, FreshDays: 30, AutoPage: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, res.Metadata.Page)
	assert.Empty(t, res.Recommendations)
	assert.Equal(t, 0, res.Metadata.RecommendationsCount)

	// Nothing served, so the cursor stays where it was.
	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_AttachesDetailSubset(t *testing.T) {
	articles := &fakeArticles{
		details: []models.Article{{ID: 101, Title: "深夜独处时的思考", State: "OnShelf"}},
	}
	rec, mockDB, _ := newTestRecommender(t, articles)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows(scored(101, alignedVec), scored(103, neutralVec8)))
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 2, SimilarityThreshold: 0.1, FreshDays: 30, IncludeContentDetails: true,
	})
	require.NoError(t, err)

	assert.True(t, res.Metadata.ContentDetailsAttached)
	require.Len(t, res.Recommendations, 2)
	require.NotNil(t, res.Recommendations[0].Content)
	assert.Equal(t, "深夜独处时的思考", res.Recommendations[0].Content["title"])
	assert.Nil(t, res.Recommendations[1].Content)
	assert.Equal(t, []int64{101, 103}, articles.batchIDs)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_ServesWithoutDetailsWhenUpstreamDown(t *testing.T) {
	// An empty detail set stands in for an upstream that 500s every call:
	// the client reports such items as missing rather than failing.
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows(scored(101, alignedVec), scored(103, neutralVec8)))
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 2, SimilarityThreshold: 0.1, FreshDays: 30, IncludeContentDetails: true,
	})
	require.NoError(t, err)

	assert.False(t, res.Metadata.ContentDetailsAttached)
	require.Len(t, res.Recommendations, 2)
	assert.Nil(t, res.Recommendations[0].Content)
	assert.Nil(t, res.Recommendations[1].Content)
	assert.Equal(t, int64(101), res.Recommendations[0].ContentID)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_UpstreamDirectWhenStoreEmpty(t *testing.T) {
	articles := &fakeArticles{
		feed: []models.Article{
			{ID: 501, Title: "新上架的文章", Recommendable: true},
			{ID: 502, Title: "审核中的文章", Recommendable: false},
			{ID: 503, Title: "另一篇新文章", Recommendable: true},
		},
		feedTotal: 57,
	}
	rec, mockDB, sched := newTestRecommender(t, articles)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows())
	mockDB.ExpectExec("UPDATE user_mbti_profiles").
		WithArgs(int64(7), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mockDB.ExpectExec("INSERT INTO recommendation_logs").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 10, SimilarityThreshold: 0.5, FreshDays: 30,
	})
	require.NoError(t, err)

	assert.Equal(t, SourceUpstreamDirect, res.Metadata.Source)
	require.Len(t, res.Recommendations, 2)
	assert.Equal(t, int64(501), res.Recommendations[0].ContentID)
	assert.Equal(t, int64(503), res.Recommendations[1].ContentID)
	assert.Equal(t, defaultSimilarity, res.Recommendations[0].SimilarityScore)
	assert.Equal(t, 57, res.Metadata.TotalCandidates)
	assert.Equal(t, []int64{501, 503}, sched.scoredIDs())

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_UpstreamDirectDegradesToEmpty(t *testing.T) {
	articles := &fakeArticles{feedErr: errors.New("connect refused")}
	rec, mockDB, _ := newTestRecommender(t, articles)
	now := time.Now()

	mockDB.ExpectQuery("SELECT (.+) FROM user_mbti_profiles WHERE user_id").
		WithArgs(int64(7)).
		WillReturnRows(profileRows(7, "ENTJ", 12, now))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs(1000).
		WillReturnRows(scoredRows())

	res, err := rec.Recommend(context.Background(), &models.RecommendationQuery{
		UserID: 7, Limit: 10, SimilarityThreshold: 0.5, FreshDays: 30,
	})
	require.NoError(t, err)

	assert.Empty(t, res.Recommendations)
	assert.Equal(t, 0, res.Metadata.RecommendationsCount)
	assert.Equal(t, SourceUpstreamDirect, res.Metadata.Source)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_SimilarContent(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})

	baseVec := models.MBTIVector{E: 0.9, I: 0.1, S: 0.1, N: 0.9, T: 0.9, F: 0.1, J: 0.1, P: 0.9}
	farVec := models.MBTIVector{E: 0.1, I: 0.9, S: 0.9, N: 0.1, T: 0.1, F: 0.9, J: 0.9, P: 0.1}
	require.Less(t, mbti.CosineAxes(baseVec, farVec), 0.3)

	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE content_id").
		WithArgs(int64(200)).
		WillReturnRows(scoredRows(scored(200, baseVec)))
	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE 1=1").
		WithArgs([]int64{200}, 1000).
		WillReturnRows(scoredRows(scored(201, baseVec), scored(202, farVec)))

	res, err := rec.SimilarContent(context.Background(), 200, 1, 10, false)
	require.NoError(t, err)

	assert.Equal(t, int64(200), res.ContentID)
	require.Len(t, res.Similar, 1)
	assert.Equal(t, int64(201), res.Similar[0].ContentID)
	assert.InDelta(t, 1.0, res.Similar[0].SimilarityScore, 1e-9)
	assert.InDelta(t, 0.0, res.Similar[0].MBTIDistance, 1e-9)
	assert.Equal(t, 1, res.Similar[0].Rank)
	assert.Equal(t, 2, res.Metadata.TotalCandidates)

	require.NoError(t, mockDB.ExpectationsWereMet())
}

func TestRecommender_SimilarContentUnknownBase(t *testing.T) {
	rec, mockDB, _ := newTestRecommender(t, &fakeArticles{})

	mockDB.ExpectQuery("SELECT (.+) FROM content_mbti_vectors WHERE content_id").
		WithArgs(int64(404)).
		WillReturnRows(pgxmock.NewRows([]string{"content_id"}))

	_, err := rec.SimilarContent(context.Background(), 404, 1, 10, false)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, mockDB.ExpectationsWereMet())
}
