package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

var validContentTypes = map[string]bool{
	"article": true,
	"video":   true,
	"product": true,
	"all":     true,
}

type RecommendationHandler struct {
	logger      *logrus.Logger
	recommender *services.Recommender
	cfg         *config.RecommendConfig
}

func NewRecommendationHandler(logger *logrus.Logger, recommender *services.Recommender, cfg *config.RecommendConfig) *RecommendationHandler {
	return &RecommendationHandler{
		logger:      logger,
		recommender: recommender,
		cfg:         cfg,
	}
}

// Get serves the personalized feed. When the caller names no page, the
// user's stored cursor advances one page per call.
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := pathID(c, "user_id", "INVALID_USER_ID")
	if !ok {
		return
	}

	contentType := c.DefaultQuery("content_type", "article")
	if !validContentTypes[contentType] {
		respondError(c, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "content_type must be one of: article, video, product, all")
		return
	}

	q := &models.RecommendationQuery{
		UserID:                userID,
		Limit:                 queryInt(c, "limit", h.cfg.DefaultLimit, 1, 100),
		ContentType:           contentType,
		SimilarityThreshold:   queryFloat(c, "similarity_threshold", h.cfg.SimilarityThreshold, 0.1, 0.9),
		ExcludeViewed:         queryBool(c, "exclude_viewed", true),
		FreshDays:             queryInt(c, "fresh_days", h.cfg.FreshDays, 1, 365),
		IncludeContentDetails: queryBool(c, "include_content_details", true),
	}
	if c.Query("page") == "" {
		q.AutoPage = true
	} else {
		q.Page = queryInt(c, "page", 1, 1, 1000000)
	}

	result, err := h.recommender.Recommend(c.Request.Context(), q)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		respondError(c, http.StatusInternalServerError, "RECOMMENDATION_FAILED", "Failed to generate recommendations")
		return
	}

	respondMessage(c, result, "推荐生成成功")
}

// GetSimilar lists the stored vectors closest to one content item.
func (h *RecommendationHandler) GetSimilar(c *gin.Context) {
	contentID, ok := pathID(c, "content_id", "INVALID_CONTENT_ID")
	if !ok {
		return
	}

	page := queryInt(c, "page", 1, 1, 1000000)
	limit := queryInt(c, "limit", 10, 1, 50)
	includeDetails := queryBool(c, "include_content_details", false)

	result, err := h.recommender.SimilarContent(c.Request.Context(), contentID, page, limit, includeDetails)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			respondError(c, http.StatusNotFound, "CONTENT_NOT_SCORED", "Content has no stored MBTI vector")
			return
		}
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("content_id", contentID).Error("Failed to find similar content")
		respondError(c, http.StatusInternalServerError, "SIMILAR_CONTENT_FAILED", "Failed to find similar content")
		return
	}

	respondOK(c, result)
}
