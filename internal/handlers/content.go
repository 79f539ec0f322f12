package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/internal/upstream"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// contentSource tags every proxied payload with where it came from.
const contentSource = "sohuglobal"

type ContentHandler struct {
	logger    *logrus.Logger
	upstream  *upstream.Client
	store     *services.Store
	validator *validator.Validate
}

func NewContentHandler(logger *logrus.Logger, upstreamClient *upstream.Client, store *services.Store) *ContentHandler {
	return &ContentHandler{
		logger:    logger,
		upstream:  upstreamClient,
		store:     store,
		validator: validator.New(),
	}
}

// GetDetail proxies one content item from the upstream platform, optionally
// enriched with the stored MBTI vector. A missing vector never fails the
// proxy; the enrichment is just null.
func (h *ContentHandler) GetDetail(c *gin.Context) {
	contentID, ok := pathID(c, "content_id", "INVALID_CONTENT_ID")
	if !ok {
		return
	}

	contentType := c.DefaultQuery("content_type", "article")
	switch contentType {
	case "article", "video", "product":
	default:
		respondError(c, http.StatusBadRequest, "INVALID_CONTENT_TYPE", "content_type must be one of: article, video, product")
		return
	}
	includeMBTI := queryBool(c, "include_mbti", true)

	article, err := h.upstream.GetArticle(c.Request.Context(), contentType, contentID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			respondError(c, http.StatusNotFound, "CONTENT_NOT_FOUND", "Content not found on the upstream platform")
			return
		}
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("content_id", contentID).Error("Upstream content fetch failed")
		respondError(c, http.StatusInternalServerError, "UPSTREAM_ERROR", "Failed to fetch content from the upstream platform")
		return
	}

	payload := article.Map()
	payload["content_type"] = contentType
	payload["source"] = contentSource
	if includeMBTI {
		payload["mbti_analysis"] = h.lookupAnalysis(c, contentID)
	}

	respondMessage(c, payload, "获取内容成功")
}

// GetBatch proxies up to 100 content items in one call. Ids the upstream
// cannot serve are reported in missing_ids instead of failing the batch.
func (h *ContentHandler) GetBatch(c *gin.Context) {
	var req models.ContentBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
		return
	}
	includeMBTI := req.IncludeMBTI == nil || *req.IncludeMBTI

	articles, missing, err := h.upstream.GetArticlesBatch(c.Request.Context(), "article", req.ContentIDs)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).Error("Upstream batch fetch aborted")
		respondError(c, http.StatusInternalServerError, "UPSTREAM_ERROR", "Failed to fetch content from the upstream platform")
		return
	}

	var vectors map[int64]*models.ContentVector
	if includeMBTI && len(articles) > 0 {
		ids := make([]int64, 0, len(articles))
		for i := range articles {
			ids = append(ids, articles[i].ID)
		}
		vectors, err = h.store.GetContentVectors(c.Request.Context(), ids)
		if err != nil {
			h.logger.WithError(err).Warn("Vector lookup failed, serving batch without MBTI analysis")
			vectors = nil
		}
	}

	contents := make([]map[string]interface{}, 0, len(articles))
	for i := range articles {
		payload := articles[i].Map()
		payload["source"] = contentSource
		if includeMBTI {
			payload["mbti_analysis"] = vectorAnalysis(vectors[articles[i].ID])
		}
		contents = append(contents, payload)
	}
	if missing == nil {
		missing = make([]int64, 0)
	}

	respondMessage(c, gin.H{
		"contents":    contents,
		"missing_ids": missing,
	}, "批量获取完成")
}

// lookupAnalysis fetches the stored vector for one item, degrading to null on
// any store trouble.
func (h *ContentHandler) lookupAnalysis(c *gin.Context, contentID int64) map[string]interface{} {
	cv, err := h.store.GetContentVector(c.Request.Context(), contentID)
	if err != nil {
		if !errors.Is(err, services.ErrNotFound) {
			h.logger.WithError(err).WithField("content_id", contentID).Warn("Vector lookup failed")
		}
		return nil
	}
	return vectorAnalysis(cv)
}

// vectorAnalysis renders a stored vector as the mbti_analysis sub-object.
func vectorAnalysis(cv *models.ContentVector) map[string]interface{} {
	if cv == nil {
		return nil
	}
	return map[string]interface{}{
		"probabilities":  cv.Vector.ToMap(),
		"type":           cv.MBTIType,
		"scoring_method": cv.ScoringMethod,
	}
}
