package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

type AdminHandler struct {
	logger    *logrus.Logger
	engine    *services.ScoringEngine
	store     *services.Store
	workers   *services.WorkerPool
	validator *validator.Validate
}

func NewAdminHandler(logger *logrus.Logger, engine *services.ScoringEngine, store *services.Store, workers *services.WorkerPool) *AdminHandler {
	return &AdminHandler{
		logger:    logger,
		engine:    engine,
		store:     store,
		workers:   workers,
		validator: validator.New(),
	}
}

// Evaluate scores one content item synchronously under the active mode.
// Already-scored items come back from storage without a fresh evaluation.
// The body may carry text overrides for items the upstream cannot serve.
func (h *AdminHandler) Evaluate(c *gin.Context) {
	contentID, ok := pathID(c, "content_id", "INVALID_CONTENT_ID")
	if !ok {
		return
	}

	var req models.EvaluateContentRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
		return
	}

	result, err := h.engine.Score(c.Request.Context(), models.ScoringItem{
		ContentID: contentID,
		Title:     req.Title,
		Text:      req.Content,
	})
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("content_id", contentID).Error("Content evaluation failed")
		respondError(c, http.StatusInternalServerError, "EVALUATION_FAILED", "Failed to evaluate content")
		return
	}

	status := "evaluation_completed"
	method := result.ScoringMethod
	message := "MBTI评价完成"
	if result.FromCache {
		status = "already_evaluated"
		method = "previously_evaluated"
		message = "内容已评价"
	}

	analysis := gin.H{
		"probabilities": result.Vector.ToMap(),
		"type":          result.MBTIType,
	}
	if result.ScoringFailed {
		analysis["scoring_failed"] = true
	}

	respondMessage(c, gin.H{
		"content_id":     contentID,
		"status":         status,
		"scoring_method": method,
		"scoring_mode":   h.engine.Mode(),
		"mbti_analysis":  analysis,
	}, message)
}

// BatchEvaluate queues unscored ids for background evaluation and answers
// immediately with the split between stored and pending.
func (h *AdminHandler) BatchEvaluate(c *gin.Context) {
	var req models.BatchEvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
		return
	}

	stored, err := h.store.GetContentVectors(c.Request.Context(), req.ContentIDs)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).Error("Vector lookup failed for batch evaluation")
		respondError(c, http.StatusInternalServerError, "EVALUATION_FAILED", "Failed to inspect stored vectors")
		return
	}

	pending := make([]int64, 0, len(req.ContentIDs))
	for _, id := range req.ContentIDs {
		if _, ok := stored[id]; ok {
			continue
		}
		pending = append(pending, id)
		h.workers.ScheduleScoreContent(id)
	}

	respondMessage(c, models.BatchEvaluateResult{
		TotalRequested:    len(req.ContentIDs),
		AlreadyEvaluated:  len(req.ContentIDs) - len(pending),
		PendingEvaluation: len(pending),
		PendingIDs:        pending,
	}, "批量评价任务已提交")
}
