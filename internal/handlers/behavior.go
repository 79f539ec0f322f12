package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

type BehaviorHandler struct {
	logger    *logrus.Logger
	behavior  *services.BehaviorService
	validator *validator.Validate
}

func NewBehaviorHandler(logger *logrus.Logger, behavior *services.BehaviorService) *BehaviorHandler {
	return &BehaviorHandler{
		logger:    logger,
		behavior:  behavior,
		validator: validator.New(),
	}
}

// Record ingests one behavior event. The raw body has already passed the
// JSON-Schema gate in the middleware chain.
func (h *BehaviorHandler) Record(c *gin.Context) {
	var req models.BehaviorRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
		return
	}

	result, err := h.behavior.Record(c.Request.Context(), &req)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id":    req.UserID,
			"content_id": req.ContentID,
			"action":     req.Action,
		}).Error("Failed to record behavior")
		respondError(c, http.StatusInternalServerError, "BEHAVIOR_RECORD_FAILED", "Failed to record behavior")
		return
	}

	respondMessage(c, result, "行为记录成功")
}

// History lists a user's behaviors, newest first, with optional action and
// date-range filters.
func (h *BehaviorHandler) History(c *gin.Context) {
	userID, ok := pathID(c, "user_id", "INVALID_USER_ID")
	if !ok {
		return
	}

	q := &models.BehaviorHistoryQuery{
		Action:   c.Query("action"),
		Page:     queryInt(c, "page", 1, 1, 1000000),
		PageSize: queryInt(c, "page_size", 20, 1, 100),
	}
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_START_DATE", "start_date must be RFC 3339")
			return
		}
		q.StartDate = &t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "INVALID_END_DATE", "end_date must be RFC 3339")
			return
		}
		q.EndDate = &t
	}

	result, err := h.behavior.History(c.Request.Context(), userID, q)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to load behavior history")
		respondError(c, http.StatusInternalServerError, "BEHAVIOR_HISTORY_FAILED", "Failed to load behavior history")
		return
	}

	respondOK(c, result)
}

// Stats aggregates a user's behavior over the trailing window.
func (h *BehaviorHandler) Stats(c *gin.Context) {
	userID, ok := pathID(c, "user_id", "INVALID_USER_ID")
	if !ok {
		return
	}
	days := queryInt(c, "days", 30, 1, 365)

	result, err := h.behavior.Stats(c.Request.Context(), userID, days)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to compute behavior stats")
		respondError(c, http.StatusInternalServerError, "BEHAVIOR_STATS_FAILED", "Failed to compute behavior stats")
		return
	}

	respondOK(c, result)
}
