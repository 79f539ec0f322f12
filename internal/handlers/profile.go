package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

type ProfileHandler struct {
	logger    *logrus.Logger
	store     *services.Store
	updater   *services.ProfileUpdater
	cfg       *config.MBTIConfig
	validator *validator.Validate
}

func NewProfileHandler(logger *logrus.Logger, store *services.Store, updater *services.ProfileUpdater, cfg *config.MBTIConfig) *ProfileHandler {
	return &ProfileHandler{
		logger:    logger,
		store:     store,
		updater:   updater,
		cfg:       cfg,
		validator: validator.New(),
	}
}

// Get returns the user's MBTI profile, creating a neutral one on first sight.
// The display label is always derived from the stored vector, so a user who
// was never analyzed still sees the type their neutral position implies.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := pathID(c, "user_id", "INVALID_USER_ID")
	if !ok {
		return
	}

	profile, err := h.store.GetOrCreateProfile(c.Request.Context(), userID)
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to load MBTI profile")
		respondError(c, http.StatusInternalServerError, "PROFILE_LOAD_FAILED", "Failed to load MBTI profile")
		return
	}

	label := mbti.TypeLabel(profile.Vector)
	nextIn := h.cfg.UserUpdateThreshold - profile.BehaviorsSinceLastUpdate
	if nextIn < 0 {
		nextIn = 0
	}

	respondMessage(c, models.MBTIProfileResult{
		UserID:                    profile.UserID,
		MBTIType:                  label,
		MBTIDescription:           mbti.TypeDescription(label),
		Probabilities:             profile.Vector.ToMap(),
		Confidence:                mbti.Confidence(profile.Vector),
		TotalBehaviorsAnalyzed:    profile.TotalBehaviorsAnalyzed,
		BehaviorsSinceLastUpdate:  profile.BehaviorsSinceLastUpdate,
		NextUpdateIn:              nextIn,
		CurrentRecommendationPage: profile.CurrentRecommendationPage,
		LastUpdated:               profile.LastUpdated.UTC().Format(time.RFC3339),
		CreatedAt:                 profile.CreatedAt.UTC().Format(time.RFC3339),
	}, "获取MBTI档案成功")
}

// Update re-derives the user's vector from recent behaviors. Outcomes that
// skip the derivation still answer 200 with a reason; only real failures
// surface as errors.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := pathID(c, "user_id", "INVALID_USER_ID")
	if !ok {
		return
	}

	// The body is optional; an absent body means a plain threshold-gated run.
	var req models.MBTIUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondError(c, http.StatusBadRequest, "INVALID_REQUEST_BODY", "Invalid request body format")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		respondErrorDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Request validation failed", err.Error())
		return
	}

	result, err := h.updater.UpdateUserFromBehaviors(c.Request.Context(), userID, req.ForceUpdate, req.AnalyzeLastNBehavior)
	if err != nil {
		if reason, skipped := updateSkipReason(err); skipped {
			respondMessage(c, models.MBTIUpdateResult{
				UserID:          userID,
				UpdatePerformed: false,
				Reason:          reason,
			}, "MBTI档案无需更新")
			return
		}
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to update MBTI profile")
		respondError(c, http.StatusInternalServerError, "PROFILE_UPDATE_FAILED", "Failed to update MBTI profile")
		return
	}

	respondMessage(c, result, "MBTI档案更新完成")
}

// updateSkipReason maps the updater's skip outcomes onto wire reasons.
func updateSkipReason(err error) (string, bool) {
	switch {
	case errors.Is(err, services.ErrNotDue):
		return "not_due", true
	case errors.Is(err, services.ErrInsufficientData):
		return "insufficient_data", true
	case errors.Is(err, services.ErrConflict):
		return "conflict", true
	default:
		return "", false
	}
}
