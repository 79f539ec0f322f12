package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/services"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// modeDescriptions is the operator-facing copy for each scoring mode.
var modeDescriptions = map[string]string{
	services.ScoringModeAI:     "AI智能分析模式:调用大语言模型分析内容的MBTI倾向",
	services.ScoringModeRandom: "随机生成模式:基于内容ID生成可复现的MBTI向量",
	services.ScoringModeMixed:  "混合模式:每条内容随机选择AI分析或随机生成",
}

var availableModes = []string{
	services.ScoringModeAI,
	services.ScoringModeRandom,
	services.ScoringModeMixed,
}

type SystemHandler struct {
	logger *logrus.Logger
	store  *services.Store
	engine *services.ScoringEngine
	cfg    *config.Config
}

func NewSystemHandler(logger *logrus.Logger, store *services.Store, engine *services.ScoringEngine, cfg *config.Config) *SystemHandler {
	return &SystemHandler{
		logger: logger,
		store:  store,
		engine: engine,
		cfg:    cfg,
	}
}

// Info reports application identity, row counts, and the active scoring mode.
func (h *SystemHandler) Info(c *gin.Context) {
	stats, err := h.store.GetDatabaseStats(c.Request.Context())
	if err != nil {
		if clientGone(c) {
			return
		}
		h.logger.WithError(err).Error("Failed to collect database stats")
		respondError(c, http.StatusInternalServerError, "SYSTEM_INFO_FAILED", "Failed to collect system information")
		return
	}

	respondOK(c, gin.H{
		"app_name":       h.cfg.App.Name,
		"app_version":    h.cfg.App.Version,
		"api_version":    h.cfg.App.APIVersion,
		"database_stats": stats,
		"scoring_mode":   h.engine.Mode(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// GetScoringMode reports the active scoring mode.
func (h *SystemHandler) GetScoringMode(c *gin.Context) {
	mode := h.engine.Mode()
	respondOK(c, models.ScoringModeResult{
		CurrentMode:    mode,
		Description:    modeDescriptions[mode],
		AvailableModes: availableModes,
	})
}

// SetScoringMode switches the scoring mode. The mode arrives in the JSON body
// or, for convenience, as a query parameter.
func (h *SystemHandler) SetScoringMode(c *gin.Context) {
	var req models.ScoringModeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Mode == "" {
		req.Mode = c.Query("mode")
	}
	if req.Mode == "" {
		respondError(c, http.StatusBadRequest, "MISSING_MODE", "mode is required (body or query)")
		return
	}

	previous, err := h.engine.SetMode(req.Mode)
	if err != nil {
		if errors.Is(err, services.ErrInvalidMode) {
			respondError(c, http.StatusBadRequest, "INVALID_MODE", "mode must be one of: ai, random, mixed")
			return
		}
		h.logger.WithError(err).Error("Failed to switch scoring mode")
		respondError(c, http.StatusInternalServerError, "MODE_SWITCH_FAILED", "Failed to switch scoring mode")
		return
	}

	mode := h.engine.Mode()
	respondMessage(c, models.ScoringModeResult{
		CurrentMode:    mode,
		PreviousMode:   previous,
		Description:    modeDescriptions[mode],
		AvailableModes: availableModes,
	}, "评分模式切换成功")
}
