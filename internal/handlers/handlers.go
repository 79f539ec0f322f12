package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/services"
)

type Handlers struct {
	Health         *HealthHandler
	System         *SystemHandler
	Behavior       *BehaviorHandler
	Recommendation *RecommendationHandler
	Profile        *ProfileHandler
	Content        *ContentHandler
	Admin          *AdminHandler
}

func New(logger *logrus.Logger, services *services.Services, cfg *config.Config) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, services.Health, cfg),
		System:         NewSystemHandler(logger, services.Store, services.Scoring, cfg),
		Behavior:       NewBehaviorHandler(logger, services.Behavior),
		Recommendation: NewRecommendationHandler(logger, services.Recommender, &cfg.Recommend),
		Profile:        NewProfileHandler(logger, services.Store, services.Updater, &cfg.MBTI),
		Content:        NewContentHandler(logger, services.Upstream, services.Store),
		Admin:          NewAdminHandler(logger, services.Scoring, services.Store, services.Workers),
	}
}
