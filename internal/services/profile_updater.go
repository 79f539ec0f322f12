package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ruoshui-go/mbtirec/internal/config"
	"github.com/ruoshui-go/mbtirec/internal/mbti"
	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// ProfileUpdater re-derives user profiles from their recent behaviors and
// drifts content vectors toward the users that touched them.
type ProfileUpdater struct {
	store  *Store
	engine *ScoringEngine
	cfg    *config.MBTIConfig
	logger *logrus.Logger
}

func NewProfileUpdater(store *Store, engine *ScoringEngine, cfg *config.MBTIConfig, logger *logrus.Logger) *ProfileUpdater {
	return &ProfileUpdater{store: store, engine: engine, cfg: cfg, logger: logger}
}

// UpdateUserFromBehaviors re-derives the user's vector from the weighted mean
// of recently touched content, blended 1:1 with the existing position once a
// type label exists. Unless force is set, the derivation only runs when the
// behavior counter has reached the update threshold. analyzeLastN caps how
// many behaviors feed the derivation; 0 means the configured default. A lost
// optimistic write is retried once from a fresh snapshot before ErrConflict
// surfaces.
func (u *ProfileUpdater) UpdateUserFromBehaviors(ctx context.Context, userID int64, force bool, analyzeLastN int) (*models.MBTIUpdateResult, error) {
	res, err := u.deriveUserProfile(ctx, userID, force, analyzeLastN)
	if errors.Is(err, ErrConflict) {
		u.logger.WithField("user_id", userID).Info("profile update raced with a concurrent writer, retrying")
		res, err = u.deriveUserProfile(ctx, userID, force, analyzeLastN)
	}
	return res, err
}

func (u *ProfileUpdater) deriveUserProfile(ctx context.Context, userID int64, force bool, analyzeLastN int) (*models.MBTIUpdateResult, error) {
	profile, err := u.store.GetOrCreateProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	if !force && profile.BehaviorsSinceLastUpdate < u.cfg.UserUpdateThreshold {
		return nil, ErrNotDue
	}
	// A user who accumulated a threshold's worth of behaviors without ever
	// deriving a type gets the full derivation regardless of caller intent.
	if !profile.HasType() && profile.BehaviorsSinceLastUpdate >= u.cfg.UserUpdateThreshold {
		force = true
	}

	limit := analyzeLastN
	if limit <= 0 {
		limit = u.cfg.RecentBehaviorLimit
	}
	behaviors, err := u.store.GetRecentBehaviors(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(behaviors) < u.cfg.MinBehaviors {
		return nil, ErrInsufficientData
	}

	contentWeights := make(map[int64]float64)
	order := make([]int64, 0, len(behaviors))
	for _, b := range behaviors {
		if _, seen := contentWeights[b.ContentID]; !seen {
			order = append(order, b.ContentID)
		}
		contentWeights[b.ContentID] += b.Weight
	}

	vectors := make([]models.MBTIVector, 0, len(order))
	weights := make([]float64, 0, len(order))
	for _, contentID := range order {
		sr, err := u.engine.EnsureScored(ctx, contentID)
		if err != nil {
			u.logger.WithError(err).WithField("content_id", contentID).Warn("scoring content for profile update failed, substituting neutral vector")
			vectors = append(vectors, models.NeutralVector())
		} else {
			vectors = append(vectors, sr.Vector)
		}
		weights = append(weights, contentWeights[contentID])
	}

	final := mbti.Blend(vectors, weights)
	if profile.HasType() {
		final = mbti.Blend([]models.MBTIVector{profile.Vector, final}, []float64{1, 1})
	}

	if err := u.store.UpdateProfileVector(ctx, userID, final, len(behaviors), profile.LastUpdated); err != nil {
		return nil, err
	}

	label := mbti.TypeLabel(final)
	u.logger.WithFields(logrus.Fields{
		"user_id":            userID,
		"mbti_type":          label,
		"previous_type":      profile.MBTIType,
		"behaviors_analyzed": len(behaviors),
		"contents_analyzed":  len(order),
		"forced":             force,
	}).Info("user MBTI profile re-derived")

	return &models.MBTIUpdateResult{
		UserID:            userID,
		UpdatePerformed:   true,
		BehaviorsAnalyzed: len(behaviors),
		MBTIType:          label,
		Probabilities:     final.ToMap(),
	}, nil
}

// UpdateContentFromUsers drifts a content vector toward the average of the
// labeled users who interacted with it. The current position keeps half the
// weight so one wave of atypical interactions cannot reset it. Unless force
// is set, the drift only runs once enough distinct users touched the item.
func (u *ProfileUpdater) UpdateContentFromUsers(ctx context.Context, contentID int64, force bool) (*models.ContentVector, error) {
	count, err := u.store.CountDistinctToucherUsers(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if !force && count < u.cfg.ContentUpdateThreshold {
		return nil, ErrNotDue
	}

	userIDs, err := u.store.GetDistinctToucherUsers(ctx, contentID)
	if err != nil {
		return nil, err
	}
	userVectors, err := u.store.GetLabeledUserVectors(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	if len(userVectors) == 0 {
		return nil, ErrNoLabeledUsers
	}

	usersAvg := mbti.Blend(userVectors, nil)

	// The row must exist before it can be locked and drifted.
	if _, err := u.engine.EnsureScored(ctx, contentID); err != nil {
		return nil, err
	}

	tx, err := u.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := u.store.GetContentVectorForUpdate(ctx, tx, contentID)
	if err != nil {
		return nil, err
	}

	current.Vector = mbti.Blend([]models.MBTIVector{current.Vector, usersAvg}, []float64{1, 1})
	if err := u.store.UpsertContentVector(ctx, tx, current); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	u.logger.WithFields(logrus.Fields{
		"content_id":    contentID,
		"mbti_type":     current.MBTIType,
		"labeled_users": len(userVectors),
	}).Info("content vector drifted toward its audience")

	return current, nil
}
