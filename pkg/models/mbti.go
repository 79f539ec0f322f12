package models

import "time"

// Trait order is fixed: every []float64 view of a vector uses this layout.
const (
	TraitE = "E"
	TraitI = "I"
	TraitS = "S"
	TraitN = "N"
	TraitT = "T"
	TraitF = "F"
	TraitJ = "J"
	TraitP = "P"
)

// TraitOrder is the canonical component order of an MBTIVector.
var TraitOrder = []string{TraitE, TraitI, TraitS, TraitN, TraitT, TraitF, TraitJ, TraitP}

// TraitPair is one of the four opposing MBTI dimensions. First and Second
// probabilities sum to 1.0 within tolerance.
type TraitPair struct {
	First  string
	Second string
}

// TraitPairs lists the four dimensions in canonical order. The First trait of
// each pair is the deterministic tie-break winner.
var TraitPairs = []TraitPair{
	{TraitE, TraitI},
	{TraitS, TraitN},
	{TraitT, TraitF},
	{TraitJ, TraitP},
}

// MBTIVector is a point in the 8-dimensional MBTI probability space. Each
// component lies in [0,1] and opposing components sum to 1.0 ± 1e-2.
type MBTIVector struct {
	E float64 `json:"E" db:"prob_e"`
	I float64 `json:"I" db:"prob_i"`
	S float64 `json:"S" db:"prob_s"`
	N float64 `json:"N" db:"prob_n"`
	T float64 `json:"T" db:"prob_t"`
	F float64 `json:"F" db:"prob_f"`
	J float64 `json:"J" db:"prob_j"`
	P float64 `json:"P" db:"prob_p"`
}

// NeutralVector is the 0.5-everywhere vector used wherever no information
// exists yet (cold start, parse failures, brand-new profiles).
func NeutralVector() MBTIVector {
	return MBTIVector{E: 0.5, I: 0.5, S: 0.5, N: 0.5, T: 0.5, F: 0.5, J: 0.5, P: 0.5}
}

// Values returns the components in TraitOrder.
func (v MBTIVector) Values() []float64 {
	return []float64{v.E, v.I, v.S, v.N, v.T, v.F, v.J, v.P}
}

// VectorFromValues builds a vector from components in TraitOrder. Short
// slices leave the remaining components zero.
func VectorFromValues(vals []float64) MBTIVector {
	var v MBTIVector
	dst := []*float64{&v.E, &v.I, &v.S, &v.N, &v.T, &v.F, &v.J, &v.P}
	for i := 0; i < len(vals) && i < len(dst); i++ {
		*dst[i] = vals[i]
	}
	return v
}

// Trait returns the probability of a single trait; unknown names return 0.
func (v MBTIVector) Trait(name string) float64 {
	switch name {
	case TraitE:
		return v.E
	case TraitI:
		return v.I
	case TraitS:
		return v.S
	case TraitN:
		return v.N
	case TraitT:
		return v.T
	case TraitF:
		return v.F
	case TraitJ:
		return v.J
	case TraitP:
		return v.P
	}
	return 0
}

// SetTrait assigns the probability of a single trait; unknown names are ignored.
func (v *MBTIVector) SetTrait(name string, value float64) {
	switch name {
	case TraitE:
		v.E = value
	case TraitI:
		v.I = value
	case TraitS:
		v.S = value
	case TraitN:
		v.N = value
	case TraitT:
		v.T = value
	case TraitF:
		v.F = value
	case TraitJ:
		v.J = value
	case TraitP:
		v.P = value
	}
}

// ToMap renders the vector keyed by trait letter, the shape the API exposes.
func (v MBTIVector) ToMap() map[string]float64 {
	m := make(map[string]float64, 8)
	for _, t := range TraitOrder {
		m[t] = v.Trait(t)
	}
	return m
}

// VectorFromMap builds a vector from a trait-keyed map; missing traits stay 0.
func VectorFromMap(m map[string]float64) MBTIVector {
	var v MBTIVector
	for t, val := range m {
		v.SetTrait(t, val)
	}
	return v
}

// UserProfile is a user's position in MBTI space plus the bookkeeping that
// drives threshold-triggered re-derivation and recommendation paging.
type UserProfile struct {
	UserID                    int64              `json:"user_id" db:"user_id"`
	Vector                    MBTIVector         `json:"probabilities"`
	MBTIType                  string             `json:"mbti_type" db:"mbti_type"`
	Confidence                map[string]float64 `json:"confidence"`
	TotalBehaviorsAnalyzed    int                `json:"total_behaviors_analyzed" db:"total_behaviors_analyzed"`
	BehaviorsSinceLastUpdate  int                `json:"behaviors_since_last_update" db:"behaviors_since_last_update"`
	CurrentRecommendationPage int                `json:"current_recommendation_page" db:"current_recommendation_page"`
	LastRecommendationTime    *time.Time         `json:"last_recommendation_time,omitempty" db:"last_recommendation_time"`
	LastUpdated               time.Time          `json:"last_updated" db:"last_updated"`
	CreatedAt                 time.Time          `json:"created_at" db:"created_at"`
}

// HasType reports whether the profile has been derived at least once.
func (p *UserProfile) HasType() bool {
	return p != nil && p.MBTIType != ""
}

// ContentVector is a content item's position in MBTI space plus denormalized
// metadata mirrored from the upstream platform.
type ContentVector struct {
	ContentID     int64      `json:"content_id" db:"content_id"`
	Vector        MBTIVector `json:"probabilities"`
	MBTIType      string     `json:"mbti_type" db:"mbti_type"`
	Title         string     `json:"title,omitempty" db:"title"`
	CoverImage    string     `json:"cover_image,omitempty" db:"cover_image"`
	Author        string     `json:"author,omitempty" db:"author"`
	ContentType   string     `json:"content_type,omitempty" db:"content_type"`
	ScoringMethod string     `json:"scoring_method,omitempty" db:"scoring_method"`
	PublishTime   *time.Time `json:"publish_time,omitempty" db:"publish_time"`
	ScoredAt      time.Time  `json:"scored_at" db:"scored_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}
