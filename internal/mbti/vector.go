// Package mbti implements the probability-vector algebra the rest of the
// service is built on: pair normalization, type labelling, cosine similarity
// and weighted blending of MBTI vectors.
package mbti

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/ruoshui-go/mbtirec/pkg/models"
)

// PairTolerance is the allowed deviation of an opposing pair's sum from 1.0.
const PairTolerance = 1e-2

// Normalize rescales each opposing pair so the two probabilities sum to 1.
// A pair summing to zero becomes 0.5/0.5. Idempotent.
func Normalize(v models.MBTIVector) models.MBTIVector {
	out := v
	for _, pair := range models.TraitPairs {
		a := v.Trait(pair.First)
		b := v.Trait(pair.Second)
		sum := a + b
		if sum > 0 {
			out.SetTrait(pair.First, a/sum)
			out.SetTrait(pair.Second, b/sum)
		} else {
			out.SetTrait(pair.First, 0.5)
			out.SetTrait(pair.Second, 0.5)
		}
	}
	return out
}

// IsNormalized reports whether every opposing pair sums to 1 within tolerance.
func IsNormalized(v models.MBTIVector) bool {
	for _, pair := range models.TraitPairs {
		if math.Abs(v.Trait(pair.First)+v.Trait(pair.Second)-1.0) >= PairTolerance {
			return false
		}
	}
	return true
}

// TypeLabel derives the 4-letter type from the dominant trait of each pair.
// Ties break toward the first trait of the pair (E, S, T, J).
func TypeLabel(v models.MBTIVector) string {
	label := make([]byte, 0, 4)
	for _, pair := range models.TraitPairs {
		if v.Trait(pair.First) >= v.Trait(pair.Second) {
			label = append(label, pair.First[0])
		} else {
			label = append(label, pair.Second[0])
		}
	}
	return string(label)
}

// Cosine computes the cosine similarity of two vectors over all eight
// components. Zero-norm inputs yield 0.
func Cosine(a, b models.MBTIVector) float64 {
	return cosine(a.Values(), b.Values())
}

// CosineAxes computes cosine similarity over the 4-axis projections of two
// vectors, the reduced form the recommender ranks with.
func CosineAxes(a, b models.MBTIVector) float64 {
	return cosine(AxisProjection(a), AxisProjection(b))
}

func cosine(a, b []float64) float64 {
	dot := floats.Dot(a, b)
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}

// AxisProjection reduces a vector to the four first-trait axes [E, S, T, J].
func AxisProjection(v models.MBTIVector) []float64 {
	return []float64{v.E, v.S, v.T, v.J}
}

// Blend computes the weighted mean of the given vectors component-wise and
// normalizes the result. Weights must be non-negative; missing weights count
// as 1. With no inputs, or an all-zero weight sum, the neutral vector is
// returned.
func Blend(vs []models.MBTIVector, ws []float64) models.MBTIVector {
	if len(vs) == 0 {
		return models.NeutralVector()
	}

	var totalWeight float64
	acc := make([]float64, len(models.TraitOrder))
	for i, v := range vs {
		w := 1.0
		if i < len(ws) {
			w = ws[i]
		}
		if w <= 0 {
			continue
		}
		totalWeight += w
		floats.AddScaled(acc, w, v.Values())
	}
	if totalWeight == 0 {
		return models.NeutralVector()
	}
	floats.Scale(1/totalWeight, acc)
	return Normalize(models.VectorFromValues(acc))
}

// Confidence returns the absolute probability gap of each pair, keyed by the
// pair's two letters (e.g. "EI").
func Confidence(v models.MBTIVector) map[string]float64 {
	out := make(map[string]float64, len(models.TraitPairs))
	for _, pair := range models.TraitPairs {
		out[pair.First+pair.Second] = math.Abs(v.Trait(pair.First) - v.Trait(pair.Second))
	}
	return out
}

// Clamp01 bounds a probability into [0,1].
func Clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
