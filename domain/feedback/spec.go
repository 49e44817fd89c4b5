package feedback

import (
	"fmt"

	"goannotate/domain/core"
)

// SpecKind discriminates the three evaluation spec shapes.
type SpecKind string

const (
	SpecRanking     SpecKind = "ranking"
	SpecCategorical SpecKind = "categorical"
	SpecContinuous  SpecKind = "continuous"
)

// ScoreRange is an inclusive (min, max) scoring interval.
type ScoreRange [2]float64

// Min returns the lower bound.
func (r ScoreRange) Min() float64 { return r[0] }

// Max returns the upper bound.
func (r ScoreRange) Max() float64 { return r[1] }

// Width returns max - min.
func (r ScoreRange) Width() float64 { return r[1] - r[0] }

// Spec is the tagged union of evaluation kinds: ranking (preference over
// ComparisonItems candidates), categorical (labeling from Categories), or
// continuous (a score inside ScoreRange).
type Spec struct {
	Kind            SpecKind    `json:"type"`
	ComparisonItems int         `json:"comparison_items,omitempty"`
	Categories      []string    `json:"categories,omitempty"`
	ScoreRange      *ScoreRange `json:"score_range,omitempty"`
}

// RankingSpec builds a ranking spec over n candidates.
func RankingSpec(n int) Spec {
	return Spec{Kind: SpecRanking, ComparisonItems: n}
}

// CategoricalSpec builds a categorical spec over the given label set.
func CategoricalSpec(categories ...string) Spec {
	return Spec{Kind: SpecCategorical, Categories: categories}
}

// ContinuousSpec builds a continuous spec over [min, max].
func ContinuousSpec(min, max float64) Spec {
	r := ScoreRange{min, max}
	return Spec{Kind: SpecContinuous, ScoreRange: &r}
}

// Validate checks the spec's internal consistency.
func (s Spec) Validate() error {
	switch s.Kind {
	case SpecRanking:
		if s.ComparisonItems < 2 {
			return fmt.Errorf("%w: ranking requires at least 2 comparison items, got %d", core.ErrSpecInvalid, s.ComparisonItems)
		}
	case SpecCategorical:
		if len(s.Categories) == 0 {
			return fmt.Errorf("%w: categorical requires at least one category", core.ErrSpecInvalid)
		}
		seen := make(map[string]bool, len(s.Categories))
		for _, c := range s.Categories {
			if seen[c] {
				return fmt.Errorf("%w: duplicate category %q", core.ErrSpecInvalid, c)
			}
			seen[c] = true
		}
	case SpecContinuous:
		if s.ScoreRange == nil {
			return fmt.Errorf("%w: continuous requires a score range", core.ErrSpecInvalid)
		}
		if s.ScoreRange.Min() >= s.ScoreRange.Max() {
			return fmt.Errorf("%w: score range min %v must be below max %v", core.ErrSpecInvalid, s.ScoreRange.Min(), s.ScoreRange.Max())
		}
	default:
		return fmt.Errorf("%w: unknown spec kind %q", core.ErrSpecInvalid, s.Kind)
	}
	return nil
}
