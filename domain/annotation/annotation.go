package annotation

import (
	"fmt"

	"goannotate/domain/core"
	"goannotate/domain/feedback"
)

// SkippedCategory is the sentinel stored on a skipped categorical annotation.
const SkippedCategory = "skipped"

// Annotation is a scored/labeled/ranked judgment from the AI oracle or a
// human. The Kind field mirrors the evaluation spec kind; only the matching
// payload fields are set. A skipped annotation carries a neutral placeholder
// payload and must never be compared for agreement.
type Annotation struct {
	ID          core.AnnotationID `json:"annotation_id"`
	TestCaseID  core.TestCaseID   `json:"test_case_id"`
	AnnotatorID string            `json:"annotator_id"`
	Timestamp   core.Timestamp    `json:"timestamp"`
	Skip        bool              `json:"skip"`
	Comment     *string           `json:"comment,omitempty"`

	Kind feedback.SpecKind `json:"type"`

	// ranking
	ComparisonItems int   `json:"comparison_items,omitempty"`
	Rankings        []int `json:"rankings,omitempty"`

	// categorical
	Categories []string `json:"categories,omitempty"`
	Category   string   `json:"category,omitempty"`

	// continuous
	ScoreRange *feedback.ScoreRange `json:"score_range,omitempty"`
	Score      *float64             `json:"score,omitempty"`
}

// NewRankingAnnotation builds a ranking annotation.
func NewRankingAnnotation(testCaseID core.TestCaseID, annotatorID string, rankings []int, comparisonItems int) Annotation {
	return Annotation{
		ID:              core.AnnotationID(core.NewID()),
		TestCaseID:      testCaseID,
		AnnotatorID:     annotatorID,
		Timestamp:       core.Now(),
		Kind:            feedback.SpecRanking,
		ComparisonItems: comparisonItems,
		Rankings:        rankings,
	}
}

// NewCategoricalAnnotation builds a categorical annotation.
func NewCategoricalAnnotation(testCaseID core.TestCaseID, annotatorID string, category string, categories []string) Annotation {
	return Annotation{
		ID:          core.AnnotationID(core.NewID()),
		TestCaseID:  testCaseID,
		AnnotatorID: annotatorID,
		Timestamp:   core.Now(),
		Kind:        feedback.SpecCategorical,
		Categories:  categories,
		Category:    category,
	}
}

// NewContinuousAnnotation builds a continuous annotation.
func NewContinuousAnnotation(testCaseID core.TestCaseID, annotatorID string, score float64, scoreRange feedback.ScoreRange) Annotation {
	return Annotation{
		ID:          core.AnnotationID(core.NewID()),
		TestCaseID:  testCaseID,
		AnnotatorID: annotatorID,
		Timestamp:   core.Now(),
		Kind:        feedback.SpecContinuous,
		ScoreRange:  &scoreRange,
		Score:       &score,
	}
}

// NewSkippedAnnotation builds the neutral placeholder annotation for a skip
// verdict: identity permutation, zero score, or the sentinel category.
func NewSkippedAnnotation(testCaseID core.TestCaseID, annotatorID string, spec feedback.Spec, comment *string) Annotation {
	var ann Annotation
	switch spec.Kind {
	case feedback.SpecRanking:
		identity := make([]int, spec.ComparisonItems)
		for i := range identity {
			identity[i] = i
		}
		ann = NewRankingAnnotation(testCaseID, annotatorID, identity, spec.ComparisonItems)
	case feedback.SpecCategorical:
		ann = NewCategoricalAnnotation(testCaseID, annotatorID, SkippedCategory, spec.Categories)
	case feedback.SpecContinuous:
		ann = NewContinuousAnnotation(testCaseID, annotatorID, 0.0, *spec.ScoreRange)
	}
	ann.Skip = true
	ann.Comment = comment
	return ann
}

// ValidateForSpec checks that a non-skipped annotation's payload matches the
// spec it will be compared under. Ranking payloads must be an exact
// permutation of [0, comparison_items); anything else is a hard error.
func (a Annotation) ValidateForSpec(spec feedback.Spec) error {
	if a.Skip {
		return nil
	}
	if a.Kind != spec.Kind {
		return fmt.Errorf("%w: annotation kind %q does not match spec kind %q", core.ErrJudgmentFailure, a.Kind, spec.Kind)
	}
	switch spec.Kind {
	case feedback.SpecRanking:
		return ValidatePermutation(a.Rankings, spec.ComparisonItems)
	case feedback.SpecCategorical:
		for _, c := range spec.Categories {
			if a.Category == c {
				return nil
			}
		}
		return fmt.Errorf("%w: category %q not in allowed set %v", core.ErrJudgmentFailure, a.Category, spec.Categories)
	case feedback.SpecContinuous:
		if a.Score == nil {
			return fmt.Errorf("%w: continuous annotation missing score", core.ErrJudgmentFailure)
		}
		if *a.Score < spec.ScoreRange.Min() || *a.Score > spec.ScoreRange.Max() {
			return fmt.Errorf("%w: score %v outside range [%v, %v]", core.ErrJudgmentFailure, *a.Score, spec.ScoreRange.Min(), spec.ScoreRange.Max())
		}
	}
	return nil
}

// ValidatePermutation checks that rankings is exactly a permutation of
// [0, n). Malformed permutations are never silently corrected.
func ValidatePermutation(rankings []int, n int) error {
	if len(rankings) != n {
		return fmt.Errorf("%w: expected %d ranking entries, got %d", core.ErrJudgmentFailure, n, len(rankings))
	}
	seen := make([]bool, n)
	for _, r := range rankings {
		if r < 0 || r >= n {
			return fmt.Errorf("%w: ranking index %d outside [0, %d)", core.ErrJudgmentFailure, r, n)
		}
		if seen[r] {
			return fmt.Errorf("%w: duplicate ranking index %d", core.ErrJudgmentFailure, r)
		}
		seen[r] = true
	}
	return nil
}

// RankingsEqual reports exact equality of two rank permutations.
func RankingsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
