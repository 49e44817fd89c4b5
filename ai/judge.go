package ai

import (
	"context"
	"fmt"
	"log"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/feedback"
)

// judgeResponse covers all three spec shapes; only the fields matching the
// test case's spec are read.
type judgeResponse struct {
	Skip       bool     `json:"skip"`
	Comment    string   `json:"comment"`
	Category   string   `json:"category,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Rankings   []int    `json:"rankings,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Reasoning  string   `json:"reasoning,omitempty"`
}

// Judge produces AI annotations for summarized test cases.
type Judge struct {
	client      *StructuredClient[judgeResponse]
	annotatorID string
}

// NewJudge creates a judge backed by the given LLM config. The model name
// doubles as the annotator id on produced annotations.
func NewJudge(config Config) *Judge {
	return &Judge{
		client:      NewStructuredClient[judgeResponse](config),
		annotatorID: config.Model,
	}
}

// Judge renders the rubric against the case's judge inputs, calls the model,
// and validates the verdict against the spec. Malformed ranking permutations
// are hard errors, never silently corrected. A skip verdict yields the
// placeholder annotation.
func (j *Judge) Judge(ctx context.Context, tc *annotation.TestCase) (*annotation.Annotation, error) {
	spec := tc.Config.Spec
	inputs := tc.Inputs()
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: test case %s has no judge inputs", core.ErrJudgmentFailure, tc.ID)
	}

	rendered, err := RenderRubric(tc.Config.Rubric, inputs, spec.Kind == feedback.SpecRanking)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrJudgmentFailure, err)
	}

	verdict, err := j.client.GetJSONResponse(ctx, judgeSystemMessage, buildJudgePrompt(rendered, spec))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrJudgmentFailure, err)
	}

	// A malformed permutation is a hard error even on a skip verdict.
	if spec.Kind == feedback.SpecRanking {
		if err := annotation.ValidatePermutation(verdict.Rankings, spec.ComparisonItems); err != nil {
			return nil, err
		}
	}

	if verdict.Skip {
		log.Printf("[Judge] Skipping test case %s: %s", tc.ID, verdict.Comment)
		ann := annotation.NewSkippedAnnotation(tc.ID, j.annotatorID, spec, commentPtr(verdict.Comment))
		return &ann, nil
	}

	var ann annotation.Annotation
	switch spec.Kind {
	case feedback.SpecCategorical:
		ann = annotation.NewCategoricalAnnotation(tc.ID, j.annotatorID, verdict.Category, spec.Categories)
	case feedback.SpecContinuous:
		if verdict.Score == nil {
			return nil, fmt.Errorf("%w: continuous verdict missing score", core.ErrJudgmentFailure)
		}
		ann = annotation.NewContinuousAnnotation(tc.ID, j.annotatorID, *verdict.Score, *spec.ScoreRange)
	case feedback.SpecRanking:
		ann = annotation.NewRankingAnnotation(tc.ID, j.annotatorID, verdict.Rankings, spec.ComparisonItems)
	}
	ann.Comment = commentPtr(verdict.Comment)

	if err := ann.ValidateForSpec(spec); err != nil {
		return nil, err
	}
	return &ann, nil
}

func commentPtr(comment string) *string {
	if comment == "" {
		return nil
	}
	return &comment
}
