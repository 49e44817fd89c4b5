package annotation

import (
	"fmt"

	"goannotate/domain/core"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

// Status is the test case lifecycle state.
type Status string

const (
	StatusPending        Status = "pending"
	StatusSummarized     Status = "summarized"
	StatusAIAnnotated    Status = "ai_annotated"
	StatusHumanAnnotated Status = "human_annotated"
	StatusInvalid        Status = "invalid"
)

// AllStatuses lists every lifecycle state, in pipeline order.
var AllStatuses = []Status{StatusPending, StatusSummarized, StatusAIAnnotated, StatusHumanAnnotated, StatusInvalid}

// CaseKind discriminates the two test case shapes.
type CaseKind string

const (
	CasePointwise CaseKind = "pointwise"
	CaseRanking   CaseKind = "ranking"
)

// TestCase is the unit of work tracked through the annotation lifecycle. A
// pointwise case references one raw object; a ranking case references an
// ordered tuple of them. Each case owns a copy of the config it was generated
// under; the config id is the join key for statistics. Cases are created once
// at generation time and mutated only by the pipeline and human submission,
// never deleted, only transitioned to invalid or archived.
type TestCase struct {
	ID          core.TestCaseID `json:"test_case_id"`
	Kind        CaseKind        `json:"test_case_type"`
	Config      feedback.Config `json:"feedback_config"`
	Granularity trace.Kind      `json:"granularity"`
	Status      Status          `json:"status"`

	// pointwise shape
	RawInput   *trace.Object `json:"raw_judge_input,omitempty"`
	JudgeInput *JudgeInput   `json:"judge_input,omitempty"`

	// ranking shape
	ComparisonItems int            `json:"comparison_items,omitempty"`
	RawInputs       []trace.Object `json:"raw_judge_inputs,omitempty"`
	JudgeInputs     []JudgeInput   `json:"judge_inputs,omitempty"`

	AIAnnotation    *Annotation `json:"ai_annotation,omitempty"`
	HumanAnnotation *Annotation `json:"human_annotation,omitempty"`

	InvalidReason string `json:"invalid_reason,omitempty"`

	CreatedAt core.Timestamp `json:"created_at"`
	UpdatedAt core.Timestamp `json:"updated_at"`
}

// NewPointwiseTestCase creates a pending pointwise case for one raw object.
// The embedded config copy drops the stats snapshot; stats live only on the
// stored config document and would go stale inside persisted cases.
func NewPointwiseTestCase(cfg feedback.Config, raw trace.Object) *TestCase {
	cfg.Stats = nil
	now := core.Now()
	return &TestCase{
		ID:          core.TestCaseID(core.NewID()),
		Kind:        CasePointwise,
		Config:      cfg,
		Granularity: cfg.Granularity,
		Status:      StatusPending,
		RawInput:    &raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewRankingTestCase creates a pending ranking case over an ordered tuple of
// raw objects.
func NewRankingTestCase(cfg feedback.Config, raws []trace.Object) *TestCase {
	cfg.Stats = nil
	now := core.Now()
	return &TestCase{
		ID:              core.TestCaseID(core.NewID()),
		Kind:            CaseRanking,
		Config:          cfg,
		Granularity:     cfg.Granularity,
		Status:          StatusPending,
		ComparisonItems: len(raws),
		RawInputs:       raws,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Raws returns the raw objects regardless of shape.
func (tc *TestCase) Raws() []trace.Object {
	if tc.Kind == CaseRanking {
		return tc.RawInputs
	}
	if tc.RawInput == nil {
		return nil
	}
	return []trace.Object{*tc.RawInput}
}

// Inputs returns the judge inputs regardless of shape.
func (tc *TestCase) Inputs() []JudgeInput {
	if tc.Kind == CaseRanking {
		return tc.JudgeInputs
	}
	if tc.JudgeInput == nil {
		return nil
	}
	return []JudgeInput{*tc.JudgeInput}
}

// NeedsExtraction reports whether the case still lacks its judge input(s).
func (tc *TestCase) NeedsExtraction() bool {
	if tc.Kind == CaseRanking {
		return len(tc.JudgeInputs) < tc.ComparisonItems
	}
	return tc.JudgeInput == nil
}

// SetJudgeInputs stores the extracted judge input(s) and advances the case
// to summarized. Rejected on invalid cases and on arity mismatches.
func (tc *TestCase) SetJudgeInputs(inputs []JudgeInput) error {
	if tc.Status == StatusInvalid {
		return fmt.Errorf("%w: cannot summarize an invalid test case", core.ErrConsistency)
	}
	switch tc.Kind {
	case CasePointwise:
		if len(inputs) != 1 {
			return fmt.Errorf("%w: pointwise case takes exactly one judge input, got %d", core.ErrConsistency, len(inputs))
		}
		tc.JudgeInput = &inputs[0]
	case CaseRanking:
		if len(inputs) != tc.ComparisonItems {
			return fmt.Errorf("%w: ranking case takes %d judge inputs, got %d", core.ErrConsistency, tc.ComparisonItems, len(inputs))
		}
		tc.JudgeInputs = inputs
	}
	tc.Status = StatusSummarized
	tc.UpdatedAt = core.Now()
	return nil
}

// SetAIAnnotation stores the AI annotation. The status advances to
// ai_annotated unless a human already annotated the case; a later AI pass
// updates the stored annotation but never downgrades human_annotated.
func (tc *TestCase) SetAIAnnotation(ann Annotation) {
	tc.AIAnnotation = &ann
	if tc.Status != StatusHumanAnnotated {
		tc.Status = StatusAIAnnotated
	}
	tc.UpdatedAt = core.Now()
}

// SetHumanAnnotation stores the human annotation and unconditionally sets
// human_annotated, regardless of prior status; a human may annotate a case
// the pipeline has not touched yet. Invalid is absorbing and stays invalid.
func (tc *TestCase) SetHumanAnnotation(ann Annotation) error {
	if tc.Status == StatusInvalid {
		return fmt.Errorf("%w: cannot annotate an invalid test case", core.ErrConsistency)
	}
	tc.HumanAnnotation = &ann
	tc.Status = StatusHumanAnnotated
	tc.UpdatedAt = core.Now()
	return nil
}

// MarkInvalid transitions the case to the absorbing invalid state, clearing
// any stored judge inputs and recording the reason.
func (tc *TestCase) MarkInvalid(reason string) {
	tc.Status = StatusInvalid
	tc.JudgeInput = nil
	tc.JudgeInputs = nil
	tc.InvalidReason = reason
	tc.UpdatedAt = core.Now()
}

// DualAnnotated reports whether both annotations are present and neither is
// a skip placeholder. Agreement statistics are computed over this subset.
func (tc *TestCase) DualAnnotated() bool {
	return tc.AIAnnotation != nil && tc.HumanAnnotation != nil &&
		!tc.AIAnnotation.Skip && !tc.HumanAnnotation.Skip
}
