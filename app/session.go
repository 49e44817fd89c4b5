package app

import (
	"context"
	"fmt"
	"log"

	"goannotate/adapters/stats/engine"
	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/feedback"
	"goannotate/ports"
)

// SessionService owns the annotation session lifecycle: activating configs,
// serving cases to human annotators, recording their annotations, and
// refreshing the agreement snapshot.
type SessionService struct {
	testCases ports.TestCaseRepository
	configs   ports.ConfigRepository
	generator *GeneratorService
	stats     *engine.StatsEngine
}

// NewSessionService creates a new session service
func NewSessionService(testCases ports.TestCaseRepository, configs ports.ConfigRepository, generator *GeneratorService) *SessionService {
	return &SessionService{
		testCases: testCases,
		configs:   configs,
		generator: generator,
		stats:     engine.NewStatsEngine(),
	}
}

// ActivationResult reports what activating a config changed, plus its test
// case population split by kind. On an idempotent re-activation the
// population lists the existing cases and CreatedCases is zero.
type ActivationResult struct {
	Config        *feedback.Config  `json:"config"`
	CreatedCases  int               `json:"created_cases"`
	ArchivedCases int               `json:"archived_cases"`
	Pointwise     []core.TestCaseID `json:"pointwise"`
	Ranking       []core.TestCaseID `json:"ranking"`
}

// ActivateConfig makes cfg the active config. If a different config was
// active, its human-annotated cases are archived first so their annotations
// survive the switch. Generation is idempotent; a config matching zero raw
// inputs is rejected before anything is persisted.
func (s *SessionService) ActivateConfig(ctx context.Context, cfg *feedback.Config) (*ActivationResult, error) {
	result := &ActivationResult{Config: cfg}

	old, err := s.configs.GetActive(ctx)
	if err != nil && !core.IsNotFoundError(err) {
		return nil, err
	}
	if old != nil && old.ID != cfg.ID {
		archived, err := s.testCases.ArchiveByConfig(ctx, old.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to archive cases for config %s: %w", old.ID, err)
		}
		if archived > 0 {
			log.Printf("[Session] Archived %d annotated test cases from config %s", archived, old.ID)
		}
		result.ArchivedCases = archived
	}

	population, err := s.generator.Generate(ctx, *cfg)
	if err != nil {
		return nil, err
	}
	result.CreatedCases = population.Created
	result.Pointwise = population.Pointwise
	result.Ranking = population.Ranking

	if err := s.configs.SaveActive(ctx, cfg); err != nil {
		return nil, err
	}
	log.Printf("[Session] Activated config %s (%d new test cases, %d pointwise / %d ranking total)",
		cfg.ID, population.Created, len(population.Pointwise), len(population.Ranking))
	return result, nil
}

// ActiveConfig returns the currently active config.
func (s *SessionService) ActiveConfig(ctx context.Context) (*feedback.Config, error) {
	return s.configs.GetActive(ctx)
}

// GetTestCase returns one test case by id.
func (s *SessionService) GetTestCase(ctx context.Context, id core.TestCaseID) (*annotation.TestCase, error) {
	return s.testCases.Get(ctx, id)
}

// NextForAnnotation returns the oldest AI-annotated case awaiting a human
// verdict, or core.ErrTestCaseNotFound when the queue is empty.
func (s *SessionService) NextForAnnotation(ctx context.Context) (*annotation.TestCase, error) {
	cases, err := s.testCases.ListByStatus(ctx, annotation.StatusAIAnnotated)
	if err != nil {
		return nil, err
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: no test cases awaiting human annotation", core.ErrTestCaseNotFound)
	}
	return cases[0], nil
}

// HumanAnnotationRequest is a human verdict for one test case. Exactly one
// payload field matching the active spec kind is expected, unless Skip is set.
type HumanAnnotationRequest struct {
	AnnotatorID string   `json:"annotator_id"`
	Skip        bool     `json:"skip"`
	Comment     *string  `json:"comment,omitempty"`
	Category    string   `json:"category,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	Rankings    []int    `json:"rankings,omitempty"`
}

// SubmitHumanAnnotation validates and records a human verdict, then
// refreshes the config's stats snapshot.
func (s *SessionService) SubmitHumanAnnotation(ctx context.Context, id core.TestCaseID, req HumanAnnotationRequest) (*annotation.TestCase, error) {
	tc, err := s.testCases.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	spec := tc.Config.Spec
	var ann annotation.Annotation
	if req.Skip {
		ann = annotation.NewSkippedAnnotation(tc.ID, req.AnnotatorID, spec, req.Comment)
	} else {
		switch spec.Kind {
		case feedback.SpecCategorical:
			ann = annotation.NewCategoricalAnnotation(tc.ID, req.AnnotatorID, req.Category, spec.Categories)
		case feedback.SpecContinuous:
			if req.Score == nil {
				return nil, fmt.Errorf("%w: continuous annotation requires a score", core.ErrJudgmentFailure)
			}
			ann = annotation.NewContinuousAnnotation(tc.ID, req.AnnotatorID, *req.Score, *spec.ScoreRange)
		case feedback.SpecRanking:
			ann = annotation.NewRankingAnnotation(tc.ID, req.AnnotatorID, req.Rankings, spec.ComparisonItems)
		}
		ann.Comment = req.Comment
		if err := ann.ValidateForSpec(spec); err != nil {
			return nil, err
		}
	}

	if err := tc.SetHumanAnnotation(ann); err != nil {
		return nil, err
	}
	if err := s.testCases.Save(ctx, tc); err != nil {
		return nil, err
	}

	if _, err := s.RefreshStats(ctx, tc.Config.ID); err != nil {
		log.Printf("[Session] ERROR: failed to refresh stats for config %s: %v", tc.Config.ID, err)
	}
	return tc, nil
}

// RefreshStats recomputes the agreement snapshot for a config over its
// active cases and persists it on the stored config document.
func (s *SessionService) RefreshStats(ctx context.Context, configID core.ConfigID) (*feedback.ConfigStats, error) {
	cfg, err := s.configs.Get(ctx, configID)
	if err != nil {
		return nil, err
	}
	cases, err := s.testCases.ListByConfig(ctx, configID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.stats.Compute(cases, cfg.Spec)
	if err != nil {
		return nil, err
	}
	if err := s.configs.SaveStats(ctx, configID, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}
