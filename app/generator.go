package app

import (
	"context"
	"fmt"
	"log"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
	"goannotate/ports"
)

// GeneratorService creates the test case population for a feedback config
// from the recorded interaction steps.
type GeneratorService struct {
	testCases ports.TestCaseRepository
	reader    ports.InteractionReader
}

// NewGeneratorService creates a new generator service
func NewGeneratorService(testCases ports.TestCaseRepository, reader ports.InteractionReader) *GeneratorService {
	return &GeneratorService{testCases: testCases, reader: reader}
}

// FilterObjects returns the raw objects at the config's granularity that
// pass every attribute matcher.
func FilterObjects(cfg feedback.Config, steps []trace.Step) []trace.Object {
	objects := trace.ObjectsAt(cfg.Granularity, steps)
	var matched []trace.Object
	for _, obj := range objects {
		if feedback.MatchesAll(cfg.Matchers, obj) {
			matched = append(matched, obj)
		}
	}
	return matched
}

// GenerationResult is the test case population for a config after a
// generation pass, split by kind. Created is zero when the population already
// existed and the pass was a no-op.
type GenerationResult struct {
	Pointwise []core.TestCaseID `json:"pointwise"`
	Ranking   []core.TestCaseID `json:"ranking"`
	Created   int               `json:"created"`
}

func populationOf(cases []*annotation.TestCase) *GenerationResult {
	result := &GenerationResult{}
	for _, tc := range cases {
		if tc.Kind == annotation.CaseRanking {
			result.Ranking = append(result.Ranking, tc.ID)
		} else {
			result.Pointwise = append(result.Pointwise, tc.ID)
		}
	}
	return result
}

// Generate creates pending test cases for the config. Generation is
// idempotent per config id: if any cases already exist for it, nothing new
// is created and the existing population is reported. Zero matching raw
// inputs is core.ErrNoMatches so activation can reject the config outright.
func (s *GeneratorService) Generate(ctx context.Context, cfg feedback.Config) (*GenerationResult, error) {
	existing, err := s.testCases.ListByConfig(ctx, cfg.ID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Printf("[Generator] Config %s already has %d test cases, skipping generation", cfg.ID, len(existing))
		return populationOf(existing), nil
	}

	steps, err := s.reader.ListSteps(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recorded steps: %w", err)
	}

	matched := FilterObjects(cfg, steps)
	if len(matched) == 0 {
		return nil, core.ErrNoMatches
	}

	var cases []*annotation.TestCase
	if cfg.Spec.Kind == feedback.SpecRanking {
		combos := combinations(len(matched), cfg.Spec.ComparisonItems)
		if len(combos) > ports.MaxTestCases {
			log.Printf("[Generator] Limiting ranking test case creation to %d (from %d combinations)", ports.MaxTestCases, len(combos))
			combos = combos[:ports.MaxTestCases]
		}
		for _, combo := range combos {
			raws := make([]trace.Object, len(combo))
			for i, idx := range combo {
				raws[i] = matched[idx]
			}
			cases = append(cases, annotation.NewRankingTestCase(cfg, raws))
		}
	} else {
		if len(matched) > ports.MaxTestCases {
			log.Printf("[Generator] Limiting pointwise test case creation to %d (from %d inputs)", ports.MaxTestCases, len(matched))
			matched = matched[:ports.MaxTestCases]
		}
		for _, obj := range matched {
			cases = append(cases, annotation.NewPointwiseTestCase(cfg, obj))
		}
	}

	for _, tc := range cases {
		if err := s.testCases.Create(ctx, tc); err != nil {
			return nil, err
		}
	}
	log.Printf("[Generator] Created %d %s test cases for config %s", len(cases), cfg.Spec.Kind, cfg.ID)

	result := populationOf(cases)
	result.Created = len(cases)
	return result, nil
}

// combinations enumerates k-element index subsets of [0, n) in lexical
// order, matching tuple generation order for ranking cases.
func combinations(n, k int) [][]int {
	if k <= 0 || k > n {
		return nil
	}
	var out [][]int
	combo := make([]int, k)
	for i := range combo {
		combo[i] = i
	}
	for {
		out = append(out, append([]int(nil), combo...))

		i := k - 1
		for i >= 0 && combo[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		combo[i]++
		for j := i + 1; j < k; j++ {
			combo[j] = combo[j-1] + 1
		}
	}
}
