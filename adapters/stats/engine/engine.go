package engine

import (
	"math"
	"sort"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/feedback"

	montana "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// continuousToleranceFraction of the score range width counts as agreement
// for continuous annotations.
const continuousToleranceFraction = 0.1

// StatsEngine computes AI-vs-human agreement snapshots over a config's test
// case population.
type StatsEngine struct{}

// NewStatsEngine creates a new statistical engine
func NewStatsEngine() *StatsEngine {
	return &StatsEngine{}
}

type disagreement struct {
	at core.Timestamp
	id string
}

// Compute tallies status counts and, over the dual-annotated subset,
// agreement metrics shaped by the spec kind. A status tally that does not
// sum to the total is a consistency violation, never silently patched.
func (e *StatsEngine) Compute(cases []*annotation.TestCase, spec feedback.Spec) (*feedback.ConfigStats, error) {
	stats := &feedback.ConfigStats{
		TotalTestCases:       len(cases),
		DisagreedTestCaseIDs: []string{},
		LastUpdated:          core.Now(),
	}

	for _, tc := range cases {
		switch tc.Status {
		case annotation.StatusPending:
			stats.Pending++
		case annotation.StatusSummarized:
			stats.Summarized++
		case annotation.StatusAIAnnotated:
			stats.AIAnnotated++
		case annotation.StatusHumanAnnotated:
			stats.HumanAnnotated++
		case annotation.StatusInvalid:
			stats.Invalid++
		}
	}
	statused := stats.Pending + stats.Summarized + stats.AIAnnotated + stats.HumanAnnotated + stats.Invalid
	if statused != stats.TotalTestCases {
		return nil, core.NewConsistencyError("status counts do not sum to total test cases")
	}

	var dual []*annotation.TestCase
	for _, tc := range cases {
		if tc.DualAnnotated() {
			dual = append(dual, tc)
		}
	}
	if len(dual) == 0 {
		return stats, nil
	}

	var agreements, disagreements int
	var disagreed []disagreement
	switch spec.Kind {
	case feedback.SpecRanking:
		agreements, disagreements, disagreed = e.rankingStats(dual, stats)
	case feedback.SpecCategorical:
		agreements, disagreements, disagreed = e.categoricalStats(dual, stats)
	case feedback.SpecContinuous:
		agreements, disagreements, disagreed = e.continuousStats(dual, stats)
	}

	if compared := agreements + disagreements; compared > 0 {
		agreementRate := float64(agreements) / float64(compared)
		disagreementRate := float64(disagreements) / float64(compared)
		stats.AgreementRate = &agreementRate
		stats.DisagreementRate = &disagreementRate
	}

	sort.Slice(disagreed, func(i, j int) bool {
		if disagreed[i].at.Before(disagreed[j].at) {
			return true
		}
		if disagreed[j].at.Before(disagreed[i].at) {
			return false
		}
		return disagreed[i].id < disagreed[j].id
	})
	for _, d := range disagreed {
		stats.DisagreedTestCaseIDs = append(stats.DisagreedTestCaseIDs, d.id)
	}

	return stats, nil
}

// rankingStats counts exact permutation matches and sets correlation to the
// mean per-pair Pearson over rank vectors. Undefined correlations (zero
// variance) are excluded from the mean.
func (e *StatsEngine) rankingStats(dual []*annotation.TestCase, stats *feedback.ConfigStats) (int, int, []disagreement) {
	var agreements, disagreements int
	var disagreed []disagreement
	var correlations []float64

	for _, tc := range dual {
		aiRank := tc.AIAnnotation.Rankings
		humanRank := tc.HumanAnnotation.Rankings
		if len(aiRank) == 0 || len(aiRank) != len(humanRank) {
			continue
		}

		if annotation.RankingsEqual(aiRank, humanRank) {
			agreements++
		} else {
			disagreements++
			disagreed = append(disagreed, disagreement{tc.HumanAnnotation.Timestamp, string(tc.ID)})
		}

		ai := make([]float64, len(aiRank))
		human := make([]float64, len(humanRank))
		for i := range aiRank {
			ai[i] = float64(aiRank[i])
			human[i] = float64(humanRank[i])
		}
		if corr := stat.Correlation(ai, human, nil); !math.IsNaN(corr) {
			correlations = append(correlations, corr)
		}
	}

	if len(correlations) > 0 {
		mean, err := montana.Mean(correlations)
		if err == nil {
			stats.Correlation = &mean
		}
	}
	return agreements, disagreements, disagreed
}

func (e *StatsEngine) categoricalStats(dual []*annotation.TestCase, stats *feedback.ConfigStats) (int, int, []disagreement) {
	var agreements, disagreements int
	var disagreed []disagreement

	stats.AICategoryDistribution = make(map[string]int)
	stats.HumanCategoryDistribution = make(map[string]int)
	stats.ConfusionMatrix = make(map[string]map[string]int)

	for _, tc := range dual {
		aiCat := tc.AIAnnotation.Category
		humanCat := tc.HumanAnnotation.Category

		stats.AICategoryDistribution[aiCat]++
		stats.HumanCategoryDistribution[humanCat]++
		if stats.ConfusionMatrix[aiCat] == nil {
			stats.ConfusionMatrix[aiCat] = make(map[string]int)
		}
		stats.ConfusionMatrix[aiCat][humanCat]++

		if aiCat == humanCat {
			agreements++
		} else {
			disagreements++
			disagreed = append(disagreed, disagreement{tc.HumanAnnotation.Timestamp, string(tc.ID)})
		}
	}
	return agreements, disagreements, disagreed
}

// continuousStats counts scores within 10% of the range width as agreement
// and reports MAE plus Pearson correlation once two or more pairs exist.
func (e *StatsEngine) continuousStats(dual []*annotation.TestCase, stats *feedback.ConfigStats) (int, int, []disagreement) {
	var agreements, disagreements int
	var disagreed []disagreement
	var aiScores, humanScores []float64

	for _, tc := range dual {
		if tc.AIAnnotation.Score == nil || tc.HumanAnnotation.Score == nil || tc.AIAnnotation.ScoreRange == nil {
			continue
		}
		aiScore := *tc.AIAnnotation.Score
		humanScore := *tc.HumanAnnotation.Score
		aiScores = append(aiScores, aiScore)
		humanScores = append(humanScores, humanScore)

		tolerance := tc.AIAnnotation.ScoreRange.Width() * continuousToleranceFraction
		if math.Abs(aiScore-humanScore) <= tolerance {
			agreements++
		} else {
			disagreements++
			disagreed = append(disagreed, disagreement{tc.HumanAnnotation.Timestamp, string(tc.ID)})
		}
	}

	if len(aiScores) > 0 {
		diffs := make([]float64, len(aiScores))
		for i := range aiScores {
			diffs[i] = math.Abs(aiScores[i] - humanScores[i])
		}
		if mae, err := montana.Mean(diffs); err == nil {
			stats.MeanAbsoluteError = &mae
		}

		if len(aiScores) > 1 {
			if corr := stat.Correlation(aiScores, humanScores, nil); !math.IsNaN(corr) {
				stats.Correlation = &corr
			}
		}
	}
	return agreements, disagreements, disagreed
}
