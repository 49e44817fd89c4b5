package feedback

import (
	"goannotate/domain/core"
)

// ConfigStats is the agreement snapshot computed for one config's test case
// population and persisted alongside the config document.
type ConfigStats struct {
	TotalTestCases int `json:"total_test_cases"`
	Pending        int `json:"pending"`
	Summarized     int `json:"summarized"`
	AIAnnotated    int `json:"ai_annotated"`
	HumanAnnotated int `json:"human_annotated"`
	Invalid        int `json:"invalid"`

	// Fractions of the dual-annotated subset; absent when that subset is empty.
	AgreementRate    *float64 `json:"agreement_rate,omitempty"`
	DisagreementRate *float64 `json:"disagreement_rate,omitempty"`

	// Disagreeing test case ids, sorted by the human annotation's timestamp.
	DisagreedTestCaseIDs []string `json:"disagreed_test_case_ids"`

	// Categorical only
	AICategoryDistribution    map[string]int            `json:"ai_category_distribution,omitempty"`
	HumanCategoryDistribution map[string]int            `json:"human_category_distribution,omitempty"`
	ConfusionMatrix           map[string]map[string]int `json:"confusion_matrix,omitempty"`

	// Continuous only (correlation also set for ranking: mean per-pair Pearson)
	MeanAbsoluteError *float64 `json:"mean_absolute_error,omitempty"`
	Correlation       *float64 `json:"correlation,omitempty"`

	LastUpdated core.Timestamp `json:"last_updated"`
}
