package feedback

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"goannotate/domain/core"
	"goannotate/domain/trace"
)

// InputItem is a named, described field to extract from raw data before
// judgment. The set of item names defines the rubric's substitution variables.
type InputItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Config declares what to evaluate, at what granularity, with which filters
// and rubric. Its ID is derived from the extraction schema only, so rubric
// rewording never invalidates an existing test case population.
type Config struct {
	ID              core.ConfigID      `json:"id"`
	Granularity     trace.Kind         `json:"granularity"`
	RequiresContext *trace.Kind        `json:"requires_context,omitempty"`
	Spec            Spec               `json:"feedback_spec"`
	InputItems      []InputItem        `json:"input_items"`
	Rubric          string             `json:"ai_rubric"`
	Matchers        []AttributeMatcher `json:"attribute_matchers"`
	Disqualifier    *string            `json:"natural_language_disqualifier,omitempty"`
	Stats           *ConfigStats       `json:"stats,omitempty"`
}

// NewConfig validates the parts against each other and computes the
// deterministic config id. Violations are hard construction errors; a config
// is never partially accepted.
func NewConfig(granularity trace.Kind, requiresContext *trace.Kind, spec Spec, items []InputItem, rubric string, matchers []AttributeMatcher, disqualifier *string) (*Config, error) {
	cfg := &Config{
		Granularity:     granularity,
		RequiresContext: requiresContext,
		Spec:            spec,
		InputItems:      items,
		Rubric:          rubric,
		Matchers:        matchers,
		Disqualifier:    disqualifier,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ID = ComputeConfigID(granularity, requiresContext, spec.Kind, items)
	return cfg, nil
}

// ParseConfig decodes a persisted config document, re-validates it, and
// recomputes its id so stored documents can never smuggle a stale identity.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrConfigInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ID = ComputeConfigID(cfg.Granularity, cfg.RequiresContext, cfg.Spec.Kind, cfg.InputItems)
	return &cfg, nil
}

// Validate checks mutual consistency of granularity, context requirement,
// spec, and the rubric's substitution variables.
func (c *Config) Validate() error {
	if !c.Granularity.Valid() {
		return core.NewConfigError("granularity", fmt.Sprintf("unknown granularity %q", c.Granularity))
	}
	if c.RequiresContext != nil {
		ctx := *c.RequiresContext
		if ctx != trace.KindInteraction && ctx != trace.KindGroup {
			return core.NewConfigError("requires_context", fmt.Sprintf("must be interaction or group, got %q", ctx))
		}
		if ctx.Coarseness() < c.Granularity.Coarseness() {
			return core.NewConfigError("requires_context", fmt.Sprintf("context %q is finer than granularity %q", ctx, c.Granularity))
		}
	}
	if err := c.Spec.Validate(); err != nil {
		return err
	}
	if len(c.InputItems) == 0 {
		return core.NewConfigError("input_items", "at least one input item is required")
	}
	seen := make(map[string]bool, len(c.InputItems))
	for _, item := range c.InputItems {
		if strings.TrimSpace(item.Name) == "" {
			return core.NewConfigError("input_items", "item name cannot be empty")
		}
		if seen[item.Name] {
			return core.NewConfigError("input_items", fmt.Sprintf("duplicate item name %q", item.Name))
		}
		seen[item.Name] = true
	}
	return c.validateRubric()
}

var rubricVariable = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RubricVariables extracts the distinct {variable} names from a rubric template.
func RubricVariables(rubric string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, m := range rubricVariable.FindAllStringSubmatch(rubric, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// validateRubric requires the rubric's variable set to equal, exactly, the
// input item names, or for ranking specs every name_index combination over
// [0, comparison_items).
func (c *Config) validateRubric() error {
	var expected []string
	if c.Spec.Kind == SpecRanking {
		for i := 0; i < c.Spec.ComparisonItems; i++ {
			for _, item := range c.InputItems {
				expected = append(expected, fmt.Sprintf("%s_%d", item.Name, i))
			}
		}
	} else {
		for _, item := range c.InputItems {
			expected = append(expected, item.Name)
		}
	}

	actual := RubricVariables(c.Rubric)
	sortedExpected := append([]string(nil), expected...)
	sortedActual := append([]string(nil), actual...)
	sort.Strings(sortedExpected)
	sort.Strings(sortedActual)

	if strings.Join(sortedExpected, "\x00") != strings.Join(sortedActual, "\x00") {
		return core.NewConfigError("ai_rubric",
			fmt.Sprintf("rubric has incorrect variables: expected %v, found %v", expected, actual))
	}
	return nil
}

// configIDPayload has fields in sorted key order for a canonical encoding.
type configIDPayload struct {
	FeedbackSpecType SpecKind        `json:"feedback_spec_type"`
	Granularity      trace.Kind      `json:"granularity"`
	InputItems       []configIDItem  `json:"input_items"`
	RequiresContext  *trace.Kind     `json:"requires_context"`
}

type configIDItem struct {
	Description string `json:"description"`
	Name        string `json:"name"`
}

// ComputeConfigID derives the deterministic content-hash identity of a
// config. Rubric text and matchers are deliberately excluded: two configs
// with the same extraction schema collide on id even across rubric edits.
func ComputeConfigID(granularity trace.Kind, requiresContext *trace.Kind, specKind SpecKind, items []InputItem) core.ConfigID {
	payload := configIDPayload{
		FeedbackSpecType: specKind,
		Granularity:      granularity,
		InputItems:       make([]configIDItem, 0, len(items)),
		RequiresContext:  requiresContext,
	}
	for _, item := range items {
		payload.InputItems = append(payload.InputItems, configIDItem{Description: item.Description, Name: item.Name})
	}
	data, _ := json.Marshal(payload)
	return core.ConfigID(core.ShortHash(data))
}
