package feedback

import (
	"strings"
	"testing"

	"goannotate/domain/trace"
)

var twoItems = []InputItem{
	{Name: "user_query", Description: "The user's question"},
	{Name: "ai_output", Description: "The assistant's answer"},
}

func TestNewConfigRubricValidation(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		rubric  string
		wantErr bool
	}{
		{"exact variables", CategoricalSpec("pass", "fail"), "Q: {user_query}\nA: {ai_output}", false},
		{"missing variable", CategoricalSpec("pass", "fail"), "Q: {user_query}", true},
		{"extra variable", CategoricalSpec("pass", "fail"), "Q: {user_query} A: {ai_output} X: {extra}", true},
		{"ranking indexed variables", RankingSpec(2), "{user_query_0} {ai_output_0} {user_query_1} {ai_output_1}", false},
		{"ranking missing index", RankingSpec(2), "{user_query_0} {ai_output_0}", true},
		{"continuous exact", ContinuousSpec(0, 10), "Score {user_query} vs {ai_output}", false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := NewConfig(trace.KindStep, nil, test.spec, twoItems, test.rubric, nil, nil)
			if test.wantErr && err == nil {
				t.Error("Expected construction error, got none")
			}
			if !test.wantErr && err != nil {
				t.Errorf("Unexpected construction error: %v", err)
			}
		})
	}
}

func TestNewConfigSpecValidation(t *testing.T) {
	if _, err := NewConfig(trace.KindStep, nil, RankingSpec(1), twoItems, "{user_query_0} {ai_output_0}", nil, nil); err == nil {
		t.Error("Ranking with fewer than 2 comparison items must be rejected")
	}
	if _, err := NewConfig(trace.KindStep, nil, ContinuousSpec(5, 5), twoItems, "{user_query} {ai_output}", nil, nil); err == nil {
		t.Error("Continuous with min >= max must be rejected")
	}
	if _, err := NewConfig(trace.KindStep, nil, CategoricalSpec("pass", "pass"), twoItems, "{user_query} {ai_output}", nil, nil); err == nil {
		t.Error("Duplicate categories must be rejected")
	}
}

func TestNewConfigContextCoarseness(t *testing.T) {
	interactionCtx := trace.KindInteraction
	groupCtx := trace.KindGroup

	if _, err := NewConfig(trace.KindStep, &interactionCtx, CategoricalSpec("pass", "fail"), twoItems, "{user_query} {ai_output}", nil, nil); err != nil {
		t.Errorf("Interaction context over step granularity should be valid: %v", err)
	}
	if _, err := NewConfig(trace.KindGroup, &interactionCtx, CategoricalSpec("pass", "fail"), twoItems, "{user_query} {ai_output}", nil, nil); err == nil {
		t.Error("Interaction context finer than group granularity must be rejected")
	}
	if _, err := NewConfig(trace.KindGroup, &groupCtx, CategoricalSpec("pass", "fail"), twoItems, "{user_query} {ai_output}", nil, nil); err != nil {
		t.Errorf("Group context at group granularity should be valid: %v", err)
	}
}

// Config identity comes from the extraction schema only: rubric text and
// matchers never change it, item names always do.
func TestConfigIDStability(t *testing.T) {
	contains := "LLM"
	a, err := NewConfig(trace.KindStep, nil, CategoricalSpec("pass", "fail"), twoItems,
		"Q: {user_query}\nA: {ai_output}", nil, nil)
	if err != nil {
		t.Fatalf("Config construction failed: %v", err)
	}
	b, err := NewConfig(trace.KindStep, nil, CategoricalSpec("pass", "fail"), twoItems,
		"Completely reworded rubric. {ai_output} then {user_query}.",
		[]AttributeMatcher{{AttributePath: "name", ContainsStr: &contains}}, nil)
	if err != nil {
		t.Fatalf("Config construction failed: %v", err)
	}

	if a.ID != b.ID {
		t.Errorf("Rubric/matcher edits must not change the config id: %s vs %s", a.ID, b.ID)
	}

	renamed := []InputItem{
		{Name: "user_question", Description: "The user's question"},
		{Name: "ai_output", Description: "The assistant's answer"},
	}
	c, err := NewConfig(trace.KindStep, nil, CategoricalSpec("pass", "fail"), renamed,
		"Q: {user_question}\nA: {ai_output}", nil, nil)
	if err != nil {
		t.Fatalf("Config construction failed: %v", err)
	}
	if c.ID == a.ID {
		t.Error("Renaming an input item must change the config id")
	}

	groupCtx := trace.KindGroup
	d, err := NewConfig(trace.KindStep, &groupCtx, CategoricalSpec("pass", "fail"), twoItems,
		"Q: {user_query}\nA: {ai_output}", nil, nil)
	if err != nil {
		t.Fatalf("Config construction failed: %v", err)
	}
	if d.ID == a.ID {
		t.Error("Changing requires_context must change the config id")
	}
}

func TestParseConfigRecomputesID(t *testing.T) {
	doc := `{
		"id": "stale-id",
		"granularity": "step",
		"feedback_spec": {"type": "categorical", "categories": ["pass", "fail"]},
		"input_items": [
			{"name": "user_query", "description": "The user's question"},
			{"name": "ai_output", "description": "The assistant's answer"}
		],
		"ai_rubric": "Q: {user_query} A: {ai_output}",
		"attribute_matchers": []
	}`

	cfg, err := ParseConfig([]byte(doc))
	if err != nil {
		t.Fatalf("ParseConfig failed: %v", err)
	}
	if cfg.ID == "stale-id" {
		t.Error("ParseConfig must recompute the id from content")
	}

	want := ComputeConfigID(trace.KindStep, nil, SpecCategorical, twoItems)
	if cfg.ID != want {
		t.Errorf("Expected recomputed id %s, got %s", want, cfg.ID)
	}
}

func TestRubricVariables(t *testing.T) {
	vars := RubricVariables("a {x} b {y_0} c {x} d {1bad} e")
	joined := strings.Join(vars, ",")
	if joined != "x,y_0" {
		t.Errorf("Expected variables x,y_0 got %s", joined)
	}
}
