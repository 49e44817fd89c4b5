package feedback

import (
	"testing"

	"goannotate/domain/trace"
)

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func sampleStep() trace.Object {
	return trace.StepObject(trace.Step{
		ID:            "s1",
		Name:          strPtr("LLM call"),
		InteractionID: strPtr("i1"),
		StartNs:       i64Ptr(100),
		Tags:          map[string]string{"env": "prod"},
		InputData:     map[string]any{"query": "what is the weather"},
		OutputMessages: []trace.Message{
			{Role: "assistant", Content: "sunny"},
		},
	})
}

func TestMatcherContains(t *testing.T) {
	obj := sampleStep()

	tests := []struct {
		path     string
		contains string
		want     bool
	}{
		{"name", "LLM", true},
		{"name", "database", false},
		{"tags.env", "prod", true},
		{"input_data.query", "weather", true},
		{"output_messages[0].content", "sunny", true},
		{"output_messages[0].role", "assistant", true},
	}

	for _, test := range tests {
		m := AttributeMatcher{AttributePath: test.path, ContainsStr: &test.contains}
		if got := m.Matches(obj); got != test.want {
			t.Errorf("contains %q at %q: expected %v, got %v", test.contains, test.path, test.want, got)
		}
	}
}

func TestMatcherRegex(t *testing.T) {
	obj := sampleStep()

	re := "^LLM"
	m := AttributeMatcher{AttributePath: "name", MatchesRegex: &re}
	if !m.Matches(obj) {
		t.Error("Expected regex ^LLM to match 'LLM call'")
	}

	bad := "("
	m = AttributeMatcher{AttributePath: "name", MatchesRegex: &bad}
	if m.Matches(obj) {
		t.Error("Unparsable regex must fail closed")
	}
}

func TestMatcherEquals(t *testing.T) {
	obj := sampleStep()

	m := AttributeMatcher{AttributePath: "start_ns", EqualsValue: 100}
	if !m.Matches(obj) {
		t.Error("Expected numeric equality across int/float64 representations")
	}

	m = AttributeMatcher{AttributePath: "tags.env", EqualsValue: "prod"}
	if !m.Matches(obj) {
		t.Error("Expected string equality match")
	}

	m = AttributeMatcher{AttributePath: "tags.env", EqualsValue: "dev"}
	if m.Matches(obj) {
		t.Error("Expected string equality mismatch")
	}
}

// Matches must never panic or error: malformed paths always yield false.
func TestMatcherFailClosed(t *testing.T) {
	obj := sampleStep()
	contains := "x"

	paths := []string{
		"nonexistent",
		"name.deeper",               // indexing into a scalar
		"output_messages[5].content", // out of range
		"tags[0]",                    // map indexed as sequence
		"input_data.missing.deeper",
		"",
	}

	for _, path := range paths {
		m := AttributeMatcher{AttributePath: path, ContainsStr: &contains}
		if m.Matches(obj) {
			t.Errorf("Malformed path %q must fail closed", path)
		}
	}

	// no predicate set matches nothing
	m := AttributeMatcher{AttributePath: "name"}
	if m.Matches(obj) {
		t.Error("Matcher with no predicate must not match")
	}
}

func TestMatchesAllEmptyListMatchesEverything(t *testing.T) {
	if !MatchesAll(nil, sampleStep()) {
		t.Error("Empty matcher list must match everything")
	}

	contains := "LLM"
	miss := "zzz"
	matchers := []AttributeMatcher{
		{AttributePath: "name", ContainsStr: &contains},
		{AttributePath: "name", ContainsStr: &miss},
	}
	if MatchesAll(matchers, sampleStep()) {
		t.Error("AND combination must fail when one matcher fails")
	}
}

func TestMatcherAgainstInteractionAndGroup(t *testing.T) {
	steps := []trace.Step{
		{ID: "s1", InteractionID: strPtr("i1"), Name: strPtr("tool call"), GroupID: strPtr("g1")},
	}
	interaction := trace.BuildInteractions(steps)[0]
	group := trace.BuildGroups(steps)[0]

	contains := "tool"
	m := AttributeMatcher{AttributePath: "steps[0].name", ContainsStr: &contains}
	if !m.Matches(trace.InteractionObject(interaction)) {
		t.Error("Expected path into interaction steps to match")
	}

	m = AttributeMatcher{AttributePath: "interactions[0].steps[0].name", ContainsStr: &contains}
	if !m.Matches(trace.GroupObject(group)) {
		t.Error("Expected path into group interactions to match")
	}
}
