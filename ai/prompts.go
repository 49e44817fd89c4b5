package ai

import (
	"fmt"
	"regexp"
	"strings"

	"goannotate/domain/annotation"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

const extractionSystemMessage = `You are extracting information from an AI interaction to show to a human annotator.
The extracted information should be easy for anyone, including non-technical users, to understand.
Yet, it must remain technically accurate and faithful to the original raw data.
Respond with a single JSON object matching the requested schema.`

const judgeSystemMessage = `You are an AI judge evaluating extracted interaction data against a rubric.
Respond with a single JSON object matching the requested schema.`

// buildExtractionPrompt renders the user prompt for judge input extraction.
// The raw object and its optional surrounding context are embedded as JSON.
func buildExtractionPrompt(cfg feedback.Config, rawJSON, contextJSON string, rawKind trace.Kind) string {
	var fields strings.Builder
	for _, item := range cfg.InputItems {
		fmt.Fprintf(&fields, "- %s: %s\n", item.Name, item.Description)
	}

	var schemaFields strings.Builder
	for _, item := range cfg.InputItems {
		fmt.Fprintf(&schemaFields, "  %q: {\"value\": \"<string or null>\", \"references\": [<reference>, ...]},\n", item.Name)
	}

	contextSection := ""
	if contextJSON != "" {
		contextSection = fmt.Sprintf(`
Additional context surrounding the raw input:
%s

Use this context to help extract information from the raw input when needed.
For example, if the raw input is a single step, the context might provide information
about other steps surrounding the step in the same interaction.
`, contextJSON)
	}

	disqualificationSection := ""
	if cfg.Disqualifier != nil && *cfg.Disqualifier != "" {
		disqualificationSection = fmt.Sprintf(`
Here is criteria for when you should not attempt an extraction and ignore this test case since it isn't relevant:
%s

IMPORTANT: Only mark disqualified=true if the raw input is not relevant to the evaluation task.
Be generous in your interpretation - when in doubt, include the test case rather than exclude it.
There is one final step of filtering (the AI annotator) after this, so don't worry about skipping too few test cases.
`, *cfg.Disqualifier)
	}

	return fmt.Sprintf(`The raw input is a %s object. The smallest unit of this raw data is a step;
interactions are groups of steps; and groups are collections of interactions.

Extract ONE set of judge inputs from this raw data as a JSON object of this shape:
{
%s  "disqualified": <true or false>
}

In particular, extract the following fields:
%s
For EACH field, return:
1. value: the extracted/summarized value (string or null if not available)
2. references: where in the original raw data this value was sourced from, each in this format:
   - type: "step", "interaction", or "group"
   - id: the ID of the step/interaction/group
   - field: (optional) specific field path if the data was sourced from a particular field

Additionally, return:
3. disqualified: true if this entire test case should be disqualified from evaluation, false otherwise

The summary must be AS human readable as possible - don't be afraid to add newlines,
header sections, etc to make it more readable.
%s
Example references:
- {"type": "step", "id": "step-123", "field": "output_data.answer"}
- {"type": "interaction", "id": "interaction-123"}

IMPORTANT: Make a clear binary decision about disqualification. If disqualified=true,
the test case will be skipped entirely. If disqualified=false, extract whatever data is
available (even if some fields are null). Missing data in individual fields does NOT
mean the test case should be disqualified.

Here is the additional context in which this particular raw input is situated:
<context_section>
%s
</context_section>

Here is the raw input data to extract from:
<raw_input_data>
%s
</raw_input_data>

Extract the judge inputs with proper citations.`,
		rawKind, schemaFields.String(), fields.String(), disqualificationSection, contextSection, rawJSON)
}

var rubricVariable = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderRubric substitutes {variable} placeholders with extracted item
// values. Pointwise inputs bind each item name directly; ranking inputs bind
// name_index per tuple position. An unbound placeholder is a hard error.
func RenderRubric(rubric string, inputs []annotation.JudgeInput, ranking bool) (string, error) {
	values := make(map[string]string)
	if ranking {
		for idx, input := range inputs {
			for _, item := range input.Items {
				values[fmt.Sprintf("%s_%d", item.Name, idx)] = item.Value
			}
		}
	} else {
		for _, input := range inputs {
			for _, item := range input.Items {
				values[item.Name] = item.Value
			}
		}
	}

	var missing []string
	rendered := rubricVariable.ReplaceAllStringFunc(rubric, func(m string) string {
		name := m[1 : len(m)-1]
		value, ok := values[name]
		if !ok {
			missing = append(missing, name)
			return m
		}
		return value
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing rubric variables %v", missing)
	}
	return rendered, nil
}

// buildJudgePrompt appends the spec-shaped response schema to the rendered rubric.
func buildJudgePrompt(renderedRubric string, spec feedback.Spec) string {
	var schema string
	switch spec.Kind {
	case feedback.SpecCategorical:
		schema = fmt.Sprintf(`{
  "category": "<one of %v>",
  "confidence": <0.0 to 1.0>,
  "reasoning": "<brief explanation of the evaluation>",
  "skip": <true if this test case is not applicable for evaluation>,
  "comment": "<why you skipped or annotated the test case a certain way>"
}`, spec.Categories)
	case feedback.SpecContinuous:
		schema = fmt.Sprintf(`{
  "score": <number from %v to %v>,
  "confidence": <0.0 to 1.0>,
  "reasoning": "<brief explanation of the evaluation>",
  "skip": <true if this test case is not applicable for evaluation>,
  "comment": "<why you skipped or annotated the test case a certain way>"
}`, spec.ScoreRange.Min(), spec.ScoreRange.Max())
	case feedback.SpecRanking:
		schema = fmt.Sprintf(`{
  "rankings": [<indices 0 to %d ranked from best to worst>],
  "skip": <true if this test case is not applicable for evaluation>,
  "comment": "<why you skipped or annotated the test case a certain way>"
}`, spec.ComparisonItems-1)
	}

	return fmt.Sprintf(`%s

Respond with a JSON object of this exact shape:
%s`, renderedRubric, schema)
}
