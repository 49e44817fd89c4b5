package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

// itemExtraction is the per-field shape inside the extraction response.
type itemExtraction struct {
	Value      *string                `json:"value"`
	References []annotation.Reference `json:"references"`
}

// Extractor turns raw trace objects into judge inputs via a structured LLM
// call. The response schema is dynamic over the config's input item names,
// so the client decodes into a raw field map and each field is decoded
// individually.
type Extractor struct {
	client *StructuredClient[map[string]json.RawMessage]
}

// NewExtractor creates an extractor backed by the given LLM config.
func NewExtractor(config Config) *Extractor {
	return &Extractor{client: NewStructuredClient[map[string]json.RawMessage](config)}
}

// Extract runs the matcher pre-filter, calls the model, validates every
// citation against the ids present in raw, and assembles the judge input.
// A disqualified verdict (from matchers or the model) returns
// core.ErrDisqualified so the caller can invalidate the test case.
func (e *Extractor) Extract(ctx context.Context, cfg feedback.Config, raw trace.Object, contextObj *trace.Object) (*annotation.JudgeInput, error) {
	if !feedback.MatchesAll(cfg.Matchers, raw) {
		return nil, fmt.Errorf("%w: attribute matchers rejected %s %s", core.ErrDisqualified, raw.Kind, raw.ID())
	}

	rawJSON, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode raw input: %v", core.ErrExtractionFailure, err)
	}
	contextJSON := ""
	if contextObj != nil {
		data, err := json.Marshal(contextObj)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode context: %v", core.ErrExtractionFailure, err)
		}
		contextJSON = string(data)
	}

	prompt := buildExtractionPrompt(cfg, string(rawJSON), contextJSON, raw.Kind)
	fields, err := e.client.GetJSONResponse(ctx, extractionSystemMessage, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrExtractionFailure, err)
	}

	if rawFlag, ok := (*fields)["disqualified"]; ok {
		var disqualified bool
		if err := json.Unmarshal(rawFlag, &disqualified); err == nil && disqualified {
			log.Printf("[Extractor] Model disqualified %s %s", raw.Kind, raw.ID())
			return nil, fmt.Errorf("%w: model marked input as not relevant", core.ErrDisqualified)
		}
	}

	space := annotation.NewIDSpace(raw)
	items := make([]annotation.ItemValue, 0, len(cfg.InputItems))
	for _, item := range cfg.InputItems {
		value := annotation.ItemValue{Name: item.Name, Description: item.Description}

		if rawField, ok := (*fields)[item.Name]; ok {
			var extracted itemExtraction
			if err := json.Unmarshal(rawField, &extracted); err != nil {
				return nil, fmt.Errorf("%w: malformed extraction for field %q: %v", core.ErrExtractionFailure, item.Name, err)
			}
			if extracted.Value != nil {
				value.Value = *extracted.Value
			}
			for _, ref := range extracted.References {
				if err := space.Validate(ref); err != nil {
					return nil, err
				}
			}
			value.References = extracted.References
		}
		if value.References == nil {
			value.References = []annotation.Reference{}
		}
		items = append(items, value)
	}

	input := annotation.NewJudgeInput(raw, items)
	return &input, nil
}
