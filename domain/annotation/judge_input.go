package annotation

import (
	"fmt"

	"goannotate/domain/core"
	"goannotate/domain/trace"
)

// Reference is a provenance pointer from an extracted value back to a
// step/interaction/group and, optionally, a field path inside it.
type Reference struct {
	Kind  trace.Kind `json:"type"`
	ID    string     `json:"id"`
	Field *string    `json:"field,omitempty"`
}

// ItemValue is one input item with its extracted value and citations.
type ItemValue struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Value       string      `json:"value"`
	References  []Reference `json:"references"`
}

// JudgeInput is the extracted, citation-annotated value set for one raw
// object, ready for judgment.
type JudgeInput struct {
	ID         core.ID      `json:"id"`
	SourceType trace.Kind   `json:"source_type"`
	SourceIDs  []string     `json:"source_ids"`
	Items      []ItemValue  `json:"input_items"`
	RawInput   trace.Object `json:"raw_input"`
}

// NewJudgeInput builds a judge input derived from raw.
func NewJudgeInput(raw trace.Object, items []ItemValue) JudgeInput {
	return JudgeInput{
		ID:         core.NewID(),
		SourceType: raw.Kind,
		SourceIDs:  []string{raw.ID()},
		Items:      items,
		RawInput:   raw,
	}
}

// IDSpace collects every step/interaction/group id reachable inside a raw
// object. Extraction references must resolve within this space.
type IDSpace struct {
	Steps        map[string]bool
	Interactions map[string]bool
	Groups       map[string]bool
}

// NewIDSpace walks the raw object and records all contained ids.
func NewIDSpace(raw trace.Object) IDSpace {
	space := IDSpace{
		Steps:        make(map[string]bool),
		Interactions: make(map[string]bool),
		Groups:       make(map[string]bool),
	}
	switch raw.Kind {
	case trace.KindStep:
		space.Steps[raw.Step.ID] = true
	case trace.KindInteraction:
		space.Interactions[raw.Interaction.ID] = true
		for _, step := range raw.Interaction.Steps {
			space.Steps[step.ID] = true
		}
	case trace.KindGroup:
		space.Groups[raw.Group.ID] = true
		for _, interaction := range raw.Group.Interactions {
			space.Interactions[interaction.ID] = true
			for _, step := range interaction.Steps {
				space.Steps[step.ID] = true
			}
		}
	}
	return space
}

// Validate checks that a reference points at an id contained in the space.
func (s IDSpace) Validate(ref Reference) error {
	var ok bool
	switch ref.Kind {
	case trace.KindStep:
		ok = s.Steps[ref.ID]
	case trace.KindInteraction:
		ok = s.Interactions[ref.ID]
	case trace.KindGroup:
		ok = s.Groups[ref.ID]
	default:
		return fmt.Errorf("%w: reference has unknown kind %q", core.ErrExtractionFailure, ref.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: reference to %s %q not found in raw input", core.ErrExtractionFailure, ref.Kind, ref.ID)
	}
	return nil
}
