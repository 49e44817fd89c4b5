package trace

import (
	"encoding/json"
	"fmt"
)

// Kind discriminates the three raw object shapes. It doubles as the
// evaluation granularity of a feedback config.
type Kind string

const (
	KindStep        Kind = "step"
	KindInteraction Kind = "interaction"
	KindGroup       Kind = "group"
)

// Valid reports whether k is one of the three known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindStep, KindInteraction, KindGroup:
		return true
	}
	return false
}

// Coarseness orders kinds from finest (step) to coarsest (group).
func (k Kind) Coarseness() int {
	switch k {
	case KindStep:
		return 0
	case KindInteraction:
		return 1
	case KindGroup:
		return 2
	}
	return -1
}

// Object is the tagged union over the three raw input shapes. Exactly one of
// Step/Interaction/Group is set, matching Kind. Consumers switch on Kind
// exhaustively rather than type-asserting.
type Object struct {
	Kind        Kind
	Step        *Step
	Interaction *Interaction
	Group       *Group
}

// StepObject wraps a step as a raw object.
func StepObject(s Step) Object { return Object{Kind: KindStep, Step: &s} }

// InteractionObject wraps an interaction as a raw object.
func InteractionObject(i Interaction) Object { return Object{Kind: KindInteraction, Interaction: &i} }

// GroupObject wraps a group as a raw object.
func GroupObject(g Group) Object { return Object{Kind: KindGroup, Group: &g} }

// ID returns the identity of the wrapped object.
func (o Object) ID() string {
	switch o.Kind {
	case KindStep:
		return o.Step.ID
	case KindInteraction:
		return o.Interaction.ID
	case KindGroup:
		return o.Group.ID
	}
	return ""
}

// InteractionContextID returns the id of the interaction that provides
// context for this object, if any.
func (o Object) InteractionContextID() *string {
	switch o.Kind {
	case KindStep:
		return o.Step.InteractionID
	case KindInteraction:
		id := o.Interaction.ID
		return &id
	case KindGroup:
		return nil
	}
	return nil
}

// GroupContextID returns the id of the group that provides context for this
// object, if any.
func (o Object) GroupContextID() *string {
	switch o.Kind {
	case KindStep:
		return o.Step.GroupID
	case KindInteraction:
		return o.Interaction.GroupID
	case KindGroup:
		id := o.Group.ID
		return &id
	}
	return nil
}

// Value returns the wrapped value for uniform attribute resolution.
func (o Object) Value() any {
	switch o.Kind {
	case KindStep:
		return o.Step
	case KindInteraction:
		return o.Interaction
	case KindGroup:
		return o.Group
	}
	return nil
}

type objectEnvelope struct {
	Kind        Kind         `json:"kind"`
	Step        *Step        `json:"step,omitempty"`
	Interaction *Interaction `json:"interaction,omitempty"`
	Group       *Group       `json:"group,omitempty"`
}

// MarshalJSON writes the union with an explicit discriminator.
func (o Object) MarshalJSON() ([]byte, error) {
	if !o.Kind.Valid() {
		return nil, fmt.Errorf("cannot marshal raw object with kind %q", o.Kind)
	}
	return json.Marshal(objectEnvelope{Kind: o.Kind, Step: o.Step, Interaction: o.Interaction, Group: o.Group})
}

// UnmarshalJSON reads the union and checks the discriminator matches the payload.
func (o *Object) UnmarshalJSON(data []byte) error {
	var env objectEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	if !env.Kind.Valid() {
		return fmt.Errorf("unknown raw object kind %q", env.Kind)
	}
	*o = Object(env)
	switch o.Kind {
	case KindStep:
		if o.Step == nil {
			return fmt.Errorf("raw object kind %q missing step payload", o.Kind)
		}
	case KindInteraction:
		if o.Interaction == nil {
			return fmt.Errorf("raw object kind %q missing interaction payload", o.Kind)
		}
	case KindGroup:
		if o.Group == nil {
			return fmt.Errorf("raw object kind %q missing group payload", o.Kind)
		}
	}
	return nil
}
