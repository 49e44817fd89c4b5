package trace

// Message is a minimal representation of an LLM message inside a step.
type Message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

// TokenUsage holds token accounting for an LLM invocation.
type TokenUsage struct {
	InputTokens  *int `json:"input_tokens,omitempty"`
	OutputTokens *int `json:"output_tokens,omitempty"`
	TotalTokens  *int `json:"total_tokens,omitempty"`
}

// Step is a single atomic operation in an application trace: an API call,
// LLM invocation, tool call, database query. Steps are ingested once and
// read-only afterwards; interactions and groups are derived views over them.
type Step struct {
	ID            string            `json:"id"`
	ParentStepID  *string           `json:"parent_step_id,omitempty"`
	InteractionID *string           `json:"interaction_id,omitempty"`
	GroupID       *string           `json:"group_id,omitempty"`
	Name          *string           `json:"name,omitempty"`
	StartNs       *int64            `json:"start_ns,omitempty"`
	DurationNs    *int64            `json:"duration_ns,omitempty"`
	InputData     any               `json:"input_data,omitempty"`
	OutputData    any               `json:"output_data,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`

	// Optional LLM-specific fields, populated when the step is a model call
	Model          *string    `json:"model,omitempty"`
	InputMessages  []Message  `json:"input_messages,omitempty"`
	OutputMessages []Message  `json:"output_messages,omitempty"`
	Usage          *TokenUsage `json:"usage,omitempty"`
	Provider       *string    `json:"provider,omitempty"`
}

// Interaction aggregates all steps sharing an interaction id. It is rebuilt
// from the step set on every aggregation pass, never stored as its own source
// of truth.
type Interaction struct {
	ID          string         `json:"id"`
	Steps       []Step         `json:"steps"`
	StartNs     *int64         `json:"start_ns,omitempty"`
	GroupID     *string        `json:"group_id,omitempty"`
	DurationNs  *int64         `json:"duration_ns,omitempty"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Tags        map[string]any `json:"tags,omitempty"`
}

// Group aggregates all interactions sharing a group id. Interactions without
// one land in the reserved DefaultGroupID bucket.
type Group struct {
	ID           string        `json:"id"`
	Interactions []Interaction `json:"interactions"`
}

// DefaultGroupID is the reserved bucket for interactions with no group id.
const DefaultGroupID = "default_group"
