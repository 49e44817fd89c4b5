package ports

import (
	"context"

	"goannotate/domain/trace"
)

// InteractionReader loads interaction step records from the trace store
type InteractionReader interface {
	// ListSteps returns every persisted step across all recorded interactions
	ListSteps(ctx context.Context) ([]trace.Step, error)

	// GetStep retrieves a single step by id
	GetStep(ctx context.Context, stepID string) (*trace.Step, error)

	// ListInteractionSteps returns the steps recorded under one interaction id
	ListInteractionSteps(ctx context.Context, interactionID string) ([]trace.Step, error)
}

// InteractionWriter records interaction metadata and steps
type InteractionWriter interface {
	// WriteInteraction persists an interaction record with its steps
	WriteInteraction(ctx context.Context, interactionID string, metadata map[string]any, steps []trace.Step) error
}
