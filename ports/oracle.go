package ports

import (
	"context"

	"goannotate/domain/annotation"
	"goannotate/domain/feedback"
	"goannotate/domain/trace"
)

// Extractor turns one raw trace object into a judge input per the config's
// input item schema. Implementations must validate every citation against
// the ids contained in the raw object and honor the disqualifier.
type Extractor interface {
	Extract(ctx context.Context, cfg feedback.Config, raw trace.Object, contextObj *trace.Object) (*annotation.JudgeInput, error)
}

// Judge produces the AI annotation for a summarized test case. A skip
// verdict yields the placeholder annotation, never an error.
type Judge interface {
	Judge(ctx context.Context, tc *annotation.TestCase) (*annotation.Annotation, error)
}
