package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/domain/trace"
	"goannotate/ports"
)

// invalidReasonLimit truncates stored failure reasons.
const invalidReasonLimit = 200

// ProcessorService drives pending and summarized test cases through
// extraction and judgment. Failures invalidate the single affected case and
// never abort the batch.
type ProcessorService struct {
	testCases ports.TestCaseRepository
	extractor ports.Extractor
	judge     ports.Judge

	interactions []trace.Interaction
	groups       []trace.Group

	maxConcurrent int
	pollInterval  time.Duration
}

// NewProcessorService creates a processor over the recorded step set. The
// interactions and groups are rebuilt once so per-case context lookups are
// cheap.
func NewProcessorService(testCases ports.TestCaseRepository, extractor ports.Extractor, judge ports.Judge, steps []trace.Step, maxConcurrent int, pollInterval time.Duration) *ProcessorService {
	if maxConcurrent <= 0 {
		maxConcurrent = 20
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	return &ProcessorService{
		testCases:     testCases,
		extractor:     extractor,
		judge:         judge,
		interactions:  trace.BuildInteractions(steps),
		groups:        trace.BuildGroups(steps),
		maxConcurrent: maxConcurrent,
		pollInterval:  pollInterval,
	}
}

// contextFor resolves the surrounding interaction or group for a raw object
// per the config's requires_context setting.
func (s *ProcessorService) contextFor(tc *annotation.TestCase, raw trace.Object) *trace.Object {
	if tc.Config.RequiresContext == nil {
		return nil
	}
	switch *tc.Config.RequiresContext {
	case trace.KindInteraction:
		id := raw.InteractionContextID()
		if id == nil {
			return nil
		}
		for i := range s.interactions {
			if s.interactions[i].ID == *id {
				obj := trace.InteractionObject(s.interactions[i])
				return &obj
			}
		}
	case trace.KindGroup:
		id := raw.GroupContextID()
		if id == nil {
			return nil
		}
		for i := range s.groups {
			if s.groups[i].ID == *id {
				obj := trace.GroupObject(s.groups[i])
				return &obj
			}
		}
	}
	return nil
}

// ProcessBatch runs the cases in sequential windows of maxConcurrent. Each
// case's outcome status is returned keyed by id.
func (s *ProcessorService) ProcessBatch(ctx context.Context, cases []*annotation.TestCase) map[core.TestCaseID]annotation.Status {
	results := make(map[core.TestCaseID]annotation.Status, len(cases))

	for start := 0; start < len(cases); start += s.maxConcurrent {
		end := start + s.maxConcurrent
		if end > len(cases) {
			end = len(cases)
		}
		window := cases[start:end]

		outcomes := make([]annotation.Status, len(window))
		g, gctx := errgroup.WithContext(ctx)
		for i, tc := range window {
			i, tc := i, tc
			g.Go(func() error {
				outcomes[i] = s.processOne(gctx, tc)
				return nil
			})
		}
		g.Wait()

		for i, tc := range window {
			results[tc.ID] = outcomes[i]
		}
	}
	return results
}

// processOne advances a single case as far as it can go: extraction if judge
// inputs are missing, then judgment if no AI annotation exists yet. Any
// failure marks the case invalid with a truncated reason.
func (s *ProcessorService) processOne(ctx context.Context, tc *annotation.TestCase) annotation.Status {
	if tc.NeedsExtraction() {
		inputs := make([]annotation.JudgeInput, 0, len(tc.Raws()))
		for _, raw := range tc.Raws() {
			input, err := s.extractor.Extract(ctx, tc.Config, raw, s.contextFor(tc, raw))
			if err != nil {
				if errors.Is(err, core.ErrDisqualified) {
					return s.invalidate(ctx, tc, "Disqualified during judge input extraction")
				}
				if cancelled(ctx, err) {
					log.Printf("[Processor] Cancelled while extracting %s, leaving it for the next run", tc.ID)
					return tc.Status
				}
				return s.invalidate(ctx, tc, fmt.Sprintf("Error during processing: %s", truncate(err.Error(), invalidReasonLimit)))
			}
			inputs = append(inputs, *input)
		}
		if err := tc.SetJudgeInputs(inputs); err != nil {
			return s.invalidate(ctx, tc, truncate(err.Error(), invalidReasonLimit))
		}
		if err := s.testCases.Save(ctx, tc); err != nil {
			log.Printf("[Processor] ERROR: failed to save summarized case %s: %v", tc.ID, err)
			return tc.Status
		}
	}

	if tc.AIAnnotation == nil {
		ann, err := s.judge.Judge(ctx, tc)
		if err != nil {
			if cancelled(ctx, err) {
				log.Printf("[Processor] Cancelled while judging %s, leaving it for the next run", tc.ID)
				return tc.Status
			}
			return s.invalidate(ctx, tc, fmt.Sprintf("Error during processing: %s", truncate(err.Error(), invalidReasonLimit)))
		}
		tc.SetAIAnnotation(*ann)
		if err := s.testCases.Save(ctx, tc); err != nil {
			log.Printf("[Processor] ERROR: failed to save annotated case %s: %v", tc.ID, err)
		}
	}
	return tc.Status
}

// cancelled distinguishes shutdown cancellation from a processing fault. A
// cancelled case keeps its current status so the next run retries it;
// invalidating it would be unrecoverable since invalid is absorbing.
func cancelled(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func (s *ProcessorService) invalidate(ctx context.Context, tc *annotation.TestCase, reason string) annotation.Status {
	tc.MarkInvalid(reason)
	if err := s.testCases.Save(ctx, tc); err != nil {
		log.Printf("[Processor] ERROR: failed to save invalid case %s: %v", tc.ID, err)
	}
	return annotation.StatusInvalid
}

// Run polls the store until ctx is cancelled, processing summarized cases
// before pending ones so judgment-only work is never starved by a backlog
// of fresh extractions.
func (s *ProcessorService) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		summarized, err := s.testCases.ListByStatus(ctx, annotation.StatusSummarized)
		if err != nil {
			log.Printf("[Processor] ERROR: failed to list summarized cases: %v", err)
		}
		pending, err := s.testCases.ListByStatus(ctx, annotation.StatusPending)
		if err != nil {
			log.Printf("[Processor] ERROR: failed to list pending cases: %v", err)
		}

		if toProcess := append(summarized, pending...); len(toProcess) > 0 {
			log.Printf("[Processor] Processing %d test cases (%d summarized, %d pending)", len(toProcess), len(summarized), len(pending))
			s.ProcessBatch(ctx, toProcess)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
