package filestore

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"goannotate/domain/core"
	"goannotate/domain/trace"
)

// InteractionStore reads and writes interaction records laid out as one
// directory per interaction:
//
//	<root>/<interaction_id>/metadata.json
//	<root>/<interaction_id>/steps.jsonl
//
// steps.jsonl holds one step document per line.
type InteractionStore struct {
	dir string
}

func NewInteractionStore(dir string) (*InteractionStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create interaction dir: %w", err)
	}
	return &InteractionStore{dir: dir}, nil
}

func (s *InteractionStore) WriteInteraction(ctx context.Context, interactionID string, metadata map[string]any, steps []trace.Step) error {
	recordDir := filepath.Join(s.dir, interactionID)
	if err := os.MkdirAll(recordDir, 0o755); err != nil {
		return fmt.Errorf("failed to create interaction record dir: %w", err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadata["id"] = interactionID
	metaBytes, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal interaction metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(recordDir, "metadata.json"), metaBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata.json: %w", err)
	}

	f, err := os.Create(filepath.Join(recordDir, "steps.jsonl"))
	if err != nil {
		return fmt.Errorf("failed to create steps.jsonl: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, step := range steps {
		if err := enc.Encode(step); err != nil {
			return fmt.Errorf("failed to encode step %s: %w", step.ID, err)
		}
	}
	return w.Flush()
}

func (s *InteractionStore) ListSteps(ctx context.Context) ([]trace.Step, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read interaction dir: %w", err)
	}

	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	sort.Strings(dirs)

	var steps []trace.Step
	for _, name := range dirs {
		recorded, err := s.readSteps(filepath.Join(s.dir, name, "steps.jsonl"))
		if err != nil {
			return nil, err
		}
		steps = append(steps, recorded...)
	}
	return steps, nil
}

func (s *InteractionStore) GetStep(ctx context.Context, stepID string) (*trace.Step, error) {
	steps, err := s.ListSteps(ctx)
	if err != nil {
		return nil, err
	}
	for i := range steps {
		if steps[i].ID == stepID {
			return &steps[i], nil
		}
	}
	return nil, fmt.Errorf("%w: step %s", core.ErrNotFound, stepID)
}

func (s *InteractionStore) ListInteractionSteps(ctx context.Context, interactionID string) ([]trace.Step, error) {
	path := filepath.Join(s.dir, interactionID, "steps.jsonl")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: interaction %s", core.ErrNotFound, interactionID)
	}
	return s.readSteps(path)
}

func (s *InteractionStore) readSteps(path string) ([]trace.Step, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var steps []trace.Step
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var step trace.Step
		if err := json.Unmarshal(line, &step); err != nil {
			return nil, fmt.Errorf("failed to parse step line in %s: %w", path, err)
		}
		steps = append(steps, step)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", path, err)
	}
	return steps, nil
}
