package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/ports"
)

const archiveDirName = "archived_annotations"

// TestCaseRepository stores test cases as one tc_<id>.json file each under a
// root directory. Saves rewrite the whole file. A process-wide mutex keeps
// concurrent pipeline writers from interleaving partial files.
type TestCaseRepository struct {
	dir string
	mu  sync.Mutex
}

// NewTestCaseRepository creates the directory if needed.
func NewTestCaseRepository(dir string) (*TestCaseRepository, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create test case dir: %w", err)
	}
	return &TestCaseRepository{dir: dir}, nil
}

func (r *TestCaseRepository) path(id core.TestCaseID) string {
	return filepath.Join(r.dir, "tc_"+string(id)+".json")
}

func (r *TestCaseRepository) Create(ctx context.Context, tc *annotation.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := os.Stat(r.path(tc.ID)); err == nil {
		return fmt.Errorf("%w: test case %s already exists", core.ErrConsistency, tc.ID)
	}
	return r.write(tc)
}

func (r *TestCaseRepository) Get(ctx context.Context, id core.TestCaseID) (*annotation.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read(r.path(id))
}

func (r *TestCaseRepository) Save(ctx context.Context, tc *annotation.TestCase) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := os.Stat(r.path(tc.ID)); err != nil {
		return fmt.Errorf("%w: test case %s", core.ErrTestCaseNotFound, tc.ID)
	}
	return r.write(tc)
}

func (r *TestCaseRepository) List(ctx context.Context) ([]*annotation.TestCase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadAll()
}

func (r *TestCaseRepository) ListByStatus(ctx context.Context, status annotation.Status) ([]*annotation.TestCase, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*annotation.TestCase
	for _, tc := range all {
		if tc.Status == status {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (r *TestCaseRepository) ListByConfig(ctx context.Context, configID core.ConfigID) ([]*annotation.TestCase, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []*annotation.TestCase
	for _, tc := range all {
		if tc.Config.ID == configID {
			out = append(out, tc)
		}
	}
	return out, nil
}

func (r *TestCaseRepository) CountByStatus(ctx context.Context, configID core.ConfigID) (map[annotation.Status]int, error) {
	cases, err := r.ListByConfig(ctx, configID)
	if err != nil {
		return nil, err
	}
	counts := make(map[annotation.Status]int, len(annotation.AllStatuses))
	for _, status := range annotation.AllStatuses {
		counts[status] = 0
	}
	for _, tc := range cases {
		counts[tc.Status]++
	}
	return counts, nil
}

// ArchiveByConfig moves every human-annotated case for the config into
// archived_annotations/<config_id>/ and returns how many moved. Archived
// cases disappear from all listings.
func (r *TestCaseRepository) ArchiveByConfig(ctx context.Context, configID core.ConfigID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	all, err := r.loadAll()
	if err != nil {
		return 0, err
	}

	archiveDir := filepath.Join(r.dir, archiveDirName, string(configID))
	archived := 0
	for _, tc := range all {
		if tc.Config.ID != configID || tc.HumanAnnotation == nil {
			continue
		}
		if archived == 0 {
			if err := os.MkdirAll(archiveDir, 0o755); err != nil {
				return 0, fmt.Errorf("failed to create archive dir: %w", err)
			}
		}
		src := r.path(tc.ID)
		dst := filepath.Join(archiveDir, filepath.Base(src))
		if err := os.Rename(src, dst); err != nil {
			return archived, fmt.Errorf("failed to archive test case %s: %w", tc.ID, err)
		}
		archived++
	}
	return archived, nil
}

func (r *TestCaseRepository) write(tc *annotation.TestCase) error {
	data, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal test case %s: %w", tc.ID, err)
	}
	if err := os.WriteFile(r.path(tc.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write test case %s: %w", tc.ID, err)
	}
	return nil
}

func (r *TestCaseRepository) read(path string) (*annotation.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrTestCaseNotFound, filepath.Base(path))
		}
		return nil, fmt.Errorf("failed to read test case file: %w", err)
	}
	var tc annotation.TestCase
	if err := json.Unmarshal(data, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse test case file %s: %w", filepath.Base(path), err)
	}
	return &tc, nil
}

// loadAll reads at most ports.MaxTestCases files, ordered by creation time
// then filename for a stable tie-break.
func (r *TestCaseRepository) loadAll() ([]*annotation.TestCase, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read test case dir: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "tc_") || !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > ports.MaxTestCases {
		names = names[:ports.MaxTestCases]
	}

	cases := make([]*annotation.TestCase, 0, len(names))
	for _, name := range names {
		tc, err := r.read(filepath.Join(r.dir, name))
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	sort.SliceStable(cases, func(i, j int) bool {
		return cases[i].CreatedAt.Before(cases[j].CreatedAt)
	})
	return cases, nil
}
