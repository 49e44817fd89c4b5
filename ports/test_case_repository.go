package ports

import (
	"context"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
)

// MaxTestCases caps how many test cases any enumeration returns. Generation
// and listing both honor it so a runaway config cannot flood the store.
const MaxTestCases = 100

// TestCaseRepository defines the interface for test case persistence
type TestCaseRepository interface {
	// Create persists a new test case; fails if the id already exists
	Create(ctx context.Context, tc *annotation.TestCase) error

	// Get retrieves a test case by id
	Get(ctx context.Context, id core.TestCaseID) (*annotation.TestCase, error)

	// Save rewrites an existing test case in full
	Save(ctx context.Context, tc *annotation.TestCase) error

	// List returns up to MaxTestCases cases, oldest first
	List(ctx context.Context) ([]*annotation.TestCase, error)

	// ListByStatus returns cases in the given status, oldest first
	ListByStatus(ctx context.Context, status annotation.Status) ([]*annotation.TestCase, error)

	// ListByConfig returns cases generated under the given config id
	ListByConfig(ctx context.Context, configID core.ConfigID) ([]*annotation.TestCase, error)

	// CountByStatus returns a count per lifecycle status
	CountByStatus(ctx context.Context, configID core.ConfigID) (map[annotation.Status]int, error)

	// ArchiveByConfig moves annotated cases for a config out of the active
	// set and returns how many were archived
	ArchiveByConfig(ctx context.Context, configID core.ConfigID) (int, error)
}
