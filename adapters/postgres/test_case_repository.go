package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"goannotate/domain/annotation"
	"goannotate/domain/core"
	"goannotate/ports"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// TestCaseRepositoryImpl implements TestCaseRepository for PostgreSQL. The
// full test case document lives in a JSONB column; status, config id, and
// timestamps are promoted to real columns for indexed filtering.
type TestCaseRepositoryImpl struct {
	db *sqlx.DB
}

// Connect opens the database and ensures the schema exists.
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS test_cases (
	id          TEXT PRIMARY KEY,
	config_id   TEXT NOT NULL,
	status      TEXT NOT NULL,
	archived    BOOLEAN NOT NULL DEFAULT FALSE,
	doc         JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_test_cases_status ON test_cases (status) WHERE NOT archived;
CREATE INDEX IF NOT EXISTS idx_test_cases_config ON test_cases (config_id) WHERE NOT archived;
`

// NewTestCaseRepository creates a new PostgreSQL test case repository
func NewTestCaseRepository(db *sqlx.DB) ports.TestCaseRepository {
	return &TestCaseRepositoryImpl{db: db}
}

func (r *TestCaseRepositoryImpl) Create(ctx context.Context, tc *annotation.TestCase) error {
	doc, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to marshal test case %s: %w", tc.ID, err)
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO test_cases (id, config_id, status, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING`,
		tc.ID, tc.Config.ID, tc.Status, doc, tc.CreatedAt.Time(), tc.UpdatedAt.Time())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: test case %s already exists", core.ErrConsistency, tc.ID)
	}
	return nil
}

func (r *TestCaseRepositoryImpl) Get(ctx context.Context, id core.TestCaseID) (*annotation.TestCase, error) {
	var doc []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT doc FROM test_cases WHERE id = $1 AND NOT archived`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: test case %s", core.ErrTestCaseNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return unmarshalCase(doc)
}

func (r *TestCaseRepositoryImpl) Save(ctx context.Context, tc *annotation.TestCase) error {
	doc, err := json.Marshal(tc)
	if err != nil {
		return fmt.Errorf("failed to marshal test case %s: %w", tc.ID, err)
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE test_cases
		SET status = $2, doc = $3, updated_at = $4
		WHERE id = $1 AND NOT archived`,
		tc.ID, tc.Status, doc, tc.UpdatedAt.Time())
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: test case %s", core.ErrTestCaseNotFound, tc.ID)
	}
	return nil
}

func (r *TestCaseRepositoryImpl) List(ctx context.Context) ([]*annotation.TestCase, error) {
	return r.query(ctx, `
		SELECT doc FROM test_cases
		WHERE NOT archived
		ORDER BY created_at ASC
		LIMIT $1`, ports.MaxTestCases)
}

func (r *TestCaseRepositoryImpl) ListByStatus(ctx context.Context, status annotation.Status) ([]*annotation.TestCase, error) {
	return r.query(ctx, `
		SELECT doc FROM test_cases
		WHERE status = $1 AND NOT archived
		ORDER BY created_at ASC
		LIMIT $2`, status, ports.MaxTestCases)
}

func (r *TestCaseRepositoryImpl) ListByConfig(ctx context.Context, configID core.ConfigID) ([]*annotation.TestCase, error) {
	return r.query(ctx, `
		SELECT doc FROM test_cases
		WHERE config_id = $1 AND NOT archived
		ORDER BY created_at ASC
		LIMIT $2`, configID, ports.MaxTestCases)
}

func (r *TestCaseRepositoryImpl) CountByStatus(ctx context.Context, configID core.ConfigID) (map[annotation.Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM test_cases
		WHERE config_id = $1 AND NOT archived
		GROUP BY status`, configID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[annotation.Status]int, len(annotation.AllStatuses))
	for _, status := range annotation.AllStatuses {
		counts[status] = 0
	}
	for rows.Next() {
		var status annotation.Status
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// ArchiveByConfig flags human-annotated cases for the config as archived so
// they drop out of the active set while their annotations stay queryable.
func (r *TestCaseRepositoryImpl) ArchiveByConfig(ctx context.Context, configID core.ConfigID) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE test_cases SET archived = TRUE
		WHERE config_id = $1 AND NOT archived AND doc ? 'human_annotation'`, configID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *TestCaseRepositoryImpl) query(ctx context.Context, q string, args ...any) ([]*annotation.TestCase, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []*annotation.TestCase
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		tc, err := unmarshalCase(doc)
		if err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

func unmarshalCase(doc []byte) (*annotation.TestCase, error) {
	var tc annotation.TestCase
	if err := json.Unmarshal(doc, &tc); err != nil {
		return nil, fmt.Errorf("failed to parse test case document: %w", err)
	}
	return &tc, nil
}
