package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/faultline/pkg/models"
)

const issueColumns = `id, signature, tracker, issue_id, issue_identifier, issue_url, title, environment,
	occurrence_count, total_occurrences, first_seen_at, last_seen_at, created_at, updated_at`

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// UpsertIssue records one occurrence. A new signature inserts a row; an existing
// one takes the new issue handle and per-issue count, adds to the lifetime total
// and keeps its first_seen_at. An empty issue_url never overwrites a known one.
func (s *PostgresStore) UpsertIssue(ctx context.Context, rec *models.IssueRecord) (*models.IssueRecord, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO error_issues (`+issueColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (signature) DO UPDATE SET
		   tracker = EXCLUDED.tracker,
		   issue_id = EXCLUDED.issue_id,
		   issue_identifier = EXCLUDED.issue_identifier,
		   issue_url = CASE
		     WHEN EXCLUDED.issue_url <> '' THEN EXCLUDED.issue_url
		     WHEN EXCLUDED.issue_id = error_issues.issue_id THEN error_issues.issue_url
		     ELSE '' END,
		   title = EXCLUDED.title,
		   environment = EXCLUDED.environment,
		   occurrence_count = EXCLUDED.occurrence_count,
		   total_occurrences = error_issues.total_occurrences + EXCLUDED.total_occurrences,
		   last_seen_at = GREATEST(error_issues.last_seen_at, EXCLUDED.last_seen_at),
		   updated_at = NOW()
		 RETURNING `+issueColumns,
		rec.ID, rec.Signature, rec.Tracker, rec.IssueID, rec.IssueIdentifier, rec.IssueURL,
		rec.Title, rec.Environment, rec.OccurrenceCount, rec.TotalOccurrences,
		rec.FirstSeenAt, rec.LastSeenAt, rec.CreatedAt, rec.UpdatedAt,
	)

	result, err := scanIssue(row)
	if err != nil {
		return nil, fmt.Errorf("upsert issue: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) ListIssues(ctx context.Context, filter IssueFilter) ([]*models.IssueRecord, int, error) {
	conditions := []string{"TRUE"}
	var args []any
	argIdx := 1

	if filter.Tracker != "" {
		conditions = append(conditions, fmt.Sprintf("tracker = $%d", argIdx))
		args = append(args, filter.Tracker)
		argIdx++
	}
	if filter.Environment != "" {
		conditions = append(conditions, fmt.Sprintf("environment = $%d", argIdx))
		args = append(args, filter.Environment)
		argIdx++
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, fmt.Sprintf("last_seen_at >= $%d", argIdx))
		args = append(args, filter.Since)
		argIdx++
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM error_issues WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count issues: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * limit

	dataQuery := fmt.Sprintf(
		`SELECT %s FROM error_issues WHERE %s ORDER BY last_seen_at DESC LIMIT $%d OFFSET $%d`,
		issueColumns, where, argIdx, argIdx+1)
	args = append(args, limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	var issues []*models.IssueRecord
	for rows.Next() {
		rec, err := scanIssue(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, rec)
	}
	return issues, total, rows.Err()
}

func (s *PostgresStore) GetIssue(ctx context.Context, signature string) (*models.IssueRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+issueColumns+` FROM error_issues WHERE signature = $1`, signature)

	rec, err := scanIssue(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return rec, nil
}

func scanIssue(row pgx.Row) (*models.IssueRecord, error) {
	var r models.IssueRecord
	err := row.Scan(&r.ID, &r.Signature, &r.Tracker, &r.IssueID, &r.IssueIdentifier, &r.IssueURL,
		&r.Title, &r.Environment, &r.OccurrenceCount, &r.TotalOccurrences,
		&r.FirstSeenAt, &r.LastSeenAt, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
