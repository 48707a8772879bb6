package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/track"
	_ "github.com/mattn/go-sqlite3"
)

// Store implements the track.Storage interface using SQLite.
type Store struct {
	db *sql.DB
}

// RunRecord stores metadata about one completed analysis run.
type RunRecord struct {
	RunID       string
	SessionID   string
	StartedAt   time.Time
	Duration    time.Duration
	TotalIssues int
	Analyzers   []string
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for an in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return s, nil
}

func (s *Store) createSchema() error {
	schema := `
	-- Canonical issue state per session. Issue IDs are deterministic
	-- content hashes, so the same ID can appear in multiple sessions;
	-- the session is part of the key.
	CREATE TABLE IF NOT EXISTS issues (
		issue_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		category TEXT NOT NULL,
		severity TEXT NOT NULL,
		file TEXT NOT NULL,
		line INTEGER NOT NULL,
		col INTEGER DEFAULT 0,
		end_line INTEGER DEFAULT 0,
		end_column INTEGER DEFAULT 0,
		message TEXT NOT NULL,
		description TEXT,
		suggestion TEXT,
		snippet TEXT,
		metadata TEXT,
		status TEXT NOT NULL,
		retry_count INTEGER DEFAULT 0,
		last_error TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		resolved_at INTEGER,
		PRIMARY KEY (session_id, issue_id)
	);

	-- Metadata about each analysis run
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		total_issues INTEGER NOT NULL,
		analyzers TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_issues_status ON issues(session_id, status);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// InsertIssue upserts a single issue.
func (s *Store) InsertIssue(ctx context.Context, sessionID string, issue domain.Issue) error {
	return s.BulkInsertIssues(ctx, sessionID, []domain.Issue{issue})
}

// BulkInsertIssues upserts issues in a single transaction. Upserting on
// the (session, id) pair keeps at-least-once writes idempotent without
// letting sessions overwrite each other.
func (s *Store) BulkInsertIssues(ctx context.Context, sessionID string, issues []domain.Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO issues (issue_id, session_id, category, severity, file, line, col, end_line, end_column,
			message, description, suggestion, snippet, metadata, status, retry_count, last_error,
			created_at, updated_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id, issue_id) DO UPDATE SET
			status = excluded.status,
			retry_count = excluded.retry_count,
			last_error = excluded.last_error,
			updated_at = excluded.updated_at,
			resolved_at = excluded.resolved_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, issue := range issues {
		metadata, err := marshalMetadata(issue.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", issue.ID, err)
		}

		var resolvedAt interface{}
		if issue.ResolvedAt != nil {
			resolvedAt = issue.ResolvedAt.Unix()
		}

		if _, err := stmt.ExecContext(ctx,
			issue.ID,
			sessionID,
			string(issue.Category),
			string(issue.Severity),
			issue.File,
			issue.Line,
			issue.Column,
			issue.EndLine,
			issue.EndColumn,
			issue.Message,
			issue.Description,
			issue.Suggestion,
			issue.Snippet,
			metadata,
			string(issue.Status),
			issue.RetryCount,
			issue.LastError,
			issue.CreatedAt.Unix(),
			issue.UpdatedAt.Unix(),
			resolvedAt,
		); err != nil {
			return fmt.Errorf("failed to insert issue %s: %w", issue.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// UpdateIssue applies a partial update to one issue within a session.
func (s *Store) UpdateIssue(ctx context.Context, sessionID, id string, update track.IssueUpdate) error {
	query, args := buildUpdate(update)
	args = append(args, sessionID, id)

	result, err := s.db.ExecContext(ctx, fmt.Sprintf("UPDATE issues SET %s WHERE session_id = ? AND issue_id = ?", query), args...)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("issue not found: %s", id)
	}
	return nil
}

// BulkUpdateIssues applies the same partial update to many issues in one
// transaction.
func (s *Store) BulkUpdateIssues(ctx context.Context, sessionID string, ids []string, update track.IssueUpdate) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query, args := buildUpdate(update)
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("UPDATE issues SET %s WHERE session_id = ? AND issue_id = ?", query))
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		rowArgs := append(append([]interface{}{}, args...), sessionID, id)
		if _, err := stmt.ExecContext(ctx, rowArgs...); err != nil {
			return fmt.Errorf("failed to update issue %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func buildUpdate(update track.IssueUpdate) (string, []interface{}) {
	clauses := []string{"updated_at = ?"}
	args := []interface{}{update.UpdatedAt.Unix()}

	if update.Status != nil {
		clauses = append(clauses, "status = ?")
		args = append(args, string(*update.Status))
	}
	if update.RetryCount != nil {
		clauses = append(clauses, "retry_count = ?")
		args = append(args, *update.RetryCount)
	}
	if update.LastError != nil {
		clauses = append(clauses, "last_error = ?")
		args = append(args, *update.LastError)
	}
	if update.ResolvedAt != nil {
		clauses = append(clauses, "resolved_at = ?")
		args = append(args, update.ResolvedAt.Unix())
	}

	return strings.Join(clauses, ", "), args
}

const issueColumns = `issue_id, category, severity, file, line, col, end_line, end_column,
	message, description, suggestion, snippet, metadata, status, retry_count, last_error,
	created_at, updated_at, resolved_at`

// GetIssue retrieves a single issue by ID within a session.
func (s *Store) GetIssue(ctx context.Context, sessionID, id string) (domain.Issue, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT %s FROM issues WHERE session_id = ? AND issue_id = ?", issueColumns), sessionID, id)

	issue, err := scanIssue(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Issue{}, fmt.Errorf("issue not found: %s", id)
		}
		return domain.Issue{}, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

// GetIssues retrieves issues for a session, newest-insertion first is not
// guaranteed; rows come back in created_at then file order for stable
// iteration.
func (s *Store) GetIssues(ctx context.Context, sessionID string, filter track.IssueFilter) ([]domain.Issue, error) {
	where := []string{"session_id = ?"}
	args := []interface{}{sessionID}

	if len(filter.Statuses) > 0 {
		where = append(where, inClause("status", len(filter.Statuses)))
		for _, status := range filter.Statuses {
			args = append(args, string(status))
		}
	}
	if len(filter.Categories) > 0 {
		where = append(where, inClause("category", len(filter.Categories)))
		for _, category := range filter.Categories {
			args = append(args, string(category))
		}
	}
	if len(filter.Severities) > 0 {
		where = append(where, inClause("severity", len(filter.Severities)))
		for _, severity := range filter.Severities {
			args = append(args, string(severity))
		}
	}
	if filter.File != "" {
		where = append(where, "file = ?")
		args = append(args, filter.File)
	}

	query := fmt.Sprintf("SELECT %s FROM issues WHERE %s ORDER BY created_at ASC, file ASC, line ASC",
		issueColumns, strings.Join(where, " AND "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get issues: %w", err)
	}
	defer rows.Close()

	var issues []domain.Issue
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}
	return issues, nil
}

func inClause(column string, n int) string {
	return fmt.Sprintf("%s IN (%s)", column, strings.TrimSuffix(strings.Repeat("?,", n), ","))
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row scanner) (domain.Issue, error) {
	var issue domain.Issue
	var category, severity, status string
	var description, suggestion, snippet, metadata, lastError sql.NullString
	var createdAt, updatedAt int64
	var resolvedAt sql.NullInt64

	if err := row.Scan(
		&issue.ID,
		&category,
		&severity,
		&issue.File,
		&issue.Line,
		&issue.Column,
		&issue.EndLine,
		&issue.EndColumn,
		&issue.Message,
		&description,
		&suggestion,
		&snippet,
		&metadata,
		&status,
		&issue.RetryCount,
		&lastError,
		&createdAt,
		&updatedAt,
		&resolvedAt,
	); err != nil {
		return domain.Issue{}, err
	}

	issue.Category = domain.Category(category)
	issue.Severity = domain.Severity(severity)
	issue.Status = domain.Status(status)
	issue.Description = description.String
	issue.Suggestion = suggestion.String
	issue.Snippet = snippet.String
	issue.LastError = lastError.String
	issue.CreatedAt = time.Unix(createdAt, 0)
	issue.UpdatedAt = time.Unix(updatedAt, 0)
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0)
		issue.ResolvedAt = &t
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &issue.Metadata); err != nil {
			return domain.Issue{}, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return issue, nil
}

func marshalMetadata(metadata map[string]interface{}) (interface{}, error) {
	if len(metadata) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(metadata)
	if err != nil {
		return nil, err
	}
	return string(encoded), nil
}

// DeleteIssues removes every issue belonging to a session.
func (s *Store) DeleteIssues(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM issues WHERE session_id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete issues: %w", err)
	}
	return nil
}

// SaveRun records metadata about a completed analysis run.
func (s *Store) SaveRun(ctx context.Context, run RunRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, session_id, started_at, duration_ms, total_issues, analyzers)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		run.RunID,
		run.SessionID,
		run.StartedAt.Unix(),
		run.Duration.Milliseconds(),
		run.TotalIssues,
		strings.Join(run.Analyzers, ","),
	)
	if err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// ListRuns retrieves the most recent runs, limited by the given count.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, session_id, started_at, duration_ms, total_issues, analyzers
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var run RunRecord
		var startedAt, durationMS int64
		var analyzers string

		if err := rows.Scan(&run.RunID, &run.SessionID, &startedAt, &durationMS, &run.TotalIssues, &analyzers); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = time.Unix(startedAt, 0)
		run.Duration = time.Duration(durationMS) * time.Millisecond
		if analyzers != "" {
			run.Analyzers = strings.Split(analyzers, ",")
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Compile-time interface check
var _ track.Storage = (*Store)(nil)
