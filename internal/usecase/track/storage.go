package track

import (
	"context"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Storage defines the outbound port for issue persistence. Issue IDs are
// deterministic and can collide across sessions, so every operation is
// scoped to a session. Implementations must provide idempotent
// upsert-by-id semantics within a session so at-least-once writes are
// safe.
type Storage interface {
	InsertIssue(ctx context.Context, sessionID string, issue domain.Issue) error
	BulkInsertIssues(ctx context.Context, sessionID string, issues []domain.Issue) error
	UpdateIssue(ctx context.Context, sessionID, id string, update IssueUpdate) error
	BulkUpdateIssues(ctx context.Context, sessionID string, ids []string, update IssueUpdate) error
	GetIssue(ctx context.Context, sessionID, id string) (domain.Issue, error)
	GetIssues(ctx context.Context, sessionID string, filter IssueFilter) ([]domain.Issue, error)
	DeleteIssues(ctx context.Context, sessionID string) error
	Close() error
}

// IssueFilter narrows GetIssues queries. Zero-value fields match everything.
type IssueFilter struct {
	Statuses   []domain.Status
	Categories []domain.Category
	Severities []domain.Severity
	File       string
}

// IssueUpdate is a partial update applied to a persisted issue. Nil fields
// are left unchanged.
type IssueUpdate struct {
	Status     *domain.Status
	RetryCount *int
	LastError  *string
	ResolvedAt *time.Time
	UpdatedAt  time.Time
}

// Logger provides structured logging for the tracker.
type Logger interface {
	LogWarning(ctx context.Context, message string, fields map[string]interface{})
	LogInfo(ctx context.Context, message string, fields map[string]interface{})
}
