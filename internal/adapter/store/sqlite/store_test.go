package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/braedonsaunders/codetriage/internal/adapter/store/sqlite"
	"github.com/braedonsaunders/codetriage/internal/domain"
	"github.com/braedonsaunders/codetriage/internal/usecase/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testIssue(file string, line int, message string) domain.Issue {
	return domain.NewIssue(domain.IssueInput{
		Category: domain.CategorySecurity,
		Severity: domain.SeverityError,
		File:     file,
		Line:     line,
		Message:  message,
		Snippet:  `apiKey := "sk-test"`,
		Metadata: map[string]interface{}{"confidence": 0.9, "source": "security"},
	}, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))
}

func TestStore_InsertAndGetIssue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	issue := testIssue("internal/server/auth.go", 42, "hardcoded credential")

	require.NoError(t, store.InsertIssue(ctx, "session-1", issue))

	got, err := store.GetIssue(ctx, "session-1", issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, got.ID)
	assert.Equal(t, domain.CategorySecurity, got.Category)
	assert.Equal(t, domain.SeverityError, got.Severity)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, issue.Snippet, got.Snippet)
	assert.Equal(t, "security", got.Metadata["source"])
}

func TestStore_GetIssue_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetIssue(context.Background(), "session-1", "missing")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	issue := testIssue("a.go", 1, "secret")

	require.NoError(t, store.InsertIssue(ctx, "session-1", issue))
	require.NoError(t, store.InsertIssue(ctx, "session-1", issue))

	issues, err := store.GetIssues(ctx, "session-1", track.IssueFilter{})
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestStore_SameIssueIDAcrossSessions(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	// Deterministic hashing gives the same finding the same ID in every
	// session; each session must keep its own row and state.
	issue := testIssue("a.go", 1, "secret")
	require.NoError(t, store.InsertIssue(ctx, "session-1", issue))
	require.NoError(t, store.InsertIssue(ctx, "session-2", issue))

	resolved := domain.StatusResolved
	require.NoError(t, store.UpdateIssue(ctx, "session-1", issue.ID, track.IssueUpdate{
		Status:    &resolved,
		UpdatedAt: time.Now(),
	}))

	got, err := store.GetIssue(ctx, "session-1", issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusResolved, got.Status)

	got, err = store.GetIssue(ctx, "session-2", issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status, "second session must keep its own state")
}

func TestStore_UpdateIssue(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	issue := testIssue("a.go", 1, "secret")
	require.NoError(t, store.InsertIssue(ctx, "session-1", issue))

	failed := domain.StatusFailed
	reason := "fix rejected"
	retries := 2
	err := store.UpdateIssue(ctx, "session-1", issue.ID, track.IssueUpdate{
		Status:     &failed,
		LastError:  &reason,
		RetryCount: &retries,
		UpdatedAt:  time.Now(),
	})
	require.NoError(t, err)

	got, err := store.GetIssue(ctx, "session-1", issue.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, "fix rejected", got.LastError)
	assert.Equal(t, 2, got.RetryCount)
}

func TestStore_UpdateIssue_NotFound(t *testing.T) {
	status := domain.StatusResolved
	err := newTestStore(t).UpdateIssue(context.Background(), "session-1", "missing", track.IssueUpdate{
		Status:    &status,
		UpdatedAt: time.Now(),
	})
	assert.Error(t, err)
}

func TestStore_GetIssues_Filtered(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	secret := testIssue("a.go", 1, "secret")
	todo := domain.NewIssue(domain.IssueInput{
		Category: domain.CategoryStub,
		Severity: domain.SeverityWarning,
		File:     "b.go",
		Line:     9,
		Message:  "unresolved TODO",
	}, time.Now())
	require.NoError(t, store.BulkInsertIssues(ctx, "session-1", []domain.Issue{secret, todo}))
	require.NoError(t, store.InsertIssue(ctx, "session-2", testIssue("c.go", 3, "other session")))

	issues, err := store.GetIssues(ctx, "session-1", track.IssueFilter{Categories: []domain.Category{domain.CategoryStub}})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, todo.ID, issues[0].ID)

	issues, err = store.GetIssues(ctx, "session-1", track.IssueFilter{Statuses: []domain.Status{domain.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, issues, 2)

	issues, err = store.GetIssues(ctx, "session-1", track.IssueFilter{File: "a.go"})
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, secret.ID, issues[0].ID)
}

func TestStore_BulkUpdateIssues(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	a := testIssue("a.go", 1, "one")
	b := testIssue("b.go", 2, "two")
	require.NoError(t, store.BulkInsertIssues(ctx, "session-1", []domain.Issue{a, b}))

	pending := domain.StatusPending
	err := store.BulkUpdateIssues(ctx, "session-1", []string{a.ID, b.ID}, track.IssueUpdate{
		Status:    &pending,
		UpdatedAt: time.Now(),
	})
	require.NoError(t, err)

	issues, err := store.GetIssues(ctx, "session-1", track.IssueFilter{Statuses: []domain.Status{domain.StatusPending}})
	require.NoError(t, err)
	assert.Len(t, issues, 2)
}

func TestStore_DeleteIssues_SessionScoped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.InsertIssue(ctx, "session-1", testIssue("a.go", 1, "one")))
	require.NoError(t, store.InsertIssue(ctx, "session-2", testIssue("b.go", 2, "two")))

	require.NoError(t, store.DeleteIssues(ctx, "session-1"))

	issues, err := store.GetIssues(ctx, "session-1", track.IssueFilter{})
	require.NoError(t, err)
	assert.Empty(t, issues)

	issues, err = store.GetIssues(ctx, "session-2", track.IssueFilter{})
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}

func TestStore_SaveAndListRuns(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	run := sqlite.RunRecord{
		RunID:       "run-1",
		SessionID:   "session-1",
		StartedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Duration:    90 * time.Second,
		TotalIssues: 4,
		Analyzers:   []string{"security", "stub"},
	}
	require.NoError(t, store.SaveRun(ctx, run))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, run.RunID, runs[0].RunID)
	assert.Equal(t, run.Duration, runs[0].Duration)
	assert.Equal(t, []string{"security", "stub"}, runs[0].Analyzers)
}
