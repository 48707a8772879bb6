package track

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/braedonsaunders/codetriage/internal/domain"
)

// Stats summarizes the tracked issue set.
type Stats struct {
	Total      int
	ByStatus   map[domain.Status]int
	ByCategory map[domain.Category]int
	BySeverity map[domain.Severity]int
}

// Tracker owns the canonical lifecycle of issues for one analysis session.
// Every mutating operation updates the in-memory cache and the backing
// store in the same call; the store stays authoritative on reload.
//
// A Tracker belongs to a single logical session and is safe for concurrent
// use within it, but not designed for multiple writers sharing a session.
type Tracker struct {
	mu        sync.Mutex
	storage   Storage
	sessionID string
	logger    Logger
	now       func() time.Time

	cache  map[string]domain.Issue
	queue  []string // issue IDs in priority order
	loaded bool
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets a structured logger for non-fatal storage warnings.
func WithLogger(logger Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// WithClock overrides the time source (for deterministic tests).
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker for one session backed by the given storage.
func NewTracker(storage Storage, sessionID string, opts ...Option) *Tracker {
	t := &Tracker{
		storage:   storage,
		sessionID: sessionID,
		now:       time.Now,
		cache:     make(map[string]domain.Issue),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AddIssues ingests issues into the session, preserving insertion order in
// the priority queue. Issues already tracked (same ID) are skipped.
func (t *Tracker) AddIssues(ctx context.Context, issues []domain.Issue) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	fresh := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if _, exists := t.cache[issue.ID]; exists {
			continue
		}
		if issue.Status == "" {
			issue.Status = domain.StatusPending
		}
		t.cache[issue.ID] = issue
		t.queue = append(t.queue, issue.ID)
		fresh = append(fresh, issue)
	}
	t.loaded = true

	if len(fresh) == 0 {
		return nil
	}
	if err := t.storage.BulkInsertIssues(ctx, t.sessionID, fresh); err != nil {
		return fmt.Errorf("persist issues: %w", err)
	}
	return nil
}

// AddIssue ingests a single issue.
func (t *Tracker) AddIssue(ctx context.Context, issue domain.Issue) error {
	return t.AddIssues(ctx, []domain.Issue{issue})
}

// NextIssue returns the first pending issue in priority order, loading from
// storage when the cache is cold. Returns false when nothing is pending.
func (t *Tracker) NextIssue(ctx context.Context) (domain.Issue, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		if err := t.loadLocked(ctx); err != nil {
			return domain.Issue{}, false, err
		}
	}

	for _, id := range t.queue {
		issue := t.cache[id]
		if issue.Status == domain.StatusPending {
			return issue, true, nil
		}
	}
	return domain.Issue{}, false, nil
}

// MarkInProgress transitions an issue from pending to in_progress.
func (t *Tracker) MarkInProgress(ctx context.Context, id string) error {
	return t.transition(ctx, id, domain.StatusInProgress, "")
}

// MarkResolved transitions an issue to resolved and stamps ResolvedAt.
func (t *Tracker) MarkResolved(ctx context.Context, id string) error {
	return t.transition(ctx, id, domain.StatusResolved, "")
}

// MarkFailed transitions an issue to failed, recording the failure reason.
// The retry counter is not touched; callers decide via IncrementRetry.
func (t *Tracker) MarkFailed(ctx context.Context, id, reason string) error {
	return t.transition(ctx, id, domain.StatusFailed, reason)
}

// MarkSkipped transitions an issue to skipped, recording the reason.
func (t *Tracker) MarkSkipped(ctx context.Context, id, reason string) error {
	return t.transition(ctx, id, domain.StatusSkipped, reason)
}

// ResetToPending requeues a failed issue for another attempt.
func (t *Tracker) ResetToPending(ctx context.Context, id string) error {
	return t.transition(ctx, id, domain.StatusPending, "")
}

func (t *Tracker) transition(ctx context.Context, id string, to domain.Status, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	issue, exists := t.cache[id]
	if !exists {
		return fmt.Errorf("issue not tracked: %s", id)
	}
	if !domain.CanTransition(issue.Status, to) {
		return fmt.Errorf("invalid transition %s -> %s for issue %s", issue.Status, to, id)
	}

	now := t.now()
	issue.Status = to
	issue.UpdatedAt = now
	update := IssueUpdate{Status: &to, UpdatedAt: now}

	if reason != "" {
		issue.LastError = reason
		update.LastError = &reason
	}
	if to == domain.StatusResolved {
		resolvedAt := now
		issue.ResolvedAt = &resolvedAt
		update.ResolvedAt = &resolvedAt
	}

	t.cache[id] = issue
	if err := t.storage.UpdateIssue(ctx, t.sessionID, id, update); err != nil {
		return fmt.Errorf("persist status %s for %s: %w", to, id, err)
	}
	return nil
}

// IncrementRetry raises the retry counter by exactly one.
func (t *Tracker) IncrementRetry(ctx context.Context, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	issue, exists := t.cache[id]
	if !exists {
		return fmt.Errorf("issue not tracked: %s", id)
	}

	now := t.now()
	issue.RetryCount++
	issue.UpdatedAt = now
	t.cache[id] = issue

	count := issue.RetryCount
	if err := t.storage.UpdateIssue(ctx, t.sessionID, id, IssueUpdate{RetryCount: &count, UpdatedAt: now}); err != nil {
		return fmt.Errorf("persist retry count for %s: %w", id, err)
	}
	return nil
}

// RetryableIssues returns failed issues whose retry count is still below
// maxRetries, in priority order.
func (t *Tracker) RetryableIssues(maxRetries int) []domain.Issue {
	t.mu.Lock()
	defer t.mu.Unlock()

	var retryable []domain.Issue
	for _, id := range t.queue {
		issue := t.cache[id]
		if issue.Status == domain.StatusFailed && issue.RetryCount < maxRetries {
			retryable = append(retryable, issue)
		}
	}
	return retryable
}

// ResetRetryableIssues requeues every failed issue with retries remaining
// and returns how many were reset.
func (t *Tracker) ResetRetryableIssues(ctx context.Context, maxRetries int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	pending := domain.StatusPending
	var ids []string
	for _, id := range t.queue {
		issue := t.cache[id]
		if issue.Status != domain.StatusFailed || issue.RetryCount >= maxRetries {
			continue
		}
		issue.Status = pending
		issue.UpdatedAt = now
		t.cache[id] = issue
		ids = append(ids, id)
	}

	if len(ids) == 0 {
		return 0, nil
	}
	if err := t.storage.BulkUpdateIssues(ctx, t.sessionID, ids, IssueUpdate{Status: &pending, UpdatedAt: now}); err != nil {
		return 0, fmt.Errorf("persist retry reset: %w", err)
	}
	return len(ids), nil
}

// Stats returns counts by status, category, and severity for the session.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	stats := Stats{
		Total:      len(t.cache),
		ByStatus:   make(map[domain.Status]int),
		ByCategory: make(map[domain.Category]int),
		BySeverity: make(map[domain.Severity]int),
	}
	for _, issue := range t.cache {
		stats.ByStatus[issue.Status]++
		stats.ByCategory[issue.Category]++
		stats.BySeverity[issue.Severity]++
	}
	return stats
}

// IssueStillExists checks whether a tracked issue is still plausible given
// the file's current content: the recorded snippet must still appear and
// the recorded line must not exceed the file's line count. The result is
// advisory; callers decide whether to skip or re-verify stale issues.
func (t *Tracker) IssueStillExists(issue domain.Issue, currentContent string) bool {
	if issue.Snippet != "" && !strings.Contains(currentContent, strings.TrimSpace(issue.Snippet)) {
		return false
	}
	lines := strings.Count(currentContent, "\n") + 1
	if issue.Line > lines {
		return false
	}
	return true
}

// Prioritize reorders the internal queue by severity rank, then category
// rank, then file path. The sort is stable and does not mutate any
// persisted status.
func (t *Tracker) Prioritize() {
	t.mu.Lock()
	defer t.mu.Unlock()

	sort.SliceStable(t.queue, func(a, b int) bool {
		left, right := t.cache[t.queue[a]], t.cache[t.queue[b]]
		if left.Severity.Rank() != right.Severity.Rank() {
			return left.Severity.Rank() < right.Severity.Rank()
		}
		if left.Category.Rank() != right.Category.Rank() {
			return left.Category.Rank() < right.Category.Rank()
		}
		return left.File < right.File
	})
}

// LoadFromStorage replaces the cache with the store's view of the session.
func (t *Tracker) LoadFromStorage(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadLocked(ctx)
}

func (t *Tracker) loadLocked(ctx context.Context) error {
	issues, err := t.storage.GetIssues(ctx, t.sessionID, IssueFilter{})
	if err != nil {
		return fmt.Errorf("load session %s: %w", t.sessionID, err)
	}

	t.cache = make(map[string]domain.Issue, len(issues))
	t.queue = t.queue[:0]
	for _, issue := range issues {
		t.cache[issue.ID] = issue
		t.queue = append(t.queue, issue.ID)
	}
	t.loaded = true

	if t.logger != nil {
		t.logger.LogInfo(ctx, "loaded issues from storage", map[string]interface{}{
			"sessionID": t.sessionID,
			"count":     len(issues),
		})
	}
	return nil
}

// Clear removes the session's issues from cache and storage.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.cache = make(map[string]domain.Issue)
	t.queue = nil
	if err := t.storage.DeleteIssues(ctx, t.sessionID); err != nil {
		return fmt.Errorf("clear session %s: %w", t.sessionID, err)
	}
	return nil
}

// Issues returns a snapshot of all tracked issues in priority order.
func (t *Tracker) Issues() []domain.Issue {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]domain.Issue, 0, len(t.queue))
	for _, id := range t.queue {
		snapshot = append(snapshot, t.cache[id])
	}
	return snapshot
}
